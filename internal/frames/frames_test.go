package frames

import (
	"errors"
	"testing"
)

func TestPushPopOrder(t *testing.T) {
	s := New()
	kinds := []Kind{Call, Loop, Select, Interpret, Checkpoint, Traceback}
	for i, k := range kinds {
		h, err := s.Push(Frame{Kind: k, PC: i})
		if err != nil || h != i {
			t.Fatalf("push %v: handle %d err %v", k, h, err)
		}
	}
	if top := s.Top(); top == nil || top.Kind != Traceback || top.PC != 5 {
		t.Errorf("expected traceback frame on top, got %+v", top)
	}
	var released []Kind
	s.Truncate(1, func(f Frame) { released = append(released, f.Kind) })
	expected := []Kind{Traceback, Checkpoint, Interpret, Select, Loop}
	if len(released) != len(expected) {
		t.Fatalf("expected %d released frames, got %d", len(expected), len(released))
	}
	for i := range expected {
		if released[i] != expected[i] {
			t.Errorf("release %d: expected %v, got %v", i, expected[i], released[i])
		}
	}
	if s.Len() != 1 || s.Pop().Kind != Call {
		t.Errorf("expected the call frame to remain")
	}
	if s.Top() != nil {
		t.Errorf("expected empty stack")
	}
}

func TestLimit(t *testing.T) {
	s := New()
	s.SetLimit(2)
	s.Push(Frame{Kind: Loop})
	s.Push(Frame{Kind: Loop})
	if _, err := s.Push(Frame{Kind: Loop}); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
}

func TestFindLoop(t *testing.T) {
	s := New()
	s.Push(Frame{Kind: Loop, Loop: &LoopFrame{Var: "OUTER"}})
	s.Push(Frame{Kind: Call, Call: &CallFrame{Name: "SUB"}})
	s.Push(Frame{Kind: Loop, Loop: &LoopFrame{Var: "I"}})
	s.Push(Frame{Kind: Select, Select: &SelectFrame{}})

	cases := []struct {
		name  string
		found bool
		index int
	}{
		{"", true, 2},
		{"I", true, 2},
		{"OUTER", false, -1},
	}
	for _, c := range cases {
		i, ok := s.FindLoop(0, c.name)
		if ok != c.found || i != c.index {
			t.Errorf("FindLoop(%q) = %d %v, expected %d %v", c.name, i, ok, c.index, c.found)
		}
	}
}
