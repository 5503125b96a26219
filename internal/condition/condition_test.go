package condition

import (
	"errors"
	"fmt"
	"testing"
)

func TestFindWalksOutward(t *testing.T) {
	s := NewStack()
	s.Current().Arm(ErrorCondition, SignalMode, "ERROR")

	inner := s.Push(true)
	if l, ok := s.Find(ErrorCondition); !ok || l != inner {
		t.Fatalf("expected inherited trap at the inner level")
	}

	inner.Disarm(ErrorCondition)
	if _, ok := s.Find(ErrorCondition); ok {
		t.Errorf("expected a local OFF to hide the caller's trap")
	}

	fresh := s.Push(false)
	if fresh.Armed != 0 {
		t.Errorf("expected no traps on an uninherited level")
	}
	s.Pop()
	s.Pop()
	if l, ok := s.Find(ErrorCondition); !ok || l.Depth != 0 {
		t.Errorf("expected the main level trap after popping")
	}
}

func TestPendingMovesToCaller(t *testing.T) {
	s := NewStack()
	inner := s.Push(true)
	inner.Pending = append(inner.Pending, Pending{Kind: ErrorCondition, Line: 3})
	s.Pop()
	if len(s.Current().Pending) != 1 {
		t.Errorf("expected pending condition to move to the caller")
	}
}

func TestKinds(t *testing.T) {
	cases := []struct {
		name     string
		kind     Kind
		callable bool
	}{
		{"syntax", Syntax, false},
		{"error", ErrorCondition, true},
		{"failure", Failure, true},
		{"halt", Halt, true},
		{"novalue", NoValue, false},
		{"notready", NotReady, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			k, ok := ParseKind(c.name)
			if !ok || k != c.kind {
				t.Fatalf("expected %v, got %v %v", c.kind, k, ok)
			}
			if k.Callable() != c.callable {
				t.Errorf("expected callable %v", c.callable)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Errorf(41, "value %q", "abc"))
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatal("expected *Error in chain")
	}
	if rerr.Code != 41 || Message(41) != "Bad arithmetic conversion" {
		t.Errorf("unexpected error %v", rerr)
	}
	if got := New(16).Error(); got != "Error 16: Label not found" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestBlocked(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(s *Stack)
		blocked bool
	}{
		{"nothing set", func(s *Stack) {}, false},
		{"armed", func(s *Stack) { s.Current().Arm(Syntax, SignalMode, "SYNTAX") }, false},
		{"switched off", func(s *Stack) { s.Current().Disarm(Syntax) }, true},
		{"switched off by a routine", func(s *Stack) {
			s.Current().Arm(Syntax, SignalMode, "SYNTAX")
			s.Push(true).Disarm(Syntax)
		}, true},
		{"inherited off is not local", func(s *Stack) {
			s.Push(true)
		}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := NewStack()
			c.setup(s)
			if got := s.Blocked(Syntax); got != c.blocked {
				t.Errorf("expected blocked %v, got %v", c.blocked, got)
			}
		})
	}
}

func TestFatalKinds(t *testing.T) {
	for k := Syntax; k < numKinds; k++ {
		want := k == Syntax || k == Halt
		if k.Fatal() != want {
			t.Errorf("%v: expected fatal %v", k, want)
		}
	}
}
