package calc

import (
	"errors"
	"testing"

	"rexx/internal/numeric"
)

func TestStackOffsetsSurviveGrowth(t *testing.T) {
	s := New()
	s.Push("first")
	base := s.Len()
	for i := 0; i < 1000; i++ {
		s.Push("some longer value that forces the buffer to grow")
	}
	if v, ok := s.Get(base - 1); !ok || v != "first" {
		t.Fatalf("expected first entry intact, got %q %v", v, ok)
	}
	s.Truncate(base)
	if s.Len() != 1 {
		t.Fatalf("expected one entry after truncate, got %d", s.Len())
	}
	s.Push("x")
	if v, _ := s.Top(); v != "x" {
		t.Errorf("expected x on top, got %q", v)
	}
}

func TestOmittedArguments(t *testing.T) {
	s := New()
	s.Push("a")
	s.PushOmitted()
	s.Push("c")
	args := s.Args(3)
	if args.Len() != 3 {
		t.Fatalf("expected 3 args, got %d", args.Len())
	}
	if !args.Exists(0) || args.Exists(1) || !args.Exists(2) || args.Exists(3) {
		t.Errorf("unexpected existence pattern")
	}
	if v, _ := args.Get(2); v != "c" {
		t.Errorf("expected c, got %q", v)
	}
}

func TestApply(t *testing.T) {
	set := numeric.Default()
	cases := []struct {
		name     string
		op       Op
		a, b     string
		expected string
	}{
		{"add", Add, "2", "3", "5"},
		{"concat", Concat, "ab", "cd", "abcd"},
		{"blank concat", BlankConcat, "ab", "cd", "ab cd"},
		{"numeric equality", Eq, "1.0", " 1", "1"},
		{"padded equality", Eq, " abc", "abc  ", "1"},
		{"strict inequality", StrictEq, " abc", "abc", "0"},
		{"numeric less than", Lt, "9", "10", "1"},
		{"string less than", Lt, "abc", "abd", "1"},
		{"strict prefix", StrictLt, "ab", "abc", "1"},
		{"not equal", Ne, "a", "b", "1"},
		{"and", And, "1", "0", "0"},
		{"or", Or, "1", "0", "1"},
		{"xor", Xor, "1", "1", "0"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Apply(c.op, c.a, c.b, set)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.expected {
				t.Errorf("expected %q, got %q", c.expected, got)
			}
		})
	}
}

func TestStackOperators(t *testing.T) {
	set := numeric.Default()
	s := New()
	s.Push("7")
	s.Push("2")
	if err := s.Binary(Rem, set); err != nil {
		t.Fatal(err)
	}
	if err := s.Unary(Minus, set); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Pop(); v != "-1" {
		t.Errorf("expected -1, got %q", v)
	}
	s.Push("2")
	if err := s.Unary(Not, set); !errors.Is(err, ErrLogical) {
		t.Errorf("expected logical error, got %v", err)
	}
	s.Push("a")
	s.Push("1")
	if err := s.Binary(Add, set); !errors.Is(err, numeric.ErrNotNumber) {
		t.Errorf("expected conversion error, got %v", err)
	}
}
