// Package calc is the calculator stack every expression is evaluated on.
//
// Values are byte strings packed into one growable buffer. Entries record
// their offset and length into that buffer instead of holding slices, so a
// position taken before the buffer grows stays valid afterwards. A length of
// -1 marks an omitted argument.
package calc

import (
	"errors"
	"strings"

	"rexx/internal/numeric"
)

// ErrLogical is returned when a logical operator meets a value other than
// "0" or "1".
var ErrLogical = errors.New("logical value not 0 or 1")

const omitted = -1

type span struct {
	off, n int
}

// Stack holds intermediate values, function arguments and results.
type Stack struct {
	buf     []byte
	entries []span
}

// New returns an empty stack.
func New() *Stack {
	return &Stack{buf: make([]byte, 0, 256)}
}

// Len returns the number of entries on the stack.
func (s *Stack) Len() int { return len(s.entries) }

// Push appends a value.
func (s *Stack) Push(v string) {
	off := len(s.buf)
	s.buf = append(s.buf, v...)
	s.entries = append(s.entries, span{off, len(v)})
}

// PushOmitted appends the omitted-argument marker.
func (s *Stack) PushOmitted() {
	s.entries = append(s.entries, span{len(s.buf), omitted})
}

// Get returns entry i counted from the bottom of the stack. The boolean is
// false for an omitted argument.
func (s *Stack) Get(i int) (string, bool) {
	e := s.entries[i]
	if e.n == omitted {
		return "", false
	}
	return string(s.buf[e.off : e.off+e.n]), true
}

// Top returns the topmost entry without removing it.
func (s *Stack) Top() (string, bool) {
	return s.Get(len(s.entries) - 1)
}

// Pop removes and returns the topmost entry.
func (s *Stack) Pop() (string, bool) {
	v, ok := s.Top()
	s.Truncate(len(s.entries) - 1)
	return v, ok
}

// Truncate drops every entry at or above position n and releases their bytes.
func (s *Stack) Truncate(n int) {
	if n >= len(s.entries) {
		return
	}
	if n < 0 {
		n = 0
	}
	s.buf = s.buf[:s.entries[n].off]
	s.entries = s.entries[:n]
}

// Args is a window onto the top n entries, used as the argument list of a
// function call.
type Args struct {
	s    *Stack
	base int
	n    int
}

// Args returns the window of the topmost n entries.
func (s *Stack) Args(n int) Args {
	return Args{s: s, base: len(s.entries) - n, n: n}
}

// Base is the stack position of the first argument.
func (a Args) Base() int { return a.base }

// Len returns the number of arguments including omitted trailing ones.
func (a Args) Len() int { return a.n }

// Get returns argument i (0-based). Missing and omitted arguments report false.
func (a Args) Get(i int) (string, bool) {
	if i < 0 || i >= a.n {
		return "", false
	}
	return a.s.Get(a.base + i)
}

// Exists reports whether argument i was given.
func (a Args) Exists(i int) bool {
	_, ok := a.Get(i)
	return ok
}

// Strings returns all arguments; omitted ones are empty.
func (a Args) Strings() []string {
	out := make([]string, a.n)
	for i := range out {
		out[i], _ = a.Get(i)
	}
	return out
}

// Op is an operator applied to the top of the stack.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
	IntDiv
	Rem
	Power
	Concat      // abuttal
	BlankConcat // one blank between the operands
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
	StrictEq
	StrictNe
	StrictLt
	StrictGt
	StrictLe
	StrictGe
	And
	Or
	Xor

	Plus
	Minus
	Not
)

var arith = map[Op]numeric.Op{
	Add: numeric.Add, Sub: numeric.Sub, Mul: numeric.Mul, Div: numeric.Div,
	IntDiv: numeric.IntDiv, Rem: numeric.Rem, Power: numeric.Power,
}

// Binary pops two operands, applies op and pushes the result.
func (s *Stack) Binary(op Op, set numeric.Settings) error {
	b, _ := s.Pop()
	a, _ := s.Pop()
	r, err := Apply(op, a, b, set)
	if err != nil {
		return err
	}
	s.Push(r)
	return nil
}

// Unary replaces the top of the stack with the result of a prefix operator.
func (s *Stack) Unary(op Op, set numeric.Settings) error {
	a, _ := s.Pop()
	var r string
	var err error
	switch op {
	case Plus, Minus:
		r, err = set.Prefix(op == Minus, a)
	case Not:
		var v bool
		if v, err = logical(a); err == nil {
			r = boolString(!v)
		}
	}
	if err != nil {
		return err
	}
	s.Push(r)
	return nil
}

// Apply computes a op b.
func Apply(op Op, a, b string, set numeric.Settings) (string, error) {
	if n, ok := arith[op]; ok {
		return set.Arith(n, a, b)
	}
	switch op {
	case Concat:
		return a + b, nil
	case BlankConcat:
		return a + " " + b, nil
	case And, Or, Xor:
		x, err := logical(a)
		if err != nil {
			return "", err
		}
		y, err := logical(b)
		if err != nil {
			return "", err
		}
		switch op {
		case And:
			return boolString(x && y), nil
		case Or:
			return boolString(x || y), nil
		}
		return boolString(x != y), nil
	case StrictEq, StrictNe, StrictLt, StrictGt, StrictLe, StrictGe:
		return boolString(test(op, strings.Compare(a, b))), nil
	}
	c, err := Compare(a, b, set)
	if err != nil {
		return "", err
	}
	return boolString(test(op, c)), nil
}

// Compare performs the normal comparison: numeric when both operands are
// numbers, otherwise a blank-padded comparison ignoring leading and trailing
// blanks.
func Compare(a, b string, set numeric.Settings) (int, error) {
	if numeric.IsNumber(a) && numeric.IsNumber(b) {
		return set.Compare(a, b)
	}
	a = strings.Trim(a, " ")
	b = strings.Trim(b, " ")
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		x, y := byte(' '), byte(' ')
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			if x < y {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

func test(op Op, c int) bool {
	switch op {
	case Eq, StrictEq:
		return c == 0
	case Ne, StrictNe:
		return c != 0
	case Lt, StrictLt:
		return c < 0
	case Gt, StrictGt:
		return c > 0
	case Le, StrictLe:
		return c <= 0
	case Ge, StrictGe:
		return c >= 0
	}
	return false
}

func logical(v string) (bool, error) {
	switch v {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return false, ErrLogical
}

// Truth converts a value used as a condition.
func Truth(v string) (bool, error) { return logical(v) }

func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
