// Package condition holds the condition traps of each nesting level and the
// numbered REXX errors that raise the SYNTAX condition.
package condition

import (
	"fmt"
	"strings"
)

// Kind is a condition that can be trapped with SIGNAL ON or CALL ON.
type Kind int

const (
	Syntax Kind = iota
	ErrorCondition
	Failure
	Halt
	NoValue
	NotReady

	numKinds
)

var kindNames = [...]string{"SYNTAX", "ERROR", "FAILURE", "HALT", "NOVALUE", "NOTREADY"}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "UNKNOWN"
	}
	return kindNames[k]
}

// Mask returns the bit of k in a trap bitmap.
func (k Kind) Mask() uint8 { return 1 << uint(k) }

// Callable reports whether CALL ON may trap k.
func (k Kind) Callable() bool {
	return k == ErrorCondition || k == Failure || k == Halt || k == NotReady
}

// Fatal reports whether an untrapped k ends the program. The other
// conditions are ignored when nothing traps them.
func (k Kind) Fatal() bool { return k == Syntax || k == Halt }

// ParseKind maps a condition name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(i), true
		}
	}
	return 0, false
}

// Mode is how an armed trap transfers control.
type Mode int

const (
	Off Mode = iota
	SignalMode
	CallMode
)

func (m Mode) String() string {
	switch m {
	case SignalMode:
		return "SIGNAL"
	case CallMode:
		return "CALL"
	}
	return "OFF"
}

// Target values of a trap that has no statement index yet.
const (
	Unresolved = -1 // label not looked up
	Missing    = -2 // the program has no such label
)

// Trap is the state of one condition at one level.
type Trap struct {
	Mode    Mode
	Label   string
	Target  int  // statement index, Unresolved or Missing
	Delayed bool // a CALL ON handler for the condition is running
}

// Info describes the most recently trapped condition, as reported by the
// CONDITION builtin.
type Info struct {
	Kind        Kind
	Mode        Mode
	Description string
	Status      string // ON, OFF or DELAY
	Extra       string
}

// Pending is a condition raised while a CALL ON trap was armed. It is
// serviced at the next clause boundary.
type Pending struct {
	Kind        Kind
	Description string
	Line        int
	RC          string
}

// Level is the trap state of one call or INTERPRET nesting level.
type Level struct {
	Depth   int
	Armed   uint8 // conditions whose trap is currently on
	Local   uint8 // conditions whose trap was set at this level
	Traps   [numKinds]Trap
	Info    *Info
	Pending []Pending
}

// Arm sets the trap for k at this level.
func (l *Level) Arm(k Kind, mode Mode, label string) {
	l.Traps[k] = Trap{Mode: mode, Label: label, Target: Unresolved}
	l.Armed |= k.Mask()
	l.Local |= k.Mask()
}

// Disarm turns the trap for k off at this level.
func (l *Level) Disarm(k Kind) {
	l.Traps[k] = Trap{Target: Unresolved}
	l.Armed &^= k.Mask()
	l.Local |= k.Mask()
}

// IsArmed reports whether k is trapped at this level.
func (l *Level) IsArmed(k Kind) bool { return l.Armed&k.Mask() != 0 }

// Stack is the stack of levels of one invocation. Level 0 is the main
// program.
type Stack struct {
	levels []*Level
}

// NewStack returns a stack with a single, trap-free level.
func NewStack() *Stack {
	s := &Stack{}
	s.levels = append(s.levels, newLevel(0))
	return s
}

func newLevel(depth int) *Level {
	l := &Level{Depth: depth}
	for i := range l.Traps {
		l.Traps[i].Target = Unresolved
	}
	return l
}

// Current returns the innermost level.
func (s *Stack) Current() *Level { return s.levels[len(s.levels)-1] }

// Depth returns the index of the innermost level.
func (s *Stack) Depth() int { return len(s.levels) - 1 }

// At returns level i.
func (s *Stack) At(i int) *Level { return s.levels[i] }

// Push starts a new level. Internal routines start with a copy of the
// caller's traps; none of them counts as set locally.
func (s *Stack) Push(inherit bool) *Level {
	cur := s.Current()
	l := newLevel(len(s.levels))
	if inherit {
		l.Armed = cur.Armed
		l.Traps = cur.Traps
		l.Info = cur.Info
	}
	s.levels = append(s.levels, l)
	return l
}

// Pop discards the innermost level. Pending CALL ON conditions move to the
// caller so they are serviced on return.
func (s *Stack) Pop() {
	if len(s.levels) == 1 {
		return
	}
	l := s.Current()
	s.levels = s.levels[:len(s.levels)-1]
	if len(l.Pending) > 0 {
		cur := s.Current()
		cur.Pending = append(cur.Pending, l.Pending...)
	}
}

// Truncate pops levels until depth is the innermost one.
func (s *Stack) Truncate(depth int) {
	for len(s.levels)-1 > depth {
		s.levels = s.levels[:len(s.levels)-1]
	}
}

// Find walks from the innermost level outward looking for a trap for k. A
// level that switched the trap off itself stops the search.
func (s *Stack) Find(k Kind) (*Level, bool) {
	for i := len(s.levels) - 1; i >= 0; i-- {
		l := s.levels[i]
		if l.IsArmed(k) {
			return l, true
		}
		if l.Local&k.Mask() != 0 {
			return nil, false
		}
	}
	return nil, false
}

// Blocked reports whether some level switched the trap for k off itself.
// Such a level hides the traps of the programs that called this one.
func (s *Stack) Blocked(k Kind) bool {
	for _, l := range s.levels {
		if l.Local&k.Mask() != 0 && !l.IsArmed(k) {
			return true
		}
	}
	return false
}

// Error is a numbered REXX error. It raises the SYNTAX condition.
type Error struct {
	Code   int
	Detail string
	Line   int
}

// Errorf builds an Error with a formatted detail message.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// New builds an Error carrying only the standard message.
func New(code int) *Error { return &Error{Code: code} }

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("Error %d: %s: %s", e.Code, Message(e.Code), e.Detail)
	}
	return fmt.Sprintf("Error %d: %s", e.Code, Message(e.Code))
}

// Message returns the standard text of REXX error n, or "" for unknown numbers.
func Message(n int) string {
	return messages[n]
}

var messages = map[int]string{
	3:  "Failure during initialization",
	4:  "Program interrupted",
	5:  "System resources exhausted",
	6:  "Unmatched \"/*\" or quote",
	7:  "WHEN or OTHERWISE expected",
	8:  "Unexpected THEN or ELSE",
	9:  "Unexpected WHEN or OTHERWISE",
	10: "Unexpected or unmatched END",
	11: "Control stack full",
	13: "Invalid character in program",
	14: "Incomplete DO/SELECT/IF",
	15: "Invalid hexadecimal or binary string",
	16: "Label not found",
	17: "Unexpected PROCEDURE",
	18: "THEN expected",
	19: "String or symbol expected",
	20: "Name expected",
	21: "Invalid data on end of clause",
	24: "Invalid TRACE request",
	25: "Invalid sub-keyword found",
	26: "Invalid whole number",
	27: "Invalid DO syntax",
	28: "Invalid LEAVE or ITERATE",
	29: "Environment name too long",
	30: "Name or string too long",
	31: "Name starts with number or \".\"",
	33: "Invalid expression result",
	34: "Logical value not \"0\" or \"1\"",
	35: "Invalid expression",
	36: "Unmatched \"(\" in expression",
	37: "Unexpected \",\" or \")\"",
	38: "Invalid template or pattern",
	40: "Incorrect call to routine",
	41: "Bad arithmetic conversion",
	42: "Arithmetic overflow/underflow",
	43: "Routine not found",
	44: "Function did not return data",
	45: "No data specified on function RETURN",
	46: "Invalid variable reference",
	48: "Failure in system service",
	49: "Interpretation Error",
}
