// Package frames is the program stack: one activation record per active
// DO loop, SELECT, routine call, INTERPRET, interactive trace pause and
// traceback snapshot.
//
// Frames are strictly LIFO. A frame's Kind must be checked before its
// kind-specific payload is used; only the pointer matching the kind is set.
package frames

import (
	"errors"
	"time"

	"rexx/internal/lexer"
	"rexx/internal/numeric"
	"rexx/internal/token"
	"rexx/internal/trace"
)

// ErrFull is returned when the stack reaches its limit.
var ErrFull = errors.New("control stack full")

// DefaultLimit bounds the number of active frames.
const DefaultLimit = 25000

type Kind int

const (
	Loop Kind = iota + 1
	Select
	Call
	Interpret
	Checkpoint
	Traceback
)

func (k Kind) String() string {
	switch k {
	case Loop:
		return "DO"
	case Select:
		return "SELECT"
	case Call:
		return "CALL"
	case Interpret:
		return "INTERPRET"
	case Checkpoint:
		return "CHECKPOINT"
	case Traceback:
		return "TRACEBACK"
	}
	return "UNKNOWN"
}

// LoopFrame is an active DO block.
type LoopFrame struct {
	Start, End int // statement indexes of DO and END
	Var        string
	Step       string
	Limit      string
	HasLimit   bool
	Count      int // iterations left for DO n and FOR n
	HasCount   bool
	While      []token.Code
	Until      []token.Code
}

// SelectFrame is an active SELECT block.
type SelectFrame struct {
	Start, End int
	Value      string
	HasValue   bool
}

// State is the part of the interpreter state a routine call saves and
// restores.
type State struct {
	Numeric  numeric.Settings
	Trace    trace.Setting
	Address  string
	Previous string
	Elapsed  time.Time
	Args     []Arg
	VarDepth int
}

// Arg is one argument of a routine call.
type Arg struct {
	Value  string
	Exists bool
}

// CallFrame is an active internal routine call.
type CallFrame struct {
	Name    string
	Prog    *lexer.Program
	Stmt    int // statement that made the call
	Line    int
	Func    bool // invoked as a function
	Trapped bool // invoked by CALL ON
	Saved   State
}

// InterpretFrame is an active INTERPRET; Prog is the statement table the
// interpreted text replaced.
type InterpretFrame struct {
	Prog *lexer.Program
	Stmt int
}

// CheckpointFrame is an interactive trace pause. The calculator stack depth
// is restored when the pause ends.
type CheckpointFrame struct {
	CalcDepth int
	Stmt      int
}

// TracebackFrame records where control left a program for an external
// routine, so error reports can name the calling clause.
type TracebackFrame struct {
	Prog *lexer.Program
	Stmt int
}

// Frame is one entry of the program stack.
type Frame struct {
	Kind       Kind
	PC         int // statement index the frame was pushed at
	Loop       *LoopFrame
	Select     *SelectFrame
	Call       *CallFrame
	Interpret  *InterpretFrame
	Checkpoint *CheckpointFrame
	Traceback  *TracebackFrame
}

// Stack is the program stack of one invocation.
type Stack struct {
	frames []Frame
	limit  int
}

// New returns an empty stack with the default limit.
func New() *Stack {
	return &Stack{limit: DefaultLimit}
}

// SetLimit changes the maximum number of frames.
func (s *Stack) SetLimit(n int) { s.limit = n }

// Push adds f and returns its index as a handle.
func (s *Stack) Push(f Frame) (int, error) {
	if len(s.frames) >= s.limit {
		return -1, ErrFull
	}
	s.frames = append(s.frames, f)
	return len(s.frames) - 1, nil
}

// Top returns the top frame, or nil.
func (s *Stack) Top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return &s.frames[len(s.frames)-1]
}

// At returns frame i counted from the bottom.
func (s *Stack) At(i int) *Frame { return &s.frames[i] }

// Len returns the number of frames.
func (s *Stack) Len() int { return len(s.frames) }

// Pop removes and returns the top frame. The caller restores whatever the
// frame saved.
func (s *Stack) Pop() Frame {
	f := s.frames[len(s.frames)-1]
	s.frames[len(s.frames)-1] = Frame{}
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

// Truncate pops frames until n remain, calling release for each popped
// frame from the top down.
func (s *Stack) Truncate(n int, release func(Frame)) {
	for len(s.frames) > n {
		f := s.Pop()
		if release != nil {
			release(f)
		}
	}
}

// FindLoop searches the frames above base for the innermost DO loop, or the
// one whose control variable is name. It stops at call and INTERPRET
// frames.
func (s *Stack) FindLoop(base int, name string) (int, bool) {
	for i := len(s.frames) - 1; i >= base; i-- {
		f := &s.frames[i]
		switch f.Kind {
		case Call, Interpret:
			return -1, false
		case Loop:
			if name == "" || f.Loop.Var == name {
				return i, true
			}
		}
	}
	return -1, false
}
