package interp

import (
	"context"
	"strings"

	"rexx/internal/environments"
)

// ExitKind selects the group of events an exit handler intercepts.
type ExitKind int

const (
	ExitSIO ExitKind = iota // SAY and trace output, PULL and trace input
	ExitCMD                 // host commands
	ExitINI                 // program start
	ExitTER                 // program end
	ExitHLT                 // halt polling

	numExits
)

var exitNames = [...]string{"SIO", "CMD", "INI", "TER", "HLT"}

func (k ExitKind) String() string {
	if k < 0 || k >= numExits {
		return "UNKNOWN"
	}
	return exitNames[k]
}

// ParseExitKind maps an exit name such as "SIO" to its kind.
func ParseExitKind(name string) (ExitKind, bool) {
	for i, n := range exitNames {
		if strings.EqualFold(n, name) {
			return ExitKind(i), true
		}
	}
	return 0, false
}

// ExitEvent is the specific event inside an exit group.
type ExitEvent int

const (
	EventSay ExitEvent = iota
	EventTraceOutput
	EventPull
	EventTraceInput
	EventCommand
	EventInit
	EventTerm
	EventHaltTest
)

// ExitRequest describes one call of an exit handler.
type ExitRequest struct {
	Event ExitEvent
	Text  string // line written, or command text
	Env   string // environment of a command
}

// ExitReply is the answer of an exit handler. Handled false lets the
// interpreter carry on as if no exit were installed.
type ExitReply struct {
	Handled bool
	Text    string // line read
	RC      string
	Status  environments.Status
	Halt    bool // a halt test requests HALT
}

// Exit intercepts interpreter events.
type Exit interface {
	HandleExit(ctx context.Context, req ExitRequest) ExitReply
}

// ExitFunc adapts a function to Exit.
type ExitFunc func(ctx context.Context, req ExitRequest) ExitReply

func (f ExitFunc) HandleExit(ctx context.Context, req ExitRequest) ExitReply { return f(ctx, req) }

// callExit runs the handler for kind, reporting an unhandled reply when
// none is installed.
func (c *Context) callExit(kind ExitKind, req ExitRequest) ExitReply {
	h := c.s.exits[kind]
	if h == nil {
		return ExitReply{}
	}
	return h.HandleExit(c.ctx, req)
}
