package interp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"rexx/internal/calc"
	"rexx/internal/condition"
	"rexx/internal/frames"
	"rexx/internal/lexer"
	"rexx/internal/numeric"
	"rexx/internal/trace"
	"rexx/internal/variables"
)

// CallType is how a program was invoked, as reported by PARSE SOURCE.
type CallType int

const (
	AsCommand CallType = iota
	AsFunction
	AsSubroutine
)

func (t CallType) String() string {
	switch t {
	case AsFunction:
		return "FUNCTION"
	case AsSubroutine:
		return "SUBROUTINE"
	}
	return "COMMAND"
}

// Invocation describes a program to run.
type Invocation struct {
	Prog     *lexer.Program
	Path     string // file the program was read from, if any
	Args     []Arg
	Env      string // initial ADDRESS environment; the session default when empty
	CallType CallType
	// Numeric, when set, replaces the default NUMERIC settings.
	Numeric *numeric.Settings
	// Quiet skips the INI and TER exits of a top-level program.
	Quiet bool
}

// Outcome is the result of running a program.
type Outcome struct {
	// RC is 0 for normal completion, the negated error number for an
	// untrapped SYNTAX condition.
	RC        int
	Result    string
	HasResult bool
}

// Context is one invocation of a program: its variables, program stack,
// condition levels and calculator stack.
type Context struct {
	s      *Session
	ctx    context.Context
	parent *Context

	prog     *lexer.Program
	path     string
	callType CallType
	quiet    bool

	vars   *variables.Store
	frames *frames.Stack
	calc   *calc.Stack
	conds  *condition.Stack
	state  frames.State

	cur       position  // clause being executed
	now       time.Time // time of the current clause, zero until asked for
	procOK    bool      // PROCEDURE is allowed as the next clause
	deferred  error     // control transfer raised where no error could be returned
	traceSkip bool      // executing interactive trace input
	snapshot  []pair    // variable pool NEXT iteration
}

type position struct {
	prog *lexer.Program
	stmt int
}

func (p position) line() int {
	if p.prog == nil || p.stmt < 0 || p.stmt >= len(p.prog.Stmts) {
		return 0
	}
	return p.prog.Stmts[p.stmt].Line
}

type pair struct{ name, value string }

// Control transfers travel up the interpreter as error values.

// jump is a SIGNAL, either explicit or caused by a trapped condition. The
// routine-level run of owner at condition depth level catches it; when
// owner called the program that raised it, the external call is unwound.
type jump struct {
	owner  *Context
	level  int
	label  string
	target int
	sigl   int
	rc     string
	hasRC  bool
}

func (j *jump) Error() string { return "signal " + j.label }

// loopJump is a LEAVE or ITERATE leaving an INTERPRET string.
type loopJump struct {
	name  string
	leave bool
}

func (l *loopJump) Error() string {
	if l.leave {
		return "leave " + l.name
	}
	return "iterate " + l.name
}

// returnRequest ends the current routine.
type returnRequest struct {
	value string
	has   bool
}

func (r *returnRequest) Error() string { return "return" }

// exitRequest ends the current program.
type exitRequest struct {
	value string
	has   bool
}

func (e *exitRequest) Error() string { return "exit" }

// fatal ends every program of the session after the error was reported.
type fatal struct {
	code int
}

func (f *fatal) Error() string { return fmt.Sprintf("fatal error %d", f.code) }

// Run executes a program in a fresh context.
func (s *Session) Run(ctx context.Context, inv Invocation) (Outcome, error) {
	if inv.Prog == nil {
		return Outcome{RC: 3}, errors.New("no program to run")
	}
	c := s.newContext(ctx, nil, inv)
	return c.execute(inv.Args)
}

func (s *Session) newContext(ctx context.Context, parent *Context, inv Invocation) *Context {
	env := inv.Env
	if env == "" {
		env = s.opts.DefaultEnv
	}
	c := &Context{
		s:        s,
		ctx:      ctx,
		parent:   parent,
		prog:     inv.Prog,
		path:     inv.Path,
		callType: inv.CallType,
		quiet:    inv.Quiet,
		vars:     variables.New(),
		frames:   frames.New(),
		calc:     calc.New(),
		conds:    condition.NewStack(),
	}
	c.state.Numeric = numeric.Default()
	if s.opts.Digits > 0 {
		c.state.Numeric.Digits = s.opts.Digits
	}
	if inv.Numeric != nil {
		c.state.Numeric = *inv.Numeric
	}
	c.state.Trace = trace.Default()
	if s.opts.Trace != "" {
		if t, err := trace.Parse(c.state.Trace, s.opts.Trace); err == nil {
			c.state.Trace = t
		}
	}
	c.state.Address = env
	c.state.Previous = env
	c.state.Args = inv.Args
	if c.path == "" {
		c.path = inv.Prog.Name
	}
	return c
}

// execute runs the program from its first clause and converts the control
// transfers that reach the top into an outcome.
func (c *Context) execute(args []Arg) (Outcome, error) {
	c.state.Args = args
	prev := c.s.active
	c.s.active = c
	defer func() { c.s.active = prev }()

	top := c.parent == nil
	if top && !c.quiet {
		c.callExit(ExitINI, ExitRequest{Event: EventInit})
	}
	c.s.log.Debug("program started",
		slog.String("name", c.prog.Name),
		slog.String("type", c.callType.String()))

	value, has, err := c.run(c.prog, 0, routineMode)
	out := Outcome{Result: value, HasResult: has}
	if err != nil {
		var ex *exitRequest
		var f *fatal
		switch {
		case errors.As(err, &ex):
			out.Result, out.HasResult = ex.value, ex.has
			err = nil
		case errors.As(err, &f):
			out = Outcome{RC: -f.code}
			if top {
				err = nil
			}
		}
	}
	if top && !c.quiet {
		c.callExit(ExitTER, ExitRequest{Event: EventTerm})
	}
	c.s.log.Debug("program ended",
		slog.String("name", c.prog.Name),
		slog.Int("rc", out.RC))
	return out, err
}

// Code returns the numeric value of a result when it is a whole number,
// for use as a process exit status.
func (o Outcome) Code() (int, bool) {
	if !o.HasResult {
		return 0, false
	}
	n, err := strconv.Atoi(o.Result)
	if err != nil {
		n, err = numeric.Default().WholeNumber(o.Result)
		if err != nil {
			return 0, false
		}
	}
	return n, true
}

// Vars returns the variable store of the context.
func (c *Context) Vars() *variables.Store { return c.vars }

// Numeric returns the current NUMERIC settings.
func (c *Context) Numeric() numeric.Settings { return c.state.Numeric }

func (c *Context) release(f frames.Frame) {
	switch f.Kind {
	case frames.Checkpoint:
		c.calc.Truncate(f.Checkpoint.CalcDepth)
	}
}
