package interp

import (
	"context"
	"errors"

	"rexx/internal/lexer"
)

// Shell runs source one line at a time in a single context, so variables
// and settings carry over from line to line.
type Shell struct {
	c *Context
}

// NewShell returns a shell whose commands go to env, or the session
// default when env is empty.
func (s *Session) NewShell(ctx context.Context, env string) *Shell {
	prog := &lexer.Program{Name: "STDIN"}
	c := s.newContext(ctx, nil, Invocation{Prog: prog, Env: env})
	return &Shell{c: c}
}

// Context returns the context lines run in.
func (sh *Shell) Context() *Context { return sh.c }

// Line runs src. done reports that it executed EXIT, whose value is in
// the outcome. Errors in src are reported on the trace output and set RC
// in the outcome; they do not end the shell.
func (sh *Shell) Line(src string) (out Outcome, done bool, err error) {
	c := sh.c
	prev := c.s.active
	c.s.active = c
	defer func() { c.s.active = prev }()

	frameDepth, varDepth := c.frames.Len(), c.vars.Depth()
	condDepth, calcDepth := c.conds.Depth(), c.calc.Len()

	prog, err := lexer.Tokenize(c.prog.Name, []byte(src), lexer.Options{KeepFirstLine: true})
	if err == nil {
		c.prog = prog
		c.cur = position{prog: prog}
		out.Result, out.HasResult, err = c.run(prog, 0, routineMode)
	} else {
		c.cur = position{prog: &lexer.Program{Name: c.prog.Name}}
		err = c.syntax(err)
	}
	if err == nil {
		return out, false, nil
	}

	var ex *exitRequest
	var f *fatal
	switch {
	case errors.As(err, &ex):
		return Outcome{Result: ex.value, HasResult: ex.has}, true, nil
	case errors.As(err, &f):
		c.frames.Truncate(frameDepth, c.release)
		c.vars.Truncate(varDepth)
		c.conds.Truncate(condDepth)
		c.calc.Truncate(calcDepth)
		c.deferred = nil
		return Outcome{RC: -f.code}, false, nil
	}
	return out, false, err
}
