package interp

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"rexx/internal/calc"
	"rexx/internal/condition"
	"rexx/internal/frames"
	"rexx/internal/lexer"
	"rexx/internal/numeric"
)

// asCondition maps any error raised while executing a clause to the
// numbered REXX error it stands for.
func asCondition(err error) *condition.Error {
	var ce *condition.Error
	if errors.As(err, &ce) {
		return ce
	}
	var le *lexer.Error
	if errors.As(err, &le) {
		return &condition.Error{Code: le.Code(), Detail: le.Detail, Line: le.Line}
	}
	switch {
	case errors.Is(err, numeric.ErrNotNumber):
		return condition.Errorf(41, "%v", err)
	case errors.Is(err, numeric.ErrOverflow), errors.Is(err, numeric.ErrDivideZero):
		return condition.Errorf(42, "%v", err)
	case errors.Is(err, numeric.ErrWholeNumber), errors.Is(err, numeric.ErrTooLarge):
		return condition.Errorf(26, "%v", err)
	case errors.Is(err, calc.ErrLogical):
		return condition.Errorf(34, "%v", err)
	case errors.Is(err, frames.ErrFull):
		return condition.Errorf(11, "%v", err)
	}
	return condition.Errorf(49, "%v", err)
}

// syntax raises SYNTAX for err. The result is always a control transfer:
// a jump to the trap or the end of every program.
func (c *Context) syntax(err error) error {
	e := asCondition(err)
	if e.Line == 0 {
		e.Line = c.line()
	}
	desc := e.Detail
	if desc == "" {
		desc = condition.Message(e.Code)
	}
	return c.raise(condition.Syntax, desc, strconv.Itoa(e.Code), true, e)
}

// raise signals condition k. It returns the control transfer to perform,
// or nil when the condition is ignored or queued for a CALL ON handler.
// The traps of the programs that called this one are searched after its
// own, so a trap set by a caller catches conditions of external routines.
func (c *Context) raise(k condition.Kind, desc, rc string, hasRC bool, e *condition.Error) error {
	x, lvl, k, ok := c.trapFor(k)
	if !ok {
		switch k {
		case condition.Syntax:
			c.traceback(e)
			return &fatal{code: e.Code}
		case condition.Halt:
			c.traceback(condition.Errorf(4, "%s", desc))
			return &fatal{code: 4}
		}
		return nil
	}
	trap := &lvl.Traps[k]
	c.s.log.Debug("condition raised",
		slog.String("condition", k.String()),
		slog.String("mode", trap.Mode.String()),
		slog.String("label", trap.Label))

	if trap.Mode == condition.CallMode {
		switch {
		case k == condition.Halt && (trap.Delayed || hasPending(lvl, k)):
			c.s.log.Warn("halt repeated while trapped, stopping", slog.String("program", c.prog.Name))
			c.traceback(condition.Errorf(4, "%s", desc))
			return &fatal{code: 4}
		case !trap.Delayed:
			lvl.Pending = append(lvl.Pending, condition.Pending{Kind: k, Description: desc, Line: x.line(), RC: rc})
		}
		return nil
	}

	label := trap.Label
	target, found := x.target(trap)
	lvl.Disarm(k)
	lvl.Info = &condition.Info{Kind: k, Mode: condition.SignalMode, Description: desc, Status: "OFF"}
	if !found {
		if k.Fatal() {
			return c.syntax(condition.Errorf(16, "label \"%s\" not found", label))
		}
		c.s.log.Debug("trap label not found, condition ignored",
			slog.String("condition", k.String()),
			slog.String("label", label))
		return nil
	}
	return &jump{owner: x, level: lvl.Depth, label: label, target: target, sigl: x.line(), rc: rc, hasRC: hasRC}
}

// trapFor finds the level trapping k, walking out from c through the
// programs that called it. An ERROR trap also catches FAILURE.
func (c *Context) trapFor(k condition.Kind) (*Context, *condition.Level, condition.Kind, bool) {
	for x := c; x != nil; x = x.parent {
		if lvl, ok := x.conds.Find(k); ok {
			return x, lvl, k, true
		}
		if k == condition.Failure {
			if lvl, ok := x.conds.Find(condition.ErrorCondition); ok {
				return x, lvl, condition.ErrorCondition, true
			}
		}
		if x.conds.Blocked(k) {
			break
		}
	}
	return nil, nil, k, false
}

// target returns the statement the trap transfers to. The label is looked
// up once and the answer kept in the trap.
func (c *Context) target(t *condition.Trap) (int, bool) {
	if t.Target == condition.Unresolved {
		t.Target = condition.Missing
		if pc, ok := c.prog.FindLabel(t.Label); ok {
			t.Target = pc
		}
	}
	return t.Target, t.Target != condition.Missing
}

func hasPending(lvl *condition.Level, k condition.Kind) bool {
	for _, p := range lvl.Pending {
		if p.Kind == k {
			return true
		}
	}
	return false
}

// clauseBoundary runs before every clause: it polls for a halt request and
// calls the handlers of pending CALL ON conditions.
func (c *Context) clauseBoundary() error {
	if err := c.pollHalt(); err != nil {
		return err
	}
	return c.servicePending()
}

func (c *Context) pollHalt() error {
	reason, count := "", 0
	if c.s.opts.Halter != nil {
		reason, count = c.s.opts.Halter.Take()
	}
	if c.s.exits[ExitHLT] != nil {
		if r := c.callExit(ExitHLT, ExitRequest{Event: EventHaltTest}); r.Handled && r.Halt {
			count++
			if reason == "" {
				reason = "halt requested by exit"
			}
		}
	}
	if err := c.ctx.Err(); err != nil {
		// a cancelled context is raised once, then ends the program
		if done := c.ctx.Done(); c.s.cancelled == done {
			count = max(count, 1) + 1
		} else {
			c.s.cancelled = done
			count++
		}
		if reason == "" {
			reason = err.Error()
		}
	}
	if count == 0 {
		return nil
	}
	if count > 1 {
		c.s.log.Warn("repeated halt request, stopping", slog.String("program", c.prog.Name))
		c.traceback(condition.Errorf(4, "%s", reason))
		return &fatal{code: 4}
	}
	return c.raise(condition.Halt, reason, "", false, nil)
}

func (c *Context) servicePending() error {
	lvl := c.conds.Current()
	for len(lvl.Pending) > 0 {
		p := lvl.Pending[0]
		lvl.Pending = lvl.Pending[1:]
		trap := &lvl.Traps[p.Kind]
		if !lvl.IsArmed(p.Kind) || trap.Mode != condition.CallMode {
			continue
		}
		target, ok := c.target(trap)
		if !ok {
			if p.Kind.Fatal() {
				return condition.Errorf(16, "label \"%s\" not found", trap.Label)
			}
			continue
		}
		saved := lvl.Info
		lvl.Info = &condition.Info{Kind: p.Kind, Mode: condition.CallMode, Description: p.Description, Status: "DELAY"}
		trap.Delayed = true
		_, _, err := c.callInternal(trap.Label, target, nil, false, true, p.Line)
		lvl.Traps[p.Kind].Delayed = false
		lvl.Info = saved
		if err != nil {
			return err
		}
	}
	return nil
}

// line returns the line of the current clause in the program itself,
// looking through INTERPRET strings to the clause that ran them.
func (c *Context) line() int {
	if c.cur.prog == c.prog {
		return c.cur.line()
	}
	for i := c.frames.Len() - 1; i >= 0; i-- {
		f := c.frames.At(i)
		if f.Kind == frames.Interpret && f.Interpret.Prog == c.prog {
			return position{f.Interpret.Prog, f.Interpret.Stmt}.line()
		}
	}
	return c.cur.line()
}

// traceback reports an error that ends the program: the failing clause,
// every clause that led to it, and the error message.
func (c *Context) traceback(e *condition.Error) {
	c.traceLine(fmt.Sprintf("%6d +++ %s", c.cur.line(), c.cur.prog.Text(c.cur.stmt)))
	for x := c; x != nil; x = x.parent {
		for i := x.frames.Len() - 1; i >= 0; i-- {
			var p position
			switch f := x.frames.At(i); f.Kind {
			case frames.Call:
				p = position{f.Call.Prog, f.Call.Stmt}
			case frames.Interpret:
				p = position{f.Interpret.Prog, f.Interpret.Stmt}
			case frames.Traceback:
				p = position{f.Traceback.Prog, f.Traceback.Stmt}
			default:
				continue
			}
			c.traceLine(fmt.Sprintf("%6d +++ %s", p.line(), p.prog.Text(p.stmt)))
		}
	}
	line := e.Line
	if line == 0 {
		line = c.line()
	}
	c.traceLine(fmt.Sprintf("Error %d running \"%s\", line %d: %s", e.Code, c.path, line, condition.Message(e.Code)))
	if e.Detail != "" {
		c.traceLine(fmt.Sprintf("Error %d: %s", e.Code, e.Detail))
	}
	c.s.log.Debug("program failed",
		slog.String("program", c.path),
		slog.Int("error", e.Code),
		slog.Int("line", line))
}
