package interp

import (
	"log/slog"
	"strings"

	"rexx/internal/condition"
	"rexx/internal/environments"
	"rexx/internal/numeric"
	"rexx/internal/token"
	"rexx/internal/trace"
)

// address executes the ADDRESS instruction.
func (c *Context) address(toks []token.Code) error {
	switch t := at(toks, 1); {
	case t == eof:
		c.state.Address, c.state.Previous = c.state.Previous, c.state.Address
		return nil
	case t == token.VALUE, t == '(':
		from := 2
		if t == '(' {
			from = 1
		}
		v, err := c.expression(toks[from:])
		if err != nil {
			return err
		}
		c.setAddress(v)
		return nil
	}
	env, _, i, err := nameAt(toks, 1)
	if err != nil {
		return err
	}
	i = skipBlank(toks, i)
	if i >= len(toks) {
		c.setAddress(env)
		return nil
	}
	cmd, err := c.expression(toks[i:])
	if err != nil {
		return err
	}
	return c.command(env, cmd)
}

func (c *Context) setAddress(env string) {
	c.state.Previous = c.state.Address
	c.state.Address = env
}

// command sends cmd to environment env, sets RC and raises ERROR or
// FAILURE when the command reports one.
func (c *Context) command(env, cmd string) error {
	set := c.state.Trace
	if set.Commands() && !c.traceSkip {
		if !set.Clauses() {
			c.traceLine(trace.Clause(c.cur.line(), c.cur.prog.Text(c.cur.stmt)))
		}
		if !set.Results() {
			c.traceLine(trace.Value(trace.Result, cmd))
		}
	}
	if set.Inhibit {
		c.setVar("RC", "0")
		return nil
	}

	reply := c.runCommand(env, cmd)
	c.setVar("RC", reply.RC)
	c.s.log.Debug("command",
		slog.String("env", env),
		slog.String("rc", reply.RC),
		slog.String("status", reply.Status.String()))

	var k condition.Kind
	show := false
	switch reply.Status {
	case environments.OK:
		return nil
	case environments.Error:
		k, show = condition.ErrorCondition, set.CommandErrors()
	case environments.Failure:
		k, show = condition.Failure, set.CommandFailures()
	}
	if show {
		if !set.Commands() && !c.traceSkip {
			c.traceLine(trace.Clause(c.cur.line(), c.cur.prog.Text(c.cur.stmt)))
		}
		c.traceLine(trace.Message("RC(" + reply.RC + ")"))
	}
	return c.raise(k, cmd, reply.RC, true, nil)
}

func (c *Context) runCommand(env, cmd string) environments.Reply {
	if r := c.callExit(ExitCMD, ExitRequest{Event: EventCommand, Text: cmd, Env: env}); r.Handled {
		rc := r.RC
		if rc == "" {
			rc = "0"
		}
		return environments.Reply{RC: rc, Status: r.Status}
	}
	h, ok := c.s.envs.Lookup(env)
	if !ok {
		return environments.Reply{RC: "-3", Status: environments.Failure}
	}
	return h.Handle(c.ctx, environments.Request{Env: strings.ToUpper(env), Command: cmd, Vars: pool{c}})
}

// pool gives environments access to the variables of the running program
// by their derived names.
type pool struct{ c *Context }

func (p pool) Get(name string) (string, bool) {
	return p.c.vars.Get(strings.ToUpper(name))
}

func (p pool) Set(name, value string) error {
	p.c.vars.Set(strings.ToUpper(name), value)
	return nil
}

func (p pool) Drop(name string) error {
	p.c.vars.Drop(strings.ToUpper(name))
	return nil
}

// numericClause executes NUMERIC DIGITS, FUZZ and FORM.
func (c *Context) numericClause(toks []token.Code) error {
	set := c.state.Numeric
	var rest []token.Code
	if len(toks) > 2 {
		rest = toks[2:]
	}
	switch at(toks, 1) {
	case token.DIGITS:
		n := numeric.DefaultDigits
		if len(rest) > 0 {
			var err error
			if n, err = c.wholeNumber(rest, "DIGITS"); err != nil {
				return err
			}
		}
		if n < 1 || n <= set.Fuzz {
			return condition.Errorf(33, "DIGITS %d must be positive and greater than FUZZ %d", n, set.Fuzz)
		}
		set.Digits = n
	case token.FUZZ:
		n := 0
		if len(rest) > 0 {
			var err error
			if n, err = c.wholeNumber(rest, "FUZZ"); err != nil {
				return err
			}
		}
		if n < 0 || n >= set.Digits {
			return condition.Errorf(33, "FUZZ %d must be at least 0 and less than DIGITS %d", n, set.Digits)
		}
		set.Fuzz = n
	case token.FORM:
		form := ""
		switch at(rest, 0) {
		case eof, token.SCIENTIFIC:
			form = "SCIENTIFIC"
		case token.ENGINEERING:
			form = "ENGINEERING"
		case token.VALUE:
			v, err := c.expression(rest[1:])
			if err != nil {
				return err
			}
			form = v
		default:
			v, err := c.expression(rest)
			if err != nil {
				return err
			}
			form = v
		}
		switch form {
		case "SCIENTIFIC":
			set.Form = numeric.Scientific
		case "ENGINEERING":
			set.Form = numeric.Engineering
		default:
			return condition.Errorf(33, "FORM \"%s\" is not SCIENTIFIC or ENGINEERING", form)
		}
	default:
		return condition.Errorf(25, "NUMERIC %s is not valid", at(toks, 1))
	}
	c.state.Numeric = set
	return nil
}
