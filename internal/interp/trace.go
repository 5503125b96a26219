package interp

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"rexx/internal/condition"
	"rexx/internal/frames"
	"rexx/internal/lexer"
	"rexx/internal/token"
	"rexx/internal/trace"
)

// traceLine writes one line of trace output.
func (c *Context) traceLine(s string) {
	if r := c.callExit(ExitSIO, ExitRequest{Event: EventTraceOutput, Text: s}); r.Handled {
		return
	}
	fmt.Fprintln(c.s.stderr, s)
}

// traceClause traces clause pc when clause tracing is on and reports
// whether it did.
func (c *Context) traceClause(prog *lexer.Program, pc int) bool {
	if !c.state.Trace.Clauses() || c.traceSkip {
		return false
	}
	c.traceLine(trace.Clause(prog.Stmts[pc].Line, prog.Text(pc)))
	return true
}

// traceLabel traces the label a call or SIGNAL arrived at.
func (c *Context) traceLabel(label string, target int) {
	if !c.state.Trace.Labels() || c.traceSkip {
		return
	}
	line := 0
	if target < len(c.prog.Stmts) {
		line = c.prog.Stmts[target].Line
	}
	c.traceLine(trace.Clause(line, label+":"))
}

// traceClauseSetting executes the TRACE instruction.
func (c *Context) traceClauseSetting(toks []token.Code) error {
	var v string
	switch t := at(toks, 1); {
	case t == eof:
		v = "N"
	case t == token.VALUE:
		var err error
		if v, err = c.expression(toks[2:]); err != nil {
			return err
		}
	case isQuote(t):
		s, n, err := literal(toks[1:])
		if err != nil {
			return err
		}
		if 1+n < len(toks) {
			return unexpected(toks[1+n])
		}
		v = s
	default:
		v = token.String(toks[1:])
	}
	v = strings.TrimSpace(v)
	if v != "" && (v[0] == '-' || v[0] == '+' || (v[0] >= '0' && v[0] <= '9')) {
		// interactive skip counts are accepted and ignored
		return nil
	}
	set, err := trace.Parse(c.state.Trace, v)
	if err != nil {
		return condition.Errorf(24, "TRACE request \"%s\" is not valid", v)
	}
	c.state.Trace = set
	return nil
}

// setTrace changes the trace setting as the TRACE builtin does.
func (c *Context) setTrace(v string) error {
	set, err := trace.Parse(c.state.Trace, v)
	if err != nil {
		return condition.Errorf(40, "TRACE option \"%s\" is not valid", v)
	}
	c.state.Trace = set
	return nil
}

// pause reads interactive trace input after a traced clause. Each line
// read is interpreted until an empty line continues the program; "="
// executes the clause again.
func (c *Context) pause() (bool, error) {
	h, err := c.frames.Push(frames.Frame{
		Kind:       frames.Checkpoint,
		PC:         c.cur.stmt,
		Checkpoint: &frames.CheckpointFrame{CalcDepth: c.calc.Len(), Stmt: c.cur.stmt},
	})
	if err != nil {
		return false, err
	}
	cur := c.cur
	c.traceSkip = true
	defer func() {
		c.traceSkip = false
		c.frames.Truncate(h, c.release)
		c.cur = cur
	}()
	for {
		line, err := c.traceInput()
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.state.Trace.Interactive = false
				return false, nil
			}
			return false, err
		}
		switch strings.TrimSpace(line) {
		case "":
			return false, nil
		case "=":
			return true, nil
		}
		if err := c.interpret(line); err != nil {
			var j *jump
			var r *returnRequest
			var x *exitRequest
			var f *fatal
			if errors.As(err, &j) || errors.As(err, &r) || errors.As(err, &x) || errors.As(err, &f) {
				return false, err
			}
			// an error in the input line is reported and input continues
			c.traceLine(trace.Message(err.Error()))
		}
		if !c.state.Trace.Interactive {
			return false, nil
		}
	}
}

func (c *Context) traceInput() (string, error) {
	if r := c.callExit(ExitSIO, ExitRequest{Event: EventTraceInput}); r.Handled {
		return r.Text, nil
	}
	if c.s.opts.TraceInput != nil {
		return c.s.opts.TraceInput("")
	}
	line, err := c.s.streams.Stdin().ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
