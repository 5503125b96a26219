package interp

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rexx/internal/condition"
	"rexx/internal/frames"
	"rexx/internal/lexer"
	"rexx/internal/token"
)

type runMode int

const (
	routineMode   runMode = iota // a program or internal routine
	interpretMode                // an INTERPRET string or interactive trace input
)

// run executes prog from statement pc until it ends or a control transfer
// leaves it. A routine-level run catches the SIGNALs aimed at its condition
// level and the RETURN that ends it.
func (c *Context) run(prog *lexer.Program, pc int, mode runMode) (string, bool, error) {
	base := c.frames.Len()
	level := c.conds.Depth()
	for pc < len(prog.Stmts) {
		next, err := c.step(prog, pc, base)
		for err != nil {
			switch e := err.(type) {
			case *jump:
				if mode != routineMode || e.owner != c || e.level != level {
					return "", false, err
				}
				c.frames.Truncate(base, c.release)
				next, err = c.land(e)
			case *returnRequest:
				if mode != routineMode {
					return "", false, err
				}
				c.frames.Truncate(base, c.release)
				return e.value, e.has, nil
			case *loopJump:
				i, ok := c.frames.FindLoop(base, e.name)
				switch {
				case ok:
					next, err = c.leaveOrIterate(i, e.leave)
				case mode == interpretMode:
					return "", false, err
				default:
					err = c.syntax(condition.Errorf(28, "no active loop %s", e.name))
				}
			case *exitRequest, *fatal:
				return "", false, err
			default:
				err = c.syntax(err)
			}
		}
		pc = next
	}
	if mode == routineMode {
		c.frames.Truncate(base, c.release)
	}
	return "", false, nil
}

// land completes a SIGNAL once the stack has been unwound to its level.
func (c *Context) land(j *jump) (int, error) {
	c.setVar("SIGL", fmt.Sprint(j.sigl))
	if j.hasRC {
		c.setVar("RC", j.rc)
	}
	c.traceLabel(j.label, j.target)
	c.s.log.Debug("signal", slog.String("label", j.label), slog.Int("line", j.sigl))
	return j.target, nil
}

// step executes one clause and returns the index of the next one.
func (c *Context) step(prog *lexer.Program, pc, base int) (int, error) {
	st := &prog.Stmts[pc]
	c.cur = position{prog, pc}
	c.now = time.Time{}
	if err := c.clauseBoundary(); err != nil {
		return pc, err
	}
	kw := st.Keyword()
	if kw != token.PROCEDURE {
		c.procOK = false
	}
	traced := c.traceClause(prog, pc)
	next, err := c.exec(prog, pc, base, st, kw)
	if err == nil && traced && c.state.Trace.Interactive && !c.traceSkip {
		again, err := c.pause()
		if err != nil {
			return next, err
		}
		if again {
			return pc, nil
		}
	}
	return next, err
}

func (c *Context) exec(prog *lexer.Program, pc, base int, st *lexer.Statement, kw token.Code) (int, error) {
	toks := st.Tokens
	switch kw {
	case 0:
		return pc + 1, c.assignOrCommand(toks)
	case token.NOP:
		return pc + 1, nil
	case token.SAY:
		v := ""
		if len(toks) > 1 {
			var err error
			if v, err = c.expression(toks[1:]); err != nil {
				return pc, err
			}
		}
		c.say(v)
		return pc + 1, nil
	case token.IF:
		return c.ifClause(prog, pc, toks)
	case token.THEN:
		return pc, condition.Errorf(8, "THEN has no IF or WHEN")
	case token.ELSE:
		return skipUnit(prog, pc+1), nil
	case token.DO:
		return c.doClause(prog, pc, toks)
	case token.END:
		return c.endClause(prog, pc, base, toks)
	case token.SELECT:
		return c.selectClause(prog, pc, toks)
	case token.WHEN, token.OTHERWISE:
		// reached after the chosen branch ran
		if c.frames.Len() > base {
			if top := c.frames.Top(); top.Kind == frames.Select && top.Select.Start < pc && pc < top.Select.End {
				return top.Select.End, nil
			}
		}
		return pc, condition.Errorf(9, "%s has no SELECT", kw)
	case token.ITERATE, token.LEAVE:
		return c.loopControl(pc, base, toks, kw == token.LEAVE)
	case token.CALL:
		return pc + 1, c.callClause(toks)
	case token.SIGNAL:
		return pc + 1, c.signalClause(toks)
	case token.RETURN, token.EXIT:
		r := returnRequest{}
		if len(toks) > 1 {
			v, err := c.expression(toks[1:])
			if err != nil {
				return pc, err
			}
			r.value, r.has = v, true
		}
		if kw == token.EXIT {
			return pc, &exitRequest{value: r.value, has: r.has}
		}
		return pc, &r
	case token.INTERPRET:
		v, err := c.expression(toks[1:])
		if err != nil {
			return pc, err
		}
		return pc + 1, c.interpret(v)
	case token.PROCEDURE:
		return pc + 1, c.procedure(toks)
	case token.PARSE, token.ARG, token.PULL:
		return pc + 1, c.parseClause(toks)
	case token.PUSH, token.QUEUE:
		v := ""
		if len(toks) > 1 {
			var err error
			if v, err = c.expression(toks[1:]); err != nil {
				return pc, err
			}
		}
		if kw == token.PUSH {
			c.s.queue.Push(v)
		} else {
			c.s.queue.Append(v)
		}
		return pc + 1, nil
	case token.DROP:
		return pc + 1, c.drop(toks[1:])
	case token.ADDRESS:
		return pc + 1, c.address(toks)
	case token.NUMERIC:
		return pc + 1, c.numericClause(toks)
	case token.TRACE:
		return pc + 1, c.traceClauseSetting(toks)
	case token.OPTIONS:
		v, err := c.expression(toks[1:])
		if err != nil {
			return pc, err
		}
		c.s.log.Debug("options ignored", slog.String("options", v))
		return pc + 1, nil
	}
	return pc, condition.Errorf(35, "unexpected %s", kw)
}

// assignOrCommand handles a clause that starts with no keyword: an
// assignment when a symbol is followed by "=", otherwise a command for the
// current environment.
func (c *Context) assignOrCommand(toks []token.Code) error {
	if name, n := symbolAt(toks); n > 0 && at(toks, n) == '=' {
		if isConstant(name) {
			return condition.Errorf(31, "cannot assign to \"%s\"", name)
		}
		v := ""
		if n+1 < len(toks) {
			var err error
			if v, err = c.expression(toks[n+1:]); err != nil {
				return err
			}
		}
		c.vars.Set(c.vars.Resolve(name), v)
		return nil
	}
	cmd, err := c.expression(toks)
	if err != nil {
		return err
	}
	return c.command(c.state.Address, cmd)
}

// skipUnit returns the index of the clause after the instruction starting
// at i, which may be a whole DO or SELECT block or a nested IF.
func skipUnit(prog *lexer.Program, i int) int {
	if i >= len(prog.Stmts) {
		return i
	}
	st := &prog.Stmts[i]
	switch st.Keyword() {
	case token.DO, token.SELECT:
		if st.Related > i {
			return st.Related + 1
		}
	case token.IF, token.WHEN:
		j := i + 1
		if j < len(prog.Stmts) && prog.Stmts[j].Keyword() == token.THEN {
			j = skipUnit(prog, j+1)
		}
		if st.Keyword() == token.IF && j < len(prog.Stmts) && prog.Stmts[j].Keyword() == token.ELSE {
			j = skipUnit(prog, j+1)
		}
		return j
	}
	return i + 1
}

func keywordAt(prog *lexer.Program, i int) token.Code {
	if i >= len(prog.Stmts) {
		return 0
	}
	return prog.Stmts[i].Keyword()
}

func (c *Context) ifClause(prog *lexer.Program, pc int, toks []token.Code) (int, error) {
	ok, err := c.truth(toks[1:])
	if err != nil {
		return pc, err
	}
	if keywordAt(prog, pc+1) != token.THEN {
		return pc, condition.Errorf(18, "THEN expected")
	}
	if ok {
		return pc + 2, nil
	}
	next := skipUnit(prog, pc+2)
	if keywordAt(prog, next) == token.ELSE {
		return next + 1, nil
	}
	return next, nil
}

func (c *Context) selectClause(prog *lexer.Program, pc int, toks []token.Code) (int, error) {
	f := &frames.SelectFrame{Start: pc, End: prog.Stmts[pc].Related}
	if len(toks) > 1 {
		v, err := c.expression(toks[1:])
		if err != nil {
			return pc, err
		}
		f.Value, f.HasValue = v, true
	}
	if _, err := c.frames.Push(frames.Frame{Kind: frames.Select, PC: pc, Select: f}); err != nil {
		return pc, err
	}
	for i := pc + 1; i < f.End; {
		st := &prog.Stmts[i]
		switch st.Keyword() {
		case token.WHEN:
			c.cur = position{prog, i}
			c.traceClause(prog, i)
			ok, err := c.when(f, st.Tokens[1:])
			if err != nil {
				return i, err
			}
			if keywordAt(prog, i+1) != token.THEN {
				return i, condition.Errorf(18, "THEN expected")
			}
			if ok {
				return i + 2, nil
			}
			i = skipUnit(prog, i+2)
		case token.OTHERWISE:
			return i + 1, nil
		default:
			return i, condition.Errorf(7, "found \"%s\"", prog.Text(i))
		}
	}
	return f.End, condition.Errorf(7, "no WHEN matched and OTHERWISE is missing")
}

func (c *Context) when(f *frames.SelectFrame, toks []token.Code) (bool, error) {
	if !f.HasValue {
		return c.truth(toks)
	}
	v, err := c.expression(toks)
	if err != nil {
		return false, err
	}
	cmp, err := compareValues(f.Value, v, c.state.Numeric)
	return cmp == 0, err
}

func (c *Context) say(v string) {
	if r := c.callExit(ExitSIO, ExitRequest{Event: EventSay, Text: v}); r.Handled {
		return
	}
	fmt.Fprintln(c.s.stdout, v)
}

// interpret executes src as if it replaced the current clause.
func (c *Context) interpret(src string) error {
	prog, err := lexer.Tokenize("INTERPRET", []byte(src), lexer.Options{KeepFirstLine: true})
	if err != nil {
		return err
	}
	cur := c.cur
	h, err := c.frames.Push(frames.Frame{
		Kind:      frames.Interpret,
		PC:        cur.stmt,
		Interpret: &frames.InterpretFrame{Prog: cur.prog, Stmt: cur.stmt},
	})
	if err != nil {
		return err
	}
	defer func() {
		c.frames.Truncate(h, c.release)
		c.cur = cur
	}()
	_, _, err = c.run(prog, 0, interpretMode)
	return err
}

func (c *Context) setVar(name, value string) { c.vars.Set(name, value) }

func (c *Context) drop(toks []token.Code) error {
	return c.eachName(toks, false, func(name string) {
		c.vars.Drop(c.vars.Resolve(name))
	})
}

// eachName calls fn for the symbols of DROP and PROCEDURE EXPOSE in order.
// A symbol in parentheses contributes the words of its value, read after fn
// has seen the symbol itself when withRef is set.
func (c *Context) eachName(toks []token.Code, withRef bool, fn func(name string)) error {
	for i := 0; i < len(toks); {
		switch t := toks[i]; {
		case t == ' ':
			i++
		case t == '(':
			name, n := symbolAt(toks[i+1:])
			if n == 0 || isConstant(name) || at(toks, i+1+n) != ')' {
				return condition.Errorf(20, "symbol expected in parentheses")
			}
			i += n + 2
			if withRef {
				fn(name)
			}
			v, _ := c.vars.Fetch(name)
			for _, w := range strings.Fields(v) {
				fn(strings.ToUpper(w))
			}
		case isSymbolTok(t):
			name, n := symbolAt(toks[i:])
			if isConstant(name) {
				return condition.Errorf(20, "\"%s\" is not a variable", name)
			}
			fn(name)
			i += n
		default:
			return condition.Errorf(20, "symbol expected")
		}
	}
	return nil
}
