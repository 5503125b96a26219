package interp

import (
	"errors"
	"strings"

	"rexx/internal/calc"
	"rexx/internal/condition"
	"rexx/internal/frames"
	"rexx/internal/lexer"
	"rexx/internal/numeric"
	"rexx/internal/token"
)

type segment struct {
	kw   token.Code
	toks []token.Code
}

// segments splits a DO clause at its sub-keywords.
func segments(toks []token.Code) []segment {
	var segs []segment
	cur := segment{}
	for _, t := range toks {
		switch t {
		case token.TO, token.BY, token.FOR, token.FOREVER, token.WHILE, token.UNTIL:
			if cur.kw != 0 || len(cur.toks) > 0 {
				segs = append(segs, cur)
			}
			cur = segment{kw: t}
			continue
		}
		cur.toks = append(cur.toks, t)
	}
	if cur.kw != 0 || len(cur.toks) > 0 {
		segs = append(segs, cur)
	}
	return segs
}

func (c *Context) number(toks []token.Code, what string) (string, error) {
	v, err := c.expression(toks)
	if err != nil {
		return "", err
	}
	n, err := c.state.Numeric.Normalize(v)
	if err != nil {
		return "", condition.Errorf(41, "%s value \"%s\" is not a number", what, v)
	}
	return n, nil
}

func (c *Context) wholeNumber(toks []token.Code, what string) (int, error) {
	v, err := c.expression(toks)
	if err != nil {
		return 0, err
	}
	n, err := c.state.Numeric.WholeNumber(v)
	if err != nil {
		return 0, condition.Errorf(26, "%s value \"%s\" is not a whole number", what, v)
	}
	return n, nil
}

// doClause starts a DO block. Only repetitive blocks get a frame; the
// frame is not pushed when the loop runs zero times.
func (c *Context) doClause(prog *lexer.Program, pc int, toks []token.Code) (int, error) {
	end := prog.Stmts[pc].Related
	segs := segments(toks[1:])
	if len(segs) == 0 {
		return pc + 1, nil
	}
	l := &frames.LoopFrame{Start: pc, End: end}
	seen := map[token.Code]bool{}
	for i, seg := range segs {
		if seen[seg.kw] {
			return pc, condition.Errorf(27, "%s given twice", seg.kw)
		}
		seen[seg.kw] = true
		switch seg.kw {
		case 0:
			if i != 0 {
				return pc, condition.Errorf(27, "unexpected expression")
			}
			if name, n := symbolAt(seg.toks); n > 0 && at(seg.toks, n) == '=' {
				if isConstant(name) {
					return pc, condition.Errorf(31, "cannot assign to \"%s\"", name)
				}
				start, err := c.number(seg.toks[n+1:], "initial")
				if err != nil {
					return pc, err
				}
				l.Var, l.Step = name, "1"
				c.vars.Set(c.vars.Resolve(name), start)
				continue
			}
			n, err := c.wholeNumber(seg.toks, "repetitor")
			if err != nil {
				return pc, err
			}
			if n < 0 {
				return pc, condition.Errorf(26, "repetitor must not be negative")
			}
			l.Count, l.HasCount = n, true
		case token.TO, token.BY, token.FOR:
			if l.Var == "" {
				return pc, condition.Errorf(27, "%s needs a control variable", seg.kw)
			}
			switch seg.kw {
			case token.TO:
				v, err := c.number(seg.toks, "TO")
				if err != nil {
					return pc, err
				}
				l.Limit, l.HasLimit = v, true
			case token.BY:
				v, err := c.number(seg.toks, "BY")
				if err != nil {
					return pc, err
				}
				l.Step = v
			case token.FOR:
				n, err := c.wholeNumber(seg.toks, "FOR")
				if err != nil {
					return pc, err
				}
				if n < 0 {
					return pc, condition.Errorf(26, "FOR value must not be negative")
				}
				l.Count, l.HasCount = n, true
			}
		case token.FOREVER:
			if i != 0 || len(seg.toks) > 0 {
				return pc, condition.Errorf(27, "FOREVER must stand alone")
			}
		case token.WHILE:
			if seen[token.UNTIL] {
				return pc, condition.Errorf(27, "WHILE and UNTIL together")
			}
			l.While = seg.toks
		case token.UNTIL:
			if seen[token.WHILE] {
				return pc, condition.Errorf(27, "WHILE and UNTIL together")
			}
			l.Until = seg.toks
		}
	}

	if l.HasLimit {
		done, err := c.beyondLimit(l, c.controlValue(l))
		if err != nil || done {
			return end + 1, err
		}
	}
	if l.HasCount && l.Count <= 0 {
		return end + 1, nil
	}
	if l.While != nil {
		ok, err := c.truth(l.While)
		if err != nil || !ok {
			return end + 1, err
		}
	}
	if _, err := c.frames.Push(frames.Frame{Kind: frames.Loop, PC: pc, Loop: l}); err != nil {
		return pc, err
	}
	return pc + 1, nil
}

func (c *Context) controlValue(l *frames.LoopFrame) string {
	v, _ := c.vars.Fetch(l.Var)
	return v
}

// beyondLimit reports whether v has passed the TO value in the direction
// of the step.
func (c *Context) beyondLimit(l *frames.LoopFrame, v string) (bool, error) {
	cmp, err := c.state.Numeric.Compare(v, l.Limit)
	if err != nil {
		return false, condition.Errorf(41, "control variable value \"%s\" is not a number", v)
	}
	if strings.HasPrefix(l.Step, "-") {
		return cmp < 0, nil
	}
	return cmp > 0, nil
}

// next runs the end-of-iteration steps in their defined order: UNTIL, the
// control variable step, TO, FOR and WHILE. It reports whether the loop is
// over.
func (c *Context) next(l *frames.LoopFrame) (bool, error) {
	if l.Until != nil {
		ok, err := c.truth(l.Until)
		if err != nil || ok {
			return true, err
		}
	}
	if l.Var != "" {
		name := c.vars.Resolve(l.Var)
		cur, ok := c.vars.Get(name)
		if !ok {
			if err := c.raise(condition.NoValue, name, "", false, nil); err != nil {
				return true, err
			}
		}
		v, err := c.state.Numeric.Arith(numeric.Add, cur, l.Step)
		if err != nil {
			return true, err
		}
		c.vars.Set(name, v)
		if l.HasLimit {
			done, err := c.beyondLimit(l, v)
			if err != nil || done {
				return true, err
			}
		}
	}
	if l.HasCount {
		l.Count--
		if l.Count <= 0 {
			return true, nil
		}
	}
	if l.While != nil {
		ok, err := c.truth(l.While)
		if err != nil || !ok {
			return true, err
		}
	}
	return false, nil
}

// iterate ends the current pass of loop frame i and returns where to go on.
func (c *Context) iterate(i int) (int, error) {
	l := c.frames.At(i).Loop
	done, err := c.next(l)
	if err != nil {
		return l.Start, err
	}
	if done {
		c.frames.Truncate(i, c.release)
		return l.End + 1, nil
	}
	return l.Start + 1, nil
}

func (c *Context) leaveOrIterate(i int, leave bool) (int, error) {
	l := c.frames.At(i).Loop
	if leave {
		c.frames.Truncate(i, c.release)
		return l.End + 1, nil
	}
	c.frames.Truncate(i+1, c.release)
	return c.iterate(i)
}

func (c *Context) endClause(prog *lexer.Program, pc, base int, toks []token.Code) (int, error) {
	open := prog.Stmts[pc].Related
	name, _ := symbolAt(toks[1:])
	if c.frames.Len() > base {
		top := c.frames.Top()
		switch {
		case top.Kind == frames.Loop && top.Loop.Start == open:
			if name != "" && name != top.Loop.Var {
				return pc, condition.Errorf(10, "END %s does not match DO %s", name, top.Loop.Var)
			}
			return c.iterate(c.frames.Len() - 1)
		case top.Kind == frames.Select && top.Select.Start == open:
			if name != "" {
				return pc, condition.Errorf(10, "END of SELECT must not name a variable")
			}
			c.frames.Pop()
		}
	}
	return pc + 1, nil
}

// loopControl executes LEAVE and ITERATE. Outside the loop's own clause
// list the request travels up as a loopJump.
func (c *Context) loopControl(pc, base int, toks []token.Code, leave bool) (int, error) {
	name, _ := symbolAt(toks[1:])
	i, ok := c.frames.FindLoop(base, name)
	if ok {
		return c.leaveOrIterate(i, leave)
	}
	if base > 0 && c.frames.At(base-1).Kind == frames.Interpret {
		return pc, &loopJump{name: name, leave: leave}
	}
	kw := "ITERATE"
	if leave {
		kw = "LEAVE"
	}
	return pc, condition.Errorf(28, "%s %s has no active loop", kw, name)
}

// compareValues is the normal comparison used by SELECT with a value.
func compareValues(a, b string, set numeric.Settings) (int, error) {
	cmp, err := calc.Compare(a, b, set)
	if errors.Is(err, numeric.ErrOverflow) {
		return 0, condition.Errorf(42, "comparing \"%s\" and \"%s\"", a, b)
	}
	return cmp, err
}
