package interp

import (
	"rexx/internal/calc"
	"rexx/internal/condition"
	"rexx/internal/token"
	"rexx/internal/trace"
)

// Operator priorities, lowest first.
const (
	levelOr = iota + 1
	levelAnd
	levelCompare
	levelConcat
	levelAdd
	levelMul
	levelPower
)

// evaluator evaluates one expression by precedence climbing, keeping every
// operand on the calculator stack.
type evaluator struct {
	c    *Context
	toks []token.Code
	pos  int
}

// expression evaluates toks, which must form exactly one expression.
func (c *Context) expression(toks []token.Code) (string, error) {
	v, n, err := c.evalPrefix(toks)
	if err != nil {
		return "", err
	}
	if n < len(toks) {
		return "", unexpected(toks[n])
	}
	if c.state.Trace.Results() && !c.traceSkip {
		c.traceLine(trace.Value(trace.Result, v))
	}
	return v, nil
}

// evalPrefix evaluates the longest expression at the start of toks and
// reports how many tokens it used.
func (c *Context) evalPrefix(toks []token.Code) (string, int, error) {
	base := c.calc.Len()
	e := &evaluator{c: c, toks: toks}
	if err := e.expr(levelOr); err != nil {
		c.calc.Truncate(base)
		return "", e.pos, err
	}
	v, _ := c.calc.Pop()
	c.calc.Truncate(base)
	return v, e.pos, nil
}

// truth evaluates toks as a condition that must be 0 or 1.
func (c *Context) truth(toks []token.Code) (bool, error) {
	v, err := c.expression(toks)
	if err != nil {
		return false, err
	}
	ok, err := calc.Truth(v)
	if err != nil {
		return false, condition.Errorf(34, "value is \"%s\"", v)
	}
	return ok, nil
}

func unexpected(t token.Code) error {
	if t == ',' || t == ')' {
		return condition.Errorf(37, "unexpected \"%s\"", t)
	}
	return condition.Errorf(35, "unexpected \"%s\"", t)
}

func (e *evaluator) peek() token.Code { return at(e.toks, e.pos) }

func (e *evaluator) expr(min int) error {
	if err := e.prefix(); err != nil {
		return err
	}
	for {
		op, level, width := e.operator()
		if width < 0 || level < min {
			return nil
		}
		e.pos += width
		if err := e.expr(level + 1); err != nil {
			return err
		}
		if err := e.c.calc.Binary(op, e.c.state.Numeric); err != nil {
			return err
		}
		e.intermediate(trace.Operation)
	}
}

// operator classifies the token at the current position. width is 0 for
// abuttal and -1 when the expression ends here.
func (e *evaluator) operator() (calc.Op, int, int) {
	t := e.peek()
	switch t {
	case ' ':
		return calc.BlankConcat, levelConcat, 1
	case token.CONCAT:
		return calc.Concat, levelConcat, 1
	case '|':
		return calc.Or, levelOr, 1
	case token.XOR:
		return calc.Xor, levelOr, 1
	case '&':
		return calc.And, levelAnd, 1
	case '=':
		return calc.Eq, levelCompare, 1
	case '<':
		return calc.Lt, levelCompare, 1
	case '>':
		return calc.Gt, levelCompare, 1
	case token.NE:
		return calc.Ne, levelCompare, 1
	case token.LE, token.NGT:
		return calc.Le, levelCompare, 1
	case token.GE, token.NLT:
		return calc.Ge, levelCompare, 1
	case token.STRICTEQ:
		return calc.StrictEq, levelCompare, 1
	case token.STRICTNE:
		return calc.StrictNe, levelCompare, 1
	case token.STRICTLT:
		return calc.StrictLt, levelCompare, 1
	case token.STRICTGT:
		return calc.StrictGt, levelCompare, 1
	case token.STRICTLE, token.STRICTNGT:
		return calc.StrictLe, levelCompare, 1
	case token.STRICTGE, token.STRICTNLT:
		return calc.StrictGe, levelCompare, 1
	case '+':
		return calc.Add, levelAdd, 1
	case '-':
		return calc.Sub, levelAdd, 1
	case '*':
		return calc.Mul, levelMul, 1
	case '/':
		return calc.Div, levelMul, 1
	case '%':
		return calc.IntDiv, levelMul, 1
	case token.REM:
		return calc.Rem, levelMul, 1
	case token.POWER:
		return calc.Power, levelPower, 1
	case '(', '\'', '"':
		return calc.Concat, levelConcat, 0
	}
	if isSymbolTok(t) {
		return calc.Concat, levelConcat, 0
	}
	return 0, 0, -1
}

func (e *evaluator) prefix() error {
	var op calc.Op
	switch e.peek() {
	case '+':
		op = calc.Plus
	case '-':
		op = calc.Minus
	case '\\':
		op = calc.Not
	default:
		return e.term()
	}
	e.pos++
	if err := e.prefix(); err != nil {
		return err
	}
	if err := e.c.calc.Unary(op, e.c.state.Numeric); err != nil {
		return err
	}
	e.intermediate(trace.Prefix)
	return nil
}

func (e *evaluator) term() error {
	t := e.peek()
	switch {
	case t == eof:
		return condition.Errorf(35, "expression expected")
	case t == '(':
		e.pos++
		if err := e.expr(levelOr); err != nil {
			return err
		}
		if e.peek() != ')' {
			if e.peek() == eof {
				return condition.Errorf(36, "")
			}
			return unexpected(e.peek())
		}
		e.pos++
		return nil
	case isQuote(t):
		s, n, err := literal(e.toks[e.pos:])
		if err != nil {
			return err
		}
		e.pos += n
		if e.peek() == '(' {
			return e.call(s, true)
		}
		e.c.calc.Push(s)
		e.intermediate(trace.Literal)
		return nil
	case isSymbolTok(t):
		name, n := symbolAt(e.toks[e.pos:])
		e.pos += n
		if e.peek() == '(' {
			return e.call(name, false)
		}
		if isConstant(name) {
			e.c.calc.Push(name)
			e.intermediate(trace.Literal)
			return nil
		}
		return e.variable(name)
	}
	return unexpected(t)
}

func (e *evaluator) variable(name string) error {
	c := e.c
	derived := c.vars.Resolve(name)
	if derived != name {
		e.traceText(trace.Compound, derived)
	}
	v, ok := c.vars.Get(derived)
	if !ok {
		if err := c.raise(condition.NoValue, derived, "", false, nil); err != nil {
			return err
		}
	}
	c.calc.Push(v)
	e.intermediate(trace.Variable)
	return nil
}

// call evaluates the argument list of a function call and invokes it.
func (e *evaluator) call(name string, quoted bool) error {
	e.pos++
	n := 0
	if e.peek() == ')' {
		e.pos++
	} else {
		for {
			if t := e.peek(); t == ',' || t == ')' {
				e.c.calc.PushOmitted()
			} else if err := e.expr(levelOr); err != nil {
				return err
			}
			n++
			t := e.peek()
			if t == ',' {
				e.pos++
				continue
			}
			if t == ')' {
				e.pos++
				break
			}
			if t == eof {
				return condition.Errorf(36, "in call to %s", name)
			}
			return unexpected(t)
		}
	}
	args := e.c.calc.Args(n)
	v, err := e.c.function(name, quoted, args)
	e.c.calc.Truncate(args.Base())
	if err != nil {
		return err
	}
	e.c.calc.Push(v)
	e.intermediate(trace.Function)
	return nil
}

func (e *evaluator) intermediate(tag string) {
	if !e.c.state.Trace.Intermediates() || e.c.traceSkip {
		return
	}
	v, _ := e.c.calc.Top()
	e.c.traceLine(trace.Value(tag, v))
}

func (e *evaluator) traceText(tag, v string) {
	if e.c.state.Trace.Intermediates() && !e.c.traceSkip {
		e.c.traceLine(trace.Value(tag, v))
	}
}
