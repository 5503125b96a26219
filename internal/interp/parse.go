package interp

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"rexx/internal/condition"
	"rexx/internal/token"
	"rexx/internal/trace"
)

// versionDate is the release date reported by PARSE VERSION.
const versionDate = "19 Oct 2026"

type itemKind int

const (
	itemVar itemKind = iota
	itemDot
	itemLiteral  // string pattern, or a variable pattern in parentheses
	itemAbsolute // =n or n
	itemRelative // +n or -n
	itemComma
)

type item struct {
	kind  itemKind
	name  string
	text  string
	n     int
	isRef bool // the pattern is the value of name
}

// parseClause executes ARG, PULL and PARSE.
func (c *Context) parseClause(toks []token.Code) error {
	upper := false
	i := 0
	switch toks[0] {
	case token.ARG, token.PULL:
		upper = true
	case token.PARSE:
		i = 1
		if at(toks, i) == token.UPPER {
			upper = true
			i++
		}
	}

	var sources []string
	src := at(toks, i)
	i++
	switch src {
	case token.ARG:
		for _, a := range c.state.Args {
			sources = append(sources, a.Value)
		}
	case token.PULL:
		line, err := c.pull()
		if err != nil {
			return err
		}
		sources = []string{line}
	case token.SOURCE:
		sources = []string{"UNIX " + c.callType.String() + " " + c.path}
	case token.VERSION:
		sources = []string{Version + " " + versionDate}
	case token.LINEIN:
		line, err := c.s.streams.LineIn("", 0, 1)
		if err != nil {
			if j := c.raise(condition.NotReady, "STDIN", "", false, nil); j != nil {
				return j
			}
		}
		sources = []string{line}
	case token.VAR:
		name, n := symbolAt(toks[i:])
		if n == 0 || isConstant(name) {
			return condition.Errorf(20, "variable expected after VAR")
		}
		i += n
		v, err := c.fetchVar(name)
		if err != nil {
			return err
		}
		sources = []string{v}
	case token.VALUE:
		w := index(toks[i:], token.WITH)
		if w < 0 {
			return condition.Errorf(38, "WITH expected")
		}
		v := ""
		if w > 0 {
			var err error
			if v, err = c.expression(toks[i : i+w]); err != nil {
				return err
			}
		}
		i += w + 1
		sources = []string{v}
	default:
		return condition.Errorf(25, "PARSE %s is not valid", src)
	}
	if upper {
		for k := range sources {
			sources[k] = strings.ToUpper(sources[k])
		}
	}

	items, err := parseTemplate(toks[i:])
	if err != nil {
		return err
	}
	// Only PARSE ARG has more than one string; the others give "" to the
	// templates after a comma.
	sub := 0
	start := 0
	for j := 0; j <= len(items); j++ {
		if j < len(items) && items[j].kind != itemComma {
			continue
		}
		s := ""
		if sub < len(sources) {
			s = sources[sub]
		}
		if err := c.match(s, items[start:j]); err != nil {
			return err
		}
		sub++
		start = j + 1
	}
	return nil
}

// fetchVar returns the value of a variable, raising NOVALUE when it has
// none.
func (c *Context) fetchVar(symbol string) (string, error) {
	name := c.vars.Resolve(symbol)
	v, ok := c.vars.Get(name)
	if !ok {
		if err := c.raise(condition.NoValue, name, "", false, nil); err != nil {
			return "", err
		}
	}
	return v, nil
}

// parseTemplate splits a parsing template into its items.
func parseTemplate(toks []token.Code) ([]item, error) {
	var items []item
	for i := 0; i < len(toks); {
		t := toks[i]
		switch {
		case t == ' ':
			i++
		case t == ',':
			items = append(items, item{kind: itemComma})
			i++
		case isQuote(t):
			s, n, err := literal(toks[i:])
			if err != nil {
				return nil, err
			}
			items = append(items, item{kind: itemLiteral, text: s})
			i += n
		case t == '(':
			name, n := symbolAt(toks[i+1:])
			if n == 0 || at(toks, i+1+n) != ')' {
				return nil, condition.Errorf(19, "symbol expected in parentheses")
			}
			items = append(items, item{kind: itemLiteral, name: name, isRef: true})
			i += n + 2
		case t == '+' || t == '-' || t == '=':
			it, n, err := positional(toks[i+1:], t)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
			i += n + 1
		case isSymbolTok(t):
			name, n := symbolAt(toks[i:])
			i += n
			switch {
			case name == ".":
				items = append(items, item{kind: itemDot})
			case isConstant(name):
				p, err := strconv.Atoi(name)
				if err != nil || p < 0 {
					return nil, condition.Errorf(26, "position \"%s\" is not a whole number", name)
				}
				items = append(items, item{kind: itemAbsolute, n: p})
			default:
				items = append(items, item{kind: itemVar, name: name})
			}
		default:
			return nil, condition.Errorf(38, "unexpected \"%s\" in template", t)
		}
	}
	return items, nil
}

// positional reads the number or (variable) after +, - or =.
func positional(toks []token.Code, sign token.Code) (item, int, error) {
	kind := itemRelative
	if sign == '=' {
		kind = itemAbsolute
	}
	if at(toks, 0) == '(' {
		name, n := symbolAt(toks[1:])
		if n == 0 || at(toks, n+1) != ')' {
			return item{}, 0, condition.Errorf(19, "symbol expected in parentheses")
		}
		it := item{kind: kind, name: name, isRef: true, n: 1}
		if sign == '-' {
			it.n = -1
		}
		return it, n + 2, nil
	}
	name, n := symbolAt(toks)
	p, err := strconv.Atoi(name)
	if n == 0 || err != nil || p < 0 {
		return item{}, 0, condition.Errorf(38, "number expected after \"%s\"", sign)
	}
	if sign == '-' {
		p = -p
	}
	return item{kind: kind, n: p}, n, nil
}

// match applies one comma-free template to s.
func (c *Context) match(s string, items []item) error {
	start, matchStart := 0, 0
	var pending []item
	flush := func(seg string) {
		c.assignWords(seg, pending)
		pending = pending[:0]
	}
	for _, it := range items {
		switch it.kind {
		case itemVar, itemDot:
			pending = append(pending, it)
			continue
		case itemLiteral:
			pat := it.text
			if it.isRef {
				v, err := c.fetchVar(it.name)
				if err != nil {
					return err
				}
				pat = v
			}
			k := -1
			if pat != "" {
				if k = strings.Index(s[start:], pat); k >= 0 {
					k += start
				}
			}
			if k < 0 {
				flush(s[start:])
				start, matchStart = len(s), len(s)
				continue
			}
			flush(s[start:k])
			matchStart, start = k, k+len(pat)
		case itemAbsolute, itemRelative:
			n := it.n
			if it.isRef {
				v, err := c.fetchVar(it.name)
				if err != nil {
					return err
				}
				w, err := c.state.Numeric.WholeNumber(v)
				if err != nil {
					return condition.Errorf(26, "position \"%s\" is not a whole number", v)
				}
				if it.kind == itemAbsolute && w < 0 {
					return condition.Errorf(26, "position \"%s\" is negative", v)
				}
				n = w
				if it.kind == itemRelative {
					n *= it.n
				}
			}
			target := matchStart + n
			if it.kind == itemAbsolute {
				target = n - 1
			}
			target = max(0, min(target, len(s)))
			if target > start {
				flush(s[start:target])
			} else {
				flush(s[start:])
			}
			start, matchStart = target, target
		}
	}
	flush(s[start:])
	return nil
}

// assignWords splits seg among targets: each but the last takes one word,
// the last takes what remains.
func (c *Context) assignWords(seg string, targets []item) {
	for k, it := range targets {
		v := seg
		if k < len(targets)-1 {
			seg = strings.TrimLeft(seg, " ")
			if j := strings.IndexByte(seg, ' '); j >= 0 {
				v, seg = seg[:j], seg[j+1:]
			} else {
				v, seg = seg, ""
			}
		}
		if it.kind == itemDot {
			c.traceAssign(trace.Placeholder, v)
			continue
		}
		c.vars.Set(c.vars.Resolve(it.name), v)
		c.traceAssign(trace.Assign, v)
	}
}

func (c *Context) traceAssign(tag, v string) {
	if c.state.Trace.Results() && !c.traceSkip {
		c.traceLine(trace.Value(tag, v))
	}
}

// pull reads a line from the queue, or from standard input when the queue
// is empty.
func (c *Context) pull() (string, error) {
	if v, ok := c.s.queue.Pull(); ok {
		return v, nil
	}
	if r := c.callExit(ExitSIO, ExitRequest{Event: EventPull}); r.Handled {
		return r.Text, nil
	}
	line, err := c.s.streams.Stdin().ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", condition.Errorf(48, "reading standard input: %v", err)
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}
