package interp

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rexx/internal/builtins"
	"rexx/internal/calc"
	"rexx/internal/condition"
	"rexx/internal/frames"
	"rexx/internal/lexer"
	"rexx/internal/token"
)

func argList(args calc.Args) []Arg {
	out := make([]Arg, args.Len())
	for i := range out {
		out[i].Value, out[i].Exists = args.Get(i)
	}
	return out
}

// function invokes a routine as a function, which must return a value.
func (c *Context) function(name string, quoted bool, args calc.Args) (string, error) {
	v, has, err := c.invoke(name, quoted, args, true)
	if err != nil {
		return "", err
	}
	if !has {
		return "", condition.Errorf(44, "function %s returned no data", name)
	}
	return v, nil
}

// invoke looks name up as an internal label, a builtin and finally an
// external routine. A quoted name skips the label search.
func (c *Context) invoke(name string, quoted bool, args calc.Args, fn bool) (string, bool, error) {
	if !quoted {
		if target, ok := c.prog.FindLabel(name); ok {
			return c.callInternal(name, target, argList(args), fn, false, c.line())
		}
	}
	if b, ok := builtins.Lookup(name); ok {
		v, err := b.Call(caller{c}, args)
		if err == nil && c.deferred != nil {
			err, c.deferred = c.deferred, nil
		}
		if err != nil {
			return "", false, err
		}
		return v, true, nil
	}
	return c.external(name, args, fn)
}

// callInternal runs the routine at label target. The caller's NUMERIC,
// TRACE and ADDRESS settings, elapsed clock, arguments and variable level
// are restored when it ends, however it ends.
func (c *Context) callInternal(name string, target int, args []Arg, fn, trapped bool, sigl int) (string, bool, error) {
	saved := c.state
	saved.VarDepth = c.vars.Depth()
	cur := c.cur
	h, err := c.frames.Push(frames.Frame{
		Kind: frames.Call,
		PC:   cur.stmt,
		Call: &frames.CallFrame{
			Name:    name,
			Prog:    cur.prog,
			Stmt:    cur.stmt,
			Line:    cur.line(),
			Func:    fn,
			Trapped: trapped,
			Saved:   saved,
		},
	})
	if err != nil {
		return "", false, err
	}
	procOK := c.procOK
	depth := c.conds.Depth()
	c.conds.Push(true)
	defer func() {
		for c.conds.Depth() > depth {
			c.conds.Pop()
		}
		c.frames.Truncate(h, c.release)
		c.vars.Truncate(saved.VarDepth)
		c.state = saved
		c.cur = cur
		c.procOK = procOK
	}()

	c.setVar("SIGL", strconv.Itoa(sigl))
	c.state.Args = args
	c.procOK = true
	c.traceLabel(name, target)
	c.s.log.Debug("call", slog.String("routine", name), slog.Int("args", len(args)), slog.Bool("function", fn))
	return c.run(c.prog, target, routineMode)
}

func (c *Context) callClause(toks []token.Code) error {
	if t := at(toks, 1); t == token.ON || t == token.OFF {
		return c.trapClause(toks, condition.CallMode)
	}
	name, quoted, i, err := nameAt(toks, 1)
	if err != nil {
		return err
	}
	args, err := c.callArgs(toks[skipBlank(toks, i):])
	if err != nil {
		return err
	}
	v, has, err := c.invoke(name, quoted, args, false)
	c.calc.Truncate(args.Base())
	if err != nil {
		return err
	}
	if has {
		c.setVar("RESULT", v)
	} else {
		c.vars.Drop("RESULT")
	}
	return nil
}

// callArgs evaluates the comma separated arguments of CALL onto the
// calculator stack.
func (c *Context) callArgs(toks []token.Code) (calc.Args, error) {
	base := c.calc.Len()
	if len(toks) == 0 {
		return c.calc.Args(0), nil
	}
	n := 0
	for pos := 0; ; {
		if t := at(toks, pos); t == ',' || t == eof {
			c.calc.PushOmitted()
		} else {
			v, used, err := c.evalPrefix(toks[pos:])
			if err != nil {
				c.calc.Truncate(base)
				return calc.Args{}, err
			}
			c.calc.Push(v)
			pos += used
		}
		n++
		if pos >= len(toks) {
			break
		}
		if toks[pos] != ',' {
			c.calc.Truncate(base)
			return calc.Args{}, unexpected(toks[pos])
		}
		pos++
	}
	return c.calc.Args(n), nil
}

func (c *Context) signalClause(toks []token.Code) error {
	var label string
	switch at(toks, 1) {
	case token.ON, token.OFF:
		return c.trapClause(toks, condition.SignalMode)
	case token.VALUE:
		v, err := c.expression(toks[2:])
		if err != nil {
			return err
		}
		label = v
	default:
		name, _, i, err := nameAt(toks, 1)
		if err != nil {
			return err
		}
		if i < len(toks) {
			return unexpected(toks[i])
		}
		label = name
	}
	target, ok := c.prog.FindLabel(label)
	if !ok {
		return condition.Errorf(16, "label \"%s\" not found", label)
	}
	return &jump{owner: c, level: c.conds.Depth(), label: label, target: target, sigl: c.line()}
}

// trapClause handles SIGNAL ON/OFF and CALL ON/OFF.
func (c *Context) trapClause(toks []token.Code, mode condition.Mode) error {
	on := toks[1] == token.ON
	name, n := symbolAt(toks[2:])
	k, ok := condition.ParseKind(name)
	if !ok || (mode == condition.CallMode && !k.Callable()) {
		return condition.Errorf(25, "cannot trap \"%s\" with %s", name, mode)
	}
	i := 2 + n
	label := k.String()
	if on && at(toks, i) == token.NAME {
		var err error
		if label, _, i, err = nameAt(toks, i+1); err != nil {
			return err
		}
	}
	if i < len(toks) {
		return unexpected(toks[i])
	}
	lvl := c.conds.Current()
	if on {
		lvl.Arm(k, mode, label)
	} else {
		lvl.Disarm(k)
	}
	return nil
}

// procedure starts a new variable level for the routine that was just
// called, sharing the exposed names with the caller.
func (c *Context) procedure(toks []token.Code) error {
	if !c.procOK {
		return condition.Errorf(17, "PROCEDURE must be the first instruction of a called routine")
	}
	c.procOK = false
	switch at(toks, 1) {
	case token.HIDE:
		var hidden []string
		if err := c.eachName(toks[2:], true, func(name string) {
			hidden = append(hidden, c.vars.Resolve(name))
		}); err != nil {
			return err
		}
		c.vars.NewHidingLevel(hidden)
		return nil
	case token.EXPOSE:
		c.vars.NewLevel()
		return c.eachName(toks[2:], true, func(name string) {
			c.vars.Expose(c.vars.Resolve(name))
		})
	case eof:
		c.vars.NewLevel()
		return nil
	}
	return unexpected(toks[1])
}

// external calls a registered function or an external program.
func (c *Context) external(name string, args calc.Args, fn bool) (string, bool, error) {
	key := strings.ToUpper(name)
	f, ok := c.s.funcs.Get(key)
	if !ok {
		path, found := c.s.search(name, c.path)
		if !found {
			return "", false, condition.Errorf(43, "routine %s not found", name)
		}
		prog, err := loadProgram(path)
		if err != nil {
			return "", false, err
		}
		f = &Function{Name: key, Prog: prog, Path: path}
		c.s.funcs.Insert(key, f)
		c.s.log.Debug("external routine loaded", slog.String("name", key), slog.String("path", path))
	}
	argv := argList(args)
	if f.Native != nil {
		v, has, err := f.Native(c.ctx, key, argv)
		if err != nil {
			return "", false, condition.Errorf(40, "%s: %v", key, err)
		}
		return v, has, nil
	}
	return c.runExternal(f, argv, fn)
}

func (c *Context) runExternal(f *Function, args []Arg, fn bool) (string, bool, error) {
	if c.s.nesting >= maxNesting {
		return "", false, condition.Errorf(11, "external routines nested more than %d deep", maxNesting)
	}
	h, err := c.frames.Push(frames.Frame{
		Kind:      frames.Traceback,
		PC:        c.cur.stmt,
		Traceback: &frames.TracebackFrame{Prog: c.cur.prog, Stmt: c.cur.stmt},
	})
	if err != nil {
		return "", false, err
	}
	c.s.nesting++
	defer func() {
		c.s.nesting--
		c.frames.Truncate(h, c.release)
	}()
	ct := AsSubroutine
	if fn {
		ct = AsFunction
	}
	child := c.s.newContext(c.ctx, c, Invocation{
		Prog:     f.Prog,
		Path:     f.Path,
		Args:     args,
		Env:      c.state.Address,
		CallType: ct,
		Numeric:  &c.state.Numeric,
	})
	out, err := child.execute(args)
	if err != nil {
		return "", false, err
	}
	return out.Result, out.HasResult, nil
}

// search looks for an external routine in the directory of the calling
// program, the current directory and the search path.
func (s *Session) search(name, from string) (string, bool) {
	candidates := []string{name}
	if filepath.Ext(name) == "" {
		lower := strings.ToLower(name)
		candidates = []string{name + s.opts.Extension, lower + s.opts.Extension, name, lower}
	}
	if filepath.IsAbs(name) {
		for _, p := range candidates {
			if isFile(p) {
				return p, true
			}
		}
		return "", false
	}
	dirs := []string{"."}
	if from != "" {
		dirs = append(dirs, filepath.Dir(from))
	}
	dirs = append(dirs, s.opts.Path...)
	for _, d := range dirs {
		for _, n := range candidates {
			if p := filepath.Join(d, n); isFile(p) {
				return p, true
			}
		}
	}
	return "", false
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

// loadProgram reads and tokenizes a program file.
func loadProgram(path string) (*lexer.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, condition.Errorf(3, "%v", err)
	}
	prog, err := lexer.Tokenize(path, src, lexer.Options{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// LoadProgram reads and tokenizes a program file, looking it up the way
// external routines are found when path is not a file. When exact is set
// the name is only tried as given and a leading "#!" line is kept.
func (s *Session) LoadProgram(path string, exact bool) (*lexer.Program, string, error) {
	if exact {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, path, condition.Errorf(3, "%v", err)
		}
		prog, err := lexer.Tokenize(path, src, lexer.Options{KeepFirstLine: true})
		return prog, path, err
	}
	if !isFile(path) {
		if found, ok := s.search(path, ""); ok {
			path = found
		}
	}
	prog, err := loadProgram(path)
	return prog, path, err
}

// ReportLoadError writes the message for a program that could not be read
// or tokenized and returns the code to give the host: 3 when the program
// could not be read, else the negated error number.
func (s *Session) ReportLoadError(path string, err error) int {
	e := asCondition(err)
	fmt.Fprintf(s.stderr, "Error %d running \"%s\", line %d: %s\n", e.Code, path, e.Line, condition.Message(e.Code))
	if e.Detail != "" {
		fmt.Fprintf(s.stderr, "Error %d: %s\n", e.Code, e.Detail)
	}
	var le *lexer.Error
	if errors.As(err, &le) && le.Excerpt != "" {
		fmt.Fprint(s.stderr, le.Excerpt)
	}
	if e.Code == 3 {
		return 3
	}
	return -e.Code
}
