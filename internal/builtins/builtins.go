// Package builtins is the table of REXX builtin functions.
//
// A builtin reads its arguments from a window of the calculator stack and
// returns its result; anything it needs from the running program it asks
// the Caller for.
package builtins

import (
	"fmt"
	"strings"
	"time"

	"rexx/internal/calc"
	"rexx/internal/condition"
	"rexx/internal/numeric"
	"rexx/internal/streams"
	"rexx/internal/trace"
)

// Caller is the view of the running program a builtin gets.
type Caller interface {
	Numeric() numeric.Settings
	// Arg returns argument i (1-based) of the current routine.
	Arg(i int) (string, bool)
	ArgCount() int
	// Var fetches a variable by symbol; SetVar assigns one.
	Var(symbol string) (string, bool)
	SetVar(symbol, value string) error
	Condition() *condition.Info
	// SourceLine returns line n of the program; n == 0 returns the line count.
	SourceLine(n int) (string, int)
	Trace() trace.Setting
	SetTrace(setting string) error
	Address() string
	Queued() int
	Streams() *streams.Table
	// NotReady raises the NOTREADY condition for a stream.
	NotReady(stream string)
	// Now is the time of the current clause.
	Now() time.Time
	// Elapsed returns the seconds since the elapsed clock was started,
	// restarting it when reset is set.
	Elapsed(reset bool) float64
}

// Func is the implementation of a builtin.
type Func func(c Caller, args calc.Args) (string, error)

// Builtin describes one builtin function.
type Builtin struct {
	Name     string
	Min, Max int
	Fn       Func
}

var table map[string]*Builtin

func register(name string, lo, hi int, fn Func) {
	table[name] = &Builtin{Name: name, Min: lo, Max: hi, Fn: fn}
}

func init() {
	table = map[string]*Builtin{}
	registerStrings()
	registerNumbers()
	registerConversions()
	registerSystem()
	registerStreams()
}

// Lookup returns the builtin called name (upper case).
func Lookup(name string) (*Builtin, bool) {
	b, ok := table[name]
	return b, ok
}

// Names returns the names of all builtins.
func Names() []string {
	out := make([]string, 0, len(table))
	for n := range table {
		out = append(out, n)
	}
	return out
}

// Call checks the argument count and runs the builtin.
func (b *Builtin) Call(c Caller, args calc.Args) (string, error) {
	n := args.Len()
	for n > 0 && !args.Exists(n-1) {
		n--
	}
	if n < b.Min || n > b.Max {
		return "", condition.Errorf(40, "%s: expected %d to %d arguments, got %d", b.Name, b.Min, b.Max, n)
	}
	for i := 0; i < b.Min; i++ {
		if !args.Exists(i) {
			return "", condition.Errorf(40, "%s: argument %d is required", b.Name, i+1)
		}
	}
	return b.Fn(c, args)
}

func badArg(name string, i int, format string, v ...any) error {
	return condition.Errorf(40, "%s argument %d: %s", name, i+1, fmt.Sprintf(format, v...))
}

// whole returns argument i as a whole number, def when omitted. The value
// must not be smaller than least.
func whole(c Caller, name string, args calc.Args, i, def, least int) (int, error) {
	v, ok := args.Get(i)
	if !ok {
		return def, nil
	}
	n, err := c.Numeric().WholeNumber(v)
	if err != nil {
		return 0, badArg(name, i, "must be a whole number; found \"%s\"", v)
	}
	if n < least {
		return 0, badArg(name, i, "must be at least %d; found \"%s\"", least, v)
	}
	return n, nil
}

// option returns the upper-cased first character of argument i, def when
// omitted, checking it against allowed.
func option(name string, args calc.Args, i int, def byte, allowed string) (byte, error) {
	v, ok := args.Get(i)
	if !ok {
		return def, nil
	}
	if v == "" {
		return 0, badArg(name, i, "must not be null")
	}
	o := v[0]
	if o >= 'a' && o <= 'z' {
		o -= 'a' - 'A'
	}
	if strings.IndexByte(allowed, o) < 0 {
		return 0, badArg(name, i, "must be one of \"%s\"; found \"%s\"", allowed, v)
	}
	return o, nil
}

// pad returns argument i as a single pad character, a blank when omitted.
func pad(name string, args calc.Args, i int) (byte, error) {
	v, ok := args.Get(i)
	if !ok {
		return ' ', nil
	}
	if len(v) != 1 {
		return 0, badArg(name, i, "must be a single character; found \"%s\"", v)
	}
	return v[0], nil
}

func arg(args calc.Args, i int) string {
	v, _ := args.Get(i)
	return v
}

func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
