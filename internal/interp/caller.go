package interp

import (
	"time"

	"rexx/internal/condition"
	"rexx/internal/numeric"
	"rexx/internal/streams"
	"rexx/internal/trace"
)

// caller is the view of a context the builtins get.
type caller struct{ c *Context }

func (b caller) Numeric() numeric.Settings { return b.c.state.Numeric }

func (b caller) Arg(i int) (string, bool) {
	args := b.c.state.Args
	if i < 1 || i > len(args) || !args[i-1].Exists {
		return "", false
	}
	return args[i-1].Value, true
}

// ArgCount ignores trailing omitted arguments.
func (b caller) ArgCount() int {
	args := b.c.state.Args
	n := len(args)
	for n > 0 && !args[n-1].Exists {
		n--
	}
	return n
}

func (b caller) Var(symbol string) (string, bool) { return b.c.vars.Fetch(symbol) }

func (b caller) SetVar(symbol, value string) error {
	b.c.vars.Set(b.c.vars.Resolve(symbol), value)
	return nil
}

func (b caller) Condition() *condition.Info { return b.c.conds.Current().Info }

func (b caller) SourceLine(n int) (string, int) {
	p := b.c.prog
	if n == 0 {
		return "", len(p.Lines)
	}
	return p.SourceLine(n), len(p.Lines)
}

func (b caller) Trace() trace.Setting { return b.c.state.Trace }
func (b caller) SetTrace(setting string) error { return b.c.setTrace(setting) }
func (b caller) Address() string { return b.c.state.Address }
func (b caller) Queued() int { return b.c.s.queue.Len() }
func (b caller) Streams() *streams.Table { return b.c.s.streams }

// NotReady raises NOTREADY. A SIGNAL it causes takes effect when the
// builtin returns.
func (b caller) NotReady(stream string) {
	if err := b.c.raise(condition.NotReady, stream, "", false, nil); err != nil && b.c.deferred == nil {
		b.c.deferred = err
	}
}

// Now returns the same time for every call made during one clause.
func (b caller) Now() time.Time {
	if b.c.now.IsZero() {
		b.c.now = time.Now()
	}
	return b.c.now
}

func (b caller) Elapsed(reset bool) float64 {
	now := b.Now()
	st := &b.c.state
	if st.Elapsed.IsZero() {
		st.Elapsed = now
		return 0
	}
	d := now.Sub(st.Elapsed).Seconds()
	if reset {
		st.Elapsed = now
	}
	return d
}
