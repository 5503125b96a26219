// Package trace parses TRACE settings and formats trace output lines.
package trace

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned for an unknown TRACE option.
var ErrInvalid = errors.New("invalid trace request")

// Setting is the state selected by the TRACE instruction.
type Setting struct {
	Option      byte // one of A C E F I L N O R
	Interactive bool
	Inhibit     bool // commands are traced but not executed
}

// Default is the setting of a fresh program.
func Default() Setting { return Setting{Option: 'N'} }

const options = "ACEFILNOR"

// Parse applies a TRACE operand to cur. Leading '?' and '!' toggle
// interactive tracing and command inhibition, the first letter selects the
// option. An empty operand restores the default and ends interactive tracing.
func Parse(cur Setting, s string) (Setting, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Default(), nil
	}
	next := cur
	i := 0
	for ; i < len(s) && (s[i] == '?' || s[i] == '!'); i++ {
		if s[i] == '?' {
			next.Interactive = !next.Interactive
		} else {
			next.Inhibit = !next.Inhibit
		}
	}
	if i == len(s) {
		return next, nil
	}
	opt := s[i]
	if opt >= 'a' && opt <= 'z' {
		opt -= 'a' - 'A'
	}
	if strings.IndexByte(options, opt) < 0 {
		return cur, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	next.Option = opt
	if opt == 'O' {
		next.Interactive = false
		next.Inhibit = false
	}
	return next, nil
}

func (s Setting) String() string {
	var b strings.Builder
	if s.Interactive {
		b.WriteByte('?')
	}
	if s.Inhibit {
		b.WriteByte('!')
	}
	b.WriteByte(s.Option)
	return b.String()
}

// Clauses reports whether every clause is traced before it runs.
func (s Setting) Clauses() bool {
	return s.Option == 'A' || s.Option == 'I' || s.Option == 'R'
}

// Results reports whether expression results and assignments are traced.
func (s Setting) Results() bool { return s.Option == 'R' || s.Option == 'I' }

// Intermediates reports whether every intermediate value is traced.
func (s Setting) Intermediates() bool { return s.Option == 'I' }

// Labels reports whether labels passed during execution are traced.
func (s Setting) Labels() bool { return s.Option == 'L' || s.Clauses() }

// Commands reports whether host commands are traced before execution.
func (s Setting) Commands() bool { return s.Option == 'C' || s.Clauses() }

// CommandErrors reports whether a command returning ERROR is traced.
func (s Setting) CommandErrors() bool { return s.Option == 'E' || s.Commands() }

// CommandFailures reports whether a command returning FAILURE is traced.
func (s Setting) CommandFailures() bool {
	return s.Option == 'F' || s.Option == 'N' || s.CommandErrors()
}

// Off reports whether tracing is switched off.
func (s Setting) Off() bool { return s.Option == 'O' }

// Clause formats the trace line for a clause about to run.
func Clause(line int, text string) string {
	return fmt.Sprintf("%6d *-* %s", line, text)
}

// Tags used by Value.
const (
	Result      = ">>>"
	Assign      = ">=>"
	Variable    = ">V>"
	Literal     = ">L>"
	Operation   = ">O>"
	Function    = ">F>"
	Compound    = ">C>"
	Placeholder = ">.>"
	Prefix      = ">P>"
	Error       = "+++"
)

// Value formats an intermediate value.
func Value(tag, value string) string {
	return fmt.Sprintf("       %s \"%s\"", tag, value)
}

// Message formats a "+++" line such as a command return code.
func Message(text string) string {
	return "       " + Error + " " + text
}
