package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"rexx/internal/interp"
)

const (
	PROMPT      = "rexx> "
	CONTINUE    = "  ... "
	TRACEPROMPT = "trace> "
)

// HistoryFile is the name of the history file in the home directory.
const HistoryFile = ".rexx_history"

// LineReader reads edited lines. *liner.State implements it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// REPL reads clauses from the terminal and runs them in a shell.
type REPL struct {
	in      LineReader
	ln      *liner.State
	history string
	out     io.Writer
}

// New opens the terminal for line editing and loads the history file.
// history is the default file in the home directory when empty.
func New(history string, out io.Writer) *REPL {
	if history == "" {
		if home, err := os.UserHomeDir(); err == nil {
			history = filepath.Join(home, HistoryFile)
		}
	}
	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)
	if f, err := os.Open(history); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	return &REPL{in: ln, ln: ln, history: history, out: out}
}

// WithReader returns a REPL reading from in, without a terminal.
func WithReader(in LineReader, out io.Writer) *REPL {
	return &REPL{in: in, out: out}
}

// TraceInput reads a line of interactive trace input.
func (r *REPL) TraceInput(prompt string) (string, error) {
	if prompt == "" {
		prompt = TRACEPROMPT
	}
	line, err := r.in.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", nil
	}
	return line, err
}

// Run reads and runs lines until end of input or EXIT, and returns the
// outcome of the EXIT.
func (r *REPL) Run(sh *interp.Shell) (interp.Outcome, error) {
	for {
		src, ok, err := r.read()
		if err != nil {
			return interp.Outcome{}, err
		}
		if !ok {
			fmt.Fprintln(r.out)
			return interp.Outcome{}, nil
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		r.in.AppendHistory(src)
		out, done, err := sh.Line(src)
		if err != nil {
			return out, err
		}
		if done {
			return out, nil
		}
	}
}

// read returns one clause line, joining lines that end with a comma.
func (r *REPL) read() (string, bool, error) {
	var b strings.Builder
	prompt := PROMPT
	for {
		line, err := r.in.Prompt(prompt)
		switch {
		case errors.Is(err, io.EOF):
			if b.Len() > 0 {
				return b.String(), true, nil
			}
			return "", false, nil
		case errors.Is(err, liner.ErrPromptAborted):
			b.Reset()
			prompt = PROMPT
			continue
		case err != nil:
			return "", false, err
		}
		trimmed := strings.TrimRight(line, " \t")
		if strings.HasSuffix(trimmed, ",") {
			b.WriteString(strings.TrimSuffix(trimmed, ","))
			b.WriteByte(' ')
			prompt = CONTINUE
			continue
		}
		b.WriteString(line)
		return b.String(), true, nil
	}
}

// Close saves the history and restores the terminal.
func (r *REPL) Close() error {
	if r.ln == nil {
		return nil
	}
	if r.history != "" {
		if f, err := os.Create(r.history); err == nil {
			_, _ = r.ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return r.ln.Close()
}
