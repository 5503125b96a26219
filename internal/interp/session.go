// Package interp executes tokenized REXX programs.
//
// A Session is the host-wide state shared by every program it runs: the
// subcommand environments, registered functions and exits, the data queue
// and the stream table. Each invocation of a program gets its own Context
// holding the variable store, program stack, condition levels and
// calculator stack of that invocation.
package interp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"rexx/internal/environments"
	"rexx/internal/frames"
	"rexx/internal/hashtab"
	"rexx/internal/lexer"
	"rexx/internal/streams"
)

// Version is reported by PARSE VERSION.
const Version = "REXX-rexx 5.00"

// DefaultExtension is appended to external routine names when searching.
const DefaultExtension = ".rexx"

// maxNesting bounds how deeply external routines may call each other.
const maxNesting = 200

// Arg is one argument of a call.
type Arg = frames.Arg

// NativeFunction is a function implemented by the host. ok is false when
// the function produced no result.
type NativeFunction func(ctx context.Context, name string, args []Arg) (result string, ok bool, err error)

// Function is an entry of the session's function table: a native function
// or an external program that was loaded once and cached.
type Function struct {
	Name   string
	Native NativeFunction
	Prog   *lexer.Program
	Path   string
}

// Halter reports asynchronous interrupt requests. count is the number of
// requests received since the last call.
type Halter interface {
	Take() (reason string, count int)
}

// Options configure a session.
type Options struct {
	DefaultEnv string
	Extension  string
	Path       []string // directories searched for external routines
	Digits     int
	Trace      string // initial TRACE setting

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Environments environments.Options
	Halter       Halter
	// TraceInput reads a line during interactive tracing. Standard input
	// is used when nil.
	TraceInput func(prompt string) (string, error)
	// Logger receives debug records. slog.Default() when nil.
	Logger *slog.Logger
}

// Session holds everything the programs it runs share.
type Session struct {
	opts    Options
	envs    *environments.Registry
	funcs   *hashtab.Table[*Function]
	exits   [numExits]Exit
	queue   *Queue
	streams *streams.Table
	stdout  io.Writer
	stderr  io.Writer
	log     *slog.Logger

	active    *Context
	nesting   int
	cancelled <-chan struct{} // Done of the context last raised as a HALT
}

// NewSession returns a session with the default environments registered.
func NewSession(opts Options) *Session {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.DefaultEnv == "" {
		opts.DefaultEnv = "SYSTEM"
	}
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	s := &Session{
		opts:    opts,
		envs:    environments.NewRegistry(),
		funcs:   hashtab.New[*Function](),
		queue:   &Queue{},
		streams: streams.NewTable(opts.Stdin, opts.Stdout, opts.Stderr),
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		log:     opts.Logger,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	environments.Defaults(s.envs, opts.Environments, environments.Stdio{
		In:  opts.Stdin,
		Out: opts.Stdout,
		Err: opts.Stderr,
	})
	s.log.Debug("session created",
		slog.String("env", opts.DefaultEnv),
		slog.Int("path", len(opts.Path)))
	return s
}

// Environments returns the registry of subcommand environments.
func (s *Session) Environments() *environments.Registry { return s.envs }

// Queue returns the session's data queue.
func (s *Session) Queue() *Queue { return s.queue }

// Streams returns the stream table.
func (s *Session) Streams() *streams.Table { return s.streams }

// Active returns the context of the innermost running program, or nil.
func (s *Session) Active() *Context { return s.active }

// RegisterFunction adds or replaces a native function.
func (s *Session) RegisterFunction(name string, fn NativeFunction) {
	name = strings.ToUpper(name)
	s.funcs.Insert(name, &Function{Name: name, Native: fn})
}

// DeregisterFunction removes a function and reports whether it existed.
func (s *Session) DeregisterFunction(name string) bool {
	return s.funcs.Delete(strings.ToUpper(name))
}

// QueryFunction reports whether a function is registered.
func (s *Session) QueryFunction(name string) bool {
	f, ok := s.funcs.Get(strings.ToUpper(name))
	return ok && f.Native != nil
}

// RegisterExit installs the handler for one exit kind. A nil handler
// removes it.
func (s *Session) RegisterExit(kind ExitKind, h Exit) {
	s.exits[kind] = h
}

// DeregisterExit removes the handler for kind and reports whether one was
// installed.
func (s *Session) DeregisterExit(kind ExitKind) bool {
	ok := s.exits[kind] != nil
	s.exits[kind] = nil
	return ok
}

// SwapExits installs exits for one invocation and returns a function
// restoring the previous handlers. Unless keep is set the registered
// handlers are suspended until then.
func (s *Session) SwapExits(exits map[ExitKind]Exit, keep bool) (restore func()) {
	saved := s.exits
	if !keep {
		s.exits = [numExits]Exit{}
	}
	for k, h := range exits {
		if k >= 0 && k < numExits {
			s.exits[k] = h
		}
	}
	return func() { s.exits = saved }
}

// QueryExit reports whether an exit handler is installed.
func (s *Session) QueryExit(kind ExitKind) bool { return s.exits[kind] != nil }

// Close closes every open stream and releases environment resources.
func (s *Session) Close() error {
	s.streams.CloseAll()
	return s.envs.Close()
}

// ErrNotActive is returned by variable access when no program is running.
var ErrNotActive = errors.New("no program is running")
