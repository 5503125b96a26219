// Package rexx embeds a REXX interpreter in a Go program.
//
// A Session runs programs with Start and lets the host extend them with
// subcommand environments, native functions and exits. While a program
// runs, native functions, exits and environments may read and change its
// variables through VariablePool.
package rexx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"rexx/internal/environments"
	"rexx/internal/interp"
	"rexx/internal/lexer"
)

// Version is the interpreter version reported by PARSE VERSION.
const Version = interp.Version

type (
	Arg            = interp.Arg
	NativeFunction = interp.NativeFunction
	Halter         = interp.Halter
	CallType       = interp.CallType

	Exit        = interp.Exit
	ExitFunc    = interp.ExitFunc
	ExitKind    = interp.ExitKind
	ExitEvent   = interp.ExitEvent
	ExitRequest = interp.ExitRequest
	ExitReply   = interp.ExitReply

	PoolOp      = interp.PoolOp
	PoolStatus  = interp.PoolStatus
	PoolRequest = interp.PoolRequest

	Handler     = environments.Handler
	HandlerFunc = environments.HandlerFunc
	Request     = environments.Request
	Reply       = environments.Reply
	Status      = environments.Status
	Vars        = environments.Vars
)

const (
	AsCommand    = interp.AsCommand
	AsFunction   = interp.AsFunction
	AsSubroutine = interp.AsSubroutine
)

const (
	ExitSIO = interp.ExitSIO
	ExitCMD = interp.ExitCMD
	ExitINI = interp.ExitINI
	ExitTER = interp.ExitTER
	ExitHLT = interp.ExitHLT
)

const (
	EventSay         = interp.EventSay
	EventTraceOutput = interp.EventTraceOutput
	EventPull        = interp.EventPull
	EventTraceInput  = interp.EventTraceInput
	EventCommand     = interp.EventCommand
	EventInit        = interp.EventInit
	EventTerm        = interp.EventTerm
	EventHaltTest    = interp.EventHaltTest
)

const (
	PoolFetch    = interp.PoolFetch
	PoolSet      = interp.PoolSet
	PoolDrop     = interp.PoolDrop
	PoolSymFetch = interp.PoolSymFetch
	PoolSymSet   = interp.PoolSymSet
	PoolSymDrop  = interp.PoolSymDrop
	PoolNext     = interp.PoolNext

	PoolNew       = interp.PoolNew
	PoolLast      = interp.PoolLast
	PoolTruncated = interp.PoolTruncated
	PoolBadName   = interp.PoolBadName
	PoolNoMemory  = interp.PoolNoMemory
)

const (
	OK      = environments.OK
	Error   = environments.Error
	Failure = environments.Failure
)

// ErrNotActive is returned by VariablePool when no program is running.
var ErrNotActive = interp.ErrNotActive

// Flags modify how Start runs a program.
type Flags uint

const (
	// TopLevel calls the INI and TER exits even when another program of
	// the session is running.
	TopLevel Flags = 1 << iota
	// VersionOnly returns the version string without running anything.
	VersionOnly
	// NoExtension uses the program name as given and keeps a leading "#!"
	// line.
	NoExtension
	// KeepExits leaves the registered exits in place next to those of the
	// invocation. Without it an invocation that has exits runs with only
	// those.
	KeepExits
	// KeepDigits runs the program with the NUMERIC settings of the running
	// program.
	KeepDigits
)

// Options configure a session.
type Options struct {
	DefaultEnv string   // initial ADDRESS environment, SYSTEM when empty
	Extension  string   // default extension of program files
	Path       []string // directories searched for programs
	Digits     int      // initial NUMERIC DIGITS
	Trace      string   // initial TRACE setting

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Shell     string // shell of the SYSTEM environment
	SQLDriver string
	SQLDSN    string

	Halter     Halter
	TraceInput func(prompt string) (string, error)
	Logger     *slog.Logger
}

// Session is the state programs share: environments, functions, exits,
// the data queue and open streams.
type Session struct {
	s *interp.Session
}

// New returns a session with the default environments registered.
func New(opts Options) *Session {
	return &Session{s: interp.NewSession(interp.Options{
		DefaultEnv: strings.ToUpper(opts.DefaultEnv),
		Extension:  opts.Extension,
		Path:       opts.Path,
		Digits:     opts.Digits,
		Trace:      opts.Trace,
		Stdin:      opts.Stdin,
		Stdout:     opts.Stdout,
		Stderr:     opts.Stderr,
		Environments: environments.Options{
			Shell:     opts.Shell,
			SQLDriver: opts.SQLDriver,
			SQLDSN:    opts.SQLDSN,
		},
		Halter:     opts.Halter,
		TraceInput: opts.TraceInput,
		Logger:     opts.Logger,
	})}
}

// Invocation describes a program for Start.
type Invocation struct {
	// Name is the program file. It is searched for like an external
	// routine unless NoExtension is set.
	Name string
	// Source, when not nil, is run instead of reading Name, which then
	// only names the program in messages.
	Source   []byte
	Args     []string
	Env      string // initial ADDRESS environment
	CallType CallType
	Flags    Flags
	Exits    map[ExitKind]Exit // exits for this invocation only
}

// Start runs a program. rc is 0 when the program completed, the negated
// error number when it ended with an untrapped condition and 3 when it
// could not be read. result is the value of EXIT or RETURN. err is only
// set when the program could not be started.
func (s *Session) Start(ctx context.Context, inv Invocation) (rc int, result string, err error) {
	if inv.Flags&VersionOnly != 0 {
		return 0, Version, nil
	}
	if inv.Name == "" && inv.Source == nil {
		return 3, "", errors.New("rexx: no program given")
	}

	var prog *lexer.Program
	path := inv.Name
	if inv.Source != nil {
		name := inv.Name
		if name == "" {
			name = "INSTORE"
		}
		prog, err = lexer.Tokenize(name, inv.Source, lexer.Options{KeepFirstLine: inv.Flags&NoExtension != 0})
		path = name
	} else {
		prog, path, err = s.s.LoadProgram(inv.Name, inv.Flags&NoExtension != 0)
	}
	if err != nil {
		code := s.s.ReportLoadError(path, err)
		if code == 3 {
			return code, "", fmt.Errorf("rexx: %w", err)
		}
		return code, "", nil
	}

	if len(inv.Exits) > 0 {
		restore := s.s.SwapExits(inv.Exits, inv.Flags&KeepExits != 0)
		defer restore()
	}

	run := interp.Invocation{
		Prog:     prog,
		Path:     path,
		Args:     make([]Arg, len(inv.Args)),
		Env:      strings.ToUpper(inv.Env),
		CallType: inv.CallType,
		Quiet:    s.s.Active() != nil && inv.Flags&TopLevel == 0,
	}
	for i, a := range inv.Args {
		run.Args[i] = Arg{Value: a, Exists: true}
	}
	if inv.Flags&KeepDigits != 0 {
		if c := s.s.Active(); c != nil {
			set := c.Numeric()
			run.Numeric = &set
		}
	}

	out, err := s.s.Run(ctx, run)
	if err != nil {
		return out.RC, "", err
	}
	return out.RC, out.Result, nil
}

// Close closes the streams and database connections of the session.
func (s *Session) Close() error { return s.s.Close() }

// VariablePool executes requests against the variables of the running
// program. It may only be called from a native function, an exit or an
// environment while a program runs.
func (s *Session) VariablePool(reqs []PoolRequest) (PoolStatus, error) {
	return s.s.VariablePool(reqs)
}

// RegisterEnvironment adds or replaces a subcommand environment.
func (s *Session) RegisterEnvironment(name string, h Handler) {
	s.s.Environments().Register(name, h)
}

// DeregisterEnvironment removes an environment and reports whether it
// existed.
func (s *Session) DeregisterEnvironment(name string) bool {
	return s.s.Environments().Deregister(name)
}

// QueryEnvironment reports whether an environment is registered.
func (s *Session) QueryEnvironment(name string) bool {
	return s.s.Environments().Query(name)
}

// RegisterFunction adds or replaces a native function.
func (s *Session) RegisterFunction(name string, fn NativeFunction) {
	s.s.RegisterFunction(name, fn)
}

// DeregisterFunction removes a native function and reports whether it
// existed.
func (s *Session) DeregisterFunction(name string) bool {
	return s.s.DeregisterFunction(name)
}

// QueryFunction reports whether a native function is registered.
func (s *Session) QueryFunction(name string) bool {
	return s.s.QueryFunction(name)
}

// RegisterExit installs the handler for an exit kind.
func (s *Session) RegisterExit(kind ExitKind, h Exit) {
	s.s.RegisterExit(kind, h)
}

// DeregisterExit removes the handler for an exit kind.
func (s *Session) DeregisterExit(kind ExitKind) bool {
	return s.s.DeregisterExit(kind)
}

// QueryExit reports whether a handler is installed for an exit kind.
func (s *Session) QueryExit(kind ExitKind) bool {
	return s.s.QueryExit(kind)
}

// Queued returns the number of lines on the session's data queue.
func (s *Session) Queued() int { return s.s.Queue().Len() }

// Pull removes the first line of the data queue.
func (s *Session) Pull() (string, bool) { return s.s.Queue().Pull() }

// Queue adds a line to the end of the data queue.
func (s *Session) Queue(line string) { s.s.Queue().Append(line) }

// Shell returns a line-at-a-time runner over a single context, as used by
// interactive hosts.
func (s *Session) Shell(ctx context.Context, env string) *interp.Shell {
	return s.s.NewShell(ctx, strings.ToUpper(env))
}
