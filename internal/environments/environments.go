// Package environments holds the subcommand environments that receive the
// clauses a program does not recognise as instructions.
package environments

import (
	"context"
	"strings"

	"rexx/internal/hashtab"
)

// Status classifies the outcome of a command. Error and Failure raise the
// ERROR and FAILURE conditions.
type Status int

const (
	OK Status = iota
	Error
	Failure
)

func (s Status) String() string {
	switch s {
	case Error:
		return "ERROR"
	case Failure:
		return "FAILURE"
	}
	return "OK"
}

// Vars gives a handler access to the caller's variables.
type Vars interface {
	Get(name string) (string, bool)
	Set(name, value string) error
	Drop(name string) error
}

// Request is a command sent to an environment.
type Request struct {
	Env     string
	Command string
	Vars    Vars
}

// Reply is the answer of an environment. RC becomes the value of the RC
// variable.
type Reply struct {
	RC     string
	Status Status
	Output string
}

// Handler executes commands for an environment.
type Handler interface {
	Handle(ctx context.Context, req Request) Reply
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) Reply

func (f HandlerFunc) Handle(ctx context.Context, req Request) Reply { return f(ctx, req) }

// Closer is implemented by handlers holding resources.
type Closer interface {
	Close() error
}

// Registry maps environment names to handlers.
type Registry struct {
	table *hashtab.Table[Handler]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{table: hashtab.New[Handler]()}
}

func key(name string) string { return strings.ToUpper(name) }

// Register adds or replaces the handler for name.
func (r *Registry) Register(name string, h Handler) {
	r.table.Insert(key(name), h)
}

// Deregister removes name and reports whether it was registered.
func (r *Registry) Deregister(name string) bool {
	return r.table.Delete(key(name))
}

// Query reports whether name is registered.
func (r *Registry) Query(name string) bool {
	_, ok := r.table.Get(key(name))
	return ok
}

// Lookup returns the handler for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	return r.table.Get(key(name))
}

// Close releases every handler that holds resources.
func (r *Registry) Close() error {
	var first error
	r.table.Each(func(_ string, h Handler) bool {
		if c, ok := h.(Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
		return true
	})
	return first
}

// Options configure the default environments.
type Options struct {
	Shell     string // shell used by SYSTEM, COMMAND and SH
	SQLDriver string // driver used by ADDRESS SQL
	SQLDSN    string // data source connected to on first use
}

// Defaults registers the standard environments.
func Defaults(r *Registry, opts Options, stdio Stdio) {
	shell := &Shell{Path: opts.Shell, Stdio: stdio}
	r.Register("SYSTEM", shell)
	r.Register("COMMAND", shell)
	r.Register("SH", shell)
	r.Register("REXX", &Builtin{Stdio: stdio})
	r.Register("SQLITE", NewSQL("sqlite3", ""))
	r.Register("MYSQL", NewSQL("mysql", ""))
	r.Register("POSTGRES", NewSQL("postgres", ""))
	driver := opts.SQLDriver
	if driver == "" {
		driver = "sqlite3"
	}
	r.Register("SQL", NewSQL(driver, opts.SQLDSN))
}
