package environments

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

type mapVars map[string]string

func (m mapVars) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func (m mapVars) Set(name, value string) error {
	m[name] = value
	return nil
}

func (m mapVars) Drop(name string) error {
	for k := range m {
		if strings.HasPrefix(k, name) {
			delete(m, k)
		}
	}
	return nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var out bytes.Buffer
	Defaults(r, Options{}, Stdio{Out: &out, Err: &out})
	for _, name := range []string{"system", "COMMAND", "sh", "rexx", "SQLITE", "MySQL", "postgres", "SQL"} {
		if !r.Query(name) {
			t.Errorf("expected %s to be registered", name)
		}
	}
	if !r.Deregister("sh") || r.Query("SH") {
		t.Errorf("expected SH to be removed")
	}
	r.Register("EDIT", HandlerFunc(func(_ context.Context, req Request) Reply {
		return Reply{RC: "0", Output: req.Command}
	}))
	h, ok := r.Lookup("edit")
	if !ok || h.Handle(context.Background(), Request{Command: "top"}).Output != "top" {
		t.Errorf("expected custom handler to be found")
	}
}

func TestShell(t *testing.T) {
	var out bytes.Buffer
	sh := &Shell{Stdio: Stdio{Out: &out, Err: &out}}
	cases := []struct {
		name    string
		command string
		rc      string
		status  Status
	}{
		{"success", "echo hello", "0", OK},
		{"error", "exit 3", "3", Error},
		{"not found", "no-such-command-here", "127", Failure},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rep := sh.Handle(context.Background(), Request{Env: "SYSTEM", Command: c.command})
			if rep.RC != c.rc || rep.Status != c.status {
				t.Errorf("expected rc %s status %v, got %s %v", c.rc, c.status, rep.RC, rep.Status)
			}
		})
	}
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("expected command output, got %q", out.String())
	}
}

func TestBuiltinShell(t *testing.T) {
	var out bytes.Buffer
	b := &Builtin{Stdio: Stdio{Out: &out}}
	if rep := b.Handle(context.Background(), Request{Command: "echo  hi there"}); rep.Status != OK {
		t.Fatalf("unexpected status %v", rep.Status)
	}
	if out.String() != "hi there\n" {
		t.Errorf("unexpected echo output %q", out.String())
	}
	if rep := b.Handle(context.Background(), Request{Command: "exit 4"}); rep.RC != "4" || rep.Status != Error {
		t.Errorf("unexpected exit reply %+v", rep)
	}
	if rep := b.Handle(context.Background(), Request{Command: "frobnicate"}); rep.Status != Failure {
		t.Errorf("expected failure for unknown command, got %+v", rep)
	}
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	s := NewSQL("sqlite3", "")
	defer s.Close()
	vars := mapVars{}

	if rep := s.Handle(ctx, Request{Command: "select 1", Vars: vars}); rep.Status != Failure {
		t.Fatalf("expected failure before connecting, got %+v", rep)
	}

	steps := []struct {
		command string
		rc      string
	}{
		{"CONNECT file::memory:", "0"},
		{"create table people (name text, age integer)", "0"},
		{"begin", "0"},
		{"insert into people values ('ann', 31), ('bob', 42)", "2"},
		{"commit", "0"},
		{"select name, age from people order by age", "0"},
	}
	for _, step := range steps {
		rep := s.Handle(ctx, Request{Env: "SQLITE", Command: step.command, Vars: vars})
		if rep.Status != OK || rep.RC != step.rc {
			t.Fatalf("%s: expected rc %s, got %+v", step.command, step.rc, rep)
		}
	}

	expected := map[string]string{
		"SQLROWS.0":       "2",
		"SQLROWS.COLUMNS": "NAME AGE",
		"SQLROWS.1.NAME":  "ann",
		"SQLROWS.2.AGE":   "42",
	}
	for k, v := range expected {
		if vars[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, vars[k])
		}
	}

	if rep := s.Handle(ctx, Request{Command: "select * from missing", Vars: vars}); rep.Status != Error {
		t.Errorf("expected ERROR for a bad statement, got %+v", rep)
	}
	if rep := s.Handle(ctx, Request{Command: "commit", Vars: vars}); rep.Status != Error {
		t.Errorf("expected ERROR for commit without transaction, got %+v", rep)
	}
}
