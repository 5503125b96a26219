package rexx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newSession(opts Options) (*Session, *bytes.Buffer, *bytes.Buffer) {
	var out, errs bytes.Buffer
	opts.Stdin = strings.NewReader("")
	opts.Stdout = &out
	opts.Stderr = &errs
	return New(opts), &out, &errs
}

func TestStart(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.rexx"), []byte("#!/usr/bin/env rexx\nparse arg who\nsay 'hello' who\nreturn length(who)\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		inv    Invocation
		rc     int
		result string
		out    string
		err    bool
		stderr string
	}{
		{
			name:   "inline source",
			inv:    Invocation{Source: []byte("say 'hi'; exit 5")},
			result: "5",
			out:    "hi\n",
		},
		{
			name:   "file found on the path",
			inv:    Invocation{Name: "hello", Args: []string{"world"}},
			result: "5",
			out:    "hello world\n",
		},
		{
			name:   "exact file name",
			inv:    Invocation{Name: filepath.Join(dir, "hello.rexx"), Args: []string{"x"}},
			result: "1",
			out:    "hello x\n",
		},
		{
			name:   "novalue trapped without a label",
			inv:    Invocation{Source: []byte("signal on novalue; say x; exit 1")},
			result: "1",
			out:    "X\n",
		},
		{
			name:   "untrapped syntax error",
			inv:    Invocation{Source: []byte("say 1 +")},
			rc:     -35,
			stderr: "Error 35",
		},
		{
			name:   "tokenizer error",
			inv:    Invocation{Name: "bad", Source: []byte("say 'open")},
			rc:     -6,
			stderr: "Error 6 running \"bad\"",
		},
		{
			name:   "missing program",
			inv:    Invocation{Name: "no-such-program"},
			rc:     3,
			err:    true,
			stderr: "Error 3",
		},
		{
			name:   "version only",
			inv:    Invocation{Name: "ignored", Flags: VersionOnly},
			result: Version,
		},
		{
			name: "nothing to run",
			inv:  Invocation{},
			rc:   3,
			err:  true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, out, errs := newSession(Options{Path: []string{dir}})
			defer s.Close()
			rc, result, err := s.Start(context.Background(), tc.inv)
			if (err != nil) != tc.err {
				t.Fatalf("err = %v", err)
			}
			if rc != tc.rc || result != tc.result {
				t.Fatalf("Start = %d, %q; want %d, %q (stderr %q)", rc, result, tc.rc, tc.result, errs.String())
			}
			if out.String() != tc.out {
				t.Fatalf("output = %q, want %q", out.String(), tc.out)
			}
			if !strings.Contains(errs.String(), tc.stderr) {
				t.Fatalf("stderr = %q, want %q", errs.String(), tc.stderr)
			}
		})
	}
}

func TestEnvironmentAndPool(t *testing.T) {
	s, out, _ := newSession(Options{})
	var got []string
	s.RegisterEnvironment("host", HandlerFunc(func(_ context.Context, req Request) Reply {
		reqs := []PoolRequest{
			{Op: PoolSymFetch, Name: "x"},
			{Op: PoolSet, Name: "Y", Value: strings.ToUpper(req.Command)},
		}
		if _, err := s.VariablePool(reqs); err != nil {
			return Reply{RC: "-1", Status: Failure}
		}
		got = append(got, req.Env, reqs[0].Value)
		return Reply{RC: "0", Status: OK}
	}))
	if !s.QueryEnvironment("HOST") {
		t.Fatal("environment not registered")
	}

	rc, _, err := s.Start(context.Background(), Invocation{Source: []byte("x = 'abc'\naddress host 'go'\nsay y rc")})
	if err != nil || rc != 0 {
		t.Fatalf("Start = %d, %v", rc, err)
	}
	if out.String() != "GO 0\n" {
		t.Fatalf("output = %q", out.String())
	}
	if strings.Join(got, ",") != "HOST,abc" {
		t.Fatalf("handler saw %v", got)
	}
	if _, err := s.VariablePool([]PoolRequest{{Op: PoolFetch, Name: "X"}}); err != ErrNotActive {
		t.Fatalf("err = %v, want ErrNotActive", err)
	}
	if !s.DeregisterEnvironment("host") || s.QueryEnvironment("host") {
		t.Fatal("environment not removed")
	}
}

func TestInvocationExits(t *testing.T) {
	cases := []struct {
		name  string
		flags Flags
		inits int
	}{
		{"registered exits suspended", 0, 0},
		{"registered exits kept", KeepExits, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, out, _ := newSession(Options{})
			inits := 0
			s.RegisterExit(ExitINI, ExitFunc(func(context.Context, ExitRequest) ExitReply {
				inits++
				return ExitReply{Handled: true}
			}))
			var said []string
			sio := ExitFunc(func(_ context.Context, req ExitRequest) ExitReply {
				if req.Event != EventSay {
					return ExitReply{}
				}
				said = append(said, req.Text)
				return ExitReply{Handled: true}
			})
			_, _, err := s.Start(context.Background(), Invocation{
				Source: []byte("say 'captured'"),
				Flags:  tc.flags,
				Exits:  map[ExitKind]Exit{ExitSIO: sio},
			})
			if err != nil {
				t.Fatal(err)
			}
			if inits != tc.inits {
				t.Fatalf("INI called %d times, want %d", inits, tc.inits)
			}
			if out.Len() != 0 || strings.Join(said, "|") != "captured" {
				t.Fatalf("output %q, exit saw %v", out.String(), said)
			}
			if s.QueryExit(ExitSIO) {
				t.Fatal("invocation exit left installed")
			}
			if !s.QueryExit(ExitINI) {
				t.Fatal("registered exit not restored")
			}
		})
	}
}

func TestNestedStart(t *testing.T) {
	cases := []struct {
		name  string
		flags Flags
		want  string
		inits int
	}{
		{"default digits", 0, "9", 1},
		{"caller digits", KeepDigits, "20", 1},
		{"top level", TopLevel, "9", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, out, errs := newSession(Options{})
			inits := 0
			s.RegisterExit(ExitINI, ExitFunc(func(context.Context, ExitRequest) ExitReply {
				inits++
				return ExitReply{Handled: true}
			}))
			s.RegisterFunction("inner", func(ctx context.Context, _ string, _ []Arg) (string, bool, error) {
				_, result, err := s.Start(ctx, Invocation{
					Source:   []byte("return digits()"),
					CallType: AsFunction,
					Flags:    tc.flags | KeepExits,
				})
				return result, err == nil, err
			})
			rc, _, err := s.Start(context.Background(), Invocation{Source: []byte("numeric digits 20\nsay inner()")})
			if err != nil || rc != 0 {
				t.Fatalf("Start = %d, %v: %s", rc, err, errs.String())
			}
			if out.String() != tc.want+"\n" {
				t.Fatalf("output = %q, want %q", out.String(), tc.want)
			}
			if inits != tc.inits {
				t.Fatalf("INI called %d times, want %d", inits, tc.inits)
			}
		})
	}
}

func TestFunctionRegistration(t *testing.T) {
	s, out, _ := newSession(Options{})
	s.RegisterFunction("greet", func(_ context.Context, name string, args []Arg) (string, bool, error) {
		return name + " " + args[0].Value, true, nil
	})
	if !s.QueryFunction("GREET") {
		t.Fatal("function not registered")
	}
	if _, _, err := s.Start(context.Background(), Invocation{Source: []byte("say greet('you')")}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "GREET you\n" {
		t.Fatalf("output = %q", out.String())
	}
	if !s.DeregisterFunction("greet") || s.QueryFunction("greet") {
		t.Fatal("function not removed")
	}
	if err := s.RegisterFunctionFromLibrary("f", filepath.Join(t.TempDir(), "none.so"), "F"); err == nil {
		t.Fatal("expected an error for a missing library")
	}
}

func TestNativeFunctionSymbol(t *testing.T) {
	f := func(context.Context, string, []Arg) (string, bool, error) { return "ok", true, nil }
	nf := NativeFunction(f)
	var nilFn NativeFunction
	cases := []struct {
		name string
		sym  any
		ok   bool
	}{
		{"func", f, true},
		{"named func", nf, true},
		{"pointer to variable", &nf, true},
		{"nil variable", &nilFn, false},
		{"other", 42, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fn, err := nativeFunction(tc.sym)
			if (err == nil) != tc.ok {
				t.Fatalf("err = %v", err)
			}
			if tc.ok {
				if r, _, _ := fn(context.Background(), "", nil); r != "ok" {
					t.Fatalf("result = %q", r)
				}
			}
		})
	}
}

func TestQueue(t *testing.T) {
	s, out, _ := newSession(Options{})
	s.Queue("from host")
	if _, _, err := s.Start(context.Background(), Invocation{Source: []byte("pull a\nsay a\nqueue 'back'")}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "FROM HOST\n" {
		t.Fatalf("output = %q", out.String())
	}
	if s.Queued() != 1 {
		t.Fatalf("Queued = %d", s.Queued())
	}
	if l, ok := s.Pull(); !ok || l != "back" {
		t.Fatalf("Pull = %q, %v", l, ok)
	}
}
