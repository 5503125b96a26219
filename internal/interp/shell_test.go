package interp

import (
	"context"
	"strings"
	"testing"
)

func TestShell(t *testing.T) {
	s, out, errs := newTestSession(Options{DefaultEnv: "SYSTEM"})
	sh := s.NewShell(context.Background(), "")

	cases := []struct {
		line   string
		want   string
		failed bool
		done   bool
		result string
	}{
		{line: "x = 5"},
		{line: "say x * 2", want: "10\n"},
		{line: "say 'open", failed: true},
		{line: "say 1 +", failed: true},
		{line: "say x", want: "5\n"},
		{line: "do i = 1 to 2; say i; end", want: "1\n2\n"},
		{line: "exit x - 2", done: true, result: "3"},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			out.Reset()
			errs.Reset()
			o, done, err := sh.Line(tc.line)
			if err != nil {
				t.Fatal(err)
			}
			if got := out.String(); got != tc.want {
				t.Fatalf("output = %q, want %q", got, tc.want)
			}
			if tc.failed != (o.RC < 0) {
				t.Fatalf("RC = %d", o.RC)
			}
			if tc.failed && !strings.Contains(errs.String(), "Error") {
				t.Fatalf("no error report: %q", errs.String())
			}
			if done != tc.done || o.Result != tc.result {
				t.Fatalf("done = %v, result = %q", done, o.Result)
			}
		})
	}
}
