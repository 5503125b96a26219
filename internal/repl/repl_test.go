package repl

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/peterh/liner"

	"rexx/internal/interp"
)

type script struct {
	lines   []string
	prompts []string
	history []string
}

func (s *script) Prompt(p string) (string, error) {
	s.prompts = append(s.prompts, p)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	if l == "^C" {
		return "", liner.ErrPromptAborted
	}
	return l, nil
}

func (s *script) AppendHistory(item string) { s.history = append(s.history, item) }

func TestRun(t *testing.T) {
	cases := []struct {
		name    string
		lines   []string
		want    string
		result  string
		history int
	}{
		{
			name:    "variables persist",
			lines:   []string{"a = 2", "say a * 21"},
			want:    "42\n\n",
			history: 2,
		},
		{
			name:    "continuation",
			lines:   []string{"say 'a',", "'b'"},
			want:    "a b\n\n",
			history: 1,
		},
		{
			name:    "abort discards partial input",
			lines:   []string{"say 'x',", "^C", "say 'y'"},
			want:    "y\n\n",
			history: 1,
		},
		{
			name:    "exit ends the loop",
			lines:   []string{"exit 7", "say 'never'"},
			result:  "7",
			history: 1,
		},
		{
			name:  "blank lines are skipped",
			lines: []string{"", "   "},
			want:  "\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			s := interp.NewSession(interp.Options{
				DefaultEnv: "SYSTEM",
				Stdin:      strings.NewReader(""),
				Stdout:     &out,
				Stderr:     &out,
			})
			in := &script{lines: tc.lines}
			r := WithReader(in, &out)
			o, err := r.Run(s.NewShell(context.Background(), ""))
			if err != nil {
				t.Fatal(err)
			}
			if got := out.String(); got != tc.want {
				t.Fatalf("output = %q, want %q", got, tc.want)
			}
			if o.Result != tc.result {
				t.Fatalf("result = %q, want %q", o.Result, tc.result)
			}
			if len(in.history) != tc.history {
				t.Fatalf("history = %q", in.history)
			}
		})
	}
}

func TestTraceInput(t *testing.T) {
	in := &script{lines: []string{"say 1", "^C"}}
	r := WithReader(in, io.Discard)
	if l, err := r.TraceInput(""); err != nil || l != "say 1" {
		t.Fatalf("TraceInput = %q, %v", l, err)
	}
	if l, err := r.TraceInput(""); err != nil || l != "" {
		t.Fatalf("aborted TraceInput = %q, %v", l, err)
	}
	if _, err := r.TraceInput(""); err != io.EOF {
		t.Fatalf("err = %v, want EOF", err)
	}
	if in.prompts[0] != TRACEPROMPT {
		t.Fatalf("prompt = %q", in.prompts[0])
	}
}
