package streams

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func ptr(s string) *string { return &s }

func TestFileLines(t *testing.T) {
	var out bytes.Buffer
	tab := NewTable(strings.NewReader(""), &out, &out)
	name := filepath.Join(t.TempDir(), "data.txt")

	for _, line := range []string{"one", "two", "three"} {
		if n, err := tab.LineOut(name, ptr(line), 0); err != nil || n != 0 {
			t.Fatalf("lineout %q: %d %v", line, n, err)
		}
	}
	if got := tab.Lines(name, true); got != 3 {
		t.Errorf("expected 3 lines, got %d", got)
	}
	if got := tab.Lines(name, false); got != 1 {
		t.Errorf("expected 1 in normal mode, got %d", got)
	}

	cases := []string{"one", "two", "three"}
	for _, expected := range cases {
		got, err := tab.LineIn(name, 0, 1)
		if err != nil || got != expected {
			t.Errorf("expected %q, got %q %v", expected, got, err)
		}
	}
	if _, err := tab.LineIn(name, 0, 1); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected NOTREADY at end of file, got %v", err)
	}
	if got := tab.Description(name); got != "NOTREADY:EOF" {
		t.Errorf("unexpected description %q", got)
	}

	if got, _ := tab.LineIn(name, 2, 1); got != "two" {
		t.Errorf("expected to reposition to line 2, got %q", got)
	}
	if got := tab.Chars(name); got != len("three\n") {
		t.Errorf("expected remaining characters, got %d", got)
	}
	if got, _ := tab.CharIn(name, 1, 3); got != "one" {
		t.Errorf("expected charin from start, got %q", got)
	}
	if tab.State(name) != Ready {
		t.Errorf("expected READY after a successful read")
	}

	if res, err := tab.Command(name, "query size"); err != nil || res != "14" {
		t.Errorf("expected size 14, got %q %v", res, err)
	}
	if res, _ := tab.Command(name, "query exists"); !strings.HasSuffix(res, "data.txt") {
		t.Errorf("expected existing path, got %q", res)
	}
	if res, _ := tab.Command(name, "close"); res != "READY:" {
		t.Errorf("unexpected close result %q", res)
	}
	if tab.State(name) != Unknown {
		t.Errorf("expected closed stream to be unknown")
	}
}

func TestOverwriteLine(t *testing.T) {
	var out bytes.Buffer
	tab := NewTable(strings.NewReader(""), &out, &out)
	name := filepath.Join(t.TempDir(), "f.txt")
	tab.LineOut(name, ptr("aaa"), 0)
	tab.LineOut(name, ptr("bbb"), 0)
	tab.LineOut(name, ptr("AAA"), 1)
	if got, _ := tab.LineIn(name, 1, 1); got != "AAA" {
		t.Errorf("expected overwritten first line, got %q", got)
	}
	if got, _ := tab.LineIn(name, 0, 1); got != "bbb" {
		t.Errorf("expected second line kept, got %q", got)
	}
}

func TestStandardStreams(t *testing.T) {
	var out, errOut bytes.Buffer
	tab := NewTable(strings.NewReader("first\nsecond\n"), &out, &errOut)

	if got, _ := tab.LineIn("", 0, 1); got != "first" {
		t.Errorf("expected first line of stdin, got %q", got)
	}
	if tab.Lines("stdin", false) != 1 {
		t.Errorf("expected more input")
	}
	tab.LineIn("STDIN", 0, 1)
	if tab.Lines("", false) != 0 {
		t.Errorf("expected stdin exhausted")
	}

	tab.LineOut("", ptr("hello"), 0)
	tab.CharOut("stderr", ptr("oops"), 0)
	if out.String() != "hello\n" || errOut.String() != "oops" {
		t.Errorf("unexpected output %q %q", out.String(), errOut.String())
	}
}

func TestMissingFile(t *testing.T) {
	var out bytes.Buffer
	tab := NewTable(strings.NewReader(""), &out, &out)
	name := filepath.Join(t.TempDir(), "missing")
	if _, err := tab.LineIn(name, 0, 1); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected NOTREADY, got %v", err)
	}
	if tab.Lines(name, false) != 0 {
		t.Errorf("expected no lines")
	}
	if res, _ := tab.Command(name, "query exists"); res != "" {
		t.Errorf("expected empty result, got %q", res)
	}
}
