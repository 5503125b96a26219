package builtins

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rexx/internal/calc"
	"rexx/internal/condition"
	"rexx/internal/numeric"
	"rexx/internal/streams"
	"rexx/internal/trace"
)

type fakeCaller struct {
	set      numeric.Settings
	args     []string
	vars     map[string]string
	info     *condition.Info
	lines    []string
	tr       trace.Setting
	streams  *streams.Table
	notReady []string
	now      time.Time
}

func newFake() *fakeCaller {
	var out bytes.Buffer
	return &fakeCaller{
		set:     numeric.Default(),
		vars:    map[string]string{},
		tr:      trace.Default(),
		streams: streams.NewTable(strings.NewReader(""), &out, &out),
		now:     time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC),
	}
}

func (f *fakeCaller) Numeric() numeric.Settings { return f.set }

func (f *fakeCaller) Arg(i int) (string, bool) {
	if i > len(f.args) {
		return "", false
	}
	return f.args[i-1], true
}

func (f *fakeCaller) ArgCount() int { return len(f.args) }

func (f *fakeCaller) Var(symbol string) (string, bool) {
	v, ok := f.vars[symbol]
	if !ok {
		return symbol, false
	}
	return v, true
}

func (f *fakeCaller) SetVar(symbol, value string) error {
	f.vars[symbol] = value
	return nil
}

func (f *fakeCaller) Condition() *condition.Info { return f.info }

func (f *fakeCaller) SourceLine(n int) (string, int) {
	if n == 0 {
		return "", len(f.lines)
	}
	return f.lines[n-1], len(f.lines)
}

func (f *fakeCaller) Trace() trace.Setting { return f.tr }

func (f *fakeCaller) SetTrace(s string) error {
	t, err := trace.Parse(f.tr, s)
	if err != nil {
		return err
	}
	f.tr = t
	return nil
}

func (f *fakeCaller) Address() string { return "SYSTEM" }
func (f *fakeCaller) Queued() int { return 2 }
func (f *fakeCaller) Streams() *streams.Table { return f.streams }
func (f *fakeCaller) NotReady(stream string) { f.notReady = append(f.notReady, stream) }
func (f *fakeCaller) Now() time.Time { return f.now }
func (f *fakeCaller) Elapsed(reset bool) float64 { return 1.5 }

// omit stands for an omitted argument.
const omit = "\x00omitted"

func call(c Caller, name string, args ...string) (string, error) {
	b, ok := Lookup(name)
	if !ok {
		return "", errors.New("no builtin " + name)
	}
	s := calc.New()
	for _, a := range args {
		if a == omit {
			s.PushOmitted()
		} else {
			s.Push(a)
		}
	}
	return b.Call(c, s.Args(len(args)))
}

type builtinCase struct {
	name     string
	args     []string
	expected string
}

func runCases(t *testing.T, c Caller, cases []builtinCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name+"("+strings.Join(tc.args, ",")+")", func(t *testing.T) {
			got, err := call(c, tc.name, tc.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestStrings(t *testing.T) {
	runCases(t, newFake(), []builtinCase{
		{"ABBREV", []string{"PRINT", "PRI"}, "1"},
		{"ABBREV", []string{"PRINT", "PRY"}, "0"},
		{"ABBREV", []string{"PRINT", "P", "2"}, "0"},
		{"CENTER", []string{"ab", "6", "*"}, "**ab**"},
		{"CENTRE", []string{"abcdef", "2"}, "cd"},
		{"CHANGESTR", []string{"a", "banana", "o"}, "bonono"},
		{"COMPARE", []string{"abc", "abd"}, "3"},
		{"COMPARE", []string{"ab ", "ab"}, "0"},
		{"COPIES", []string{"ab", "3"}, "ababab"},
		{"COUNTSTR", []string{"an", "banana"}, "2"},
		{"DELSTR", []string{"abcdef", "3", "2"}, "abef"},
		{"DELSTR", []string{"abcdef", "3"}, "ab"},
		{"DELWORD", []string{"now is the time", "2", "2"}, "now time"},
		{"INSERT", []string{"xy", "abc", "1"}, "axybc"},
		{"INSERT", []string{"xy", "abc", "5", omit, "-"}, "abc--xy"},
		{"LASTPOS", []string{"b", "abcb"}, "4"},
		{"LEFT", []string{"abc", "5"}, "abc  "},
		{"LENGTH", []string{"hello"}, "5"},
		{"OVERLAY", []string{"xy", "abcdef", "3"}, "abxyef"},
		{"POS", []string{"b", "abcb"}, "2"},
		{"POS", []string{"b", "abcb", "3"}, "4"},
		{"POS", []string{"z", "abcb"}, "0"},
		{"REVERSE", []string{"abc"}, "cba"},
		{"RIGHT", []string{"abc", "2"}, "bc"},
		{"RIGHT", []string{"7", "3", "0"}, "007"},
		{"SPACE", []string{"  a   b "}, "a b"},
		{"SPACE", []string{"a b c", "0"}, "abc"},
		{"STRIP", []string{"  a  ", "L"}, "a  "},
		{"STRIP", []string{"xxaxx", "B", "x"}, "a"},
		{"SUBSTR", []string{"abc", "2"}, "bc"},
		{"SUBSTR", []string{"abc", "2", "4", "."}, "bc.."},
		{"SUBWORD", []string{"now is the time", "2", "2"}, "is the"},
		{"TRANSLATE", []string{"abc"}, "ABC"},
		{"TRANSLATE", []string{"abc", "xy", "ab"}, "xyc"},
		{"VERIFY", []string{"123a", "0123456789"}, "4"},
		{"VERIFY", []string{"123", "0123456789"}, "0"},
		{"VERIFY", []string{"ab1", "0123456789", "M"}, "3"},
		{"WORD", []string{"a b  c", "3"}, "c"},
		{"WORDINDEX", []string{"a bb  c", "3"}, "7"},
		{"WORDLENGTH", []string{"a bb  c", "2"}, "2"},
		{"WORDPOS", []string{"the time", "now is the time"}, "3"},
		{"WORDS", []string{" one two three "}, "3"},
		{"XRANGE", []string{"a", "e"}, "abcde"},
	})
}

func TestNumbers(t *testing.T) {
	runCases(t, newFake(), []builtinCase{
		{"ABS", []string{"-3.5"}, "3.5"},
		{"SIGN", []string{"-2"}, "-1"},
		{"SIGN", []string{"0.0"}, "0"},
		{"MAX", []string{"1", "3", "2"}, "3"},
		{"MIN", []string{"1", "-3", "2"}, "-3"},
		{"TRUNC", []string{"12.345", "2"}, "12.34"},
		{"TRUNC", []string{"12.7"}, "12"},
		{"TRUNC", []string{"-0.5"}, "0"},
		{"FORMAT", []string{"3.14159", omit, "2"}, "3.14"},
		{"FORMAT", []string{"12", "4"}, "  12"},
		{"FORMAT", []string{"1.5", omit, "0"}, "2"},
		{"FORMAT", []string{"12345.73", omit, omit, "2", "2"}, "1.234573E+04"},
		{"DATATYPE", []string{"12"}, "NUM"},
		{"DATATYPE", []string{"ab"}, "CHAR"},
		{"DATATYPE", []string{"ab", "U"}, "0"},
		{"DATATYPE", []string{"AB", "U"}, "1"},
		{"DATATYPE", []string{"12.5", "W"}, "0"},
		{"DATATYPE", []string{"ff 00", "X"}, "1"},
		{"DATATYPE", []string{"102", "B"}, "0"},
		{"DATATYPE", []string{"A.B", "S"}, "1"},
		{"DIGITS", nil, "9"},
		{"FORM", nil, "SCIENTIFIC"},
	})
}

func TestRandomSeed(t *testing.T) {
	c := newFake()
	first, err := call(c, "RANDOM", "1", "100", "42")
	if err != nil {
		t.Fatal(err)
	}
	second, err := call(c, "RANDOM", "1", "100", "42")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("expected the same value for the same seed, got %s and %s", first, second)
	}
	if _, err := call(c, "RANDOM", "0", "200000"); err == nil {
		t.Errorf("expected an error for a range that is too large")
	}
}

func TestConversions(t *testing.T) {
	runCases(t, newFake(), []builtinCase{
		{"C2X", []string{"ab"}, "6162"},
		{"X2C", []string{"6162"}, "ab"},
		{"X2C", []string{"61 62"}, "ab"},
		{"B2X", []string{"11111"}, "1F"},
		{"X2B", []string{"F1"}, "11110001"},
		{"C2D", []string{"a"}, "97"},
		{"C2D", []string{"\xff", "1"}, "-1"},
		{"D2C", []string{"97"}, "a"},
		{"D2X", []string{"255"}, "FF"},
		{"D2X", []string{"-1", "4"}, "FFFF"},
		{"X2D", []string{"FF"}, "255"},
		{"X2D", []string{"FF", "2"}, "-1"},
		{"BITAND", []string{"\x73", "\x27"}, "\x23"},
		{"BITOR", []string{"\x15", "\x24"}, "\x35"},
		{"BITXOR", []string{"\x12", "\x22"}, "\x30"},
	})
}

func TestSystem(t *testing.T) {
	c := newFake()
	c.args = []string{"first"}
	c.vars["X"] = "5"
	c.lines = []string{"say 1", "exit"}
	runCases(t, c, []builtinCase{
		{"ARG", nil, "1"},
		{"ARG", []string{"1"}, "first"},
		{"ARG", []string{"2", "E"}, "0"},
		{"ARG", []string{"2", "O"}, "1"},
		{"ADDRESS", nil, "SYSTEM"},
		{"CONDITION", nil, ""},
		{"ERRORTEXT", []string{"16"}, condition.Message(16)},
		{"QUEUED", nil, "2"},
		{"SOURCELINE", nil, "2"},
		{"SOURCELINE", []string{"2"}, "exit"},
		{"SYMBOL", []string{"x"}, "VAR"},
		{"SYMBOL", []string{"y"}, "LIT"},
		{"SYMBOL", []string{"12"}, "LIT"},
		{"SYMBOL", []string{"a+b"}, "BAD"},
		{"VALUE", []string{"x"}, "5"},
		{"DATE", []string{"S"}, "20240305"},
		{"DATE", nil, "5 Mar 2024"},
		{"DATE", []string{"W"}, "Tuesday"},
		{"DATE", []string{"U"}, "03/05/24"},
		{"TIME", nil, "14:07:09"},
		{"TIME", []string{"C"}, "2:07pm"},
		{"TIME", []string{"M"}, "847"},
		{"TIME", []string{"E"}, "1.500000"},
	})

	if old, err := call(c, "VALUE", "x", "7"); err != nil || old != "5" || c.vars["X"] != "7" {
		t.Errorf("expected VALUE to return 5 and assign 7, got %q %v %q", old, err, c.vars["X"])
	}
	if old, err := call(c, "TRACE", "R"); err != nil || old != "N" || c.tr.Option != 'R' {
		t.Errorf("expected TRACE to switch from N to R, got %q %v", old, err)
	}
	c.info = &condition.Info{Kind: condition.ErrorCondition, Mode: condition.CallMode, Description: "cmd", Status: "ON"}
	if v, _ := call(c, "CONDITION", "C"); v != "ERROR" {
		t.Errorf("expected ERROR, got %q", v)
	}
	if v, _ := call(c, "CONDITION"); v != "CALL" {
		t.Errorf("expected CALL, got %q", v)
	}
}

func TestStreamFunctions(t *testing.T) {
	c := newFake()
	name := filepath.Join(t.TempDir(), "data.txt")
	for _, line := range []string{"one", "two"} {
		if v, err := call(c, "LINEOUT", name, line); err != nil || v != "0" {
			t.Fatalf("LINEOUT: %q %v", v, err)
		}
	}
	if _, err := call(c, "LINEOUT", name); err != nil {
		t.Fatal(err)
	}
	runCases(t, c, []builtinCase{
		{"LINES", []string{name, "C"}, "2"},
		{"LINEIN", []string{name}, "one"},
		{"LINEIN", []string{name}, "two"},
		{"LINES", []string{name}, "0"},
		{"STREAM", []string{name}, "READY"},
	})

	if v, err := call(c, "LINEIN", name); err != nil || v != "" {
		t.Errorf("expected an empty line at end of file, got %q %v", v, err)
	}
	if len(c.notReady) != 1 || c.notReady[0] != name {
		t.Errorf("expected NOTREADY for %s, got %v", name, c.notReady)
	}
	if v, _ := call(c, "STREAM", name, "D"); v != "NOTREADY:EOF" {
		t.Errorf("expected NOTREADY:EOF, got %q", v)
	}

	missing := filepath.Join(t.TempDir(), "missing.txt")
	if _, err := os.Stat(missing); err == nil {
		t.Fatal("missing file exists")
	}
	if v, err := call(c, "LINEIN", missing); err != nil || v != "" {
		t.Errorf("expected an empty result for a missing file, got %q %v", v, err)
	}
}

func TestArgumentChecks(t *testing.T) {
	c := newFake()
	cases := []struct {
		name string
		args []string
	}{
		{"LENGTH", nil},
		{"LENGTH", []string{"a", "b"}},
		{"SUBSTR", []string{"abc", "0"}},
		{"LEFT", []string{"abc", "x"}},
		{"STRIP", []string{"a", "Q"}},
		{"ABS", []string{"abc"}},
		{"X2C", []string{"zz"}},
		{"D2X", []string{"-1"}},
		{"FORMAT", []string{"12345", "2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := call(c, tc.name, tc.args...)
			var cerr *condition.Error
			if !errors.As(err, &cerr) || cerr.Code != 40 {
				t.Errorf("expected error 40, got %v", err)
			}
		})
	}
}
