package lexer

import (
	"errors"
	"reflect"
	"testing"

	"rexx/internal/token"
)

func clauses(p *Program) []string {
	out := make([]string, len(p.Stmts))
	for i := range p.Stmts {
		out[i] = p.Stmts[i].String()
	}
	return out
}

func TestClauses(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected []string
	}{
		{"semicolons and newlines", "a = 1; b = 2\nsay a", []string{"A=1", "B=2", "SAY A"}},
		{"then and else stand alone", "if a then say 1; else say 2", []string{"IF A", "THEN", "SAY 1", "ELSE", "SAY 2"}},
		{"otherwise stands alone", "select; when x then nop; otherwise say 'no'; end",
			[]string{"SELECT", "WHEN X", "THEN", "NOP", "OTHERWISE", "SAY 'no'", "END"}},
		{"continuation", "say 1,\n  2", []string{"SAY 1 2"}},
		{"nested comments", "say /* a /* b */ c */ 1", []string{"SAY 1"}},
		{"comment abuts", "say a/**/b", []string{"SAY A||B"}},
		{"operator blanks vanish", "x = a + b", []string{"X=A+B"}},
		{"concatenation blank kept", "say a   b", []string{"SAY A B"}},
		{"call versus concatenation", "say f(x) f (x)", []string{"SAY F(X) F (X)"}},
		{"operator across blanks", "say a | | b", []string{"SAY A||B"}},
		{"strict comparison", "if a \\== b then nop", []string{"IF A\\==B", "THEN", "NOP"}},
		{"exponent sign", "x = 1.5e+3 + 1", []string{"X=1.5E+3+1"}},
		{"keyword as variable", "to = 5; say to", []string{"TO=5", "SAY TO"}},
		{"do sub keywords", "do i = 1 to 3 by 1 for 2 while i < 9; end", []string{"DO I=1 TO 3 BY 1 FOR 2 WHILE I<9", "END"}},
		{"parse value with", "parse upper value 'a b' with x y", []string{"PARSE UPPER VALUE 'a b' WITH X Y"}},
		{"numeric form", "numeric form engineering", []string{"NUMERIC FORM ENGINEERING"}},
		{"signal on name", "signal on error name oops", []string{"SIGNAL ON ERROR NAME OOPS"}},
		{"doubled quotes", "say 'it''s'", []string{"SAY 'it''s'"}},
		{"shebang skipped", "#!/usr/bin/rexx\nsay 1", []string{"SAY 1"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := Tokenize("test", []byte(c.input), Options{})
			if err != nil {
				t.Fatalf("tokenize error: %v", err)
			}
			if got := clauses(p); !reflect.DeepEqual(got, c.expected) {
				t.Errorf("expected %q, got %q", c.expected, got)
			}
		})
	}
}

func TestKeywordCodes(t *testing.T) {
	p, err := Tokenize("test", []byte("do i = 1 to 3\nend"), Options{})
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}
	toks := p.Stmts[0].Tokens
	if toks[0] != token.DO {
		t.Errorf("expected DO code, got %v", toks[0])
	}
	found := false
	for _, c := range toks {
		if c == token.TO {
			found = true
		}
	}
	if !found {
		t.Errorf("expected TO keyword in %v", toks)
	}
	if p.Stmts[0].Related != 1 || p.Stmts[1].Related != 0 {
		t.Errorf("expected DO and END to be related, got %d and %d", p.Stmts[0].Related, p.Stmts[1].Related)
	}
}

func TestLabels(t *testing.T) {
	p, err := Tokenize("test", []byte("call x\nexit\nx: say 'hi'\nreturn\nend:"), Options{})
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}
	if i, ok := p.FindLabel("X"); !ok || i != 2 {
		t.Errorf("expected label X at statement 2, got %d %v", i, ok)
	}
	if i, ok := p.FindLabel("END"); !ok || i != 4 {
		t.Errorf("expected trailing label END at statement 4, got %d %v", i, ok)
	}
	if got := p.Stmts[2].String(); got != "SAY 'hi'" {
		t.Errorf("expected labelled statement, got %q", got)
	}
}

func TestLineNumbers(t *testing.T) {
	p, err := Tokenize("test", []byte("a = 1\n/* two\nthree */\nsay a,\n  1\nexit"), Options{})
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}
	want := []int{1, 4, 6}
	for i, line := range want {
		if p.Stmts[i].Line != line {
			t.Errorf("statement %d: expected line %d, got %d", i, line, p.Stmts[i].Line)
		}
	}
	if got := p.Text(1); got != "say a, 1" {
		t.Errorf("expected source text of continued clause, got %q", got)
	}
}

func TestTokenizeErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		kind  ErrorKind
		code  int
		line  int
	}{
		{"invalid character", "say 1\nsay ~", InvalidCharacter, 13, 2},
		{"unmatched comment", "say 1 /* never closed", UnmatchedComment, 6, 1},
		{"unmatched quote", "say 'abc", UnmatchedQuote, 6, 1},
		{"bad label", "say x: y", LabelSyntax, 20, 1},
		{"stray end", "end", UnmatchedEnd, 10, 1},
		{"missing end", "do 3\nsay 1", IncompleteBlock, 14, 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Tokenize("test", []byte(c.input), Options{})
			var lerr *Error
			if !errors.As(err, &lerr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if lerr.Kind != c.kind || lerr.Code() != c.code || lerr.Line != c.line {
				t.Errorf("expected kind %d code %d line %d, got %d %d %d",
					c.kind, c.code, c.line, lerr.Kind, lerr.Code(), lerr.Line)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"a = 1; do i = 1 to 3; a = a + i; end; exit a",
		"start: if x = 1 then say 'one'; else do; say 'other'; end\ncall sub 1, 2\nexit\nsub: procedure expose a.\nparse arg p, q\nreturn p || q",
		"select\n when a < 1 then nop\n otherwise say \"x\"\nend\ndone:",
		"numeric digits 20; signal on novalue name missing; say x\nmissing: say 'trapped'",
	}

	for _, in := range inputs {
		first, err := Tokenize("a", []byte(in), Options{})
		if err != nil {
			t.Fatalf("tokenize error: %v", err)
		}
		second, err := Tokenize("b", []byte(first.String()), Options{})
		if err != nil {
			t.Fatalf("re-tokenize error: %v\n%s", err, first.String())
		}
		if !reflect.DeepEqual(clauses(first), clauses(second)) {
			t.Errorf("clauses differ:\n%q\n%q", clauses(first), clauses(second))
		}
		if !reflect.DeepEqual(first.Labels, second.Labels) {
			t.Errorf("labels differ: %v vs %v", first.Labels, second.Labels)
		}
		for i := range first.Stmts {
			if !reflect.DeepEqual(first.Stmts[i].Tokens, second.Stmts[i].Tokens) {
				t.Errorf("statement %d tokens differ", i)
			}
		}
	}
}

func TestExcerpt(t *testing.T) {
	src := []byte("a = 1\nb = 2\nsay\tb ~\nsay 3\n")
	cases := []struct {
		name string
		line int
		col  int
		want string
	}{
		{
			name: "caret",
			line: 3,
			col:  7,
			want: "       1 | a = 1\n       2 | b = 2\n  >    3 | say\tb ~\n" +
				"              \t  ^\n",
		},
		{
			name: "first line without column",
			line: 1,
			want: "  >    1 | a = 1\n",
		},
		{
			name: "out of range",
			line: 9,
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Excerpt(src, tc.line, tc.col); got != tc.want {
				t.Fatalf("Excerpt =\n%q\nwant\n%q", got, tc.want)
			}
		})
	}

	_, err := Tokenize("test", src, Options{})
	var lerr *Error
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if lerr.Column != 7 || lerr.Excerpt != cases[0].want {
		t.Fatalf("column %d excerpt %q", lerr.Column, lerr.Excerpt)
	}
}
