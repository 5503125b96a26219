package lexer

import (
	"bytes"
	"fmt"
	"strings"

	"rexx/internal/token"
)

// Statement is one clause of a program.
type Statement struct {
	Line    int // source line of the first token
	Start   int // byte offset of the clause in the source
	End     int
	Related int // matching END of a DO or SELECT, or the opener of an END; -1 otherwise
	Tokens  []token.Code
}

// Keyword returns the leading reserved word of the clause, or 0.
func (s *Statement) Keyword() token.Code {
	if len(s.Tokens) > 0 && s.Tokens[0].IsKeyword() {
		return s.Tokens[0]
	}
	return 0
}

func (s *Statement) String() string {
	return token.String(s.Tokens)
}

// Label maps a label name to the statement that follows it.
type Label struct {
	Name string
	Stmt int
}

// Program is a tokenized program or INTERPRET string.
type Program struct {
	Name   string
	Source []byte
	Lines  []string
	Stmts  []Statement
	Labels []Label

	labelIndex map[string]int
}

func newProgram(name string, src []byte) *Program {
	lines := strings.Split(string(bytes.TrimSuffix(src, []byte("\n"))), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return &Program{
		Name:       name,
		Source:     src,
		Lines:      lines,
		labelIndex: map[string]int{},
	}
}

func (p *Program) addLabel(name string, stmt int) {
	p.Labels = append(p.Labels, Label{Name: name, Stmt: stmt})
	// the first of duplicate labels wins
	if _, ok := p.labelIndex[name]; !ok {
		p.labelIndex[name] = stmt
	}
}

// FindLabel returns the statement index a label refers to.
func (p *Program) FindLabel(name string) (int, bool) {
	i, ok := p.labelIndex[name]
	return i, ok
}

// SourceLine returns line n (1-based) of the original text.
func (p *Program) SourceLine(n int) string {
	if n < 1 || n > len(p.Lines) {
		return ""
	}
	return p.Lines[n-1]
}

// Text returns the original text of statement i.
func (p *Program) Text(i int) string {
	if i < 0 || i >= len(p.Stmts) {
		return ""
	}
	s := p.Stmts[i]
	if s.Start < 0 || s.End > len(p.Source) || s.Start >= s.End {
		return s.String()
	}
	text := string(p.Source[s.Start:s.End])
	return strings.Join(strings.Fields(text), " ")
}

// String re-serializes the statement table, one clause per line with its
// labels in front of it.
func (p *Program) String() string {
	var b strings.Builder
	labels := map[int][]string{}
	for _, l := range p.Labels {
		labels[l.Stmt] = append(labels[l.Stmt], l.Name)
	}
	for i := 0; i <= len(p.Stmts); i++ {
		for _, name := range labels[i] {
			b.WriteString(name)
			b.WriteString(":\n")
		}
		if i < len(p.Stmts) {
			b.WriteString(p.Stmts[i].String())
			b.WriteString(";\n")
		}
	}
	return b.String()
}

// relate pairs every DO and SELECT with its END.
func (p *Program) relate() error {
	var open []int
	for i := range p.Stmts {
		switch p.Stmts[i].Keyword() {
		case token.DO, token.SELECT:
			open = append(open, i)
		case token.END:
			if len(open) == 0 {
				return &Error{Kind: UnmatchedEnd, Line: p.Stmts[i].Line, Detail: "unexpected or unmatched END"}
			}
			o := open[len(open)-1]
			open = open[:len(open)-1]
			p.Stmts[o].Related = i
			p.Stmts[i].Related = o
		}
	}
	if len(open) > 0 {
		s := p.Stmts[open[len(open)-1]]
		return &Error{Kind: IncompleteBlock, Line: s.Line,
			Detail: fmt.Sprintf("incomplete %s: END not found", s.Keyword())}
	}
	return nil
}
