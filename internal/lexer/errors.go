package lexer

import "fmt"

type ErrorKind int

const (
	InvalidCharacter ErrorKind = iota + 1
	UnmatchedComment
	UnmatchedQuote
	LabelSyntax
	UnmatchedEnd
	IncompleteBlock
)

// Error is a tokenizer failure. Code maps it onto the REXX error numbers.
type Error struct {
	Kind   ErrorKind
	Line   int
	Column int // 1-based, 0 when unknown
	Detail string
	// Excerpt shows the source around the error.
	Excerpt string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Detail)
}

// Code returns the REXX error number for the failure.
func (e *Error) Code() int {
	switch e.Kind {
	case InvalidCharacter:
		return 13
	case UnmatchedComment, UnmatchedQuote:
		return 6
	case LabelSyntax:
		return 20
	case UnmatchedEnd:
		return 10
	case IncompleteBlock:
		return 14
	}
	return 49
}

func (l *Lexer) errorf(kind ErrorKind, format string, args ...any) *Error {
	col := 1
	for i := l.position - 1; i >= 0 && i < len(l.input) && l.input[i] != '\n'; i-- {
		col++
	}
	return &Error{Kind: kind, Line: l.line, Column: col, Detail: fmt.Sprintf(format, args...)}
}
