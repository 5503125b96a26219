package token

import "strings"

// Code is one element of a tokenized clause. Non-negative codes are the bytes
// of the clause itself, reserved words are small negative numbers and the
// multi-character operators live in a second negative range below OpBase.
type Code int

// Reserved words.
const (
	ADDRESS Code = -(iota + 1)
	ARG
	BY
	CALL
	DIGITS
	DO
	DROP
	ELSE
	END
	ENGINEERING
	EXIT
	EXPOSE
	FOR
	FOREVER
	FORM
	FUZZ
	HIDE
	IF
	INTERPRET
	ITERATE
	LEAVE
	LINEIN
	NAME
	NOP
	NUMERIC
	OFF
	ON
	OPTIONS
	OTHERWISE
	PARSE
	PROCEDURE
	PULL
	PUSH
	QUEUE
	RETURN
	SAY
	SCIENTIFIC
	SELECT
	SIGNAL
	SOURCE
	THEN
	TO
	TRACE
	UNTIL
	UPPER
	VALUE
	VAR
	VERSION
	WHEN
	WHILE
	WITH

	lastKeyword
)

// OpBase is the first code of the operator range.
const OpBase Code = -100

// Multi-character operators.
const (
	CONCAT    Code = OpBase - iota // ||
	XOR                            // &&
	STRICTEQ                       // ==
	LE                             // <=
	GE                             // >=
	NE                             // \=  <>  ><
	STRICTNE                       // \==
	REM                            // //
	STRICTLT                       // <<
	STRICTGT                       // >>
	STRICTLE                       // <<=
	STRICTGE                       // >>=
	POWER                          // **
	NGT                            // \>
	NLT                            // \<
	STRICTNGT                      // \>>
	STRICTNLT                      // \<<

	lastOperator
)

var keywordNames = map[Code]string{
	ADDRESS: "ADDRESS", ARG: "ARG", BY: "BY", CALL: "CALL", DIGITS: "DIGITS",
	DO: "DO", DROP: "DROP", ELSE: "ELSE", END: "END", ENGINEERING: "ENGINEERING",
	EXIT: "EXIT", EXPOSE: "EXPOSE", FOR: "FOR", FOREVER: "FOREVER", FORM: "FORM",
	FUZZ: "FUZZ", HIDE: "HIDE", IF: "IF", INTERPRET: "INTERPRET", ITERATE: "ITERATE",
	LEAVE: "LEAVE", LINEIN: "LINEIN", NAME: "NAME", NOP: "NOP", NUMERIC: "NUMERIC",
	OFF: "OFF", ON: "ON", OPTIONS: "OPTIONS", OTHERWISE: "OTHERWISE", PARSE: "PARSE",
	PROCEDURE: "PROCEDURE", PULL: "PULL", PUSH: "PUSH", QUEUE: "QUEUE",
	RETURN: "RETURN", SAY: "SAY", SCIENTIFIC: "SCIENTIFIC", SELECT: "SELECT",
	SIGNAL: "SIGNAL", SOURCE: "SOURCE", THEN: "THEN", TO: "TO", TRACE: "TRACE",
	UNTIL: "UNTIL", UPPER: "UPPER", VALUE: "VALUE", VAR: "VAR", VERSION: "VERSION",
	WHEN: "WHEN", WHILE: "WHILE", WITH: "WITH",
}

var operatorNames = map[Code]string{
	CONCAT: "||", XOR: "&&", STRICTEQ: "==", LE: "<=", GE: ">=", NE: "\\=",
	STRICTNE: "\\==", REM: "//", STRICTLT: "<<", STRICTGT: ">>", STRICTLE: "<<=",
	STRICTGE: ">>=", POWER: "**", NGT: "\\>", NLT: "\\<", STRICTNGT: "\\>>",
	STRICTNLT: "\\<<",
}

type operator struct {
	text string
	code Code
}

var keywords map[string]Code

// operators is ordered longest first so that greedy matching picks "\==" over "\=".
var operators []operator

func init() {
	keywords = make(map[string]Code, len(keywordNames))
	for c, n := range keywordNames {
		keywords[n] = c
	}
	for c, n := range operatorNames {
		operators = append(operators, operator{n, c})
	}
	operators = append(operators, operator{"<>", NE}, operator{"><", NE})
	for i := 1; i < len(operators); i++ {
		for j := i; j > 0 && len(operators[j].text) > len(operators[j-1].text); j-- {
			operators[j], operators[j-1] = operators[j-1], operators[j]
		}
	}
}

// LookupKeyword returns the code of an upper-cased reserved word.
func LookupKeyword(word string) (Code, bool) {
	c, ok := keywords[word]
	return c, ok
}

// IsKeyword reports whether c is a reserved word code.
func (c Code) IsKeyword() bool { return c < 0 && c > lastKeyword }

// IsOperator reports whether c is a multi-character operator code.
func (c Code) IsOperator() bool { return c <= OpBase && c > lastOperator }

// IsChar reports whether c stands for a literal byte of the clause.
func (c Code) IsChar() bool { return c >= 0 }

func (c Code) String() string {
	switch {
	case c.IsChar():
		return string([]byte{byte(c)})
	case c.IsKeyword():
		return keywordNames[c]
	case c.IsOperator():
		return operatorNames[c]
	}
	return "?"
}

// MatchOperator tries to match a multi-character operator at the start of
// src, allowing blanks between its characters. It returns the operator code
// and the number of bytes consumed, or zero bytes when nothing matches.
func MatchOperator(src []byte) (Code, int) {
	for _, op := range operators {
		i, j := 0, 0
		for j < len(op.text) && i < len(src) {
			if src[i] == op.text[j] {
				i++
				j++
				continue
			}
			if j > 0 && (src[i] == ' ' || src[i] == '\t') {
				i++
				continue
			}
			break
		}
		if j == len(op.text) {
			return op.code, i
		}
	}
	return 0, 0
}

// String renders a tokenized clause back to source text.
func String(toks []Code) string {
	var b strings.Builder
	var last byte
	for i, t := range toks {
		s := t.String()
		if t.IsKeyword() {
			if i > 0 && last != ' ' {
				b.WriteByte(' ')
			}
		} else if i > 0 && toks[i-1].IsKeyword() && t != ' ' {
			b.WriteByte(' ')
		}
		b.WriteString(s)
		last = s[len(s)-1]
	}
	return b.String()
}
