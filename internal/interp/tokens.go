package interp

import (
	"rexx/internal/builtins"
	"rexx/internal/condition"
	"rexx/internal/lexer"
	"rexx/internal/token"
)

// eof is returned by peeks past the end of a clause.
const eof token.Code = -1000

func isSymbolTok(t token.Code) bool {
	return t.IsChar() && lexer.IsSymbolChar(byte(t))
}

func isDigitTok(t token.Code) bool { return t >= '0' && t <= '9' }

func isQuote(t token.Code) bool { return t == '\'' || t == '"' }

func at(toks []token.Code, i int) token.Code {
	if i < 0 || i >= len(toks) {
		return eof
	}
	return toks[i]
}

// symbolAt reads the symbol at the start of toks, including the signed
// exponent of a number such as 1.5E+3.
func symbolAt(toks []token.Code) (string, int) {
	i := 0
	for i < len(toks) && isSymbolTok(toks[i]) {
		i++
	}
	if i == 0 {
		return "", 0
	}
	b := make([]byte, 0, i+4)
	for _, t := range toks[:i] {
		b = append(b, byte(t))
	}
	if lexer.IsExponentPrefix(string(b)) && (at(toks, i) == '+' || at(toks, i) == '-') && isDigitTok(at(toks, i+1)) {
		b = append(b, byte(toks[i]))
		i++
		for i < len(toks) && isDigitTok(toks[i]) {
			b = append(b, byte(toks[i]))
			i++
		}
	}
	return string(b), i
}

// isConstant reports whether a symbol stands for itself: it starts with a
// digit or a period.
func isConstant(name string) bool {
	return name != "" && (name[0] == '.' || (name[0] >= '0' && name[0] <= '9'))
}

// literal reads the string at the start of toks and applies an X or B
// suffix.
func literal(toks []token.Code) (string, int, error) {
	q := toks[0]
	var b []byte
	i := 1
	for ; i < len(toks); i++ {
		if toks[i] == q {
			if at(toks, i+1) == q {
				b = append(b, byte(q))
				i++
				continue
			}
			break
		}
		b = append(b, byte(toks[i]))
	}
	i++
	s := string(b)
	if suffix := at(toks, i); (suffix == 'X' || suffix == 'B') && !isSymbolTok(at(toks, i+1)) {
		var err error
		if suffix == 'X' {
			s, err = builtins.HexLiteral(s)
		} else {
			s, err = builtins.BinLiteral(s)
		}
		if err != nil {
			return "", i, condition.Errorf(15, "invalid %c string '%s'", byte(suffix), string(b))
		}
		i++
	}
	return s, i, nil
}

// nameAt reads a symbol or string used as a name, such as a routine or
// label, starting at toks[i].
func nameAt(toks []token.Code, i int) (name string, quoted bool, next int, err error) {
	t := at(toks, i)
	switch {
	case isQuote(t):
		s, n, err := literal(toks[i:])
		return s, true, i + n, err
	case isSymbolTok(t):
		s, n := symbolAt(toks[i:])
		return s, false, i + n, nil
	}
	return "", false, i, condition.Errorf(19, "string or symbol expected")
}

func skipBlank(toks []token.Code, i int) int {
	for at(toks, i) == ' ' {
		i++
	}
	return i
}

// index returns the position of the first t in toks, or -1.
func index(toks []token.Code, t token.Code) int {
	for i, x := range toks {
		if x == t {
			return i
		}
	}
	return -1
}
