package lexer

import (
	"log/slog"
	"strings"

	"rexx/internal/token"
)

// Options adjust how source text is scanned.
type Options struct {
	// KeepFirstLine disables skipping of a leading "#!" interpreter line.
	KeepFirstLine bool
}

// Lexer turns REXX source into a statement table. It works on bytes: the
// language has no notion of multi-byte characters outside literal strings.
type Lexer struct {
	input    []byte
	position int // current byte position in input
	line     int // current line, 1-based

	clause       []token.Code
	clauseLine   int
	clauseStart  int
	clauseEnd    int
	pendingBlank bool
	commentBreak bool // a comment separated the last token from the next
	depth        int        // nesting of ( )
	instr        token.Code // keyword that opened the clause
	lastKeyword  token.Code // most recent keyword emitted in the clause
	terms        int        // symbols and strings since lastKeyword
	controlled   bool       // DO clause with a control variable

	prog *Program
}

// Tokenize scans src and returns its statement and label tables.
func Tokenize(name string, src []byte, opts Options) (*Program, error) {
	l := &Lexer{
		input: src,
		line:  1,
		prog:  newProgram(name, src),
	}
	if !opts.KeepFirstLine && len(src) > 1 && src[0] == '#' && src[1] == '!' {
		for l.position < len(src) && src[l.position] != '\n' {
			l.position++
		}
	}
	err := l.run()
	if err == nil {
		err = l.prog.relate()
	}
	if err != nil {
		if e, ok := err.(*Error); ok && e.Excerpt == "" {
			e.Excerpt = Excerpt(src, e.Line, e.Column)
		}
		return nil, err
	}
	slog.Debug("tokenized program",
		slog.String("name", name),
		slog.Int("statements", len(l.prog.Stmts)),
		slog.Int("labels", len(l.prog.Labels)))
	return l.prog, nil
}

func (l *Lexer) run() error {
	for l.position < len(l.input) {
		c := l.input[l.position]
		switch {
		case c == '/' && l.peek(1) == '*':
			if err := l.skipComment(); err != nil {
				return err
			}
		case c == '\n':
			l.endOfLine()
			l.position++
			l.line++
		case c == ';':
			l.position++
			l.flush()
		case isBlank(c):
			l.pendingBlank = true
			l.position++
		case c == '\'' || c == '"':
			if err := l.readString(c); err != nil {
				return err
			}
		case isSymbolChar(c):
			l.readSymbol()
		case c == ':':
			if err := l.readLabel(); err != nil {
				return err
			}
		case isOperatorChar(c):
			l.readOperator()
		default:
			return l.errorf(InvalidCharacter, "invalid character in program: '%02X'X", c)
		}
	}
	l.flush()
	return nil
}

func (l *Lexer) peek(n int) byte {
	if l.position+n >= len(l.input) {
		return 0
	}
	return l.input[l.position+n]
}

// skipComment consumes a possibly nested comment. Comments are not blanks:
// "a/**/b" abuts the two symbols.
func (l *Lexer) skipComment() error {
	startLine := l.line
	depth := 0
	for l.position < len(l.input) {
		c := l.input[l.position]
		switch {
		case c == '/' && l.peek(1) == '*':
			depth++
			l.position += 2
		case c == '*' && l.peek(1) == '/':
			depth--
			l.position += 2
			if depth == 0 {
				l.commentBreak = true
				return nil
			}
		case c == '\n':
			l.line++
			l.position++
		default:
			l.position++
		}
	}
	l.line = startLine
	return l.errorf(UnmatchedComment, "unmatched \"/*\"")
}

func (l *Lexer) endOfLine() {
	if n := len(l.clause); n > 0 && l.clause[n-1] == ',' {
		l.clause = l.clause[:n-1]
		l.pendingBlank = true
		return
	}
	l.flush()
}

func (l *Lexer) readString(quote byte) error {
	start := l.position
	i := l.position + 1
	for {
		if i >= len(l.input) || l.input[i] == '\n' {
			return l.errorf(UnmatchedQuote, "unmatched quote")
		}
		if l.input[i] == quote {
			if i+1 < len(l.input) && l.input[i+1] == quote {
				i += 2
				continue
			}
			break
		}
		i++
	}
	l.blankBeforeTerm()
	for _, b := range l.input[start : i+1] {
		l.clause = append(l.clause, token.Code(b))
	}
	l.position = i + 1
	l.terms++
	l.touched(start)
	return nil
}

func (l *Lexer) readSymbol() {
	start := l.position
	for l.position < len(l.input) && isSymbolChar(l.input[l.position]) {
		l.position++
	}
	// 1.5E+3: the sign of an exponent belongs to the number
	if s := l.input[start:l.position]; isExponentPrefix(s) {
		sign := l.peek(0)
		if (sign == '+' || sign == '-') && isDigit(l.peek(1)) {
			l.position++
			for l.position < len(l.input) && isDigit(l.input[l.position]) {
				l.position++
			}
		}
	}
	word := strings.ToUpper(string(l.input[start:l.position]))
	if l.depth == 0 {
		if code, ok := l.keywordFor(word); ok {
			l.emitKeyword(code, start)
			return
		}
	}
	l.blankBeforeTerm()
	for i := 0; i < len(word); i++ {
		l.clause = append(l.clause, token.Code(word[i]))
	}
	l.terms++
	l.touched(start)
}

// keywordFor decides whether word is a reserved word at this point of the
// clause. Sub-keywords are only reserved inside the instruction that uses them.
func (l *Lexer) keywordFor(word string) (token.Code, bool) {
	code, ok := token.LookupKeyword(word)
	if !ok {
		return 0, false
	}
	if len(l.clause) == 0 {
		next := l.nextNonBlank()
		if next == ':' || (next == '=' && l.peekAfterBlanks(1) != '=') {
			return 0, false
		}
		return code, instructions[code]
	}
	if l.terms == 0 {
		if subs, ok := firstSubKeywords[l.lastKeyword]; ok && subs[code] {
			if l.lastKeyword == token.UPPER && l.instr != token.PARSE {
				return 0, false
			}
			return code, true
		}
	}
	switch l.instr {
	case token.IF, token.WHEN:
		return code, code == token.THEN
	case token.DO:
		switch code {
		case token.WHILE, token.UNTIL:
			return code, l.lastKeyword != token.WHILE && l.lastKeyword != token.UNTIL
		case token.TO, token.BY, token.FOR:
			return code, l.controlled && l.lastKeyword != token.WHILE && l.lastKeyword != token.UNTIL
		}
	case token.PARSE:
		return code, code == token.WITH && l.lastKeyword == token.VALUE
	case token.SIGNAL, token.CALL:
		return code, code == token.NAME && l.lastKeyword == token.ON && l.terms == 1
	}
	return 0, false
}

func (l *Lexer) emitKeyword(code token.Code, start int) {
	switch code {
	case token.THEN:
		// THEN closes the IF or WHEN clause and stands alone.
		l.flush()
		l.appendKeyword(code, start)
		l.flush()
		return
	case token.ELSE, token.OTHERWISE:
		l.appendKeyword(code, start)
		l.flush()
		return
	}
	l.appendKeyword(code, start)
}

func (l *Lexer) appendKeyword(code token.Code, start int) {
	if len(l.clause) == 0 {
		l.instr = code
	}
	l.clause = append(l.clause, code)
	l.lastKeyword = code
	l.terms = 0
	l.pendingBlank = false
	l.commentBreak = false
	l.touched(start)
}

func (l *Lexer) readOperator() {
	start := l.position
	c := l.input[l.position]
	if code, n := token.MatchOperator(l.input[l.position:]); n > 0 {
		l.clause = append(l.clause, code)
		l.position += n
	} else {
		switch c {
		case '(':
			l.blankBeforeTerm()
			l.depth++
		case ')':
			l.depth--
		case '=':
			if l.instr == token.DO && l.lastKeyword == token.DO && l.terms == 1 && l.depth == 0 {
				l.controlled = true
			}
		}
		l.clause = append(l.clause, token.Code(c))
		l.position++
	}
	l.pendingBlank = false
	l.commentBreak = false
	l.touched(start)
	if c == ')' {
		return
	}
	// a blank after an operator character is never significant
	for l.position < len(l.input) && isBlank(l.input[l.position]) {
		l.position++
	}
}

func (l *Lexer) readLabel() error {
	if len(l.clause) == 0 || l.instr != 0 {
		return l.errorf(LabelSyntax, "label must be a single symbol")
	}
	for _, c := range l.clause {
		if !c.IsChar() || !isSymbolChar(byte(c)) {
			return l.errorf(LabelSyntax, "label must be a single symbol")
		}
	}
	name := token.String(l.clause)
	l.prog.addLabel(name, len(l.prog.Stmts))
	l.reset()
	l.position++
	return nil
}

// blankBeforeTerm inserts the single significant blank between two terms.
// Two terms separated only by a comment are joined by an explicit abuttal.
func (l *Lexer) blankBeforeTerm() {
	if len(l.clause) > 0 {
		last := l.clause[len(l.clause)-1]
		if last.IsChar() && (isSymbolChar(byte(last)) || last == '\'' || last == '"' || last == ')') {
			if l.pendingBlank {
				l.clause = append(l.clause, ' ')
			} else if l.commentBreak {
				l.clause = append(l.clause, token.CONCAT)
			}
		}
	}
	l.pendingBlank = false
	l.commentBreak = false
}

func (l *Lexer) touched(start int) {
	if l.clauseLine == 0 {
		l.clauseLine = l.line
		l.clauseStart = start
	}
	l.clauseEnd = l.position
}

func (l *Lexer) flush() {
	if len(l.clause) > 0 {
		l.prog.Stmts = append(l.prog.Stmts, Statement{
			Line:    l.clauseLine,
			Start:   l.clauseStart,
			End:     l.clauseEnd,
			Related: -1,
			Tokens:  l.clause,
		})
	}
	l.reset()
}

func (l *Lexer) reset() {
	l.clause = nil
	l.clauseLine = 0
	l.clauseStart = 0
	l.clauseEnd = 0
	l.pendingBlank = false
	l.commentBreak = false
	l.depth = 0
	l.instr = 0
	l.lastKeyword = 0
	l.terms = 0
	l.controlled = false
}

func (l *Lexer) nextNonBlank() byte {
	return l.peekAfterBlanks(0)
}

// peekAfterBlanks skips blanks and returns the byte n places after the first
// non-blank byte.
func (l *Lexer) peekAfterBlanks(n int) byte {
	i := l.position
	for i < len(l.input) && isBlank(l.input[i]) {
		i++
	}
	if i+n >= len(l.input) {
		return 0
	}
	return l.input[i+n]
}

// instructions are the keywords recognised at the start of a clause.
var instructions = map[token.Code]bool{
	token.ADDRESS: true, token.ARG: true, token.CALL: true, token.DO: true,
	token.DROP: true, token.ELSE: true, token.END: true, token.EXIT: true,
	token.IF: true, token.INTERPRET: true, token.ITERATE: true, token.LEAVE: true,
	token.NOP: true, token.NUMERIC: true, token.OPTIONS: true, token.OTHERWISE: true,
	token.PARSE: true, token.PROCEDURE: true, token.PULL: true, token.PUSH: true,
	token.QUEUE: true, token.RETURN: true, token.SAY: true, token.SELECT: true,
	token.SIGNAL: true, token.THEN: true, token.TRACE: true, token.WHEN: true,
}

type keywordSet map[token.Code]bool

var parseSources = keywordSet{
	token.ARG: true, token.PULL: true, token.SOURCE: true, token.VERSION: true,
	token.LINEIN: true, token.VAR: true, token.VALUE: true,
}

// firstSubKeywords are reserved immediately after the keyed keyword.
var firstSubKeywords = map[token.Code]keywordSet{
	token.NUMERIC:   {token.DIGITS: true, token.FUZZ: true, token.FORM: true},
	token.FORM:      {token.SCIENTIFIC: true, token.ENGINEERING: true, token.VALUE: true},
	token.SIGNAL:    {token.ON: true, token.OFF: true, token.VALUE: true},
	token.CALL:      {token.ON: true, token.OFF: true},
	token.PROCEDURE: {token.EXPOSE: true, token.HIDE: true},
	token.ADDRESS:   {token.VALUE: true},
	token.TRACE:     {token.VALUE: true},
	token.DO:        {token.FOREVER: true},
	token.PARSE: {
		token.UPPER: true, token.ARG: true, token.PULL: true, token.SOURCE: true,
		token.VERSION: true, token.LINEIN: true, token.VAR: true, token.VALUE: true,
	},
	token.UPPER: parseSources,
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// IsSymbolChar reports whether c may appear in a REXX symbol.
func IsSymbolChar(c byte) bool { return isSymbolChar(c) }

func isSymbolChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || isDigit(c) ||
		c == '.' || c == '!' || c == '?' || c == '_' || c == '@' || c == '#' || c == '$'
}

func isOperatorChar(c byte) bool {
	return strings.IndexByte("+-*/%|&=\\<>(),", c) >= 0
}

// IsExponentPrefix reports whether s is a number mantissa followed by the
// exponent marker, so that a following sign belongs to the number.
func IsExponentPrefix(s string) bool { return isExponentPrefix([]byte(s)) }

// isExponentPrefix reports whether s looks like a number mantissa followed
// by the exponent marker, for example "1.5E".
func isExponentPrefix(s []byte) bool {
	n := len(s)
	if n < 2 || (s[n-1] != 'e' && s[n-1] != 'E') {
		return false
	}
	digits, dots := 0, 0
	for _, c := range s[:n-1] {
		switch {
		case isDigit(c):
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
