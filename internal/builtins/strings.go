package builtins

import (
	"strconv"
	"strings"

	"rexx/internal/calc"
)

func registerStrings() {
	register("ABBREV", 2, 3, fnAbbrev)
	register("CENTER", 2, 3, fnCenter)
	register("CENTRE", 2, 3, fnCenter)
	register("CHANGESTR", 3, 3, fnChangeStr)
	register("COMPARE", 2, 3, fnCompare)
	register("COPIES", 2, 2, fnCopies)
	register("COUNTSTR", 2, 2, fnCountStr)
	register("DELSTR", 2, 3, fnDelStr)
	register("DELWORD", 2, 3, fnDelWord)
	register("INSERT", 2, 5, fnInsert)
	register("LASTPOS", 2, 3, fnLastPos)
	register("LEFT", 2, 3, fnLeft)
	register("LENGTH", 1, 1, fnLength)
	register("LOWER", 1, 1, fnLower)
	register("OVERLAY", 2, 5, fnOverlay)
	register("POS", 2, 3, fnPos)
	register("REVERSE", 1, 1, fnReverse)
	register("RIGHT", 2, 3, fnRight)
	register("SPACE", 1, 3, fnSpace)
	register("STRIP", 1, 3, fnStrip)
	register("SUBSTR", 2, 4, fnSubstr)
	register("SUBWORD", 2, 3, fnSubword)
	register("TRANSLATE", 1, 4, fnTranslate)
	register("UPPER", 1, 1, fnUpper)
	register("VERIFY", 2, 4, fnVerify)
	register("WORD", 2, 2, fnWord)
	register("WORDINDEX", 2, 2, fnWordIndex)
	register("WORDLENGTH", 2, 2, fnWordLength)
	register("WORDPOS", 2, 3, fnWordPos)
	register("WORDS", 1, 1, fnWords)
	register("XRANGE", 0, 2, fnXrange)
}

func fnAbbrev(c Caller, args calc.Args) (string, error) {
	info, abbrev := arg(args, 0), arg(args, 1)
	n, err := whole(c, "ABBREV", args, 2, len(abbrev), 0)
	if err != nil {
		return "", err
	}
	return boolString(len(abbrev) >= n && strings.HasPrefix(info, abbrev)), nil
}

func fnCenter(c Caller, args calc.Args) (string, error) {
	s := arg(args, 0)
	n, err := whole(c, "CENTER", args, 1, 0, 0)
	if err != nil {
		return "", err
	}
	p, err := pad("CENTER", args, 2)
	if err != nil {
		return "", err
	}
	if n >= len(s) {
		left := (n - len(s)) / 2
		return padding(p, left) + s + padding(p, n-len(s)-left), nil
	}
	cut := (len(s) - n) / 2
	return s[cut : cut+n], nil
}

func fnChangeStr(c Caller, args calc.Args) (string, error) {
	needle, hay, repl := arg(args, 0), arg(args, 1), arg(args, 2)
	if needle == "" {
		return hay, nil
	}
	return strings.ReplaceAll(hay, needle, repl), nil
}

func fnCompare(c Caller, args calc.Args) (string, error) {
	a, b := arg(args, 0), arg(args, 1)
	p, err := pad("COMPARE", args, 2)
	if err != nil {
		return "", err
	}
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		x, y := p, p
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			return strconv.Itoa(i + 1), nil
		}
	}
	return "0", nil
}

func fnCopies(c Caller, args calc.Args) (string, error) {
	n, err := whole(c, "COPIES", args, 1, 0, 0)
	if err != nil {
		return "", err
	}
	return strings.Repeat(arg(args, 0), n), nil
}

func fnCountStr(c Caller, args calc.Args) (string, error) {
	needle, hay := arg(args, 0), arg(args, 1)
	if needle == "" {
		return "0", nil
	}
	return strconv.Itoa(strings.Count(hay, needle)), nil
}

func fnDelStr(c Caller, args calc.Args) (string, error) {
	s := arg(args, 0)
	n, err := whole(c, "DELSTR", args, 1, 1, 1)
	if err != nil {
		return "", err
	}
	l, err := whole(c, "DELSTR", args, 2, len(s), 0)
	if err != nil {
		return "", err
	}
	if n > len(s) {
		return s, nil
	}
	end := min(len(s), n-1+l)
	return s[:n-1] + s[end:], nil
}

// wordSpans returns the start and end offsets of the blank-delimited words of s.
func wordSpans(s string) [][2]int {
	var out [][2]int
	i := 0
	for i < len(s) {
		for i < len(s) && isBlank(s[i]) {
			i++
		}
		if i == len(s) {
			break
		}
		start := i
		for i < len(s) && !isBlank(s[i]) {
			i++
		}
		out = append(out, [2]int{start, i})
	}
	return out
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

func fnDelWord(c Caller, args calc.Args) (string, error) {
	s := arg(args, 0)
	n, err := whole(c, "DELWORD", args, 1, 1, 1)
	if err != nil {
		return "", err
	}
	words := wordSpans(s)
	l, err := whole(c, "DELWORD", args, 2, len(words), 0)
	if err != nil {
		return "", err
	}
	if n > len(words) || l == 0 {
		return s, nil
	}
	start := words[n-1][0]
	last := n - 1 + l
	if last >= len(words) {
		return s[:start], nil
	}
	return s[:start] + s[words[last][0]:], nil
}

func fnInsert(c Caller, args calc.Args) (string, error) {
	newStr, target := arg(args, 0), arg(args, 1)
	n, err := whole(c, "INSERT", args, 2, 0, 0)
	if err != nil {
		return "", err
	}
	l, err := whole(c, "INSERT", args, 3, len(newStr), 0)
	if err != nil {
		return "", err
	}
	p, err := pad("INSERT", args, 4)
	if err != nil {
		return "", err
	}
	if n > len(target) {
		target += padding(p, n-len(target))
	}
	return target[:n] + fit(newStr, l, p) + target[n:], nil
}

func fnLastPos(c Caller, args calc.Args) (string, error) {
	needle, hay := arg(args, 0), arg(args, 1)
	start, err := whole(c, "LASTPOS", args, 2, len(hay), 1)
	if err != nil {
		return "", err
	}
	if needle == "" {
		return "0", nil
	}
	end := min(len(hay), start-1+len(needle))
	return strconv.Itoa(strings.LastIndex(hay[:end], needle) + 1), nil
}

func fnLeft(c Caller, args calc.Args) (string, error) {
	n, err := whole(c, "LEFT", args, 1, 0, 0)
	if err != nil {
		return "", err
	}
	p, err := pad("LEFT", args, 2)
	if err != nil {
		return "", err
	}
	return fit(arg(args, 0), n, p), nil
}

func fnLength(c Caller, args calc.Args) (string, error) {
	return strconv.Itoa(len(arg(args, 0))), nil
}

func fnLower(c Caller, args calc.Args) (string, error) {
	return strings.ToLower(arg(args, 0)), nil
}

func fnUpper(c Caller, args calc.Args) (string, error) {
	return strings.ToUpper(arg(args, 0)), nil
}

func fnOverlay(c Caller, args calc.Args) (string, error) {
	newStr, target := arg(args, 0), arg(args, 1)
	n, err := whole(c, "OVERLAY", args, 2, 1, 1)
	if err != nil {
		return "", err
	}
	l, err := whole(c, "OVERLAY", args, 3, len(newStr), 0)
	if err != nil {
		return "", err
	}
	p, err := pad("OVERLAY", args, 4)
	if err != nil {
		return "", err
	}
	if n-1 > len(target) {
		target += padding(p, n-1-len(target))
	}
	end := min(len(target), n-1+l)
	return target[:n-1] + fit(newStr, l, p) + target[end:], nil
}

func fnPos(c Caller, args calc.Args) (string, error) {
	needle, hay := arg(args, 0), arg(args, 1)
	start, err := whole(c, "POS", args, 2, 1, 1)
	if err != nil {
		return "", err
	}
	if needle == "" || start > len(hay) {
		return "0", nil
	}
	i := strings.Index(hay[start-1:], needle)
	if i < 0 {
		return "0", nil
	}
	return strconv.Itoa(i + start), nil
}

func fnReverse(c Caller, args calc.Args) (string, error) {
	s := []byte(arg(args, 0))
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return string(s), nil
}

func fnRight(c Caller, args calc.Args) (string, error) {
	s := arg(args, 0)
	n, err := whole(c, "RIGHT", args, 1, 0, 0)
	if err != nil {
		return "", err
	}
	p, err := pad("RIGHT", args, 2)
	if err != nil {
		return "", err
	}
	if n <= len(s) {
		return s[len(s)-n:], nil
	}
	return padding(p, n-len(s)) + s, nil
}

func fnSpace(c Caller, args calc.Args) (string, error) {
	n, err := whole(c, "SPACE", args, 1, 1, 0)
	if err != nil {
		return "", err
	}
	p, err := pad("SPACE", args, 2)
	if err != nil {
		return "", err
	}
	s := arg(args, 0)
	var words []string
	for _, w := range wordSpans(s) {
		words = append(words, s[w[0]:w[1]])
	}
	return strings.Join(words, padding(p, n)), nil
}

func fnStrip(c Caller, args calc.Args) (string, error) {
	o, err := option("STRIP", args, 1, 'B', "BLT")
	if err != nil {
		return "", err
	}
	chars := " \t"
	if v, ok := args.Get(2); ok {
		if len(v) != 1 {
			return "", badArg("STRIP", 2, "must be a single character; found \"%s\"", v)
		}
		chars = v
	}
	s := arg(args, 0)
	if o == 'B' || o == 'L' {
		s = strings.TrimLeft(s, chars)
	}
	if o == 'B' || o == 'T' {
		s = strings.TrimRight(s, chars)
	}
	return s, nil
}

func fnSubstr(c Caller, args calc.Args) (string, error) {
	s := arg(args, 0)
	n, err := whole(c, "SUBSTR", args, 1, 1, 1)
	if err != nil {
		return "", err
	}
	rest := max(0, len(s)-n+1)
	l, err := whole(c, "SUBSTR", args, 2, rest, 0)
	if err != nil {
		return "", err
	}
	p, err := pad("SUBSTR", args, 3)
	if err != nil {
		return "", err
	}
	if n > len(s) {
		return padding(p, l), nil
	}
	return fit(s[n-1:], l, p), nil
}

func fnSubword(c Caller, args calc.Args) (string, error) {
	s := arg(args, 0)
	n, err := whole(c, "SUBWORD", args, 1, 1, 1)
	if err != nil {
		return "", err
	}
	words := wordSpans(s)
	l, err := whole(c, "SUBWORD", args, 2, len(words), 0)
	if err != nil {
		return "", err
	}
	if n > len(words) || l == 0 {
		return "", nil
	}
	last := min(len(words), n-1+l) - 1
	return s[words[n-1][0]:words[last][1]], nil
}

func fnTranslate(c Caller, args calc.Args) (string, error) {
	s := arg(args, 0)
	out, hasOut := args.Get(1)
	in, hasIn := args.Get(2)
	if !hasOut && !hasIn && !args.Exists(3) {
		return strings.ToUpper(s), nil
	}
	p, err := pad("TRANSLATE", args, 3)
	if err != nil {
		return "", err
	}
	if !hasIn {
		var b strings.Builder
		for i := 0; i < 256; i++ {
			b.WriteByte(byte(i))
		}
		in = b.String()
	}
	res := []byte(s)
	for i, ch := range res {
		if j := strings.IndexByte(in, ch); j >= 0 {
			if j < len(out) {
				res[i] = out[j]
			} else {
				res[i] = p
			}
		}
	}
	return string(res), nil
}

func fnVerify(c Caller, args calc.Args) (string, error) {
	s, ref := arg(args, 0), arg(args, 1)
	o, err := option("VERIFY", args, 2, 'N', "MN")
	if err != nil {
		return "", err
	}
	start, err := whole(c, "VERIFY", args, 3, 1, 1)
	if err != nil {
		return "", err
	}
	for i := start - 1; i < len(s); i++ {
		in := strings.IndexByte(ref, s[i]) >= 0
		if in == (o == 'M') {
			return strconv.Itoa(i + 1), nil
		}
	}
	return "0", nil
}

func fnWord(c Caller, args calc.Args) (string, error) {
	s := arg(args, 0)
	n, err := whole(c, "WORD", args, 1, 1, 1)
	if err != nil {
		return "", err
	}
	words := wordSpans(s)
	if n > len(words) {
		return "", nil
	}
	return s[words[n-1][0]:words[n-1][1]], nil
}

func fnWordIndex(c Caller, args calc.Args) (string, error) {
	n, err := whole(c, "WORDINDEX", args, 1, 1, 1)
	if err != nil {
		return "", err
	}
	words := wordSpans(arg(args, 0))
	if n > len(words) {
		return "0", nil
	}
	return strconv.Itoa(words[n-1][0] + 1), nil
}

func fnWordLength(c Caller, args calc.Args) (string, error) {
	n, err := whole(c, "WORDLENGTH", args, 1, 1, 1)
	if err != nil {
		return "", err
	}
	words := wordSpans(arg(args, 0))
	if n > len(words) {
		return "0", nil
	}
	return strconv.Itoa(words[n-1][1] - words[n-1][0]), nil
}

func fnWordPos(c Caller, args calc.Args) (string, error) {
	phrase := strings.Fields(arg(args, 0))
	s := arg(args, 1)
	start, err := whole(c, "WORDPOS", args, 2, 1, 1)
	if err != nil {
		return "", err
	}
	words := strings.Fields(s)
	if len(phrase) == 0 {
		return "0", nil
	}
	for i := start - 1; i+len(phrase) <= len(words); i++ {
		match := true
		for j := range phrase {
			if words[i+j] != phrase[j] {
				match = false
				break
			}
		}
		if match {
			return strconv.Itoa(i + 1), nil
		}
	}
	return "0", nil
}

func fnWords(c Caller, args calc.Args) (string, error) {
	return strconv.Itoa(len(wordSpans(arg(args, 0)))), nil
}

func fnXrange(c Caller, args calc.Args) (string, error) {
	lo, hi := byte(0), byte(255)
	for i, dst := range []*byte{&lo, &hi} {
		if v, ok := args.Get(i); ok {
			if len(v) != 1 {
				return "", badArg("XRANGE", i, "must be a single character; found \"%s\"", v)
			}
			*dst = v[0]
		}
	}
	var b strings.Builder
	for ch := int(lo); ; ch++ {
		b.WriteByte(byte(ch))
		if byte(ch) == hi {
			break
		}
		if ch == 255 {
			ch = -1
		}
	}
	return b.String(), nil
}

func padding(p byte, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(string([]byte{p}), n)
}

// fit truncates or pads s to exactly n characters.
func fit(s string, n int, p byte) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + padding(p, n-len(s))
}
