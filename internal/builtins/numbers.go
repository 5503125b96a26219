package builtins

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"rexx/internal/calc"
	"rexx/internal/condition"
	"rexx/internal/lexer"
	"rexx/internal/numeric"
)

func registerNumbers() {
	register("ABS", 1, 1, fnAbs)
	register("DATATYPE", 1, 2, fnDatatype)
	register("DIGITS", 0, 0, fnDigits)
	register("FORM", 0, 0, fnForm)
	register("FORMAT", 1, 5, fnFormat)
	register("FUZZ", 0, 0, fnFuzz)
	register("MAX", 1, 64, fnMax)
	register("MIN", 1, 64, fnMin)
	register("RANDOM", 0, 3, fnRandom)
	register("SIGN", 1, 1, fnSign)
	register("TRUNC", 1, 2, fnTrunc)
}

// numberError turns an arithmetic failure on argument i into a condition.
func numberError(name string, i int, v string, err error) error {
	if errors.Is(err, numeric.ErrNotNumber) {
		return badArg(name, i, "must be a number; found \"%s\"", v)
	}
	return condition.Errorf(42, "%s: %v", name, err)
}

func fnAbs(c Caller, args calc.Args) (string, error) {
	v := arg(args, 0)
	r, err := c.Numeric().Abs(v)
	if err != nil {
		return "", numberError("ABS", 0, v, err)
	}
	return r, nil
}

func fnSign(c Caller, args calc.Args) (string, error) {
	v := arg(args, 0)
	n, err := c.Numeric().Sign(v)
	if err != nil {
		return "", numberError("SIGN", 0, v, err)
	}
	return strconv.Itoa(n), nil
}

func fnDigits(c Caller, _ calc.Args) (string, error) {
	return strconv.Itoa(c.Numeric().Digits), nil
}

func fnFuzz(c Caller, _ calc.Args) (string, error) {
	return strconv.Itoa(c.Numeric().Fuzz), nil
}

func fnForm(c Caller, _ calc.Args) (string, error) {
	return c.Numeric().Form.String(), nil
}

func fnMax(c Caller, args calc.Args) (string, error) { return extreme(c, "MAX", args, 1) }

func fnMin(c Caller, args calc.Args) (string, error) { return extreme(c, "MIN", args, -1) }

func extreme(c Caller, name string, args calc.Args, want int) (string, error) {
	set := c.Numeric()
	var best string
	for i := 0; i < args.Len(); i++ {
		v, ok := args.Get(i)
		if !ok {
			return "", badArg(name, i, "is required")
		}
		if !numeric.IsNumber(v) {
			return "", badArg(name, i, "must be a number; found \"%s\"", v)
		}
		if i == 0 {
			best = v
			continue
		}
		cmp, err := set.Compare(v, best)
		if err != nil {
			return "", numberError(name, i, v, err)
		}
		if cmp == want {
			best = v
		}
	}
	r, err := set.Normalize(best)
	if err != nil {
		return "", numberError(name, 0, best, err)
	}
	return r, nil
}

func fnTrunc(c Caller, args calc.Args) (string, error) {
	v := arg(args, 0)
	n, err := whole(c, "TRUNC", args, 1, 0, 0)
	if err != nil {
		return "", err
	}
	r, err := c.Numeric().Trunc(v, n)
	if err != nil {
		return "", numberError("TRUNC", 0, v, err)
	}
	return r, nil
}

func fnFormat(c Caller, args calc.Args) (string, error) {
	v := arg(args, 0)
	var widths [4]int
	for i := range widths {
		n, err := whole(c, "FORMAT", args, i+1, numeric.Omitted, 0)
		if err != nil {
			return "", err
		}
		widths[i] = n
	}
	if widths[0] == 0 {
		return "", badArg("FORMAT", 1, "must be positive")
	}
	r, err := c.Numeric().FormatNumber(v, widths[0], widths[1], widths[2], widths[3])
	if errors.Is(err, numeric.ErrLayout) {
		return "", condition.Errorf(40, "FORMAT: \"%s\" does not fit the requested layout", v)
	}
	if err != nil {
		return "", numberError("FORMAT", 0, v, err)
	}
	return r, nil
}

func fnDatatype(c Caller, args calc.Args) (string, error) {
	s := arg(args, 0)
	if !args.Exists(1) {
		if numeric.IsNumber(s) {
			return "NUM", nil
		}
		return "CHAR", nil
	}
	o, err := option("DATATYPE", args, 1, 0, "ABLMNSUWX")
	if err != nil {
		return "", err
	}
	var ok bool
	switch o {
	case 'A':
		ok = s != "" && every(s, func(ch byte) bool { return isUpper(ch) || isLower(ch) || isDigit(ch) })
	case 'B':
		_, err := packed(s, 4)
		ok = err == nil
	case 'L':
		ok = s != "" && every(s, isLower)
	case 'M':
		ok = s != "" && every(s, func(ch byte) bool { return isUpper(ch) || isLower(ch) })
	case 'N':
		ok = numeric.IsNumber(s)
	case 'S':
		ok = isSymbol(s)
	case 'U':
		ok = s != "" && every(s, isUpper)
	case 'W':
		_, err := c.Numeric().BigWhole(s)
		ok = err == nil
	case 'X':
		_, err := packed(s, 2)
		ok = err == nil
	}
	return boolString(ok), nil
}

func isSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !lexer.IsSymbolChar(s[i]) {
			return false
		}
	}
	return true
}

func every(s string, fn func(byte) bool) bool {
	for i := 0; i < len(s); i++ {
		if !fn(s[i]) {
			return false
		}
	}
	return true
}

func isUpper(ch byte) bool { return ch >= 'A' && ch <= 'Z' }
func isLower(ch byte) bool { return ch >= 'a' && ch <= 'z' }
func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

var random = struct {
	sync.Mutex
	r *rand.Rand
}{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}

// maxRandomRange is the largest max-min RANDOM accepts.
const maxRandomRange = 100000

func fnRandom(c Caller, args calc.Args) (string, error) {
	lo, err := whole(c, "RANDOM", args, 0, 0, 0)
	if err != nil {
		return "", err
	}
	hi, err := whole(c, "RANDOM", args, 1, 999, 0)
	if err != nil {
		return "", err
	}
	if args.Len() == 1 && args.Exists(0) {
		// RANDOM(max)
		lo, hi = 0, lo
	}
	if hi < lo {
		return "", badArg("RANDOM", 1, "must not be less than the minimum")
	}
	if hi-lo > maxRandomRange {
		return "", badArg("RANDOM", 1, "range must not exceed %d", maxRandomRange)
	}
	random.Lock()
	defer random.Unlock()
	if v, ok := args.Get(2); ok {
		seed, err := c.Numeric().WholeNumber(v)
		if err != nil {
			return "", badArg("RANDOM", 2, "must be a whole number; found \"%s\"", v)
		}
		random.r = rand.New(rand.NewPCG(uint64(seed), 0))
	}
	return strconv.Itoa(lo + random.r.IntN(hi-lo+1)), nil
}

// packed validates a string of hex (group 2) or binary (group 4) digits
// that may contain blanks between groups, returning the digits alone.
func packed(s string, group int) (string, error) {
	if s == "" {
		return "", nil
	}
	if isBlank(s[0]) || isBlank(s[len(s)-1]) {
		return "", errBadPacking
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '\t' })
	var b strings.Builder
	for i, p := range parts {
		if i > 0 && len(p)%group != 0 {
			return "", errBadPacking
		}
		for j := 0; j < len(p); j++ {
			if !validDigit(p[j], group) {
				return "", errBadPacking
			}
		}
		b.WriteString(p)
	}
	return b.String(), nil
}

var errBadPacking = errors.New("invalid digit or blank placement")

func validDigit(ch byte, group int) bool {
	if group == 4 {
		return ch == '0' || ch == '1'
	}
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
