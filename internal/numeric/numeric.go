// Package numeric implements REXX decimal arithmetic on top of apd.
//
// Values enter and leave as strings, the way the language sees them. The
// NUMERIC settings decide how many significant digits results keep, how
// many of them comparisons ignore, and how large numbers are written.
package numeric

import (
	"errors"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

type Form int

const (
	Scientific Form = iota
	Engineering
)

func (f Form) String() string {
	if f == Engineering {
		return "ENGINEERING"
	}
	return "SCIENTIFIC"
}

// Settings mirror NUMERIC DIGITS, FUZZ and FORM.
type Settings struct {
	Digits int
	Fuzz   int
	Form   Form
}

// DefaultDigits is the precision a fresh program starts with.
const DefaultDigits = 9

// Default returns the settings of a fresh program.
func Default() Settings {
	return Settings{Digits: DefaultDigits}
}

var (
	ErrNotNumber   = errors.New("bad arithmetic conversion")
	ErrOverflow    = errors.New("arithmetic overflow or underflow")
	ErrDivideZero  = errors.New("divide by zero")
	ErrWholeNumber = errors.New("invalid whole number")
	ErrTooLarge    = errors.New("integer division result too large")
)

type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
	IntDiv
	Rem
	Power
)

func (s Settings) context(digits int) *apd.Context {
	if digits < 1 {
		digits = 1
	}
	ctx := apd.BaseContext.WithPrecision(uint32(digits))
	ctx.Rounding = apd.RoundHalfUp
	ctx.MaxExponent = apd.MaxExponent
	ctx.MinExponent = apd.MinExponent
	ctx.Traps = apd.DefaultTraps
	return ctx
}

// Parse converts a REXX number, allowing surrounding blanks and blanks
// after the sign, into a decimal.
func Parse(s string) (*apd.Decimal, error) {
	t := strings.Trim(s, " \t")
	if t == "" {
		return nil, ErrNotNumber
	}
	neg := false
	if t[0] == '+' || t[0] == '-' {
		neg = t[0] == '-'
		t = strings.TrimLeft(t[1:], " \t")
	}
	mant, exp := t, ""
	if i := strings.IndexAny(t, "eE"); i >= 0 {
		mant, exp = t[:i], t[i+1:]
		if exp == "" {
			return nil, ErrNotNumber
		}
		e := exp
		if e[0] == '+' || e[0] == '-' {
			e = e[1:]
		}
		if e == "" || !allDigits(e) {
			return nil, ErrNotNumber
		}
	}
	intPart, frac := mant, ""
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		intPart, frac = mant[:i], mant[i+1:]
	}
	if intPart+frac == "" || !allDigits(intPart) || !allDigits(frac) {
		return nil, ErrNotNumber
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if intPart == "" {
		intPart = "0"
	}
	b.WriteString(intPart)
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	if exp != "" {
		b.WriteByte('E')
		b.WriteString(exp)
	}
	d, _, err := apd.NewFromString(b.String())
	if err != nil {
		return nil, ErrNotNumber
	}
	return d, nil
}

// IsNumber reports whether s is a valid REXX number.
func IsNumber(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// operand parses s and rounds it to the working precision.
func (s Settings) operand(v string) (*apd.Decimal, error) {
	d, err := Parse(v)
	if err != nil {
		return nil, err
	}
	if _, err := s.context(s.Digits).Round(d, d); err != nil {
		return nil, ErrOverflow
	}
	return d, nil
}

// Arith applies a binary arithmetic operator to two REXX values.
func (s Settings) Arith(op Op, a, b string) (string, error) {
	x, err := s.operand(a)
	if err != nil {
		return "", err
	}
	y, err := s.operand(b)
	if err != nil {
		return "", err
	}
	ctx := s.context(s.Digits)
	res := new(apd.Decimal)
	strip := false
	switch op {
	case Add:
		_, err = ctx.Add(res, x, y)
	case Sub:
		_, err = ctx.Sub(res, x, y)
	case Mul:
		_, err = ctx.Mul(res, x, y)
	case Div:
		if y.IsZero() {
			return "", ErrDivideZero
		}
		_, err = ctx.Quo(res, x, y)
		strip = true
	case IntDiv:
		if y.IsZero() {
			return "", ErrDivideZero
		}
		if _, err = ctx.QuoInteger(res, x, y); err != nil {
			return "", ErrTooLarge
		}
	case Rem:
		if y.IsZero() {
			return "", ErrDivideZero
		}
		if _, err = ctx.Rem(res, x, y); err != nil {
			return "", ErrTooLarge
		}
	case Power:
		return s.power(x, y)
	}
	if err != nil {
		return "", ErrOverflow
	}
	return s.format(res, strip), nil
}

// power raises x to a whole-number exponent by repeated squaring at a
// slightly higher precision, then rounds.
func (s Settings) power(x, y *apd.Decimal) (string, error) {
	n, err := wholeInt(y, s)
	if err != nil {
		return "", err
	}
	neg := n < 0
	if neg {
		n = -n
	}
	work := s.context(s.Digits + len(strconv.Itoa(n)) + 1)
	res := apd.New(1, 0)
	base := new(apd.Decimal).Set(x)
	for n > 0 {
		if n&1 == 1 {
			if _, err := work.Mul(res, res, base); err != nil {
				return "", ErrOverflow
			}
		}
		n >>= 1
		if n > 0 {
			if _, err := work.Mul(base, base, base); err != nil {
				return "", ErrOverflow
			}
		}
	}
	ctx := s.context(s.Digits)
	if neg {
		if res.IsZero() {
			return "", ErrDivideZero
		}
		if _, err := ctx.Quo(res, apd.New(1, 0), res); err != nil {
			return "", ErrOverflow
		}
		return s.format(res, true), nil
	}
	if _, err := ctx.Round(res, res); err != nil {
		return "", ErrOverflow
	}
	return s.format(res, false), nil
}

// Prefix applies unary plus or minus, which also normalises the number.
func (s Settings) Prefix(minus bool, v string) (string, error) {
	d, err := s.operand(v)
	if err != nil {
		return "", err
	}
	if minus {
		d.Neg(d)
	}
	return s.format(d, false), nil
}

// Compare compares two numbers using DIGITS minus FUZZ significant digits.
func (s Settings) Compare(a, b string) (int, error) {
	x, err := Parse(a)
	if err != nil {
		return 0, err
	}
	y, err := Parse(b)
	if err != nil {
		return 0, err
	}
	ctx := s.context(s.Digits - s.Fuzz)
	if _, err := ctx.Round(x, x); err != nil {
		return 0, ErrOverflow
	}
	if _, err := ctx.Round(y, y); err != nil {
		return 0, ErrOverflow
	}
	diff := new(apd.Decimal)
	if _, err := ctx.Sub(diff, x, y); err != nil {
		return 0, ErrOverflow
	}
	return diff.Sign(), nil
}

// WholeNumber converts v into an int, failing when it is not integral
// at the current precision.
func (s Settings) WholeNumber(v string) (int, error) {
	d, err := Parse(v)
	if err != nil {
		return 0, ErrWholeNumber
	}
	return wholeInt(d, s)
}

func wholeInt(d *apd.Decimal, s Settings) (int, error) {
	r := new(apd.Decimal)
	if _, err := s.context(s.Digits).Round(r, d); err != nil {
		return 0, ErrWholeNumber
	}
	i := new(apd.Decimal)
	if _, err := s.context(s.Digits).RoundToIntegralExact(i, r); err != nil || i.Cmp(r) != 0 {
		return 0, ErrWholeNumber
	}
	n, err := i.Int64()
	if err != nil || n > 1<<31-1 || n < -(1<<31) {
		return 0, ErrWholeNumber
	}
	return int(n), nil
}

// Normalize returns v formatted under the current settings, as "v + 0" would.
func (s Settings) Normalize(v string) (string, error) {
	return s.Prefix(false, v)
}

// Format renders d under the current settings.
func (s Settings) Format(d *apd.Decimal) string {
	return s.format(d, false)
}

func (s Settings) format(d *apd.Decimal, strip bool) string {
	if d.IsZero() {
		return "0"
	}
	coeff := d.Coeff.String()
	exp := int(d.Exponent)
	if strip {
		for exp < 0 && len(coeff) > 1 && coeff[len(coeff)-1] == '0' {
			coeff = coeff[:len(coeff)-1]
			exp++
		}
	}
	return Layout(d.Negative, coeff, exp, s)
}

// Layout writes the number coeff×10^exp in REXX notation: plain when the
// integer part fits in DIGITS and there are at most 2×DIGITS decimals,
// exponential otherwise.
func Layout(neg bool, coeff string, exp int, s Settings) string {
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	n := len(coeff)
	before := n + exp
	switch {
	case exp >= 0 && before <= s.Digits:
		b.WriteString(coeff)
		b.WriteString(strings.Repeat("0", exp))
	case exp < 0 && before <= s.Digits && -exp <= 2*s.Digits:
		if before > 0 {
			b.WriteString(coeff[:before])
			b.WriteByte('.')
			b.WriteString(coeff[before:])
		} else {
			b.WriteString("0.")
			b.WriteString(strings.Repeat("0", -before))
			b.WriteString(coeff)
		}
	default:
		e := before - 1
		lead := 1
		if s.Form == Engineering {
			shift := ((e % 3) + 3) % 3
			lead += shift
			e -= shift
		}
		for len(coeff) < lead {
			coeff += "0"
		}
		b.WriteString(coeff[:lead])
		if len(coeff) > lead {
			b.WriteByte('.')
			b.WriteString(coeff[lead:])
		}
		if e != 0 {
			b.WriteByte('E')
			if e > 0 {
				b.WriteByte('+')
			}
			b.WriteString(strconv.Itoa(e))
		}
	}
	return b.String()
}
