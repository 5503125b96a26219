package numeric

import (
	"errors"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// ErrLayout is returned when a number does not fit the field widths given
// to FormatNumber.
var ErrLayout = errors.New("number does not fit the requested layout")

// Omitted marks a FormatNumber width that was not supplied.
const Omitted = -1

// Abs returns the magnitude of v.
func (s Settings) Abs(v string) (string, error) {
	d, err := s.operand(v)
	if err != nil {
		return "", err
	}
	d.Negative = false
	return s.format(d, false), nil
}

// Sign returns -1, 0 or 1.
func (s Settings) Sign(v string) (int, error) {
	d, err := s.operand(v)
	if err != nil {
		return 0, err
	}
	return d.Sign(), nil
}

// Trunc drops all but n decimal places of v, never using exponential notation.
func (s Settings) Trunc(v string, n int) (string, error) {
	d, err := s.operand(v)
	if err != nil {
		return "", err
	}
	ctx := apd.BaseContext.WithPrecision(uint32(s.Digits + n + int(max(d.Exponent, 0)) + 2))
	ctx.Rounding = apd.RoundDown
	res := new(apd.Decimal)
	if _, err := ctx.Quantize(res, d, int32(-n)); err != nil {
		return "", ErrOverflow
	}
	if res.IsZero() {
		res.Negative = false
	}
	return res.Text('f'), nil
}

// BigWhole converts v into an arbitrary size integer. The value must be a
// whole number at the current precision.
func (s Settings) BigWhole(v string) (*big.Int, error) {
	d, err := s.operand(v)
	if err != nil {
		return nil, ErrWholeNumber
	}
	i := new(apd.Decimal)
	if _, err := s.context(s.Digits).RoundToIntegralExact(i, d); err != nil || i.Cmp(d) != 0 {
		return nil, ErrWholeNumber
	}
	n, ok := new(big.Int).SetString(i.Text('f'), 10)
	if !ok {
		return nil, ErrWholeNumber
	}
	return n, nil
}

// FormatNumber lays out v the way the FORMAT builtin does. before and after
// size the integer and decimal parts, expp the exponent and expt the point
// past which exponential notation is used; any of them may be Omitted.
func (s Settings) FormatNumber(v string, before, after, expp, expt int) (string, error) {
	d, err := s.operand(v)
	if err != nil {
		return "", err
	}
	if expt == Omitted {
		expt = s.Digits
	}
	neg := d.Negative && !d.IsZero()
	d.Negative = false

	coeff, exp := trimZeros(d.Coeff.String(), int(d.Exponent))
	digits := len(coeff) + exp
	exponential := expp != 0 && !d.IsZero() &&
		(digits > expt || (exp < 0 && -exp > 2*expt) || expt == 0)

	var intPart, frac string
	e := 0
	if exponential {
		e = digits - 1
		if s.Form == Engineering {
			e -= ((e % 3) + 3) % 3
		}
		m := new(apd.Decimal).Set(d)
		m.Exponent -= int32(e)
		if after != Omitted {
			if m, err = roundTo(m, after); err != nil {
				return "", err
			}
			limit := int32(1)
			if s.Form == Engineering {
				limit = 3
			}
			if m.NumDigits()+int64(m.Exponent) > int64(limit) {
				e += int(limit)
				m.Exponent -= limit
				if m, err = roundTo(m, after); err != nil {
					return "", err
				}
			}
		}
		intPart, frac = split(m)
	} else {
		m := new(apd.Decimal).Set(d)
		if after != Omitted {
			if m, err = roundTo(m, after); err != nil {
				return "", err
			}
		}
		intPart, frac = split(m)
	}
	if after != Omitted {
		if len(frac) < after {
			frac += strings.Repeat("0", after-len(frac))
		}
		frac = frac[:after]
	}
	if neg && strings.Trim(intPart+frac, "0") == "" {
		neg = false
	}

	var b strings.Builder
	head := intPart
	if neg {
		head = "-" + head
	}
	if before != Omitted {
		if len(head) > before {
			return "", ErrLayout
		}
		b.WriteString(strings.Repeat(" ", before-len(head)))
	}
	b.WriteString(head)
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	if exponential {
		if e == 0 && expp != Omitted {
			b.WriteString(strings.Repeat(" ", expp+2))
		} else if e != 0 {
			digits := strconv.Itoa(abs(e))
			if expp != Omitted {
				if len(digits) > expp {
					return "", ErrLayout
				}
				digits = strings.Repeat("0", expp-len(digits)) + digits
			}
			b.WriteByte('E')
			if e > 0 {
				b.WriteByte('+')
			} else {
				b.WriteByte('-')
			}
			b.WriteString(digits)
		}
	}
	return b.String(), nil
}

// trimZeros removes trailing zeros from a coefficient, adjusting the exponent.
func trimZeros(coeff string, exp int) (string, int) {
	for len(coeff) > 1 && coeff[len(coeff)-1] == '0' {
		coeff = coeff[:len(coeff)-1]
		exp++
	}
	return coeff, exp
}

func roundTo(d *apd.Decimal, places int) (*apd.Decimal, error) {
	whole := max(d.NumDigits()+int64(d.Exponent), 1)
	ctx := apd.BaseContext.WithPrecision(uint32(whole + int64(places) + 2))
	ctx.Rounding = apd.RoundHalfUp
	res := new(apd.Decimal)
	if _, err := ctx.Quantize(res, d, int32(-places)); err != nil {
		return nil, ErrOverflow
	}
	return res, nil
}

// split returns the digits before and after the decimal point.
func split(d *apd.Decimal) (string, string) {
	t := d.Text('f')
	intPart, frac, _ := strings.Cut(t, ".")
	return intPart, frac
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
