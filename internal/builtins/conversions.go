package builtins

import (
	"encoding/hex"
	"math/big"
	"strings"

	"rexx/internal/calc"
	"rexx/internal/condition"
)

func registerConversions() {
	register("B2X", 1, 1, fnB2X)
	register("BITAND", 1, 3, bitwise("BITAND", func(a, b byte) byte { return a & b }))
	register("BITOR", 1, 3, bitwise("BITOR", func(a, b byte) byte { return a | b }))
	register("BITXOR", 1, 3, bitwise("BITXOR", func(a, b byte) byte { return a ^ b }))
	register("C2D", 1, 2, fnC2D)
	register("C2X", 1, 1, fnC2X)
	register("D2C", 1, 2, fnD2C)
	register("D2X", 1, 2, fnD2X)
	register("X2B", 1, 1, fnX2B)
	register("X2C", 1, 1, fnX2C)
	register("X2D", 1, 2, fnX2D)
}

var nibbles = [16]string{
	"0000", "0001", "0010", "0011", "0100", "0101", "0110", "0111",
	"1000", "1001", "1010", "1011", "1100", "1101", "1110", "1111",
}

func hexDigits(name string, args calc.Args, i int) (string, error) {
	v := arg(args, i)
	h, err := packed(v, 2)
	if err != nil {
		return "", badArg(name, i, "must be a hexadecimal string; found \"%s\"", v)
	}
	return strings.ToUpper(h), nil
}

func fnB2X(c Caller, args calc.Args) (string, error) {
	v := arg(args, 0)
	bits, err := packed(v, 4)
	if err != nil {
		return "", badArg("B2X", 0, "must be a binary string; found \"%s\"", v)
	}
	if r := len(bits) % 4; r != 0 {
		bits = strings.Repeat("0", 4-r) + bits
	}
	var b strings.Builder
	for i := 0; i < len(bits); i += 4 {
		n := 0
		for _, ch := range bits[i : i+4] {
			n = n<<1 | int(ch-'0')
		}
		b.WriteByte("0123456789ABCDEF"[n])
	}
	return b.String(), nil
}

func fnX2B(c Caller, args calc.Args) (string, error) {
	h, err := hexDigits("X2B", args, 0)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 0; i < len(h); i++ {
		b.WriteString(nibbles[hexValue(h[i])])
	}
	return b.String(), nil
}

func hexValue(ch byte) int {
	if ch >= 'A' {
		return int(ch-'A') + 10
	}
	return int(ch - '0')
}

// HexLiteral converts the body of a '...'X string.
func HexLiteral(s string) (string, error) {
	h, err := packed(s, 2)
	if err != nil {
		return "", err
	}
	if len(h)%2 != 0 {
		h = "0" + h
	}
	out, err := hex.DecodeString(h)
	if err != nil {
		return "", errBadPacking
	}
	return string(out), nil
}

// BinLiteral converts the body of a '...'B string.
func BinLiteral(s string) (string, error) {
	bits, err := packed(s, 4)
	if err != nil {
		return "", err
	}
	if r := len(bits) % 8; r != 0 {
		bits = strings.Repeat("0", 8-r) + bits
	}
	out := make([]byte, len(bits)/8)
	for i := range out {
		for _, ch := range bits[i*8 : i*8+8] {
			out[i] = out[i]<<1 | byte(ch-'0')
		}
	}
	return string(out), nil
}

func fnC2X(c Caller, args calc.Args) (string, error) {
	return strings.ToUpper(hex.EncodeToString([]byte(arg(args, 0)))), nil
}

func fnX2C(c Caller, args calc.Args) (string, error) {
	h, err := hexDigits("X2C", args, 0)
	if err != nil {
		return "", err
	}
	if len(h)%2 != 0 {
		h = "0" + h
	}
	out, err := hex.DecodeString(h)
	if err != nil {
		return "", badArg("X2C", 0, "must be a hexadecimal string")
	}
	return string(out), nil
}

// decode interprets raw as an unsigned binary number, or as a two's
// complement number of n bytes when n is given.
func decode(raw []byte, n int) *big.Int {
	if n < 0 {
		return new(big.Int).SetBytes(raw)
	}
	if len(raw) > n {
		raw = raw[len(raw)-n:]
	}
	v := new(big.Int).SetBytes(raw)
	if n > 0 && len(raw) == n && raw[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(8*n)))
	}
	return v
}

// encode renders v as n bytes in two's complement, or as the minimal
// unsigned form when n is negative.
func encode(name string, v *big.Int, n int) ([]byte, error) {
	if n < 0 {
		if v.Sign() < 0 {
			return nil, condition.Errorf(40, "%s: a length is required for a negative number", name)
		}
		b := v.Bytes()
		if len(b) == 0 {
			b = []byte{0}
		}
		return b, nil
	}
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, new(big.Int).Lsh(big.NewInt(1), uint(8*n)))
		if u.Sign() < 0 {
			u.Mod(u, new(big.Int).Lsh(big.NewInt(1), uint(8*n)))
		}
	}
	b := u.Bytes()
	fill := byte(0)
	if v.Sign() < 0 {
		fill = 0xff
	}
	if len(b) >= n {
		return b[len(b)-n:], nil
	}
	out := make([]byte, n)
	for i := range out[:n-len(b)] {
		out[i] = fill
	}
	copy(out[n-len(b):], b)
	return out, nil
}

// checkDigits fails when v has more digits than NUMERIC DIGITS.
func checkDigits(c Caller, name string, v *big.Int) (string, error) {
	s := v.String()
	if len(strings.TrimPrefix(s, "-")) > c.Numeric().Digits {
		return "", condition.Errorf(40, "%s: result %s exceeds NUMERIC DIGITS", name, s)
	}
	return s, nil
}

func fnC2D(c Caller, args calc.Args) (string, error) {
	n, err := whole(c, "C2D", args, 1, -1, 0)
	if err != nil {
		return "", err
	}
	return checkDigits(c, "C2D", decode([]byte(arg(args, 0)), n))
}

func fnX2D(c Caller, args calc.Args) (string, error) {
	h, err := hexDigits("X2D", args, 0)
	if err != nil {
		return "", err
	}
	n, err := whole(c, "X2D", args, 1, -1, 0)
	if err != nil {
		return "", err
	}
	v, ok := new(big.Int).SetString(h, 16)
	if h == "" {
		v, ok = new(big.Int), true
	}
	if !ok {
		return "", badArg("X2D", 0, "must be a hexadecimal string")
	}
	if n >= 0 {
		if len(h) > n {
			h = h[len(h)-n:]
			v.SetString(h, 16)
		}
		if n > 0 && len(h) == n && hexValue(h[0]) >= 8 {
			v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(4*n)))
		}
		if n == 0 {
			v.SetInt64(0)
		}
	}
	return checkDigits(c, "X2D", v)
}

func fnD2C(c Caller, args calc.Args) (string, error) {
	v := arg(args, 0)
	d, err := c.Numeric().BigWhole(v)
	if err != nil {
		return "", badArg("D2C", 0, "must be a whole number; found \"%s\"", v)
	}
	n, err := whole(c, "D2C", args, 1, -1, 0)
	if err != nil {
		return "", err
	}
	out, err := encode("D2C", d, n)
	if err != nil {
		return "", err
	}
	if n < 0 && d.Sign() == 0 {
		return "\x00", nil
	}
	return string(out), nil
}

func fnD2X(c Caller, args calc.Args) (string, error) {
	v := arg(args, 0)
	d, err := c.Numeric().BigWhole(v)
	if err != nil {
		return "", badArg("D2X", 0, "must be a whole number; found \"%s\"", v)
	}
	n, err := whole(c, "D2X", args, 1, -1, 0)
	if err != nil {
		return "", err
	}
	if n < 0 {
		if d.Sign() < 0 {
			return "", condition.Errorf(40, "D2X: a length is required for a negative number")
		}
		return strings.ToUpper(d.Text(16)), nil
	}
	out, err := encode("D2X", d, (n+1)/2)
	if err != nil {
		return "", err
	}
	h := strings.ToUpper(hex.EncodeToString(out))
	return h[len(h)-n:], nil
}

func bitwise(name string, op func(a, b byte) byte) Func {
	return func(c Caller, args calc.Args) (string, error) {
		a, b := []byte(arg(args, 0)), []byte(arg(args, 1))
		if len(a) < len(b) {
			a, b = b, a
		}
		out := make([]byte, len(a))
		copy(out, a)
		p, hasPad := args.Get(2)
		if hasPad && len(p) != 1 {
			return "", badArg(name, 2, "must be a single character; found \"%s\"", p)
		}
		for i := range out {
			switch {
			case i < len(b):
				out[i] = op(a[i], b[i])
			case hasPad:
				out[i] = op(a[i], p[0])
			}
		}
		return string(out), nil
	}
}
