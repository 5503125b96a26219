package numeric

import (
	"errors"
	"testing"
)

func TestArith(t *testing.T) {
	set := Default()
	cases := []struct {
		name     string
		op       Op
		a, b     string
		expected string
	}{
		{"1 + 1", Add, "1", "1", "2"},
		{"scale kept", Add, "1.50", "1", "2.50"},
		{"blanks and sign", Add, " - 3 ", "1", "-2"},
		{"subtraction to zero", Sub, "1.00", "1", "0"},
		{"multiply", Mul, "1.5", "3", "4.5"},
		{"divide strips zeros", Div, "2.40", "2", "1.2"},
		{"divide repeating", Div, "1", "3", "0.333333333"},
		{"divide exact", Div, "6", "2", "3"},
		{"integer division", IntDiv, "7", "2", "3"},
		{"remainder sign of dividend", Rem, "-7", "2", "-1"},
		{"remainder with decimals", Rem, "5.5", "2", "1.5"},
		{"power", Power, "2", "10", "1024"},
		{"negative power", Power, "2", "-2", "0.25"},
		{"rounds to digits", Add, "999999999", "1", "1.00000000E+9"},
		{"exponent input", Mul, "1E+3", "2", "2000"},
		{"small numbers stay plain", Mul, "0.0000001", "1", "0.0000001"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := set.Arith(c.op, c.a, c.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.expected {
				t.Errorf("expected %s, got %s", c.expected, got)
			}
		})
	}
}

func TestArithErrors(t *testing.T) {
	set := Default()
	cases := []struct {
		name string
		op   Op
		a, b string
		err  error
	}{
		{"not a number", Add, "abc", "1", ErrNotNumber},
		{"divide by zero", Div, "1", "0", ErrDivideZero},
		{"fractional power", Power, "2", "0.5", ErrWholeNumber},
		{"integer division too large", IntDiv, "1E+20", "1", ErrTooLarge},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := set.Arith(c.op, c.a, c.b)
			if !errors.Is(err, c.err) {
				t.Errorf("expected %v, got %v", c.err, err)
			}
		})
	}
}

func TestDigitsAndForm(t *testing.T) {
	cases := []struct {
		name     string
		set      Settings
		op       Op
		a, b     string
		expected string
	}{
		{"more digits", Settings{Digits: 20}, Div, "1", "3", "0.33333333333333333333"},
		{"fewer digits", Settings{Digits: 4}, Mul, "123.45", "1", "123.5"},
		{"scientific", Settings{Digits: 5}, Mul, "123456", "10", "1.2346E+6"},
		{"engineering", Settings{Digits: 5, Form: Engineering}, Mul, "123456", "10", "1.2346E+6"},
		{"engineering shifts", Settings{Digits: 5, Form: Engineering}, Mul, "123456", "100", "12.346E+6"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.set.Arith(c.op, c.a, c.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.expected {
				t.Errorf("expected %s, got %s", c.expected, got)
			}
		})
	}
}

func TestCompareFuzz(t *testing.T) {
	exact := Default()
	if c, _ := exact.Compare("1.000000001", "1"); c != 0 {
		t.Errorf("expected operands equal at nine digits, got %d", c)
	}
	if c, _ := exact.Compare("2", "10"); c >= 0 {
		t.Errorf("expected 2 < 10 numerically, got %d", c)
	}
	fuzzy := Settings{Digits: 9, Fuzz: 2}
	if c, _ := fuzzy.Compare("1234567.8", "1234567.5"); c != 0 {
		t.Errorf("expected values equal with fuzz 2, got %d", c)
	}
	if c, _ := exact.Compare("1234567.8", "1234567.5"); c <= 0 {
		t.Errorf("expected first value greater without fuzz, got %d", c)
	}
}

func TestParse(t *testing.T) {
	valid := []string{"1", " 12 ", "-1", "+ 3", ".5", "5.", "1.5E+3", "2e-2", "007"}
	for _, s := range valid {
		if !IsNumber(s) {
			t.Errorf("expected %q to be a number", s)
		}
	}
	invalid := []string{"", " ", ".", "1..2", "1E", "1E+", "abc", "1 2", "--1", "0x10"}
	for _, s := range invalid {
		if IsNumber(s) {
			t.Errorf("expected %q not to be a number", s)
		}
	}
}

func TestWholeNumber(t *testing.T) {
	set := Default()
	cases := []struct {
		in       string
		expected int
		ok       bool
	}{
		{"10", 10, true},
		{"1.0", 1, true},
		{"-3", -3, true},
		{"1E+2", 100, true},
		{"1.5", 0, false},
		{"x", 0, false},
	}
	for _, c := range cases {
		got, err := set.WholeNumber(c.in)
		if (err == nil) != c.ok || got != c.expected {
			t.Errorf("WholeNumber(%q) = %d, %v", c.in, got, err)
		}
	}
}
