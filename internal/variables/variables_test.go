package variables

import (
	"reflect"
	"testing"
)

func TestDropYieldsName(t *testing.T) {
	s := New()
	s.Set("X", "10")
	s.Drop("X")
	if v, ok := s.Get("X"); ok || v != "X" {
		t.Errorf("expected dropped variable to yield its name, got %q %v", v, ok)
	}
	s.Set("X", "11")
	if v, _ := s.Get("X"); v != "11" {
		t.Errorf("expected reassigned value, got %q", v)
	}
}

func TestStemDefault(t *testing.T) {
	s := New()
	s.Set("A.", "X")
	cases := []struct {
		name     string
		expected string
	}{
		{"A.1", "X"},
		{"A.2", "X"},
	}
	for _, c := range cases {
		if v, ok := s.Get(c.name); !ok || v != c.expected {
			t.Errorf("%s: expected %q, got %q", c.name, c.expected, v)
		}
	}

	s.Set("A.1", "Y")
	if v, _ := s.Get("A.1"); v != "Y" {
		t.Errorf("expected Y, got %q", v)
	}
	if v, _ := s.Get("A.2"); v != "X" {
		t.Errorf("expected default X, got %q", v)
	}

	s.Drop("A.2")
	if v, ok := s.Get("A.2"); ok || v != "A.2" {
		t.Errorf("expected dropped tail to yield its name, got %q", v)
	}

	s.Set("A.", "Z")
	if v, _ := s.Get("A.1"); v != "Z" {
		t.Errorf("expected stem assignment to reset tails, got %q", v)
	}
}

func TestResolve(t *testing.T) {
	s := New()
	s.Set("I", "3")
	s.Set("J", "x y")
	cases := []struct {
		symbol   string
		expected string
	}{
		{"B", "B"},
		{"B.", "B."},
		{"B.I", "B.3"},
		{"B.I.J", "B.3.x y"},
		{"B.1.K", "B.1.K"},
		{"B..I", "B..3"},
	}
	for _, c := range cases {
		if got := s.Resolve(c.symbol); got != c.expected {
			t.Errorf("Resolve(%q) = %q, expected %q", c.symbol, got, c.expected)
		}
	}
	s.Set(s.Resolve("B.I"), "three")
	if v, ok := s.Fetch("B.3"); !ok || v != "three" {
		t.Errorf("expected B.3 to be set, got %q", v)
	}
}

func TestProcedureLevels(t *testing.T) {
	s := New()
	s.Set("A", "1")
	s.Set("B", "2")
	s.Set("S.1", "one")

	s.NewLevel()
	s.Expose("A")
	s.Expose("S.")
	s.Expose("NEW")

	if _, ok := s.Get("B"); ok {
		t.Errorf("expected B to be hidden by PROCEDURE")
	}
	if v, _ := s.Get("S.1"); v != "one" {
		t.Errorf("expected exposed stem tail, got %q", v)
	}
	s.Set("A", "changed")
	s.Set("NEW", "made here")
	s.Set("B", "local")
	s.Truncate(0)

	cases := []struct {
		name     string
		expected string
	}{
		{"A", "changed"},
		{"B", "2"},
		{"NEW", "made here"},
	}
	for _, c := range cases {
		if v, _ := s.Get(c.name); v != c.expected {
			t.Errorf("%s: expected %q, got %q", c.name, c.expected, v)
		}
	}
}

func TestExposeCompound(t *testing.T) {
	s := New()
	s.Set("T.1", "shared")
	s.Set("T.2", "private")
	s.NewLevel()
	s.Expose("T.1")
	if v, _ := s.Get("T.1"); v != "shared" {
		t.Errorf("expected exposed compound, got %q", v)
	}
	if _, ok := s.Get("T.2"); ok {
		t.Errorf("expected other tails to stay hidden")
	}
	s.Drop("T.1")
	s.Truncate(0)
	if _, ok := s.Get("T.1"); ok {
		t.Errorf("expected drop to reach the caller's variable")
	}
}

func TestHidingLevel(t *testing.T) {
	s := New()
	s.Set("KEEP", "k")
	s.Set("SECRET", "s")
	s.NewHidingLevel([]string{"SECRET"})
	if v, _ := s.Get("KEEP"); v != "k" {
		t.Errorf("expected inherited variable, got %q", v)
	}
	if _, ok := s.Get("SECRET"); ok {
		t.Errorf("expected hidden variable to be unset")
	}
	s.Set("SECRET", "local")
	s.Set("KEEP", "updated")
	s.Truncate(0)
	if v, _ := s.Get("SECRET"); v != "s" {
		t.Errorf("expected caller's hidden variable untouched, got %q", v)
	}
	if v, _ := s.Get("KEEP"); v != "updated" {
		t.Errorf("expected shared update, got %q", v)
	}
}

func TestEachDefinitionOrder(t *testing.T) {
	s := New()
	s.Set("Z", "1")
	s.Set("A", "2")
	s.Set("M.", "d")
	s.Set("M.K", "3")
	s.Set("GONE", "x")
	s.Drop("GONE")

	var names []string
	s.Each(func(name, value string) bool {
		names = append(names, name+"="+value)
		return true
	})
	expected := []string{"Z=1", "A=2", "M.=d", "M.K=3"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("expected %v, got %v", expected, names)
	}

	d := s.Duplicate()
	s.Set("Z", "changed")
	if v, _ := d.Get("Z"); v != "1" {
		t.Errorf("expected snapshot to be detached, got %q", v)
	}
	if v, _ := d.Get("M.Q"); v != "d" {
		t.Errorf("expected snapshot to keep stem default, got %q", v)
	}
}

func TestSetReportsNew(t *testing.T) {
	s := New()
	if !s.Set("V", "1") {
		t.Errorf("expected first assignment to be new")
	}
	if s.Set("V", "2") {
		t.Errorf("expected second assignment not to be new")
	}
}
