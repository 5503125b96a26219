package hashtab

import (
	"strconv"
	"testing"
)

func TestCompare(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		sign int
	}{
		{"equal", "ABC", "ABC", 0},
		{"shorter first", "ZZ", "AAA", -1},
		{"longer last", "AAA", "ZZ", 1},
		{"last byte decides", "A1", "B0", 1},
		{"nibbles transposed", "\x0f", "\x10", 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Compare(c.a, c.b)
			if (got < 0 && c.sign >= 0) || (got > 0 && c.sign <= 0) || (got == 0 && c.sign != 0) {
				t.Errorf("Compare(%q, %q) = %d, want sign %d", c.a, c.b, got, c.sign)
			}
		})
	}
}

func TestInsertGet(t *testing.T) {
	tab := New[int]()
	if !tab.Insert("SYSTEM", 1) {
		t.Fatalf("expected SYSTEM to be new")
	}
	tab.Insert("COMMAND", 2)
	if tab.Insert("SYSTEM", 3) {
		t.Errorf("expected SYSTEM to be replaced, not added")
	}
	if v, ok := tab.Get("SYSTEM"); !ok || v != 3 {
		t.Errorf("expected 3, got %d %v", v, ok)
	}
	if _, ok := tab.Get("REXX"); ok {
		t.Errorf("expected REXX to be missing")
	}
	if tab.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", tab.Len())
	}
}

func TestDeleteKeepsChildren(t *testing.T) {
	tab := New[string]()
	for _, n := range []string{"M", "B", "X", "A", "C"} {
		tab.Insert(n, n)
	}
	if !tab.Delete("B") {
		t.Fatalf("expected B to be deleted")
	}
	for _, n := range []string{"A", "C", "M", "X"} {
		if _, ok := tab.Get(n); !ok {
			t.Errorf("expected %s to survive deletion of B", n)
		}
	}
	if _, ok := tab.Get("B"); ok {
		t.Errorf("expected B to be gone")
	}
	if tab.Insert("B", "again"); tab.Len() != 5 {
		t.Errorf("expected 5 entries after reinsert, got %d", tab.Len())
	}
}

func TestSequentialNamesStayShallow(t *testing.T) {
	tab := New[int]()
	for i := 1; i <= 999; i++ {
		tab.Insert(strconv.Itoa(i), i)
	}
	if d := tab.Depth(); d >= 100 {
		t.Errorf("expected a shallow tree for sequential names, depth %d", d)
	}
	var order []string
	tab.Each(func(name string, _ int) bool {
		order = append(order, name)
		return len(order) < 3
	})
	if len(order) != 3 || order[0] != "1" || order[2] != "3" {
		t.Errorf("expected insertion order iteration, got %v", order)
	}
}
