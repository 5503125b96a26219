// Package hashtab is the single-scope name table used for subcommand
// environments, open streams and registered functions.
//
// Entries live in one growable arena and are linked into a binary tree by
// arena index, so growing the arena never invalidates a reference held by a
// caller.
package hashtab

// Compare orders names by length first and then by the last differing byte
// with its nibbles transposed. Sequential names such as "A1", "A2", "A3" or
// "10", "11", "12" differ in their final bytes, so a run of them inserted in
// order spreads over the tree instead of forming a list.
func Compare(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return int(transpose(a[i])) - int(transpose(b[i]))
		}
	}
	return 0
}

func transpose(c byte) byte {
	return c<<4 | c>>4
}

const none = -1

type entry[V any] struct {
	name        string
	value       V
	live        bool
	left, right int
}

// Table maps names to values of type V.
type Table[V any] struct {
	entries []entry[V]
	root    int
	count   int
}

// New returns an empty table.
func New[V any]() *Table[V] {
	return &Table[V]{root: none}
}

// Find locates name. When the name is absent, slot is the arena index of the
// node the name would hang off, or -1 for an empty tree.
func (t *Table[V]) Find(name string) (slot int, exists bool) {
	slot = none
	i := t.root
	for i != none {
		slot = i
		c := Compare(name, t.entries[i].name)
		switch {
		case c == 0:
			return i, t.entries[i].live
		case c < 0:
			i = t.entries[i].left
		default:
			i = t.entries[i].right
		}
	}
	return slot, false
}

// Get returns the value stored under name.
func (t *Table[V]) Get(name string) (V, bool) {
	i, ok := t.Find(name)
	if !ok {
		var zero V
		return zero, false
	}
	return t.entries[i].value, true
}

// Insert stores value under name, replacing any previous value. It reports
// whether the name was new.
func (t *Table[V]) Insert(name string, value V) bool {
	slot, ok := t.Find(name)
	if slot != none && t.entries[slot].name == name {
		t.entries[slot].value = value
		if !ok {
			t.entries[slot].live = true
			t.count++
		}
		return !ok
	}
	t.entries = append(t.entries, entry[V]{name: name, value: value, live: true, left: none, right: none})
	idx := len(t.entries) - 1
	switch {
	case slot == none:
		t.root = idx
	case Compare(name, t.entries[slot].name) < 0:
		t.entries[slot].left = idx
	default:
		t.entries[slot].right = idx
	}
	t.count++
	return true
}

// Delete marks name as absent. The node stays in the tree so that its
// children remain reachable and a later Insert reuses it.
func (t *Table[V]) Delete(name string) bool {
	i, ok := t.Find(name)
	if !ok {
		return false
	}
	var zero V
	t.entries[i].value = zero
	t.entries[i].live = false
	t.count--
	return true
}

// Len returns the number of live names.
func (t *Table[V]) Len() int { return t.count }

// Each calls fn for every live entry in insertion order until fn returns false.
func (t *Table[V]) Each(fn func(name string, value V) bool) {
	for i := range t.entries {
		if t.entries[i].live && !fn(t.entries[i].name, t.entries[i].value) {
			return
		}
	}
}

// Depth returns the height of the tree; it is exported for tests that check
// the comparator keeps sequential names shallow.
func (t *Table[V]) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		if i == none {
			return 0
		}
		return 1 + max(walk(t.entries[i].left), walk(t.entries[i].right))
	}
	return walk(t.root)
}
