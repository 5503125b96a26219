// Package variables is the scoped variable store.
//
// Every call level that executed PROCEDURE owns one hashtab.Table of
// entries. An entry either holds its value or is a link to the level the
// value really lives in, which is how EXPOSE shares a variable with the
// caller. Stems carry a default value and a nested table of tails.
//
// Names handed to the store are already derived: simple symbols and stems
// upper-cased, compound symbols as the stem followed by the substituted
// tail. Resolve turns a compound symbol as written into its derived name.
package variables

import (
	"strings"

	"rexx/internal/hashtab"
)

const owned = -1

type tail struct {
	value string
	set   bool
}

type stem struct {
	def    string
	hasDef bool
	tails  *hashtab.Table[*tail]
}

func newStem() *stem {
	return &stem{tails: hashtab.New[*tail]()}
}

type entry struct {
	value string
	set   bool
	link  int // level the variable lives in, or owned
	stem  *stem
}

type level struct {
	vars    *hashtab.Table[*entry]
	inherit bool // names not found here are looked up in the caller's level
	hidden  map[string]bool
}

func newLevel() *level {
	return &level{vars: hashtab.New[*entry]()}
}

// Store holds the variable levels of one invocation.
type Store struct {
	levels []*level
}

// New returns a store with the global level.
func New() *Store {
	return &Store{levels: []*level{newLevel()}}
}

// Depth returns the index of the current level.
func (s *Store) Depth() int { return len(s.levels) - 1 }

// NewLevel starts a fresh, empty level, as PROCEDURE does.
func (s *Store) NewLevel() {
	s.levels = append(s.levels, newLevel())
}

// NewHidingLevel starts a level that sees every variable of the caller
// except the hidden names, which become local.
func (s *Store) NewHidingLevel(hidden []string) {
	l := newLevel()
	l.inherit = true
	l.hidden = make(map[string]bool, len(hidden))
	for _, h := range hidden {
		l.hidden[h] = true
	}
	s.levels = append(s.levels, l)
}

// Truncate discards levels above depth.
func (s *Store) Truncate(depth int) {
	if depth < 0 {
		depth = 0
	}
	for i := depth + 1; i < len(s.levels); i++ {
		s.levels[i] = nil
	}
	if depth+1 < len(s.levels) {
		s.levels = s.levels[:depth+1]
	}
}

// Expose links name in the current level to the same name in the caller's
// level. name may be a simple symbol, a stem or a derived compound name.
func (s *Store) Expose(name string) bool {
	cur := len(s.levels) - 1
	if cur == 0 {
		return false
	}
	l := s.levels[cur]
	if e, ok := l.vars.Get(name); ok && e.link == cur-1 {
		return true
	}
	l.vars.Insert(name, &entry{link: cur - 1})
	return true
}

// split separates a derived name into stem and tail. Simple symbols have no
// stem.
func split(name string) (stemName, tailName string, compound bool) {
	i := strings.IndexByte(name, '.')
	if i < 0 {
		return "", "", false
	}
	return name[:i+1], name[i+1:], true
}

// locate finds the entry for a simple symbol or stem, following links. With
// create it makes a missing entry in the level the name belongs to.
func (s *Store) locate(lv int, key string, create bool) *entry {
	for {
		l := s.levels[lv]
		e, ok := l.vars.Get(key)
		if ok {
			if e.link == owned {
				return e
			}
			lv = e.link
			continue
		}
		if l.inherit && !l.hidden[key] && lv > 0 {
			lv--
			continue
		}
		if !create {
			return nil
		}
		e = &entry{link: owned}
		l.vars.Insert(key, e)
		return e
	}
}

// stemFor finds the stem holding the tail of a compound name, honouring
// exposure of the compound name itself.
func (s *Store) stemFor(lv int, stemName, tailName string, create bool) *stem {
	full := stemName + tailName
	for {
		l := s.levels[lv]
		if e, ok := l.vars.Get(full); ok && e.link != owned {
			lv = e.link
			continue
		}
		e, ok := l.vars.Get(stemName)
		if ok && e.link != owned {
			lv = e.link
			continue
		}
		if !ok && l.inherit && !l.hidden[stemName] && lv > 0 {
			lv--
			continue
		}
		if !ok {
			if !create {
				return nil
			}
			e = &entry{link: owned}
			l.vars.Insert(stemName, e)
		}
		if e.stem == nil {
			e.stem = newStem()
		}
		return e.stem
	}
}

// Get returns the value of a derived name. An unset variable yields its own
// name and false.
func (s *Store) Get(name string) (string, bool) {
	cur := len(s.levels) - 1
	stemName, tailName, compound := split(name)
	if compound && tailName != "" {
		st := s.stemFor(cur, stemName, tailName, false)
		if st == nil {
			return name, false
		}
		if t, ok := st.tails.Get(tailName); ok {
			if t.set {
				return t.value, true
			}
			return name, false
		}
		if st.hasDef {
			return st.def, true
		}
		return name, false
	}
	e := s.locate(cur, name, false)
	if e == nil {
		return name, false
	}
	if compound {
		if e.stem != nil && e.stem.hasDef {
			return e.stem.def, true
		}
		return name, false
	}
	if !e.set {
		return name, false
	}
	return e.value, true
}

// Exists reports whether name currently has a value.
func (s *Store) Exists(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Set assigns value to a derived name and reports whether the variable was
// previously unset. Assigning to a stem sets its default and discards every
// tail.
func (s *Store) Set(name, value string) bool {
	cur := len(s.levels) - 1
	stemName, tailName, compound := split(name)
	if compound && tailName != "" {
		st := s.stemFor(cur, stemName, tailName, true)
		t, ok := st.tails.Get(tailName)
		if !ok {
			st.tails.Insert(tailName, &tail{value: value, set: true})
			return true
		}
		fresh := !t.set
		t.value, t.set = value, true
		return fresh
	}
	e := s.locate(cur, name, true)
	fresh := !e.set
	if compound {
		e.stem = newStem()
		e.stem.def, e.stem.hasDef = value, true
	} else {
		e.value = value
	}
	e.set = true
	return fresh
}

// Drop makes name unset. The entry stays in its table so a running
// iteration still passes over it. Dropping a stem drops every tail.
func (s *Store) Drop(name string) bool {
	cur := len(s.levels) - 1
	stemName, tailName, compound := split(name)
	if compound && tailName != "" {
		st := s.stemFor(cur, stemName, tailName, true)
		t, ok := st.tails.Get(tailName)
		if !ok {
			st.tails.Insert(tailName, &tail{})
			return false
		}
		was := t.set
		t.value, t.set = "", false
		return was
	}
	e := s.locate(cur, name, false)
	if e == nil {
		return false
	}
	was := e.set
	e.value, e.set = "", false
	if compound {
		e.stem = newStem()
	}
	return was
}

// IsConstantSymbol reports whether a tail segment is used literally: it
// starts with a digit or is empty.
func IsConstantSymbol(seg string) bool {
	return seg == "" || (seg[0] >= '0' && seg[0] <= '9')
}

// Resolve derives the name of symbol, which must already be upper-cased.
// Each non-constant tail segment of a compound symbol is replaced by the
// value of the simple variable of that name.
func (s *Store) Resolve(symbol string) string {
	i := strings.IndexByte(symbol, '.')
	if i < 0 || i == len(symbol)-1 {
		return symbol
	}
	segs := strings.Split(symbol[i+1:], ".")
	for j, seg := range segs {
		if IsConstantSymbol(seg) {
			continue
		}
		if v, ok := s.Get(seg); ok {
			segs[j] = v
		}
	}
	return symbol[:i+1] + strings.Join(segs, ".")
}

// Fetch resolves symbol and returns its value, or its derived name and false
// when unset.
func (s *Store) Fetch(symbol string) (string, bool) {
	return s.Get(s.Resolve(symbol))
}

// Each calls fn for every set variable of the current level in the order
// the variables were first defined. Stems report their default under the
// stem name followed by each set tail.
func (s *Store) Each(fn func(name, value string) bool) {
	cur := len(s.levels) - 1
	s.levels[cur].vars.Each(func(name string, e *entry) bool {
		if e.link != owned {
			stemName, tailName, compound := split(name)
			if compound && tailName != "" {
				v, ok := s.Get(name)
				return !ok || fn(name, v)
			}
			if compound {
				e = s.locate(cur, stemName, false)
			} else {
				e = s.locate(cur, name, false)
			}
			if e == nil {
				return true
			}
		}
		if e.stem != nil {
			if e.stem.hasDef && !fn(name, e.stem.def) {
				return false
			}
			cont := true
			e.stem.tails.Each(func(t string, v *tail) bool {
				if v.set && !fn(name+t, v.value) {
					cont = false
				}
				return cont
			})
			return cont
		}
		if e.set {
			return fn(name, e.value)
		}
		return true
	})
}

// Duplicate returns a detached store whose global level is a copy of the
// variables visible at the current level.
func (s *Store) Duplicate() *Store {
	d := New()
	s.Each(func(name, value string) bool {
		d.Set(name, value)
		return true
	})
	return d
}
