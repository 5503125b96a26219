package interp

import (
	"strings"

	"rexx/internal/lexer"
)

// PoolOp is a variable pool request code.
type PoolOp int

const (
	PoolFetch    PoolOp = iota // fetch by derived name
	PoolSet                    // set by derived name
	PoolDrop                   // drop by derived name
	PoolSymFetch               // fetch by symbol, resolved in the current scope
	PoolSymSet
	PoolSymDrop
	PoolNext // next variable of the current level in definition order
)

// PoolStatus holds the result flags of a variable pool request.
type PoolStatus uint8

const (
	PoolNew       PoolStatus = 1 << iota // the variable was not set
	PoolLast                             // NEXT has no more variables
	PoolTruncated                        // name or value was cut to Limit
	PoolBadName                          // the name is not a valid variable name
	PoolNoMemory
)

// PoolRequest is one entry of a variable pool call. Fetch and Next fill in
// Name, Value and Status.
type PoolRequest struct {
	Op     PoolOp
	Name   string
	Value  string
	Limit  int // largest name or value returned; 0 means no limit
	Status PoolStatus
}

// VariablePool executes requests against the variables of the innermost
// running program and returns the union of their status flags.
func (s *Session) VariablePool(reqs []PoolRequest) (PoolStatus, error) {
	c := s.active
	if c == nil {
		return 0, ErrNotActive
	}
	var all PoolStatus
	for i := range reqs {
		c.poolRequest(&reqs[i])
		all |= reqs[i].Status
	}
	return all, nil
}

func (c *Context) poolRequest(r *PoolRequest) {
	r.Status = 0
	if r.Op == PoolNext {
		c.poolNext(r)
		return
	}
	name := r.Name
	switch r.Op {
	case PoolSymFetch, PoolSymSet, PoolSymDrop:
		name = strings.ToUpper(name)
		if !validName(name) {
			r.Status = PoolBadName
			return
		}
		name = c.vars.Resolve(name)
	default:
		if !validDerived(name) {
			r.Status = PoolBadName
			return
		}
	}
	switch r.Op {
	case PoolFetch, PoolSymFetch:
		v, ok := c.vars.Get(name)
		if !ok {
			r.Status |= PoolNew
		}
		r.Value = r.clip(v)
	case PoolSet, PoolSymSet:
		if c.vars.Set(name, r.Value) {
			r.Status |= PoolNew
		}
	case PoolDrop, PoolSymDrop:
		if !c.vars.Drop(name) {
			r.Status |= PoolNew
		}
	default:
		r.Status = PoolBadName
	}
}

// poolNext returns the next variable of a snapshot taken by the first
// NEXT request. The snapshot is discarded once it has been exhausted.
func (c *Context) poolNext(r *PoolRequest) {
	if c.snapshot == nil {
		c.snapshot = []pair{}
		c.vars.Duplicate().Each(func(name, value string) bool {
			c.snapshot = append(c.snapshot, pair{name, value})
			return true
		})
	}
	if len(c.snapshot) == 0 {
		c.snapshot = nil
		r.Name, r.Value = "", ""
		r.Status = PoolLast
		return
	}
	p := c.snapshot[0]
	c.snapshot = c.snapshot[1:]
	r.Name = r.clip(p.name)
	r.Value = r.clip(p.value)
}

func (r *PoolRequest) clip(s string) string {
	if r.Limit > 0 && len(s) > r.Limit {
		r.Status |= PoolTruncated
		return s[:r.Limit]
	}
	return s
}

// validName reports whether name can name a variable: a non-empty run of
// symbol characters not starting with a digit or period.
func validName(name string) bool {
	if name == "" || isConstant(name) {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !lexer.IsSymbolChar(name[i]) {
			return false
		}
	}
	return true
}

// validDerived reports whether name is a derived variable name. The tail
// of a compound name holds the values of its symbols, so only the stem
// part has to be a valid name.
func validDerived(name string) bool {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return validName(name[:i+1])
	}
	return validName(name)
}
