package pkgspace

import "github.com/fglock/PerlOnJava-sub015/internal/value"

// Class holds what little bookkeeping the core needs about a blessed
// package: its immediate parents (for @ISA-style linearization) and
// its overload table. Everything else about a class (its regular
// methods, its source) belongs to the out-of-scope module system.
type Class struct {
	Name      string
	Parents   []string
	Overloads map[string]*value.Code

	mro    []string // cached linearized resolution order, nil until computed
	mroGen int
}

func (s *Space) DefineClass(name string, parents []string) *Class {
	c := &Class{Name: name, Parents: parents, Overloads: make(map[string]*value.Code)}
	s.classes.Store(name, c)
	s.invalidateMRO()
	return c
}

func (s *Space) class(name string) *Class {
	if v, ok := s.classes.Load(name); ok {
		return v.(*Class)
	}
	return nil
}

// invalidateMRO drops every class's cached linearization. Mutation of
// the class graph (new parent, new class) is rare relative to method
// dispatch, so a blunt invalidate-all is the right trade: cache per
// class, invalidate on any class mutation, without finer granularity.
func (s *Space) invalidateMRO() {
	s.classes.Range(func(_, v interface{}) bool {
		v.(*Class).mro = nil
		return true
	})
}

// linearize computes a plain depth-first MRO (self first, then each
// parent's linearization left to right, skipping classes already seen),
// memoized on the Class until the next invalidation.
func (s *Space) linearize(name string) []string {
	c := s.class(name)
	if c == nil {
		return []string{name}
	}
	if c.mro != nil {
		return c.mro
	}
	seen := map[string]bool{}
	var order []string
	var visit func(string)
	visit = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		order = append(order, n)
		if cc := s.class(n); cc != nil {
			for _, p := range cc.Parents {
				visit(p)
			}
		}
	}
	visit(name)
	c.mro = order
	return order
}

// ResolveOperator implements value.OverloadResolver: walks class's MRO
// looking for a registered overload method for op.
func (s *Space) ResolveOperator(class, op string) *value.Code {
	for _, c := range s.linearize(class) {
		if cc := s.class(c); cc != nil {
			if m, ok := cc.Overloads[op]; ok {
				return m
			}
		}
	}
	return nil
}

var _ value.OverloadResolver = (*Space)(nil)
