package avm2

import (
	"github.com/chazu/avmcore/heap"
)

// ScopeChain is an immutable linked list of lookup frames captured by
// closures and classes. The only way to start a chain is from a global
// object, so every chain terminates at a global frame.
type ScopeChain struct {
	parent *ScopeChain
	object *Object
	with   bool
	domain *Domain
}

// NewScopeChain starts a chain at a script's global object.
func NewScopeChain(global *Object, domain *Domain) *ScopeChain {
	return &ScopeChain{object: global, domain: domain}
}

// Push returns a new chain with o as the innermost frame.
func (s *ScopeChain) Push(o *Object, with bool) *ScopeChain {
	return &ScopeChain{parent: s, object: o, with: with, domain: s.domain}
}

func (s *ScopeChain) Parent() *ScopeChain { return s.parent }
func (s *ScopeChain) Object() *Object     { return s.object }
func (s *ScopeChain) IsWith() bool        { return s.with }
func (s *ScopeChain) Domain() *Domain     { return s.domain }

// Global returns the outermost frame's object.
func (s *ScopeChain) Global() *Object {
	cur := s
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur.object
}

// Depth counts the frames, the global included.
func (s *ScopeChain) Depth() int {
	n := 0
	for cur := s; cur != nil; cur = cur.parent {
		n++
	}
	return n
}

// At returns the frame object at depth i counted from the global (0).
func (s *ScopeChain) At(i int) (*Object, bool) {
	d := s.Depth()
	if i < 0 || i >= d {
		return nil, false
	}
	cur := s
	for j := d - 1; j > i; j-- {
		cur = cur.parent
	}
	return cur.object, true
}

func (s *ScopeChain) trace(t *heap.Tracer) {
	for cur := s; cur != nil; cur = cur.parent {
		t.Mark(cur.object)
	}
}

// frameHas applies the per-frame search rule: with frames and dynamic
// objects are searched dynamically, including their prototype chains;
// other frames only by trait.
func frameHas(o *Object, with bool, mn Multiname) bool {
	if with || o.kind == ObjectGlobal || o.dynamic != nil && o.kind != ObjectActivation {
		return o.HasProperty(mn)
	}
	return o.hasTrait(mn)
}

// Find walks the chain innermost to outermost and returns the first
// frame object that has mn.
func (s *ScopeChain) Find(mn Multiname) (*Object, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if frameHas(cur.object, cur.with, mn) {
			return cur.object, true
		}
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Local scope stack
// ---------------------------------------------------------------------------

// scopeEntry is one pushscope/pushwith frame of a running method.
type scopeEntry struct {
	object *Object
	with   bool
}

// findProperty implements the lookup order shared by findproperty,
// findpropstrict and getlex: the method's scope stack top to bottom, the
// captured chain, then the domain's script definitions. A definition
// found in the domain runs its script initializer first.
func (a *Activation) findProperty(mn Multiname) (*Object, bool, error) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		e := a.scopes[i]
		if frameHas(e.object, e.with, mn) {
			return e.object, true, nil
		}
	}
	if a.outer != nil {
		if o, ok := a.outer.Find(mn); ok {
			return o, true, nil
		}
	}
	if d := a.domain(); d != nil {
		if script, _, ok := d.findScript(mn); ok {
			global, err := script.ensureInitialized(a)
			if err != nil {
				return nil, false, err
			}
			return global, true, nil
		}
	}
	return nil, false, nil
}

// findPropStrict fails with a ReferenceError naming the qualified name.
func (a *Activation) findPropStrict(mn Multiname) (*Object, error) {
	o, ok, err := a.findProperty(mn)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, a.Throw(CodeUndefinedVariable, mn)
	}
	return o, nil
}

// findPropertyOrGlobal falls back to the global object.
func (a *Activation) findPropertyOrGlobal(mn Multiname) (*Object, error) {
	o, ok, err := a.findProperty(mn)
	if err != nil {
		return nil, err
	}
	if !ok {
		return a.globalObject(), nil
	}
	return o, nil
}

func (a *Activation) globalObject() *Object {
	if a.outer != nil {
		return a.outer.Global()
	}
	if len(a.scopes) > 0 {
		return a.scopes[0].object
	}
	return a.vm.global
}

func (a *Activation) domain() *Domain {
	if a.outer != nil && a.outer.domain != nil {
		return a.outer.domain
	}
	return a.vm.domain
}

// captureScope freezes the current scope stack on top of the captured
// chain, for newfunction, newclass and method closures.
func (a *Activation) captureScope() *ScopeChain {
	chain := a.outer
	start := 0
	if chain == nil {
		if len(a.scopes) == 0 {
			return NewScopeChain(a.vm.global, a.vm.domain)
		}
		chain = NewScopeChain(a.scopes[0].object, a.vm.domain)
		start = 1
	}
	for _, e := range a.scopes[start:] {
		chain = chain.Push(e.object, e.with)
	}
	return chain
}
