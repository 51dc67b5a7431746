package avm1

import (
	"github.com/chazu/avmcore/heap"
)

// ScopeClass identifies what a scope frame represents.
type ScopeClass uint8

const (
	ScopeGlobal ScopeClass = iota
	ScopeTarget
	ScopeLocal
	ScopeWith
)

// Scope is one immutable link of the scope chain. Frames can only be
// created beneath an existing frame, so every chain ends at a global frame.
type Scope struct {
	parent *Scope
	class  ScopeClass
	values *Object
}

// NewGlobalScope creates the root frame for the VM's global object.
func (vm *VM) NewGlobalScope() *Scope {
	return alloc(vm, &Scope{class: ScopeGlobal, values: vm.global})
}

// NewTargetScope pushes a timeline frame whose values are clip's variables.
func (vm *VM) NewTargetScope(parent *Scope, clip *Clip) *Scope {
	return alloc(vm, &Scope{parent: parent, class: ScopeTarget, values: clip.object})
}

// NewLocalScope pushes a fresh function-local frame.
func (vm *VM) NewLocalScope(parent *Scope) *Scope {
	return alloc(vm, &Scope{parent: parent, class: ScopeLocal, values: alloc(vm, &Object{})})
}

// NewWithScope pushes a with-block frame over obj.
func (vm *VM) NewWithScope(parent *Scope, obj *Object) *Scope {
	return alloc(vm, &Scope{parent: parent, class: ScopeWith, values: obj})
}

// Parent returns the enclosing scope, nil for the global scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Class reports what kind of frame s is.
func (s *Scope) Class() ScopeClass { return s.class }

// Locals returns the object holding the scope's variables, such as the
// global object or a timeline's clip.
func (s *Scope) Locals() *Object { return s.values }

// IsGlobal reports whether s is the global scope.
func (s *Scope) IsGlobal() bool { return s.class == ScopeGlobal }

// Global returns the terminating frame of the chain.
func (s *Scope) Global() *Scope {
	cur := s
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Trace implements heap.Object.
func (s *Scope) Trace(t *heap.Tracer) {
	if s.parent != nil {
		t.Mark(s.parent)
	}
	if s.values != nil {
		t.Mark(s.values)
	}
}

// Resolve walks the chain innermost first and returns the object of the
// first frame that has name as an own or inherited property.
func (s *Scope) Resolve(a *Activation, name string) (*Object, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.values.HasProperty(a, name) {
			return cur.values, true
		}
	}
	return nil, false
}

// Get reads a variable. Unresolved names read as undefined.
func (s *Scope) Get(a *Activation, name string) (Value, error) {
	owner, ok := s.Resolve(a, name)
	if !ok {
		return Undefined, nil
	}
	return owner.Get(a, name)
}

// Set assigns a variable: the first frame that already has the name
// receives it, and an unresolved name is stored on the nearest timeline.
func (s *Scope) Set(a *Activation, name string, v Value) error {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.class == ScopeTarget || cur.values.HasProperty(a, name) {
			return cur.values.Set(a, name, v)
		}
	}
	// A chain with no timeline frame stores on the innermost frame.
	return s.values.Set(a, name, v)
}

// DefineLocal defines name in the innermost non-with frame.
func (s *Scope) DefineLocal(a *Activation, name string, v Value) error {
	cur := s
	for cur.class == ScopeWith && cur.parent != nil {
		cur = cur.parent
	}
	return cur.values.Set(a, name, v)
}

// ForceDefineLocal defines name on this frame without running setters.
func (s *Scope) ForceDefineLocal(name string, v Value) {
	s.values.Define(name, v, 0)
}

// Delete removes the first resolvable binding of name.
func (s *Scope) Delete(a *Activation, name string) bool {
	owner, ok := s.Resolve(a, name)
	if !ok {
		return false
	}
	return owner.Delete(a, name)
}
