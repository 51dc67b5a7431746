package avm1

import (
	"github.com/chazu/avmcore/heap"
)

// ClosureVersion is the first document version whose functions capture
// their defining scope. Older functions rebuild scope from the caller.
const ClosureVersion = 6

// Flags is the DefineFunction2 preload/suppress flag set.
type Flags uint16

const (
	PreloadThis       Flags = 0x0001
	SuppressThis      Flags = 0x0002
	PreloadArguments  Flags = 0x0004
	SuppressArguments Flags = 0x0008
	PreloadSuper      Flags = 0x0010
	SuppressSuper     Flags = 0x0020
	PreloadRoot       Flags = 0x0040
	PreloadParent     Flags = 0x0080
	PreloadGlobal     Flags = 0x0100
)

// Has reports whether every bit of f2 is set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Param binds one declared parameter. Register 0 means the parameter is
// bound as a named local instead of a register.
type Param struct {
	Register uint8
	Name     string
}

// NativeFunc is the contract for host-implemented built-ins.
type NativeFunc func(a *Activation, this *Object, args []Value) (Value, error)

// TableNativeFunc multiplexes many built-ins through one entry point.
type TableNativeFunc func(a *Activation, this *Object, args []Value, index int) (Value, error)

// ExecutionReason distinguishes ordinary calls from implicit ones
// (getters, setters, valueOf/toString conversions).
type ExecutionReason uint8

const (
	ReasonFunctionCall ExecutionReason = iota
	ReasonSpecial
)

// Function is the immutable executable of a function object. Script
// functions carry decoded metadata; natives carry a Go entry point.
type Function struct {
	Name          string
	Version       uint8
	Code          []byte
	Params        []Param
	RegisterCount uint8
	Flags         Flags
	IsFunction2   bool

	scope     *Scope
	constants []Value
	baseClip  *Clip

	native NativeFunc
	ctor   NativeFunc
	table  TableNativeFunc
	index  int
}

// IsNative reports whether the function is implemented by the host.
func (f *Function) IsNative() bool {
	return f.native != nil || f.table != nil
}

// Scope returns the captured defining scope.
func (f *Function) Scope() *Scope { return f.scope }

func (f *Function) trace(t *heap.Tracer) {
	if f.scope != nil {
		t.Mark(f.scope)
	}
	for _, c := range f.constants {
		c.trace(t)
	}
	if f.baseClip != nil && f.baseClip.object != nil {
		t.Mark(f.baseClip.object)
	}
}

// ---------------------------------------------------------------------------
// Function object construction
// ---------------------------------------------------------------------------

// NewFunction wraps a script function defined by the running activation,
// capturing its scope, constant pool and base clip.
func (a *Activation) NewFunction(f *Function) *Object {
	f.scope = a.scope
	f.constants = a.constants
	f.baseClip = a.baseClip
	return a.vm.newFunctionObject(f, true)
}

// NewNative wraps a host built-in.
func (vm *VM) NewNative(name string, fn NativeFunc) *Object {
	return vm.newFunctionObject(&Function{Name: name, native: fn, Version: vm.version}, false)
}

// NewNativeConstructor wraps a host built-in with distinct call and
// construct behaviors.
func (vm *VM) NewNativeConstructor(name string, call, construct NativeFunc) *Object {
	return vm.newFunctionObject(&Function{Name: name, native: call, ctor: construct, Version: vm.version}, true)
}

// NewTableNative wraps one entry of a multiplexed native table.
func (vm *VM) NewTableNative(name string, fn TableNativeFunc, index int) *Object {
	return vm.newFunctionObject(&Function{Name: name, table: fn, index: index, Version: vm.version}, false)
}

func (vm *VM) newFunctionObject(f *Function, withPrototype bool) *Object {
	o := alloc(vm, &Object{kind: ObjectFunction, proto: vm.protos.Function, fn: f})
	if withPrototype {
		proto := vm.NewObject(vm.protos.Object)
		proto.Define("constructor", ObjectValue(o), DontEnum)
		o.Define("prototype", ObjectValue(proto), DontEnum)
	}
	return o
}

// ---------------------------------------------------------------------------
// Super proxy
// ---------------------------------------------------------------------------

// superLink backs a super object. home is the prototype-chain position
// (0 is this itself) of the object that holds the running method.
type superLink struct {
	this  *Object
	depth int
}

func (s *superLink) home() *Object {
	h := s.this
	for i := 0; i < s.depth && h != nil; i++ {
		h = h.proto
	}
	return h
}

func (s *superLink) base() *Object {
	if h := s.home(); h != nil {
		return h.proto
	}
	return nil
}

func (s *superLink) get(a *Activation, name string) (Value, error) {
	base := s.base()
	if base == nil {
		return Undefined, nil
	}
	return base.getWithThis(a, name, s.this)
}

// NewSuper creates the super proxy for a method found at depth on this's
// prototype chain.
func (vm *VM) NewSuper(this *Object, depth int) *Object {
	o := alloc(vm, &Object{kind: ObjectSuper, super: &superLink{this: this, depth: depth}})
	o.proto = vm.protos.Object
	return o
}

// callConstructor runs super(...): the home object's __constructor__.
func (s *superLink) callConstructor(a *Activation, args []Value) (Value, error) {
	h := s.home()
	if h == nil {
		return Undefined, nil
	}
	c, err := h.getWithThis(a, "__constructor__", s.this)
	if err != nil {
		return Undefined, err
	}
	ctor := c.AsObject()
	if ctor == nil || ctor.kind != ObjectFunction {
		return Undefined, nil
	}
	return a.invoke(ctor, ObjectValue(s.this), s.depth+1, args, ReasonFunctionCall)
}

// callMethod runs super.name(...), resolving from one level above home.
func (s *superLink) callMethod(a *Activation, name string, args []Value) (Value, error) {
	base := s.base()
	if base == nil {
		return Undefined, nil
	}
	m, depth, err := findMethod(a, base, s.this, name)
	if err != nil {
		return Undefined, err
	}
	fn := m.AsObject()
	if fn == nil || fn.kind != ObjectFunction {
		return Undefined, nil
	}
	return a.invoke(fn, ObjectValue(s.this), s.depth+1+depth, args, ReasonFunctionCall)
}

// findMethod looks name up from start and returns the value together with
// the chain position where it was found. Getters run with this as receiver.
func findMethod(a *Activation, start, this *Object, name string) (Value, int, error) {
	depth := 0
	for cur := start; cur != nil; cur = cur.proto {
		if depth > a.vm.limits.MaxPrototypeDepth {
			return Undefined, 0, &HaltError{Reason: PrototypeRecursionLimit}
		}
		p, v, found := cur.getLocal(a, name)
		if found {
			if p != nil && p.IsVirtual() {
				v, err := a.callSpecial(p.Getter, ObjectValue(this), nil)
				return v, depth, err
			}
			return v, depth, nil
		}
		depth++
	}
	return Undefined, 0, nil
}
