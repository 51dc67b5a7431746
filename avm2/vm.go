// Package avm2 implements the second script dialect: namespaced names,
// trait-based classes with fixed slot layouts, a circular bootstrap of
// the root types, the method calling convention and the opcode
// interpreter, with stable numbered errors.
package avm2

import (
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/avmcore/heap"
	"github.com/chazu/avmcore/wstr"
)

// Limits bound the host-level guards of one VM.
type Limits struct {
	MaxRecursionDepth int
	Timeout           time.Duration
}

// DefaultLimits returns the limits the reference player uses.
func DefaultLimits() Limits {
	return Limits{MaxRecursionDepth: 256, Timeout: 15 * time.Second}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxRecursionDepth <= 0 {
		l.MaxRecursionDepth = d.MaxRecursionDepth
	}
	if l.Timeout <= 0 {
		l.Timeout = d.Timeout
	}
	return l
}

// Options configure a VM.
type Options struct {
	Limits Limits
	// Trace receives the output of trace(). Nil logs it.
	Trace func(string)
}

// SystemClasses holds one handle per root and built-in type. Natives use
// it to construct built-in instances such as a TypeError.
type SystemClasses struct {
	Object   *ClassObject
	Function *ClassObject
	Class    *ClassObject
	Global   *ClassObject

	Namespace *ClassObject
	Boolean   *ClassObject
	Number    *ClassObject
	Int       *ClassObject
	Uint      *ClassObject
	String    *ClassObject
	Array     *ClassObject
	Math      *ClassObject

	Error                 *ClassObject
	DefinitionError       *ClassObject
	EvalError             *ClassObject
	RangeError            *ClassObject
	ReferenceError        *ClassObject
	SecurityError         *ClassObject
	SyntaxError           *ClassObject
	TypeError             *ClassObject
	URIError              *ClassObject
	VerifyError           *ClassObject
	ArgumentError         *ClassObject
	UninitializedError    *ClassObject
	IOError               *ClassObject
	EOFError              *ClassObject
	IllegalOperationError *ClassObject
}

func (s *SystemClasses) errorClass(c ErrorClass) *ClassObject {
	switch c {
	case RangeError:
		return s.RangeError
	case ReferenceError:
		return s.ReferenceError
	case TypeError:
		return s.TypeError
	case ArgumentError:
		return s.ArgumentError
	case IOError:
		return s.IOError
	case VerifyError:
		return s.VerifyError
	case SyntaxError:
		return s.SyntaxError
	case URIError:
		return s.URIError
	case EOFError:
		return s.EOFError
	case SecurityError:
		return s.SecurityError
	case DefinitionError:
		return s.DefinitionError
	case EvalError:
		return s.EvalError
	case UninitializedError:
		return s.UninitializedError
	case IllegalOperationError:
		return s.IllegalOperationError
	}
	return s.Error
}

func (s *SystemClasses) all() []*ClassObject {
	return []*ClassObject{
		s.Object, s.Function, s.Class, s.Global, s.Namespace, s.Boolean, s.Number, s.Int, s.Uint,
		s.String, s.Array, s.Math, s.Error, s.DefinitionError, s.EvalError, s.RangeError,
		s.ReferenceError, s.SecurityError, s.SyntaxError, s.TypeError, s.URIError, s.VerifyError,
		s.ArgumentError, s.UninitializedError, s.IOError, s.EOFError, s.IllegalOperationError,
	}
}

// VM is the per-document context of dialect 2: system classes, domains,
// the call stack and the heap it allocates on.
type VM struct {
	ID uuid.UUID

	heap    *heap.Heap
	strings *wstr.Interner
	limits  Limits

	system       SystemClasses
	classes      map[QName]*ClassObject
	systemDomain *Domain
	domain       *Domain
	toplevel     *Script
	global       *Object
	bootstrapped bool

	frames   []*Activation
	deadline time.Time
	opCount  int

	trace      func(string)
	log        commonlog.Logger
	removeRoot func()
}

// NewVM creates a VM on h and bootstraps it.
func NewVM(h *heap.Heap, opts Options) (*VM, error) {
	opts.Limits = opts.Limits.withDefaults()
	vm := &VM{
		ID:      uuid.New(),
		heap:    h,
		strings: wstr.NewInterner(),
		limits:  opts.Limits,
		classes: make(map[QName]*ClassObject),
		trace:   opts.Trace,
		log:     commonlog.GetLogger("avm.avm2"),
	}
	vm.removeRoot = h.AddRoot(vm.traceRoots)
	if err := vm.bootstrap(); err != nil {
		vm.Close()
		return nil, err
	}
	vm.log.Debugf("vm %s ready (%d system classes)", vm.ID, len(vm.classes))
	return vm, nil
}

func alloc[T heap.Object](vm *VM, o T) T {
	return heap.Alloc(vm.heap, o)
}

// Close detaches the VM from its heap; its objects become collectable.
func (vm *VM) Close() {
	if vm.removeRoot != nil {
		vm.removeRoot()
		vm.removeRoot = nil
	}
}

func (vm *VM) Heap() *heap.Heap        { return vm.heap }
func (vm *VM) Global() *Object         { return vm.global }
func (vm *VM) System() *SystemClasses  { return &vm.system }
func (vm *VM) Domain() *Domain         { return vm.domain }
func (vm *VM) SystemDomain() *Domain   { return vm.systemDomain }
func (vm *VM) Limits() Limits          { return vm.limits }
func (vm *VM) Strings() *wstr.Interner { return vm.strings }
func (vm *VM) Depth() int              { return len(vm.frames) }

func (vm *VM) traceRoots(t *heap.Tracer) {
	if vm.global != nil {
		t.Mark(vm.global)
	}
	for _, c := range vm.classes {
		t.Mark(c.object)
	}
	for _, c := range vm.system.all() {
		if c != nil {
			t.Mark(c.object)
		}
	}
	for d := vm.domain; d != nil; d = d.parent {
		for _, s := range d.defs {
			t.Mark(s.global)
		}
	}
	for _, a := range vm.frames {
		a.trace(t)
	}
}

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

// newPlainObject allocates a dynamic instance of cls with the given
// prototype.
func (vm *VM) newPlainObject(cls *ClassObject, proto *Object) *Object {
	o := &Object{kind: ObjectScript, instanceOf: cls, proto: proto, dynamic: newPropertyMap()}
	if cls != nil {
		o.vtable = cls.instanceVT
		o.slots = cls.instanceVT.initialSlots(vm)
	}
	return alloc(vm, o)
}

// NewObject allocates a plain Object instance with the given prototype
// (Object.prototype when nil).
func (vm *VM) NewObject(proto *Object) *Object {
	if proto == nil {
		proto = vm.system.Object.prototype
	}
	return vm.newPlainObject(vm.system.Object, proto)
}

// NewArray allocates an Array holding values.
func (vm *VM) NewArray(values []Value) *Object {
	o := vm.system.Array.allocate()
	o.array = append(o.array, values...)
	o.length = len(o.array)
	return o
}

func (vm *VM) newFunctionObject(c *Closure) *Object {
	o := alloc(vm, &Object{
		kind:       ObjectFunction,
		instanceOf: vm.system.Function,
		proto:      vm.system.Function.prototype,
		fn:         c,
		dynamic:    newPropertyMap(),
	})
	if !c.bound && (c.method == nil || !c.method.IsNative()) {
		proto := vm.NewObject(nil)
		proto.dynamic.setHidden("constructor", ObjectValue(o))
		o.dynamic.setHidden("prototype", ObjectValue(proto))
	}
	return o
}

// newMethodClosure binds a trait method to its receiver.
func (vm *VM) newMethodClosure(m *Method, declarer *VTable, this Value) *Object {
	return vm.newFunctionObject(&Closure{method: m, scope: declarer.scope, this: this, bound: true, class: declarer.class})
}

// NewFunction wraps a native as a function object.
func (vm *VM) NewFunction(name string, fn NativeFunc) *Object {
	return vm.newNativeFunction(name, fn)
}

func (vm *VM) newErrorObject(cls *ClassObject, msg string, code Code) *Object {
	o := cls.allocate()
	o.kind = ObjectError
	o.errorID = code
	o.dynamic.setHidden("message", Str(msg))
	return o
}

func (vm *VM) newNamespaceObject(ns Namespace) *Object {
	o := alloc(vm, &Object{kind: ObjectNamespace, ns: ns})
	if c := vm.system.Namespace; c != nil {
		o.instanceOf, o.proto, o.vtable = c, c.prototype, c.instanceVT
	}
	return o
}

func (vm *VM) newGlobalObject(vt *VTable) *Object {
	o := &Object{kind: ObjectGlobal, vtable: vt, dynamic: newPropertyMap()}
	if g := vm.system.Global; g != nil {
		o.instanceOf, o.proto = g, g.prototype
	}
	o.slots = vt.initialSlots(vm)
	return alloc(vm, o)
}

// newActivationObject holds the locals of a NEED_ACTIVATION method. Its
// layout comes from the body's traits and is resolved once per method.
func (vm *VM) newActivationObject(a *Activation) (*Object, error) {
	m := a.method
	if m.activationVT == nil {
		vt, err := newVTable(nil, nil, m.Body.Traits)
		if err != nil {
			return nil, &HostError{Err: err}
		}
		m.activationVT = vt
	}
	return alloc(vm, &Object{kind: ObjectActivation, vtable: m.activationVT, slots: m.activationVT.initialSlots(vm)}), nil
}

// protoFor returns the prototype primitives delegate to.
func (vm *VM) protoFor(v Value) *Object {
	var c *ClassObject
	switch v.kind {
	case KindBool:
		c = vm.system.Boolean
	case KindInt, KindNumber:
		c = vm.system.Number
	case KindString:
		c = vm.system.String
	}
	if c == nil {
		return nil
	}
	return c.prototype
}

func (vm *VM) emitTrace(s string) {
	if vm.trace != nil {
		vm.trace(s)
		return
	}
	commonlog.GetLogger("avm.trace").Info(s)
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// hostActivation is the frame host code calls into the VM from.
func (vm *VM) hostActivation() *Activation {
	return &Activation{vm: vm, this: ObjectValue(vm.global), outer: NewScopeChain(vm.global, vm.domain)}
}

// runUnit runs fn as one execution unit with its own deadline.
func (vm *VM) runUnit(fn func(a *Activation) error) error {
	outermost := len(vm.frames) == 0
	if outermost {
		vm.deadline = time.Now().Add(vm.limits.Timeout)
		vm.opCount = 0
	}
	err := fn(vm.hostActivation())
	if outermost {
		vm.deadline = time.Time{}
	}
	return err
}

// Call invokes fn from host code.
func (vm *VM) Call(fn *Object, this Value, args []Value) (Value, error) {
	var result Value
	err := vm.runUnit(func(a *Activation) error {
		var err error
		result, err = fn.Call(a, this, args)
		return err
	})
	return result, err
}

// Construct runs new cls(args...) from host code.
func (vm *VM) Construct(cls *ClassObject, args []Value) (Value, error) {
	var result Value
	err := vm.runUnit(func(a *Activation) error {
		var err error
		result, err = cls.construct(a, args)
		return err
	})
	return result, err
}

// GetDefinition looks a definition up in the application domain.
func (vm *VM) GetDefinition(name QName) (Value, error) {
	var result Value
	err := vm.runUnit(func(a *Activation) error {
		var err error
		result, err = vm.domain.GetDefinition(a, name)
		return err
	})
	return result, err
}

func (vm *VM) checkTimeout() error {
	vm.opCount++
	if vm.opCount&1023 != 0 || vm.deadline.IsZero() {
		return nil
	}
	if time.Now().After(vm.deadline) {
		return &HostError{Code: CodeScriptTimeout}
	}
	return nil
}
