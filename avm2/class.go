package avm2

import (
	"errors"
	"fmt"

	"github.com/chazu/avmcore/heap"
)

// ---------------------------------------------------------------------------
// Class definitions
// ---------------------------------------------------------------------------

// ClassFlags are the instance-info flags of a class definition.
type ClassFlags uint8

const (
	ClassSealed      ClassFlags = 0x01
	ClassFinal       ClassFlags = 0x02
	ClassInterface   ClassFlags = 0x04
	ClassProtectedNS ClassFlags = 0x08
)

// AllocFunc creates the bare instance of a native class before its
// initializer runs.
type AllocFunc func(vm *VM, class *ClassObject) *Object

// ClassDef is the immutable definition of a class: its names, traits
// and initializers. Built-in classes fill the native hooks; decoded
// classes refer to methods by index until the unit is linked.
type ClassDef struct {
	Name           QName      `cbor:"1,keyasint"`
	Super          QName      `cbor:"2,keyasint,omitempty"`
	Interfaces     []QName    `cbor:"3,keyasint,omitempty"`
	Flags          ClassFlags `cbor:"4,keyasint,omitempty"`
	ProtectedNS    Namespace  `cbor:"5,keyasint,omitempty"`
	InstanceTraits []Trait    `cbor:"6,keyasint,omitempty"`
	ClassTraits    []Trait    `cbor:"7,keyasint,omitempty"`
	InitID         int        `cbor:"8,keyasint"`
	ClassInitID    int        `cbor:"9,keyasint"`

	Init      *Method    `cbor:"-"`
	ClassInit *Method    `cbor:"-"`
	Alloc     AllocFunc  `cbor:"-"`
	Call      NativeFunc `cbor:"-"`
}

func (d *ClassDef) IsSealed() bool    { return d.Flags&ClassSealed != 0 }
func (d *ClassDef) IsFinal() bool     { return d.Flags&ClassFinal != 0 }
func (d *ClassDef) IsInterface() bool { return d.Flags&ClassInterface != 0 }

// ---------------------------------------------------------------------------
// ClassObject
// ---------------------------------------------------------------------------

// ClassObject is a class at run time: the script-visible class object,
// its resolved vtables, its prototype and its place in the hierarchy.
type ClassObject struct {
	vm         *VM
	def        *ClassDef
	object     *Object
	super      *ClassObject
	interfaces []*ClassObject
	instanceVT *VTable
	classVT    *VTable
	prototype  *Object
	scope      *ScopeChain
	finished   bool
}

func (c *ClassObject) Name() QName                { return c.def.Name }
func (c *ClassObject) Def() *ClassDef             { return c.def }
func (c *ClassObject) Object() *Object            { return c.object }
func (c *ClassObject) Super() *ClassObject        { return c.super }
func (c *ClassObject) Prototype() *Object         { return c.prototype }
func (c *ClassObject) Interfaces() []*ClassObject { return c.interfaces }
func (c *ClassObject) InstanceVTable() *VTable    { return c.instanceVT }
func (c *ClassObject) IsFinished() bool           { return c.finished }

// IsSubclassOf reports whether c is other or inherits from it.
func (c *ClassObject) IsSubclassOf(other *ClassObject) bool {
	for cur := c; cur != nil; cur = cur.super {
		if cur == other {
			return true
		}
	}
	return false
}

// Implements reports whether c or an ancestor declares iface, directly
// or through an inherited interface.
func (c *ClassObject) Implements(iface *ClassObject) bool {
	for cur := c; cur != nil; cur = cur.super {
		for _, i := range cur.interfaces {
			if i == iface || i.Implements(iface) {
				return true
			}
		}
	}
	return false
}

func (c *ClassObject) trace(t *heap.Tracer) {
	if c.super != nil {
		t.Mark(c.super.object)
	}
	for _, i := range c.interfaces {
		t.Mark(i.object)
	}
	if c.prototype != nil {
		t.Mark(c.prototype)
	}
	c.scope.trace(t)
}

// ---------------------------------------------------------------------------
// Partial construction
// ---------------------------------------------------------------------------

// PartialClass is a class under construction. Its links are patched in
// place; Finish freezes it. Scripts never see a partial class: construct
// and call on an unfinished class are host failures.
type PartialClass struct {
	c           *ClassObject
	protoLinked bool
	typeLinked  bool
}

// NewPartialClass allocates the class object and resolves both vtables
// on top of super. The class object has no type and no prototype yet.
func (vm *VM) NewPartialClass(def *ClassDef, super *ClassObject, scope *ScopeChain) (*PartialClass, error) {
	if super != nil && (super.def.IsFinal() || super.def.IsInterface()) {
		return nil, &extendError{class: def.Name, super: super.Name()}
	}
	c := &ClassObject{vm: vm, def: def, super: super}
	c.object = alloc(vm, &Object{kind: ObjectClass, classData: c})

	var parentVT *VTable
	if super != nil {
		parentVT = super.instanceVT
	}
	var err error
	if c.instanceVT, err = newVTable(parentVT, c, def.InstanceTraits); err != nil {
		return nil, err
	}
	if c.classVT, err = newVTable(nil, c, def.ClassTraits); err != nil {
		return nil, err
	}
	if scope != nil {
		c.scope = scope.Push(c.object, false)
		c.instanceVT.scope = c.scope
		c.classVT.scope = c.scope
	}
	c.object.vtable = c.classVT
	c.object.slots = c.classVT.initialSlots(vm)
	return &PartialClass{c: c}, nil
}

// LinkPrototype installs proto as the class's prototype and points
// proto.constructor back at the class object.
func (p *PartialClass) LinkPrototype(proto *Object) {
	if proto.dynamic == nil {
		proto.dynamic = newPropertyMap()
	}
	proto.dynamic.setHidden("constructor", ObjectValue(p.c.object))
	p.c.prototype = proto
	p.protoLinked = true
}

// LinkType makes the class object an instance of classClass whose
// prototype is classProto.
func (p *PartialClass) LinkType(classProto *Object, classClass *ClassObject) {
	p.c.object.proto = classProto
	p.c.object.instanceOf = classClass
	p.typeLinked = true
}

// Finish freezes the class. Both links must be in place.
func (p *PartialClass) Finish() (*ClassObject, error) {
	if !p.protoLinked || !p.typeLinked {
		return nil, fmt.Errorf("%s: finish before prototype and type are linked", p.c.Name())
	}
	p.c.finished = true
	return p.c, nil
}

// extendError reports a superclass that cannot be extended.
type extendError struct {
	class QName
	super QName
}

func (e *extendError) Error() string {
	return CodeCannotExtend.Message(e.class, e.super)
}

// classError turns a construction failure into the VerifyError scripts
// see; anything else is a host failure.
func (a *Activation) classError(err error) error {
	var oe *overrideError
	var ee *extendError
	switch {
	case errors.As(err, &oe):
		return a.Throw(CodeIllegalOverride, oe.name, oe.owner)
	case errors.As(err, &ee):
		return a.Throw(CodeCannotExtend, ee.class, ee.super)
	}
	return &HostError{Err: err}
}

// ---------------------------------------------------------------------------
// Defining classes after bootstrap
// ---------------------------------------------------------------------------

// DefineClass builds a finished class from def: partial construction,
// a fresh prototype inheriting the superclass prototype, type links to
// Class, interface resolution, then the class initializer. Illegal
// overrides surface as VerifyError 1053.
func (vm *VM) DefineClass(a *Activation, def *ClassDef, super *ClassObject, scope *ScopeChain) (*ClassObject, error) {
	p, err := vm.NewPartialClass(def, super, scope)
	if err != nil {
		return nil, a.classError(err)
	}

	protoParent := vm.system.Object.prototype
	if super != nil {
		protoParent = super.prototype
	}
	p.LinkPrototype(vm.newPlainObject(vm.system.Object, protoParent))
	p.LinkType(vm.system.Class.prototype, vm.system.Class)

	for _, name := range def.Interfaces {
		iface, err := a.resolveClass(name)
		if err != nil {
			return nil, err
		}
		p.c.interfaces = append(p.c.interfaces, iface)
	}

	c, err := p.Finish()
	if err != nil {
		return nil, &HostError{Err: err}
	}
	vm.classes[def.Name] = c
	if def.ClassInit != nil {
		if _, err := vm.invoke(a, def.ClassInit, ObjectValue(c.object), nil, c.scope, c, nil); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Construct and call
// ---------------------------------------------------------------------------

func (c *ClassObject) checkFinished() error {
	if !c.finished {
		return &HostError{Err: fmt.Errorf("%s: %w", c.Name(), ErrNotFinished)}
	}
	return nil
}

// allocate creates a bare instance: the nearest native allocator up the
// hierarchy decides the variant, the class supplies type and layout.
func (c *ClassObject) allocate() *Object {
	var o *Object
	for cur := c; cur != nil; cur = cur.super {
		if cur.def.Alloc != nil {
			o = cur.def.Alloc(c.vm, c)
			break
		}
	}
	if o == nil {
		o = alloc(c.vm, &Object{kind: ObjectScript})
	}
	o.instanceOf = c
	o.proto = c.prototype
	o.vtable = c.instanceVT
	o.slots = c.instanceVT.initialSlots(c.vm)
	if !c.def.IsSealed() && o.dynamic == nil {
		o.dynamic = newPropertyMap()
	}
	return o
}

// construct implements new C(args...).
func (c *ClassObject) construct(a *Activation, args []Value) (Value, error) {
	if err := c.checkFinished(); err != nil {
		return Undefined, err
	}
	if c.def.IsInterface() {
		return Undefined, a.Throw(CodeNotAConstructor, c.Name())
	}
	o := c.allocate()
	if err := c.runInit(a, o, args); err != nil {
		return Undefined, err
	}
	return ObjectValue(o), nil
}

// runInit runs the nearest instance initializer up from c. constructsuper
// enters here with the superclass.
func (c *ClassObject) runInit(a *Activation, o *Object, args []Value) error {
	for cur := c; cur != nil; cur = cur.super {
		if cur.def.Init != nil {
			_, err := c.vm.invoke(a, cur.def.Init, ObjectValue(o), args, cur.scope, cur, nil)
			return err
		}
	}
	return nil
}

// call implements C(args...): the class's native call behaviour, or a
// checked coercion of a single argument.
func (c *ClassObject) call(a *Activation, args []Value) (Value, error) {
	if err := c.checkFinished(); err != nil {
		return Undefined, err
	}
	if c.def.Call != nil {
		return c.def.Call(a, ObjectValue(c.object), args)
	}
	if len(args) != 1 {
		return Undefined, a.Throw(CodeClassCoercionArgs, len(args))
	}
	return a.coerceTo(args[0], c)
}
