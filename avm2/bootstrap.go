package avm2

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

// The root types are circular: Object's class object is an instance of
// Class, Class inherits from Object, Function.prototype is itself a
// function. Bootstrap resolves the cycle in three phases:
//
//  1. partial: allocate Object, Function, Class and global with their
//     vtables but no prototype and no type.
//  2. weave: create the four prototypes and link every class to its
//     prototype and to Class.
//  3. finish: freeze the classes and publish them.
//
// Only then are the remaining built-ins defined, through the ordinary
// class definition path.

var (
	objectName   = NewQName("", "Object")
	functionName = NewQName("", "Function")
	className    = NewQName("", "Class")
	globalName   = NewQName("", "global")
)

func (vm *VM) bootstrap() error {
	if vm.bootstrapped {
		return &HostError{Err: ErrBootstrapped}
	}
	vm.systemDomain = NewDomain(nil)
	vm.domain = NewDomain(vm.systemDomain)

	vt, err := newVTable(nil, nil, nil)
	if err != nil {
		return &HostError{Err: err}
	}
	vm.global = vm.newGlobalObject(vt)
	scope := NewScopeChain(vm.global, vm.systemDomain)
	vt.scope = scope
	vm.toplevel = &Script{vm: vm, global: vm.global, domain: vm.systemDomain, state: scriptDone}

	// Phase 1: partial classes.
	objectP, err := vm.NewPartialClass(objectClassDef(), nil, scope)
	if err != nil {
		return fmt.Errorf("bootstrap Object: %w", err)
	}
	functionP, err := vm.NewPartialClass(functionClassDef(), objectP.c, scope)
	if err != nil {
		return fmt.Errorf("bootstrap Function: %w", err)
	}
	classP, err := vm.NewPartialClass(&ClassDef{Name: className, Flags: ClassFinal}, objectP.c, scope)
	if err != nil {
		return fmt.Errorf("bootstrap Class: %w", err)
	}
	globalP, err := vm.NewPartialClass(&ClassDef{Name: globalName, Flags: ClassFinal}, objectP.c, scope)
	if err != nil {
		return fmt.Errorf("bootstrap global: %w", err)
	}

	// Phase 2: weave.
	objectProto := alloc(vm, &Object{kind: ObjectScript, instanceOf: objectP.c, dynamic: newPropertyMap()})
	functionProto := alloc(vm, &Object{kind: ObjectFunction, instanceOf: functionP.c, proto: objectProto, fn: &Closure{}, dynamic: newPropertyMap()})
	classProto := alloc(vm, &Object{kind: ObjectScript, instanceOf: objectP.c, proto: objectProto, dynamic: newPropertyMap()})
	globalProto := alloc(vm, &Object{kind: ObjectScript, instanceOf: objectP.c, proto: objectProto, dynamic: newPropertyMap()})

	objectP.LinkPrototype(objectProto)
	functionP.LinkPrototype(functionProto)
	classP.LinkPrototype(classProto)
	globalP.LinkPrototype(globalProto)
	for _, p := range []*PartialClass{objectP, functionP, classP, globalP} {
		p.LinkType(classProto, classP.c)
	}

	// Phase 3: finish and publish.
	roots := make([]*ClassObject, 0, 4)
	for _, p := range []*PartialClass{objectP, functionP, classP, globalP} {
		c, err := p.Finish()
		if err != nil {
			return &HostError{Err: err}
		}
		vm.classes[c.Name()] = c
		roots = append(roots, c)
	}
	vm.system.Object, vm.system.Function, vm.system.Class, vm.system.Global = roots[0], roots[1], roots[2], roots[3]
	vm.global.instanceOf, vm.global.proto = vm.system.Global, globalProto
	vm.bootstrapped = true

	for _, c := range roots[:3] {
		vm.defineGlobal(c.Name(), ObjectValue(c.object))
	}
	for _, register := range []func() error{
		vm.registerObjectPrimitives,
		vm.registerErrorPrimitives,
		vm.registerNumberPrimitives,
		vm.registerStringPrimitives,
		vm.registerArrayPrimitives,
		vm.registerMathPrimitives,
		vm.registerGlobalPrimitives,
	} {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

// Bootstrap runs the bootstrap again. NewVM already ran it, so this
// always fails with ErrBootstrapped.
func (vm *VM) Bootstrap() error { return vm.bootstrap() }

// ---------------------------------------------------------------------------
// Registration helpers
// ---------------------------------------------------------------------------

// defineGlobal adds a constant to the toplevel global and exports it
// from the system domain.
func (vm *VM) defineGlobal(name QName, v Value) {
	idx := vm.global.vtable.defineConst(name)
	for len(vm.global.slots) <= idx {
		vm.global.slots = append(vm.global.slots, Undefined)
	}
	vm.global.slots[idx] = v
	vm.systemDomain.Export(name, vm.toplevel)
}

// defineClass defines a built-in class on the toplevel scope and
// publishes it as a global.
func (vm *VM) defineClass(def *ClassDef, super *ClassObject) (*ClassObject, error) {
	if super == nil {
		super = vm.system.Object
	}
	c, err := vm.DefineClass(vm.hostActivation(), def, super, vm.global.vtable.scope)
	if err != nil {
		return nil, fmt.Errorf("define %s: %w", def.Name, err)
	}
	vm.defineGlobal(def.Name, ObjectValue(c.object))
	return c, nil
}

type nativeMethod struct {
	name string
	fn   NativeFunc
}

// newNativeFunction wraps a built-in. Built-in functions carry no
// prototype and are not constructors.
func (vm *VM) newNativeFunction(name string, fn NativeFunc) *Object {
	return vm.newFunctionObject(&Closure{method: NewNative(name, fn)})
}

// setMethods installs natives as non-enumerable function properties.
func (vm *VM) setMethods(o *Object, methods []nativeMethod) {
	for _, m := range methods {
		o.dynamic.setHidden(m.name, ObjectValue(vm.newNativeFunction(m.name, m.fn)))
	}
}

// methodTraits declares natives as public method traits.
func methodTraits(methods []nativeMethod) []Trait {
	traits := make([]Trait, len(methods))
	for i, m := range methods {
		traits[i] = Trait{Name: NewQName("", m.name), Kind: TraitMethod, Method: NewNative(m.name, m.fn)}
	}
	return traits
}

// getterTrait declares a read-only native accessor.
func getterTrait(name string, fn NativeFunc) Trait {
	return Trait{Name: NewQName("", name), Kind: TraitGetter, Method: NewNative(name, fn)}
}

// constTrait declares a public constant with a default.
func constTrait(name string, typ string, def *Constant) Trait {
	return Trait{Name: NewQName("", name), Kind: TraitConst, Type: NewQName("", typ), Default: def}
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}
