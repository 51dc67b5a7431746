package avm2

import (
	"math"
)

// resolveClass finds the class named q: classes defined so far first,
// then the domain, which may run the defining script.
func (a *Activation) resolveClass(q QName) (*ClassObject, error) {
	if c, ok := a.vm.classes[q]; ok {
		return c, nil
	}
	if d := a.domain(); d != nil && d.HasDefinition(q) {
		v, err := d.GetDefinition(a, q)
		if err != nil {
			return nil, err
		}
		if o := v.AsObject(); o != nil && o.kind == ObjectClass {
			return o.classData, nil
		}
	}
	return nil, a.Throw(CodeClassNotFound, q)
}

// coerce converts v to the declared type q; the zero QName is "*".
func (a *Activation) coerce(v Value, q QName) (Value, error) {
	if q.IsAny() {
		return v, nil
	}
	if q == voidType {
		return Undefined, nil
	}
	c, err := a.resolveClass(q)
	if err != nil {
		return Undefined, err
	}
	return a.coerceTo(v, c)
}

var voidType = NewQName("", "void")

// coerceTo implements the coerce opcode for a resolved class. Primitive
// classes convert; other classes accept null, undefined (as null) and
// instances, and throw TypeError 1034 for anything else.
func (a *Activation) coerceTo(v Value, c *ClassObject) (Value, error) {
	sys := &a.vm.system
	switch c {
	case sys.Int:
		i, err := a.ToInt32(v)
		return Int(i), err
	case sys.Uint:
		u, err := a.ToUint32(v)
		return Uint(u), err
	case sys.Number:
		n, err := a.ToNumber(v)
		return Number(n), err
	case sys.Boolean:
		return Bool(v.ToBoolean()), nil
	case sys.String:
		if v.IsNullish() {
			return Null, nil
		}
		s, err := a.ToString(v)
		return StrValue(s), err
	case sys.Object:
		if v.IsUndefined() {
			return Null, nil
		}
		return v, nil
	}
	if v.IsNullish() {
		return Null, nil
	}
	if a.isType(v, c) {
		return v, nil
	}
	return Undefined, a.Throw(CodeTypeCoercion, a.typeName(v), c.Name())
}

// isType implements the is operator against a resolved class.
func (a *Activation) isType(v Value, c *ClassObject) bool {
	sys := &a.vm.system
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return c == sys.Boolean || c == sys.Object
	case KindInt, KindNumber:
		n := v.AsNumber()
		switch c {
		case sys.Number, sys.Object:
			return true
		case sys.Int:
			return n == math.Trunc(n) && n >= math.MinInt32 && n <= math.MaxInt32
		case sys.Uint:
			return n == math.Trunc(n) && n >= 0 && n <= math.MaxUint32
		}
		return false
	case KindString:
		return c == sys.String || c == sys.Object
	}
	o := v.o
	if o.instanceOf == nil {
		return c == sys.Object
	}
	if c.def.IsInterface() {
		return o.instanceOf.Implements(c)
	}
	return o.instanceOf.IsSubclassOf(c)
}

// instanceOf implements the instanceof operator: a prototype-chain test
// against a class or function. Interfaces have no prototype an instance
// can inherit from, so this is always false for them; istype answers
// interface membership.
func (a *Activation) instanceOf(v Value, ctor Value) (bool, error) {
	co := ctor.AsObject()
	if co == nil || !co.IsCallable() {
		return false, a.Throw(CodeInstanceOfRHS)
	}
	pv, err := co.GetProperty(a, PublicName("prototype"))
	if err != nil {
		return false, err
	}
	proto := pv.AsObject()
	o := v.AsObject()
	if o == nil {
		if proto == nil || v.IsNullish() {
			return false, nil
		}
		if p := a.vm.protoFor(v); p != nil {
			for cur := p; cur != nil; cur = cur.proto {
				if cur == proto {
					return true, nil
				}
			}
		}
		return false, nil
	}
	for cur := o.proto; cur != nil; cur = cur.proto {
		if cur == proto {
			return true, nil
		}
	}
	return false, nil
}

// slotDefault is the value a slot holds before anything is stored:
// the declared default, or the zero value of the declared type.
func (vm *VM) slotDefault(s slotInfo) Value {
	if s.def != nil {
		if s.def.Kind == ConstNamespace {
			return ObjectValue(vm.newNamespaceObject(s.def.NS))
		}
		return s.def.Value()
	}
	switch s.typ {
	case QName{}:
		return Undefined
	case NewQName("", "int"), NewQName("", "uint"):
		return Int(0)
	case NewQName("", "Number"):
		return Number(math.NaN())
	case NewQName("", "Boolean"):
		return False
	}
	return Null
}
