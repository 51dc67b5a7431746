package avm2

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Error classes
// ---------------------------------------------------------------------------

func (vm *VM) registerErrorPrimitives() error {
	base, err := vm.defineClass(&ClassDef{
		Name: GenericError.QName(),
		Alloc: func(vm *VM, c *ClassObject) *Object {
			return alloc(vm, &Object{kind: ObjectError, dynamic: newPropertyMap()})
		},
		Init:           NewNative("Error", errorInit),
		InstanceTraits: []Trait{getterTrait("errorID", errorID)},
		Call:           errorCall,
	}, nil)
	if err != nil {
		return err
	}
	vm.system.Error = base
	base.prototype.dynamic.setHidden("name", Str("Error"))
	base.prototype.dynamic.setHidden("message", Str(""))
	vm.setMethods(base.prototype, []nativeMethod{
		{"toString", errorToString},
		{"getStackTrace", errorStackTrace},
	})

	subclasses := []struct {
		class ErrorClass
		slot  **ClassObject
	}{
		{DefinitionError, &vm.system.DefinitionError},
		{EvalError, &vm.system.EvalError},
		{RangeError, &vm.system.RangeError},
		{ReferenceError, &vm.system.ReferenceError},
		{SecurityError, &vm.system.SecurityError},
		{SyntaxError, &vm.system.SyntaxError},
		{TypeError, &vm.system.TypeError},
		{URIError, &vm.system.URIError},
		{VerifyError, &vm.system.VerifyError},
		{ArgumentError, &vm.system.ArgumentError},
		{UninitializedError, &vm.system.UninitializedError},
		{IOError, &vm.system.IOError},
		{EOFError, &vm.system.EOFError},
		{IllegalOperationError, &vm.system.IllegalOperationError},
	}
	for _, sc := range subclasses {
		super := base
		if sc.class == EOFError {
			super = vm.system.IOError
		}
		c, err := vm.defineClass(&ClassDef{
			Name: sc.class.QName(),
			Init: NewNative(sc.class.String(), errorInit),
			Call: errorCall,
		}, super)
		if err != nil {
			return err
		}
		c.prototype.dynamic.setHidden("name", Str(sc.class.String()))
		*sc.slot = c
	}
	return nil
}

// errorInit implements new Error(message, id).
func errorInit(a *Activation, this Value, args []Value) (Value, error) {
	o := this.AsObject()
	msg := ""
	if v := arg(args, 0); !v.IsUndefined() {
		s, err := a.ToString(v)
		if err != nil {
			return Undefined, err
		}
		msg = s.String()
	}
	o.dynamic.setHidden("message", Str(msg))
	if v := arg(args, 1); !v.IsUndefined() {
		id, err := a.ToInt32(v)
		if err != nil {
			return Undefined, err
		}
		o.errorID = Code(id)
	}
	return Undefined, nil
}

// errorCall makes Error(msg) behave like new Error(msg).
func errorCall(a *Activation, this Value, args []Value) (Value, error) {
	return this.AsObject().Construct(a, args)
}

func errorID(a *Activation, this Value, args []Value) (Value, error) {
	if o := this.AsObject(); o != nil {
		return Int(int32(o.errorID)), nil
	}
	return Int(0), nil
}

func errorToString(a *Activation, this Value, args []Value) (Value, error) {
	o := this.AsObject()
	if o == nil {
		return Str("Error"), nil
	}
	name, err := o.GetProperty(a, PublicName("name"))
	if err != nil {
		return Undefined, err
	}
	msg, err := o.GetProperty(a, PublicName("message"))
	if err != nil {
		return Undefined, err
	}
	ns, err := a.ToString(name)
	if err != nil {
		return Undefined, err
	}
	ms, err := a.ToString(msg)
	if err != nil {
		return Undefined, err
	}
	if ms.Len() == 0 {
		return StrValue(ns), nil
	}
	return Str(ns.String() + ": " + ms.String()), nil
}

// errorStackTrace renders the message followed by the current call
// stack, innermost first.
func errorStackTrace(a *Activation, this Value, args []Value) (Value, error) {
	head, err := errorToString(a, this, nil)
	if err != nil {
		return Undefined, err
	}
	var b strings.Builder
	b.WriteString(head.AsString().String())
	for i := len(a.vm.frames) - 1; i >= 0; i-- {
		if m := a.vm.frames[i].method; m != nil {
			b.WriteString("\n\tat ")
			b.WriteString(m.displayName())
		}
	}
	return Str(b.String()), nil
}
