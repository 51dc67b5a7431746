package avm2

// ---------------------------------------------------------------------------
// Root class definitions
// ---------------------------------------------------------------------------

func objectClassDef() *ClassDef {
	return &ClassDef{
		Name: objectName,
		Init: NewNative("Object", func(a *Activation, this Value, args []Value) (Value, error) {
			return Undefined, nil
		}),
		Call: func(a *Activation, this Value, args []Value) (Value, error) {
			v := arg(args, 0)
			if v.IsNullish() {
				return ObjectValue(a.vm.NewObject(nil)), nil
			}
			return v, nil
		},
	}
}

func functionClassDef() *ClassDef {
	return &ClassDef{
		Name: functionName,
		Alloc: func(vm *VM, c *ClassObject) *Object {
			return alloc(vm, &Object{kind: ObjectFunction, fn: &Closure{}})
		},
		Call: func(a *Activation, this Value, args []Value) (Value, error) {
			return ObjectValue(a.vm.newFunctionObject(&Closure{})), nil
		},
	}
}

// ---------------------------------------------------------------------------
// Object, Function and Namespace primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerObjectPrimitives() error {
	vm.setMethods(vm.system.Object.prototype, []nativeMethod{
		{"hasOwnProperty", objectHasOwnProperty},
		{"isPrototypeOf", objectIsPrototypeOf},
		{"propertyIsEnumerable", objectPropertyIsEnumerable},
		{"setPropertyIsEnumerable", objectSetPropertyIsEnumerable},
		{"toString", objectToString},
		{"toLocaleString", objectToString},
		{"valueOf", objectValueOf},
	})
	vm.setMethods(vm.system.Function.prototype, []nativeMethod{
		{"call", functionCallMethod},
		{"apply", functionApply},
		{"toString", functionToString},
	})

	ns, err := vm.defineClass(&ClassDef{
		Name:  NewQName("", "Namespace"),
		Flags: ClassFinal | ClassSealed,
		Alloc: func(vm *VM, c *ClassObject) *Object {
			return alloc(vm, &Object{kind: ObjectNamespace})
		},
		Init: NewNative("Namespace", namespaceInit),
		InstanceTraits: []Trait{
			getterTrait("uri", namespaceURI),
			getterTrait("prefix", namespacePrefix),
		},
	}, nil)
	if err != nil {
		return err
	}
	vm.system.Namespace = ns
	vm.setMethods(ns.prototype, []nativeMethod{
		{"toString", namespaceURI},
		{"valueOf", namespaceURI},
	})
	return nil
}

func propertyName(a *Activation, v Value) (Multiname, error) {
	s, err := a.ToString(v)
	if err != nil {
		return Multiname{}, err
	}
	return PublicName(s.String()), nil
}

func objectHasOwnProperty(a *Activation, this Value, args []Value) (Value, error) {
	mn, err := propertyName(a, arg(args, 0))
	if err != nil {
		return Undefined, err
	}
	if o := this.AsObject(); o != nil {
		return Bool(o.HasOwnProperty(mn)), nil
	}
	return Bool(this.IsString() && mn.Name == "length"), nil
}

func objectIsPrototypeOf(a *Activation, this Value, args []Value) (Value, error) {
	self, o := this.AsObject(), arg(args, 0).AsObject()
	if self == nil || o == nil {
		return False, nil
	}
	for p := o.proto; p != nil; p = p.proto {
		if p == self {
			return True, nil
		}
	}
	return False, nil
}

func objectPropertyIsEnumerable(a *Activation, this Value, args []Value) (Value, error) {
	mn, err := propertyName(a, arg(args, 0))
	if err != nil {
		return Undefined, err
	}
	o := this.AsObject()
	if o == nil {
		return False, nil
	}
	if o.kind == ObjectArray {
		if i, ok := arrayIndex(mn); ok {
			return Bool(o.HasElement(i)), nil
		}
	}
	return Bool(o.dynamic.isEnumerable(mn.Name)), nil
}

func objectSetPropertyIsEnumerable(a *Activation, this Value, args []Value) (Value, error) {
	mn, err := propertyName(a, arg(args, 0))
	if err != nil {
		return Undefined, err
	}
	if o := this.AsObject(); o != nil && o.dynamic != nil {
		o.dynamic.setEnumerable(mn.Name, arg(args, 1).ToBoolean())
	}
	return Undefined, nil
}

func objectToString(a *Activation, this Value, args []Value) (Value, error) {
	o := this.AsObject()
	switch {
	case o == nil:
		return Str("[object " + a.typeName(this) + "]"), nil
	case o.kind == ObjectClass:
		return Str("[class " + o.classData.Name().Name + "]"), nil
	case o.instanceOf != nil:
		return Str("[object " + o.instanceOf.Name().Name + "]"), nil
	}
	return Str("[object Object]"), nil
}

func objectValueOf(a *Activation, this Value, args []Value) (Value, error) {
	return this, nil
}

func functionCallMethod(a *Activation, this Value, args []Value) (Value, error) {
	fn := this.AsObject()
	if fn == nil || !fn.IsCallable() {
		return Undefined, a.Throw(CodeNotAFunction, a.describe(this))
	}
	var rest []Value
	if len(args) > 1 {
		rest = args[1:]
	}
	return fn.Call(a, arg(args, 0), rest)
}

func functionApply(a *Activation, this Value, args []Value) (Value, error) {
	fn := this.AsObject()
	if fn == nil || !fn.IsCallable() {
		return Undefined, a.Throw(CodeNotAFunction, a.describe(this))
	}
	var list []Value
	switch av := arg(args, 1); {
	case av.IsNullish():
	case av.AsObject() != nil && av.AsObject().kind == ObjectArray:
		arr := av.AsObject()
		if arr.length > maxApplyArgs {
			return Undefined, hostErrorf(CodeOutOfMemory, "apply with %d arguments", arr.length)
		}
		list = make([]Value, arr.length)
		for _, e := range arr.entries() {
			list[e.index] = e.value
		}
	default:
		return Undefined, a.Throw(CodeApplyArray)
	}
	return fn.Call(a, arg(args, 0), list)
}

func functionToString(a *Activation, this Value, args []Value) (Value, error) {
	return Str("function Function() {}"), nil
}

func namespaceInit(a *Activation, this Value, args []Value) (Value, error) {
	o := this.AsObject()
	if len(args) == 0 {
		return Undefined, nil
	}
	v := args[len(args)-1]
	if src := v.AsObject(); src != nil && src.kind == ObjectNamespace {
		o.ns = src.ns
		return Undefined, nil
	}
	uri, err := a.ToString(v)
	if err != nil {
		return Undefined, err
	}
	o.ns = PackageNamespace(uri.String())
	return Undefined, nil
}

func namespaceURI(a *Activation, this Value, args []Value) (Value, error) {
	o := this.AsObject()
	if o == nil || o.kind != ObjectNamespace {
		return Undefined, a.Throw(CodeTypeCoercion, a.typeName(this), "Namespace")
	}
	return Str(o.ns.URI), nil
}

func namespacePrefix(a *Activation, this Value, args []Value) (Value, error) {
	return Undefined, nil
}
