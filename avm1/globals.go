package avm1

import (
	"math"
	"strings"

	"github.com/chazu/avmcore/wstr"
)

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

// bootstrap builds the system prototypes, the constructors and the global
// object. Object.prototype and Function.prototype come first: every
// function object created afterwards links to them.
func (vm *VM) bootstrap() {
	objProto := alloc(vm, &Object{})
	vm.protos.Object = objProto
	vm.protos.Function = alloc(vm, &Object{proto: objProto})

	vm.protos.Array = vm.NewObject(objProto)
	vm.protos.String = vm.newBoxed(String(wstr.Empty), objProto)
	vm.protos.Number = vm.newBoxed(Number(0), objProto)
	vm.protos.Boolean = vm.newBoxed(False, objProto)
	vm.protos.Error = vm.NewObject(objProto)
	vm.protos.MovieClip = vm.NewObject(objProto)
	vm.global = vm.NewObject(objProto)

	vm.registerObjectPrimitives()
	vm.registerFunctionPrimitives()
	vm.registerArrayPrimitives()
	vm.registerStringPrimitives()
	vm.registerNumberPrimitives()
	vm.registerBooleanPrimitives()
	vm.registerErrorPrimitives()
	vm.registerMathPrimitives()
	vm.registerGlobalFunctions()
	vm.defineClass("MovieClip", vm.protos.MovieClip, returnUndefined, returnUndefined)
}

// defineClass installs a native constructor over an existing prototype
// and publishes it on the global object.
func (vm *VM) defineClass(name string, proto *Object, call, construct NativeFunc) *Object {
	ctor := vm.newFunctionObject(&Function{Name: name, native: call, ctor: construct, Version: vm.version}, false)
	ctor.Define("prototype", ObjectValue(proto), DontEnum|DontDelete)
	proto.Define("constructor", ObjectValue(ctor), DontEnum)
	vm.global.Define(name, ObjectValue(ctor), DontEnum)
	return ctor
}

// method installs a hidden native method on o.
func (vm *VM) method(o *Object, name string, fn NativeFunc) {
	o.Define(name, ObjectValue(vm.NewNative(name, fn)), DontEnum)
}

func returnUndefined(*Activation, *Object, []Value) (Value, error) { return Undefined, nil }

// arg returns args[i] or undefined.
func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

// ---------------------------------------------------------------------------
// Object
// ---------------------------------------------------------------------------

func (vm *VM) registerObjectPrimitives() {
	p := vm.protos.Object
	vm.defineClass("Object", p,
		func(a *Activation, _ *Object, args []Value) (Value, error) {
			if o := a.ToObject(arg(args, 0)); o != nil {
				return ObjectValue(o), nil
			}
			return ObjectValue(a.vm.NewObject(a.vm.protos.Object)), nil
		},
		func(a *Activation, _ *Object, args []Value) (Value, error) {
			if o := a.ToObject(arg(args, 0)); o != nil {
				return ObjectValue(o), nil
			}
			return Undefined, nil
		})

	vm.method(p, "toString", func(a *Activation, this *Object, _ []Value) (Value, error) {
		if this != nil && this.kind == ObjectFunction {
			return Str("[type Function]"), nil
		}
		return Str("[object Object]"), nil
	})
	vm.method(p, "valueOf", func(a *Activation, this *Object, _ []Value) (Value, error) {
		if this == nil {
			return Undefined, nil
		}
		if this.kind == ObjectBoxed {
			return this.prim, nil
		}
		return ObjectValue(this), nil
	})
	vm.method(p, "hasOwnProperty", func(a *Activation, this *Object, args []Value) (Value, error) {
		if this == nil || len(args) == 0 {
			return False, nil
		}
		name, err := a.ToString(args[0])
		if err != nil {
			return Undefined, err
		}
		return Bool(this.HasOwnProperty(a, name.String())), nil
	})
	vm.method(p, "isPropertyEnumerable", func(a *Activation, this *Object, args []Value) (Value, error) {
		if this == nil || len(args) == 0 {
			return False, nil
		}
		name, err := a.ToString(args[0])
		if err != nil {
			return Undefined, err
		}
		prop := this.OwnProperty(name.String(), a.caseSensitive())
		return Bool(prop != nil && prop.Attrs&DontEnum == 0), nil
	})
	vm.method(p, "isPrototypeOf", func(a *Activation, this *Object, args []Value) (Value, error) {
		o := arg(args, 0).AsObject()
		if this == nil || o == nil {
			return False, nil
		}
		depth := 0
		for cur := o.proto; cur != nil && depth <= a.vm.limits.MaxPrototypeDepth; cur = cur.proto {
			if cur == this {
				return True, nil
			}
			depth++
		}
		return False, nil
	})
	vm.method(p, "addProperty", func(a *Activation, this *Object, args []Value) (Value, error) {
		if this == nil || len(args) < 2 {
			return False, nil
		}
		name, err := a.ToString(args[0])
		if err != nil {
			return Undefined, err
		}
		if name.Len() == 0 {
			return False, nil
		}
		return Bool(this.AddProperty(name.String(), args[1].AsObject(), arg(args, 2).AsObject(), 0)), nil
	})
}

// ---------------------------------------------------------------------------
// Function
// ---------------------------------------------------------------------------

func (vm *VM) registerFunctionPrimitives() {
	p := vm.protos.Function
	vm.defineClass("Function", p, returnUndefined, returnUndefined)

	vm.method(p, "call", func(a *Activation, this *Object, args []Value) (Value, error) {
		if this == nil || this.kind != ObjectFunction {
			return Undefined, nil
		}
		var rest []Value
		if len(args) > 1 {
			rest = args[1:]
		}
		return a.Call(this, arg(args, 0), rest)
	})
	vm.method(p, "apply", func(a *Activation, this *Object, args []Value) (Value, error) {
		if this == nil || this.kind != ObjectFunction {
			return Undefined, nil
		}
		var rest []Value
		if list := arg(args, 1).AsObject(); list != nil {
			var err error
			if rest, err = list.Elements(); err != nil {
				return Undefined, err
			}
		}
		return a.Call(this, arg(args, 0), rest)
	})
}

// ---------------------------------------------------------------------------
// Boolean and Error
// ---------------------------------------------------------------------------

func (vm *VM) registerBooleanPrimitives() {
	p := vm.protos.Boolean
	vm.defineClass("Boolean", p,
		func(a *Activation, _ *Object, args []Value) (Value, error) {
			return Bool(arg(args, 0).ToBoolean(a.version)), nil
		},
		func(a *Activation, _ *Object, args []Value) (Value, error) {
			return ObjectValue(a.vm.newBoxed(Bool(arg(args, 0).ToBoolean(a.version)), a.vm.protos.Boolean)), nil
		})
	vm.method(p, "valueOf", func(a *Activation, this *Object, _ []Value) (Value, error) {
		if this != nil && this.kind == ObjectBoxed && this.prim.kind == KindBool {
			return this.prim, nil
		}
		return Undefined, nil
	})
	vm.method(p, "toString", func(a *Activation, this *Object, _ []Value) (Value, error) {
		if this != nil && this.kind == ObjectBoxed && this.prim.kind == KindBool {
			return String(this.prim.primitiveToString(a.version)), nil
		}
		return Undefined, nil
	})
}

func (vm *VM) registerErrorPrimitives() {
	p := vm.protos.Error
	p.Define("message", Str("Error"), DontEnum)
	p.Define("name", Str("Error"), DontEnum)
	vm.defineClass("Error", p,
		func(a *Activation, _ *Object, args []Value) (Value, error) {
			return a.Construct(a.callee, args)
		},
		func(a *Activation, this *Object, args []Value) (Value, error) {
			if msg := arg(args, 0); !msg.IsUndefined() {
				this.Define("message", msg, 0)
			}
			return Undefined, nil
		})
	vm.method(p, "toString", func(a *Activation, this *Object, _ []Value) (Value, error) {
		if this == nil {
			return Str("Error"), nil
		}
		return this.Get(a, "message")
	})
}

// ---------------------------------------------------------------------------
// Global functions
// ---------------------------------------------------------------------------

func (vm *VM) registerGlobalFunctions() {
	g := vm.global
	g.Define("NaN", Number(math.NaN()), DontEnum|DontDelete)
	g.Define("Infinity", Number(math.Inf(1)), DontEnum|DontDelete)

	vm.method(g, "isNaN", func(a *Activation, _ *Object, args []Value) (Value, error) {
		n, err := a.ToNumber(arg(args, 0))
		return Bool(math.IsNaN(n)), err
	})
	vm.method(g, "isFinite", func(a *Activation, _ *Object, args []Value) (Value, error) {
		n, err := a.ToNumber(arg(args, 0))
		return Bool(!math.IsNaN(n) && !math.IsInf(n, 0)), err
	})
	vm.method(g, "parseInt", func(a *Activation, _ *Object, args []Value) (Value, error) {
		s, err := a.ToString(arg(args, 0))
		if err != nil {
			return Undefined, err
		}
		radix := 0
		if r := arg(args, 1); !r.IsUndefined() {
			n, err := a.ToNumber(r)
			if err != nil {
				return Undefined, err
			}
			radix = int(ToInt32(n))
		}
		return Number(parseInt(s.String(), radix)), nil
	})
	vm.method(g, "parseFloat", func(a *Activation, _ *Object, args []Value) (Value, error) {
		s, err := a.ToString(arg(args, 0))
		if err != nil {
			return Undefined, err
		}
		return Number(parseFloat(s.String())), nil
	})
	vm.method(g, "ASSetPropFlags", asSetPropFlags)
	vm.method(g, "ASnative", func(a *Activation, _ *Object, args []Value) (Value, error) {
		cat, err := a.ToNumber(arg(args, 0))
		if err != nil {
			return Undefined, err
		}
		idx, err := a.ToNumber(arg(args, 1))
		if err != nil {
			return Undefined, err
		}
		table, ok := nativeTables[int(ToInt32(cat))]
		i := int(ToInt32(idx))
		if !ok || i < 0 || i >= len(table.names) {
			return Undefined, nil
		}
		return ObjectValue(a.vm.NewTableNative(table.names[i], table.fn, i)), nil
	})
}

// asSetPropFlags implements ASSetPropFlags(obj, props, set, clear). props
// is null for every property, a comma-separated string or an array.
func asSetPropFlags(a *Activation, _ *Object, args []Value) (Value, error) {
	obj := arg(args, 0).AsObject()
	if obj == nil {
		return Undefined, nil
	}
	var names []string
	switch props := arg(args, 1); {
	case props.IsNull():
	case props.AsObject() != nil && props.AsObject().kind == ObjectArray:
		for _, e := range props.AsObject().elements() {
			s, err := a.ToString(e.value)
			if err != nil {
				return Undefined, err
			}
			names = append(names, s.String())
		}
		if names == nil {
			names = []string{}
		}
	default:
		s, err := a.ToString(props)
		if err != nil {
			return Undefined, err
		}
		names = strings.Split(s.String(), ",")
	}
	set, err := a.ToNumber(arg(args, 2))
	if err != nil {
		return Undefined, err
	}
	clear := 0.0
	if c := arg(args, 3); !c.IsUndefined() {
		if clear, err = a.ToNumber(c); err != nil {
			return Undefined, err
		}
	}
	const mask = DontEnum | DontDelete | ReadOnly
	obj.SetAttributes(names, Attribute(ToInt32(set))&mask, Attribute(ToInt32(clear))&mask)
	return Undefined, nil
}

// parseInt scans the longest valid integer prefix. Radix 0 auto-detects
// hexadecimal.
func parseInt(s string, radix int) float64 {
	t := strings.TrimLeft(s, " \t\r\n")
	neg := false
	if t != "" && (t[0] == '-' || t[0] == '+') {
		neg = t[0] == '-'
		t = t[1:]
	}
	if (radix == 0 || radix == 16) && len(t) > 1 && t[0] == '0' && (t[1] == 'x' || t[1] == 'X') {
		t, radix = t[2:], 16
	}
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return math.NaN()
	}
	n, digits := 0.0, 0
	for _, c := range t {
		d := digitValue(c)
		if d < 0 || d >= radix {
			break
		}
		n = n*float64(radix) + float64(d)
		digits++
	}
	if digits == 0 {
		return math.NaN()
	}
	if neg {
		n = -n
	}
	return n
}

func digitValue(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}

// parseFloat parses the longest prefix that forms a decimal number.
func parseFloat(s string) float64 {
	t := strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(t) && (t[end] == '+' || t[end] == '-') {
		end++
	}
	if strings.HasPrefix(t[end:], "Infinity") {
		if t[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	digits := 0
	for end < len(t) && t[end] >= '0' && t[end] <= '9' {
		end++
		digits++
	}
	if end < len(t) && t[end] == '.' {
		end++
		for end < len(t) && t[end] >= '0' && t[end] <= '9' {
			end++
			digits++
		}
	}
	if digits == 0 {
		return math.NaN()
	}
	if end < len(t) && (t[end] == 'e' || t[end] == 'E') {
		exp := end + 1
		if exp < len(t) && (t[exp] == '+' || t[exp] == '-') {
			exp++
		}
		if exp < len(t) && t[exp] >= '0' && t[exp] <= '9' {
			for exp < len(t) && t[exp] >= '0' && t[exp] <= '9' {
				exp++
			}
			end = exp
		}
	}
	return stringToNumber(t[:end], 5)
}
