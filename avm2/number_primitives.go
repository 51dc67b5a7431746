package avm2

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Boolean, Number, int and uint
// ---------------------------------------------------------------------------

func primitiveAlloc(zero Value) AllocFunc {
	return func(vm *VM, c *ClassObject) *Object {
		return alloc(vm, &Object{kind: ObjectPrimitive, prim: zero})
	}
}

// primitiveInit stores the converted first argument in the wrapper.
func primitiveInit(convert NativeFunc) NativeFunc {
	return func(a *Activation, this Value, args []Value) (Value, error) {
		v, err := convert(a, Undefined, args)
		if err != nil {
			return Undefined, err
		}
		this.AsObject().prim = v
		return Undefined, nil
	}
}

func toBoolean(a *Activation, this Value, args []Value) (Value, error) {
	return Bool(arg(args, 0).ToBoolean()), nil
}

func toNumber(a *Activation, this Value, args []Value) (Value, error) {
	if len(args) == 0 {
		return Int(0), nil
	}
	n, err := a.ToNumber(args[0])
	return normalize(n), err
}

func toInt(a *Activation, this Value, args []Value) (Value, error) {
	i, err := a.ToInt32(arg(args, 0))
	return Int(i), err
}

func toUint(a *Activation, this Value, args []Value) (Value, error) {
	u, err := a.ToUint32(arg(args, 0))
	return Uint(u), err
}

func (vm *VM) registerNumberPrimitives() error {
	numberMethods := []nativeMethod{
		{"toString", numberToString},
		{"toLocaleString", numberToString},
		{"toFixed", numberToFixed},
		{"toExponential", numberToExponential},
		{"toPrecision", numberToPrecision},
		{"valueOf", numberValueOf},
	}
	defs := []struct {
		name    string
		zero    Value
		convert NativeFunc
		consts  []Trait
		methods []nativeMethod
		slot    **ClassObject
	}{
		{"Boolean", False, toBoolean, nil, []nativeMethod{
			{"toString", booleanToString},
			{"valueOf", booleanValueOf},
		}, &vm.system.Boolean},
		{"Number", Int(0), toNumber, []Trait{
			constTrait("MAX_VALUE", "Number", NumberConstant(math.MaxFloat64)),
			constTrait("MIN_VALUE", "Number", NumberConstant(math.SmallestNonzeroFloat64)),
			constTrait("NaN", "Number", NumberConstant(math.NaN())),
			constTrait("POSITIVE_INFINITY", "Number", NumberConstant(math.Inf(1))),
			constTrait("NEGATIVE_INFINITY", "Number", NumberConstant(math.Inf(-1))),
		}, numberMethods, &vm.system.Number},
		{"int", Int(0), toInt, []Trait{
			constTrait("MAX_VALUE", "int", IntConstant(math.MaxInt32)),
			constTrait("MIN_VALUE", "int", IntConstant(math.MinInt32)),
		}, numberMethods, &vm.system.Int},
		{"uint", Int(0), toUint, []Trait{
			constTrait("MAX_VALUE", "uint", NumberConstant(math.MaxUint32)),
			constTrait("MIN_VALUE", "uint", IntConstant(0)),
		}, numberMethods, &vm.system.Uint},
	}
	for _, d := range defs {
		c, err := vm.defineClass(&ClassDef{
			Name:        NewQName("", d.name),
			Flags:       ClassFinal | ClassSealed,
			Alloc:       primitiveAlloc(d.zero),
			Init:        NewNative(d.name, primitiveInit(d.convert)),
			Call:        d.convert,
			ClassTraits: d.consts,
		}, nil)
		if err != nil {
			return err
		}
		vm.setMethods(c.prototype, d.methods)
		*d.slot = c
	}
	return nil
}

// ---------------------------------------------------------------------------
// Prototype methods
// ---------------------------------------------------------------------------

func thisNumber(a *Activation, this Value) (float64, error) {
	if this.IsNumeric() {
		return this.AsNumber(), nil
	}
	if o := this.AsObject(); o != nil && o.kind == ObjectPrimitive && o.prim.IsNumeric() {
		return o.prim.AsNumber(), nil
	}
	return 0, a.Throw(CodeTypeCoercion, a.typeName(this), "Number")
}

func booleanValue(a *Activation, this Value) (bool, error) {
	if this.kind == KindBool {
		return this.b, nil
	}
	if o := this.AsObject(); o != nil && o.kind == ObjectPrimitive && o.prim.kind == KindBool {
		return o.prim.b, nil
	}
	return false, a.Throw(CodeTypeCoercion, a.typeName(this), "Boolean")
}

func booleanToString(a *Activation, this Value, args []Value) (Value, error) {
	b, err := booleanValue(a, this)
	if err != nil {
		return Undefined, err
	}
	return Str(strconv.FormatBool(b)), nil
}

func booleanValueOf(a *Activation, this Value, args []Value) (Value, error) {
	b, err := booleanValue(a, this)
	return Bool(b), err
}

func numberValueOf(a *Activation, this Value, args []Value) (Value, error) {
	n, err := thisNumber(a, this)
	return normalize(n), err
}

// rangeArg reads an optional integer argument bounded by [lo, hi].
func rangeArg(a *Activation, args []Value, i int, name string, lo, hi, def int) (int, error) {
	v := arg(args, i)
	if v.IsUndefined() {
		return def, nil
	}
	n, err := a.ToNumber(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || n < float64(lo) || n > float64(hi) {
		return 0, a.Throw(CodePrecisionRange, name, lo, hi, FormatNumber(n))
	}
	return int(n), nil
}

func numberToString(a *Activation, this Value, args []Value) (Value, error) {
	n, err := thisNumber(a, this)
	if err != nil {
		return Undefined, err
	}
	radix, err := rangeArg(a, args, 0, "radix", 2, 36, 10)
	if err != nil {
		return Undefined, err
	}
	if radix == 10 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Str(FormatNumber(n)), nil
	}
	return Str(formatRadix(n, radix)), nil
}

// formatRadix prints n in base radix with at most 20 fraction digits.
func formatRadix(n float64, radix int) string {
	neg := n < 0
	n = math.Abs(n)
	ip, fp := math.Modf(n)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if ip < 1<<63 {
		b.WriteString(strconv.FormatUint(uint64(ip), radix))
	} else {
		b.WriteString(FormatNumber(ip))
	}
	if fp > 0 {
		b.WriteByte('.')
		for i := 0; i < 20 && fp > 0; i++ {
			fp *= float64(radix)
			d := int(fp)
			b.WriteByte("0123456789abcdefghijklmnopqrstuvwxyz"[d])
			fp -= float64(d)
		}
	}
	return b.String()
}

func numberToFixed(a *Activation, this Value, args []Value) (Value, error) {
	n, err := thisNumber(a, this)
	if err != nil {
		return Undefined, err
	}
	digits, err := rangeArg(a, args, 0, "precision", 0, 20, 0)
	if err != nil {
		return Undefined, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || math.Abs(n) >= 1e21 {
		return Str(FormatNumber(n)), nil
	}
	return Str(strconv.FormatFloat(n, 'f', digits, 64)), nil
}

func numberToExponential(a *Activation, this Value, args []Value) (Value, error) {
	n, err := thisNumber(a, this)
	if err != nil {
		return Undefined, err
	}
	digits, err := rangeArg(a, args, 0, "fractionDigits", 0, 20, -1)
	if err != nil {
		return Undefined, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Str(FormatNumber(n)), nil
	}
	return Str(trimExponent(strconv.FormatFloat(n, 'e', digits, 64))), nil
}

func numberToPrecision(a *Activation, this Value, args []Value) (Value, error) {
	n, err := thisNumber(a, this)
	if err != nil {
		return Undefined, err
	}
	if arg(args, 0).IsUndefined() || math.IsNaN(n) || math.IsInf(n, 0) {
		return Str(FormatNumber(n)), nil
	}
	p, err := rangeArg(a, args, 0, "precision", 1, 21, 0)
	if err != nil {
		return Undefined, err
	}
	e := strconv.FormatFloat(n, 'e', p-1, 64)
	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if exp < -6 || exp >= p {
		return Str(trimExponent(e)), nil
	}
	return Str(strconv.FormatFloat(n, 'f', p-1-exp, 64)), nil
}

// trimExponent turns Go's "1.5e+06" into "1.5e+6".
func trimExponent(s string) string {
	i := strings.IndexByte(s, 'e')
	if i < 0 {
		return s
	}
	exp := strings.TrimLeft(s[i+2:], "0")
	if exp == "" {
		exp = "0"
	}
	return s[:i+2] + exp
}
