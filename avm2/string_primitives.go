package avm2

import (
	"math"

	"github.com/chazu/avmcore/wstr"
)

// ---------------------------------------------------------------------------
// String
// ---------------------------------------------------------------------------

func (vm *VM) registerStringPrimitives() error {
	c, err := vm.defineClass(&ClassDef{
		Name:           NewQName("", "String"),
		Flags:          ClassFinal | ClassSealed,
		Alloc:          primitiveAlloc(Str("")),
		Init:           NewNative("String", primitiveInit(toStringValue)),
		Call:           toStringValue,
		InstanceTraits: []Trait{getterTrait("length", stringLength)},
		ClassTraits:    methodTraits([]nativeMethod{{"fromCharCode", stringFromCharCode}}),
	}, nil)
	if err != nil {
		return err
	}
	vm.system.String = c
	vm.setMethods(c.prototype, []nativeMethod{
		{"charAt", stringCharAt},
		{"charCodeAt", stringCharCodeAt},
		{"indexOf", stringIndexOf},
		{"lastIndexOf", stringLastIndexOf},
		{"substring", stringSubstring},
		{"substr", stringSubstr},
		{"slice", stringSlice},
		{"toUpperCase", stringToUpperCase},
		{"toLowerCase", stringToLowerCase},
		{"toLocaleUpperCase", stringToUpperCase},
		{"toLocaleLowerCase", stringToLowerCase},
		{"localeCompare", stringLocaleCompare},
		{"split", stringSplit},
		{"concat", stringConcat},
		{"toString", stringValueOf},
		{"valueOf", stringValueOf},
	})
	return nil
}

func toStringValue(a *Activation, this Value, args []Value) (Value, error) {
	if len(args) == 0 {
		return Str(""), nil
	}
	s, err := a.ToString(args[0])
	return StrValue(s), err
}

func thisString(a *Activation, this Value) (*wstr.Str, error) {
	if this.IsString() {
		return this.s, nil
	}
	if o := this.AsObject(); o != nil && o.kind == ObjectPrimitive && o.prim.IsString() {
		return o.prim.s, nil
	}
	if this.IsNullish() {
		return nil, a.nullError(this)
	}
	return a.ToString(this)
}

// integerArg converts an optional argument to an integer; NaN and
// missing arguments read as def.
func integerArg(a *Activation, args []Value, i int, def float64) (float64, error) {
	v := arg(args, i)
	if v.IsUndefined() {
		return def, nil
	}
	n, err := a.ToNumber(v)
	if err != nil || math.IsNaN(n) {
		return 0, err
	}
	return math.Trunc(n), nil
}

// clampIndex bounds n to [0, length], counting negative n from the end
// when relative is set.
func clampIndex(n float64, length int, relative bool) int {
	if relative && n < 0 {
		n += float64(length)
	}
	switch {
	case n < 0:
		return 0
	case n > float64(length):
		return length
	}
	return int(n)
}

func stringLength(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	return Int(int32(s.Len())), nil
}

func stringValueOf(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	return StrValue(s), nil
}

func stringFromCharCode(a *Activation, this Value, args []Value) (Value, error) {
	units := make([]uint16, len(args))
	for i, v := range args {
		u, err := a.ToUint32(v)
		if err != nil {
			return Undefined, err
		}
		units[i] = uint16(u)
	}
	return StrValue(wstr.FromUnits(units)), nil
}

func stringCharAt(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	pos, err := integerArg(a, args, 0, 0)
	if err != nil {
		return Undefined, err
	}
	if pos < 0 || pos >= float64(s.Len()) {
		return Str(""), nil
	}
	return StrValue(s.Slice(int(pos), int(pos)+1)), nil
}

func stringCharCodeAt(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	pos, err := integerArg(a, args, 0, 0)
	if err != nil {
		return Undefined, err
	}
	if pos < 0 || pos >= float64(s.Len()) {
		return Number(math.NaN()), nil
	}
	return Int(int32(s.At(int(pos)))), nil
}

func stringIndexOf(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	sub, err := a.ToString(arg(args, 0))
	if err != nil {
		return Undefined, err
	}
	from, err := integerArg(a, args, 1, 0)
	if err != nil {
		return Undefined, err
	}
	return Int(int32(s.IndexOf(sub, clampIndex(from, s.Len(), false)))), nil
}

func stringLastIndexOf(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	sub, err := a.ToString(arg(args, 0))
	if err != nil {
		return Undefined, err
	}
	from, err := integerArg(a, args, 1, math.Inf(1))
	if err != nil {
		return Undefined, err
	}
	start := clampIndex(from, s.Len()-sub.Len(), false)
	for i := start; i >= 0; i-- {
		if s.Slice(i, i+sub.Len()).Equal(sub) {
			return Int(int32(i)), nil
		}
	}
	return Int(-1), nil
}

func stringSubstring(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	start, err := integerArg(a, args, 0, 0)
	if err != nil {
		return Undefined, err
	}
	end, err := integerArg(a, args, 1, float64(s.Len()))
	if err != nil {
		return Undefined, err
	}
	i, j := clampIndex(start, s.Len(), false), clampIndex(end, s.Len(), false)
	if i > j {
		i, j = j, i
	}
	return StrValue(s.Slice(i, j)), nil
}

func stringSubstr(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	start, err := integerArg(a, args, 0, 0)
	if err != nil {
		return Undefined, err
	}
	n, err := integerArg(a, args, 1, float64(s.Len()))
	if err != nil {
		return Undefined, err
	}
	i := clampIndex(start, s.Len(), true)
	j := clampIndex(float64(i)+n, s.Len(), false)
	return StrValue(s.Slice(i, j)), nil
}

func stringSlice(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	start, err := integerArg(a, args, 0, 0)
	if err != nil {
		return Undefined, err
	}
	end, err := integerArg(a, args, 1, float64(s.Len()))
	if err != nil {
		return Undefined, err
	}
	return StrValue(s.Slice(clampIndex(start, s.Len(), true), clampIndex(end, s.Len(), true))), nil
}

func stringToUpperCase(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	return StrValue(s.ToUpper()), nil
}

func stringToLowerCase(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	return StrValue(s.ToLower()), nil
}

func stringLocaleCompare(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	other, err := a.ToString(arg(args, 0))
	if err != nil {
		return Undefined, err
	}
	return Int(int32(s.Compare(other))), nil
}

func stringConcat(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	for _, v := range args {
		o, err := a.ToString(v)
		if err != nil {
			return Undefined, err
		}
		s = s.Concat(o)
	}
	return StrValue(s), nil
}

// stringSplit splits on a literal separator. An empty separator yields
// one element per code unit; a missing one yields the whole string.
func stringSplit(a *Activation, this Value, args []Value) (Value, error) {
	s, err := thisString(a, this)
	if err != nil {
		return Undefined, err
	}
	limit := uint32(math.MaxUint32)
	if v := arg(args, 1); !v.IsUndefined() {
		if limit, err = a.ToUint32(v); err != nil {
			return Undefined, err
		}
	}
	var parts []Value
	if sv := arg(args, 0); sv.IsUndefined() {
		parts = append(parts, StrValue(s))
	} else {
		sep, err := a.ToString(sv)
		if err != nil {
			return Undefined, err
		}
		parts = splitString(s, sep)
	}
	if uint64(len(parts)) > uint64(limit) {
		parts = parts[:limit]
	}
	return ObjectValue(a.vm.NewArray(parts)), nil
}

func splitString(s, sep *wstr.Str) []Value {
	var parts []Value
	if sep.Len() == 0 {
		for i := 0; i < s.Len(); i++ {
			parts = append(parts, StrValue(s.Slice(i, i+1)))
		}
		return parts
	}
	start := 0
	for {
		i := s.IndexOf(sep, start)
		if i < 0 {
			break
		}
		parts = append(parts, StrValue(s.Slice(start, i)))
		start = i + sep.Len()
	}
	return append(parts, StrValue(s.Slice(start, s.Len())))
}
