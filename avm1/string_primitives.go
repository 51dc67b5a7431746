package avm1

import (
	"math"
	"strconv"

	"github.com/chazu/avmcore/wstr"
)

// ---------------------------------------------------------------------------
// String Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerStringPrimitives() {
	p := vm.protos.String
	ctor := vm.defineClass("String", p,
		func(a *Activation, _ *Object, args []Value) (Value, error) {
			if len(args) == 0 {
				return String(wstr.Empty), nil
			}
			s, err := a.ToString(args[0])
			return String(s), err
		},
		func(a *Activation, _ *Object, args []Value) (Value, error) {
			s := wstr.Empty
			if len(args) > 0 {
				var err error
				if s, err = a.ToString(args[0]); err != nil {
					return Undefined, err
				}
			}
			return ObjectValue(a.vm.newBoxed(String(s), a.vm.protos.String)), nil
		})

	vm.method(ctor, "fromCharCode", func(a *Activation, _ *Object, args []Value) (Value, error) {
		units := make([]uint16, 0, len(args))
		for _, v := range args {
			n, err := a.ToNumber(v)
			if err != nil {
				return Undefined, err
			}
			units = append(units, uint16(ToUint32(n)))
		}
		return String(wstr.FromUnits(units)), nil
	})

	primitive := func(a *Activation, this *Object, _ []Value) (Value, error) {
		s, err := thisString(a, this)
		return String(s), err
	}
	vm.method(p, "toString", primitive)
	vm.method(p, "valueOf", primitive)

	vm.method(p, "charAt", func(a *Activation, this *Object, args []Value) (Value, error) {
		s, i, err := stringAndIndex(a, this, args)
		if err != nil || i < 0 || i >= s.Len() {
			return String(wstr.Empty), err
		}
		return String(s.Slice(i, i+1)), nil
	})
	vm.method(p, "charCodeAt", func(a *Activation, this *Object, args []Value) (Value, error) {
		s, i, err := stringAndIndex(a, this, args)
		if err != nil || i < 0 || i >= s.Len() {
			return Number(math.NaN()), err
		}
		return Number(float64(s.At(i))), nil
	})
	vm.method(p, "indexOf", func(a *Activation, this *Object, args []Value) (Value, error) {
		s, err := thisString(a, this)
		if err != nil {
			return Undefined, err
		}
		sub, err := a.ToString(arg(args, 0))
		if err != nil {
			return Undefined, err
		}
		from := 0
		if len(args) > 1 {
			n, err := a.ToNumber(args[1])
			if err != nil {
				return Undefined, err
			}
			from = int(ToInt32(n))
		}
		return Number(float64(s.IndexOf(sub, from))), nil
	})
	vm.method(p, "lastIndexOf", func(a *Activation, this *Object, args []Value) (Value, error) {
		s, err := thisString(a, this)
		if err != nil {
			return Undefined, err
		}
		sub, err := a.ToString(arg(args, 0))
		if err != nil {
			return Undefined, err
		}
		last := -1
		for i := s.IndexOf(sub, 0); i >= 0; i = s.IndexOf(sub, i+1) {
			last = i
			if sub.Len() == 0 && i >= s.Len() {
				break
			}
		}
		return Number(float64(last)), nil
	})
	vm.method(p, "substring", func(a *Activation, this *Object, args []Value) (Value, error) {
		s, err := thisString(a, this)
		if err != nil {
			return Undefined, err
		}
		start, err := clampedIndex(a, arg(args, 0), s.Len(), 0)
		if err != nil {
			return Undefined, err
		}
		end, err := clampedIndex(a, arg(args, 1), s.Len(), s.Len())
		if err != nil {
			return Undefined, err
		}
		if start > end {
			start, end = end, start
		}
		return String(s.Slice(start, end)), nil
	})
	vm.method(p, "substr", func(a *Activation, this *Object, args []Value) (Value, error) {
		s, err := thisString(a, this)
		if err != nil {
			return Undefined, err
		}
		start, err := relativeIndex(a, arg(args, 0), s.Len(), 0)
		if err != nil {
			return Undefined, err
		}
		end := s.Len()
		if n := arg(args, 1); !n.IsUndefined() {
			count, err := a.ToNumber(n)
			if err != nil {
				return Undefined, err
			}
			end = min(start+max(int(ToInt32(count)), 0), s.Len())
		}
		return String(s.Slice(start, end)), nil
	})
	vm.method(p, "slice", func(a *Activation, this *Object, args []Value) (Value, error) {
		s, err := thisString(a, this)
		if err != nil {
			return Undefined, err
		}
		start, err := relativeIndex(a, arg(args, 0), s.Len(), 0)
		if err != nil {
			return Undefined, err
		}
		end, err := relativeIndex(a, arg(args, 1), s.Len(), s.Len())
		if err != nil {
			return Undefined, err
		}
		return String(s.Slice(start, end)), nil
	})
	vm.method(p, "toUpperCase", func(a *Activation, this *Object, _ []Value) (Value, error) {
		s, err := thisString(a, this)
		return String(s.ToUpper()), err
	})
	vm.method(p, "toLowerCase", func(a *Activation, this *Object, _ []Value) (Value, error) {
		s, err := thisString(a, this)
		return String(s.ToLower()), err
	})
	vm.method(p, "concat", func(a *Activation, this *Object, args []Value) (Value, error) {
		s, err := thisString(a, this)
		if err != nil {
			return Undefined, err
		}
		for _, v := range args {
			t, err := a.ToString(v)
			if err != nil {
				return Undefined, err
			}
			s = s.Concat(t)
		}
		return String(s), nil
	})
	vm.method(p, "split", func(a *Activation, this *Object, args []Value) (Value, error) {
		s, err := thisString(a, this)
		if err != nil {
			return Undefined, err
		}
		d := arg(args, 0)
		if d.IsUndefined() {
			return ObjectValue(a.vm.NewArray([]Value{String(s)})), nil
		}
		delim, err := a.ToString(d)
		if err != nil {
			return Undefined, err
		}
		limit := math.MaxInt32
		if l := arg(args, 1); !l.IsUndefined() {
			n, err := a.ToNumber(l)
			if err != nil {
				return Undefined, err
			}
			limit = max(int(ToInt32(n)), 0)
		}
		var parts []Value
		if delim.Len() == 0 {
			for i := 0; i < s.Len() && len(parts) < limit; i++ {
				parts = append(parts, String(s.Slice(i, i+1)))
			}
			return ObjectValue(a.vm.NewArray(parts)), nil
		}
		start := 0
		for len(parts) < limit {
			i := s.IndexOf(delim, start)
			if i < 0 {
				parts = append(parts, String(s.Slice(start, s.Len())))
				break
			}
			parts = append(parts, String(s.Slice(start, i)))
			start = i + delim.Len()
		}
		return ObjectValue(a.vm.NewArray(parts)), nil
	})
}

// thisString returns the string a String method operates on.
func thisString(a *Activation, this *Object) (*wstr.Str, error) {
	if this == nil {
		return wstr.Empty, nil
	}
	if this.kind == ObjectBoxed && this.prim.kind == KindString {
		return this.prim.s, nil
	}
	return a.ToString(ObjectValue(this))
}

func stringAndIndex(a *Activation, this *Object, args []Value) (*wstr.Str, int, error) {
	s, err := thisString(a, this)
	if err != nil {
		return nil, 0, err
	}
	n, err := a.ToNumber(arg(args, 0))
	if err != nil {
		return nil, 0, err
	}
	if math.IsNaN(n) {
		n = 0
	}
	return s, int(ToInt32(n)), nil
}

// clampedIndex clamps an index into [0, n] without wrapping negatives.
func clampedIndex(a *Activation, v Value, n, def int) (int, error) {
	if v.IsUndefined() {
		return def, nil
	}
	f, err := a.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return min(max(int(ToInt32(f)), 0), n), nil
}

// ---------------------------------------------------------------------------
// Number Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerNumberPrimitives() {
	p := vm.protos.Number
	ctor := vm.defineClass("Number", p,
		func(a *Activation, _ *Object, args []Value) (Value, error) {
			if len(args) == 0 {
				return Number(0), nil
			}
			n, err := a.ToNumber(args[0])
			return Number(n), err
		},
		func(a *Activation, _ *Object, args []Value) (Value, error) {
			n := 0.0
			if len(args) > 0 {
				var err error
				if n, err = a.ToNumber(args[0]); err != nil {
					return Undefined, err
				}
			}
			return ObjectValue(a.vm.newBoxed(Number(n), a.vm.protos.Number)), nil
		})
	for name, v := range map[string]float64{
		"MAX_VALUE":         math.MaxFloat64,
		"MIN_VALUE":         math.SmallestNonzeroFloat64,
		"NaN":               math.NaN(),
		"NEGATIVE_INFINITY": math.Inf(-1),
		"POSITIVE_INFINITY": math.Inf(1),
	} {
		ctor.Define(name, Number(v), DontEnum|DontDelete|ReadOnly)
	}

	vm.method(p, "valueOf", func(a *Activation, this *Object, _ []Value) (Value, error) {
		if this != nil && this.kind == ObjectBoxed && this.prim.kind == KindNumber {
			return this.prim, nil
		}
		return Undefined, nil
	})
	vm.method(p, "toString", func(a *Activation, this *Object, args []Value) (Value, error) {
		if this == nil || this.kind != ObjectBoxed || this.prim.kind != KindNumber {
			return Undefined, nil
		}
		n := this.prim.n
		radix := 10
		if r := arg(args, 0); !r.IsUndefined() {
			rn, err := a.ToNumber(r)
			if err != nil {
				return Undefined, err
			}
			radix = int(ToInt32(rn))
		}
		if radix == 10 || radix < 2 || radix > 36 || math.IsNaN(n) || math.IsInf(n, 0) {
			return Str(FormatNumber(n)), nil
		}
		return Str(strconv.FormatInt(int64(ToInt32(n)), radix)), nil
	})
}
