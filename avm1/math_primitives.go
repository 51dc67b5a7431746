package avm1

import (
	"math"
	"math/rand"
)

// ---------------------------------------------------------------------------
// Native tables
// ---------------------------------------------------------------------------

// nativeTable is one ASnative category: a shared entry point selected by
// index, with the method name each index is published under.
type nativeTable struct {
	names []string
	fn    TableNativeFunc
}

const mathCategory = 200

var mathNames = []string{
	"abs", "min", "max", "sin", "cos", "atan2", "tan", "exp", "log",
	"sqrt", "round", "random", "floor", "ceil", "atan", "asin", "acos", "pow",
}

var nativeTables = map[int]nativeTable{
	mathCategory: {names: mathNames, fn: mathNative},
}

// ---------------------------------------------------------------------------
// Math Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerMathPrimitives() {
	m := vm.NewObject(vm.protos.Object)
	for i, name := range mathNames {
		m.Define(name, ObjectValue(vm.NewTableNative(name, mathNative, i)), DontEnum|DontDelete|ReadOnly)
	}
	constants := []struct {
		name string
		v    float64
	}{
		{"E", math.E},
		{"LN10", math.Ln10},
		{"LN2", math.Ln2},
		{"LOG10E", math.Log10E},
		{"LOG2E", math.Log2E},
		{"PI", math.Pi},
		{"SQRT1_2", math.Sqrt2 / 2},
		{"SQRT2", math.Sqrt2},
	}
	for _, c := range constants {
		m.Define(c.name, Number(c.v), DontEnum|DontDelete|ReadOnly)
	}
	vm.global.Define("Math", ObjectValue(m), DontEnum)
}

// mathNative implements ASnative(200, index).
func mathNative(a *Activation, _ *Object, args []Value, index int) (Value, error) {
	nums := make([]float64, len(args))
	for i, v := range args {
		n, err := a.ToNumber(v)
		if err != nil {
			return Undefined, err
		}
		nums[i] = n
	}
	x := math.NaN()
	if len(nums) > 0 {
		x = nums[0]
	}
	y := math.NaN()
	if len(nums) > 1 {
		y = nums[1]
	}

	switch mathNames[index] {
	case "abs":
		return Number(math.Abs(x)), nil
	case "min":
		if len(nums) == 0 {
			return Number(math.Inf(1)), nil
		}
		r := nums[0]
		for _, n := range nums[1:] {
			if math.IsNaN(n) || n < r {
				r = n
			}
		}
		return Number(r), nil
	case "max":
		if len(nums) == 0 {
			return Number(math.Inf(-1)), nil
		}
		r := nums[0]
		for _, n := range nums[1:] {
			if math.IsNaN(n) || n > r {
				r = n
			}
		}
		return Number(r), nil
	case "sin":
		return Number(math.Sin(x)), nil
	case "cos":
		return Number(math.Cos(x)), nil
	case "atan2":
		return Number(math.Atan2(x, y)), nil
	case "tan":
		return Number(math.Tan(x)), nil
	case "exp":
		return Number(math.Exp(x)), nil
	case "log":
		return Number(math.Log(x)), nil
	case "sqrt":
		return Number(math.Sqrt(x)), nil
	case "round":
		return Number(math.Floor(x + 0.5)), nil
	case "random":
		return Number(rand.Float64()), nil
	case "floor":
		return Number(math.Floor(x)), nil
	case "ceil":
		return Number(math.Ceil(x)), nil
	case "atan":
		return Number(math.Atan(x)), nil
	case "asin":
		return Number(math.Asin(x)), nil
	case "acos":
		return Number(math.Acos(x)), nil
	case "pow":
		return Number(math.Pow(x, y)), nil
	}
	return Undefined, nil
}
