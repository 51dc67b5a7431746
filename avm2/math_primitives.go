package avm2

import (
	"math"
	"math/rand/v2"
)

// ---------------------------------------------------------------------------
// Math
// ---------------------------------------------------------------------------

// Math functions share one multiplexed native; the table index selects
// the operation.
const (
	mathAbs = iota
	mathAcos
	mathAsin
	mathAtan
	mathAtan2
	mathCeil
	mathCos
	mathExp
	mathFloor
	mathLog
	mathMax
	mathMin
	mathPow
	mathRandom
	mathRound
	mathSin
	mathSqrt
	mathTan
)

var mathFunctionNames = [...]string{
	"abs", "acos", "asin", "atan", "atan2", "ceil", "cos", "exp", "floor",
	"log", "max", "min", "pow", "random", "round", "sin", "sqrt", "tan",
}

func (vm *VM) registerMathPrimitives() error {
	traits := []Trait{
		constTrait("E", "Number", NumberConstant(math.E)),
		constTrait("LN10", "Number", NumberConstant(math.Ln10)),
		constTrait("LN2", "Number", NumberConstant(math.Ln2)),
		constTrait("LOG10E", "Number", NumberConstant(math.Log10E)),
		constTrait("LOG2E", "Number", NumberConstant(math.Log2E)),
		constTrait("PI", "Number", NumberConstant(math.Pi)),
		constTrait("SQRT1_2", "Number", NumberConstant(math.Sqrt2/2)),
		constTrait("SQRT2", "Number", NumberConstant(math.Sqrt2)),
	}
	for i, name := range mathFunctionNames {
		traits = append(traits, Trait{Name: NewQName("", name), Kind: TraitMethod, Method: NewTableNative(name, mathFunction, i)})
	}
	c, err := vm.defineClass(&ClassDef{
		Name:  NewQName("", "Math"),
		Flags: ClassFinal | ClassSealed,
		Init: NewNative("Math", func(a *Activation, this Value, args []Value) (Value, error) {
			return Undefined, a.Throw(CodeMathNotConstructor)
		}),
		Call: func(a *Activation, this Value, args []Value) (Value, error) {
			return Undefined, a.Throw(CodeMathNotFunction)
		},
		ClassTraits: traits,
	}, nil)
	if err != nil {
		return err
	}
	vm.system.Math = c
	return nil
}

func mathFunction(a *Activation, this Value, args []Value, index int) (Value, error) {
	switch index {
	case mathRandom:
		return Number(rand.Float64()), nil
	case mathMax, mathMin:
		return mathExtreme(a, args, index == mathMax)
	}
	x, err := a.ToNumber(arg(args, 0))
	if err != nil {
		return Undefined, err
	}
	var r float64
	switch index {
	case mathAbs:
		r = math.Abs(x)
	case mathAcos:
		r = math.Acos(x)
	case mathAsin:
		r = math.Asin(x)
	case mathAtan:
		r = math.Atan(x)
	case mathCeil:
		r = math.Ceil(x)
	case mathCos:
		r = math.Cos(x)
	case mathExp:
		r = math.Exp(x)
	case mathFloor:
		r = math.Floor(x)
	case mathLog:
		r = math.Log(x)
	case mathRound:
		r = math.Floor(x + 0.5)
	case mathSin:
		r = math.Sin(x)
	case mathSqrt:
		r = math.Sqrt(x)
	case mathTan:
		r = math.Tan(x)
	case mathAtan2, mathPow:
		y, err := a.ToNumber(arg(args, 1))
		if err != nil {
			return Undefined, err
		}
		if index == mathAtan2 {
			r = math.Atan2(x, y)
		} else {
			r = math.Pow(x, y)
		}
	}
	return normalize(r), nil
}

// mathExtreme implements max and min. Any NaN argument wins.
func mathExtreme(a *Activation, args []Value, max bool) (Value, error) {
	r := math.Inf(1)
	if max {
		r = math.Inf(-1)
	}
	for _, v := range args {
		n, err := a.ToNumber(v)
		if err != nil {
			return Undefined, err
		}
		switch {
		case math.IsNaN(n):
			return Number(math.NaN()), nil
		case max && n > r, !max && n < r:
			r = n
		}
	}
	return normalize(r), nil
}
