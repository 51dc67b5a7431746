package avm2

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/chazu/avmcore/heap"
	"github.com/chazu/avmcore/wstr"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindInt
	KindString
	KindObject
)

// Value is the operand type of dialect 2. Integers that fit in int32 are
// kept unboxed as KindInt; everything else numeric is a float64.
type Value struct {
	kind Kind
	b    bool
	i    int32
	n    float64
	s    *wstr.Str
	o    *Object
}

var (
	Undefined = Value{kind: KindUndefined}
	Null      = Value{kind: KindNull}
	True      = Value{kind: KindBool, b: true}
	False     = Value{kind: KindBool}
)

func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Number(n float64) Value     { return Value{kind: KindNumber, n: n} }
func Int(i int32) Value          { return Value{kind: KindInt, i: i} }
func StrValue(s *wstr.Str) Value { return Value{kind: KindString, s: s} }
func Str(s string) Value         { return Value{kind: KindString, s: wstr.New(s)} }

// Uint returns u as an int when it fits, a number otherwise.
func Uint(u uint32) Value {
	if u <= math.MaxInt32 {
		return Int(int32(u))
	}
	return Number(float64(u))
}

// ObjectValue wraps o; a nil object is null.
func ObjectValue(o *Object) Value {
	if o == nil {
		return Null
	}
	return Value{kind: KindObject, o: o}
}

func (v Value) Kind() Kind          { return v.kind }
func (v Value) IsUndefined() bool   { return v.kind == KindUndefined }
func (v Value) IsNull() bool        { return v.kind == KindNull }
func (v Value) IsNullish() bool     { return v.kind <= KindNull }
func (v Value) IsNumeric() bool     { return v.kind == KindNumber || v.kind == KindInt }
func (v Value) IsString() bool      { return v.kind == KindString }
func (v Value) AsObject() *Object   { return v.o }
func (v Value) AsString() *wstr.Str { return v.s }

// AsNumber returns the numeric payload; non-numeric values yield NaN.
func (v Value) AsNumber() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindNumber:
		return v.n
	}
	return math.NaN()
}

func (v Value) trace(t *heap.Tracer) {
	if v.o != nil {
		t.Mark(v.o)
	}
}

// TypeOf implements the typeof operator.
func (v Value) TypeOf() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindBool:
		return "boolean"
	case KindNumber, KindInt:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		if v.o.kind == ObjectFunction {
			return "function"
		}
	}
	return "object"
}

// ToBoolean never fails and never calls script.
func (v Value) ToBoolean() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindString:
		return v.s.Len() > 0
	case KindObject:
		return true
	}
	return false
}

// normalize folds integral numbers back to KindInt.
func normalize(n float64) Value {
	if n == math.Trunc(n) && n >= math.MinInt32 && n <= math.MaxInt32 && !(n == 0 && math.Signbit(n)) {
		return Int(int32(n))
	}
	return Number(n)
}

// ---------------------------------------------------------------------------
// Primitive conversions
// ---------------------------------------------------------------------------

func (v Value) primitiveToNumber() float64 {
	switch v.kind {
	case KindUndefined:
		return math.NaN()
	case KindNull:
		return 0
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindInt:
		return float64(v.i)
	case KindNumber:
		return v.n
	case KindString:
		return stringToNumber(v.s.String())
	}
	return math.NaN()
}

func (v Value) primitiveToString() *wstr.Str {
	switch v.kind {
	case KindUndefined:
		return wstr.New("undefined")
	case KindNull:
		return wstr.New("null")
	case KindBool:
		if v.b {
			return wstr.New("true")
		}
		return wstr.New("false")
	case KindInt:
		return wstr.New(strconv.Itoa(int(v.i)))
	case KindNumber:
		return wstr.New(FormatNumber(v.n))
	case KindString:
		return v.s
	}
	return wstr.New("[object Object]")
}

// stringToNumber parses the numeric grammar of the language: optional
// whitespace, decimal or 0x-hex, Infinity. The empty string is zero.
func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	neg := false
	body := s
	if body[0] == '-' || body[0] == '+' {
		neg = body[0] == '-'
		body = body[1:]
	}
	sign := 1.0
	if neg {
		sign = -1
	}
	if body == "Infinity" {
		return sign * math.Inf(1)
	}
	if len(body) > 2 && body[0] == '0' && (body[1] == 'x' || body[1] == 'X') {
		u, err := strconv.ParseUint(body[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return sign * float64(u)
	}
	for _, r := range body {
		if unicode.IsLetter(r) && r != 'e' && r != 'E' {
			return math.NaN()
		}
	}
	n, err := strconv.ParseFloat(body, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return sign * n
		}
		return math.NaN()
	}
	return sign * n
}

// FormatNumber renders a number the way Number.prototype.toString does.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	}
	abs := math.Abs(n)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(n, 'e', -1, 64)
		// Go prints e+06 style exponents; trim the zero padding.
		if i := strings.IndexByte(s, 'e'); i >= 0 {
			mant, exp := s[:i], s[i+1:]
			sign := exp[0]
			exp = strings.TrimLeft(exp[1:], "0")
			return mant + "e" + string(sign) + exp
		}
		return s
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ToInt32 wraps a number modulo 2^32 into the signed range.
func ToInt32(n float64) int32 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return int32(uint32(int64(math.Mod(math.Trunc(n), 4294967296))))
}

// ToUint32 wraps a number modulo 2^32.
func ToUint32(n float64) uint32 {
	return uint32(ToInt32(n))
}

// StrictEquals implements ===.
func StrictEquals(x, y Value) bool {
	if x.IsNumeric() && y.IsNumeric() {
		return x.AsNumber() == y.AsNumber()
	}
	if x.kind != y.kind {
		return false
	}
	switch x.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return x.b == y.b
	case KindString:
		return x.s.Equal(y.s)
	case KindObject:
		return x.o == y.o
	}
	return false
}

// ---------------------------------------------------------------------------
// Conversions that may call script
// ---------------------------------------------------------------------------

// Hint selects the preferred primitive for ToPrimitive.
type Hint uint8

const (
	HintNumber Hint = iota
	HintString
)

// ToPrimitive calls valueOf/toString on objects in hint order.
func (a *Activation) ToPrimitive(v Value, hint Hint) (Value, error) {
	o := v.AsObject()
	if o == nil {
		return v, nil
	}
	switch o.kind {
	case ObjectPrimitive:
		return o.prim, nil
	case ObjectClass:
		return Str("[class " + o.classData.Name().Name + "]"), nil
	}
	order := []string{"valueOf", "toString"}
	if hint == HintString {
		order = []string{"toString", "valueOf"}
	}
	for _, name := range order {
		fn, err := o.GetProperty(a, PublicName(name))
		if err != nil {
			return Undefined, err
		}
		if f := fn.AsObject(); f != nil && f.IsCallable() {
			r, err := f.Call(a, v, nil)
			if err != nil {
				return Undefined, err
			}
			if r.kind != KindObject {
				return r, nil
			}
		}
	}
	return Undefined, a.Throw(CodeCannotConvertToPrimitive, a.describe(v))
}

// ToNumber converts any value to a number.
func (a *Activation) ToNumber(v Value) (float64, error) {
	if v.kind == KindObject {
		p, err := a.ToPrimitive(v, HintNumber)
		if err != nil {
			return math.NaN(), err
		}
		return p.primitiveToNumber(), nil
	}
	return v.primitiveToNumber(), nil
}

// ToString converts any value to a string.
func (a *Activation) ToString(v Value) (*wstr.Str, error) {
	if v.kind == KindObject {
		p, err := a.ToPrimitive(v, HintString)
		if err != nil {
			return wstr.Empty, err
		}
		return p.primitiveToString(), nil
	}
	return v.primitiveToString(), nil
}

func (a *Activation) ToInt32(v Value) (int32, error) {
	if v.kind == KindInt {
		return v.i, nil
	}
	n, err := a.ToNumber(v)
	return ToInt32(n), err
}

func (a *Activation) ToUint32(v Value) (uint32, error) {
	n, err := a.ToNumber(v)
	return ToUint32(n), err
}

// LooseEquals implements ==.
func (a *Activation) LooseEquals(x, y Value) (bool, error) {
	switch {
	case x.kind == y.kind || x.IsNumeric() && y.IsNumeric():
		return StrictEquals(x, y), nil
	case x.IsNullish() && y.IsNullish():
		return true, nil
	case x.IsNullish() || y.IsNullish():
		return false, nil
	case x.IsNumeric() && y.kind == KindString:
		return x.AsNumber() == y.primitiveToNumber(), nil
	case x.kind == KindString && y.IsNumeric():
		return x.primitiveToNumber() == y.AsNumber(), nil
	case x.kind == KindBool:
		return a.LooseEquals(Number(x.primitiveToNumber()), y)
	case y.kind == KindBool:
		return a.LooseEquals(x, Number(y.primitiveToNumber()))
	case x.kind == KindObject:
		p, err := a.ToPrimitive(x, HintNumber)
		if err != nil {
			return false, err
		}
		return a.LooseEquals(p, y)
	case y.kind == KindObject:
		p, err := a.ToPrimitive(y, HintNumber)
		if err != nil {
			return false, err
		}
		return a.LooseEquals(x, p)
	}
	return false, nil
}

// lessThan implements the abstract relational comparison. The second
// result is false when either side is NaN.
func (a *Activation) lessThan(x, y Value) (bool, bool, error) {
	px, err := a.ToPrimitive(x, HintNumber)
	if err != nil {
		return false, false, err
	}
	py, err := a.ToPrimitive(y, HintNumber)
	if err != nil {
		return false, false, err
	}
	if px.kind == KindString && py.kind == KindString {
		return px.s.Compare(py.s) < 0, true, nil
	}
	nx, ny := px.primitiveToNumber(), py.primitiveToNumber()
	if math.IsNaN(nx) || math.IsNaN(ny) {
		return false, false, nil
	}
	return nx < ny, true, nil
}

// describe renders a value for error messages without calling script.
func (a *Activation) describe(v Value) string {
	if o := v.AsObject(); o != nil {
		switch {
		case o.kind == ObjectClass:
			return o.classData.Name().String()
		case o.kind == ObjectFunction:
			return "Function-" + o.fn.method.displayName()
		case o.instanceOf != nil:
			return o.instanceOf.Name().String()
		}
		return "Object"
	}
	return v.primitiveToString().String()
}

// typeName renders the class name of a value for coercion errors.
func (a *Activation) typeName(v Value) string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "Boolean"
	case KindInt, KindNumber:
		return "Number"
	case KindString:
		return "String"
	}
	return a.describe(v)
}
