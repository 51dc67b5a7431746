package avm1

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/chazu/avmcore/heap"
	"github.com/chazu/avmcore/wstr"
)

// ---------------------------------------------------------------------------
// Value: the universal operand type
// ---------------------------------------------------------------------------

// ValueKind tags the variant stored in a Value.
type ValueKind uint8

const (
	KindUndefined ValueKind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindObject
	// KindClipRef is a display-object reference resolved lazily by path.
	KindClipRef
)

// Value is an immutable tagged union. The zero value is undefined.
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    *wstr.Str
	o    *Object
	ref  *ClipRef
}

var (
	Undefined = Value{}
	Null      = Value{kind: KindNull}
	True      = Value{kind: KindBool, b: true}
	False     = Value{kind: KindBool}
)

// Bool wraps a boolean.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String wraps an engine string.
func String(s *wstr.Str) Value { return Value{kind: KindString, s: s} }

// Str wraps Go text as a string value.
func Str(s string) Value { return String(wstr.New(s)) }

// ObjectValue wraps an object. A nil object yields null.
func ObjectValue(o *Object) Value {
	if o == nil {
		return Null
	}
	return Value{kind: KindObject, o: o}
}

// ClipRefValue wraps a lazily resolved clip reference.
func ClipRefValue(r *ClipRef) Value { return Value{kind: KindClipRef, ref: r} }

func (v Value) Kind() ValueKind     { return v.kind }
func (v Value) IsUndefined() bool   { return v.kind == KindUndefined }
func (v Value) IsNull() bool        { return v.kind == KindNull }
func (v Value) IsNullish() bool     { return v.kind <= KindNull }
func (v Value) IsObject() bool      { return v.kind == KindObject }
func (v Value) IsString() bool      { return v.kind == KindString }
func (v Value) IsNumber() bool      { return v.kind == KindNumber }
func (v Value) AsBool() bool        { return v.b }
func (v Value) AsNumber() float64   { return v.n }
func (v Value) AsString() *wstr.Str { return v.s }

// AsObject returns the object handle, resolving clip references. Returns
// nil for primitives.
func (v Value) AsObject() *Object {
	switch v.kind {
	case KindObject:
		return v.o
	case KindClipRef:
		if c := v.ref.Resolve(); c != nil {
			return c.object
		}
	}
	return nil
}

// StrictEquals implements ===.
func (v Value) StrictEquals(o Value) bool {
	if v.kind == KindClipRef || o.kind == KindClipRef {
		return v.AsObject() != nil && v.AsObject() == o.AsObject()
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s.Equal(o.s)
	default:
		return v.o == o.o
	}
}

// TypeOf returns the typeof operator's result.
func (v Value) TypeOf() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindClipRef:
		return "movieclip"
	}
	switch v.o.kind {
	case ObjectFunction:
		return "function"
	case ObjectClip:
		return "movieclip"
	}
	return "object"
}

// ToBoolean converts per the document version.
func (v Value) ToBoolean(version uint8) bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return !math.IsNaN(v.n) && v.n != 0
	case KindString:
		if version >= 7 {
			return v.s.Len() > 0
		}
		n := stringToNumber(v.s.String(), version)
		return !math.IsNaN(n) && n != 0
	case KindObject:
		return true
	case KindClipRef:
		return v.ref.Resolve() != nil
	}
	return false
}

// primitiveToNumber converts a non-object value.
func (v Value) primitiveToNumber(version uint8) float64 {
	switch v.kind {
	case KindUndefined:
		if version >= 7 {
			return math.NaN()
		}
		return 0
	case KindNull:
		if version >= 7 {
			return math.NaN()
		}
		return 0
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindNumber:
		return v.n
	case KindString:
		return stringToNumber(v.s.String(), version)
	}
	return math.NaN()
}

// primitiveToString converts a non-object value.
func (v Value) primitiveToString(version uint8) *wstr.Str {
	switch v.kind {
	case KindUndefined:
		if version >= 7 {
			return wstr.New("undefined")
		}
		return wstr.Empty
	case KindNull:
		return wstr.New("null")
	case KindBool:
		if v.b {
			return wstr.New("true")
		}
		return wstr.New("false")
	case KindNumber:
		return wstr.New(FormatNumber(v.n))
	case KindString:
		return v.s
	case KindClipRef:
		return wstr.New(v.ref.Path)
	}
	return wstr.New("[object Object]")
}

// FormatNumber renders a number the way the player prints it.
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
	case n == math.Trunc(n) && math.Abs(n) < 1e15:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', 15, 64)
}

// stringToNumber parses numeric text. Hex literals are accepted from
// version 6 on; anything unparseable is NaN.
func stringToNumber(s string, version uint8) float64 {
	t := strings.TrimLeft(s, " \t\r\n")
	if t == "" {
		return math.NaN()
	}
	if version >= 6 && len(t) > 2 && t[0] == '0' && (t[1] == 'x' || t[1] == 'X') {
		n, err := strconv.ParseUint(t[2:], 16, 32)
		if err != nil {
			return math.NaN()
		}
		return float64(int32(uint32(n)))
	}
	if t == "Infinity" || t == "+Infinity" {
		return math.Inf(1)
	}
	if t == "-Infinity" {
		return math.Inf(-1)
	}
	for _, c := range t {
		if c != 'e' && c != 'E' && unicode.IsLetter(c) {
			return math.NaN()
		}
	}
	n, err := strconv.ParseFloat(t, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return n
		}
		return math.NaN()
	}
	return n
}

// ToInt32 applies the ECMAScript ToInt32 wrap.
func ToInt32(n float64) int32 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return int32(uint32(int64(math.Mod(math.Trunc(n), 4294967296))))
}

// ToUint32 applies the ECMAScript ToUint32 wrap.
func ToUint32(n float64) uint32 {
	return uint32(ToInt32(n))
}

// ---------------------------------------------------------------------------
// Coercions that may run script code
// ---------------------------------------------------------------------------

// Hint selects the preferred primitive conversion.
type Hint uint8

const (
	HintNumber Hint = iota
	HintString
)

// ToPrimitive converts objects by calling valueOf or toString.
func (a *Activation) ToPrimitive(v Value, hint Hint) (Value, error) {
	o := v.AsObject()
	if o == nil {
		return v, nil
	}
	first, second := "valueOf", "toString"
	if hint == HintString {
		first, second = second, first
	}
	for _, name := range []string{first, second} {
		m, err := o.Get(a, name)
		if err != nil {
			return Undefined, err
		}
		if fn := m.AsObject(); fn != nil && fn.kind == ObjectFunction {
			r, err := a.callSpecial(fn, ObjectValue(o), nil)
			if err != nil {
				return Undefined, err
			}
			if r.kind != KindObject {
				return r, nil
			}
		}
	}
	if o.kind == ObjectFunction {
		return Str("[type Function]"), nil
	}
	return Str("[object Object]"), nil
}

// ToNumber converts any value to a number.
func (a *Activation) ToNumber(v Value) (float64, error) {
	if v.AsObject() != nil {
		p, err := a.ToPrimitive(v, HintNumber)
		if err != nil {
			return math.NaN(), err
		}
		return p.primitiveToNumber(a.version), nil
	}
	return v.primitiveToNumber(a.version), nil
}

// ToString converts any value to a string.
func (a *Activation) ToString(v Value) (*wstr.Str, error) {
	if v.kind == KindClipRef {
		return wstr.New(v.ref.Path), nil
	}
	if o := v.AsObject(); o != nil {
		if o.kind == ObjectClip && o.clip != nil {
			return wstr.New(o.clip.Path()), nil
		}
		p, err := a.ToPrimitive(v, HintString)
		if err != nil {
			return wstr.Empty, err
		}
		return p.primitiveToString(a.version), nil
	}
	return v.primitiveToString(a.version), nil
}

// ToObject boxes primitives. Undefined and null yield nil.
func (a *Activation) ToObject(v Value) *Object {
	if o := v.AsObject(); o != nil {
		return o
	}
	vm := a.vm
	switch v.kind {
	case KindString:
		return vm.newBoxed(v, vm.protos.String)
	case KindNumber:
		return vm.newBoxed(v, vm.protos.Number)
	case KindBool:
		return vm.newBoxed(v, vm.protos.Boolean)
	}
	return nil
}

// LooseEquals implements the abstract == comparison.
func (a *Activation) LooseEquals(x, y Value) (bool, error) {
	xo, yo := x.AsObject() != nil, y.AsObject() != nil
	switch {
	case xo && yo:
		return x.AsObject() == y.AsObject(), nil
	case x.IsNullish() && y.IsNullish():
		return true, nil
	case x.IsNullish() || y.IsNullish():
		return false, nil
	case x.kind == y.kind && !xo:
		return x.StrictEquals(y), nil
	case x.kind == KindNumber && y.kind == KindString, x.kind == KindString && y.kind == KindNumber:
		return x.primitiveToNumber(a.version) == y.primitiveToNumber(a.version), nil
	case x.kind == KindBool:
		return a.LooseEquals(Number(x.primitiveToNumber(a.version)), y)
	case y.kind == KindBool:
		return a.LooseEquals(x, Number(y.primitiveToNumber(a.version)))
	case xo:
		p, err := a.ToPrimitive(x, HintNumber)
		if err != nil {
			return false, err
		}
		if p.AsObject() != nil {
			return false, nil
		}
		return a.LooseEquals(p, y)
	case yo:
		p, err := a.ToPrimitive(y, HintNumber)
		if err != nil {
			return false, err
		}
		if p.AsObject() != nil {
			return false, nil
		}
		return a.LooseEquals(x, p)
	}
	return false, nil
}

// LessThan implements the abstract relational comparison. The second
// result is false when either operand is NaN.
func (a *Activation) LessThan(x, y Value) (bool, bool, error) {
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
	nx, ny := px.primitiveToNumber(a.version), py.primitiveToNumber(a.version)
	if math.IsNaN(nx) || math.IsNaN(ny) {
		return false, false, nil
	}
	return nx < ny, true, nil
}

// trace marks the object edge. Clip references are weak and not traced.
func (v Value) trace(t *heap.Tracer) {
	if v.kind == KindObject {
		t.Mark(v.o)
	}
}
