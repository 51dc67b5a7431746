package avm2

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// Sort options accepted by Array.prototype.sort.
const (
	sortCaseInsensitive    = 1
	sortDescending         = 2
	sortUnique             = 4
	sortReturnIndexedArray = 8
	sortNumeric            = 16
)

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

func (vm *VM) registerArrayPrimitives() error {
	c, err := vm.defineClass(&ClassDef{
		Name: NewQName("", "Array"),
		Alloc: func(vm *VM, c *ClassObject) *Object {
			return alloc(vm, &Object{kind: ObjectArray})
		},
		Init: NewNative("Array", arrayInit),
		Call: arrayCall,
		ClassTraits: []Trait{
			constTrait("CASEINSENSITIVE", "uint", IntConstant(sortCaseInsensitive)),
			constTrait("DESCENDING", "uint", IntConstant(sortDescending)),
			constTrait("UNIQUESORT", "uint", IntConstant(sortUnique)),
			constTrait("RETURNINDEXEDARRAY", "uint", IntConstant(sortReturnIndexedArray)),
			constTrait("NUMERIC", "uint", IntConstant(sortNumeric)),
		},
	}, nil)
	if err != nil {
		return err
	}
	vm.system.Array = c
	vm.setMethods(c.prototype, []nativeMethod{
		{"push", arrayPush},
		{"pop", arrayPop},
		{"shift", arrayShift},
		{"unshift", arrayUnshift},
		{"join", arrayJoin},
		{"toString", arrayToString},
		{"toLocaleString", arrayToString},
		{"slice", arraySlice},
		{"splice", arraySplice},
		{"concat", arrayConcat},
		{"reverse", arrayReverse},
		{"indexOf", arrayIndexOf},
		{"lastIndexOf", arrayLastIndexOf},
		{"sort", arraySort},
		{"forEach", arrayForEach},
		{"map", arrayMap},
		{"filter", arrayFilter},
		{"every", arrayEvery},
		{"some", arraySome},
	})
	return nil
}

// Limits on what one call may materialize. Larger requests abort the
// execution unit with CodeOutOfMemory.
const (
	maxJoinLength = 1 << 26
	maxApplyArgs  = 1 << 20
)

// arrayInit implements new Array(n) and new Array(a, b, ...). A single
// numeric argument is a length and must be a valid uint.
func arrayInit(a *Activation, this Value, args []Value) (Value, error) {
	o := this.AsObject()
	if len(args) == 1 && args[0].IsNumeric() {
		n := args[0].AsNumber()
		if n < 0 || n != math.Trunc(n) || n > math.MaxUint32 {
			return Undefined, a.Throw(CodeArrayIndex, FormatNumber(n))
		}
		o.SetLength(int(n))
		return Undefined, nil
	}
	o.SetLength(0)
	for _, v := range args {
		o.Push(v)
	}
	return Undefined, nil
}

func arrayCall(a *Activation, this Value, args []Value) (Value, error) {
	return a.vm.system.Array.construct(a, args)
}

func thisArray(a *Activation, this Value) (*Object, error) {
	if o := this.AsObject(); o != nil && o.kind == ObjectArray {
		return o, nil
	}
	return nil, a.Throw(CodeTypeCoercion, a.typeName(this), "Array")
}

func arrayPush(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil {
		return Undefined, err
	}
	for _, v := range args {
		o.Push(v)
	}
	return Uint(uint32(o.length)), nil
}

func arrayPop(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil || o.length == 0 {
		return Undefined, err
	}
	v := o.Element(o.length - 1)
	o.SetLength(o.length - 1)
	return v, nil
}

func arrayShift(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil || o.length == 0 {
		return Undefined, err
	}
	v := o.Element(0)
	if len(o.sparse) == 0 && len(o.array) == o.length {
		o.array = slices.Delete(o.array, 0, 1)
		o.length--
		return v, nil
	}
	var next []element
	for _, e := range o.entries() {
		if e.index > 0 {
			next = append(next, element{e.index - 1, e.value})
		}
	}
	o.rebuild(next, o.length-1)
	return v, nil
}

func arrayUnshift(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil {
		return Undefined, err
	}
	next := make([]element, 0, len(args)+len(o.array))
	for i, v := range args {
		next = append(next, element{i, v})
	}
	for _, e := range o.entries() {
		next = append(next, element{e.index + len(args), e.value})
	}
	o.rebuild(next, o.length+len(args))
	return Uint(uint32(o.length)), nil
}

func joinTooLong(n int) error {
	return hostErrorf(CodeOutOfMemory, "join of %d elements exceeds %d characters", n, maxJoinLength)
}

// joinArray renders holes and null or undefined entries as empty
// strings. The cost follows the entries present plus the separators.
func (a *Activation) joinArray(o *Object, sep string) (Value, error) {
	if len(sep) > 0 && o.length > 1 && o.length-1 > maxJoinLength/len(sep) {
		return Undefined, joinTooLong(o.length)
	}
	var b strings.Builder
	pos := 0
	// holes writes the separators of the empty entries before index i.
	holes := func(i int) {
		if from := max(pos, 1); sep != "" && i > from {
			b.WriteString(strings.Repeat(sep, i-from))
		}
	}
	for _, e := range o.entries() {
		holes(e.index)
		if e.index > 0 {
			b.WriteString(sep)
		}
		if !e.value.IsNullish() {
			s, err := a.ToString(e.value)
			if err != nil {
				return Undefined, err
			}
			b.WriteString(s.String())
		}
		if b.Len() > maxJoinLength {
			return Undefined, joinTooLong(o.length)
		}
		pos = e.index + 1
	}
	holes(o.length)
	return Str(b.String()), nil
}

func arrayJoin(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil {
		return Undefined, err
	}
	sep := ","
	if v := arg(args, 0); !v.IsUndefined() {
		s, err := a.ToString(v)
		if err != nil {
			return Undefined, err
		}
		sep = s.String()
	}
	return a.joinArray(o, sep)
}

func arrayToString(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil {
		return Undefined, err
	}
	return a.joinArray(o, ",")
}

func arraySlice(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil {
		return Undefined, err
	}
	n := o.length
	start, err := integerArg(a, args, 0, 0)
	if err != nil {
		return Undefined, err
	}
	end, err := integerArg(a, args, 1, float64(n))
	if err != nil {
		return Undefined, err
	}
	i, j := clampIndex(start, n, true), clampIndex(end, n, true)
	out := a.vm.NewArray(nil)
	if i >= j {
		return ObjectValue(out), nil
	}
	for _, e := range o.entries() {
		if e.index >= i && e.index < j {
			out.SetElement(e.index-i, e.value)
		}
	}
	out.length = j - i
	return ObjectValue(out), nil
}

func arraySplice(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil {
		return Undefined, err
	}
	if len(args) == 0 {
		return Undefined, nil
	}
	n := o.length
	start, err := integerArg(a, args, 0, 0)
	if err != nil {
		return Undefined, err
	}
	count, err := integerArg(a, args, 1, float64(n))
	if err != nil {
		return Undefined, err
	}
	i := clampIndex(start, n, true)
	j := clampIndex(float64(i)+math.Max(count, 0), n, false)
	var items []Value
	if len(args) > 2 {
		items = args[2:]
	}

	removed := a.vm.NewArray(nil)
	var next []element
	for _, e := range o.entries() {
		switch {
		case e.index < i:
			next = append(next, e)
		case e.index < j:
			removed.SetElement(e.index-i, e.value)
		default:
			next = append(next, element{e.index - (j - i) + len(items), e.value})
		}
	}
	removed.length = j - i
	for k, v := range items {
		next = append(next, element{i + k, v})
	}
	slices.SortFunc(next, func(x, y element) int { return cmp.Compare(x.index, y.index) })
	o.rebuild(next, n-(j-i)+len(items))
	return ObjectValue(removed), nil
}

func arrayConcat(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil {
		return Undefined, err
	}
	out := a.vm.NewArray(nil)
	offset := 0
	appendArray := func(src *Object) {
		for _, e := range src.entries() {
			out.SetElement(offset+e.index, e.value)
		}
		offset += src.length
	}
	appendArray(o)
	for _, v := range args {
		if other := v.AsObject(); other != nil && other.kind == ObjectArray {
			appendArray(other)
			continue
		}
		out.SetElement(offset, v)
		offset++
	}
	out.length = offset
	return ObjectValue(out), nil
}

func arrayReverse(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil {
		return Undefined, err
	}
	if len(o.sparse) == 0 && len(o.array) == o.length {
		slices.Reverse(o.array)
		return this, nil
	}
	es := o.entries()
	slices.Reverse(es)
	for i := range es {
		es[i].index = o.length - 1 - es[i].index
	}
	o.rebuild(es, o.length)
	return this, nil
}

func arrayIndexOf(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil {
		return Undefined, err
	}
	from, err := integerArg(a, args, 1, 0)
	if err != nil {
		return Undefined, err
	}
	start := clampIndex(from, o.length, true)
	for _, e := range o.entries() {
		if e.index >= start && StrictEquals(e.value, arg(args, 0)) {
			return Int(int32(e.index)), nil
		}
	}
	return Int(-1), nil
}

func arrayLastIndexOf(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil {
		return Undefined, err
	}
	from, err := integerArg(a, args, 1, float64(o.length-1))
	if err != nil {
		return Undefined, err
	}
	start := min(clampIndex(from, o.length, true), o.length-1)
	es := o.entries()
	for k := len(es) - 1; k >= 0; k-- {
		if es[k].index <= start && StrictEquals(es[k].value, arg(args, 0)) {
			return Int(int32(es[k].index)), nil
		}
	}
	return Int(-1), nil
}

// ---------------------------------------------------------------------------
// Sorting
// ---------------------------------------------------------------------------

// arraySort sorts in place with a comparator function, or with the
// option bits when the first argument is a number.
func arraySort(a *Activation, this Value, args []Value) (Value, error) {
	o, err := thisArray(a, this)
	if err != nil {
		return Undefined, err
	}
	var cmpFn *Object
	opts := 0
	for _, v := range args {
		if f := v.AsObject(); f != nil && f.IsCallable() {
			cmpFn = f
		} else if v.IsNumeric() {
			opts = int(ToUint32(v.AsNumber()))
		}
	}

	var failure error
	compare := func(x, y Value) int {
		if failure != nil {
			return 0
		}
		var c int
		c, failure = a.compareElements(x, y, cmpFn, opts)
		if opts&sortDescending != 0 {
			c = -c
		}
		return c
	}

	es := o.entries()
	slices.SortStableFunc(es, func(x, y element) int {
		return compare(x.value, y.value)
	})
	if failure != nil {
		return Undefined, failure
	}
	if opts&sortUnique != 0 {
		for k := 1; k < len(es); k++ {
			if compare(es[k-1].value, es[k].value) == 0 {
				return Int(0), failure
			}
		}
	}
	if opts&sortReturnIndexedArray != 0 {
		out := make([]Value, len(es))
		for k, e := range es {
			out[k] = Int(int32(e.index))
		}
		return ObjectValue(a.vm.NewArray(out)), nil
	}
	// Entries move to the front; holes collect at the end.
	for k := range es {
		es[k].index = k
	}
	o.rebuild(es, o.length)
	return this, nil
}

// compareElements orders x and y. Undefined always sorts last.
func (a *Activation) compareElements(x, y Value, fn *Object, opts int) (int, error) {
	switch {
	case x.IsUndefined() && y.IsUndefined():
		return 0, nil
	case x.IsUndefined():
		return 1, nil
	case y.IsUndefined():
		return -1, nil
	}
	if fn != nil {
		r, err := fn.Call(a, Null, []Value{x, y})
		if err != nil {
			return 0, err
		}
		n, err := a.ToNumber(r)
		switch {
		case n < 0:
			return -1, err
		case n > 0:
			return 1, err
		}
		return 0, err
	}
	if opts&sortNumeric != 0 {
		nx, err := a.ToNumber(x)
		if err != nil {
			return 0, err
		}
		ny, err := a.ToNumber(y)
		if err != nil {
			return 0, err
		}
		switch {
		case nx < ny:
			return -1, nil
		case nx > ny:
			return 1, nil
		}
		return 0, nil
	}
	sx, err := a.ToString(x)
	if err != nil {
		return 0, err
	}
	sy, err := a.ToString(y)
	if err != nil {
		return 0, err
	}
	if opts&sortCaseInsensitive != 0 {
		sx, sy = sx.ToLower(), sy.ToLower()
	}
	return sx.Compare(sy), nil
}

// ---------------------------------------------------------------------------
// Iteration
// ---------------------------------------------------------------------------

// eachElement calls fn(element, index, array) for every entry present
// when iteration started and still present when reached, stopping when
// visit returns false. Holes are skipped.
func eachElement(a *Activation, this Value, args []Value, visit func(i int, v, r Value) bool) error {
	o, err := thisArray(a, this)
	if err != nil {
		return err
	}
	fn := arg(args, 0).AsObject()
	if fn == nil || !fn.IsCallable() {
		return a.Throw(CodeNotAFunction, a.describe(arg(args, 0)))
	}
	for _, e := range o.entries() {
		if !o.HasElement(e.index) {
			continue
		}
		v := o.Element(e.index)
		r, err := fn.Call(a, arg(args, 1), []Value{v, Int(int32(e.index)), this})
		if err != nil {
			return err
		}
		if !visit(e.index, v, r) {
			break
		}
	}
	return nil
}

func arrayForEach(a *Activation, this Value, args []Value) (Value, error) {
	return Undefined, eachElement(a, this, args, func(int, Value, Value) bool { return true })
}

func arrayMap(a *Activation, this Value, args []Value) (Value, error) {
	out := a.vm.NewArray(nil)
	if o := this.AsObject(); o != nil {
		out.length = o.length
	}
	err := eachElement(a, this, args, func(i int, _, r Value) bool {
		out.SetElement(i, r)
		return true
	})
	if err != nil {
		return Undefined, err
	}
	return ObjectValue(out), nil
}

func arrayFilter(a *Activation, this Value, args []Value) (Value, error) {
	var out []Value
	err := eachElement(a, this, args, func(_ int, v, r Value) bool {
		if r.ToBoolean() {
			out = append(out, v)
		}
		return true
	})
	if err != nil {
		return Undefined, err
	}
	return ObjectValue(a.vm.NewArray(out)), nil
}

func arrayEvery(a *Activation, this Value, args []Value) (Value, error) {
	result := true
	err := eachElement(a, this, args, func(_ int, _, r Value) bool {
		result = r.ToBoolean()
		return result
	})
	return Bool(result), err
}

func arraySome(a *Activation, this Value, args []Value) (Value, error) {
	result := false
	err := eachElement(a, this, args, func(_ int, _, r Value) bool {
		result = r.ToBoolean()
		return !result
	})
	return Bool(result), err
}
