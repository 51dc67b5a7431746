package avm1

import (
	"fmt"
	"slices"

	"github.com/chazu/avmcore/wstr"
)

// ---------------------------------------------------------------------------
// Array Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerArrayPrimitives() {
	p := vm.protos.Array
	newArray := func(a *Activation, _ *Object, args []Value) (Value, error) {
		if len(args) == 1 && args[0].IsNumber() {
			arr := a.vm.NewArray(nil)
			if n := int(ToInt32(args[0].AsNumber())); n > 0 {
				arr.length = n
			}
			return ObjectValue(arr), nil
		}
		return ObjectValue(a.vm.NewArray(args)), nil
	}
	vm.defineClass("Array", p, newArray, newArray)

	// push - append elements, return new length
	vm.method(p, "push", func(a *Activation, this *Object, args []Value) (Value, error) {
		if !isArrayLike(this) {
			return Undefined, nil
		}
		for _, v := range args {
			this.Push(v)
		}
		return Number(float64(this.length)), nil
	})

	// pop - remove and return the last element
	vm.method(p, "pop", func(a *Activation, this *Object, _ []Value) (Value, error) {
		if !isArrayLike(this) || this.length == 0 {
			return Undefined, nil
		}
		v := this.Element(this.length - 1)
		this.truncate(this.length - 1)
		return v, nil
	})

	// shift - remove and return the first element
	vm.method(p, "shift", func(a *Activation, this *Object, _ []Value) (Value, error) {
		if !isArrayLike(this) || this.length == 0 {
			return Undefined, nil
		}
		first := this.Element(0)
		var next []element
		for _, e := range this.elements() {
			if e.index > 0 {
				next = append(next, element{e.index - 1, e.value})
			}
		}
		this.rebuild(next, this.length-1)
		return first, nil
	})

	// unshift - prepend elements, return new length
	vm.method(p, "unshift", func(a *Activation, this *Object, args []Value) (Value, error) {
		if !isArrayLike(this) {
			return Undefined, nil
		}
		next := make([]element, 0, len(args))
		for i, v := range args {
			next = append(next, element{i, v})
		}
		for _, e := range this.elements() {
			next = append(next, element{e.index + len(args), e.value})
		}
		this.rebuild(next, this.length+len(args))
		return Number(float64(this.length)), nil
	})

	// reverse - reverse in place
	vm.method(p, "reverse", func(a *Activation, this *Object, _ []Value) (Value, error) {
		if !isArrayLike(this) {
			return Undefined, nil
		}
		es := this.elements()
		slices.Reverse(es)
		for i := range es {
			es[i].index = this.length - 1 - es[i].index
		}
		this.rebuild(es, this.length)
		return ObjectValue(this), nil
	})

	join := func(a *Activation, this *Object, args []Value) (Value, error) {
		if !isArrayLike(this) {
			return String(wstr.Empty), nil
		}
		sep := wstr.New(",")
		if s := arg(args, 0); !s.IsUndefined() {
			var err error
			if sep, err = a.ToString(s); err != nil {
				return Undefined, err
			}
		}
		hole, err := a.ToString(Undefined)
		if err != nil {
			return Undefined, err
		}
		es := this.elements()
		if fill := max(this.length-1, 0)*sep.Len() + (this.length-len(es))*hole.Len(); fill > maxJoinLength {
			return Undefined, joinTooLong()
		}

		var b wstr.Builder
		next := 0
		// Holes cost nothing to skip when they render as nothing.
		emptyHoles := sep.Len() == 0 && hole.Len() == 0
		for _, e := range es {
			if emptyHoles {
				next = e.index
			}
			for ; next < e.index; next++ {
				if next > 0 {
					b.Append(sep)
				}
				b.Append(hole)
			}
			s, err := a.ToString(e.value)
			if err != nil {
				return Undefined, err
			}
			if next > 0 {
				b.Append(sep)
			}
			b.Append(s)
			if b.Len() > maxJoinLength {
				return Undefined, joinTooLong()
			}
			next++
		}
		if !emptyHoles {
			for ; next < this.length; next++ {
				if next > 0 {
					b.Append(sep)
				}
				b.Append(hole)
			}
		}
		return String(b.Str()), nil
	}
	vm.method(p, "join", join)
	vm.method(p, "toString", func(a *Activation, this *Object, _ []Value) (Value, error) {
		return join(a, this, nil)
	})

	// slice - copy [start, end), negative indices count from the end
	vm.method(p, "slice", func(a *Activation, this *Object, args []Value) (Value, error) {
		if !isArrayLike(this) {
			return Undefined, nil
		}
		start, err := relativeIndex(a, arg(args, 0), this.length, 0)
		if err != nil {
			return Undefined, err
		}
		end, err := relativeIndex(a, arg(args, 1), this.length, this.length)
		if err != nil {
			return Undefined, err
		}
		end = max(start, end)
		out := a.vm.NewArray(nil)
		for _, e := range this.elements() {
			if e.index >= start && e.index < end {
				out.SetElement(e.index-start, e.value)
			}
		}
		out.length = end - start
		return ObjectValue(out), nil
	})

	// splice - remove count elements at start and insert the rest
	vm.method(p, "splice", func(a *Activation, this *Object, args []Value) (Value, error) {
		if !isArrayLike(this) || len(args) == 0 {
			return Undefined, nil
		}
		n := this.length
		start, err := relativeIndex(a, args[0], n, 0)
		if err != nil {
			return Undefined, err
		}
		count := n - start
		if len(args) > 1 {
			c, err := a.ToNumber(args[1])
			if err != nil {
				return Undefined, err
			}
			count = min(max(int(ToInt32(c)), 0), n-start)
		}
		var insert []Value
		if len(args) > 2 {
			insert = args[2:]
		}

		removed := a.vm.NewArray(nil)
		var next []element
		for _, e := range this.elements() {
			switch {
			case e.index < start:
				next = append(next, e)
			case e.index < start+count:
				removed.SetElement(e.index-start, e.value)
			default:
				next = append(next, element{e.index - count + len(insert), e.value})
			}
		}
		removed.length = count
		for i, v := range insert {
			next = append(next, element{start + i, v})
		}
		this.rebuild(next, n-count+len(insert))
		return ObjectValue(removed), nil
	})

	// concat - new array of this followed by the arguments, arrays flattened one level
	vm.method(p, "concat", func(a *Activation, this *Object, args []Value) (Value, error) {
		out := a.vm.NewArray(nil)
		offset := 0
		appendArray := func(o *Object) {
			for _, e := range o.elements() {
				out.SetElement(offset+e.index, e.value)
			}
			offset += o.length
		}
		if isArrayLike(this) {
			appendArray(this)
		}
		for _, v := range args {
			if o := v.AsObject(); o != nil && o.kind == ObjectArray {
				appendArray(o)
			} else {
				out.SetElement(offset, v)
				offset++
			}
		}
		out.length = offset
		return ObjectValue(out), nil
	})
}

// maxJoinLength bounds the code units join will produce.
const maxJoinLength = 1 << 26

func joinTooLong() error {
	return &HaltError{Reason: ResourceLimit, Err: fmt.Errorf("join result exceeds %d code units", maxJoinLength)}
}

func isArrayLike(o *Object) bool {
	return o != nil && (o.kind == ObjectArray || o.kind == ObjectArguments)
}

// relativeIndex clamps an index argument into [0, n]; negative values
// count back from n and undefined yields def.
func relativeIndex(a *Activation, v Value, n, def int) (int, error) {
	if v.IsUndefined() {
		return def, nil
	}
	f, err := a.ToNumber(v)
	if err != nil {
		return 0, err
	}
	i := int(ToInt32(f))
	if i < 0 {
		i += n
	}
	return min(max(i, 0), n), nil
}
