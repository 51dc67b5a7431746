package avm2

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/chazu/avmcore/heap"
)

// ---------------------------------------------------------------------------
// Object
// ---------------------------------------------------------------------------

// ObjectKind is the closed set of heap object variants.
type ObjectKind uint8

const (
	ObjectScript ObjectKind = iota
	ObjectClass
	ObjectFunction
	ObjectNamespace
	ObjectArray
	ObjectPrimitive
	ObjectError
	ObjectActivation
	ObjectGlobal
)

var objectKindNames = [...]string{
	"script", "class", "function", "namespace", "array", "primitive", "error", "activation", "global",
}

func (k ObjectKind) String() string {
	if int(k) < len(objectKindNames) {
		return objectKindNames[k]
	}
	return "object"
}

// Object is a dialect 2 heap object. Fixed members live in slots laid
// out by the vtable; dynamic objects also carry an expando map. The
// variant fields are used according to kind.
type Object struct {
	kind       ObjectKind
	instanceOf *ClassObject
	proto      *Object
	vtable     *VTable
	slots      []Value
	dynamic    *propertyMap

	array     []Value       // dense prefix of an Array
	sparse    map[int]Value // Array entries past the dense prefix
	length    int
	prim      Value
	fn        *Closure
	classData *ClassObject
	ns        Namespace
	errorID   Code
}

// Closure is the callable payload of a function object. Method closures
// extracted from a trait carry their receiver and the class that bound
// the method; newfunction closures carry neither.
type Closure struct {
	method *Method
	scope  *ScopeChain
	this   Value
	bound  bool
	class  *ClassObject
}

func (o *Object) Kind() ObjectKind         { return o.kind }
func (o *Object) InstanceOf() *ClassObject { return o.instanceOf }
func (o *Object) Proto() *Object           { return o.proto }
func (o *Object) ClassData() *ClassObject  { return o.classData }
func (o *Object) Primitive() Value         { return o.prim }
func (o *Object) Namespace() Namespace     { return o.ns }
func (o *Object) IsDynamic() bool          { return o.dynamic != nil }
func (o *Object) IsCallable() bool         { return o.kind == ObjectFunction || o.kind == ObjectClass }
func (o *Object) Length() int              { return o.length }
func (o *Object) Slot(i int) Value         { return o.slots[i] }
func (o *Object) ErrorID() Code            { return o.errorID }

// Method returns the method a function object runs, or nil.
func (o *Object) Method() *Method {
	if o.fn == nil {
		return nil
	}
	return o.fn.method
}

// Trace marks every outgoing edge, including class-side links for class
// objects.
func (o *Object) Trace(t *heap.Tracer) {
	if o.instanceOf != nil {
		t.Mark(o.instanceOf.object)
	}
	if o.proto != nil {
		t.Mark(o.proto)
	}
	for _, v := range o.slots {
		v.trace(t)
	}
	o.dynamic.trace(t)
	for _, v := range o.array {
		v.trace(t)
	}
	for _, v := range o.sparse {
		v.trace(t)
	}
	o.prim.trace(t)
	if o.fn != nil {
		o.fn.this.trace(t)
		o.fn.scope.trace(t)
		if o.fn.class != nil {
			t.Mark(o.fn.class.object)
		}
	}
	if c := o.classData; c != nil {
		c.trace(t)
	}
	if o.vtable != nil {
		o.vtable.scope.trace(t)
	}
}

// ---------------------------------------------------------------------------
// Property access
// ---------------------------------------------------------------------------

// arrayIndex reports whether mn names an array element.
func arrayIndex(mn Multiname) (int, bool) {
	if !mn.HasPublic() || mn.Name == "" || len(mn.Name) > 10 {
		return 0, false
	}
	if mn.Name != "0" && mn.Name[0] == '0' {
		return 0, false
	}
	n, err := strconv.ParseUint(mn.Name, 10, 32)
	if err != nil || n == 4294967295 {
		return 0, false
	}
	return int(n), true
}

// GetProperty reads mn: traits first, then the object's own dynamic
// properties, then the prototype chain. A missing property on a sealed
// object is a ReferenceError; on a dynamic object it reads undefined.
func (o *Object) GetProperty(a *Activation, mn Multiname) (Value, error) {
	return o.getProperty(a, mn, ObjectValue(o))
}

func (o *Object) getProperty(a *Activation, mn Multiname, this Value) (Value, error) {
	if v, found, err := o.getOwn(a, mn, this); found || err != nil {
		return v, err
	}
	if v, found, err := a.getFromProtos(o.proto, mn, this); found || err != nil {
		return v, err
	}
	if o.dynamic == nil {
		return Undefined, a.Throw(CodePropertyNotFound, mn, a.describe(this))
	}
	return Undefined, nil
}

// getFromProtos walks a prototype chain on behalf of this.
func (a *Activation) getFromProtos(proto *Object, mn Multiname, this Value) (Value, bool, error) {
	for p := proto; p != nil; p = p.proto {
		if v, found, err := p.getOwn(a, mn, this); found || err != nil {
			return v, found, err
		}
	}
	return Undefined, false, nil
}

func (o *Object) getOwn(a *Activation, mn Multiname, this Value) (Value, bool, error) {
	if b, q, ok := o.vtable.Lookup(mn); ok {
		switch b.kind {
		case bindSlot, bindConst:
			return o.slots[b.slot], true, nil
		case bindMethod:
			return ObjectValue(a.vm.newMethodClosure(b.method, b.declarer, this)), true, nil
		case bindAccessor:
			if b.getter == nil {
				return Undefined, true, a.Throw(CodeReadWriteOnly, q, a.describe(this))
			}
			v, err := a.vm.callMethod(a, b.getter, b.getDeclarer, this, nil)
			return v, true, err
		}
	}
	if !mn.HasPublic() {
		return Undefined, false, nil
	}
	switch o.kind {
	case ObjectArray:
		if i, ok := arrayIndex(mn); ok {
			if o.HasElement(i) {
				return o.Element(i), true, nil
			}
			return Undefined, false, nil
		}
		if mn.Name == "length" {
			return Uint(uint32(o.length)), true, nil
		}
	case ObjectPrimitive:
		if mn.Name == "length" && o.prim.kind == KindString {
			return Int(int32(o.prim.s.Len())), true, nil
		}
	case ObjectClass:
		if mn.Name == "prototype" {
			return ObjectValue(o.classData.prototype), true, nil
		}
	case ObjectFunction:
		if mn.Name == "length" && o.fn.method != nil {
			return Int(int32(len(o.fn.method.Params))), true, nil
		}
	}
	if v, ok := o.dynamic.get(mn.Name); ok {
		return v, true, nil
	}
	return Undefined, false, nil
}

// lookupDynamic reads an own dynamic property without calling script.
func (o *Object) lookupDynamic(name string) (Value, bool) {
	return o.dynamic.get(name)
}

// SetProperty writes mn. Slots coerce to their declared type; consts,
// methods and getter-only accessors refuse writes; sealed objects refuse
// new properties.
func (o *Object) SetProperty(a *Activation, mn Multiname, v Value) error {
	return o.setProperty(a, mn, v, false)
}

// InitProperty is SetProperty that may also initialize const slots.
func (o *Object) InitProperty(a *Activation, mn Multiname, v Value) error {
	return o.setProperty(a, mn, v, true)
}

func (o *Object) setProperty(a *Activation, mn Multiname, v Value, init bool) error {
	this := ObjectValue(o)
	if b, q, ok := o.vtable.Lookup(mn); ok {
		switch b.kind {
		case bindConst:
			if !init {
				return a.Throw(CodeWriteReadOnly, q, a.describe(this))
			}
			fallthrough
		case bindSlot:
			cv, err := a.coerce(v, o.vtable.slotType(b.slot))
			if err != nil {
				return err
			}
			o.slots[b.slot] = cv
			return nil
		case bindMethod:
			return a.Throw(CodeAssignToMethod, q, a.describe(this))
		case bindAccessor:
			if b.setter == nil {
				return a.Throw(CodeWriteReadOnly, q, a.describe(this))
			}
			_, err := a.vm.callMethod(a, b.setter, b.setDeclarer, this, []Value{v})
			return err
		}
	}
	if o.kind == ObjectArray {
		if i, ok := arrayIndex(mn); ok {
			o.SetElement(i, v)
			return nil
		}
		if mn.HasPublic() && mn.Name == "length" {
			n, err := a.ToUint32(v)
			if err != nil {
				return err
			}
			o.SetLength(int(n))
			return nil
		}
	}
	if o.dynamic == nil || !mn.HasPublic() {
		return a.Throw(CodeCannotCreateProperty, mn, a.describe(this))
	}
	o.dynamic.set(mn.Name, v)
	return nil
}

// DeleteProperty removes a dynamic property or array element. Fixed
// traits cannot be deleted.
func (o *Object) DeleteProperty(a *Activation, mn Multiname) bool {
	if _, _, ok := o.vtable.Lookup(mn); ok {
		return false
	}
	if o.kind == ObjectArray {
		if i, ok := arrayIndex(mn); ok {
			o.deleteElement(i)
			return true
		}
	}
	if !mn.HasPublic() || o.dynamic == nil {
		return false
	}
	o.dynamic.delete(mn.Name)
	return true
}

// HasOwnProperty reports whether o itself has mn.
func (o *Object) HasOwnProperty(mn Multiname) bool {
	if _, _, ok := o.vtable.Lookup(mn); ok {
		return true
	}
	if !mn.HasPublic() {
		return false
	}
	switch o.kind {
	case ObjectArray:
		if i, ok := arrayIndex(mn); ok {
			return o.HasElement(i)
		}
		if mn.Name == "length" {
			return true
		}
	case ObjectClass:
		if mn.Name == "prototype" {
			return true
		}
	}
	return o.dynamic.has(mn.Name)
}

// HasProperty reports whether mn is found on o or its prototype chain.
func (o *Object) HasProperty(mn Multiname) bool {
	for p := o; p != nil; p = p.proto {
		if p.HasOwnProperty(mn) {
			return true
		}
	}
	return false
}

// hasTrait reports a static binding only; scope lookup on class
// instances uses this.
func (o *Object) hasTrait(mn Multiname) bool {
	_, _, ok := o.vtable.Lookup(mn)
	return ok
}

// EnumerableNames lists what for-in visits on o: array indices, then
// enumerable dynamic properties in creation order.
func (o *Object) EnumerableNames() []string {
	var names []string
	if o.kind == ObjectArray {
		for _, e := range o.entries() {
			names = append(names, strconv.Itoa(e.index))
		}
	}
	return append(names, o.dynamic.enumerable()...)
}

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

// maxDenseGap is how far past the dense prefix a write may land and
// still extend it. Farther writes go to the sparse map.
const maxDenseGap = 1024

// Element returns the entry at i, or undefined for a hole.
func (o *Object) Element(i int) Value {
	if i >= 0 && i < len(o.array) {
		return o.array[i]
	}
	if v, ok := o.sparse[i]; ok {
		return v
	}
	return Undefined
}

// HasElement reports whether i holds an entry.
func (o *Object) HasElement(i int) bool {
	if i >= 0 && i < len(o.array) {
		return true
	}
	_, ok := o.sparse[i]
	return ok
}

// SetElement stores v at i and grows length past it.
func (o *Object) SetElement(i int, v Value) {
	switch {
	case i < 0:
		return
	case i < len(o.array):
		o.array[i] = v
	case i-len(o.array) <= maxDenseGap:
		for len(o.array) < i {
			o.array = append(o.array, o.takeSparse(len(o.array)))
		}
		delete(o.sparse, i)
		o.array = append(o.array, v)
		for len(o.sparse) > 0 {
			next, ok := o.sparse[len(o.array)]
			if !ok {
				break
			}
			delete(o.sparse, len(o.array))
			o.array = append(o.array, next)
		}
	default:
		if o.sparse == nil {
			o.sparse = make(map[int]Value)
		}
		o.sparse[i] = v
	}
	o.length = max(o.length, i+1)
}

func (o *Object) takeSparse(i int) Value {
	v, ok := o.sparse[i]
	if !ok {
		return Undefined
	}
	delete(o.sparse, i)
	return v
}

func (o *Object) deleteElement(i int) {
	if i >= 0 && i < len(o.array) {
		o.array[i] = Undefined
		return
	}
	delete(o.sparse, i)
}

func (o *Object) Push(v Value) { o.SetElement(o.length, v) }

// SetLength truncates or extends the array. Extending only moves length;
// no storage is allocated for the holes.
func (o *Object) SetLength(n int) {
	n = max(n, 0)
	if n < len(o.array) {
		clear(o.array[n:])
		o.array = o.array[:n]
	}
	for i := range o.sparse {
		if i >= n {
			delete(o.sparse, i)
		}
	}
	o.length = n
}

// element is one entry present in an array.
type element struct {
	index int
	value Value
}

// entries returns the present entries in index order. The cost follows
// the number of entries, not length.
func (o *Object) entries() []element {
	out := make([]element, 0, len(o.array)+len(o.sparse))
	for i, v := range o.array {
		out = append(out, element{i, v})
	}
	tail := out[len(o.array):]
	for i, v := range o.sparse {
		tail = append(tail, element{i, v})
	}
	slices.SortFunc(tail, func(x, y element) int { return cmp.Compare(x.index, y.index) })
	return out[:len(o.array)+len(tail)]
}

// rebuild replaces every entry and sets length.
func (o *Object) rebuild(es []element, length int) {
	clear(o.array)
	o.array, o.sparse, o.length = o.array[:0], nil, 0
	for _, e := range es {
		o.SetElement(e.index, e.value)
	}
	o.length = length
}

// ---------------------------------------------------------------------------
// Call and construct
// ---------------------------------------------------------------------------

// Call invokes o. Functions run their method; classes apply their call
// behaviour, usually a type conversion.
func (o *Object) Call(a *Activation, this Value, args []Value) (Value, error) {
	switch o.kind {
	case ObjectFunction:
		return a.vm.callClosure(a, o, this, args)
	case ObjectClass:
		return o.classData.call(a, args)
	}
	return Undefined, a.Throw(CodeNotAFunction, a.describe(ObjectValue(o)))
}

// Construct implements new o(args...).
func (o *Object) Construct(a *Activation, args []Value) (Value, error) {
	switch o.kind {
	case ObjectClass:
		return o.classData.construct(a, args)
	case ObjectFunction:
		if o.fn.bound {
			return Undefined, a.Throw(CodeMethodNotConstructor, o.fn.method.displayName())
		}
		if m := o.fn.method; m != nil && m.IsNative() {
			return Undefined, a.Throw(CodeNotAConstructor, m.displayName())
		}
		pv, err := o.GetProperty(a, PublicName("prototype"))
		if err != nil {
			return Undefined, err
		}
		proto := pv.AsObject()
		if proto == nil {
			proto = a.vm.system.Object.prototype
		}
		obj := a.vm.NewObject(proto)
		r, err := a.vm.callClosure(a, o, ObjectValue(obj), args)
		if err != nil {
			return Undefined, err
		}
		if r.kind == KindObject {
			return r, nil
		}
		return ObjectValue(obj), nil
	}
	return Undefined, a.Throw(CodeNotAConstructor, a.describe(ObjectValue(o)))
}
