package avm1

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/chazu/avmcore/heap"
)

// ---------------------------------------------------------------------------
// Object: attribute-tagged dynamic object with a mutable prototype link
// ---------------------------------------------------------------------------

// ObjectKind tags the variant of an object. The set is closed.
type ObjectKind uint8

const (
	ObjectPlain ObjectKind = iota
	ObjectFunction
	ObjectArray
	ObjectBoxed
	ObjectSuper
	ObjectArguments
	ObjectClip
)

var objectKindNames = [...]string{"Object", "Function", "Array", "Boxed", "Super", "Arguments", "MovieClip"}

func (k ObjectKind) String() string {
	if int(k) < len(objectKindNames) {
		return objectKindNames[k]
	}
	return "Unknown"
}

// Object is a heap object of dialect 1.
type Object struct {
	kind       ObjectKind
	proto      *Object
	props      PropertyMap
	interfaces []*Object
	sealed     bool

	fn     *Function  // ObjectFunction
	prim   Value      // ObjectBoxed
	clip   *Clip      // ObjectClip
	super  *superLink // ObjectSuper
	length int        // ObjectArray, ObjectArguments
}

// Kind returns the object's variant tag.
func (o *Object) Kind() ObjectKind { return o.kind }

// Proto returns the __proto__ link, or nil.
func (o *Object) Proto() *Object { return o.proto }

// SetProto replaces the __proto__ link.
func (o *Object) SetProto(p *Object) { o.proto = p }

// Function returns the executable of a function object.
func (o *Object) Function() *Function { return o.fn }

// Clip returns the display object backing a clip object.
func (o *Object) Clip() *Clip { return o.clip }

// Primitive returns the wrapped value of a boxed primitive.
func (o *Object) Primitive() Value { return o.prim }

// Length returns the element count of arrays and arguments objects.
func (o *Object) Length() int { return o.length }

// Interfaces returns the interface constructors recorded by implements.
func (o *Object) Interfaces() []*Object { return o.interfaces }

// SetInterfaces records the interfaces implemented by instances of o.
func (o *Object) SetInterfaces(ifaces []*Object) { o.interfaces = ifaces }

// Trace implements heap.Object.
func (o *Object) Trace(t *heap.Tracer) {
	if o.proto != nil {
		t.Mark(o.proto)
	}
	o.props.trace(t)
	for _, i := range o.interfaces {
		t.Mark(i)
	}
	if o.fn != nil {
		o.fn.trace(t)
	}
	o.prim.trace(t)
	if o.clip != nil {
		o.clip.trace(t)
	}
	if o.super != nil {
		t.Mark(o.super.this)
	}
}

// ---------------------------------------------------------------------------
// Attribute management
// ---------------------------------------------------------------------------

// Seal freezes attribute bits: later SetAttributes calls are ignored.
func (o *Object) Seal() { o.sealed = true }

// Sealed reports whether attribute bits are frozen.
func (o *Object) Sealed() bool { return o.sealed }

// Define creates or overwrites an own property without invoking setters.
func (o *Object) Define(name string, v Value, attrs Attribute) {
	if p := o.props.Find(name, true); p != nil {
		p.Value = v
		p.Getter, p.Setter = nil, nil
		if !o.sealed {
			p.Attrs = attrs
		}
		return
	}
	o.props.Insert(&Property{Name: name, Value: v, Attrs: attrs})
	o.noteIndex(name)
}

// AddProperty installs a virtual property backed by getter and setter
// functions. It fails when getter is not a function.
func (o *Object) AddProperty(name string, getter, setter *Object, attrs Attribute) bool {
	if getter == nil || getter.kind != ObjectFunction {
		return false
	}
	if setter != nil && setter.kind != ObjectFunction {
		setter = nil
	}
	if p := o.props.Find(name, true); p != nil {
		p.Value = Undefined
		p.Getter, p.Setter = getter, setter
		return true
	}
	o.props.Insert(&Property{Name: name, Getter: getter, Setter: setter, Attrs: attrs})
	return true
}

// SetAttributes applies ASSetPropFlags semantics to the named own
// properties, or to all of them when names is nil.
func (o *Object) SetAttributes(names []string, set, clear Attribute) {
	if o.sealed {
		return
	}
	apply := func(p *Property) { p.Attrs = (p.Attrs &^ clear) | set }
	if names == nil {
		o.props.Each(apply)
		return
	}
	for _, n := range names {
		if p := o.props.Find(n, false); p != nil {
			apply(p)
		}
	}
}

// OwnProperty returns the own property named name.
func (o *Object) OwnProperty(name string, caseSensitive bool) *Property {
	return o.props.Find(name, caseSensitive)
}

// ---------------------------------------------------------------------------
// Property access
// ---------------------------------------------------------------------------

// getLocal searches o alone: stored properties, then display children,
// then built-in display properties. A nil *Property with found set means
// the value was synthesized.
func (o *Object) getLocal(a *Activation, name string) (*Property, Value, bool) {
	cs := a.caseSensitive()
	if name == "__proto__" {
		return nil, ObjectValue(o.proto), o.proto != nil
	}
	if p := o.props.Find(name, cs); p != nil {
		return p, p.Value, true
	}
	switch o.kind {
	case ObjectArray, ObjectArguments:
		if name == "length" {
			return nil, Number(float64(o.length)), true
		}
	case ObjectBoxed:
		if name == "length" && o.prim.kind == KindString {
			return nil, Number(float64(o.prim.s.Len())), true
		}
	case ObjectClip:
		if v, ok := o.clip.getDisplayProperty(a, name); ok {
			return nil, v, true
		}
	}
	return nil, Undefined, false
}

// Get reads a property, walking the prototype chain and invoking
// virtual getters with o as this.
func (o *Object) Get(a *Activation, name string) (Value, error) {
	if o.kind == ObjectSuper {
		return o.super.get(a, name)
	}
	return o.getWithThis(a, name, o)
}

func (o *Object) getWithThis(a *Activation, name string, this *Object) (Value, error) {
	limit := a.vm.limits.MaxPrototypeDepth
	depth := 0
	for cur := o; cur != nil; cur = cur.proto {
		if depth > limit {
			return Undefined, &HaltError{Reason: PrototypeRecursionLimit}
		}
		depth++
		p, v, found := cur.getLocal(a, name)
		if !found {
			continue
		}
		if p != nil && p.IsVirtual() {
			return a.callSpecial(p.Getter, ObjectValue(this), nil)
		}
		return v, nil
	}
	return Undefined, nil
}

// Set writes a property. Virtual setters anywhere on the prototype
// chain take precedence; read-only own properties are left unchanged.
func (o *Object) Set(a *Activation, name string, v Value) error {
	switch {
	case o.kind == ObjectSuper:
		return o.super.this.Set(a, name, v)
	case name == "__proto__":
		if v.IsObject() || v.IsNull() {
			o.proto = v.AsObject()
		}
		return nil
	case (o.kind == ObjectArray || o.kind == ObjectArguments) && name == "length":
		n, err := a.ToNumber(v)
		if err != nil {
			return err
		}
		o.truncate(int(ToInt32(n)))
		return nil
	case o.kind == ObjectClip:
		if o.clip.setDisplayProperty(a, name, v) {
			return nil
		}
	}

	cs := a.caseSensitive()
	limit := a.vm.limits.MaxPrototypeDepth
	depth := 0
	for cur := o; cur != nil; cur = cur.proto {
		if depth > limit {
			return &HaltError{Reason: PrototypeRecursionLimit}
		}
		depth++
		p := cur.props.Find(name, cs)
		if p == nil {
			continue
		}
		if p.IsVirtual() {
			if p.Setter != nil {
				_, err := a.callSpecial(p.Setter, ObjectValue(o), []Value{v})
				return err
			}
			return nil
		}
		if cur == o {
			if p.Attrs&ReadOnly == 0 {
				p.Value = v
			}
			return nil
		}
		break
	}
	o.props.Insert(&Property{Name: name, Value: v})
	o.noteIndex(name)
	return nil
}

// Delete removes an own property unless it is marked DontDelete.
func (o *Object) Delete(a *Activation, name string) bool {
	cs := a.caseSensitive()
	p := o.props.Find(name, cs)
	if p == nil || p.Attrs&DontDelete != 0 {
		return false
	}
	return o.props.Remove(p.Name, true)
}

// HasOwnProperty reports whether o itself carries name.
func (o *Object) HasOwnProperty(a *Activation, name string) bool {
	_, _, found := o.getLocal(a, name)
	return found
}

// HasProperty reports whether name resolves on o or its prototypes.
func (o *Object) HasProperty(a *Activation, name string) bool {
	if o.kind == ObjectSuper {
		base := o.super.base()
		return base != nil && base.HasProperty(a, name)
	}
	depth := 0
	for cur := o; cur != nil && depth <= a.vm.limits.MaxPrototypeDepth; cur = cur.proto {
		if _, _, found := cur.getLocal(a, name); found {
			return true
		}
		depth++
	}
	return false
}

// Keys returns the enumerable property names of o and its prototypes,
// most recently added first, without duplicates.
func (o *Object) Keys(a *Activation) []string {
	seen := make(map[string]bool)
	var keys []string
	depth := 0
	for cur := o; cur != nil && depth <= a.vm.limits.MaxPrototypeDepth; cur = cur.proto {
		for i := len(cur.props.entries) - 1; i >= 0; i-- {
			p := cur.props.entries[i]
			k := p.Name
			if !a.caseSensitive() {
				k = foldKey(k)
			}
			if seen[k] {
				continue
			}
			seen[k] = true
			if p.Attrs&DontEnum == 0 {
				keys = append(keys, p.Name)
			}
		}
		depth++
	}
	return keys
}

// IsInstanceOf reports whether ctor.prototype is on o's prototype chain
// or ctor is among the interfaces recorded along it.
func (o *Object) IsInstanceOf(a *Activation, ctor *Object) (bool, error) {
	pv, err := ctor.Get(a, "prototype")
	if err != nil {
		return false, err
	}
	target := pv.AsObject()
	depth := 0
	for cur := o.proto; cur != nil; cur = cur.proto {
		if depth > a.vm.limits.MaxPrototypeDepth {
			return false, &HaltError{Reason: PrototypeRecursionLimit}
		}
		depth++
		if target != nil && cur == target {
			return true, nil
		}
		for _, iface := range cur.interfaces {
			if iface == ctor {
				return true, nil
			}
			ip, err := iface.Get(a, "prototype")
			if err != nil {
				return false, err
			}
			if ipo := ip.AsObject(); ipo != nil && ipo == target {
				return true, nil
			}
		}
	}
	return false, nil
}

// ---------------------------------------------------------------------------
// Array-like helpers
// ---------------------------------------------------------------------------

func arrayIndex(name string) (int, bool) {
	if name == "" || len(name) > 10 || (len(name) > 1 && name[0] == '0') {
		return 0, false
	}
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (o *Object) noteIndex(name string) {
	if o.kind != ObjectArray && o.kind != ObjectArguments {
		return
	}
	if i, ok := arrayIndex(name); ok && i >= o.length {
		o.length = i + 1
	}
}

func (o *Object) truncate(n int) {
	n = max(n, 0)
	if n < o.length {
		o.props.RemoveIf(func(p *Property) bool {
			i, ok := arrayIndex(p.Name)
			return ok && i >= n
		})
	}
	o.length = n
}

// Element returns the array element at i.
func (o *Object) Element(i int) Value {
	if p := o.props.Find(strconv.Itoa(i), true); p != nil {
		return p.Value
	}
	return Undefined
}

// SetElement stores an array element, growing length as needed.
func (o *Object) SetElement(i int, v Value) {
	o.Define(strconv.Itoa(i), v, 0)
}

// Push appends to an array-like object.
func (o *Object) Push(v Value) {
	o.SetElement(o.length, v)
}

// element is one entry present in an array. Holes have none.
type element struct {
	index int
	value Value
}

// elements returns the entries below length in index order. The cost
// follows the number of entries, not length.
func (o *Object) elements() []element {
	var out []element
	o.props.Each(func(p *Property) {
		if i, ok := arrayIndex(p.Name); ok && i < o.length {
			out = append(out, element{i, p.Value})
		}
	})
	slices.SortFunc(out, func(x, y element) int { return cmp.Compare(x.index, y.index) })
	return out
}

// rebuild replaces every entry of o and sets its length.
func (o *Object) rebuild(es []element, length int) {
	o.truncate(0)
	for _, e := range es {
		o.SetElement(e.index, e.value)
	}
	o.length = length
}

// maxDenseLength bounds the arrays Elements will materialize.
const maxDenseLength = 1 << 20

// Elements returns all elements in index order, holes as undefined. An
// array longer than the dense bound halts instead of allocating.
func (o *Object) Elements() ([]Value, error) {
	if o.length > maxDenseLength {
		return nil, &HaltError{Reason: ResourceLimit, Err: fmt.Errorf("array of length %d is too long to expand", o.length)}
	}
	out := make([]Value, o.length)
	for _, e := range o.elements() {
		out[e.index] = e.value
	}
	return out, nil
}
