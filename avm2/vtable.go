package avm2

import (
	"fmt"
)

// bindingKind is the resolved form of a trait.
type bindingKind uint8

const (
	bindSlot bindingKind = iota
	bindConst
	bindMethod
	bindAccessor
)

// binding is what a name resolves to in a vtable. Accessors may carry a
// getter, a setter or both; a subclass overriding one half inherits the
// other.
type binding struct {
	kind   bindingKind
	slot   int
	method *Method
	getter *Method
	setter *Method
	final  bool
	// declarer is the table whose traits introduced the member; it
	// supplies the scope and the bound class at call time. Accessor
	// halves may come from different tables.
	declarer    *VTable
	getDeclarer *VTable
	setDeclarer *VTable
}

// slotInfo describes one slot of the fixed layout.
type slotInfo struct {
	name    QName
	typ     QName
	def     *Constant
	isConst bool
}

// VTable is the resolved member table of a class side, an instance
// side, a script global or an activation. Lookup walks the parent
// chain, so a table only stores what its own traits introduced.
type VTable struct {
	parent *VTable
	names  map[QName]*binding
	slots  []slotInfo
	class  *ClassObject
	scope  *ScopeChain
}

// newVTable resolves traits on top of parent. Slot layout is inherited
// first, then own slots follow. Overrides are checked here: an override
// needs the override flag, a non-final base member of the same kind.
func newVTable(parent *VTable, class *ClassObject, traits []Trait) (*VTable, error) {
	vt := &VTable{parent: parent, names: make(map[QName]*binding), class: class}
	if parent != nil {
		vt.slots = append(vt.slots, parent.slots...)
	}
	for i := range traits {
		if err := vt.addTrait(&traits[i]); err != nil {
			return nil, err
		}
	}
	return vt, nil
}

func (vt *VTable) ownerName() string {
	if vt.class != nil {
		return vt.class.Name().String()
	}
	return "global"
}

// overrideError reports an illegal override as the VerifyError code and
// its formatted arguments; the caller raises it once an activation is at
// hand.
type overrideError struct {
	name  QName
	owner string
}

func (e *overrideError) Error() string {
	return CodeIllegalOverride.Message(e.name, e.owner)
}

func (vt *VTable) addTrait(t *Trait) error {
	var inherited *binding
	if vt.parent != nil {
		inherited, _ = vt.parent.lookupQName(t.Name)
	}
	if _, dup := vt.names[t.Name]; dup && t.Kind != TraitGetter && t.Kind != TraitSetter {
		return fmt.Errorf("duplicate trait %s on %s", t.Name, vt.ownerName())
	}

	switch t.Kind {
	case TraitSlot, TraitConst, TraitClass, TraitFunction:
		if inherited != nil {
			return &overrideError{t.Name, vt.ownerName()}
		}
		idx := vt.appendSlot(t)
		kind := bindSlot
		if t.Kind != TraitSlot {
			kind = bindConst
		}
		vt.names[t.Name] = &binding{kind: kind, slot: idx, declarer: vt}
		return nil

	case TraitMethod:
		if err := vt.checkOverride(t, inherited, bindMethod); err != nil {
			return err
		}
		vt.names[t.Name] = &binding{kind: bindMethod, method: t.Method, final: t.Final, declarer: vt}
		return nil

	case TraitGetter, TraitSetter:
		b := vt.names[t.Name]
		if b == nil {
			if err := vt.checkOverride(t, inherited, bindAccessor); err != nil {
				return err
			}
			b = &binding{kind: bindAccessor, final: t.Final, declarer: vt}
			if inherited != nil {
				b.getter, b.getDeclarer = inherited.getter, inherited.getDeclarer
				b.setter, b.setDeclarer = inherited.setter, inherited.setDeclarer
			}
			vt.names[t.Name] = b
		}
		if t.Kind == TraitGetter {
			b.getter, b.getDeclarer = t.Method, vt
		} else {
			b.setter, b.setDeclarer = t.Method, vt
		}
		return nil
	}
	return fmt.Errorf("unsupported trait kind %s", t.Kind)
}

func (vt *VTable) checkOverride(t *Trait, inherited *binding, kind bindingKind) error {
	switch {
	case inherited == nil && !t.Override:
		return nil
	case inherited == nil, !t.Override, inherited.final, inherited.kind != kind:
		return &overrideError{t.Name, vt.ownerName()}
	}
	return nil
}

func (vt *VTable) appendSlot(t *Trait) int {
	info := slotInfo{name: t.Name, typ: t.Type, def: t.Default, isConst: t.Kind != TraitSlot}
	if t.Kind == TraitClass || t.Kind == TraitFunction {
		info.typ = QName{}
	}
	if t.SlotID > 0 {
		idx := t.SlotID - 1
		for len(vt.slots) <= idx {
			vt.slots = append(vt.slots, slotInfo{})
		}
		vt.slots[idx] = info
		return idx
	}
	vt.slots = append(vt.slots, info)
	return len(vt.slots) - 1
}

// lookupQName finds the binding for exactly q.
func (vt *VTable) lookupQName(q QName) (*binding, bool) {
	for v := vt; v != nil; v = v.parent {
		if b, ok := v.names[q]; ok {
			return b, true
		}
	}
	return nil, false
}

// Lookup resolves a multiname: namespaces are tried in order, the first
// qualified name with a binding wins.
func (vt *VTable) Lookup(mn Multiname) (*binding, QName, bool) {
	if vt == nil {
		return nil, QName{}, false
	}
	for _, q := range mn.QNames() {
		if b, ok := vt.lookupQName(q); ok {
			return b, q, true
		}
	}
	return nil, QName{}, false
}

// SlotCount returns the number of slots an instance needs.
func (vt *VTable) SlotCount() int {
	if vt == nil {
		return 0
	}
	return len(vt.slots)
}

// SlotName returns the declared name of slot i (0-based).
func (vt *VTable) SlotName(i int) (QName, bool) {
	if vt == nil || i < 0 || i >= len(vt.slots) {
		return QName{}, false
	}
	return vt.slots[i].name, true
}

func (vt *VTable) slotType(i int) QName {
	if vt == nil || i < 0 || i >= len(vt.slots) {
		return QName{}
	}
	return vt.slots[i].typ
}

// defineConst appends a const slot after construction. Only the
// toplevel global uses this while bootstrap registers built-ins.
func (vt *VTable) defineConst(name QName) int {
	idx := len(vt.slots)
	vt.slots = append(vt.slots, slotInfo{name: name, isConst: true})
	vt.names[name] = &binding{kind: bindConst, slot: idx, declarer: vt}
	return idx
}

// initialSlots returns the default slot values for a new instance.
func (vt *VTable) initialSlots(vm *VM) []Value {
	if vt == nil || len(vt.slots) == 0 {
		return nil
	}
	slots := make([]Value, len(vt.slots))
	for i, s := range vt.slots {
		slots[i] = vm.slotDefault(s)
	}
	return slots
}
