package avm2

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// UnitBuilder: helper for assembling translation units
// ---------------------------------------------------------------------------

// UnitBuilder assembles a translation unit. Pool entries are
// deduplicated; methods, classes and scripts are appended in order.
// Hosts and tests use it to produce units without a compiler.
type UnitBuilder struct {
	unit    *TranslationUnit
	strings map[string]int
	ints    map[int32]int
	uints   map[uint32]int
	doubles map[uint64]int
	nss     map[Namespace]int
	names   map[string]int
}

// NewUnitBuilder creates an empty unit named name.
func NewUnitBuilder(name string) *UnitBuilder {
	return &UnitBuilder{
		unit:    &TranslationUnit{Name: name},
		strings: make(map[string]int),
		ints:    make(map[int32]int),
		uints:   make(map[uint32]int),
		doubles: make(map[uint64]int),
		nss:     make(map[Namespace]int),
		names:   make(map[string]int),
	}
}

// Unit returns the assembled unit.
func (u *UnitBuilder) Unit() *TranslationUnit { return u.unit }

func (u *UnitBuilder) String(s string) int {
	if i, ok := u.strings[s]; ok {
		return i
	}
	u.unit.Strings = append(u.unit.Strings, s)
	u.strings[s] = len(u.unit.Strings) - 1
	return u.strings[s]
}

func (u *UnitBuilder) Int(v int32) int {
	if i, ok := u.ints[v]; ok {
		return i
	}
	u.unit.Ints = append(u.unit.Ints, v)
	u.ints[v] = len(u.unit.Ints) - 1
	return u.ints[v]
}

func (u *UnitBuilder) Uint(v uint32) int {
	if i, ok := u.uints[v]; ok {
		return i
	}
	u.unit.Uints = append(u.unit.Uints, v)
	u.uints[v] = len(u.unit.Uints) - 1
	return u.uints[v]
}

func (u *UnitBuilder) Double(v float64) int {
	bits := math.Float64bits(v)
	if i, ok := u.doubles[bits]; ok {
		return i
	}
	u.unit.Doubles = append(u.unit.Doubles, v)
	u.doubles[bits] = len(u.unit.Doubles) - 1
	return u.doubles[bits]
}

func (u *UnitBuilder) Namespace(ns Namespace) int {
	if i, ok := u.nss[ns]; ok {
		return i
	}
	u.unit.Namespaces = append(u.unit.Namespaces, ns)
	u.nss[ns] = len(u.unit.Namespaces) - 1
	return u.nss[ns]
}

// Name interns a multiname.
func (u *UnitBuilder) Name(mn Multiname) int {
	key := fmt.Sprintf("%d|%s|%v|%t", mn.Kind, mn.Name, mn.NS, mn.Attribute)
	if i, ok := u.names[key]; ok {
		return i
	}
	u.unit.Multinames = append(u.unit.Multinames, mn)
	u.names[key] = len(u.unit.Multinames) - 1
	return u.names[key]
}

// QName interns the multiname for exactly q.
func (u *UnitBuilder) QName(q QName) int { return u.Name(q.Multiname()) }

// Public interns name in the public namespace.
func (u *UnitBuilder) Public(name string) int { return u.Name(PublicName(name)) }

// RuntimeName interns a multiname whose local name is popped at run
// time, looked up in the public namespace.
func (u *UnitBuilder) RuntimeName() int {
	return u.Name(Multiname{Kind: MultinameMultiL, NS: []Namespace{Public}})
}

// Method appends m and returns its index.
func (u *UnitBuilder) Method(m *Method) int {
	u.unit.Methods = append(u.unit.Methods, m)
	return len(u.unit.Methods) - 1
}

// Class appends def with its initializers and returns its index.
func (u *UnitBuilder) Class(def *ClassDef, init, classInit *Method) int {
	def.InitID = u.Method(init)
	def.ClassInitID = u.Method(classInit)
	u.unit.Classes = append(u.unit.Classes, def)
	return len(u.unit.Classes) - 1
}

// Script appends a script with the given initializer and global traits.
func (u *UnitBuilder) Script(init *Method, traits ...Trait) int {
	u.unit.Scripts = append(u.unit.Scripts, &ScriptDef{InitID: u.Method(init), Traits: traits})
	return len(u.unit.Scripts) - 1
}

// ---------------------------------------------------------------------------
// CodeBuilder: helper for assembling method bodies
// ---------------------------------------------------------------------------

// CodeBuilder assembles the code of one method body.
type CodeBuilder struct {
	code     []byte
	handlers []pendingHandler
}

type pendingHandler struct {
	from, to, target *Label
	typ, varName     QName
}

// NewCodeBuilder creates an empty body builder.
func NewCodeBuilder() *CodeBuilder {
	return &CodeBuilder{code: make([]byte, 0, 64)}
}

// Len returns the current length.
func (b *CodeBuilder) Len() int { return len(b.code) }

// Emit appends op followed by u30 operands.
func (b *CodeBuilder) Emit(op Op, operands ...int) {
	b.code = append(b.code, byte(op))
	for _, v := range operands {
		b.u30(v)
	}
}

// Ops appends operand-less instructions.
func (b *CodeBuilder) Ops(ops ...Op) {
	for _, op := range ops {
		b.code = append(b.code, byte(op))
	}
}

func (b *CodeBuilder) u30(v int) {
	x := uint32(v) & 0x3fffffff
	for {
		c := byte(x & 0x7f)
		x >>= 7
		if x == 0 {
			b.code = append(b.code, c)
			return
		}
		b.code = append(b.code, c|0x80)
	}
}

func (b *CodeBuilder) s24(v int) {
	b.code = append(b.code, byte(v), byte(v>>8), byte(v>>16))
}

// PushInt pushes i using the shortest encoding.
func (b *CodeBuilder) PushInt(u *UnitBuilder, i int32) {
	switch {
	case i >= math.MinInt8 && i <= math.MaxInt8:
		b.code = append(b.code, byte(OpPushByte), byte(int8(i)))
	case i >= math.MinInt16 && i <= math.MaxInt16:
		b.Emit(OpPushShort, int(uint16(int16(i))))
	default:
		b.Emit(OpPushInt, u.Int(i))
	}
}

func (b *CodeBuilder) PushString(u *UnitBuilder, s string)  { b.Emit(OpPushString, u.String(s)) }
func (b *CodeBuilder) PushDouble(u *UnitBuilder, n float64) { b.Emit(OpPushDouble, u.Double(n)) }

// GetLocal reads register n, using the short forms for 0-3.
func (b *CodeBuilder) GetLocal(n int) {
	if n < 4 {
		b.Ops(OpGetLocal0 + Op(n))
		return
	}
	b.Emit(OpGetLocal, n)
}

// SetLocal writes register n, using the short forms for 0-3.
func (b *CodeBuilder) SetLocal(n int) {
	if n < 4 {
		b.Ops(OpSetLocal0 + Op(n))
		return
	}
	b.Emit(OpSetLocal, n)
}

// GetScopeObject pushes scope stack entry i.
func (b *CodeBuilder) GetScopeObject(i int) {
	b.code = append(b.code, byte(OpGetScopeObject), byte(i))
}

// ---------------------------------------------------------------------------
// Labels and branches
// ---------------------------------------------------------------------------

// Label is a code position, possibly not yet placed.
type Label struct {
	resolved bool
	position int
	refs     []int
}

func (b *CodeBuilder) NewLabel() *Label { return &Label{} }

// Mark places label at the current position and patches earlier
// branches to it.
func (b *CodeBuilder) Mark(label *Label) {
	if label.resolved {
		panic("label already resolved")
	}
	label.resolved = true
	label.position = len(b.code)
	// Offsets are relative to the end of the 3-byte operand.
	for _, ref := range label.refs {
		off := label.position - (ref + 3)
		b.code[ref], b.code[ref+1], b.code[ref+2] = byte(off), byte(off>>8), byte(off>>16)
	}
	label.refs = nil
}

// Here returns a label marked at the current position.
func (b *CodeBuilder) Here() *Label {
	l := b.NewLabel()
	b.Mark(l)
	return l
}

// Branch emits a conditional or unconditional branch to label.
func (b *CodeBuilder) Branch(op Op, label *Label) {
	b.code = append(b.code, byte(op))
	if label.resolved {
		b.s24(label.position - (len(b.code) + 3))
		return
	}
	label.refs = append(label.refs, len(b.code))
	b.s24(0)
}

func (b *CodeBuilder) Jump(label *Label) { b.Branch(OpJump, label) }

// LookupSwitch emits a switch whose offsets are relative to the switch
// instruction itself.
func (b *CodeBuilder) LookupSwitch(def *Label, cases ...*Label) {
	base := len(b.code)
	b.code = append(b.code, byte(OpLookupSwitch))
	patch := func(l *Label) {
		if !l.resolved {
			panic("lookupswitch targets must be placed first")
		}
		b.s24(l.position - base)
	}
	patch(def)
	b.u30(len(cases) - 1)
	for _, l := range cases {
		patch(l)
	}
}

// Catch registers a handler for [from, to) jumping to target. A zero typ
// catches everything.
func (b *CodeBuilder) Catch(from, to, target *Label, typ, varName QName) int {
	b.handlers = append(b.handlers, pendingHandler{from: from, to: to, target: target, typ: typ, varName: varName})
	return len(b.handlers) - 1
}

// Body returns the assembled method body.
func (b *CodeBuilder) Body(localCount int) *MethodBody {
	body := &MethodBody{MaxStack: 16, LocalCount: localCount, MaxScope: 8, Code: b.code}
	for _, h := range b.handlers {
		if !h.from.resolved || !h.to.resolved || !h.target.resolved {
			panic("exception handler label not placed")
		}
		body.Exceptions = append(body.Exceptions, ExceptionHandler{
			From: h.from.position, To: h.to.position, Target: h.target.position,
			Type: h.typ, VarName: h.varName,
		})
	}
	return body
}
