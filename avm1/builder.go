package avm1

import (
	"encoding/binary"
	"math"
)

// ---------------------------------------------------------------------------
// ActionBuilder: helper for assembling action blocks
// ---------------------------------------------------------------------------

// ActionBuilder assembles an action block. Hosts and tests use it to
// produce code without a compiler.
type ActionBuilder struct {
	bytes []byte
}

// NewActionBuilder creates an empty builder.
func NewActionBuilder() *ActionBuilder {
	return &ActionBuilder{bytes: make([]byte, 0, 64)}
}

// Bytes returns the assembled code.
func (b *ActionBuilder) Bytes() []byte { return b.bytes }

// Len returns the current length.
func (b *ActionBuilder) Len() int { return len(b.bytes) }

// Emit appends an action without payload.
func (b *ActionBuilder) Emit(ops ...ActionCode) {
	for _, op := range ops {
		b.bytes = append(b.bytes, byte(op))
	}
}

// EmitPayload appends an action with its length-prefixed payload.
func (b *ActionBuilder) EmitPayload(op ActionCode, payload []byte) {
	b.bytes = append(b.bytes, byte(op))
	b.bytes = binary.LittleEndian.AppendUint16(b.bytes, uint16(len(payload)))
	b.bytes = append(b.bytes, payload...)
}

// ---------------------------------------------------------------------------
// Push
// ---------------------------------------------------------------------------

// PushItem is one typed entry of a Push action.
type PushItem []byte

func PushString(s string) PushItem {
	return append(append(PushItem{pushString}, s...), 0)
}

func PushNumber(n float64) PushItem {
	bits := math.Float64bits(n)
	p := PushItem{pushDouble}
	p = binary.LittleEndian.AppendUint32(p, uint32(bits>>32))
	return binary.LittleEndian.AppendUint32(p, uint32(bits))
}

func PushInt(n int32) PushItem {
	return binary.LittleEndian.AppendUint32(PushItem{pushInt}, uint32(n))
}

func PushBool(v bool) PushItem {
	if v {
		return PushItem{pushBool, 1}
	}
	return PushItem{pushBool, 0}
}

func PushNull() PushItem            { return PushItem{pushNull} }
func PushUndefined() PushItem       { return PushItem{pushUndefined} }
func PushRegister(n uint8) PushItem { return PushItem{pushRegister, n} }
func PushConstant(i uint16) PushItem {
	if i < 256 {
		return PushItem{pushConstant8, byte(i)}
	}
	return binary.LittleEndian.AppendUint16(PushItem{pushConstant16}, i)
}

// Push appends one Push action carrying items in order.
func (b *ActionBuilder) Push(items ...PushItem) {
	var payload []byte
	for _, it := range items {
		payload = append(payload, it...)
	}
	b.EmitPayload(ActionPush, payload)
}

// ---------------------------------------------------------------------------
// Simple payload actions
// ---------------------------------------------------------------------------

// ConstantPool replaces the activation's constant pool.
func (b *ActionBuilder) ConstantPool(strs ...string) {
	payload := binary.LittleEndian.AppendUint16(nil, uint16(len(strs)))
	for _, s := range strs {
		payload = append(append(payload, s...), 0)
	}
	b.EmitPayload(ActionConstantPool, payload)
}

// StoreRegister copies the stack top into register n.
func (b *ActionBuilder) StoreRegister(n uint8) {
	b.EmitPayload(ActionStoreRegister, []byte{n})
}

// SetTarget retargets the activation to the clip at path.
func (b *ActionBuilder) SetTarget(path string) {
	b.EmitPayload(ActionSetTarget, append([]byte(path), 0))
}

// ---------------------------------------------------------------------------
// Label management for jumps
// ---------------------------------------------------------------------------

// Label represents a jump target, possibly not yet placed.
type Label struct {
	resolved bool
	position int   // target (if resolved)
	refs     []int // offsets awaiting the target
}

// NewLabel creates an unresolved label.
func (b *ActionBuilder) NewLabel() *Label {
	return &Label{refs: make([]int, 0, 2)}
}

// Mark resolves a label to the current position.
func (b *ActionBuilder) Mark(label *Label) {
	if label.resolved {
		panic("label already resolved")
	}
	label.resolved = true
	label.position = len(b.bytes)

	// Offsets are relative to the end of the branch action.
	for _, ref := range label.refs {
		offset := label.position - (ref + 2)
		binary.LittleEndian.PutUint16(b.bytes[ref:], uint16(int16(offset)))
	}
	label.refs = nil
}

// Jump branches unconditionally to label.
func (b *ActionBuilder) Jump(label *Label) { b.branch(ActionJump, label) }

// If pops a condition and branches to label when it is true.
func (b *ActionBuilder) If(label *Label) { b.branch(ActionIf, label) }

func (b *ActionBuilder) branch(op ActionCode, label *Label) {
	b.bytes = append(b.bytes, byte(op), 2, 0)
	if label.resolved {
		offset := label.position - (len(b.bytes) + 2)
		b.bytes = binary.LittleEndian.AppendUint16(b.bytes, uint16(int16(offset)))
		return
	}
	label.refs = append(label.refs, len(b.bytes))
	b.bytes = append(b.bytes, 0, 0)
}

// ---------------------------------------------------------------------------
// Block-structured actions
// ---------------------------------------------------------------------------

func assemble(body func(*ActionBuilder)) []byte {
	nb := NewActionBuilder()
	if body != nil {
		body(nb)
	}
	return nb.Bytes()
}

// DefineFunction emits a legacy function definition. Anonymous functions
// are pushed; named ones are defined as locals.
func (b *ActionBuilder) DefineFunction(name string, params []string, body func(*ActionBuilder)) {
	code := assemble(body)
	payload := append([]byte(name), 0)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(params)))
	for _, p := range params {
		payload = append(append(payload, p...), 0)
	}
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(code)))
	b.EmitPayload(ActionDefineFunction, payload)
	b.bytes = append(b.bytes, code...)
}

// DefineFunction2 emits a function definition with a private register
// file and preload flags.
func (b *ActionBuilder) DefineFunction2(name string, registers uint8, flags Flags, params []Param, body func(*ActionBuilder)) {
	code := assemble(body)
	payload := append([]byte(name), 0)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(params)))
	payload = append(payload, registers)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(flags))
	for _, p := range params {
		payload = append(payload, p.Register)
		payload = append(append(payload, p.Name...), 0)
	}
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(code)))
	b.EmitPayload(ActionDefineFunction2, payload)
	b.bytes = append(b.bytes, code...)
}

// With pops an object and runs body with it pushed on the scope chain.
func (b *ActionBuilder) With(body func(*ActionBuilder)) {
	code := assemble(body)
	b.EmitPayload(ActionWith, binary.LittleEndian.AppendUint16(nil, uint16(len(code))))
	b.bytes = append(b.bytes, code...)
}

// TryBlock describes the handlers of a Try action. A nil Catch or
// Finally omits that handler.
type TryBlock struct {
	Body    func(*ActionBuilder)
	Catch   func(*ActionBuilder)
	Finally func(*ActionBuilder)

	// CatchName receives the thrown value unless CatchRegister is set.
	CatchName     string
	CatchRegister uint8
	UseRegister   bool
}

// Try emits a try/catch/finally block.
func (b *ActionBuilder) Try(t TryBlock) {
	tryCode, catchCode, finallyCode := assemble(t.Body), assemble(t.Catch), assemble(t.Finally)
	var flags byte
	if t.Catch != nil {
		flags |= tryHasCatch
	}
	if t.Finally != nil {
		flags |= tryHasFinally
	}
	if t.UseRegister {
		flags |= tryCatchInRegister
	}
	payload := []byte{flags}
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(tryCode)))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(catchCode)))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(finallyCode)))
	if t.UseRegister {
		payload = append(payload, t.CatchRegister)
	} else {
		payload = append(append(payload, t.CatchName...), 0)
	}
	b.EmitPayload(ActionTry, payload)
	b.bytes = append(b.bytes, tryCode...)
	b.bytes = append(b.bytes, catchCode...)
	b.bytes = append(b.bytes, finallyCode...)
}
