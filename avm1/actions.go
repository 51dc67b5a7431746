package avm1

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// Action codes
// ---------------------------------------------------------------------------

// ActionCode identifies one action. Codes below 0x80 carry no payload;
// the rest are followed by a little-endian u16 payload length.
type ActionCode byte

// Timeline control (accepted and ignored by the engine)
const (
	ActionEnd       ActionCode = 0x00
	ActionNextFrame ActionCode = 0x04
	ActionPrevFrame ActionCode = 0x05
	ActionPlay      ActionCode = 0x06
	ActionStop      ActionCode = 0x07
)

// Legacy arithmetic and strings
const (
	ActionAdd           ActionCode = 0x0A
	ActionSubtract      ActionCode = 0x0B
	ActionMultiply      ActionCode = 0x0C
	ActionDivide        ActionCode = 0x0D
	ActionEquals        ActionCode = 0x0E
	ActionLess          ActionCode = 0x0F
	ActionAnd           ActionCode = 0x10
	ActionOr            ActionCode = 0x11
	ActionNot           ActionCode = 0x12
	ActionStringEquals  ActionCode = 0x13
	ActionStringLength  ActionCode = 0x14
	ActionStringExtract ActionCode = 0x15
	ActionPop           ActionCode = 0x17
	ActionToInteger     ActionCode = 0x18
	ActionGetVariable   ActionCode = 0x1C
	ActionSetVariable   ActionCode = 0x1D
	ActionSetTarget2    ActionCode = 0x20
	ActionStringAdd     ActionCode = 0x21
	ActionTrace         ActionCode = 0x26
	ActionStringLess    ActionCode = 0x29
	ActionThrow         ActionCode = 0x2A
	ActionCastOp        ActionCode = 0x2B
	ActionImplementsOp  ActionCode = 0x2C
	ActionRandomNumber  ActionCode = 0x30
	ActionGetTime       ActionCode = 0x34
)

// Objects, functions and typed operators
const (
	ActionDelete        ActionCode = 0x3A
	ActionDelete2       ActionCode = 0x3B
	ActionDefineLocal   ActionCode = 0x3C
	ActionCallFunction  ActionCode = 0x3D
	ActionReturn        ActionCode = 0x3E
	ActionModulo        ActionCode = 0x3F
	ActionNewObject     ActionCode = 0x40
	ActionDefineLocal2  ActionCode = 0x41
	ActionInitArray     ActionCode = 0x42
	ActionInitObject    ActionCode = 0x43
	ActionTypeOf        ActionCode = 0x44
	ActionTargetPath    ActionCode = 0x45
	ActionEnumerate     ActionCode = 0x46
	ActionAdd2          ActionCode = 0x47
	ActionLess2         ActionCode = 0x48
	ActionEquals2       ActionCode = 0x49
	ActionToNumber      ActionCode = 0x4A
	ActionToString      ActionCode = 0x4B
	ActionPushDuplicate ActionCode = 0x4C
	ActionStackSwap     ActionCode = 0x4D
	ActionGetMember     ActionCode = 0x4E
	ActionSetMember     ActionCode = 0x4F
	ActionIncrement     ActionCode = 0x50
	ActionDecrement     ActionCode = 0x51
	ActionCallMethod    ActionCode = 0x52
	ActionNewMethod     ActionCode = 0x53
	ActionInstanceOf    ActionCode = 0x54
	ActionEnumerate2    ActionCode = 0x55
	ActionBitAnd        ActionCode = 0x60
	ActionBitOr         ActionCode = 0x61
	ActionBitXor        ActionCode = 0x62
	ActionBitLShift     ActionCode = 0x63
	ActionBitRShift     ActionCode = 0x64
	ActionBitURShift    ActionCode = 0x65
	ActionStrictEquals  ActionCode = 0x66
	ActionGreater       ActionCode = 0x67
	ActionStringGreater ActionCode = 0x68
	ActionExtends       ActionCode = 0x69
)

// Actions with payloads
const (
	ActionStoreRegister   ActionCode = 0x87
	ActionConstantPool    ActionCode = 0x88
	ActionSetTarget       ActionCode = 0x8B
	ActionDefineFunction2 ActionCode = 0x8E
	ActionTry             ActionCode = 0x8F
	ActionWith            ActionCode = 0x94
	ActionPush            ActionCode = 0x96
	ActionJump            ActionCode = 0x99
	ActionDefineFunction  ActionCode = 0x9B
	ActionIf              ActionCode = 0x9D
)

var actionNames = map[ActionCode]string{
	ActionEnd: "End", ActionNextFrame: "NextFrame", ActionPrevFrame: "PrevFrame",
	ActionPlay: "Play", ActionStop: "Stop",
	ActionAdd: "Add", ActionSubtract: "Subtract", ActionMultiply: "Multiply",
	ActionDivide: "Divide", ActionEquals: "Equals", ActionLess: "Less", ActionAnd: "And",
	ActionOr: "Or", ActionNot: "Not", ActionStringEquals: "StringEquals",
	ActionStringLength: "StringLength", ActionStringExtract: "StringExtract", ActionPop: "Pop",
	ActionToInteger: "ToInteger", ActionGetVariable: "GetVariable", ActionSetVariable: "SetVariable",
	ActionSetTarget2: "SetTarget2", ActionStringAdd: "StringAdd", ActionTrace: "Trace",
	ActionStringLess: "StringLess", ActionThrow: "Throw", ActionCastOp: "CastOp",
	ActionImplementsOp: "ImplementsOp", ActionRandomNumber: "RandomNumber", ActionGetTime: "GetTime",
	ActionDelete: "Delete", ActionDelete2: "Delete2", ActionDefineLocal: "DefineLocal",
	ActionCallFunction: "CallFunction", ActionReturn: "Return", ActionModulo: "Modulo",
	ActionNewObject: "NewObject", ActionDefineLocal2: "DefineLocal2", ActionInitArray: "InitArray",
	ActionInitObject: "InitObject", ActionTypeOf: "TypeOf", ActionTargetPath: "TargetPath",
	ActionEnumerate: "Enumerate", ActionAdd2: "Add2", ActionLess2: "Less2", ActionEquals2: "Equals2",
	ActionToNumber: "ToNumber", ActionToString: "ToString", ActionPushDuplicate: "PushDuplicate",
	ActionStackSwap: "StackSwap", ActionGetMember: "GetMember", ActionSetMember: "SetMember",
	ActionIncrement: "Increment", ActionDecrement: "Decrement", ActionCallMethod: "CallMethod",
	ActionNewMethod: "NewMethod", ActionInstanceOf: "InstanceOf", ActionEnumerate2: "Enumerate2",
	ActionBitAnd: "BitAnd", ActionBitOr: "BitOr", ActionBitXor: "BitXor", ActionBitLShift: "BitLShift",
	ActionBitRShift: "BitRShift", ActionBitURShift: "BitURShift", ActionStrictEquals: "StrictEquals",
	ActionGreater: "Greater", ActionStringGreater: "StringGreater", ActionExtends: "Extends",
	ActionStoreRegister: "StoreRegister", ActionConstantPool: "ConstantPool", ActionSetTarget: "SetTarget",
	ActionDefineFunction2: "DefineFunction2", ActionTry: "Try", ActionWith: "With", ActionPush: "Push",
	ActionJump: "Jump", ActionDefineFunction: "DefineFunction", ActionIf: "If",
}

var actionsByName = func() map[string]ActionCode {
	m := make(map[string]ActionCode, len(actionNames))
	for c, n := range actionNames {
		m[strings.ToLower(n)] = c
	}
	return m
}()

// ActionByName finds an action by its name, ignoring case.
func ActionByName(name string) (ActionCode, bool) {
	c, ok := actionsByName[strings.ToLower(name)]
	return c, ok
}

func (c ActionCode) String() string {
	if n, ok := actionNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(0x%02X)", byte(c))
}

// Push value types
const (
	pushString     = 0
	pushFloat      = 1
	pushNull       = 2
	pushUndefined  = 3
	pushRegister   = 4
	pushBool       = 5
	pushDouble     = 6
	pushInt        = 7
	pushConstant8  = 8
	pushConstant16 = 9
)

// Try flags
const (
	tryHasCatch        = 0x01
	tryHasFinally      = 0x02
	tryCatchInRegister = 0x04
)

// ---------------------------------------------------------------------------
// ActionReader: byte slice plus cursor
// ---------------------------------------------------------------------------

// ActionReader decodes actions from a code slice.
type ActionReader struct {
	code []byte
	pos  int
}

// NewActionReader creates a reader positioned at the start of code.
func NewActionReader(code []byte) *ActionReader {
	return &ActionReader{code: code}
}

// Pos returns the cursor.
func (r *ActionReader) Pos() int { return r.pos }

// Seek moves the cursor. Positions past the end terminate the block.
func (r *ActionReader) Seek(pos int) { r.pos = pos }

// AtEnd reports whether the cursor is past the last action.
func (r *ActionReader) AtEnd() bool { return r.pos < 0 || r.pos >= len(r.code) }

// Next decodes the action at the cursor and returns its code and payload.
func (r *ActionReader) Next() (ActionCode, []byte, error) {
	op := ActionCode(r.code[r.pos])
	r.pos++
	if op < 0x80 {
		return op, nil, nil
	}
	if r.pos+2 > len(r.code) {
		return op, nil, invalidBytecode("truncated %s header at %d", op, r.pos-1)
	}
	n := int(binary.LittleEndian.Uint16(r.code[r.pos:]))
	r.pos += 2
	if r.pos+n > len(r.code) {
		return op, nil, invalidBytecode("truncated %s payload at %d", op, r.pos-3)
	}
	payload := r.code[r.pos : r.pos+n]
	r.pos += n
	return op, payload, nil
}

// Take consumes n bytes following the current action (function bodies,
// with and try blocks are stored inline after their header).
func (r *ActionReader) Take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.code) {
		return nil, invalidBytecode("block of %d bytes overruns code at %d", n, r.pos)
	}
	b := r.code[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ---------------------------------------------------------------------------
// payload: field decoding within one action
// ---------------------------------------------------------------------------

type payload struct {
	b   []byte
	pos int
	err error
}

func (p *payload) fail(what string) {
	if p.err == nil {
		p.err = invalidBytecode("payload too short reading %s", what)
	}
}

func (p *payload) u8() uint8 {
	if p.pos+1 > len(p.b) {
		p.fail("u8")
		return 0
	}
	v := p.b[p.pos]
	p.pos++
	return v
}

func (p *payload) u16() uint16 {
	if p.pos+2 > len(p.b) {
		p.fail("u16")
		return 0
	}
	v := binary.LittleEndian.Uint16(p.b[p.pos:])
	p.pos += 2
	return v
}

func (p *payload) i16() int16 { return int16(p.u16()) }

func (p *payload) u32() uint32 {
	if p.pos+4 > len(p.b) {
		p.fail("u32")
		return 0
	}
	v := binary.LittleEndian.Uint32(p.b[p.pos:])
	p.pos += 4
	return v
}

func (p *payload) f32() float32 { return math.Float32frombits(p.u32()) }

// f64 reads the format's word-swapped double: high word first, each word
// little-endian.
func (p *payload) f64() float64 {
	hi := uint64(p.u32())
	lo := uint64(p.u32())
	return math.Float64frombits(hi<<32 | lo)
}

// cstr reads a NUL-terminated string.
func (p *payload) cstr() []byte {
	for i := p.pos; i < len(p.b); i++ {
		if p.b[i] == 0 {
			s := p.b[p.pos:i]
			p.pos = i + 1
			return s
		}
	}
	p.fail("string")
	return nil
}

func (p *payload) more() bool { return p.err == nil && p.pos < len(p.b) }
