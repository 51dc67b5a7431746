package avm2

import "fmt"

// Op is a dialect 2 instruction byte.
type Op byte

const (
	OpBkpt           Op = 0x01
	OpNop            Op = 0x02
	OpThrow          Op = 0x03
	OpGetSuper       Op = 0x04
	OpSetSuper       Op = 0x05
	OpDXNS           Op = 0x06
	OpDXNSLate       Op = 0x07
	OpKill           Op = 0x08
	OpLabel          Op = 0x09
	OpIfNLT          Op = 0x0C
	OpIfNLE          Op = 0x0D
	OpIfNGT          Op = 0x0E
	OpIfNGE          Op = 0x0F
	OpJump           Op = 0x10
	OpIfTrue         Op = 0x11
	OpIfFalse        Op = 0x12
	OpIfEq           Op = 0x13
	OpIfNe           Op = 0x14
	OpIfLT           Op = 0x15
	OpIfLE           Op = 0x16
	OpIfGT           Op = 0x17
	OpIfGE           Op = 0x18
	OpIfStrictEq     Op = 0x19
	OpIfStrictNe     Op = 0x1A
	OpLookupSwitch   Op = 0x1B
	OpPushWith       Op = 0x1C
	OpPopScope       Op = 0x1D
	OpNextName       Op = 0x1E
	OpHasNext        Op = 0x1F
	OpPushNull       Op = 0x20
	OpPushUndefined  Op = 0x21
	OpNextValue      Op = 0x23
	OpPushByte       Op = 0x24
	OpPushShort      Op = 0x25
	OpPushTrue       Op = 0x26
	OpPushFalse      Op = 0x27
	OpPushNaN        Op = 0x28
	OpPop            Op = 0x29
	OpDup            Op = 0x2A
	OpSwap           Op = 0x2B
	OpPushString     Op = 0x2C
	OpPushInt        Op = 0x2D
	OpPushUint       Op = 0x2E
	OpPushDouble     Op = 0x2F
	OpPushScope      Op = 0x30
	OpPushNamespace  Op = 0x31
	OpHasNext2       Op = 0x32
	OpNewFunction    Op = 0x40
	OpCall           Op = 0x41
	OpConstruct      Op = 0x42
	OpCallMethod     Op = 0x43
	OpCallStatic     Op = 0x44
	OpCallSuper      Op = 0x45
	OpCallProperty   Op = 0x46
	OpReturnVoid     Op = 0x47
	OpReturnValue    Op = 0x48
	OpConstructSuper Op = 0x49
	OpConstructProp  Op = 0x4A
	OpCallPropLex    Op = 0x4C
	OpCallSuperVoid  Op = 0x4E
	OpCallPropVoid   Op = 0x4F
	OpNewObject      Op = 0x55
	OpNewArray       Op = 0x56
	OpNewActivation  Op = 0x57
	OpNewClass       Op = 0x58
	OpNewCatch       Op = 0x5A
	OpFindPropStrict Op = 0x5D
	OpFindProperty   Op = 0x5E
	OpFindDef        Op = 0x5F
	OpGetLex         Op = 0x60
	OpSetProperty    Op = 0x61
	OpGetLocal       Op = 0x62
	OpSetLocal       Op = 0x63
	OpGetGlobalScope Op = 0x64
	OpGetScopeObject Op = 0x65
	OpGetProperty    Op = 0x66
	OpGetOuterScope  Op = 0x67
	OpInitProperty   Op = 0x68
	OpDeleteProperty Op = 0x6A
	OpGetSlot        Op = 0x6C
	OpSetSlot        Op = 0x6D
	OpGetGlobalSlot  Op = 0x6E
	OpSetGlobalSlot  Op = 0x6F
	OpConvertS       Op = 0x70
	OpEscXElem       Op = 0x71
	OpEscXAttr       Op = 0x72
	OpConvertI       Op = 0x73
	OpConvertU       Op = 0x74
	OpConvertD       Op = 0x75
	OpConvertB       Op = 0x76
	OpConvertO       Op = 0x77
	OpCheckFilter    Op = 0x78
	OpCoerce         Op = 0x80
	OpCoerceB        Op = 0x81
	OpCoerceA        Op = 0x82
	OpCoerceI        Op = 0x83
	OpCoerceD        Op = 0x84
	OpCoerceS        Op = 0x85
	OpAsType         Op = 0x86
	OpAsTypeLate     Op = 0x87
	OpCoerceU        Op = 0x88
	OpCoerceO        Op = 0x89
	OpNegate         Op = 0x90
	OpIncrement      Op = 0x91
	OpIncLocal       Op = 0x92
	OpDecrement      Op = 0x93
	OpDecLocal       Op = 0x94
	OpTypeOf         Op = 0x95
	OpNot            Op = 0x96
	OpBitNot         Op = 0x97
	OpAdd            Op = 0xA0
	OpSubtract       Op = 0xA1
	OpMultiply       Op = 0xA2
	OpDivide         Op = 0xA3
	OpModulo         Op = 0xA4
	OpLShift         Op = 0xA5
	OpRShift         Op = 0xA6
	OpURShift        Op = 0xA7
	OpBitAnd         Op = 0xA8
	OpBitOr          Op = 0xA9
	OpBitXor         Op = 0xAA
	OpEquals         Op = 0xAB
	OpStrictEquals   Op = 0xAC
	OpLessThan       Op = 0xAD
	OpLessEquals     Op = 0xAE
	OpGreaterThan    Op = 0xAF
	OpGreaterEquals  Op = 0xB0
	OpInstanceOf     Op = 0xB1
	OpIsType         Op = 0xB2
	OpIsTypeLate     Op = 0xB3
	OpIn             Op = 0xB4
	OpIncrementI     Op = 0xC0
	OpDecrementI     Op = 0xC1
	OpIncLocalI      Op = 0xC2
	OpDecLocalI      Op = 0xC3
	OpNegateI        Op = 0xC4
	OpAddI           Op = 0xC5
	OpSubtractI      Op = 0xC6
	OpMultiplyI      Op = 0xC7
	OpGetLocal0      Op = 0xD0
	OpGetLocal1      Op = 0xD1
	OpGetLocal2      Op = 0xD2
	OpGetLocal3      Op = 0xD3
	OpSetLocal0      Op = 0xD4
	OpSetLocal1      Op = 0xD5
	OpSetLocal2      Op = 0xD6
	OpSetLocal3      Op = 0xD7
	OpDebug          Op = 0xEF
	OpDebugLine      Op = 0xF0
	OpDebugFile      Op = 0xF1
)

var opNames = map[Op]string{
	OpBkpt: "bkpt", OpNop: "nop", OpThrow: "throw", OpGetSuper: "getsuper", OpSetSuper: "setsuper",
	OpDXNS: "dxns", OpDXNSLate: "dxnslate", OpKill: "kill", OpLabel: "label",
	OpIfNLT: "ifnlt", OpIfNLE: "ifnle", OpIfNGT: "ifngt", OpIfNGE: "ifnge", OpJump: "jump",
	OpIfTrue: "iftrue", OpIfFalse: "iffalse", OpIfEq: "ifeq", OpIfNe: "ifne", OpIfLT: "iflt",
	OpIfLE: "ifle", OpIfGT: "ifgt", OpIfGE: "ifge", OpIfStrictEq: "ifstricteq", OpIfStrictNe: "ifstrictne",
	OpLookupSwitch: "lookupswitch", OpPushWith: "pushwith", OpPopScope: "popscope",
	OpNextName: "nextname", OpHasNext: "hasnext", OpPushNull: "pushnull", OpPushUndefined: "pushundefined",
	OpNextValue: "nextvalue", OpPushByte: "pushbyte", OpPushShort: "pushshort", OpPushTrue: "pushtrue",
	OpPushFalse: "pushfalse", OpPushNaN: "pushnan", OpPop: "pop", OpDup: "dup", OpSwap: "swap",
	OpPushString: "pushstring", OpPushInt: "pushint", OpPushUint: "pushuint", OpPushDouble: "pushdouble",
	OpPushScope: "pushscope", OpPushNamespace: "pushnamespace", OpHasNext2: "hasnext2",
	OpNewFunction: "newfunction", OpCall: "call", OpConstruct: "construct", OpCallMethod: "callmethod",
	OpCallStatic: "callstatic", OpCallSuper: "callsuper", OpCallProperty: "callproperty",
	OpReturnVoid: "returnvoid", OpReturnValue: "returnvalue", OpConstructSuper: "constructsuper",
	OpConstructProp: "constructprop", OpCallPropLex: "callproplex", OpCallSuperVoid: "callsupervoid",
	OpCallPropVoid: "callpropvoid", OpNewObject: "newobject", OpNewArray: "newarray",
	OpNewActivation: "newactivation", OpNewClass: "newclass", OpNewCatch: "newcatch",
	OpFindPropStrict: "findpropstrict", OpFindProperty: "findproperty", OpFindDef: "finddef",
	OpGetLex: "getlex", OpSetProperty: "setproperty", OpGetLocal: "getlocal", OpSetLocal: "setlocal",
	OpGetGlobalScope: "getglobalscope", OpGetScopeObject: "getscopeobject", OpGetProperty: "getproperty",
	OpGetOuterScope: "getouterscope", OpInitProperty: "initproperty", OpDeleteProperty: "deleteproperty",
	OpGetSlot: "getslot", OpSetSlot: "setslot", OpGetGlobalSlot: "getglobalslot", OpSetGlobalSlot: "setglobalslot",
	OpConvertS: "convert_s", OpEscXElem: "esc_xelem", OpEscXAttr: "esc_xattr", OpConvertI: "convert_i",
	OpConvertU: "convert_u", OpConvertD: "convert_d", OpConvertB: "convert_b", OpConvertO: "convert_o",
	OpCheckFilter: "checkfilter", OpCoerce: "coerce", OpCoerceB: "coerce_b", OpCoerceA: "coerce_a",
	OpCoerceI: "coerce_i", OpCoerceD: "coerce_d", OpCoerceS: "coerce_s", OpAsType: "astype",
	OpAsTypeLate: "astypelate", OpCoerceU: "coerce_u", OpCoerceO: "coerce_o", OpNegate: "negate",
	OpIncrement: "increment", OpIncLocal: "inclocal", OpDecrement: "decrement", OpDecLocal: "declocal",
	OpTypeOf: "typeof", OpNot: "not", OpBitNot: "bitnot", OpAdd: "add", OpSubtract: "subtract",
	OpMultiply: "multiply", OpDivide: "divide", OpModulo: "modulo", OpLShift: "lshift", OpRShift: "rshift",
	OpURShift: "urshift", OpBitAnd: "bitand", OpBitOr: "bitor", OpBitXor: "bitxor", OpEquals: "equals",
	OpStrictEquals: "strictequals", OpLessThan: "lessthan", OpLessEquals: "lessequals",
	OpGreaterThan: "greaterthan", OpGreaterEquals: "greaterequals", OpInstanceOf: "instanceof",
	OpIsType: "istype", OpIsTypeLate: "istypelate", OpIn: "in", OpIncrementI: "increment_i",
	OpDecrementI: "decrement_i", OpIncLocalI: "inclocal_i", OpDecLocalI: "declocal_i", OpNegateI: "negate_i",
	OpAddI: "add_i", OpSubtractI: "subtract_i", OpMultiplyI: "multiply_i",
	OpGetLocal0: "getlocal_0", OpGetLocal1: "getlocal_1", OpGetLocal2: "getlocal_2", OpGetLocal3: "getlocal_3",
	OpSetLocal0: "setlocal_0", OpSetLocal1: "setlocal_1", OpSetLocal2: "setlocal_2", OpSetLocal3: "setlocal_3",
	OpDebug: "debug", OpDebugLine: "debugline", OpDebugFile: "debugfile",
}

var opsByName = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, n := range opNames {
		m[n] = op
	}
	return m
}()

// OpByName finds an instruction by its mnemonic.
func OpByName(name string) (Op, bool) {
	op, ok := opsByName[name]
	return op, ok
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op_%#02x", byte(op))
}
