package avm2

import (
	"errors"
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Operand stack and decoding
// ---------------------------------------------------------------------------

func (a *Activation) push(v Value) { a.stack = append(a.stack, v) }

// pop records a stack underflow as a host fault; the instruction loop
// aborts the method once the current instruction finishes.
func (a *Activation) pop() Value {
	n := len(a.stack)
	if n == 0 {
		a.setFault(&HostError{Code: CodeStackUnderflow})
		return Undefined
	}
	v := a.stack[n-1]
	a.stack = a.stack[:n-1]
	return v
}

// popN pops n values, returned in push order.
func (a *Activation) popN(n int) []Value {
	if n > len(a.stack) {
		a.setFault(&HostError{Code: CodeStackUnderflow})
		n = len(a.stack)
	}
	vals := make([]Value, n)
	copy(vals, a.stack[len(a.stack)-n:])
	a.stack = a.stack[:len(a.stack)-n]
	return vals
}

func (a *Activation) setFault(err error) {
	if a.fault == nil {
		a.fault = err
	}
}

func (a *Activation) u8() int {
	if a.pc >= len(a.code) {
		a.setFault(&HostError{Code: CodeFallOffEnd})
		return 0
	}
	b := a.code[a.pc]
	a.pc++
	return int(b)
}

func (a *Activation) u30() int {
	var v uint32
	for shift := 0; shift < 35; shift += 7 {
		b := a.u8()
		v |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
	}
	return int(v & 0x3fffffff)
}

func (a *Activation) s24() int {
	v := a.u8() | a.u8()<<8 | a.u8()<<16
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return v
}

func (a *Activation) jumpTo(target int) error {
	if target < 0 || target >= len(a.code) {
		return &HostError{Code: CodeBranchTarget, Err: fmt.Errorf("%s: target %d", a.method.displayName(), target)}
	}
	a.pc = target
	return nil
}

func (a *Activation) local(i int) (Value, error) {
	if i < 0 || i >= len(a.locals) {
		return Undefined, &HostError{Code: CodeInvalidRegister, Err: fmt.Errorf("register %d of %d", i, len(a.locals))}
	}
	return a.locals[i], nil
}

func (a *Activation) setLocal(i int, v Value) error {
	if i < 0 || i >= len(a.locals) {
		return &HostError{Code: CodeInvalidRegister, Err: fmt.Errorf("register %d of %d", i, len(a.locals))}
	}
	a.locals[i] = v
	return nil
}

// readName decodes a multiname operand. Run-time parts stay unresolved
// until resolveRuntime pops them.
func (a *Activation) readName() (Multiname, error) {
	return a.method.unit.multinameAt(a.u30())
}

// resolveRuntime pops the run-time name and namespace, name on top.
func (a *Activation) resolveRuntime(mn Multiname) (Multiname, error) {
	if !mn.HasRuntimeName() && !mn.HasRuntimeNS() {
		return mn, nil
	}
	var name string
	if mn.HasRuntimeName() {
		s, err := a.ToString(a.pop())
		if err != nil {
			return mn, err
		}
		name = s.String()
	}
	var ns *Namespace
	if mn.HasRuntimeNS() {
		o := a.pop().AsObject()
		if o == nil || o.kind != ObjectNamespace {
			return mn, a.Throw(CodeTypeCoercion, "value", "Namespace")
		}
		ns = &o.ns
	}
	return mn.Resolved(name, ns), nil
}

func (a *Activation) popName() (Multiname, error) {
	mn, err := a.readName()
	if err != nil {
		return mn, err
	}
	return a.resolveRuntime(mn)
}

// nullError is the TypeError for touching a property of null or undefined.
func (a *Activation) nullError(v Value) error {
	if v.IsUndefined() {
		return a.Throw(CodeUndefinedReference)
	}
	return a.Throw(CodeNullReference)
}

// ---------------------------------------------------------------------------
// Run loop
// ---------------------------------------------------------------------------

// run executes the body. A thrown value unwinds to the innermost handler
// covering the faulting instruction whose type matches; host failures
// bypass every handler.
func (a *Activation) run() (Value, error) {
	for {
		v, err := a.execute()
		if err == nil {
			return v, nil
		}
		var t *Thrown
		if !errors.As(err, &t) {
			return Undefined, err
		}
		h, herr := a.findHandler(t.Value)
		if herr != nil {
			return Undefined, herr
		}
		if h == nil {
			return Undefined, err
		}
		a.stack = a.stack[:0]
		a.scopes = a.scopes[:0]
		a.push(t.Value)
		if err := a.jumpTo(h.Target); err != nil {
			return Undefined, err
		}
	}
}

func (a *Activation) findHandler(v Value) (*ExceptionHandler, error) {
	handlers := a.method.Body.Exceptions
	for i := range handlers {
		h := &handlers[i]
		if a.opStart < h.From || a.opStart >= h.To {
			continue
		}
		if h.Type.IsAny() {
			return h, nil
		}
		c, err := a.resolveClass(h.Type)
		if err != nil {
			return nil, err
		}
		if a.isType(v, c) {
			return h, nil
		}
	}
	return nil, nil
}

func (a *Activation) illegal(op Op) error {
	return &HostError{Code: CodeIllegalOpcode, Err: fmt.Errorf("%s: %s at offset %d", a.method.displayName(), op, a.opStart)}
}

// execute runs instructions until the method returns or an instruction
// fails.
func (a *Activation) execute() (Value, error) {
	unit := a.method.unit
	for {
		if a.pc >= len(a.code) {
			return Undefined, &HostError{Code: CodeFallOffEnd, Err: fmt.Errorf("in %s", a.method.displayName())}
		}
		if err := a.vm.checkTimeout(); err != nil {
			return Undefined, err
		}
		a.opStart = a.pc
		op := Op(a.code[a.pc])
		a.pc++

		var err error
		switch op {
		case OpNop, OpLabel, OpBkpt:
		case OpDebug:
			a.u8()
			a.u30()
			a.u8()
			a.u30()
		case OpDebugLine, OpDebugFile:
			a.u30()

		// Stack
		case OpPushNull:
			a.push(Null)
		case OpPushUndefined:
			a.push(Undefined)
		case OpPushTrue:
			a.push(True)
		case OpPushFalse:
			a.push(False)
		case OpPushNaN:
			a.push(Number(math.NaN()))
		case OpPushByte:
			a.push(Int(int32(int8(a.u8()))))
		case OpPushShort:
			a.push(Int(int32(int16(a.u30()))))
		case OpPushInt:
			var i int32
			if i, err = poolEntry(unit.Ints, a.u30(), CodeCpoolIndex); err == nil {
				a.push(Int(i))
			}
		case OpPushUint:
			var u uint32
			if u, err = poolEntry(unit.Uints, a.u30(), CodeCpoolIndex); err == nil {
				a.push(Uint(u))
			}
		case OpPushDouble:
			var n float64
			if n, err = poolEntry(unit.Doubles, a.u30(), CodeCpoolIndex); err == nil {
				a.push(Number(n))
			}
		case OpPushString:
			var s string
			if s, err = unit.stringAt(a.u30()); err == nil {
				a.push(StrValue(a.vm.strings.Intern(s)))
			}
		case OpPushNamespace:
			var ns Namespace
			if ns, err = poolEntry(unit.Namespaces, a.u30(), CodeCpoolIndex); err == nil {
				a.push(ObjectValue(a.vm.newNamespaceObject(ns)))
			}
		case OpPop:
			a.pop()
		case OpDup:
			v := a.pop()
			a.push(v)
			a.push(v)
		case OpSwap:
			y, x := a.pop(), a.pop()
			a.push(y)
			a.push(x)

		// Locals
		case OpGetLocal0, OpGetLocal1, OpGetLocal2, OpGetLocal3:
			var v Value
			if v, err = a.local(int(op - OpGetLocal0)); err == nil {
				a.push(v)
			}
		case OpSetLocal0, OpSetLocal1, OpSetLocal2, OpSetLocal3:
			err = a.setLocal(int(op-OpSetLocal0), a.pop())
		case OpGetLocal:
			var v Value
			if v, err = a.local(a.u30()); err == nil {
				a.push(v)
			}
		case OpSetLocal:
			err = a.setLocal(a.u30(), a.pop())
		case OpKill:
			err = a.setLocal(a.u30(), Undefined)
		case OpIncLocal, OpDecLocal, OpIncLocalI, OpDecLocalI:
			err = a.stepLocal(op, a.u30())

		// Control flow
		case OpJump:
			off := a.s24()
			err = a.jumpTo(a.pc + off)
		case OpIfTrue, OpIfFalse:
			off := a.s24()
			if a.pop().ToBoolean() == (op == OpIfTrue) {
				err = a.jumpTo(a.pc + off)
			}
		case OpIfEq, OpIfNe, OpIfStrictEq, OpIfStrictNe, OpIfLT, OpIfLE, OpIfGT, OpIfGE,
			OpIfNLT, OpIfNLE, OpIfNGT, OpIfNGE:
			off := a.s24()
			y, x := a.pop(), a.pop()
			var taken bool
			if taken, err = a.branchTaken(op, x, y); err == nil && taken {
				err = a.jumpTo(a.pc + off)
			}
		case OpLookupSwitch:
			err = a.lookupSwitch()
		case OpThrow:
			return Undefined, &Thrown{Value: a.pop()}
		case OpReturnVoid:
			return Undefined, nil
		case OpReturnValue:
			v := a.pop()
			if a.fault != nil {
				return Undefined, a.fault
			}
			return a.coerce(v, a.method.ReturnType)

		// Scope
		case OpPushScope, OpPushWith:
			v := a.pop()
			o := v.AsObject()
			switch {
			case v.IsNullish():
				err = a.nullError(v)
			case o == nil:
				err = a.Throw(CodeTypeCoercion, a.typeName(v), "Object")
			default:
				a.scopes = append(a.scopes, scopeEntry{object: o, with: op == OpPushWith})
			}
		case OpPopScope:
			if len(a.scopes) == 0 {
				err = &HostError{Code: CodeScopeStackUnderflow}
			} else {
				a.scopes = a.scopes[:len(a.scopes)-1]
			}
		case OpGetGlobalScope:
			a.push(ObjectValue(a.globalObject()))
		case OpGetScopeObject:
			i := a.u8()
			if i >= len(a.scopes) {
				err = &HostError{Code: CodeScopeObjectBounds, Err: fmt.Errorf("index %d", i)}
			} else {
				a.push(ObjectValue(a.scopes[i].object))
			}
		case OpGetOuterScope:
			i := a.u30()
			if o, ok := a.outer.At(i); ok {
				a.push(ObjectValue(o))
			} else {
				err = &HostError{Code: CodeScopeObjectBounds, Err: fmt.Errorf("outer index %d", i)}
			}

		// Name lookup
		case OpFindPropStrict, OpFindProperty:
			var mn Multiname
			if mn, err = a.popName(); err != nil {
				break
			}
			var o *Object
			if op == OpFindPropStrict {
				o, err = a.findPropStrict(mn)
			} else {
				o, err = a.findPropertyOrGlobal(mn)
			}
			if err == nil {
				a.push(ObjectValue(o))
			}
		case OpFindDef:
			var mn Multiname
			if mn, err = a.readName(); err == nil {
				err = a.findDef(mn)
			}
		case OpGetLex:
			var mn Multiname
			if mn, err = a.readName(); err != nil {
				break
			}
			var o *Object
			if o, err = a.findPropStrict(mn); err == nil {
				var v Value
				if v, err = o.GetProperty(a, mn); err == nil {
					a.push(v)
				}
			}

		// Properties
		case OpGetProperty:
			var mn Multiname
			if mn, err = a.popName(); err == nil {
				var v Value
				if v, err = a.getProperty(a.pop(), mn); err == nil {
					a.push(v)
				}
			}
		case OpSetProperty, OpInitProperty:
			v := a.pop()
			var mn Multiname
			if mn, err = a.popName(); err == nil {
				err = a.setProperty(a.pop(), mn, v, op == OpInitProperty)
			}
		case OpDeleteProperty:
			var mn Multiname
			if mn, err = a.popName(); err == nil {
				obj := a.pop()
				switch o := obj.AsObject(); {
				case obj.IsNullish():
					err = a.nullError(obj)
				case o == nil:
					a.push(False)
				default:
					a.push(Bool(o.DeleteProperty(a, mn)))
				}
			}
		case OpIn:
			err = a.in()
		case OpGetSuper:
			var mn Multiname
			if mn, err = a.popName(); err == nil {
				var v Value
				if v, err = a.getSuper(a.pop(), mn); err == nil {
					a.push(v)
				}
			}
		case OpSetSuper:
			v := a.pop()
			var mn Multiname
			if mn, err = a.popName(); err == nil {
				err = a.setSuper(a.pop(), mn, v)
			}
		case OpGetSlot:
			id := a.u30()
			var o *Object
			var i int
			if o, i, err = a.slotOf(a.pop(), id); err == nil {
				a.push(o.slots[i])
			}
		case OpSetSlot:
			id := a.u30()
			v := a.pop()
			err = a.setSlot(a.pop(), id, v)
		case OpGetGlobalSlot:
			id := a.u30()
			var o *Object
			var i int
			if o, i, err = a.slotOf(ObjectValue(a.globalObject()), id); err == nil {
				a.push(o.slots[i])
			}
		case OpSetGlobalSlot:
			id := a.u30()
			err = a.setSlot(ObjectValue(a.globalObject()), id, a.pop())

		// Iteration
		case OpHasNext:
			iv := a.pop()
			obj := a.pop()
			var next int
			if next, _, err = a.nextIndex(obj, iv); err == nil {
				a.push(Int(int32(next)))
			}
		case OpHasNext2:
			objReg, idxReg := a.u30(), a.u30()
			err = a.hasNext2(objReg, idxReg)
		case OpNextName, OpNextValue:
			iv := a.pop()
			obj := a.pop()
			err = a.nextEntry(obj, iv, op == OpNextValue)

		// Calls and construction
		case OpCall:
			args := a.popN(a.u30())
			recv := a.pop()
			fn := a.pop()
			var v Value
			if v, err = a.callValue(fn, recv, args, a.describe(fn)); err == nil {
				a.push(v)
			}
		case OpCallProperty, OpCallPropLex, OpCallPropVoid:
			var mn Multiname
			if mn, err = a.readName(); err != nil {
				break
			}
			args := a.popN(a.u30())
			if mn, err = a.resolveRuntime(mn); err != nil {
				break
			}
			var v Value
			if v, err = a.callProperty(a.pop(), mn, args, op == OpCallPropLex); err == nil && op != OpCallPropVoid {
				a.push(v)
			}
		case OpCallSuper, OpCallSuperVoid:
			var mn Multiname
			if mn, err = a.readName(); err != nil {
				break
			}
			args := a.popN(a.u30())
			if mn, err = a.resolveRuntime(mn); err != nil {
				break
			}
			var v Value
			if v, err = a.callSuper(a.pop(), mn, args); err == nil && op == OpCallSuper {
				a.push(v)
			}
		case OpConstruct:
			args := a.popN(a.u30())
			var v Value
			if v, err = a.construct(a.pop(), args, ""); err == nil {
				a.push(v)
			}
		case OpConstructProp:
			var mn Multiname
			if mn, err = a.readName(); err != nil {
				break
			}
			args := a.popN(a.u30())
			if mn, err = a.resolveRuntime(mn); err != nil {
				break
			}
			var ctor Value
			if ctor, err = a.getProperty(a.pop(), mn); err != nil {
				break
			}
			var v Value
			if v, err = a.construct(ctor, args, mn.String()); err == nil {
				a.push(v)
			}
		case OpConstructSuper:
			args := a.popN(a.u30())
			err = a.constructSuper(a.pop(), args)
		case OpNewObject:
			err = a.newObject(a.u30())
		case OpNewArray:
			a.push(ObjectValue(a.vm.NewArray(a.popN(a.u30()))))
		case OpNewFunction:
			var m *Method
			if m, err = unit.methodAt(a.u30()); err == nil {
				a.push(ObjectValue(a.vm.newFunctionObject(&Closure{method: m, scope: a.captureScope()})))
			}
		case OpNewClass:
			err = a.newClass(a.u30())
		case OpNewActivation:
			if !a.method.Flags.Has(NeedActivation) {
				err = &HostError{Code: CodeNewActivationFlag}
				break
			}
			var o *Object
			if o, err = a.vm.newActivationObject(a); err == nil {
				a.activation = o
				a.push(ObjectValue(o))
			}
		case OpNewCatch:
			err = a.newCatch(a.u30())

		// Conversion and types
		case OpConvertS:
			var s Value
			if s, err = a.convertString(a.pop()); err == nil {
				a.push(s)
			}
		case OpCoerceS:
			v := a.pop()
			if v.IsNullish() {
				a.push(Null)
				break
			}
			var s Value
			if s, err = a.convertString(v); err == nil {
				a.push(s)
			}
		case OpConvertI, OpCoerceI:
			var i int32
			if i, err = a.ToInt32(a.pop()); err == nil {
				a.push(Int(i))
			}
		case OpConvertU, OpCoerceU:
			var u uint32
			if u, err = a.ToUint32(a.pop()); err == nil {
				a.push(Uint(u))
			}
		case OpConvertD, OpCoerceD:
			var n float64
			if n, err = a.ToNumber(a.pop()); err == nil {
				a.push(Number(n))
			}
		case OpConvertB, OpCoerceB:
			a.push(Bool(a.pop().ToBoolean()))
		case OpConvertO:
			v := a.pop()
			if v.IsNullish() {
				err = a.nullError(v)
			} else {
				a.push(v)
			}
		case OpCoerceO:
			v := a.pop()
			if v.IsUndefined() {
				v = Null
			}
			a.push(v)
		case OpCoerceA:
		case OpCoerce:
			var mn Multiname
			if mn, err = a.readName(); err != nil {
				break
			}
			var c *ClassObject
			if c, err = a.resolveType(mn); err != nil {
				break
			}
			var v Value
			if v, err = a.coerceTo(a.pop(), c); err == nil {
				a.push(v)
			}
		case OpAsType, OpIsType:
			var mn Multiname
			if mn, err = a.readName(); err != nil {
				break
			}
			var c *ClassObject
			if c, err = a.resolveType(mn); err == nil {
				a.typeCheck(op == OpIsType, a.pop(), c)
			}
		case OpAsTypeLate, OpIsTypeLate:
			cv := a.pop()
			v := a.pop()
			co := cv.AsObject()
			if co == nil || co.kind != ObjectClass {
				err = a.Throw(CodeIsTypeRHS)
				break
			}
			a.typeCheck(op == OpIsTypeLate, v, co.classData)
		case OpInstanceOf:
			ctor := a.pop()
			v := a.pop()
			var ok bool
			if ok, err = a.instanceOf(v, ctor); err == nil {
				a.push(Bool(ok))
			}
		case OpTypeOf:
			a.push(Str(a.pop().TypeOf()))

		// Arithmetic and logic
		case OpNot:
			a.push(Bool(!a.pop().ToBoolean()))
		case OpBitNot:
			var i int32
			if i, err = a.ToInt32(a.pop()); err == nil {
				a.push(Int(^i))
			}
		case OpNegate, OpIncrement, OpDecrement, OpNegateI, OpIncrementI, OpDecrementI:
			var v Value
			if v, err = a.unary(op, a.pop()); err == nil {
				a.push(v)
			}
		case OpAdd:
			y, x := a.pop(), a.pop()
			var v Value
			if v, err = a.add(x, y); err == nil {
				a.push(v)
			}
		case OpSubtract, OpMultiply, OpDivide, OpModulo, OpAddI, OpSubtractI, OpMultiplyI,
			OpLShift, OpRShift, OpURShift, OpBitAnd, OpBitOr, OpBitXor:
			y, x := a.pop(), a.pop()
			var v Value
			if v, err = a.binary(op, x, y); err == nil {
				a.push(v)
			}
		case OpEquals:
			y, x := a.pop(), a.pop()
			var eq bool
			if eq, err = a.LooseEquals(x, y); err == nil {
				a.push(Bool(eq))
			}
		case OpStrictEquals:
			y, x := a.pop(), a.pop()
			a.push(Bool(StrictEquals(x, y)))
		case OpLessThan, OpLessEquals, OpGreaterThan, OpGreaterEquals:
			y, x := a.pop(), a.pop()
			var r bool
			if r, err = a.relation(op, x, y); err == nil {
				a.push(Bool(r))
			}

		default:
			err = a.illegal(op)
		}

		if err != nil {
			return Undefined, err
		}
		if a.fault != nil {
			return Undefined, a.fault
		}
	}
}

// ---------------------------------------------------------------------------
// Instruction helpers
// ---------------------------------------------------------------------------

func (a *Activation) stepLocal(op Op, i int) error {
	v, err := a.local(i)
	if err != nil {
		return err
	}
	switch op {
	case OpIncLocalI, OpDecLocalI:
		n, err := a.ToInt32(v)
		if err != nil {
			return err
		}
		if op == OpIncLocalI {
			n++
		} else {
			n--
		}
		return a.setLocal(i, Int(n))
	}
	n, err := a.ToNumber(v)
	if err != nil {
		return err
	}
	if op == OpIncLocal {
		n++
	} else {
		n--
	}
	return a.setLocal(i, normalize(n))
}

func (a *Activation) lookupSwitch() error {
	base := a.opStart
	def := a.s24()
	n := a.u30()
	if n >= len(a.code) {
		return &HostError{Code: CodeBranchTarget, Err: fmt.Errorf("lookupswitch with %d cases", n+1)}
	}
	offsets := make([]int, n+1)
	for i := range offsets {
		offsets[i] = a.s24()
	}
	i, err := a.ToInt32(a.pop())
	if err != nil {
		return err
	}
	if i >= 0 && int(i) <= n {
		return a.jumpTo(base + offsets[i])
	}
	return a.jumpTo(base + def)
}

func (a *Activation) branchTaken(op Op, x, y Value) (bool, error) {
	switch op {
	case OpIfEq, OpIfNe:
		eq, err := a.LooseEquals(x, y)
		return eq == (op == OpIfEq), err
	case OpIfStrictEq:
		return StrictEquals(x, y), nil
	case OpIfStrictNe:
		return !StrictEquals(x, y), nil
	case OpIfLT, OpIfNLT:
		r, err := a.relation(OpLessThan, x, y)
		return r == (op == OpIfLT), err
	case OpIfLE, OpIfNLE:
		r, err := a.relation(OpLessEquals, x, y)
		return r == (op == OpIfLE), err
	case OpIfGT, OpIfNGT:
		r, err := a.relation(OpGreaterThan, x, y)
		return r == (op == OpIfGT), err
	}
	r, err := a.relation(OpGreaterEquals, x, y)
	return r == (op == OpIfGE), err
}

// relation evaluates a relational operator. Every comparison involving
// NaN is false.
func (a *Activation) relation(op Op, x, y Value) (bool, error) {
	switch op {
	case OpLessThan:
		lt, ok, err := a.lessThan(x, y)
		return ok && lt, err
	case OpLessEquals:
		gt, ok, err := a.lessThan(y, x)
		return ok && !gt, err
	case OpGreaterThan:
		gt, ok, err := a.lessThan(y, x)
		return ok && gt, err
	}
	lt, ok, err := a.lessThan(x, y)
	return ok && !lt, err
}

func (a *Activation) add(x, y Value) (Value, error) {
	if x.IsNumeric() && y.IsNumeric() {
		return normalize(x.AsNumber() + y.AsNumber()), nil
	}
	if x.kind == KindString && y.kind == KindString {
		return StrValue(x.s.Concat(y.s)), nil
	}
	px, err := a.ToPrimitive(x, HintNumber)
	if err != nil {
		return Undefined, err
	}
	py, err := a.ToPrimitive(y, HintNumber)
	if err != nil {
		return Undefined, err
	}
	if px.kind == KindString || py.kind == KindString {
		return StrValue(px.primitiveToString().Concat(py.primitiveToString())), nil
	}
	return normalize(px.primitiveToNumber() + py.primitiveToNumber()), nil
}

func (a *Activation) binary(op Op, x, y Value) (Value, error) {
	switch op {
	case OpAddI, OpSubtractI, OpMultiplyI, OpLShift, OpRShift, OpBitAnd, OpBitOr, OpBitXor:
		i, err := a.ToInt32(x)
		if err != nil {
			return Undefined, err
		}
		j, err := a.ToInt32(y)
		if err != nil {
			return Undefined, err
		}
		switch op {
		case OpAddI:
			return Int(i + j), nil
		case OpSubtractI:
			return Int(i - j), nil
		case OpMultiplyI:
			return Int(i * j), nil
		case OpLShift:
			return Int(i << (uint32(j) & 31)), nil
		case OpRShift:
			return Int(i >> (uint32(j) & 31)), nil
		case OpBitAnd:
			return Int(i & j), nil
		case OpBitOr:
			return Int(i | j), nil
		}
		return Int(i ^ j), nil
	case OpURShift:
		u, err := a.ToUint32(x)
		if err != nil {
			return Undefined, err
		}
		j, err := a.ToUint32(y)
		if err != nil {
			return Undefined, err
		}
		return Uint(u >> (j & 31)), nil
	}
	nx, err := a.ToNumber(x)
	if err != nil {
		return Undefined, err
	}
	ny, err := a.ToNumber(y)
	if err != nil {
		return Undefined, err
	}
	switch op {
	case OpSubtract:
		return normalize(nx - ny), nil
	case OpMultiply:
		return normalize(nx * ny), nil
	case OpDivide:
		return normalize(nx / ny), nil
	}
	return normalize(math.Mod(nx, ny)), nil
}

func (a *Activation) unary(op Op, v Value) (Value, error) {
	switch op {
	case OpNegateI, OpIncrementI, OpDecrementI:
		i, err := a.ToInt32(v)
		if err != nil {
			return Undefined, err
		}
		switch op {
		case OpNegateI:
			return Int(-i), nil
		case OpIncrementI:
			return Int(i + 1), nil
		}
		return Int(i - 1), nil
	}
	n, err := a.ToNumber(v)
	if err != nil {
		return Undefined, err
	}
	switch op {
	case OpNegate:
		return normalize(-n), nil
	case OpIncrement:
		return normalize(n + 1), nil
	}
	return normalize(n - 1), nil
}

func (a *Activation) convertString(v Value) (Value, error) {
	s, err := a.ToString(v)
	if err != nil {
		return Undefined, err
	}
	return StrValue(s), nil
}

func (a *Activation) typeCheck(is bool, v Value, c *ClassObject) {
	ok := a.isType(v, c)
	switch {
	case is:
		a.push(Bool(ok))
	case ok:
		a.push(v)
	default:
		a.push(Null)
	}
}

// resolveType resolves a type operand, trying each namespace in turn.
func (a *Activation) resolveType(mn Multiname) (*ClassObject, error) {
	for _, q := range mn.QNames() {
		if c, ok := a.vm.classes[q]; ok {
			return c, nil
		}
		if d := a.domain(); d != nil && d.HasDefinition(q) {
			return a.resolveClass(q)
		}
	}
	return nil, a.Throw(CodeClassNotFound, mn)
}

// ---------------------------------------------------------------------------
// Property access on arbitrary values
// ---------------------------------------------------------------------------

func (a *Activation) getProperty(obj Value, mn Multiname) (Value, error) {
	switch obj.kind {
	case KindUndefined, KindNull:
		return Undefined, a.nullError(obj)
	case KindObject:
		return obj.o.GetProperty(a, mn)
	case KindString:
		if mn.HasPublic() {
			if mn.Name == "length" {
				return Int(int32(obj.s.Len())), nil
			}
			if i, ok := arrayIndex(mn); ok && i < obj.s.Len() {
				return StrValue(obj.s.Slice(i, i+1)), nil
			}
		}
	}
	v, found, err := a.getFromProtos(a.vm.protoFor(obj), mn, obj)
	if found || err != nil {
		return v, err
	}
	return Undefined, a.Throw(CodePropertyNotFound, mn, a.typeName(obj))
}

func (a *Activation) setProperty(obj Value, mn Multiname, v Value, init bool) error {
	switch obj.kind {
	case KindUndefined, KindNull:
		return a.nullError(obj)
	case KindObject:
		return obj.o.setProperty(a, mn, v, init)
	}
	return a.Throw(CodeCannotCreateProperty, mn, a.typeName(obj))
}

func (a *Activation) in() error {
	obj := a.pop()
	name := a.pop()
	if obj.IsNullish() {
		return a.nullError(obj)
	}
	s, err := a.ToString(name)
	if err != nil {
		return err
	}
	mn := PublicName(s.String())
	o := obj.AsObject()
	if o == nil {
		o = a.vm.protoFor(obj)
	}
	a.push(Bool(o != nil && o.HasProperty(mn)))
	return nil
}

func (a *Activation) findDef(mn Multiname) error {
	d := a.domain()
	script, _, ok := d.findScript(mn)
	if !ok {
		return a.Throw(CodeUndefinedVariable, mn)
	}
	global, err := script.ensureInitialized(a)
	if err != nil {
		return err
	}
	a.push(ObjectValue(global))
	return nil
}

func (a *Activation) slotOf(v Value, id int) (*Object, int, error) {
	o := v.AsObject()
	if o == nil {
		return nil, 0, a.nullError(v)
	}
	if id < 1 || id > len(o.slots) {
		return nil, 0, &HostError{Code: CodeSlotExceeds, Err: fmt.Errorf("slot %d of %d on %s", id, len(o.slots), a.describe(v))}
	}
	return o, id - 1, nil
}

func (a *Activation) setSlot(obj Value, id int, v Value) error {
	o, i, err := a.slotOf(obj, id)
	if err != nil {
		return err
	}
	cv, err := a.coerce(v, o.vtable.slotType(i))
	if err != nil {
		return err
	}
	o.slots[i] = cv
	return nil
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (a *Activation) callValue(fn, this Value, args []Value, name string) (Value, error) {
	f := fn.AsObject()
	if f == nil || !f.IsCallable() {
		return Undefined, a.Throw(CodeNotAFunction, name)
	}
	return f.Call(a, this, args)
}

// callProperty calls mn on recv. Method traits are called directly
// without materializing a closure. callproplex passes a null receiver
// to functions found outside the vtable.
func (a *Activation) callProperty(recv Value, mn Multiname, args []Value, lex bool) (Value, error) {
	if o := recv.AsObject(); o != nil {
		if b, _, ok := o.vtable.Lookup(mn); ok && b.kind == bindMethod {
			return a.vm.callMethod(a, b.method, b.declarer, recv, args)
		}
	}
	fn, err := a.getProperty(recv, mn)
	if err != nil {
		return Undefined, err
	}
	this := recv
	if lex {
		this = Null
	}
	return a.callValue(fn, this, args, mn.String())
}

func (a *Activation) construct(ctor Value, args []Value, name string) (Value, error) {
	if ctor.IsNullish() {
		return Undefined, a.nullError(ctor)
	}
	o := ctor.AsObject()
	if o == nil {
		if name == "" {
			name = a.describe(ctor)
		}
		return Undefined, a.Throw(CodeNotAConstructor, name)
	}
	return o.Construct(a, args)
}

// superClass is the class super expressions resolve against: the parent
// of the class the running method was bound through.
func (a *Activation) superClass() (*ClassObject, error) {
	if a.class == nil || a.class.super == nil {
		return nil, &HostError{Code: CodeIllegalSuper, Err: fmt.Errorf("in %s", a.method.displayName())}
	}
	return a.class.super, nil
}

func (a *Activation) getSuper(recv Value, mn Multiname) (Value, error) {
	super, err := a.superClass()
	if err != nil {
		return Undefined, err
	}
	o := recv.AsObject()
	if o == nil {
		return Undefined, a.nullError(recv)
	}
	b, q, ok := super.instanceVT.Lookup(mn)
	if !ok {
		v, found, err := a.getFromProtos(super.prototype, mn, recv)
		if found || err != nil {
			return v, err
		}
		return Undefined, a.Throw(CodePropertyNotFound, mn, super.Name())
	}
	switch b.kind {
	case bindSlot, bindConst:
		return o.slots[b.slot], nil
	case bindMethod:
		return ObjectValue(a.vm.newMethodClosure(b.method, b.declarer, recv)), nil
	}
	if b.getter == nil {
		return Undefined, a.Throw(CodeReadWriteOnly, q, super.Name())
	}
	return a.vm.callMethod(a, b.getter, b.getDeclarer, recv, nil)
}

func (a *Activation) setSuper(recv Value, mn Multiname, v Value) error {
	super, err := a.superClass()
	if err != nil {
		return err
	}
	o := recv.AsObject()
	if o == nil {
		return a.nullError(recv)
	}
	b, q, ok := super.instanceVT.Lookup(mn)
	if !ok {
		return o.SetProperty(a, mn, v)
	}
	switch b.kind {
	case bindSlot:
		cv, err := a.coerce(v, super.instanceVT.slotType(b.slot))
		if err != nil {
			return err
		}
		o.slots[b.slot] = cv
		return nil
	case bindConst:
		return a.Throw(CodeWriteReadOnly, q, super.Name())
	case bindMethod:
		return a.Throw(CodeAssignToMethod, q, super.Name())
	}
	if b.setter == nil {
		return a.Throw(CodeWriteReadOnly, q, super.Name())
	}
	_, err = a.vm.callMethod(a, b.setter, b.setDeclarer, recv, []Value{v})
	return err
}

func (a *Activation) callSuper(recv Value, mn Multiname, args []Value) (Value, error) {
	super, err := a.superClass()
	if err != nil {
		return Undefined, err
	}
	if recv.IsNullish() {
		return Undefined, a.nullError(recv)
	}
	if b, _, ok := super.instanceVT.Lookup(mn); ok && b.kind == bindMethod {
		return a.vm.callMethod(a, b.method, b.declarer, recv, args)
	}
	fn, err := a.getSuper(recv, mn)
	if err != nil {
		return Undefined, err
	}
	if f := fn.AsObject(); f == nil || !f.IsCallable() {
		return Undefined, a.Throw(CodeMethodNotFound, mn, super.Name())
	}
	return a.callValue(fn, recv, args, mn.String())
}

func (a *Activation) constructSuper(recv Value, args []Value) error {
	super, err := a.superClass()
	if err != nil {
		return err
	}
	o := recv.AsObject()
	if o == nil {
		return a.nullError(recv)
	}
	return super.runInit(a, o, args)
}

// ---------------------------------------------------------------------------
// Object creation
// ---------------------------------------------------------------------------

func (a *Activation) newObject(n int) error {
	pairs := a.popN(2 * n)
	o := a.vm.NewObject(nil)
	for i := 0; i+1 < len(pairs); i += 2 {
		name, err := a.ToString(pairs[i])
		if err != nil {
			return err
		}
		o.dynamic.set(name.String(), pairs[i+1])
	}
	a.push(ObjectValue(o))
	return nil
}

func (a *Activation) newClass(idx int) error {
	def, err := a.method.unit.classAt(idx)
	if err != nil {
		return err
	}
	base := a.pop()
	var super *ClassObject
	switch o := base.AsObject(); {
	case o != nil && o.kind == ObjectClass:
		super = o.classData
	case base.IsNullish():
		super = a.vm.system.Object
	default:
		return a.Throw(CodeCannotExtend, def.Name, a.describe(base))
	}
	c, err := a.vm.DefineClass(a, def, super, a.captureScope())
	if err != nil {
		return err
	}
	a.push(ObjectValue(c.object))
	return nil
}

// newCatch creates the scope object holding a handler's exception
// variable.
func (a *Activation) newCatch(idx int) error {
	handlers := a.method.Body.Exceptions
	if idx < 0 || idx >= len(handlers) {
		return &HostError{Code: CodeCpoolIndex, Err: fmt.Errorf("exception %d out of range %d", idx, len(handlers))}
	}
	h := handlers[idx]
	var traits []Trait
	if !h.VarName.IsAny() {
		traits = []Trait{{Name: h.VarName, Kind: TraitSlot, Type: h.Type}}
	}
	vt, err := newVTable(nil, nil, traits)
	if err != nil {
		return &HostError{Err: err}
	}
	o := alloc(a.vm, &Object{kind: ObjectActivation, vtable: vt, slots: vt.initialSlots(a.vm)})
	a.push(ObjectValue(o))
	return nil
}

// ---------------------------------------------------------------------------
// Enumeration
// ---------------------------------------------------------------------------

// nextIndex returns the index after iv for for-in over obj, or 0 when
// enumeration is done. Only own enumerable properties are visited.
func (a *Activation) nextIndex(obj, iv Value) (int, *Object, error) {
	i, err := a.ToInt32(iv)
	if err != nil {
		return 0, nil, err
	}
	o := obj.AsObject()
	if o == nil || i < 0 {
		return 0, nil, nil
	}
	if int(i) < len(o.EnumerableNames()) {
		return int(i) + 1, o, nil
	}
	return 0, nil, nil
}

func (a *Activation) hasNext2(objReg, idxReg int) error {
	obj, err := a.local(objReg)
	if err != nil {
		return err
	}
	iv, err := a.local(idxReg)
	if err != nil {
		return err
	}
	next, o, err := a.nextIndex(obj, iv)
	if err != nil {
		return err
	}
	if o == nil {
		obj = Null
	}
	if err := a.setLocal(objReg, obj); err != nil {
		return err
	}
	if err := a.setLocal(idxReg, Int(int32(next))); err != nil {
		return err
	}
	a.push(Bool(next != 0))
	return nil
}

func (a *Activation) nextEntry(obj, iv Value, value bool) error {
	i, err := a.ToInt32(iv)
	if err != nil {
		return err
	}
	o := obj.AsObject()
	if o == nil {
		a.push(Undefined)
		return nil
	}
	names := o.EnumerableNames()
	if i < 1 || int(i) > len(names) {
		a.push(Undefined)
		return nil
	}
	name := names[i-1]
	if !value {
		a.push(Str(name))
		return nil
	}
	v, err := o.GetProperty(a, PublicName(name))
	if err != nil {
		return err
	}
	a.push(v)
	return nil
}
