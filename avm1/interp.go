package avm1

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/chazu/avmcore/wstr"
)

type control uint8

const (
	controlContinue control = iota
	controlReturn
)

var startTime = time.Now()

// ---------------------------------------------------------------------------
// Operand stack
// ---------------------------------------------------------------------------

func (a *Activation) push(v Value) { a.stack = append(a.stack, v) }

// pop returns undefined on underflow, as the player does.
func (a *Activation) pop() Value {
	n := len(a.stack)
	if n == 0 {
		return Undefined
	}
	v := a.stack[n-1]
	a.stack = a.stack[:n-1]
	return v
}

func (a *Activation) peek() Value {
	if len(a.stack) == 0 {
		return Undefined
	}
	return a.stack[len(a.stack)-1]
}

func (a *Activation) popNumber() (float64, error) { return a.ToNumber(a.pop()) }

func (a *Activation) popString() (string, error) {
	s, err := a.ToString(a.pop())
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

// popArgs pops a count followed by that many arguments, first argument on top.
func (a *Activation) popArgs() ([]Value, error) {
	n, err := a.popNumber()
	if err != nil {
		return nil, err
	}
	count := int(ToInt32(n))
	if count < 0 {
		count = 0
	}
	if count > len(a.stack) {
		count = len(a.stack)
	}
	args := make([]Value, count)
	for i := range args {
		args[i] = a.pop()
	}
	return args, nil
}

func (a *Activation) legacyBool(b bool) Value {
	if a.version < 5 {
		if b {
			return Number(1)
		}
		return Number(0)
	}
	return Bool(b)
}

func (a *Activation) decodeString(b []byte) *wstr.Str {
	s, err := wstr.Decode(b, a.version)
	if err != nil {
		s = wstr.FromLatin1(b)
	}
	return a.vm.strings.InternStr(s)
}

// ---------------------------------------------------------------------------
// Block execution
// ---------------------------------------------------------------------------

// runBlock executes actions until the block ends or a Return unwinds.
func (a *Activation) runBlock(code []byte) (control, Value, error) {
	r := NewActionReader(code)
	for !r.AtEnd() {
		if err := a.vm.checkTimeout(); err != nil {
			return controlContinue, Undefined, err
		}
		op, data, err := r.Next()
		if err != nil {
			return controlContinue, Undefined, err
		}
		if op == ActionEnd {
			break
		}
		ctl, v, err := a.step(r, op, data)
		if err != nil || ctl == controlReturn {
			return ctl, v, err
		}
	}
	return controlContinue, Undefined, nil
}

func (a *Activation) step(r *ActionReader, op ActionCode, data []byte) (control, Value, error) {
	var err error
	switch op {
	case ActionNextFrame, ActionPrevFrame, ActionPlay, ActionStop:
		// Timeline control belongs to the display subsystem.

	case ActionAdd, ActionSubtract, ActionMultiply, ActionDivide, ActionModulo:
		err = a.arith(op)
	case ActionEquals, ActionLess:
		var x, y float64
		if y, err = a.popNumber(); err == nil {
			if x, err = a.popNumber(); err == nil {
				if op == ActionEquals {
					a.push(a.legacyBool(x == y))
				} else {
					a.push(a.legacyBool(x < y))
				}
			}
		}
	case ActionAnd, ActionOr:
		y := a.pop().ToBoolean(a.version)
		x := a.pop().ToBoolean(a.version)
		if op == ActionAnd {
			a.push(a.legacyBool(x && y))
		} else {
			a.push(a.legacyBool(x || y))
		}
	case ActionNot:
		a.push(a.legacyBool(!a.pop().ToBoolean(a.version)))

	case ActionStringEquals, ActionStringLess, ActionStringGreater:
		var x, y string
		if y, err = a.popString(); err == nil {
			if x, err = a.popString(); err == nil {
				c := wstr.New(x).Compare(wstr.New(y))
				switch op {
				case ActionStringEquals:
					a.push(a.legacyBool(c == 0))
				case ActionStringLess:
					a.push(a.legacyBool(c < 0))
				default:
					a.push(a.legacyBool(c > 0))
				}
			}
		}
	case ActionStringLength:
		var s *wstr.Str
		if s, err = a.ToString(a.pop()); err == nil {
			a.push(Number(float64(s.Len())))
		}
	case ActionStringExtract:
		err = a.stringExtract()
	case ActionStringAdd:
		var x, y *wstr.Str
		if y, err = a.ToString(a.pop()); err == nil {
			if x, err = a.ToString(a.pop()); err == nil {
				a.push(String(x.Concat(y)))
			}
		}
	case ActionToInteger:
		var n float64
		if n, err = a.popNumber(); err == nil {
			a.push(Number(float64(ToInt32(n))))
		}
	case ActionPop:
		a.pop()

	case ActionGetVariable:
		var name string
		if name, err = a.popString(); err == nil {
			var v Value
			if v, err = a.GetVariable(name); err == nil {
				a.push(v)
			}
		}
	case ActionSetVariable:
		v := a.pop()
		var name string
		if name, err = a.popString(); err == nil {
			err = a.SetVariable(name, v)
		}
	case ActionSetTarget2:
		var path string
		if path, err = a.popString(); err == nil {
			a.setTarget(path)
		}
	case ActionSetTarget:
		p := &payload{b: data}
		path := string(p.cstr())
		if p.err != nil {
			return controlContinue, Undefined, p.err
		}
		a.setTarget(path)
	case ActionTrace:
		v := a.pop()
		if v.IsUndefined() {
			a.vm.emitTrace("undefined")
			break
		}
		var s *wstr.Str
		if s, err = a.ToString(v); err == nil {
			a.vm.emitTrace(s.String())
		}
	case ActionThrow:
		return controlContinue, Undefined, &Thrown{Value: a.pop()}
	case ActionRandomNumber:
		var n float64
		if n, err = a.popNumber(); err == nil {
			max := int(ToInt32(n))
			if max <= 0 {
				a.push(Number(0))
			} else {
				a.push(Number(float64(rand.Intn(max))))
			}
		}
	case ActionGetTime:
		a.push(Number(float64(time.Since(startTime).Milliseconds())))

	case ActionDelete:
		var name string
		if name, err = a.popString(); err == nil {
			o := a.ToObject(a.pop())
			a.push(Bool(o != nil && o.Delete(a, name)))
		}
	case ActionDelete2:
		var name string
		if name, err = a.popString(); err == nil {
			a.push(Bool(a.scope.Delete(a, name)))
		}
	case ActionDefineLocal:
		v := a.pop()
		var name string
		if name, err = a.popString(); err == nil {
			err = a.scope.DefineLocal(a, name, v)
		}
	case ActionDefineLocal2:
		var name string
		if name, err = a.popString(); err == nil {
			frame := a.scope
			for frame.class == ScopeWith && frame.parent != nil {
				frame = frame.parent
			}
			if !frame.values.HasOwnProperty(a, name) {
				err = frame.values.Set(a, name, Undefined)
			}
		}

	case ActionCallFunction:
		err = a.callFunctionAction()
	case ActionCallMethod:
		err = a.callMethodAction()
	case ActionNewObject:
		err = a.newObjectAction()
	case ActionNewMethod:
		err = a.newMethodAction()
	case ActionReturn:
		return controlReturn, a.pop(), nil

	case ActionInitArray:
		var n float64
		if n, err = a.popNumber(); err == nil {
			count := min(max(int(ToInt32(n)), 0), len(a.stack))
			values := make([]Value, 0, count)
			for range count {
				values = append(values, a.pop())
			}
			a.push(ObjectValue(a.vm.NewArray(values)))
		}
	case ActionInitObject:
		err = a.initObject()
	case ActionTypeOf:
		a.push(Str(a.pop().TypeOf()))
	case ActionTargetPath:
		v := a.pop()
		if o := v.AsObject(); o != nil && o.kind == ObjectClip {
			a.push(Str(o.clip.Path()))
		} else {
			a.push(Undefined)
		}
	case ActionEnumerate:
		var name string
		if name, err = a.popString(); err == nil {
			var v Value
			if v, err = a.GetVariable(name); err == nil {
				a.enumerate(v)
			}
		}
	case ActionEnumerate2:
		a.enumerate(a.pop())

	case ActionAdd2:
		err = a.add2()
	case ActionLess2, ActionGreater:
		y, x := a.pop(), a.pop()
		if op == ActionGreater {
			x, y = y, x
		}
		var lt, ok bool
		if lt, ok, err = a.LessThan(x, y); err == nil {
			if ok {
				a.push(Bool(lt))
			} else {
				a.push(Undefined)
			}
		}
	case ActionEquals2:
		y, x := a.pop(), a.pop()
		var eq bool
		if eq, err = a.LooseEquals(x, y); err == nil {
			a.push(Bool(eq))
		}
	case ActionStrictEquals:
		y, x := a.pop(), a.pop()
		a.push(Bool(x.StrictEquals(y)))
	case ActionToNumber:
		var n float64
		if n, err = a.popNumber(); err == nil {
			a.push(Number(n))
		}
	case ActionToString:
		var s *wstr.Str
		if s, err = a.ToString(a.pop()); err == nil {
			a.push(String(s))
		}
	case ActionPushDuplicate:
		a.push(a.peek())
	case ActionStackSwap:
		y, x := a.pop(), a.pop()
		a.push(y)
		a.push(x)
	case ActionGetMember:
		var name string
		if name, err = a.popString(); err == nil {
			o := a.ToObject(a.pop())
			v := Undefined
			if o != nil {
				v, err = o.Get(a, name)
			}
			a.push(v)
		}
	case ActionSetMember:
		v := a.pop()
		var name string
		if name, err = a.popString(); err == nil {
			if o := a.ToObject(a.pop()); o != nil {
				err = o.Set(a, name, v)
			}
		}
	case ActionIncrement, ActionDecrement:
		var n float64
		if n, err = a.popNumber(); err == nil {
			if op == ActionIncrement {
				a.push(Number(n + 1))
			} else {
				a.push(Number(n - 1))
			}
		}
	case ActionInstanceOf:
		ctor := a.pop().AsObject()
		obj := a.pop().AsObject()
		is := false
		if ctor != nil && obj != nil {
			is, err = obj.IsInstanceOf(a, ctor)
		}
		a.push(Bool(is))
	case ActionCastOp:
		obj := a.pop()
		ctor := a.pop().AsObject()
		o := obj.AsObject()
		is := false
		if ctor != nil && o != nil {
			is, err = o.IsInstanceOf(a, ctor)
		}
		if is {
			a.push(obj)
		} else {
			a.push(Null)
		}
	case ActionImplementsOp:
		err = a.implements()
	case ActionExtends:
		err = a.extends()

	case ActionBitAnd, ActionBitOr, ActionBitXor, ActionBitLShift, ActionBitRShift, ActionBitURShift:
		err = a.bitwise(op)

	case ActionStoreRegister:
		p := &payload{b: data}
		reg := p.u8()
		if p.err != nil {
			return controlContinue, Undefined, p.err
		}
		a.SetRegister(int(reg), a.peek())
	case ActionConstantPool:
		p := &payload{b: data}
		n := int(p.u16())
		pool := make([]Value, 0, n)
		for i := 0; i < n && p.err == nil; i++ {
			pool = append(pool, String(a.decodeString(p.cstr())))
		}
		if p.err != nil {
			return controlContinue, Undefined, p.err
		}
		a.constants = pool
	case ActionPush:
		err = a.pushAction(data)
	case ActionJump:
		p := &payload{b: data}
		off := int(p.i16())
		if p.err != nil {
			return controlContinue, Undefined, p.err
		}
		r.Seek(r.Pos() + off)
	case ActionIf:
		p := &payload{b: data}
		off := int(p.i16())
		if p.err != nil {
			return controlContinue, Undefined, p.err
		}
		if a.pop().ToBoolean(a.version) {
			r.Seek(r.Pos() + off)
		}
	case ActionDefineFunction, ActionDefineFunction2:
		err = a.defineFunction(r, op, data)
	case ActionWith:
		return a.with(r, data)
	case ActionTry:
		return a.try(r, data)

	default:
		a.vm.log.Debugf("skipping unknown action %s", op)
	}
	return controlContinue, Undefined, err
}

// ---------------------------------------------------------------------------
// Action helpers
// ---------------------------------------------------------------------------

func (a *Activation) arith(op ActionCode) error {
	y, err := a.popNumber()
	if err != nil {
		return err
	}
	x, err := a.popNumber()
	if err != nil {
		return err
	}
	switch op {
	case ActionAdd:
		a.push(Number(x + y))
	case ActionSubtract:
		a.push(Number(x - y))
	case ActionMultiply:
		a.push(Number(x * y))
	case ActionDivide:
		if y == 0 && a.version < 5 {
			a.push(Str("#ERROR#"))
		} else {
			a.push(Number(x / y))
		}
	case ActionModulo:
		a.push(Number(math.Mod(x, y)))
	}
	return nil
}

func (a *Activation) bitwise(op ActionCode) error {
	y, err := a.popNumber()
	if err != nil {
		return err
	}
	x, err := a.popNumber()
	if err != nil {
		return err
	}
	l, r := ToInt32(x), ToInt32(y)
	switch op {
	case ActionBitAnd:
		a.push(Number(float64(l & r)))
	case ActionBitOr:
		a.push(Number(float64(l | r)))
	case ActionBitXor:
		a.push(Number(float64(l ^ r)))
	case ActionBitLShift:
		a.push(Number(float64(l << (uint32(r) & 31))))
	case ActionBitRShift:
		a.push(Number(float64(l >> (uint32(r) & 31))))
	case ActionBitURShift:
		a.push(Number(float64(uint32(l) >> (uint32(r) & 31))))
	}
	return nil
}

func (a *Activation) add2() error {
	y, x := a.pop(), a.pop()
	px, err := a.ToPrimitive(x, HintNumber)
	if err != nil {
		return err
	}
	py, err := a.ToPrimitive(y, HintNumber)
	if err != nil {
		return err
	}
	if px.kind == KindString || py.kind == KindString {
		sx, err := a.ToString(px)
		if err != nil {
			return err
		}
		sy, err := a.ToString(py)
		if err != nil {
			return err
		}
		a.push(String(sx.Concat(sy)))
		return nil
	}
	a.push(Number(px.primitiveToNumber(a.version) + py.primitiveToNumber(a.version)))
	return nil
}

func (a *Activation) stringExtract() error {
	count, err := a.popNumber()
	if err != nil {
		return err
	}
	index, err := a.popNumber()
	if err != nil {
		return err
	}
	s, err := a.ToString(a.pop())
	if err != nil {
		return err
	}
	// Indices are 1-based.
	start := int(ToInt32(index)) - 1
	if start < 0 {
		start = 0
	}
	n := int(ToInt32(count))
	end := s.Len()
	if n >= 0 && start+n < end {
		end = start + n
	}
	a.push(String(s.Slice(start, end)))
	return nil
}

func (a *Activation) enumerate(v Value) {
	a.push(Null)
	o := v.AsObject()
	if o == nil {
		return
	}
	for _, k := range o.Keys(a) {
		a.push(Str(k))
	}
}

func (a *Activation) initObject() error {
	n, err := a.popNumber()
	if err != nil {
		return err
	}
	o := a.vm.NewObject(a.vm.protos.Object)
	for i := 0; i < int(ToInt32(n)) && len(a.stack) > 0; i++ {
		v := a.pop()
		name, err := a.popString()
		if err != nil {
			return err
		}
		if err := o.Set(a, name, v); err != nil {
			return err
		}
	}
	a.push(ObjectValue(o))
	return nil
}

func (a *Activation) implements() error {
	ctor := a.pop().AsObject()
	n, err := a.popNumber()
	if err != nil {
		return err
	}
	var ifaces []*Object
	for i := 0; i < int(ToInt32(n)) && len(a.stack) > 0; i++ {
		if o := a.pop().AsObject(); o != nil {
			ifaces = append(ifaces, o)
		}
	}
	if ctor == nil {
		return nil
	}
	pv, err := ctor.Get(a, "prototype")
	if err != nil {
		return err
	}
	if proto := pv.AsObject(); proto != nil {
		proto.SetInterfaces(ifaces)
	}
	return nil
}

func (a *Activation) extends() error {
	superclass := a.pop().AsObject()
	subclass := a.pop().AsObject()
	if superclass == nil || subclass == nil {
		return nil
	}
	sp, err := superclass.Get(a, "prototype")
	if err != nil {
		return err
	}
	proto := a.vm.NewObject(sp.AsObject())
	proto.Define("__constructor__", ObjectValue(superclass), DontEnum)
	if a.version < 7 {
		proto.Define("constructor", ObjectValue(superclass), DontEnum)
	}
	return subclass.Set(a, "prototype", ObjectValue(proto))
}

func (a *Activation) setTarget(path string) {
	clip := a.baseClip
	if path != "" {
		clip = a.resolveTarget(path)
	}
	if clip == nil {
		a.vm.log.Warningf("SetTarget: target not found: %q", path)
		return
	}
	a.target = clip
	if a.scope.class == ScopeTarget {
		a.scope = a.vm.NewTargetScope(a.scope.parent, clip)
	}
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (a *Activation) targetThis() Value {
	if a.target != nil {
		return ObjectValue(a.target.object)
	}
	return ObjectValue(a.vm.root.object)
}

// callFunctionAction: bare call by name; this is the current target.
func (a *Activation) callFunctionAction() error {
	name, err := a.popString()
	if err != nil {
		return err
	}
	args, err := a.popArgs()
	if err != nil {
		return err
	}
	fv, err := a.GetVariable(name)
	if err != nil {
		return err
	}
	fn := fv.AsObject()
	if fn == nil || fn.kind != ObjectFunction {
		a.vm.log.Debugf("CallFunction: %q is not a function", name)
		a.push(Undefined)
		return nil
	}
	r, err := a.invoke(fn, a.targetThis(), 0, args, ReasonFunctionCall)
	if err != nil {
		return err
	}
	a.push(r)
	return nil
}

// callMethodAction: obj.name(args), or obj(args) for an empty name.
func (a *Activation) callMethodAction() error {
	nameVal := a.pop()
	objVal := a.pop()
	args, err := a.popArgs()
	if err != nil {
		return err
	}
	var name string
	if !nameVal.IsUndefined() {
		s, err := a.ToString(nameVal)
		if err != nil {
			return err
		}
		name = s.String()
	}

	obj := a.ToObject(objVal)
	if obj == nil {
		a.push(Undefined)
		return nil
	}

	var r Value
	switch {
	case obj.kind == ObjectSuper && name == "":
		r, err = obj.super.callConstructor(a, args)
	case obj.kind == ObjectSuper:
		r, err = obj.super.callMethod(a, name, args)
	case name == "":
		r, err = a.invoke(obj, a.targetThis(), 0, args, ReasonFunctionCall)
	default:
		var m Value
		var depth int
		if m, depth, err = findMethod(a, obj, obj, name); err != nil {
			return err
		}
		fn := m.AsObject()
		if fn == nil || fn.kind != ObjectFunction {
			a.vm.log.Debugf("CallMethod: %q is not a function", name)
			a.push(Undefined)
			return nil
		}
		r, err = a.invoke(fn, ObjectValue(obj), depth, args, ReasonFunctionCall)
	}
	if err != nil {
		return err
	}
	a.push(r)
	return nil
}

func (a *Activation) newObjectAction() error {
	name, err := a.popString()
	if err != nil {
		return err
	}
	args, err := a.popArgs()
	if err != nil {
		return err
	}
	cv, err := a.GetVariable(name)
	if err != nil {
		return err
	}
	r, err := a.Construct(cv.AsObject(), args)
	if err != nil {
		return err
	}
	a.push(r)
	return nil
}

func (a *Activation) newMethodAction() error {
	nameVal := a.pop()
	objVal := a.pop()
	args, err := a.popArgs()
	if err != nil {
		return err
	}
	ctor := a.ToObject(objVal)
	if ctor != nil && !nameVal.IsUndefined() {
		name, err := a.ToString(nameVal)
		if err != nil {
			return err
		}
		if name.Len() > 0 {
			cv, err := ctor.Get(a, name.String())
			if err != nil {
				return err
			}
			ctor = cv.AsObject()
		}
	}
	r, err := a.Construct(ctor, args)
	if err != nil {
		return err
	}
	a.push(r)
	return nil
}

// ---------------------------------------------------------------------------
// Actions with payloads
// ---------------------------------------------------------------------------

func (a *Activation) pushAction(data []byte) error {
	p := &payload{b: data}
	for p.more() {
		switch t := p.u8(); t {
		case pushString:
			a.push(String(a.decodeString(p.cstr())))
		case pushFloat:
			a.push(Number(float64(p.f32())))
		case pushNull:
			a.push(Null)
		case pushUndefined:
			a.push(Undefined)
		case pushRegister:
			a.push(a.Register(int(p.u8())))
		case pushBool:
			a.push(Bool(p.u8() != 0))
		case pushDouble:
			a.push(Number(p.f64()))
		case pushInt:
			a.push(Number(float64(int32(p.u32()))))
		case pushConstant8, pushConstant16:
			var i int
			if t == pushConstant8 {
				i = int(p.u8())
			} else {
				i = int(p.u16())
			}
			if i < len(a.constants) {
				a.push(a.constants[i])
			} else {
				a.vm.log.Warningf("Push: constant %d out of range (pool size %d)", i, len(a.constants))
				a.push(Undefined)
			}
		default:
			return invalidBytecode("unknown push type %d", t)
		}
	}
	return p.err
}

func (a *Activation) defineFunction(r *ActionReader, op ActionCode, data []byte) error {
	p := &payload{b: data}
	f := &Function{Version: a.version, IsFunction2: op == ActionDefineFunction2}
	f.Name = a.decodeString(p.cstr()).String()
	n := int(p.u16())
	if f.IsFunction2 {
		f.RegisterCount = p.u8()
		f.Flags = Flags(p.u16())
	}
	for i := 0; i < n && p.err == nil; i++ {
		var param Param
		if f.IsFunction2 {
			param.Register = p.u8()
		}
		param.Name = a.decodeString(p.cstr()).String()
		f.Params = append(f.Params, param)
	}
	size := int(p.u16())
	if p.err != nil {
		return p.err
	}
	code, err := r.Take(size)
	if err != nil {
		return err
	}
	f.Code = code

	obj := a.NewFunction(f)
	if f.Name == "" {
		a.push(ObjectValue(obj))
		return nil
	}
	return a.scope.DefineLocal(a, f.Name, ObjectValue(obj))
}

func (a *Activation) with(r *ActionReader, data []byte) (control, Value, error) {
	p := &payload{b: data}
	size := int(p.u16())
	if p.err != nil {
		return controlContinue, Undefined, p.err
	}
	body, err := r.Take(size)
	if err != nil {
		return controlContinue, Undefined, err
	}
	obj := a.ToObject(a.pop())
	if obj == nil {
		return a.runBlock(body)
	}
	saved := a.scope
	a.scope = a.vm.NewWithScope(saved, obj)
	defer func() { a.scope = saved }()
	return a.runBlock(body)
}

// try runs a try/catch/finally block. Only *Thrown errors are caught and
// only they run the finally block; host failures unwind untouched.
func (a *Activation) try(r *ActionReader, data []byte) (control, Value, error) {
	p := &payload{b: data}
	flags := p.u8()
	trySize, catchSize, finallySize := int(p.u16()), int(p.u16()), int(p.u16())
	var catchName string
	var catchReg uint8
	if flags&tryCatchInRegister != 0 {
		catchReg = p.u8()
	} else {
		catchName = a.decodeString(p.cstr()).String()
	}
	if p.err != nil {
		return controlContinue, Undefined, p.err
	}
	tryBody, err := r.Take(trySize)
	if err != nil {
		return controlContinue, Undefined, err
	}
	catchBody, err := r.Take(catchSize)
	if err != nil {
		return controlContinue, Undefined, err
	}
	finallyBody, err := r.Take(finallySize)
	if err != nil {
		return controlContinue, Undefined, err
	}

	depth := len(a.stack)
	ctl, v, err := a.runBlock(tryBody)

	var thrown *Thrown
	if errors.As(err, &thrown) && flags&tryHasCatch != 0 {
		a.stack = a.stack[:min(depth, len(a.stack))]
		if flags&tryCatchInRegister != 0 {
			a.SetRegister(int(catchReg), thrown.Value)
		} else if derr := a.scope.DefineLocal(a, catchName, thrown.Value); derr != nil {
			return controlContinue, Undefined, derr
		}
		ctl, v, err = a.runBlock(catchBody)
	}

	if flags&tryHasFinally != 0 && (err == nil || errors.As(err, &thrown)) {
		fctl, fv, ferr := a.runBlock(finallyBody)
		if ferr != nil {
			return controlContinue, Undefined, ferr
		}
		if fctl == controlReturn {
			return fctl, fv, nil
		}
	}
	return ctl, v, err
}
