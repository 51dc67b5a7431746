package avm1

import (
	"strings"

	"github.com/chazu/avmcore/heap"
)

// ---------------------------------------------------------------------------
// Activation: one call's execution state
// ---------------------------------------------------------------------------

// Activation holds the mutable state of one invocation: its registers,
// scope, bound specials and the recursion counters passed down from the
// caller. It is owned by the goroutine running it and never shared.
type Activation struct {
	vm        *VM
	name      string
	version   uint8
	scope     *Scope
	constants []Value
	baseClip  *Clip
	target    *Clip
	this      Value
	callee    *Object
	args      []Value
	caller    *Activation

	// registers is nil for functions that share the VM's global registers.
	registers []Value
	stack     []Value

	depth        int
	specialDepth int
	reason       ExecutionReason
}

// VM returns the owning VM.
func (a *Activation) VM() *VM { return a.vm }

// Version returns the document version governing this activation.
func (a *Activation) Version() uint8 { return a.version }

// Scope returns the current scope frame.
func (a *Activation) Scope() *Scope { return a.scope }

// This returns the bound receiver.
func (a *Activation) This() Value { return a.this }

// BaseClip returns the clip whose timeline anchors this activation.
func (a *Activation) BaseClip() *Clip { return a.baseClip }

// Depth returns the recursion depth.
func (a *Activation) Depth() int { return a.depth }

// Reason returns why the activation was created.
func (a *Activation) Reason() ExecutionReason { return a.reason }

func (a *Activation) caseSensitive() bool { return a.version >= 7 }

// Register reads register n. Out-of-range registers read as undefined.
func (a *Activation) Register(n int) Value {
	regs := a.registerFile()
	if n < 0 || n >= len(regs) {
		return Undefined
	}
	return regs[n]
}

// SetRegister writes register n. Out-of-range writes are ignored.
func (a *Activation) SetRegister(n int, v Value) {
	regs := a.registerFile()
	if n >= 0 && n < len(regs) {
		regs[n] = v
	}
}

func (a *Activation) registerFile() []Value {
	if a.registers != nil {
		return a.registers
	}
	return a.vm.registers[:]
}

func (a *Activation) trace(t *heap.Tracer) {
	t.Mark(a.scope)
	for _, c := range a.constants {
		c.trace(t)
	}
	if a.baseClip != nil {
		t.Mark(a.baseClip.object)
	}
	if a.target != nil {
		t.Mark(a.target.object)
	}
	a.this.trace(t)
	if a.callee != nil {
		t.Mark(a.callee)
	}
	for _, v := range a.args {
		v.trace(t)
	}
	for _, v := range a.registers {
		v.trace(t)
	}
	for _, v := range a.stack {
		v.trace(t)
	}
}

// ---------------------------------------------------------------------------
// Calling convention
// ---------------------------------------------------------------------------

// Call invokes fn with an explicit receiver.
func (a *Activation) Call(fn *Object, this Value, args []Value) (Value, error) {
	return a.invoke(fn, this, 0, args, ReasonFunctionCall)
}

// callSpecial runs an implicit invocation (getter, setter, conversion),
// which has its own depth limit.
func (a *Activation) callSpecial(fn *Object, this Value, args []Value) (Value, error) {
	return a.invoke(fn, this, 0, args, ReasonSpecial)
}

// invoke is the calling convention: choose closure or legacy scoping,
// allocate a fresh local frame and register file, preload specials,
// bind parameters and run the body.
func (a *Activation) invoke(callee *Object, this Value, depth int, args []Value, reason ExecutionReason) (Value, error) {
	if callee == nil || callee.kind != ObjectFunction {
		return Undefined, nil
	}
	vm := a.vm
	if a.depth+1 > vm.limits.MaxRecursionDepth {
		return Undefined, &HaltError{Reason: FunctionRecursionLimit}
	}
	specialDepth := a.specialDepth
	if reason == ReasonSpecial {
		specialDepth++
		if specialDepth > vm.limits.MaxSpecialDepth {
			return Undefined, &HaltError{Reason: SpecialRecursionLimit}
		}
	}

	f := callee.fn
	if f.IsNative() {
		child := &Activation{
			vm: vm, name: f.Name, version: a.version, scope: a.scope,
			constants: a.constants, baseClip: a.baseClip, target: a.target,
			this: this, callee: callee, args: args, caller: a,
			depth: a.depth + 1, specialDepth: specialDepth, reason: reason,
		}
		vm.enter(child)
		defer vm.leave()
		thisObj := child.ToObject(this)
		if f.table != nil {
			return f.table(child, thisObj, args, f.index)
		}
		return f.native(child, thisObj, args)
	}

	// Closure or legacy scoping.
	var parent *Scope
	version, base := f.Version, f.baseClip
	if f.Version >= ClosureVersion && f.scope != nil {
		parent = f.scope
	} else {
		version, base = a.version, a.baseClip
		if base == nil {
			base = vm.root
		}
		parent = vm.NewTargetScope(vm.NewGlobalScope(), base)
	}
	if base == nil {
		base = vm.root
	}
	scope := vm.NewLocalScope(parent)

	child := &Activation{
		vm: vm, name: f.Name, version: version, scope: scope,
		constants: f.constants, baseClip: base, target: base,
		this: this, callee: callee, args: args, caller: a,
		depth: a.depth + 1, specialDepth: specialDepth, reason: reason,
	}
	if f.IsFunction2 {
		// Register 0 is reserved, so the file always has at least one slot.
		n := int(f.RegisterCount)
		if n < 1 {
			n = 1
		}
		child.registers = make([]Value, n)
	}

	child.preload(f, depth)

	for i, p := range f.Params {
		v := Undefined
		if i < len(args) {
			v = args[i]
		}
		if f.IsFunction2 && p.Register != 0 {
			child.SetRegister(int(p.Register), v)
		} else {
			scope.ForceDefineLocal(p.Name, v)
		}
	}

	return vm.runActivation(child, f.Code)
}

// preload applies the preload plan for f.
func (a *Activation) preload(f *Function, superDepth int) {
	hasParent := a.baseClip != nil && a.baseClip.parent != nil
	for _, slot := range PlanPreload(f.Flags, hasParent) {
		v := Undefined
		if !slot.Suppressed {
			v = a.specialValue(slot.Special, superDepth)
		}
		switch slot.Binding {
		case BindRegister:
			a.SetRegister(int(slot.Register), v)
		case BindNamed:
			a.scope.ForceDefineLocal(slot.Special.String(), v)
		}
	}
}

func (a *Activation) specialValue(s Special, superDepth int) Value {
	vm := a.vm
	switch s {
	case SpecialThis:
		return a.this
	case SpecialArguments:
		return ObjectValue(a.newArguments())
	case SpecialSuper:
		if t := a.this.AsObject(); t != nil {
			return ObjectValue(vm.NewSuper(t, superDepth))
		}
	case SpecialRoot:
		if a.baseClip != nil {
			return ObjectValue(a.baseClip.Root().object)
		}
	case SpecialParent:
		if a.baseClip != nil && a.baseClip.parent != nil {
			return ObjectValue(a.baseClip.parent.object)
		}
	case SpecialGlobal:
		return ObjectValue(vm.global)
	}
	return Undefined
}

func (a *Activation) newArguments() *Object {
	vm := a.vm
	o := alloc(vm, &Object{kind: ObjectArguments, proto: vm.protos.Array})
	for _, v := range a.args {
		o.Push(v)
	}
	o.Define("callee", ObjectValue(a.callee), DontEnum)
	caller := Null
	if a.caller != nil && a.caller.callee != nil {
		caller = ObjectValue(a.caller.callee)
	}
	o.Define("caller", caller, DontEnum)
	return o
}

// Construct runs new ctor(args...).
func (a *Activation) Construct(ctor *Object, args []Value) (Value, error) {
	if ctor == nil || ctor.kind != ObjectFunction {
		return Undefined, nil
	}
	pv, err := ctor.Get(a, "prototype")
	if err != nil {
		return Undefined, err
	}
	proto := pv.AsObject()
	if proto == nil {
		proto = a.vm.protos.Object
	}
	this := a.vm.NewObject(proto)
	this.Define("__constructor__", ObjectValue(ctor), DontEnum)
	if a.version < 7 {
		this.Define("constructor", ObjectValue(ctor), DontEnum)
	}

	if native := ctor.fn.ctor; native != nil {
		if a.depth+1 > a.vm.limits.MaxRecursionDepth {
			return Undefined, &HaltError{Reason: FunctionRecursionLimit}
		}
		child := *a
		child.depth++
		child.callee, child.this, child.args, child.caller = ctor, ObjectValue(this), args, a
		child.stack = nil
		a.vm.enter(&child)
		r, err := native(&child, this, args)
		a.vm.leave()
		if err != nil {
			return Undefined, err
		}
		if r.AsObject() != nil {
			return r, nil
		}
		return ObjectValue(this), nil
	}

	// Constructors run one level up so super() reaches the parent class.
	if _, err := a.invoke(ctor, ObjectValue(this), 1, args, ReasonFunctionCall); err != nil {
		return Undefined, err
	}
	return ObjectValue(this), nil
}

// ---------------------------------------------------------------------------
// Variable access with target paths
// ---------------------------------------------------------------------------

// GetVariable resolves a possibly path-qualified variable name, e.g.
// "x", "_root.menu.x" or "/menu:x". Unresolved names read as undefined.
func (a *Activation) GetVariable(name string) (Value, error) {
	obj, varName, ok, err := a.splitPath(name)
	if err != nil || !ok {
		return Undefined, err
	}
	if obj != nil {
		return obj.Get(a, varName)
	}
	switch varName {
	case "this":
		if _, found := a.scope.Resolve(a, "this"); !found {
			return a.this, nil
		}
	case "_global":
		if a.version >= 6 {
			return ObjectValue(a.vm.global), nil
		}
	}
	return a.scope.Get(a, varName)
}

// SetVariable assigns a possibly path-qualified variable.
func (a *Activation) SetVariable(name string, v Value) error {
	obj, varName, ok, err := a.splitPath(name)
	if err != nil || !ok {
		return err
	}
	if obj != nil {
		return obj.Set(a, varName, v)
	}
	return a.scope.Set(a, varName, v)
}

// splitPath separates a target path from the variable name. A nil object
// with ok set means the name is unqualified.
func (a *Activation) splitPath(name string) (*Object, string, bool, error) {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		c := a.resolveTarget(name[:i])
		if c == nil {
			return nil, "", false, nil
		}
		return c.object, name[i+1:], true, nil
	}
	if !strings.ContainsRune(name, '.') || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return nil, name, true, nil
	}
	parts := strings.Split(name, ".")
	v, err := a.GetVariable(parts[0])
	if err != nil {
		return nil, "", false, err
	}
	for _, p := range parts[1 : len(parts)-1] {
		o := a.ToObject(v)
		if o == nil {
			return nil, "", false, nil
		}
		if v, err = o.Get(a, p); err != nil {
			return nil, "", false, err
		}
	}
	o := a.ToObject(v)
	if o == nil {
		return nil, "", false, nil
	}
	return o, parts[len(parts)-1], true, nil
}

// resolveTarget resolves a slash or dotted clip path relative to the
// current target.
func (a *Activation) resolveTarget(path string) *Clip {
	base := a.target
	if base == nil {
		base = a.vm.root
	}
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "_level0") || strings.HasPrefix(path, "_root") {
		return a.vm.ResolvePath(path)
	}
	cur := base
	for _, p := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '.' }) {
		switch p {
		case "..", "_parent":
			cur = cur.parent
		default:
			cur = cur.Child(p, a.caseSensitive())
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}
