package avm2

import (
	"github.com/chazu/avmcore/heap"
)

// ---------------------------------------------------------------------------
// Activation: one method invocation
// ---------------------------------------------------------------------------

// Activation is the state of one running method: receiver, locals,
// operand and scope stacks, the captured scope chain and the class the
// method was bound through, which super calls resolve against.
type Activation struct {
	vm     *VM
	method *Method
	this   Value
	callee *Object
	class  *ClassObject
	outer  *ScopeChain

	locals     []Value
	stack      []Value
	scopes     []scopeEntry
	activation *Object

	code    []byte
	pc      int
	opStart int
	fault   error
}

func (a *Activation) VM() *VM             { return a.vm }
func (a *Activation) This() Value         { return a.this }
func (a *Activation) Method() *Method     { return a.method }
func (a *Activation) Class() *ClassObject { return a.class }
func (a *Activation) Callee() *Object     { return a.callee }
func (a *Activation) Scope() *ScopeChain  { return a.outer }

// Local reads local register n; out of range reads undefined.
func (a *Activation) Local(n int) Value {
	if n < 0 || n >= len(a.locals) {
		return Undefined
	}
	return a.locals[n]
}

func (a *Activation) trace(t *heap.Tracer) {
	a.this.trace(t)
	if a.callee != nil {
		t.Mark(a.callee)
	}
	if a.class != nil {
		t.Mark(a.class.object)
	}
	a.outer.trace(t)
	for _, v := range a.locals {
		v.trace(t)
	}
	for _, v := range a.stack {
		v.trace(t)
	}
	for _, e := range a.scopes {
		t.Mark(e.object)
	}
	if a.activation != nil {
		t.Mark(a.activation)
	}
}

func (vm *VM) enter(a *Activation) { vm.frames = append(vm.frames, a) }
func (vm *VM) leave()              { vm.frames = vm.frames[:len(vm.frames)-1] }

// ---------------------------------------------------------------------------
// Calling convention
// ---------------------------------------------------------------------------

// invoke runs m with receiver this. scope is the chain the method closes
// over and class the class it was bound through. Exceeding the
// recursion limit is a host failure: the unit aborts and no handler
// runs.
func (vm *VM) invoke(caller *Activation, m *Method, this Value, args []Value, scope *ScopeChain, class *ClassObject, callee *Object) (Value, error) {
	if len(vm.frames) >= vm.limits.MaxRecursionDepth {
		vm.log.Warningf("recursion limit %d reached in %s", vm.limits.MaxRecursionDepth, m.displayName())
		return Undefined, &HostError{Code: CodeStackOverflow}
	}
	a := &Activation{vm: vm, method: m, this: this, callee: callee, class: class, outer: scope}
	vm.enter(a)
	defer vm.leave()

	switch {
	case m.Native != nil:
		return m.Native(a, this, args)
	case m.Table != nil:
		return m.Table(a, this, args, m.TableIndex)
	case m.Body == nil:
		return Undefined, hostErrorf(0, "method %s has no body", m.displayName())
	}
	if err := a.bindArguments(args); err != nil {
		return Undefined, err
	}
	return a.run()
}

// Bounds on the frame a method body may declare.
const (
	maxLocals = 1 << 16
	maxStack  = 1 << 16
)

// bindArguments lays out the locals: the receiver in register 0, then
// the declared parameters coerced to their types, defaults filling the
// missing optional ones, then the rest array or the arguments object.
func (a *Activation) bindArguments(args []Value) error {
	m := a.method
	declared := len(m.Params)
	required := m.requiredParams()
	switch {
	case len(args) < required:
		return a.Throw(CodeArgumentCount, m.displayName(), required, len(args))
	case len(args) > declared && !m.Flags.Has(NeedRest|NeedArguments):
		return a.Throw(CodeArgumentCount, m.displayName(), declared, len(args))
	}

	if b := m.Body; b.LocalCount < 0 || b.LocalCount > maxLocals {
		return hostErrorf(CodeInvalidRegister, "%s declares %d locals, limit %d", m.displayName(), b.LocalCount, maxLocals)
	} else if b.MaxStack < 0 || b.MaxStack > maxStack {
		return hostErrorf(CodeStackOverflow, "%s declares a stack of %d, limit %d", m.displayName(), b.MaxStack, maxStack)
	}

	n := declared + 1
	if m.Flags.Has(NeedRest | NeedArguments) {
		n++
	}
	if n < m.Body.LocalCount {
		n = m.Body.LocalCount
	}
	a.locals = make([]Value, n)
	a.locals[0] = a.this

	for i, p := range m.Params {
		v := Undefined
		switch {
		case i < len(args):
			v = args[i]
		case p.Default != nil:
			v = p.Default.Value()
		}
		cv, err := a.coerce(v, p.Type)
		if err != nil {
			return err
		}
		a.locals[i+1] = cv
	}

	switch {
	case m.Flags.Has(NeedRest):
		var rest []Value
		if len(args) > declared {
			rest = args[declared:]
		}
		a.locals[declared+1] = ObjectValue(a.vm.NewArray(rest))
	case m.Flags.Has(NeedArguments):
		arguments := a.vm.NewArray(args)
		if a.callee != nil {
			arguments.dynamic.setHidden("callee", ObjectValue(a.callee))
		}
		a.locals[declared+1] = ObjectValue(arguments)
	}

	a.stack = make([]Value, 0, m.Body.MaxStack)
	a.code = m.Body.Code
	return nil
}

// callMethod invokes a trait method bound through declarer.
func (vm *VM) callMethod(caller *Activation, m *Method, declarer *VTable, this Value, args []Value) (Value, error) {
	return vm.invoke(caller, m, this, args, declarer.scope, declarer.class, nil)
}

// callClosure invokes a function object. Method closures keep their
// bound receiver; plain closures called without one get the global
// object of their scope.
func (vm *VM) callClosure(caller *Activation, fn *Object, this Value, args []Value) (Value, error) {
	c := fn.fn
	if c.method == nil {
		return Undefined, nil
	}
	switch {
	case c.bound:
		this = c.this
	case this.IsNullish():
		if c.scope != nil {
			this = ObjectValue(c.scope.Global())
		} else {
			this = ObjectValue(vm.global)
		}
	}
	return vm.invoke(caller, c.method, this, args, c.scope, c.class, fn)
}
