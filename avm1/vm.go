// Package avm1 implements the first script dialect: dynamic objects with
// attribute-tagged properties and mutable prototype links, timeline-based
// scoping, the preload calling convention and the action interpreter.
package avm1

import (
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/avmcore/heap"
	"github.com/chazu/avmcore/wstr"
)

// Limits bound the host-level guards of one VM.
type Limits struct {
	MaxRecursionDepth int
	MaxPrototypeDepth int
	MaxSpecialDepth   int
	Timeout           time.Duration
}

// DefaultLimits returns the limits the reference player uses.
func DefaultLimits() Limits {
	return Limits{
		MaxRecursionDepth: 256,
		MaxPrototypeDepth: 255,
		MaxSpecialDepth:   32,
		Timeout:           15 * time.Second,
	}
}

// withDefaults fills every unset field from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxRecursionDepth <= 0 {
		l.MaxRecursionDepth = d.MaxRecursionDepth
	}
	if l.MaxPrototypeDepth <= 0 {
		l.MaxPrototypeDepth = d.MaxPrototypeDepth
	}
	if l.MaxSpecialDepth <= 0 {
		l.MaxSpecialDepth = d.MaxSpecialDepth
	}
	if l.Timeout <= 0 {
		l.Timeout = d.Timeout
	}
	return l
}

// Options configure a VM.
type Options struct {
	// Version is the document version of the root timeline.
	Version uint8
	Limits  Limits
	// Trace receives the output of the trace action. Nil logs it.
	Trace func(string)
}

// SystemPrototypes are the canonical prototype objects installed by
// bootstrap. Natives use them to construct built-in instances.
type SystemPrototypes struct {
	Object    *Object
	Function  *Object
	Array     *Object
	String    *Object
	Number    *Object
	Boolean   *Object
	Error     *Object
	MovieClip *Object
}

// VM is the per-document context of dialect 1. Everything a native needs
// hangs off it, so independent VMs never share state.
type VM struct {
	ID uuid.UUID

	heap    *heap.Heap
	strings *wstr.Interner
	version uint8
	limits  Limits

	global    *Object
	protos    SystemPrototypes
	registers [4]Value
	root      *Clip

	frames      []*Activation
	deadline    time.Time
	actionCount int

	trace      func(string)
	log        commonlog.Logger
	removeRoot func()
}

// NewVM creates a VM on h and runs bootstrap.
func NewVM(h *heap.Heap, opts Options) *VM {
	if opts.Version == 0 {
		opts.Version = 10
	}
	opts.Limits = opts.Limits.withDefaults()
	vm := &VM{
		ID:      uuid.New(),
		heap:    h,
		strings: wstr.NewInterner(),
		version: opts.Version,
		limits:  opts.Limits,
		trace:   opts.Trace,
		log:     commonlog.GetLogger("avm.avm1"),
	}
	vm.bootstrap()
	vm.root = vm.NewClip(nil, "_level0", opts.Version)
	vm.removeRoot = h.AddRoot(vm.traceRoots)
	vm.log.Debugf("vm %s ready (swf %d)", vm.ID, vm.version)
	return vm
}

func alloc[T heap.Object](vm *VM, o T) T {
	return heap.Alloc(vm.heap, o)
}

// Close detaches the VM from its heap; its objects become collectable.
func (vm *VM) Close() {
	if vm.removeRoot != nil {
		vm.removeRoot()
		vm.removeRoot = nil
	}
}

func (vm *VM) Heap() *heap.Heap             { return vm.heap }
func (vm *VM) Global() *Object              { return vm.global }
func (vm *VM) Root() *Clip                  { return vm.root }
func (vm *VM) Prototypes() SystemPrototypes { return vm.protos }
func (vm *VM) Version() uint8               { return vm.version }
func (vm *VM) Limits() Limits               { return vm.limits }
func (vm *VM) Strings() *wstr.Interner      { return vm.strings }

// NewObject allocates a plain object with the given prototype.
func (vm *VM) NewObject(proto *Object) *Object {
	return alloc(vm, &Object{proto: proto})
}

// NewArray allocates an array holding values.
func (vm *VM) NewArray(values []Value) *Object {
	o := alloc(vm, &Object{kind: ObjectArray, proto: vm.protos.Array})
	for _, v := range values {
		o.Push(v)
	}
	return o
}

func (vm *VM) newBoxed(v Value, proto *Object) *Object {
	return alloc(vm, &Object{kind: ObjectBoxed, proto: proto, prim: v})
}

func (vm *VM) traceRoots(t *heap.Tracer) {
	t.Mark(vm.global)
	for _, p := range []*Object{vm.protos.Object, vm.protos.Function, vm.protos.Array, vm.protos.String,
		vm.protos.Number, vm.protos.Boolean, vm.protos.Error, vm.protos.MovieClip} {
		if p != nil {
			t.Mark(p)
		}
	}
	for _, r := range vm.registers {
		r.trace(t)
	}
	if vm.root != nil {
		t.Mark(vm.root.object)
	}
	for _, a := range vm.frames {
		a.trace(t)
	}
}

func (vm *VM) enter(a *Activation) { vm.frames = append(vm.frames, a) }
func (vm *VM) leave()              { vm.frames = vm.frames[:len(vm.frames)-1] }

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// topLevel creates the activation used for timeline code on clip.
func (vm *VM) topLevel(clip *Clip, name string) *Activation {
	if clip == nil {
		clip = vm.root
	}
	scope := vm.NewTargetScope(vm.NewGlobalScope(), clip)
	return &Activation{
		vm: vm, name: name, version: clip.version, scope: scope,
		baseClip: clip, target: clip, this: ObjectValue(clip.object),
	}
}

// RunActions executes a block of timeline actions on clip (the root
// timeline when nil). Scripted errors surface as *Thrown, host failures
// as *HaltError.
func (vm *VM) RunActions(code []byte, clip *Clip) (Value, error) {
	return vm.runTopLevel(vm.topLevel(clip, "[Actions]"), code)
}

// CallFunction invokes fn from host code as a bare call on the root.
func (vm *VM) CallFunction(fn *Object, this Value, args []Value) (Value, error) {
	a := vm.topLevel(nil, "[Host]")
	vm.beginUnit()
	defer vm.endUnit()
	vm.enter(a)
	defer vm.leave()
	return a.Call(fn, this, args)
}

func (vm *VM) runTopLevel(a *Activation, code []byte) (Value, error) {
	vm.beginUnit()
	defer vm.endUnit()
	return vm.runActivation(a, code)
}

func (vm *VM) beginUnit() {
	if len(vm.frames) == 0 {
		vm.deadline = time.Now().Add(vm.limits.Timeout)
		vm.actionCount = 0
	}
}

func (vm *VM) endUnit() {
	if len(vm.frames) == 0 {
		vm.deadline = time.Time{}
	}
}

func (vm *VM) runActivation(a *Activation, code []byte) (Value, error) {
	vm.enter(a)
	defer vm.leave()
	ctl, v, err := a.runBlock(code)
	if err != nil {
		return Undefined, err
	}
	if ctl == controlReturn {
		return v, nil
	}
	return Undefined, nil
}

func (vm *VM) checkTimeout() error {
	vm.actionCount++
	if vm.actionCount&1023 != 0 || vm.deadline.IsZero() {
		return nil
	}
	if time.Now().After(vm.deadline) {
		return &HaltError{Reason: ExecutionTimeout}
	}
	return nil
}

func (vm *VM) emitTrace(s string) {
	if vm.trace != nil {
		vm.trace(s)
		return
	}
	commonlog.GetLogger("avm.trace").Info(s)
}
