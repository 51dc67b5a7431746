package avm1

import (
	"reflect"
	"testing"

	"github.com/chazu/avmcore/heap"
)

// newTestVM creates a VM whose trace output is captured.
func newTestVM(t *testing.T, version uint8) (*VM, *[]string) {
	t.Helper()
	var out []string
	vm := NewVM(heap.New(0), Options{
		Version: version,
		Trace:   func(s string) { out = append(out, s) },
	})
	t.Cleanup(vm.Close)
	return vm, &out
}

// runOK executes b on the root timeline and fails the test on error.
func runOK(t *testing.T, vm *VM, b *ActionBuilder) {
	t.Helper()
	if _, err := vm.RunActions(b.Bytes(), nil); err != nil {
		t.Fatalf("RunActions: %v", err)
	}
}

func expectTrace(t *testing.T, got *[]string, want ...string) {
	t.Helper()
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("trace = %q, want %q", *got, want)
	}
}

// callByName emits name(args...) as a bare call; the result stays on the stack.
func callByName(b *ActionBuilder, name string, args ...PushItem) {
	for i := len(args) - 1; i >= 0; i-- {
		b.Push(args[i])
	}
	b.Push(PushInt(int32(len(args))), PushString(name))
	b.Emit(ActionCallFunction)
}

// traceVar emits trace(name).
func traceVar(b *ActionBuilder, name string) {
	b.Push(PushString(name))
	b.Emit(ActionGetVariable, ActionTrace)
}
