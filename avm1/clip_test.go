package avm1

import (
	"testing"
)

func TestClipPaths(t *testing.T) {
	vm, _ := newTestVM(t, 10)
	menu := vm.NewClip(vm.Root(), "menu", 10)
	button := vm.NewClip(menu, "button", 10)

	if got := button.Path(); got != "_level0.menu.button" {
		t.Errorf("Path() = %q, want _level0.menu.button", got)
	}
	if got := button.SlashPath(); got != "/menu/button" {
		t.Errorf("SlashPath() = %q, want /menu/button", got)
	}
	for _, path := range []string{"_level0.menu.button", "_root.menu.button", "/menu/button"} {
		if got := vm.ResolvePath(path); got != button {
			t.Errorf("ResolvePath(%q) = %v, want button", path, got)
		}
	}
	if got := vm.ResolvePath("_level0.missing"); got != nil {
		t.Errorf("ResolvePath of a missing clip = %v, want nil", got)
	}
}

func TestClipVariablesFromScript(t *testing.T) {
	vm, out := newTestVM(t, 10)
	vm.NewClip(vm.Root(), "menu", 10)

	b := NewActionBuilder()
	// trace(menu._name); trace(_root.menu); _root.menu.x = 5; trace(/menu:x);
	b.Push(PushString("menu"))
	b.Emit(ActionGetVariable)
	b.Push(PushString("_name"))
	b.Emit(ActionGetMember, ActionTrace)
	traceVar(b, "_root.menu")
	b.Push(PushString("_root.menu.x"), PushInt(5))
	b.Emit(ActionSetVariable)
	traceVar(b, "/menu:x")
	b.Push(PushString("menu"))
	b.Emit(ActionGetVariable, ActionTypeOf, ActionTrace)
	runOK(t, vm, b)

	expectTrace(t, out, "menu", "_level0.menu", "5", "movieclip")
}

func TestClipRefFollowsReplacement(t *testing.T) {
	vm, _ := newTestVM(t, 10)
	old := vm.NewClip(vm.Root(), "menu", 10)
	ref := vm.Reference(old)

	if got := ref.Resolve(); got != old {
		t.Fatalf("Resolve() = %v, want original clip", got)
	}
	vm.Root().RemoveChild(old)
	if got := ref.Resolve(); got != nil {
		t.Errorf("Resolve() after removal = %v, want nil", got)
	}

	replacement := vm.NewClip(vm.Root(), "menu", 10)
	if got := ref.Resolve(); got != replacement {
		t.Errorf("Resolve() = %v, want replacement clip", got)
	}
}

func TestCollectedClipReleasesItsHandle(t *testing.T) {
	tests := []struct {
		name     string
		detach   bool
		released bool
	}{
		{"attached clip keeps its handle", false, false},
		{"detached clip is reclaimed", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, _ := newTestVM(t, 10)
			h := vm.Heap()
			c := vm.NewClip(vm.Root(), "menu", 10)
			ref := vm.Reference(c)
			before := h.WeakCount()
			if tt.detach {
				vm.Root().RemoveChild(c)
			}
			stats := h.Collect()

			if got := !h.Contains(c.Object()); got != tt.released {
				t.Errorf("collected = %v, want %v", got, tt.released)
			}
			if got := before - h.WeakCount(); got != map[bool]int{false: 0, true: 1}[tt.released] {
				t.Errorf("weak handles released = %d", got)
			}
			if tt.released && stats.Finalized == 0 {
				t.Error("no finalizer ran")
			}
			if got := ref.Resolve(); (got == nil) != tt.released {
				t.Errorf("Resolve() = %v", got)
			}
		})
	}
}

func TestSetTarget(t *testing.T) {
	vm, out := newTestVM(t, 10)
	menu := vm.NewClip(vm.Root(), "menu", 10)

	b := NewActionBuilder()
	b.SetTarget("menu")
	b.Push(PushString("v"), PushString("inside"))
	b.Emit(ActionSetVariable)
	b.SetTarget("")
	traceVar(b, "v")
	runOK(t, vm, b)

	expectTrace(t, out, "undefined")
	if p := menu.Object().OwnProperty("v", true); p == nil || p.Value.AsString().String() != "inside" {
		t.Errorf("menu.v = %v, want inside", p)
	}
}
