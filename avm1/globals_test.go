package avm1

import (
	"errors"
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

func TestBootstrapLinks(t *testing.T) {
	vm, _ := newTestVM(t, 10)
	p := vm.Prototypes()
	a := vm.topLevel(nil, "test")

	if p.Object.Proto() != nil {
		t.Error("Object.prototype has a prototype")
	}
	if p.Function.Proto() != p.Object {
		t.Error("Function.prototype does not inherit from Object.prototype")
	}

	for _, name := range []string{"Object", "Function", "Array", "String", "Number", "Boolean", "Error", "MovieClip"} {
		pv := vm.Global().OwnProperty(name, true)
		if pv == nil {
			t.Errorf("global %s missing", name)
			continue
		}
		ctor := pv.Value.AsObject()
		if ctor.Proto() != p.Function {
			t.Errorf("%s.__proto__ is not Function.prototype", name)
		}
		proto, err := ctor.Get(a, "prototype")
		if err != nil {
			t.Fatalf("%s.prototype: %v", name, err)
		}
		back, err := proto.AsObject().Get(a, "constructor")
		if err != nil {
			t.Fatalf("%s.prototype.constructor: %v", name, err)
		}
		if back.AsObject() != ctor {
			t.Errorf("%s.prototype.constructor does not point back", name)
		}
	}

	if keys := vm.Global().Keys(a); len(keys) != 0 {
		t.Errorf("global enumerates built-ins: %v", keys)
	}
}

func TestVMsAreIndependent(t *testing.T) {
	vm1, _ := newTestVM(t, 10)
	vm2, _ := newTestVM(t, 10)
	if vm1.Prototypes().Object == vm2.Prototypes().Object {
		t.Error("VMs share Object.prototype")
	}
	if vm1.ID == vm2.ID {
		t.Error("VMs share an ID")
	}
	vm1.Global().Define("x", Number(1), 0)
	if vm2.Global().OwnProperty("x", true) != nil {
		t.Error("global write leaked across VMs")
	}
}

// ---------------------------------------------------------------------------
// Built-in methods
// ---------------------------------------------------------------------------

func TestStringMethods(t *testing.T) {
	vm, out := newTestVM(t, 10)
	b := NewActionBuilder()
	callMethod := func(recv PushItem, name string, args ...PushItem) {
		for i := len(args) - 1; i >= 0; i-- {
			b.Push(args[i])
		}
		b.Push(PushInt(int32(len(args))), recv, PushString(name))
		b.Emit(ActionCallMethod, ActionTrace)
	}
	callMethod(PushString("hello"), "toUpperCase")
	callMethod(PushString("hello"), "charAt", PushInt(1))
	callMethod(PushString("hello"), "indexOf", PushString("l"))
	callMethod(PushString("hello"), "lastIndexOf", PushString("l"))
	callMethod(PushString("hello"), "substring", PushInt(3), PushInt(1))
	callMethod(PushString("hello"), "substr", PushInt(-3), PushInt(2))
	callMethod(PushString("hello"), "charCodeAt", PushInt(0))
	callMethod(PushString("a,b,c"), "split", PushString(","))
	b.Push(PushString("hello"), PushString("length"))
	b.Emit(ActionGetMember, ActionTrace)
	runOK(t, vm, b)

	expectTrace(t, out, "HELLO", "e", "2", "3", "el", "ll", "104", "a,b,c", "5")
}

func TestArrayMethods(t *testing.T) {
	vm, out := newTestVM(t, 10)
	b := NewActionBuilder()
	// a = [1, 2, 3]
	b.Push(PushString("a"), PushInt(3), PushInt(2), PushInt(1), PushInt(3))
	b.Emit(ActionInitArray, ActionSetVariable)
	call := func(name string, args ...PushItem) {
		for i := len(args) - 1; i >= 0; i-- {
			b.Push(args[i])
		}
		b.Push(PushInt(int32(len(args))), PushString("a"))
		b.Emit(ActionGetVariable)
		b.Push(PushString(name))
		b.Emit(ActionCallMethod, ActionTrace)
	}
	call("join", PushString("-"))
	call("push", PushInt(4))
	call("pop")
	call("shift")
	call("toString")
	call("unshift", PushInt(0))
	call("reverse")
	call("slice", PushInt(-2))
	call("concat", PushInt(9))
	runOK(t, vm, b)

	expectTrace(t, out, "1-2-3", "4", "4", "1", "2,3", "3", "3,2,0", "2,0", "3,2,0,9")
}

func TestSparseArrays(t *testing.T) {
	newA := func(b *ActionBuilder) {
		b.Push(PushString("a"), PushInt(0))
		b.Emit(ActionInitArray, ActionSetVariable)
	}
	set := func(b *ActionBuilder, key string, v PushItem) {
		b.Push(PushString("a"))
		b.Emit(ActionGetVariable)
		b.Push(PushString(key), v)
		b.Emit(ActionSetMember)
	}
	get := func(b *ActionBuilder, key string) {
		b.Push(PushString("a"))
		b.Emit(ActionGetVariable)
		b.Push(PushString(key))
		b.Emit(ActionGetMember)
	}
	call := func(b *ActionBuilder, name string, args ...PushItem) {
		for i := len(args) - 1; i >= 0; i-- {
			b.Push(args[i])
		}
		b.Push(PushInt(int32(len(args))), PushString("a"))
		b.Emit(ActionGetVariable)
		b.Push(PushString(name))
		b.Emit(ActionCallMethod)
	}

	tests := []struct {
		name    string
		version uint8
		emit    func(b *ActionBuilder)
		want    []string
		halt    bool
	}{
		{"far write joins entries only", 6, func(b *ActionBuilder) {
			set(b, "3000000000", PushString("x"))
			call(b, "join", PushString(""))
			b.Emit(ActionTrace)
			get(b, "length")
			b.Emit(ActionTrace)
		}, []string{"x", "3000000001"}, false},
		{"length assignment then push", 6, func(b *ActionBuilder) {
			set(b, "length", PushInt(2000000000))
			call(b, "push", PushString("y"))
			b.Emit(ActionTrace)
			get(b, "2000000000")
			b.Emit(ActionTrace)
		}, []string{"2000000001", "y"}, false},
		{"length assignment truncates", 6, func(b *ActionBuilder) {
			set(b, "0", PushString("a"))
			set(b, "2000000000", PushString("b"))
			set(b, "length", PushInt(1))
			call(b, "join", PushString("-"))
			b.Emit(ActionTrace)
		}, []string{"a"}, false},
		{"slice of sparse tail", 6, func(b *ActionBuilder) {
			set(b, "0", PushString("a"))
			set(b, "2000000000", PushString("b"))
			b.Push(PushString("s"))
			call(b, "slice", PushInt(-2))
			b.Emit(ActionSetVariable)
			b.Push(PushString(","), PushInt(1), PushString("s"))
			b.Emit(ActionGetVariable)
			b.Push(PushString("join"))
			b.Emit(ActionCallMethod, ActionTrace)
		}, []string{",b"}, false},
		{"splice shifts sparse entries", 6, func(b *ActionBuilder) {
			set(b, "0", PushString("a"))
			set(b, "2000000000", PushString("b"))
			call(b, "splice", PushInt(0), PushInt(1))
			b.Emit(ActionPop)
			get(b, "1999999999")
			b.Emit(ActionTrace)
			get(b, "length")
			b.Emit(ActionTrace)
		}, []string{"b", "2000000000"}, false},
		{"concat offsets past holes", 6, func(b *ActionBuilder) {
			set(b, "length", PushInt(1000000000))
			call(b, "concat", PushString("z"))
			b.Push(PushString("length"))
			b.Emit(ActionGetMember, ActionTrace)
		}, []string{"1000000001"}, false},
		{"reverse moves entries", 6, func(b *ActionBuilder) {
			set(b, "0", PushString("a"))
			set(b, "length", PushInt(1000000000))
			call(b, "reverse")
			b.Emit(ActionPop)
			get(b, "999999999")
			b.Emit(ActionTrace)
		}, []string{"a"}, false},
		{"join rendering undefined holes halts", 7, func(b *ActionBuilder) {
			set(b, "3000000000", PushString("x"))
			call(b, "join", PushString(""))
			b.Emit(ActionTrace)
		}, nil, true},
		{"apply with a huge array halts", 6, func(b *ActionBuilder) {
			set(b, "length", PushInt(2000000000))
			b.Push(PushString("a"))
			b.Emit(ActionGetVariable)
			b.Push(PushNull(), PushInt(2), PushString("Math"))
			b.Emit(ActionGetVariable)
			b.Push(PushString("max"))
			b.Emit(ActionGetMember)
			b.Push(PushString("apply"))
			b.Emit(ActionCallMethod, ActionTrace)
		}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, out := newTestVM(t, tt.version)
			b := NewActionBuilder()
			newA(b)
			tt.emit(b)
			_, err := vm.RunActions(b.Bytes(), nil)
			if tt.halt {
				var halt *HaltError
				if !errors.As(err, &halt) || halt.Reason != ResourceLimit {
					t.Fatalf("RunActions error = %v, want a resource limit halt", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("RunActions: %v", err)
			}
			expectTrace(t, out, tt.want...)
		})
	}
}

func TestMathAndGlobals(t *testing.T) {
	vm, out := newTestVM(t, 10)
	b := NewActionBuilder()
	// trace(Math.max(1, 3))
	b.Push(PushInt(3), PushInt(1), PushInt(2), PushString("Math"))
	b.Emit(ActionGetVariable)
	b.Push(PushString("max"))
	b.Emit(ActionCallMethod, ActionTrace)
	// trace(ASnative(200, 9)(16))  -- Math.sqrt
	b.Push(PushInt(16), PushInt(1))
	callByName(b, "ASnative", PushInt(200), PushInt(9))
	b.Push(PushUndefined())
	b.Emit(ActionCallMethod, ActionTrace)
	// trace(parseInt("0x1F")); trace(parseFloat("2.5px")); trace(isNaN("x"))
	callByName(b, "parseInt", PushString("0x1F"))
	b.Emit(ActionTrace)
	callByName(b, "parseFloat", PushString("2.5px"))
	b.Emit(ActionTrace)
	callByName(b, "isNaN", PushString("x"))
	b.Emit(ActionTrace)
	runOK(t, vm, b)

	expectTrace(t, out, "3", "4", "31", "2.5", "true")
}

func TestASSetPropFlags(t *testing.T) {
	vm, _ := newTestVM(t, 10)
	a := vm.topLevel(nil, "test")
	o := vm.NewObject(vm.Prototypes().Object)
	o.Define("a", Number(1), 0)
	o.Define("b", Number(2), 0)
	o.Define("c", Number(3), 0)

	setFlags := vm.Global().OwnProperty("ASSetPropFlags", true).Value.AsObject()
	call := func(args ...Value) {
		t.Helper()
		if _, err := vm.CallFunction(setFlags, Undefined, args); err != nil {
			t.Fatalf("ASSetPropFlags: %v", err)
		}
	}

	call(ObjectValue(o), Str("a,b"), Number(float64(DontEnum)))
	if keys := o.Keys(a); len(keys) != 1 || keys[0] != "c" {
		t.Errorf("Keys after hiding a,b = %v, want [c]", keys)
	}

	call(ObjectValue(o), ObjectValue(vm.NewArray([]Value{Str("c")})), Number(float64(ReadOnly|DontDelete)))
	if err := o.Set(a, "c", Number(9)); err != nil {
		t.Fatal(err)
	}
	if v := o.OwnProperty("c", true).Value; v.AsNumber() != 3 {
		t.Errorf("read-only c = %v after write, want 3", v.AsNumber())
	}
	if o.Delete(a, "c") {
		t.Error("deleted a DontDelete property")
	}

	// Clearing with null props applies to every property.
	call(ObjectValue(o), Null, Number(0), Number(float64(DontEnum|ReadOnly|DontDelete)))
	if keys := o.Keys(a); len(keys) != 3 {
		t.Errorf("Keys after clearing = %v, want 3 keys", keys)
	}

	o.Seal()
	call(ObjectValue(o), Null, Number(float64(DontEnum)))
	if keys := o.Keys(a); len(keys) != 3 {
		t.Errorf("sealed object attributes changed: keys = %v", keys)
	}
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

func TestToBooleanByVersion(t *testing.T) {
	tests := []struct {
		v       Value
		version uint8
		want    bool
	}{
		{Str("0"), 6, false},
		{Str("0"), 7, true},
		{Str("abc"), 6, false},
		{Str("abc"), 7, true},
		{Str(""), 7, false},
		{Number(math.NaN()), 10, false},
		{Number(-1), 10, true},
		{Undefined, 10, false},
		{Null, 10, false},
	}
	for _, tt := range tests {
		if got := tt.v.ToBoolean(tt.version); got != tt.want {
			t.Errorf("ToBoolean(%v, v%d) = %v, want %v", tt.v, tt.version, got, tt.want)
		}
	}
}

func TestToNumberByVersion(t *testing.T) {
	if n := Undefined.primitiveToNumber(6); n != 0 {
		t.Errorf("undefined -> %v in v6, want 0", n)
	}
	if n := Undefined.primitiveToNumber(7); !math.IsNaN(n) {
		t.Errorf("undefined -> %v in v7, want NaN", n)
	}
	if n := Str("").primitiveToNumber(6); !math.IsNaN(n) {
		t.Errorf("\"\" -> %v, want NaN", n)
	}
	if n := Str("0x10").primitiveToNumber(6); n != 16 {
		t.Errorf("\"0x10\" -> %v in v6, want 16", n)
	}
	if n := Str("0x10").primitiveToNumber(5); !math.IsNaN(n) {
		t.Errorf("\"0x10\" -> %v in v5, want NaN", n)
	}
	if s := Undefined.primitiveToString(6).String(); s != "" {
		t.Errorf("undefined -> %q in v6, want empty", s)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:            "0",
		1:            "1",
		-2.5:         "-2.5",
		1e21:         "1e+21",
		math.Inf(1):  "Infinity",
		math.Inf(-1): "-Infinity",
		123456789012: "123456789012",
		0.1 + 0.2:    "0.3",
	}
	for n, want := range tests {
		if got := FormatNumber(n); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", n, got, want)
		}
	}
	if got := FormatNumber(math.NaN()); got != "NaN" {
		t.Errorf("FormatNumber(NaN) = %q", got)
	}
}

func TestToInt32(t *testing.T) {
	tests := map[float64]int32{
		1.9:         1,
		-1:          -1,
		4294967297:  1,
		2147483648:  -2147483648,
		math.NaN():  0,
		math.Inf(1): 0,
	}
	for n, want := range tests {
		if got := ToInt32(n); got != want {
			t.Errorf("ToInt32(%v) = %d, want %d", n, got, want)
		}
	}
}

func TestLooseEquals(t *testing.T) {
	vm, _ := newTestVM(t, 10)
	a := vm.topLevel(nil, "test")
	tests := []struct {
		x, y Value
		want bool
	}{
		{Undefined, Null, true},
		{Number(1), Str("1"), true},
		{True, Number(1), true},
		{Null, Number(0), false},
		{Str("a"), Str("a"), true},
		{ObjectValue(vm.NewArray([]Value{Number(7)})), Str("7"), true},
	}
	for _, tt := range tests {
		got, err := a.LooseEquals(tt.x, tt.y)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("LooseEquals(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}
