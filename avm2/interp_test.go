package avm2

import (
	"testing"
	"time"
)

func TestTraceArithmetic(t *testing.T) {
	vm, out := newTestVM(t, Limits{})
	p := newProgram("arith")
	p.trace(func() {
		p.b.PushInt(p.u, 40)
		p.b.PushInt(p.u, 2)
		p.b.Ops(OpAdd)
	})
	p.trace(func() {
		p.b.PushString(p.u, "a")
		p.b.PushInt(p.u, 1)
		p.b.Ops(OpAdd)
	})
	p.trace(func() {
		p.b.PushInt(p.u, 7)
		p.b.PushInt(p.u, 2)
		p.b.Ops(OpDivide)
	})
	p.trace(func() {
		p.b.PushInt(p.u, 100000)
		p.b.PushInt(p.u, 3)
		p.b.Ops(OpMultiply)
	})
	if err := p.run(vm); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	expectTrace(t, out, "42", "a1", "3.5", "300000")
}

func TestBranchesAndLocals(t *testing.T) {
	vm, out := newTestVM(t, Limits{})
	p := newProgram("loop")
	b := p.b
	// for (i = 0; i < 3; i++) trace(i)
	b.PushInt(p.u, 0)
	b.SetLocal(1)
	test := b.NewLabel()
	b.Jump(test)
	body := b.Here()
	p.trace(func() { b.GetLocal(1) })
	b.Emit(OpIncLocalI, 1)
	b.Mark(test)
	b.GetLocal(1)
	b.PushInt(p.u, 3)
	b.Branch(OpIfLT, body)

	// switch (1) { case 0: trace("zero"); case 1: trace("one") }
	zero, one, def, end := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	dispatch := b.NewLabel()
	b.Jump(dispatch)
	b.Mark(zero)
	p.trace(func() { b.PushString(p.u, "zero") })
	b.Jump(end)
	b.Mark(one)
	p.trace(func() { b.PushString(p.u, "one") })
	b.Jump(end)
	b.Mark(def)
	p.trace(func() { b.PushString(p.u, "default") })
	b.Jump(end)
	b.Mark(dispatch)
	b.PushInt(p.u, 1)
	b.LookupSwitch(def, zero, one)
	b.Mark(end)

	if err := p.run(vm); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	expectTrace(t, out, "0", "1", "2", "one")
}

func TestUndefinedVariableNamesQualifiedName(t *testing.T) {
	vm, out := newTestVM(t, Limits{})
	p := newProgram("missing")
	p.b.Emit(OpGetLex, p.u.QName(NewQName("com.example", "Missing")))
	p.b.Ops(OpPop)
	p.trace(func() { p.b.PushString(p.u, "unreachable") })

	err := p.run(vm)
	info := expectThrown(t, err, "ReferenceError", CodeUndefinedVariable)
	if want := "Error #1065: Variable com.example::Missing is not defined."; info.Message != want {
		t.Errorf("message = %q, want %q", info.Message, want)
	}
	expectTrace(t, out)
}

func TestTryCatch(t *testing.T) {
	tests := []struct {
		name    string
		catchOf QName
		caught  bool
	}{
		{"catch all", QName{}, true},
		{"matching type", NewQName("", "ReferenceError"), true},
		{"base type", NewQName("", "Error"), true},
		{"other type", NewQName("", "TypeError"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, out := newTestVM(t, Limits{})
			p := newProgram("try")
			b := p.b
			end := b.NewLabel()
			from := b.Here()
			b.Emit(OpGetLex, p.u.Public("nothingHere"))
			b.Ops(OpPop)
			to := b.Here()
			b.Jump(end)
			target := b.Here()
			b.SetLocal(1)
			p.trace(func() {
				b.GetLocal(1)
				b.Emit(OpGetProperty, p.u.Public("errorID"))
			})
			b.Mark(end)
			b.Catch(from, to, target, tt.catchOf, QName{})

			err := p.run(vm)
			if tt.caught {
				if err != nil {
					t.Fatalf("Execute: %v", err)
				}
				expectTrace(t, out, "1065")
				return
			}
			expectThrown(t, err, "ReferenceError", CodeUndefinedVariable)
			expectTrace(t, out)
		})
	}
}

func TestThrowUserValue(t *testing.T) {
	vm, out := newTestVM(t, Limits{})
	p := newProgram("throw")
	b := p.b
	end := b.NewLabel()
	from := b.Here()
	b.PushString(p.u, "boom")
	b.Ops(OpThrow)
	to := b.Here()
	target := b.Here()
	b.SetLocal(1)
	p.trace(func() { b.GetLocal(1) })
	b.Mark(end)
	b.Catch(from, to, target, QName{}, QName{})
	if err := p.run(vm); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	expectTrace(t, out, "boom")

	p = newProgram("uncaught")
	p.b.PushString(p.u, "loose")
	p.b.Ops(OpThrow)
	err := p.run(vm)
	v, ok := AsScriptedError(err)
	if !ok || v.AsString().String() != "loose" {
		t.Errorf("uncaught throw = %v", err)
	}
}

func TestHostErrorsBypassHandlers(t *testing.T) {
	vm, out := newTestVM(t, Limits{})
	p := newProgram("illegal")
	b := p.b
	end := b.NewLabel()
	from := b.Here()
	b.Ops(Op(0xFF))
	to := b.Here()
	b.Jump(end)
	target := b.Here()
	p.trace(func() { b.PushString(p.u, "handler ran") })
	b.Mark(end)
	b.Catch(from, to, target, QName{}, QName{})

	err := p.run(vm)
	expectHostError(t, err, CodeIllegalOpcode)
	if !IsHostError(err) {
		t.Error("IsHostError = false")
	}
	expectTrace(t, out)
}

func TestRecursionLimitIsHostFailure(t *testing.T) {
	vm, out := newTestVM(t, Limits{MaxRecursionDepth: 64, Timeout: 5 * time.Second})
	p := newProgram("recurse")
	recurse := NewQName("", "recurse")
	fn := p.method("recurse", nil, func(b *CodeBuilder) {
		b.Emit(OpFindPropStrict, p.u.QName(recurse))
		b.Emit(OpCallPropVoid, p.u.QName(recurse), 0)
		b.Ops(OpReturnVoid)
	})
	// A catch-all around the call must not see the overflow.
	b := p.b
	end := b.NewLabel()
	from := b.Here()
	b.Emit(OpFindPropStrict, p.u.QName(recurse))
	b.Emit(OpCallPropVoid, p.u.QName(recurse), 0)
	to := b.Here()
	b.Jump(end)
	target := b.Here()
	p.trace(func() { b.PushString(p.u, "caught") })
	b.Mark(end)
	b.Catch(from, to, target, QName{}, QName{})

	err := p.run(vm, Trait{Name: recurse, Kind: TraitFunction, MethodID: fn})
	expectHostError(t, err, CodeStackOverflow)
	expectTrace(t, out)
	if vm.Depth() != 0 {
		t.Errorf("depth after abort = %d", vm.Depth())
	}

	// The VM stays usable.
	p = newProgram("after")
	p.trace(func() { p.b.PushString(p.u, "ok") })
	if err := p.run(vm); err != nil {
		t.Fatalf("Execute after overflow: %v", err)
	}
	expectTrace(t, out, "ok")
}

func TestPartialLimitsKeepDefaults(t *testing.T) {
	d := DefaultLimits()
	tests := []struct {
		name   string
		limits Limits
		want   Limits
	}{
		{"zero", Limits{}, d},
		{"recursion only", Limits{MaxRecursionDepth: 64}, Limits{MaxRecursionDepth: 64, Timeout: d.Timeout}},
		{"timeout only", Limits{Timeout: time.Second}, Limits{MaxRecursionDepth: d.MaxRecursionDepth, Timeout: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, _ := newTestVM(t, tt.limits)
			if got := vm.Limits(); got != tt.want {
				t.Errorf("Limits = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	vm, _ := newTestVM(t, Limits{MaxRecursionDepth: 64, Timeout: 20 * time.Millisecond})
	p := newProgram("spin")
	p.b.Jump(p.b.Here())
	expectHostError(t, p.run(vm), CodeScriptTimeout)
}

func TestStackUnderflowIsHostFailure(t *testing.T) {
	vm, _ := newTestVM(t, Limits{})
	p := newProgram("underflow")
	p.b.Ops(OpPop, OpPop)
	expectHostError(t, p.run(vm), CodeStackUnderflow)
}

func TestOversizedFramesAreHostFailures(t *testing.T) {
	tests := []struct {
		name   string
		adjust func(b *MethodBody)
		code   Code
	}{
		{"locals", func(b *MethodBody) { b.LocalCount = 1 << 30 }, CodeInvalidRegister},
		{"negative locals", func(b *MethodBody) { b.LocalCount = -1 }, CodeInvalidRegister},
		{"stack", func(b *MethodBody) { b.MaxStack = 1 << 30 }, CodeStackOverflow},
		{"negative stack", func(b *MethodBody) { b.MaxStack = -1 }, CodeStackOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, _ := newTestVM(t, Limits{})
			p := newProgram("frame")
			u := p.unit()
			tt.adjust(u.Methods[u.Scripts[0].InitID].Body)
			expectHostError(t, vm.Execute(u), tt.code)
		})
	}
}

// ---------------------------------------------------------------------------
// Calling convention
// ---------------------------------------------------------------------------

func TestArgumentBinding(t *testing.T) {
	vm, _ := newTestVM(t, Limits{})
	p := newProgram("args")
	intType, stringType := NewQName("", "int"), NewQName("", "String")
	join := p.method("join", []Param{
		{Name: "a", Type: intType},
		{Name: "b", Type: stringType, Default: StringConstant("x")},
	}, func(b *CodeBuilder) {
		b.GetLocal(1)
		b.GetLocal(2)
		b.Ops(OpAdd, OpReturnValue)
	})
	typed := p.method("typed", []Param{{Name: "a", Type: NewQName("", "Array")}}, func(b *CodeBuilder) {
		b.Ops(OpReturnVoid)
	})
	rest := p.u.Method(&Method{Name: "rest", Flags: NeedRest, Params: []Param{{Name: "first"}}, Body: func() *MethodBody {
		b := NewCodeBuilder()
		b.GetLocal(2)
		b.Emit(OpGetProperty, p.u.Public("length"))
		b.Ops(OpReturnValue)
		return b.Body(3)
	}()})
	arguments := p.u.Method(&Method{Name: "arguments", Flags: NeedArguments, Body: func() *MethodBody {
		b := NewCodeBuilder()
		b.GetLocal(1)
		b.Emit(OpGetProperty, p.u.Public("length"))
		b.Ops(OpReturnValue)
		return b.Body(2)
	}()})
	if _, err := vm.Load(p.unit(
		Trait{Name: NewQName("", "join"), Kind: TraitFunction, MethodID: join},
		Trait{Name: NewQName("", "typed"), Kind: TraitFunction, MethodID: typed},
		Trait{Name: NewQName("", "rest"), Kind: TraitFunction, MethodID: rest},
		Trait{Name: NewQName("", "arguments"), Kind: TraitFunction, MethodID: arguments},
	)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	lookup := func(name string) *Object {
		v, err := vm.GetDefinition(NewQName("", name))
		if err != nil || v.AsObject() == nil {
			t.Fatalf("GetDefinition(%s) = %v, %v", name, v, err)
		}
		return v.AsObject()
	}

	tests := []struct {
		name  string
		fn    string
		args  []Value
		want  string
		class string
		code  Code
	}{
		{"optional default", "join", []Value{Int(5)}, "5x", "", 0},
		{"all supplied", "join", []Value{Number(2.9), Str("y")}, "2y", "", 0},
		{"too few", "join", nil, "", "ArgumentError", CodeArgumentCount},
		{"too many", "join", []Value{Int(1), Str("a"), Str("b")}, "", "ArgumentError", CodeArgumentCount},
		{"coercion failure", "typed", []Value{Str("s")}, "", "TypeError", CodeTypeCoercion},
		{"null coerces", "typed", []Value{Null}, "undefined", "", 0},
		{"rest collects extras", "rest", []Value{Int(1), Int(2), Int(3)}, "2", "", 0},
		{"arguments object", "arguments", []Value{Int(1), Int(2)}, "2", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := vm.Call(lookup(tt.fn), Undefined, tt.args)
			if tt.class != "" {
				expectThrown(t, err, tt.class, tt.code)
				return
			}
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if got := v.primitiveToString().String(); got != tt.want {
				t.Errorf("result = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

// classProgram defines com.example::Base and com.example::Derived, where
// Derived overrides describe and calls super.
func classProgram(override bool) (*program, []Trait) {
	p := newProgram("classes")
	u := p.u
	baseName, derivedName := NewQName("com.example", "Base"), NewQName("com.example", "Derived")
	x, describe := NewQName("", "x"), NewQName("", "describe")
	cinit := func() *Method {
		b := NewCodeBuilder()
		b.Ops(OpReturnVoid)
		return &Method{Name: "cinit", Body: b.Body(1)}
	}

	baseDescribe := p.method("Base/describe", nil, func(b *CodeBuilder) {
		b.PushString(u, "base")
		b.Ops(OpReturnValue)
	})
	baseInit := &Method{Name: "Base", Params: []Param{{Name: "x"}}, Body: func() *MethodBody {
		b := NewCodeBuilder()
		b.Ops(OpGetLocal0)
		b.Emit(OpConstructSuper, 0)
		b.Ops(OpGetLocal0, OpGetLocal1)
		b.Emit(OpInitProperty, u.QName(x))
		b.Ops(OpReturnVoid)
		return b.Body(2)
	}()}
	u.Class(&ClassDef{
		Name: baseName,
		InstanceTraits: []Trait{
			{Name: x, Kind: TraitSlot, Type: NewQName("", "int")},
			{Name: describe, Kind: TraitMethod, MethodID: baseDescribe},
		},
	}, baseInit, cinit())

	derivedDescribe := p.method("Derived/describe", nil, func(b *CodeBuilder) {
		b.PushString(u, "derived:")
		b.Ops(OpGetLocal0)
		b.Emit(OpCallSuper, u.QName(describe), 0)
		b.Ops(OpAdd, OpReturnValue)
	})
	derivedInit := &Method{Name: "Derived", Params: []Param{{Name: "x"}}, Body: func() *MethodBody {
		b := NewCodeBuilder()
		b.Ops(OpGetLocal0, OpGetLocal1)
		b.Emit(OpConstructSuper, 1)
		b.Ops(OpReturnVoid)
		return b.Body(2)
	}()}
	u.Class(&ClassDef{
		Name:  derivedName,
		Super: baseName,
		InstanceTraits: []Trait{
			{Name: describe, Kind: TraitMethod, MethodID: derivedDescribe, Override: override},
		},
	}, derivedInit, cinit())

	b := p.b
	b.GetScopeObject(0)
	b.Emit(OpGetLex, u.Public("Object"))
	b.Emit(OpNewClass, 0)
	b.Emit(OpInitProperty, u.QName(baseName))
	b.GetScopeObject(0)
	b.Emit(OpGetLex, u.QName(baseName))
	b.Emit(OpNewClass, 1)
	b.Emit(OpInitProperty, u.QName(derivedName))

	return p, []Trait{
		{Name: baseName, Kind: TraitClass, ClassID: 0},
		{Name: derivedName, Kind: TraitClass, ClassID: 1},
	}
}

func TestClassConstructAndSuper(t *testing.T) {
	vm, out := newTestVM(t, Limits{})
	p, traits := classProgram(true)
	u, b := p.u, p.b
	derivedName := NewQName("com.example", "Derived")

	b.Emit(OpFindPropStrict, u.QName(derivedName))
	b.PushInt(u, 7)
	b.Emit(OpConstructProp, u.QName(derivedName), 1)
	b.SetLocal(1)
	p.trace(func() {
		b.GetLocal(1)
		b.Emit(OpGetProperty, u.Public("x"))
	})
	p.trace(func() {
		b.GetLocal(1)
		b.Emit(OpCallProperty, u.Public("describe"), 0)
	})
	p.trace(func() {
		b.GetLocal(1)
		b.Emit(OpGetLex, u.QName(NewQName("com.example", "Base")))
		b.Ops(OpIsTypeLate)
	})
	p.trace(func() {
		b.GetLocal(1)
		b.Emit(OpCallProperty, u.Public("toString"), 0)
	})

	if err := p.run(vm, traits...); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	expectTrace(t, out, "7", "derived:base", "true", "[object Derived]")

	v, err := vm.GetDefinition(derivedName)
	if err != nil {
		t.Fatalf("GetDefinition: %v", err)
	}
	inst, err := vm.Construct(v.AsObject().ClassData(), []Value{Int(3)})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if got := inst.AsObject().Slot(0); got.AsNumber() != 3 {
		t.Errorf("x = %v, want 3", got)
	}
}

func TestIllegalOverrideIsVerifyError(t *testing.T) {
	vm, _ := newTestVM(t, Limits{})
	p, traits := classProgram(false)
	err := p.run(vm, traits...)
	info := expectThrown(t, err, "VerifyError", CodeIllegalOverride)
	if want := "Error #1053: Illegal override of describe in com.example::Derived."; info.Message != want {
		t.Errorf("message = %q, want %q", info.Message, want)
	}
}

func TestMissingPropertyOnSealedInstance(t *testing.T) {
	vm, _ := newTestVM(t, Limits{})
	p := newProgram("sealed")
	u, b := p.u, p.b
	b.Emit(OpFindPropStrict, u.Public("Namespace"))
	b.PushString(u, "com.example")
	b.Emit(OpConstructProp, u.Public("Namespace"), 1)
	b.Emit(OpGetProperty, u.Public("nope"))
	b.Ops(OpPop)
	info := expectThrown(t, p.run(vm), "ReferenceError", CodePropertyNotFound)
	if want := "Error #1069: Property nope not found on Namespace and there is no default value."; info.Message != want {
		t.Errorf("message = %q, want %q", info.Message, want)
	}
}

func TestDynamicInstanceReadsUndefined(t *testing.T) {
	vm, out := newTestVM(t, Limits{})
	p, traits := classProgram(true)
	u, b := p.u, p.b
	derivedName := NewQName("com.example", "Derived")
	b.Emit(OpFindPropStrict, u.QName(derivedName))
	b.PushInt(u, 1)
	b.Emit(OpConstructProp, u.QName(derivedName), 1)
	b.SetLocal(1)
	b.GetLocal(1)
	b.PushString(u, "v")
	b.Emit(OpSetProperty, u.Public("extra"))
	p.trace(func() {
		b.GetLocal(1)
		b.Emit(OpGetProperty, u.Public("extra"))
	})
	p.trace(func() {
		b.GetLocal(1)
		b.Emit(OpGetProperty, u.Public("nope"))
	})
	if err := p.run(vm, traits...); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	expectTrace(t, out, "v", "undefined")
}

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

// interfaceProgram defines com.example::IShape, Circle implementing it,
// and Square which does not. Bad, extending IShape, is left undefined.
func interfaceProgram() (*program, []Trait) {
	p := newProgram("interfaces")
	u := p.u
	empty := func(name string) *Method {
		b := NewCodeBuilder()
		b.Ops(OpReturnVoid)
		return &Method{Name: name, Body: b.Body(1)}
	}
	ctor := func(name string) *Method {
		b := NewCodeBuilder()
		b.Ops(OpGetLocal0)
		b.Emit(OpConstructSuper, 0)
		b.Ops(OpReturnVoid)
		return &Method{Name: name, Body: b.Body(1)}
	}
	shape := NewQName("com.example", "IShape")
	u.Class(&ClassDef{Name: shape, Flags: ClassInterface}, empty("IShape"), empty("cinit"))
	u.Class(&ClassDef{Name: NewQName("com.example", "Circle"), Super: NewQName("", "Object"), Interfaces: []QName{shape}},
		ctor("Circle"), empty("cinit"))
	u.Class(&ClassDef{Name: NewQName("com.example", "Square"), Super: NewQName("", "Object")},
		ctor("Square"), empty("cinit"))
	u.Class(&ClassDef{Name: NewQName("com.example", "Bad"), Super: shape}, ctor("Bad"), empty("cinit"))

	b := p.b
	define := func(name string, id int, base func()) {
		b.GetScopeObject(0)
		base()
		b.Emit(OpNewClass, id)
		b.Emit(OpInitProperty, u.QName(NewQName("com.example", name)))
	}
	define("IShape", 0, func() { b.Ops(OpPushNull) })
	define("Circle", 1, func() { b.Emit(OpGetLex, u.Public("Object")) })
	define("Square", 2, func() { b.Emit(OpGetLex, u.Public("Object")) })

	var traits []Trait
	for i, name := range []string{"IShape", "Circle", "Square", "Bad"} {
		traits = append(traits, Trait{Name: NewQName("com.example", name), Kind: TraitClass, ClassID: i})
	}
	return p, traits
}

func TestInterfaces(t *testing.T) {
	shape := NewQName("com.example", "IShape")
	newInstance := func(p *program, name string) {
		q := NewQName("com.example", name)
		p.b.Emit(OpFindPropStrict, p.u.QName(q))
		p.b.Emit(OpConstructProp, p.u.QName(q), 0)
	}
	tests := []struct {
		name  string
		emit  func(p *program)
		want  string
		class string
		code  Code
	}{
		{"istype through implements", func(p *program) {
			newInstance(p, "Circle")
			p.b.Emit(OpIsType, p.u.QName(shape))
		}, "true", "", 0},
		{"istype without implements", func(p *program) {
			newInstance(p, "Square")
			p.b.Emit(OpIsType, p.u.QName(shape))
		}, "false", "", 0},
		{"istypelate through implements", func(p *program) {
			newInstance(p, "Circle")
			p.b.Emit(OpGetLex, p.u.QName(shape))
			p.b.Ops(OpIsTypeLate)
		}, "true", "", 0},
		{"instanceof interface is false", func(p *program) {
			newInstance(p, "Circle")
			p.b.Emit(OpGetLex, p.u.QName(shape))
			p.b.Ops(OpInstanceOf)
		}, "false", "", 0},
		{"instanceof own class", func(p *program) {
			newInstance(p, "Circle")
			p.b.Emit(OpGetLex, p.u.QName(NewQName("com.example", "Circle")))
			p.b.Ops(OpInstanceOf)
		}, "true", "", 0},
		{"coerce through implements", func(p *program) {
			newInstance(p, "Circle")
			p.b.Emit(OpCoerce, p.u.QName(shape))
			p.b.Emit(OpIsType, p.u.QName(shape))
		}, "true", "", 0},
		{"coerce null", func(p *program) {
			p.b.Ops(OpPushNull)
			p.b.Emit(OpCoerce, p.u.QName(shape))
		}, "null", "", 0},
		{"coerce without implements", func(p *program) {
			newInstance(p, "Square")
			p.b.Emit(OpCoerce, p.u.QName(shape))
		}, "", "TypeError", CodeTypeCoercion},
		{"construct interface", func(p *program) {
			newInstance(p, "IShape")
		}, "", "TypeError", CodeNotAConstructor},
		{"extend interface", func(p *program) {
			p.b.GetScopeObject(0)
			p.b.Emit(OpGetLex, p.u.QName(shape))
			p.b.Emit(OpNewClass, 3)
		}, "", "VerifyError", CodeCannotExtend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, out := newTestVM(t, Limits{})
			p, traits := interfaceProgram()
			p.trace(func() { tt.emit(p) })
			err := p.run(vm, traits...)
			if tt.class != "" {
				expectThrown(t, err, tt.class, tt.code)
				return
			}
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			expectTrace(t, out, tt.want)
		})
	}
}
