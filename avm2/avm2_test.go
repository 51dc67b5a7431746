package avm2

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chazu/avmcore/heap"
)

// newTestVM creates a VM whose trace output is captured.
func newTestVM(t *testing.T, limits Limits) (*VM, *[]string) {
	t.Helper()
	var out []string
	vm, err := NewVM(heap.New(0), Options{
		Limits: limits,
		Trace:  func(s string) { out = append(out, s) },
	})
	if err != nil {
		t.Fatalf("NewVM: %v", err)
	}
	t.Cleanup(vm.Close)
	return vm, &out
}

// program assembles the initializer of a one-script unit. The global is
// already on the scope stack.
type program struct {
	u *UnitBuilder
	b *CodeBuilder
}

func newProgram(name string) *program {
	p := &program{u: NewUnitBuilder(name), b: NewCodeBuilder()}
	p.b.Ops(OpGetLocal0, OpPushScope)
	return p
}

// trace emits trace(<value pushed by emit>).
func (p *program) trace(emit func()) {
	p.b.Emit(OpFindPropStrict, p.u.Public("trace"))
	emit()
	p.b.Emit(OpCallPropVoid, p.u.Public("trace"), 1)
}

// method wraps code in a method with the given parameters.
func (p *program) method(name string, params []Param, code func(b *CodeBuilder)) int {
	b := NewCodeBuilder()
	code(b)
	return p.u.Method(&Method{Name: name, Params: params, Body: b.Body(len(params) + 4)})
}

func (p *program) unit(traits ...Trait) *TranslationUnit {
	p.b.Ops(OpReturnVoid)
	p.u.Script(&Method{Name: p.u.Unit().Name, Body: p.b.Body(8)}, traits...)
	return p.u.Unit()
}

func (p *program) run(vm *VM, traits ...Trait) error {
	return vm.Execute(p.unit(traits...))
}

func expectTrace(t *testing.T, got *[]string, want ...string) {
	t.Helper()
	if len(*got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("trace = %q, want %q", *got, want)
	}
}

// expectThrown checks that err carries a script error of the given class
// and code.
func expectThrown(t *testing.T, err error, class string, code Code) ErrorInfo {
	t.Helper()
	v, ok := AsScriptedError(err)
	if !ok {
		t.Fatalf("error = %v, want a thrown %s", err, class)
	}
	info, ok := ErrorDetails(v)
	if !ok {
		t.Fatalf("thrown value is not an error object: %v", err)
	}
	if info.Class != class || info.Code != code {
		t.Errorf("thrown %s #%d, want %s #%d (%s)", info.Class, info.Code, class, code, info.Message)
	}
	return info
}

func expectHostError(t *testing.T, err error, code Code) {
	t.Helper()
	var h *HostError
	if !errors.As(err, &h) {
		t.Fatalf("error = %v, want a host error", err)
	}
	if h.Code != code {
		t.Errorf("host error code = %d, want %d (%v)", h.Code, code, err)
	}
}

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

func TestBootstrapFixedPoint(t *testing.T) {
	vm, _ := newTestVM(t, Limits{})
	sys := vm.System()

	for _, c := range []*ClassObject{sys.Object, sys.Function, sys.Class, sys.Global} {
		if !c.IsFinished() {
			t.Errorf("%s is not finished", c.Name())
		}
		if c.Object().InstanceOf() != sys.Class {
			t.Errorf("%s class object is an instance of %v, want Class", c.Name(), c.Object().InstanceOf())
		}
		if c.Object().Proto() != sys.Class.Prototype() {
			t.Errorf("%s class object does not inherit Class.prototype", c.Name())
		}
		ctor, ok := c.Prototype().lookupDynamic("constructor")
		if !ok || ctor.AsObject() != c.Object() {
			t.Errorf("%s.prototype.constructor is not %s", c.Name(), c.Name())
		}
	}

	if sys.Class.Object().InstanceOf() != sys.Class {
		t.Error("Class is not an instance of itself")
	}
	fp := sys.Function.Prototype()
	if fp.Kind() != ObjectFunction || fp.InstanceOf() != sys.Function {
		t.Errorf("Function.prototype is a %s instance of %v", fp.Kind(), fp.InstanceOf())
	}
	if fp.Proto() != sys.Object.Prototype() {
		t.Error("Function.prototype does not inherit Object.prototype")
	}
	if sys.Object.Prototype().Proto() != nil {
		t.Error("Object.prototype has a prototype")
	}
	if sys.Function.Super() != sys.Object || sys.Class.Super() != sys.Object {
		t.Error("Function and Class must extend Object")
	}
	if vm.Global().InstanceOf() != sys.Global {
		t.Error("toplevel global is not an instance of global")
	}
	for _, c := range sys.all() {
		if c == nil {
			t.Fatal("system class missing after bootstrap")
		}
	}

	if err := vm.Bootstrap(); !errors.Is(err, ErrBootstrapped) {
		t.Errorf("second Bootstrap = %v, want ErrBootstrapped", err)
	}
}

func TestSystemDefinitions(t *testing.T) {
	vm, _ := newTestVM(t, Limits{})
	tests := []struct {
		name QName
		want *ClassObject
	}{
		{NewQName("", "Object"), vm.System().Object},
		{NewQName("", "Array"), vm.System().Array},
		{NewQName("", "TypeError"), vm.System().TypeError},
		{NewQName("flash.errors", "EOFError"), vm.System().EOFError},
	}
	for _, tt := range tests {
		t.Run(tt.name.String(), func(t *testing.T) {
			v, err := vm.GetDefinition(tt.name)
			if err != nil {
				t.Fatalf("GetDefinition: %v", err)
			}
			if o := v.AsObject(); o == nil || o.ClassData() != tt.want {
				t.Errorf("GetDefinition(%s) = %v", tt.name, v)
			}
		})
	}
	if !vm.System().EOFError.IsSubclassOf(vm.System().IOError) {
		t.Error("EOFError must extend IOError")
	}
}

// ---------------------------------------------------------------------------
// Error codes
// ---------------------------------------------------------------------------

func TestCodeMessages(t *testing.T) {
	tests := []struct {
		code Code
		args []any
		want string
	}{
		{CodeUndefinedVariable, []any{NewQName("com.example", "Missing")}, "Error #1065: Variable com.example::Missing is not defined."},
		{CodeArgumentCount, []any{"f", 1, 0}, "Error #1063: Argument count mismatch on f. Expected 1, got 0."},
		{CodeNullReference, nil, "Error #1009: Cannot access a property or method of a null object reference."},
		{CodeTypeCoercion, []any{"String"}, "Error #1034: Type Coercion failed: cannot convert String to ."},
		{Code(9999), nil, "Error #9999"},
	}
	for _, tt := range tests {
		if got := tt.code.Message(tt.args...); got != tt.want {
			t.Errorf("%d.Message = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestCodeClasses(t *testing.T) {
	tests := []struct {
		code Code
		want ErrorClass
	}{
		{CodeUndefinedVariable, ReferenceError},
		{CodeArgumentCount, ArgumentError},
		{CodeTypeCoercion, TypeError},
		{CodeIllegalOverride, VerifyError},
		{CodeStackOverflow, GenericError},
		{CodeEndOfFile, EOFError},
	}
	for _, tt := range tests {
		if got := tt.code.Class(); got != tt.want {
			t.Errorf("%d.Class() = %s, want %s", tt.code, got, tt.want)
		}
	}
	if got := EOFError.QName().String(); got != "flash.errors::EOFError" {
		t.Errorf("EOFError qname = %q", got)
	}
}
