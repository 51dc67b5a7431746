package player

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/chazu/avmcore/avm1"
	"github.com/chazu/avmcore/avm2"
	"github.com/chazu/avmcore/bundle"
	"github.com/chazu/avmcore/manifest"
)

func newTestPlayer(t *testing.T, threshold int) (*Player, *[]string) {
	t.Helper()
	var out []string
	p, err := New(Options{
		SWFVersion:       10,
		CollectThreshold: threshold,
		Trace:            func(s string) { out = append(out, s) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Close)
	return p, &out
}

// unit builds a one-script translation unit whose initializer runs emit
// with the global on the scope stack.
func unit(name string, emit func(u *avm2.UnitBuilder, b *avm2.CodeBuilder)) *avm2.TranslationUnit {
	u := avm2.NewUnitBuilder(name)
	b := avm2.NewCodeBuilder()
	b.Ops(avm2.OpGetLocal0, avm2.OpPushScope)
	emit(u, b)
	b.Ops(avm2.OpReturnVoid)
	u.Script(&avm2.Method{Name: name, Body: b.Body(1)})
	return u.Unit()
}

func traceUnit(name, msg string) *avm2.TranslationUnit {
	return unit(name, func(u *avm2.UnitBuilder, b *avm2.CodeBuilder) {
		b.Emit(avm2.OpFindPropStrict, u.Public("trace"))
		b.PushString(u, msg)
		b.Emit(avm2.OpCallPropVoid, u.Public("trace"), 1)
	})
}

func actions(emit func(b *avm1.ActionBuilder)) []byte {
	b := avm1.NewActionBuilder()
	emit(b)
	return b.Bytes()
}

func traceActions(msg string) []byte {
	return actions(func(b *avm1.ActionBuilder) {
		b.Push(avm1.PushString(msg))
		b.Emit(avm1.ActionTrace)
	})
}

func sealed(t *testing.T, b *bundle.Bundle) *bundle.Bundle {
	t.Helper()
	if err := b.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return b
}

func TestRunBundleOutcomes(t *testing.T) {
	p, out := newTestPlayer(t, 0)

	b := bundle.New("doc", 10)
	b.AddActions("frame1", "", traceActions("one"))
	b.AddActions("throws", "", actions(func(b *avm1.ActionBuilder) {
		b.Push(avm1.PushString("oops"))
		b.Emit(avm1.ActionThrow)
	}))
	b.AddActions("corrupt", "", actions(func(b *avm1.ActionBuilder) {
		b.EmitPayload(avm1.ActionPush, []byte{42})
	}))
	b.AddUnit(traceUnit("main", "two"))
	b.AddUnit(unit("nullcall", func(u *avm2.UnitBuilder, b *avm2.CodeBuilder) {
		b.Ops(avm2.OpPushNull)
		b.Emit(avm2.OpCallPropVoid, u.Public("foo"), 0)
	}))
	b.AddUnit(unit("badop", func(u *avm2.UnitBuilder, b *avm2.CodeBuilder) {
		b.Ops(avm2.Op(0xFF))
	}))
	b.AddActions("frame2", "", traceActions("three"))

	r, err := p.RunBundle(sealed(t, b))
	if err != nil {
		t.Fatalf("RunBundle: %v", err)
	}

	type summary struct {
		Name    string
		Dialect Dialect
		Outcome Outcome
		Class   string
		Code    int
	}
	var got []summary
	for _, u := range r.Results {
		got = append(got, summary{u.Name, u.Dialect, u.Outcome, u.Class, u.Code})
	}
	want := []summary{
		{"frame1", DialectAVM1, Completed, "", 0},
		{"throws", DialectAVM1, Uncaught, "", 0},
		{"corrupt", DialectAVM1, Aborted, "", 0},
		{"frame2", DialectAVM1, Completed, "", 0},
		{"main", DialectAVM2, Completed, "", 0},
		{"nullcall", DialectAVM2, Uncaught, "TypeError", int(avm2.CodeNullReference)},
		{"badop", DialectAVM2, Aborted, "", int(avm2.CodeIllegalOpcode)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("results:\n got %+v\nwant %+v", got, want)
	}
	if !r.Failed() {
		t.Error("Failed() = false")
	}
	if !reflect.DeepEqual(*out, []string{"one", "three", "two"}) {
		t.Errorf("trace = %q", *out)
	}
}

func TestRunBundleRejectsTampering(t *testing.T) {
	p, out := newTestPlayer(t, 0)
	b := bundle.New("doc", 10)
	b.AddActions("frame1", "", traceActions("never"))
	sealed(t, b)
	b.Actions[0].Code = traceActions("evil")

	if _, err := p.RunBundle(b); !errors.Is(err, bundle.ErrHashMismatch) {
		t.Errorf("RunBundle = %v, want hash mismatch", err)
	}
	if len(*out) != 0 {
		t.Errorf("tampered code ran: %q", *out)
	}
}

func TestActionsTargetClips(t *testing.T) {
	p, _ := newTestPlayer(t, 0)
	b := bundle.New("doc", 6)
	b.AddActions("menu", "/menu/button", actions(func(b *avm1.ActionBuilder) {
		b.Push(avm1.PushString("label"), avm1.PushString("ok"))
		b.Emit(avm1.ActionSetVariable)
	}))
	r, err := p.RunBundle(sealed(t, b))
	if err != nil || r.Failed() {
		t.Fatalf("RunBundle = %+v, %v", r, err)
	}
	clip := p.AVM1().ResolvePath("/menu/button")
	if clip == nil {
		t.Fatal("target clip was not created")
	}
	if clip.Version() != 6 {
		t.Errorf("clip version = %d, want 6", clip.Version())
	}
	if prop := clip.Object().OwnProperty("label", true); prop == nil || prop.Value.AsString().String() != "ok" {
		t.Errorf("label = %v", prop)
	}
}

func TestCollectsBetweenUnits(t *testing.T) {
	p, _ := newTestPlayer(t, 1)
	b := bundle.New("doc", 10)
	for i := range 3 {
		b.AddActions(fmt.Sprintf("frame%d", i), "", actions(func(b *avm1.ActionBuilder) {
			b.Push(avm1.PushInt(0), avm1.PushString("Object"))
			b.Emit(avm1.ActionNewObject, avm1.ActionPop)
		}))
	}
	r, err := p.RunBundle(sealed(t, b))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Cycles) == 0 {
		t.Error("no collection ran between units")
	}
	if p.Heap().Totals().Cycles != len(r.Cycles) {
		t.Errorf("heap cycles = %d, report cycles = %d", p.Heap().Totals().Cycles, len(r.Cycles))
	}
}

func TestPlayersRunInParallel(t *testing.T) {
	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	traces := make([][]string, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out []string
			p, err := New(Options{Trace: func(s string) { out = append(out, s) }})
			if err != nil {
				errs[i] = err
				return
			}
			defer p.Close()
			msg := fmt.Sprintf("player %d", i)
			b := bundle.New("doc", 10)
			b.AddActions("set", "", actions(func(b *avm1.ActionBuilder) {
				b.Push(avm1.PushString("shared"), avm1.PushString(msg))
				b.Emit(avm1.ActionSetVariable)
				b.Push(avm1.PushString("shared"))
				b.Emit(avm1.ActionGetVariable, avm1.ActionTrace)
			}))
			b.AddUnit(traceUnit("main", msg))
			if err := b.Seal(); err != nil {
				errs[i] = err
				return
			}
			r, err := p.RunBundle(b)
			if err == nil && r.Failed() {
				err = fmt.Errorf("results %+v", r.Results)
			}
			errs[i] = err
			traces[i] = out
		}()
	}
	wg.Wait()
	for i := range n {
		if errs[i] != nil {
			t.Errorf("player %d: %v", i, errs[i])
			continue
		}
		msg := fmt.Sprintf("player %d", i)
		if !reflect.DeepEqual(traces[i], []string{msg, msg}) {
			t.Errorf("player %d trace = %q", i, traces[i])
		}
	}
}

func TestOptionsFromManifest(t *testing.T) {
	m, err := manifest.Parse([]byte(`
[player]
swf_version = 7

[limits]
max_recursion_depth = 64
execution_timeout = "2s"

[heap]
collect_threshold = 100
`))
	if err != nil {
		t.Fatal(err)
	}
	opts := OptionsFromManifest(m)
	if opts.SWFVersion != 7 || opts.CollectThreshold != 100 {
		t.Errorf("opts = %+v", opts)
	}
	if opts.AVM1.MaxRecursionDepth != 64 || opts.AVM2.MaxRecursionDepth != 64 {
		t.Errorf("recursion depth = %d/%d", opts.AVM1.MaxRecursionDepth, opts.AVM2.MaxRecursionDepth)
	}
	if opts.AVM1.MaxPrototypeDepth != manifest.DefaultMaxPrototypeDepth {
		t.Errorf("prototype depth default = %d", opts.AVM1.MaxPrototypeDepth)
	}
	if opts.AVM2.Timeout.Seconds() != 2 {
		t.Errorf("timeout = %s", opts.AVM2.Timeout)
	}

	p, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if p.AVM1().Version() != 7 {
		t.Errorf("avm1 version = %d", p.AVM1().Version())
	}
}
