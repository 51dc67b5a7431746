package conformance

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/chazu/avmcore/avm1"
	"github.com/chazu/avmcore/avm2"
)

func TestConformance(t *testing.T) {
	cases, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("no cases loaded")
	}

	results := NewRunner().RunAll(cases)
	for _, r := range results {
		t.Run(r.Case.File+"/"+r.Case.Case.Name, func(t *testing.T) {
			switch {
			case r.Skipped:
				t.Skip(r.SkipReason)
			case !r.Passed:
				t.Error(r.Err)
			}
		})
	}
	t.Log(ComputeStats(results))
}

func TestLoadCoversBothDialects(t *testing.T) {
	cases, err := LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	dialects := map[string]int{}
	for _, c := range cases {
		dialects[c.Case.dialect(c.Suite)]++
	}
	if dialects["avm1"] == 0 || dialects["avm2"] == 0 {
		t.Errorf("cases per dialect = %v", dialects)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"dialect", "name: x\ndialect: avm3\ntests: []\n", "unknown dialect"},
		{"unnamed case", "name: x\ndialect: avm1\ntests:\n  - code: trace\n", "without a name"},
		{"syntax", "name: [\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadFSOrdersFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"d/b.yaml":   {Data: []byte("name: b\ndialect: avm1\ntests:\n  - name: one\n    code: trace\n")},
		"d/a.yaml":   {Data: []byte("name: a\ndialect: avm2\ntests:\n  - name: two\n    code: nop\n")},
		"d/notes.md": {Data: []byte("ignored")},
	}
	cases, err := LoadFS(fsys, "d")
	if err != nil {
		t.Fatal(err)
	}
	if len(cases) != 2 || cases[0].File != "a.yaml" || cases[1].File != "b.yaml" {
		t.Errorf("cases = %+v", cases)
	}
}

// ---------------------------------------------------------------------------
// Assemblers
// ---------------------------------------------------------------------------

func TestAssembleActionsMatchesBuilder(t *testing.T) {
	got, err := AssembleActions(`
		# comment
		push "a, b", 1, 2.5, true, null, undefined, r:1
		label top
		if top
		jump end
		label end
		trace
	`)
	if err != nil {
		t.Fatal(err)
	}

	b := avm1.NewActionBuilder()
	b.Push(avm1.PushString("a, b"), avm1.PushInt(1), avm1.PushNumber(2.5), avm1.PushBool(true),
		avm1.PushNull(), avm1.PushUndefined(), avm1.PushRegister(1))
	top, end := b.NewLabel(), b.NewLabel()
	b.Mark(top)
	b.If(top)
	b.Jump(end)
	b.Mark(end)
	b.Emit(avm1.ActionTrace)

	if string(got) != string(b.Bytes()) {
		t.Errorf("assembled %x, want %x", got, b.Bytes())
	}
}

func TestAssembleActionsErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"unknown action", "frobnicate", "unknown action"},
		{"unplaced label", "jump nowhere", "never placed"},
		{"duplicate label", "label a\nlabel a", "placed twice"},
		{"unclosed block", "function f() {\ntrace", "not closed"},
		{"bad flag", "function2 f() flags=preload_everything {\n}", "unknown flag"},
		{"bare try", "try {\n}", "without catch or finally"},
		{"bad push", "push what", "bad push item"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssembleActions(tt.code)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("AssembleActions = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestAssembleUnit(t *testing.T) {
	u, err := AssembleUnit("u", []Function{{
		Name:   "f",
		Params: []Param{{Name: "a", Type: "int"}, {Name: "b", Default: 3}},
		Flags:  []string{"need_rest"},
		Code:   "returnvoid",
	}}, "findpropstrict com.example::thing\npop")
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Scripts) != 1 || len(u.Methods) != 2 {
		t.Fatalf("unit has %d scripts and %d methods", len(u.Scripts), len(u.Methods))
	}
	f := u.Methods[0]
	if !f.Flags.Has(avm2.NeedRest) || !f.Flags.Has(avm2.HasOptional) {
		t.Errorf("flags = %#x", f.Flags)
	}
	if f.Params[0].Type != avm2.NewQName("", "int") || f.Params[1].Default.Value() != avm2.Int(3) {
		t.Errorf("params = %+v", f.Params)
	}
	tr := u.Scripts[0].Traits[0]
	if tr.Kind != avm2.TraitFunction || tr.Name != avm2.NewQName("", "f") || tr.MethodID != 0 {
		t.Errorf("trait = %+v", tr)
	}
	found := false
	for _, mn := range u.Multinames {
		if mn.String() == "com.example::thing" {
			found = true
		}
	}
	if !found {
		t.Errorf("qualified name not interned: %v", u.Multinames)
	}
}

func TestAssembleUnitErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"unknown", "frob", "unknown instruction"},
		{"operands", "pushnull 1", "unexpected operands"},
		{"missing count", "callproperty foo", "argument count"},
		{"unplaced label", "jump nowhere", "never placed"},
		{"switch forward", "lookupswitch a b\na:\nb:", "placed first"},
		{"catch label", "catch a b c", "never placed"},
		{"unknown function", "newfunction g", "unknown function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssembleUnit("u", nil, tt.code)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("AssembleUnit = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	r := NewRunner()
	res := r.Run(LoadedCase{
		File:  "inline",
		Suite: &Suite{Name: "inline", Dialect: "avm1"},
		Case: Case{
			Name:   "wrong trace",
			Code:   "push \"a\"\ntrace",
			Expect: Expect{Trace: []string{"b"}},
		},
	})
	if res.Passed || res.Err == nil || !strings.Contains(res.Err.Error(), "trace") {
		t.Errorf("result = %+v", res)
	}
}

func TestThenBlocks(t *testing.T) {
	tests := []struct {
		name    string
		then    []Block
		outcome string
		trace   []string
	}{
		{"runs in order", []Block{{Code: "push \"b\"\ntrace"}, {Target: "/c", Code: "push \"c\"\ntrace"}}, "completed", []string{"a", "b", "c"}},
		{"judged by the failing block", []Block{{Code: "push \"x\"\nthrow"}, {Code: "push \"c\"\ntrace"}}, "uncaught", []string{"a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := LoadedCase{
				File:  "inline",
				Suite: &Suite{Name: "inline", Dialect: "avm1"},
				Case: Case{
					Name:   tt.name,
					Code:   "push \"a\"\ntrace",
					Then:   tt.then,
					Expect: Expect{Trace: tt.trace, Outcome: tt.outcome},
				},
			}
			b, err := Bundle(lc)
			if err != nil {
				t.Fatal(err)
			}
			if len(b.Actions) != len(tt.then)+1 {
				t.Errorf("bundle has %d blocks, want %d", len(b.Actions), len(tt.then)+1)
			}
			if res := NewRunner().Run(lc); !res.Passed {
				t.Errorf("Run: %v", res.Err)
			}
		})
	}
}
