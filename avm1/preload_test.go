package avm1

import (
	"reflect"
	"testing"
)

func TestPlanPreload(t *testing.T) {
	all := PreloadThis | PreloadArguments | PreloadSuper | PreloadRoot | PreloadParent | PreloadGlobal

	tests := []struct {
		name      string
		flags     Flags
		hasParent bool
		want      []PreloadSlot
	}{
		{
			name:      "no flags binds named locals",
			flags:     0,
			hasParent: true,
			want: []PreloadSlot{
				{Special: SpecialThis, Binding: BindNamed},
				{Special: SpecialArguments, Binding: BindNamed},
				{Special: SpecialSuper, Binding: BindNamed},
			},
		},
		{
			name:      "everything preloaded",
			flags:     all,
			hasParent: true,
			want: []PreloadSlot{
				{Special: SpecialThis, Binding: BindRegister, Register: 1},
				{Special: SpecialArguments, Binding: BindRegister, Register: 2},
				{Special: SpecialSuper, Binding: BindRegister, Register: 3},
				{Special: SpecialRoot, Binding: BindRegister, Register: 4},
				{Special: SpecialParent, Binding: BindRegister, Register: 5},
				{Special: SpecialGlobal, Binding: BindRegister, Register: 6},
			},
		},
		{
			name:      "missing parent keeps its register for global",
			flags:     all,
			hasParent: false,
			want: []PreloadSlot{
				{Special: SpecialThis, Binding: BindRegister, Register: 1},
				{Special: SpecialArguments, Binding: BindRegister, Register: 2},
				{Special: SpecialSuper, Binding: BindRegister, Register: 3},
				{Special: SpecialRoot, Binding: BindRegister, Register: 4},
				{Special: SpecialGlobal, Binding: BindRegister, Register: 5},
			},
		},
		{
			name:      "preload and suppress this stores undefined",
			flags:     PreloadThis | SuppressThis | SuppressArguments | SuppressSuper,
			hasParent: true,
			want: []PreloadSlot{
				{Special: SpecialThis, Binding: BindRegister, Register: 1, Suppressed: true},
			},
		},
		{
			name:      "preload wins over suppress for arguments",
			flags:     PreloadArguments | SuppressArguments | SuppressThis | SuppressSuper,
			hasParent: true,
			want: []PreloadSlot{
				{Special: SpecialArguments, Binding: BindRegister, Register: 1},
			},
		},
		{
			name:      "suppress all binds nothing",
			flags:     SuppressThis | SuppressArguments | SuppressSuper,
			hasParent: true,
			want:      nil,
		},
		{
			name:      "root and global only",
			flags:     PreloadRoot | PreloadGlobal | SuppressThis | SuppressArguments | SuppressSuper,
			hasParent: true,
			want: []PreloadSlot{
				{Special: SpecialRoot, Binding: BindRegister, Register: 1},
				{Special: SpecialGlobal, Binding: BindRegister, Register: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanPreload(tt.flags, tt.hasParent)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PlanPreload(%#x, %v) = %+v, want %+v", tt.flags, tt.hasParent, got, tt.want)
			}
		})
	}
}

func TestSpecialNames(t *testing.T) {
	want := map[Special]string{
		SpecialThis: "this", SpecialArguments: "arguments", SpecialSuper: "super",
		SpecialRoot: "_root", SpecialParent: "_parent", SpecialGlobal: "_global",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("Special(%d).String() = %q, want %q", s, s.String(), name)
		}
	}
}
