package avm1

// Special names a value the calling convention can preload.
type Special uint8

const (
	SpecialThis Special = iota
	SpecialArguments
	SpecialSuper
	SpecialRoot
	SpecialParent
	SpecialGlobal
)

var specialNames = [...]string{"this", "arguments", "super", "_root", "_parent", "_global"}

func (s Special) String() string { return specialNames[s] }

// Binding says where a special value ends up.
type Binding uint8

const (
	BindRegister Binding = iota
	BindNamed
)

// PreloadSlot is one step of a preload plan.
type PreloadSlot struct {
	Special  Special
	Binding  Binding
	Register uint8
	// Suppressed means the register receives undefined instead of the value.
	Suppressed bool
}

// PlanPreload computes the deterministic preload plan for a flag set.
// Specials are visited in the fixed order this, arguments, super, root,
// parent, global; register numbering starts at 1. A preloaded value takes
// the next register; preload together with suppress stores undefined
// there, except for arguments where preload wins. A value neither
// preloaded nor suppressed becomes a named local when it has a name
// (this, arguments, super). When the base clip has no parent, a
// preloaded parent is dropped without consuming a register, so global
// moves into the register parent would have used.
func PlanPreload(flags Flags, hasParent bool) []PreloadSlot {
	var plan []PreloadSlot
	reg := uint8(1)

	toRegister := func(s Special, suppressed bool) {
		plan = append(plan, PreloadSlot{Special: s, Binding: BindRegister, Register: reg, Suppressed: suppressed})
		reg++
	}
	named := func(s Special) {
		plan = append(plan, PreloadSlot{Special: s, Binding: BindNamed})
	}

	switch {
	case flags.Has(PreloadThis):
		toRegister(SpecialThis, flags.Has(SuppressThis))
	case !flags.Has(SuppressThis):
		named(SpecialThis)
	}

	switch {
	case flags.Has(PreloadArguments):
		toRegister(SpecialArguments, false)
	case !flags.Has(SuppressArguments):
		named(SpecialArguments)
	}

	switch {
	case flags.Has(PreloadSuper):
		toRegister(SpecialSuper, flags.Has(SuppressSuper))
	case !flags.Has(SuppressSuper):
		named(SpecialSuper)
	}

	if flags.Has(PreloadRoot) {
		toRegister(SpecialRoot, false)
	}
	if flags.Has(PreloadParent) && hasParent {
		toRegister(SpecialParent, false)
	}
	if flags.Has(PreloadGlobal) {
		toRegister(SpecialGlobal, false)
	}
	return plan
}
