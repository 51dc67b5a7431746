package avm2

import (
	"fmt"
)

// TranslationUnit is one decoded compilation unit: the constant pools,
// method bodies, classes and scripts that code refers to by index. The
// decoder that produces it is outside this package; units arrive ready
// to link, usually from a bundle.
//
// Pools are plain zero-based slices. The decoder drops the reserved
// zero entries of the container format.
type TranslationUnit struct {
	Name       string       `cbor:"1,keyasint"`
	Ints       []int32      `cbor:"2,keyasint,omitempty"`
	Uints      []uint32     `cbor:"3,keyasint,omitempty"`
	Doubles    []float64    `cbor:"4,keyasint,omitempty"`
	Strings    []string     `cbor:"5,keyasint,omitempty"`
	Namespaces []Namespace  `cbor:"6,keyasint,omitempty"`
	Multinames []Multiname  `cbor:"7,keyasint,omitempty"`
	Methods    []*Method    `cbor:"8,keyasint,omitempty"`
	Classes    []*ClassDef  `cbor:"9,keyasint,omitempty"`
	Scripts    []*ScriptDef `cbor:"10,keyasint"`

	linked bool
}

// ScriptDef is a script: an initializer and the traits of its global.
type ScriptDef struct {
	InitID int     `cbor:"1,keyasint"`
	Traits []Trait `cbor:"2,keyasint,omitempty"`

	Init *Method `cbor:"-"`
}

// link resolves every index-based reference to a pointer. It is
// idempotent.
func (u *TranslationUnit) link() error {
	if u.linked {
		return nil
	}
	for i, m := range u.Methods {
		if m == nil {
			return fmt.Errorf("%s: method %d is missing", u.Name, i)
		}
		m.unit = u
		if m.Body != nil {
			if err := u.linkTraits(m.Body.Traits); err != nil {
				return err
			}
		}
	}
	for i, c := range u.Classes {
		if c == nil {
			return fmt.Errorf("%s: class %d is missing", u.Name, i)
		}
		var err error
		if c.Init, err = u.method(c.InitID); err != nil {
			return err
		}
		if c.ClassInit, err = u.method(c.ClassInitID); err != nil {
			return err
		}
		if err := u.linkTraits(c.InstanceTraits); err != nil {
			return err
		}
		if err := u.linkTraits(c.ClassTraits); err != nil {
			return err
		}
	}
	for _, s := range u.Scripts {
		var err error
		if s.Init, err = u.method(s.InitID); err != nil {
			return err
		}
		if err := u.linkTraits(s.Traits); err != nil {
			return err
		}
	}
	u.linked = true
	return nil
}

func (u *TranslationUnit) linkTraits(traits []Trait) error {
	for i := range traits {
		t := &traits[i]
		switch t.Kind {
		case TraitMethod, TraitGetter, TraitSetter, TraitFunction:
			if t.Method != nil {
				continue
			}
			m, err := u.method(t.MethodID)
			if err != nil {
				return err
			}
			t.Method = m
		case TraitClass:
			if t.Class != nil {
				continue
			}
			if t.ClassID < 0 || t.ClassID >= len(u.Classes) {
				return fmt.Errorf("%s: trait %s: class %d out of range", u.Name, t.Name, t.ClassID)
			}
			t.Class = u.Classes[t.ClassID]
		}
	}
	return nil
}

func (u *TranslationUnit) method(i int) (*Method, error) {
	if i < 0 || i >= len(u.Methods) {
		return nil, fmt.Errorf("%s: method %d out of range %d", u.Name, i, len(u.Methods))
	}
	return u.Methods[i], nil
}

// ---------------------------------------------------------------------------
// Pool access from running code
// ---------------------------------------------------------------------------

func poolEntry[T any](pool []T, i int, code Code) (T, error) {
	var zero T
	if i < 0 || i >= len(pool) {
		return zero, &HostError{Code: code, Err: fmt.Errorf("index %d out of range %d", i, len(pool))}
	}
	return pool[i], nil
}

func (u *TranslationUnit) stringAt(i int) (string, error) {
	return poolEntry(u.Strings, i, CodeCpoolIndex)
}

func (u *TranslationUnit) multinameAt(i int) (Multiname, error) {
	return poolEntry(u.Multinames, i, CodeCpoolIndex)
}

func (u *TranslationUnit) classAt(i int) (*ClassDef, error) {
	return poolEntry(u.Classes, i, CodeCpoolIndex)
}

func (u *TranslationUnit) methodAt(i int) (*Method, error) {
	return poolEntry(u.Methods, i, CodeCpoolIndex)
}
