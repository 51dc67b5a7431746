package avm1

import (
	"strings"

	"github.com/chazu/avmcore/heap"
)

// Attribute bits, shared with ASSetPropFlags.
type Attribute uint8

const (
	DontEnum   Attribute = 1 << 0
	DontDelete Attribute = 1 << 1
	ReadOnly   Attribute = 1 << 2
)

// Property is one entry of an object's property table. Virtual
// properties carry a getter and optional setter instead of a value.
type Property struct {
	Name   string
	Value  Value
	Getter *Object
	Setter *Object
	Attrs  Attribute
}

// IsVirtual reports whether the property was added with addProperty.
func (p *Property) IsVirtual() bool { return p.Getter != nil }

// ---------------------------------------------------------------------------
// PropertyMap: insertion-ordered, optionally case-insensitive
// ---------------------------------------------------------------------------

// PropertyMap preserves insertion order and supports both case-sensitive
// and case-insensitive lookup, since documents before version 7 resolve
// names without regard to case.
type PropertyMap struct {
	entries []*Property
	folded  map[string][]int
}

func foldKey(name string) string {
	return strings.ToLower(name)
}

// Find returns the property named name.
func (m *PropertyMap) Find(name string, caseSensitive bool) *Property {
	idxs := m.folded[foldKey(name)]
	if !caseSensitive {
		if len(idxs) > 0 {
			return m.entries[idxs[0]]
		}
		return nil
	}
	for _, i := range idxs {
		if m.entries[i].Name == name {
			return m.entries[i]
		}
	}
	return nil
}

// Insert appends a new property. Callers check for an existing entry first.
func (m *PropertyMap) Insert(p *Property) {
	if m.folded == nil {
		m.folded = make(map[string][]int)
	}
	k := foldKey(p.Name)
	m.folded[k] = append(m.folded[k], len(m.entries))
	m.entries = append(m.entries, p)
}

// Remove deletes the property named name and reports whether it existed.
func (m *PropertyMap) Remove(name string, caseSensitive bool) bool {
	p := m.Find(name, caseSensitive)
	if p == nil {
		return false
	}
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e != p {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	m.reindex()
	return true
}

// RemoveIf deletes every property drop selects in one pass and returns
// how many were removed.
func (m *PropertyMap) RemoveIf(drop func(p *Property) bool) int {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	n := len(m.entries) - len(kept)
	if n > 0 {
		clear(m.entries[len(kept):])
		m.entries = kept
		m.reindex()
	}
	return n
}

func (m *PropertyMap) reindex() {
	m.folded = make(map[string][]int, len(m.entries))
	for i, e := range m.entries {
		k := foldKey(e.Name)
		m.folded[k] = append(m.folded[k], i)
	}
}

// Len returns the number of properties.
func (m *PropertyMap) Len() int { return len(m.entries) }

// Each visits properties in insertion order.
func (m *PropertyMap) Each(fn func(p *Property)) {
	for _, e := range m.entries {
		fn(e)
	}
}

func (m *PropertyMap) trace(t *heap.Tracer) {
	for _, e := range m.entries {
		e.Value.trace(t)
		if e.Getter != nil {
			t.Mark(e.Getter)
		}
		if e.Setter != nil {
			t.Mark(e.Setter)
		}
	}
}
