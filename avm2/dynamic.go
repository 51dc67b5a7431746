package avm2

import (
	"github.com/chazu/avmcore/heap"
)

// dynamicProperty is one expando property. Dynamic properties always
// live in the unnamed public namespace.
type dynamicProperty struct {
	value    Value
	dontEnum bool
}

// propertyMap keeps insertion order so for-in enumerates properties the
// way they were created.
type propertyMap struct {
	index map[string]int
	names []string
	props []dynamicProperty
}

func newPropertyMap() *propertyMap {
	return &propertyMap{index: make(map[string]int)}
}

func (m *propertyMap) get(name string) (Value, bool) {
	if m == nil {
		return Undefined, false
	}
	i, ok := m.index[name]
	if !ok {
		return Undefined, false
	}
	return m.props[i].value, true
}

func (m *propertyMap) set(name string, v Value) {
	if i, ok := m.index[name]; ok {
		m.props[i].value = v
		return
	}
	m.index[name] = len(m.props)
	m.names = append(m.names, name)
	m.props = append(m.props, dynamicProperty{value: v})
}

// setHidden stores a property that for-in skips.
func (m *propertyMap) setHidden(name string, v Value) {
	m.set(name, v)
	m.props[m.index[name]].dontEnum = true
}

func (m *propertyMap) setEnumerable(name string, enumerable bool) {
	if i, ok := m.index[name]; ok {
		m.props[i].dontEnum = !enumerable
	}
}

func (m *propertyMap) isEnumerable(name string) bool {
	if m == nil {
		return false
	}
	i, ok := m.index[name]
	return ok && !m.props[i].dontEnum
}

func (m *propertyMap) has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.index[name]
	return ok
}

// delete removes name, keeping the order of the rest.
func (m *propertyMap) delete(name string) bool {
	i, ok := m.index[name]
	if !ok {
		return false
	}
	m.names = append(m.names[:i], m.names[i+1:]...)
	m.props = append(m.props[:i], m.props[i+1:]...)
	delete(m.index, name)
	for j := i; j < len(m.names); j++ {
		m.index[m.names[j]] = j
	}
	return true
}

// enumerable returns the names for-in visits.
func (m *propertyMap) enumerable() []string {
	if m == nil {
		return nil
	}
	var out []string
	for i, n := range m.names {
		if !m.props[i].dontEnum {
			out = append(out, n)
		}
	}
	return out
}

func (m *propertyMap) trace(t *heap.Tracer) {
	if m == nil {
		return
	}
	for _, p := range m.props {
		p.value.trace(t)
	}
}
