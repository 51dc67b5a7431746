package avm2

import (
	"fmt"
)

// Domain is an application domain: the export table that maps each
// qualified name to the script defining it. Lookups consult the parent
// domain first, so system definitions cannot be shadowed.
type Domain struct {
	parent *Domain
	defs   map[QName]*Script
}

// NewDomain creates a child of parent (nil for the system domain).
func NewDomain(parent *Domain) *Domain {
	return &Domain{parent: parent, defs: make(map[QName]*Script)}
}

func (d *Domain) Parent() *Domain { return d.parent }

// Export publishes name as defined by s. The first definition of a name
// wins; a later one reports false.
func (d *Domain) Export(name QName, s *Script) bool {
	if d.HasDefinition(name) {
		return false
	}
	d.defs[name] = s
	return true
}

// HasDefinition reports whether name is exported here or by a parent.
func (d *Domain) HasDefinition(name QName) bool {
	for cur := d; cur != nil; cur = cur.parent {
		if _, ok := cur.defs[name]; ok {
			return true
		}
	}
	return false
}

func (d *Domain) lookup(q QName) (*Script, bool) {
	if d.parent != nil {
		if s, ok := d.parent.lookup(q); ok {
			return s, true
		}
	}
	s, ok := d.defs[q]
	return s, ok
}

func (d *Domain) findScript(mn Multiname) (*Script, QName, bool) {
	for _, q := range mn.QNames() {
		if s, ok := d.lookup(q); ok {
			return s, q, true
		}
	}
	return nil, QName{}, false
}

// GetDefinition returns the value exported as name, running the
// defining script's initializer on first use.
func (d *Domain) GetDefinition(a *Activation, name QName) (Value, error) {
	s, ok := d.lookup(name)
	if !ok {
		return Undefined, a.Throw(CodeUndefinedVariable, name)
	}
	global, err := s.ensureInitialized(a)
	if err != nil {
		return Undefined, err
	}
	return global.GetProperty(a, name.Multiname())
}

// ---------------------------------------------------------------------------
// Script
// ---------------------------------------------------------------------------

type scriptState uint8

const (
	scriptPending scriptState = iota
	scriptRunning
	scriptDone
)

// Script is a loaded script: its global object and its initializer,
// which runs at most once, the first time one of its definitions is
// needed or when the host executes it.
type Script struct {
	vm     *VM
	unit   *TranslationUnit
	def    *ScriptDef
	global *Object
	domain *Domain
	state  scriptState
}

func (s *Script) Global() *Object        { return s.global }
func (s *Script) Unit() *TranslationUnit { return s.unit }
func (s *Script) Initialized() bool      { return s.state == scriptDone }

// ensureInitialized runs the initializer once. Re-entrant lookups made
// while it runs see the partially initialized global.
func (s *Script) ensureInitialized(a *Activation) (*Object, error) {
	if s.state != scriptPending {
		return s.global, nil
	}
	s.state = scriptRunning
	if s.def != nil && s.def.Init != nil {
		scope := NewScopeChain(s.global, s.domain)
		if _, err := s.vm.invoke(a, s.def.Init, ObjectValue(s.global), nil, scope, nil, nil); err != nil {
			s.state = scriptPending
			return nil, err
		}
	}
	s.state = scriptDone
	return s.global, nil
}

// Load links unit and creates a script per definition in the VM's
// domain, exporting every trait name. Initializers do not run yet.
func (vm *VM) Load(unit *TranslationUnit) ([]*Script, error) {
	if err := unit.link(); err != nil {
		return nil, &HostError{Err: err}
	}
	scripts := make([]*Script, 0, len(unit.Scripts))
	for _, def := range unit.Scripts {
		s, err := vm.newScript(unit, def, vm.domain)
		if err != nil {
			return nil, err
		}
		for _, t := range def.Traits {
			if !vm.domain.Export(t.Name, s) {
				vm.log.Warningf("%s: definition %s already exists", unit.Name, t.Name)
			}
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

func (vm *VM) newScript(unit *TranslationUnit, def *ScriptDef, domain *Domain) (*Script, error) {
	vt, err := newVTable(nil, nil, def.Traits)
	if err != nil {
		return nil, &HostError{Code: CodeIllegalOverride, Err: err}
	}
	global := vm.newGlobalObject(vt)
	vt.scope = NewScopeChain(global, domain)
	for _, t := range def.Traits {
		if t.Kind != TraitFunction || t.Method == nil {
			continue
		}
		if b, ok := vt.lookupQName(t.Name); ok {
			global.slots[b.slot] = ObjectValue(vm.newFunctionObject(&Closure{method: t.Method, scope: vt.scope}))
		}
	}
	return &Script{vm: vm, unit: unit, def: def, global: global, domain: domain}, nil
}

// Execute loads unit and runs its entry script, the last one. Other
// scripts initialize lazily when their definitions are first used.
func (vm *VM) Execute(unit *TranslationUnit) error {
	scripts, err := vm.Load(unit)
	if err != nil {
		return err
	}
	if len(scripts) == 0 {
		return &HostError{Err: fmt.Errorf("%s: no entry point", unit.Name)}
	}
	entry := scripts[len(scripts)-1]
	return vm.runUnit(func(a *Activation) error {
		_, err := entry.ensureInitialized(a)
		return err
	})
}
