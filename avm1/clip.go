package avm1

import (
	"strings"

	"github.com/chazu/avmcore/heap"
)

// ---------------------------------------------------------------------------
// Clip: the display base object
// ---------------------------------------------------------------------------

// Clip stands in for a display-list node owned by the host's display
// subsystem. The engine only needs its name, its place in the tree and
// the object that holds its timeline variables.
type Clip struct {
	vm       *VM
	name     string
	parent   *Clip
	children []*Clip
	object   *Object
	version  uint8
	ref      *ClipRef
}

// NewClip creates a clip under parent (nil for a root timeline).
func (vm *VM) NewClip(parent *Clip, name string, version uint8) *Clip {
	c := &Clip{vm: vm, name: name, parent: parent, version: version}
	c.object = alloc(vm, &Object{kind: ObjectClip, proto: vm.protos.MovieClip, clip: c})
	if parent != nil {
		parent.children = append(parent.children, c)
	}
	vm.heap.SetFinalizer(c.object, c.release)
	return c
}

// release runs once the clip's object is collected and unregisters the
// weak handle its reference cached.
func (c *Clip) release() {
	if c.ref != nil && c.ref.cached != nil {
		c.ref.cached.Release()
		c.ref.cached = nil
	}
	c.vm.log.Debugf("clip %s reclaimed", c.name)
}

func (c *Clip) Name() string      { return c.name }
func (c *Clip) Parent() *Clip     { return c.parent }
func (c *Clip) Object() *Object   { return c.object }
func (c *Clip) Version() uint8    { return c.version }
func (c *Clip) Children() []*Clip { return c.children }

// Root returns the top of c's timeline tree.
func (c *Clip) Root() *Clip {
	cur := c
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Path returns the dotted target path, e.g. _level0.menu.button.
func (c *Clip) Path() string {
	if c.parent == nil {
		return "_level0"
	}
	return c.parent.Path() + "." + c.name
}

// SlashPath returns the legacy slash target path, e.g. /menu/button.
func (c *Clip) SlashPath() string {
	if c.parent == nil {
		return "/"
	}
	p := c.parent.SlashPath()
	if p == "/" {
		return "/" + c.name
	}
	return p + "/" + c.name
}

// Child returns the direct child named name.
func (c *Clip) Child(name string, caseSensitive bool) *Clip {
	for _, ch := range c.children {
		if ch.name == name || (!caseSensitive && strings.EqualFold(ch.name, name)) {
			return ch
		}
	}
	return nil
}

// RemoveChild detaches ch from c.
func (c *Clip) RemoveChild(ch *Clip) {
	for i, x := range c.children {
		if x == ch {
			c.children = append(c.children[:i], c.children[i+1:]...)
			ch.parent = nil
			return
		}
	}
}

func (c *Clip) trace(t *heap.Tracer) {
	if c.parent != nil {
		t.Mark(c.parent.object)
	}
	for _, ch := range c.children {
		t.Mark(ch.object)
	}
}

func (c *Clip) getDisplayProperty(a *Activation, name string) (Value, bool) {
	if ch := c.Child(name, a.caseSensitive()); ch != nil {
		return ClipRefValue(c.vm.Reference(ch)), true
	}
	switch strings.ToLower(name) {
	case "_parent":
		if c.parent == nil {
			return Undefined, false
		}
		return ClipRefValue(c.vm.Reference(c.parent)), true
	case "_root", "_level0":
		return ClipRefValue(c.vm.Reference(c.Root())), true
	case "_name":
		return Str(c.name), true
	case "_target":
		return Str(c.SlashPath()), true
	case "_global":
		if a.version >= 6 {
			return ObjectValue(c.vm.global), true
		}
	}
	return Undefined, false
}

func (c *Clip) setDisplayProperty(a *Activation, name string, v Value) bool {
	if strings.EqualFold(name, "_name") {
		s, err := a.ToString(v)
		if err == nil {
			c.name = s.String()
		}
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// ClipRef: a path reference that survives clip replacement
// ---------------------------------------------------------------------------

// ClipRef names a clip by target path and caches a weak handle to it, so
// a stored reference follows whichever clip currently lives at that path.
type ClipRef struct {
	Path   string
	vm     *VM
	cached *heap.Weak
}

// Reference returns a path reference to c. References are shared per
// clip until the clip moves to another path.
func (vm *VM) Reference(c *Clip) *ClipRef {
	if c.ref != nil && c.ref.Path == c.Path() {
		return c.ref
	}
	c.ref = &ClipRef{Path: c.Path(), vm: vm, cached: vm.heap.NewWeak(c.object)}
	return c.ref
}

// Resolve returns the clip currently at the reference's path, or nil.
func (r *ClipRef) Resolve() *Clip {
	if r.cached != nil {
		if o, ok := r.cached.Get().(*Object); ok && o != nil && o.clip != nil && o.clip.Path() == r.Path && o.clip.attached() {
			return o.clip
		}
		r.cached.Release()
		r.cached = nil
	}
	c := r.vm.ResolvePath(r.Path)
	if c != nil {
		r.cached = r.vm.heap.NewWeak(c.object)
	}
	return c
}

func (c *Clip) attached() bool {
	return c.Root() == c.vm.root
}

// ResolvePath finds a clip by dotted or slash target path from the root.
func (vm *VM) ResolvePath(path string) *Clip {
	if vm.root == nil {
		return nil
	}
	var parts []string
	switch {
	case strings.HasPrefix(path, "/"):
		parts = strings.Split(strings.Trim(path, "/"), "/")
	default:
		parts = strings.Split(path, ".")
		if len(parts) == 0 || !strings.EqualFold(parts[0], "_level0") && !strings.EqualFold(parts[0], "_root") {
			return nil
		}
		parts = parts[1:]
	}
	cur := vm.root
	for _, p := range parts {
		if p == "" {
			continue
		}
		if cur = cur.Child(p, false); cur == nil {
			return nil
		}
	}
	return cur
}
