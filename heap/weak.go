package heap

// ---------------------------------------------------------------------------
// Weak: a reference that doesn't prevent collection
// ---------------------------------------------------------------------------

// Weak holds a reference that is cleared when its target is collected.
type Weak struct {
	heap   *Heap
	target Object
}

// NewWeak creates a weak reference to o.
func (h *Heap) NewWeak(o Object) *Weak {
	w := &Weak{heap: h, target: o}
	h.weaks[w] = struct{}{}
	return w
}

// Get returns the target, or nil once it has been collected.
func (w *Weak) Get() Object {
	return w.target
}

// IsAlive reports whether the target has not been collected.
func (w *Weak) IsAlive() bool {
	return w.target != nil
}

// Release unregisters the weak reference from its heap.
func (w *Weak) Release() {
	delete(w.heap.weaks, w)
	w.target = nil
}

// WeakCount returns the number of registered weak references.
func (h *Heap) WeakCount() int {
	return len(h.weaks)
}
