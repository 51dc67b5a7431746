// Package heap is the engine's managed heap: a registry of script-visible
// objects with root sources, weak references, finalizers and a
// tracing mark/sweep collector that reclaims reference cycles.
//
// A Heap is not safe for concurrent use. Each player owns one.
package heap

import (
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("avm.heap")

// Object is anything the collector manages. Trace must hand every
// outgoing edge to the tracer; edges to nil pointers must be skipped.
type Object interface {
	Trace(t *Tracer)
}

// RootFunc marks objects reachable from a root source such as a VM's
// globals or its live activation stack.
type RootFunc func(t *Tracer)

// ---------------------------------------------------------------------------
// Tracer
// ---------------------------------------------------------------------------

// Tracer accumulates the mark set during a collection. Marking is
// iterative: Mark only queues, so deep object graphs never recurse.
type Tracer struct {
	marked map[Object]struct{}
	work   []Object
}

// Mark queues o for tracing if it has not been seen yet.
func (t *Tracer) Mark(o Object) {
	if o == nil {
		return
	}
	if _, seen := t.marked[o]; seen {
		return
	}
	t.marked[o] = struct{}{}
	t.work = append(t.work, o)
}

// IsMarked reports whether o has been reached.
func (t *Tracer) IsMarked(o Object) bool {
	_, ok := t.marked[o]
	return ok
}

func (t *Tracer) drain() {
	for len(t.work) > 0 {
		o := t.work[len(t.work)-1]
		t.work = t.work[:len(t.work)-1]
		o.Trace(t)
	}
}

// ---------------------------------------------------------------------------
// Heap
// ---------------------------------------------------------------------------

// CycleStats describes one collection.
type CycleStats struct {
	Marked      int
	Collected   int
	WeakCleared int
	Finalized   int
	Duration    time.Duration
}

// Totals accumulates over the heap's lifetime.
type Totals struct {
	Allocated int
	Collected int
	Cycles    int
}

// Heap owns every managed object of one player.
type Heap struct {
	objects    map[Object]struct{}
	roots      map[int]RootFunc
	nextRoot   int
	finalizers map[Object]func()
	weaks      map[*Weak]struct{}

	threshold  int
	sinceCycle int
	totals     Totals
	collecting bool
}

// New creates an empty heap. A threshold <= 0 disables MaybeCollect.
func New(threshold int) *Heap {
	return &Heap{
		objects:    make(map[Object]struct{}),
		roots:      make(map[int]RootFunc),
		finalizers: make(map[Object]func()),
		weaks:      make(map[*Weak]struct{}),
		threshold:  threshold,
	}
}

// Alloc registers o with the heap and returns it.
func Alloc[T Object](h *Heap, o T) T {
	h.Register(o)
	return o
}

// Register adds o to the set of managed objects.
func (h *Heap) Register(o Object) {
	if _, ok := h.objects[o]; ok {
		return
	}
	h.objects[o] = struct{}{}
	h.sinceCycle++
	h.totals.Allocated++
}

// Contains reports whether o is still managed (has not been collected).
func (h *Heap) Contains(o Object) bool {
	_, ok := h.objects[o]
	return ok
}

// Live returns the number of managed objects.
func (h *Heap) Live() int {
	return len(h.objects)
}

// Totals returns lifetime counters.
func (h *Heap) Totals() Totals {
	return h.totals
}

// AddRoot registers a root source. The returned function removes it.
func (h *Heap) AddRoot(fn RootFunc) (remove func()) {
	id := h.nextRoot
	h.nextRoot++
	h.roots[id] = fn
	return func() { delete(h.roots, id) }
}

// SetFinalizer registers fn to run when o is collected. A nil fn clears it.
func (h *Heap) SetFinalizer(o Object, fn func()) {
	if fn == nil {
		delete(h.finalizers, o)
		return
	}
	h.finalizers[o] = fn
}

// ---------------------------------------------------------------------------
// Collection
// ---------------------------------------------------------------------------

// Collect runs a full mark/sweep cycle.
func (h *Heap) Collect() CycleStats {
	if h.collecting {
		return CycleStats{}
	}
	h.collecting = true
	defer func() { h.collecting = false }()

	start := time.Now()
	t := &Tracer{marked: make(map[Object]struct{}, len(h.objects))}

	// Mark phase
	for _, root := range h.roots {
		root(t)
	}
	t.drain()

	stats := CycleStats{Marked: len(t.marked)}

	// Weak references to unmarked targets are cleared before finalizers
	// run so a finalizer can never observe a resurrected target.
	for w := range h.weaks {
		if w.target != nil && !t.IsMarked(w.target) {
			w.target = nil
			stats.WeakCleared++
		}
	}

	// Sweep phase
	var finalize []func()
	for o := range h.objects {
		if t.IsMarked(o) {
			continue
		}
		delete(h.objects, o)
		stats.Collected++
		if fn, ok := h.finalizers[o]; ok {
			delete(h.finalizers, o)
			finalize = append(finalize, fn)
		}
	}
	for _, fn := range finalize {
		fn()
		stats.Finalized++
	}

	h.sinceCycle = 0
	h.totals.Collected += stats.Collected
	h.totals.Cycles++
	stats.Duration = time.Since(start)

	log.Debugf("collected %d of %d objects in %s", stats.Collected, stats.Marked+stats.Collected, stats.Duration)
	return stats
}

// MaybeCollect collects when enough allocations have happened since the
// last cycle. Callers invoke it only at safe points.
func (h *Heap) MaybeCollect() (CycleStats, bool) {
	if h.threshold <= 0 || h.sinceCycle < h.threshold {
		return CycleStats{}, false
	}
	return h.Collect(), true
}
