package heap

import "testing"

type node struct {
	name  string
	edges []*node
}

func (n *node) Trace(t *Tracer) {
	for _, e := range n.edges {
		if e != nil {
			t.Mark(e)
		}
	}
}

func TestCollectReclaimsUnreachable(t *testing.T) {
	h := New(0)
	root := Alloc(h, &node{name: "root"})
	child := Alloc(h, &node{name: "child"})
	root.edges = append(root.edges, child)
	Alloc(h, &node{name: "garbage"})

	h.AddRoot(func(t *Tracer) { t.Mark(root) })

	stats := h.Collect()
	if stats.Collected != 1 {
		t.Errorf("Collected = %d, want 1", stats.Collected)
	}
	if !h.Contains(root) || !h.Contains(child) {
		t.Error("reachable objects were collected")
	}
	if h.Live() != 2 {
		t.Errorf("Live = %d, want 2", h.Live())
	}
}

func TestCollectReclaimsCycles(t *testing.T) {
	h := New(0)
	a := Alloc(h, &node{name: "a"})
	b := Alloc(h, &node{name: "b"})
	a.edges = []*node{b}
	b.edges = []*node{a}

	// Reachable while rooted
	remove := h.AddRoot(func(t *Tracer) { t.Mark(a) })
	if got := h.Collect().Collected; got != 0 {
		t.Fatalf("rooted cycle: Collected = %d, want 0", got)
	}

	remove()
	if got := h.Collect().Collected; got != 2 {
		t.Errorf("unrooted cycle: Collected = %d, want 2", got)
	}
	if h.Contains(a) || h.Contains(b) {
		t.Error("cycle survived collection")
	}
}

func TestDeepChainDoesNotRecurse(t *testing.T) {
	h := New(0)
	head := Alloc(h, &node{})
	cur := head
	for i := 0; i < 200000; i++ {
		next := Alloc(h, &node{})
		cur.edges = []*node{next}
		cur = next
	}
	h.AddRoot(func(t *Tracer) { t.Mark(head) })
	if got := h.Collect().Collected; got != 0 {
		t.Errorf("Collected = %d, want 0", got)
	}
}

func TestWeakClearedAndFinalizerRuns(t *testing.T) {
	h := New(0)
	o := Alloc(h, &node{name: "target"})
	w := h.NewWeak(o)

	var finalizedSawTarget Object
	ran := false
	h.SetFinalizer(o, func() {
		ran = true
		finalizedSawTarget = w.Get()
	})

	remove := h.AddRoot(func(t *Tracer) { t.Mark(o) })
	h.Collect()
	if !w.IsAlive() {
		t.Fatal("weak ref cleared while target alive")
	}

	remove()
	stats := h.Collect()
	if !ran {
		t.Error("finalizer did not run")
	}
	if finalizedSawTarget != nil {
		t.Error("finalizer observed a live weak reference")
	}
	if w.Get() != nil {
		t.Error("weak ref not cleared")
	}
	if stats.WeakCleared != 1 || stats.Finalized != 1 {
		t.Errorf("stats = %+v, want 1 weak cleared and 1 finalized", stats)
	}

	w.Release()
	if h.WeakCount() != 0 {
		t.Errorf("WeakCount = %d, want 0", h.WeakCount())
	}
}

func TestMaybeCollectThreshold(t *testing.T) {
	h := New(3)
	Alloc(h, &node{})
	Alloc(h, &node{})
	if _, ran := h.MaybeCollect(); ran {
		t.Error("collected below threshold")
	}
	Alloc(h, &node{})
	stats, ran := h.MaybeCollect()
	if !ran {
		t.Fatal("did not collect at threshold")
	}
	if stats.Collected != 3 {
		t.Errorf("Collected = %d, want 3", stats.Collected)
	}
	if h.Totals().Cycles != 1 || h.Totals().Allocated != 3 {
		t.Errorf("Totals = %+v", h.Totals())
	}
}
