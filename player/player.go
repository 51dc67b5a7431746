// Package player embeds both script dialects for one document: a managed
// heap shared by an AVM1 and an AVM2 VM, bundle execution with per-unit
// outcomes, and collection at safe points between units.
package player

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/avmcore/avm1"
	"github.com/chazu/avmcore/avm2"
	"github.com/chazu/avmcore/bundle"
	"github.com/chazu/avmcore/heap"
	"github.com/chazu/avmcore/manifest"
)

// Options configure a player.
type Options struct {
	SWFVersion       uint8
	AVM1             avm1.Limits
	AVM2             avm2.Limits
	CollectThreshold int
	// Trace receives trace output from both dialects. Nil logs it.
	Trace func(string)
}

// OptionsFromManifest converts a loaded configuration.
func OptionsFromManifest(m *manifest.Manifest) Options {
	return Options{
		SWFVersion: m.Player.SWFVersion,
		AVM1: avm1.Limits{
			MaxRecursionDepth: m.Limits.MaxRecursionDepth,
			MaxPrototypeDepth: m.Limits.MaxPrototypeDepth,
			MaxSpecialDepth:   m.Limits.MaxSpecialDepth,
			Timeout:           m.Limits.Timeout(),
		},
		AVM2: avm2.Limits{
			MaxRecursionDepth: m.Limits.MaxRecursionDepth,
			Timeout:           m.Limits.Timeout(),
		},
		CollectThreshold: m.Heap.CollectThreshold,
	}
}

// Player owns one isolated heap and the VMs running on it. A player is
// single threaded; independent players may run in parallel.
type Player struct {
	ID uuid.UUID

	heap *heap.Heap
	avm1 *avm1.VM
	avm2 *avm2.VM
	log  commonlog.Logger
}

// New creates a player and bootstraps both VMs.
func New(opts Options) (*Player, error) {
	if opts.SWFVersion == 0 {
		opts.SWFVersion = manifest.DefaultSWFVersion
	}
	h := heap.New(opts.CollectThreshold)
	vm2, err := avm2.NewVM(h, avm2.Options{Limits: opts.AVM2, Trace: opts.Trace})
	if err != nil {
		return nil, fmt.Errorf("player: %w", err)
	}
	p := &Player{
		ID:   uuid.New(),
		heap: h,
		avm1: avm1.NewVM(h, avm1.Options{Version: opts.SWFVersion, Limits: opts.AVM1, Trace: opts.Trace}),
		avm2: vm2,
		log:  commonlog.GetLogger("avm.player"),
	}
	p.log.Infof("player %s started (swf %d, avm1 %s, avm2 %s)", p.ID, opts.SWFVersion, p.avm1.ID, p.avm2.ID)
	return p, nil
}

func (p *Player) Heap() *heap.Heap { return p.heap }
func (p *Player) AVM1() *avm1.VM   { return p.avm1 }
func (p *Player) AVM2() *avm2.VM   { return p.avm2 }

// Close releases both VMs and collects everything they owned.
func (p *Player) Close() {
	p.avm1.Close()
	p.avm2.Close()
	stats := p.heap.Collect()
	p.log.Debugf("player %s closed, %d objects reclaimed", p.ID, stats.Collected)
}

// ---------------------------------------------------------------------------
// Bundle execution
// ---------------------------------------------------------------------------

// Dialect names the VM a unit ran on.
type Dialect string

const (
	DialectAVM1 Dialect = "avm1"
	DialectAVM2 Dialect = "avm2"
)

// Outcome classifies how an execution unit ended.
type Outcome uint8

const (
	// Completed units ran to the end.
	Completed Outcome = iota
	// Uncaught units ended with a scripted error no handler caught.
	Uncaught
	// Aborted units hit a host failure.
	Aborted
)

var outcomeNames = [...]string{"completed", "uncaught", "aborted"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", o)
}

// UnitResult describes one execution unit.
type UnitResult struct {
	Name    string
	Dialect Dialect
	Outcome Outcome
	// Class and Code identify an uncaught AVM2 error object, or the
	// host failure code.
	Class   string
	Code    int
	Message string
	Err     error
}

// Report collects the results of one bundle.
type Report struct {
	Bundle  string
	Results []UnitResult
	Cycles  []heap.CycleStats
}

// Failed reports whether any unit did not complete.
func (r *Report) Failed() bool {
	for _, u := range r.Results {
		if u.Outcome != Completed {
			return true
		}
	}
	return false
}

// RunBundle verifies b and runs its units in order: the action blocks
// first, then each translation unit's entry script. A unit's failure
// does not stop the following ones. The returned error reports only a
// bundle that could not be run at all.
func (p *Player) RunBundle(b *bundle.Bundle) (*Report, error) {
	if err := b.Verify(); err != nil {
		return nil, err
	}
	r := &Report{Bundle: b.Name}
	for _, blk := range b.Actions {
		version := blk.Version
		if version == 0 {
			version = b.Version
		}
		clip := p.ensureClip(blk.Target, version)
		_, err := p.avm1.RunActions(blk.Code, clip)
		r.add(p.avm1Result(blk.Name, err))
		p.collect(r)
	}
	for _, u := range b.Units {
		err := p.avm2.Execute(u)
		r.add(p.avm2Result(u.Name, err))
		p.collect(r)
	}
	return r, nil
}

func (r *Report) add(u UnitResult) { r.Results = append(r.Results, u) }

func (p *Player) collect(r *Report) {
	if stats, ok := p.heap.MaybeCollect(); ok {
		r.Cycles = append(r.Cycles, stats)
	}
}

// ensureClip resolves a slash path under the root, creating the clips
// that do not exist yet.
func (p *Player) ensureClip(path string, version uint8) *avm1.Clip {
	cur := p.avm1.Root()
	for _, name := range strings.Split(strings.Trim(path, "/"), "/") {
		if name == "" {
			continue
		}
		next := cur.Child(name, true)
		if next == nil {
			next = p.avm1.NewClip(cur, name, version)
		}
		cur = next
	}
	return cur
}

func (p *Player) avm1Result(name string, err error) UnitResult {
	res := UnitResult{Name: name, Dialect: DialectAVM1, Err: err}
	switch {
	case err == nil:
		res.Outcome = Completed
	case avm1.IsHalt(err):
		res.Outcome = Aborted
		res.Message = err.Error()
		p.log.Errorf("%s: internal error: %s", name, err)
	default:
		res.Outcome = Uncaught
		res.Message = err.Error()
		p.log.Warningf("%s: %s", name, err)
	}
	return res
}

func (p *Player) avm2Result(name string, err error) UnitResult {
	res := UnitResult{Name: name, Dialect: DialectAVM2, Err: err}
	if err == nil {
		return res
	}
	res.Message = err.Error()
	if v, ok := avm2.AsScriptedError(err); ok {
		res.Outcome = Uncaught
		if info, ok := avm2.ErrorDetails(v); ok {
			res.Class, res.Code, res.Message = info.Class, int(info.Code), info.Message
		}
		p.log.Warningf("%s: uncaught %s #%d: %s", name, res.Class, res.Code, res.Message)
		return res
	}
	res.Outcome = Aborted
	var h *avm2.HostError
	if errors.As(err, &h) {
		res.Code = int(h.Code)
	}
	p.log.Errorf("%s: internal error: %s", name, err)
	return res
}
