package conformance

import (
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/avmcore/avm1"
	"github.com/chazu/avmcore/avm2"
	"github.com/chazu/avmcore/bundle"
	"github.com/chazu/avmcore/player"
)

// Result is the outcome of one case.
type Result struct {
	Case       LoadedCase
	Passed     bool
	Skipped    bool
	SkipReason string
	Trace      []string
	Unit       player.UnitResult
	// Err describes why the case failed.
	Err error
}

// Runner executes cases, each on a fresh player.
type Runner struct {
	// Options is the base configuration; cases override limits.
	Options player.Options
}

// NewRunner creates a runner with the default limits.
func NewRunner() *Runner {
	return &Runner{Options: player.Options{AVM1: avm1.DefaultLimits(), AVM2: avm2.DefaultLimits()}}
}

// Bundle assembles the case into a sealed bundle.
func Bundle(lc LoadedCase) (*bundle.Bundle, error) {
	c, s := &lc.Case, lc.Suite
	b := bundle.New(s.Name, c.version(s))
	switch c.dialect(s) {
	case "avm1":
		code, err := AssembleActions(c.Code)
		if err != nil {
			return nil, err
		}
		b.AddActions(c.Name, c.Target, code)
		for i, blk := range c.Then {
			code, err := AssembleActions(blk.Code)
			if err != nil {
				return nil, fmt.Errorf("then %d: %w", i, err)
			}
			b.AddActions(fmt.Sprintf("%s#%d", c.Name, i+1), blk.Target, code)
		}
	case "avm2":
		u, err := AssembleUnit(c.Name, c.Functions, c.Code)
		if err != nil {
			return nil, err
		}
		b.AddUnit(u)
	default:
		return nil, fmt.Errorf("unknown dialect %q", c.dialect(s))
	}
	if err := b.Seal(); err != nil {
		return nil, err
	}
	return b, nil
}

// Run executes a single case.
func (r *Runner) Run(lc LoadedCase) Result {
	res := Result{Case: lc}
	if lc.Case.Skip != "" {
		res.Skipped, res.SkipReason = true, lc.Case.Skip
		return res
	}
	b, err := Bundle(lc)
	if err != nil {
		res.Err = fmt.Errorf("assemble: %w", err)
		return res
	}

	opts := r.Options
	opts.SWFVersion = lc.Case.version(lc.Suite)
	if n := lc.Case.Limits.Recursion; n > 0 {
		opts.AVM1.MaxRecursionDepth = n
		opts.AVM2.MaxRecursionDepth = n
	}
	opts.Trace = func(s string) { res.Trace = append(res.Trace, s) }
	p, err := player.New(opts)
	if err != nil {
		res.Err = err
		return res
	}
	defer p.Close()

	report, err := p.RunBundle(b)
	if err != nil {
		res.Err = err
		return res
	}
	res.Unit = decisive(report.Results)
	res.Err = check(lc.Case.Expect, res.Unit, res.Trace)
	res.Passed = res.Err == nil
	return res
}

// decisive picks the unit a case is judged by: the first that did not
// complete, else the last.
func decisive(units []player.UnitResult) player.UnitResult {
	for _, u := range units {
		if u.Outcome != player.Completed {
			return u
		}
	}
	return units[len(units)-1]
}

func check(want Expect, got player.UnitResult, trace []string) error {
	outcome := want.Outcome
	if outcome == "" {
		outcome = player.Completed.String()
	}
	var problems []string
	if got.Outcome.String() != outcome {
		problems = append(problems, fmt.Sprintf("outcome %s, want %s (%s)", got.Outcome, outcome, got.Message))
	}
	if want.Class != "" && got.Class != want.Class {
		problems = append(problems, fmt.Sprintf("class %q, want %q", got.Class, want.Class))
	}
	if want.Code != 0 && got.Code != want.Code {
		problems = append(problems, fmt.Sprintf("code %d, want %d", got.Code, want.Code))
	}
	if want.Message != "" && !strings.Contains(got.Message, want.Message) {
		problems = append(problems, fmt.Sprintf("message %q does not contain %q", got.Message, want.Message))
	}
	if len(trace) != 0 || len(want.Trace) != 0 {
		if !slices.Equal(trace, want.Trace) {
			problems = append(problems, fmt.Sprintf("trace %q, want %q", trace, want.Trace))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// RunAll runs every case in order.
func (r *Runner) RunAll(cases []LoadedCase) []Result {
	results := make([]Result, 0, len(cases))
	for _, lc := range cases {
		results = append(results, r.Run(lc))
	}
	return results
}

// Stats summarises a run.
type Stats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

func ComputeStats(results []Result) Stats {
	s := Stats{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Passed:
			s.Passed++
		default:
			s.Failed++
		}
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("%d cases: %d passed, %d failed, %d skipped", s.Total, s.Passed, s.Failed, s.Skipped)
}
