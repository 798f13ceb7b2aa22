package darp

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Params holds every knob the GRASP engine recognizes.
type Params struct {
	// Alpha is the detour cap: realized ride time may not exceed Alpha
	// times the direct trip. Must be > 1.
	Alpha float64
	// Beta sizes the restricted candidate list for the IB strategy, (0, 1].
	Beta float64
	// Capacity is the seat count per taxi, driver not included.
	Capacity int
	// SpeedKph is the constant taxi speed.
	SpeedKph float64
	// Strategy picks the insertion method, Exhaustive (IA) or Restricted (IB).
	Strategy Strategy
	// LocalSearchRounds caps improvement rounds per local search call.
	LocalSearchRounds int
	// InsertAttempts bounds per-request insertion retries.
	InsertAttempts int
	// SwapAttempts bounds target routes probed per relocation.
	SwapAttempts int
	// SwapFraction is the share of assigned requests relocated when a
	// local search round stalls.
	SwapFraction float64
	// Seed fixes the random stream; 0 draws one from the clock.
	Seed int64
}

// DefaultParams mirrors the engine's historical defaults.
func DefaultParams() Params {
	return Params{
		Alpha:             1.5,
		Beta:              0.1,
		Capacity:          2,
		SpeedKph:          40,
		Strategy:          Exhaustive,
		LocalSearchRounds: 10,
		InsertAttempts:    5,
		SwapAttempts:      5,
		SwapFraction:      0.1,
	}
}

// Validate rejects parameter values the engine cannot honor.
func (p Params) Validate() error {
	if p.Alpha <= 1 {
		return fmt.Errorf("alpha must be > 1, got %g", p.Alpha)
	}
	if p.Beta <= 0 || p.Beta > 1 {
		return fmt.Errorf("beta must be in (0, 1], got %g", p.Beta)
	}
	if p.Capacity < 1 {
		return fmt.Errorf("capacity must be >= 1, got %d", p.Capacity)
	}
	if p.Strategy != Exhaustive && p.Strategy != Restricted {
		return fmt.Errorf("unknown insertion strategy %q", p.Strategy)
	}
	return nil
}

// Progress is a snapshot emitted after each GRASP iteration.
type Progress struct {
	Iteration      int
	Objective      int
	EliteObjective int
	Unassigned     int
	Elapsed        time.Duration
}

// ProgressFunc receives iteration snapshots. It runs on the solver
// goroutine, so it must be cheap.
type ProgressFunc func(Progress)

// Result is what a run hands back: the elite solution (nil when no
// iteration completed before the budget expired), its objective, and the
// run record the reporting layer formats.
type Result struct {
	Best              *Solution
	Objective         int
	Iterations        int
	Promotions        int
	InitialObjectives []int
	Elapsed           time.Duration
}

// Found reports whether any iteration completed.
func (r Result) Found() bool { return r.Best != nil }

// Engine is the GRASP driver: construction, local search, path relinking
// and elite promotion, strictly sequential, cancelled cooperatively through
// the run context.
type Engine struct {
	params   Params
	rng      *rand.Rand
	checker  *Checker
	inserter *Inserter
	search   *LocalSearch
	relinker *Relinker
	eval     *Evaluator

	// Progress, when set, observes every completed iteration.
	Progress ProgressFunc
}

// NewEngine wires the component stack for one run. The seed makes the whole
// run reproducible: a single rand.Rand instance is threaded through
// construction, local search and relinking.
func NewEngine(p Params) *Engine {
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	checker := NewChecker(p.Alpha, p.Capacity, p.SpeedKph)
	eval := NewEvaluator(p.Alpha)
	inserter := NewInserter(p.Strategy, p.Beta, p.InsertAttempts, checker, rng)
	search := NewLocalSearch(p.LocalSearchRounds, p.SwapFraction, p.SwapAttempts, inserter, checker, eval, rng)
	relinker := NewRelinker(inserter, checker, eval, rng)
	return &Engine{
		params:   p,
		rng:      rng,
		checker:  checker,
		inserter: inserter,
		search:   search,
		relinker: relinker,
		eval:     eval,
	}
}

// Checker exposes the run's feasibility checker for callers that validate
// or report on the result.
func (e *Engine) Checker() *Checker { return e.checker }

// Evaluator exposes the run's objective evaluator.
func (e *Engine) Evaluator() *Evaluator { return e.eval }

// Run iterates construction, local search and path relinking until the
// context is done or the objective reaches the request count. The returned
// Result always carries the best elite found; a run cancelled before its
// first iteration yields an explicit empty Result, not an error. The only
// error Run reports is a solution-invariant breach, which is an engine
// defect, never a data condition.
func (e *Engine) Run(ctx context.Context, reqs []*Request) (Result, error) {
	start := time.Now()
	res := Result{}
	total := len(reqs)
	var elite *Solution
	eliteObj := 0

	for ctx.Err() == nil {
		if elite != nil && eliteObj == total {
			break
		}
		working := NewSolution(reqs)
		e.inserter.Construct(ctx, working)
		if v := e.checker.ValidateSolution(working); v != nil {
			return e.finish(res, elite, eliteObj, start), v
		}
		res.InitialObjectives = append(res.InitialObjectives, e.eval.Score(working))

		obj := e.search.Improve(ctx, working)
		if v := e.checker.ValidateSolution(working); v != nil {
			return e.finish(res, elite, eliteObj, start), v
		}

		if elite != nil {
			working = e.relinker.Relink(ctx, working, elite)
			obj = e.search.Improve(ctx, working)
			if v := e.checker.ValidateSolution(working); v != nil {
				return e.finish(res, elite, eliteObj, start), v
			}
			obj = e.eval.Score(working)
		}

		if ctx.Err() != nil && elite != nil && obj <= eliteObj {
			// Budget expired mid-iteration and the working copy is not an
			// improvement: keep the stored elite.
			break
		}
		if elite == nil || obj > eliteObj {
			elite = working.Clone()
			eliteObj = obj
			res.Promotions++
		}
		res.Iterations++
		if e.Progress != nil {
			e.Progress(Progress{
				Iteration:      res.Iterations,
				Objective:      obj,
				EliteObjective: eliteObj,
				Unassigned:     len(working.Unassigned),
				Elapsed:        time.Since(start),
			})
		}
	}
	return e.finish(res, elite, eliteObj, start), nil
}

func (e *Engine) finish(res Result, elite *Solution, eliteObj int, start time.Time) Result {
	res.Best = elite
	res.Objective = eliteObj
	res.Elapsed = time.Since(start)
	return res
}
