package darp

import (
	"context"
	"math/rand"
)

// LocalSearch improves a solution in bounded rounds: first reinsertion of
// the unassigned pool, then, when a round stalls, relocation of a random
// fraction of assigned requests into other routes. Every move either leaves
// both affected routes feasible or is rolled back, so the engine never
// hands back a less feasible solution than it received.
type LocalSearch struct {
	// Rounds caps the improvement rounds per call.
	Rounds int
	// SwapFraction is the share of assigned requests relocated when a
	// round brings no objective gain.
	SwapFraction float64
	// SwapAttempts bounds the candidate routes probed per relocation.
	SwapAttempts int

	inserter *Inserter
	checker  *Checker
	eval     *Evaluator
	rng      *rand.Rand
}

// NewLocalSearch builds a local search engine sharing the run's inserter,
// checker, evaluator and random source.
func NewLocalSearch(rounds int, swapFraction float64, swapAttempts int, inserter *Inserter, checker *Checker, eval *Evaluator, rng *rand.Rand) *LocalSearch {
	if rounds < 1 {
		rounds = 10
	}
	if swapFraction <= 0 || swapFraction > 1 {
		swapFraction = 0.1
	}
	if swapAttempts < 1 {
		swapAttempts = 5
	}
	return &LocalSearch{
		Rounds:       rounds,
		SwapFraction: swapFraction,
		SwapAttempts: swapAttempts,
		inserter:     inserter,
		checker:      checker,
		eval:         eval,
		rng:          rng,
	}
}

// Improve runs up to Rounds improvement rounds on the solution and returns
// the best objective seen. Diversification can lower the score of the
// working copy, so the best round result is snapshotted and restored when
// the final round ended below it. The context is polled at round boundaries
// so an expired time budget stops the search between moves, never inside
// one.
func (ls *LocalSearch) Improve(ctx context.Context, s *Solution) int {
	obj := ls.eval.Score(s)
	total := len(s.Requests)
	best := s.Clone()
	bestObj := obj
	for round := 0; round < ls.Rounds; round++ {
		if ctx.Err() != nil || bestObj == total {
			break
		}
		ls.inserter.InsertPending(ctx, s)
		next := ls.eval.Score(s)
		if next <= obj {
			ls.diversify(ctx, s)
			next = ls.eval.Score(s)
		}
		obj = next
		if next > bestObj {
			bestObj = next
			best = s.Clone()
		}
	}
	if obj < bestObj {
		*s = *best
	}
	return bestObj
}

// diversify relocates a bounded random selection of assigned requests into
// different routes. A relocation commits only when the target insertion is
// feasible and the source route stays feasible after the removal; otherwise
// the source route is restored from its snapshot.
func (ls *LocalSearch) diversify(ctx context.Context, s *Solution) {
	assigned := s.Assigned()
	if len(assigned) == 0 {
		return
	}
	n := int(ls.SwapFraction * float64(len(assigned)))
	if n < 1 {
		n = 1
	}
	ls.rng.Shuffle(len(assigned), func(i, j int) { assigned[i], assigned[j] = assigned[j], assigned[i] })
	if n > len(assigned) {
		n = len(assigned)
	}
	for _, req := range assigned[:n] {
		if ctx.Err() != nil {
			return
		}
		ls.relocate(s, req)
	}
}

// relocate moves one request from its route into the cheapest feasible slot
// of another route, probing at most SwapAttempts target routes.
func (ls *LocalSearch) relocate(s *Solution, req *Request) bool {
	src := s.RouteOf(req)
	if src < 0 {
		return false
	}
	snapshot := s.Routes[src].clone()
	s.Routes[src].Stops = s.Routes[src].withoutRequest(req)
	srcOK := len(s.Routes[src].Stops) == 0 || ls.checker.reschedule(s.Routes[src])
	if !srcOK {
		s.Routes[src] = snapshot
		return false
	}

	targets := ls.rng.Perm(len(s.Routes))
	probed := 0
	for _, ti := range targets {
		if ti == src {
			continue
		}
		if probed >= ls.SwapAttempts {
			break
		}
		probed++
		rt := s.Routes[ti]
		bestPi, bestDi, bestCost, found := -1, -1, 0.0, false
		for pi := 0; pi <= len(rt.Stops); pi++ {
			for di := pi; di <= len(rt.Stops); di++ {
				if cost, ok := ls.checker.EvalInsertion(rt, req, pi, di); ok {
					if !found || cost < bestCost {
						bestPi, bestDi, bestCost, found = pi, di, cost, true
					}
				}
			}
		}
		if found && ls.checker.commitInsertion(rt, req, bestPi, bestDi) {
			s.dropRouteIfEmpty(src)
			return true
		}
	}
	// No target accepted the request: roll the source route back.
	s.Routes[src] = snapshot
	return false
}
