package darp

import (
	"context"
	"math/rand"
)

// Relinker walks the trajectory between a working solution and an elite
// solution, one request-to-route reassignment at a time: each step moves a
// request in the working copy into the route that already carries one of
// its elite co-riders. Infeasible steps are skipped, never aborted on, and
// the best intermediate visited is returned.
type Relinker struct {
	inserter *Inserter
	checker  *Checker
	eval     *Evaluator
	rng      *rand.Rand
}

// NewRelinker builds a path relinking engine over the shared checker,
// inserter and evaluator.
func NewRelinker(inserter *Inserter, checker *Checker, eval *Evaluator, rng *rand.Rand) *Relinker {
	return &Relinker{inserter: inserter, checker: checker, eval: eval, rng: rng}
}

// Relink blends the working solution toward the elite's route structure and
// returns the best feasible intermediate. The result's objective is never
// below min(objective(working), objective(elite)): the trajectory starts at
// a copy of the working solution and only better intermediates replace the
// incumbent.
func (pr *Relinker) Relink(ctx context.Context, working, elite *Solution) *Solution {
	w := working.Clone()
	best := working.Clone()
	bestObj := pr.eval.Score(best)

	// Elite co-rider map: request ID -> the other requests on its elite
	// route, for pooled elite routes only.
	partners := make(map[int][]*Request)
	for _, rt := range elite.Routes {
		if !rt.Shared() {
			continue
		}
		reqs := rt.Requests()
		for _, r := range reqs {
			for _, other := range reqs {
				if other != r {
					partners[r.ID] = append(partners[r.ID], other)
				}
			}
		}
	}

	// Visit order is randomized so repeated relinks between the same pair
	// explore different trajectories.
	order := pr.rng.Perm(len(w.Requests))
	for _, oi := range order {
		req := w.Requests[oi]
		if ctx.Err() != nil {
			break
		}
		mates, ok := partners[req.ID]
		if !ok {
			continue
		}
		src := w.RouteOf(req)
		if src < 0 {
			// Unassigned in the working copy: a plain insertion attempt
			// moves it toward the elite structure.
			if pr.inserter.Insert(w, req) {
				if obj := pr.eval.Score(w); obj > bestObj {
					best, bestObj = w.Clone(), obj
				}
			}
			continue
		}
		if pr.alreadyAligned(w, src, mates) {
			continue
		}
		if pr.step(w, req, src, mates) {
			if obj := pr.eval.Score(w); obj > bestObj {
				best, bestObj = w.Clone(), obj
			}
		}
	}
	return best
}

// alreadyAligned reports whether the request's working route already pools
// it with one of its elite co-riders.
func (pr *Relinker) alreadyAligned(w *Solution, src int, mates []*Request) bool {
	for _, m := range mates {
		if w.Routes[src].Contains(m) {
			return true
		}
	}
	return false
}

// step relocates the request into the working route of one of its elite
// co-riders, keeping the prior assignment when no feasible move exists.
func (pr *Relinker) step(w *Solution, req *Request, src int, mates []*Request) bool {
	snapshot := w.Routes[src].clone()
	w.Routes[src].Stops = w.Routes[src].withoutRequest(req)
	if len(w.Routes[src].Stops) > 0 && !pr.checker.reschedule(w.Routes[src]) {
		w.Routes[src] = snapshot
		return false
	}
	for _, m := range mates {
		ti := w.RouteOf(m)
		if ti < 0 || ti == src {
			continue
		}
		rt := w.Routes[ti]
		bestPi, bestDi, bestCost, found := -1, -1, 0.0, false
		for pi := 0; pi <= len(rt.Stops); pi++ {
			for di := pi; di <= len(rt.Stops); di++ {
				if cost, ok := pr.checker.EvalInsertion(rt, req, pi, di); ok {
					if !found || cost < bestCost {
						bestPi, bestDi, bestCost, found = pi, di, cost, true
					}
				}
			}
		}
		if found && pr.checker.commitInsertion(rt, req, bestPi, bestDi) {
			w.dropRouteIfEmpty(src)
			return true
		}
	}
	w.Routes[src] = snapshot
	return false
}
