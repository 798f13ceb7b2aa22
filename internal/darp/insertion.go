package darp

import (
	"context"
	"math"
	"math/rand"
	"sort"
)

// Strategy selects how construction picks among feasible insertions.
type Strategy string

const (
	// Exhaustive commits the single globally cheapest feasible insertion.
	Exhaustive Strategy = "IA"
	// Restricted ranks candidates by cost and samples uniformly from the
	// cheapest beta fraction (the restricted candidate list).
	Restricted Strategy = "IB"
)

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch s {
	case "IA", "ia", "exhaustive":
		return Exhaustive, true
	case "IB", "ib", "restricted", "randomized-restricted":
		return Restricted, true
	}
	return "", false
}

// Inserter builds and repairs solutions by inserting unassigned requests
// into routes. Both strategies enumerate every route plus a fresh one and
// every pickup/dropoff position pair, so they terminate unconditionally and
// a request with no feasible slot simply stays in the pool.
type Inserter struct {
	Strategy Strategy
	// Beta sizes the restricted candidate list as a fraction of the ranked
	// candidate set, in (0, 1].
	Beta float64
	// Attempts bounds per-request retries when a sampled candidate fails
	// its commit re-check.
	Attempts int

	checker *Checker
	rng     *rand.Rand
}

// NewInserter wires an insertion engine to a feasibility checker and a
// seedable random source.
func NewInserter(strategy Strategy, beta float64, attempts int, checker *Checker, rng *rand.Rand) *Inserter {
	if beta <= 0 || beta > 1 {
		beta = 0.1
	}
	if attempts < 1 {
		attempts = 5
	}
	return &Inserter{Strategy: strategy, Beta: beta, Attempts: attempts, checker: checker, rng: rng}
}

// candidate is one feasible placement: route index (len(routes) means a new
// route), pickup and dropoff insertion positions, and marginal cost.
type candidate struct {
	route    int
	pickup   int
	drop     int
	cost     float64
}

// candidates enumerates every feasible insertion of the request across all
// routes, including opening a new route.
func (in *Inserter) candidates(s *Solution, req *Request) []candidate {
	var out []candidate
	for ri, rt := range s.Routes {
		n := len(rt.Stops)
		for pi := 0; pi <= n; pi++ {
			for di := pi; di <= n; di++ {
				if cost, ok := in.checker.EvalInsertion(rt, req, pi, di); ok {
					out = append(out, candidate{route: ri, pickup: pi, drop: di, cost: cost})
				}
			}
		}
	}
	if cost, ok := in.checker.EvalInsertion(&Route{}, req, 0, 0); ok {
		out = append(out, candidate{route: len(s.Routes), pickup: 0, drop: 0, cost: cost})
	}
	return out
}

// Insert places one request using the configured strategy. It reports
// whether the request was committed to a route; false means the request has
// no feasible slot and stays unassigned.
func (in *Inserter) Insert(s *Solution, req *Request) bool {
	cands := in.candidates(s, req)
	if len(cands) == 0 {
		return false
	}
	switch in.Strategy {
	case Restricted:
		sort.Slice(cands, func(i, j int) bool { return cands[i].cost < cands[j].cost })
		rcl := int(math.Ceil(in.Beta * float64(len(cands))))
		if rcl < 1 {
			rcl = 1
		}
		for attempt := 0; attempt < in.Attempts && len(cands) > 0; attempt++ {
			if rcl > len(cands) {
				rcl = len(cands)
			}
			pick := in.rng.Intn(rcl)
			if in.commit(s, req, cands[pick]) {
				return true
			}
			cands = append(cands[:pick], cands[pick+1:]...)
		}
		return false
	default: // Exhaustive
		best := 0
		for i := 1; i < len(cands); i++ {
			if cands[i].cost < cands[best].cost {
				best = i
			}
		}
		return in.commit(s, req, cands[best])
	}
}

// commit applies a vetted candidate, opening a new route when needed, and
// moves the request out of the unassigned pool.
func (in *Inserter) commit(s *Solution, req *Request, c candidate) bool {
	if c.route == len(s.Routes) {
		rt := &Route{}
		if !in.checker.commitInsertion(rt, req, 0, 0) {
			return false
		}
		s.Routes = append(s.Routes, rt)
	} else {
		if !in.checker.commitInsertion(s.Routes[c.route], req, c.pickup, c.drop) {
			return false
		}
	}
	s.removeFromPool(req)
	return true
}

// Construct builds an initial solution from the full request set: the pool
// is consumed in ascending pickup-time order and each request is placed by
// the configured strategy or left unassigned.
func (in *Inserter) Construct(ctx context.Context, s *Solution) {
	in.InsertPending(ctx, s)
}

// InsertPending attempts to place every currently unassigned request,
// returning how many were inserted. The context is polled between requests
// so an expired budget stops construction at a request boundary.
func (in *Inserter) InsertPending(ctx context.Context, s *Solution) int {
	pending := make([]*Request, len(s.Unassigned))
	copy(pending, s.Unassigned)
	inserted := 0
	for _, req := range pending {
		if ctx.Err() != nil {
			break
		}
		if in.Insert(s, req) {
			inserted++
		}
	}
	return inserted
}
