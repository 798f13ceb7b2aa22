package darp

import (
	"context"
	"math/rand"
	"testing"
)

// compatibleTrio returns three requests that can share a taxi pairwise:
// same corridor, requested a minute apart.
func compatibleTrio() []*Request {
	return []*Request{
		lineReq(1, 1000, 0, 0.1),
		lineReq(2, 1100, 0, 0.1),
		lineReq(3, 1200, 0, 0.1),
	}
}

func newTestInserter(strategy Strategy, c *Checker, seed int64) *Inserter {
	return NewInserter(strategy, 0.2, 5, c, rand.New(rand.NewSource(seed)))
}

func TestExhaustivePoolsCompatibleRequests(t *testing.T) {
	c := testChecker() // capacity 2
	in := newTestInserter(Exhaustive, c, 1)
	s := NewSolution(compatibleTrio())
	in.Construct(context.Background(), s)

	if v := c.ValidateSolution(s); v != nil {
		t.Fatalf("constructed solution invalid: %v", v)
	}
	eval := NewEvaluator(c.Alpha)
	if obj := eval.Score(s); obj < 2 {
		t.Fatalf("objective %d, want >= 2 (at least one pooled pair)", obj)
	}
	pooled := false
	for _, rt := range s.Routes {
		if rt.Shared() {
			pooled = true
		}
	}
	if !pooled {
		t.Fatal("no route pools two requests")
	}
}

func TestCapacityOneNeverShares(t *testing.T) {
	c := NewChecker(2.0, 1, 40)
	for _, strategy := range []Strategy{Exhaustive, Restricted} {
		in := newTestInserter(strategy, c, 3)
		s := NewSolution(compatibleTrio())
		in.Construct(context.Background(), s)

		if v := c.ValidateSolution(s); v != nil {
			t.Fatalf("%s: invalid solution: %v", strategy, v)
		}
		for ri, rt := range s.Routes {
			if rt.NumRequests() > 1 {
				t.Fatalf("%s: route %d serves %d time-compatible requests on a one-seat taxi", strategy, ri, rt.NumRequests())
			}
		}
		if len(s.Routes) != 3 || len(s.Unassigned) != 0 {
			t.Fatalf("%s: got %d routes, %d unassigned; want 3 solo routes", strategy, len(s.Routes), len(s.Unassigned))
		}
		eval := NewEvaluator(c.Alpha)
		if obj := eval.Score(s); obj != 0 {
			t.Fatalf("%s: objective %d with no pooled route", strategy, obj)
		}
	}
}

func TestCapacityOneChainedRequestsScoreZero(t *testing.T) {
	// The second pickup sits exactly at the first dropoff and opens after
	// the first rider alighted, so a one-seat taxi can legally serve both
	// back to back. That chain must never count as pooling.
	reqs := []*Request{
		lineReq(1, 1000, 0, 0.1),
		lineReq(2, 2100, 0.1, 0.2),
	}
	c := NewChecker(2.0, 1, 40)
	eval := NewEvaluator(c.Alpha)
	for _, strategy := range []Strategy{Exhaustive, Restricted} {
		for seed := int64(1); seed <= 5; seed++ {
			in := NewInserter(strategy, 1.0, 5, c, rand.New(rand.NewSource(seed)))
			s := NewSolution(reqs)
			in.Construct(context.Background(), s)

			if v := c.ValidateSolution(s); v != nil {
				t.Fatalf("%s seed %d: invalid solution: %v", strategy, seed, v)
			}
			if !s.ServedAll() {
				t.Fatalf("%s seed %d: %d unassigned", strategy, seed, len(s.Unassigned))
			}
			for ri, rt := range s.Routes {
				if rt.Shared() {
					t.Fatalf("%s seed %d: route %d carries two riders on a one-seat taxi", strategy, seed, ri)
				}
			}
			if obj := eval.Score(s); obj != 0 {
				t.Fatalf("%s seed %d: objective %d for a one-seat fleet, want 0", strategy, seed, obj)
			}
		}
	}
}

func TestConstructionStopsOnCancelledContext(t *testing.T) {
	c := testChecker()
	in := newTestInserter(Exhaustive, c, 1)
	s := NewSolution(compatibleTrio())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in.Construct(ctx, s)
	if len(s.Unassigned) != 3 || len(s.Routes) != 0 {
		t.Fatalf("cancelled construction still placed requests: %d unassigned, %d routes",
			len(s.Unassigned), len(s.Routes))
	}
}

func TestInternallyInfeasibleRequestStaysUnassigned(t *testing.T) {
	// Dropoff window closes before the pickup window plus the direct trip
	// can reach it, so even a solo route cannot serve the request.
	broken := &Request{
		ID:            9,
		Pickup:        Coord{Lat: 0},
		Dropoff:       Coord{Lat: 0.2},
		PickupWindow:  Window{Start: 0, End: 100},
		DropoffWindow: Window{Start: 1500, End: 1600},
		DirectTime:    TravelTime(Coord{Lat: 0}, Coord{Lat: 0.2}, 40), // ~2000s
		Fare:          10,
	}
	c := testChecker()
	for _, strategy := range []Strategy{Exhaustive, Restricted} {
		in := newTestInserter(strategy, c, 5)
		s := NewSolution([]*Request{lineReq(1, 1000, 0, 0.1), broken})
		in.Construct(context.Background(), s)

		if v := c.ValidateSolution(s); v != nil {
			t.Fatalf("%s: invalid solution: %v", strategy, v)
		}
		if len(s.Unassigned) != 1 || s.Unassigned[0] != broken {
			t.Fatalf("%s: infeasible request not left in pool: %d unassigned", strategy, len(s.Unassigned))
		}
	}
}

func TestConstructionTerminatesWhenNothingFits(t *testing.T) {
	// Every request is internally infeasible; both strategies must still
	// return, with the whole pool untouched.
	reqs := make([]*Request, 4)
	for i := range reqs {
		reqs[i] = &Request{
			ID:            i + 1,
			Pickup:        Coord{Lat: 0},
			Dropoff:       Coord{Lat: 0.2},
			PickupWindow:  Window{Start: 0, End: 50},
			DropoffWindow: Window{Start: 100, End: 200},
			DirectTime:    TravelTime(Coord{Lat: 0}, Coord{Lat: 0.2}, 40),
			Fare:          10,
		}
	}
	c := testChecker()
	for _, strategy := range []Strategy{Exhaustive, Restricted} {
		in := newTestInserter(strategy, c, 11)
		s := NewSolution(reqs)
		in.Construct(context.Background(), s)
		if len(s.Unassigned) != len(reqs) || len(s.Routes) != 0 {
			t.Fatalf("%s: got %d unassigned, %d routes", strategy, len(s.Unassigned), len(s.Routes))
		}
	}
}

func TestRestrictedIsSeedReproducible(t *testing.T) {
	c := testChecker()
	build := func(seed int64) *Solution {
		in := newTestInserter(Restricted, c, seed)
		s := NewSolution(compatibleTrio())
		in.Construct(context.Background(), s)
		return s
	}
	a, b := build(42), build(42)
	if len(a.Routes) != len(b.Routes) {
		t.Fatalf("same seed, different route counts: %d vs %d", len(a.Routes), len(b.Routes))
	}
	for i := range a.Routes {
		if len(a.Routes[i].Stops) != len(b.Routes[i].Stops) {
			t.Fatalf("same seed, route %d differs", i)
		}
		for j := range a.Routes[i].Stops {
			sa, sb := a.Routes[i].Stops[j], b.Routes[i].Stops[j]
			if sa.Req.ID != sb.Req.ID || sa.Kind != sb.Kind || sa.Arrival != sb.Arrival {
				t.Fatalf("same seed, stop %d/%d differs", i, j)
			}
		}
	}
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"IA":                    Exhaustive,
		"exhaustive":            Exhaustive,
		"IB":                    Restricted,
		"randomized-restricted": Restricted,
	}
	for in, want := range cases {
		got, ok := ParseStrategy(in)
		if !ok || got != want {
			t.Fatalf("ParseStrategy(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseStrategy("simulated-annealing"); ok {
		t.Fatal("unknown strategy accepted")
	}
}
