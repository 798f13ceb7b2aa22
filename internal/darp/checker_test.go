package darp

import (
	"context"
	"math"
	"math/rand"
	"testing"
)

// lineReq builds a request travelling north along a meridian: pickup at
// fromLat, dropoff at toLat, requested at the given time, 15 min windows.
func lineReq(id int, requestedAt, fromLat, toLat float64) *Request {
	return NewRequest(id, requestedAt, Coord{Lat: fromLat}, Coord{Lat: toLat}, 900, 40)
}

func testChecker() *Checker { return NewChecker(2.0, 2, 40) }

func TestNewRequestWindows(t *testing.T) {
	r := lineReq(1, 1000, 0, 0.1)
	if r.PickupWindow.Start != 100 || r.PickupWindow.End != 1000 {
		t.Fatalf("pickup window: %+v", r.PickupWindow)
	}
	if r.DirectTime <= 0 {
		t.Fatalf("direct time: %f", r.DirectTime)
	}
	if got, want := r.DropoffWindow.Start, 1000+r.DirectTime; math.Abs(got-want) > 1e-9 {
		t.Fatalf("dropoff window start: got %f want %f", got, want)
	}
	if got, want := r.DropoffWindow.End, 1000+r.DirectTime+900; math.Abs(got-want) > 1e-9 {
		t.Fatalf("dropoff window end: got %f want %f", got, want)
	}
}

func TestEvalInsertionSoloFeasible(t *testing.T) {
	c := testChecker()
	r := lineReq(1, 1000, 0, 0.1)
	cost, ok := c.EvalInsertion(&Route{}, r, 0, 0)
	if !ok {
		t.Fatal("solo insertion should be feasible")
	}
	if math.Abs(cost-r.DirectTime) > 1e-6 {
		t.Fatalf("solo cost: got %f want %f", cost, r.DirectTime)
	}
}

func TestEvalInsertionDoesNotMutate(t *testing.T) {
	c := testChecker()
	rt := &Route{}
	if !c.commitInsertion(rt, lineReq(1, 1000, 0, 0.1), 0, 0) {
		t.Fatal("seed insertion failed")
	}
	before := rt.clone()
	_, _ = c.EvalInsertion(rt, lineReq(2, 1100, 0, 0.1), 0, 1)
	if len(rt.Stops) != len(before.Stops) {
		t.Fatalf("trial evaluation mutated the route: %d stops", len(rt.Stops))
	}
	for i := range rt.Stops {
		if rt.Stops[i] != before.Stops[i] {
			t.Fatalf("trial evaluation changed stop %d", i)
		}
	}
}

func TestScheduleEnforcesCapacity(t *testing.T) {
	c := NewChecker(2.0, 1, 40)
	rt := &Route{}
	if !c.commitInsertion(rt, lineReq(1, 1000, 0, 0.1), 0, 0) {
		t.Fatal("seed insertion failed")
	}
	// Interleaved second pickup would put two riders on a one-seat taxi.
	if _, ok := c.EvalInsertion(rt, lineReq(2, 1050, 0, 0.1), 1, 1); ok {
		t.Fatal("capacity 1 must reject a concurrent second rider")
	}
}

func TestScheduleEnforcesDetourCap(t *testing.T) {
	// Rider 2 boards early next to rider 1 and then rides along rider 1's
	// much longer trip: every window holds, only the detour cap is broken.
	long := lineReq(1, 1000, 0, 0.1)   // ~1000s direct
	short := lineReq(2, 1860, 0, 0.02) // ~200s direct

	tight := NewChecker(1.05, 2, 40)
	rt := &Route{}
	if !tight.commitInsertion(rt, long, 0, 0) {
		t.Fatal("seed insertion failed")
	}
	if _, ok := tight.EvalInsertion(rt, short, 1, 1); ok {
		t.Fatal("5% detour cap must reject a ride several times the direct trip")
	}
	if _, ok := tight.EvalInsertion(rt, short, 1, 2); ok {
		t.Fatal("5% detour cap must reject the wrapped insertion too")
	}

	// The same move is feasible once the cap is loose.
	loose := NewChecker(10, 2, 40)
	if _, ok := loose.EvalInsertion(rt, short, 1, 1); !ok {
		t.Fatal("loose detour cap should accept the pooled ride")
	}
}

func TestValidateSolutionCoverage(t *testing.T) {
	c := testChecker()
	r1 := lineReq(1, 1000, 0, 0.1)
	r2 := lineReq(2, 1100, 0, 0.1)
	s := NewSolution([]*Request{r1, r2})

	rng := rand.New(rand.NewSource(7))
	in := NewInserter(Exhaustive, 0.1, 5, c, rng)
	in.Construct(context.Background(), s)
	if v := c.ValidateSolution(s); v != nil {
		t.Fatalf("constructed solution invalid: %v", v)
	}

	// Duplicate assignment: the request sits in a route and in the pool.
	s.Unassigned = append(s.Unassigned, r1)
	v := c.ValidateSolution(s)
	if v == nil || v.Kind != ViolationCoverage {
		t.Fatalf("expected coverage violation, got %v", v)
	}

	// Omission: gone from both.
	s.Unassigned = nil
	s.Routes = nil
	v = c.ValidateSolution(s)
	if v == nil || v.Kind != ViolationCoverage {
		t.Fatalf("expected coverage violation, got %v", v)
	}
}

func TestValidateSolutionOrdering(t *testing.T) {
	c := testChecker()
	r := lineReq(1, 1000, 0, 0.1)
	s := &Solution{Requests: []*Request{r}}
	// Hand-built corrupt route: dropoff precedes pickup.
	s.Routes = []*Route{{Stops: []Stop{
		{Req: r, Kind: Dropoff, Arrival: r.DropoffWindow.Start, Load: 0},
		{Req: r, Kind: Pickup, Arrival: r.DropoffWindow.Start + 2*r.DirectTime, Load: 1},
	}}}
	v := c.ValidateSolution(s)
	if v == nil {
		t.Fatal("expected a violation")
	}
}

func TestValidateSolutionWindow(t *testing.T) {
	c := testChecker()
	r := lineReq(1, 1000, 0, 0.1)
	s := &Solution{Requests: []*Request{r}}
	s.Routes = []*Route{{Stops: []Stop{
		{Req: r, Kind: Pickup, Arrival: r.PickupWindow.End + 50, Load: 1},
		{Req: r, Kind: Dropoff, Arrival: r.PickupWindow.End + 50 + r.DirectTime, Load: 0},
	}}}
	v := c.ValidateSolution(s)
	if v == nil || v.Kind != ViolationWindow {
		t.Fatalf("expected window violation, got %v", v)
	}
}

func TestHaversineZero(t *testing.T) {
	p := Coord{Lon: -73.99, Lat: 40.75}
	if d := Haversine(p, p); d != 0 {
		t.Fatalf("distance to self: %f", d)
	}
}
