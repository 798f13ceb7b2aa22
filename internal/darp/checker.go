package darp

import "fmt"

// ViolationKind classifies solution-invariant breaches.
type ViolationKind string

const (
	ViolationCoverage ViolationKind = "coverage"
	ViolationOrdering ViolationKind = "ordering"
	ViolationCapacity ViolationKind = "capacity"
	ViolationWindow   ViolationKind = "window"
	ViolationDetour   ViolationKind = "detour"
)

// Violation describes an invariant breach found by ValidateSolution. A
// violation is an engine defect, not a data condition: the iteration that
// produced it must be abandoned.
type Violation struct {
	Kind      ViolationKind
	RouteIdx  int
	RequestID int
	Detail    string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("invalid solution: %s (route %d, request %d): %s", v.Kind, v.RouteIdx, v.RequestID, v.Detail)
}

// Checker evaluates route feasibility: time windows, capacity, pickup
// before dropoff and the alpha detour cap. It is a pure query component and
// never mutates a Solution.
type Checker struct {
	// Alpha caps a pooled rider's ride time at Alpha times the direct trip.
	Alpha float64
	// Capacity is the seat count per vehicle, driver not included.
	Capacity int
	// SpeedKph is the constant vehicle speed.
	SpeedKph float64
}

// NewChecker returns a Checker with out-of-range fields clamped to the
// defaults the rest of the engine assumes.
func NewChecker(alpha float64, capacity int, speedKph float64) *Checker {
	if alpha <= 1 {
		alpha = 1.5
	}
	if capacity < 1 {
		capacity = 2
	}
	if speedKph <= 0 {
		speedKph = 40
	}
	return &Checker{Alpha: alpha, Capacity: capacity, SpeedKph: speedKph}
}

// schedule recomputes arrival times and loads in place for a stop sequence.
// The vehicle reaches the first stop at that request's requested pickup
// time; every later arrival is travel time after the previous stop, waiting
// until the window opens when early. It reports false as soon as a window,
// capacity, ordering or detour invariant fails.
func (c *Checker) schedule(stops []Stop) bool {
	if len(stops) == 0 {
		return true
	}
	if stops[0].Kind != Pickup {
		return false
	}
	load := 0
	pickupAt := make(map[int]float64, len(stops)/2)
	t := stops[0].window().End
	prev := stops[0].coord()
	for i := range stops {
		s := &stops[i]
		if i > 0 {
			t += TravelTime(prev, s.coord(), c.SpeedKph)
		}
		w := s.window()
		if t < w.Start {
			t = w.Start
		}
		if t > w.End {
			return false
		}
		switch s.Kind {
		case Pickup:
			load++
			if load > c.Capacity {
				return false
			}
			pickupAt[s.Req.ID] = t
		case Dropoff:
			board, ok := pickupAt[s.Req.ID]
			if !ok {
				return false
			}
			load--
			if t-board > c.Alpha*s.Req.DirectTime {
				return false
			}
		}
		s.Arrival = t
		s.Load = load
		prev = s.coord()
	}
	return load == 0
}

// EvalInsertion evaluates inserting a request's pickup before position
// pickupPos and its dropoff before position dropPos of the route,
// pickupPos <= dropPos. It is a trial: the route is never mutated. The
// returned cost is the added route duration; ok is false when any invariant
// would break.
func (c *Checker) EvalInsertion(rt *Route, req *Request, pickupPos, dropPos int) (cost float64, ok bool) {
	if pickupPos < 0 || dropPos < pickupPos || dropPos > len(rt.Stops) {
		return 0, false
	}
	cand := rt.withInsertion(req, pickupPos, dropPos)
	if !c.schedule(cand) {
		return 0, false
	}
	newDur := cand[len(cand)-1].Arrival - cand[0].Arrival
	return newDur - rt.Duration(), true
}

// commitInsertion re-runs the schedule and installs the new stop sequence.
// Callers hold a candidate already vetted by EvalInsertion.
func (c *Checker) commitInsertion(rt *Route, req *Request, pickupPos, dropPos int) bool {
	cand := rt.withInsertion(req, pickupPos, dropPos)
	if !c.schedule(cand) {
		return false
	}
	rt.Stops = cand
	return true
}

// reschedule recomputes a route in place after a removal, reporting whether
// the remaining stops are still feasible.
func (c *Checker) reschedule(rt *Route) bool {
	return c.schedule(rt.Stops)
}

// ValidateSolution re-checks every invariant of the solution from scratch:
// request coverage and uniqueness, stop ordering, loads, windows and detour
// caps. It is a correctness gate run between engine phases, not a hot-path
// check. Returns nil when the solution is valid.
func (c *Checker) ValidateSolution(s *Solution) *Violation {
	seen := make(map[int]int, len(s.Requests))
	for ri, rt := range s.Routes {
		if len(rt.Stops) == 0 {
			return &Violation{Kind: ViolationCoverage, RouteIdx: ri, RequestID: -1, Detail: "empty route"}
		}
		if v := c.validateRoute(ri, rt); v != nil {
			return v
		}
		for _, req := range rt.Requests() {
			seen[req.ID]++
		}
	}
	for _, req := range s.Unassigned {
		seen[req.ID]++
	}
	for _, req := range s.Requests {
		switch seen[req.ID] {
		case 1:
		case 0:
			return &Violation{Kind: ViolationCoverage, RouteIdx: -1, RequestID: req.ID, Detail: "request neither routed nor pooled"}
		default:
			return &Violation{Kind: ViolationCoverage, RouteIdx: -1, RequestID: req.ID, Detail: fmt.Sprintf("request appears %d times", seen[req.ID])}
		}
	}
	return nil
}

func (c *Checker) validateRoute(ri int, rt *Route) *Violation {
	load := 0
	pickupAt := make(map[int]float64, len(rt.Stops)/2)
	for si, s := range rt.Stops {
		if si > 0 {
			prev := rt.Stops[si-1]
			if reach := prev.Arrival + TravelTime(prev.coord(), s.coord(), c.SpeedKph); s.Arrival < reach-1e-6 {
				return &Violation{Kind: ViolationWindow, RouteIdx: ri, RequestID: s.Req.ID,
					Detail: fmt.Sprintf("stop %d arrival %.1f before reachable time %.1f", si, s.Arrival, reach)}
			}
		}
		w := s.window()
		if !w.Contains(s.Arrival) {
			return &Violation{Kind: ViolationWindow, RouteIdx: ri, RequestID: s.Req.ID,
				Detail: fmt.Sprintf("stop %d arrival %.1f outside [%.1f, %.1f]", si, s.Arrival, w.Start, w.End)}
		}
		switch s.Kind {
		case Pickup:
			if _, dup := pickupAt[s.Req.ID]; dup {
				return &Violation{Kind: ViolationOrdering, RouteIdx: ri, RequestID: s.Req.ID, Detail: "duplicate pickup"}
			}
			load++
			pickupAt[s.Req.ID] = s.Arrival
		case Dropoff:
			board, ok := pickupAt[s.Req.ID]
			if !ok {
				return &Violation{Kind: ViolationOrdering, RouteIdx: ri, RequestID: s.Req.ID, Detail: "dropoff before pickup"}
			}
			load--
			if ride := s.Arrival - board; ride > c.Alpha*s.Req.DirectTime {
				return &Violation{Kind: ViolationDetour, RouteIdx: ri, RequestID: s.Req.ID,
					Detail: fmt.Sprintf("ride time %.1f exceeds %.2f x direct %.1f", ride, c.Alpha, s.Req.DirectTime)}
			}
		}
		if load < 0 || load > c.Capacity {
			return &Violation{Kind: ViolationCapacity, RouteIdx: ri, RequestID: s.Req.ID,
				Detail: fmt.Sprintf("load %d outside [0, %d] after stop %d", load, c.Capacity, si)}
		}
		if s.Load != load {
			return &Violation{Kind: ViolationCapacity, RouteIdx: ri, RequestID: s.Req.ID,
				Detail: fmt.Sprintf("stored load %d, recomputed %d", s.Load, load)}
		}
	}
	if load != 0 {
		return &Violation{Kind: ViolationOrdering, RouteIdx: ri, RequestID: -1, Detail: "route ends with riders on board"}
	}
	return nil
}
