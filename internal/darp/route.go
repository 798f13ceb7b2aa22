package darp

// StopKind distinguishes pickup from dropoff stops.
type StopKind uint8

const (
	Pickup StopKind = iota
	Dropoff
)

func (k StopKind) String() string {
	if k == Pickup {
		return "pickup"
	}
	return "dropoff"
}

// Stop is one visit on a route: a request boarding or alighting, with the
// computed arrival time and the vehicle load right after the stop.
type Stop struct {
	Req     *Request
	Kind    StopKind
	Arrival float64
	Load    int
}

func (s Stop) coord() Coord {
	if s.Kind == Pickup {
		return s.Req.Pickup
	}
	return s.Req.Dropoff
}

func (s Stop) window() Window {
	if s.Kind == Pickup {
		return s.Req.PickupWindow
	}
	return s.Req.DropoffWindow
}

// Route is the ordered stop sequence of one vehicle. A Route is owned by
// exactly one Solution and is only mutated through the insertion, local
// search and relinking operators.
type Route struct {
	Stops []Stop
}

// Len returns the number of stops.
func (rt *Route) Len() int { return len(rt.Stops) }

// Requests returns the distinct requests served by the route, in pickup
// order.
func (rt *Route) Requests() []*Request {
	out := make([]*Request, 0, len(rt.Stops)/2)
	for _, s := range rt.Stops {
		if s.Kind == Pickup {
			out = append(out, s.Req)
		}
	}
	return out
}

// NumRequests returns the number of distinct requests on the route.
func (rt *Route) NumRequests() int {
	n := 0
	for _, s := range rt.Stops {
		if s.Kind == Pickup {
			n++
		}
	}
	return n
}

// Shared reports whether the route ever carries two riders at once. A
// one-seat taxi can chain requests back to back, but its riders never
// overlap, so such a route is not shared.
func (rt *Route) Shared() bool {
	for _, s := range rt.Stops {
		if s.Load >= 2 {
			return true
		}
	}
	return false
}

// Duration is the elapsed time between the first and last stop.
func (rt *Route) Duration() float64 {
	if len(rt.Stops) == 0 {
		return 0
	}
	return rt.Stops[len(rt.Stops)-1].Arrival - rt.Stops[0].Arrival
}

// Contains reports whether the route serves the request.
func (rt *Route) Contains(req *Request) bool {
	for _, s := range rt.Stops {
		if s.Req == req {
			return true
		}
	}
	return false
}

// arrivalOf returns the arrival time of the request's stop of the given
// kind, or -1 when the request is not on the route.
func (rt *Route) arrivalOf(req *Request, kind StopKind) float64 {
	for _, s := range rt.Stops {
		if s.Req == req && s.Kind == kind {
			return s.Arrival
		}
	}
	return -1
}

// clone returns an independent copy of the route.
func (rt *Route) clone() *Route {
	cp := &Route{Stops: make([]Stop, len(rt.Stops))}
	copy(cp.Stops, rt.Stops)
	return cp
}

// withInsertion returns a new stop slice with the request's pickup inserted
// before index pickupPos and its dropoff before index dropPos of the
// original sequence, pickupPos <= dropPos. Arrival and load fields of the
// new stops are left for the scheduler to fill in.
func (rt *Route) withInsertion(req *Request, pickupPos, dropPos int) []Stop {
	out := make([]Stop, 0, len(rt.Stops)+2)
	out = append(out, rt.Stops[:pickupPos]...)
	out = append(out, Stop{Req: req, Kind: Pickup})
	out = append(out, rt.Stops[pickupPos:dropPos]...)
	out = append(out, Stop{Req: req, Kind: Dropoff})
	out = append(out, rt.Stops[dropPos:]...)
	return out
}

// withoutRequest returns a new stop slice with both of the request's stops
// removed.
func (rt *Route) withoutRequest(req *Request) []Stop {
	out := make([]Stop, 0, len(rt.Stops))
	for _, s := range rt.Stops {
		if s.Req != req {
			out = append(out, s)
		}
	}
	return out
}
