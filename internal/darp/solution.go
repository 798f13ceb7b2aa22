package darp

// Solution is one assignment of the request set: a list of vehicle routes
// plus the pool of requests no route serves. Every request is in exactly one
// route or in the pool. A Solution and its routes are exclusively owned by
// the iteration mutating them; the elite copy is always taken with Clone.
type Solution struct {
	// Requests is the full request set, shared read-only across solutions.
	Requests []*Request

	Routes     []*Route
	Unassigned []*Request
}

// NewSolution creates an empty solution over the request set: no routes,
// everything unassigned, pool ordered by requested pickup time.
func NewSolution(reqs []*Request) *Solution {
	pool := make([]*Request, len(reqs))
	copy(pool, reqs)
	SortRequests(pool)
	return &Solution{Requests: reqs, Routes: []*Route{}, Unassigned: pool}
}

// Clone performs a deep structural copy: routes and the unassigned pool are
// independent, the immutable requests stay shared. Elite promotion goes
// through here so later mutation of the working solution can never touch
// the stored elite.
func (s *Solution) Clone() *Solution {
	cp := &Solution{
		Requests:   s.Requests,
		Routes:     make([]*Route, len(s.Routes)),
		Unassigned: make([]*Request, len(s.Unassigned)),
	}
	for i, rt := range s.Routes {
		cp.Routes[i] = rt.clone()
	}
	copy(cp.Unassigned, s.Unassigned)
	return cp
}

// RouteOf returns the index of the route serving the request, or -1 when it
// is unassigned.
func (s *Solution) RouteOf(req *Request) int {
	for i, rt := range s.Routes {
		if rt.Contains(req) {
			return i
		}
	}
	return -1
}

// Assigned returns all requests currently on some route.
func (s *Solution) Assigned() []*Request {
	out := make([]*Request, 0, len(s.Requests)-len(s.Unassigned))
	for _, rt := range s.Routes {
		out = append(out, rt.Requests()...)
	}
	return out
}

// removeFromPool drops the request from the unassigned pool.
func (s *Solution) removeFromPool(req *Request) {
	for i, r := range s.Unassigned {
		if r == req {
			s.Unassigned = append(s.Unassigned[:i], s.Unassigned[i+1:]...)
			return
		}
	}
}

// returnToPool puts the request back into the unassigned pool, keeping the
// pool's pickup-time order.
func (s *Solution) returnToPool(req *Request) {
	s.Unassigned = append(s.Unassigned, req)
	SortRequests(s.Unassigned)
}

// dropRouteIfEmpty destroys the route when its last request was removed.
func (s *Solution) dropRouteIfEmpty(idx int) {
	if idx >= 0 && idx < len(s.Routes) && len(s.Routes[idx].Stops) == 0 {
		s.Routes = append(s.Routes[:idx], s.Routes[idx+1:]...)
	}
}

// ServedAll reports whether the unassigned pool is empty.
func (s *Solution) ServedAll() bool { return len(s.Unassigned) == 0 }
