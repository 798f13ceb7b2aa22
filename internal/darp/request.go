// Package darp implements a GRASP metaheuristic for the static Dial-a-Ride
// Problem with ride pooling: randomized-greedy construction, neighborhood
// local search and path relinking over shared-taxi routes under time-window,
// capacity and detour constraints.
package darp

import (
	"math"
	"sort"
)

// Coord is a WGS84 point.
type Coord struct {
	Lon float64
	Lat float64
}

// Window is a closed time interval, seconds since midnight.
type Window struct {
	Start float64
	End   float64
}

// Contains reports whether t lies inside the window.
func (w Window) Contains(t float64) bool { return t >= w.Start && t <= w.End }

// Request is one trip request. Requests are created once at load time and
// shared read-only across every Solution for the rest of the run.
type Request struct {
	ID      int
	Pickup  Coord
	Dropoff Coord

	// PickupWindow.End is the requested pickup time; the window opens a
	// margin before it. DropoffWindow.Start is the direct-trip arrival and
	// the window closes a margin after it.
	PickupWindow  Window
	DropoffWindow Window

	// DirectTime is the solo trip duration at constant speed, seconds.
	DirectTime float64
	// Fare is the baseline solo fare used for price-saving statistics.
	Fare float64
}

// RequestedAt returns the pickup time the customer asked for.
func (r *Request) RequestedAt() float64 { return r.PickupWindow.End }

// NewRequest derives the two time windows from a requested pickup time and
// the geometry, the way the trip-record loader builds them: pickup
// [t-margin, t], dropoff [t+direct, t+direct+margin].
func NewRequest(id int, requestedAt float64, pickup, dropoff Coord, marginSec, speedKph float64) *Request {
	direct := TravelTime(pickup, dropoff, speedKph)
	return &Request{
		ID:            id,
		Pickup:        pickup,
		Dropoff:       dropoff,
		PickupWindow:  Window{Start: requestedAt - marginSec, End: requestedAt},
		DropoffWindow: Window{Start: requestedAt + direct, End: requestedAt + direct + marginSec},
		DirectTime:    direct,
		Fare:          DirectFare(pickup, dropoff),
	}
}

// SortRequests orders requests by requested pickup time, ascending, with the
// ID as tie break. Construction and local search both consume the pool in
// this order.
func SortRequests(reqs []*Request) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].RequestedAt() != reqs[j].RequestedAt() {
			return reqs[i].RequestedAt() < reqs[j].RequestedAt()
		}
		return reqs[i].ID < reqs[j].ID
	})
}

// TravelTime is the crow-flies duration between two points at constant
// speed, in seconds.
func TravelTime(a, b Coord, speedKph float64) float64 {
	if speedKph <= 0 {
		speedKph = 40
	}
	return Haversine(a, b) / (speedKph / 3.6)
}

// Flag-fall plus per-km rate for the baseline solo fare.
const (
	fareBase  = 2.50
	farePerKm = 1.56
)

// DirectFare estimates the solo fare for a trip from a to b.
func DirectFare(a, b Coord) float64 {
	return fareBase + farePerKm*Haversine(a, b)/1000.0
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Coord) float64 {
	const R = 6371000.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}
