package darp

import "math"

// Evaluator scores solutions and derives per-request and per-fleet
// statistics. Like the Checker it is a pure query component.
//
// The objective counts the distinct requests assigned into a route whose
// riders actually overlap on board. A request alone on its taxi gained
// nothing from pooling, and neither did requests a one-seat taxi serves
// strictly back to back, so neither scores.
type Evaluator struct {
	// Alpha bounds the price saving a pooled rider can accumulate.
	Alpha float64
}

// NewEvaluator returns an evaluator with the given detour cap.
func NewEvaluator(alpha float64) *Evaluator {
	if alpha <= 1 {
		alpha = 1.5
	}
	return &Evaluator{Alpha: alpha}
}

// Score returns the pooling objective. Its upper bound is the total request
// count.
func (e *Evaluator) Score(s *Solution) int {
	obj := 0
	for _, rt := range s.Routes {
		if rt.Shared() {
			obj += rt.NumRequests()
		}
	}
	return obj
}

// RequestStat holds the rider-facing figures for one pooled request.
type RequestStat struct {
	RequestID int
	// DelaySec is the realized ride time minus the direct trip.
	DelaySec float64
	DelayPct float64
	// SavingPct is the fare discount granted for the detour endured,
	// bounded by the alpha cap.
	SavingPct float64
	// AdvanceSec is how far before the requested time the rider boarded.
	AdvanceSec float64
	AdvancePct float64
}

// RequestStats computes per-request figures for every pooled request (those
// on routes whose riders overlap).
func (e *Evaluator) RequestStats(s *Solution) []RequestStat {
	var out []RequestStat
	for _, rt := range s.Routes {
		if !rt.Shared() {
			continue
		}
		for _, req := range rt.Requests() {
			board := rt.arrivalOf(req, Pickup)
			alight := rt.arrivalOf(req, Dropoff)
			ride := alight - board
			delay := ride - req.DirectTime
			saving := ride/req.DirectTime - 1
			if limit := e.Alpha - 1; saving > limit {
				saving = limit
			}
			if saving < 0 {
				saving = 0
			}
			advance := req.RequestedAt() - board
			out = append(out, RequestStat{
				RequestID:  req.ID,
				DelaySec:   delay,
				DelayPct:   100 * delay / req.DirectTime,
				SavingPct:  100 * saving,
				AdvanceSec: advance,
				AdvancePct: 100 * advance / req.DirectTime,
			})
		}
	}
	return out
}

// FleetStat summarizes how many requests each route serves.
type FleetStat struct {
	PerRoute []int
	Mean     float64
	Max      int
}

// FleetStats reports the requests-per-route distribution, for reporting
// only.
func (e *Evaluator) FleetStats(s *Solution) FleetStat {
	fs := FleetStat{PerRoute: make([]int, 0, len(s.Routes))}
	sum := 0
	for _, rt := range s.Routes {
		n := rt.NumRequests()
		fs.PerRoute = append(fs.PerRoute, n)
		sum += n
		if n > fs.Max {
			fs.Max = n
		}
	}
	if len(fs.PerRoute) > 0 {
		fs.Mean = float64(sum) / float64(len(fs.PerRoute))
	}
	return fs
}

// Summary is a min/mean/max/stddev digest of one per-request figure.
type Summary struct {
	Min    float64
	Mean   float64
	Max    float64
	StdDev float64
}

// Summarize digests a series of values. An empty series yields zeros.
func Summarize(vals []float64) Summary {
	if len(vals) == 0 {
		return Summary{}
	}
	s := Summary{Min: vals[0], Max: vals[0]}
	sum := 0.0
	for _, v := range vals {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(len(vals))
	if len(vals) > 1 {
		varSum := 0.0
		for _, v := range vals {
			varSum += (v - s.Mean) * (v - s.Mean)
		}
		s.StdDev = math.Sqrt(varSum / float64(len(vals)-1))
	}
	return s
}
