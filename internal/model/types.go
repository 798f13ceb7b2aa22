// Package model holds the wire types shared by the store, the API and the
// CLI: trip records going in, solutions and run statistics coming out.
package model

import (
	"time"

	"ridepool/internal/darp"
)

// TripRecord is one raw trip request as loaded from a trip-record source,
// before window derivation. Times are seconds since midnight.
type TripRecord struct {
	ID          int     `json:"id"`
	RequestedAt float64 `json:"requestedAt"`
	PickupLon   float64 `json:"pickupLon"`
	PickupLat   float64 `json:"pickupLat"`
	DropoffLon  float64 `json:"dropoffLon"`
	DropoffLat  float64 `json:"dropoffLat"`
}

// RequestSet is a filtered, sorted batch of trip records persisted between
// runs.
type RequestSet struct {
	ID        string       `json:"id"`
	Name      string       `json:"name,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	Records   []TripRecord `json:"records"`
	// Dropped counts source rows rejected by the load-time filters.
	Dropped int `json:"dropped"`
}

// RequestSetMeta is the listing view of a RequestSet, without the records.
type RequestSetMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int       `json:"size"`
	Dropped   int       `json:"dropped"`
}

// Meta strips the records off a RequestSet.
func (rs RequestSet) Meta() RequestSetMeta {
	return RequestSetMeta{ID: rs.ID, Name: rs.Name, CreatedAt: rs.CreatedAt, Size: len(rs.Records), Dropped: rs.Dropped}
}

// SolveParams is the recognized solver configuration, JSON-facing.
type SolveParams struct {
	Alpha             float64 `json:"alpha,omitempty"`
	Beta              float64 `json:"beta,omitempty"`
	Capacity          int     `json:"capacity,omitempty"`
	SpeedKph          float64 `json:"speedKph,omitempty"`
	InsertionMethod   string  `json:"insertionMethod,omitempty"`
	LocalSearchRounds int     `json:"maxLocalSearchRounds,omitempty"`
	InsertAttempts    int     `json:"insertAttemptBudget,omitempty"`
	SwapAttempts      int     `json:"swapAttemptBudget,omitempty"`
	SwapFraction      float64 `json:"swapFraction,omitempty"`
	MarginMin         float64 `json:"timeWindowMin,omitempty"`
	TimeBudgetMs      int     `json:"timeBudgetMs,omitempty"`
	Seed              int64   `json:"seed,omitempty"`
}

// SolveRequest asks the service to run the solver over a stored set.
type SolveRequest struct {
	RequestSetID string       `json:"requestSetId"`
	Params       *SolveParams `json:"params,omitempty"`
}

// Run statuses.
const (
	RunRunning = "running"
	RunDone    = "done"
	RunFailed  = "failed"
)

// Run is one solver execution and its outcome.
type Run struct {
	ID           string       `json:"id"`
	RequestSetID string       `json:"requestSetId"`
	Status       string       `json:"status"`
	Params       SolveParams  `json:"params"`
	CreatedAt    time.Time    `json:"createdAt"`
	FinishedAt   *time.Time   `json:"finishedAt,omitempty"`
	Objective    int          `json:"objective"`
	Solution     *SolutionOut `json:"solution,omitempty"`
	Stats        *StatsOut    `json:"stats,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// StopOut is one stop of a solved route.
type StopOut struct {
	RequestID int     `json:"requestId"`
	Kind      string  `json:"kind"`
	Arrival   float64 `json:"arrival"`
	Load      int     `json:"load"`
}

// RouteOut is one solved vehicle route.
type RouteOut struct {
	Stops    []StopOut `json:"stops"`
	Requests int       `json:"requests"`
}

// SolutionOut is the JSON view of a solved assignment.
type SolutionOut struct {
	Routes        []RouteOut `json:"routes"`
	UnassignedIDs []int      `json:"unassignedIds"`
	Objective     int        `json:"objective"`
	// AllServed is stated explicitly: a non-empty unassigned pool is a
	// normal outcome, not an error.
	AllServed bool `json:"allServed"`
}

// SummaryOut is a min/mean/max/stddev digest.
type SummaryOut struct {
	Min    float64 `json:"min"`
	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stdDev"`
}

// StatsOut is the run-level statistics record.
type StatsOut struct {
	Requests            int        `json:"requests"`
	Objective           int        `json:"objective"`
	PoolingPct          float64    `json:"poolingPct"`
	Iterations          int        `json:"iterations"`
	Promotions          int        `json:"promotions"`
	ElapsedMs           int64      `json:"elapsedMs"`
	AvgInitialObjective float64    `json:"avgInitialObjective"`
	DelaySec            SummaryOut `json:"delaySec"`
	DelayPct            SummaryOut `json:"delayPct"`
	SavingPct           SummaryOut `json:"savingPct"`
	AdvanceSec          SummaryOut `json:"advanceSec"`
	AdvancePct          SummaryOut `json:"advancePct"`
	ClientsPerTaxiMean  float64    `json:"clientsPerTaxiMean"`
	ClientsPerTaxiMax   int        `json:"clientsPerTaxiMax"`
	AllServed           bool       `json:"allServed"`
}

// FromSolution converts a solver solution into its wire form.
func FromSolution(s *darp.Solution, objective int) *SolutionOut {
	if s == nil {
		return nil
	}
	out := &SolutionOut{
		Routes:        make([]RouteOut, 0, len(s.Routes)),
		UnassignedIDs: make([]int, 0, len(s.Unassigned)),
		Objective:     objective,
		AllServed:     s.ServedAll(),
	}
	for _, rt := range s.Routes {
		ro := RouteOut{Stops: make([]StopOut, 0, len(rt.Stops)), Requests: rt.NumRequests()}
		for _, st := range rt.Stops {
			ro.Stops = append(ro.Stops, StopOut{
				RequestID: st.Req.ID,
				Kind:      st.Kind.String(),
				Arrival:   st.Arrival,
				Load:      st.Load,
			})
		}
		out.Routes = append(out.Routes, ro)
	}
	for _, req := range s.Unassigned {
		out.UnassignedIDs = append(out.UnassignedIDs, req.ID)
	}
	return out
}

func summary(s darp.Summary) SummaryOut {
	return SummaryOut{Min: s.Min, Mean: s.Mean, Max: s.Max, StdDev: s.StdDev}
}

// BuildStats assembles the statistics record for a finished run.
func BuildStats(res darp.Result, eval *darp.Evaluator, totalRequests int) *StatsOut {
	st := &StatsOut{
		Requests:   totalRequests,
		Objective:  res.Objective,
		Iterations: res.Iterations,
		Promotions: res.Promotions,
		ElapsedMs:  res.Elapsed.Milliseconds(),
	}
	if totalRequests > 0 {
		st.PoolingPct = 100 * float64(res.Objective) / float64(totalRequests)
	}
	if n := len(res.InitialObjectives); n > 0 {
		sum := 0
		for _, v := range res.InitialObjectives {
			sum += v
		}
		st.AvgInitialObjective = float64(sum) / float64(n)
	}
	if res.Best == nil {
		return st
	}
	st.AllServed = res.Best.ServedAll()
	per := eval.RequestStats(res.Best)
	delays := make([]float64, 0, len(per))
	delayPcts := make([]float64, 0, len(per))
	savings := make([]float64, 0, len(per))
	advances := make([]float64, 0, len(per))
	advancePcts := make([]float64, 0, len(per))
	for _, p := range per {
		delays = append(delays, p.DelaySec)
		delayPcts = append(delayPcts, p.DelayPct)
		savings = append(savings, p.SavingPct)
		advances = append(advances, p.AdvanceSec)
		advancePcts = append(advancePcts, p.AdvancePct)
	}
	st.DelaySec = summary(darp.Summarize(delays))
	st.DelayPct = summary(darp.Summarize(delayPcts))
	st.SavingPct = summary(darp.Summarize(savings))
	st.AdvanceSec = summary(darp.Summarize(advances))
	st.AdvancePct = summary(darp.Summarize(advancePcts))
	fleet := eval.FleetStats(res.Best)
	st.ClientsPerTaxiMean = fleet.Mean
	st.ClientsPerTaxiMax = fleet.Max
	return st
}
