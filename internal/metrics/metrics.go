package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SolveRuns counts finished solver runs by terminal status
	SolveRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solve_runs_total", Help: "Solver runs by terminal status."},
		[]string{"status"},
	)
	// SolveActive gauges runs currently executing
	SolveActive = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "solve_runs_active", Help: "Solver runs currently executing."},
	)
	// SolveIterations counts GRASP iterations across all runs
	SolveIterations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solve_iterations_total", Help: "GRASP iterations completed across all runs."},
	)
	// SolvePromotions counts elite promotions across all runs
	SolvePromotions = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solve_promotions_total", Help: "Elite promotions across all runs."},
	)
	// SolvePooled tracks the final objective (pooled requests) per run
	SolvePooled = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solve_pooled_requests", Help: "Pooled requests in the final solution per run.", Buckets: []float64{0, 2, 5, 10, 20, 50, 100, 200, 500}},
	)
	// SolveDuration records wall-clock solve time in seconds
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solve_duration_seconds", Help: "Wall-clock solve time in seconds.", Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600}},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolveRuns)
		Registry.MustRegister(SolveActive)
		Registry.MustRegister(SolveIterations)
		Registry.MustRegister(SolvePromotions)
		Registry.MustRegister(SolvePooled)
		Registry.MustRegister(SolveDuration)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
