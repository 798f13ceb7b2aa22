package api

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ridepool/internal/config"
	"ridepool/internal/darp"
	"ridepool/internal/dataset"
	"ridepool/internal/metrics"
	"ridepool/internal/model"
	"ridepool/internal/store"
)

// Runner executes solver runs in background goroutines, one per run, and
// publishes their progress through the event broker. Progress publishing is
// rate-limited so a fast iteration loop cannot flood subscribers.
type Runner struct {
	store  store.Store
	broker EventBroker

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewRunner(s store.Store, b EventBroker) *Runner {
	return &Runner{store: s, broker: b, cancels: map[string]context.CancelFunc{}}
}

// Start launches the solve for an already-persisted run record. The run
// context carries the time budget; cancellation through Cancel is
// cooperative and still produces a terminal run record.
func (rn *Runner) Start(run model.Run, cfg config.Config, params darp.Params, records []model.TripRecord) {
	budget := time.Duration(cfg.Solver.TimeBudgetSec) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	rn.mu.Lock()
	rn.cancels[run.ID] = cancel
	rn.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			rn.mu.Lock()
			delete(rn.cancels, run.ID)
			rn.mu.Unlock()
		}()
		rn.solve(ctx, run, cfg, params, records)
	}()
}

// Cancel stops a running solve. It reports whether the run was active.
func (rn *Runner) Cancel(runID string) bool {
	rn.mu.Lock()
	cancel, ok := rn.cancels[runID]
	rn.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (rn *Runner) solve(ctx context.Context, run model.Run, cfg config.Config, params darp.Params, records []model.TripRecord) {
	metrics.SolveActive.Inc()
	defer metrics.SolveActive.Dec()

	reqs := dataset.BuildRequests(records, cfg.Dataset.TimeWindowMin*60, cfg.Solver.SpeedKph)
	engine := darp.NewEngine(params)

	limiter := rate.NewLimiter(rate.Every(200*time.Millisecond), 1)
	engine.Progress = func(p darp.Progress) {
		metrics.SolveIterations.Inc()
		if !limiter.Allow() {
			return
		}
		rn.broker.Publish(run.ID, ProgressEvent{Type: "run.progress", Data: map[string]any{
			"runId":          run.ID,
			"iteration":      p.Iteration,
			"objective":      p.Objective,
			"eliteObjective": p.EliteObjective,
			"unassigned":     p.Unassigned,
			"elapsedMs":      p.Elapsed.Milliseconds(),
		}})
	}

	res, err := engine.Run(ctx, reqs)

	run.Objective = res.Objective
	run.Solution = model.FromSolution(res.Best, res.Objective)
	run.Stats = model.BuildStats(res, engine.Evaluator(), len(reqs))
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err != nil {
		// An invariant breach aborts the run but keeps the best solution
		// found, so operators can inspect what the engine produced.
		run.Status = model.RunFailed
		run.Error = err.Error()
		log.Printf("run %s failed: %v", run.ID, err)
	} else {
		run.Status = model.RunDone
	}

	metrics.SolvePromotions.Add(float64(res.Promotions))
	metrics.SolvePooled.Observe(float64(res.Objective))
	metrics.SolveDuration.Observe(res.Elapsed.Seconds())
	metrics.SolveRuns.WithLabelValues(run.Status).Inc()

	if uerr := rn.store.UpdateRun(context.Background(), run); uerr != nil {
		log.Printf("run %s: persist result: %v", run.ID, uerr)
	}

	evtType := "run.done"
	if run.Status == model.RunFailed {
		evtType = "run.failed"
	}
	rn.broker.Publish(run.ID, ProgressEvent{Type: evtType, Data: map[string]any{
		"runId":      run.ID,
		"status":     run.Status,
		"objective":  run.Objective,
		"iterations": res.Iterations,
		"elapsedMs":  res.Elapsed.Milliseconds(),
	}})
}
