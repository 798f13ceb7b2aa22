// Command ridepool runs the batch solver over a trip-record CSV and prints
// a pooling report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"ridepool/internal/buildinfo"
	"ridepool/internal/config"
	"ridepool/internal/darp"
	"ridepool/internal/dataset"
	"ridepool/internal/model"
)

func main() {
	defaults := config.Default()

	var (
		configPath = flag.String("config", "", "YAML config file")
		input      = flag.String("input", "", "trip-record CSV to solve")
		output     = flag.String("output", "", "write the solution and stats as JSON")
		checkpoint = flag.String("checkpoint", "", "request-set checkpoint file")
		dataSaved  = flag.Bool("data-saved", false, "load requests from the checkpoint instead of the CSV")
		size       = flag.Int("size", 0, "max CSV rows to read (0 = all)")
		timeframe  = flag.Float64("timeframe", 0, "keep only requests within this many seconds of the first (0 = all)")
		timeLimit  = flag.Int("time-limit", defaults.Solver.TimeBudgetSec, "solve budget in seconds")
		window     = flag.Float64("time-window", defaults.Dataset.TimeWindowMin, "pickup/dropoff window margin in minutes")
		speed      = flag.Float64("speed", defaults.Solver.SpeedKph, "vehicle speed in km/h")
		capacity   = flag.Int("capacity", defaults.Solver.Capacity, "seats per vehicle")
		alpha      = flag.Float64("alpha", defaults.Solver.Alpha, "max ride time as a multiple of the direct time")
		beta       = flag.Float64("beta", defaults.Solver.Beta, "restricted candidate list fraction")
		method     = flag.String("insertion-method", defaults.Solver.InsertionMethod, "construction strategy: IA or IB")
		lsRounds   = flag.Int("local-search-rounds", defaults.Solver.LocalSearchRounds, "local search rounds per iteration")
		insertTry  = flag.Int("insert-attempts", defaults.Solver.InsertAttempts, "restricted insertion retries")
		swapTry    = flag.Int("swap-attempts", defaults.Solver.SwapAttempts, "relocation probes per request")
		swapFrac   = flag.Float64("swap-fraction", defaults.Solver.SwapFraction, "fraction of requests relocated when diversifying")
		seed       = flag.Int64("seed", 0, "RNG seed (0 = time-based)")
		verbose    = flag.Bool("verbose", false, "log every iteration")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("ridepool %s %s\n", buildinfo.Version, buildinfo.Commit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "time-limit":
			cfg.Solver.TimeBudgetSec = *timeLimit
		case "time-window":
			cfg.Dataset.TimeWindowMin = *window
		case "speed":
			cfg.Solver.SpeedKph = *speed
		case "capacity":
			cfg.Solver.Capacity = *capacity
		case "alpha":
			cfg.Solver.Alpha = *alpha
		case "beta":
			cfg.Solver.Beta = *beta
		case "insertion-method":
			cfg.Solver.InsertionMethod = *method
		case "local-search-rounds":
			cfg.Solver.LocalSearchRounds = *lsRounds
		case "insert-attempts":
			cfg.Solver.InsertAttempts = *insertTry
		case "swap-attempts":
			cfg.Solver.SwapAttempts = *swapTry
		case "swap-fraction":
			cfg.Solver.SwapFraction = *swapFrac
		case "seed":
			cfg.Solver.Seed = *seed
		case "size":
			cfg.Dataset.MaxRows = *size
		case "timeframe":
			cfg.Dataset.TimeframeSec = *timeframe
		}
	})

	params, err := cfg.Params()
	if err != nil {
		log.Fatalf("invalid parameters: %v", err)
	}

	set, err := loadRequestSet(cfg, *input, *checkpoint, *dataSaved)
	if err != nil {
		log.Fatalf("load requests: %v", err)
	}
	if len(set.Records) == 0 {
		log.Fatal("no requests survived the filters")
	}
	log.Printf("loaded %d requests (%d rows dropped)", len(set.Records), set.Dropped)

	reqs := dataset.BuildRequests(set.Records, cfg.Dataset.TimeWindowMin*60, cfg.Solver.SpeedKph)
	engine := darp.NewEngine(params)
	if *verbose {
		engine.Progress = func(p darp.Progress) {
			log.Printf("iter %d: objective=%d elite=%d unassigned=%d elapsed=%s",
				p.Iteration, p.Objective, p.EliteObjective, p.Unassigned, p.Elapsed.Round(time.Millisecond))
		}
	}

	budget := time.Duration(cfg.Solver.TimeBudgetSec) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res, runErr := engine.Run(ctx, reqs)
	if runErr != nil {
		log.Printf("solver aborted: %v", runErr)
	}

	stats := model.BuildStats(res, engine.Evaluator(), len(reqs))
	printReport(stats, len(reqs))

	if *output != "" {
		record := struct {
			Params   model.SolveParams  `json:"params"`
			Solution *model.SolutionOut `json:"solution,omitempty"`
			Stats    *model.StatsOut    `json:"stats"`
		}{
			Params:   cfg.WireParams(),
			Solution: model.FromSolution(res.Best, res.Objective),
			Stats:    stats,
		}
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			log.Fatalf("encode output: %v", err)
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			log.Fatalf("write output: %v", err)
		}
		log.Printf("wrote %s", *output)
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func loadRequestSet(cfg config.Config, input, checkpoint string, dataSaved bool) (model.RequestSet, error) {
	if dataSaved {
		if checkpoint == "" {
			return model.RequestSet{}, fmt.Errorf("-data-saved requires -checkpoint")
		}
		return dataset.LoadCheckpoint(checkpoint)
	}
	if input == "" {
		return model.RequestSet{}, fmt.Errorf("-input or -data-saved required")
	}
	records, dropped, err := dataset.ReadFile(input, dataset.Options{
		MaxRows:      cfg.Dataset.MaxRows,
		TimeframeSec: cfg.Dataset.TimeframeSec,
		SpeedKph:     cfg.Solver.SpeedKph,
	})
	if err != nil {
		return model.RequestSet{}, err
	}
	set := model.RequestSet{Name: input, CreatedAt: time.Now().UTC(), Records: records, Dropped: dropped}
	if checkpoint != "" {
		if err := dataset.SaveCheckpoint(checkpoint, set); err != nil {
			return model.RequestSet{}, fmt.Errorf("save checkpoint: %w", err)
		}
	}
	return set, nil
}

func printReport(st *model.StatsOut, total int) {
	fmt.Printf("requests:            %d\n", total)
	fmt.Printf("pooled:              %d (%.1f%%)\n", st.Objective, st.PoolingPct)
	fmt.Printf("iterations:          %d (avg initial objective %.1f)\n", st.Iterations, st.AvgInitialObjective)
	fmt.Printf("promotions:          %d\n", st.Promotions)
	fmt.Printf("elapsed:             %s\n", time.Duration(st.ElapsedMs)*time.Millisecond)
	if st.AllServed {
		fmt.Println("all requests served")
	} else {
		fmt.Println("warning: some requests were left unassigned")
	}
	if st.Objective == 0 {
		return
	}
	printSummary("delay (s)", st.DelaySec)
	printSummary("delay (%)", st.DelayPct)
	printSummary("saving (%)", st.SavingPct)
	printSummary("advance (s)", st.AdvanceSec)
	printSummary("advance (%)", st.AdvancePct)
	fmt.Printf("clients per taxi:    mean %.2f, max %d\n", st.ClientsPerTaxiMean, st.ClientsPerTaxiMax)
}

func printSummary(label string, s model.SummaryOut) {
	fmt.Printf("%-20s min %.1f  mean %.1f  max %.1f  stddev %.1f\n", label+":", s.Min, s.Mean, s.Max, s.StdDev)
}
