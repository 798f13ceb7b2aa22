// Package config loads solver and dataset settings from a YAML file and
// merges them with per-run overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ridepool/internal/darp"
	"ridepool/internal/model"
)

// Config is the full settings surface of a run, YAML-facing.
type Config struct {
	Solver  Solver  `yaml:"solver"`
	Dataset Dataset `yaml:"dataset"`
}

// Solver mirrors the engine parameters.
type Solver struct {
	Alpha             float64 `yaml:"alpha"`
	Beta              float64 `yaml:"beta"`
	Capacity          int     `yaml:"capacity"`
	SpeedKph          float64 `yaml:"speedKph"`
	InsertionMethod   string  `yaml:"insertionMethod"`
	LocalSearchRounds int     `yaml:"maxLocalSearchRounds"`
	InsertAttempts    int     `yaml:"insertAttemptBudget"`
	SwapAttempts      int     `yaml:"swapAttemptBudget"`
	SwapFraction      float64 `yaml:"swapFraction"`
	TimeBudgetSec     int     `yaml:"timeBudgetSec"`
	Seed              int64   `yaml:"seed"`
}

// Dataset mirrors the loader options.
type Dataset struct {
	TimeWindowMin float64 `yaml:"timeWindowMin"`
	TimeframeSec  float64 `yaml:"timeframeSec"`
	MaxRows       int     `yaml:"maxRows"`
}

// Default returns the configuration the solver assumes when nothing is
// specified.
func Default() Config {
	p := darp.DefaultParams()
	return Config{
		Solver: Solver{
			Alpha:             p.Alpha,
			Beta:              p.Beta,
			Capacity:          p.Capacity,
			SpeedKph:          p.SpeedKph,
			InsertionMethod:   string(p.Strategy),
			LocalSearchRounds: p.LocalSearchRounds,
			InsertAttempts:    p.InsertAttempts,
			SwapAttempts:      p.SwapAttempts,
			SwapFraction:      p.SwapFraction,
			TimeBudgetSec:     30,
		},
		Dataset: Dataset{TimeWindowMin: 15},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Params converts the solver section into engine parameters, validating
// them on the way.
func (c Config) Params() (darp.Params, error) {
	strategy, ok := darp.ParseStrategy(c.Solver.InsertionMethod)
	if !ok {
		return darp.Params{}, fmt.Errorf("unknown insertion method %q", c.Solver.InsertionMethod)
	}
	p := darp.Params{
		Alpha:             c.Solver.Alpha,
		Beta:              c.Solver.Beta,
		Capacity:          c.Solver.Capacity,
		SpeedKph:          c.Solver.SpeedKph,
		Strategy:          strategy,
		LocalSearchRounds: c.Solver.LocalSearchRounds,
		InsertAttempts:    c.Solver.InsertAttempts,
		SwapAttempts:      c.Solver.SwapAttempts,
		SwapFraction:      c.Solver.SwapFraction,
		Seed:              c.Solver.Seed,
	}
	if err := p.Validate(); err != nil {
		return darp.Params{}, err
	}
	return p, nil
}

// Apply overlays non-zero fields of a wire-level SolveParams onto the
// configuration, the way API callers override per run.
func (c *Config) Apply(o model.SolveParams) {
	if o.Alpha != 0 {
		c.Solver.Alpha = o.Alpha
	}
	if o.Beta != 0 {
		c.Solver.Beta = o.Beta
	}
	if o.Capacity != 0 {
		c.Solver.Capacity = o.Capacity
	}
	if o.SpeedKph != 0 {
		c.Solver.SpeedKph = o.SpeedKph
	}
	if o.InsertionMethod != "" {
		c.Solver.InsertionMethod = o.InsertionMethod
	}
	if o.LocalSearchRounds != 0 {
		c.Solver.LocalSearchRounds = o.LocalSearchRounds
	}
	if o.InsertAttempts != 0 {
		c.Solver.InsertAttempts = o.InsertAttempts
	}
	if o.SwapAttempts != 0 {
		c.Solver.SwapAttempts = o.SwapAttempts
	}
	if o.SwapFraction != 0 {
		c.Solver.SwapFraction = o.SwapFraction
	}
	if o.MarginMin != 0 {
		c.Dataset.TimeWindowMin = o.MarginMin
	}
	if o.TimeBudgetMs != 0 {
		c.Solver.TimeBudgetSec = (o.TimeBudgetMs + 999) / 1000
	}
	if o.Seed != 0 {
		c.Solver.Seed = o.Seed
	}
}

// WireParams exports the effective solver settings in wire form, for run
// records.
func (c Config) WireParams() model.SolveParams {
	return model.SolveParams{
		Alpha:             c.Solver.Alpha,
		Beta:              c.Solver.Beta,
		Capacity:          c.Solver.Capacity,
		SpeedKph:          c.Solver.SpeedKph,
		InsertionMethod:   c.Solver.InsertionMethod,
		LocalSearchRounds: c.Solver.LocalSearchRounds,
		InsertAttempts:    c.Solver.InsertAttempts,
		SwapAttempts:      c.Solver.SwapAttempts,
		SwapFraction:      c.Solver.SwapFraction,
		MarginMin:         c.Dataset.TimeWindowMin,
		TimeBudgetMs:      c.Solver.TimeBudgetSec * 1000,
		Seed:              c.Solver.Seed,
	}
}
