package config

import (
	"os"
	"path/filepath"
	"testing"

	"ridepool/internal/darp"
	"ridepool/internal/model"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	p, err := cfg.Params()
	if err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if p.Strategy != darp.Exhaustive {
		t.Fatalf("default strategy: %v", p.Strategy)
	}
	if p.Alpha <= 1 {
		t.Fatalf("default alpha: %f", p.Alpha)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ridepool.yaml")
	body := `
solver:
  alpha: 1.8
  capacity: 3
  insertionMethod: IB
  timeBudgetSec: 60
dataset:
  timeWindowMin: 10
  maxRows: 5000
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Solver.Alpha != 1.8 || cfg.Solver.Capacity != 3 {
		t.Fatalf("solver section not applied: %+v", cfg.Solver)
	}
	if cfg.Dataset.TimeWindowMin != 10 || cfg.Dataset.MaxRows != 5000 {
		t.Fatalf("dataset section not applied: %+v", cfg.Dataset)
	}
	// Untouched keys keep their defaults.
	if cfg.Solver.Beta != Default().Solver.Beta {
		t.Fatalf("beta default lost: %f", cfg.Solver.Beta)
	}
	p, err := cfg.Params()
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if p.Strategy != darp.Restricted {
		t.Fatalf("strategy: %v", p.Strategy)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("solver: [not a map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed YAML accepted")
	}
}

func TestParamsRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Solver.Alpha = 0.8 // the old fare-factor convention, no longer a detour ratio
	if _, err := cfg.Params(); err == nil {
		t.Fatal("alpha <= 1 accepted")
	}
	cfg = Default()
	cfg.Solver.InsertionMethod = "IC"
	if _, err := cfg.Params(); err == nil {
		t.Fatal("unknown insertion method accepted")
	}
}

func TestApplyOverlay(t *testing.T) {
	cfg := Default()
	cfg.Apply(model.SolveParams{Alpha: 2.5, InsertionMethod: "IB", TimeBudgetMs: 1500, MarginMin: 5})
	if cfg.Solver.Alpha != 2.5 {
		t.Fatalf("alpha: %f", cfg.Solver.Alpha)
	}
	if cfg.Solver.InsertionMethod != "IB" {
		t.Fatalf("method: %s", cfg.Solver.InsertionMethod)
	}
	if cfg.Solver.TimeBudgetSec != 2 {
		t.Fatalf("budget rounded up to whole seconds: %d", cfg.Solver.TimeBudgetSec)
	}
	if cfg.Dataset.TimeWindowMin != 5 {
		t.Fatalf("margin: %f", cfg.Dataset.TimeWindowMin)
	}
	// Zero fields leave the config alone.
	before := cfg
	cfg.Apply(model.SolveParams{})
	if cfg != before {
		t.Fatalf("empty overlay changed the config: %+v", cfg)
	}
}
