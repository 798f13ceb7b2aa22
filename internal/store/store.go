// Package store persists request sets and solver runs, either in memory or
// in Postgres.
package store

import (
	"context"
	"errors"

	"ridepool/internal/model"
)

// Store is the persistence interface used by the API server and the CLI
// checkpoint path.
type Store interface {
	// Request sets
	SaveRequestSet(ctx context.Context, set model.RequestSet) (string, error)
	GetRequestSet(ctx context.Context, id string) (model.RequestSet, error)
	ListRequestSets(ctx context.Context, limit int) ([]model.RequestSetMeta, error)

	// Runs
	CreateRun(ctx context.Context, run model.Run) (string, error)
	UpdateRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
}

var ErrNotFound = errors.New("not found")
