// Package api is the HTTP surface of the solver service: request-set
// ingestion, run submission, run inspection, and progress streaming over
// SSE and WebSocket.
package api

import (
	"context"
	"os"
	"strings"

	"ridepool/internal/config"
	"ridepool/internal/store"
)

type Server struct {
	Store  store.Store
	Broker EventBroker
	Runner *Runner
	Config config.Config
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer() (*Server, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		// Schema setup (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = sp
	}
	// Broker selection
	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	return &Server{
		Store:  s,
		Broker: broker,
		Runner: NewRunner(s, broker),
		Config: cfg,
	}, nil
}
