package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ridepool/internal/model"
)

// Memory is the in-process Store used by default and in tests.
type Memory struct {
	mu   sync.RWMutex
	sets map[string]model.RequestSet
	runs map[string]model.Run
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sets: map[string]model.RequestSet{},
		runs: map[string]model.Run{},
	}
}

func (m *Memory) SaveRequestSet(_ context.Context, set model.RequestSet) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set.ID == "" {
		set.ID = "rs_" + uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}
	m.sets[set.ID] = set
	return set.ID, nil
}

func (m *Memory) GetRequestSet(_ context.Context, id string) (model.RequestSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.sets[id]
	if !ok {
		return model.RequestSet{}, ErrNotFound
	}
	return set, nil
}

func (m *Memory) ListRequestSets(_ context.Context, limit int) ([]model.RequestSetMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.RequestSetMeta, 0, len(m.sets))
	for _, set := range m.sets {
		out = append(out, set.Meta())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CreateRun(_ context.Context, run model.Run) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = "run_" + uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	m.runs[run.ID] = run
	return run.ID, nil
}

func (m *Memory) UpdateRun(_ context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return ErrNotFound
	}
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return run, nil
}

func (m *Memory) ListRuns(_ context.Context, limit int) ([]model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Run, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
