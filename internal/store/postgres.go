package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"ridepool/internal/model"
)

// Postgres stores request sets and runs in Postgres via the pgx stdlib
// driver. Records, solutions and stats live in JSONB columns; the scalar
// columns exist for listing without decoding the payloads.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens and pings a connection for the given DSN.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the schema when absent (dev helper).
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS request_sets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			size INT NOT NULL,
			dropped INT NOT NULL,
			records JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			request_set_id TEXT NOT NULL REFERENCES request_sets(id),
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			objective INT NOT NULL DEFAULT 0,
			params JSONB NOT NULL,
			solution JSONB,
			stats JSONB,
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS runs_created_idx ON runs (created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) SaveRequestSet(ctx context.Context, set model.RequestSet) (string, error) {
	if set.ID == "" {
		set.ID = "rs_" + uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}
	records, err := json.Marshal(set.Records)
	if err != nil {
		return "", err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO request_sets (id, name, created_at, size, dropped, records)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = $2, size = $4, dropped = $5, records = $6`,
		set.ID, set.Name, set.CreatedAt, len(set.Records), set.Dropped, records)
	if err != nil {
		return "", err
	}
	return set.ID, nil
}

func (p *Postgres) GetRequestSet(ctx context.Context, id string) (model.RequestSet, error) {
	var set model.RequestSet
	var records []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, dropped, records FROM request_sets WHERE id = $1`, id).
		Scan(&set.ID, &set.Name, &set.CreatedAt, &set.Dropped, &records)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RequestSet{}, ErrNotFound
	}
	if err != nil {
		return model.RequestSet{}, err
	}
	if err := json.Unmarshal(records, &set.Records); err != nil {
		return model.RequestSet{}, fmt.Errorf("decode records for %s: %w", id, err)
	}
	return set, nil
}

func (p *Postgres) ListRequestSets(ctx context.Context, limit int) ([]model.RequestSetMeta, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, created_at, size, dropped FROM request_sets ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RequestSetMeta{}
	for rows.Next() {
		var m model.RequestSetMeta
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt, &m.Size, &m.Dropped); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateRun(ctx context.Context, run model.Run) (string, error) {
	if run.ID == "" {
		run.ID = "run_" + uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	params, err := json.Marshal(run.Params)
	if err != nil {
		return "", err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO runs (id, request_set_id, status, created_at, objective, params)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.RequestSetID, run.Status, run.CreatedAt, run.Objective, params)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (p *Postgres) UpdateRun(ctx context.Context, run model.Run) error {
	var solution, stats []byte
	var err error
	if run.Solution != nil {
		if solution, err = json.Marshal(run.Solution); err != nil {
			return err
		}
	}
	if run.Stats != nil {
		if stats, err = json.Marshal(run.Stats); err != nil {
			return err
		}
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE runs SET status = $2, finished_at = $3, objective = $4, solution = $5, stats = $6, error = $7
		 WHERE id = $1`,
		run.ID, run.Status, run.FinishedAt, run.Objective, solution, stats, run.Error)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, request_set_id, status, created_at, finished_at, objective, params, solution, stats, error
		 FROM runs WHERE id = $1`, id)
	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	return run, err
}

func (p *Postgres) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, request_set_id, status, created_at, finished_at, objective, params, solution, stats, error
		 FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanRun(scan func(...any) error) (model.Run, error) {
	var run model.Run
	var finished sql.NullTime
	var params, solution, stats []byte
	if err := scan(&run.ID, &run.RequestSetID, &run.Status, &run.CreatedAt, &finished,
		&run.Objective, &params, &solution, &stats, &run.Error); err != nil {
		return model.Run{}, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	if err := json.Unmarshal(params, &run.Params); err != nil {
		return model.Run{}, fmt.Errorf("decode params for %s: %w", run.ID, err)
	}
	if len(solution) > 0 {
		if err := json.Unmarshal(solution, &run.Solution); err != nil {
			return model.Run{}, fmt.Errorf("decode solution for %s: %w", run.ID, err)
		}
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &run.Stats); err != nil {
			return model.Run{}, fmt.Errorf("decode stats for %s: %w", run.ID, err)
		}
	}
	return run, nil
}
