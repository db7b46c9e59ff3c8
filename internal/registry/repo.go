package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultListLimit caps List when no positive limit is given.
const DefaultListLimit = 20

// Run is one recorded training run.
type Run struct {
	RunID     string          `json:"run_id"`
	CreatedAt time.Time       `json:"created_at"`
	Target    string          `json:"target"`
	NSamples  int             `json:"n_samples"`
	TrainMAE  float64         `json:"train_mae"`
	TrainR2   float64         `json:"train_r2"`
	TestMAE   *float64        `json:"test_mae,omitempty"`
	TestR2    *float64        `json:"test_r2,omitempty"`
	Model     string          `json:"model"`
	ModelPath string          `json:"model_path"`
	Checksum  string          `json:"checksum"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Record inserts a run. Recording the same run id twice replaces it.
func (db *DB) Record(ctx context.Context, r Run) error {
	if r.RunID == "" {
		return errors.New("registry: run id is required")
	}
	meta := string(r.Metadata)
	if meta == "" {
		meta = "{}"
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO training_runs
			(run_id, created_at, target, n_samples, train_mae, train_r2, test_mae, test_r2, model, model_path, checksum, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			created_at = excluded.created_at,
			target     = excluded.target,
			n_samples  = excluded.n_samples,
			train_mae  = excluded.train_mae,
			train_r2   = excluded.train_r2,
			test_mae   = excluded.test_mae,
			test_r2    = excluded.test_r2,
			model      = excluded.model,
			model_path = excluded.model_path,
			checksum   = excluded.checksum,
			metadata   = excluded.metadata
	`, r.RunID, r.CreatedAt.UTC(), r.Target, r.NSamples, r.TrainMAE, r.TrainR2,
		nullFloat(r.TestMAE), nullFloat(r.TestR2), r.Model, r.ModelPath, r.Checksum, meta)
	if err != nil {
		return fmt.Errorf("registry: record run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (db *DB) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, created_at, target, n_samples, train_mae, train_r2, test_mae, test_r2, model, model_path, checksum, metadata
		FROM training_runs
		ORDER BY created_at DESC, run_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("registry: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Latest returns the newest run, or nil when none is recorded.
func (db *DB) Latest(ctx context.Context) (*Run, error) {
	runs, err := db.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r       Run
		testMAE sql.NullFloat64
		testR2  sql.NullFloat64
		meta    string
	)
	if err := s.Scan(&r.RunID, &r.CreatedAt, &r.Target, &r.NSamples, &r.TrainMAE, &r.TrainR2,
		&testMAE, &testR2, &r.Model, &r.ModelPath, &r.Checksum, &meta); err != nil {
		return Run{}, fmt.Errorf("registry: scan run: %w", err)
	}
	if testMAE.Valid {
		r.TestMAE = &testMAE.Float64
	}
	if testR2.Valid {
		r.TestR2 = &testR2.Float64
	}
	r.Metadata = json.RawMessage(meta)
	return r, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
