package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tourcatalog/internal/model"
)

const runSchema = `
CREATE TABLE IF NOT EXISTS catalog_refresh_runs (
	id           UUID PRIMARY KEY,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL,
	products     INT NOT NULL,
	entries      INT NOT NULL,
	partial      BOOLEAN NOT NULL,
	failed_paths TEXT[],
	removed      TEXT[],
	error        TEXT
)`

const runSchemaRemoved = `ALTER TABLE catalog_refresh_runs ADD COLUMN IF NOT EXISTS removed TEXT[]`

// RunRepository keeps the history of refresh runs.
type RunRepository struct {
	DB *pgxpool.Pool
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{runSchema, runSchemaRemoved} {
		if _, err := r.DB.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "create catalog_refresh_runs")
		}
	}
	return nil
}

func (r *RunRepository) Record(ctx context.Context, run model.RefreshRun) error {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return errors.Wrapf(err, "run id %q", run.ID)
	}
	var runErr *string
	if run.Error != "" {
		runErr = &run.Error
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO catalog_refresh_runs
		(id, started_at, finished_at, products, entries, partial, failed_paths, removed, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, run.StartedAt, run.FinishedAt, run.Products, run.Entries, run.Partial, run.FailedPaths, run.Removed, runErr)
	if err != nil {
		return errors.Wrap(err, "insert refresh run")
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]model.RefreshRun, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, started_at, finished_at, products, entries, partial, failed_paths, removed, COALESCE(error, '')
		FROM catalog_refresh_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query refresh runs")
	}
	defer rows.Close()

	var runs []model.RefreshRun
	for rows.Next() {
		var (
			run model.RefreshRun
			id  uuid.UUID
		)
		if err := rows.Scan(&id, &run.StartedAt, &run.FinishedAt, &run.Products, &run.Entries,
			&run.Partial, &run.FailedPaths, &run.Removed, &run.Error); err != nil {
			return nil, errors.Wrap(err, "scan refresh run")
		}
		run.ID = id.String()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
