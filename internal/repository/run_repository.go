package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lewtec/labelsync/internal/domain"
)

// DefaultListLimit caps List when no positive limit is given
const DefaultListLimit = 50

// RunRepository implements domain.RunRepository on SQLite
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create stores a run and its items in one transaction
func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("while starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO sync_runs (id, version, dataset, project_id, started_at, finished_at, uploaded, failed, success, cancelled, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Version, run.Dataset, run.ProjectID,
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Uploaded, run.Failed, run.Success, run.Cancelled, nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("while inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO sync_run_items (run_id, position, image_key, file_name, status, reason, sha256)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("while preparing item insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range run.Items {
		_, err := stmt.ExecContext(ctx, run.ID, i, string(item.Key), item.FileName, string(item.Status),
			nullString(item.Reason), nullString(item.SHA256))
		if err != nil {
			return fmt.Errorf("while inserting item %s of run %s: %w", item.Key, run.ID, err)
		}
	}

	return tx.Commit()
}

// Get retrieves a run with its items
func (r *RunRepository) Get(ctx context.Context, id string) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, version, dataset, project_id, started_at, finished_at, uploaded, failed, success, cancelled, error
FROM sync_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT image_key, file_name, status, reason, sha256
FROM sync_run_items WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.SyncOutcome
		var key, status string
		var reason, sha sql.NullString
		if err := rows.Scan(&key, &item.FileName, &status, &reason, &sha); err != nil {
			return nil, err
		}
		item.Key = domain.ImageKey(key)
		item.Status = domain.OutcomeStatus(status)
		item.Reason = reason.String
		item.SHA256 = sha.String
		run.Items = append(run.Items, item)
	}
	return run, rows.Err()
}

// List retrieves the most recent runs, newest first, without items
func (r *RunRepository) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, version, dataset, project_id, started_at, finished_at, uploaded, failed, success, cancelled, error
FROM sync_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// Count returns the number of recorded runs
func (r *RunRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_runs").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.Run, error) {
	var run domain.Run
	var started, finished string
	var errText sql.NullString
	err := s.Scan(&run.ID, &run.Version, &run.Dataset, &run.ProjectID, &started, &finished,
		&run.Uploaded, &run.Failed, &run.Success, &run.Cancelled, &errText)
	if err != nil {
		return nil, err
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, fmt.Errorf("while parsing started_at of run %s: %w", run.ID, err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return nil, fmt.Errorf("while parsing finished_at of run %s: %w", run.ID, err)
	}
	run.Error = errText.String
	return &run, nil
}

// timestamps are stored as fixed width UTC text so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ domain.RunRepository = (*RunRepository)(nil)
