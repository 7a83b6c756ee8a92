package batch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists batch job audit records
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new batch job repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordJob upserts the audit row for one job execution. Retries fold
// into the same row (keyed by id); the stored record reflects the
// final outcome and total attempt count.
func (r *Repository) RecordJob(ctx context.Context, rec *JobRecord) error {
	query := `
		INSERT INTO risk.batch_jobs (
			id, run_id, portfolio_id, job_name, run_date,
			status, attempts, error_kind, error_message, error_detail,
			started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			error_kind = EXCLUDED.error_kind,
			error_message = EXCLUDED.error_message,
			error_detail = EXCLUDED.error_detail,
			finished_at = EXCLUDED.finished_at
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.RunID, rec.PortfolioID, rec.JobName, rec.RunDate,
		rec.Status, rec.Attempts, nullString(string(rec.ErrorKind)),
		nullString(rec.ErrorMsg), nullString(rec.ErrorDetail),
		rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record batch job: %w", err)
	}

	return nil
}

// GetRunJobs retrieves all job records for one run, ordered by start
// time.
func (r *Repository) GetRunJobs(ctx context.Context, runID uuid.UUID) ([]JobRecord, error) {
	query := `
		SELECT id, run_id, portfolio_id, job_name, run_date,
		       status, attempts, COALESCE(error_kind, ''), COALESCE(error_message, ''), COALESCE(error_detail, ''),
		       started_at, finished_at
		FROM risk.batch_jobs
		WHERE run_id = $1
		ORDER BY started_at ASC
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// GetRecentJobs retrieves the most recent job records across runs
func (r *Repository) GetRecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	query := `
		SELECT id, run_id, portfolio_id, job_name, run_date,
		       status, attempts, COALESCE(error_kind, ''), COALESCE(error_message, ''), COALESCE(error_detail, ''),
		       started_at, finished_at
		FROM risk.batch_jobs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

func scanJobs(rows pgx.Rows) ([]JobRecord, error) {
	records := make([]JobRecord, 0)
	for rows.Next() {
		var rec JobRecord
		var kind string
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.PortfolioID, &rec.JobName, &rec.RunDate,
			&rec.Status, &rec.Attempts, &kind, &rec.ErrorMsg, &rec.ErrorDetail,
			&rec.StartedAt, &rec.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch job: %w", err)
		}
		rec.ErrorKind = ErrorKind(kind)
		records = append(records, rec)
	}

	return records, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
