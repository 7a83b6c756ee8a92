package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one unit of per-portfolio batch work
type Job interface {
	// Name identifies the job in audit records and logs
	Name() string

	// Critical marks jobs whose failure invalidates downstream work.
	// When a critical job exhausts its retries, the orchestrator skips
	// the portfolio's remaining jobs for that run.
	Critical() bool

	// Run executes the job for one portfolio and calculation date
	Run(ctx context.Context, portfolioID uuid.UUID, date time.Time) error
}

// JobStatus is the lifecycle state of one job-portfolio pair
type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusRunning JobStatus = "running"
	StatusSuccess JobStatus = "success"
	StatusFailed  JobStatus = "failed"
	StatusSkipped JobStatus = "skipped"
)

// JobRecord is the persisted audit row for one job execution,
// including all retry attempts folded into a single record.
type JobRecord struct {
	ID          uuid.UUID  `json:"id"`
	RunID       uuid.UUID  `json:"run_id"`
	PortfolioID uuid.UUID  `json:"portfolio_id"`
	JobName     string     `json:"job_name"`
	RunDate     time.Time  `json:"run_date"`
	Status      JobStatus  `json:"status"`
	Attempts    int        `json:"attempts"`
	ErrorKind   ErrorKind  `json:"error_kind,omitempty"`
	ErrorMsg    string     `json:"error_message,omitempty"`
	ErrorDetail string     `json:"error_detail,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// JobRecorder persists job audit records
type JobRecorder interface {
	RecordJob(ctx context.Context, record *JobRecord) error
	GetRunJobs(ctx context.Context, runID uuid.UUID) ([]JobRecord, error)
	GetRecentJobs(ctx context.Context, limit int) ([]JobRecord, error)
}

// RunReport aggregates one full batch run for audit and monitoring
type RunReport struct {
	RunID      uuid.UUID         `json:"run_id"`
	RunDate    time.Time         `json:"run_date"`
	Portfolios int               `json:"portfolios"`
	Attempted  int               `json:"jobs_attempted"`
	Succeeded  int               `json:"jobs_succeeded"`
	Failed     int               `json:"jobs_failed"`
	Skipped    int               `json:"jobs_skipped"`
	ByKind     map[ErrorKind]int `json:"failures_by_kind,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Jobs       []JobRecord       `json:"jobs"`
}

func (r *RunReport) addFailure(kind ErrorKind) {
	if r.ByKind == nil {
		r.ByKind = make(map[ErrorKind]int)
	}
	r.ByKind[kind]++
}
