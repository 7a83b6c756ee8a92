package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/internal/snapshot"
	"github.com/quantrail/riskledger/pkg/config"
	"github.com/quantrail/riskledger/pkg/logger"
)

// Thursday
var runDate = time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

type fakePortfolioRepo struct {
	portfolios []contracts.Portfolio
}

func (f *fakePortfolioRepo) GetPortfolio(ctx context.Context, id uuid.UUID) (*contracts.Portfolio, error) {
	for i := range f.portfolios {
		if f.portfolios[i].ID == id {
			return &f.portfolios[i], nil
		}
	}
	return nil, contracts.ErrPortfolioNotFound
}

func (f *fakePortfolioRepo) ListPortfolios(ctx context.Context) ([]contracts.Portfolio, error) {
	return f.portfolios, nil
}

func (f *fakePortfolioRepo) GetPositions(ctx context.Context, portfolioID uuid.UUID, asOf time.Time) ([]contracts.Position, error) {
	return nil, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []JobRecord
}

func (f *fakeRecorder) RecordJob(ctx context.Context, rec *JobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeRecorder) GetRunJobs(ctx context.Context, runID uuid.UUID) ([]JobRecord, error) {
	return f.records, nil
}

func (f *fakeRecorder) GetRecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	return f.records, nil
}

// scriptedJob fails with errs[i] on attempt i+1, then succeeds once
// the script runs out.
type scriptedJob struct {
	name     string
	critical bool

	mu    sync.Mutex
	calls int
	errs  []error
}

func (j *scriptedJob) Name() string   { return j.name }
func (j *scriptedJob) Critical() bool { return j.critical }

func (j *scriptedJob) Run(ctx context.Context, portfolioID uuid.UUID, date time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if j.calls <= len(j.errs) {
		return j.errs[j.calls-1]
	}
	return nil
}

func (j *scriptedJob) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func testPortfolios(n int) []contracts.Portfolio {
	pfs := make([]contracts.Portfolio, n)
	for i := range pfs {
		pfs[i] = contracts.Portfolio{
			ID:            uuid.New(),
			Name:          fmt.Sprintf("book-%d", i),
			InitialEquity: decimal.NewFromInt(500000),
		}
	}
	return pfs
}

func newTestOrchestrator(pfs []contracts.Portfolio, recorder JobRecorder, jobs ...Job) *Orchestrator {
	cfg := config.BatchConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond}
	log := logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
	o := NewOrchestrator(&fakePortfolioRepo{portfolios: pfs}, recorder, jobs, cfg, log)
	o.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return o
}

func TestRunDailySequenceAllSuccess(t *testing.T) {
	pfs := testPortfolios(2)
	recorder := &fakeRecorder{}
	jobA := &scriptedJob{name: "snapshot_rollforward", critical: true}
	jobB := &scriptedJob{name: "factor_exposures", critical: true}

	o := newTestOrchestrator(pfs, recorder, jobA, jobB)
	report, err := o.RunDailySequence(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Portfolios)
	assert.Equal(t, 4, report.Attempted)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0, report.Skipped)
	assert.Len(t, recorder.records, 4)
}

func TestRunDailySequenceTransientRetriesThenSucceeds(t *testing.T) {
	pfs := testPortfolios(1)
	job := &scriptedJob{
		name:     "snapshot_rollforward",
		critical: true,
		errs:     []error{context.DeadlineExceeded, context.DeadlineExceeded},
	}

	o := newTestOrchestrator(pfs, &fakeRecorder{}, job)
	report, err := o.RunDailySequence(context.Background(), runDate)
	require.NoError(t, err)

	// 2 failures + 1 success within MaxRetries=2 budget
	assert.Equal(t, 3, job.callCount())
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Jobs, 1)
	assert.Equal(t, 3, report.Jobs[0].Attempts)
}

func TestRunDailySequenceTransientExhaustsRetries(t *testing.T) {
	pfs := testPortfolios(1)
	job := &scriptedJob{
		name:     "snapshot_rollforward",
		critical: false,
		errs: []error{
			context.DeadlineExceeded,
			context.DeadlineExceeded,
			context.DeadlineExceeded,
		},
	}

	o := newTestOrchestrator(pfs, &fakeRecorder{}, job)
	report, err := o.RunDailySequence(context.Background(), runDate)
	require.NoError(t, err)

	// Initial attempt + MaxRetries=2
	assert.Equal(t, 3, job.callCount())
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.ByKind[KindTransient])
}

func TestRunDailySequenceSessionRetriesOnce(t *testing.T) {
	pfs := testPortfolios(1)
	sessionErr := errors.New("conn closed")
	job := &scriptedJob{
		name:     "factor_exposures",
		critical: false,
		errs:     []error{sessionErr, sessionErr, sessionErr},
	}

	o := newTestOrchestrator(pfs, &fakeRecorder{}, job)
	report, err := o.RunDailySequence(context.Background(), runDate)
	require.NoError(t, err)

	// One fresh attempt, then give up
	assert.Equal(t, 2, job.callCount())
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.ByKind[KindSession])
}

func TestRunDailySequencePermanentNoRetry(t *testing.T) {
	pfs := testPortfolios(1)
	job := &scriptedJob{
		name:     "snapshot_rollforward",
		critical: false,
		errs:     []error{contracts.ErrDataUnavailable},
	}

	o := newTestOrchestrator(pfs, &fakeRecorder{}, job)
	report, err := o.RunDailySequence(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, 1, job.callCount())
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.ByKind[KindPermanent])
}

func TestCriticalFailureSkipsRemainingJobs(t *testing.T) {
	pfs := testPortfolios(2)
	recorder := &fakeRecorder{}
	// The critical rollforward fails permanently for every call in
	// portfolio order; make it fail only enough times to cover the
	// first portfolio's single attempt.
	critical := &scriptedJob{
		name:     "snapshot_rollforward",
		critical: true,
		errs:     []error{contracts.ErrDataUnavailable},
	}
	downstream := &scriptedJob{name: "factor_exposures", critical: true}
	last := &scriptedJob{name: "stress_sweep", critical: false}

	o := newTestOrchestrator(pfs, recorder, critical, downstream, last)
	report, err := o.RunDailySequence(context.Background(), runDate)
	require.NoError(t, err)

	// First portfolio: rollforward failed, two downstream jobs skipped.
	// Second portfolio: all three ran.
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 3, report.Succeeded)

	// Downstream jobs ran only for the healthy portfolio
	assert.Equal(t, 1, downstream.callCount())
	assert.Equal(t, 1, last.callCount())

	skipped := 0
	for _, rec := range recorder.records {
		if rec.Status == StatusSkipped {
			skipped++
		}
	}
	assert.Equal(t, 2, skipped)
}

func TestNonCriticalFailureDoesNotSkip(t *testing.T) {
	pfs := testPortfolios(1)
	flaky := &scriptedJob{
		name:     "stress_sweep",
		critical: false,
		errs:     []error{contracts.ErrNoExposures},
	}
	after := &scriptedJob{name: "tail_job", critical: false}

	o := newTestOrchestrator(pfs, &fakeRecorder{}, flaky, after)
	report, err := o.RunDailySequence(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, after.callCount())
}

func TestRunDailySequenceRejectsNonTradingDay(t *testing.T) {
	o := newTestOrchestrator(testPortfolios(1), &fakeRecorder{}, &scriptedJob{name: "snapshot_rollforward"})

	// Saturday
	_, err := o.RunDailySequence(context.Background(), time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.ErrorIs(t, err, snapshot.ErrNotTradingDay)
}

func TestRunDailySequenceFailureRecordTruncation(t *testing.T) {
	pfs := testPortfolios(1)
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	job := &scriptedJob{
		name:     "snapshot_rollforward",
		critical: false,
		errs:     []error{fmt.Errorf("%s: %w", string(long), contracts.ErrDataUnavailable)},
	}

	recorder := &fakeRecorder{}
	o := newTestOrchestrator(pfs, recorder, job)
	_, err := o.RunDailySequence(context.Background(), runDate)
	require.NoError(t, err)

	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Len(t, rec.ErrorMsg, 255)
	assert.Greater(t, len(rec.ErrorDetail), 255)
}

func TestRunDailySequenceParallelPortfolios(t *testing.T) {
	pfs := testPortfolios(8)
	recorder := &fakeRecorder{}
	job := &scriptedJob{name: "snapshot_rollforward", critical: true}

	o := newTestOrchestrator(pfs, recorder, job)
	o.cfg.Workers = 4

	report, err := o.RunDailySequence(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, 8, report.Portfolios)
	assert.Equal(t, 8, report.Succeeded)
	assert.Equal(t, 8, job.callCount())
}
