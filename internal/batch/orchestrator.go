package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantrail/riskledger/internal/calendar"
	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/internal/snapshot"
	"github.com/quantrail/riskledger/pkg/config"
	"github.com/quantrail/riskledger/pkg/logger"
)

// Notifier receives job lifecycle events during a run. The realtime
// hub implements it; a nil notifier disables notifications.
type Notifier interface {
	NotifyJob(record JobRecord)
	NotifyReport(report *RunReport)
}

// Orchestrator drives the daily batch: for each portfolio the jobs run
// strictly in order (rollforward, exposures, stress), because each job
// reads state the previous one committed. Portfolios are independent
// and may run in parallel.
type Orchestrator struct {
	portfolios contracts.PortfolioRepository
	recorder   JobRecorder
	jobs       []Job
	cfg        config.BatchConfig
	logger     *logger.Logger
	notifier   Notifier

	// test seam for retry backoff
	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(
	portfolios contracts.PortfolioRepository,
	recorder JobRecorder,
	jobs []Job,
	cfg config.BatchConfig,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		portfolios: portfolios,
		recorder:   recorder,
		jobs:       jobs,
		cfg:        cfg,
		logger:     log,
		sleep:      sleepCtx,
	}
}

// SetNotifier attaches a job event notifier
func (o *Orchestrator) SetNotifier(n Notifier) {
	o.notifier = n
}

// RunDailySequence executes all jobs for all portfolios for one
// calculation date and returns the aggregated report. The report is
// also persisted job-by-job as audit records.
func (o *Orchestrator) RunDailySequence(ctx context.Context, calculationDate time.Time) (*RunReport, error) {
	date := calendar.Normalize(calculationDate)
	if !calendar.IsTradingDay(date) {
		return nil, fmt.Errorf("%w: %s", snapshot.ErrNotTradingDay, date.Format("2006-01-02"))
	}

	portfolios, err := o.portfolios.ListPortfolios(ctx)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}

	report := &RunReport{
		RunID:     uuid.New(),
		RunDate:   date,
		StartedAt: time.Now().UTC(),
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":     report.RunID,
		"run_date":   date.Format("2006-01-02"),
		"portfolios": len(portfolios),
		"workers":    o.cfg.Workers,
	}).Info("Batch run started")

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, o.cfg.Workers)

	for i := range portfolios {
		// Graceful cancellation happens between portfolios only
		if ctx.Err() != nil {
			break
		}

		pf := portfolios[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			records := o.runPortfolio(ctx, report.RunID, pf.ID, date)

			mu.Lock()
			report.Portfolios++
			for _, rec := range records {
				report.Jobs = append(report.Jobs, rec)
				switch rec.Status {
				case StatusSuccess:
					report.Attempted++
					report.Succeeded++
				case StatusFailed:
					report.Attempted++
					report.Failed++
					report.addFailure(rec.ErrorKind)
				case StatusSkipped:
					report.Skipped++
				}
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	report.Duration = time.Since(report.StartedAt)

	o.logger.WithFields(map[string]interface{}{
		"run_id":    report.RunID,
		"attempted": report.Attempted,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
		"duration":  report.Duration,
	}).Info("Batch run finished")

	if o.notifier != nil {
		o.notifier.NotifyReport(report)
	}

	return report, ctx.Err()
}

// runPortfolio executes the job sequence for one portfolio. A critical
// job that exhausts its retries stops the sequence; the remaining jobs
// are recorded as skipped so the audit trail shows they never ran,
// rather than silently missing.
func (o *Orchestrator) runPortfolio(ctx context.Context, runID, portfolioID uuid.UUID, date time.Time) []JobRecord {
	records := make([]JobRecord, 0, len(o.jobs))

	skipRest := false
	for _, job := range o.jobs {
		if skipRest {
			rec := JobRecord{
				ID:          uuid.New(),
				RunID:       runID,
				PortfolioID: portfolioID,
				JobName:     job.Name(),
				RunDate:     date,
				Status:      StatusSkipped,
				StartedAt:   time.Now().UTC(),
			}
			o.persist(ctx, &rec)
			records = append(records, rec)
			continue
		}

		rec := o.runJob(ctx, runID, portfolioID, job, date)
		o.persist(ctx, &rec)
		records = append(records, rec)

		if rec.Status == StatusFailed && job.Critical() {
			o.logger.WithFields(map[string]interface{}{
				"portfolio":  portfolioID,
				"job":        job.Name(),
				"error_kind": rec.ErrorKind,
			}).Error("Critical job failed, skipping remaining jobs for portfolio")
			skipRest = true
		}
	}

	return records
}

// runJob executes one job with kind-aware retries
func (o *Orchestrator) runJob(ctx context.Context, runID, portfolioID uuid.UUID, job Job, date time.Time) JobRecord {
	rec := JobRecord{
		ID:          uuid.New(),
		RunID:       runID,
		PortfolioID: portfolioID,
		JobName:     job.Name(),
		RunDate:     date,
		Status:      StatusRunning,
		StartedAt:   time.Now().UTC(),
	}

	var lastErr error
	var lastKind ErrorKind

	for attempt := 1; ; attempt++ {
		rec.Attempts = attempt
		err := job.Run(ctx, portfolioID, date)
		if err == nil {
			rec.Status = StatusSuccess
			rec.ErrorKind = ""
			rec.ErrorMsg = ""
			rec.ErrorDetail = ""
			break
		}

		lastErr = err
		lastKind = Classify(err)

		if !o.shouldRetry(lastKind, attempt) {
			rec.Status = StatusFailed
			break
		}

		o.logger.WithFields(map[string]interface{}{
			"portfolio":  portfolioID,
			"job":        job.Name(),
			"attempt":    attempt,
			"error_kind": lastKind,
			"error":      err.Error(),
		}).Warn("Job failed, retrying")

		if lastKind == KindTransient {
			if err := o.sleep(ctx, o.backoff(attempt)); err != nil {
				rec.Status = StatusFailed
				lastErr = err
				lastKind = KindPermanent
				break
			}
		}
	}

	if rec.Status == StatusFailed && lastErr != nil {
		rec.ErrorKind = lastKind
		rec.ErrorMsg = truncate(lastErr.Error(), 255)
		rec.ErrorDetail = lastErr.Error()
	}

	now := time.Now().UTC()
	rec.FinishedAt = &now

	if o.notifier != nil {
		o.notifier.NotifyJob(rec)
	}

	return rec
}

// shouldRetry applies the per-kind retry budget. Transient errors get
// the configured attempt count, a stale session gets exactly one fresh
// attempt, permanent errors get none.
func (o *Orchestrator) shouldRetry(kind ErrorKind, attempt int) bool {
	switch kind {
	case KindTransient:
		return attempt <= o.cfg.MaxRetries
	case KindSession:
		return attempt == 1
	default:
		return false
	}
}

func (o *Orchestrator) backoff(attempt int) time.Duration {
	d := o.cfg.RetryDelay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

func (o *Orchestrator) persist(ctx context.Context, rec *JobRecord) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordJob(ctx, rec); err != nil {
		// The audit write is best-effort: losing a record must not fail
		// the run it describes.
		o.logger.WithError(err).WithFields(map[string]interface{}{
			"job":       rec.JobName,
			"portfolio": rec.PortfolioID,
		}).Error("Failed to persist job record")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
