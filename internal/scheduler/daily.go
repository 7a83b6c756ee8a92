package scheduler

import (
	"context"
	"time"

	"github.com/quantrail/riskledger/internal/batch"
	"github.com/quantrail/riskledger/internal/calendar"
	"github.com/quantrail/riskledger/pkg/logger"
)

// DailyBatchJob fires the full daily batch sequence after the close.
// Weekends are excluded by the cron expression; market holidays are
// caught here since cron cannot express them.
type DailyBatchJob struct {
	orchestrator *batch.Orchestrator
	schedule     string
	logger       *logger.Logger
	now          func() time.Time
}

func NewDailyBatchJob(orchestrator *batch.Orchestrator, schedule string, log *logger.Logger) *DailyBatchJob {
	return &DailyBatchJob{
		orchestrator: orchestrator,
		schedule:     schedule,
		logger:       log,
		now:          time.Now,
	}
}

func (j *DailyBatchJob) Name() string     { return "daily_batch" }
func (j *DailyBatchJob) Schedule() string { return j.schedule }

func (j *DailyBatchJob) Run(ctx context.Context) error {
	date := calendar.Normalize(j.now().UTC())

	if !calendar.IsTradingDay(date) {
		j.logger.WithField("date", date.Format("2006-01-02")).
			Info("Skipping daily batch, not a trading day")
		return nil
	}

	report, err := j.orchestrator.RunDailySequence(ctx, date)
	if err != nil {
		return err
	}

	if report.Failed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"run_id": report.RunID,
			"failed": report.Failed,
		}).Warn("Daily batch completed with failures")
	}

	return nil
}
