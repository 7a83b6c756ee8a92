package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/internal/factor"
	"github.com/quantrail/riskledger/internal/snapshot"
	"github.com/quantrail/riskledger/internal/stress"
	"github.com/quantrail/riskledger/pkg/logger"
)

// SnapshotJob rolls the equity ledger forward one day. Critical: the
// exposure and stress jobs read state this job writes.
type SnapshotJob struct {
	engine *snapshot.Engine
}

func NewSnapshotJob(engine *snapshot.Engine) *SnapshotJob {
	return &SnapshotJob{engine: engine}
}

func (j *SnapshotJob) Name() string   { return "snapshot_rollforward" }
func (j *SnapshotJob) Critical() bool { return true }

func (j *SnapshotJob) Run(ctx context.Context, portfolioID uuid.UUID, date time.Time) error {
	_, err := j.engine.Advance(ctx, portfolioID, date)
	return err
}

// ExposureJob computes and stores the factor exposure run. Critical:
// stress testing reads the run it writes.
type ExposureJob struct {
	engine *factor.Engine
}

func NewExposureJob(engine *factor.Engine) *ExposureJob {
	return &ExposureJob{engine: engine}
}

func (j *ExposureJob) Name() string   { return "factor_exposures" }
func (j *ExposureJob) Critical() bool { return true }

func (j *ExposureJob) Run(ctx context.Context, portfolioID uuid.UUID, date time.Time) error {
	_, err := j.engine.ComputeBetas(ctx, portfolioID, date)
	return err
}

// StressJob sweeps the scenario library over the freshly stored
// exposures and logs the results. Not critical: nothing downstream
// reads stress output, it exists so an operator sees the day's
// scenario P&L without asking the API.
type StressJob struct {
	engine *stress.Engine
	logger *logger.Logger
}

func NewStressJob(engine *stress.Engine, log *logger.Logger) *StressJob {
	return &StressJob{engine: engine, logger: log}
}

func (j *StressJob) Name() string   { return "stress_sweep" }
func (j *StressJob) Critical() bool { return false }

func (j *StressJob) Run(ctx context.Context, portfolioID uuid.UUID, date time.Time) error {
	names := stress.ScenarioNames()
	sort.Strings(names)

	var failed []string
	for _, name := range names {
		result, err := j.engine.ApplyNamed(ctx, portfolioID, name)
		if err != nil {
			if errors.Is(err, contracts.ErrNoExposures) {
				return fmt.Errorf("stress sweep: %w", err)
			}
			failed = append(failed, name)
			continue
		}

		unavailable := 0
		for _, c := range result.Contributions {
			if !c.Available {
				unavailable++
			}
		}
		j.logger.WithFields(map[string]interface{}{
			"portfolio":    portfolioID,
			"scenario":     name,
			"basis":        result.BasisVersion,
			"expected_pnl": result.ExpectedPnL,
			"unavailable":  unavailable,
		}).Info("Scenario sweep result")
	}

	if len(failed) > 0 {
		return fmt.Errorf("stress sweep: %d scenarios failed: %v", len(failed), failed)
	}
	return nil
}
