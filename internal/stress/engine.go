package stress

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/pkg/logger"
)

// Contribution is the stress P&L attributed to one shock. Unavailable
// contributions carry a reason and are excluded from the scenario
// total; they are never reported as a silent zero.
type Contribution struct {
	Label          string  `json:"label"`
	FactorName     string  `json:"factor_name,omitempty"`
	Shock          float64 `json:"shock"`
	Beta           float64 `json:"beta"`
	DollarExposure float64 `json:"dollar_exposure"`
	ExpectedPnL    float64 `json:"expected_pnl"`
	Available      bool    `json:"available"`
	Reason         string  `json:"reason,omitempty"`
}

// Result is a full scenario application against one portfolio
type Result struct {
	PortfolioID     uuid.UUID      `json:"portfolio_id"`
	Scenario        string         `json:"scenario"`
	BasisVersion    string         `json:"basis_version"`
	CalculationDate time.Time      `json:"calculation_date"`
	ExpectedPnL     float64        `json:"expected_pnl"`
	Contributions   []Contribution `json:"contributions"`
}

// Engine applies shock scenarios to stored factor exposures. It never
// recomputes betas: stress is a linear read over the latest completed
// exposure run.
type Engine struct {
	exposures contracts.ExposureRepository
	logger    *logger.Logger
}

func NewEngine(exposures contracts.ExposureRepository, log *logger.Logger) *Engine {
	return &Engine{
		exposures: exposures,
		logger:    log,
	}
}

// ApplyScenario loads the latest exposure run for the portfolio and
// computes expected P&L per shock as dollar_exposure * shock. Shock
// labels resolve against the factor names the run actually stored, so
// a scenario written against one basis version degrades explicitly
// (unavailable contribution) rather than silently when applied to a
// portfolio calculated under another. Factors flagged
// insufficient_data in the run are likewise reported unavailable, not
// as a zero P&L.
func (e *Engine) ApplyScenario(ctx context.Context, portfolioID uuid.UUID, scenario Scenario) (*Result, error) {
	run, err := e.exposures.GetLatestRun(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("stress %s: %w", scenario.Name, err)
	}

	populated := run.FactorNames()

	labels := make([]string, 0, len(scenario.Shocks))
	for label := range scenario.Shocks {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	result := &Result{
		PortfolioID:     portfolioID,
		Scenario:        scenario.Name,
		BasisVersion:    run.BasisVersion,
		CalculationDate: run.CalculationDate,
		Contributions:   make([]Contribution, 0, len(labels)),
	}

	for _, label := range labels {
		shock := scenario.Shocks[label]

		name, ok := resolveLabel(label, populated)
		if !ok {
			e.logger.WithFields(map[string]interface{}{
				"portfolio": portfolioID,
				"scenario":  scenario.Name,
				"label":     label,
				"basis":     run.BasisVersion,
			}).Warn("Shock label has no populated factor, contribution unavailable")
			result.Contributions = append(result.Contributions, Contribution{
				Label:     label,
				Shock:     shock,
				Available: false,
				Reason:    fmt.Sprintf("no factor for label %q in basis %s", label, run.BasisVersion),
			})
			continue
		}

		exp := run.PortfolioExposure(name)
		if exp.Quality == contracts.QualityInsufficientData {
			e.logger.WithFields(map[string]interface{}{
				"portfolio": portfolioID,
				"scenario":  scenario.Name,
				"factor":    name,
			}).Warn("Factor flagged insufficient_data, contribution unavailable")
			result.Contributions = append(result.Contributions, Contribution{
				Label:      label,
				FactorName: name,
				Shock:      shock,
				Available:  false,
				Reason:     fmt.Sprintf("factor %s flagged %s in latest run", name, exp.Quality),
			})
			continue
		}

		pnl := exp.DollarExposure * shock
		result.ExpectedPnL += pnl
		result.Contributions = append(result.Contributions, Contribution{
			Label:          label,
			FactorName:     name,
			Shock:          shock,
			Beta:           exp.Beta,
			DollarExposure: exp.DollarExposure,
			ExpectedPnL:    pnl,
			Available:      true,
		})
	}

	e.logger.WithFields(map[string]interface{}{
		"portfolio":     portfolioID,
		"scenario":      scenario.Name,
		"basis":         run.BasisVersion,
		"expected_pnl":  result.ExpectedPnL,
		"contributions": len(result.Contributions),
	}).Info("Scenario applied")

	return result, nil
}

// ApplyNamed applies a library scenario by name
func (e *Engine) ApplyNamed(ctx context.Context, portfolioID uuid.UUID, name string) (*Result, error) {
	scenario, ok := NamedScenario(name)
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
	return e.ApplyScenario(ctx, portfolioID, scenario)
}
