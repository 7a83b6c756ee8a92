package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Quality marks how reliable a computed exposure is given the history
// that backed it. A zero beta with QualityInsufficientData means "not
// computed", never "no exposure".
type Quality string

const (
	QualityOK               Quality = "ok"
	QualityInsufficientData Quality = "insufficient_data"
)

// FactorExposure is a portfolio-level regression result for one factor.
// Quality is QualityInsufficientData when no position qualified for the
// aggregation, so the zero beta can be told apart from a real zero.
type FactorExposure struct {
	PortfolioID     uuid.UUID `json:"portfolio_id"`
	FactorName      string    `json:"factor_name"`
	CalculationDate time.Time `json:"calculation_date"`
	Beta            float64   `json:"beta"`
	DollarExposure  float64   `json:"dollar_exposure"`
	Quality         Quality   `json:"quality"`
	BasisVersion    string    `json:"basis_version"`
}

// PositionFactorExposure is a position-level regression result for one
// factor
type PositionFactorExposure struct {
	PortfolioID     uuid.UUID `json:"portfolio_id"`
	Symbol          string    `json:"symbol"`
	FactorName      string    `json:"factor_name"`
	CalculationDate time.Time `json:"calculation_date"`
	Beta            float64   `json:"beta"`
	DollarExposure  float64   `json:"dollar_exposure"`
	Quality         Quality   `json:"quality"`
	BasisVersion    string    `json:"basis_version"`
}

// ExposureRun is one complete calculation run. A run always covers the
// full factor set of its basis version; factors from different runs
// are never mixed.
type ExposureRun struct {
	PortfolioID     uuid.UUID                `json:"portfolio_id"`
	CalculationDate time.Time                `json:"calculation_date"`
	BasisVersion    string                   `json:"basis_version"`
	Portfolio       []FactorExposure         `json:"portfolio"`
	Positions       []PositionFactorExposure `json:"positions"`
}

// FactorNames returns the factor names covered by the run, in stored
// order.
func (r *ExposureRun) FactorNames() []string {
	names := make([]string, 0, len(r.Portfolio))
	for _, e := range r.Portfolio {
		names = append(names, e.FactorName)
	}
	return names
}

// PortfolioExposure returns the portfolio-level exposure for a factor
// name, or nil when the run does not cover it.
func (r *ExposureRun) PortfolioExposure(factorName string) *FactorExposure {
	for i := range r.Portfolio {
		if r.Portfolio[i].FactorName == factorName {
			return &r.Portfolio[i]
		}
	}
	return nil
}
