package factor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantrail/riskledger/internal/calendar"
	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/internal/marketdata"
	"github.com/quantrail/riskledger/pkg/config"
	"github.com/quantrail/riskledger/pkg/logger"
)

// Engine computes factor exposures: per-position regression betas
// against the configured factor basis, aggregated to portfolio level
// by market-value weights.
type Engine struct {
	portfolios contracts.PortfolioRepository
	prices     contracts.PriceReader
	exposures  contracts.ExposureRepository
	cfg        config.FactorConfig
	logger     *logger.Logger
}

// NewEngine creates a factor exposure engine
func NewEngine(
	portfolios contracts.PortfolioRepository,
	prices contracts.PriceReader,
	exposures contracts.ExposureRepository,
	cfg config.FactorConfig,
	log *logger.Logger,
) *Engine {
	return &Engine{
		portfolios: portfolios,
		prices:     prices,
		exposures:  exposures,
		cfg:        cfg,
		logger:     log,
	}
}

// Options tunes one calculation run
type Options struct {
	// Deltas maps symbol to an instrument delta for delta-adjusted
	// weighting. Symbols not present default to 1 (plain equity).
	Deltas map[string]float64
}

func (o Options) delta(symbol string) float64 {
	if d, ok := o.Deltas[symbol]; ok {
		return d
	}
	return 1
}

// ComputeBetas runs a full-basis calculation for the portfolio and
// stores the result tagged with the basis version.
func (e *Engine) ComputeBetas(ctx context.Context, portfolioID uuid.UUID, calculationDate time.Time) (*contracts.ExposureRun, error) {
	return e.ComputeBetasWithOptions(ctx, portfolioID, calculationDate, Options{})
}

// ComputeBetasWithOptions is ComputeBetas with explicit options.
//
// Positions with fewer than MinRegressionDays aligned observations are
// flagged insufficient_data: their betas are stored as zero with the
// flag, and they are excluded from both the numerator and denominator
// of the portfolio-level weighted aggregation. The flag, not the zero,
// is what downstream consumers must act on.
func (e *Engine) ComputeBetasWithOptions(ctx context.Context, portfolioID uuid.UUID, calculationDate time.Time, opts Options) (*contracts.ExposureRun, error) {
	date := calendar.Normalize(calculationDate)

	basis, err := BasisForVersion(e.cfg.BasisVersion)
	if err != nil {
		return nil, err
	}

	factorReturns, err := e.loadFactorReturns(ctx, basis, date)
	if err != nil {
		return nil, err
	}

	positions, err := e.portfolios.GetPositions(ctx, portfolioID, date)
	if err != nil {
		return nil, fmt.Errorf("factor exposure: %w", err)
	}

	run := &contracts.ExposureRun{
		PortfolioID:     portfolioID,
		CalculationDate: date,
		BasisVersion:    basis.Version,
	}

	// Per-factor aggregation accumulators over qualifying positions
	weightedBeta := make(map[string]float64, len(basis.Factors))
	dollarTotal := make(map[string]float64, len(basis.Factors))
	var qualifyingValue float64
	var qualifying int

	type positionResult struct {
		symbol      string
		marketValue float64
		betas       []float64
		quality     contracts.Quality
	}
	results := make([]positionResult, 0, len(positions))

	for _, pos := range positions {
		close, err := e.prices.GetClose(ctx, pos.Symbol, date)
		if err != nil {
			return nil, fmt.Errorf("factor exposure: %w", err)
		}
		marketValue := pos.SignedQuantity().InexactFloat64() * close * opts.delta(pos.Symbol)

		betas, quality, err := e.regressPosition(ctx, pos.Symbol, date, basis, factorReturns)
		if err != nil {
			return nil, err
		}

		results = append(results, positionResult{
			symbol:      pos.Symbol,
			marketValue: marketValue,
			betas:       betas,
			quality:     quality,
		})

		if quality == contracts.QualityOK {
			qualifyingValue += marketValue
			qualifying++
		}
	}

	for _, res := range results {
		for i, def := range basis.Factors {
			exp := contracts.PositionFactorExposure{
				PortfolioID:     portfolioID,
				Symbol:          res.symbol,
				FactorName:      def.Name,
				CalculationDate: date,
				Quality:         res.quality,
				BasisVersion:    basis.Version,
			}
			if res.quality == contracts.QualityOK {
				exp.Beta = res.betas[i]
				exp.DollarExposure = res.betas[i] * res.marketValue
				dollarTotal[def.Name] += exp.DollarExposure
				if qualifyingValue != 0 {
					weightedBeta[def.Name] += (res.marketValue / qualifyingValue) * res.betas[i]
				}
			}
			run.Positions = append(run.Positions, exp)
		}
	}

	// With no qualifying positions the portfolio betas are zero by
	// construction, not by measurement: carry the flag up so consumers
	// do not read them as real exposure.
	portfolioQuality := contracts.QualityOK
	if qualifying == 0 {
		portfolioQuality = contracts.QualityInsufficientData
	}

	for _, def := range basis.Factors {
		run.Portfolio = append(run.Portfolio, contracts.FactorExposure{
			PortfolioID:     portfolioID,
			FactorName:      def.Name,
			CalculationDate: date,
			Beta:            weightedBeta[def.Name],
			DollarExposure:  dollarTotal[def.Name],
			Quality:         portfolioQuality,
			BasisVersion:    basis.Version,
		})
	}

	if err := e.exposures.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("factor exposure: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"portfolio": portfolioID,
		"date":      date.Format("2006-01-02"),
		"basis":     basis.Version,
		"positions": len(positions),
	}).Info("Factor exposures calculated")

	return run, nil
}

// loadFactorReturns builds the return series for every factor of the
// basis. A factor with no price history at all makes the whole basis
// unavailable: runs always cover the complete factor set or nothing.
func (e *Engine) loadFactorReturns(ctx context.Context, basis Basis, date time.Time) (map[string]marketdata.ReturnSeries, error) {
	from := date.AddDate(0, 0, -2*e.cfg.LookbackDays)

	proxySeries := make(map[string]marketdata.ReturnSeries)
	loadProxy := func(symbol string) (marketdata.ReturnSeries, error) {
		if s, ok := proxySeries[symbol]; ok {
			return s, nil
		}
		prices, err := e.prices.GetPriceSeries(ctx, symbol, from, date)
		if err != nil {
			return nil, fmt.Errorf("factor proxy %s: %w", symbol, err)
		}
		s := marketdata.DailyReturns(prices)
		proxySeries[symbol] = s
		return s, nil
	}

	factorReturns := make(map[string]marketdata.ReturnSeries, len(basis.Factors))
	for _, def := range basis.Factors {
		var series marketdata.ReturnSeries
		if def.IsSpread() {
			long, err := loadProxy(def.LongProxy)
			if err != nil {
				return nil, err
			}
			short, err := loadProxy(def.ShortProxy)
			if err != nil {
				return nil, err
			}
			series = marketdata.Spread(long, short)
		} else {
			s, err := loadProxy(def.Proxy)
			if err != nil {
				return nil, err
			}
			series = s
		}

		if len(series) == 0 {
			return nil, fmt.Errorf("%w: factor %s (basis %s)",
				contracts.ErrFactorBasisUnavailable, def.Name, basis.Version)
		}
		factorReturns[def.Name] = series
	}

	return factorReturns, nil
}

// regressPosition regresses one position's excess returns against the
// factor matrix over the dates present in both the position's history
// and every factor's history.
func (e *Engine) regressPosition(
	ctx context.Context,
	symbol string,
	date time.Time,
	basis Basis,
	factorReturns map[string]marketdata.ReturnSeries,
) ([]float64, contracts.Quality, error) {
	from := date.AddDate(0, 0, -2*e.cfg.LookbackDays)

	prices, err := e.prices.GetPriceSeries(ctx, symbol, from, date)
	if err != nil {
		return nil, "", fmt.Errorf("position %s: %w", symbol, err)
	}
	posReturns := marketdata.DailyReturns(prices)

	series := make([]marketdata.ReturnSeries, 0, len(basis.Factors)+1)
	series = append(series, posReturns)
	for _, def := range basis.Factors {
		series = append(series, factorReturns[def.Name])
	}

	commonDates := marketdata.Tail(marketdata.CommonDates(series...), e.cfg.LookbackDays)
	if len(commonDates) < e.cfg.MinRegressionDays {
		// Not fabricated: zero betas plus the insufficient_data flag
		return make([]float64, len(basis.Factors)), contracts.QualityInsufficientData, nil
	}

	y := make([]float64, len(commonDates))
	columns := make([][]float64, len(basis.Factors))
	for j := range columns {
		columns[j] = make([]float64, len(commonDates))
	}

	for i, d := range commonDates {
		y[i] = posReturns[d] - e.cfg.RiskFreeDaily
		for j, def := range basis.Factors {
			columns[j][i] = factorReturns[def.Name][d]
		}
	}

	betas, err := ridgeBetas(y, columns, e.cfg.RidgeLambda)
	if err != nil {
		return nil, "", fmt.Errorf("position %s regression: %w", symbol, err)
	}

	return betas, contracts.QualityOK, nil
}
