package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantrail/riskledger/internal/calendar"
	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/pkg/logger"
)

// ErrNotTradingDay is returned when Advance is invoked for a
// non-trading date. Callers gate on the calendar; this is a permanent
// condition, not a retry candidate.
var ErrNotTradingDay = errors.New("calculation date is not a trading day")

// Engine rolls the equity ledger forward one day at a time.
//
// The equity balance on day D is the equity of the most recent prior
// snapshot plus D's P&L when that P&L is known. The prior snapshot may
// be arbitrarily far back: once any snapshot exists the engine never
// falls back to the portfolio's initial equity, no matter how long the
// gap.
type Engine struct {
	portfolios contracts.PortfolioRepository
	snapshots  contracts.SnapshotRepository
	prices     contracts.PriceReader
	logger     *logger.Logger
}

// NewEngine creates a rollforward engine
func NewEngine(
	portfolios contracts.PortfolioRepository,
	snapshots contracts.SnapshotRepository,
	prices contracts.PriceReader,
	log *logger.Logger,
) *Engine {
	return &Engine{
		portfolios: portfolios,
		snapshots:  snapshots,
		prices:     prices,
		logger:     log,
	}
}

// Advance computes and persists the snapshot for calculationDate.
//
// Re-running for a date that already has a snapshot recomputes from
// the same inputs and overwrites; daily P&L is never double-applied.
// When the day's valuation cannot be priced the engine returns
// ErrDataUnavailable and writes nothing: the date stays a gap that a
// later run rolls across.
func (e *Engine) Advance(ctx context.Context, portfolioID uuid.UUID, calculationDate time.Time) (*contracts.Snapshot, error) {
	date := calendar.Normalize(calculationDate)
	if !calendar.IsTradingDay(date) {
		return nil, fmt.Errorf("%w: %s", ErrNotTradingDay, date.Format("2006-01-02"))
	}

	pf, err := e.portfolios.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("rollforward: %w", err)
	}

	totalValue, err := e.valuePositions(ctx, portfolioID, date)
	if err != nil {
		return nil, fmt.Errorf("rollforward valuation: %w", err)
	}

	prev, err := e.snapshots.GetLatestBefore(ctx, portfolioID, date)
	if err != nil && !errors.Is(err, contracts.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("rollforward: %w", err)
	}

	s := &contracts.Snapshot{
		PortfolioID: portfolioID,
		Date:        date,
		TotalValue:  totalValue,
	}

	switch {
	case prev == nil:
		// First snapshot ever: seed from the portfolio's immutable
		// initial equity, exactly once. The day's P&L is unknown.
		s.EquityBalance = pf.InitialEquity

	case prev.Date.Equal(calendar.PrevTradingDay(date)):
		// Contiguous: the day's P&L is the change in total value since
		// the immediately preceding trading day.
		pnl := totalValue.Sub(prev.TotalValue)
		s.DailyPnL = &pnl
		s.EquityBalance = prev.EquityBalance.Add(pnl)

	default:
		// Gap: the single-day P&L is unknowable across missing days.
		// Equity carries forward flat; daily_pnl stays null, never a
		// coerced zero.
		s.EquityBalance = prev.EquityBalance
	}

	if err := e.snapshots.Upsert(ctx, s); err != nil {
		return nil, fmt.Errorf("rollforward: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"portfolio":      portfolioID,
		"date":           date.Format("2006-01-02"),
		"total_value":    s.TotalValue,
		"equity_balance": s.EquityBalance,
		"pnl_known":      s.DailyPnL != nil,
	}).Info("Snapshot rolled forward")

	return s, nil
}

// valuePositions marks every position to market at the date's close.
// Any missing price makes the whole valuation unavailable.
func (e *Engine) valuePositions(ctx context.Context, portfolioID uuid.UUID, date time.Time) (decimal.Decimal, error) {
	positions, err := e.portfolios.GetPositions(ctx, portfolioID, date)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, pos := range positions {
		close, err := e.prices.GetClose(ctx, pos.Symbol, date)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(pos.SignedQuantity().Mul(decimal.NewFromFloat(close)))
	}

	return total.Round(2), nil
}
