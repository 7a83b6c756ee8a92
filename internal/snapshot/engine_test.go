package snapshot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/pkg/config"
	"github.com/quantrail/riskledger/pkg/logger"
)

// In-memory fakes for the repository interfaces

type fakePortfolioRepo struct {
	portfolio *contracts.Portfolio
	positions []contracts.Position
}

func (f *fakePortfolioRepo) GetPortfolio(_ context.Context, id uuid.UUID) (*contracts.Portfolio, error) {
	if f.portfolio == nil || f.portfolio.ID != id {
		return nil, contracts.ErrPortfolioNotFound
	}
	return f.portfolio, nil
}

func (f *fakePortfolioRepo) ListPortfolios(_ context.Context) ([]contracts.Portfolio, error) {
	if f.portfolio == nil {
		return nil, nil
	}
	return []contracts.Portfolio{*f.portfolio}, nil
}

func (f *fakePortfolioRepo) GetPositions(_ context.Context, _ uuid.UUID, _ time.Time) ([]contracts.Position, error) {
	return f.positions, nil
}

type fakeSnapshotRepo struct {
	snapshots map[time.Time]contracts.Snapshot
	upserts   int
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: make(map[time.Time]contracts.Snapshot)}
}

func (f *fakeSnapshotRepo) Upsert(_ context.Context, s *contracts.Snapshot) error {
	f.upserts++
	f.snapshots[s.Date] = *s
	return nil
}

func (f *fakeSnapshotRepo) Get(_ context.Context, _ uuid.UUID, date time.Time) (*contracts.Snapshot, error) {
	s, ok := f.snapshots[date]
	if !ok {
		return nil, contracts.ErrSnapshotNotFound
	}
	return &s, nil
}

func (f *fakeSnapshotRepo) GetLatestBefore(_ context.Context, _ uuid.UUID, date time.Time) (*contracts.Snapshot, error) {
	var latest *contracts.Snapshot
	for d, s := range f.snapshots {
		if d.Before(date) && (latest == nil || d.After(latest.Date)) {
			cp := s
			latest = &cp
		}
	}
	if latest == nil {
		return nil, contracts.ErrSnapshotNotFound
	}
	return latest, nil
}

func (f *fakeSnapshotRepo) History(_ context.Context, _ uuid.UUID, from, to time.Time) ([]contracts.Snapshot, error) {
	out := make([]contracts.Snapshot, 0)
	for d, s := range f.snapshots {
		if !d.Before(from) && !d.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakePrices struct {
	closes map[string]map[time.Time]float64
}

func (f *fakePrices) GetPriceSeries(_ context.Context, _ string, _, _ time.Time) ([]contracts.Price, error) {
	return nil, nil
}

func (f *fakePrices) GetClose(_ context.Context, symbol string, date time.Time) (float64, error) {
	if series, ok := f.closes[symbol]; ok {
		if close, ok := series[date]; ok {
			return close, nil
		}
	}
	return 0, fmt.Errorf("%w: no price for %s", contracts.ErrDataUnavailable, symbol)
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(d int) time.Time {
	return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC)
}

func setup(initialEquity string, closes map[string]map[time.Time]float64) (*Engine, *fakeSnapshotRepo, uuid.UUID) {
	portfolioID := uuid.New()
	pfRepo := &fakePortfolioRepo{
		portfolio: &contracts.Portfolio{
			ID:            portfolioID,
			Name:          "growth",
			InitialEquity: dec(initialEquity),
		},
		positions: []contracts.Position{
			{PortfolioID: portfolioID, Symbol: "SPY", Quantity: dec("1000"), Side: contracts.SideLong},
		},
	}
	snapRepo := newFakeSnapshotRepo()
	engine := NewEngine(pfRepo, snapRepo, &fakePrices{closes: closes}, testLogger())
	return engine, snapRepo, portfolioID
}

func TestAdvance_FirstSnapshotSeedsFromInitialEquity(t *testing.T) {
	engine, _, portfolioID := setup("485000", map[string]map[time.Time]float64{
		"SPY": {date(27): 600.50},
	})

	s, err := engine.Advance(context.Background(), portfolioID, date(27))
	require.NoError(t, err)

	assert.True(t, s.EquityBalance.Equal(dec("485000")), "equity = %s", s.EquityBalance)
	assert.True(t, s.TotalValue.Equal(dec("600500")), "total = %s", s.TotalValue)
	assert.Nil(t, s.DailyPnL, "first snapshot has no daily P&L")
}

func TestAdvance_ContiguousDayAppliesPnL(t *testing.T) {
	engine, snapRepo, portfolioID := setup("485000", map[string]map[time.Time]float64{
		"SPY": {date(27): 610.12},
	})

	// Snapshot exists for the immediately preceding trading day
	// (Wed Aug 26 before Thu Aug 27).
	snapRepo.snapshots[date(26)] = contracts.Snapshot{
		PortfolioID:   portfolioID,
		Date:          date(26),
		TotalValue:    dec("600000"),
		EquityBalance: dec("540000"),
	}

	s, err := engine.Advance(context.Background(), portfolioID, date(27))
	require.NoError(t, err)

	require.NotNil(t, s.DailyPnL)
	assert.True(t, s.DailyPnL.Equal(dec("10120")), "pnl = %s", s.DailyPnL)
	assert.True(t, s.EquityBalance.Equal(dec("550120")), "equity = %s", s.EquityBalance)
}

func TestAdvance_GapCarriesEquityForwardFlat(t *testing.T) {
	// The documented incident: equity had been rolled to $544,292.41 by
	// day 29; the next runs were missed; the resumed run must carry
	// $544,292.41 forward, not reset to the $485,000 initial equity.
	engine, snapRepo, portfolioID := setup("485000", map[string]map[time.Time]float64{
		"SPY": {date(27): 610.12},
	})

	// Last snapshot is Fri Aug 21; Mon 24 - Wed 26 are missing.
	snapRepo.snapshots[date(21)] = contracts.Snapshot{
		PortfolioID:   portfolioID,
		Date:          date(21),
		TotalValue:    dec("602845.00"),
		EquityBalance: dec("544292.41"),
	}

	s, err := engine.Advance(context.Background(), portfolioID, date(27))
	require.NoError(t, err)

	assert.True(t, s.EquityBalance.Equal(dec("544292.41")), "equity = %s", s.EquityBalance)
	assert.False(t, s.EquityBalance.Equal(dec("485000")), "must never reseed from initial equity")
	assert.Nil(t, s.DailyPnL, "single-day P&L is unknowable across a gap")
}

func TestAdvance_Idempotent(t *testing.T) {
	engine, snapRepo, portfolioID := setup("485000", map[string]map[time.Time]float64{
		"SPY": {date(27): 610.12},
	})

	snapRepo.snapshots[date(26)] = contracts.Snapshot{
		PortfolioID:   portfolioID,
		Date:          date(26),
		TotalValue:    dec("600000"),
		EquityBalance: dec("540000"),
	}

	first, err := engine.Advance(context.Background(), portfolioID, date(27))
	require.NoError(t, err)

	second, err := engine.Advance(context.Background(), portfolioID, date(27))
	require.NoError(t, err)

	assert.True(t, first.EquityBalance.Equal(second.EquityBalance), "P&L must not double-apply")
	assert.True(t, first.TotalValue.Equal(second.TotalValue))
	require.NotNil(t, second.DailyPnL)
	assert.True(t, first.DailyPnL.Equal(*second.DailyPnL))
}

func TestAdvance_MissingPriceIsDataUnavailable(t *testing.T) {
	engine, snapRepo, portfolioID := setup("485000", map[string]map[time.Time]float64{
		"SPY": {}, // no prices at all
	})

	_, err := engine.Advance(context.Background(), portfolioID, date(27))
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrDataUnavailable))
	assert.Zero(t, snapRepo.upserts, "no snapshot may be written for an unpriced day")
}

func TestAdvance_RejectsNonTradingDay(t *testing.T) {
	engine, _, portfolioID := setup("485000", nil)

	// Saturday
	_, err := engine.Advance(context.Background(), portfolioID, date(29))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotTradingDay))
}

func TestAdvance_ShortPositionsReduceTotalValue(t *testing.T) {
	portfolioID := uuid.New()
	pfRepo := &fakePortfolioRepo{
		portfolio: &contracts.Portfolio{ID: portfolioID, InitialEquity: dec("100000")},
		positions: []contracts.Position{
			{PortfolioID: portfolioID, Symbol: "SPY", Quantity: dec("100"), Side: contracts.SideLong},
			{PortfolioID: portfolioID, Symbol: "IWM", Quantity: dec("50"), Side: contracts.SideShort},
		},
	}
	engine := NewEngine(pfRepo, newFakeSnapshotRepo(), &fakePrices{closes: map[string]map[time.Time]float64{
		"SPY": {date(27): 600},
		"IWM": {date(27): 200},
	}}, testLogger())

	s, err := engine.Advance(context.Background(), portfolioID, date(27))
	require.NoError(t, err)

	// 100*600 - 50*200
	assert.True(t, s.TotalValue.Equal(dec("50000")), "total = %s", s.TotalValue)
}
