package stress

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/pkg/config"
	"github.com/quantrail/riskledger/pkg/logger"
)

type fakeExposureRepo struct {
	runs map[uuid.UUID]*contracts.ExposureRun
}

func (f *fakeExposureRepo) SaveRun(ctx context.Context, run *contracts.ExposureRun) error {
	if f.runs == nil {
		f.runs = make(map[uuid.UUID]*contracts.ExposureRun)
	}
	f.runs[run.PortfolioID] = run
	return nil
}

func (f *fakeExposureRepo) GetRun(ctx context.Context, portfolioID uuid.UUID, date time.Time) (*contracts.ExposureRun, error) {
	return f.GetLatestRun(ctx, portfolioID)
}

func (f *fakeExposureRepo) GetLatestRun(ctx context.Context, portfolioID uuid.UUID) (*contracts.ExposureRun, error) {
	run, ok := f.runs[portfolioID]
	if !ok {
		return nil, contracts.ErrNoExposures
	}
	return run, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func traditionalRun(pid uuid.UUID) *contracts.ExposureRun {
	date := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	return &contracts.ExposureRun{
		PortfolioID:     pid,
		CalculationDate: date,
		BasisVersion:    "traditional-v1",
		Portfolio: []contracts.FactorExposure{
			{PortfolioID: pid, FactorName: "MKT", CalculationDate: date, Beta: 1.1, DollarExposure: 550000, Quality: contracts.QualityOK, BasisVersion: "traditional-v1"},
			{PortfolioID: pid, FactorName: "VALUE", CalculationDate: date, Beta: 0.4, DollarExposure: 200000, Quality: contracts.QualityOK, BasisVersion: "traditional-v1"},
			{PortfolioID: pid, FactorName: "GROWTH", CalculationDate: date, Beta: -0.2, DollarExposure: -100000, Quality: contracts.QualityOK, BasisVersion: "traditional-v1"},
		},
	}
}

func spreadRun(pid uuid.UUID) *contracts.ExposureRun {
	date := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	return &contracts.ExposureRun{
		PortfolioID:     pid,
		CalculationDate: date,
		BasisVersion:    "spread-v1",
		Portfolio: []contracts.FactorExposure{
			{PortfolioID: pid, FactorName: "VALUE_GROWTH_SPREAD", CalculationDate: date, Beta: 0.3, DollarExposure: 150000, Quality: contracts.QualityOK, BasisVersion: "spread-v1"},
			{PortfolioID: pid, FactorName: "SIZE_SPREAD", CalculationDate: date, Beta: -0.1, DollarExposure: -50000, Quality: contracts.QualityOK, BasisVersion: "spread-v1"},
			{PortfolioID: pid, FactorName: "MOMENTUM_SPREAD", CalculationDate: date, Beta: 0.2, DollarExposure: 100000, Quality: contracts.QualityOK, BasisVersion: "spread-v1"},
		},
	}
}

func TestApplyScenarioMarketCrash(t *testing.T) {
	pid := uuid.New()
	repo := &fakeExposureRepo{runs: map[uuid.UUID]*contracts.ExposureRun{pid: traditionalRun(pid)}}
	engine := NewEngine(repo, testLogger())

	result, err := engine.ApplyNamed(context.Background(), pid, "market_crash")
	require.NoError(t, err)

	// -20% on $550,000 of market exposure
	assert.InDelta(t, -110000.0, result.ExpectedPnL, 1e-9)
	require.Len(t, result.Contributions, 1)
	c := result.Contributions[0]
	assert.True(t, c.Available)
	assert.Equal(t, "MKT", c.FactorName)
	assert.InDelta(t, -110000.0, c.ExpectedPnL, 1e-9)
	assert.Equal(t, "traditional-v1", result.BasisVersion)
}

func TestApplyScenarioMultiShockTotal(t *testing.T) {
	pid := uuid.New()
	repo := &fakeExposureRepo{runs: map[uuid.UUID]*contracts.ExposureRun{pid: traditionalRun(pid)}}
	engine := NewEngine(repo, testLogger())

	result, err := engine.ApplyNamed(context.Background(), pid, "value_rotation")
	require.NoError(t, err)

	// Value +5% on $200k, Growth -5% on -$100k
	assert.InDelta(t, 200000*0.05+(-100000)*(-0.05), result.ExpectedPnL, 1e-9)

	var sum float64
	for _, c := range result.Contributions {
		require.True(t, c.Available)
		sum += c.ExpectedPnL
	}
	assert.InDelta(t, result.ExpectedPnL, sum, 1e-9)
}

func TestApplyScenarioLabelUnavailable(t *testing.T) {
	pid := uuid.New()
	repo := &fakeExposureRepo{runs: map[uuid.UUID]*contracts.ExposureRun{pid: spreadRun(pid)}}
	engine := NewEngine(repo, testLogger())

	// The spread basis has no market factor: the Market shock must come
	// back unavailable and the Momentum shock must still contribute.
	scenario := Scenario{
		Name: "mixed",
		Shocks: map[string]float64{
			"Market":   -0.20,
			"Momentum": -0.10,
		},
	}
	result, err := engine.ApplyScenario(context.Background(), pid, scenario)
	require.NoError(t, err)

	require.Len(t, result.Contributions, 2)

	byLabel := make(map[string]Contribution)
	for _, c := range result.Contributions {
		byLabel[c.Label] = c
	}

	market := byLabel["Market"]
	assert.False(t, market.Available)
	assert.NotEmpty(t, market.Reason)
	assert.Zero(t, market.ExpectedPnL)

	momentum := byLabel["Momentum"]
	assert.True(t, momentum.Available)
	assert.Equal(t, "MOMENTUM_SPREAD", momentum.FactorName)

	// Total excludes the unavailable contribution entirely
	assert.InDelta(t, 100000*-0.10, result.ExpectedPnL, 1e-9)
}

func TestApplyScenarioSpreadAliases(t *testing.T) {
	pid := uuid.New()
	repo := &fakeExposureRepo{runs: map[uuid.UUID]*contracts.ExposureRun{pid: spreadRun(pid)}}
	engine := NewEngine(repo, testLogger())

	// "Value" resolves to the spread factor when the plain VALUE factor
	// is not in the stored basis.
	result, err := engine.ApplyScenario(context.Background(), pid, Scenario{
		Name:   "value_up",
		Shocks: map[string]float64{"Value": 0.05},
	})
	require.NoError(t, err)
	require.Len(t, result.Contributions, 1)
	assert.Equal(t, "VALUE_GROWTH_SPREAD", result.Contributions[0].FactorName)
	assert.InDelta(t, 150000*0.05, result.ExpectedPnL, 1e-9)
}

func insufficientRun(pid uuid.UUID) *contracts.ExposureRun {
	run := traditionalRun(pid)
	for i := range run.Portfolio {
		run.Portfolio[i].Beta = 0
		run.Portfolio[i].DollarExposure = 0
		run.Portfolio[i].Quality = contracts.QualityInsufficientData
	}
	return run
}

func TestApplyScenarioInsufficientDataFactor(t *testing.T) {
	pid := uuid.New()
	repo := &fakeExposureRepo{runs: map[uuid.UUID]*contracts.ExposureRun{pid: insufficientRun(pid)}}
	engine := NewEngine(repo, testLogger())

	// Every factor in the run is flagged insufficient_data: the shock
	// resolves to a factor name but must come back unavailable, not as
	// a zero-P&L hit.
	result, err := engine.ApplyNamed(context.Background(), pid, "market_crash")
	require.NoError(t, err)

	require.Len(t, result.Contributions, 1)
	c := result.Contributions[0]
	assert.False(t, c.Available)
	assert.Equal(t, "MKT", c.FactorName)
	assert.Contains(t, c.Reason, "insufficient_data")
	assert.Zero(t, c.ExpectedPnL)
	assert.Zero(t, result.ExpectedPnL)
}

func TestApplyScenarioMixedQuality(t *testing.T) {
	pid := uuid.New()
	run := traditionalRun(pid)
	run.Portfolio[0].Quality = contracts.QualityInsufficientData
	run.Portfolio[0].Beta = 0
	run.Portfolio[0].DollarExposure = 0
	repo := &fakeExposureRepo{runs: map[uuid.UUID]*contracts.ExposureRun{pid: run}}
	engine := NewEngine(repo, testLogger())

	result, err := engine.ApplyScenario(context.Background(), pid, Scenario{
		Name: "mixed_quality",
		Shocks: map[string]float64{
			"Market": -0.20,
			"Value":  0.05,
		},
	})
	require.NoError(t, err)

	byLabel := make(map[string]Contribution)
	for _, c := range result.Contributions {
		byLabel[c.Label] = c
	}

	assert.False(t, byLabel["Market"].Available)
	assert.True(t, byLabel["Value"].Available)

	// Only the healthy factor contributes to the total
	assert.InDelta(t, 200000*0.05, result.ExpectedPnL, 1e-9)
}

func TestApplyScenarioDirectFactorName(t *testing.T) {
	pid := uuid.New()
	repo := &fakeExposureRepo{runs: map[uuid.UUID]*contracts.ExposureRun{pid: traditionalRun(pid)}}
	engine := NewEngine(repo, testLogger())

	result, err := engine.ApplyScenario(context.Background(), pid, Scenario{
		Name:   "raw",
		Shocks: map[string]float64{"GROWTH": 0.10},
	})
	require.NoError(t, err)
	require.Len(t, result.Contributions, 1)
	assert.Equal(t, "GROWTH", result.Contributions[0].FactorName)
	assert.InDelta(t, -10000.0, result.ExpectedPnL, 1e-9)
}

func TestApplyScenarioNoExposures(t *testing.T) {
	repo := &fakeExposureRepo{}
	engine := NewEngine(repo, testLogger())

	_, err := engine.ApplyNamed(context.Background(), uuid.New(), "market_crash")
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrNoExposures)
}

func TestApplyNamedUnknownScenario(t *testing.T) {
	engine := NewEngine(&fakeExposureRepo{}, testLogger())
	_, err := engine.ApplyNamed(context.Background(), uuid.New(), "nonexistent")
	require.Error(t, err)
}

func TestNamedScenarioLibrary(t *testing.T) {
	s, ok := NamedScenario("MARKET_CRASH")
	require.True(t, ok)
	assert.Equal(t, "market_crash", s.Name)

	_, ok = NamedScenario("unknown")
	assert.False(t, ok)

	assert.NotEmpty(t, ScenarioNames())
}
