package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/riskledger/internal/contracts"
)

func day(d int) time.Time {
	return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC)
}

func bars(closes map[int]float64) []contracts.Price {
	prices := make([]contracts.Price, 0, len(closes))
	days := make([]int, 0, len(closes))
	for d := range closes {
		days = append(days, d)
	}
	// map iteration order is random; sort by day
	for i := 0; i < len(days); i++ {
		for j := i + 1; j < len(days); j++ {
			if days[j] < days[i] {
				days[i], days[j] = days[j], days[i]
			}
		}
	}
	for _, d := range days {
		prices = append(prices, contracts.Price{Symbol: "TEST", Date: day(d), Close: closes[d]})
	}
	return prices
}

func TestDailyReturns(t *testing.T) {
	prices := bars(map[int]float64{3: 100, 4: 102, 5: 99.96})

	returns := DailyReturns(prices)
	require.Len(t, returns, 2)

	assert.InDelta(t, 0.02, returns[day(4)], 1e-9)
	assert.InDelta(t, -0.02, returns[day(5)], 1e-9)

	// First bar has no return
	_, ok := returns[day(3)]
	assert.False(t, ok)
}

func TestDailyReturns_SkipsBadCloses(t *testing.T) {
	prices := bars(map[int]float64{3: 100, 4: 0, 5: 99})

	returns := DailyReturns(prices)

	// Day 4 has a zero close: no return for day 4, and day 5 cannot be
	// computed off a zero previous close either.
	assert.Empty(t, returns)
}

func TestSpread(t *testing.T) {
	long := ReturnSeries{day(4): 0.02, day(5): 0.01, day(6): 0.03}
	short := ReturnSeries{day(4): 0.01, day(5): 0.02}

	spread := Spread(long, short)
	require.Len(t, spread, 2)
	assert.InDelta(t, 0.01, spread[day(4)], 1e-12)
	assert.InDelta(t, -0.01, spread[day(5)], 1e-12)
}

func TestCommonDates(t *testing.T) {
	a := ReturnSeries{day(3): 1, day(4): 1, day(5): 1}
	b := ReturnSeries{day(4): 1, day(5): 1, day(6): 1}
	c := ReturnSeries{day(4): 1, day(5): 1}

	dates := CommonDates(a, b, c)
	require.Len(t, dates, 2)
	assert.Equal(t, day(4), dates[0])
	assert.Equal(t, day(5), dates[1])
}

func TestCommonDates_Empty(t *testing.T) {
	assert.Empty(t, CommonDates())
	assert.Empty(t, CommonDates(ReturnSeries{}, ReturnSeries{day(4): 1}))
}

func TestTail(t *testing.T) {
	dates := []time.Time{day(3), day(4), day(5)}

	assert.Len(t, Tail(dates, 2), 2)
	assert.Equal(t, day(4), Tail(dates, 2)[0])
	assert.Len(t, Tail(dates, 10), 3)
}
