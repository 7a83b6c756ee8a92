package marketdata

import (
	"sort"
	"time"

	"github.com/quantrail/riskledger/internal/calendar"
	"github.com/quantrail/riskledger/internal/contracts"
)

// ReturnSeries maps a trading date to that day's simple return
type ReturnSeries map[time.Time]float64

// DailyReturns derives simple daily returns from a close-price series.
// The first bar has no return; bars with a non-positive close are
// skipped rather than producing a bogus return.
func DailyReturns(prices []contracts.Price) ReturnSeries {
	returns := make(ReturnSeries)

	var prevClose float64
	for i, p := range prices {
		d := calendar.Normalize(p.Date)
		if i > 0 && prevClose > 0 && p.Close > 0 {
			returns[d] = p.Close/prevClose - 1
		}
		prevClose = p.Close
	}

	return returns
}

// Spread returns the long-minus-short return series over the dates
// both legs cover.
func Spread(long, short ReturnSeries) ReturnSeries {
	spread := make(ReturnSeries)
	for d, l := range long {
		if s, ok := short[d]; ok {
			spread[d] = l - s
		}
	}
	return spread
}

// CommonDates returns the sorted intersection of the dates present in
// every series. An empty input yields an empty result.
func CommonDates(series ...ReturnSeries) []time.Time {
	if len(series) == 0 {
		return nil
	}

	dates := make([]time.Time, 0, len(series[0]))
	for d := range series[0] {
		inAll := true
		for _, s := range series[1:] {
			if _, ok := s[d]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			dates = append(dates, d)
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Tail returns the last n dates of a sorted date slice
func Tail(dates []time.Time, n int) []time.Time {
	if n >= len(dates) {
		return dates
	}
	return dates[len(dates)-n:]
}
