package calendar

import "time"

// Pure trading-calendar functions over US equity market days: weekends
// plus the NYSE holiday schedule. Dates are compared at day
// granularity in UTC; callers normalize with Normalize.

// Normalize truncates a time to its UTC calendar date
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsTradingDay reports whether the date is a US equity trading day
func IsTradingDay(t time.Time) bool {
	d := Normalize(t)
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(d)
}

// PrevTradingDay returns the nearest trading day strictly before t
func PrevTradingDay(t time.Time) time.Time {
	d := Normalize(t).AddDate(0, 0, -1)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// NextTradingDay returns the nearest trading day strictly after t
func NextTradingDay(t time.Time) time.Time {
	d := Normalize(t).AddDate(0, 0, 1)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// TradingDaysInRange returns all trading days in [from, to], ascending
func TradingDaysInRange(from, to time.Time) []time.Time {
	days := make([]time.Time, 0)
	for d := Normalize(from); !d.After(Normalize(to)); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// isHoliday reports whether the date falls on a NYSE holiday,
// including observed shifts (Saturday holidays observed Friday, Sunday
// holidays observed Monday).
func isHoliday(d time.Time) bool {
	y := d.Year()
	for _, h := range holidays(y) {
		if observed(h).Equal(d) {
			return true
		}
	}
	return false
}

// holidays returns the fixed and floating NYSE holidays for a year
func holidays(year int) []time.Time {
	list := []time.Time{
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3),         // MLK Day
		nthWeekday(year, time.February, time.Monday, 3),        // Presidents' Day
		goodFriday(year),                                         // Good Friday
		lastWeekday(year, time.May, time.Monday),                 // Memorial Day
		time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC),      // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),         // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4),        // Thanksgiving
		time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC), // Christmas
	}
	// Juneteenth became a market holiday in 2022
	if year >= 2022 {
		list = append(list, time.Date(year, time.June, 19, 0, 0, 0, 0, time.UTC))
	}
	return list
}

// observed shifts weekend holidays to the adjacent weekday
func observed(h time.Time) time.Time {
	switch h.Weekday() {
	case time.Saturday:
		return h.AddDate(0, 0, -1)
	case time.Sunday:
		return h.AddDate(0, 0, 1)
	default:
		return h
	}
}

// nthWeekday returns the nth weekday of a month (1-based)
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 7*(n-1))
}

// lastWeekday returns the last weekday of a month
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// goodFriday returns Good Friday (two days before Easter Sunday,
// anonymous Gregorian computus).
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	e := (b - b/4 - (8*b+13)/25 + 19*a + 15) % 30
	f := e - (e/28)*(1-(29/(e+1))*((21-a)/11))
	g := year + year/4 + f + 2 - b + b/4
	h := g % 7
	month := 3 + (f-h+40)/44
	day := f - h + 28 - 31*(month/4)
	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return easter.AddDate(0, 0, -2)
}
