package utils

import (
	"time"
)

// DateLayout is the canonical date format for price and signal data.
const DateLayout = "2006-01-02"

// ParseDate parses a date in the canonical YYYY-MM-DD layout.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders a date in the canonical YYYY-MM-DD layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsWeekend returns true for Saturday and Sunday.
func IsWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// NextTradingDay returns the next weekday after t.
func NextTradingDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for IsWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// TradingDays returns n consecutive weekdays starting at the first
// weekday on or after start.
func TradingDays(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	day := start
	for IsWeekend(day) {
		day = day.AddDate(0, 0, 1)
	}
	for len(days) < n {
		days = append(days, day)
		day = NextTradingDay(day)
	}
	return days
}
