package reports

import (
	"errors"
	"time"
)

var ErrBadDate = errors.New("dates must be RFC3339 or YYYY-MM-DD")

// ParseBound parses a query date. A bare date used as an upper bound covers
// the whole day.
func ParseBound(s string, upper bool, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, ErrBadDate
	}
	if upper {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

// Presets offered by the sales history page, in display order.
var Presets = []string{"Today", "This Week", "This Month", "Last 3 Months", "This Year", "All"}

// PresetRange resolves a preset to [start, end]. "All" and unknown presets
// return zero times, meaning unbounded.
func PresetRange(preset string, now time.Time) (start, end time.Time) {
	today := startOfDay(now)
	endOfDay := func(t time.Time) time.Time { return t.AddDate(0, 0, 1).Add(-time.Nanosecond) }

	switch preset {
	case "Today":
		return today, endOfDay(today)
	case "This Week":
		first := today.AddDate(0, 0, -int(today.Weekday()))
		return first, endOfDay(first.AddDate(0, 0, 6))
	case "This Month":
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(0, 1, 0).Add(-time.Nanosecond)
	case "Last 3 Months":
		return today.AddDate(0, -3, 0), now
	case "This Year":
		first := time.Date(today.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(1, 0, 0).Add(-time.Nanosecond)
	}
	return time.Time{}, time.Time{}
}
