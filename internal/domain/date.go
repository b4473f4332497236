package domain

import (
	"regexp"
	"time"
)

// DateLayout is the canonical flight-date format and the FlightQuota key.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDate accepts only canonical, calendar-valid dates.
func ParseDate(s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, Validation("invalid date format %q, expected YYYY-MM-DD", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, Validation("invalid calendar date %q", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// MonthDates lists every calendar day of the given month.
func MonthDates(year int, month time.Month) ([]string, error) {
	if year < 1970 || year > 9999 {
		return nil, Validation("invalid year %d", year)
	}
	if month < time.January || month > time.December {
		return nil, Validation("invalid month %d", int(month))
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	dates := make([]string, 0, days)
	for d := 0; d < days; d++ {
		dates = append(dates, FormatDate(first.AddDate(0, 0, d)))
	}
	return dates, nil
}
