package domain

import "time"

// DateLayout is the wire and cache-key representation of a calendar date.
const DateLayout = "2006-01-02"

// CalendarDate strips the clock part of t, keeping the calendar date as seen
// in t's own location. The result is midnight UTC so that dates compare and
// round-trip through the database unchanged.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TodayIn returns the current calendar date in loc.
func TodayIn(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return CalendarDate(now.In(loc))
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses YYYY-MM-DD into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return CalendarDate(t), nil
}
