package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Trigger computes when a job fires next.
type Trigger interface {
	// Next returns the first fire time strictly after after.
	Next(after time.Time) time.Time
	String() string
}

type dailyTrigger struct {
	hour, minute int
	loc          *time.Location
}

// DailyAt fires once a day at hour:minute wall-clock time in loc. On days
// where that wall time does not exist (DST gap) it fires at the normalized
// instant time.Date produces.
func DailyAt(hour, minute int, loc *time.Location) Trigger {
	if loc == nil {
		loc = time.UTC
	}
	return dailyTrigger{hour: hour, minute: minute, loc: loc}
}

func (d dailyTrigger) Next(after time.Time) time.Time {
	local := after.In(d.loc)
	y, m, day := local.Date()
	candidate := time.Date(y, m, day, d.hour, d.minute, 0, 0, d.loc)
	if !candidate.After(after) {
		candidate = time.Date(y, m, day+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return candidate
}

func (d dailyTrigger) String() string {
	return fmt.Sprintf("daily at %02d:%02d %s", d.hour, d.minute, d.loc)
}

type intervalTrigger struct {
	every time.Duration
}

// Every fires at a fixed interval measured from the previous fire.
func Every(interval time.Duration) Trigger {
	if interval <= 0 {
		interval = time.Minute
	}
	return intervalTrigger{every: interval}
}

func (i intervalTrigger) Next(after time.Time) time.Time {
	return after.Add(i.every)
}

func (i intervalTrigger) String() string {
	return "every " + i.every.String()
}

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time of day %q must be HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
