package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time in minutes since midnight
type TimeOfDay int

// ParseTimeOfDay parses a 24-hour "HH:MM" value
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", value)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// TimeOfDayOf extracts the local wall-clock time of t
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// SilentWindow is a daily [From, To) interval that may wrap midnight
type SilentWindow struct {
	From TimeOfDay
	To   TimeOfDay
}

// Contains reports whether t falls inside the window
func (w SilentWindow) Contains(t time.Time) bool {
	now := TimeOfDayOf(t)
	if w.From < w.To {
		return w.From <= now && now < w.To
	}
	// Wraps midnight, e.g. 22:00-08:00. From == To covers the whole day.
	return now >= w.From || now < w.To
}

func (w SilentWindow) String() string {
	return w.From.String() + "-" + w.To.String()
}
