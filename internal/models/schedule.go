// internal/models/schedule.go
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time with minute precision, no date or zone.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// TimeWindow is a half-open [Start, End) wall-clock window. End at or
// before Start means the window wraps past midnight ("22:00"-"07:00").
type TimeWindow struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether t falls inside the window, wrap-aware.
func (w TimeWindow) Contains(t TimeOfDay) bool {
	start, end, cur := w.Start.Minutes(), w.End.Minutes(), t.Minutes()
	if start == end {
		return false
	}
	if start < end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end
}

// DaySchedule is one day's availability. A nil Window with Available set
// means available the whole day.
type DaySchedule struct {
	Available bool        `json:"available"`
	Window    *TimeWindow `json:"window,omitempty"`
}

// WeekSchedule maps each weekday to its availability, indexed by
// time.Weekday (Sunday = 0).
type WeekSchedule [7]DaySchedule

// At reports whether the schedule declares availability at the given
// local time.
func (s WeekSchedule) At(local time.Time) bool {
	day := s[local.Weekday()]
	if !day.Available {
		return false
	}
	if day.Window == nil {
		return true
	}
	return day.Window.Contains(TimeOfDay{Hour: local.Hour(), Minute: local.Minute()})
}

// RawDaySchedule is the persisted per-day shape: availability flag plus
// optional "HH:MM" bounds.
type RawDaySchedule struct {
	Available bool   `json:"available"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

var weekdayKeys = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekSchedule validates a day-keyed map into a WeekSchedule. Days
// absent from the map are unavailable. Unknown day keys or malformed
// time bounds make the whole schedule unparseable; callers treat that as
// "ambiguous" rather than silently defaulting a day.
func ParseWeekSchedule(raw map[string]RawDaySchedule) (*WeekSchedule, error) {
	var s WeekSchedule
	for key, day := range raw {
		wd, ok := weekdayKeys[strings.ToLower(key)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday key %q", key)
		}
		entry := DaySchedule{Available: day.Available}
		if day.From != "" || day.To != "" {
			from, err := ParseTimeOfDay(day.From)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			to, err := ParseTimeOfDay(day.To)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			entry.Window = &TimeWindow{Start: from, End: to}
		}
		s[wd] = entry
	}
	return &s, nil
}

// RawWeekSchedule mirrors the persisted JSON shape for callers that need
// to decode it before parsing.
type RawWeekSchedule = map[string]RawDaySchedule
