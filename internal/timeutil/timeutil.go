// Package timeutil resolves calendar questions the scheduling engine keeps
// asking: what day is it, what time is it, how far away is a weekday.
//
// Day names are canonical English weekday names plus the "daily" sentinel.
// Comparisons are case-insensitive; the canonical casing is what gets
// persisted. Weekday ordinals are Sunday-first (Sunday=1 .. Saturday=7).
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DailySentinel is the day selector meaning "every day".
const DailySentinel = "daily"

// dayNames is Sunday-first; index+1 is the weekday ordinal.
var dayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// DateKey returns the calendar date key (local date of t), e.g. "2025-03-01".
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ClockOf formats the time-of-day of t as zero-padded HH:mm.
func ClockOf(t time.Time) string {
	return t.Format("15:04")
}

// DayName returns the canonical day name for t's weekday.
func DayName(t time.Time) string {
	return dayNames[int(t.Weekday())]
}

// CanonicalDay normalizes a day selector: the daily sentinel or one of the
// seven canonical day names. ok is false for anything else.
func CanonicalDay(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, DailySentinel) {
		return DailySentinel, true
	}
	for _, name := range dayNames {
		if strings.EqualFold(s, name) {
			return name, true
		}
	}
	return "", false
}

// IsDay reports whether selector names the given canonical day
// (case-insensitive). The daily sentinel matches every day.
func IsDay(selector, day string) bool {
	if strings.EqualFold(selector, DailySentinel) {
		return true
	}
	return strings.EqualFold(selector, day)
}

// DaysUntil returns how many days from now until the next occurrence of the
// named weekday, in [1,7]. Today's own weekday yields 7, never 0: same-day
// rows are handled by the due-today path, so "next Friday" from a Friday
// means a week out.
func DaysUntil(targetDay string, now time.Time) (int, error) {
	target, ok := dayOrdinal(targetDay)
	if !ok {
		return 0, fmt.Errorf("unknown day name %q", targetDay)
	}
	current := int(now.Weekday()) + 1 // Sunday-first, 1-based
	diff := target - current
	if diff <= 0 {
		diff += 7
	}
	return diff, nil
}

func dayOrdinal(name string) (int, bool) {
	for i, n := range dayNames {
		if strings.EqualFold(name, n) {
			return i + 1, true
		}
	}
	return 0, false
}

// ParseClock parses a strict 24-hour HH:mm string.
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || len(parts[0]) > 2 || len(parts[1]) > 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:mm", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

// NormalizeClock parses s and re-renders it zero-padded ("8:5" becomes
// "08:05").
func NormalizeClock(s string) (string, error) {
	h, m, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// MinutesOfDay converts a parsed HH:mm into minutes since midnight.
func MinutesOfDay(hour, minute int) int {
	return hour*60 + minute
}

// At returns the absolute instant of clock (HH:mm) on the calendar day of
// now, in now's location.
func At(clock string, now time.Time) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := now.Date()
	return time.Date(y, mo, d, h, m, 0, 0, now.Location()), nil
}
