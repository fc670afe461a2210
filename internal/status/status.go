// Package status derives the human-facing state of a schedule occurrence
// at a given instant. Nothing here is persisted and nothing here mutates:
// two calls with the same inputs return the same value.
package status

import (
	"strconv"
	"time"

	"medremind/internal/model"
	"medremind/internal/timeutil"
)

// Kind enumerates the display states.
type Kind int

const (
	Taken Kind = iota
	Missed
	Late
	DueNow
	MinutesLeft
	HoursLeft
	Tomorrow
	DaysLeft
)

// Display windows, in minutes relative to the scheduled time.
const (
	dueNowWindow = 15
	minutesInDay = 24 * 60
)

// Display is a derived, never-stored status. N carries the quantity for
// MinutesLeft, HoursLeft and DaysLeft; it is zero otherwise.
type Display struct {
	Kind Kind
	N    int
}

func (d Display) String() string {
	switch d.Kind {
	case Taken:
		return "TAKEN"
	case Missed:
		return "MISSED"
	case Late:
		return "LATE"
	case DueNow:
		return "DUE NOW"
	case MinutesLeft:
		return strconv.Itoa(d.N) + " MINUTES LEFT"
	case HoursLeft:
		return strconv.Itoa(d.N) + " HOURS LEFT"
	case Tomorrow:
		return "TOMORROW"
	case DaysLeft:
		return strconv.Itoa(d.N) + " DAYS LEFT"
	default:
		return "UNKNOWN"
	}
}

// Of computes the display status of an occurrence that is due today.
// Persisted taken/missed are terminal for the day; a pending occurrence is
// classified by the signed distance between its scheduled time and now,
// compared within the same day (no wrapping).
func Of(s *model.Schedule, now time.Time) Display {
	switch s.Status {
	case model.StatusTaken:
		return Display{Kind: Taken}
	case model.StatusMissed:
		return Display{Kind: Missed}
	}

	diff := clockMinutes(s.Clock) - nowMinutes(now)
	switch {
	case diff < -dueNowWindow:
		return Display{Kind: Late}
	case diff <= dueNowWindow:
		return Display{Kind: DueNow}
	case diff < 60:
		return Display{Kind: MinutesLeft, N: diff}
	case diff < minutesInDay:
		return Display{Kind: HoursLeft, N: diff / 60}
	default:
		// Same-day rows should never be a day out; keep the branch anyway.
		return Display{Kind: Tomorrow}
	}
}

// ForFutureDay computes the display status of a weekly occurrence that is
// not due today. It never consults the persisted status.
func ForFutureDay(day string, now time.Time) (Display, error) {
	n, err := timeutil.DaysUntil(day, now)
	if err != nil {
		return Display{}, err
	}
	return Display{Kind: DaysLeft, N: n}, nil
}

// ElapsedMinutes returns how many minutes have passed since the scheduled
// time of day. A negative distance wraps by a day: right after midnight a
// late-evening schedule counts as a few hours elapsed, not minus twenty.
func ElapsedMinutes(clock string, now time.Time) int {
	elapsed := nowMinutes(now) - clockMinutes(clock)
	if elapsed < 0 {
		elapsed += minutesInDay
	}
	return elapsed
}

func clockMinutes(clock string) int {
	h, m, err := timeutil.ParseClock(clock)
	if err != nil {
		return 0
	}
	return timeutil.MinutesOfDay(h, m)
}

func nowMinutes(now time.Time) int {
	return timeutil.MinutesOfDay(now.Hour(), now.Minute())
}
