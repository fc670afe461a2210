package model

import (
	"fmt"
	"time"

	"medremind/internal/timeutil"
)

// Status is the persisted state of a schedule occurrence. It resets to
// pending once per calendar day.
type Status int

const (
	StatusPending Status = 0
	StatusTaken   Status = 1
	StatusMissed  Status = 2
)

func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusMissed
}

func (s Status) String() string {
	switch s {
	case StatusTaken:
		return "taken"
	case StatusMissed:
		return "missed"
	case StatusPending:
		return "pending"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Schedule is one occurrence of taking a medication, identified by
// (medication, day selector, time of day).
//
// Day is the daily sentinel or a canonical weekday name; Clock is a
// zero-padded 24h HH:mm. TakenAt is set when the occurrence transitions
// into taken and cleared only by the daily reset. LastReset records the
// calendar date key of the last reset sweep that touched this row.
type Schedule struct {
	ID           int64
	MedicationID int64
	Day          string
	Clock        string
	Status       Status
	Note         string
	TakenAt      *time.Time
	LastReset    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Normalize validates the occurrence and rewrites Day and Clock into their
// canonical forms. It must be called before any write; it never touches
// storage.
func (s *Schedule) Normalize() error {
	if s.MedicationID <= 0 {
		return &ValidationError{Field: "medication_id", Reason: "must be positive"}
	}
	day, ok := timeutil.CanonicalDay(s.Day)
	if !ok {
		return &ValidationError{Field: "day", Reason: fmt.Sprintf("unknown day selector %q", s.Day)}
	}
	clock, err := timeutil.NormalizeClock(s.Clock)
	if err != nil {
		return &ValidationError{Field: "clock", Reason: err.Error()}
	}
	if !s.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("out of range: %d", int(s.Status))}
	}
	s.Day = day
	s.Clock = clock
	return nil
}

// DueOn reports whether the occurrence is due on the named day.
func (s *Schedule) DueOn(day string) bool {
	return timeutil.IsDay(s.Day, day)
}

// ScheduleView is a schedule occurrence joined with the display fields of
// its medication, composed at the query boundary.
type ScheduleView struct {
	Schedule
	MedicationName string
	MedicationKind string
	Dose           string
	IntakeRule     string
}

// StatusCounts aggregates occurrence rows of active medications by
// persisted status.
type StatusCounts struct {
	Total   int
	Taken   int
	Pending int
	Missed  int
}
