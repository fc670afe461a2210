// Package model holds the persisted entities of the reminder engine and
// their write-time validation.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Schedule kinds a medication can carry.
const (
	ScheduleKindDaily  = "daily"
	ScheduleKindWeekly = "weekly"
)

// Low-stock thresholds, sized by medication form.
const (
	lowStockTablets = 3
	lowStockMg      = 500
)

// Medication is one tracked medication. Quantity is the remaining stock in
// units of the medication's form; it never goes negative and is decremented
// by exactly one when an occurrence transitions into taken.
type Medication struct {
	ID           int64
	Name         string
	Kind         string // form, e.g. "tablet", "syrup 100mg"
	Dose         string
	IntakeRule   string // free text, e.g. "after meals"
	Quantity     int
	ScheduleKind string // ScheduleKindDaily or ScheduleKindWeekly
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the write-time invariants.
func (m *Medication) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if m.Quantity < 0 {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	switch m.ScheduleKind {
	case ScheduleKindDaily, ScheduleKindWeekly:
	default:
		return &ValidationError{Field: "schedule_kind", Reason: fmt.Sprintf("unknown kind %q", m.ScheduleKind)}
	}
	return nil
}

// LowStock reports whether the remaining quantity is below the warning
// threshold for the medication's form: three units for tablet forms, 500
// for forms measured in mg.
func (m *Medication) LowStock() bool {
	kind := strings.ToLower(m.Kind)
	switch {
	case strings.Contains(kind, "tablet"):
		return m.Quantity <= lowStockTablets
	case strings.Contains(kind, "mg"):
		return m.Quantity <= lowStockMg
	default:
		return false
	}
}

// ValidationError rejects malformed input before any mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}
