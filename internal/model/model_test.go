package model

import (
	"errors"
	"testing"
)

func TestMedicationValidate(t *testing.T) {
	t.Parallel()
	valid := Medication{Name: "Amoxicillin", Kind: "tablet", Quantity: 10, ScheduleKind: ScheduleKindDaily}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid medication rejected: %v", err)
	}

	tests := []struct {
		name  string
		mut   func(m *Medication)
		field string
	}{
		{"empty name", func(m *Medication) { m.Name = "  " }, "name"},
		{"negative quantity", func(m *Medication) { m.Quantity = -1 }, "quantity"},
		{"unknown schedule kind", func(m *Medication) { m.ScheduleKind = "monthly" }, "schedule_kind"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := valid
			tt.mut(&m)
			err := m.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestMedicationLowStock(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		kind     string
		quantity int
		want     bool
	}{
		{"tablets above threshold", "tablet", 4, false},
		{"tablets at threshold", "tablet", 3, true},
		{"tablets out", "Tablet 500mg", 0, true},
		{"mg above threshold", "syrup 100mg", 501, false},
		{"mg at threshold", "syrup 100mg", 500, true},
		{"unsized form never warns", "drops", 0, false},
	}
	for _, tt := range tests {
		m := Medication{Kind: tt.kind, Quantity: tt.quantity}
		if got := m.LowStock(); got != tt.want {
			t.Fatalf("%s: LowStock = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestScheduleNormalize(t *testing.T) {
	t.Parallel()
	s := Schedule{MedicationID: 1, Day: "monday", Clock: "8:5"}
	if err := s.Normalize(); err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if s.Day != "Monday" {
		t.Fatalf("Day = %q, want canonical casing", s.Day)
	}
	if s.Clock != "08:05" {
		t.Fatalf("Clock = %q, want zero-padded", s.Clock)
	}

	tests := []struct {
		name  string
		s     Schedule
		field string
	}{
		{"missing medication", Schedule{Day: "daily", Clock: "08:00"}, "medication_id"},
		{"unknown day", Schedule{MedicationID: 1, Day: "someday", Clock: "08:00"}, "day"},
		{"bad clock", Schedule{MedicationID: 1, Day: "daily", Clock: "25:00"}, "clock"},
		{"bad status", Schedule{MedicationID: 1, Day: "daily", Clock: "08:00", Status: Status(9)}, "status"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.s.Normalize()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestScheduleDueOn(t *testing.T) {
	t.Parallel()
	daily := Schedule{Day: "daily"}
	if !daily.DueOn("Tuesday") || !daily.DueOn("Sunday") {
		t.Fatal("daily occurrence should be due every day")
	}
	weekly := Schedule{Day: "Friday"}
	if !weekly.DueOn("Friday") {
		t.Fatal("weekly occurrence should be due on its day")
	}
	if weekly.DueOn("Saturday") {
		t.Fatal("weekly occurrence should not be due on other days")
	}
}

func TestStatusValid(t *testing.T) {
	t.Parallel()
	for _, st := range []Status{StatusPending, StatusTaken, StatusMissed} {
		if !st.Valid() {
			t.Fatalf("%v should be valid", st)
		}
	}
	if Status(-1).Valid() || Status(3).Valid() {
		t.Fatal("out-of-range statuses should be invalid")
	}
}
