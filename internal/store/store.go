// Package store is the persistence layer of the reminder engine: CRUD over
// medications and schedule occurrences, the joined read queries, and the
// row-batch transitions (daily reset, status marks) the state machine
// depends on.
//
// All list operations return an empty slice when nothing matches. Lookups
// by id return nil (no error) when no active row resolves, so callers can
// tell "nothing to do" from a storage failure.
package store

import (
	"context"
	"time"

	"medremind/internal/model"
)

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// MarkResult reports what a status transition actually did.
type MarkResult struct {
	Updated      bool
	PrevStatus   model.Status
	StockReduced bool
	ScheduleID   int64
}

// Store is the persistence API used by the engine.
type Store interface {
	// Medications.
	InsertMedication(ctx context.Context, m *model.Medication) (int64, error)
	UpdateMedication(ctx context.Context, m *model.Medication) (int64, error)
	GetMedication(ctx context.Context, id int64) (*model.Medication, error)
	ListMedications(ctx context.Context, activeOnly bool) ([]model.Medication, error)
	DeactivateMedication(ctx context.Context, id int64) (bool, error)
	DeleteMedication(ctx context.Context, id int64) (bool, error)
	AddStock(ctx context.Context, id int64, n int) (bool, error)

	// Schedule occurrences.
	InsertSchedule(ctx context.Context, s *model.Schedule) (int64, error)
	InsertSchedules(ctx context.Context, batch []*model.Schedule) (int, error)
	UpdateSchedule(ctx context.Context, s *model.Schedule) (int64, error)
	DeleteSchedule(ctx context.Context, id int64) (bool, error)
	DeleteSchedulesForMedication(ctx context.Context, medID int64) (int64, error)
	GetSchedule(ctx context.Context, id int64) (*model.ScheduleView, error)
	ListSchedulesForMedication(ctx context.Context, medID int64) ([]model.ScheduleView, error)
	ListSchedules(ctx context.Context) ([]model.ScheduleView, error)
	ListDueOn(ctx context.Context, day string) ([]model.ScheduleView, error)
	CountByStatus(ctx context.Context) (model.StatusCounts, error)

	// State machine.
	HasResetOn(ctx context.Context, dateKey string) (bool, error)
	ResetAll(ctx context.Context, dateKey string, now time.Time) (int64, error)
	MarkStatus(ctx context.Context, id int64, st model.Status, note string, now time.Time) (MarkResult, error)
	MarkFirstPendingOn(ctx context.Context, medID int64, day string, st model.Status, note string, now time.Time) (MarkResult, error)

	Close() error
}
