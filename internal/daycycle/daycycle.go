// Package daycycle owns the wall-clock-driven state transitions of the
// schedule state machine: the once-per-day reset back to pending and the
// overdue sweep that demotes unacted occurrences to missed.
package daycycle

import (
	"context"
	"sync"
	"time"

	"medremind/internal/eventbus"
	"medremind/internal/model"
	"medremind/internal/store"
	"medremind/internal/timeutil"
	logx "medremind/pkg/logx"
)

// GraceMinutes is how long a pending occurrence stays actionable past its
// scheduled time before the sweep marks it missed.
const GraceMinutes = 120

// MissedNote is the note written when the sweep demotes an occurrence.
const MissedNote = "auto: missed after grace period"

// Manager runs the daily reset and the overdue sweep. Both are idempotent
// and safe to invoke from overlapping code paths; the reset's check-then-apply
// pair is serialized behind a mutex so concurrent callers cannot both apply.
type Manager struct {
	store store.Store
	bus   eventbus.Bus
	log   logx.Logger

	now func() time.Time

	resetMu sync.Mutex
}

func New(st store.Store, bus eventbus.Bus, log logx.Logger) *Manager {
	return &Manager{
		store: st,
		bus:   bus,
		log:   log,
		now:   time.Now,
	}
}

// SetClock overrides the wall clock. Test hook.
func (m *Manager) SetClock(fn func() time.Time) {
	if fn != nil {
		m.now = fn
	}
}

// CheckAndReset applies the daily reset if it has not run for today's date
// yet. Returns true when this call performed the reset.
func (m *Manager) CheckAndReset(ctx context.Context) (bool, error) {
	m.resetMu.Lock()
	defer m.resetMu.Unlock()

	now := m.now()
	key := timeutil.DateKey(now)

	done, err := m.store.HasResetOn(ctx, key)
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}

	rows, err := m.store.ResetAll(ctx, key, now)
	if err != nil {
		return false, err
	}
	m.log.Info("daily reset applied",
		logx.String("date", key), logx.Int64("rows", rows))
	if m.bus != nil {
		m.bus.Publish(eventbus.Event{
			Type: eventbus.TypeDayReset,
			Data: eventbus.DayReset{DateKey: key, Rows: rows},
		})
	}
	return true, nil
}

// Sweep marks every pending occurrence due today as missed once its
// scheduled time is more than GraceMinutes in the past. Returns how many
// rows were demoted.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	now := m.now()
	due, err := m.store.ListDueOn(ctx, timeutil.DayName(now))
	if err != nil {
		return 0, err
	}

	nowMin := timeutil.MinutesOfDay(now.Hour(), now.Minute())
	swept := 0
	for i := range due {
		occ := &due[i]
		if occ.Status != model.StatusPending {
			continue
		}
		hh, mm, err := timeutil.ParseClock(occ.Clock)
		if err != nil {
			continue
		}
		// Rows scheduled later today are not overdue, whatever the wrapped
		// distance says.
		elapsed := nowMin - timeutil.MinutesOfDay(hh, mm)
		if elapsed < GraceMinutes {
			continue
		}
		res, err := m.store.MarkStatus(ctx, occ.ID, model.StatusMissed, MissedNote, now)
		if err != nil {
			return swept, err
		}
		if !res.Updated {
			continue
		}
		swept++
		m.log.Info("occurrence missed after grace period",
			logx.Int64("schedule_id", occ.ID),
			logx.String("medication", occ.MedicationName),
			logx.String("clock", occ.Clock))
		if m.bus != nil {
			m.bus.Publish(eventbus.Event{
				Type: eventbus.TypeIntakeMissed,
				Data: eventbus.IntakeChanged{
					ScheduleID:   occ.ID,
					MedicationID: occ.MedicationID,
					Clock:        occ.Clock,
					Note:         MissedNote,
				},
			})
		}
	}
	return swept, nil
}

// Refresh runs the reset check followed by the sweep. Every code path that
// needs authoritative statuses calls this first.
func (m *Manager) Refresh(ctx context.Context) error {
	if _, err := m.CheckAndReset(ctx); err != nil {
		return err
	}
	_, err := m.Sweep(ctx)
	return err
}
