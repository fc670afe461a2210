// Package reminder maintains the set of future wake-up triggers and reacts
// to their fires. It orchestrates the daily reset and overdue sweep as
// preconditions before computing today's trigger set, and re-validates
// every fired trigger against storage before dispatching a notification.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"medremind/internal/daycycle"
	"medremind/internal/eventbus"
	"medremind/internal/model"
	"medremind/internal/notify"
	"medremind/internal/store"
	"medremind/internal/timeutil"
	"medremind/internal/waketimer"
	logx "medremind/pkg/logx"
)

// TriggerKey derives the stable wake-timer key for one occurrence. Stable
// so a recompute re-registers the identical trigger instead of duplicating.
func TriggerKey(medicationID int64, clock string) string {
	return fmt.Sprintf("med/%d/%s", medicationID, clock)
}

// Config controls the background jobs.
type Config struct {
	// SweepEvery is the periodic re-check interval for overdue occurrences.
	SweepEvery time.Duration
	// Location is the wall-clock zone for trigger instants and cron jobs.
	Location *time.Location
}

// Service is the reminder scheduling engine.
type Service struct {
	store store.Store
	cycle *daycycle.Manager
	timer waketimer.Timer
	disp  notify.Dispatcher
	bus   eventbus.Bus
	log   logx.Logger

	loc *time.Location
	now func() time.Time

	sweepEvery time.Duration
	cron       *cron.Cron
}

func New(cfg Config, st store.Store, cycle *daycycle.Manager, timer waketimer.Timer, disp notify.Dispatcher, bus eventbus.Bus, log logx.Logger) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	sweep := cfg.SweepEvery
	if sweep <= 0 {
		sweep = 10 * time.Minute
	}
	s := &Service{
		store:      st,
		cycle:      cycle,
		timer:      timer,
		disp:       disp,
		bus:        bus,
		log:        log,
		loc:        loc,
		now:        func() time.Time { return time.Now().In(loc) },
		sweepEvery: sweep,
	}
	return s
}

// SetClock overrides the wall clock. Test hook.
func (s *Service) SetClock(fn func() time.Time) {
	if fn != nil {
		s.now = fn
		s.cycle.SetClock(fn)
	}
}

// Start runs an initial refresh and schedules the background jobs: a
// midnight rollover (reset + recompute) and the periodic overdue sweep.
func (s *Service) Start(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("initial refresh failed", logx.Err(err))
	}

	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc("0 0 * * *", func() { s.backgroundRefresh(ctx, "midnight rollover") }); err != nil {
		return err
	}
	spec := fmt.Sprintf("@every %s", s.sweepEvery)
	if _, err := c.AddFunc(spec, func() { s.backgroundRefresh(ctx, "periodic sweep") }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the background jobs and waits for a running one to finish.
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
}

func (s *Service) backgroundRefresh(ctx context.Context, reason string) {
	if err := s.Refresh(ctx); err != nil {
		// Background failures are retried on the next natural trigger.
		s.log.Warn("refresh failed", logx.String("reason", reason), logx.Err(err))
	}
}

// Refresh recomputes the full trigger set: reset check, overdue sweep, then
// one trigger per (medication, due-today occurrence) pair that is still
// pending and scheduled strictly after now. Safe to call from overlapping
// code paths; re-registration by stable key is an upsert.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.cycle.Refresh(ctx); err != nil {
		return err
	}

	now := s.now()
	nowMin := timeutil.MinutesOfDay(now.Hour(), now.Minute())

	meds, err := s.store.ListMedications(ctx, true)
	if err != nil {
		return err
	}
	byID := make(map[int64]*model.Medication, len(meds))
	for i := range meds {
		byID[meds[i].ID] = &meds[i]
	}

	due, err := s.store.ListDueOn(ctx, timeutil.DayName(now))
	if err != nil {
		return err
	}

	registered := 0
	for i := range due {
		occ := &due[i]
		if occ.Status != model.StatusPending {
			continue
		}
		med := byID[occ.MedicationID]
		if med == nil || med.Quantity <= 0 {
			continue
		}
		h, m, err := timeutil.ParseClock(occ.Clock)
		if err != nil || timeutil.MinutesOfDay(h, m) <= nowMin {
			continue
		}
		at, err := timeutil.At(occ.Clock, now)
		if err != nil {
			continue
		}
		s.timer.Register(TriggerKey(occ.MedicationID, occ.Clock), at, waketimer.Payload{
			MedicationID:   occ.MedicationID,
			MedicationName: occ.MedicationName,
			Clock:          occ.Clock,
			Dose:           occ.Dose,
		})
		registered++
	}
	s.log.Debug("trigger set recomputed", logx.Int("registered", registered))
	return nil
}

// HandleFire is the wake-timer callback. The payload is advisory only: the
// occurrence is re-validated against storage (after a reset check and
// sweep) and the notification is suppressed if it no longer applies.
func (s *Service) HandleFire(ctx context.Context, key string, p waketimer.Payload) {
	log := s.log.With(logx.String("trigger", key))

	if err := s.cycle.Refresh(ctx); err != nil {
		log.Warn("fire validation failed", logx.Err(err))
		return
	}

	med, err := s.store.GetMedication(ctx, p.MedicationID)
	if err != nil {
		log.Warn("fire validation failed", logx.Err(err))
		return
	}
	if med == nil || !med.Active {
		log.Debug("fire suppressed: medication gone or inactive")
		return
	}
	if med.Quantity <= 0 {
		log.Debug("fire suppressed: out of stock")
		return
	}

	occ, err := s.findOccurrence(ctx, p.MedicationID, p.Clock)
	if err != nil {
		log.Warn("fire validation failed", logx.Err(err))
		return
	}
	if occ == nil {
		log.Debug("fire suppressed: occurrence gone or not due today")
		return
	}
	if occ.Status != model.StatusPending {
		log.Debug("fire suppressed: already acted upon",
			logx.String("status", occ.Status.String()))
		return
	}

	low := med.LowStock()
	if s.disp != nil {
		text := notify.ReminderText(med.Name, occ.Clock, med.Dose, med.IntakeRule, low, med.Quantity)
		if err := s.disp.Dispatch(ctx, notify.Message{Text: text, Priority: 5}); err != nil {
			log.Warn("reminder dispatch failed", logx.Err(err))
		}
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.TypeReminderFired,
			Data: eventbus.ReminderFired{
				MedicationID:   med.ID,
				MedicationName: med.Name,
				Clock:          occ.Clock,
				Dose:           med.Dose,
				IntakeRule:     med.IntakeRule,
				LowStock:       low,
				Quantity:       med.Quantity,
			},
		})
	}
	log.Info("reminder delivered",
		logx.String("medication", med.Name), logx.String("clock", occ.Clock))
}

// findOccurrence resolves the pending due-today occurrence a fired trigger
// refers to, or nil when none matches.
func (s *Service) findOccurrence(ctx context.Context, medID int64, clock string) (*model.ScheduleView, error) {
	occs, err := s.store.ListSchedulesForMedication(ctx, medID)
	if err != nil {
		return nil, err
	}
	today := timeutil.DayName(s.now())
	for i := range occs {
		occ := &occs[i]
		if occ.Clock == clock && occ.DueOn(today) {
			return occ, nil
		}
	}
	return nil, nil
}

// CancelReminder cancels the trigger for one (medication, time) pair.
func (s *Service) CancelReminder(medicationID int64, clock string) bool {
	norm, err := timeutil.NormalizeClock(clock)
	if err != nil {
		norm = clock
	}
	return s.timer.Cancel(TriggerKey(medicationID, norm))
}

// CancelAllReminders cancels the trigger of every known occurrence.
func (s *Service) CancelAllReminders(ctx context.Context) (int, error) {
	occs, err := s.store.ListSchedules(ctx)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for i := range occs {
		if s.timer.Cancel(TriggerKey(occs[i].MedicationID, occs[i].Clock)) {
			cancelled++
		}
	}
	return cancelled, nil
}
