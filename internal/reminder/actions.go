package reminder

import (
	"context"

	"medremind/internal/eventbus"
	"medremind/internal/model"
	"medremind/internal/notify"
	"medremind/internal/store"
	"medremind/internal/timeutil"
	logx "medremind/pkg/logx"
)

// MarkTaken records a user-confirmed intake. The stock decrement happens in
// the same storage transaction as the status flip; a zero stock level is
// logged and does not block the transition. The occurrence's trigger, if
// still registered, is cancelled.
func (s *Service) MarkTaken(ctx context.Context, scheduleID int64) (store.MarkResult, error) {
	res, err := s.store.MarkStatus(ctx, scheduleID, model.StatusTaken, "", s.now())
	if err != nil || !res.Updated {
		return res, err
	}
	s.afterTaken(ctx, scheduleID)
	return res, nil
}

// MarkMissed records a user-confirmed skip.
func (s *Service) MarkMissed(ctx context.Context, scheduleID int64, note string) (store.MarkResult, error) {
	res, err := s.store.MarkStatus(ctx, scheduleID, model.StatusMissed, note, s.now())
	if err != nil || !res.Updated {
		return res, err
	}
	occ, gerr := s.store.GetSchedule(ctx, scheduleID)
	if gerr == nil && occ != nil {
		s.timer.Cancel(TriggerKey(occ.MedicationID, occ.Clock))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{
				Type: eventbus.TypeIntakeMissed,
				Data: eventbus.IntakeChanged{
					ScheduleID:   occ.ID,
					MedicationID: occ.MedicationID,
					Clock:        occ.Clock,
					Note:         note,
				},
			})
		}
	}
	return res, nil
}

// MarkTakenForMedication flips the earliest pending due-today occurrence of
// a medication to taken. This is the path for notification actions, which
// carry only a medication id.
func (s *Service) MarkTakenForMedication(ctx context.Context, medicationID int64) (store.MarkResult, error) {
	day := timeutil.DayName(s.now())
	res, err := s.store.MarkFirstPendingOn(ctx, medicationID, day, model.StatusTaken, "", s.now())
	if err != nil || !res.Updated {
		return res, err
	}
	s.afterTaken(ctx, res.ScheduleID)
	return res, nil
}

func (s *Service) afterTaken(ctx context.Context, scheduleID int64) {
	occ, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil || occ == nil {
		return
	}
	s.timer.Cancel(TriggerKey(occ.MedicationID, occ.Clock))

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.TypeIntakeTaken,
			Data: eventbus.IntakeChanged{
				ScheduleID:   occ.ID,
				MedicationID: occ.MedicationID,
				Clock:        occ.Clock,
			},
		})
	}

	med, err := s.store.GetMedication(ctx, occ.MedicationID)
	if err != nil || med == nil {
		return
	}
	if !med.LowStock() {
		return
	}
	s.log.Info("medication stock low",
		logx.String("medication", med.Name), logx.Int("quantity", med.Quantity))
	if s.disp != nil {
		text := notify.LowStockText(med.Name, med.Quantity)
		if err := s.disp.Dispatch(ctx, notify.Message{Text: text, Priority: 7}); err != nil {
			s.log.Warn("low-stock dispatch failed", logx.Err(err))
		}
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.TypeLowStock,
			Data: eventbus.LowStock{
				MedicationID: med.ID,
				Name:         med.Name,
				Kind:         med.Kind,
				Quantity:     med.Quantity,
			},
		})
	}
}
