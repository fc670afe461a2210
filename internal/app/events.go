package app

import (
	"medremind/internal/eventbus"
	logx "medremind/pkg/logx"
)

// logEvents consumes engine events and writes one structured log line per
// event. Runs until the subscription channel is closed.
func logEvents(ch <-chan eventbus.Event, log logx.Logger) {
	for e := range ch {
		switch data := e.Data.(type) {
		case eventbus.ReminderFired:
			log.Info("reminder fired",
				logx.Int64("medication_id", data.MedicationID),
				logx.String("medication", data.MedicationName),
				logx.String("clock", data.Clock),
				logx.Bool("low_stock", data.LowStock),
				logx.Int("quantity", data.Quantity))
		case eventbus.IntakeChanged:
			log.Info(intakeMsg(e.Type),
				logx.Int64("schedule_id", data.ScheduleID),
				logx.Int64("medication_id", data.MedicationID),
				logx.String("clock", data.Clock),
				logx.String("note", data.Note))
		case eventbus.DayReset:
			log.Info("day reset",
				logx.String("date", data.DateKey),
				logx.Int64("rows", data.Rows))
		case eventbus.LowStock:
			log.Warn("stock low",
				logx.Int64("medication_id", data.MedicationID),
				logx.String("medication", data.Name),
				logx.Int("quantity", data.Quantity))
		default:
			log.Debug("event", logx.String("type", e.Type))
		}
	}
}

func intakeMsg(eventType string) string {
	if eventType == eventbus.TypeIntakeMissed {
		return "intake missed"
	}
	return "intake taken"
}
