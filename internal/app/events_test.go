package app

import (
	"testing"
	"time"

	"medremind/internal/eventbus"
	logx "medremind/pkg/logx"
)

func TestLogEventsConsumesEveryEventType(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8)

	done := make(chan struct{})
	go func() {
		defer close(done)
		logEvents(ch, logx.Nop())
	}()

	bus.Publish(eventbus.Event{Type: eventbus.TypeReminderFired, Data: eventbus.ReminderFired{MedicationID: 1, MedicationName: "Amoxicillin", Clock: "08:00"}})
	bus.Publish(eventbus.Event{Type: eventbus.TypeIntakeTaken, Data: eventbus.IntakeChanged{ScheduleID: 2, MedicationID: 1, Clock: "08:00"}})
	bus.Publish(eventbus.Event{Type: eventbus.TypeIntakeMissed, Data: eventbus.IntakeChanged{ScheduleID: 3, MedicationID: 1, Clock: "12:00", Note: "auto: missed after grace period"}})
	bus.Publish(eventbus.Event{Type: eventbus.TypeDayReset, Data: eventbus.DayReset{DateKey: "2025-03-03", Rows: 4}})
	bus.Publish(eventbus.Event{Type: eventbus.TypeLowStock, Data: eventbus.LowStock{MedicationID: 1, Name: "Amoxicillin", Quantity: 2}})
	bus.Publish(eventbus.Event{Type: "unknown"})

	unsub()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not exit after unsubscribe")
	}
}

func TestIntakeMsg(t *testing.T) {
	t.Parallel()
	if got := intakeMsg(eventbus.TypeIntakeMissed); got != "intake missed" {
		t.Fatalf("intakeMsg = %q", got)
	}
	if got := intakeMsg(eventbus.TypeIntakeTaken); got != "intake taken" {
		t.Fatalf("intakeMsg = %q", got)
	}
}
