package eventbus

// Event types published by the scheduling core.
const (
	TypeReminderFired = "reminder.fired"
	TypeIntakeTaken   = "intake.taken"
	TypeIntakeMissed  = "intake.missed"
	TypeDayReset      = "day.reset"
	TypeLowStock      = "stock.low"
)

// ReminderFired is the payload for TypeReminderFired.
type ReminderFired struct {
	MedicationID   int64
	MedicationName string
	Clock          string
	Dose           string
	IntakeRule     string
	LowStock       bool
	Quantity       int
}

// IntakeChanged is the payload for TypeIntakeTaken and TypeIntakeMissed.
type IntakeChanged struct {
	ScheduleID   int64
	MedicationID int64
	Clock        string
	Note         string
}

// DayReset is the payload for TypeDayReset.
type DayReset struct {
	DateKey string
	Rows    int64
}

// LowStock is the payload for TypeLowStock.
type LowStock struct {
	MedicationID int64
	Name         string
	Kind         string
	Quantity     int
}
