package status

import (
	"testing"
	"time"

	"medremind/internal/model"
)

func at(hour, min int) time.Time {
	return time.Date(2025, 3, 3, hour, min, 0, 0, time.UTC) // a Monday
}

func pendingAt(clock string) *model.Schedule {
	return &model.Schedule{Day: "daily", Clock: clock, Status: model.StatusPending}
}

func TestOfTerminalStatuses(t *testing.T) {
	t.Parallel()
	now := at(12, 0)
	s := pendingAt("08:00")

	s.Status = model.StatusTaken
	if got := Of(s, now); got.Kind != Taken {
		t.Fatalf("taken row: got %v", got)
	}
	s.Status = model.StatusMissed
	if got := Of(s, now); got.Kind != Missed {
		t.Fatalf("missed row: got %v", got)
	}
}

func TestOfPendingWindows(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		clock string
		now   time.Time
		want  Display
	}{
		{"well past due", "08:00", at(12, 0), Display{Kind: Late}},
		{"just outside grace", "08:00", at(8, 16), Display{Kind: Late}},
		{"due now, late edge", "08:00", at(8, 15), Display{Kind: DueNow}},
		{"due exactly now", "08:00", at(8, 0), Display{Kind: DueNow}},
		{"due now, early edge", "08:15", at(8, 0), Display{Kind: DueNow}},
		{"sixteen minutes early", "08:16", at(8, 0), Display{Kind: MinutesLeft, N: 16}},
		{"fifty-nine minutes early", "08:59", at(8, 0), Display{Kind: MinutesLeft, N: 59}},
		{"one hour early", "09:00", at(8, 0), Display{Kind: HoursLeft, N: 1}},
		{"ninety minutes early", "09:30", at(8, 0), Display{Kind: HoursLeft, N: 1}},
		{"late evening dose in the morning", "22:00", at(7, 0), Display{Kind: HoursLeft, N: 15}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Of(pendingAt(tt.clock), tt.now)
			if got != tt.want {
				t.Fatalf("Of(%s at %s) = %+v, want %+v", tt.clock, tt.now.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestOfIsPure(t *testing.T) {
	t.Parallel()
	s := pendingAt("14:30")
	now := at(13, 45)
	first := Of(s, now)
	for i := 0; i < 5; i++ {
		if got := Of(s, now); got != first {
			t.Fatalf("call %d: got %+v, want %+v", i, got, first)
		}
	}
	if s.Status != model.StatusPending || s.Clock != "14:30" {
		t.Fatal("Of mutated its input")
	}
}

func TestForFutureDay(t *testing.T) {
	t.Parallel()
	now := at(12, 0) // Monday
	got, err := ForFutureDay("Thursday", now)
	if err != nil {
		t.Fatalf("ForFutureDay error: %v", err)
	}
	if (got != Display{Kind: DaysLeft, N: 3}) {
		t.Fatalf("ForFutureDay(Thursday) = %+v", got)
	}
	if got.String() != "3 DAYS LEFT" {
		t.Fatalf("String = %q", got.String())
	}
	if _, err := ForFutureDay("daily", now); err == nil {
		t.Fatal("expected error for the daily sentinel")
	}
}

func TestElapsedMinutes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		clock string
		now   time.Time
		want  int
	}{
		{"08:00", at(10, 0), 120},
		{"08:00", at(8, 0), 0},
		{"23:00", at(1, 0), 120},    // wrapped across midnight
		{"10:30", at(10, 29), 1439}, // one minute "early" wraps to nearly a day
	}
	for _, tt := range tests {
		if got := ElapsedMinutes(tt.clock, tt.now); got != tt.want {
			t.Fatalf("ElapsedMinutes(%s at %s) = %d, want %d",
				tt.clock, tt.now.Format("15:04"), got, tt.want)
		}
	}
}

func TestDisplayString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d    Display
		want string
	}{
		{Display{Kind: Taken}, "TAKEN"},
		{Display{Kind: Missed}, "MISSED"},
		{Display{Kind: Late}, "LATE"},
		{Display{Kind: DueNow}, "DUE NOW"},
		{Display{Kind: MinutesLeft, N: 42}, "42 MINUTES LEFT"},
		{Display{Kind: HoursLeft, N: 3}, "3 HOURS LEFT"},
		{Display{Kind: Tomorrow}, "TOMORROW"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Fatalf("String(%+v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
