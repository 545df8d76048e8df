package maintenance

import (
	"testing"
	"time"

	"github.com/friendsincode/hearthwarden/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func intPtr(v int) *int { return &v }

func TestNextTriggerDate_MonthlyClampsShortMonths(t *testing.T) {
	t.Parallel()

	// Anchored to the 31st, last fired end of January: February has no
	// 31st, so the next run clamps to the 28th.
	s := &models.MaintenanceSchedule{
		RecurrenceType:     models.RecurrenceMonthly,
		RecurrenceInterval: 1,
		DayOfMonth:         intPtr(31),
		StartDate:          date(2025, time.January, 31),
		LastTriggeredAt:    datePtr(2025, time.January, 31),
	}

	next := NextTriggerDate(s, date(2025, time.February, 1))
	if next == nil {
		t.Fatal("expected a next trigger date")
	}
	if !next.Equal(date(2025, time.February, 28)) {
		t.Fatalf("expected 2025-02-28, got %s", next.Format("2006-01-02"))
	}

	// And from February the anchor springs back to the 31st in March.
	s.LastTriggeredAt = next
	next = NextTriggerDate(s, date(2025, time.March, 1))
	if next == nil || !next.Equal(date(2025, time.March, 31)) {
		t.Fatalf("expected 2025-03-31, got %v", next)
	}
}

func TestNextTriggerDate_LeapFebruary(t *testing.T) {
	t.Parallel()

	s := &models.MaintenanceSchedule{
		RecurrenceType:     models.RecurrenceMonthly,
		RecurrenceInterval: 1,
		DayOfMonth:         intPtr(30),
		LastTriggeredAt:    datePtr(2024, time.January, 30),
	}

	next := NextTriggerDate(s, date(2024, time.February, 1))
	if next == nil || !next.Equal(date(2024, time.February, 29)) {
		t.Fatalf("expected 2024-02-29, got %v", next)
	}
}

func TestNextTriggerDate_AdvancesMonotonically(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		s    *models.MaintenanceSchedule
		want time.Time
	}{
		{
			name: "daily",
			s: &models.MaintenanceSchedule{
				RecurrenceType:     models.RecurrenceDaily,
				RecurrenceInterval: 1,
				LastTriggeredAt:    datePtr(2025, time.June, 10),
			},
			want: date(2025, time.June, 11),
		},
		{
			name: "every third day",
			s: &models.MaintenanceSchedule{
				RecurrenceType:     models.RecurrenceDaily,
				RecurrenceInterval: 3,
				LastTriggeredAt:    datePtr(2025, time.June, 10),
			},
			want: date(2025, time.June, 13),
		},
		{
			name: "weekly",
			s: &models.MaintenanceSchedule{
				RecurrenceType:     models.RecurrenceWeekly,
				RecurrenceInterval: 2,
				LastTriggeredAt:    datePtr(2025, time.June, 10),
			},
			want: date(2025, time.June, 24),
		},
		{
			name: "quarterly",
			s: &models.MaintenanceSchedule{
				RecurrenceType:     models.RecurrenceQuarterly,
				RecurrenceInterval: 1,
				LastTriggeredAt:    datePtr(2025, time.January, 15),
			},
			want: date(2025, time.April, 15),
		},
		{
			name: "yearly across year boundary",
			s: &models.MaintenanceSchedule{
				RecurrenceType:     models.RecurrenceYearly,
				RecurrenceInterval: 1,
				LastTriggeredAt:    datePtr(2025, time.November, 5),
			},
			want: date(2026, time.November, 5),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next := NextTriggerDate(tc.s, date(2025, time.June, 11))
			if next == nil {
				t.Fatal("expected a next trigger date")
			}
			if !next.Equal(tc.want) {
				t.Fatalf("expected %s, got %s", tc.want.Format("2006-01-02"), next.Format("2006-01-02"))
			}
			if !next.After(*tc.s.LastTriggeredAt) {
				t.Fatal("next trigger must advance past the last trigger")
			}
		})
	}
}

func TestNextTriggerDate_OneTime(t *testing.T) {
	t.Parallel()

	s := &models.MaintenanceSchedule{
		RecurrenceType: models.RecurrenceOneTime,
		StartDate:      date(2025, time.July, 1),
	}

	next := NextTriggerDate(s, date(2025, time.June, 1))
	if next == nil || !next.Equal(date(2025, time.July, 1)) {
		t.Fatalf("expected the start date, got %v", next)
	}

	// After firing once there is no next occurrence.
	s.LastTriggeredAt = datePtr(2025, time.July, 1)
	if next := NextTriggerDate(s, date(2025, time.July, 2)); next != nil {
		t.Fatalf("expected nil after a one-time schedule fired, got %v", next)
	}
}

func TestNextTriggerDate_EndDateClampsResult(t *testing.T) {
	t.Parallel()

	s := &models.MaintenanceSchedule{
		RecurrenceType:     models.RecurrenceMonthly,
		RecurrenceInterval: 1,
		LastTriggeredAt:    datePtr(2025, time.May, 15),
		EndDate:            datePtr(2025, time.June, 1),
	}

	// The June 15th occurrence overshoots the end date; the schedule
	// still gets its terminal firing, clamped to the end date itself.
	next := NextTriggerDate(s, date(2025, time.May, 16))
	if next == nil || !next.Equal(date(2025, time.June, 1)) {
		t.Fatalf("overshoot must clamp to end date 2025-06-01, got %v", next)
	}

	// Once the terminal firing happened there is nothing left.
	s.LastTriggeredAt = datePtr(2025, time.June, 1)
	if next := NextTriggerDate(s, date(2025, time.June, 1)); next != nil {
		t.Fatalf("expected nil after the terminal firing, got %v", next)
	}

	// An occurrence landing exactly on the end date fires unclamped.
	s.LastTriggeredAt = datePtr(2025, time.May, 15)
	s.EndDate = datePtr(2025, time.June, 15)
	next = NextTriggerDate(s, date(2025, time.May, 16))
	if next == nil || !next.Equal(date(2025, time.June, 15)) {
		t.Fatalf("expected 2025-06-15, got %v", next)
	}
}

func TestNextTriggerDate_UnknownTypeDegradesToDaily(t *testing.T) {
	t.Parallel()

	s := &models.MaintenanceSchedule{
		RecurrenceType:  models.RecurrenceType("lunar"),
		LastTriggeredAt: datePtr(2025, time.June, 10),
	}

	next := NextTriggerDate(s, date(2025, time.June, 10))
	if next == nil || !next.Equal(date(2025, time.June, 11)) {
		t.Fatalf("expected a one-day step for unknown recurrence, got %v", next)
	}
}

func TestNextTriggerDate_WeeklyAlignsToDayOfWeek(t *testing.T) {
	t.Parallel()

	// 2025-06-10 is a Tuesday; weekly step lands on the 17th, then
	// rolls forward to Friday the 20th.
	s := &models.MaintenanceSchedule{
		RecurrenceType:     models.RecurrenceWeekly,
		RecurrenceInterval: 1,
		DayOfWeek:          intPtr(int(time.Friday)),
		LastTriggeredAt:    datePtr(2025, time.June, 10),
	}

	next := NextTriggerDate(s, date(2025, time.June, 10))
	if next == nil || next.Weekday() != time.Friday {
		t.Fatalf("expected a Friday, got %v", next)
	}
	if !next.Equal(date(2025, time.June, 20)) {
		t.Fatalf("expected 2025-06-20, got %s", next.Format("2006-01-02"))
	}
}

func TestIsDue(t *testing.T) {
	t.Parallel()

	now := date(2025, time.June, 15)

	due := &models.MaintenanceSchedule{NextTriggerAt: datePtr(2025, time.June, 15)}
	if !IsDue(due, now) {
		t.Fatal("schedule due today must be due")
	}

	past := &models.MaintenanceSchedule{NextTriggerAt: datePtr(2025, time.June, 1)}
	if !IsDue(past, now) {
		t.Fatal("overdue schedule must be due")
	}

	future := &models.MaintenanceSchedule{NextTriggerAt: datePtr(2025, time.June, 16)}
	if IsDue(future, now) {
		t.Fatal("future schedule must not be due")
	}

	ended := &models.MaintenanceSchedule{
		NextTriggerAt: datePtr(2025, time.June, 1),
		EndDate:       datePtr(2025, time.June, 10),
	}
	if IsDue(ended, now) {
		t.Fatal("schedule past its end date must not be due")
	}

	if IsDue(&models.MaintenanceSchedule{}, now) {
		t.Fatal("schedule without a next trigger must not be due")
	}
}
