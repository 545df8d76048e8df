/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package maintenance implements the recurring maintenance engine:
// recurrence calculation, target resolution, slot allocation, work-item
// fan-out and the schedule lifecycle.
package maintenance

import (
	"time"

	"github.com/friendsincode/hearthwarden/internal/models"
)

// dateOnly truncates t to midnight in its own location.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysInMonth returns the number of days in the month containing year/month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// addMonthsClamped advances t by the given number of months, clamping the
// day to the target month's length instead of letting overflow spill into
// the following month (Jan 31 + 1 month is Feb 28/29, not Mar 3).
func addMonthsClamped(t time.Time, months int, anchorDay int) time.Time {
	year, month, _ := t.Date()
	month += time.Month(months)
	for month > 12 {
		month -= 12
		year++
	}
	for month < 1 {
		month += 12
		year--
	}

	day := anchorDay
	if max := daysInMonth(year, month); day > max {
		day = max
	}
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// NextTriggerDate computes the date a schedule should fire next, based on
// its recurrence rule and the last time it fired. The result is a pure
// date (midnight); nil means the schedule will never fire again.
//
// The base for the step is LastTriggeredAt when set, otherwise StartDate,
// otherwise today. A result past EndDate clamps to the end date itself,
// so the schedule gets its terminal firing there; once that firing has
// happened the result is nil.
func NextTriggerDate(s *models.MaintenanceSchedule, now time.Time) *time.Time {
	today := dateOnly(now)

	base := today
	switch {
	case s.LastTriggeredAt != nil:
		base = dateOnly(*s.LastTriggeredAt)
	case !s.StartDate.IsZero():
		base = dateOnly(s.StartDate)
	}

	interval := s.RecurrenceInterval
	if interval < 1 {
		interval = 1
	}

	var next time.Time
	switch s.RecurrenceType {
	case models.RecurrenceOneTime:
		// Fires once on its start date. Once triggered it is done.
		if s.LastTriggeredAt != nil {
			return nil
		}
		next = dateOnly(s.StartDate)

	case models.RecurrenceDaily:
		next = base.AddDate(0, 0, interval)

	case models.RecurrenceWeekly:
		next = base.AddDate(0, 0, 7*interval)
		if s.DayOfWeek != nil {
			next = alignToWeekday(next, time.Weekday(*s.DayOfWeek))
		}

	case models.RecurrenceMonthly:
		next = addMonthsClamped(base, interval, monthlyAnchor(s, base))

	case models.RecurrenceQuarterly:
		next = addMonthsClamped(base, 3*interval, monthlyAnchor(s, base))

	case models.RecurrenceYearly:
		next = addMonthsClamped(base, 12*interval, monthlyAnchor(s, base))

	default:
		// Unknown recurrence types degrade to a daily step so a bad row
		// cannot wedge the sweep.
		next = base.AddDate(0, 0, 1)
	}

	if s.EndDate != nil {
		end := dateOnly(*s.EndDate)
		if next.After(end) {
			if s.LastTriggeredAt != nil && !dateOnly(*s.LastTriggeredAt).Before(end) {
				// The terminal firing already happened.
				return nil
			}
			return &end
		}
	}
	return &next
}

// monthlyAnchor returns the day-of-month the schedule is anchored to:
// the explicit DayOfMonth when set, otherwise the base date's day.
func monthlyAnchor(s *models.MaintenanceSchedule, base time.Time) int {
	if s.DayOfMonth != nil && *s.DayOfMonth >= 1 && *s.DayOfMonth <= 31 {
		return *s.DayOfMonth
	}
	return base.Day()
}

// alignToWeekday rolls t forward (0..6 days) until it lands on weekday.
func alignToWeekday(t time.Time, weekday time.Weekday) time.Time {
	delta := (int(weekday) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, delta)
}

// IsDue reports whether a schedule's next trigger date has arrived and
// it has not run past its end date.
func IsDue(s *models.MaintenanceSchedule, now time.Time) bool {
	if s.NextTriggerAt == nil {
		return false
	}
	today := dateOnly(now)
	if dateOnly(*s.NextTriggerAt).After(today) {
		return false
	}
	if s.EndDate != nil && dateOnly(*s.EndDate).Before(today) {
		return false
	}
	return true
}
