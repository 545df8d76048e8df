/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package maintenance

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/hearthwarden/internal/models"
)

// SlotTimeLayout is the wire format for preferred-time values.
const SlotTimeLayout = "2006-01-02T15:04:05"

// Working-day slot grid: one-hour slots from 09:00 through 17:00.
const (
	slotFirstHour = 9
	slotLastHour  = 17
)

// SlotAllocator hands out visit times on a per-unit, per-day basis.
type SlotAllocator struct {
	db *gorm.DB
}

// NewSlotAllocator creates a slot allocator backed by the request table.
func NewSlotAllocator(db *gorm.DB) *SlotAllocator {
	return &SlotAllocator{db: db}
}

// FormatSlot renders a date and hour as a preferred-time string.
func FormatSlot(date time.Time, hour int) string {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location()).Format(SlotTimeLayout)
}

// HasConflict reports whether an open request for the unit already claims
// the exact preferred time. Only submitted and in_progress requests hold
// their slot; everything else has released it.
func (a *SlotAllocator) HasConflict(ctx context.Context, unitID, preferredTime string) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.MaintenanceRequest{}).
		Where("unit_id = ? AND preferred_time = ? AND status IN ?",
			unitID, preferredTime,
			[]models.RequestStatus{models.RequestStatusSubmitted, models.RequestStatusInProgress}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check slot conflict: %w", err)
	}
	return count > 0, nil
}

// FindAvailableSlot walks the day's slot grid for the unit and returns
// the first free hour. The scan counts every existing request for the
// unit on that date, whatever its status, so two schedules landing on
// the same day spread across the grid instead of stacking on 09:00.
// When every slot is taken it falls back to the first slot of the day;
// maintenance staff resolve the overlap manually.
func (a *SlotAllocator) FindAvailableSlot(ctx context.Context, unitID string, date time.Time) (string, error) {
	var booked []string
	err := a.db.WithContext(ctx).
		Model(&models.MaintenanceRequest{}).
		Where("unit_id = ? AND preferred_time LIKE ?", unitID, date.Format("2006-01-02")+"T%").
		Pluck("preferred_time", &booked).Error
	if err != nil {
		return "", fmt.Errorf("list booked slots: %w", err)
	}

	taken := make(map[string]struct{}, len(booked))
	for _, slot := range booked {
		taken[slot] = struct{}{}
	}

	for hour := slotFirstHour; hour <= slotLastHour; hour++ {
		slot := FormatSlot(date, hour)
		if _, ok := taken[slot]; !ok {
			return slot, nil
		}
	}
	return FormatSlot(date, slotFirstHour), nil
}
