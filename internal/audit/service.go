/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audit persists the append-only schedule log. Lifecycle writes
// call Log directly so ordering is durable; the event-bus listener picks
// up the best-effort notification trail.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/hearthwarden/internal/events"
	"github.com/friendsincode/hearthwarden/internal/models"
)

// Service records schedule lifecycle actions.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to bus events that carry an audit trail and logs
// them. Blocks until ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	sweepStarted := s.bus.Subscribe(events.EventSweepStarted)
	sweepFinished := s.bus.Subscribe(events.EventSweepFinished)
	requestCompleted := s.bus.Subscribe(events.EventRequestCompleted)

	defer func() {
		s.bus.Unsubscribe(events.EventSweepStarted, sweepStarted)
		s.bus.Unsubscribe(events.EventSweepFinished, sweepFinished)
		s.bus.Unsubscribe(events.EventRequestCompleted, requestCompleted)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-sweepStarted:
			s.logger.Debug().Interface("payload", map[string]any(payload)).Msg("sweep started")

		case payload := <-sweepFinished:
			s.logger.Info().Interface("payload", map[string]any(payload)).Msg("sweep finished")

		case payload := <-requestCompleted:
			// The lifecycle writer already persisted the log entry;
			// this is just the operational trail.
			requestID, _ := payload["request_id"].(string)
			s.logger.Info().Str("request_id", requestID).Msg("work item completed")
		}
	}
}

// Log records a schedule log entry.
func (s *Service) Log(ctx context.Context, entry *models.ScheduleLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("schedule log entry written")

	return nil
}

// DetachSchedule nulls the schedule reference on all log entries for a
// schedule so the trail survives a hard delete of the schedule row.
func (s *Service) DetachSchedule(ctx context.Context, scheduleID string) error {
	return s.db.WithContext(ctx).
		Model(&models.ScheduleLog{}).
		Where("schedule_id = ?", scheduleID).
		Update("schedule_id", nil).Error
}

// QueryFilters defines filters for querying schedule logs.
type QueryFilters struct {
	ScheduleID *string
	RequestID  *string
	ActorID    *string
	Action     *models.LogAction
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int
	Offset     int
}

// Query retrieves schedule logs with filters, newest first.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.ScheduleLog, int64, error) {
	var logs []models.ScheduleLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.ScheduleLog{})

	if filters.ScheduleID != nil {
		query = query.Where("schedule_id = ?", *filters.ScheduleID)
	}
	if filters.RequestID != nil {
		query = query.Where("request_id = ?", *filters.RequestID)
	}
	if filters.ActorID != nil {
		query = query.Where("actor_id = ?", *filters.ActorID)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
