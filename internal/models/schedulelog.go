/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// LogAction defines the type of logged lifecycle action.
type LogAction string

// Log action constants for every schedule and work-item transition.
const (
	LogActionScheduleCreated     LogAction = "schedule.created"
	LogActionScheduleUpdated     LogAction = "schedule.updated"
	LogActionScheduleDeleted     LogAction = "schedule.deleted"
	LogActionScheduleActivated   LogAction = "schedule.activated"
	LogActionScheduleDeactivated LogAction = "schedule.deactivated"
	LogActionSchedulePaused      LogAction = "schedule.paused"
	LogActionScheduleResumed     LogAction = "schedule.resumed"
	LogActionScheduleTriggered   LogAction = "schedule.triggered"
	LogActionRequestCreated      LogAction = "request.created_from_schedule"
	LogActionRequestStatusChange LogAction = "request.status_changed"
	LogActionNotificationSent    LogAction = "notification.sent"
)

// ScheduleLog is an immutable, append-only record of a lifecycle action.
// Logs outlive schedules: a hard delete nulls ScheduleID instead of
// cascading, so the audit trail survives the row.
type ScheduleLog struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp time.Time `gorm:"index:idx_schedule_logs_timestamp;not null" json:"timestamp"`

	ScheduleID *string   `gorm:"type:uuid;index:idx_schedule_logs_schedule" json:"schedule_id,omitempty"`
	RequestID  *string   `gorm:"type:uuid;index:idx_schedule_logs_request" json:"request_id,omitempty"`
	Action     LogAction `gorm:"type:varchar(64);index:idx_schedule_logs_action;not null" json:"action"`

	ActorID    *string `gorm:"type:uuid;index:idx_schedule_logs_actor" json:"actor_id,omitempty"` // NULL for sweep actions
	ActorEmail string  `gorm:"type:varchar(255)" json:"actor_email,omitempty"`                    // Denormalized for readability

	Details map[string]any `gorm:"type:jsonb;serializer:json" json:"details,omitempty"`

	// Before/After snapshots, populated for update actions when at
	// least one tracked field changed.
	Before map[string]any `gorm:"type:jsonb;serializer:json" json:"before,omitempty"`
	After  map[string]any `gorm:"type:jsonb;serializer:json" json:"after,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (ScheduleLog) TableName() string {
	return "schedule_logs"
}
