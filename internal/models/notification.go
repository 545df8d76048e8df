/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// NotificationType defines the type of notification.
type NotificationType string

const (
	NotificationTypeWorkScheduled  NotificationType = "work_scheduled"  // schedule fired for the user's unit
	NotificationTypeWorkAssigned   NotificationType = "work_assigned"   // assignee got a new work item
	NotificationTypeStatusChange   NotificationType = "status_change"   // request moved to approved/in_progress
	NotificationTypeWorkCompleted  NotificationType = "work_completed"  // request completed
	NotificationTypeWorkCancelled  NotificationType = "work_cancelled"  // request cancelled
	NotificationTypeScheduleChange NotificationType = "schedule_change" // schedule was modified
	NotificationTypeUpcomingWork   NotificationType = "upcoming_work"   // notify-days-before reminder
)

// NotificationChannel defines the delivery channel.
type NotificationChannel string

const (
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelInApp NotificationChannel = "in_app"
)

// NotificationStatus defines the delivery status.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
	NotificationStatusRead    NotificationStatus = "read" // For in-app notifications
)

// NotificationPreference stores user notification settings.
type NotificationPreference struct {
	ID               string              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string              `gorm:"type:uuid;index:idx_notification_prefs_user;not null" json:"user_id"`
	NotificationType NotificationType    `gorm:"type:varchar(64);not null" json:"notification_type"`
	Channel          NotificationChannel `gorm:"type:varchar(32);not null" json:"channel"`
	Enabled          bool                `gorm:"not null;default:true" json:"enabled"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

// Notification stores a per-user message, optionally referencing a
// schedule and/or maintenance request.
type Notification struct {
	ID               string              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string              `gorm:"type:uuid;index:idx_notifications_user;not null" json:"user_id"`
	NotificationType NotificationType    `gorm:"type:varchar(64);index:idx_notifications_type;not null" json:"notification_type"`
	Channel          NotificationChannel `gorm:"type:varchar(32);not null" json:"channel"`
	Subject          string              `gorm:"type:varchar(255)" json:"subject,omitempty"`
	Body             string              `gorm:"type:text;not null" json:"body"`
	Status           NotificationStatus  `gorm:"type:varchar(32);not null;default:'pending';index:idx_notifications_status" json:"status"`
	SentAt           *time.Time          `json:"sent_at,omitempty"`
	ReadAt           *time.Time          `json:"read_at,omitempty"`
	Error            string              `gorm:"type:text" json:"error,omitempty"`

	ScheduleID *string `gorm:"type:uuid;index:idx_notifications_schedule" json:"schedule_id,omitempty"`
	RequestID  *string `gorm:"type:uuid;index:idx_notifications_request" json:"request_id,omitempty"`

	Metadata map[string]any `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// DefaultNotificationPreferences returns the default preferences for a new user.
func DefaultNotificationPreferences(userID string) []NotificationPreference {
	types := []NotificationType{
		NotificationTypeWorkScheduled,
		NotificationTypeWorkAssigned,
		NotificationTypeStatusChange,
		NotificationTypeWorkCompleted,
		NotificationTypeWorkCancelled,
		NotificationTypeUpcomingWork,
	}

	prefs := make([]NotificationPreference, 0, len(types)*2)
	for _, t := range types {
		prefs = append(prefs,
			NotificationPreference{UserID: userID, NotificationType: t, Channel: NotificationChannelInApp, Enabled: true},
			NotificationPreference{UserID: userID, NotificationType: t, Channel: NotificationChannelEmail, Enabled: t != NotificationTypeStatusChange},
		)
	}
	return prefs
}
