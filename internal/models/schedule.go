/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// MaintenanceCategory classifies the kind of work a schedule produces.
type MaintenanceCategory string

const (
	CategoryPlumbing   MaintenanceCategory = "plumbing"
	CategoryElectrical MaintenanceCategory = "electrical"
	CategoryHVAC       MaintenanceCategory = "hvac"
	CategoryAppliance  MaintenanceCategory = "appliance"
	CategoryStructural MaintenanceCategory = "structural"
	CategoryCleaning   MaintenanceCategory = "cleaning"
	CategoryOther      MaintenanceCategory = "other"
)

// RecurrenceType defines how often a schedule fires.
type RecurrenceType string

const (
	RecurrenceOneTime   RecurrenceType = "one_time"
	RecurrenceDaily     RecurrenceType = "daily"
	RecurrenceWeekly    RecurrenceType = "weekly"
	RecurrenceMonthly   RecurrenceType = "monthly"
	RecurrenceQuarterly RecurrenceType = "quarterly"
	RecurrenceYearly    RecurrenceType = "yearly"
)

// TargetType defines how a schedule selects the units it applies to.
type TargetType string

const (
	TargetAllUnits      TargetType = "all_units"
	TargetSpecificUnits TargetType = "specific_units" // payload: JSON list of unit ids
	TargetFloor         TargetType = "floor"          // payload: floor number
	TargetUnitType      TargetType = "unit_type"      // payload: unit type string
)

// WorkPriority defines the urgency copied onto generated work items.
type WorkPriority string

const (
	PriorityLow    WorkPriority = "low"
	PriorityMedium WorkPriority = "medium"
	PriorityHigh   WorkPriority = "high"
	PriorityUrgent WorkPriority = "urgent"
)

// ScheduleState is the single lifecycle state of a schedule.
// Only active schedules are evaluated by the periodic sweep; a paused
// schedule keeps its cadence fields but never fires until resumed.
type ScheduleState string

const (
	ScheduleStateActive   ScheduleState = "active"
	ScheduleStatePaused   ScheduleState = "paused"
	ScheduleStateInactive ScheduleState = "inactive"
)

// CanTrigger reports whether a schedule in this state may fire.
func (s ScheduleState) CanTrigger() bool {
	return s == ScheduleStateActive
}

// MaintenanceSchedule is a recurring maintenance rule. Triggering a
// schedule materializes one work item per occupied target unit.
type MaintenanceSchedule struct {
	ID          string              `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string              `gorm:"type:varchar(255);not null" json:"title"`
	Description string              `gorm:"type:text" json:"description,omitempty"`
	Category    MaintenanceCategory `gorm:"type:varchar(32);not null;default:'other'" json:"category"`
	Priority    WorkPriority        `gorm:"type:varchar(32);not null;default:'medium'" json:"priority"`

	RecurrenceType     RecurrenceType `gorm:"type:varchar(32);not null" json:"recurrence_type"`
	RecurrenceInterval int            `gorm:"not null;default:1" json:"recurrence_interval"`
	DayOfWeek          *int           `json:"day_of_week,omitempty"`  // 0=Sunday
	DayOfMonth         *int           `json:"day_of_month,omitempty"` // 1..31, clamped to short months

	TargetType    TargetType `gorm:"type:varchar(32);not null" json:"target_type"`
	TargetPayload string     `gorm:"type:text" json:"target_payload,omitempty"`

	StartDate       time.Time  `gorm:"not null" json:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	NextTriggerAt   *time.Time `gorm:"index:idx_schedules_next_trigger" json:"next_trigger_at,omitempty"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`

	NotifyDaysBefore int      `gorm:"not null;default:0" json:"notify_days_before"`
	NotifyUserIDs    []string `gorm:"type:text;serializer:json" json:"notify_user_ids,omitempty"`

	EstimatedCost float64 `json:"estimated_cost,omitempty"`
	AssigneeID    *string `gorm:"type:uuid;index:idx_schedules_assignee" json:"assignee_id,omitempty"`

	State ScheduleState `gorm:"type:varchar(32);index:idx_schedules_state;not null;default:'active'" json:"state"`

	CreatedBy string    `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (MaintenanceSchedule) TableName() string {
	return "maintenance_schedules"
}
