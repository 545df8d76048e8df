/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// RequestStatus is the lifecycle state of a maintenance request.
type RequestStatus string

const (
	RequestStatusNotSubmitted        RequestStatus = "not_submitted"
	RequestStatusPendingConfirmation RequestStatus = "pending_confirmation" // tenant must confirm the proposed slot
	RequestStatusSubmitted           RequestStatus = "submitted"
	RequestStatusWaitingForRepair    RequestStatus = "waiting_for_repair"
	RequestStatusApproved            RequestStatus = "approved"
	RequestStatusInProgress          RequestStatus = "in_progress"
	RequestStatusCompleted           RequestStatus = "completed"
	RequestStatusCancelled           RequestStatus = "cancelled"
)

// IsOpen reports whether a request in this status still occupies its
// time slot for conflict purposes.
func (s RequestStatus) IsOpen() bool {
	return s == RequestStatusSubmitted || s == RequestStatusInProgress
}

// IsValid reports whether the status is one of the known states.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusNotSubmitted, RequestStatusPendingConfirmation,
		RequestStatusSubmitted, RequestStatusWaitingForRepair,
		RequestStatusApproved, RequestStatusInProgress,
		RequestStatusCompleted, RequestStatusCancelled:
		return true
	}
	return false
}

// MaintenanceRequest is one concrete unit of work against one unit.
// Requests originate either from a tenant or from a schedule trigger;
// schedule-originated requests carry a snapshot of the schedule's
// title/category/priority taken at trigger time.
type MaintenanceRequest struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	UnitID   string `gorm:"type:uuid;index:idx_requests_unit;not null" json:"unit_id"`
	TenantID string `gorm:"type:uuid;index:idx_requests_tenant" json:"tenant_id"`

	Title       string              `gorm:"type:varchar(255);not null" json:"title"`
	Description string              `gorm:"type:text" json:"description,omitempty"`
	Category    MaintenanceCategory `gorm:"type:varchar(32);not null;default:'other'" json:"category"`
	Priority    WorkPriority        `gorm:"type:varchar(32);not null;default:'medium'" json:"priority"`
	Status      RequestStatus       `gorm:"type:varchar(32);index:idx_requests_status;not null;default:'submitted'" json:"status"`

	// PreferredTime is the proposed or confirmed slot as free text,
	// formatted "2006-01-02T15:04:05" by the slot allocator.
	PreferredTime string `gorm:"type:varchar(64);index:idx_requests_preferred_time" json:"preferred_time,omitempty"`

	ScheduleID   *string `gorm:"type:uuid;index:idx_requests_schedule" json:"schedule_id,omitempty"`
	FromSchedule bool    `gorm:"not null;default:false" json:"from_schedule"`

	AssigneeID    *string  `gorm:"type:uuid;index:idx_requests_assignee" json:"assignee_id,omitempty"`
	EstimatedCost float64  `json:"estimated_cost,omitempty"`
	ActualCost    *float64 `json:"actual_cost,omitempty"`

	CompletionNote string     `gorm:"type:text" json:"completion_note,omitempty"`
	RejectionNote  string     `gorm:"type:text" json:"rejection_note,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (MaintenanceRequest) TableName() string {
	return "maintenance_requests"
}
