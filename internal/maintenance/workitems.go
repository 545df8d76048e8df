/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/hearthwarden/internal/audit"
	"github.com/friendsincode/hearthwarden/internal/directory"
	"github.com/friendsincode/hearthwarden/internal/events"
	"github.com/friendsincode/hearthwarden/internal/models"
	"github.com/friendsincode/hearthwarden/internal/notifications"
	"github.com/friendsincode/hearthwarden/internal/telemetry"
)

// ErrRequestNotFound is returned when a request ID does not resolve.
var ErrRequestNotFound = errors.New("maintenance request not found")

// ErrInvalidStatus is returned for unknown request statuses.
var ErrInvalidStatus = errors.New("invalid request status")

// WorkItemFactory materializes maintenance requests, both from schedule
// fan-out and from tenants.
type WorkItemFactory struct {
	db     *gorm.DB
	slots  *SlotAllocator
	dir    *directory.Service
	audit  *audit.Service
	notify *notifications.Service
	bus    *events.Bus
	logger zerolog.Logger
}

// NewWorkItemFactory creates a work-item factory.
func NewWorkItemFactory(db *gorm.DB, slots *SlotAllocator, dir *directory.Service, auditSvc *audit.Service, notify *notifications.Service, bus *events.Bus, logger zerolog.Logger) *WorkItemFactory {
	return &WorkItemFactory{
		db:     db,
		slots:  slots,
		dir:    dir,
		audit:  auditSvc,
		notify: notify,
		bus:    bus,
		logger: logger.With().Str("component", "workitems").Logger(),
	}
}

// CreateFromSchedule materializes one work item for one unit from a
// schedule trigger. The item carries a snapshot of the schedule's
// title, category and priority; later edits to the schedule do not
// rewrite history. Schedule-driven items start in pending_confirmation
// so the tenant can confirm the visit; a manual per-unit trigger starts
// in in_progress because a person already decided the work happens now.
func (f *WorkItemFactory) CreateFromSchedule(ctx context.Context, s *models.MaintenanceSchedule, unit *models.Unit, visitDate time.Time, manual bool, explicitTime string) (*models.MaintenanceRequest, error) {
	occ, err := f.dir.Occupancy(ctx, unit.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve occupancy for unit %s: %w", unit.ID, err)
	}

	preferredTime := explicitTime
	if preferredTime == "" {
		preferredTime, err = f.slots.FindAvailableSlot(ctx, unit.ID, visitDate)
		if err != nil {
			return nil, fmt.Errorf("allocate slot for unit %s: %w", unit.ID, err)
		}
	}

	status := models.RequestStatusPendingConfirmation
	if manual {
		status = models.RequestStatusInProgress
	}

	request := &models.MaintenanceRequest{
		ID:            uuid.NewString(),
		UnitID:        unit.ID,
		TenantID:      occ.TenantID,
		Title:         s.Title,
		Description:   s.Description,
		Category:      s.Category,
		Priority:      s.Priority,
		Status:        status,
		PreferredTime: preferredTime,
		ScheduleID:    &s.ID,
		FromSchedule:  true,
		AssigneeID:    s.AssigneeID,
		EstimatedCost: s.EstimatedCost,
	}

	if err := f.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, fmt.Errorf("create work item: %w", err)
	}

	telemetry.WorkItemsCreatedTotal.WithLabelValues("schedule").Inc()

	f.logCreation(ctx, s, request)
	f.notifyCreation(ctx, request, occ, unit)

	f.bus.Publish(events.EventRequestCreated, events.Payload{
		"request_id":  request.ID,
		"schedule_id": s.ID,
		"unit_id":     unit.ID,
		"status":      string(request.Status),
	})

	return request, nil
}

// logCreation writes the per-item audit entry. Failures are logged and
// swallowed; a lost log line must not fail the fan-out.
func (f *WorkItemFactory) logCreation(ctx context.Context, s *models.MaintenanceSchedule, request *models.MaintenanceRequest) {
	entry := &models.ScheduleLog{
		ScheduleID: &s.ID,
		RequestID:  &request.ID,
		Action:     models.LogActionRequestCreated,
		Details: map[string]any{
			"unit_id":        request.UnitID,
			"preferred_time": request.PreferredTime,
			"status":         string(request.Status),
		},
	}
	if err := f.audit.Log(ctx, entry); err != nil {
		f.logger.Error().Err(err).
			Str("request_id", request.ID).
			Msg("failed to log work item creation")
	}
}

// notifyCreation sends the tenant confirmation notice and, when the
// schedule names an assignee, the assignment notice. Both best effort.
func (f *WorkItemFactory) notifyCreation(ctx context.Context, request *models.MaintenanceRequest, occ *directory.Occupancy, unit *models.Unit) {
	if occ.Occupied && occ.TenantID != "" {
		tenant, err := f.dir.GetUser(ctx, occ.TenantID)
		if err == nil {
			if err := f.notify.NotifyScheduledWork(ctx, request, tenant, unit); err != nil {
				f.logger.Warn().Err(err).
					Str("request_id", request.ID).
					Msg("failed to notify tenant about scheduled work")
			}
		}
	}

	if request.AssigneeID != nil && *request.AssigneeID != "" {
		assignee, err := f.dir.GetUser(ctx, *request.AssigneeID)
		if err == nil {
			if err := f.notify.NotifyAssignment(ctx, request, assignee); err != nil {
				f.logger.Warn().Err(err).
					Str("request_id", request.ID).
					Msg("failed to notify assignee")
			}
		}
	}
}

// CreateParams describes a tenant- or manager-initiated request.
type CreateParams struct {
	UnitID        string
	TenantID      string
	Title         string
	Description   string
	Category      models.MaintenanceCategory
	Priority      models.WorkPriority
	PreferredTime string
	EstimatedCost float64
}

// Create stores a hand-written maintenance request. Unlike schedule
// fan-out these start in submitted: the author already asked for the
// visit.
func (f *WorkItemFactory) Create(ctx context.Context, params CreateParams) (*models.MaintenanceRequest, error) {
	if params.UnitID == "" {
		return nil, fmt.Errorf("unit id is required")
	}
	if params.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if _, err := f.dir.GetUnit(ctx, params.UnitID); err != nil {
		return nil, err
	}

	if params.Category == "" {
		params.Category = models.CategoryOther
	}
	if params.Priority == "" {
		params.Priority = models.PriorityMedium
	}

	request := &models.MaintenanceRequest{
		ID:            uuid.NewString(),
		UnitID:        params.UnitID,
		TenantID:      params.TenantID,
		Title:         params.Title,
		Description:   params.Description,
		Category:      params.Category,
		Priority:      params.Priority,
		Status:        models.RequestStatusSubmitted,
		PreferredTime: params.PreferredTime,
		EstimatedCost: params.EstimatedCost,
	}

	if err := f.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	telemetry.WorkItemsCreatedTotal.WithLabelValues("manual").Inc()

	f.bus.Publish(events.EventRequestCreated, events.Payload{
		"request_id": request.ID,
		"unit_id":    request.UnitID,
		"status":     string(request.Status),
	})

	return request, nil
}

// Get returns a request by ID.
func (f *WorkItemFactory) Get(ctx context.Context, requestID string) (*models.MaintenanceRequest, error) {
	var request models.MaintenanceRequest
	if err := f.db.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return &request, nil
}

// ListFilters narrows request listings.
type ListFilters struct {
	UnitID     *string
	TenantID   *string
	ScheduleID *string
	Status     *models.RequestStatus
	AssigneeID *string
	Limit      int
	Offset     int
}

// List returns requests matching the filters, newest first.
func (f *WorkItemFactory) List(ctx context.Context, filters ListFilters) ([]models.MaintenanceRequest, int64, error) {
	var requests []models.MaintenanceRequest
	var total int64

	query := f.db.WithContext(ctx).Model(&models.MaintenanceRequest{})
	if filters.UnitID != nil {
		query = query.Where("unit_id = ?", *filters.UnitID)
	}
	if filters.TenantID != nil {
		query = query.Where("tenant_id = ?", *filters.TenantID)
	}
	if filters.ScheduleID != nil {
		query = query.Where("schedule_id = ?", *filters.ScheduleID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filters.AssigneeID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	if err := query.Order("created_at DESC").Limit(limit).Offset(filters.Offset).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// StatusChangeParams carries a status transition.
type StatusChangeParams struct {
	Status         models.RequestStatus
	ActorID        string
	ActorEmail     string
	AssigneeID     *string
	ActualCost     *float64
	CompletionNote string
	RejectionNote  string
}

// ChangeStatus moves a request to a new status. Completion stamping is
// idempotent: a request completed twice keeps its first CompletedAt.
// The audit line and the tenant notification are best effort.
func (f *WorkItemFactory) ChangeStatus(ctx context.Context, requestID string, params StatusChangeParams) (*models.MaintenanceRequest, error) {
	if !params.Status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, params.Status)
	}

	request, err := f.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	oldStatus := request.Status
	request.Status = params.Status

	if params.AssigneeID != nil {
		request.AssigneeID = params.AssigneeID
	}
	if params.ActualCost != nil {
		request.ActualCost = params.ActualCost
	}
	if params.CompletionNote != "" {
		request.CompletionNote = params.CompletionNote
	}
	if params.RejectionNote != "" {
		request.RejectionNote = params.RejectionNote
	}

	if params.Status == models.RequestStatusCompleted && request.CompletedAt == nil {
		now := time.Now()
		request.CompletedAt = &now
	}

	if err := f.db.WithContext(ctx).Save(request).Error; err != nil {
		return nil, fmt.Errorf("update request status: %w", err)
	}

	entry := &models.ScheduleLog{
		ScheduleID: request.ScheduleID,
		RequestID:  &request.ID,
		Action:     models.LogActionRequestStatusChange,
		ActorEmail: params.ActorEmail,
		Details: map[string]any{
			"from": string(oldStatus),
			"to":   string(params.Status),
		},
	}
	if params.ActorID != "" {
		entry.ActorID = &params.ActorID
	}
	if err := f.audit.Log(ctx, entry); err != nil {
		f.logger.Error().Err(err).
			Str("request_id", request.ID).
			Msg("failed to log status change")
	}

	if oldStatus != params.Status {
		switch params.Status {
		case models.RequestStatusApproved, models.RequestStatusInProgress,
			models.RequestStatusCompleted, models.RequestStatusCancelled:
			if err := f.notify.NotifyWorkItemStatus(ctx, request, params.Status); err != nil {
				f.logger.Warn().Err(err).
					Str("request_id", request.ID).
					Msg("failed to notify tenant about status change")
			}
		}

		eventType := events.EventRequestStatusChange
		if params.Status == models.RequestStatusCompleted {
			eventType = events.EventRequestCompleted
		}
		payload := events.Payload{
			"request_id": request.ID,
			"from":       string(oldStatus),
			"to":         string(params.Status),
		}
		if request.ScheduleID != nil {
			payload["schedule_id"] = *request.ScheduleID
		}
		f.bus.Publish(eventType, payload)
	}

	return request, nil
}
