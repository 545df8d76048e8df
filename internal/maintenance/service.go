/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/hearthwarden/internal/audit"
	"github.com/friendsincode/hearthwarden/internal/events"
	"github.com/friendsincode/hearthwarden/internal/models"
	"github.com/friendsincode/hearthwarden/internal/telemetry"
)

// ErrScheduleNotFound is returned when a schedule ID does not resolve.
var ErrScheduleNotFound = errors.New("schedule not found")

// ErrScheduleNotTriggerable is returned when a trigger is attempted on a
// schedule whose state forbids firing.
var ErrScheduleNotTriggerable = errors.New("schedule cannot trigger in its current state")

// Actor identifies who performed a lifecycle action. The zero value
// means the periodic sweep.
type Actor struct {
	ID    string
	Email string
}

func (a Actor) idPtr() *string {
	if a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}

// TriggerResult summarizes one schedule trigger.
type TriggerResult struct {
	ScheduleID    string                      `json:"schedule_id"`
	UnitsResolved int                         `json:"units_resolved"`
	ItemsCreated  int                         `json:"items_created"`
	Failures      int                         `json:"failures"`
	Requests      []models.MaintenanceRequest `json:"requests,omitempty"`
	NextTriggerAt *time.Time                  `json:"next_trigger_at,omitempty"`
}

// Service owns the schedule lifecycle: create, edit, state changes,
// triggering and the due-schedule evaluation the sweep runs.
type Service struct {
	db      *gorm.DB
	targets *TargetResolver
	factory *WorkItemFactory
	audit   *audit.Service
	bus     *events.Bus
	logger  zerolog.Logger

	// Per-schedule trigger locks. A schedule fires at most once at a
	// time; concurrent triggers for different schedules proceed freely.
	triggerMu sync.Mutex
	triggers  map[string]*sync.Mutex
}

// NewService creates the schedule lifecycle service.
func NewService(db *gorm.DB, targets *TargetResolver, factory *WorkItemFactory, auditSvc *audit.Service, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		targets:  targets,
		factory:  factory,
		audit:    auditSvc,
		bus:      bus,
		logger:   logger.With().Str("component", "maintenance").Logger(),
		triggers: make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockSchedule(scheduleID string) *sync.Mutex {
	s.triggerMu.Lock()
	mu, ok := s.triggers[scheduleID]
	if !ok {
		mu = &sync.Mutex{}
		s.triggers[scheduleID] = mu
	}
	s.triggerMu.Unlock()
	mu.Lock()
	return mu
}

// ScheduleParams carries the writable fields of a schedule.
type ScheduleParams struct {
	Title              string
	Description        string
	Category           models.MaintenanceCategory
	Priority           models.WorkPriority
	RecurrenceType     models.RecurrenceType
	RecurrenceInterval int
	DayOfWeek          *int
	DayOfMonth         *int
	TargetType         models.TargetType
	TargetPayload      string
	StartDate          time.Time
	EndDate            *time.Time
	NotifyDaysBefore   int
	NotifyUserIDs      []string
	EstimatedCost      float64
	AssigneeID         *string
}

func validateParams(p ScheduleParams) error {
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	switch p.RecurrenceType {
	case models.RecurrenceOneTime, models.RecurrenceDaily, models.RecurrenceWeekly,
		models.RecurrenceMonthly, models.RecurrenceQuarterly, models.RecurrenceYearly:
	default:
		return fmt.Errorf("unknown recurrence type: %s", p.RecurrenceType)
	}
	switch p.TargetType {
	case models.TargetAllUnits, models.TargetSpecificUnits, models.TargetFloor, models.TargetUnitType:
	default:
		return fmt.Errorf("unknown target type: %s", p.TargetType)
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("end date precedes start date")
	}
	if p.DayOfWeek != nil && (*p.DayOfWeek < 0 || *p.DayOfWeek > 6) {
		return fmt.Errorf("day of week out of range")
	}
	if p.DayOfMonth != nil && (*p.DayOfMonth < 1 || *p.DayOfMonth > 31) {
		return fmt.Errorf("day of month out of range")
	}
	return nil
}

// initialTriggerDate computes the first trigger date of a fresh
// schedule: the start date itself, pushed to nil when it already sits
// past the end date.
func initialTriggerDate(s *models.MaintenanceSchedule) *time.Time {
	first := dateOnly(s.StartDate)
	if s.EndDate != nil && first.After(dateOnly(*s.EndDate)) {
		return nil
	}
	return &first
}

// Create stores a new schedule. A schedule whose first trigger date has
// already arrived fires immediately so a backdated start date does not
// silently wait for the next sweep.
func (s *Service) Create(ctx context.Context, params ScheduleParams, actor Actor) (*models.MaintenanceSchedule, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	if params.Category == "" {
		params.Category = models.CategoryOther
	}
	if params.Priority == "" {
		params.Priority = models.PriorityMedium
	}
	if params.RecurrenceInterval < 1 {
		params.RecurrenceInterval = 1
	}

	schedule := &models.MaintenanceSchedule{
		ID:                 uuid.NewString(),
		Title:              params.Title,
		Description:        params.Description,
		Category:           params.Category,
		Priority:           params.Priority,
		RecurrenceType:     params.RecurrenceType,
		RecurrenceInterval: params.RecurrenceInterval,
		DayOfWeek:          params.DayOfWeek,
		DayOfMonth:         params.DayOfMonth,
		TargetType:         params.TargetType,
		TargetPayload:      params.TargetPayload,
		StartDate:          dateOnly(params.StartDate),
		EndDate:            params.EndDate,
		NotifyDaysBefore:   params.NotifyDaysBefore,
		NotifyUserIDs:      params.NotifyUserIDs,
		EstimatedCost:      params.EstimatedCost,
		AssigneeID:         params.AssigneeID,
		State:              models.ScheduleStateActive,
		CreatedBy:          actor.ID,
	}
	schedule.NextTriggerAt = initialTriggerDate(schedule)

	if err := s.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	s.logLifecycle(ctx, schedule.ID, models.LogActionScheduleCreated, actor, map[string]any{
		"title":           schedule.Title,
		"recurrence_type": string(schedule.RecurrenceType),
		"target_type":     string(schedule.TargetType),
	}, nil, nil)

	s.bus.Publish(events.EventScheduleCreated, events.Payload{"schedule_id": schedule.ID})

	if IsDue(schedule, time.Now()) {
		if _, err := s.Trigger(ctx, schedule.ID, Actor{}); err != nil {
			s.logger.Error().Err(err).
				Str("schedule_id", schedule.ID).
				Msg("catch-up trigger after create failed")
		}
		// Re-read so the caller sees the advanced cadence.
		return s.Get(ctx, schedule.ID)
	}

	return schedule, nil
}

// Get returns a schedule by ID.
func (s *Service) Get(ctx context.Context, scheduleID string) (*models.MaintenanceSchedule, error) {
	var schedule models.MaintenanceSchedule
	if err := s.db.WithContext(ctx).First(&schedule, "id = ?", scheduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return &schedule, nil
}

// ScheduleFilters narrows schedule listings.
type ScheduleFilters struct {
	State      *models.ScheduleState
	Category   *models.MaintenanceCategory
	TargetType *models.TargetType
	AssigneeID *string
	Limit      int
	Offset     int
}

// List returns schedules matching the filters.
func (s *Service) List(ctx context.Context, filters ScheduleFilters) ([]models.MaintenanceSchedule, int64, error) {
	var schedules []models.MaintenanceSchedule
	var total int64

	query := s.db.WithContext(ctx).Model(&models.MaintenanceSchedule{})
	if filters.State != nil {
		query = query.Where("state = ?", *filters.State)
	}
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.TargetType != nil {
		query = query.Where("target_type = ?", *filters.TargetType)
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

	if err := query.Order("created_at DESC").Limit(limit).Offset(filters.Offset).Find(&schedules).Error; err != nil {
		return nil, 0, err
	}

	return schedules, total, nil
}

// snapshot captures the fields tracked in before/after diffs.
func snapshot(m *models.MaintenanceSchedule) map[string]any {
	var endDate, nextTrigger any
	if m.EndDate != nil {
		endDate = m.EndDate.Format("2006-01-02")
	}
	if m.NextTriggerAt != nil {
		nextTrigger = m.NextTriggerAt.Format("2006-01-02")
	}
	return map[string]any{
		"title":               m.Title,
		"description":         m.Description,
		"category":            string(m.Category),
		"priority":            string(m.Priority),
		"recurrence_type":     string(m.RecurrenceType),
		"recurrence_interval": m.RecurrenceInterval,
		"target_type":         string(m.TargetType),
		"target_payload":      m.TargetPayload,
		"start_date":          m.StartDate.Format("2006-01-02"),
		"end_date":            endDate,
		"next_trigger_at":     nextTrigger,
		"notify_days_before":  m.NotifyDaysBefore,
		"estimated_cost":      m.EstimatedCost,
		"state":               string(m.State),
	}
}

// Update rewrites a schedule's definition and recomputes its cadence
// when the recurrence rule or window changed. Already-materialized work
// items keep their snapshots.
func (s *Service) Update(ctx context.Context, scheduleID string, params ScheduleParams, actor Actor) (*models.MaintenanceSchedule, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	before := snapshot(schedule)

	cadenceChanged := schedule.RecurrenceType != params.RecurrenceType ||
		schedule.RecurrenceInterval != params.RecurrenceInterval ||
		!schedule.StartDate.Equal(dateOnly(params.StartDate)) ||
		!equalDatePtr(schedule.EndDate, params.EndDate) ||
		!equalIntPtr(schedule.DayOfWeek, params.DayOfWeek) ||
		!equalIntPtr(schedule.DayOfMonth, params.DayOfMonth)

	schedule.Title = params.Title
	schedule.Description = params.Description
	if params.Category != "" {
		schedule.Category = params.Category
	}
	if params.Priority != "" {
		schedule.Priority = params.Priority
	}
	schedule.RecurrenceType = params.RecurrenceType
	if params.RecurrenceInterval >= 1 {
		schedule.RecurrenceInterval = params.RecurrenceInterval
	}
	schedule.DayOfWeek = params.DayOfWeek
	schedule.DayOfMonth = params.DayOfMonth
	schedule.TargetType = params.TargetType
	schedule.TargetPayload = params.TargetPayload
	schedule.StartDate = dateOnly(params.StartDate)
	schedule.EndDate = params.EndDate
	schedule.NotifyDaysBefore = params.NotifyDaysBefore
	schedule.NotifyUserIDs = params.NotifyUserIDs
	schedule.EstimatedCost = params.EstimatedCost
	schedule.AssigneeID = params.AssigneeID

	if cadenceChanged {
		if schedule.LastTriggeredAt == nil {
			schedule.NextTriggerAt = initialTriggerDate(schedule)
		} else {
			schedule.NextTriggerAt = NextTriggerDate(schedule, time.Now())
		}
	}

	if err := s.db.WithContext(ctx).Save(schedule).Error; err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}

	after := snapshot(schedule)
	s.logLifecycle(ctx, schedule.ID, models.LogActionScheduleUpdated, actor, nil, diffOnly(before, after), diffOnly(after, before))

	s.bus.Publish(events.EventScheduleUpdated, events.Payload{"schedule_id": schedule.ID})

	return schedule, nil
}

// diffOnly keeps the keys of a whose value differs in b.
func diffOnly(a, b map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range a {
		if bv, ok := b[k]; !ok || fmt.Sprint(v) != fmt.Sprint(bv) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func equalDatePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return dateOnly(*a).Equal(dateOnly(*b))
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Delete hard-deletes a schedule. The deletion log entry must land
// before the row goes away; a failed log write aborts the delete so the
// audit trail is never missing its final entry. Log rows are detached
// and generated work items keep their snapshots and live on.
func (s *Service) Delete(ctx context.Context, scheduleID string, actor Actor) error {
	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return err
	}

	entry := &models.ScheduleLog{
		ScheduleID: &schedule.ID,
		Action:     models.LogActionScheduleDeleted,
		ActorID:    actor.idPtr(),
		ActorEmail: actor.Email,
		Details: map[string]any{
			"title":           schedule.Title,
			"recurrence_type": string(schedule.RecurrenceType),
		},
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		return fmt.Errorf("write deletion log: %w", err)
	}

	if err := s.audit.DetachSchedule(ctx, schedule.ID); err != nil {
		return fmt.Errorf("detach schedule logs: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&models.MaintenanceSchedule{}, "id = ?", schedule.ID).Error; err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}

	s.bus.Publish(events.EventScheduleDeleted, events.Payload{"schedule_id": schedule.ID})
	return nil
}

// setState is the shared state-change path.
func (s *Service) setState(ctx context.Context, scheduleID string, state models.ScheduleState, action models.LogAction, event events.EventType, actor Actor, recompute bool) (*models.MaintenanceSchedule, error) {
	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	before := snapshot(schedule)
	schedule.State = state

	if recompute {
		if schedule.LastTriggeredAt == nil {
			schedule.NextTriggerAt = initialTriggerDate(schedule)
		} else {
			schedule.NextTriggerAt = NextTriggerDate(schedule, time.Now())
		}
	}

	if err := s.db.WithContext(ctx).Save(schedule).Error; err != nil {
		return nil, fmt.Errorf("update schedule state: %w", err)
	}

	after := snapshot(schedule)
	s.logLifecycle(ctx, schedule.ID, action, actor, nil, diffOnly(before, after), diffOnly(after, before))
	s.bus.Publish(event, events.Payload{"schedule_id": schedule.ID, "state": string(state)})

	return schedule, nil
}

// Activate moves a schedule to active and recomputes its cadence, so a
// long-dormant schedule does not fire for every missed period at once.
func (s *Service) Activate(ctx context.Context, scheduleID string, actor Actor) (*models.MaintenanceSchedule, error) {
	return s.setState(ctx, scheduleID, models.ScheduleStateActive, models.LogActionScheduleActivated, events.EventScheduleActivated, actor, true)
}

// Deactivate retires a schedule. Its cadence fields are preserved for
// later reactivation.
func (s *Service) Deactivate(ctx context.Context, scheduleID string, actor Actor) (*models.MaintenanceSchedule, error) {
	return s.setState(ctx, scheduleID, models.ScheduleStateInactive, models.LogActionScheduleDeactivated, events.EventScheduleDeactivated, actor, false)
}

// Pause suspends a schedule without touching its cadence.
func (s *Service) Pause(ctx context.Context, scheduleID string, actor Actor) (*models.MaintenanceSchedule, error) {
	return s.setState(ctx, scheduleID, models.ScheduleStatePaused, models.LogActionSchedulePaused, events.EventSchedulePaused, actor, false)
}

// Resume reactivates a paused schedule, recomputing the cadence so
// missed periods collapse into one upcoming trigger.
func (s *Service) Resume(ctx context.Context, scheduleID string, actor Actor) (*models.MaintenanceSchedule, error) {
	return s.setState(ctx, scheduleID, models.ScheduleStateActive, models.LogActionScheduleResumed, events.EventScheduleResumed, actor, true)
}

// Trigger fires a schedule now: resolves targets, materializes one work
// item per occupied unit, then advances the cadence. The cadence only
// moves after the full fan-out so a crash mid-way is retried by the
// next sweep rather than dropped. Per-unit failures are tallied and do
// not abort the rest of the fan-out.
func (s *Service) Trigger(ctx context.Context, scheduleID string, actor Actor) (*TriggerResult, error) {
	mu := s.lockSchedule(scheduleID)
	defer mu.Unlock()

	start := time.Now()
	defer func() {
		telemetry.TriggerDuration.Observe(time.Since(start).Seconds())
	}()

	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !schedule.State.CanTrigger() {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotTriggerable, schedule.State)
	}

	now := time.Now()
	visitDate := dateOnly(now)
	if schedule.NextTriggerAt != nil && schedule.NextTriggerAt.After(visitDate) {
		visitDate = dateOnly(*schedule.NextTriggerAt)
	}

	units, err := s.targets.Resolve(ctx, schedule)
	if err != nil {
		return nil, fmt.Errorf("resolve targets: %w", err)
	}

	result := &TriggerResult{
		ScheduleID:    schedule.ID,
		UnitsResolved: len(units),
	}

	for i := range units {
		request, err := s.factory.CreateFromSchedule(ctx, schedule, &units[i], visitDate, false, "")
		if err != nil {
			result.Failures++
			telemetry.TriggerFanoutErrors.Inc()
			s.logger.Error().Err(err).
				Str("schedule_id", schedule.ID).
				Str("unit_id", units[i].ID).
				Msg("failed to create work item for unit")
			continue
		}
		result.ItemsCreated++
		result.Requests = append(result.Requests, *request)
	}

	triggeredAt := dateOnly(now)
	schedule.LastTriggeredAt = &triggeredAt
	schedule.NextTriggerAt = NextTriggerDate(schedule, now)
	if schedule.NextTriggerAt == nil {
		// Ran its course: one_time fired, or the next occurrence falls
		// past the end date.
		schedule.State = models.ScheduleStateInactive
	}
	result.NextTriggerAt = schedule.NextTriggerAt

	if err := s.db.WithContext(ctx).Save(schedule).Error; err != nil {
		return nil, fmt.Errorf("advance schedule cadence: %w", err)
	}

	details := map[string]any{
		"units_resolved": result.UnitsResolved,
		"items_created":  result.ItemsCreated,
		"failures":       result.Failures,
	}
	if schedule.NextTriggerAt != nil {
		details["next_trigger_at"] = schedule.NextTriggerAt.Format("2006-01-02")
	}
	s.logLifecycle(ctx, schedule.ID, models.LogActionScheduleTriggered, actor, details, nil, nil)

	s.bus.Publish(events.EventScheduleTriggered, events.Payload{
		"schedule_id":   schedule.ID,
		"items_created": result.ItemsCreated,
		"failures":      result.Failures,
	})

	return result, nil
}

// TriggerForUnit fires a schedule against one explicit unit, skipping
// target resolution and leaving the cadence untouched. The item starts
// in_progress: someone already decided the work happens.
func (s *Service) TriggerForUnit(ctx context.Context, scheduleID, unitID, explicitTime string, actor Actor) (*models.MaintenanceRequest, error) {
	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !schedule.State.CanTrigger() {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotTriggerable, schedule.State)
	}

	unit, err := s.targets.dir.GetUnits(ctx, []string{unitID})
	if err != nil {
		return nil, err
	}
	if len(unit) == 0 {
		return nil, fmt.Errorf("unit %s not found", unitID)
	}

	visitDate := dateOnly(time.Now())
	if schedule.NextTriggerAt != nil && schedule.NextTriggerAt.After(visitDate) {
		visitDate = dateOnly(*schedule.NextTriggerAt)
	}
	if explicitTime == "" {
		explicitTime = FormatSlot(visitDate, slotFirstHour)
	}

	request, err := s.factory.CreateFromSchedule(ctx, schedule, &unit[0], visitDate, true, explicitTime)
	if err != nil {
		return nil, err
	}

	s.logLifecycle(ctx, schedule.ID, models.LogActionScheduleTriggered, actor, map[string]any{
		"unit_id":        unitID,
		"request_id":     request.ID,
		"preferred_time": request.PreferredTime,
		"manual":         true,
	}, nil, nil)

	return request, nil
}

// EvaluateDueSchedules finds active schedules whose trigger date has
// arrived and fires each one. A schedule that fails keeps its cadence
// and is retried next sweep; the loop never aborts on one bad row.
func (s *Service) EvaluateDueSchedules(ctx context.Context) (int, error) {
	now := time.Now()
	today := dateOnly(now)
	endOfToday := today.AddDate(0, 0, 1)

	telemetry.SweepRunsTotal.Inc()
	s.bus.Publish(events.EventSweepStarted, events.Payload{"at": now.Format(time.RFC3339)})

	var due []models.MaintenanceSchedule
	err := s.db.WithContext(ctx).
		Where("state = ? AND next_trigger_at IS NOT NULL AND next_trigger_at < ?", models.ScheduleStateActive, endOfToday).
		Where("end_date IS NULL OR end_date >= ?", today).
		Order("next_trigger_at ASC").
		Find(&due).Error
	if err != nil {
		telemetry.SweepErrorsTotal.WithLabelValues("query").Inc()
		return 0, fmt.Errorf("query due schedules: %w", err)
	}

	telemetry.SchedulesEvaluatedTotal.Add(float64(len(due)))

	triggered := 0
	for i := range due {
		schedule := &due[i]
		if !schedule.State.CanTrigger() {
			// Should be unreachable given the query; log loudly if the
			// state machine and the query ever drift apart.
			s.logger.Error().
				Str("schedule_id", schedule.ID).
				Str("state", string(schedule.State)).
				Msg("due query returned untriggerable schedule")
			continue
		}

		if _, err := s.Trigger(ctx, schedule.ID, Actor{}); err != nil {
			telemetry.SweepErrorsTotal.WithLabelValues("trigger").Inc()
			s.logger.Error().Err(err).
				Str("schedule_id", schedule.ID).
				Msg("sweep trigger failed")
			continue
		}
		triggered++
	}

	s.bus.Publish(events.EventSweepFinished, events.Payload{
		"due":       len(due),
		"triggered": triggered,
	})

	s.logger.Info().
		Int("due", len(due)).
		Int("triggered", triggered).
		Msg("due-schedule sweep finished")

	return triggered, nil
}

// PreviewEntry is one row of an affected-units preview: the unit, its
// current tenant, and the slot a real trigger would book right now.
type PreviewEntry struct {
	UnitID           string `json:"unit_id"`
	RoomNumber       string `json:"room_number"`
	Floor            int    `json:"floor"`
	TenantID         string `json:"tenant_id,omitempty"`
	TenantName       string `json:"tenant_name,omitempty"`
	ProposedTimeSlot string `json:"proposed_time_slot"`
	HasConflict      bool   `json:"has_conflict"`
}

// PreviewAffectedUnits runs the same target resolution and slot
// allocation a real trigger would, without creating anything. Each
// entry carries the unit's tenant, the slot the allocator would hand
// out, and whether that slot collides with an open request.
func (s *Service) PreviewAffectedUnits(ctx context.Context, scheduleID string) ([]PreviewEntry, error) {
	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	visitDate := dateOnly(time.Now())
	if schedule.NextTriggerAt != nil && schedule.NextTriggerAt.After(visitDate) {
		visitDate = dateOnly(*schedule.NextTriggerAt)
	}

	units, err := s.targets.Resolve(ctx, schedule)
	if err != nil {
		return nil, err
	}

	entries := make([]PreviewEntry, 0, len(units))
	for i := range units {
		unit := &units[i]

		occ, err := s.factory.dir.Occupancy(ctx, unit.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve occupancy for unit %s: %w", unit.ID, err)
		}
		slot, err := s.factory.slots.FindAvailableSlot(ctx, unit.ID, visitDate)
		if err != nil {
			return nil, fmt.Errorf("allocate slot for unit %s: %w", unit.ID, err)
		}
		conflict, err := s.factory.slots.HasConflict(ctx, unit.ID, slot)
		if err != nil {
			return nil, err
		}

		entries = append(entries, PreviewEntry{
			UnitID:           unit.ID,
			RoomNumber:       unit.RoomNumber,
			Floor:            unit.Floor,
			TenantID:         occ.TenantID,
			TenantName:       occ.TenantName,
			ProposedTimeSlot: slot,
			HasConflict:      conflict,
		})
	}
	return entries, nil
}

// logLifecycle writes a lifecycle log entry, best effort.
func (s *Service) logLifecycle(ctx context.Context, scheduleID string, action models.LogAction, actor Actor, details, before, after map[string]any) {
	entry := &models.ScheduleLog{
		ScheduleID: &scheduleID,
		Action:     action,
		ActorID:    actor.idPtr(),
		ActorEmail: actor.Email,
		Details:    details,
		Before:     before,
		After:      after,
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("schedule_id", scheduleID).
			Str("action", string(action)).
			Msg("failed to write lifecycle log")
	}
}
