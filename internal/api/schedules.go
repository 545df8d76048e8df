/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/hearthwarden/internal/audit"
	"github.com/friendsincode/hearthwarden/internal/maintenance"
	"github.com/friendsincode/hearthwarden/internal/models"
)

type scheduleRequest struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Category           string   `json:"category"`
	Priority           string   `json:"priority"`
	RecurrenceType     string   `json:"recurrence_type"`
	RecurrenceInterval int      `json:"recurrence_interval"`
	DayOfWeek          *int     `json:"day_of_week"`
	DayOfMonth         *int     `json:"day_of_month"`
	TargetType         string   `json:"target_type"`
	TargetPayload      string   `json:"target_payload"`
	StartDate          string   `json:"start_date"` // "2006-01-02"
	EndDate            *string  `json:"end_date"`
	NotifyDaysBefore   int      `json:"notify_days_before"`
	NotifyUserIDs      []string `json:"notify_user_ids"`
	EstimatedCost      float64  `json:"estimated_cost"`
	AssigneeID         *string  `json:"assignee_id"`
}

func (req scheduleRequest) toParams() (maintenance.ScheduleParams, error) {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return maintenance.ScheduleParams{}, errors.New("invalid start_date, want YYYY-MM-DD")
	}

	var end *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			return maintenance.ScheduleParams{}, errors.New("invalid end_date, want YYYY-MM-DD")
		}
		end = &parsed
	}

	return maintenance.ScheduleParams{
		Title:              req.Title,
		Description:        req.Description,
		Category:           models.MaintenanceCategory(req.Category),
		Priority:           models.WorkPriority(req.Priority),
		RecurrenceType:     models.RecurrenceType(req.RecurrenceType),
		RecurrenceInterval: req.RecurrenceInterval,
		DayOfWeek:          req.DayOfWeek,
		DayOfMonth:         req.DayOfMonth,
		TargetType:         models.TargetType(req.TargetType),
		TargetPayload:      req.TargetPayload,
		StartDate:          start,
		EndDate:            end,
		NotifyDaysBefore:   req.NotifyDaysBefore,
		NotifyUserIDs:      req.NotifyUserIDs,
		EstimatedCost:      req.EstimatedCost,
		AssigneeID:         req.AssigneeID,
	}, nil
}

func (a *API) handleSchedulesList(w http.ResponseWriter, r *http.Request) {
	filters := maintenance.ScheduleFilters{}
	filters.Limit, filters.Offset = parsePagination(r)

	if v := r.URL.Query().Get("state"); v != "" {
		state := models.ScheduleState(v)
		filters.State = &state
	}
	if v := r.URL.Query().Get("category"); v != "" {
		category := models.MaintenanceCategory(v)
		filters.Category = &category
	}
	if v := r.URL.Query().Get("target_type"); v != "" {
		targetType := models.TargetType(v)
		filters.TargetType = &targetType
	}
	if v := r.URL.Query().Get("assignee_id"); v != "" {
		filters.AssigneeID = &v
	}

	schedules, total, err := a.schedules.List(r.Context(), filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("list schedules failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schedules": schedules,
		"total":     total,
	})
}

func (a *API) handleSchedulesCreate(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	params, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	schedule, err := a.schedules.Create(r.Context(), params, actorFromRequest(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, schedule)
}

func (a *API) handleSchedulesGet(w http.ResponseWriter, r *http.Request) {
	schedule, err := a.schedules.Get(r.Context(), chi.URLParam(r, "scheduleID"))
	if err != nil {
		a.writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (a *API) handleSchedulesUpdate(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	params, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	schedule, err := a.schedules.Update(r.Context(), chi.URLParam(r, "scheduleID"), params, actorFromRequest(r))
	if err != nil {
		a.writeScheduleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, schedule)
}

func (a *API) handleSchedulesDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.schedules.Delete(r.Context(), chi.URLParam(r, "scheduleID"), actorFromRequest(r)); err != nil {
		a.writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handleScheduleActivate(w http.ResponseWriter, r *http.Request) {
	a.handleStateChange(w, r, a.schedules.Activate)
}

func (a *API) handleScheduleDeactivate(w http.ResponseWriter, r *http.Request) {
	a.handleStateChange(w, r, a.schedules.Deactivate)
}

func (a *API) handleSchedulePause(w http.ResponseWriter, r *http.Request) {
	a.handleStateChange(w, r, a.schedules.Pause)
}

func (a *API) handleScheduleResume(w http.ResponseWriter, r *http.Request) {
	a.handleStateChange(w, r, a.schedules.Resume)
}

func (a *API) handleStateChange(w http.ResponseWriter, r *http.Request, change func(ctx context.Context, scheduleID string, actor maintenance.Actor) (*models.MaintenanceSchedule, error)) {
	schedule, err := change(r.Context(), chi.URLParam(r, "scheduleID"), actorFromRequest(r))
	if err != nil {
		a.writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (a *API) handleScheduleTrigger(w http.ResponseWriter, r *http.Request) {
	result, err := a.schedules.Trigger(r.Context(), chi.URLParam(r, "scheduleID"), actorFromRequest(r))
	if err != nil {
		a.writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleScheduleTriggerUnit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitID        string `json:"unit_id"`
		PreferredTime string `json:"preferred_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.UnitID == "" {
		writeError(w, http.StatusBadRequest, "unit_id_required")
		return
	}

	request, err := a.schedules.TriggerForUnit(r.Context(), chi.URLParam(r, "scheduleID"), req.UnitID, req.PreferredTime, actorFromRequest(r))
	if err != nil {
		a.writeScheduleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

func (a *API) handleSchedulePreview(w http.ResponseWriter, r *http.Request) {
	units, err := a.schedules.PreviewAffectedUnits(r.Context(), chi.URLParam(r, "scheduleID"))
	if err != nil {
		a.writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"units": units,
		"count": len(units),
	})
}

func (a *API) handleScheduleLogs(w http.ResponseWriter, r *http.Request) {
	scheduleID := chi.URLParam(r, "scheduleID")
	filters := audit.QueryFilters{ScheduleID: &scheduleID}
	filters.Limit, filters.Offset = parsePagination(r)

	logs, total, err := a.logs.Query(r.Context(), filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("query schedule logs failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"total": total,
	})
}

func (a *API) writeScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, maintenance.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, "schedule_not_found")
	case errors.Is(err, maintenance.ErrScheduleNotTriggerable):
		writeError(w, http.StatusConflict, "schedule_not_triggerable")
	default:
		a.logger.Error().Err(err).Msg("schedule operation failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
