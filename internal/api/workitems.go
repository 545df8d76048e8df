/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/hearthwarden/internal/auth"
	"github.com/friendsincode/hearthwarden/internal/maintenance"
	"github.com/friendsincode/hearthwarden/internal/models"
)

func (a *API) handleWorkItemsList(w http.ResponseWriter, r *http.Request) {
	filters := maintenance.ListFilters{}
	filters.Limit, filters.Offset = parsePagination(r)

	if v := r.URL.Query().Get("unit_id"); v != "" {
		filters.UnitID = &v
	}
	if v := r.URL.Query().Get("schedule_id"); v != "" {
		filters.ScheduleID = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.RequestStatus(v)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid_status")
			return
		}
		filters.Status = &status
	}
	if v := r.URL.Query().Get("assignee_id"); v != "" {
		filters.AssigneeID = &v
	}

	// Tenants only ever see their own requests.
	claims, _ := auth.ClaimsFromContext(r.Context())
	if claims != nil && !claims.HasRole(string(models.RoleAdmin)) && !claims.HasRole(string(models.RoleManager)) {
		filters.TenantID = &claims.UserID
	} else if v := r.URL.Query().Get("tenant_id"); v != "" {
		filters.TenantID = &v
	}

	requests, total, err := a.workItems.List(r.Context(), filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("list work items failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"work_items": requests,
		"total":      total,
	})
}

func (a *API) handleWorkItemsCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitID        string  `json:"unit_id"`
		Title         string  `json:"title"`
		Description   string  `json:"description"`
		Category      string  `json:"category"`
		Priority      string  `json:"priority"`
		PreferredTime string  `json:"preferred_time"`
		EstimatedCost float64 `json:"estimated_cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	tenantID := ""
	if claims != nil {
		tenantID = claims.UserID
	}

	request, err := a.workItems.Create(r.Context(), maintenance.CreateParams{
		UnitID:        req.UnitID,
		TenantID:      tenantID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      models.MaintenanceCategory(req.Category),
		Priority:      models.WorkPriority(req.Priority),
		PreferredTime: req.PreferredTime,
		EstimatedCost: req.EstimatedCost,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

func (a *API) handleWorkItemsGet(w http.ResponseWriter, r *http.Request) {
	request, err := a.workItems.Get(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		if errors.Is(err, maintenance.ErrRequestNotFound) {
			writeError(w, http.StatusNotFound, "work_item_not_found")
			return
		}
		a.logger.Error().Err(err).Msg("get work item failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	// Tenants only ever see their own requests.
	claims, _ := auth.ClaimsFromContext(r.Context())
	if claims != nil && !claims.HasRole(string(models.RoleAdmin)) && !claims.HasRole(string(models.RoleManager)) {
		if request.TenantID != claims.UserID {
			writeError(w, http.StatusNotFound, "work_item_not_found")
			return
		}
	}

	writeJSON(w, http.StatusOK, request)
}

func (a *API) handleWorkItemStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status         string   `json:"status"`
		AssigneeID     *string  `json:"assignee_id"`
		ActualCost     *float64 `json:"actual_cost"`
		CompletionNote string   `json:"completion_note"`
		RejectionNote  string   `json:"rejection_note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	requestID := chi.URLParam(r, "requestID")

	// Managers and admins can move any item; the assigned worker can move
	// their own.
	claims, _ := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !claims.HasRole(string(models.RoleAdmin)) && !claims.HasRole(string(models.RoleManager)) {
		existing, err := a.workItems.Get(r.Context(), requestID)
		if err != nil {
			writeError(w, http.StatusNotFound, "work_item_not_found")
			return
		}
		if existing.AssigneeID == nil || *existing.AssigneeID != claims.UserID {
			writeError(w, http.StatusForbidden, "insufficient_role")
			return
		}
	}

	actor := actorFromRequest(r)
	request, err := a.workItems.ChangeStatus(r.Context(), requestID, maintenance.StatusChangeParams{
		Status:         models.RequestStatus(req.Status),
		ActorID:        actor.ID,
		ActorEmail:     actor.Email,
		AssigneeID:     req.AssigneeID,
		ActualCost:     req.ActualCost,
		CompletionNote: req.CompletionNote,
		RejectionNote:  req.RejectionNote,
	})
	if err != nil {
		switch {
		case errors.Is(err, maintenance.ErrRequestNotFound):
			writeError(w, http.StatusNotFound, "work_item_not_found")
		case errors.Is(err, maintenance.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "invalid_status")
		default:
			a.logger.Error().Err(err).Msg("work item status change failed")
			writeError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}

	writeJSON(w, http.StatusOK, request)
}
