/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/hearthwarden/internal/audit"
	"github.com/friendsincode/hearthwarden/internal/logbuffer"
	"github.com/friendsincode/hearthwarden/internal/models"
)

// handleLogsQuery queries the durable schedule log across all schedules.
func (a *API) handleLogsQuery(w http.ResponseWriter, r *http.Request) {
	filters := audit.QueryFilters{}
	filters.Limit, filters.Offset = parsePagination(r)

	if v := r.URL.Query().Get("schedule_id"); v != "" {
		filters.ScheduleID = &v
	}
	if v := r.URL.Query().Get("request_id"); v != "" {
		filters.RequestID = &v
	}
	if v := r.URL.Query().Get("actor_id"); v != "" {
		filters.ActorID = &v
	}
	if v := r.URL.Query().Get("action"); v != "" {
		action := models.LogAction(v)
		filters.Action = &action
	}
	if v := r.URL.Query().Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.StartTime = &t
		}
	}
	if v := r.URL.Query().Get("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.EndTime = &t
		}
	}

	logs, total, err := a.logs.Query(r.Context(), filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("query logs failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"total": total,
	})
}

// handleSystemLogs queries the in-memory operational log ring buffer.
func (a *API) handleSystemLogs(w http.ResponseWriter, r *http.Request) {
	if a.logBuffer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "log buffer not available",
		})
		return
	}

	params := logbuffer.QueryParams{
		Level:      r.URL.Query().Get("level"),
		Component:  r.URL.Query().Get("component"),
		Search:     r.URL.Query().Get("search"),
		Descending: true,
	}

	if since := r.URL.Query().Get("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			params.Since = t
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			params.Limit = n
		}
	} else {
		params.Limit = 500
	}

	if order := r.URL.Query().Get("order"); order == "asc" {
		params.Descending = false
	}

	entries := a.logBuffer.Query(params)
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (a *API) handleSystemLogStats(w http.ResponseWriter, r *http.Request) {
	if a.logBuffer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "log buffer not available",
		})
		return
	}
	writeJSON(w, http.StatusOK, a.logBuffer.Stats())
}
