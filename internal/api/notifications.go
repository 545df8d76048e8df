/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/hearthwarden/internal/auth"
)

func (a *API) handleNotificationsList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, offset := parsePagination(r)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifs, total, err := a.notify.GetUserNotifications(r.Context(), claims.UserID, unreadOnly, limit, offset)
	if err != nil {
		a.logger.Error().Err(err).Msg("list notifications failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": notifs,
		"total":         total,
	})
}

func (a *API) handleNotificationsUnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := a.notify.GetUnreadCount(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

func (a *API) handleNotificationsMarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := a.notify.MarkAsRead(r.Context(), chi.URLParam(r, "notificationID"), claims.UserID); err != nil {
		writeError(w, http.StatusNotFound, "notification_not_found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (a *API) handleNotificationsDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := a.notify.Delete(r.Context(), chi.URLParam(r, "notificationID"), claims.UserID); err != nil {
		writeError(w, http.StatusNotFound, "notification_not_found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handleNotificationsReadAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := a.notify.MarkAllAsRead(r.Context(), claims.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (a *API) handleNotificationPreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	prefs, err := a.notify.GetUserPreferences(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"preferences": prefs})
}

func (a *API) handleNotificationPreferenceUpdate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if err := a.notify.UpdatePreference(r.Context(), chi.URLParam(r, "prefID"), claims.UserID, req.Enabled); err != nil {
		writeError(w, http.StatusNotFound, "preference_not_found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
