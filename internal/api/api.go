/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface of the maintenance engine.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/hearthwarden/internal/audit"
	"github.com/friendsincode/hearthwarden/internal/auth"
	"github.com/friendsincode/hearthwarden/internal/directory"
	"github.com/friendsincode/hearthwarden/internal/events"
	"github.com/friendsincode/hearthwarden/internal/logbuffer"
	"github.com/friendsincode/hearthwarden/internal/maintenance"
	"github.com/friendsincode/hearthwarden/internal/models"
	"github.com/friendsincode/hearthwarden/internal/notifications"
)

// API exposes HTTP handlers.
type API struct {
	db        *gorm.DB
	jwtSecret []byte
	schedules *maintenance.Service
	workItems *maintenance.WorkItemFactory
	dir       *directory.Service
	notify    *notifications.Service
	logs      *audit.Service
	logBuffer *logbuffer.Buffer
	bus       *events.Bus
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, schedules *maintenance.Service, workItems *maintenance.WorkItemFactory, dir *directory.Service, notify *notifications.Service, logs *audit.Service, logBuf *logbuffer.Buffer, bus *events.Bus, logger zerolog.Logger) *API {
	return &API{
		db:        db,
		jwtSecret: jwtSecret,
		schedules: schedules,
		workItems: workItems,
		dir:       dir,
		notify:    notify,
		logs:      logs,
		logBuffer: logBuf,
		bus:       bus,
		logger:    logger,
	}
}

// Routes mounts API routes on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.Route("/schedules", func(r chi.Router) {
				r.Get("/", a.handleSchedulesList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/", a.handleSchedulesCreate)
				r.Route("/{scheduleID}", func(r chi.Router) {
					r.Get("/", a.handleSchedulesGet)
					r.Get("/preview", a.handleSchedulePreview)
					r.Get("/logs", a.handleScheduleLogs)
					r.Group(func(mr chi.Router) {
						mr.Use(a.requireRoles(models.RoleAdmin, models.RoleManager))
						mr.Put("/", a.handleSchedulesUpdate)
						mr.Delete("/", a.handleSchedulesDelete)
						mr.Post("/activate", a.handleScheduleActivate)
						mr.Post("/deactivate", a.handleScheduleDeactivate)
						mr.Post("/pause", a.handleSchedulePause)
						mr.Post("/resume", a.handleScheduleResume)
						mr.Post("/trigger", a.handleScheduleTrigger)
						mr.Post("/trigger-unit", a.handleScheduleTriggerUnit)
					})
				})
			})

			pr.Route("/work-items", func(r chi.Router) {
				r.Get("/", a.handleWorkItemsList)
				r.Post("/", a.handleWorkItemsCreate)
				r.Route("/{requestID}", func(r chi.Router) {
					r.Get("/", a.handleWorkItemsGet)
					r.Post("/status", a.handleWorkItemStatus)
				})
			})

			pr.Route("/notifications", func(r chi.Router) {
				r.Get("/", a.handleNotificationsList)
				r.Get("/unread-count", a.handleNotificationsUnreadCount)
				r.Post("/read-all", a.handleNotificationsReadAll)
				r.Post("/{notificationID}/read", a.handleNotificationsMarkRead)
				r.Delete("/{notificationID}", a.handleNotificationsDelete)
				r.Get("/preferences", a.handleNotificationPreferences)
				r.Patch("/preferences/{prefID}", a.handleNotificationPreferenceUpdate)
			})

			pr.Route("/units", func(r chi.Router) {
				r.Get("/", a.handleUnitsList)
				r.Route("/{unitID}", func(r chi.Router) {
					r.Get("/", a.handleUnitsGet)
					r.Get("/occupancy", a.handleUnitOccupancy)
				})
			})

			pr.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Get("/logs", a.handleLogsQuery)

			pr.Route("/system", func(r chi.Router) {
				r.Use(a.requireRoles(models.RoleAdmin))
				r.Get("/logs", a.handleSystemLogs)
				r.Get("/logs/stats", a.handleSystemLogStats)
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.Middleware(a.jwtSecret)
}

func (a *API) requireRoles(allowed ...models.RoleName) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[string(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, role := range claims.Roles {
				if _, exists := allowedSet[role]; exists {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient_role")
		})
	}
}

// actorFromRequest extracts the acting user for lifecycle logging.
func actorFromRequest(r *http.Request) maintenance.Actor {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || claims == nil {
		return maintenance.Actor{}
	}
	return maintenance.Actor{ID: claims.UserID, Email: claims.Email}
}

func parsePagination(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
