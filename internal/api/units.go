/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/hearthwarden/internal/directory"
)

func (a *API) handleUnitsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if v := r.URL.Query().Get("floor"); v != "" {
		floor, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_floor")
			return
		}
		units, err := a.dir.UnitsOnFloor(ctx, floor)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"units": units})
		return
	}

	if v := r.URL.Query().Get("unit_type"); v != "" {
		units, err := a.dir.UnitsOfType(ctx, v)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"units": units})
		return
	}

	units, err := a.dir.ListUnits(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("list units failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": units})
}

func (a *API) handleUnitsGet(w http.ResponseWriter, r *http.Request) {
	unit, err := a.dir.GetUnit(r.Context(), chi.URLParam(r, "unitID"))
	if err != nil {
		if errors.Is(err, directory.ErrUnitNotFound) {
			writeError(w, http.StatusNotFound, "unit_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

func (a *API) handleUnitOccupancy(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "unitID")
	if _, err := a.dir.GetUnit(r.Context(), unitID); err != nil {
		if errors.Is(err, directory.ErrUnitNotFound) {
			writeError(w, http.StatusNotFound, "unit_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	occ, err := a.dir.Occupancy(r.Context(), unitID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"unit_id":   occ.UnitID,
		"occupied":  occ.Occupied,
		"tenant_id": occ.TenantID,
	})
}
