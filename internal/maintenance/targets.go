/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package maintenance

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/hearthwarden/internal/models"
)

// UnitDirectory is the slice of the directory service the target
// resolver needs.
type UnitDirectory interface {
	ListUnits(ctx context.Context) ([]models.Unit, error)
	UnitsOnFloor(ctx context.Context, floor int) ([]models.Unit, error)
	UnitsOfType(ctx context.Context, unitType string) ([]models.Unit, error)
	GetUnits(ctx context.Context, unitIDs []string) ([]models.Unit, error)
	IsOccupied(ctx context.Context, unitID string) (bool, error)
}

// TargetResolver expands a schedule's target rule into concrete units.
type TargetResolver struct {
	dir    UnitDirectory
	logger zerolog.Logger
}

// NewTargetResolver creates a target resolver.
func NewTargetResolver(dir UnitDirectory, logger zerolog.Logger) *TargetResolver {
	return &TargetResolver{
		dir:    dir,
		logger: logger.With().Str("component", "targets").Logger(),
	}
}

// Resolve returns the occupied units a schedule applies to. Malformed
// target payloads yield an empty set rather than an error so one bad
// schedule cannot abort a sweep; vacant units are always filtered out
// because generated work items need a tenant to confirm the visit.
func (r *TargetResolver) Resolve(ctx context.Context, s *models.MaintenanceSchedule) ([]models.Unit, error) {
	candidates, err := r.candidates(ctx, s)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(candidates))
	occupied := make([]models.Unit, 0, len(candidates))
	for _, unit := range candidates {
		if _, dup := seen[unit.ID]; dup {
			continue
		}
		seen[unit.ID] = struct{}{}

		ok, err := r.dir.IsOccupied(ctx, unit.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			occupied = append(occupied, unit)
		}
	}
	return occupied, nil
}

func (r *TargetResolver) candidates(ctx context.Context, s *models.MaintenanceSchedule) ([]models.Unit, error) {
	switch s.TargetType {
	case models.TargetAllUnits:
		return r.dir.ListUnits(ctx)

	case models.TargetFloor:
		floor, err := strconv.Atoi(strings.TrimSpace(s.TargetPayload))
		if err != nil {
			r.logger.Warn().
				Str("schedule_id", s.ID).
				Str("payload", s.TargetPayload).
				Msg("unparseable floor target, resolving to no units")
			return nil, nil
		}
		return r.dir.UnitsOnFloor(ctx, floor)

	case models.TargetUnitType:
		unitType := strings.TrimSpace(s.TargetPayload)
		if unitType == "" {
			return nil, nil
		}
		return r.dir.UnitsOfType(ctx, unitType)

	case models.TargetSpecificUnits:
		var ids []string
		if err := json.Unmarshal([]byte(s.TargetPayload), &ids); err != nil {
			r.logger.Warn().
				Str("schedule_id", s.ID).
				Err(err).
				Msg("unparseable unit list target, resolving to no units")
			return nil, nil
		}
		return r.dir.GetUnits(ctx, ids)

	default:
		r.logger.Warn().
			Str("schedule_id", s.ID).
			Str("target_type", string(s.TargetType)).
			Msg("unknown target type, resolving to no units")
		return nil, nil
	}
}
