/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package directory resolves units, occupancy and users for the
// maintenance engine. Reads go through the Redis cache when available
// and fall back to the database on a miss.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/hearthwarden/internal/cache"
	"github.com/friendsincode/hearthwarden/internal/events"
	"github.com/friendsincode/hearthwarden/internal/models"
)

// ErrUnitNotFound is returned when a unit ID does not resolve.
var ErrUnitNotFound = errors.New("unit not found")

// Occupancy describes the occupancy state of a unit.
type Occupancy struct {
	UnitID      string
	Occupied    bool
	TenantID    string
	TenantEmail string
	TenantName  string
}

// Service answers unit and tenant lookups.
type Service struct {
	db     *gorm.DB
	cache  *cache.Cache
	bus    *events.Bus
	logger zerolog.Logger
}

// New creates a directory service. The cache may be nil.
func New(db *gorm.DB, c *cache.Cache, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		cache:  c,
		bus:    bus,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

// Start subscribes to invalidation events. Blocks until ctx is done.
func (s *Service) Start(ctx context.Context) {
	if s.bus == nil {
		return
	}

	unitCh := s.bus.Subscribe(events.EventUnitUpdated)
	leaseCh := s.bus.Subscribe(events.EventLeaseUpdated)
	defer s.bus.Unsubscribe(events.EventUnitUpdated, unitCh)
	defer s.bus.Unsubscribe(events.EventLeaseUpdated, leaseCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-unitCh:
			s.invalidateUnitList(ctx)
		case payload := <-leaseCh:
			unitID, _ := payload["unit_id"].(string)
			s.invalidateOccupancy(ctx, unitID)
		}
	}
}

func (s *Service) invalidateUnitList(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUnitList(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("failed to invalidate unit list cache")
	}
}

func (s *Service) invalidateOccupancy(ctx context.Context, unitID string) {
	if s.cache == nil || unitID == "" {
		return
	}
	if err := s.cache.InvalidateOccupancy(ctx, unitID); err != nil {
		s.logger.Debug().Err(err).Str("unit_id", unitID).Msg("failed to invalidate occupancy cache")
	}
}

// ListUnits returns all units, cache-aside.
func (s *Service) ListUnits(ctx context.Context) ([]models.Unit, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetUnitList(ctx); ok {
			return cachedToUnits(cached), nil
		}
	}

	var units []models.Unit
	if err := s.db.WithContext(ctx).Order("room_number ASC").Find(&units).Error; err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetUnitList(ctx, unitsToCached(units)); err != nil {
			s.logger.Debug().Err(err).Msg("failed to cache unit list")
		}
	}

	return units, nil
}

// UnitsOnFloor returns all units on the given floor.
func (s *Service) UnitsOnFloor(ctx context.Context, floor int) ([]models.Unit, error) {
	var units []models.Unit
	if err := s.db.WithContext(ctx).
		Where("floor = ?", floor).
		Order("room_number ASC").
		Find(&units).Error; err != nil {
		return nil, fmt.Errorf("list units on floor %d: %w", floor, err)
	}
	return units, nil
}

// UnitsOfType returns all units of the given type. Matching is
// case-insensitive.
func (s *Service) UnitsOfType(ctx context.Context, unitType string) ([]models.Unit, error) {
	var units []models.Unit
	if err := s.db.WithContext(ctx).
		Where("LOWER(unit_type) = ?", strings.ToLower(unitType)).
		Order("room_number ASC").
		Find(&units).Error; err != nil {
		return nil, fmt.Errorf("list units of type %q: %w", unitType, err)
	}
	return units, nil
}

// GetUnit returns a single unit by ID.
func (s *Service) GetUnit(ctx context.Context, unitID string) (*models.Unit, error) {
	var unit models.Unit
	if err := s.db.WithContext(ctx).First(&unit, "id = ?", unitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnitNotFound
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return &unit, nil
}

// GetUnits returns the units matching the given IDs. Unknown IDs are
// silently dropped.
func (s *Service) GetUnits(ctx context.Context, unitIDs []string) ([]models.Unit, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}
	var units []models.Unit
	if err := s.db.WithContext(ctx).
		Where("id IN ?", unitIDs).
		Order("room_number ASC").
		Find(&units).Error; err != nil {
		return nil, fmt.Errorf("get units: %w", err)
	}
	return units, nil
}

// Occupancy returns the occupancy state of a unit: occupied exactly when
// an active lease exists, along with the tenant on that lease.
func (s *Service) Occupancy(ctx context.Context, unitID string) (*Occupancy, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetOccupancy(ctx, unitID); ok {
			return &Occupancy{
				UnitID:      cached.UnitID,
				Occupied:    cached.Occupied,
				TenantID:    cached.TenantID,
				TenantEmail: cached.TenantEmail,
				TenantName:  cached.TenantName,
			}, nil
		}
	}

	var lease models.Lease
	err := s.db.WithContext(ctx).
		Preload("Tenant").
		Where("unit_id = ? AND status = ?", unitID, models.LeaseStatusActive).
		Order("start_date DESC").
		First(&lease).Error

	occ := &Occupancy{UnitID: unitID}
	switch {
	case err == nil:
		occ.Occupied = true
		occ.TenantID = lease.TenantID
		if lease.Tenant != nil {
			occ.TenantEmail = lease.Tenant.Email
			occ.TenantName = lease.Tenant.Name
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// vacant
	default:
		return nil, fmt.Errorf("lookup occupancy: %w", err)
	}

	if s.cache != nil {
		cached := &cache.CachedOccupancy{
			UnitID:      occ.UnitID,
			Occupied:    occ.Occupied,
			TenantID:    occ.TenantID,
			TenantEmail: occ.TenantEmail,
			TenantName:  occ.TenantName,
		}
		if err := s.cache.SetOccupancy(ctx, cached); err != nil {
			s.logger.Debug().Err(err).Str("unit_id", unitID).Msg("failed to cache occupancy")
		}
	}

	return occ, nil
}

// IsOccupied reports whether the unit has an active lease.
func (s *Service) IsOccupied(ctx context.Context, unitID string) (bool, error) {
	occ, err := s.Occupancy(ctx, unitID)
	if err != nil {
		return false, err
	}
	return occ.Occupied, nil
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// ResolveUserByEmail returns the user with the given email, or nil when
// no such user exists.
func (s *Service) ResolveUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user by email: %w", err)
	}
	return &user, nil
}

func unitsToCached(units []models.Unit) []cache.CachedUnit {
	out := make([]cache.CachedUnit, 0, len(units))
	for _, u := range units {
		out = append(out, cache.CachedUnit{
			ID:         u.ID,
			RoomNumber: u.RoomNumber,
			Floor:      u.Floor,
			UnitType:   u.UnitType,
		})
	}
	return out
}

func cachedToUnits(cached []cache.CachedUnit) []models.Unit {
	out := make([]models.Unit, 0, len(cached))
	for _, c := range cached {
		out = append(out, models.Unit{
			ID:         c.ID,
			RoomNumber: c.RoomNumber,
			Floor:      c.Floor,
			UnitType:   c.UnitType,
		})
	}
	return out
}
