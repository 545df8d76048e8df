package maintenance

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/hearthwarden/internal/models"
)

type fakeDirectory struct {
	units    []models.Unit
	occupied map[string]bool
}

func (f *fakeDirectory) ListUnits(ctx context.Context) ([]models.Unit, error) {
	return f.units, nil
}

func (f *fakeDirectory) UnitsOnFloor(ctx context.Context, floor int) ([]models.Unit, error) {
	var out []models.Unit
	for _, u := range f.units {
		if u.Floor == floor {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeDirectory) UnitsOfType(ctx context.Context, unitType string) ([]models.Unit, error) {
	var out []models.Unit
	for _, u := range f.units {
		if u.UnitType == unitType {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeDirectory) GetUnits(ctx context.Context, unitIDs []string) ([]models.Unit, error) {
	want := make(map[string]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		want[id] = struct{}{}
	}
	var out []models.Unit
	for _, u := range f.units {
		if _, ok := want[u.ID]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeDirectory) IsOccupied(ctx context.Context, unitID string) (bool, error) {
	return f.occupied[unitID], nil
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{
		units: []models.Unit{
			{ID: "u1", RoomNumber: "101", Floor: 1, UnitType: "studio"},
			{ID: "u2", RoomNumber: "102", Floor: 1, UnitType: "1br"},
			{ID: "u3", RoomNumber: "201", Floor: 2, UnitType: "studio"},
			{ID: "u4", RoomNumber: "202", Floor: 2, UnitType: "2br"},
			{ID: "u5", RoomNumber: "301", Floor: 3, UnitType: "2br"},
		},
		occupied: map[string]bool{"u1": true, "u3": true, "u5": true},
	}
}

func TestTargetResolver_AllUnitsFiltersVacant(t *testing.T) {
	t.Parallel()

	r := NewTargetResolver(testDirectory(), zerolog.Nop())
	units, err := r.Resolve(context.Background(), &models.MaintenanceSchedule{
		TargetType: models.TargetAllUnits,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("expected 3 occupied units, got %d", len(units))
	}
	for _, u := range units {
		if u.ID == "u2" || u.ID == "u4" {
			t.Fatalf("vacant unit %s must be filtered out", u.ID)
		}
	}
}

func TestTargetResolver_Floor(t *testing.T) {
	t.Parallel()

	r := NewTargetResolver(testDirectory(), zerolog.Nop())
	units, err := r.Resolve(context.Background(), &models.MaintenanceSchedule{
		TargetType:    models.TargetFloor,
		TargetPayload: "2",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// Floor 2 has u3 (occupied) and u4 (vacant).
	if len(units) != 1 || units[0].ID != "u3" {
		t.Fatalf("expected only u3, got %v", units)
	}
}

func TestTargetResolver_BadFloorPayloadResolvesEmpty(t *testing.T) {
	t.Parallel()

	r := NewTargetResolver(testDirectory(), zerolog.Nop())
	units, err := r.Resolve(context.Background(), &models.MaintenanceSchedule{
		ID:            "s1",
		TargetType:    models.TargetFloor,
		TargetPayload: "penthouse",
	})
	if err != nil {
		t.Fatalf("bad payload must not error: %v", err)
	}
	if len(units) != 0 {
		t.Fatalf("expected no units for unparseable floor, got %d", len(units))
	}
}

func TestTargetResolver_SpecificUnitsDeduplicates(t *testing.T) {
	t.Parallel()

	r := NewTargetResolver(testDirectory(), zerolog.Nop())
	units, err := r.Resolve(context.Background(), &models.MaintenanceSchedule{
		TargetType:    models.TargetSpecificUnits,
		TargetPayload: `["u1","u1","u5","missing"]`,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected u1 and u5 once each, got %v", units)
	}
}

func TestTargetResolver_BadUnitListResolvesEmpty(t *testing.T) {
	t.Parallel()

	r := NewTargetResolver(testDirectory(), zerolog.Nop())
	units, err := r.Resolve(context.Background(), &models.MaintenanceSchedule{
		ID:            "s1",
		TargetType:    models.TargetSpecificUnits,
		TargetPayload: "not json",
	})
	if err != nil {
		t.Fatalf("bad payload must not error: %v", err)
	}
	if len(units) != 0 {
		t.Fatalf("expected no units for unparseable list, got %d", len(units))
	}
}

func TestTargetResolver_UnitType(t *testing.T) {
	t.Parallel()

	r := NewTargetResolver(testDirectory(), zerolog.Nop())
	units, err := r.Resolve(context.Background(), &models.MaintenanceSchedule{
		TargetType:    models.TargetUnitType,
		TargetPayload: "2br",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// 2br units are u4 (vacant) and u5 (occupied).
	if len(units) != 1 || units[0].ID != "u5" {
		t.Fatalf("expected only u5, got %v", units)
	}
}
