package maintenance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/hearthwarden/internal/models"
)

func slotTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.MaintenanceRequest{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestSlotAllocator_FirstFreeSlot(t *testing.T) {
	t.Parallel()

	db := slotTestDB(t)
	a := NewSlotAllocator(db)
	day := time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC)

	slot, err := a.FindAvailableSlot(context.Background(), "u1", day)
	if err != nil {
		t.Fatalf("FindAvailableSlot: %v", err)
	}
	if slot != "2025-06-16T09:00:00" {
		t.Fatalf("expected first slot of the day, got %q", slot)
	}

	// Book 09:00 and the allocator moves to 10:00.
	db.Create(&models.MaintenanceRequest{
		ID: "r1", UnitID: "u1", Title: "x",
		Status: models.RequestStatusSubmitted, PreferredTime: slot,
	})

	slot, err = a.FindAvailableSlot(context.Background(), "u1", day)
	if err != nil {
		t.Fatalf("FindAvailableSlot: %v", err)
	}
	if slot != "2025-06-16T10:00:00" {
		t.Fatalf("expected 10:00 slot, got %q", slot)
	}
}

func TestSlotAllocator_FullDayOverflowsToFirstSlot(t *testing.T) {
	t.Parallel()

	db := slotTestDB(t)
	a := NewSlotAllocator(db)
	day := time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC)

	for hour := 9; hour <= 17; hour++ {
		db.Create(&models.MaintenanceRequest{
			ID: fmt.Sprintf("r%d", hour), UnitID: "u1", Title: "x",
			Status:        models.RequestStatusInProgress,
			PreferredTime: FormatSlot(day, hour),
		})
	}

	slot, err := a.FindAvailableSlot(context.Background(), "u1", day)
	if err != nil {
		t.Fatalf("FindAvailableSlot: %v", err)
	}
	if slot != "2025-06-16T09:00:00" {
		t.Fatalf("expected overflow to first slot, got %q", slot)
	}
}

func TestSlotAllocator_ScanCountsEveryStatus(t *testing.T) {
	t.Parallel()

	db := slotTestDB(t)
	a := NewSlotAllocator(db)
	day := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)

	// A pending-confirmation item does not count as an open conflict,
	// but the availability scan must still step around it so a second
	// fan-out on the same day is not handed the same hour.
	db.Create(&models.MaintenanceRequest{
		ID: "r1", UnitID: "u1", Title: "x",
		Status:        models.RequestStatusPendingConfirmation,
		PreferredTime: FormatSlot(day, 9),
	})

	slot, err := a.FindAvailableSlot(context.Background(), "u1", day)
	if err != nil {
		t.Fatalf("FindAvailableSlot: %v", err)
	}
	if slot != "2025-06-15T10:00:00" {
		t.Fatalf("expected 10:00 slot, got %q", slot)
	}
}

func TestSlotAllocator_ClosedRequestsReleaseTheirSlot(t *testing.T) {
	t.Parallel()

	db := slotTestDB(t)
	a := NewSlotAllocator(db)
	day := time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC)
	slot := FormatSlot(day, 9)

	for i, status := range []models.RequestStatus{
		models.RequestStatusCompleted,
		models.RequestStatusCancelled,
		models.RequestStatusPendingConfirmation,
		models.RequestStatusApproved,
	} {
		db.Create(&models.MaintenanceRequest{
			ID: fmt.Sprintf("r%d", i), UnitID: "u1", Title: "x",
			Status: status, PreferredTime: slot,
		})
	}

	conflict, err := a.HasConflict(context.Background(), "u1", slot)
	if err != nil {
		t.Fatalf("HasConflict: %v", err)
	}
	if conflict {
		t.Fatal("non-open requests must not hold their slot")
	}

	db.Create(&models.MaintenanceRequest{
		ID: "open", UnitID: "u1", Title: "x",
		Status: models.RequestStatusSubmitted, PreferredTime: slot,
	})

	conflict, err = a.HasConflict(context.Background(), "u1", slot)
	if err != nil {
		t.Fatalf("HasConflict: %v", err)
	}
	if !conflict {
		t.Fatal("submitted request must hold its slot")
	}
}

func TestSlotAllocator_ConflictIsPerUnit(t *testing.T) {
	t.Parallel()

	db := slotTestDB(t)
	a := NewSlotAllocator(db)
	day := time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC)
	slot := FormatSlot(day, 9)

	db.Create(&models.MaintenanceRequest{
		ID: "r1", UnitID: "u1", Title: "x",
		Status: models.RequestStatusSubmitted, PreferredTime: slot,
	})

	conflict, err := a.HasConflict(context.Background(), "u2", slot)
	if err != nil {
		t.Fatalf("HasConflict: %v", err)
	}
	if conflict {
		t.Fatal("a booking on one unit must not block another unit")
	}
}
