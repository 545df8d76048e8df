package notifications

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/hearthwarden/internal/events"
	"github.com/friendsincode/hearthwarden/internal/models"
)

func notifyTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.NotificationPreference{},
	)
	if err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	svc := NewService(db, events.NewBus(), Config{ReminderCheckInterval: time.Hour}, zerolog.Nop())
	return svc, db
}

func TestNotifyScheduledWork_BodyCarriesWorkDetails(t *testing.T) {
	t.Parallel()

	svc, db := notifyTestService(t)

	tenant := &models.User{ID: uuid.NewString(), Email: "tenant@example.com", Name: "Tenant", Role: models.RoleTenant}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}

	unit := &models.Unit{ID: uuid.NewString(), RoomNumber: "304", Floor: 3, UnitType: "2br"}
	scheduleID := uuid.NewString()
	request := &models.MaintenanceRequest{
		ID:            uuid.NewString(),
		UnitID:        unit.ID,
		TenantID:      tenant.ID,
		Title:         "Smoke detector battery swap",
		Description:   "Replace batteries in all detectors.",
		Category:      models.CategoryElectrical,
		Priority:      models.PriorityHigh,
		Status:        models.RequestStatusPendingConfirmation,
		PreferredTime: "2025-06-15T09:00:00",
		ScheduleID:    &scheduleID,
		EstimatedCost: 25.50,
	}

	if err := svc.NotifyScheduledWork(context.Background(), request, tenant, unit); err != nil {
		t.Fatalf("NotifyScheduledWork: %v", err)
	}

	var stored models.Notification
	if err := db.Where("user_id = ?", tenant.ID).First(&stored).Error; err != nil {
		t.Fatalf("load notification: %v", err)
	}

	for _, want := range []string{
		"Smoke detector battery swap",
		"electrical",
		"high priority",
		"unit 304",
		"floor 3",
		"June 15",
		"Replace batteries in all detectors.",
		"$25.50",
	} {
		if !strings.Contains(stored.Body, want) {
			t.Fatalf("notification body missing %q: %s", want, stored.Body)
		}
	}

	if stored.Metadata["room_number"] != "304" {
		t.Fatalf("expected room number in metadata, got %v", stored.Metadata["room_number"])
	}
	if stored.RequestID == nil || *stored.RequestID != request.ID {
		t.Fatal("expected notification to reference the work item")
	}
}
