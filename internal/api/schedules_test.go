package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/hearthwarden/internal/audit"
	"github.com/friendsincode/hearthwarden/internal/auth"
	"github.com/friendsincode/hearthwarden/internal/directory"
	"github.com/friendsincode/hearthwarden/internal/events"
	"github.com/friendsincode/hearthwarden/internal/maintenance"
	"github.com/friendsincode/hearthwarden/internal/models"
	"github.com/friendsincode/hearthwarden/internal/notifications"
)

var testSecret = []byte("api-test-secret")

type apiHarness struct {
	db     *gorm.DB
	router chi.Router
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Unit{},
		&models.Lease{},
		&models.MaintenanceSchedule{},
		&models.MaintenanceRequest{},
		&models.ScheduleLog{},
		&models.NotificationPreference{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	logger := zerolog.Nop()
	bus := events.NewBus()
	dir := directory.New(db, nil, bus, logger)
	logs := audit.NewService(db, bus, logger)
	notify := notifications.NewService(db, bus, notifications.Config{ReminderCheckInterval: time.Hour}, logger)
	slots := maintenance.NewSlotAllocator(db)
	factory := maintenance.NewWorkItemFactory(db, slots, dir, logs, notify, bus, logger)
	targets := maintenance.NewTargetResolver(dir, logger)
	svc := maintenance.NewService(db, targets, factory, logs, bus, logger)

	a := New(db, testSecret, svc, factory, dir, notify, logs, nil, bus, logger)
	router := chi.NewRouter()
	a.Routes(router)

	return &apiHarness{db: db, router: router}
}

func (h *apiHarness) token(t *testing.T, userID string, role models.RoleName) string {
	t.Helper()
	tok, err := auth.Issue(testSecret, auth.Claims{
		UserID: userID,
		Email:  userID + "@example.com",
		Roles:  []string{string(role)},
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func (h *apiHarness) seedOccupiedUnit(t *testing.T, room string) (unitID, tenantID string) {
	t.Helper()

	unitID = uuid.NewString()
	if err := h.db.Create(&models.Unit{
		ID: unitID, RoomNumber: room, Floor: 1, UnitType: "studio",
	}).Error; err != nil {
		t.Fatalf("seed unit: %v", err)
	}

	tenantID = uuid.NewString()
	if err := h.db.Create(&models.User{
		ID: tenantID, Email: fmt.Sprintf("tenant-%s@example.com", room),
		Name: "Tenant " + room, Role: models.RoleTenant,
	}).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	if err := h.db.Create(&models.Lease{
		ID: uuid.NewString(), UnitID: unitID, TenantID: tenantID,
		Status: models.LeaseStatusActive, StartDate: time.Now().AddDate(0, -6, 0),
	}).Error; err != nil {
		t.Fatalf("seed lease: %v", err)
	}
	return unitID, tenantID
}

func scheduleBody(start time.Time) map[string]any {
	return map[string]any{
		"title":               "Annual boiler inspection",
		"category":            "hvac",
		"priority":            "medium",
		"recurrence_type":     "monthly",
		"recurrence_interval": 1,
		"target_type":         "all_units",
		"start_date":          start.Format("2006-01-02"),
	}
}

func TestSchedulesCreate_RequiresManagerRole(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	body := scheduleBody(time.Now().AddDate(0, 0, 14))

	rr := h.do(t, "POST", "/api/v1/schedules", h.token(t, "tenant-1", models.RoleTenant), body)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("tenant create: expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = h.do(t, "POST", "/api/v1/schedules", h.token(t, "mgr-1", models.RoleManager), body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("manager create: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	var created models.MaintenanceSchedule
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected schedule ID in response")
	}
	if created.State != models.ScheduleStateActive {
		t.Fatalf("expected active state, got %q", created.State)
	}
	if created.NextTriggerAt == nil {
		t.Fatal("expected next trigger to be set")
	}
}

func TestSchedulesRequireAuth(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)

	rr := h.do(t, "GET", "/api/v1/schedules", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	rr = h.do(t, "GET", "/api/v1/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz should be public, got %d", rr.Code)
	}
}

func TestScheduleTrigger_FansOutWorkItems(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	h.seedOccupiedUnit(t, "101")
	h.seedOccupiedUnit(t, "102")

	mgr := h.token(t, "mgr-1", models.RoleManager)

	rr := h.do(t, "POST", "/api/v1/schedules", mgr, scheduleBody(time.Now().AddDate(0, 0, 14)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created models.MaintenanceSchedule
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}

	rr = h.do(t, "POST", "/api/v1/schedules/"+created.ID+"/trigger", mgr, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("trigger: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var result maintenance.TriggerResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode trigger result: %v", err)
	}
	if result.UnitsResolved != 2 || result.ItemsCreated != 2 {
		t.Fatalf("expected 2 units / 2 items, got %d / %d", result.UnitsResolved, result.ItemsCreated)
	}
	if result.Failures != 0 {
		t.Fatalf("expected no failures, got %d", result.Failures)
	}

	var count int64
	if err := h.db.Model(&models.MaintenanceRequest{}).Where("schedule_id = ?", created.ID).Count(&count).Error; err != nil {
		t.Fatalf("count requests: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 persisted work items, got %d", count)
	}
}

func TestSchedulePauseBlocksTrigger(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	h.seedOccupiedUnit(t, "101")

	mgr := h.token(t, "mgr-1", models.RoleManager)

	rr := h.do(t, "POST", "/api/v1/schedules", mgr, scheduleBody(time.Now().AddDate(0, 0, 14)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rr.Code)
	}
	var created models.MaintenanceSchedule
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}

	rr = h.do(t, "POST", "/api/v1/schedules/"+created.ID+"/pause", mgr, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("pause: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = h.do(t, "POST", "/api/v1/schedules/"+created.ID+"/trigger", mgr, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("trigger while paused: expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestScheduleGet_UnknownIDReturns404(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	rr := h.do(t, "GET", "/api/v1/schedules/"+uuid.NewString(), h.token(t, "mgr-1", models.RoleManager), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
