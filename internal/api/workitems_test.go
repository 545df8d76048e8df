package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/friendsincode/hearthwarden/internal/models"
)

func TestWorkItemsList_TenantSeesOnlyOwn(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	unitA, tenantA := h.seedOccupiedUnit(t, "101")
	unitB, tenantB := h.seedOccupiedUnit(t, "102")

	create := func(token, unitID string) models.MaintenanceRequest {
		rr := h.do(t, "POST", "/api/v1/work-items", token, map[string]any{
			"unit_id":     unitID,
			"title":       "Dripping kitchen faucet",
			"description": "Slow drip under the sink",
			"category":    "plumbing",
			"priority":    "low",
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("create work item: expected 201, got %d body=%s", rr.Code, rr.Body.String())
		}
		var req models.MaintenanceRequest
		if err := json.NewDecoder(rr.Body).Decode(&req); err != nil {
			t.Fatalf("decode work item: %v", err)
		}
		return req
	}

	tokenA := h.token(t, tenantA, models.RoleTenant)
	tokenB := h.token(t, tenantB, models.RoleTenant)
	itemA := create(tokenA, unitA)
	itemB := create(tokenB, unitB)

	if itemA.Status != models.RequestStatusSubmitted {
		t.Fatalf("tenant-created item should start submitted, got %q", itemA.Status)
	}

	rr := h.do(t, "GET", "/api/v1/work-items", tokenA, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rr.Code)
	}
	var listed struct {
		WorkItems []models.MaintenanceRequest `json:"work_items"`
		Total     int64                       `json:"total"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if listed.Total != 1 || len(listed.WorkItems) != 1 {
		t.Fatalf("tenant A should see exactly their own item, got total=%d", listed.Total)
	}
	if listed.WorkItems[0].ID != itemA.ID {
		t.Fatalf("tenant A saw someone else's item")
	}

	// Direct fetch of another tenant's item looks like it does not exist.
	rr = h.do(t, "GET", "/api/v1/work-items/"+itemB.ID, tokenA, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant get: expected 404, got %d", rr.Code)
	}

	// Managers see everything.
	rr = h.do(t, "GET", "/api/v1/work-items", h.token(t, "mgr-1", models.RoleManager), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("manager list: expected 200, got %d", rr.Code)
	}
	if err := json.NewDecoder(rr.Body).Decode(&listed); err != nil {
		t.Fatalf("decode manager list: %v", err)
	}
	if listed.Total != 2 {
		t.Fatalf("manager should see both items, got total=%d", listed.Total)
	}
}

func TestWorkItemStatus_RequiresManagerRole(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	unitID, tenantID := h.seedOccupiedUnit(t, "101")
	tenantToken := h.token(t, tenantID, models.RoleTenant)

	rr := h.do(t, "POST", "/api/v1/work-items", tenantToken, map[string]any{
		"unit_id":  unitID,
		"title":    "Broken hallway light",
		"category": "electrical",
		"priority": "medium",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rr.Code)
	}
	var item models.MaintenanceRequest
	if err := json.NewDecoder(rr.Body).Decode(&item); err != nil {
		t.Fatalf("decode: %v", err)
	}

	statusBody := map[string]any{"status": "approved"}

	rr = h.do(t, "POST", "/api/v1/work-items/"+item.ID+"/status", tenantToken, statusBody)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("tenant status change: expected 403, got %d", rr.Code)
	}

	mgrToken := h.token(t, "mgr-1", models.RoleManager)
	rr = h.do(t, "POST", "/api/v1/work-items/"+item.ID+"/status", mgrToken, statusBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("manager status change: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var updated models.MaintenanceRequest
	if err := json.NewDecoder(rr.Body).Decode(&updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.Status != models.RequestStatusApproved {
		t.Fatalf("expected approved, got %q", updated.Status)
	}
}

func TestWorkItemStatus_CompletionStampsTimeOnce(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	unitID, tenantID := h.seedOccupiedUnit(t, "101")

	rr := h.do(t, "POST", "/api/v1/work-items", h.token(t, tenantID, models.RoleTenant), map[string]any{
		"unit_id":  unitID,
		"title":    "Clogged bathroom drain",
		"category": "plumbing",
		"priority": "high",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rr.Code)
	}
	var item models.MaintenanceRequest
	if err := json.NewDecoder(rr.Body).Decode(&item); err != nil {
		t.Fatalf("decode: %v", err)
	}

	mgr := h.token(t, "mgr-1", models.RoleManager)
	complete := func() models.MaintenanceRequest {
		rr := h.do(t, "POST", "/api/v1/work-items/"+item.ID+"/status", mgr, map[string]any{
			"status":          "completed",
			"completion_note": "Snaked the drain",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("complete: expected 200, got %d body=%s", rr.Code, rr.Body.String())
		}
		var updated models.MaintenanceRequest
		if err := json.NewDecoder(rr.Body).Decode(&updated); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return updated
	}

	first := complete()
	if first.CompletedAt == nil {
		t.Fatal("expected completed_at to be stamped")
	}

	time.Sleep(10 * time.Millisecond)
	second := complete()
	if second.CompletedAt == nil || !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Fatalf("completed_at should not move on repeat completion: %v vs %v", first.CompletedAt, second.CompletedAt)
	}

	rr = h.do(t, "POST", "/api/v1/work-items/"+item.ID+"/status", mgr, map[string]any{"status": "bogus"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid status: expected 400, got %d", rr.Code)
	}
}
