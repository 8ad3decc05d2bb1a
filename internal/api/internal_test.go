package api

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestCreateTenant(t *testing.T) {
	mux, _ := setupTestServer(t)

	body := map[string]string{"tenant_id": "acme"}
	w := doJSON(t, mux, "POST", "/api/internal/v1/tenants", "", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	// creating the same tenant again is fine
	w = doJSON(t, mux, "POST", "/api/internal/v1/tenants", "", body)
	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201 on repeat, got %d", w.Code)
	}
}

func TestCreateTenantInvalid(t *testing.T) {
	mux, _ := setupTestServer(t)

	for _, id := range []string{"", "no/slashes", "no spaces"} {
		w := doJSON(t, mux, "POST", "/api/internal/v1/tenants", "", map[string]string{"tenant_id": id})
		if w.Code != http.StatusBadRequest {
			t.Errorf("tenant %q: expected status 400, got %d", id, w.Code)
		}
	}
}

func TestDeleteDeviceAuthSets(t *testing.T) {
	mux, _ := setupTestServer(t)

	// two auth sets for the same device, one for another
	for _, tc := range []struct{ id, dev, serial string }{
		{"aset-int-1", "dev-gone", "sn-int-1"},
		{"aset-int-2", "dev-gone", "sn-int-2"},
		{"aset-int-3", "dev-kept", "sn-int-3"},
	} {
		w := doJSON(t, mux, "PUT", "/api/v1/devices/"+tc.id, "", map[string]interface{}{
			"device_id":       tc.dev,
			"device_identity": `{"serial":"` + tc.serial + `"}`,
			"key":             testKey(t),
		})
		if w.Code != http.StatusNoContent {
			t.Fatalf("submit %s: expected status 204, got %d", tc.id, w.Code)
		}
	}

	w := doJSON(t, mux, "DELETE", "/api/internal/v1/devices?device_id=dev-gone", "", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}

	w = doJSON(t, mux, "GET", "/api/v1/devices", "", nil)
	var devs []deviceResponse
	if err := json.NewDecoder(w.Body).Decode(&devs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(devs) != 1 || devs[0].ID != "aset-int-3" {
		t.Errorf("unexpected remaining devices: %+v", devs)
	}

	// missing device_id
	w = doJSON(t, mux, "DELETE", "/api/internal/v1/devices", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestDeleteAuthSetPair(t *testing.T) {
	mux, _ := setupTestServer(t)

	submitDevice(t, mux, "", "aset-pair-1", "sn-pair-1")

	// mismatched device id is a no-op
	w := doJSON(t, mux, "DELETE", "/api/internal/v1/devices/dev-wrong/auth/aset-pair-1", "", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	w = doJSON(t, mux, "GET", "/api/v1/devices/aset-pair-1", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected record kept after mismatched delete, got %d", w.Code)
	}

	w = doJSON(t, mux, "DELETE", "/api/internal/v1/devices/dev-aset-pair-1/auth/aset-pair-1", "", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	w = doJSON(t, mux, "GET", "/api/v1/devices/aset-pair-1", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after delete, got %d", w.Code)
	}
}
