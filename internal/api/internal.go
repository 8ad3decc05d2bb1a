package api

import (
	"encoding/json"
	"net/http"
)

type createTenantRequest struct {
	TenantID string `json:"tenant_id"`
}

// handleCreateTenant provisions a tenant storage namespace. Repeated
// creation of the same tenant succeeds; the tenant-management service
// retries freely.
func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to decode request body: "+err.Error())
		return
	}

	if err := s.app.ProvisionTenant(req.TenantID); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleDeleteDeviceAuthSets removes every authorization set of a
// physical device. Invoked by the device-authentication service when a
// device is decommissioned there.
func (s *Server) handleDeleteDeviceAuthSets(w http.ResponseWriter, r *http.Request) {
	who, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, r, http.StatusBadRequest, "device_id query parameter is required")
		return
	}

	if err := s.app.DeleteDeviceAuthSets(who, deviceID); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAuthSetPair removes one authorization set addressed by
// its (device_id, auth_set_id) pair.
func (s *Server) handleDeleteAuthSetPair(w http.ResponseWriter, r *http.Request) {
	who, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	err := s.app.DeleteAuthSet(r.Context(), who, r.PathValue("deviceId"), r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
