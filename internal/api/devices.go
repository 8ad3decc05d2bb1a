package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/northgrid/admitd/internal/admission"
	"github.com/northgrid/admitd/pkg/store"
)

type deviceResponse struct {
	ID             string  `json:"id"`
	DeviceID       string  `json:"device_id"`
	DeviceIdentity string  `json:"device_identity"`
	Key            string  `json:"key"`
	Status         string  `json:"status"`
	SequenceNumber int64   `json:"seq_no,omitempty"`
	RequestTime    *string `json:"request_time,omitempty"`
}

type statusBody struct {
	Status string `json:"status"`
}

func deviceToResponse(a *store.AuthSet) deviceResponse {
	resp := deviceResponse{
		ID:             a.ID,
		DeviceID:       a.DeviceID,
		DeviceIdentity: a.IdentityData,
		Key:            a.PublicKey,
		Status:         a.Status,
		SequenceNumber: a.SequenceNumber,
	}
	if a.RequestTime != nil {
		t := a.RequestTime.Format(time.RFC3339)
		resp.RequestTime = &t
	}
	return resp
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	who, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	page, perPage, err := parsePagination(r, s.pageSize)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := r.URL.Query().Get("status")

	// Fetch one extra record to learn whether a next page exists.
	sets, err := s.app.ListDevices(who, status, (page-1)*perPage, perPage+1)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	hasNext := len(sets) > perPage
	if hasNext {
		sets = sets[:perPage]
	}

	for _, l := range pageLinks(r, page, perPage, hasNext) {
		w.Header().Add("Link", l)
	}

	result := make([]deviceResponse, 0, len(sets))
	for i := range sets {
		result = append(result, deviceToResponse(&sets[i]))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePreauthorize(w http.ResponseWriter, r *http.Request) {
	who, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	var req admission.PreauthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to decode request body: "+err.Error())
		return
	}

	aset, err := s.app.Preauthorize(r.Context(), who, req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/devices/"+aset.ID)
	writeJSON(w, http.StatusCreated, deviceToResponse(aset))
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	who, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	aset, err := s.app.GetDevice(who, r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deviceToResponse(aset))
}

func (s *Server) handleSubmitDevice(w http.ResponseWriter, r *http.Request) {
	who, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	var req admission.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to decode request body: "+err.Error())
		return
	}
	req.ID = r.PathValue("id")

	if err := s.app.Submit(r.Context(), who, req); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetDeviceStatus(w http.ResponseWriter, r *http.Request) {
	who, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	aset, err := s.app.GetDevice(who, r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Status: aset.Status})
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	who, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	var body statusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to decode status data: "+err.Error())
		return
	}

	if err := s.app.ChangeStatus(r.Context(), who, r.PathValue("id"), body.Status); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	who, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	if err := s.app.DeleteDevice(r.Context(), who, r.PathValue("id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
