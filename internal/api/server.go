// Package api exposes the device admission service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/northgrid/admitd/internal/admission"
	"github.com/northgrid/admitd/internal/identity"
	"github.com/northgrid/admitd/internal/version"
	"github.com/northgrid/admitd/pkg/devauth"
	"github.com/northgrid/admitd/pkg/keys"
	"github.com/northgrid/admitd/pkg/netutil"
	"github.com/northgrid/admitd/pkg/store"
)

// Server is the HTTP API server.
type Server struct {
	app      *admission.Admitter
	ids      *identity.Parser
	pageSize int
}

// ServerConfig holds configuration options for the API server.
type ServerConfig struct {
	// PageSize is the default device listing page size. Defaults to 20.
	PageSize int
	// TokenSecret enables HMAC verification of inbound tokens when set.
	TokenSecret string
}

// NewServer creates a new API server with default configuration.
func NewServer(app *admission.Admitter) *Server {
	return NewServerWithConfig(app, ServerConfig{})
}

// NewServerWithConfig creates a new API server with the given configuration.
func NewServerWithConfig(app *admission.Admitter, cfg ServerConfig) *Server {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	return &Server{
		app:      app,
		ids:      identity.NewParser(cfg.TokenSecret),
		pageSize: cfg.PageSize,
	}
}

// RegisterRoutes registers all API routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Management routes
	mux.HandleFunc("GET /api/v1/devices", s.handleListDevices)
	mux.HandleFunc("POST /api/v1/devices", s.handlePreauthorize)
	mux.HandleFunc("GET /api/v1/devices/{id}", s.handleGetDevice)
	mux.HandleFunc("PUT /api/v1/devices/{id}", s.handleSubmitDevice)
	mux.HandleFunc("DELETE /api/v1/devices/{id}", s.handleDeleteDevice)
	mux.HandleFunc("GET /api/v1/devices/{id}/status", s.handleGetDeviceStatus)
	mux.HandleFunc("PUT /api/v1/devices/{id}/status", s.handleChangeStatus)

	// Internal routes (service-to-service)
	mux.HandleFunc("POST /api/internal/v1/tenants", s.handleCreateTenant)
	mux.HandleFunc("DELETE /api/internal/v1/devices", s.handleDeleteDeviceAuthSets)
	mux.HandleFunc("DELETE /api/internal/v1/devices/{deviceId}/auth/{id}", s.handleDeleteAuthSetPair)

	// Health routes
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// callerIdentity resolves the request's identity. A missing token means
// the default namespace; a malformed or badly signed one is rejected.
func (s *Server) callerIdentity(w http.ResponseWriter, r *http.Request) (*identity.Identity, bool) {
	id, err := s.ids.FromRequest(r)
	if errors.Is(err, identity.ErrNoToken) {
		return &identity.Identity{}, true
	}
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid identity token")
		return nil, false
	}
	return id, true
}

// writeAppError maps admission-layer failures onto HTTP statuses.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrIdentityExists):
		writeError(w, r, http.StatusConflict, "device identity already exists")
	case errors.Is(err, admission.ErrPreauthTransition):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, admission.ErrBadTransition):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, keys.ErrCannotDecode):
		writeError(w, r, http.StatusBadRequest, keys.ErrCannotDecode.Error())
	case errors.Is(err, admission.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, devauth.ErrGateway):
		writeError(w, r, http.StatusBadGateway, "device authentication service unavailable")
	default:
		writeInternalError(w, r, err, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	log.Printf("ERROR: %s %s: %s", r.Method, r.URL.Path, message)
	writeJSON(w, status, map[string]string{"error": message})
}

// writeInternalError logs the detailed error internally and returns a
// generic message to the client.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error, genericMsg string) {
	log.Printf("ERROR: %s %s: %s: %v", r.Method, r.URL.Path, genericMsg, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": genericMsg})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware records method, path, status and duration of every
// request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusResponseWriter{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(sw, r)
		log.Printf("%s %s %s %d %dms", netutil.ClientIP(r), r.Method, r.URL.Path, sw.statusCode, time.Since(start).Milliseconds())
	})
}
