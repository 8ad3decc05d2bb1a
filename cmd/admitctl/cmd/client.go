package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/northgrid/admitd/pkg/clierror"
)

// AdmitClient provides HTTP client access to the admission API.
type AdmitClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAdmitClient creates a new client for the admission API.
func NewAdmitClient(baseURL, token string) *AdmitClient {
	return &AdmitClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// deviceResponse matches the API response for device operations.
type deviceResponse struct {
	ID             string  `json:"id"`
	DeviceID       string  `json:"device_id"`
	DeviceIdentity string  `json:"device_identity"`
	Key            string  `json:"key"`
	Status         string  `json:"status"`
	SequenceNumber int64   `json:"seq_no,omitempty"`
	RequestTime    *string `json:"request_time,omitempty"`
}

// preauthRequest is the request body for preauthorizing a device.
type preauthRequest struct {
	DeviceIdentity string `json:"device_identity"`
	Key            string `json:"key"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type createTenantRequest struct {
	TenantID string `json:"tenant_id"`
}

func (c *AdmitClient) do(ctx context.Context, method, path string, body interface{}, expect int, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return clierror.ConnectionFailed(c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expect {
		data, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(data))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return clierror.FromStatus(resp.StatusCode, lastPathSegment(path), msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// lastPathSegment extracts the resource id from an API path for use in
// error messages.
func lastPathSegment(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSuffix(p, "/status")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// ListDevices retrieves authorization sets, optionally filtered by status.
func (c *AdmitClient) ListDevices(ctx context.Context, status string, page, perPage int) ([]deviceResponse, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if perPage > 0 {
		q.Set("per_page", fmt.Sprint(perPage))
	}
	path := "/api/v1/devices"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var devices []deviceResponse
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// GetDevice fetches a single authorization set by id.
func (c *AdmitClient) GetDevice(ctx context.Context, id string) (*deviceResponse, error) {
	var dev deviceResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/devices/"+url.PathEscape(id), nil, http.StatusOK, &dev); err != nil {
		return nil, err
	}
	return &dev, nil
}

// Preauthorize creates a preauthorized device entry.
func (c *AdmitClient) Preauthorize(ctx context.Context, identityData, key string) (*deviceResponse, error) {
	var dev deviceResponse
	req := preauthRequest{DeviceIdentity: identityData, Key: key}
	if err := c.do(ctx, http.MethodPost, "/api/v1/devices", req, http.StatusCreated, &dev); err != nil {
		return nil, err
	}
	return &dev, nil
}

// SetStatus moves an authorization set to the given status.
func (c *AdmitClient) SetStatus(ctx context.Context, id, status string) error {
	path := "/api/v1/devices/" + url.PathEscape(id) + "/status"
	return c.do(ctx, http.MethodPut, path, statusRequest{Status: status}, http.StatusNoContent, nil)
}

// DeleteDevice removes an authorization set.
func (c *AdmitClient) DeleteDevice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/devices/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

// CreateTenant provisions a tenant namespace.
func (c *AdmitClient) CreateTenant(ctx context.Context, tenantID string) error {
	return c.do(ctx, http.MethodPost, "/api/internal/v1/tenants", createTenantRequest{TenantID: tenantID}, http.StatusCreated, nil)
}
