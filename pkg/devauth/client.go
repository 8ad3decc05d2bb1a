// Package devauth is the HTTP client for the downstream
// device-authentication service, which owns the authoritative
// key/identity binding for every admitted device.
package devauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	uriDevices   = "/api/v1/devices"
	uriAuthSet   = "/api/v1/devices/%s/auth/%s"
	uriSetStatus = "/api/v1/devices/%s/auth/%s/status"

	defaultTimeout = 10 * time.Second
)

// ErrGateway marks failures of the downstream service: unreachable,
// timed out, or an unexpected response status. Operations hitting it
// must abort without committing local state.
var ErrGateway = errors.New("device authentication gateway failure")

// Config holds the gateway client configuration.
type Config struct {
	// BaseURL is the root address of the device-authentication service.
	BaseURL string
	// Timeout bounds each request. Defaults to 10s if zero.
	Timeout time.Duration
}

// PreauthReq announces an administratively preauthorized device.
type PreauthReq struct {
	DeviceID  string `json:"device_id"`
	AuthSetID string `json:"auth_set_id"`
	IDData    string `json:"id_data"`
	PubKey    string `json:"pubkey"`
}

// StatusReq carries an accepted/rejected transition.
type StatusReq struct {
	Status string `json:"status"`
}

// Client calls the device-authentication service. Every call forwards
// the caller's bearer token so the remote side resolves the same tenant
// namespace.
type Client struct {
	conf Config
	http *http.Client
}

// NewClient creates a gateway client.
func NewClient(conf Config) *Client {
	if conf.Timeout == 0 {
		conf.Timeout = defaultTimeout
	}
	return &Client{
		conf: conf,
		http: &http.Client{Timeout: conf.Timeout},
	}
}

// PreauthorizeDevice informs the gateway of a newly preauthorized
// authorization set. Any non-2xx response is a gateway failure.
func (c *Client) PreauthorizeDevice(ctx context.Context, req PreauthReq, token string) error {
	rsp, err := c.do(ctx, http.MethodPost, c.conf.BaseURL+uriDevices, req, token)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		return fmt.Errorf("%w: preauthorize returned %v", ErrGateway, rsp.Status)
	}
	return nil
}

// UpdateStatus informs the gateway of a status transition.
func (c *Client) UpdateStatus(ctx context.Context, deviceID, authSetID, status, token string) error {
	url := c.conf.BaseURL + fmt.Sprintf(uriSetStatus, deviceID, authSetID)
	rsp, err := c.do(ctx, http.MethodPut, url, StatusReq{Status: status}, token)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		return fmt.Errorf("%w: status update returned %v", ErrGateway, rsp.Status)
	}
	return nil
}

// DeleteAuthSet informs the gateway of a deletion. A 404 from the
// remote side means both stores already agree and is not an error.
func (c *Client) DeleteAuthSet(ctx context.Context, deviceID, authSetID, token string) error {
	url := c.conf.BaseURL + fmt.Sprintf(uriAuthSet, deviceID, authSetID)
	rsp, err := c.do(ctx, http.MethodDelete, url, nil, token)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode == http.StatusNotFound {
		return nil
	}
	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		return fmt.Errorf("%w: delete returned %v", ErrGateway, rsp.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body interface{}, token string) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare gateway request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rsp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return rsp, nil
}
