// Package admission implements the device authorization-set lifecycle:
// preauthorization, self-registration, status transitions, and deletion,
// kept consistent with the downstream device-authentication service.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/northgrid/admitd/internal/identity"
	"github.com/northgrid/admitd/pkg/devauth"
	"github.com/northgrid/admitd/pkg/keys"
	"github.com/northgrid/admitd/pkg/store"
)

// ErrInvalidInput marks malformed request data (bad identity JSON,
// missing fields). Distinct from key decoding failures, which surface
// keys.ErrCannotDecode so the API can keep its contractual message.
var ErrInvalidInput = errors.New("invalid request")

var validate = validator.New()

// Gateway is the slice of the device-authentication client the admitter
// needs. *devauth.Client satisfies it.
type Gateway interface {
	PreauthorizeDevice(ctx context.Context, req devauth.PreauthReq, token string) error
	UpdateStatus(ctx context.Context, deviceID, authSetID, status, token string) error
	DeleteAuthSet(ctx context.Context, deviceID, authSetID, token string) error
}

// Registry resolves tenant namespaces to stores. *store.Registry
// satisfies it.
type Registry interface {
	Namespace(tenant string) (*store.Store, error)
	EnsureNamespace(tenant string) error
}

// PreauthRequest is an administrative preauthorization.
type PreauthRequest struct {
	IdentityData string `json:"device_identity" validate:"required,json"`
	Key          string `json:"key" validate:"required"`
}

// SubmitRequest is a device's own admission request.
type SubmitRequest struct {
	ID             string `json:"-" validate:"required"`
	DeviceID       string `json:"device_id" validate:"required"`
	IdentityData   string `json:"device_identity" validate:"required,json"`
	Key            string `json:"key" validate:"required"`
	SequenceNumber int64  `json:"seq_no"`
}

// Admitter orchestrates authorization-set lifecycle operations per
// tenant. It is stateless between requests; tenant stores come from the
// registry, and the gateway client is shared.
type Admitter struct {
	tenants Registry
	gateway Gateway
}

// NewAdmitter creates an admitter.
func NewAdmitter(tenants Registry, gateway Gateway) *Admitter {
	return &Admitter{
		tenants: tenants,
		gateway: gateway,
	}
}

// Preauthorize registers a device ahead of its first authentication
// request. The record is written locally first; if the gateway refuses
// the announcement the record is rolled back so the local store never
// holds a set the remote service rejected.
func (a *Admitter) Preauthorize(ctx context.Context, who *identity.Identity, req PreauthRequest) (*store.AuthSet, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := keys.ParsePublic(req.Key); err != nil {
		return nil, err
	}

	db, err := a.tenants.Namespace(who.Tenant)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	aset := &store.AuthSet{
		ID:           uuid.New().String(),
		DeviceID:     uuid.New().String(),
		IdentityData: req.IdentityData,
		PublicKey:    req.Key,
		Status:       store.StatusPreauthorized,
		RequestTime:  &now,
	}

	if err := db.InsertAuthSet(aset); err != nil {
		return nil, err
	}

	err = a.gateway.PreauthorizeDevice(ctx, devauth.PreauthReq{
		DeviceID:  aset.DeviceID,
		AuthSetID: aset.ID,
		IDData:    aset.IdentityData,
		PubKey:    aset.PublicKey,
	}, who.Token)
	if err != nil {
		// The remote system of record refused; take the local record
		// back out so the two stores stay consistent.
		if delErr := db.DeleteAuthSet(aset.ID); delErr != nil {
			log.Printf("failed to roll back preauthorized set %s: %v", aset.ID, delErr)
		}
		return nil, fmt.Errorf("failed to propagate preauthorization: %w", err)
	}

	return aset, nil
}

// Submit records a device's own admission request with status pending.
// Repeated submissions for the same set id update identity material but
// never reset an already-decided status.
func (a *Admitter) Submit(ctx context.Context, who *identity.Identity, req SubmitRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := keys.ParsePublic(req.Key); err != nil {
		return err
	}

	db, err := a.tenants.Namespace(who.Tenant)
	if err != nil {
		return err
	}

	now := time.Now()
	return db.UpsertAuthSet(&store.AuthSet{
		ID:             req.ID,
		DeviceID:       req.DeviceID,
		IdentityData:   req.IdentityData,
		PublicKey:      req.Key,
		Status:         store.StatusPending,
		SequenceNumber: req.SequenceNumber,
		RequestTime:    &now,
	})
}

// ChangeStatus applies a status transition. The gateway is told first;
// the local store commits only once the remote update succeeded, so the
// externally visible system of record is never behind the local one.
func (a *Admitter) ChangeStatus(ctx context.Context, who *identity.Identity, id, target string) error {
	db, err := a.tenants.Namespace(who.Tenant)
	if err != nil {
		return err
	}

	aset, err := db.GetAuthSet(id)
	if err != nil {
		return err
	}

	if err := EvalTransition(aset.Status, target); err != nil {
		return err
	}

	if err := a.gateway.UpdateStatus(ctx, aset.DeviceID, aset.ID, target, who.Token); err != nil {
		return fmt.Errorf("failed to propagate status update: %w", err)
	}

	return db.UpdateAuthSetStatus(id, target)
}

// ListDevices returns a page of the tenant's authorization sets,
// optionally filtered by status.
func (a *Admitter) ListDevices(who *identity.Identity, status string, skip, limit int) ([]store.AuthSet, error) {
	if status != "" && !knownStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	db, err := a.tenants.Namespace(who.Tenant)
	if err != nil {
		return nil, err
	}

	sets, err := db.ListAuthSets(status, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return sets, nil
}

// GetDevice returns a single authorization set.
func (a *Admitter) GetDevice(who *identity.Identity, id string) (*store.AuthSet, error) {
	db, err := a.tenants.Namespace(who.Tenant)
	if err != nil {
		return nil, err
	}
	return db.GetAuthSet(id)
}

// DeleteDevice removes an authorization set. Absent records are a
// success. For present records the gateway is told first; its 404 means
// the stores already agree, any other failure keeps the local record.
func (a *Admitter) DeleteDevice(ctx context.Context, who *identity.Identity, id string) error {
	db, err := a.tenants.Namespace(who.Tenant)
	if err != nil {
		return err
	}

	aset, err := db.GetAuthSet(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := a.gateway.DeleteAuthSet(ctx, aset.DeviceID, aset.ID, who.Token); err != nil {
		return fmt.Errorf("failed to propagate deletion: %w", err)
	}

	return db.DeleteAuthSet(id)
}

// DeleteAuthSet removes the set addressed by the (device_id, id) pair.
// The pair must match what was created; a mismatch deletes nothing and
// still succeeds.
func (a *Admitter) DeleteAuthSet(ctx context.Context, who *identity.Identity, deviceID, id string) error {
	db, err := a.tenants.Namespace(who.Tenant)
	if err != nil {
		return err
	}

	aset, err := db.GetAuthSet(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if aset.DeviceID != deviceID {
		return nil
	}

	if err := a.gateway.DeleteAuthSet(ctx, deviceID, id, who.Token); err != nil {
		return fmt.Errorf("failed to propagate deletion: %w", err)
	}

	return db.DeleteAuthSetForDevice(deviceID, id)
}

// DeleteDeviceAuthSets removes every set belonging to a physical
// device. Called by the device-authentication service itself when it
// forgets a device, so there is no gateway call back.
func (a *Admitter) DeleteDeviceAuthSets(who *identity.Identity, deviceID string) error {
	db, err := a.tenants.Namespace(who.Tenant)
	if err != nil {
		return err
	}
	return db.DeleteAuthSetsByDevice(deviceID)
}

// ProvisionTenant creates the tenant's storage namespace. Idempotent.
func (a *Admitter) ProvisionTenant(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant_id must not be empty", ErrInvalidInput)
	}
	if !store.ValidTenantID(tenantID) {
		return fmt.Errorf("%w: invalid tenant_id", ErrInvalidInput)
	}
	return a.tenants.EnsureNamespace(tenantID)
}
