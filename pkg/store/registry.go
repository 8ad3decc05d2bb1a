package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// DefaultDataDir returns the default data directory following XDG spec.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "admitd")
}

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidTenantID reports whether id is usable as a namespace name.
// Namespace names become file names, so the charset is restricted.
func ValidTenantID(id string) bool {
	return tenantIDPattern.MatchString(id)
}

// Registry hands out tenant-scoped stores, provisioning each namespace
// database lazily on first use. The default namespace (empty tenant id)
// lives in admitd.db, tenant namespaces in admitd-<tenant>.db, matching
// one isolated storage partition per customer.
type Registry struct {
	dataDir string

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates a registry rooted at dataDir.
func NewRegistry(dataDir string) *Registry {
	return &Registry{
		dataDir: dataDir,
		stores:  map[string]*Store{},
	}
}

// Namespace returns the store for the given tenant, provisioning it if
// this is the first use. The empty tenant id selects the default
// namespace. Concurrent first use of the same tenant is safe: schema
// provisioning is CREATE IF NOT EXISTS all the way down.
func (r *Registry) Namespace(tenant string) (*Store, error) {
	if tenant != "" && !ValidTenantID(tenant) {
		return nil, fmt.Errorf("invalid tenant id %q", tenant)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[tenant]; ok {
		return s, nil
	}

	s, err := Open(r.path(tenant))
	if err != nil {
		return nil, fmt.Errorf("failed to provision namespace for tenant %q: %w", tenant, err)
	}
	r.stores[tenant] = s
	return s, nil
}

// EnsureNamespace provisions the tenant's namespace without handing the
// store to the caller. Idempotent; repeated calls are cheap cache hits.
func (r *Registry) EnsureNamespace(tenant string) error {
	_, err := r.Namespace(tenant)
	return err
}

// Close closes every open namespace store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for tenant, s := range r.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.stores, tenant)
	}
	return firstErr
}

func (r *Registry) path(tenant string) string {
	if tenant == "" {
		return filepath.Join(r.dataDir, "admitd.db")
	}
	return filepath.Join(r.dataDir, "admitd-"+tenant+".db")
}
