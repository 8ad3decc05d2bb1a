package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func setupTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(t.TempDir())
	t.Cleanup(func() {
		r.Close()
	})
	return r
}

func TestRegistryDefaultNamespace(t *testing.T) {
	r := setupTestRegistry(t)

	s, err := r.Namespace("")
	if err != nil {
		t.Fatalf("Namespace failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(r.dataDir, "admitd.db")); err != nil {
		t.Errorf("default namespace database not created: %v", err)
	}

	// Same handle on repeat lookup.
	again, err := r.Namespace("")
	if err != nil {
		t.Fatalf("Namespace repeat failed: %v", err)
	}
	if s != again {
		t.Error("expected cached store handle")
	}
}

func TestRegistryTenantIsolation(t *testing.T) {
	r := setupTestRegistry(t)

	s1, err := r.Namespace("tenant1")
	if err != nil {
		t.Fatalf("Namespace(tenant1) failed: %v", err)
	}
	s2, err := r.Namespace("tenant2")
	if err != nil {
		t.Fatalf("Namespace(tenant2) failed: %v", err)
	}

	// Identical identity data in two tenants never conflicts.
	identity := `{"mac":"aa:bb"}`
	if err := s1.InsertAuthSet(newAuthSet("a1", "d1", identity, StatusPreauthorized)); err != nil {
		t.Fatalf("insert in tenant1 failed: %v", err)
	}
	if err := s2.InsertAuthSet(newAuthSet("a2", "d2", identity, StatusPreauthorized)); err != nil {
		t.Fatalf("insert in tenant2 failed: %v", err)
	}

	if _, err := s1.GetAuthSet("a2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("tenant1 must not see tenant2's record, got %v", err)
	}

	c1, _ := s1.CountAuthSets("")
	c2, _ := s2.CountAuthSets("")
	if c1 != 1 || c2 != 1 {
		t.Errorf("expected one record per tenant, got %d and %d", c1, c2)
	}
}

func TestRegistryEnsureNamespaceIdempotent(t *testing.T) {
	r := setupTestRegistry(t)

	for i := 0; i < 3; i++ {
		if err := r.EnsureNamespace("acme"); err != nil {
			t.Fatalf("EnsureNamespace round %d failed: %v", i, err)
		}
	}

	s, err := r.Namespace("acme")
	if err != nil {
		t.Fatalf("Namespace failed: %v", err)
	}
	versions, err := s.SchemaVersions()
	if err != nil {
		t.Fatalf("SchemaVersions failed: %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("expected a single migration marker, got %v", versions)
	}
}

func TestRegistryConcurrentFirstUse(t *testing.T) {
	r := setupTestRegistry(t)

	var wg sync.WaitGroup
	stores := make([]*Store, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.Namespace("racer")
			if err != nil {
				t.Errorf("concurrent Namespace failed: %v", err)
				return
			}
			stores[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < 8; i++ {
		if stores[i] != stores[0] {
			t.Fatal("concurrent first use produced distinct store handles")
		}
	}
}

func TestRegistryRejectsBadTenantIDs(t *testing.T) {
	r := setupTestRegistry(t)

	for _, id := range []string{"../escape", "a/b", "white space", "semi;colon"} {
		if _, err := r.Namespace(id); err == nil {
			t.Errorf("expected error for tenant id %q", id)
		}
	}
}
