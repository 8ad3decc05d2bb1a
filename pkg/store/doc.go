// Package store provides SQLite-based persistence for device
// authorization sets.
//
// Each tenant namespace is backed by its own database file, created on
// first use by [Registry.Namespace]. Within a namespace the store
// manages:
//
//   - Authorization sets: one record per (device identity, public key)
//     pair with its admission status
//   - Schema versions: a migration marker recording the applied schema
//
// # Usage
//
// Open a single namespace with [Open] and close it when done:
//
//	db, err := store.Open("admitd.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
// Multi-tenant callers should go through [Registry] instead, which
// caches one store per tenant.
//
// # Thread Safety
//
// The store is safe for concurrent use. SQLite WAL mode enables readers
// and writers to operate simultaneously.
package store
