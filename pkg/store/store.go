package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Admission statuses of an authorization set.
const (
	StatusPending       = "pending"
	StatusPreauthorized = "preauthorized"
	StatusAccepted      = "accepted"
	StatusRejected      = "rejected"
)

// SchemaVersion is recorded in migration_info when a namespace is provisioned.
const SchemaVersion = "1.1.0"

var (
	// ErrNotFound is returned when no authorization set matches the query.
	ErrNotFound = errors.New("authorization set not found")

	// ErrIdentityExists is returned when an insert would violate the
	// identity_data uniqueness constraint within the namespace.
	ErrIdentityExists = errors.New("device identity already exists")
)

// AuthSet is a single device-identity/public-key/status record.
// A physical device may accumulate several over its lifetime.
type AuthSet struct {
	ID             string
	DeviceID       string
	IdentityData   string
	PublicKey      string
	Status         string
	SequenceNumber int64
	RequestTime    *time.Time
	CreatedAt      time.Time
}

// Store provides authorization set operations within one tenant namespace.
type Store struct {
	db *sql.DB
}

// Open opens or creates a namespace database at the given path and
// provisions the schema. Safe to call repeatedly for the same path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode allows readers to see committed changes immediately
	// without blocking writers.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Without a busy timeout concurrent writes immediately return
	// SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates the schema if it doesn't exist and records the
// provisioning marker.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS auth_sets (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		identity_data TEXT NOT NULL,
		public_key TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		sequence_number INTEGER NOT NULL DEFAULT 0,
		request_time INTEGER,
		created_at INTEGER DEFAULT (strftime('%s', 'now'))
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_auth_sets_identity ON auth_sets(identity_data);
	CREATE INDEX IF NOT EXISTS idx_auth_sets_device ON auth_sets(device_id);
	CREATE INDEX IF NOT EXISTS idx_auth_sets_status ON auth_sets(status);

	CREATE TABLE IF NOT EXISTS migration_info (
		version TEXT PRIMARY KEY,
		applied_at INTEGER DEFAULT (strftime('%s', 'now'))
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO migration_info (version) VALUES (?)`,
		SchemaVersion,
	)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersions returns the recorded migration markers, oldest first.
func (s *Store) SchemaVersions() ([]string, error) {
	rows, err := s.db.Query(`SELECT version FROM migration_info ORDER BY applied_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration info: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration info: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// InsertAuthSet persists a new authorization set. The uniqueness of
// identity_data is enforced by the database so concurrent creators of
// the same identity race safely: exactly one wins, the rest get
// ErrIdentityExists.
func (s *Store) InsertAuthSet(a *AuthSet) error {
	var reqTime interface{}
	if a.RequestTime != nil {
		reqTime = a.RequestTime.Unix()
	}

	_, err := s.db.Exec(
		`INSERT INTO auth_sets (id, device_id, identity_data, public_key, status, sequence_number, request_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DeviceID, a.IdentityData, a.PublicKey, a.Status, a.SequenceNumber, reqTime,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrIdentityExists
		}
		return fmt.Errorf("failed to insert authorization set: %w", err)
	}
	return nil
}

// UpsertAuthSet inserts the record or, when the id already exists,
// updates the non-empty fields. Used by device self-registration, which
// may repeat an authentication request for a known set.
func (s *Store) UpsertAuthSet(a *AuthSet) error {
	var reqTime interface{}
	if a.RequestTime != nil {
		reqTime = a.RequestTime.Unix()
	}

	_, err := s.db.Exec(
		`INSERT INTO auth_sets (id, device_id, identity_data, public_key, status, sequence_number, request_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			device_id = excluded.device_id,
			identity_data = excluded.identity_data,
			public_key = CASE WHEN excluded.public_key != '' THEN excluded.public_key ELSE auth_sets.public_key END,
			sequence_number = excluded.sequence_number,
			request_time = excluded.request_time`,
		a.ID, a.DeviceID, a.IdentityData, a.PublicKey, a.Status, a.SequenceNumber, reqTime,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrIdentityExists
		}
		return fmt.Errorf("failed to upsert authorization set: %w", err)
	}
	return nil
}

// GetAuthSet retrieves an authorization set by id.
func (s *Store) GetAuthSet(id string) (*AuthSet, error) {
	row := s.db.QueryRow(
		`SELECT id, device_id, identity_data, public_key, status, sequence_number, request_time, created_at
		 FROM auth_sets WHERE id = ?`,
		id,
	)
	return scanAuthSet(row)
}

// ListAuthSets returns authorization sets ordered by creation, newest
// last. An empty status returns all records. skip/limit implement
// pagination; limit <= 0 means no limit.
func (s *Store) ListAuthSets(status string, skip, limit int) ([]AuthSet, error) {
	query := `SELECT id, device_id, identity_data, public_key, status, sequence_number, request_time, created_at
		 FROM auth_sets`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, rowid`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, skip)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorization sets: %w", err)
	}
	defer rows.Close()

	var sets []AuthSet
	for rows.Next() {
		a, err := scanAuthSetRows(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, *a)
	}
	return sets, rows.Err()
}

// UpdateAuthSetStatus atomically overwrites the status of a record.
func (s *Store) UpdateAuthSetStatus(id, status string) error {
	result, err := s.db.Exec(
		`UPDATE auth_sets SET status = ? WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAuthSet removes a record by id. Deleting an absent record is
// not an error.
func (s *Store) DeleteAuthSet(id string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete authorization set: %w", err)
	}
	return nil
}

// DeleteAuthSetForDevice removes the record addressed by the
// (device_id, id) pair. Idempotent: absent records are a no-op.
func (s *Store) DeleteAuthSetForDevice(deviceID, id string) error {
	_, err := s.db.Exec(
		`DELETE FROM auth_sets WHERE device_id = ? AND id = ?`,
		deviceID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete authorization set: %w", err)
	}
	return nil
}

// DeleteAuthSetsByDevice removes every authorization set belonging to a
// physical device. Idempotent.
func (s *Store) DeleteAuthSetsByDevice(deviceID string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sets WHERE device_id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("failed to delete device authorization sets: %w", err)
	}
	return nil
}

// CountAuthSets returns the number of records, optionally filtered by status.
func (s *Store) CountAuthSets(status string) (int, error) {
	query := `SELECT COUNT(*) FROM auth_sets`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count authorization sets: %w", err)
	}
	return count, nil
}

func scanAuthSet(row *sql.Row) (*AuthSet, error) {
	var a AuthSet
	var reqTime sql.NullInt64
	var createdAt int64

	err := row.Scan(&a.ID, &a.DeviceID, &a.IdentityData, &a.PublicKey, &a.Status, &a.SequenceNumber, &reqTime, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan authorization set: %w", err)
	}

	if reqTime.Valid {
		t := time.Unix(reqTime.Int64, 0)
		a.RequestTime = &t
	}
	a.CreatedAt = time.Unix(createdAt, 0)

	return &a, nil
}

func scanAuthSetRows(rows *sql.Rows) (*AuthSet, error) {
	var a AuthSet
	var reqTime sql.NullInt64
	var createdAt int64

	err := rows.Scan(&a.ID, &a.DeviceID, &a.IdentityData, &a.PublicKey, &a.Status, &a.SequenceNumber, &reqTime, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan authorization set: %w", err)
	}

	if reqTime.Valid {
		t := time.Unix(reqTime.Int64, 0)
		a.RequestTime = &t
	}
	a.CreatedAt = time.Unix(createdAt, 0)

	return &a, nil
}
