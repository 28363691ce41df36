// Package postgres implements the storage coordinator over PostgreSQL.
//
// It is the primary backend: the uniqueness constraint on
// lock_records.resource_id, combined with a lazy-expiry delete in the same
// transaction, is what enforces mutual exclusion among concurrent callers.
// All liveness decisions use the database server's now(), never the
// client's clock.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/lib/pq"

	"github.com/ArdentAILabs/benchlock/lock"
	"github.com/ArdentAILabs/benchlock/types"
)

const backendName = "postgres"

const (
	peekQuery = `SELECT EXISTS (
		SELECT 1 FROM lock_records
		WHERE resource_id = $1 AND expires_at > now()
	)`

	purgeExpiredQuery = `DELETE FROM lock_records
		WHERE resource_id = $1 AND expires_at <= now()`

	insertQuery = `INSERT INTO lock_records (resource_id, holder_id, expires_at, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (resource_id) DO NOTHING`

	releaseQuery = `DELETE FROM lock_records
		WHERE resource_id = $1 AND holder_id = $2`

	cleanupQuery = `DELETE FROM lock_records WHERE expires_at <= now()`
)

// schemaStatements creates the lock_records table and the secondary indexes
// used by cleanup and reporting queries.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS lock_records (
		resource_id TEXT PRIMARY KEY,
		holder_id   TEXT NOT NULL,
		acquired_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at  TIMESTAMPTZ NOT NULL,
		metadata    JSONB NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS lock_records_expires_at_idx ON lock_records (expires_at)`,
	`CREATE INDEX IF NOT EXISTS lock_records_holder_id_idx ON lock_records (holder_id)`,
}

// Store implements lock.Store over a *sql.DB. The handle is injected:
// its lifecycle (credentials, pooling, Close) belongs to the caller.
type Store struct {
	db *sql.DB
}

// New wraps an existing database handle. The handle is not pinged; callers
// that want fail-fast behavior should use Open.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database at connStr, verifies the connection, and
// ensures the lock schema exists.
func Open(ctx context.Context, connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, lock.NewStorageError(backendName, "open", err, false)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrapError("open", err)
	}

	s := New(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the lock_records table and its indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return wrapError("ensure_schema", err)
		}
	}
	return nil
}

// PeekStatus reports whether a live record exists for the resource.
func (s *Store) PeekStatus(ctx context.Context, resource types.ResourceID) (bool, error) {
	var held bool
	if err := s.db.QueryRowContext(ctx, peekQuery, string(resource)).Scan(&held); err != nil {
		return false, wrapError(lock.OpPeekStatus, err)
	}
	return held, nil
}

// TryAcquire deletes an expired record for the resource and inserts a new
// one, in one transaction. The unique constraint on resource_id makes the
// insert race-free: of any number of concurrent callers, exactly one insert
// takes effect and the rest see zero rows affected.
func (s *Store) TryAcquire(ctx context.Context, resource types.ResourceID, holder types.HolderID, expiresAt time.Time, meta types.Metadata) (bool, error) {
	metaJSON, err := marshalMetadata(meta)
	if err != nil {
		return false, lock.NewStorageError(backendName, lock.OpTryAcquire, err, false)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, wrapError(lock.OpTryAcquire, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, purgeExpiredQuery, string(resource)); err != nil {
		return false, wrapError(lock.OpTryAcquire, err)
	}

	res, err := tx.ExecContext(ctx, insertQuery, string(resource), string(holder), expiresAt.UTC(), metaJSON)
	if err != nil {
		return false, wrapError(lock.OpTryAcquire, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, wrapError(lock.OpTryAcquire, err)
	}

	if err := tx.Commit(); err != nil {
		return false, wrapError(lock.OpTryAcquire, err)
	}
	return inserted == 1, nil
}

// Release deletes the record only if holder owns it and reports whether a
// row was deleted.
func (s *Store) Release(ctx context.Context, resource types.ResourceID, holder types.HolderID) (bool, error) {
	res, err := s.db.ExecContext(ctx, releaseQuery, string(resource), string(holder))
	if err != nil {
		return false, wrapError(lock.OpRelease, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, wrapError(lock.OpRelease, err)
	}
	return deleted > 0, nil
}

// CleanupExpired deletes every expired record and returns the count.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, cleanupQuery)
	if err != nil {
		return 0, wrapError(lock.OpCleanupExpired, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, wrapError(lock.OpCleanupExpired, err)
	}
	return int(deleted), nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// marshalMetadata encodes metadata as JSON, defaulting to an empty object
// so the column's NOT NULL constraint holds.
func marshalMetadata(meta types.Metadata) ([]byte, error) {
	if len(meta) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}

// wrapError classifies a driver failure into the storage error taxonomy.
func wrapError(op string, err error) error {
	return lock.NewStorageError(backendName, op, err, isTransient(err))
}

// isTransient reports whether a failure may clear on retry. Connection
// trouble, serialization failures, and resource pressure are retried by the
// acquire poll loop; authentication and SQL errors are surfaced immediately.
func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", // connection exception
			"40", // transaction rollback (serialization, deadlock)
			"53", // insufficient resources
			"57", // operator intervention (shutdown in progress)
			"58": // system error (io)
			return true
		}
		return false
	}

	// Unknown failures default to transient: the poll loop is bounded by
	// its timeout either way.
	return true
}
