package lock

import (
	"context"
	"time"

	"github.com/ArdentAILabs/benchlock/types"
)

// Store defines the storage coordinator contract: the set of atomic
// operations a backing store must expose for lock records. Each operation
// executes as a single indivisible transaction against the store, which is
// where correctness under concurrent callers is enforced.
//
// Liveness of a record (expires_at strictly in the future) is always judged
// by the store's clock, never by the caller's, to avoid clock-skew bugs.
//
// Any transport or transaction failure surfaces as a *StorageError; there is
// no retry at this layer. Retries are a Client policy.
type Store interface {
	// PeekStatus reports whether a live record currently exists for the
	// resource. Side-effect free. It deliberately does not reveal the
	// holder's identity.
	PeekStatus(ctx context.Context, resource types.ResourceID) (bool, error)

	// TryAcquire deletes any already-expired record for the resource (lazy
	// expiry), then attempts to insert a new record owned by holder with the
	// given absolute expiry. It returns true if the insert succeeded and
	// false if a live record already exists. The expiry check, the delete,
	// and the insert must be atomic with respect to concurrent TryAcquire
	// calls on the same resource.
	//
	// meta is stored verbatim with the record for diagnostics and never
	// consulted by lock logic.
	TryAcquire(ctx context.Context, resource types.ResourceID, holder types.HolderID, expiresAt time.Time, meta types.Metadata) (bool, error)

	// Release deletes the record for the resource only if its stored holder
	// matches the caller's. It reports whether a row was actually deleted.
	// "Not the holder" is an expected outcome reported as false, never an
	// error.
	Release(ctx context.Context, resource types.ResourceID, holder types.HolderID) (bool, error)

	// CleanupExpired deletes every record whose expiry has passed, regardless
	// of resource or holder, and returns the count deleted. Safe to run
	// concurrently with everything else; it only removes rows that are
	// already semantically dead.
	CleanupExpired(ctx context.Context) (int, error)

	// Close releases the store handle. The store must not be used afterwards.
	Close() error
}

// Client is the process-local facade used by application code. It turns the
// Store's single-shot primitives into blocking acquisition with timeout and
// poll interval, scoped acquisition with guaranteed release, and direct
// peek/acquire/release calls. It owns no persistent state of its own.
//
// A Client is safe for concurrent use, but all operations run under its one
// holder identity: concurrent goroutines sharing a Client contend as a
// single actor, so release by any of them releases for all.
//
// The expected outcomes "lock held by someone else", "timed out waiting",
// and "not the holder" are reported as boolean false, not as errors, so
// callers can branch on them cheaply.
type Client interface {
	// HolderID returns the identity under which this client acquires locks.
	HolderID() types.HolderID

	// PeekLock reports whether a live lock currently exists for the resource.
	PeekLock(ctx context.Context, resource types.ResourceID) (bool, error)

	// AcquireLock attempts to acquire the lock, retrying every poll interval
	// until it succeeds or timeout of wall-clock time has elapsed. A timeout
	// of zero means a single immediate attempt with no waiting. The record's
	// expiry is computed fresh as now+ttl on every attempt, so a lock granted
	// late in the polling loop still gets a full ttl window.
	//
	// Zero ttl or pollInterval fall back to the client's configured defaults.
	// Negative values, a negative timeout, or an empty resource fail fast
	// with an invalid-argument error before any store call.
	//
	// Transient storage errors inside the loop are retried until the timeout
	// is exhausted; non-transient ones (for example authentication failures)
	// propagate immediately.
	AcquireLock(ctx context.Context, resource types.ResourceID, timeout, ttl, pollInterval time.Duration) (bool, error)

	// ReleaseLock releases the lock if this client's holder identity still
	// owns it. It returns false, not an error, if the lock is absent or held
	// by someone else (for example after expiry and reclaim).
	ReleaseLock(ctx context.Context, resource types.ResourceID) (bool, error)

	// WithLock acquires the lock, runs fn, and guarantees release on every
	// exit path including panics. fn receives acquired=false when the
	// timeout was exhausted; the critical section decides for itself whether
	// to proceed in that case, and no release is attempted since nothing was
	// acquired. A release failure during cleanup is logged but never masks
	// fn's own error.
	WithLock(ctx context.Context, resource types.ResourceID, timeout, ttl, pollInterval time.Duration, fn func(ctx context.Context, acquired bool) error) error

	// CleanupExpiredLocks deletes every expired record in the store and
	// returns the count. Intended for periodic maintenance callers; the
	// client never invokes it on its own.
	CleanupExpiredLocks(ctx context.Context) (int, error)
}
