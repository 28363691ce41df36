// Package memory provides an in-process storage coordinator. It exists for
// unit tests, examples, and single-process use; it enforces the same record
// semantics as the database-backed coordinators but coordinates nothing
// across processes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ArdentAILabs/benchlock/lock"
	"github.com/ArdentAILabs/benchlock/types"
)

const backendName = "memory"

// Store implements lock.Store over a mutex-guarded map. The mutex makes
// every operation atomic with respect to concurrent callers, mirroring the
// single-transaction guarantee of the database backends.
type Store struct {
	mu      sync.Mutex
	records map[types.ResourceID]*types.LockRecord
	clock   types.Clock
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to judge record liveness.
// The store's clock is authoritative for expiry, as it is in the database
// backends, which makes expiry testable with a manual clock.
func WithClock(clock types.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New returns an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		records: make(map[types.ResourceID]*types.LockRecord),
		clock:   types.NewStandardClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PeekStatus reports whether a live record exists for the resource.
func (s *Store) PeekStatus(ctx context.Context, resource types.ResourceID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUsable(ctx, lock.OpPeekStatus); err != nil {
		return false, err
	}

	rec, ok := s.records[resource]
	return ok && !rec.IsExpired(s.clock.Now()), nil
}

// TryAcquire removes an expired record for the resource, then inserts a new
// one unless a live record is present.
func (s *Store) TryAcquire(ctx context.Context, resource types.ResourceID, holder types.HolderID, expiresAt time.Time, meta types.Metadata) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUsable(ctx, lock.OpTryAcquire); err != nil {
		return false, err
	}

	now := s.clock.Now()
	if rec, ok := s.records[resource]; ok {
		if !rec.IsExpired(now) {
			return false, nil
		}
		// Lazy expiry: the dead record blocks nothing.
		delete(s.records, resource)
	}

	s.records[resource] = &types.LockRecord{
		ResourceID: resource,
		HolderID:   holder,
		AcquiredAt: now,
		ExpiresAt:  expiresAt,
		Metadata:   meta,
	}
	return true, nil
}

// Release deletes the record if holder owns it.
func (s *Store) Release(ctx context.Context, resource types.ResourceID, holder types.HolderID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUsable(ctx, lock.OpRelease); err != nil {
		return false, err
	}

	rec, ok := s.records[resource]
	if !ok || rec.HolderID != holder {
		return false, nil
	}
	delete(s.records, resource)
	return true, nil
}

// CleanupExpired deletes every expired record and returns the count.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUsable(ctx, lock.OpCleanupExpired); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	deleted := 0
	for id, rec := range s.records {
		if rec.IsExpired(now) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close marks the store unusable. Subsequent operations fail with a
// non-transient storage error.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

// Record returns a copy of the current record for a resource, live or not.
// Test and diagnostic helper; not part of the lock.Store contract.
func (s *Store) Record(resource types.ResourceID) (*types.LockRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[resource]
	return rec.Clone(), ok
}

// Len returns the number of records currently stored, live or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// checkUsable maps closure and context cancellation onto the storage error
// taxonomy. Callers must hold s.mu.
func (s *Store) checkUsable(ctx context.Context, op string) error {
	if s.closed {
		return lock.NewStorageError(backendName, op, lock.ErrStoreClosed, false)
	}
	if err := ctx.Err(); err != nil {
		return lock.NewStorageError(backendName, op, err, true)
	}
	return nil
}
