package types

import "time"

// ResourceID is the logical name of a protected resource and the primary
// identity of a lock. Two callers contending for the same ResourceID are
// contending for the same lock.
type ResourceID string

// HolderID is the opaque identity of the process or worker that currently
// holds a lock. It must be stable for the holder's lifetime and distinct
// from every other concurrent holder; sharing a HolderID between callers
// defeats the ownership check on release.
type HolderID string

// Metadata is a free-form diagnostic payload attached to a lock record
// (hostname, job name, and similar). It never affects lock semantics.
type Metadata map[string]string

// LockRecord is the persisted row representing current ownership of a named
// resource. At most one live record may exist per ResourceID at any instant;
// a record is live while ExpiresAt is strictly in the future according to
// the backing store's clock.
//
// HolderID is immutable for the lifetime of a record. Ownership can only
// change by deleting the record and inserting a new one.
type LockRecord struct {
	ResourceID ResourceID `json:"resource_id"`
	HolderID   HolderID   `json:"holder_id"`
	AcquiredAt time.Time  `json:"acquired_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Metadata   Metadata   `json:"metadata,omitempty"`
}

// IsExpired reports whether the record is dead relative to the given instant.
func (r *LockRecord) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Clone returns a deep copy of the record so callers cannot mutate
// store-owned state through a returned pointer.
func (r *LockRecord) Clone() *LockRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Metadata != nil {
		cp.Metadata = make(Metadata, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
