package lock

import "time"

const (
	// DefaultTTL is the expiry window applied when an acquire attempt does
	// not specify one. Generous on purpose: crashed holders self-heal via
	// expiry without a watchdog, at the cost of a slower worst-case reclaim.
	DefaultTTL = 45 * time.Minute

	// DefaultPollInterval is how often a blocked AcquireLock re-attempts
	// the lock. Short relative to typical timeouts so a freed lock is
	// detected quickly.
	DefaultPollInterval = 1 * time.Second
)

// Storage operation names, shared by backends and metrics labels.
const (
	OpPeekStatus     = "peek_lock_status"
	OpTryAcquire     = "try_acquire_lock"
	OpRelease        = "release_lock"
	OpCleanupExpired = "cleanup_expired_locks"
)
