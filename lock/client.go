package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArdentAILabs/benchlock/logger"
	"github.com/ArdentAILabs/benchlock/types"
)

// client provides the concrete implementation of the Client interface.
// It is a pure protocol layer over a Store: every operation is either a
// single store round-trip or a poll loop of them, and no state beyond the
// holder identity lives in the process.
type client struct {
	store  Store
	holder types.HolderID

	config  Config
	logger  logger.Logger
	metrics Metrics
	clock   types.Clock
}

// NewClient creates a Client over the given store, acquiring under the given
// holder identity. The store's lifecycle stays with the caller; closing the
// store invalidates the client.
func NewClient(store Store, holder types.HolderID, opts ...Option) (Client, error) {
	if store == nil {
		return nil, errors.New("benchlock: store must not be nil")
	}
	if holder == "" {
		return nil, errors.New("benchlock: holder ID must not be empty")
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.Logger == nil {
		config.Logger = &logger.NoOpLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = NoOpMetrics{}
	}
	if config.Clock == nil {
		config.Clock = types.NewStandardClock()
	}

	return &client{
		store:   store,
		holder:  holder,
		config:  config,
		logger:  config.Logger.WithComponent("client").WithHolderID(holder),
		metrics: config.Metrics,
		clock:   config.Clock,
	}, nil
}

// HolderID returns the identity this client acquires under.
func (c *client) HolderID() types.HolderID {
	return c.holder
}

// PeekLock reports whether a live lock exists for the resource.
func (c *client) PeekLock(ctx context.Context, resource types.ResourceID) (bool, error) {
	if resource == "" {
		return false, ErrEmptyResourceID
	}

	held, err := c.store.PeekStatus(ctx, resource)
	if err != nil {
		c.recordStorageError(OpPeekStatus, err)
		return false, err
	}
	return held, nil
}

// AcquireLock attempts to acquire the lock, polling until success or timeout.
func (c *client) AcquireLock(ctx context.Context, resource types.ResourceID, timeout, ttl, pollInterval time.Duration) (bool, error) {
	timeout, ttl, pollInterval, err := c.validateAcquireArgs(resource, timeout, ttl, pollInterval)
	if err != nil {
		return false, err
	}

	log := c.logger.WithResource(resource)
	start := c.clock.Now()

	acquired, err := c.tryAcquireOnce(ctx, resource, ttl)
	if err != nil && !IsTransient(err) {
		return false, err
	}
	if acquired {
		c.metrics.ObserveAcquireWait(resource, c.clock.Since(start), true)
		log.Infow("acquired lock", "waited", c.clock.Since(start))
		return true, nil
	}

	// timeout == 0 means a single immediate attempt with no waiting.
	if timeout == 0 {
		c.metrics.ObserveAcquireWait(resource, c.clock.Since(start), false)
		return false, err
	}

	for c.clock.Since(start) < timeout {
		select {
		case <-ctx.Done():
			c.metrics.ObserveAcquireWait(resource, c.clock.Since(start), false)
			return false, ctx.Err()
		case <-c.clock.After(pollInterval):
		}

		acquired, err := c.tryAcquireOnce(ctx, resource, ttl)
		if err != nil {
			if !IsTransient(err) {
				c.metrics.ObserveAcquireWait(resource, c.clock.Since(start), false)
				return false, err
			}
			log.Warnw("retrying after transient storage error", "error", err)
			continue
		}
		if acquired {
			c.metrics.ObserveAcquireWait(resource, c.clock.Since(start), true)
			log.Infow("acquired lock after waiting", "waited", c.clock.Since(start))
			return true, nil
		}
	}

	c.metrics.ObserveAcquireWait(resource, c.clock.Since(start), false)
	log.Infow("timed out waiting for lock", "timeout", timeout)
	return false, nil
}

// ReleaseLock releases the lock if this client still owns it.
func (c *client) ReleaseLock(ctx context.Context, resource types.ResourceID) (bool, error) {
	if resource == "" {
		return false, ErrEmptyResourceID
	}

	released, err := c.store.Release(ctx, resource, c.holder)
	if err != nil {
		c.recordStorageError(OpRelease, err)
		return false, err
	}

	c.metrics.IncrReleaseRequest(resource, released)
	if released {
		c.logger.WithResource(resource).Infow("released lock")
	} else {
		c.logger.WithResource(resource).Warnw("release was a no-op; lock not held by this client")
	}
	return released, nil
}

// WithLock brackets fn with acquisition and guaranteed release.
func (c *client) WithLock(ctx context.Context, resource types.ResourceID, timeout, ttl, pollInterval time.Duration, fn func(ctx context.Context, acquired bool) error) error {
	if fn == nil {
		return errors.New("benchlock: critical section must not be nil")
	}

	acquired, err := c.AcquireLock(ctx, resource, timeout, ttl, pollInterval)
	if err != nil {
		return err
	}

	if !acquired {
		// Nothing was acquired, so nothing to release. The critical section
		// decides for itself whether to proceed without the lock.
		return fn(ctx, false)
	}

	heldSince := c.clock.Now()
	defer func() {
		c.metrics.ObserveHoldDuration(resource, c.clock.Since(heldSince))

		// Release must run even when fn panicked or ctx is done. A fresh
		// context keeps cancellation of the critical section from leaking
		// the lock until TTL expiry.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, relErr := c.ReleaseLock(releaseCtx, resource); relErr != nil {
			c.logger.WithResource(resource).
				Errorw("failed to release lock after critical section", "error", relErr)
		}
	}()

	return fn(ctx, true)
}

// CleanupExpiredLocks deletes every expired record and returns the count.
func (c *client) CleanupExpiredLocks(ctx context.Context) (int, error) {
	deleted, err := c.store.CleanupExpired(ctx)
	if err != nil {
		c.recordStorageError(OpCleanupExpired, err)
		return 0, err
	}

	c.metrics.IncrCleanupRun(deleted)
	if deleted > 0 {
		c.logger.Infow("cleaned up expired locks", "deleted", deleted)
	}
	return deleted, nil
}

// validateAcquireArgs applies the defaulting and fail-fast validation rules
// shared by AcquireLock and WithLock.
func (c *client) validateAcquireArgs(resource types.ResourceID, timeout, ttl, pollInterval time.Duration) (time.Duration, time.Duration, time.Duration, error) {
	if resource == "" {
		return 0, 0, 0, ErrEmptyResourceID
	}
	if timeout < 0 {
		return 0, 0, 0, fmt.Errorf("%w: got %v", ErrInvalidTimeout, timeout)
	}
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}
	if ttl <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: got %v", ErrInvalidTTL, ttl)
	}
	if pollInterval == 0 {
		pollInterval = c.config.DefaultPollInterval
	}
	if pollInterval <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: got %v", ErrInvalidPollInterval, pollInterval)
	}
	return timeout, ttl, pollInterval, nil
}

// tryAcquireOnce performs a single TryAcquire round-trip with a fresh
// now+ttl expiry.
func (c *client) tryAcquireOnce(ctx context.Context, resource types.ResourceID, ttl time.Duration) (bool, error) {
	expiresAt := c.clock.Now().Add(ttl)

	acquired, err := c.store.TryAcquire(ctx, resource, c.holder, expiresAt, c.config.Metadata)
	if err != nil {
		c.recordStorageError(OpTryAcquire, err)
		return false, err
	}

	c.metrics.IncrAcquireAttempt(resource, acquired)
	return acquired, nil
}

func (c *client) recordStorageError(op string, err error) {
	c.metrics.IncrStorageError(op, IsTransient(err))
	c.logger.Errorw("storage operation failed", "op", op, "error", err)
}
