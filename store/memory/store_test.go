package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArdentAILabs/benchlock/lock"
	"github.com/ArdentAILabs/benchlock/types"
)

// manualClock is a hand-driven clock for deterministic expiry tests.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1700000000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now().Add(d)
	return ch
}

func (c *manualClock) Sleep(time.Duration) {}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStore_TryAcquireAndPeek(t *testing.T) {
	s := New()
	ctx := context.Background()

	held, err := s.PeekStatus(ctx, "r")
	require.NoError(t, err)
	assert.False(t, held, "lock should be initially free")

	ok, err := s.TryAcquire(ctx, "r", "h1", time.Now().Add(time.Minute), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	held, err = s.PeekStatus(ctx, "r")
	require.NoError(t, err)
	assert.True(t, held)

	ok, err = s.TryAcquire(ctx, "r", "h2", time.Now().Add(time.Minute), nil)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire on a held lock must fail")
}

func TestStore_PeekIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.TryAcquire(ctx, "r", "h1", time.Now().Add(time.Minute), nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		held, err := s.PeekStatus(ctx, "r")
		require.NoError(t, err)
		assert.True(t, held)
	}
	assert.Equal(t, 1, s.Len(), "peek must not mutate state")
}

func TestStore_ReleaseOwnershipCheck(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.TryAcquire(ctx, "r", "h1", time.Now().Add(time.Minute), nil)
	require.NoError(t, err)

	released, err := s.Release(ctx, "r", "h2")
	require.NoError(t, err)
	assert.False(t, released, "wrong holder must not release")

	held, _ := s.PeekStatus(ctx, "r")
	assert.True(t, held, "record must be undisturbed by the failed release")

	released, err = s.Release(ctx, "r", "h1")
	require.NoError(t, err)
	assert.True(t, released)

	released, err = s.Release(ctx, "r", "h1")
	require.NoError(t, err)
	assert.False(t, released, "releasing an absent lock reports false, not an error")
}

func TestStore_LazyExpiry(t *testing.T) {
	clock := newManualClock()
	s := New(WithClock(clock))
	ctx := context.Background()

	ok, err := s.TryAcquire(ctx, "r", "h1", clock.Now().Add(time.Minute), nil)
	require.NoError(t, err)
	require.True(t, ok)

	// Before expiry another holder is rejected.
	ok, err = s.TryAcquire(ctx, "r", "h2", clock.Now().Add(time.Minute), nil)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(2 * time.Minute)

	held, err := s.PeekStatus(ctx, "r")
	require.NoError(t, err)
	assert.False(t, held, "expired record must not read as live")

	ok, err = s.TryAcquire(ctx, "r", "h2", clock.Now().Add(time.Minute), nil)
	require.NoError(t, err)
	assert.True(t, ok, "expired record must be reclaimed on the next acquire attempt")

	rec, found := s.Record("r")
	require.True(t, found)
	assert.Equal(t, types.HolderID("h2"), rec.HolderID)
}

func TestStore_ExpiredHolderCannotRelease(t *testing.T) {
	clock := newManualClock()
	s := New(WithClock(clock))
	ctx := context.Background()

	_, err := s.TryAcquire(ctx, "r", "h1", clock.Now().Add(time.Minute), nil)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = s.TryAcquire(ctx, "r", "h2", clock.Now().Add(time.Minute), nil)
	require.NoError(t, err)

	released, err := s.Release(ctx, "r", "h1")
	require.NoError(t, err)
	assert.False(t, released, "the original holder lost ownership at expiry")

	held, _ := s.PeekStatus(ctx, "r")
	assert.True(t, held, "h2's record must be undisturbed")
}

func TestStore_CleanupExpired(t *testing.T) {
	clock := newManualClock()
	s := New(WithClock(clock))
	ctx := context.Background()

	// Two records that will expire, two that stay live.
	for _, r := range []types.ResourceID{"dead1", "dead2"} {
		_, err := s.TryAcquire(ctx, r, "h", clock.Now().Add(time.Second), nil)
		require.NoError(t, err)
	}
	for _, r := range []types.ResourceID{"live1", "live2"} {
		_, err := s.TryAcquire(ctx, r, "h", clock.Now().Add(time.Hour), nil)
		require.NoError(t, err)
	}

	clock.Advance(time.Minute)

	deleted, err := s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 2, s.Len())

	for _, r := range []types.ResourceID{"live1", "live2"} {
		held, err := s.PeekStatus(ctx, r)
		require.NoError(t, err)
		assert.True(t, held, "live record %s must be untouched", r)
	}

	deleted, err = s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted, "cleanup is idempotent")
}

func TestStore_MetadataStored(t *testing.T) {
	s := New()
	ctx := context.Background()

	meta := types.Metadata{"host": "ci-runner-3", "test": "db_migration"}
	_, err := s.TryAcquire(ctx, "r", "h1", time.Now().Add(time.Minute), meta)
	require.NoError(t, err)

	rec, found := s.Record("r")
	require.True(t, found)
	assert.Equal(t, meta, rec.Metadata)
}

func TestStore_ClosedStoreFails(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())

	_, err := s.PeekStatus(context.Background(), "r")
	assert.ErrorIs(t, err, lock.ErrStoreClosed)
	assert.ErrorIs(t, err, lock.ErrStorageUnavailable)
	assert.False(t, lock.IsTransient(err), "operations on a closed store must not be retried")
}

func TestStore_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.TryAcquire(ctx, "r", "h", time.Now().Add(time.Minute), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ConcurrentTryAcquire_SingleWinner(t *testing.T) {
	s := New()
	ctx := context.Background()

	const workers = 100
	var wg sync.WaitGroup
	var winners atomic.Int32

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			holder := types.HolderID(string(rune('a' + n%26)))
			ok, err := s.TryAcquire(ctx, "contested", holder, time.Now().Add(time.Minute), nil)
			assert.NoError(t, err)
			if ok {
				winners.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load(), "exactly one TryAcquire may succeed")
}

// The tests below run the full client over the memory store, covering the
// end-to-end properties a single backend round-trip cannot.

func newClientPair(t *testing.T, s *Store) (lock.Client, lock.Client) {
	t.Helper()
	a, err := lock.NewClient(s, "worker-a")
	require.NoError(t, err)
	b, err := lock.NewClient(s, "worker-b")
	require.NoError(t, err)
	return a, b
}

func TestClientOverStore_MutualExclusion(t *testing.T) {
	s := New()
	ctx := context.Background()

	const workers = 8
	var inSection atomic.Int32
	var maxSeen atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c, err := lock.NewClient(s, types.HolderID(string(rune('a'+n))))
			if !assert.NoError(t, err) {
				return
			}

			err = c.WithLock(ctx, "shared", 5*time.Second, time.Minute, 5*time.Millisecond,
				func(ctx context.Context, acquired bool) error {
					if !acquired {
						return nil
					}
					cur := inSection.Add(1)
					for {
						prev := maxSeen.Load()
						if cur <= prev || maxSeen.CompareAndSwap(prev, cur) {
							break
						}
					}
					time.Sleep(2 * time.Millisecond)
					inSection.Add(-1)
					return nil
				})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load(),
		"at most one critical section may be active at any instant")
}

func TestClientOverStore_HandoffWithinOnePollInterval(t *testing.T) {
	s := New()
	ctx := context.Background()
	first, second := newClientPair(t, s)

	acquired, err := first.AcquireLock(ctx, "db_migration", 5*time.Second, time.Minute, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired, "the first caller acquires immediately")

	secondDone := make(chan bool, 1)
	go func() {
		ok, err := second.AcquireLock(ctx, "db_migration", 5*time.Second, time.Minute, 10*time.Millisecond)
		assert.NoError(t, err)
		secondDone <- ok
	}()

	// The second caller must still be blocked while the first holds the lock.
	select {
	case <-secondDone:
		t.Fatal("second caller acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	released, err := first.ReleaseLock(ctx, "db_migration")
	require.NoError(t, err)
	require.True(t, released)

	select {
	case ok := <-secondDone:
		assert.True(t, ok, "the waiter acquires once the lock frees")
	case <-time.After(time.Second):
		t.Fatal("waiter did not acquire within a poll interval of release")
	}
}

func TestClientOverStore_ExpiryReclaim(t *testing.T) {
	s := New()
	ctx := context.Background()
	first, second := newClientPair(t, s)

	acquired, err := first.AcquireLock(ctx, "r", 0, 50*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	// Not acquirable before the TTL elapses.
	ok, err := second.AcquireLock(ctx, "r", 0, time.Minute, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	time.Sleep(80 * time.Millisecond)

	ok, err = second.AcquireLock(ctx, "r", 0, time.Minute, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok, "an expired lock is reclaimable without explicit release")

	released, err := first.ReleaseLock(ctx, "r")
	require.NoError(t, err)
	assert.False(t, released, "the crashed holder lost ownership at expiry")
}
