// Package redis implements the storage coordinator over Redis.
//
// Redis has no unique-constraint-violation signal, so every operation is a
// single Lua script: the script's atomicity stands in for the database
// transaction, and the conditional check-then-set inside it stands in for
// the unique index. Expiry is judged against the Redis server's TIME inside
// the scripts, never against the client's clock, and records are kept past
// expiry for the lazy-expiry and cleanup sweeps rather than handed to
// native key expiration, so the coordinator's record lifecycle matches the
// relational backend exactly.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ArdentAILabs/benchlock/lock"
	"github.com/ArdentAILabs/benchlock/types"
)

const (
	backendName = "redis"

	keyPrefix = "benchlock:lock:"
)

var (
	tryAcquireScript = redis.NewScript(`
		local t = redis.call("TIME")
		local now_ms = t[1] * 1000 + math.floor(t[2] / 1000)
		local v = redis.call("GET", KEYS[1])
		if v then
			local rec = cjson.decode(v)
			if tonumber(rec.expires_at_ms) > now_ms then
				return 0
			end
			redis.call("DEL", KEYS[1])
		end
		redis.call("SET", KEYS[1], ARGV[1])
		return 1
	`)

	peekScript = redis.NewScript(`
		local t = redis.call("TIME")
		local now_ms = t[1] * 1000 + math.floor(t[2] / 1000)
		local v = redis.call("GET", KEYS[1])
		if not v then
			return 0
		end
		local rec = cjson.decode(v)
		if tonumber(rec.expires_at_ms) > now_ms then
			return 1
		end
		return 0
	`)

	releaseScript = redis.NewScript(`
		local v = redis.call("GET", KEYS[1])
		if not v then
			return 0
		end
		local rec = cjson.decode(v)
		if rec.holder_id ~= ARGV[1] then
			return 0
		end
		redis.call("DEL", KEYS[1])
		return 1
	`)

	cleanupScript = redis.NewScript(`
		local t = redis.call("TIME")
		local now_ms = t[1] * 1000 + math.floor(t[2] / 1000)
		local deleted = 0
		for _, key in ipairs(redis.call("KEYS", ARGV[1])) do
			local v = redis.call("GET", key)
			if v then
				local rec = cjson.decode(v)
				if tonumber(rec.expires_at_ms) <= now_ms then
					redis.call("DEL", key)
					deleted = deleted + 1
				end
			end
		end
		return deleted
	`)
)

// record is the JSON payload stored at each lock key. Times are Unix
// milliseconds so the scripts can compare them against redis TIME.
type record struct {
	HolderID     string         `json:"holder_id"`
	AcquiredAtMs int64          `json:"acquired_at_ms"`
	ExpiresAtMs  int64          `json:"expires_at_ms"`
	Metadata     types.Metadata `json:"metadata,omitempty"`
}

// Store implements lock.Store over a Redis client.
type Store struct {
	client *redis.Client
}

// New wraps an existing Redis client. The client's lifecycle belongs to the
// caller unless the store was built with Open.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Open connects to the Redis instance at url and verifies the connection.
func Open(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, lock.NewStorageError(backendName, "open", err, false)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, wrapError("open", err)
	}
	return New(client), nil
}

// PeekStatus reports whether a live record exists for the resource.
func (s *Store) PeekStatus(ctx context.Context, resource types.ResourceID) (bool, error) {
	n, err := peekScript.Run(ctx, s.client, []string{lockKey(resource)}).Int()
	if err != nil {
		return false, wrapError(lock.OpPeekStatus, err)
	}
	return n == 1, nil
}

// TryAcquire purges an expired record for the resource and conditionally
// sets a new one, in one script execution.
func (s *Store) TryAcquire(ctx context.Context, resource types.ResourceID, holder types.HolderID, expiresAt time.Time, meta types.Metadata) (bool, error) {
	payload, err := json.Marshal(record{
		HolderID:     string(holder),
		AcquiredAtMs: time.Now().UnixMilli(),
		ExpiresAtMs:  expiresAt.UnixMilli(),
		Metadata:     meta,
	})
	if err != nil {
		return false, lock.NewStorageError(backendName, lock.OpTryAcquire, err, false)
	}

	n, err := tryAcquireScript.Run(ctx, s.client, []string{lockKey(resource)}, payload).Int()
	if err != nil {
		return false, wrapError(lock.OpTryAcquire, err)
	}
	return n == 1, nil
}

// Release deletes the record if holder owns it.
func (s *Store) Release(ctx context.Context, resource types.ResourceID, holder types.HolderID) (bool, error) {
	n, err := releaseScript.Run(ctx, s.client, []string{lockKey(resource)}, string(holder)).Int()
	if err != nil {
		return false, wrapError(lock.OpRelease, err)
	}
	return n == 1, nil
}

// CleanupExpired deletes every expired record under the lock prefix and
// returns the count.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	n, err := cleanupScript.Run(ctx, s.client, []string{}, keyPrefix+"*").Int()
	if err != nil {
		return 0, wrapError(lock.OpCleanupExpired, err)
	}
	return n, nil
}

// Close closes the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func lockKey(resource types.ResourceID) string {
	return keyPrefix + string(resource)
}

// wrapError classifies a Redis failure into the storage error taxonomy.
func wrapError(op string, err error) error {
	return lock.NewStorageError(backendName, op, err, isTransient(err))
}

// isTransient reports whether a failure may clear on retry. Network trouble
// and timeouts are retried; authentication and script errors are not.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	if strings.Contains(msg, "NOAUTH") ||
		strings.Contains(msg, "WRONGPASS") ||
		strings.Contains(msg, "NOPERM") ||
		strings.HasPrefix(msg, "ERR ") {
		return false
	}

	if errors.Is(err, redis.ErrClosed) {
		return false
	}

	return true
}
