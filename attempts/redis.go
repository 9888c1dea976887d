package attempts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "la:"
	fieldCount     = "count"
	fieldStarted   = "started"

	// expiryPad keeps the hash alive one millisecond past the window so the
	// strict "older than window" rule still reads it at the boundary.
	expiryPad = time.Millisecond
)

// incrementAttemptLua counts one attempt in a single round trip.
// KEYS[1] = record key
// ARGV[1] = now (unix ms)
// ARGV[2] = window (ms)
// ARGV[3] = ttl for a new window (ms)
//
// Returns {count, started} or the error string "corrupt".
var incrementAttemptLua = redis.NewScript(`
local vals = redis.call('HMGET', KEYS[1], 'count', 'started')
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

if vals[1] or vals[2] then
  local count = tonumber(vals[1])
  local started = tonumber(vals[2])
  if not count or not started then
    return {err='corrupt'}
  end
  if now - started <= window then
    count = redis.call('HINCRBY', KEYS[1], 'count', 1)
    return {count, started}
  end
end

redis.call('HSET', KEYS[1], 'count', 1, 'started', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ttl)
return {1, now}
`)

// RedisStore keeps one hash per identifier (fields count and started, the
// latter in unix milliseconds). Increments run as one Lua script, so
// concurrent writers never retry or lose counts.
type RedisStore struct {
	redis redis.UniversalClient
}

// NewRedisStore creates a store on the given client.
func NewRedisStore(redisClient redis.UniversalClient) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func (s *RedisStore) key(identifier string) string {
	return redisKeyPrefix + identifier
}

// Load implements [Store].
func (s *RedisStore) Load(ctx context.Context, identifier string) (Record, bool, error) {
	vals, err := s.redis.HGetAll(ctx, s.key(identifier)).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return decodeRecord(identifier, vals)
}

// Increment implements [Store]. A new window sets PEXPIRE to window plus one
// millisecond so Redis drops the hash once it can no longer block.
func (s *RedisStore) Increment(ctx context.Context, identifier string, now time.Time, window time.Duration) (Record, error) {
	res, err := incrementAttemptLua.Run(ctx, s.redis,
		[]string{s.key(identifier)},
		now.UnixMilli(),
		window.Milliseconds(),
		(window + expiryPad).Milliseconds(),
	).Int64Slice()
	if err != nil {
		if err.Error() == "corrupt" {
			return Record{}, fmt.Errorf("%w: corrupt record for %q", ErrStoreUnavailable, identifier)
		}
		return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return Record{}, fmt.Errorf("%w: unexpected script reply for %q", ErrStoreUnavailable, identifier)
	}
	return Record{
		Identifier:      identifier,
		Count:           int(res[0]),
		WindowStartedAt: time.UnixMilli(res[1]),
	}, nil
}

// Delete implements [Store].
func (s *RedisStore) Delete(ctx context.Context, identifier string) error {
	if err := s.redis.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func decodeRecord(identifier string, vals map[string]string) (Record, bool, error) {
	if len(vals) == 0 {
		return Record{}, false, nil
	}
	count, err := strconv.Atoi(vals[fieldCount])
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: corrupt count for %q", ErrStoreUnavailable, identifier)
	}
	started, err := strconv.ParseInt(vals[fieldStarted], 10, 64)
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: corrupt window start for %q", ErrStoreUnavailable, identifier)
	}
	return Record{
		Identifier:      identifier,
		Count:           count,
		WindowStartedAt: time.UnixMilli(started),
	}, true, nil
}
