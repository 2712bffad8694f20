package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TakeStatus is the outcome of a conditional decrement.
type TakeStatus uint8

const (
	// TakeMissing means no counter exists for the key (never opened or already expired).
	TakeMissing TakeStatus = iota
	// TakeExhausted means the counter is at zero and was left untouched.
	TakeExhausted
	// TakeOK means one unit was consumed.
	TakeOK
)

// Store is the counter store adapter. Every method must be atomic per key.
type Store interface {
	// Open creates key with the given remaining count and TTL only if it does not exist.
	// It reports whether this call created the key.
	Open(ctx context.Context, key string, remaining int64, ttl time.Duration) (bool, error)
	// Take decrements key by one unless it is missing or already zero. A zero counter
	// without an expiry gets ttl attached so the window can still close.
	Take(ctx context.Context, key string, ttl time.Duration) (TakeStatus, int64, error)
	// TTL returns the time left on key, or a non-positive value when the key is gone.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

const takeScript = `
local v = redis.call('GET', KEYS[1])
if not v then
  return {0, 0}
end
local n = tonumber(v)
if not n then
  return redis.error_reply('rate counter is not an integer')
end
if n <= 0 then
  if redis.call('PTTL', KEYS[1]) == -1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
  end
  return {1, 0}
end
return {2, redis.call('DECR', KEYS[1])}
`

var takeLua = redis.NewScript(takeScript)

// RedisStore implements Store on Redis (or any server speaking its protocol and Lua).
type RedisStore struct {
	redis redis.UniversalClient
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{redis: client}
}

func (s *RedisStore) Open(ctx context.Context, key string, remaining int64, ttl time.Duration) (bool, error) {
	created, err := s.redis.SetNX(ctx, key, remaining, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return created, nil
}

func (s *RedisStore) Take(ctx context.Context, key string, ttl time.Duration) (TakeStatus, int64, error) {
	result, err := takeLua.Run(ctx, s.redis, []string{key}, ttl.Milliseconds()).Result()
	if err != nil {
		return TakeMissing, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) != 2 {
		return TakeMissing, 0, fmt.Errorf("%w: invalid take script response", ErrStoreUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return TakeMissing, 0, fmt.Errorf("%w: invalid take script status", ErrStoreUnavailable)
	}
	remaining, ok := parts[1].(int64)
	if !ok {
		return TakeMissing, 0, fmt.Errorf("%w: invalid take script count", ErrStoreUnavailable)
	}

	switch code {
	case 0:
		return TakeMissing, 0, nil
	case 1:
		return TakeExhausted, 0, nil
	case 2:
		return TakeOK, remaining, nil
	default:
		return TakeMissing, 0, fmt.Errorf("%w: unknown take script status %d", ErrStoreUnavailable, code)
	}
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
