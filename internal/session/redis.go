package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	accessKeyPrefix = "session:access:"
	userKeyPrefix   = "session:user:"
)

// removeScript deletes the access entry and clears the reverse user index only
// when the index still points at the removed token, so a concurrent re-login
// is not clobbered.
const removeScript = `
local user = redis.call("GET", KEYS[1])
redis.call("DEL", KEYS[1])
if user then
  local ukey = ARGV[1] .. user
  if redis.call("GET", ukey) == ARGV[2] then
    redis.call("DEL", ukey)
  end
end
return user
`

var removeLua = redis.NewScript(removeScript)

// RedisCache is a Redis-backed Cache for deployments where the session cache
// must be shared across nodes. Expiry uses native Redis TTLs, so there is no
// lazy-eviction path.
type RedisCache struct {
	rdb *redis.Client
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Put(ctx context.Context, token, userID string, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl <= 0 {
			// Already expired; storing it would immediately violate Lookup.
			return nil
		}
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, accessKeyPrefix+token, userID, ttl)
	pipe.Set(ctx, userKeyPrefix+userID, token, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: redis put: %w", err)
	}
	return nil
}

func (c *RedisCache) Lookup(ctx context.Context, token string) (string, bool, error) {
	userID, err := c.rdb.Get(ctx, accessKeyPrefix+token).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: redis lookup: %w", err)
	}
	return userID, true, nil
}

func (c *RedisCache) Remove(ctx context.Context, token string) error {
	err := removeLua.Run(ctx, c.rdb,
		[]string{accessKeyPrefix + token},
		userKeyPrefix, token,
	).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("session: redis remove: %w", err)
	}
	return nil
}

func (c *RedisCache) FindTokenByUser(ctx context.Context, userID string) (string, bool, error) {
	token, err := c.rdb.Get(ctx, userKeyPrefix+userID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: redis find token: %w", err)
	}

	// The reverse index may outlive the access entry when TTLs race; confirm.
	if _, live, err := c.Lookup(ctx, token); err != nil || !live {
		return "", false, err
	}
	return token, true, nil
}
