package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 64

type entry struct {
	userID    string
	expiresAt time.Time // zero means no expiry
}

type tokenShard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type userShard struct {
	mu     sync.RWMutex
	tokens map[string]string // userID -> most recently put token
}

// MemoryCache is the default single-process Cache: a sharded concurrent map
// keyed by access token, plus a reverse user index for rotation. Sharding
// keeps the hot lookup path low-contention; there is no global lock.
type MemoryCache struct {
	tokens [shardCount]tokenShard
	users  [shardCount]userShard

	now func() time.Time // injectable clock for tests
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{now: time.Now}
	for i := range c.tokens {
		c.tokens[i].entries = make(map[string]entry)
	}
	for i := range c.users {
		c.users[i].tokens = make(map[string]string)
	}
	return c
}

func shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}

func (c *MemoryCache) Put(_ context.Context, token, userID string, expiresAt time.Time) error {
	ts := &c.tokens[shardIndex(token)]
	ts.mu.Lock()
	ts.entries[token] = entry{userID: userID, expiresAt: expiresAt}
	ts.mu.Unlock()

	us := &c.users[shardIndex(userID)]
	us.mu.Lock()
	us.tokens[userID] = token
	us.mu.Unlock()

	return nil
}

func (c *MemoryCache) Lookup(_ context.Context, token string) (string, bool, error) {
	ts := &c.tokens[shardIndex(token)]

	ts.mu.RLock()
	e, ok := ts.entries[token]
	ts.mu.RUnlock()

	if !ok {
		return "", false, nil
	}

	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		// Lazy eviction: an expired entry behaves exactly like a missing one.
		c.evictExpired(token, e)
		return "", false, nil
	}

	return e.userID, true, nil
}

func (c *MemoryCache) Remove(_ context.Context, token string) error {
	ts := &c.tokens[shardIndex(token)]

	ts.mu.Lock()
	e, ok := ts.entries[token]
	if ok {
		delete(ts.entries, token)
	}
	ts.mu.Unlock()

	if !ok {
		return nil
	}

	c.dropUserIndex(e.userID, token)
	return nil
}

func (c *MemoryCache) FindTokenByUser(ctx context.Context, userID string) (string, bool, error) {
	us := &c.users[shardIndex(userID)]

	us.mu.RLock()
	token, ok := us.tokens[userID]
	us.mu.RUnlock()

	if !ok {
		return "", false, nil
	}

	// The index may lag behind an eviction; confirm the token is still live.
	if _, live, _ := c.Lookup(ctx, token); !live {
		return "", false, nil
	}
	return token, true, nil
}

// Len reports the number of live token entries. Test helper.
func (c *MemoryCache) Len() int {
	n := 0
	for i := range c.tokens {
		c.tokens[i].mu.RLock()
		n += len(c.tokens[i].entries)
		c.tokens[i].mu.RUnlock()
	}
	return n
}

func (c *MemoryCache) evictExpired(token string, e entry) {
	ts := &c.tokens[shardIndex(token)]
	ts.mu.Lock()
	// Re-check under the write lock: the entry may have been replaced by a
	// fresh Put since the read.
	if cur, ok := ts.entries[token]; ok && cur == e {
		delete(ts.entries, token)
	}
	ts.mu.Unlock()

	c.dropUserIndex(e.userID, token)
}

// dropUserIndex clears the reverse index only if it still points at token, so
// a concurrent re-login is not clobbered.
func (c *MemoryCache) dropUserIndex(userID, token string) {
	us := &c.users[shardIndex(userID)]
	us.mu.Lock()
	if cur, ok := us.tokens[userID]; ok && cur == token {
		delete(us.tokens, userID)
	}
	us.mu.Unlock()
}
