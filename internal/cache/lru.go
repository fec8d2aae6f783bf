package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRU is a bounded in-process Store. The least recently used entry is
// evicted once size is reached; entries also expire after their own TTL or
// maxTTL, whichever is shorter.
type LRU struct {
	entries *expirable.LRU[string, lruEntry]
	maxTTL  time.Duration
	now     func() time.Time
}

// NewLRU creates an LRU holding at most size entries.
func NewLRU(size int, maxTTL time.Duration) *LRU {
	if size < 1 {
		size = 1
	}
	return &LRU{
		entries: expirable.NewLRU[string, lruEntry](size, nil, maxTTL),
		maxTTL:  maxTTL,
		now:     time.Now,
	}
}

func (c *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.entries.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *LRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.maxTTL > 0 && (ttl <= 0 || ttl > c.maxTTL) {
		ttl = c.maxTTL
	}
	e := lruEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries.Add(key, e)
	return nil
}

func (c *LRU) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.entries.Remove(k)
	}
	return nil
}

// Len reports the number of live entries.
func (c *LRU) Len() int {
	return c.entries.Len()
}
