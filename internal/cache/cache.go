// Package cache provides the explicit cache component shared by services.
//
// Callers receive a Store by reference; there is no package-level client.
// Two backends exist: a bounded in-process LRU and Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is a byte-oriented key/value cache with per-entry TTL.
type Store interface {
	// Get returns (nil, false, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Key prefixes.
const (
	FeedCountPrefix = "feed:count:%s"
	FollowingPrefix = "user:%d:following"

	// FeedCountGenerationKey holds the token mixed into every feed count key.
	FeedCountGenerationKey = "feed:count:gen"
)

// TTLs.
const (
	FollowingTTL = 2 * time.Minute
)

// FeedCountKey keys the cached row count for a feed filter fingerprint.
func FeedCountKey(fingerprint string) string {
	return fmt.Sprintf(FeedCountPrefix, fingerprint)
}

// FollowingKey keys the cached set of authors a user follows.
func FollowingKey(userID uint) string {
	return fmt.Sprintf(FollowingPrefix, userID)
}

// GetJSON attempts to get the key and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, s Store, key string, dest any) (bool, error) {
	if s == nil {
		return false, nil
	}
	b, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, b, ttl)
}

// Aside tries the cache first; on a miss it calls fetch (which must populate
// dest) and stores the result with ttl. Cache read and write failures fall
// through to fetch and are otherwise ignored.
func Aside(ctx context.Context, s Store, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := GetJSON(ctx, s, key, dest); err == nil && found {
		return nil
	}
	if err := fetch(); err != nil {
		return err
	}
	_ = SetJSON(ctx, s, key, dest, ttl)
	return nil
}
