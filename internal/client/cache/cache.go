// Package cache keeps recently loaded profiles in the local key-value store.
// Records expire a fixed time after they were written. Expired records are
// left in place and overwritten by the next load.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/resdex/resdex/internal/client/kv"
	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/profile"
)

const DefaultTTL = 5 * time.Minute

// Record is the stored form of one cached profile.
type Record struct {
	Profile   *profile.UserProfile `json:"profile"`
	Timestamp time.Time            `json:"timestamp"`
}

type ProfileCache struct {
	store kv.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewProfileCache(store kv.Store, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ProfileCache{store: store, ttl: ttl, now: time.Now}
}

// Key is the store key for handle. Handles are case-insensitive, so the key is
// built from the lowercased handle.
func Key(handle string) string {
	return common.ProfileCacheKeyPrefix + strings.ToLower(strings.TrimSpace(handle))
}

// Get returns the cached profile when it was written less than ttl ago. A
// missing, expired or unreadable record is a miss.
func (c *ProfileCache) Get(ctx context.Context, handle string) (*profile.UserProfile, bool, error) {
	raw, err := c.store.Get(ctx, Key(handle))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Profile == nil {
		return nil, false, nil
	}
	if c.now().Sub(rec.Timestamp) >= c.ttl {
		return nil, false, nil
	}
	return rec.Profile, true, nil
}

// Put stores p under handle with a fresh timestamp.
func (c *ProfileCache) Put(ctx context.Context, handle string, p *profile.UserProfile) error {
	raw, err := json.Marshal(Record{Profile: p, Timestamp: c.now()})
	if err != nil {
		return err
	}
	return c.store.Set(ctx, Key(handle), raw)
}

func (c *ProfileCache) Delete(ctx context.Context, handle string) error {
	return c.store.Delete(ctx, Key(handle))
}
