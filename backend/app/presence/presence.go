package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a device has no presence key.
var ErrNotFound = errors.New("presence: not found")

// Store is the small KV surface the tracker needs; redis in production,
// an in-memory fake in tests.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

// RedisStore adapts a redis client to Store.
type RedisStore struct{ C *redis.Client }

func (s RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.C.Set(ctx, key, value, ttl).Err()
}

func (s RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.C.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (s RedisStore) Del(ctx context.Context, key string) error {
	return s.C.Del(ctx, key).Err()
}

const keyPrefix = "fleet:presence:"

// Tracker keeps per-device online/last-seen markers with a TTL, so a
// crashed backend or a dead session ages out on its own.
type Tracker struct {
	store Store
	ttl   time.Duration
}

func NewTracker(store Store, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &Tracker{store: store, ttl: ttl}
}

// MarkOnline sets the presence key; call again on heartbeats to refresh.
func (t *Tracker) MarkOnline(ctx context.Context, deviceID string) error {
	return t.store.Set(ctx, keyPrefix+deviceID, time.Now().UTC().Format(time.RFC3339), t.ttl)
}

// MarkOffline drops the presence key immediately.
func (t *Tracker) MarkOffline(ctx context.Context, deviceID string) error {
	return t.store.Del(ctx, keyPrefix+deviceID)
}

// Online reports whether the device has a live presence key.
func (t *Tracker) Online(ctx context.Context, deviceID string) bool {
	_, err := t.store.Get(ctx, keyPrefix+deviceID)
	return err == nil
}

// LastSeen returns the timestamp stored at the last MarkOnline.
func (t *Tracker) LastSeen(ctx context.Context, deviceID string) (time.Time, error) {
	v, err := t.store.Get(ctx, keyPrefix+deviceID)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("presence: bad timestamp %q: %w", v, err)
	}
	return ts, nil
}
