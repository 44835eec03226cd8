package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore { return &fakeStore{values: map[string]string{}} }

func (s *fakeStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.values[key] = value
	return nil
}

func (s *fakeStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *fakeStore) Del(_ context.Context, key string) error {
	delete(s.values, key)
	return nil
}

func TestOnlineLifecycle(t *testing.T) {
	store := newFakeStore()
	tr := NewTracker(store, time.Minute)
	ctx := context.Background()

	require.False(t, tr.Online(ctx, "dev-1"))

	require.NoError(t, tr.MarkOnline(ctx, "dev-1"))
	require.True(t, tr.Online(ctx, "dev-1"))
	require.False(t, tr.Online(ctx, "dev-2"))

	require.NoError(t, tr.MarkOffline(ctx, "dev-1"))
	require.False(t, tr.Online(ctx, "dev-1"))
}

func TestLastSeen(t *testing.T) {
	store := newFakeStore()
	tr := NewTracker(store, time.Minute)
	ctx := context.Background()

	_, err := tr.LastSeen(ctx, "dev-1")
	require.ErrorIs(t, err, ErrNotFound)

	before := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, tr.MarkOnline(ctx, "dev-1"))

	ts, err := tr.LastSeen(ctx, "dev-1")
	require.NoError(t, err)
	require.False(t, ts.Before(before))
}

func TestLastSeenRejectsGarbage(t *testing.T) {
	store := newFakeStore()
	store.values["fleet:presence:dev-1"] = "yesterday-ish"
	tr := NewTracker(store, time.Minute)

	_, err := tr.LastSeen(context.Background(), "dev-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestKeysAreNamespaced(t *testing.T) {
	store := newFakeStore()
	tr := NewTracker(store, time.Minute)

	require.NoError(t, tr.MarkOnline(context.Background(), "dev-1"))
	_, ok := store.values["fleet:presence:dev-1"]
	require.True(t, ok)
}
