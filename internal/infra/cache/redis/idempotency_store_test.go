package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuecal/internal/app/middleware"
)

func newStore(t *testing.T, ttl time.Duration) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client, ttl), srv
}

func TestSaveThenGet(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	_, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k1", Command: "reservation.create", Payload: []byte(`{"id":"r1"}`), OccurredAt: at}))

	rec, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "reservation.create", rec.Command)
	assert.JSONEq(t, `{"id":"r1"}`, string(rec.Payload))
	assert.Equal(t, at, rec.OccurredAt)
}

func TestFirstResultWins(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k1", Command: "reservation.create", Payload: []byte(`"first"`)}))
	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k1", Command: "reservation.create", Payload: []byte(`"second"`)}))

	rec, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"first"`, string(rec.Payload))
}

func TestEntriesExpire(t *testing.T) {
	store, srv := newStore(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k1", Command: "event.save"}))

	srv.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewClientFailsOnUnreachableServer(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewClient(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
