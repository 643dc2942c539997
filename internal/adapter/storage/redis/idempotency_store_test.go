package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStore_PutAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	key := "a1b2c3d4"
	value := []byte(`{"txn_ref":"DVA_ABC","status":"processing"}`)

	// Get before put => nil
	result, err := store.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, store.Put(ctx, key, value, 24*time.Hour))

	result, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestIdempotencyStore_PutIfAbsent(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	key := "dup-key"

	stored, err := store.PutIfAbsent(ctx, key, []byte("first"), time.Hour)
	require.NoError(t, err)
	assert.True(t, stored)

	// Second writer loses the race
	stored, err = store.PutIfAbsent(ctx, key, []byte("second"), time.Hour)
	require.NoError(t, err)
	assert.False(t, stored)

	result, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), result)
}

func TestIdempotencyStore_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "short", []byte("v"), time.Second))

	s.FastForward(2 * time.Second)

	result, err := store.Get(ctx, "short")
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestIdempotencyStore_PutOverwritesReservation(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	key := "reserved"

	stored, err := store.PutIfAbsent(ctx, key, []byte("__pending__"), time.Hour)
	require.NoError(t, err)
	require.True(t, stored)

	// Commit replaces the reservation sentinel with the final response
	require.NoError(t, store.Put(ctx, key, []byte(`{"success":true}`), time.Hour))

	result, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"success":true}`), result)
}
