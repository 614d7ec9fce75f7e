package session

import (
	"context"
	"database/sql"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicmoon/marketplace/internal/infra"
)

func exerciseSlot(t *testing.T, slot Slot) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := slot.Get(ctx, SlotKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, slot.Set(ctx, SlotKey, `{"id":"1"}`))
	require.NoError(t, slot.Set(ctx, SlotKey, `{"id":"2"}`))
	v, ok, err := slot.Get(ctx, SlotKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"2"}`, v)

	require.NoError(t, slot.Remove(ctx, SlotKey))
	require.NoError(t, slot.Remove(ctx, SlotKey))
	_, ok, err = slot.Get(ctx, SlotKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySlot(t *testing.T) {
	exerciseSlot(t, NewMemorySlot())
}

func TestRedisSlot(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	slot := NewRedisSlot(client, "device-1")
	exerciseSlot(t, slot)

	require.NoError(t, slot.Set(context.Background(), SlotKey, "x"))
	assert.True(t, mr.Exists("session:v1:device-1:"+SlotKey))
}

func TestSQLiteSlot(t *testing.T) {
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, infra.MigrateSQLite(context.Background(), db))

	exerciseSlot(t, NewSQLiteSlot(db))
}
