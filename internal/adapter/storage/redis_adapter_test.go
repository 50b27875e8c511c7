package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

// newRedisAdapter isolates each test under its own key prefix.
func newRedisAdapter(t *testing.T) (*redis.Client, *RedisAdapter, string) {
	client := getRedisClient(t)
	prefix := "test:" + uuid.New().String() + ":"
	t.Cleanup(func() {
		ctx := context.Background()
		client.Del(ctx, prefix+productsKey, prefix+productOrderKey, prefix+auditKey)
		client.Close()
	})
	return client, NewRedisAdapter(client, prefix), prefix
}

func TestRedisAdapter_EmptyLoad(t *testing.T) {
	_, adapter, _ := newRedisAdapter(t)

	records, err := adapter.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestRedisAdapter_SnapshotRoundTrip(t *testing.T) {
	_, adapter, _ := newRedisAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Save(ctx, sampleRecords()))
	got, err := adapter.Load(ctx)
	require.NoError(t, err)
	requireSameRecords(t, sampleRecords(), got)

	require.NoError(t, adapter.Save(ctx, nil))
	got, err = adapter.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRedisAdapter_CorruptSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("listed id missing from hash", func(t *testing.T) {
		client, adapter, prefix := newRedisAdapter(t)
		client.RPush(ctx, prefix+productOrderKey, "ghost")

		_, err := adapter.Load(ctx)
		require.ErrorIs(t, err, domain.ErrStorageCorrupt)
	})

	t.Run("invalid json", func(t *testing.T) {
		client, adapter, prefix := newRedisAdapter(t)
		client.RPush(ctx, prefix+productOrderKey, "P1")
		client.HSet(ctx, prefix+productsKey, "P1", "{not json")

		_, err := adapter.Load(ctx)
		require.ErrorIs(t, err, domain.ErrStorageCorrupt)
	})

	t.Run("hash without order list", func(t *testing.T) {
		client, adapter, prefix := newRedisAdapter(t)
		client.HSet(ctx, prefix+productsKey, "P1", `{"name":"x","quantity":1,"price":"1"}`)

		_, err := adapter.Load(ctx)
		require.ErrorIs(t, err, domain.ErrStorageCorrupt)
	})
}

func TestRedisAdapter_AuditAppend(t *testing.T) {
	client, adapter, prefix := newRedisAdapter(t)
	ctx := context.Background()

	ts := time.Date(2026, 2, 11, 10, 30, 25, 0, time.Local)
	first := domain.AuditEntry{Timestamp: ts, ProductID: "P101", NewQuantity: 50, ActorRole: domain.RoleStaff}
	second := domain.AuditEntry{Timestamp: ts, ProductID: "P102", NewQuantity: 1, ActorRole: domain.RoleAdmin}
	require.NoError(t, adapter.Record(ctx, first))
	require.NoError(t, adapter.Record(ctx, second))

	lines, err := client.LRange(ctx, prefix+auditKey, 0, -1).Result()
	require.NoError(t, err)
	require.Equal(t, []string{first.Line(), second.Line()}, lines)

	entries, err := adapter.ReadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.AuditEntry{first, second}, entries)
}
