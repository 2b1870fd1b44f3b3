package repository

import (
	"context"
	"testing"
	"time"

	"tms/internal/config"
	"tms/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSnapshotStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	repo := NewRedisSnapshotStore(client, "test:", 0)
	ctx := context.Background()

	t.Run("SaveAndLoad", func(t *testing.T) {
		err := repo.Save(ctx, models.KeyEquipment, []byte(`[{"id":"eq-001"}]`))
		require.NoError(t, err)

		got, err := repo.Load(ctx, models.KeyEquipment)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"eq-001"}]`, string(got))
		assert.True(t, s.Exists("test:"+models.KeyEquipment))
		assert.Zero(t, s.TTL("test:"+models.KeyEquipment))
	})

	t.Run("MissingKey", func(t *testing.T) {
		got, err := repo.Load(ctx, "absent")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, models.KeyUser, []byte(`{"id":"u1"}`)))
		require.NoError(t, repo.Delete(ctx, models.KeyUser))

		got, err := repo.Load(ctx, models.KeyUser)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("TTL", func(t *testing.T) {
		ttlRepo := NewRedisSnapshotStore(client, "ttl:", time.Minute)
		require.NoError(t, ttlRepo.Save(ctx, models.KeyUser, []byte(`{}`)))

		s.FastForward(2 * time.Minute)

		got, err := ttlRepo.Load(ctx, models.KeyUser)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ServerDown", func(t *testing.T) {
		down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		defer down.Close()

		_, err := NewRedisSnapshotStore(down, "", 0).Load(ctx, models.KeyOrders)
		assert.Error(t, err)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisSnapshotStore(nil, "", 0)
		_, err := repo.Load(ctx, models.KeyOrders)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
		assert.Error(t, repo.Save(ctx, models.KeyOrders, nil))
		assert.Error(t, repo.Delete(ctx, models.KeyOrders))
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("Close", func(t *testing.T) {
		c := redis.NewClient(&redis.Options{Addr: s.Addr()})
		assert.NoError(t, Close(c))
		assert.NoError(t, Close(nil))
	})
}
