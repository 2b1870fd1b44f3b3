package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tms/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore keeps each snapshot as one string value.
type RedisSnapshotStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisClient builds a client from the redis config section.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

// NewRedisSnapshotStore builds a store; a zero ttl keeps snapshots forever.
func NewRedisSnapshotStore(client *redis.Client, prefix string, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisSnapshotStore) key(key string) string {
	return r.prefix + key
}

func (r *RedisSnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from redis: %w", err)
	}
	return val, nil
}

func (r *RedisSnapshotStore) Save(ctx context.Context, key string, data []byte) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot in redis: %w", err)
	}
	return nil
}

func (r *RedisSnapshotStore) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot from redis: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the client if it is set.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
