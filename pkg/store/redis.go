package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when none is configured.
const DefaultRedisKey = "td2048:snapshot"

// RedisStore keeps the encoded snapshot under a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// DialRedis connects to addr and checks the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return NewRedisStore(client, key), nil
}

// Key returns the Redis key holding the snapshot.
func (s *RedisStore) Key() string { return s.key }

// Save overwrites the stored snapshot.
func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, buf.Bytes(), 0).Err(); err != nil {
		return fmt.Errorf("saving snapshot to redis key %s: %w", s.key, err)
	}
	return nil
}

// Load fetches the snapshot, returning ErrNotFound if the key is missing.
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis key %s: %w", s.key, ErrNotFound)
		}
		return nil, fmt.Errorf("loading snapshot from redis: %w", err)
	}
	snap, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("redis key %s: %w", s.key, err)
	}
	return snap, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
