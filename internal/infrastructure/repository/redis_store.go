package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/redis/go-redis/v9"
)

const deliveryKeyPrefix = "jira-github-integration:delivery:"

// RedisConfigStore implements ConfigStore with plain string keys
type RedisConfigStore struct {
	client *redis.Client
}

// NewRedisConfigStore creates a new Redis config store
func NewRedisConfigStore(client *redis.Client) ports.ConfigStore {
	return &RedisConfigStore{client: client}
}

// Get returns the value for key. A missing key is an empty string.
func (s *RedisConfigStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key without expiry
func (s *RedisConfigStore) Put(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (s *RedisConfigStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// RedisDeliveryLedger implements DeliveryLedger with SETNX and an expiry
type RedisDeliveryLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeliveryLedger creates a ledger whose entries expire after ttl
func NewRedisDeliveryLedger(client *redis.Client, ttl time.Duration) ports.DeliveryLedger {
	return &RedisDeliveryLedger{client: client, ttl: ttl}
}

// MarkDelivered sets the delivery key if absent
func (l *RedisDeliveryLedger) MarkDelivered(ctx context.Context, deliveryID string) (bool, error) {
	first, err := l.client.SetNX(ctx, deliveryKeyPrefix+deliveryID, time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record delivery: %w", err)
	}
	return first, nil
}

// Release deletes the delivery key
func (l *RedisDeliveryLedger) Release(ctx context.Context, deliveryID string) error {
	if err := l.client.Del(ctx, deliveryKeyPrefix+deliveryID).Err(); err != nil {
		return fmt.Errorf("failed to release delivery: %w", err)
	}
	return nil
}
