package repository

import (
	"context"
	"sync"
	"time"

	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryConfigStore keeps settings in process memory. Used for local runs and tests.
type MemoryConfigStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryConfigStore creates an empty in-memory store
func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{values: make(map[string]string)}
}

var _ ports.ConfigStore = (*MemoryConfigStore)(nil)

// Get returns the value for key, or an empty string
func (s *MemoryConfigStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

// Put stores value under key
func (s *MemoryConfigStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes key
func (s *MemoryConfigStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

const memoryLedgerSize = 10000

// MemoryDeliveryLedger remembers the most recent delivery ids for ttl
type MemoryDeliveryLedger struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, struct{}]
}

// NewMemoryDeliveryLedger creates a bounded in-memory ledger
func NewMemoryDeliveryLedger(ttl time.Duration) *MemoryDeliveryLedger {
	return &MemoryDeliveryLedger{
		cache: expirable.NewLRU[string, struct{}](memoryLedgerSize, nil, ttl),
	}
}

var _ ports.DeliveryLedger = (*MemoryDeliveryLedger)(nil)

// MarkDelivered records the id unless it is already cached
func (l *MemoryDeliveryLedger) MarkDelivered(_ context.Context, deliveryID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache.Contains(deliveryID) {
		return false, nil
	}
	l.cache.Add(deliveryID, struct{}{})
	return true, nil
}

// Release drops the id from the cache
func (l *MemoryDeliveryLedger) Release(_ context.Context, deliveryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Remove(deliveryID)
	return nil
}
