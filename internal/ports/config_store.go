package ports

import "context"

// ConfigStore persists opaque configuration blobs by key
type ConfigStore interface {
	// Get returns "" and no error when the key is absent
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// DeliveryLedger remembers webhook delivery ids so redeliveries are not processed twice
type DeliveryLedger interface {
	// MarkDelivered records the id and reports whether this is the first time it was seen
	MarkDelivered(ctx context.Context, deliveryID string) (bool, error)
	// Release forgets the id so a redelivery is processed again
	Release(ctx context.Context, deliveryID string) error
}
