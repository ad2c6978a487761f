package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lent0n/jira-github-integration/internal/infrastructure/repository/entity"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfigStore implements ConfigStore on the settings collection, one document per key
type MongoConfigStore struct {
	collection *mongo.Collection
}

// NewMongoConfigStore creates a new MongoDB config store
func NewMongoConfigStore(db *mongo.Database) ports.ConfigStore {
	return &MongoConfigStore{
		collection: db.Collection("settings"),
	}
}

// Get returns the stored value, or "" when the key is absent
func (s *MongoConfigStore) Get(ctx context.Context, key string) (string, error) {
	var doc entity.MongoSettingDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return doc.Value, nil
}

// Put upserts the value under key
func (s *MongoConfigStore) Put(ctx context.Context, key, value string) error {
	doc := entity.NewMongoSettingDoc(key, value)
	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": bson.M{"value": doc.Value, "updatedAt": doc.UpdatedAt}}

	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": key}, update, opts); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *MongoConfigStore) Delete(ctx context.Context, key string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// MongoDeliveryLedger implements DeliveryLedger on a TTL-indexed collection
type MongoDeliveryLedger struct {
	collection *mongo.Collection
	ttl        time.Duration
}

// NewMongoDeliveryLedger creates a ledger whose entries expire after ttl
func NewMongoDeliveryLedger(db *mongo.Database, ttl time.Duration) *MongoDeliveryLedger {
	return &MongoDeliveryLedger{
		collection: db.Collection("webhook_deliveries"),
		ttl:        ttl,
	}
}

var _ ports.DeliveryLedger = (*MongoDeliveryLedger)(nil)

// EnsureIndexes creates the TTL index on createdAt
func (l *MongoDeliveryLedger) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(l.ttl.Seconds())),
	}
	if _, err := l.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create delivery ttl index: %w", err)
	}
	return nil
}

// MarkDelivered inserts the id. A duplicate key means it was already processed.
func (l *MongoDeliveryLedger) MarkDelivered(ctx context.Context, deliveryID string) (bool, error) {
	doc := entity.MongoDeliveryDoc{DeliveryID: deliveryID, CreatedAt: time.Now()}
	_, err := l.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record delivery: %w", err)
	}
	return true, nil
}

// Release deletes the delivery document
func (l *MongoDeliveryLedger) Release(ctx context.Context, deliveryID string) error {
	if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": deliveryID}); err != nil {
		return fmt.Errorf("failed to release delivery: %w", err)
	}
	return nil
}
