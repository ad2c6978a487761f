package entity

import (
	"time"
)

// MongoSettingDoc is one key/value row of the settings collection
type MongoSettingDoc struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// NewMongoSettingDoc stamps a value for storage
func NewMongoSettingDoc(key, value string) *MongoSettingDoc {
	return &MongoSettingDoc{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
}

// MongoDeliveryDoc records a processed webhook delivery.
// CreatedAt carries the TTL index, so the document expires on its own.
type MongoDeliveryDoc struct {
	DeliveryID string    `bson:"_id"`
	CreatedAt  time.Time `bson:"createdAt"`
}
