// Package mongostore keeps session keys in a MongoDB collection, one
// document per key.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultDatabase   = "storefront"
	DefaultCollection = "sessions"
)

type entry struct {
	Key       string     `bson:"_id"`
	Value     string     `bson:"value"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty"`
}

// Connect opens a client for uri and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongostore: MONGO_URL is not set")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	return client, nil
}

// Storage is a storage.Storage on a collection. Zero TTL means keys never
// expire.
type Storage struct {
	coll *mongo.Collection
	ttl  time.Duration
	now  func() time.Time
}

func New(coll *mongo.Collection, ttl time.Duration) *Storage {
	return &Storage{coll: coll, ttl: ttl, now: time.Now}
}

// EnsureIndexes creates the TTL index that lets the server reap expired
// keys.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("mongostore: create ttl index: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	var e entry
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("mongostore: get %s: %w", key, err)
	}
	// the TTL monitor runs about once a minute
	if e.ExpiresAt != nil && !s.now().Before(*e.ExpiresAt) {
		return "", storage.ErrNotFound
	}
	return e.Value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	update := bson.M{"$set": bson.M{"value": value}}
	if s.ttl > 0 {
		update["$set"] = bson.M{"value": value, "expiresAt": s.now().Add(s.ttl)}
	} else {
		update["$unset"] = bson.M{"expiresAt": ""}
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongostore: set %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongostore: delete %s: %w", key, err)
	}
	return nil
}
