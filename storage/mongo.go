package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// KVCollection is the collection the mongo driver keeps its documents in.
const KVCollection = "kv"

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Mongo stores one document per key. Each Set replaces the whole document.
type Mongo struct {
	collection *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{collection: db.Collection(KVCollection)}
}

func (m *Mongo) Get(ctx context.Context, key string) (string, bool, error) {
	var doc kvDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mongo find %q: %w", key, err)
	}
	return doc.Value, true, nil
}

func (m *Mongo) Set(ctx context.Context, key, value string) error {
	doc := kvDocument{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo replace %q: %w", key, err)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, key string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo delete %q: %w", key, err)
	}
	return nil
}

// Close disconnects the client that owns the collection.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.collection.Database().Client().Disconnect(ctx)
}
