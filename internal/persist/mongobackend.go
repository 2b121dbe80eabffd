package persist

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoBackend stores every namespace as a collection of
// {namespace, key, value, updatedAt} documents. Grounded on
// ndrandal-feed-simulator's use of go.mongodb.org/mongo-driver/v2 for a
// persistent feed store — demonstrates the Backend contract over a
// networked store, where "atomic write" is a replace-upsert rather
// than a filesystem rename: Mongo's single-document write is already
// atomic, so there is no intermediate state for a crash to observe
// (the update either applied in full or didn't apply at all).
type MongoBackend struct {
	coll *mongo.Collection
}

type kvDoc struct {
	Namespace string `bson:"namespace"`
	Key       string `bson:"key"`
	Value     []byte `bson:"value"`
	UpdatedAt int64  `bson:"updatedAt"`
}

// NewMongoBackend connects to uri and targets db.collection for all
// namespaces, creating the compound unique index on first use.
func NewMongoBackend(ctx context.Context, uri, db, collection string) (*MongoBackend, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(db).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "namespace", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create mongo index: %w", err)
	}

	return &MongoBackend{coll: coll}, nil
}

func (b *MongoBackend) EnsureNamespace(context.Context, string) error { return nil }

func (b *MongoBackend) WriteData(ctx context.Context, namespace, key string, data []byte) error {
	filter := bson.D{{Key: "namespace", Value: namespace}, {Key: "key", Value: key}}
	update := bson.D{{Key: "$set", Value: kvDoc{
		Namespace: namespace,
		Key:       key,
		Value:     data,
		UpdatedAt: time.Now().UnixMilli(),
	}}}
	_, err := b.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (b *MongoBackend) ReadData(ctx context.Context, namespace, key string) ([]byte, error) {
	var doc kvDoc
	err := b.coll.FindOne(ctx, bson.D{{Key: "namespace", Value: namespace}, {Key: "key", Value: key}}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, nil // read failures are non-fatal per spec.md §7
	}
	return doc.Value, nil
}

func (b *MongoBackend) DeleteData(ctx context.Context, namespace, key string) error {
	_, err := b.coll.DeleteOne(ctx, bson.D{{Key: "namespace", Value: namespace}, {Key: "key", Value: key}})
	return err
}

func (b *MongoBackend) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	cur, err := b.coll.Find(ctx, bson.D{{Key: "namespace", Value: namespace}}, options.Find().SetProjection(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var keys []string
	for cur.Next(ctx) {
		var doc kvDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		keys = append(keys, doc.Key)
	}
	return keys, cur.Err()
}
