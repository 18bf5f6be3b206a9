// Package mongodb implements a DocumentStore backed by MongoDB. It exists for
// deployments that keep the shared collections in Mongo instead of Firestore;
// the `$in` operator gives it the same bounded membership-filter surface.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/juanma-plia/PLIA-SHARED/pkg/logger"
	"github.com/juanma-plia/PLIA-SHARED/pkg/storage"
)

const defaultConnectTimeout = 5 * time.Second

// Datastore is a DocumentStore over a single MongoDB database. Documents are
// keyed by their `_id` field.
type Datastore struct {
	client *mongo.Client
	db     *mongo.Database
	logger logger.Logger
}

var _ storage.DocumentStore = (*Datastore)(nil)

// New connects to the given URI and verifies the connection with a ping
// before returning.
func New(ctx context.Context, uri, database string, log logger.Logger) (*Datastore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect failed: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: ping failed: %w", err)
	}

	log.InfoWithContext(ctx, "mongodb client initialized", zap.String("database", database))
	return &Datastore{
		client: client,
		db:     client.Database(database),
		logger: log,
	}, nil
}

func (d *Datastore) GetDocument(ctx context.Context, collection, id string) (storage.Document, error) {
	var raw bson.M
	err := d.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.Document{}, storage.DocumentNotFoundError(collection, id)
	}
	if err != nil {
		d.logger.ErrorWithContext(ctx, "mongodb get failed",
			zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return storage.Document{}, classify(err)
	}
	return toDocument(id, raw), nil
}

func (d *Datastore) QueryByMembership(ctx context.Context, collection, field string, values []string, opts storage.QueryOptions) ([]storage.Document, error) {
	findOpts := options.Find()
	if opts.OrderBy != "" {
		findOpts = findOpts.SetSort(bson.D{{Key: opts.OrderBy, Value: 1}})
	}

	cursor, err := d.db.Collection(collection).Find(ctx, bson.M{field: bson.M{"$in": values}}, findOpts)
	if err != nil {
		d.logger.ErrorWithContext(ctx, "mongodb membership query failed",
			zap.String("collection", collection), zap.String("field", field), zap.Error(err))
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var docs []storage.Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		id, _ := raw["_id"].(string)
		docs = append(docs, toDocument(id, raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, classify(err)
	}
	return docs, nil
}

func (d *Datastore) CreateDocument(ctx context.Context, collection, id string, data map[string]any) error {
	doc := bson.M{"_id": id}
	for k, v := range data {
		doc[k] = v
	}

	_, err := d.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		d.logger.ErrorWithContext(ctx, "mongodb create failed",
			zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return classify(err)
	}
	return nil
}

func (d *Datastore) UpdateDocument(ctx context.Context, collection, id string, data map[string]any) error {
	res, err := d.db.Collection(collection).UpdateByID(ctx, id, bson.M{"$set": bson.M(data)})
	if err != nil {
		d.logger.ErrorWithContext(ctx, "mongodb update failed",
			zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return classify(err)
	}
	if res.MatchedCount == 0 {
		return storage.DocumentNotFoundError(collection, id)
	}
	return nil
}

func (d *Datastore) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := d.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		d.logger.ErrorWithContext(ctx, "mongodb delete failed",
			zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return classify(err)
	}
	return nil
}

func (d *Datastore) IsReady(ctx context.Context) (bool, error) {
	if err := d.client.Ping(ctx, readpref.Primary()); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Datastore) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// classify tags driver errors that are worth retrying. Mongo errors don't
// carry gRPC status codes, so timeouts and network failures are marked with
// the driver-agnostic transient sentinel.
func classify(err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return storage.MarkTransient(err)
	}
	return err
}

// toDocument converts a decoded BSON document into the neutral Document
// shape, flattening bson.M/bson.A containers into plain maps and slices and
// dropping the `_id` key from the field data.
func toDocument(id string, raw bson.M) storage.Document {
	data := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		data[k] = normalize(v)
	}
	return storage.Document{ID: id, Data: data}
}

func normalize(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(val))
		for _, elem := range val {
			out[elem.Key] = normalize(elem.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return val
	}
}
