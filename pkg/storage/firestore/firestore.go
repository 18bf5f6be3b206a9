// Package firestore implements a DocumentStore backed by Google Cloud
// Firestore, the store the production services run against.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/juanma-plia/PLIA-SHARED/pkg/logger"
	"github.com/juanma-plia/PLIA-SHARED/pkg/storage"
)

// Datastore is a process-wide handle to a Firestore project. The underlying
// client is created lazily on first use; concurrent first calls race on a
// sync.Once so exactly one client is ever constructed. After initialization
// the client is read-only shared state, safe for unlimited concurrent callers.
type Datastore struct {
	projectID string
	logger    logger.Logger

	initOnce sync.Once
	client   *firestore.Client
	initErr  error
}

var _ storage.DocumentStore = (*Datastore)(nil)

// New returns an uninitialized handle for the given project. No connection is
// made until the first operation.
func New(projectID string, log logger.Logger) *Datastore {
	return &Datastore{
		projectID: projectID,
		logger:    log,
	}
}

func (d *Datastore) ensureClient(ctx context.Context) (*firestore.Client, error) {
	d.initOnce.Do(func() {
		client, err := firestore.NewClient(ctx, d.projectID)
		if err != nil {
			d.initErr = fmt.Errorf("initialize firestore client: %w", err)
			return
		}
		d.client = client
		d.logger.InfoWithContext(ctx, "firestore client initialized", zap.String("project_id", d.projectID))
	})
	return d.client, d.initErr
}

func (d *Datastore) GetDocument(ctx context.Context, collection, id string) (storage.Document, error) {
	client, err := d.ensureClient(ctx)
	if err != nil {
		return storage.Document{}, err
	}

	snap, err := client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return storage.Document{}, storage.DocumentNotFoundError(collection, id)
	}
	if err != nil {
		d.logger.ErrorWithContext(ctx, "firestore get failed",
			zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return storage.Document{}, err
	}
	return storage.Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (d *Datastore) QueryByMembership(ctx context.Context, collection, field string, values []string, opts storage.QueryOptions) ([]storage.Document, error) {
	client, err := d.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	query := client.Collection(collection).WhereEntity(firestore.PropertyFilter{
		Path:     field,
		Operator: "in",
		Value:    toAnySlice(values),
	})
	if opts.OrderBy != "" {
		query = query.OrderBy(opts.OrderBy, firestore.Asc)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []storage.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			d.logger.ErrorWithContext(ctx, "firestore membership query failed",
				zap.String("collection", collection), zap.String("field", field), zap.Error(err))
			return nil, err
		}
		docs = append(docs, storage.Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
}

func (d *Datastore) CreateDocument(ctx context.Context, collection, id string, data map[string]any) error {
	client, err := d.ensureClient(ctx)
	if err != nil {
		return err
	}

	if _, err := client.Collection(collection).Doc(id).Set(ctx, data); err != nil {
		d.logger.ErrorWithContext(ctx, "firestore create failed",
			zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (d *Datastore) UpdateDocument(ctx context.Context, collection, id string, data map[string]any) error {
	client, err := d.ensureClient(ctx)
	if err != nil {
		return err
	}

	updates := make([]firestore.Update, 0, len(data))
	for k, v := range data {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}

	_, err = client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return storage.DocumentNotFoundError(collection, id)
	}
	if err != nil {
		d.logger.ErrorWithContext(ctx, "firestore update failed",
			zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (d *Datastore) DeleteDocument(ctx context.Context, collection, id string) error {
	client, err := d.ensureClient(ctx)
	if err != nil {
		return err
	}

	if _, err := client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		d.logger.ErrorWithContext(ctx, "firestore delete failed",
			zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (d *Datastore) IsReady(ctx context.Context) (bool, error) {
	if _, err := d.ensureClient(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Datastore) Close(ctx context.Context) error {
	if d.client == nil {
		return nil
	}
	return d.client.Close()
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
