// Package memory implements an in-process DocumentStore. It backs unit tests
// and local development; nothing about it survives a restart.
package memory

import (
	"context"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/juanma-plia/PLIA-SHARED/pkg/storage"
)

// Datastore is an in-memory DocumentStore guarded by a single RWMutex.
// Reads and writes deep-copy document data so callers can never alias
// internal state.
type Datastore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	closed      bool
}

var _ storage.DocumentStore = (*Datastore)(nil)

func New() *Datastore {
	return &Datastore{
		collections: map[string]map[string]map[string]any{},
	}
}

func (d *Datastore) GetDocument(ctx context.Context, collection, id string) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return storage.Document{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	data, ok := d.collections[collection][id]
	if !ok {
		return storage.Document{}, storage.DocumentNotFoundError(collection, id)
	}
	return storage.Document{ID: id, Data: copyData(data)}, nil
}

func (d *Datastore) QueryByMembership(ctx context.Context, collection, field string, values []string, opts storage.QueryOptions) ([]storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(values) > storage.MaxMembershipValues {
		return nil, status.Errorf(codes.InvalidArgument,
			"membership filter carries %d values, limit is %d", len(values), storage.MaxMembershipValues)
	}

	valueSet := make(map[string]struct{}, len(values))
	for _, v := range values {
		valueSet[v] = struct{}{}
	}

	d.mu.RLock()
	var docs []storage.Document
	for id, data := range d.collections[collection] {
		doc := storage.Document{ID: id, Data: data}
		if _, ok := valueSet[doc.String(field)]; ok {
			docs = append(docs, storage.Document{ID: id, Data: copyData(data)})
		}
	}
	d.mu.RUnlock()

	if opts.OrderBy != "" {
		storage.SortDocumentsByField(docs, opts.OrderBy)
	}
	return docs, nil
}

func (d *Datastore) CreateDocument(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.collections[collection] == nil {
		d.collections[collection] = map[string]map[string]any{}
	}
	d.collections[collection][id] = copyData(data)
	return nil
}

func (d *Datastore) UpdateDocument(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.collections[collection][id]
	if !ok {
		return storage.DocumentNotFoundError(collection, id)
	}
	for k, v := range copyData(data) {
		existing[k] = v
	}
	return nil
}

func (d *Datastore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.collections[collection], id)
	return nil
}

func (d *Datastore) IsReady(ctx context.Context) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !d.closed, nil
}

func (d *Datastore) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyData(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return val
	}
}
