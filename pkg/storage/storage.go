// Package storage contains the document store interfaces shared by every
// service built on this library, together with the retry and batched-query
// machinery layered on top of them.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// MaxMembershipValues is the maximum number of values a single membership
// filter ("field value is one of N") may carry. It matches the limit the
// backing stores place on their `in` operator.
const MaxMembershipValues = 10

// Document is a single record read from a document store. Data holds the raw
// field values; the store never interprets them.
type Document struct {
	ID   string
	Data map[string]any
}

// Value returns the raw value of the named field, or nil when the field is
// absent.
func (d Document) Value(field string) any {
	if d.Data == nil {
		return nil
	}
	return d.Data[field]
}

// String returns the named field rendered as a trimmed string. Non-string
// scalars are stringified; absent fields yield "".
func (d Document) String(field string) string {
	v := d.Value(field)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Strings returns the named field as a list of non-empty trimmed strings.
// The field may be stored as []string or as a []any of mixed scalar values.
func (d Document) Strings(field string) []string {
	switch v := d.Value(field).(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// QueryOptions carries the optional parts of a membership query.
type QueryOptions struct {
	// OrderBy requests store-side ascending ordering by the named field.
	// Empty means no ordering.
	OrderBy string
}

// DocumentStore provides point reads, bounded membership scans, and
// single-document writes against named collections.
//
// All read methods must return ErrNotFound (possibly wrapped) when the
// requested document does not exist; absence is not a store fault. Transport
// and quota failures are surfaced as errors classified by IsTransient.
type DocumentStore interface {
	// GetDocument performs a point lookup of the document with the given id.
	GetDocument(ctx context.Context, collection, id string) (Document, error)

	// QueryByMembership returns all documents in collection whose field value
	// is one of values. The caller guarantees len(values) <= MaxMembershipValues;
	// exceeding it is a programming error the store may reject outright.
	QueryByMembership(ctx context.Context, collection, field string, values []string, opts QueryOptions) ([]Document, error)

	// CreateDocument writes a new document under the given id, overwriting any
	// existing document with that id.
	CreateDocument(ctx context.Context, collection, id string, data map[string]any) error

	// UpdateDocument merges data into an existing document. It must return
	// ErrNotFound when the document does not exist.
	UpdateDocument(ctx context.Context, collection, id string, data map[string]any) error

	// DeleteDocument removes the document with the given id. Deleting an
	// absent document is not an error.
	DeleteDocument(ctx context.Context, collection, id string) error

	// IsReady reports whether the store is ready to accept traffic.
	IsReady(ctx context.Context) (bool, error)

	// Close closes the store and cleans up any residual resources.
	Close(ctx context.Context) error
}
