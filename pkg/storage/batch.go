package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/juanma-plia/PLIA-SHARED/internal/concurrency"
	"github.com/juanma-plia/PLIA-SHARED/pkg/logger"
)

// BatchQuerier answers membership queries over key lists of unbounded size
// against a store that only filters membership up to MaxMembershipValues per
// call. The key list is split into chunks, one scan is issued per chunk, all
// chunks run concurrently, and each chunk retries independently on transient
// failure. The querier holds no per-call state and is safe for concurrent use.
type BatchQuerier struct {
	store  DocumentStore
	policy RetryPolicy
	logger logger.Logger
}

func NewBatchQuerier(store DocumentStore, policy RetryPolicy, log logger.Logger) *BatchQuerier {
	return &BatchQuerier{
		store:  store,
		policy: policy,
		logger: log,
	}
}

// Query fetches all documents in collection whose field value is one of keys.
//
// An empty key list returns immediately without touching the store. If any
// chunk ultimately fails, the whole call fails with that chunk's terminal
// error and no documents are returned: a partial result would silently
// under-report the caller's data, which for ACL material is a security
// hazard. On success the chunk results are concatenated in chunk order; when
// opts.OrderBy is set the concatenation is re-sorted by that field so the
// caller sees a single total order rather than per-chunk store ordering.
func (q *BatchQuerier) Query(ctx context.Context, collection, field string, keys []string, opts QueryOptions) ([]Document, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	chunks := chunkKeys(keys, MaxMembershipValues)
	results := make([][]Document, len(chunks))

	p := concurrency.NewPool(ctx, len(chunks))
	for i, chunk := range chunks {
		p.Go(func(ctx context.Context) error {
			docs, err := RetryTransient(ctx, q.policy, q.logger, func(ctx context.Context) ([]Document, error) {
				return q.store.QueryByMembership(ctx, collection, field, chunk, opts)
			})
			if err != nil {
				q.logger.ErrorWithContext(ctx, "membership query chunk failed",
					zap.String("collection", collection),
					zap.String("field", field),
					zap.Int("chunk", i),
					zap.Int("chunk_size", len(chunk)),
					zap.Error(err),
				)
				return err
			}
			results[i] = docs
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	var merged []Document
	for _, docs := range results {
		merged = append(merged, docs...)
	}
	if opts.OrderBy != "" {
		SortDocumentsByField(merged, opts.OrderBy)
	}
	return merged, nil
}

// chunkKeys partitions keys into ordered, non-overlapping chunks of at most
// width elements.
func chunkKeys(keys []string, width int) [][]string {
	chunks := make([][]string, 0, (len(keys)+width-1)/width)
	for start := 0; start < len(keys); start += width {
		end := min(start+width, len(keys))
		chunks = append(chunks, keys[start:end])
	}
	return chunks
}

// SortDocumentsByField orders docs ascending by the named field. Numeric
// values are compared numerically, everything else lexically; the sort is
// stable so documents with equal keys keep their chunk order.
func SortDocumentsByField(docs []Document, field string) {
	sort.SliceStable(docs, func(i, j int) bool {
		return compareFieldValues(docs[i].Value(field), docs[j].Value(field)) < 0
	})
}

func compareFieldValues(a, b any) int {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	if aNum != bNum {
		// Numbers sort before everything else, matching store behavior.
		if aNum {
			return -1
		}
		return 1
	}
	return strings.Compare(stringify(a), stringify(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
