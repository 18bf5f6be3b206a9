package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/juanma-plia/PLIA-SHARED/pkg/storage"
)

func TestGetDocument(t *testing.T) {
	ctx := context.Background()
	ds := New()

	require.NoError(t, ds.CreateDocument(ctx, "profiles", "p1", map[string]any{
		"org_ref":       "orgA",
		"direct_grants": []string{"s1", "s2"},
	}))

	doc, err := ds.GetDocument(ctx, "profiles", "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", doc.ID)
	require.Equal(t, "orgA", doc.String("org_ref"))
	require.Equal(t, []string{"s1", "s2"}, doc.Strings("direct_grants"))

	_, err = ds.GetDocument(ctx, "profiles", "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReadsDoNotAliasStoreState(t *testing.T) {
	ctx := context.Background()
	ds := New()

	original := map[string]any{"direct_grants": []string{"s1"}}
	require.NoError(t, ds.CreateDocument(ctx, "profiles", "p1", original))

	// Mutating the caller's map after the write must not leak in.
	original["direct_grants"] = []string{"hacked"}

	doc, err := ds.GetDocument(ctx, "profiles", "p1")
	require.NoError(t, err)
	require.Equal(t, []string{"s1"}, doc.Strings("direct_grants"))

	// Mutating a read result must not leak back.
	doc.Data["direct_grants"] = []string{"hacked"}
	again, err := ds.GetDocument(ctx, "profiles", "p1")
	require.NoError(t, err)
	require.Equal(t, []string{"s1"}, again.Strings("direct_grants"))
}

func TestQueryByMembership(t *testing.T) {
	ctx := context.Background()
	ds := New()

	for i, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, ds.CreateDocument(ctx, "series", id, map[string]any{
			"series_id":     id,
			"display_order": 3 - i,
		}))
	}

	docs, err := ds.QueryByMembership(ctx, "series", "series_id", []string{"s1", "s3", "s9"}, storage.QueryOptions{OrderBy: "display_order"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "s3", docs[0].ID)
	require.Equal(t, "s1", docs[1].ID)
}

func TestQueryByMembershipRejectsOversizedFilter(t *testing.T) {
	ds := New()

	values := make([]string, storage.MaxMembershipValues+1)
	for i := range values {
		values[i] = "v"
	}

	_, err := ds.QueryByMembership(context.Background(), "series", "series_id", values, storage.QueryOptions{})
	require.Error(t, err)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	require.False(t, storage.IsTransient(err))
}

func TestUpdateDocumentMerges(t *testing.T) {
	ctx := context.Background()
	ds := New()

	require.NoError(t, ds.CreateDocument(ctx, "series", "s1", map[string]any{
		"title":         "before",
		"display_order": 1,
	}))
	require.NoError(t, ds.UpdateDocument(ctx, "series", "s1", map[string]any{
		"title": "after",
	}))

	doc, err := ds.GetDocument(ctx, "series", "s1")
	require.NoError(t, err)
	require.Equal(t, "after", doc.String("title"))
	require.Equal(t, 1, doc.Value("display_order"))

	err = ds.UpdateDocument(ctx, "series", "missing", map[string]any{"title": "x"})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	ds := New()

	require.NoError(t, ds.CreateDocument(ctx, "series", "s1", map[string]any{"series_id": "s1"}))
	require.NoError(t, ds.DeleteDocument(ctx, "series", "s1"))

	_, err := ds.GetDocument(ctx, "series", "s1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting an absent document is not an error.
	require.NoError(t, ds.DeleteDocument(ctx, "series", "s1"))
}

func TestIsReadyAfterClose(t *testing.T) {
	ctx := context.Background()
	ds := New()

	ready, err := ds.IsReady(ctx)
	require.NoError(t, err)
	require.True(t, ready)

	require.NoError(t, ds.Close(ctx))

	ready, err = ds.IsReady(ctx)
	require.NoError(t, err)
	require.False(t, ready)
}

func TestCancelledContextStopsOperations(t *testing.T) {
	ds := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ds.GetDocument(ctx, "profiles", "p1")
	require.ErrorIs(t, err, context.Canceled)

	err = ds.CreateDocument(ctx, "profiles", "p1", map[string]any{})
	require.ErrorIs(t, err, context.Canceled)
}
