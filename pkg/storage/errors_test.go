package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsTransient(t *testing.T) {
	for _, tc := range []struct {
		name      string
		err       error
		transient bool
	}{
		{name: "nil", err: nil, transient: false},
		{name: "not_found", err: DocumentNotFoundError("profiles", "p1"), transient: false},
		{name: "marked_transient", err: MarkTransient(errors.New("socket closed")), transient: true},
		{name: "wrapped_marked_transient", err: fmt.Errorf("query: %w", MarkTransient(errors.New("boom"))), transient: true},
		{name: "resource_exhausted", err: status.Error(codes.ResourceExhausted, "quota"), transient: true},
		{name: "deadline_exceeded", err: status.Error(codes.DeadlineExceeded, "store deadline"), transient: true},
		{name: "unavailable", err: status.Error(codes.Unavailable, "down"), transient: true},
		{name: "aborted", err: status.Error(codes.Aborted, "conflict"), transient: true},
		{name: "internal", err: status.Error(codes.Internal, "oops"), transient: true},
		{name: "invalid_argument", err: status.Error(codes.InvalidArgument, "bad filter"), transient: false},
		{name: "permission_denied", err: status.Error(codes.PermissionDenied, "nope"), transient: false},
		{name: "plain_error", err: errors.New("something else"), transient: false},
		{name: "caller_cancellation", err: context.Canceled, transient: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.transient, IsTransient(tc.err))
		})
	}
}

func TestDocumentNotFoundError(t *testing.T) {
	err := DocumentNotFoundError("profiles", "p1")
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "profiles/p1")
}
