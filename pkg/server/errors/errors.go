// Package errors contains the user-facing error conditions the HTTP surface
// can produce. Conditions are built as gRPC status errors so the storage
// layer's classification and the transport mapping share one vocabulary.
package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/juanma-plia/PLIA-SHARED/pkg/acl"
	"github.com/juanma-plia/PLIA-SHARED/pkg/storage"
)

const InternalServerErrorMsg = "Internal Server Error"

var (
	// ErrMissingAPIKey covers both a missing and an unknown x-api-key header.
	// The two cases are deliberately indistinguishable to the caller.
	ErrMissingAPIKey = status.Error(codes.Unauthenticated, "missing or invalid API key")

	// ErrRequestTimeout is the condition for a caller deadline expiring while
	// the request was in flight, distinct from any store-reported deadline.
	ErrRequestTimeout = status.Error(codes.DeadlineExceeded, "request deadline exceeded")
)

func ProfileNotFound(profileID string) error {
	return status.Error(codes.NotFound, fmt.Sprintf("Profile '%s' not found", profileID))
}

func SeriesNotFound(seriesID string) error {
	return status.Error(codes.NotFound, fmt.Sprintf("Series '%s' not found", seriesID))
}

func SeriesAccessDenied(seriesID string) error {
	return status.Error(codes.PermissionDenied, fmt.Sprintf("No access to series '%s'", seriesID))
}

// InternalError pairs a sanitized public condition with the underlying cause.
// Only the public part crosses the service boundary; the internal part is for
// logs.
type InternalError struct {
	public   error
	internal error
}

func (e InternalError) Error() string {
	return e.public.Error()
}

func (e InternalError) Internal() error {
	return e.internal
}

func (e InternalError) GRPCStatus() *status.Status {
	return status.Convert(e.public)
}

func NewInternalError(public string, internal error) InternalError {
	if public == "" {
		public = InternalServerErrorMsg
	}
	return InternalError{
		public:   status.Error(codes.Internal, public),
		internal: internal,
	}
}

// HandleError translates a core error into the condition surfaced to the
// caller, hiding internal detail. Use public to override the default
// internal-error message.
func HandleError(public string, err error) error {
	var profileNotFound *acl.ProfileNotFoundError
	switch {
	case goerrors.As(err, &profileNotFound):
		return ProfileNotFound(profileNotFound.ProfileID)
	case goerrors.Is(err, context.DeadlineExceeded), goerrors.Is(err, context.Canceled):
		return ErrRequestTimeout
	case goerrors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, "Document not found")
	default:
		return NewInternalError(public, err)
	}
}

// HTTPStatusCode maps a condition to the HTTP status the transport writes.
func HTTPStatusCode(err error) int {
	switch status.Code(err) {
	case codes.OK:
		return http.StatusOK
	case codes.NotFound:
		return http.StatusNotFound
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
