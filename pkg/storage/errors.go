package storage

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNotFound is returned by point reads when the requested document does
	// not exist. Absence is an expected outcome, not a store fault.
	ErrNotFound = errors.New("document not found")

	// ErrTransient marks a store failure that is safe to retry. Drivers whose
	// errors don't carry gRPC status codes wrap them with MarkTransient.
	ErrTransient = errors.New("transient storage error")
)

// DocumentNotFoundError builds the ErrNotFound-wrapping error for a point read
// miss, carrying enough context for the caller's logs.
func DocumentNotFoundError(collection, id string) error {
	return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
}

// MarkTransient wraps err so that IsTransient reports it as retryable.
func MarkTransient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err is a store failure worth retrying. Resource
// exhaustion, store-side deadline expiry, and generic availability failures
// are transient; malformed requests and permission denials are not. Document
// absence is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.ResourceExhausted, codes.DeadlineExceeded, codes.Unavailable, codes.Aborted, codes.Internal:
			return true
		}
	}
	return false
}
