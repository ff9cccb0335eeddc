package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/shopfront/api/internal/repositories"
)

// WrapError classifies a Firestore RPC failure as a repositories.StoreError. Cancellation passes
// through, including the gRPC forms of it, so callers can keep using errors.Is on the context errors.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var storeErr *repositories.StoreError
	if errors.As(err, &storeErr) {
		if storeErr.Op == "" {
			storeErr.Op = op
		}
		return storeErr
	}

	wrapped := &repositories.StoreError{Op: op, Err: err}
	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.NotFound:
		wrapped.NotFound = true
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		wrapped.Conflict = true
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal:
		wrapped.Unavailable = true
	}
	return wrapped
}
