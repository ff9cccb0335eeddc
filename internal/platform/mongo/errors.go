package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shopfront/api/internal/repositories"
)

// WrapError classifies a driver failure as a repositories.StoreError. Context cancellation passes
// through unchanged.
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
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		wrapped.NotFound = true
	case mongo.IsDuplicateKeyError(err):
		wrapped.Conflict = true
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		wrapped.Unavailable = true
	}
	return wrapped
}
