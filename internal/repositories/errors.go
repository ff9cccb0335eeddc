package repositories

import "fmt"

// StoreError is a backend-neutral RepositoryError used by stores that have no native error
// classification of their own.
type StoreError struct {
	Op          string
	Err         error
	NotFound    bool
	Conflict    bool
	Unavailable bool
}

// NewNotFoundError reports a missing record for the operation.
func NewNotFoundError(op string, format string, args ...any) *StoreError {
	return &StoreError{Op: op, Err: fmt.Errorf(format, args...), NotFound: true}
}

// NewUnavailableError reports a backend that cannot serve the operation.
func NewUnavailableError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err, Unavailable: true}
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *StoreError) IsNotFound() bool    { return e != nil && e.NotFound }
func (e *StoreError) IsConflict() bool    { return e != nil && e.Conflict }
func (e *StoreError) IsUnavailable() bool { return e != nil && e.Unavailable }

var _ RepositoryError = (*StoreError)(nil)
