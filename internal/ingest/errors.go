package ingest

import (
	"errors"
	"fmt"
)

// ErrValidation marks requests the caller must correct before retrying.
var ErrValidation = errors.New("invalid request")

// RetryableError reports that storage could not answer or complete a
// step. It never means the message was found or absent.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s (retryable): %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err (or any error in its chain) is a RetryableError.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

func retryable(op string, err error) error {
	return &RetryableError{Op: op, Err: err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
