package store

import (
	"fmt"
)

// UnavailableError is returned when the substrate operation failed, for example on a network partition.
// It is never retried by the coordination primitives.
type UnavailableError struct {
	Operation string
	Key       string
	err       error
}

func NewUnavailableError(operation, key string, err error) UnavailableError {
	return UnavailableError{Operation: operation, Key: key, err: err}
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf(`store operation "%s" on "%s" failed: %s`, e.Operation, e.Key, e.err)
}

func (e UnavailableError) Unwrap() error {
	return e.err
}

// TxnTooLargeError is returned when a transaction exceeds the MaxTxnOps limit of the store.
type TxnTooLargeError struct {
	Size  int
	Limit int
}

func (e TxnTooLargeError) Error() string {
	return fmt.Sprintf(`transaction has %d operations, the limit is %d`, e.Size, e.Limit)
}
