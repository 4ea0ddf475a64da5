package docstore

import (
	"errors"
	"fmt"
)

// Sentinel errors for the docstore package.
var (
	ErrClosed            = errors.New("docstore: adapter is closed")
	ErrInvalidDocument   = errors.New("docstore: invalid document")
	ErrInvalidFilter     = errors.New("docstore: invalid filter")
	ErrInvalidCollection = errors.New("docstore: invalid collection name")
	ErrIDMismatch        = errors.New("docstore: update would change document id")

	// ErrStoreUnavailable matches every *StoreError, whatever its cause.
	ErrStoreUnavailable = errors.New("docstore: store unavailable")
)

// StoreError wraps a failure of the backing store with the operation and
// key that triggered it.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("docstore: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("docstore: %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func storeErr(op, key string, err error) error {
	return &StoreError{Op: op, Key: key, Err: err}
}
