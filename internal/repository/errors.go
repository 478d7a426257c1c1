package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no movie exists for the requested id.
var ErrNotFound = errors.New("repository: not found")

// StorageError reports a failure of the underlying record store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
