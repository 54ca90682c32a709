// Package common defines sentinel errors shared by the storage layers.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStorageUnavailable is what callers see for any backing store failure.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Query construction errors.
	ErrInvalidFilter = errors.New("invalid filter")
	ErrInvalidField  = errors.New("invalid field")

	// ErrCollectionConflict is returned when a custom collection id could not
	// be allocated after repeated unique-constraint collisions.
	ErrCollectionConflict = errors.New("collection id conflict")
)

// StoreError reports a failed store round trip. Its message names the
// operation only; the backend error stays reachable through Unwrap for logs.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return ErrStorageUnavailable.Error() + ": " + e.Op
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is makes every StoreError match ErrStorageUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStorageUnavailable
}
