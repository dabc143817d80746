// Package apperr defines the sentinel errors shared across the service
// and API layers.
package apperr

import "errors"

var (
	// ErrNotFound marks a missing local record, candidate, or collection.
	ErrNotFound = errors.New("not found")
	// ErrInvalidDecision marks an operator decision naming a candidate
	// that is not in the record's stored candidate set.
	ErrInvalidDecision = errors.New("invalid decision")
	// ErrAlreadyExists marks an attempt to create something that exists.
	ErrAlreadyExists = errors.New("already exists")
)
