// Package apperr holds the sentinel errors shared across linkbook packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidName   = errors.New("invalid note name")
	// ErrReservedNote is returned when an operation would remove the Home note.
	ErrReservedNote = errors.New("reserved note cannot be deleted")
)
