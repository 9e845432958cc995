package store

import "errors"

var (
	// ErrNotFound is returned when no object exists at the location.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidLocation is returned when a location string is not a
	// valid scheme://bucket/key reference.
	ErrInvalidLocation = errors.New("invalid object location")

	// ErrTransfer is returned when moving bytes to or from the object
	// store fails.
	ErrTransfer = errors.New("transfer failed")
)
