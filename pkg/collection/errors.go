package collection

import "errors"

var (
	// ErrNotFound is returned when a requested document does not exist or
	// has been deleted.
	ErrNotFound = errors.New("collection: document not found")
)
