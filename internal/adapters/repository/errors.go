package repository

import "errors"

// Sentinel kinds for snapshot store errors.
var (
	ErrNotFound    = errors.New("snapshot not found")
	ErrInvalidShot = errors.New("shot id must not be empty")
)
