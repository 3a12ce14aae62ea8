package service

import "errors"

// Sentinel errors returned by Service operations.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidInput = errors.New("invalid shot input")
)
