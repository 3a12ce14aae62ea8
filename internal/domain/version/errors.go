package version

import "errors"

// ErrNilInput is returned when a hash is requested for a nil record.
var ErrNilInput = errors.New("version: nil input")
