package model

import "errors"

// Sentinel kinds for model parsing errors.
var (
	ErrUnknownRoast = errors.New("unknown roast level")
	ErrUnknownMode  = errors.New("unknown coaching mode")
)
