package provider

import "errors"

// Sentinel kinds for alternate provider errors.
var (
	ErrProviderUnavailable = errors.New("suggestion provider unavailable")
	ErrBadResponse         = errors.New("suggestion provider returned a bad response")
)
