package reconcile

import "errors"

var (
	// ErrUnknownMode is returned when the extractor mode is not supported.
	ErrUnknownMode = errors.New("unknown extractor mode")
	// ErrInvalidPattern is returned when the discovery glob pattern is malformed.
	ErrInvalidPattern = errors.New("invalid discovery pattern")
)
