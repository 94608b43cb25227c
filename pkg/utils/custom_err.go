package utils

import "errors"

var (
	// ErrStoreUnavailable wraps any failed cohort query; a report is never
	// assembled from partial figures.
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrUnknownCompletionMode = errors.New("unknown completion mode")
	ErrUnauthorized          = errors.New("unauthorized")
)
