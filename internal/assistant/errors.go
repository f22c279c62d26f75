package assistant

import "errors"

var (
	// ErrDisabled is returned when no completion service is configured.
	ErrDisabled = errors.New("assistant disabled")

	// ErrUnavailable indicates the completion server is unreachable.
	ErrUnavailable = errors.New("assistant server unavailable")

	ErrTimeout = errors.New("assistant request timed out")

	// ErrEmptyQuery rejects blank questions before any call is made.
	ErrEmptyQuery = errors.New("query must not be empty")
)
