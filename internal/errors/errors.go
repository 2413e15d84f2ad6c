package errors

import (
	"errors"
)

// Sentinel errors for the daemon's failure categories
var (
	// ErrConfiguration - invalid or missing configuration (fatal at startup, never raised mid-cycle)
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport - network or server-side failure talking to a remote (bounded retry, then skip the item)
	ErrTransport = errors.New("transport error")

	// ErrAuthorization - rejected credentials or signature (log and alert, never fatal after startup)
	ErrAuthorization = errors.New("authorization error")

	// ErrInvalidRequest - remote rejected the request as malformed (never retried)
	ErrInvalidRequest = errors.New("invalid request")

	// ErrProvider - text generation failed after retries (skip the message, keep the cycle alive)
	ErrProvider = errors.New("provider error")

	// ErrState - dedup state document unreadable or corrupt (fail open with empty state)
	ErrState = errors.New("state error")
)
