package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// FromHTTPStatus maps a remote status code to the daemon's error taxonomy.
func FromHTTPStatus(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%s (status %d): %w", message, status, ErrAuthorization)
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return fmt.Errorf("%s (status %d): %w", message, status, ErrTransport)
	case status >= 500:
		return fmt.Errorf("%s (status %d): %w", message, status, ErrTransport)
	case status >= 400:
		return fmt.Errorf("%s (status %d): %w", message, status, ErrInvalidRequest)
	default:
		return fmt.Errorf("%s (status %d): %w", message, status, ErrTransport)
	}
}

// Category returns the taxonomy name for an error, for logs and metrics labels.
func Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrConfiguration):
		return "ErrConfiguration"
	case errors.Is(err, ErrAuthorization):
		return "ErrAuthorization"
	case errors.Is(err, ErrInvalidRequest):
		return "ErrInvalidRequest"
	case errors.Is(err, ErrTransport):
		return "ErrTransport"
	case errors.Is(err, ErrProvider):
		return "ErrProvider"
	case errors.Is(err, ErrState):
		return "ErrState"
	default:
		return "Unknown"
	}
}

// Wrap wraps an error with context, preserving its category
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", message, err)
}

// IsCategory checks if error belongs to specific category
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

// Configuration wraps a message as a configuration error
func Configuration(message string) error {
	return fmt.Errorf("%s: %w", message, ErrConfiguration)
}

// Transport wraps a message as a transport error
func Transport(message string) error {
	return fmt.Errorf("%s: %w", message, ErrTransport)
}

// Authorization wraps a message as an authorization error
func Authorization(message string) error {
	return fmt.Errorf("%s: %w", message, ErrAuthorization)
}

// Provider wraps a message as a provider error
func Provider(message string) error {
	return fmt.Errorf("%s: %w", message, ErrProvider)
}

// State wraps a message as a state error
func State(message string) error {
	return fmt.Errorf("%s: %w", message, ErrState)
}

// IsRetryable reports whether another attempt may succeed. Context
// cancellation, authorization failures, and malformed requests never retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrAuthorization) || errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrConfiguration) {
		return false
	}
	return true
}
