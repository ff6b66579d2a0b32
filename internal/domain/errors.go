package domain

import "errors"

// Sentinel errors shared across the service layers. Handlers map these to
// HTTP status codes with errors.Is.
var (
	// ErrNotFound indicates an unknown session id or report token.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates an action attempted without granted consent.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates a malformed or missing request field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates a required external provider is not configured.
	ErrUnavailable = errors.New("service unavailable")

	// ErrDelivery indicates a downstream provider call failed after the
	// defined fallback chain was exhausted.
	ErrDelivery = errors.New("delivery failed")
)
