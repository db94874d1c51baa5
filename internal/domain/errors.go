package domain

import "errors"

// Sentinel errors shared across the core. Handlers at the chat boundary map
// these to short user-facing messages; everything else is logged and reported
// generically.
var (
	// ErrItemUnavailable is returned when a selected catalog item is missing
	// or inactive at selection time.
	ErrItemUnavailable = errors.New("catalog item unavailable")

	// ErrInvalidTransition is returned when a state machine operation is
	// invoked from a status it does not accept, including any re-invocation
	// on a terminal order.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrOrderNotFound is returned when an order id resolves to nothing.
	ErrOrderNotFound = errors.New("order not found")

	// ErrUserNotFound is returned when a user id is unknown to the directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrCodeCollision is returned when order code generation exhausted its
	// retry budget without producing a unique code.
	ErrCodeCollision = errors.New("order code collision retries exhausted")
)
