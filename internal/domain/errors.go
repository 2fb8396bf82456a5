package domain

import (
	"errors"
	"fmt"
)

// Error categories. Callers match on these with errors.Is; the entity-specific
// sentinels below wrap them.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
	ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
	// ErrInactiveAccount is returned when a token belongs to a deactivated account.
	ErrInactiveAccount = fmt.Errorf("%w: account is not active", ErrUnauthorized)
)

var (
	ErrEventNotFound   = fmt.Errorf("event %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
)

var (
	// ErrAlreadyBooked is returned when the user already holds a booking for the event.
	ErrAlreadyBooked = fmt.Errorf("%w: user already booked this event", ErrConflict)
	// ErrSoldOut is returned when the event has no remaining seats.
	ErrSoldOut = fmt.Errorf("%w: event is sold out", ErrConflict)
	// ErrSeatsChanged is returned when a compare-and-swap on remaining seats lost a race.
	ErrSeatsChanged = fmt.Errorf("%w: remaining seats changed concurrently", ErrConflict)
	// ErrEventHasBookings is returned when deleting an event that still has bookings.
	ErrEventHasBookings = fmt.Errorf("%w: event has active bookings", ErrConflict)
)

// NotFoundf wraps a not-found sentinel with the id of the missing entity.
func NotFoundf(sentinel error, id int64) error {
	return fmt.Errorf("%w: id=%d", sentinel, id)
}
