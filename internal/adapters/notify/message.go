package notify

import (
	"fmt"
	"time"

	"eventbooking/internal/domain"
)

// ReservationConfirmedQueue is the default queue reservation messages are published to.
const ReservationConfirmedQueue = "reservation.confirmed"

// ReservationConfirmed is the broker payload for a new reservation.
type ReservationConfirmed struct {
	MessageID   string                    `json:"message_id"`
	Email       string                    `json:"email"`
	Reservation domain.ReservationSummary `json:"reservation"`
	ConfirmedAt time.Time                 `json:"confirmed_at"`
}

func (m ReservationConfirmed) validate() error {
	switch {
	case m.Email == "":
		return fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	case m.Reservation.BookingID < 1:
		return fmt.Errorf("%w: reservation.booking_id is required", domain.ErrInvalidInput)
	case m.Reservation.EventID < 1:
		return fmt.Errorf("%w: reservation.event_id is required", domain.ErrInvalidInput)
	}
	return nil
}
