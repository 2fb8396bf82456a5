package domain

import (
	"context"
	"time"
)

// Booking links one user to one event and holds one of its seats.
// swagger:model Booking
type Booking struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	EventID   int64     `json:"eventId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewBooking creates a new Booking. ID is typically set by the repository on create.
func NewBooking(userID, eventID int64, createdAt, updatedAt time.Time) *Booking {
	return &Booking{
		UserID:    userID,
		EventID:   eventID,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// BookingWithEvent bundles a booking with the event it holds a seat on.
// swagger:model BookingWithEvent
type BookingWithEvent struct {
	Booking *Booking `json:"booking"`
	Event   *Event   `json:"event"`
}

// BookingUpdate describes a reassignment. Nil fields keep their current value.
type BookingUpdate struct {
	UserID  *int64
	EventID *int64
}

// BookingRepository is the booking ledger. It does not enforce the
// one-booking-per-user-per-event rule; the reservation engine does.
type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	Update(ctx context.Context, booking *Booking) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Booking, error)
	GetByEventAndUser(ctx context.Context, eventID, userID int64) (*Booking, error)
	List(ctx context.Context) ([]*Booking, error)
	ListByUserIDWithEvent(ctx context.Context, userID int64) ([]*BookingWithEvent, error)
	CountByEventID(ctx context.Context, eventID int64) (int, error)
}

// Transactor runs fn as one unit of work. Repositories called with the context
// handed to fn take part in the same transaction; an error from fn rolls it back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BookingService is the reservation engine.
type BookingService interface {
	Reserve(ctx context.Context, userID, eventID int64) (*Booking, error)
	Reassign(ctx context.Context, bookingID int64, update BookingUpdate) (*Booking, error)
	Cancel(ctx context.Context, bookingID int64) error
	GetByID(ctx context.Context, bookingID int64) (*Booking, error)
	List(ctx context.Context) ([]*Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]*BookingWithEvent, error)
}
