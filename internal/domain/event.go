package domain

import (
	"context"
	"time"
)

// Event represents a bookable event with a fixed seat capacity.
// swagger:model Event
type Event struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Date           time.Time `json:"date"`
	TotalSeats     int       `json:"totalSeats"`
	RemainingSeats int       `json:"remainingSeats"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewEvent returns a new Event with every seat still available. ID is set by the repository on create.
func NewEvent(title, description string, date time.Time, totalSeats int, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Title:          title,
		Description:    description,
		Date:           date,
		TotalSeats:     totalSeats,
		RemainingSeats: totalSeats,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
}

// HasSeat reports whether at least one seat is still available.
func (e *Event) HasSeat() bool {
	return e.RemainingSeats > 0
}

// ReleasedSeats returns the remaining seat count after one seat is given back,
// never exceeding TotalSeats.
func (e *Event) ReleasedSeats() int {
	if e.RemainingSeats >= e.TotalSeats {
		return e.TotalSeats
	}
	return e.RemainingSeats + 1
}

// EventUpdate describes an edit to an event's details. Nil fields keep their
// current value. Seat counts are not editable.
type EventUpdate struct {
	Title       *string
	Description *string
	Date        *time.Time
}

// EventRepository is the event capacity store.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	// Update stores title, description and date. Seat counters are left alone.
	Update(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id int64) (*Event, error)
	List(ctx context.Context) ([]*Event, error)
	Delete(ctx context.Context, id int64) error
	// CompareAndSetRemainingSeats stores next only if remaining seats still equal expected.
	// It returns ErrSeatsChanged otherwise. Bounds are the caller's responsibility.
	CompareAndSetRemainingSeats(ctx context.Context, id int64, expected, next int) error
}

// EventService defines event management operations.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, id int64) (*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	UpdateEvent(ctx context.Context, id int64, update EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}
