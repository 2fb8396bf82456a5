package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotificationQueueFull is returned when a notification cannot be queued.
var ErrNotificationQueueFull = errors.New("notification queue is full")

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// ReservationSummary is what the user is told about a new reservation.
type ReservationSummary struct {
	BookingID   int64     `json:"booking_id"`
	EventID     int64     `json:"event_id"`
	EventTitle  string    `json:"event_title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// BookingConfirmedEmailData holds data for the booking confirmation email.
type BookingConfirmedEmailData struct {
	Email   string
	Summary ReservationSummary
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendBookingConfirmation(ctx context.Context, data *BookingConfirmedEmailData) error
}

// ReservationNotifier tells a user about a reservation. Delivery is best effort:
// the reservation engine logs and ignores any error it returns.
type ReservationNotifier interface {
	NotifyReservation(ctx context.Context, summary ReservationSummary, email string) error
}
