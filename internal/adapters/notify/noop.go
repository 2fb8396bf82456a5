package notify

import (
	"context"
	"log/slog"

	"eventbooking/internal/domain"
)

// Noop logs reservations instead of delivering them.
type Noop struct {
	Logger *slog.Logger
}

func (n Noop) NotifyReservation(ctx context.Context, summary domain.ReservationSummary, email string) error {
	n.Logger.InfoContext(ctx, "reservation notification skipped (noop)",
		"booking_id", summary.BookingID, "event_id", summary.EventID, "to", email)
	return nil
}
