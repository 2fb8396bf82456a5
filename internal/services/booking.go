package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"eventbooking/internal/domain"
)

// DefaultReservationAttempts is how many times a unit of work runs when it keeps
// losing the compare-and-swap on an event's remaining seats.
const DefaultReservationAttempts = 2

type bookingService struct {
	tx             domain.Transactor
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	bookingRepo    domain.BookingRepository
	notifier       domain.ReservationNotifier
	logger         *slog.Logger
	contextTimeout time.Duration
	maxAttempts    int
}

// NewBookingService creates the reservation engine. A nil notifier disables
// reservation notifications.
func NewBookingService(
	tx domain.Transactor,
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	bookingRepo domain.BookingRepository,
	notifier domain.ReservationNotifier,
	logger *slog.Logger,
	timeout time.Duration,
	maxAttempts int,
) domain.BookingService {
	if maxAttempts < 1 {
		maxAttempts = DefaultReservationAttempts
	}
	return &bookingService{
		tx:             tx,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		bookingRepo:    bookingRepo,
		notifier:       notifier,
		logger:         logger,
		contextTimeout: timeout,
		maxAttempts:    maxAttempts,
	}
}

func (s *bookingService) Reserve(ctx context.Context, userID, eventID int64) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, wrap("get event", err)
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, wrap("get user", err)
	}

	var (
		booking *domain.Booking
		event   *domain.Event
	)
	err = s.inTransaction(ctx, func(ctx context.Context) error {
		ev, err := s.eventRepo.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if err := s.ensurePairFree(ctx, userID, eventID, 0); err != nil {
			return err
		}
		if !ev.HasSeat() {
			return fmt.Errorf("%w: event=%d", domain.ErrSoldOut, eventID)
		}
		if err := s.eventRepo.CompareAndSetRemainingSeats(ctx, eventID, ev.RemainingSeats, ev.RemainingSeats-1); err != nil {
			return err
		}
		now := time.Now()
		b := domain.NewBooking(userID, eventID, now, now)
		if err := s.bookingRepo.Create(ctx, b); err != nil {
			return err
		}
		booking, event = b, ev
		return nil
	})
	if err != nil {
		return nil, wrap("reserve seat", s.soldOutAfterRace(ctx, eventID, err))
	}

	s.notifyReservation(ctx, booking, event, user)
	return booking, nil
}

func (s *bookingService) Reassign(ctx context.Context, bookingID int64, update domain.BookingUpdate) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if update.EventID != nil {
		if _, err := s.eventRepo.GetByID(ctx, *update.EventID); err != nil {
			return nil, wrap("get event", err)
		}
	}
	if update.UserID != nil {
		if _, err := s.userRepo.GetByID(ctx, *update.UserID); err != nil {
			return nil, wrap("get user", err)
		}
	}

	var updated *domain.Booking
	err := s.inTransaction(ctx, func(ctx context.Context) error {
		b, err := s.bookingRepo.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		userID, eventID := b.UserID, b.EventID
		if update.UserID != nil {
			userID = *update.UserID
		}
		if update.EventID != nil {
			eventID = *update.EventID
		}
		if userID == b.UserID && eventID == b.EventID {
			updated = b
			return nil
		}
		if err := s.ensurePairFree(ctx, userID, eventID, b.ID); err != nil {
			return err
		}
		// The booking row is written before any event counter, the same order
		// Cancel takes its locks in.
		oldEventID := b.EventID
		b.UserID, b.EventID, b.UpdatedAt = userID, eventID, time.Now()
		if err := s.bookingRepo.Update(ctx, b); err != nil {
			return err
		}
		if eventID != oldEventID {
			if err := s.moveSeat(ctx, oldEventID, eventID); err != nil {
				return err
			}
		}
		updated = b
		return nil
	})
	if err != nil && update.EventID != nil {
		err = s.soldOutAfterRace(ctx, *update.EventID, err)
	}
	if err != nil {
		return nil, wrap("reassign booking", err)
	}
	return updated, nil
}

func (s *bookingService) Cancel(ctx context.Context, bookingID int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	err := s.inTransaction(ctx, func(ctx context.Context) error {
		b, err := s.bookingRepo.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		ev, err := s.eventRepo.GetByID(ctx, b.EventID)
		if err != nil {
			return err
		}
		if err := s.bookingRepo.Delete(ctx, b.ID); err != nil {
			return err
		}
		return s.eventRepo.CompareAndSetRemainingSeats(ctx, ev.ID, ev.RemainingSeats, ev.ReleasedSeats())
	})
	if err != nil {
		return wrap("cancel booking", err)
	}
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, wrap("get booking", err)
	}
	return b, nil
}

func (s *bookingService) List(ctx context.Context) ([]*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	bookings, err := s.bookingRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []*domain.Booking{}
	}
	return bookings, nil
}

func (s *bookingService) ListByUser(ctx context.Context, userID int64) ([]*domain.BookingWithEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	items, err := s.bookingRepo.ListByUserIDWithEvent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by user: %w", err)
	}
	if items == nil {
		items = []*domain.BookingWithEvent{}
	}
	return items, nil
}

// inTransaction runs fn as one unit of work, re-running it with fresh reads when
// a remaining-seats compare-and-swap lost to a concurrent writer.
func (s *bookingService) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.tx.WithinTransaction(ctx, fn)
		if !errors.Is(err, domain.ErrSeatsChanged) || ctx.Err() != nil {
			return err
		}
		s.logger.DebugContext(ctx, "remaining seats changed concurrently", "attempt", attempt)
	}
	return err
}

// soldOutAfterRace reports ErrSoldOut instead of ErrSeatsChanged when the
// writers that beat every attempt took the event's last seat.
func (s *bookingService) soldOutAfterRace(ctx context.Context, eventID int64, err error) error {
	if !errors.Is(err, domain.ErrSeatsChanged) {
		return err
	}
	ev, getErr := s.eventRepo.GetByID(ctx, eventID)
	if getErr != nil || ev.HasSeat() {
		return err
	}
	return fmt.Errorf("%w: event=%d", domain.ErrSoldOut, eventID)
}

// ensurePairFree fails with ErrAlreadyBooked when a booking other than except
// already holds (userID, eventID).
func (s *bookingService) ensurePairFree(ctx context.Context, userID, eventID, except int64) error {
	existing, err := s.bookingRepo.GetByEventAndUser(ctx, eventID, userID)
	switch {
	case err == nil && existing.ID != except:
		return fmt.Errorf("%w: user=%d event=%d", domain.ErrAlreadyBooked, userID, eventID)
	case err == nil, errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("get booking by event and user: %w", err)
	}
}

type seatWrite struct {
	event *domain.Event
	next  int
}

// moveSeat gives a seat back to event from and takes one from event to. Counters
// are written in ascending event id order so opposite moves cannot deadlock.
func (s *bookingService) moveSeat(ctx context.Context, from, to int64) error {
	src, err := s.eventRepo.GetByID(ctx, from)
	if err != nil {
		return err
	}
	dst, err := s.eventRepo.GetByID(ctx, to)
	if err != nil {
		return err
	}
	if !dst.HasSeat() {
		return fmt.Errorf("%w: event=%d", domain.ErrSoldOut, to)
	}

	writes := []seatWrite{
		{event: src, next: src.ReleasedSeats()},
		{event: dst, next: dst.RemainingSeats - 1},
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].event.ID < writes[j].event.ID })
	for _, w := range writes {
		if err := s.eventRepo.CompareAndSetRemainingSeats(ctx, w.event.ID, w.event.RemainingSeats, w.next); err != nil {
			return err
		}
	}
	return nil
}

func (s *bookingService) notifyReservation(ctx context.Context, b *domain.Booking, e *domain.Event, u *domain.User) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "reservation notifier panicked", "booking_id", b.ID, "panic", p)
		}
	}()

	summary := domain.ReservationSummary{
		BookingID:   b.ID,
		EventID:     e.ID,
		EventTitle:  e.Title,
		Description: e.Description,
		Date:        e.Date,
	}
	if err := s.notifier.NotifyReservation(ctx, summary, u.Email); err != nil {
		s.logger.WarnContext(ctx, "reservation notification failed",
			"booking_id", b.ID, "user_id", u.ID, "event_id", e.ID, "err", err)
	}
}

// wrap adds op to unexpected errors. Domain errors pass through unchanged so
// their message stays fit for API clients.
func wrap(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
