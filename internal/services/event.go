package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventbooking/internal/domain"
)

type eventService struct {
	tx             domain.Transactor
	eventRepo      domain.EventRepository
	bookingRepo    domain.BookingRepository
	contextTimeout time.Duration
}

func NewEventService(tx domain.Transactor,
	eventRepo domain.EventRepository,
	bookingRepo domain.BookingRepository,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		tx:             tx,
		eventRepo:      eventRepo,
		bookingRepo:    bookingRepo,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if event.TotalSeats < 1 {
		return fmt.Errorf("%w: totalSeats must be at least 1", domain.ErrInvalidInput)
	}

	now := time.Now()
	event.RemainingSeats = event.TotalSeats
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, wrap("get event", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

// UpdateEvent edits an event's title, description or date. Seat counts never change here.
func (s *eventService) UpdateEvent(ctx context.Context, id int64, update domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrInvalidInput)
	}
	if update.Date != nil && update.Date.IsZero() {
		return nil, fmt.Errorf("%w: date cannot be empty", domain.ErrInvalidInput)
	}

	var event *domain.Event
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		e, err := s.eventRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if update.Title != nil {
			e.Title = strings.TrimSpace(*update.Title)
		}
		if update.Description != nil {
			e.Description = *update.Description
		}
		if update.Date != nil {
			e.Date = *update.Date
		}
		e.UpdatedAt = time.Now()
		if err := s.eventRepo.Update(ctx, e); err != nil {
			return err
		}
		event = e
		return nil
	})
	if err != nil {
		return nil, wrap("update event", err)
	}
	return event, nil
}

// DeleteEvent removes an event that no booking references.
func (s *eventService) DeleteEvent(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.eventRepo.GetByID(ctx, id); err != nil {
			return err
		}
		n, err := s.bookingRepo.CountByEventID(ctx, id)
		if err != nil {
			return fmt.Errorf("count bookings: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: event=%d bookings=%d", domain.ErrEventHasBookings, id, n)
		}
		return s.eventRepo.Delete(ctx, id)
	})
	if err != nil {
		return wrap("delete event", err)
	}
	return nil
}
