// Package memory is a process-local implementation of the repositories. Every
// unit of work holds the store lock for its whole duration, so units of work are
// serialised and a failed one is undone by restoring a snapshot.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"eventbooking/internal/domain"
)

type Store struct {
	mu sync.Mutex

	users         map[int64]domain.User
	events        map[int64]domain.Event
	bookings      map[int64]domain.Booking
	nextEventID   int64
	nextBookingID int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[int64]domain.User),
		events:   make(map[int64]domain.Event),
		bookings: make(map[int64]domain.Booking),
	}
}

type txKey struct{}

// lock acquires the store lock unless ctx already belongs to a unit of work on this store.
func (s *Store) lock(ctx context.Context) func() {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	users         map[int64]domain.User
	events        map[int64]domain.Event
	bookings      map[int64]domain.Booking
	nextEventID   int64
	nextBookingID int64
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		users:         maps.Clone(s.users),
		events:        maps.Clone(s.events),
		bookings:      maps.Clone(s.bookings),
		nextEventID:   s.nextEventID,
		nextBookingID: s.nextBookingID,
	}
}

func (s *Store) restore(snap snapshot) {
	s.users = snap.users
	s.events = snap.events
	s.bookings = snap.bookings
	s.nextEventID = snap.nextEventID
	s.nextBookingID = snap.nextBookingID
}

// WithinTransaction implements domain.Transactor.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// PutUser inserts or replaces a user. Users are owned by an external identity
// service; this exists for seeding.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// Users returns a UserRepository view of the store.
func (s *Store) Users() domain.UserRepository { return &userRepository{s: s} }

// Events returns an EventRepository view of the store.
func (s *Store) Events() domain.EventRepository { return &eventRepository{s: s} }

// Bookings returns a BookingRepository view of the store.
func (s *Store) Bookings() domain.BookingRepository { return &bookingRepository{s: s} }

type userRepository struct{ s *Store }

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.NotFoundf(domain.ErrUserNotFound, id)
	}
	return &u, nil
}

type eventRepository struct{ s *Store }

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	defer r.s.lock(ctx)()
	r.s.nextEventID++
	e.ID = r.s.nextEventID
	r.s.events[e.ID] = *e
	return nil
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	defer r.s.lock(ctx)()
	stored, ok := r.s.events[e.ID]
	if !ok {
		return domain.NotFoundf(domain.ErrEventNotFound, e.ID)
	}
	stored.Title, stored.Description, stored.Date, stored.UpdatedAt = e.Title, e.Description, e.Date, e.UpdatedAt
	r.s.events[e.ID] = stored
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	defer r.s.lock(ctx)()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.NotFoundf(domain.ErrEventNotFound, id)
	}
	return &e, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	defer r.s.lock(ctx)()
	events := make([]*domain.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		events = append(events, &e)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].ID < events[j].ID
		}
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}

func (r *eventRepository) Delete(ctx context.Context, id int64) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.events[id]; !ok {
		return domain.NotFoundf(domain.ErrEventNotFound, id)
	}
	delete(r.s.events, id)
	return nil
}

func (r *eventRepository) CompareAndSetRemainingSeats(ctx context.Context, id int64, expected, next int) error {
	defer r.s.lock(ctx)()
	e, ok := r.s.events[id]
	if !ok || e.RemainingSeats != expected {
		return domain.ErrSeatsChanged
	}
	e.RemainingSeats = next
	r.s.events[id] = e
	return nil
}

type bookingRepository struct{ s *Store }

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.bookings {
		if existing.UserID == b.UserID && existing.EventID == b.EventID {
			return domain.ErrAlreadyBooked
		}
	}
	r.s.nextBookingID++
	b.ID = r.s.nextBookingID
	r.s.bookings[b.ID] = *b
	return nil
}

func (r *bookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.bookings[b.ID]; !ok {
		return domain.NotFoundf(domain.ErrBookingNotFound, b.ID)
	}
	for _, existing := range r.s.bookings {
		if existing.ID != b.ID && existing.UserID == b.UserID && existing.EventID == b.EventID {
			return domain.ErrAlreadyBooked
		}
	}
	r.s.bookings[b.ID] = *b
	return nil
}

func (r *bookingRepository) Delete(ctx context.Context, id int64) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.bookings[id]; !ok {
		return domain.NotFoundf(domain.ErrBookingNotFound, id)
	}
	delete(r.s.bookings, id)
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	defer r.s.lock(ctx)()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.NotFoundf(domain.ErrBookingNotFound, id)
	}
	return &b, nil
}

func (r *bookingRepository) GetByEventAndUser(ctx context.Context, eventID, userID int64) (*domain.Booking, error) {
	defer r.s.lock(ctx)()
	for _, b := range r.s.bookings {
		if b.EventID == eventID && b.UserID == userID {
			return &b, nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

func (r *bookingRepository) List(ctx context.Context) ([]*domain.Booking, error) {
	defer r.s.lock(ctx)()
	bookings := make([]*domain.Booking, 0, len(r.s.bookings))
	for _, b := range r.s.bookings {
		bookings = append(bookings, &b)
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings, nil
}

func (r *bookingRepository) ListByUserIDWithEvent(ctx context.Context, userID int64) ([]*domain.BookingWithEvent, error) {
	defer r.s.lock(ctx)()
	items := make([]*domain.BookingWithEvent, 0)
	for _, b := range r.s.bookings {
		if b.UserID != userID {
			continue
		}
		e, ok := r.s.events[b.EventID]
		if !ok {
			continue
		}
		items = append(items, &domain.BookingWithEvent{Booking: &b, Event: &e})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Booking.ID > items[j].Booking.ID })
	return items, nil
}

func (r *bookingRepository) CountByEventID(ctx context.Context, eventID int64) (int, error) {
	defer r.s.lock(ctx)()
	n := 0
	for _, b := range r.s.bookings {
		if b.EventID == eventID {
			n++
		}
	}
	return n, nil
}
