package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventbooking/internal/domain"
	"eventbooking/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingEventRepo returns err from every call.
type failingEventRepo struct {
	domain.EventRepository
	err error
}

func (f *failingEventRepo) Create(context.Context, *domain.Event) error { return f.err }

func (f *failingEventRepo) List(context.Context) ([]*domain.Event, error) { return nil, f.err }

func newEventService(store *memory.Store) domain.EventService {
	return NewEventService(store, store.Events(), store.Bookings(), time.Second)
}

func TestEventService_CreateEvent(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		event   *domain.Event
		wantErr error
	}{
		{
			name:  "success",
			event: &domain.Event{Title: " Go Meetup ", Description: "Monthly", Date: date, TotalSeats: 50, RemainingSeats: 3},
		},
		{
			name:    "missing title",
			event:   &domain.Event{Title: "   ", Date: date, TotalSeats: 50},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "no seats",
			event:   &domain.Event{Title: "Empty", Date: date, TotalSeats: 0},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			svc := newEventService(store)

			err := svc.CreateEvent(ctx, tt.event)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				events, err := store.Events().List(ctx)
				require.NoError(t, err)
				assert.Empty(t, events)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, tt.event.ID)
			assert.Equal(t, "Go Meetup", tt.event.Title)
			assert.Equal(t, tt.event.TotalSeats, tt.event.RemainingSeats)
			assert.False(t, tt.event.CreatedAt.IsZero())
		})
	}
}

func TestEventService_CreateEventRepoError(t *testing.T) {
	store := memory.NewStore()
	repoErr := errors.New("db down")
	svc := NewEventService(store, &failingEventRepo{err: repoErr}, store.Bookings(), time.Second)

	err := svc.CreateEvent(context.Background(), &domain.Event{Title: "x", TotalSeats: 1})
	require.ErrorIs(t, err, repoErr)
}

func TestEventService_GetAndList(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newEventService(store)

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	later := &domain.Event{Title: "Later", Date: time.Now().Add(48 * time.Hour), TotalSeats: 5}
	sooner := &domain.Event{Title: "Sooner", Date: time.Now().Add(24 * time.Hour), TotalSeats: 5}
	require.NoError(t, svc.CreateEvent(ctx, later))
	require.NoError(t, svc.CreateEvent(ctx, sooner))

	events, err = svc.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Sooner", events[0].Title)

	got, err := svc.GetEvent(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, "Later", got.Title)

	_, err = svc.GetEvent(ctx, 404)
	require.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestEventService_ListEventsRepoError(t *testing.T) {
	store := memory.NewStore()
	repoErr := errors.New("db down")
	svc := NewEventService(store, &failingEventRepo{err: repoErr}, store.Bookings(), time.Second)

	_, err := svc.ListEvents(context.Background())
	require.ErrorIs(t, err, repoErr)
}

func TestEventService_UpdateEvent(t *testing.T) {
	ctx := context.Background()
	str := func(v string) *string { return &v }
	newDate := time.Date(2026, 11, 5, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		update   domain.EventUpdate
		wantErr  error
		wantName string
		wantDesc string
	}{
		{name: "title only", update: domain.EventUpdate{Title: str("  Renamed ")}, wantName: "Renamed", wantDesc: "Monthly"},
		{name: "description and date", update: domain.EventUpdate{Description: str("Quarterly"), Date: &newDate}, wantName: "Meetup", wantDesc: "Quarterly"},
		{name: "empty update keeps fields", update: domain.EventUpdate{}, wantName: "Meetup", wantDesc: "Monthly"},
		{name: "blank title", update: domain.EventUpdate{Title: str("  ")}, wantErr: domain.ErrInvalidInput},
		{name: "zero date", update: domain.EventUpdate{Date: &time.Time{}}, wantErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			svc := newEventService(store)
			ev := &domain.Event{Title: "Meetup", Description: "Monthly", Date: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC), TotalSeats: 10}
			require.NoError(t, svc.CreateEvent(ctx, ev))
			require.NoError(t, store.Events().CompareAndSetRemainingSeats(ctx, ev.ID, 10, 7))

			got, err := svc.UpdateEvent(ctx, ev.ID, tt.update)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				stored, err := svc.GetEvent(ctx, ev.ID)
				require.NoError(t, err)
				assert.Equal(t, "Meetup", stored.Title)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.Title)
			assert.Equal(t, tt.wantDesc, got.Description)

			stored, err := svc.GetEvent(ctx, ev.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, stored.Title)
			assert.Equal(t, 10, stored.TotalSeats)
			assert.Equal(t, 7, stored.RemainingSeats)
			if tt.update.Date != nil {
				assert.True(t, newDate.Equal(stored.Date))
			}
		})
	}

	t.Run("not found", func(t *testing.T) {
		_, err := newEventService(memory.NewStore()).UpdateEvent(ctx, 9, domain.EventUpdate{Title: str("x")})
		require.ErrorIs(t, err, domain.ErrEventNotFound)
	})
}

func TestEventService_DeleteEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		store := memory.NewStore()
		svc := newEventService(store)
		ev := &domain.Event{Title: "Gone", TotalSeats: 2}
		require.NoError(t, svc.CreateEvent(ctx, ev))

		require.NoError(t, svc.DeleteEvent(ctx, ev.ID))
		_, err := svc.GetEvent(ctx, ev.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("not found", func(t *testing.T) {
		store := memory.NewStore()
		err := newEventService(store).DeleteEvent(ctx, 1)
		require.ErrorIs(t, err, domain.ErrEventNotFound)
	})

	t.Run("rejected while bookings exist", func(t *testing.T) {
		store := memory.NewStore()
		svc := newEventService(store)
		ev := &domain.Event{Title: "Busy", TotalSeats: 2}
		require.NoError(t, svc.CreateEvent(ctx, ev))
		require.NoError(t, store.Bookings().Create(ctx, domain.NewBooking(1, ev.ID, time.Now(), time.Now())))

		err := svc.DeleteEvent(ctx, ev.ID)
		require.ErrorIs(t, err, domain.ErrEventHasBookings)
		require.ErrorIs(t, err, domain.ErrConflict)
		_, err = svc.GetEvent(ctx, ev.ID)
		require.NoError(t, err)
	})
}
