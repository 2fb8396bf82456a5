package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"eventbooking/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var bookingColumns = []string{"id", "user_id", "event_id", "created_at", "updated_at"}

func TestBookingRepository_Create(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  int64
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO bookings \(user_id, event_id, created_at, updated_at\)`).
					WithArgs(int64(12), int64(5), ts, ts).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(33)))
			},
			wantID: 33,
		},
		{
			name: "unique index backstop",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO bookings`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "bookings_user_id_event_id_key"})
			},
			wantErr: domain.ErrAlreadyBooked,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO bookings`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			b := domain.NewBooking(12, 5, ts, ts)
			err = NewBookingRepository(db).Create(ctx, b)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.wantID, b.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBookingRepository_Update(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE bookings SET user_id = \$1, event_id = \$2, updated_at = \$3`).
					WithArgs(int64(1), int64(8), ts, int64(4)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE bookings`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrBookingNotFound,
		},
		{
			name: "unique index backstop",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE bookings`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: domain.ErrAlreadyBooked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			b := &domain.Booking{ID: 4, UserID: 1, EventID: 8, UpdatedAt: ts}
			err = NewBookingRepository(db).Update(ctx, b)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBookingRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM bookings WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, NewBookingRepository(db).Delete(ctx, 3))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM bookings WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		err = NewBookingRepository(db).Delete(ctx, 3)
		require.ErrorIs(t, err, domain.ErrBookingNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_GetByEventAndUser(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, user_id, event_id, created_at, updated_at\s+FROM bookings\s+WHERE event_id = \$1 AND user_id = \$2`).
			WithArgs(int64(5), int64(12)).
			WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(int64(1), int64(12), int64(5), ts, ts))
		got, err := NewBookingRepository(db).GetByEventAndUser(ctx, 5, 12)
		require.NoError(t, err)
		require.Equal(t, &domain.Booking{ID: 1, UserID: 12, EventID: 5, CreatedAt: ts, UpdatedAt: ts}, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, user_id, event_id`).
			WithArgs(int64(5), int64(12)).
			WillReturnError(sql.ErrNoRows)
		got, err := NewBookingRepository(db).GetByEventAndUser(ctx, 5, 12)
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.Nil(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_List(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, user_id, event_id, created_at, updated_at\s+FROM bookings\s+ORDER BY id ASC`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).
			AddRow(int64(1), int64(12), int64(5), ts, ts).
			AddRow(int64(2), int64(13), int64(5), ts, ts))
	got, err := NewBookingRepository(db).List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(13), got[1].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListByUserIDWithEvent(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	columns := append(append([]string{}, bookingColumns...), eventColumns...)

	tests := []struct {
		name      string
		mock      func(mock sqlmock.Sqlmock)
		wantCount int
		wantErr   bool
	}{
		{
			name: "with events",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM bookings b\s+JOIN events e ON e.id = b.event_id\s+WHERE b.user_id = \$1`).
					WithArgs(int64(12)).
					WillReturnRows(sqlmock.NewRows(columns).
						AddRow(int64(1), int64(12), int64(5), ts, ts, int64(5), "Conf", "desc", ts, 10, 9, ts, ts))
			},
			wantCount: 1,
		},
		{
			name: "empty",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM bookings b`).
					WithArgs(int64(12)).
					WillReturnRows(sqlmock.NewRows(columns))
			},
			wantCount: 0,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM bookings b`).
					WithArgs(int64(12)).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			got, err := NewBookingRepository(db).ListByUserIDWithEvent(ctx, 12)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, got)
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				require.Len(t, got, tt.wantCount)
				for _, item := range got {
					require.Equal(t, item.Booking.EventID, item.Event.ID)
				}
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBookingRepository_CountByEventID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE event_id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	n, err := NewBookingRepository(db).CountByEventID(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
