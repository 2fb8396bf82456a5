package postgres

import (
	"context"
	"errors"
	"testing"

	"eventbooking/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestTransactor_WithinTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits and routes repository calls through the tx", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE events SET remaining_seats`).
			WithArgs(4, sqlmock.AnyArg(), int64(1), 5).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM bookings WHERE id = \$1`).
			WithArgs(int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		events := NewEventRepository(db)
		bookings := NewBookingRepository(db)
		err = NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
			if err := events.CompareAndSetRemainingSeats(ctx, 1, 5, 4); err != nil {
				return err
			}
			return bookings.Delete(ctx, 2)
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE events SET remaining_seats`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		events := NewEventRepository(db)
		err = NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
			return events.CompareAndSetRemainingSeats(ctx, 1, 5, 4)
		})
		require.ErrorIs(t, err, domain.ErrSeatsChanged)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deadlock and serialization aborts are retryable", func(t *testing.T) {
		for _, code := range []pq.ErrorCode{"40P01", "40001"} {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)

			mock.ExpectBegin()
			mock.ExpectExec(`DELETE FROM bookings WHERE id = \$1`).
				WithArgs(int64(2)).
				WillReturnError(&pq.Error{Code: code, Message: "deadlock detected"})
			mock.ExpectRollback()

			bookings := NewBookingRepository(db)
			err = NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
				return bookings.Delete(ctx, 2)
			})
			require.ErrorIs(t, err, domain.ErrSeatsChanged, "code %s", code)
			require.NotContains(t, err.Error(), "deadlock detected")
			require.NoError(t, mock.ExpectationsWereMet())
			db.Close()
		}
	})

	t.Run("other driver errors pass through", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM bookings`).WillReturnError(&pq.Error{Code: "57014"})
		mock.ExpectRollback()

		bookings := NewBookingRepository(db)
		err = NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
			return bookings.Delete(ctx, 2)
		})
		require.Error(t, err)
		require.False(t, errors.Is(err, domain.ErrSeatsChanged))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		tr := NewTransactor(db)
		innerRan := false
		err = tr.WithinTransaction(ctx, func(ctx context.Context) error {
			return tr.WithinTransaction(ctx, func(ctx context.Context) error {
				innerRan = true
				return nil
			})
		})
		require.NoError(t, err)
		require.True(t, innerRan)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
		err = NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
			t.Fatal("fn must not run")
			return nil
		})
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
