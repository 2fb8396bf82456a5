package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventbooking/internal/domain"
)

type bookingRepository struct {
	DB *sql.DB
}

func NewBookingRepository(db *sql.DB) domain.BookingRepository {
	return &bookingRepository{
		DB: db,
	}
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (user_id, event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, b.UserID, b.EventID, b.CreatedAt, b.UpdatedAt).
		Scan(&b.ID)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyBooked
	}
	return err
}

func (r *bookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	query := `
		UPDATE bookings SET user_id = $1, event_id = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, b.UserID, b.EventID, b.UpdatedAt, b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyBooked
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.NotFoundf(domain.ErrBookingNotFound, b.ID)
	}
	return nil
}

func (r *bookingRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM bookings WHERE id = $1`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.NotFoundf(domain.ErrBookingNotFound, id)
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	query := `
		SELECT id, user_id, event_id, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`
	b := &domain.Booking{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, id).
		Scan(&b.ID, &b.UserID, &b.EventID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf(domain.ErrBookingNotFound, id)
		}
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) GetByEventAndUser(ctx context.Context, eventID, userID int64) (*domain.Booking, error) {
	query := `
		SELECT id, user_id, event_id, created_at, updated_at
		FROM bookings
		WHERE event_id = $1 AND user_id = $2
	`
	b := &domain.Booking{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, eventID, userID).
		Scan(&b.ID, &b.UserID, &b.EventID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) List(ctx context.Context) ([]*domain.Booking, error) {
	query := `
		SELECT id, user_id, event_id, created_at, updated_at
		FROM bookings
		ORDER BY id ASC
	`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0)
	for rows.Next() {
		b := &domain.Booking{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.EventID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) ListByUserIDWithEvent(ctx context.Context, userID int64) ([]*domain.BookingWithEvent, error) {
	query := `
		SELECT b.id, b.user_id, b.event_id, b.created_at, b.updated_at,
		       e.id, e.title, e.description, e.date, e.total_seats, e.remaining_seats, e.created_at, e.updated_at
		FROM bookings b
		JOIN events e ON e.id = b.event_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC, b.id DESC
	`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.BookingWithEvent, 0)
	for rows.Next() {
		b := &domain.Booking{}
		e := &domain.Event{}
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.EventID, &b.CreatedAt, &b.UpdatedAt,
			&e.ID, &e.Title, &e.Description, &e.Date, &e.TotalSeats, &e.RemainingSeats, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &domain.BookingWithEvent{Booking: b, Event: e})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *bookingRepository) CountByEventID(ctx context.Context, eventID int64) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE event_id = $1`
	var n int
	if err := conn(ctx, r.DB).QueryRowContext(ctx, query, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
