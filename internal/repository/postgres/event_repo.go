package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventbooking/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, date, total_seats, remaining_seats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return conn(ctx, r.DB).QueryRowContext(ctx, query,
		e.Title, e.Description, e.Date, e.TotalSeats, e.RemainingSeats, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events SET title = $1, description = $2, date = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, e.Title, e.Description, e.Date, e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundf(domain.ErrEventNotFound, e.ID)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	query := `
		SELECT id, title, description, date, total_seats, remaining_seats, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	e := &domain.Event{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.TotalSeats, &e.RemainingSeats, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf(domain.ErrEventNotFound, id)
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT id, title, description, date, total_seats, remaining_seats, created_at, updated_at
		FROM events
		ORDER BY date ASC, id ASC
	`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e := &domain.Event{}
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.TotalSeats, &e.RemainingSeats, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: event=%d", domain.ErrEventHasBookings, id)
	}
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.NotFoundf(domain.ErrEventNotFound, id)
	}
	return nil
}

// CompareAndSetRemainingSeats relies on the row lock taken by UPDATE: a concurrent
// writer blocks until this transaction ends, then re-evaluates the WHERE clause
// against the committed value and matches zero rows.
func (r *eventRepository) CompareAndSetRemainingSeats(ctx context.Context, id int64, expected, next int) error {
	query := `
		UPDATE events SET remaining_seats = $1, updated_at = $2
		WHERE id = $3 AND remaining_seats = $4
	`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, next, time.Now(), id, expected)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrSeatsChanged
	}
	return nil
}
