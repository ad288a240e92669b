package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/pkg/database"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

const eventColumns = `id, name, time, type, suburb, address, lat, lng, description,
	status, organizer_id, created_by, bookings_count, created_at, updated_at`

// EventRepository implements repository.EventRepository.
type EventRepository struct {
	db database.DBTX
}

// NewEventRepository creates a PostgreSQL-backed event repository.
func NewEventRepository(db database.DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts an event.
func (r *EventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(ctx, query,
		e.ID, e.Name, e.Time, e.Type, e.Suburb, e.Address, e.Lat, e.Lng, e.Description,
		e.Status, e.OrganizerID, e.CreatedBy, e.BookingsCount, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID retrieves an event.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("event", id)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns events matching filter, newest first.
func (r *EventRepository) List(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	var w whereBuilder
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Suburb != "" {
		w.add("suburb ILIKE ?", f.Suburb)
	}
	if f.Type != "" {
		w.add("type = ?", f.Type)
	}

	query := `SELECT ` + eventColumns + ` FROM events ` + w.clause() + ` ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}

// Update rewrites the descriptive fields of an event.
func (r *EventRepository) Update(ctx context.Context, e *domain.Event) error {
	e.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE events
		SET name = $1, time = $2, type = $3, suburb = $4, address = $5,
		    lat = $6, lng = $7, description = $8, updated_at = $9
		WHERE id = $10`

	ct, err := r.db.Exec(ctx, query,
		e.Name, e.Time, e.Type, e.Suburb, e.Address, e.Lat, e.Lng, e.Description, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("event", e.ID)
	}
	return nil
}

// UpdateStatus moves an event to status.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, status domain.EventStatus) error {
	ct, err := r.db.Exec(ctx, `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("event", id)
	}
	return nil
}

// Delete removes an event and, by cascade, its bookings.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("event", id)
	}
	return nil
}

func bookingPolicy(name string) database.TxPolicy {
	return database.TxPolicy{Name: name, IsoLevel: pgx.ReadCommitted, MaxAttempts: 3}
}

// Book inserts the booking and bumps bookings_count only when the booking
// is new, so a repeated booking is a no-op.
func (r *EventRepository) Book(ctx context.Context, eventID, userID string) (bool, error) {
	var created bool
	err := database.RunInTx(ctx, r.db, bookingPolicy("book_event"), func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx,
			`INSERT INTO event_bookings (event_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			eventID, userID)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		created = ct.RowsAffected() == 1
		if !created {
			return nil
		}
		if _, err := tx.Exec(ctx,
			`UPDATE events SET bookings_count = bookings_count + 1 WHERE id = $1`, eventID); err != nil {
			return fmt.Errorf("increment bookings: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// CancelBooking deletes the booking and decrements bookings_count.
func (r *EventRepository) CancelBooking(ctx context.Context, eventID, userID string) error {
	return database.RunInTx(ctx, r.db, bookingPolicy("cancel_booking"), func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx,
			`DELETE FROM event_bookings WHERE event_id = $1 AND user_id = $2`, eventID, userID)
		if err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("booking", eventID)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE events SET bookings_count = GREATEST(bookings_count - 1, 0) WHERE id = $1`, eventID); err != nil {
			return fmt.Errorf("decrement bookings: %w", err)
		}
		return nil
	})
}

// ListBookingsByUser returns the user's bookings, newest first.
func (r *EventRepository) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT event_id, user_id, created_at
		FROM event_bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.EventID, &b.UserID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}
	return bookings, nil
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var (
		e      domain.Event
		status string
	)
	if err := row.Scan(
		&e.ID, &e.Name, &e.Time, &e.Type, &e.Suburb, &e.Address, &e.Lat, &e.Lng, &e.Description,
		&status, &e.OrganizerID, &e.CreatedBy, &e.BookingsCount, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Status = domain.EventStatus(status)
	return &e, nil
}
