package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/eventhive/internal/events/domain"
)

// Repository backs both the event metadata CRUD and the inventory store.
// The inventory adjustment is a single conditional UPDATE, so per-row
// atomicity comes from Postgres: two racing decrements that together exceed
// the available quantity produce exactly one success.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, ev domain.Event) (domain.Event, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO events (name, category, description, location, start_date, end_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		ev.Name, ev.Category, ev.Description, ev.Location, ev.StartDate, ev.EndDate, ev.CreatedAt,
	).Scan(&ev.ID)
	if err != nil {
		return domain.Event{}, fmt.Errorf("insert event: %w", err)
	}

	batch := &pgx.Batch{}
	for _, tt := range ev.TicketTypes {
		batch.Queue(`
			INSERT INTO ticket_types (event_id, name, price_cents, total, available)
			VALUES ($1,$2,$3,$4,$5)`,
			ev.ID, tt.Name, tt.PriceCents, tt.Total, tt.Available)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return domain.Event{}, fmt.Errorf("insert ticket types: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Event{}, fmt.Errorf("commit tx: %w", err)
	}
	return ev, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Event, error) {
	var ev domain.Event
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, category, description, location, start_date, end_date, created_at
		FROM events WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.Name, &ev.Category, &ev.Description, &ev.Location, &ev.StartDate, &ev.EndDate, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}

	ev.TicketTypes, err = r.ticketTypes(ctx, ev.ID)
	if err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

func (r *Repository) List(ctx context.Context, page, pageSize int) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, category, description, location, start_date, end_date, created_at
		FROM events
		ORDER BY start_date, id
		LIMIT $1 OFFSET $2`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Category, &ev.Description, &ev.Location, &ev.StartDate, &ev.EndDate, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	for i := range events {
		tts, err := r.ticketTypes(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].TicketTypes = tts
	}
	return events, nil
}

func (r *Repository) UpdateDates(ctx context.Context, id string, start, end *time.Time) (domain.Event, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE events
		SET start_date = COALESCE($2, start_date), end_date = COALESCE($3, end_date)
		WHERE id = $1`, id, start, end)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("update event dates: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) AdjustQuantity(ctx context.Context, eventID, ticketType string, delta int) (domain.TicketType, error) {
	var tt domain.TicketType
	err := r.pool.QueryRow(ctx, `
		UPDATE ticket_types
		SET total = total + $3, available = available + $3
		WHERE event_id = $1 AND name = $2 AND total + $3 >= 0 AND available + $3 >= 0
		RETURNING name, price_cents, total, available`,
		eventID, ticketType, delta,
	).Scan(&tt.Name, &tt.PriceCents, &tt.Total, &tt.Available)
	if err == nil {
		return tt, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TicketType{}, r.classifyNoRows(ctx, eventID, ticketType)
	}
	if isInvalidUUID(err) {
		return domain.TicketType{}, domain.ErrTicketTypeNotFound
	}
	return domain.TicketType{}, fmt.Errorf("adjust quantity: %w", err)
}

func (r *Repository) GetAvailable(ctx context.Context, eventID, ticketType string) (int, error) {
	var available int
	err := r.pool.QueryRow(ctx, `
		SELECT available FROM ticket_types WHERE event_id = $1 AND name = $2`,
		eventID, ticketType,
	).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return 0, domain.ErrTicketTypeNotFound
		}
		return 0, fmt.Errorf("get available: %w", err)
	}
	return available, nil
}

func (r *Repository) AdjustAvailable(ctx context.Context, eventID, ticketType string, delta int) (int, error) {
	var available int
	err := r.pool.QueryRow(ctx, `
		UPDATE ticket_types
		SET available = available + $3
		WHERE event_id = $1 AND name = $2 AND available + $3 >= 0
		RETURNING available`,
		eventID, ticketType, delta,
	).Scan(&available)
	if err == nil {
		return available, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, r.classifyNoRows(ctx, eventID, ticketType)
	}
	if isInvalidUUID(err) {
		return 0, domain.ErrTicketTypeNotFound
	}
	return 0, fmt.Errorf("adjust available: %w", err)
}

// classifyNoRows disambiguates a conditional UPDATE that matched nothing:
// either the ticket type does not exist, or the guard on the quantity failed.
func (r *Repository) classifyNoRows(ctx context.Context, eventID, ticketType string) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM ticket_types WHERE event_id = $1 AND name = $2)`,
		eventID, ticketType,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check ticket type: %w", err)
	}
	if !exists {
		return domain.ErrTicketTypeNotFound
	}
	return domain.ErrInsufficientInventory
}

func (r *Repository) ticketTypes(ctx context.Context, eventID string) ([]domain.TicketType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, price_cents, total, available
		FROM ticket_types WHERE event_id = $1 ORDER BY name`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer rows.Close()

	var tts []domain.TicketType
	for rows.Next() {
		var tt domain.TicketType
		if err := rows.Scan(&tt.Name, &tt.PriceCents, &tt.Total, &tt.Available); err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		tts = append(tts, tt)
	}
	return tts, rows.Err()
}

// isInvalidUUID reports whether the error is Postgres rejecting a value
// that cannot be cast to uuid (22P02). Callers treat that as not-found.
func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
