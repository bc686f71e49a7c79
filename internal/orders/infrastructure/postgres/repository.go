package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/eventhive/internal/orders/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, o domain.Order) (domain.Order, bool, error) {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO orders (id, event_id, ticket_type, quantity, username, checkout_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING`,
		o.ID, o.EventID, o.TicketType, o.Quantity, o.Username, o.CheckoutDate, o.CreatedAt)
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("insert order: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return o, true, nil
	}

	existing, err := r.get(ctx, o.ID)
	if err != nil {
		return domain.Order{}, false, err
	}
	if existing.EventID != o.EventID ||
		existing.TicketType != o.TicketType ||
		existing.Quantity != o.Quantity ||
		existing.Username != o.Username {
		return domain.Order{}, false, domain.ErrOrderConflict
	}
	return existing, false, nil
}

func (r *Repository) get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, ticket_type, quantity, username, checkout_date, created_at
		FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.EventID, &o.TicketType, &o.Quantity, &o.Username, &o.CheckoutDate, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *Repository) ListByUser(ctx context.Context, username string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, ticket_type, quantity, username, checkout_date, created_at
		FROM orders WHERE username = $1 ORDER BY checkout_date DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.EventID, &o.TicketType, &o.Quantity, &o.Username, &o.CheckoutDate, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *Repository) UsernamesByEvent(ctx context.Context, eventID string) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT username FROM orders WHERE event_id = $1 ORDER BY username`, eventID)
}

func (r *Repository) EventIDsByUser(ctx context.Context, username string) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT event_id FROM orders WHERE username = $1 ORDER BY event_id`, username)
}

func (r *Repository) distinct(ctx context.Context, query, arg string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query distinct: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
