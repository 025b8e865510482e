package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
	"github.com/inkpress/bookstore/internal/pricing"
)

var _ ports.OrderRepository = (*OrderRepository)(nil)

// OrderRepository is the SQLite implementation of ports.OrderRepository.
type OrderRepository struct {
	db *sql.DB
}

const orderColumns = `id, first_name, last_name, email, address, city, postal_code, country,
	status, items, total_price, postage_cost, payment_ref, revision, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("docstore: encode items for order %q: %w", order.ID, err)
	}

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	const q = `
		INSERT INTO orders
			(id, first_name, last_name, email, address, city, postal_code, country,
			 status, items, total_price, postage_cost, payment_ref, revision, created_at, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, q,
		order.ID,
		order.FirstName,
		order.LastName,
		order.Email,
		order.Address,
		order.City,
		order.PostalCode,
		order.Country,
		string(order.Status),
		string(items),
		nullableFloat(order.TotalPrice),
		nullableFloat(order.PostageCost),
		order.PaymentRef,
		order.Revision,
		formatTime(order.CreatedAt),
		formatTime(order.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("docstore: create order %q: %w", order.ID, err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: get order %q: %w", id, err)
	}
	return order, nil
}

// UpdateStatus transitions the order only if its revision still matches
// expectedRevision; a concurrent update in between yields
// ports.ErrRevisionConflict.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, expectedRevision int64) error {
	const q = `
		UPDATE orders
		SET    status = ?, revision = revision + 1, updated_at = ?
		WHERE  id = ? AND revision = ?`

	res, err := r.db.ExecContext(ctx, q, string(status), formatTime(time.Now()), id, expectedRevision)
	if err != nil {
		return fmt.Errorf("docstore: update status for order %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("docstore: update status for order %q: %w", id, err)
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a stale revision from a missing order.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("docstore: update status for order %q: %w", id, err)
	}
	return ports.ErrRevisionConflict
}

// MarkPaid records the payment reference and flips the order to success.
// Unlike UpdateStatus it is unconditional: payment confirmations are
// idempotent retries from the provider and always win.
func (r *OrderRepository) MarkPaid(ctx context.Context, id, paymentRef string) error {
	const q = `
		UPDATE orders
		SET    status = ?, payment_ref = ?, revision = revision + 1, updated_at = ?
		WHERE  id = ?`

	res, err := r.db.ExecContext(ctx, q, string(entity.StatusSuccess), paymentRef, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("docstore: mark order %q paid: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("docstore: mark order %q paid: %w", id, err)
	}
	if affected == 0 {
		return ports.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) ListByStatus(ctx context.Context, statuses ...entity.OrderStatus) ([]entity.Order, error) {
	if len(statuses) == 0 {
		return []entity.Order{}, nil
	}

	placeholders := strings.Repeat("?,", len(statuses))
	placeholders = placeholders[:len(placeholders)-1]
	q := `SELECT ` + orderColumns + ` FROM orders WHERE status IN (` + placeholders + `) ORDER BY created_at DESC, id`

	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: list orders: %w", err)
	}
	defer rows.Close()

	orders := []entity.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("docstore: list orders: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: list orders: %w", err)
	}
	return orders, nil
}

func scanOrder(row rowScanner) (*entity.Order, error) {
	var (
		order      entity.Order
		status     string
		items      string
		totalPrice sql.NullFloat64
		postage    sql.NullFloat64
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(
		&order.ID,
		&order.FirstName,
		&order.LastName,
		&order.Email,
		&order.Address,
		&order.City,
		&order.PostalCode,
		&order.Country,
		&status,
		&items,
		&totalPrice,
		&postage,
		&order.PaymentRef,
		&order.Revision,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = entity.OrderStatus(status)
	if err := json.Unmarshal([]byte(items), &order.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if totalPrice.Valid {
		order.TotalPrice = &totalPrice.Float64
	}
	if postage.Valid {
		order.PostageCost = &postage.Float64
	}

	order.CreatedAt, err = parseRFC3339(createdAt)
	if err != nil {
		return nil, err
	}
	order.UpdatedAt, err = parseRFC3339(updatedAt)
	if err != nil {
		return nil, err
	}

	// Legacy rows predate stored totals; derive one so every caller sees
	// the same number.
	if order.TotalPrice == nil {
		total := pricing.Total(order.Items)
		order.TotalPrice = &total
	}
	return &order, nil
}
