package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inkpress/bookstore/internal/fulfillment/flog"
)

var _ flog.Repository = (*FulfillmentLogRepository)(nil)

// FulfillmentLogRepository is the SQLite implementation of flog.Repository.
// The table is append-only: each row is an immutable event in an order's
// fulfillment lifecycle.
type FulfillmentLogRepository struct {
	db *sql.DB
}

// Save inserts a new fulfillment log entry. It is safe to call concurrently.
func (r *FulfillmentLogRepository) Save(ctx context.Context, entry *flog.Entry) error {
	const q = `
		INSERT INTO fulfillment_logs
			(order_id, status, current_step, error_messages, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.OrderID,
		string(entry.Status),
		entry.CurrentStep,
		entry.ErrorMessages,
		entry.TraceID,
		entry.SpanID,
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("docstore: save fulfillment log for %q: %w", entry.OrderID, err)
	}
	return nil
}

// GetLatest returns the most recent log entry for a given order ID.
// Useful for a status endpoint or for recovery on restart.
func (r *FulfillmentLogRepository) GetLatest(ctx context.Context, orderID string) (*flog.Entry, error) {
	const q = `
		SELECT order_id, status, current_step, error_messages, trace_id, span_id, updated_at
		FROM   fulfillment_logs
		WHERE  order_id = ?
		ORDER  BY updated_at DESC, id DESC
		LIMIT  1`

	row := r.db.QueryRowContext(ctx, q, orderID)

	var entry flog.Entry
	var updatedAt string
	err := row.Scan(
		&entry.OrderID,
		&entry.Status,
		&entry.CurrentStep,
		&entry.ErrorMessages,
		&entry.TraceID,
		&entry.SpanID,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("docstore: no fulfillment log for order %q", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: get latest fulfillment log for %q: %w", orderID, err)
	}

	entry.UpdatedAt, err = parseRFC3339(updatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
