// Package docstore provides the SQLite-backed persistence layer for the
// catalog, orders, and fulfillment logs.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa — important because fulfillment goroutines write order state while
// HTTP handlers read the catalog and order listings.
package docstore

import (
	"database/sql"
	"fmt"

	// Register the pure-Go SQLite driver.
	// We use modernc.org/sqlite instead of mattn/go-sqlite3 to avoid CGO
	// requirements, making it easier to build and run in Docker (Alpine).
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup.
const schema = `
CREATE TABLE IF NOT EXISTS books (
    -- Server-assigned UUID.
    id           TEXT PRIMARY KEY,

    title        TEXT    NOT NULL,
    author       TEXT    NOT NULL DEFAULT '',
    bio          TEXT    NOT NULL DEFAULT '',
    description  TEXT    NOT NULL DEFAULT '',
    price        REAL    NOT NULL DEFAULT 0,
    is_free      INTEGER NOT NULL DEFAULT 0,
    cover_url    TEXT    NOT NULL DEFAULT '',
    pdf_url      TEXT    NOT NULL DEFAULT '',

    -- RFC3339 stored as TEXT, SQLite idiom.
    created_at   TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
    -- The checkout session ID doubles as the order ID.
    id            TEXT PRIMARY KEY,

    first_name    TEXT NOT NULL DEFAULT '',
    last_name     TEXT NOT NULL DEFAULT '',
    email         TEXT NOT NULL DEFAULT '',
    address       TEXT NOT NULL DEFAULT '',
    city          TEXT NOT NULL DEFAULT '',
    postal_code   TEXT NOT NULL DEFAULT '',
    country       TEXT NOT NULL DEFAULT '',

    status        TEXT NOT NULL,

    -- JSON array of line items. Items carry loosely-typed price/quantity
    -- fields from legacy documents, so they stay opaque to SQL.
    items         TEXT NOT NULL DEFAULT '[]',

    -- NULL when the total was never captured; backfilled on read.
    total_price   REAL,
    postage_cost  REAL,

    payment_ref   TEXT NOT NULL DEFAULT '',

    -- Monotonic revision for optimistic status updates.
    revision      INTEGER NOT NULL DEFAULT 0,

    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, created_at);

CREATE TABLE IF NOT EXISTS fulfillment_logs (
    -- Surrogate primary key — auto-incremented by SQLite.
    id              INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Not UNIQUE: multiple rows exist per order (one per transition).
    order_id        TEXT    NOT NULL,

    status          TEXT    NOT NULL,
    current_step    TEXT    NOT NULL DEFAULT '',

    -- JSON array of error strings accumulated during failure/compensation.
    error_messages  TEXT    NOT NULL DEFAULT '[]',

    -- W3C trace_id / span_id from the active OTel span, for jumping from
    -- a log row directly to the trace.
    trace_id        TEXT    NOT NULL DEFAULT '',
    span_id         TEXT    NOT NULL DEFAULT '',

    updated_at      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fulfillment_logs_order_id ON fulfillment_logs(order_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_fulfillment_logs_trace_id ON fulfillment_logs(trace_id);
`

// Store wraps the shared SQLite handle. The per-aggregate repositories
// (Books, Orders, FulfillmentLogs) hang off it.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema. WAL mode is enabled for better concurrent read/write performance.
//
//	store, err := docstore.Open("./data/bookstore.db")
func Open(path string) (*Store, error) {
	// The pure-Go driver uses _pragma query parameters to configure connection state.
	// WAL enables concurrent readers. busy_timeout waits for locks instead of
	// failing immediately.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Use "sqlite", not "sqlite3" for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("docstore: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (s *Store) Close() error {
	return s.db.Close()
}

// Books returns the catalog repository backed by this store.
func (s *Store) Books() *BookRepository {
	return &BookRepository{db: s.db}
}

// Orders returns the order repository backed by this store.
func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{db: s.db}
}

// FulfillmentLogs returns the append-only fulfillment log repository.
func (s *Store) FulfillmentLogs() *FulfillmentLogRepository {
	return &FulfillmentLogRepository{db: s.db}
}

// nullableFloat returns nil for nil pointers so SQLite stores NULL.
func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
