package ports

import (
	"context"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
)

// CreateBookInput carries the fields and asset uploads for a new book.
// Uploads happen before the record is written.
type CreateBookInput struct {
	Title       string
	Author      string
	Bio         string
	Description string
	Price       float64
	IsFree      bool
	Cover       *Upload
	PDF         *Upload
}

// UpdateBookInput is a partial edit. Nil fields keep their stored
// values; asset URLs are only replaced when a new upload is supplied.
type UpdateBookInput struct {
	Title       *string
	Author      *string
	Bio         *string
	Description *string
	Price       *float64
	IsFree      *bool
	Cover       *Upload
	PDF         *Upload
}

// CatalogService manages the book catalog and free-PDF delivery.
type CatalogService interface {
	List(ctx context.Context) ([]entity.Book, error)
	Get(ctx context.Context, id string) (*entity.Book, error)
	Create(ctx context.Context, input CreateBookInput) (*entity.Book, error)
	Update(ctx context.Context, id string, input UpdateBookInput) (*entity.Book, error)
	Delete(ctx context.Context, id string) error
	SendFreePDF(ctx context.Context, bookID, email string) error
}

// OrderService exposes order reads and administrator status changes.
type OrderService interface {
	Get(ctx context.Context, id string) (*entity.Order, error)
	ListActive(ctx context.Context) ([]entity.Order, error)
	ListArchived(ctx context.Context) ([]entity.Order, error)

	// SetStatus validates the raw status value against the enum before
	// anything is sent to storage, then applies it conditionally on the
	// expected revision.
	SetStatus(ctx context.Context, orderID, status string, expectedRevision int64) error
}

// CheckoutRequest is the buyer-facing checkout payload. Item prices and
// quantities arrive as loose JSON values and are validated atomically.
type CheckoutRequest struct {
	Email      string
	FirstName  string
	LastName   string
	Address    string
	City       string
	PostalCode string
	Country    string
	Items      []entity.OrderItem
}

// PaymentConfirmation is returned after a session is confirmed paid.
type PaymentConfirmation struct {
	Email      string
	PaymentRef string
}

// CheckoutService creates hosted payment sessions and confirms them.
type CheckoutService interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (string, error)
	ConfirmPayment(ctx context.Context, sessionID string) (*PaymentConfirmation, error)
}

// FinanceService produces the financial overview and manages the tax
// rate. Reports are recomputed from the current order snapshot on every
// call; nothing is cached or incrementally maintained.
type FinanceService interface {
	Report(ctx context.Context) (*entity.FinanceReport, error)
	SetTaxRate(rate float64) error
	TaxRate() float64
}

// CartService is the per-client cart store.
type CartService interface {
	Get(ctx context.Context, clientID string) (*entity.Cart, error)
	AddBook(ctx context.Context, clientID, bookID string, quantity int) (*entity.Cart, error)
	UpdateQuantity(ctx context.Context, clientID, bookID string, quantity int) (*entity.Cart, error)
	RemoveBook(ctx context.Context, clientID, bookID string) (*entity.Cart, error)
	Clear(ctx context.Context, clientID string) error
}
