package ports

import (
	"context"
	"errors"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
)

var (
	// ErrBookNotFound is returned when a referenced book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrOrderNotFound is returned when a referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrRevisionConflict is returned when a conditional update loses the
	// race against a concurrent write. The caller should refetch the
	// record and retry the operation against the new revision.
	ErrRevisionConflict = errors.New("order revision conflict")
)

// BookRepository is the document-store contract for the books collection.
// Updates are merge-style partial writes, not full replacements.
type BookRepository interface {
	Create(ctx context.Context, book *entity.Book) error
	GetByID(ctx context.Context, id string) (*entity.Book, error)
	Update(ctx context.Context, id string, patch entity.BookPatch) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]entity.Book, error)
}

// OrderRepository is the document-store contract for the orders
// collection. Orders are keyed by checkout-session ID.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)

	// UpdateStatus sets the status if the stored revision still equals
	// expectedRevision. Returns ErrOrderNotFound when the order is
	// absent and ErrRevisionConflict when the revision has moved on.
	UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, expectedRevision int64) error

	// MarkPaid is the payment-confirmation write: status becomes
	// success and the payment reference is recorded. Re-confirming an
	// already-paid order re-writes the same state.
	MarkPaid(ctx context.Context, id, paymentRef string) error

	// ListByStatus returns all orders whose status is in the given set.
	ListByStatus(ctx context.Context, statuses ...entity.OrderStatus) ([]entity.Order, error)
}
