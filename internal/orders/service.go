// Package orders manages the order lifecycle. Orders enter the system
// as pending at checkout-session creation; payment confirmation moves
// them to success automatically, and administrators may move them to
// any valid status afterwards.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
)

// ErrInvalidStatus is returned when a transition targets a value
// outside the four-state enum. The rejection happens before anything is
// sent to storage.
var ErrInvalidStatus = errors.New("invalid order status")

var _ ports.OrderService = (*Service)(nil)

// Service implements ports.OrderService over an order repository.
type Service struct {
	repo ports.OrderRepository
}

func NewService(repo ports.OrderRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrOrderNotFound) {
			return nil, ports.ErrOrderNotFound
		}
		return nil, fmt.Errorf("orders: get %s: %w", id, err)
	}
	return order, nil
}

// ListActive returns orders in pending, completed, or success status.
func (s *Service) ListActive(ctx context.Context) ([]entity.Order, error) {
	list, err := s.repo.ListByStatus(ctx, entity.ActiveStatuses...)
	if err != nil {
		return nil, fmt.Errorf("orders: list active: %w", err)
	}
	return list, nil
}

// ListArchived returns archived orders. They are excluded from the
// active listing but still included in financial aggregation.
func (s *Service) ListArchived(ctx context.Context) ([]entity.Order, error) {
	list, err := s.repo.ListByStatus(ctx, entity.StatusArchived)
	if err != nil {
		return nil, fmt.Errorf("orders: list archived: %w", err)
	}
	return list, nil
}

// SetStatus applies a manual, administrator-initiated transition. Any
// of the four valid statuses is accepted as a target; anything else is
// rejected with ErrInvalidStatus before storage is touched. The update
// is conditional on expectedRevision, so a concurrent change surfaces
// as ports.ErrRevisionConflict instead of being silently overwritten.
func (s *Service) SetStatus(ctx context.Context, orderID, status string, expectedRevision int64) error {
	target := entity.OrderStatus(status)
	if !target.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	err := s.repo.UpdateStatus(ctx, orderID, target, expectedRevision)
	switch {
	case errors.Is(err, ports.ErrOrderNotFound):
		slog.WarnContext(ctx, "status change for unknown order", "order_id", orderID, "status", status)
		return ports.ErrOrderNotFound
	case errors.Is(err, ports.ErrRevisionConflict):
		slog.WarnContext(ctx, "status change lost revision race", "order_id", orderID, "revision", expectedRevision)
		return ports.ErrRevisionConflict
	case err != nil:
		return fmt.Errorf("orders: update status of %s: %w", orderID, err)
	}

	slog.InfoContext(ctx, "order status updated", "order_id", orderID, "status", status)
	return nil
}
