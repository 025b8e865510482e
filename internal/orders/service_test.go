package orders_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
	"github.com/inkpress/bookstore/internal/orders"
)

type mockOrderRepo struct {
	createFunc       func(ctx context.Context, order *entity.Order) error
	getByIDFunc      func(ctx context.Context, id string) (*entity.Order, error)
	updateStatusFunc func(ctx context.Context, id string, status entity.OrderStatus, rev int64) error
	markPaidFunc     func(ctx context.Context, id, paymentRef string) error
	listFunc         func(ctx context.Context, statuses ...entity.OrderStatus) ([]entity.Order, error)
}

func (m *mockOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	return m.createFunc(ctx, order)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, rev int64) error {
	return m.updateStatusFunc(ctx, id, status, rev)
}

func (m *mockOrderRepo) MarkPaid(ctx context.Context, id, paymentRef string) error {
	return m.markPaidFunc(ctx, id, paymentRef)
}

func (m *mockOrderRepo) ListByStatus(ctx context.Context, statuses ...entity.OrderStatus) ([]entity.Order, error) {
	return m.listFunc(ctx, statuses...)
}

func TestService_SetStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		updateFunc  func(ctx context.Context, id string, status entity.OrderStatus, rev int64) error
		wantErrIs   error
		wantStored  bool
		wantPersist entity.OrderStatus
	}{
		{
			name:   "pending_accepted",
			status: "pending",
			updateFunc: func(ctx context.Context, id string, status entity.OrderStatus, rev int64) error {
				return nil
			},
			wantStored:  true,
			wantPersist: entity.StatusPending,
		},
		{
			name:   "success_accepted",
			status: "success",
			updateFunc: func(ctx context.Context, id string, status entity.OrderStatus, rev int64) error {
				return nil
			},
			wantStored:  true,
			wantPersist: entity.StatusSuccess,
		},
		{
			name:   "completed_accepted",
			status: "completed",
			updateFunc: func(ctx context.Context, id string, status entity.OrderStatus, rev int64) error {
				return nil
			},
			wantStored:  true,
			wantPersist: entity.StatusCompleted,
		},
		{
			name:   "archived_accepted",
			status: "archived",
			updateFunc: func(ctx context.Context, id string, status entity.OrderStatus, rev int64) error {
				return nil
			},
			wantStored:  true,
			wantPersist: entity.StatusArchived,
		},
		{
			name:      "unknown_status_rejected_before_storage",
			status:    "shipped",
			wantErrIs: orders.ErrInvalidStatus,
		},
		{
			name:      "empty_status_rejected_before_storage",
			status:    "",
			wantErrIs: orders.ErrInvalidStatus,
		},
		{
			name:      "case_sensitive_rejection",
			status:    "Pending",
			wantErrIs: orders.ErrInvalidStatus,
		},
		{
			name:   "not_found_propagates",
			status: "completed",
			updateFunc: func(ctx context.Context, id string, status entity.OrderStatus, rev int64) error {
				return ports.ErrOrderNotFound
			},
			wantStored: true,
			wantErrIs:  ports.ErrOrderNotFound,
		},
		{
			name:   "revision_conflict_propagates",
			status: "archived",
			updateFunc: func(ctx context.Context, id string, status entity.OrderStatus, rev int64) error {
				return ports.ErrRevisionConflict
			},
			wantStored: true,
			wantErrIs:  ports.ErrRevisionConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stored bool
			var persisted entity.OrderStatus
			repo := &mockOrderRepo{
				updateStatusFunc: func(ctx context.Context, id string, status entity.OrderStatus, rev int64) error {
					stored = true
					persisted = status
					if tt.updateFunc != nil {
						return tt.updateFunc(ctx, id, status, rev)
					}
					return nil
				},
			}

			svc := orders.NewService(repo)
			err := svc.SetStatus(context.Background(), "sess_123", tt.status, 1)

			if tt.wantErrIs != nil {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErrIs))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStored, stored)
			if tt.wantStored && tt.wantErrIs == nil {
				assert.Equal(t, tt.wantPersist, persisted)
			}
		})
	}
}

func TestService_SetStatus_NonexistentOrderChangesNothing(t *testing.T) {
	repo := &mockOrderRepo{
		updateStatusFunc: func(ctx context.Context, id string, status entity.OrderStatus, rev int64) error {
			return ports.ErrOrderNotFound
		},
	}
	svc := orders.NewService(repo)

	err := svc.SetStatus(context.Background(), "sess_missing", "completed", 0)
	assert.ErrorIs(t, err, ports.ErrOrderNotFound)
}

func TestService_Listings(t *testing.T) {
	var requested []entity.OrderStatus
	repo := &mockOrderRepo{
		listFunc: func(ctx context.Context, statuses ...entity.OrderStatus) ([]entity.Order, error) {
			requested = statuses
			return []entity.Order{{ID: "sess_1"}}, nil
		},
	}
	svc := orders.NewService(repo)

	_, err := svc.ListActive(context.Background())
	assert.NoError(t, err)
	assert.ElementsMatch(t,
		[]entity.OrderStatus{entity.StatusPending, entity.StatusCompleted, entity.StatusSuccess},
		requested)

	_, err = svc.ListArchived(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []entity.OrderStatus{entity.StatusArchived}, requested)
}
