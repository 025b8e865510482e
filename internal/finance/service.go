package finance

import (
	"context"
	"fmt"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
)

var _ ports.FinanceService = (*Service)(nil)

// Service implements ports.FinanceService by fetching the current
// catalog and order snapshot, then handing them to the aggregator.
type Service struct {
	agg    *Aggregator
	books  ports.BookRepository
	orders ports.OrderRepository
}

func NewService(agg *Aggregator, books ports.BookRepository, orders ports.OrderRepository) *Service {
	return &Service{agg: agg, books: books, orders: orders}
}

func (s *Service) Report(ctx context.Context) (*entity.FinanceReport, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("finance: list books: %w", err)
	}
	active, err := s.orders.ListByStatus(ctx, entity.ActiveStatuses...)
	if err != nil {
		return nil, fmt.Errorf("finance: list active orders: %w", err)
	}
	archived, err := s.orders.ListByStatus(ctx, entity.StatusArchived)
	if err != nil {
		return nil, fmt.Errorf("finance: list archived orders: %w", err)
	}
	return s.agg.Summarize(books, active, archived), nil
}

func (s *Service) SetTaxRate(rate float64) error {
	return s.agg.SetTaxRate(rate)
}

func (s *Service) TaxRate() float64 {
	return s.agg.TaxRate()
}
