// Package finance computes sales, revenue, and tax rollups from the
// catalog and the full order history (active and archived).
//
// Aggregation is a full recompute over the input collections on every
// call. With a single-store inventory the volumes are small, so there is
// no caching or incremental maintenance to invalidate when an order
// changes status.
package finance

import (
	"errors"
	"fmt"
	"sync"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/pricing"
)

// ErrTaxRateOutOfRange is returned when a tax rate outside [0, 100] is
// submitted. The previously accepted rate stays in effect.
var ErrTaxRateOutOfRange = errors.New("tax rate must be between 0 and 100")

// Aggregator holds the configurable tax rate and produces reports.
type Aggregator struct {
	mu      sync.RWMutex
	taxRate float64
}

// NewAggregator creates an aggregator with the given initial tax rate
// in percent, clamped into [0, 100].
func NewAggregator(taxRate float64) *Aggregator {
	if taxRate < 0 {
		taxRate = 0
	}
	if taxRate > 100 {
		taxRate = 100
	}
	return &Aggregator{taxRate: taxRate}
}

// SetTaxRate replaces the tax rate. Out-of-range values are rejected
// and the prior rate is retained.
func (a *Aggregator) SetTaxRate(rate float64) error {
	if rate < 0 || rate > 100 {
		return fmt.Errorf("%w: got %v", ErrTaxRateOutOfRange, rate)
	}
	a.mu.Lock()
	a.taxRate = rate
	a.mu.Unlock()
	return nil
}

// TaxRate returns the current tax rate in percent.
func (a *Aggregator) TaxRate() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.taxRate
}

// Summarize builds the financial overview from the catalog and the
// active plus archived orders.
//
// An order is attributed to a book by its first line item: by the
// item's book ID when one is present, falling back to an exact title
// match for older orders that predate ID-carrying line items. Books
// sharing a title collapse into a single row — with title-only data the
// two are indistinguishable, a known limitation of the fallback.
// Orders whose first item matches no current catalog entry (for
// example, the book was deleted) appear in postage totals but not in
// per-book revenue.
func (a *Aggregator) Summarize(books []entity.Book, active, archived []entity.Order) *entity.FinanceReport {
	taxRate := a.TaxRate()

	rows := make([]*entity.BookSales, 0, len(books))
	byID := make(map[string]*entity.BookSales, len(books))
	byTitle := make(map[string]*entity.BookSales, len(books))

	for _, b := range books {
		row, ok := byTitle[b.Title]
		if !ok {
			row = &entity.BookSales{BookID: b.ID, BookTitle: b.Title}
			rows = append(rows, row)
			byTitle[b.Title] = row
		}
		byID[b.ID] = row
	}

	all := make([]entity.Order, 0, len(active)+len(archived))
	all = append(all, active...)
	all = append(all, archived...)

	var totalPostage float64
	for i := range all {
		o := &all[i]
		totalPostage += o.Postage()

		if len(o.Items) == 0 {
			continue
		}
		first := o.Items[0]

		var row *entity.BookSales
		if first.BookID != "" {
			row = byID[first.BookID]
		}
		if row == nil {
			row = byTitle[first.Title]
		}
		if row == nil {
			continue
		}

		row.UnitsSold++
		row.Revenue += pricing.OrderTotal(o)
	}

	report := &entity.FinanceReport{
		Sales:        make([]entity.BookSales, 0, len(rows)),
		TotalPostage: totalPostage,
		TaxRate:      taxRate,
	}
	for _, row := range rows {
		report.Sales = append(report.Sales, *row)
		report.TotalUnitsSold += row.UnitsSold
		report.TotalRevenue += row.Revenue
	}
	report.TotalTax = report.TotalRevenue * (taxRate / 100)
	report.NetRevenue = report.TotalRevenue - report.TotalTax

	return report
}
