// Package pricing derives order totals from line items.
//
// Order documents can carry missing or malformed price/quantity fields
// (legacy records, hand-edited documents). The calculator's contract is
// to never fail: a malformed item contributes nothing to the total and
// the anomaly is logged for operator visibility.
package pricing

import (
	"encoding/json"
	"log/slog"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
)

// Total computes the order total from line items.
//
// Effective price is the item price when numeric, else 0. Effective
// quantity is the item quantity when numeric, else 1. An item whose
// price or quantity is present but not numeric is skipped entirely and
// contributes 0. The result is always >= 0 and the call is pure.
func Total(items []entity.OrderItem) float64 {
	var total float64
	for _, it := range items {
		price, ok := numeric(it.Price, 0)
		if !ok {
			slog.Warn("skipping line item with non-numeric price",
				"title", it.Title, "price", it.Price)
			continue
		}
		quantity, ok := numeric(it.Quantity, 1)
		if !ok {
			slog.Warn("skipping line item with non-numeric quantity",
				"title", it.Title, "quantity", it.Quantity)
			continue
		}
		total += price * quantity
	}
	return total
}

// OrderTotal returns the order's stored total when present, else the
// total derived from its line items. This is the single source of truth
// for "what is this order worth": the document store uses it to backfill
// totals at load time and the finance aggregator uses it for revenue.
func OrderTotal(o *entity.Order) float64 {
	if o.TotalPrice != nil {
		return *o.TotalPrice
	}
	return Total(o.Items)
}

// numeric coerces a loosely typed document field to a float64. Absent
// fields (nil) take the default. Strings are not parsed: a price of
// "10" is malformed data, not ten pounds.
func numeric(v any, def float64) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return def, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
