// Package checkout turns a validated cart into a hosted payment session
// and a persisted pending order.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
	"github.com/inkpress/bookstore/internal/pricing"
)

// InvalidItemError reports which line item failed validation. The whole
// checkout request fails atomically: no session is created and no order
// is persisted.
type InvalidItemError struct {
	Index  int
	Reason string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid line item at index %d: %s", e.Index, e.Reason)
}

var _ ports.CheckoutService = (*Service)(nil)

// Service implements ports.CheckoutService.
type Service struct {
	gateway ports.PaymentGateway
	orders  ports.OrderRepository
}

func NewService(gateway ports.PaymentGateway, orders ports.OrderRepository) *Service {
	return &Service{gateway: gateway, orders: orders}
}

// CreateSession validates the request, obtains a checkout session from
// the payment provider, and persists the order in pending status under
// the session ID — before the session is returned to the caller, so the
// later confirmation callback has a record to update.
func (s *Service) CreateSession(ctx context.Context, req ports.CheckoutRequest) (string, error) {
	lineItems, err := buildLineItems(req.Items)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Email) == "" {
		return "", fmt.Errorf("checkout: buyer email is required")
	}

	sessionID, err := s.gateway.CreateCheckoutSession(ctx, req.Email, lineItems)
	if err != nil {
		return "", fmt.Errorf("checkout: create payment session: %w", err)
	}

	now := time.Now().UTC()
	total := pricing.Total(req.Items)
	order := &entity.Order{
		ID:         sessionID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Status:     entity.StatusPending,
		Items:      req.Items,
		TotalPrice: &total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return "", fmt.Errorf("checkout: persist pending order %s: %w", sessionID, err)
	}

	slog.InfoContext(ctx, "checkout session created",
		"session_id", sessionID, "email", req.Email, "total", total)
	return sessionID, nil
}

// ConfirmPayment retrieves the provider session and marks the order as
// paid. Re-confirming an already-successful order re-writes the same
// status. A missing order surfaces as ports.ErrOrderNotFound with no
// change made.
func (s *Service) ConfirmPayment(ctx context.Context, sessionID string) (*ports.PaymentConfirmation, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("checkout: session id is required")
	}

	sess, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("checkout: retrieve session %s: %w", sessionID, err)
	}

	if err := s.orders.MarkPaid(ctx, sessionID, sess.PaymentRef); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "payment confirmed",
		"session_id", sessionID, "payment_ref", sess.PaymentRef)
	return &ports.PaymentConfirmation{
		Email:      sess.CustomerEmail,
		PaymentRef: sess.PaymentRef,
	}, nil
}

// buildLineItems validates every item before anything is sent to the
// provider. Prices must be parseable positive numbers and quantities
// whole numbers >= 1; the first violation aborts the whole request.
func buildLineItems(items []entity.OrderItem) ([]ports.CheckoutLineItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("checkout: at least one line item is required")
	}

	out := make([]ports.CheckoutLineItem, 0, len(items))
	for i, it := range items {
		price, ok := itemNumber(it.Price)
		if !ok || price <= 0 {
			return nil, &InvalidItemError{Index: i, Reason: fmt.Sprintf("price %v is not a positive number", it.Price)}
		}
		qty, ok := itemNumber(it.Quantity)
		if !ok || qty < 1 || qty != math.Trunc(qty) {
			return nil, &InvalidItemError{Index: i, Reason: fmt.Sprintf("quantity %v is not a whole number >= 1", it.Quantity)}
		}
		out = append(out, ports.CheckoutLineItem{
			Name:        it.Title,
			Description: it.Author,
			ImageURL:    it.CoverURL,
			UnitAmount:  int64(math.Round(price * 100)),
			Quantity:    int64(qty),
		})
	}
	return out, nil
}

func itemNumber(v any) (float64, bool) {
	switch n := v.(type) {
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
