package fulfillment

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/inkpress/bookstore/internal/core/ports"
	"github.com/inkpress/bookstore/internal/fulfillment/flog"
	"github.com/inkpress/bookstore/internal/pricing"
)

// Coordinator turns a confirmed payment into a fulfilled order: it
// resolves the payment reference, then runs the fulfillment pipeline
// (record payment, submit the print job, email the confirmation).
type Coordinator struct {
	orders  ports.OrderRepository
	gateway ports.PaymentGateway
	printer ports.PrintService
	mailer  ports.Mailer
	log     flog.Repository
}

// NewCoordinator wires the fulfillment dependencies. log may be nil —
// in that case pipeline transitions are not persisted.
func NewCoordinator(
	orders ports.OrderRepository,
	gateway ports.PaymentGateway,
	printer ports.PrintService,
	mailer ports.Mailer,
	log flog.Repository,
) *Coordinator {
	return &Coordinator{orders: orders, gateway: gateway, printer: printer, mailer: mailer, log: log}
}

// Fulfill processes a checkout-completion notification for the given
// session. The session ID is also the order ID, so the pipeline log can
// be joined with business data and correlated with the OTel trace.
//
// Fulfillment runs detached from the webhook request, so it opens its
// own span here; the log rows below inherit its trace/span IDs.
func (c *Coordinator) Fulfill(ctx context.Context, sessionID string) (err error) {
	ctx, span := otel.Tracer("fulfillment").Start(ctx, "fulfillment.run")
	span.SetAttributes(attribute.String("order.id", sessionID))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	session, err := c.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("fulfillment: resolve session %s: %w", sessionID, err)
	}

	order, err := c.orders.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("fulfillment: load order %s: %w", sessionID, err)
	}

	// Older orders may lack an email; the provider always has one.
	if order.Email == "" {
		order.Email = session.CustomerEmail
	}

	steps := []Step{
		NewMarkPaidStep(c.orders, order.ID, session.PaymentRef),
		NewPrintStep(c.printer, order),
		NewConfirmationEmailStep(c.mailer, order, pricing.OrderTotal(order)),
	}

	pipeline := NewPipeline(order.ID, steps, c.log)
	if err := pipeline.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "fulfillment failed", "order_id", order.ID, "error", err)
		return err
	}
	return nil
}
