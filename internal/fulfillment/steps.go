package fulfillment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
)

// --- MarkPaidStep ---

// MarkPaidStep records the payment against the order.
type MarkPaidStep struct {
	orders     ports.OrderRepository
	orderID    string
	paymentRef string
}

func NewMarkPaidStep(orders ports.OrderRepository, orderID, paymentRef string) *MarkPaidStep {
	return &MarkPaidStep{orders: orders, orderID: orderID, paymentRef: paymentRef}
}

func (s *MarkPaidStep) Name() string { return "Mark_Order_Paid_Step" }

func (s *MarkPaidStep) Execute(ctx context.Context) error {
	if err := s.orders.MarkPaid(ctx, s.orderID, s.paymentRef); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	return nil
}

// Compensate intentionally leaves the order marked paid: the provider
// has captured the money, so un-marking it would misrepresent reality.
// The FAILED log row carries enough detail for manual reconciliation.
func (s *MarkPaidStep) Compensate(ctx context.Context) error {
	slog.WarnContext(ctx, "order stays marked paid after fulfillment failure; reconcile manually",
		"order_id", s.orderID, "payment_ref", s.paymentRef)
	return nil
}

// --- PrintStep ---

// PrintStep submits the physical portion of an order to the
// print-on-demand provider. Orders containing only free PDFs skip it.
type PrintStep struct {
	printer ports.PrintService
	order   *entity.Order
	jobID   string
}

func NewPrintStep(printer ports.PrintService, order *entity.Order) *PrintStep {
	return &PrintStep{printer: printer, order: order}
}

func (s *PrintStep) Name() string { return "Print_Job_Step" }

func (s *PrintStep) Execute(ctx context.Context) error {
	job := buildPrintJob(s.order)
	if len(job.Items) == 0 {
		slog.InfoContext(ctx, "no physical items, skipping print job", "order_id", s.order.ID)
		return nil
	}

	jobID, err := s.printer.SubmitJob(ctx, job)
	if err != nil {
		return fmt.Errorf("submit print job: %w", err)
	}
	s.jobID = jobID
	slog.InfoContext(ctx, "print job submitted", "order_id", s.order.ID, "job_id", jobID)
	return nil
}

func (s *PrintStep) Compensate(ctx context.Context) error {
	if s.jobID == "" {
		return nil
	}
	return s.printer.CancelJob(ctx, s.jobID)
}

// --- ConfirmationEmailStep ---

// ConfirmationEmailStep notifies the buyer. It runs last; there is
// nothing to undo once the mail has left.
type ConfirmationEmailStep struct {
	mailer ports.Mailer
	order  *entity.Order
	total  float64
}

func NewConfirmationEmailStep(mailer ports.Mailer, order *entity.Order, total float64) *ConfirmationEmailStep {
	return &ConfirmationEmailStep{mailer: mailer, order: order, total: total}
}

func (s *ConfirmationEmailStep) Name() string { return "Confirmation_Email_Step" }

func (s *ConfirmationEmailStep) Execute(ctx context.Context) error {
	if err := s.mailer.SendOrderConfirmation(ctx, s.order.Email, s.order.ID, s.total); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}

func (s *ConfirmationEmailStep) Compensate(ctx context.Context) error { return nil }

// buildPrintJob maps the order's physical line items onto the print
// provider's contract. Quantities fall back to 1 when the stored value
// is not numeric; malformed items are still printable by hand from the
// order record, so they are skipped rather than failing the job.
func buildPrintJob(o *entity.Order) ports.PrintJob {
	job := ports.PrintJob{
		OrderID:    o.ID,
		Email:      o.Email,
		Name:       o.FirstName + " " + o.LastName,
		Address:    o.Address,
		City:       o.City,
		PostalCode: o.PostalCode,
		Country:    o.Country,
	}
	for _, it := range o.Items {
		if it.IsFree {
			continue
		}
		qty := 1
		if f, ok := it.Quantity.(float64); ok && f >= 1 {
			qty = int(f)
		}
		job.Items = append(job.Items, ports.PrintItem{
			Quantity:    qty,
			CoverURL:    it.CoverURL,
			InteriorURL: it.InteriorURL,
		})
	}
	return job
}
