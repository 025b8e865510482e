package fulfillment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
	"github.com/inkpress/bookstore/internal/fulfillment"
	"github.com/inkpress/bookstore/internal/fulfillment/flog"
)

type fakeOrderRepo struct {
	orders map[string]*entity.Order
	paid   map[string]string
}

func newFakeOrderRepo(orders ...*entity.Order) *fakeOrderRepo {
	r := &fakeOrderRepo{orders: map[string]*entity.Order{}, paid: map[string]string{}}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeOrderRepo) Create(_ context.Context, o *entity.Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) UpdateStatus(context.Context, string, entity.OrderStatus, int64) error {
	return nil
}

func (r *fakeOrderRepo) MarkPaid(_ context.Context, id, paymentRef string) error {
	o, ok := r.orders[id]
	if !ok {
		return ports.ErrOrderNotFound
	}
	o.Status = entity.StatusSuccess
	o.PaymentRef = paymentRef
	r.paid[id] = paymentRef
	return nil
}

func (r *fakeOrderRepo) ListByStatus(context.Context, ...entity.OrderStatus) ([]entity.Order, error) {
	return nil, nil
}

type fakeGateway struct {
	session *ports.CheckoutSession
}

func (g *fakeGateway) CreateCheckoutSession(context.Context, string, []ports.CheckoutLineItem) (string, error) {
	return "", errors.New("not used")
}

func (g *fakeGateway) RetrieveSession(context.Context, string) (*ports.CheckoutSession, error) {
	return g.session, nil
}

type fakePrinter struct {
	jobs      []ports.PrintJob
	cancelled []string
	submitErr error
}

func (p *fakePrinter) SubmitJob(_ context.Context, job ports.PrintJob) (string, error) {
	if p.submitErr != nil {
		return "", p.submitErr
	}
	p.jobs = append(p.jobs, job)
	return "job-1", nil
}

func (p *fakePrinter) CancelJob(_ context.Context, jobID string) error {
	p.cancelled = append(p.cancelled, jobID)
	return nil
}

type fakeMailer struct {
	confirmations []string
	sendErr       error
}

func (m *fakeMailer) SendPDFLink(context.Context, string, string, string, string) error {
	return nil
}

func (m *fakeMailer) SendOrderConfirmation(_ context.Context, to, _ string, _ float64) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.confirmations = append(m.confirmations, to)
	return nil
}

func paidSession(ref string) *ports.CheckoutSession {
	return &ports.CheckoutSession{
		ID:            "cs_1",
		PaymentStatus: "paid",
		CustomerEmail: "fallback@example.com",
		PaymentRef:    ref,
	}
}

func TestFulfillRunsFullPipeline(t *testing.T) {
	total := 25.0
	repo := newFakeOrderRepo(&entity.Order{
		ID:         "cs_1",
		Email:      "reader@example.com",
		FirstName:  "A",
		LastName:   "Reader",
		Status:     entity.StatusPending,
		TotalPrice: &total,
		Items: []entity.OrderItem{
			{BookID: "b1", Title: "Echoes", Price: 10.0, Quantity: 2.0, CoverURL: "c", InteriorURL: "i"},
			{BookID: "b2", Title: "Drift", IsFree: true, PDFURL: "p"},
		},
	})
	printer := &fakePrinter{}
	mail := &fakeMailer{}
	log := &memLog{}

	c := fulfillment.NewCoordinator(repo, &fakeGateway{session: paidSession("pi_9")}, printer, mail, log)
	require.NoError(t, c.Fulfill(context.Background(), "cs_1"))

	assert.Equal(t, "pi_9", repo.paid["cs_1"])

	// The free PDF stays out of the print job.
	require.Len(t, printer.jobs, 1)
	require.Len(t, printer.jobs[0].Items, 1)
	assert.Equal(t, 2, printer.jobs[0].Items[0].Quantity)

	assert.Equal(t, []string{"reader@example.com"}, mail.confirmations)
	require.NotEmpty(t, log.entries)
	assert.Equal(t, flog.StatusCompleted, log.entries[len(log.entries)-1].Status)
}

func TestFulfillEmailFailureCancelsPrintJob(t *testing.T) {
	repo := newFakeOrderRepo(&entity.Order{
		ID:     "cs_1",
		Email:  "reader@example.com",
		Status: entity.StatusPending,
		Items:  []entity.OrderItem{{BookID: "b1", Price: 10.0, Quantity: 1.0, CoverURL: "c", InteriorURL: "i"}},
	})
	printer := &fakePrinter{}
	mail := &fakeMailer{sendErr: errors.New("mail provider down")}
	log := &memLog{}

	c := fulfillment.NewCoordinator(repo, &fakeGateway{session: paidSession("pi_9")}, printer, mail, log)
	err := c.Fulfill(context.Background(), "cs_1")
	require.Error(t, err)

	assert.Equal(t, []string{"job-1"}, printer.cancelled)
	// Payment stays recorded; money was captured by the provider.
	assert.Equal(t, "pi_9", repo.paid["cs_1"])
	assert.Equal(t, flog.StatusFailed, log.entries[len(log.entries)-1].Status)
}

func TestFulfillUnknownOrder(t *testing.T) {
	c := fulfillment.NewCoordinator(newFakeOrderRepo(), &fakeGateway{session: paidSession("pi_9")}, &fakePrinter{}, &fakeMailer{}, nil)
	err := c.Fulfill(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrOrderNotFound)
}

func TestFulfillStampsTraceIDsOnLogRows(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	repo := newFakeOrderRepo(&entity.Order{
		ID:     "cs_1",
		Email:  "reader@example.com",
		Status: entity.StatusPending,
		Items:  []entity.OrderItem{{BookID: "b1", IsFree: true}},
	})
	log := &memLog{}

	c := fulfillment.NewCoordinator(repo, &fakeGateway{session: paidSession("pi_9")}, &fakePrinter{}, &fakeMailer{}, log)
	require.NoError(t, c.Fulfill(context.Background(), "cs_1"))

	require.NotEmpty(t, log.entries)
	for _, e := range log.entries {
		assert.NotEmpty(t, e.TraceID, "entry %s must carry the run's trace id", e.Status)
		assert.NotEmpty(t, e.SpanID, "entry %s must carry the run's span id", e.Status)
	}
	// A run is one trace: every row joins to the same one.
	for _, e := range log.entries[1:] {
		assert.Equal(t, log.entries[0].TraceID, e.TraceID)
	}
}

func TestFulfillBacksFillsMissingEmailFromProvider(t *testing.T) {
	repo := newFakeOrderRepo(&entity.Order{
		ID:     "cs_1",
		Status: entity.StatusPending,
		Items:  []entity.OrderItem{{BookID: "b1", IsFree: true}},
	})
	mail := &fakeMailer{}

	c := fulfillment.NewCoordinator(repo, &fakeGateway{session: paidSession("pi_9")}, &fakePrinter{}, mail, nil)
	require.NoError(t, c.Fulfill(context.Background(), "cs_1"))

	assert.Equal(t, []string{"fallback@example.com"}, mail.confirmations)
}
