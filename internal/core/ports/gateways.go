package ports

import (
	"context"
	"io"
)

// CheckoutLineItem is one entry sent to the payment provider when a
// hosted checkout session is created. UnitAmount is in currency minor
// units (pence).
type CheckoutLineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Quantity    int64
}

// CheckoutSession is the provider's view of a checkout transaction.
type CheckoutSession struct {
	ID            string
	PaymentStatus string
	CustomerEmail string
	PaymentRef    string
}

// PaymentGateway is the boundary contract with the payment provider.
// Session IDs are opaque; nothing in this module interprets them.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, customerEmail string, items []CheckoutLineItem) (string, error)
	RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

// WebhookEvent is a verified provider notification. SessionID is only
// set for checkout-completion events.
type WebhookEvent struct {
	Type      string
	SessionID string
}

// WebhookVerifier authenticates inbound provider webhooks against their
// signature header. An invalid signature is an error, never an event.
type WebhookVerifier interface {
	VerifyEvent(payload []byte, signature string) (*WebhookEvent, error)
}

// Upload is a file handed to the blob store. Data is read exactly once.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Data        io.Reader
}

// BlobStore uploads named objects and returns publicly resolvable URLs.
// Objects are never deleted when their owning record is; past orders
// keep referencing them.
type BlobStore interface {
	Put(ctx context.Context, objectName string, upload Upload) (string, error)
}

// Mailer sends outbound mail. Delivery is fire-and-forget; no
// confirmation is tracked.
type Mailer interface {
	SendPDFLink(ctx context.Context, to, bookTitle, author, pdfURL string) error
	SendOrderConfirmation(ctx context.Context, to, orderID string, total float64) error
}

// PrintItem is one physical book within a print job.
type PrintItem struct {
	Quantity    int
	CoverURL    string
	InteriorURL string
}

// PrintJob is what the print-on-demand provider needs to produce and
// ship an order.
type PrintJob struct {
	OrderID    string
	Email      string
	Name       string
	Address    string
	City       string
	PostalCode string
	Country    string
	Items      []PrintItem
}

// PrintService submits print jobs to the print-on-demand provider and
// returns the provider's job identifier. Jobs can be cancelled until
// the provider starts production.
type PrintService interface {
	SubmitJob(ctx context.Context, job PrintJob) (string, error)
	CancelJob(ctx context.Context, jobID string) error
}
