// Package mailer sends transactional email through Resend.
package mailer

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v2"

	"github.com/inkpress/bookstore/internal/core/ports"
)

var _ ports.Mailer = (*ResendMailer)(nil)

// ResendMailer implements ports.Mailer with the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// New builds a mailer. from must be a verified sender address, e.g.
// "Inkpress <books@inkpress.example>".
func New(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

// SendPDFLink delivers the download link for a free title.
func (m *ResendMailer) SendPDFLink(ctx context.Context, to, bookTitle, author, pdfURL string) error {
	body := fmt.Sprintf(`
		<h2>Your copy of %s</h2>
		<p>Thanks for your interest in <strong>%s</strong> by %s.</p>
		<p><a href="%s">Download your PDF</a></p>
		<p>Happy reading!</p>`,
		html.EscapeString(bookTitle),
		html.EscapeString(bookTitle),
		html.EscapeString(author),
		pdfURL,
	)

	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: fmt.Sprintf("Your free copy of %s", bookTitle),
		Html:    body,
	})
	if err != nil {
		return fmt.Errorf("mailer: send pdf link to %s: %w", to, err)
	}
	return nil
}

// SendOrderConfirmation acknowledges a successful payment.
func (m *ResendMailer) SendOrderConfirmation(ctx context.Context, to, orderID string, total float64) error {
	body := fmt.Sprintf(`
		<h2>Order confirmed</h2>
		<p>We've received your payment of <strong>&pound;%.2f</strong>.</p>
		<p>Your order reference is <code>%s</code>. We'll email you again once
		your books are on their way.</p>`,
		total,
		html.EscapeString(orderID),
	)

	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "Your order is confirmed",
		Html:    body,
	})
	if err != nil {
		return fmt.Errorf("mailer: send confirmation to %s: %w", to, err)
	}
	return nil
}
