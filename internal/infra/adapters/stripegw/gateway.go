// Package stripegw adapts Stripe hosted checkout to the payment ports.
package stripegw

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/inkpress/bookstore/internal/core/ports"
)

// EventCheckoutCompleted is the provider event that confirms payment.
const EventCheckoutCompleted = "checkout.session.completed"

var (
	_ ports.PaymentGateway  = (*Gateway)(nil)
	_ ports.WebhookVerifier = (*Gateway)(nil)
)

// Gateway implements ports.PaymentGateway and ports.WebhookVerifier on
// top of the Stripe API.
type Gateway struct {
	api           *client.API
	siteURL       string
	webhookSecret string
}

// New builds a Gateway. siteURL is the storefront origin used for the
// post-checkout redirect URLs.
func New(secretKey, webhookSecret, siteURL string) *Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Gateway{api: api, siteURL: siteURL, webhookSecret: webhookSecret}
}

// CreateCheckoutSession opens a hosted checkout session and returns its
// ID. The session ID becomes the order ID on our side.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, customerEmail string, items []ports.CheckoutLineItem) (string, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, item := range items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		if item.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{item.ImageURL})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyGBP)),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		CustomerEmail:      stripe.String(customerEmail),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"GB"}),
		},
		SuccessURL: stripe.String(g.siteURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(g.siteURL + "/checkout"),
	}
	params.Context = ctx

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripegw: create checkout session: %w", err)
	}
	return session.ID, nil
}

// RetrieveSession fetches a session with its payment intent expanded so
// the caller gets a durable payment reference.
func (g *Gateway) RetrieveSession(ctx context.Context, sessionID string) (*ports.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	session, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripegw: retrieve session %s: %w", sessionID, err)
	}

	out := &ports.CheckoutSession{
		ID:            session.ID,
		PaymentStatus: string(session.PaymentStatus),
		CustomerEmail: session.CustomerEmail,
	}
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		out.CustomerEmail = session.CustomerDetails.Email
	}
	if session.PaymentIntent != nil {
		out.PaymentRef = session.PaymentIntent.ID
	}
	return out, nil
}

// VerifyEvent authenticates a webhook payload against its Stripe-Signature
// header and extracts the session ID for checkout completions.
func (g *Gateway) VerifyEvent(payload []byte, signature string) (*ports.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripegw: verify webhook: %w", err)
	}

	out := &ports.WebhookEvent{Type: string(event.Type)}
	if out.Type == EventCheckoutCompleted {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("stripegw: decode checkout session: %w", err)
		}
		out.SessionID = session.ID
	}
	return out, nil
}
