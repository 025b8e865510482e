package httpx

import (
	"encoding/json"
	"time"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
)

type SendPDFRequest struct {
	Email string `json:"email"`
}

type AddCartItemRequest struct {
	BookID   string `json:"bookId"`
	Quantity int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutSessionRequest struct {
	Email      string             `json:"email"`
	FirstName  string             `json:"firstName"`
	LastName   string             `json:"lastName"`
	Address    string             `json:"address"`
	City       string             `json:"city"`
	PostalCode string             `json:"postalCode"`
	Country    string             `json:"country"`
	Items      []entity.OrderItem `json:"items"`
}

type CheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type ConfirmPaymentRequest struct {
	SessionID string `json:"sessionId"`
}

type ConfirmPaymentResponse struct {
	Email      string `json:"email"`
	PaymentRef string `json:"paymentRef"`
}

type UpdateOrderStatusRequest struct {
	Status   string `json:"status"`
	Revision int64  `json:"revision"`
}

type SetTaxRateRequest struct {
	TaxRate float64 `json:"taxRate"`
}

type CartResponse struct {
	Items []entity.CartItem `json:"items"`
	Total float64           `json:"total"`
}

type FulfillmentStatusResponse struct {
	OrderID       string          `json:"orderId"`
	Status        string          `json:"status"`
	CurrentStep   string          `json:"currentStep,omitempty"`
	ErrorMessages json.RawMessage `json:"errorMessages"`
	TraceID       string          `json:"traceId,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapCartToResponse(c *entity.Cart) CartResponse {
	items := c.Items
	if items == nil {
		items = []entity.CartItem{}
	}
	return CartResponse{Items: items, Total: c.Total()}
}
