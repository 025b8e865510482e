package entity

import "time"

// OrderStatus is the lifecycle state of an order. Exactly four values
// are valid; anything else must be rejected before it reaches storage.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusSuccess   OrderStatus = "success"
	StatusCompleted OrderStatus = "completed"
	StatusArchived  OrderStatus = "archived"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Valid reports whether s is one of the four known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// ActiveStatuses are the statuses shown in the active order listing.
// Archived orders are excluded from listings but still count towards
// financial totals.
var ActiveStatuses = []OrderStatus{StatusPending, StatusCompleted, StatusSuccess}

// DefaultPostageCost is applied when an order carries no postage cost.
const DefaultPostageCost = 5.00

// OrderItem is one book entry within an order. It is a snapshot taken
// at checkout time, independent of the live catalog.
//
// Price and Quantity are loosely typed on purpose: order documents
// written by earlier revisions of the store can carry missing or
// non-numeric values in these fields, and the pricing calculator's
// contract is to tolerate them rather than fail the whole document.
type OrderItem struct {
	BookID      string `json:"bookId,omitempty"`
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Price       any    `json:"price,omitempty"`
	Quantity    any    `json:"quantity,omitempty"`
	CoverURL    string `json:"coverUrl,omitempty"`
	InteriorURL string `json:"interiorUrl,omitempty"`
	PDFURL      string `json:"pdfUrl,omitempty"`
	IsFree      bool   `json:"isFree,omitempty"`
}

// Order is a checkout transaction. Its ID equals the payment provider's
// checkout-session identifier so the asynchronous confirmation callback
// can find the record it has to update.
type Order struct {
	ID          string      `json:"id"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email"`
	Address     string      `json:"address"`
	City        string      `json:"city"`
	PostalCode  string      `json:"postalCode"`
	Country     string      `json:"country"`
	Status      OrderStatus `json:"status"`
	Items       []OrderItem `json:"items"`
	TotalPrice  *float64    `json:"totalPrice,omitempty"`
	PostageCost *float64    `json:"postageCost,omitempty"`
	PaymentRef  string      `json:"paymentRef,omitempty"`

	// Revision is bumped on every write. Status transitions are
	// conditional on it so that two concurrent admin updates cannot
	// silently overwrite each other.
	Revision int64 `json:"revision"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Postage returns the order's postage cost, falling back to
// DefaultPostageCost when none was recorded.
func (o *Order) Postage() float64 {
	if o.PostageCost != nil {
		return *o.PostageCost
	}
	return DefaultPostageCost
}
