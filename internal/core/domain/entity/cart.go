package entity

// CartItem is one line in a client's cart. Unlike OrderItem it is
// always well-formed: entries are validated on load and invalid ones
// discarded, so price and quantity are concrete numbers here.
type CartItem struct {
	BookID      string  `json:"bookId"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	ImageURL    string  `json:"image"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	IsFree      bool    `json:"isFree"`
	PDFURL      string  `json:"pdfUrl,omitempty"`
	CoverURL    string  `json:"coverUrl,omitempty"`
	InteriorURL string  `json:"interiorUrl,omitempty"`
}

// Cart holds a single client's pending purchases. All mutation goes
// through the methods below; persistence is the cart store's concern.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Add appends an item, merging quantities when the book is already in
// the cart.
func (c *Cart) Add(item CartItem) {
	for i := range c.Items {
		if c.Items[i].BookID == item.BookID {
			c.Items[i].Quantity += item.Quantity
			return
		}
	}
	c.Items = append(c.Items, item)
}

// UpdateQuantity sets the quantity for a book. A quantity of zero or
// less removes the line.
func (c *Cart) UpdateQuantity(bookID string, quantity int) {
	if quantity <= 0 {
		c.Remove(bookID)
		return
	}
	for i := range c.Items {
		if c.Items[i].BookID == bookID {
			c.Items[i].Quantity = quantity
			return
		}
	}
}

// Remove drops the line for a book if present.
func (c *Cart) Remove(bookID string) {
	for i := range c.Items {
		if c.Items[i].BookID == bookID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// Total is the sum of price × quantity over all lines.
func (c *Cart) Total() float64 {
	var total float64
	for _, it := range c.Items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}
