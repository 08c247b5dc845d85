package domain

import "time"

// CartStatus is the lifecycle state of a cart. Only StatusActive is set by
// this service; abandonment and conversion are CMS-side processes.
type CartStatus string

const (
	StatusActive    CartStatus = "active"
	StatusAbandoned CartStatus = "abandoned"
	StatusConverted CartStatus = "converted"
)

// Cart represents a visitor's shopping cart. For authenticated visitors the
// authoritative copy lives in the CMS and this is a cache; for guests the
// locally persisted copy is authoritative.
type Cart struct {
	// ID is the CMS cart id. 0 means no server-side cart exists yet (guest cart).
	ID           int64      `json:"id"`
	Items        []CartItem `json:"items"`
	TotalAmount  int64      `json:"total_amount"`
	Currency     string     `json:"currency"`
	Status       CartStatus `json:"status"`
	LastModified time.Time  `json:"last_modified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CartItem represents a single line item. Name, slug, price, and image are
// denormalized from the product at add-time and not re-validated against the
// catalog on read.
type CartItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Price     int64  `json:"price"`
	Currency  string `json:"currency"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

// NewGuestCart creates a fresh empty guest cart.
func NewGuestCart() *Cart {
	now := time.Now().UTC()
	return &Cart{
		ID:           0,
		Items:        []CartItem{},
		TotalAmount:  0,
		Currency:     "USD",
		Status:       StatusActive,
		LastModified: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Recalculate recomputes the cached TotalAmount from scratch. It must be
// called after every mutation of Items; TotalAmount is a cache, not a source
// of truth.
func (c *Cart) Recalculate() {
	var total int64
	for _, item := range c.Items {
		total += item.Price * int64(item.Quantity)
	}
	c.TotalAmount = total
}

// ItemCount returns the total number of units across all line items.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the line item for the given product ID,
// or -1 if the product is not in the cart.
func (c *Cart) FindItemIndex(productID int64) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Touch updates the modification timestamps.
func (c *Cart) Touch() {
	now := time.Now().UTC()
	c.LastModified = now
	c.UpdatedAt = now
}

// Clone returns a deep copy of the cart. Mutations are applied to a clone and
// committed only after persistence succeeds, so a failed operation never
// leaves a half-applied cart behind.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}
