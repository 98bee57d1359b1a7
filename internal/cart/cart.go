// Package cart holds the per-session shopping cart: an ordered list of distinct
// products, each with quantity one.
package cart

import (
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

// Entry is a product in the cart. Quantity is always 1; adding the same product
// twice is reported as a duplicate instead of bumping the count.
type Entry struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// AddResult tells the caller whether Add changed the cart.
type AddResult int

const (
	Added AddResult = iota
	Duplicate
)

func (r AddResult) String() string {
	if r == Duplicate {
		return "duplicate"
	}
	return "added"
}

// Cart keeps entries in insertion order. It is not safe for concurrent use; the
// owning session serializes access.
type Cart struct {
	entries []Entry
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add appends p unless an entry with the same id is already present.
func (c *Cart) Add(p catalog.Product) AddResult {
	if c.Contains(p.ID) {
		return Duplicate
	}
	c.entries = append(c.entries, Entry{Product: p, Quantity: 1})
	return Added
}

// Remove drops the entry with the given id and reports whether one was found.
func (c *Cart) Remove(id int) bool {
	for i := range c.entries {
		if c.entries[i].ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cart) Contains(id int) bool {
	for i := range c.entries {
		if c.entries[i].ID == id {
			return true
		}
	}
	return false
}

// Entries returns a copy of the entries in insertion order.
func (c *Cart) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Count is the number of distinct products in the cart.
func (c *Cart) Count() int {
	return len(c.entries)
}

// Total sums price times quantity over all entries. Exact decimal arithmetic keeps
// 9.99 + 5.00 at 14.99.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.entries {
		total = total.Add(e.Price.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	return total
}
