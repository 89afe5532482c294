package cart

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Line is one cart entry. Price is the unit net price captured when the line
// was first added.
type Line struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
	Size      string
	Color     string
}

// Entry pairs a key with its line.
type Entry struct {
	Key  Key
	Line Line
}

// Cart is a session-scoped mapping from item key to line. The zero value is
// not usable; call New or Decode.
type Cart struct {
	lines map[Key]Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{lines: make(map[Key]Line)}
}

// Add creates the line if missing, then either increments its quantity or
// replaces it when override is set. A line whose quantity drops to zero or
// below is removed.
func (c *Cart) Add(k Key, quantity int, price decimal.Decimal, override bool) {
	l, ok := c.lines[k]
	if !ok {
		l = Line{
			ProductID: k.ProductID,
			Price:     price,
			Size:      k.Size,
			Color:     k.Color,
		}
	}
	if override {
		l.Quantity = quantity
	} else {
		l.Quantity += quantity
	}
	if l.Quantity <= 0 {
		delete(c.lines, k)
		return
	}
	c.lines[k] = l
}

// Get returns the line stored under k.
func (c *Cart) Get(k Key) (Line, bool) {
	l, ok := c.lines[k]
	return l, ok
}

// Remove deletes the line stored under k and reports whether it existed.
func (c *Cart) Remove(k Key) bool {
	if _, ok := c.lines[k]; !ok {
		return false
	}
	delete(c.lines, k)
	return true
}

// Len returns the total quantity across all lines.
func (c *Cart) Len() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Total sums snapshot price times quantity.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.lines = make(map[Key]Line)
}

// Keys returns line keys ordered by product id, size, then color.
func (c *Cart) Keys() []Key {
	keys := make([]Key, 0, len(c.lines))
	for k := range c.lines {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.Size != b.Size {
			return a.Size < b.Size
		}
		return a.Color < b.Color
	})
	return keys
}

// Entries returns all lines in Keys order.
func (c *Cart) Entries() []Entry {
	keys := c.Keys()
	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = Entry{Key: k, Line: c.lines[k]}
	}
	return out
}

// ProductIDs returns the distinct product ids in the cart.
func (c *Cart) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(c.lines))
	var ids []int64
	for _, k := range c.Keys() {
		if _, ok := seen[k.ProductID]; ok {
			continue
		}
		seen[k.ProductID] = struct{}{}
		ids = append(ids, k.ProductID)
	}
	return ids
}
