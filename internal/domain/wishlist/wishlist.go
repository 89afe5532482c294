// Package wishlist keeps a session-scoped list of saved products.
package wishlist

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/foxyglamour/storefront/internal/domain/catalog"
)

// List is an insertion-ordered set of product ids.
type List struct {
	ids []int64
}

// Contains reports whether id is saved.
func (l *List) Contains(id int64) bool {
	for _, v := range l.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id unless present and reports whether it was added.
func (l *List) Add(id int64) bool {
	if l.Contains(id) {
		return false
	}
	l.ids = append(l.ids, id)
	return true
}

// Remove deletes id and reports whether it was present.
func (l *List) Remove(id int64) bool {
	for i, v := range l.ids {
		if v == id {
			l.ids = append(l.ids[:i], l.ids[i+1:]...)
			return true
		}
	}
	return false
}

// IDs returns a copy of the saved ids in insertion order.
func (l *List) IDs() []int64 {
	return append([]int64(nil), l.ids...)
}

// Len returns the number of saved products.
func (l *List) Len() int {
	return len(l.ids)
}

// Encode serializes the list as a JSON array.
func (l *List) Encode() []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, id := range l.ids {
		e.Int64(id)
	}
	e.ArrEnd()
	return e.Bytes()
}

// Decode restores a list from Encode output.
func Decode(data []byte) (*List, error) {
	l := &List{}
	if len(data) == 0 {
		return l, nil
	}
	if err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		id, err := d.Int64()
		if err != nil {
			return err
		}
		l.Add(id)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode wishlist")
	}
	return l, nil
}

// Catalog is the product lookup the wishlist needs.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*catalog.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error)
}

// Service resolves wishlists against the catalog.
type Service struct {
	catalog Catalog
}

// NewService creates a wishlist Service.
func NewService(c Catalog) *Service {
	return &Service{catalog: c}
}

// Add saves an existing product.
func (s *Service) Add(ctx context.Context, l *List, productID int64) error {
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return errors.Wrap(err, "get product")
	}
	l.Add(productID)
	return nil
}

// Products returns the saved products that still exist and are available,
// in the order they were saved.
func (s *Service) Products(ctx context.Context, l *List) ([]catalog.Product, error) {
	if l.Len() == 0 {
		return nil, nil
	}
	products, err := s.catalog.GetProductsByIDs(ctx, l.IDs())
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[int64]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	out := make([]catalog.Product, 0, len(products))
	for _, id := range l.ids {
		if p, ok := byID[id]; ok && p.IsAvailable {
			out = append(out, p)
		}
	}
	return out, nil
}
