package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/foxyglamour/storefront/internal/domain/catalog"
)

// Sentinel errors for cart mutations.
var (
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidQuantity    = errors.New("quantity must be greater than 0")
	ErrInvalidSize        = errors.New("size is not offered for this product")
	ErrInvalidColor       = errors.New("color is not offered for this product")
)

// StockError indicates the requested quantity exceeds the stock pool the
// line draws from.
type StockError struct {
	ProductID int64
	Available int
	InCart    int
	Override  bool
}

func (e *StockError) Error() string {
	if e.Override {
		return fmt.Sprintf("cannot set that amount: only %d items are available in total", e.Available)
	}
	return fmt.Sprintf("only %d items are available, you already have %d in your cart", e.Available, e.InCart)
}

// Catalog is the subset of catalog.Repository the cart needs.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*catalog.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error)
	ListVariants(ctx context.Context, productIDs []int64) ([]catalog.Variant, error)
	SizesByCodes(ctx context.Context, codes []string) ([]catalog.Size, error)
	ColorsByCodes(ctx context.Context, codes []string) ([]catalog.Color, error)
}

// AddRequest describes one add-to-cart submission. With Override set the
// quantity replaces the line's quantity, and zero removes it.
type AddRequest struct {
	ProductID int64
	Quantity  int
	Size      string
	Color     string
	Override  bool
}

// Item is a cart line resolved against the current catalog.
type Item struct {
	Key       Key
	Product   catalog.Product
	Quantity  int
	SizeName  string
	ColorName string
	// UnitPrice is the product's current net price.
	UnitPrice decimal.Decimal
	// SnapshotPrice is the net price when the line was first added.
	SnapshotPrice decimal.Decimal
	Total         decimal.Decimal
	PriceChanged  bool
}

// View is the rendered cart.
type View struct {
	Items    []Item
	Count    int
	Subtotal decimal.Decimal
}

// Service applies catalog rules to session carts.
type Service struct {
	catalog Catalog
}

// NewService creates a cart Service.
func NewService(c Catalog) *Service {
	return &Service{catalog: c}
}

// Add validates the request against the product and its stock pool, then
// updates the cart. It returns the affected key.
func (s *Service) Add(ctx context.Context, c *Cart, req AddRequest) (Key, error) {
	if req.Quantity < 0 || (req.Quantity == 0 && !req.Override) {
		return Key{}, ErrInvalidQuantity
	}

	if req.Size != "" && !ValidCode(req.Size) {
		return Key{}, ErrInvalidSize
	}
	if req.Color != "" && !ValidCode(req.Color) {
		return Key{}, ErrInvalidColor
	}

	p, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return Key{}, errors.Wrap(err, "get product")
	}
	if !p.IsAvailable {
		return Key{}, ErrProductUnavailable
	}

	size := req.Size
	if p.IsAdjustable {
		size = catalog.AdjustableSize
	} else if size != "" && !p.HasSize(size) {
		return Key{}, ErrInvalidSize
	}
	if req.Color != "" && !p.HasColor(req.Color) {
		return Key{}, ErrInvalidColor
	}

	key := Key{ProductID: p.ID, Size: size, Color: req.Color}
	if req.Override && req.Quantity == 0 {
		c.Remove(key)
		return key, nil
	}

	variants, err := s.catalog.ListVariants(ctx, []int64{p.ID})
	if err != nil {
		return Key{}, errors.Wrap(err, "list variants")
	}
	target := catalog.ResolveVariant(variants, key.Size, key.Color)
	bucket := catalog.BucketFor(p.ID, target)

	// Lines of the same product may share one variant's stock.
	inBucket := 0
	for _, e := range c.Entries() {
		if e.Key.ProductID != p.ID {
			continue
		}
		v := catalog.ResolveVariant(variants, e.Key.Size, e.Key.Color)
		if catalog.BucketFor(p.ID, v) == bucket {
			inBucket += e.Line.Quantity
		}
	}

	held := inBucket
	if req.Override {
		if l, ok := c.Get(key); ok {
			held -= l.Quantity
		}
	}
	// Compare against the remainder so huge quantities cannot overflow.
	if limit := catalog.StockLimit(p, target); req.Quantity > limit-held {
		return key, &StockError{
			ProductID: p.ID,
			Available: limit,
			InCart:    inBucket,
			Override:  req.Override,
		}
	}

	c.Add(key, req.Quantity, p.NetPrice(), req.Override)
	return key, nil
}

// Remove deletes the line by its string key. Unknown keys are ignored.
func (s *Service) Remove(c *Cart, rawKey string) error {
	k, err := ParseKey(rawKey)
	if err != nil {
		return err
	}
	c.Remove(k)
	return nil
}

// View resolves every line against current products. Lines whose product no
// longer exists are skipped; prices are the live net prices.
func (s *Service) View(ctx context.Context, c *Cart) (*View, error) {
	v := &View{Subtotal: decimal.Zero}
	if c.IsEmpty() {
		return v, nil
	}

	products, err := s.catalog.GetProductsByIDs(ctx, c.ProductIDs())
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[int64]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var sizeCodes, colorCodes []string
	for _, k := range c.Keys() {
		if k.Size != "" {
			sizeCodes = append(sizeCodes, k.Size)
		}
		if k.Color != "" {
			colorCodes = append(colorCodes, k.Color)
		}
	}
	sizeNames, err := s.sizeNames(ctx, sizeCodes)
	if err != nil {
		return nil, err
	}
	colorNames, err := s.colorNames(ctx, colorCodes)
	if err != nil {
		return nil, err
	}

	for _, e := range c.Entries() {
		p, ok := byID[e.Key.ProductID]
		if !ok {
			continue
		}
		unit := p.NetPrice()
		item := Item{
			Key:           e.Key,
			Product:       p,
			Quantity:      e.Line.Quantity,
			SizeName:      nameOr(sizeNames, e.Key.Size),
			ColorName:     nameOr(colorNames, e.Key.Color),
			UnitPrice:     unit,
			SnapshotPrice: e.Line.Price,
			Total:         unit.Mul(decimal.NewFromInt(int64(e.Line.Quantity))),
			PriceChanged:  !unit.Equal(e.Line.Price),
		}
		v.Items = append(v.Items, item)
		v.Count += item.Quantity
		v.Subtotal = v.Subtotal.Add(item.Total)
	}
	return v, nil
}

func (s *Service) sizeNames(ctx context.Context, codes []string) (map[string]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	sizes, err := s.catalog.SizesByCodes(ctx, codes)
	if err != nil {
		return nil, errors.Wrap(err, "get sizes")
	}
	out := make(map[string]string, len(sizes))
	for _, sz := range sizes {
		out[sz.Code] = sz.Name
	}
	return out, nil
}

func (s *Service) colorNames(ctx context.Context, codes []string) (map[string]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	colors, err := s.catalog.ColorsByCodes(ctx, codes)
	if err != nil {
		return nil, errors.Wrap(err, "get colors")
	}
	out := make(map[string]string, len(colors))
	for _, c := range colors {
		out[c.Code] = c.Name
	}
	return out, nil
}

// nameOr falls back to the code itself, which covers the Adjustable size.
func nameOr(names map[string]string, code string) string {
	if n, ok := names[code]; ok {
		return n
	}
	return code
}
