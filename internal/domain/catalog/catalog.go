package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested catalog record does not exist.
var ErrNotFound = errors.New("not found")

// AdjustableSize is the size code forced onto adjustable products.
const AdjustableSize = "Adjustable"

// Category groups products. Top-level categories have no parent.
type Category struct {
	ID       int64
	ParentID *int64
	Name     string
	Slug     string
}

// Size is a named ring/bangle size referenced by its code.
type Size struct {
	ID   int64
	Name string
	Code string
}

// Color is a named product color referenced by its code.
type Color struct {
	ID   int64
	Name string
	Code string
	Hex  string
}

// Product is a sellable catalog item.
type Product struct {
	ID          int64
	CategoryID  int64
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	CostPrice   decimal.Decimal
	Stock       int

	// DiscountPercentage takes priority over DiscountAmount when both are set.
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal

	IsAvailable  bool
	MetalType    string
	Gemstone     string
	WeightGrams  *decimal.Decimal
	IsAdjustable bool
	Image        string

	SizeCodes  []string
	ColorCodes []string

	Created time.Time
	Updated time.Time
}

// HasSize reports whether the size code is offered for the product.
func (p *Product) HasSize(code string) bool {
	return contains(p.SizeCodes, code)
}

// HasColor reports whether the color code is offered for the product.
func (p *Product) HasColor(code string) bool {
	return contains(p.ColorCodes, code)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Variant is a size/color combination of a product with its own stock.
// Empty codes leave that attribute unconstrained.
type Variant struct {
	ID        int64
	ProductID int64
	SizeCode  string
	ColorCode string
	Stock     int
}

// Filter narrows product listings.
type Filter struct {
	CategorySlug string
	Query        string
	// IncludeUnavailable lists products regardless of their availability flag.
	IncludeUnavailable bool
	Limit              int
	Offset             int
}

// Repository provides read and stock-maintenance access to the catalog.
type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	ListProducts(ctx context.Context, f Filter) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]Product, error)
	ListVariants(ctx context.Context, productIDs []int64) ([]Variant, error)
	SizesByCodes(ctx context.Context, codes []string) ([]Size, error)
	ColorsByCodes(ctx context.Context, codes []string) ([]Color, error)
	SetStock(ctx context.Context, productID int64, stock int) error
	UpsertVariant(ctx context.Context, v Variant) (*Variant, error)
}
