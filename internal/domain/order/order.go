package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/foxyglamour/storefront/internal/domain/catalog"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCOD   PaymentMethod = "cod"
	PaymentBkash PaymentMethod = "bkash"
	PaymentNagad PaymentMethod = "nagad"
)

// MobilePaymentDiscount is subtracted from orders paid with bKash or Nagad.
var MobilePaymentDiscount = decimal.NewFromInt(10)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentBkash, PaymentNagad:
		return true
	}
	return false
}

// IsMobile reports whether m is a mobile wallet payment.
func (m PaymentMethod) IsMobile() bool {
	return m == PaymentBkash || m == PaymentNagad
}

// Discount returns the fixed discount granted for the method.
func (m PaymentMethod) Discount() decimal.Decimal {
	if m.IsMobile() {
		return MobilePaymentDiscount
	}
	return decimal.Zero
}

func (m PaymentMethod) Label() string {
	switch m {
	case PaymentBkash:
		return "bKash"
	case PaymentNagad:
		return "Nagad"
	default:
		return "Cash on Delivery"
	}
}

// ShippingZone determines the flat shipping cost.
type ShippingZone string

const (
	ZoneInsideDhaka    ShippingZone = "inside_dhaka"
	ZoneIntercityDhaka ShippingZone = "intercity_dhaka"
	ZoneOutsideDhaka   ShippingZone = "outside_dhaka"
)

var zoneCosts = map[ShippingZone]decimal.Decimal{
	ZoneInsideDhaka:    decimal.NewFromInt(80),
	ZoneIntercityDhaka: decimal.NewFromInt(120),
	ZoneOutsideDhaka:   decimal.NewFromInt(150),
}

// Valid reports whether z is a known zone.
func (z ShippingZone) Valid() bool {
	_, ok := zoneCosts[z]
	return ok
}

// Cost returns the shipping cost for the zone, zero for unknown zones.
func (z ShippingZone) Cost() decimal.Decimal {
	if c, ok := zoneCosts[z]; ok {
		return c
	}
	return decimal.Zero
}

func (z ShippingZone) Label() string {
	switch z {
	case ZoneInsideDhaka:
		return "Inside Dhaka"
	case ZoneIntercityDhaka:
		return "Intercity Dhaka"
	case ZoneOutsideDhaka:
		return "Outside Dhaka"
	default:
		return string(z)
	}
}

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Courier holds parcel tracking state.
type Courier struct {
	ConsignmentID string
	Status        string
	CityID        *int
	ZoneID        *int
	AreaID        *int
	Sent          bool
}

// Order is a placed checkout.
type Order struct {
	ID            int64
	UserID        *int64
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Address       string
	PostalCode    string
	City          string
	ShippingZone  ShippingZone
	PaymentMethod PaymentMethod
	PaymentNumber string
	TransactionID string

	PaymentDiscount decimal.Decimal
	ShippingCost    decimal.Decimal

	Status  Status
	Paid    bool
	Courier Courier
	Items   []Item
	Created time.Time
	Updated time.Time
}

// Item is an order line. Price and CostPrice are captured at checkout.
type Item struct {
	ID          int64
	ProductID   int64
	ProductName string
	VariantID   *int64
	Size        string
	Color       string
	Price       decimal.Decimal
	CostPrice   *decimal.Decimal
	Quantity    int
}

// Cost returns price times quantity.
func (i Item) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// FullName joins first and last name.
func (o *Order) FullName() string {
	if o.LastName == "" {
		return o.FirstName
	}
	return o.FirstName + " " + o.LastName
}

// Subtotal sums line costs.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Cost())
	}
	return sum
}

// Total is subtotal plus shipping minus the payment discount.
func (o *Order) Total() decimal.Decimal {
	return o.Subtotal().Add(o.ShippingCost).Sub(o.PaymentDiscount)
}

// ItemCount sums line quantities.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// ListFilter narrows admin order listings.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// Tx is the transactional view of the order store used by checkout and
// status changes. Lock methods take row locks held until commit.
type Tx interface {
	LockProducts(ctx context.Context, ids []int64) ([]catalog.Product, error)
	LockVariants(ctx context.Context, productIDs []int64) ([]catalog.Variant, error)
	// DecrementProductStock reports false when stock is below qty.
	DecrementProductStock(ctx context.Context, productID int64, qty int) (bool, error)
	// DecrementVariantStock reports false when stock is below qty or the
	// variant no longer exists.
	DecrementVariantStock(ctx context.Context, variantID int64, qty int) (bool, error)
	IncrementProductStock(ctx context.Context, productID int64, qty int) error
	// IncrementVariantStock reports false when the variant no longer exists.
	IncrementVariantStock(ctx context.Context, variantID int64, qty int) (bool, error)
	// Insert stores the order and its items, filling generated ids and timestamps.
	Insert(ctx context.Context, o *Order) error
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	SetStatus(ctx context.Context, id int64, status Status, paid bool) error
}

// Repository defines persistence operations for orders.
type Repository interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
}
