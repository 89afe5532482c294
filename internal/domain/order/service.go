package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/foxyglamour/storefront/internal/domain/cart"
	"github.com/foxyglamour/storefront/internal/domain/catalog"
)

// Sentinel errors for order operations.
var (
	ErrNotFound         = errors.New("order not found")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrInvalidStatus    = errors.New("unknown order status")
	ErrCancelledIsFinal = errors.New("cancelled orders cannot change status")
)

// UnavailableError indicates a cart product vanished or was disabled
// before checkout.
type UnavailableError struct {
	ProductID int64
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("product %d is no longer available", e.ProductID)
}

// InsufficientStockError indicates checkout demand exceeds stock.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d of %q available, %d requested", e.Available, e.Name, e.Requested)
}

// Notifier announces newly placed orders.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order) error
}

// Dispatcher hands an order to the courier.
type Dispatcher interface {
	Send(ctx context.Context, orderID int64) error
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the notifier called after checkout.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithAutoDispatch sends every new order to the courier after checkout.
func WithAutoDispatch(d Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// Service encapsulates checkout and order administration.
type Service struct {
	orders     Repository
	notifier   Notifier
	dispatcher Dispatcher
}

// NewService creates an order Service.
func NewService(orders Repository, opts ...Option) *Service {
	s := &Service{orders: orders}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Checkout converts the cart into a persisted order. Stock is re-checked and
// decremented under row locks in the same transaction that inserts the
// order. The caller clears the cart on success.
func (s *Service) Checkout(ctx context.Context, c *cart.Cart, form CheckoutForm, userID *int64) (*Order, error) {
	if c == nil || c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	var placed *Order
	if err := s.orders.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := reserve(ctx, tx, c, form)
		if err != nil {
			return err
		}
		o.UserID = userID
		if err := tx.Insert(ctx, o); err != nil {
			return errors.Wrap(err, "insert order")
		}
		placed = o
		return nil
	}); err != nil {
		return nil, err
	}

	lg := zctx.From(ctx).With(zap.Int64("order_id", placed.ID))
	lg.Info("Order placed",
		zap.Int("items", placed.ItemCount()),
		zap.Stringer("total", placed.Total()),
	)
	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(ctx, placed); err != nil {
			lg.Error("Notify order placed", zap.Error(err))
		}
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Send(ctx, placed.ID); err != nil {
			lg.Error("Auto-dispatch to courier", zap.Error(err))
		}
	}
	return placed, nil
}

// reserve builds order lines from the cart and decrements stock.
func reserve(ctx context.Context, tx Tx, c *cart.Cart, form CheckoutForm) (*Order, error) {
	ids := c.ProductIDs()
	products, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock products")
	}
	byID := make(map[int64]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	variants, err := tx.LockVariants(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock variants")
	}
	variantsOf := catalog.VariantsByProduct(variants)

	o := form.newOrder()
	demand := make(map[catalog.StockBucket]int)
	for _, e := range c.Entries() {
		p, ok := byID[e.Key.ProductID]
		if !ok || !p.IsAvailable {
			return nil, &UnavailableError{ProductID: e.Key.ProductID}
		}

		v := catalog.ResolveVariant(variantsOf[p.ID], e.Key.Size, e.Key.Color)
		b := catalog.BucketFor(p.ID, v)
		demand[b] += e.Line.Quantity
		if limit := catalog.StockLimit(p, v); demand[b] > limit {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: limit,
				Requested: demand[b],
			}
		}

		cost := p.CostPrice
		item := Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Size:        e.Key.Size,
			Color:       e.Key.Color,
			Price:       p.NetPrice(),
			CostPrice:   &cost,
			Quantity:    e.Line.Quantity,
		}
		if v != nil {
			id := v.ID
			item.VariantID = &id
		}
		o.Items = append(o.Items, item)
	}

	for _, it := range o.Items {
		var (
			ok  bool
			err error
		)
		if it.VariantID != nil {
			ok, err = tx.DecrementVariantStock(ctx, *it.VariantID, it.Quantity)
		} else {
			ok, err = tx.DecrementProductStock(ctx, it.ProductID, it.Quantity)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decrement stock of product %d", it.ProductID)
		}
		if !ok {
			return nil, &InsufficientStockError{
				ProductID: it.ProductID,
				Name:      it.ProductName,
				Requested: it.Quantity,
			}
		}
	}
	return o, nil
}

// Get returns one order with items.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return o, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// List returns orders newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// ListForUser returns a customer's orders newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list user orders")
	}
	return orders, nil
}

// UpdateRequest is an admin change to an order. Nil fields are unchanged.
type UpdateRequest struct {
	Status *Status
	Paid   *bool
}

// Update applies an admin change. Moving to Cancelled returns every line's
// quantity to stock exactly once; leaving Cancelled is rejected.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Order, error) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	if err := s.orders.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "get order %d", id)
		}

		status, paid := o.Status, o.Paid
		if req.Paid != nil {
			paid = *req.Paid
		}
		if req.Status != nil {
			status = *req.Status
		}

		if o.Status == StatusCancelled && status != StatusCancelled {
			return ErrCancelledIsFinal
		}
		if status == StatusCancelled && o.Status != StatusCancelled {
			if err := restock(ctx, tx, o.Items); err != nil {
				return err
			}
		}
		return tx.SetStatus(ctx, id, status, paid)
	}); err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Order updated", zap.Int64("order_id", id))
	return s.Get(ctx, id)
}

func restock(ctx context.Context, tx Tx, items []Item) error {
	for _, it := range items {
		if it.VariantID != nil {
			ok, err := tx.IncrementVariantStock(ctx, *it.VariantID, it.Quantity)
			if err != nil {
				return errors.Wrapf(err, "restock variant %d", *it.VariantID)
			}
			if ok {
				continue
			}
		}
		if err := tx.IncrementProductStock(ctx, it.ProductID, it.Quantity); err != nil {
			return errors.Wrapf(err, "restock product %d", it.ProductID)
		}
	}
	return nil
}
