package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foxyglamour/storefront/internal/domain/catalog"
	"github.com/foxyglamour/storefront/internal/domain/courier"
	"github.com/foxyglamour/storefront/internal/domain/order"
)

const orderColumns = `id, user_id, first_name, last_name, email, phone, address, postal_code, city,
	shipping_zone, payment_method, payment_number, transaction_id, payment_discount, shipping_cost,
	status, paid, pathao_consignment_id, pathao_order_status, pathao_city_id, pathao_zone_id,
	pathao_area_id, sent_to_pathao, created, updated`

const (
	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::text = '' OR status = $1)
		ORDER BY created DESC, id DESC
		LIMIT $2 OFFSET $3`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created DESC, id DESC`

	listTrackableOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE sent_to_pathao AND pathao_consignment_id <> '' AND status <> 'Cancelled'
		ORDER BY id`

	listOrderItemsSQL = `SELECT id, order_id, product_id, product_name, variant_id, size_code,
		color_code, price, cost_price, quantity
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	insertOrderSQL = `INSERT INTO orders (user_id, first_name, last_name, email, phone, address,
		postal_code, city, shipping_zone, payment_method, payment_number, transaction_id,
		payment_discount, shipping_cost, status, paid, pathao_city_id, pathao_zone_id, pathao_area_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created, updated`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, product_name, variant_id,
		size_code, color_code, price, cost_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	setOrderStatusSQL = `UPDATE orders SET status = $2, paid = $3, updated = now() WHERE id = $1`

	markSentSQL = `UPDATE orders SET pathao_consignment_id = $2, pathao_order_status = $3,
		sent_to_pathao = TRUE, updated = now() WHERE id = $1 AND NOT sent_to_pathao`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	setCourierStatusSQL = `UPDATE orders SET pathao_order_status = $2, updated = now() WHERE id = $1`

	lockProductsSQL = `SELECT ` + productColumns + ` FROM products p
		WHERE p.id = ANY($1) ORDER BY p.id FOR UPDATE OF p`

	lockVariantsSQL = `SELECT id, product_id, size_code, color_code, stock
		FROM product_variants WHERE product_id = ANY($1) ORDER BY id FOR UPDATE`

	decrementProductStockSQL = `UPDATE products SET stock = stock - $2, updated = now()
		WHERE id = $1 AND stock >= $2`

	decrementVariantStockSQL = `UPDATE product_variants SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	incrementProductStockSQL = `UPDATE products SET stock = stock + $2, updated = now() WHERE id = $1`

	incrementVariantStockSQL = `UPDATE product_variants SET stock = stock + $2 WHERE id = $1`
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ order.Tx         = (*orderTx)(nil)
	_ courier.Orders   = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository and courier.Orders backed by
// PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// InTx runs fn inside a transaction, committing when fn returns nil.
func (r *OrderRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &orderTx{tx: tx})
	})
}

// Get returns the order with its items.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, r.pool, getOrderSQL, id)
}

// List returns orders newest first.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	return listOrders(ctx, r.pool, listOrdersSQL, string(f.Status), f.Limit, f.Offset)
}

// ListByUser returns a customer's orders newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	return listOrders(ctx, r.pool, listOrdersByUserSQL, userID)
}

// ListTrackable returns non-cancelled orders handed to the courier.
func (r *OrderRepository) ListTrackable(ctx context.Context) ([]order.Order, error) {
	return listOrders(ctx, r.pool, listTrackableOrdersSQL)
}

// MarkSent stores the consignment returned by the courier. It fails with
// courier.ErrAlreadySent when the order was marked by someone else first.
func (r *OrderRepository) MarkSent(ctx context.Context, id int64, consignmentID, status string) error {
	tag, err := r.pool.Exec(ctx, markSentSQL, id, consignmentID, status)
	if err != nil {
		return fmt.Errorf("updating order %d: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %d: %w", id, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return courier.ErrAlreadySent
}

// SetCourierStatus stores the latest courier status.
func (r *OrderRepository) SetCourierStatus(ctx context.Context, id int64, status string) error {
	return execOne(ctx, r.pool, setCourierStatusSQL, id, status)
}

func execOne(ctx context.Context, q querier, sql string, id int64, args ...any) error {
	tag, err := q.Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("updating order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) LockProducts(ctx context.Context, ids []int64) ([]catalog.Product, error) {
	rows, err := t.tx.Query(ctx, lockProductsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (t *orderTx) LockVariants(ctx context.Context, productIDs []int64) ([]catalog.Variant, error) {
	return listVariants(ctx, t.tx, lockVariantsSQL, productIDs)
}

func (t *orderTx) DecrementProductStock(ctx context.Context, productID int64, qty int) (bool, error) {
	return t.adjust(ctx, decrementProductStockSQL, productID, qty)
}

func (t *orderTx) DecrementVariantStock(ctx context.Context, variantID int64, qty int) (bool, error) {
	return t.adjust(ctx, decrementVariantStockSQL, variantID, qty)
}

func (t *orderTx) IncrementProductStock(ctx context.Context, productID int64, qty int) error {
	_, err := t.adjust(ctx, incrementProductStockSQL, productID, qty)
	return err
}

func (t *orderTx) IncrementVariantStock(ctx context.Context, variantID int64, qty int) (bool, error) {
	return t.adjust(ctx, incrementVariantStockSQL, variantID, qty)
}

func (t *orderTx) adjust(ctx context.Context, sql string, id int64, qty int) (bool, error) {
	tag, err := t.tx.Exec(ctx, sql, id, qty)
	if err != nil {
		return false, fmt.Errorf("adjusting stock of %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *orderTx) Insert(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL,
		o.UserID, o.FirstName, o.LastName, o.Email, o.Phone, o.Address,
		o.PostalCode, o.City, string(o.ShippingZone), string(o.PaymentMethod), o.PaymentNumber,
		o.TransactionID, o.PaymentDiscount, o.ShippingCost, string(o.Status), o.Paid,
		o.Courier.CityID, o.Courier.ZoneID, o.Courier.AreaID,
	).Scan(&o.ID, &o.Created, &o.Updated)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		err := t.tx.QueryRow(ctx, insertOrderItemSQL,
			o.ID, it.ProductID, it.ProductName, it.VariantID,
			it.Size, it.Color, it.Price, it.CostPrice, it.Quantity,
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("inserting item of order %d: %w", o.ID, err)
		}
	}
	return nil
}

func (t *orderTx) GetForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, t.tx, getOrderForUpdateSQL, id)
}

func (t *orderTx) SetStatus(ctx context.Context, id int64, status order.Status, paid bool) error {
	return execOne(ctx, t.tx, setOrderStatusSQL, id, string(status), paid)
}

func getOrder(ctx context.Context, q querier, sql string, id int64) (*order.Order, error) {
	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	orders := []order.Order{o}
	if err := attachItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func listOrders(ctx context.Context, q querier, sql string, args ...any) ([]order.Order, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := attachItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func attachItems(ctx context.Context, q querier, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := q.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it      order.Item
			orderID int64
		)
		if err := rows.Scan(
			&it.ID, &orderID, &it.ProductID, &it.ProductName, &it.VariantID,
			&it.Size, &it.Color, &it.Price, &it.CostPrice, &it.Quantity,
		); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                    order.Order
		zone, method, status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.FirstName, &o.LastName, &o.Email, &o.Phone, &o.Address,
		&o.PostalCode, &o.City, &zone, &method, &o.PaymentNumber, &o.TransactionID,
		&o.PaymentDiscount, &o.ShippingCost, &status, &o.Paid,
		&o.Courier.ConsignmentID, &o.Courier.Status, &o.Courier.CityID, &o.Courier.ZoneID,
		&o.Courier.AreaID, &o.Courier.Sent, &o.Created, &o.Updated,
	)
	o.ShippingZone = order.ShippingZone(zone)
	o.PaymentMethod = order.PaymentMethod(method)
	o.Status = order.Status(status)
	return o, err
}
