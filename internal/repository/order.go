package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/banglamart/ordercore/internal/domain/coupon"
	"github.com/banglamart/ordercore/internal/domain/order"
)

const (
	nextOrderNumberSQL = `SELECT nextval('order_number_seq')`

	insertOrderSQL = `INSERT INTO orders (id, order_number, customer_name, customer_email,
		customer_phone, shipping_address, city, postal_code, delivery_zone,
		delivery_charge, subtotal, discount, total, status, payment_method, notes,
		coupon_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, price, size, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	// The usage limit check is folded into the increment so check and
	// mutation are indivisible: the row lock taken here is held until the
	// surrounding transaction commits or rolls back.
	redeemCouponSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`

	couponExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE id = $1)`

	getOrderSQL = `SELECT id, order_number, customer_name, customer_email, customer_phone,
		shipping_address, city, postal_code, delivery_zone, delivery_charge,
		subtotal, discount, total, status, payment_method, notes, coupon_id, created_at
		FROM orders WHERE id = $1`

	listRecentOrdersSQL = `SELECT id, order_number, customer_name, customer_email, customer_phone,
		shipping_address, city, postal_code, delivery_zone, delivery_charge,
		subtotal, discount, total, status, payment_method, notes, coupon_id, created_at
		FROM orders ORDER BY created_at DESC, id DESC LIMIT $1`

	listOrderItemsSQL = `SELECT id, order_id, product_id, quantity, price, size, color
		FROM order_items WHERE order_id = ANY($1)`

	updateOrderStatusSQL = `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`

	orderStatsSQL = `SELECT count(*),
		count(*) FILTER (WHERE status = 'PENDING'),
		COALESCE(sum(total) FILTER (WHERE status <> 'CANCELLED'), 0)
		FROM orders`
)

// ErrOrderNotFound is returned when a requested order does not exist.
var ErrOrderNotFound = errors.New("order not found")

// ErrStatusConflict is returned when a conditional status update matched no
// row: the order changed status underneath the caller.
var ErrStatusConflict = errors.New("order status changed concurrently")

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order, its items, and the coupon redemption in a
// single transaction. The order number is derived from a database sequence
// fetched inside the same transaction. On any failure the transaction is
// rolled back: no order row, no item rows, no used_count change.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return persistenceErr(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	if err := tx.QueryRow(ctx, nextOrderNumberSQL).Scan(&seq); err != nil {
		return persistenceErr(err, "next order number")
	}
	o.Number = order.FormatNumber(o.CreatedAt, seq)

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Number, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.ShippingAddress, o.City, o.PostalCode, string(o.DeliveryZone),
		o.DeliveryCharge, o.Subtotal, o.Discount, o.Total, string(o.Status),
		o.PaymentMethod, o.Notes, o.CouponID, o.CreatedAt,
	)
	if err != nil {
		if refErr := asReferenceError(err); refErr != nil {
			return refErr
		}
		return persistenceErr(err, "insert order")
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(insertOrderItemSQL,
			item.ID, o.ID, item.ProductID, item.Quantity, item.Price, item.Size, item.Color,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if refErr := asReferenceError(err); refErr != nil {
			return refErr
		}
		return persistenceErr(err, "insert order items")
	}

	if o.CouponID != nil {
		if err := redeemCoupon(ctx, tx, *o.CouponID); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return persistenceErr(err, "commit order")
	}
	return nil
}

// redeemCoupon increments the coupon's used_count, but only while the usage
// limit has headroom. A zero-row update means either a dangling coupon id or
// an exhausted limit; the two are told apart with an existence probe.
func redeemCoupon(ctx context.Context, tx pgx.Tx, couponID string) error {
	tag, err := tx.Exec(ctx, redeemCouponSQL, couponID)
	if err != nil {
		return persistenceErr(err, "redeem coupon")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, couponExistsSQL, couponID).Scan(&exists); err != nil {
		return persistenceErr(err, "probe coupon")
	}
	if !exists {
		return &order.ReferenceNotFoundError{Kind: "coupon", ID: couponID}
	}
	return coupon.ErrExhausted
}

// Get returns an order with its items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

// ListRecent returns the most recently created orders with their items.
func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listRecentOrdersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing recent orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

// UpdateStatus writes the new status only if the order is still in the
// status the caller observed. Zero rows affected means a concurrent change
// or an unknown order id.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("updating status for order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

// Stats returns dashboard aggregates over all orders. Cancelled orders are
// excluded from revenue.
func (r *OrderRepository) Stats(ctx context.Context) (order.Stats, error) {
	var st order.Stats
	err := r.pool.QueryRow(ctx, orderStatsSQL).Scan(&st.TotalOrders, &st.PendingOrders, &st.Revenue)
	if err != nil {
		return order.Stats{}, fmt.Errorf("order stats: %w", err)
	}
	return st, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]order.Item, error) {
	rows, err := r.pool.Query(ctx, listOrderItemsSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]order.Item)
	for rows.Next() {
		var (
			item    order.Item
			orderID string
		)
		if err := rows.Scan(&item.ID, &orderID, &item.ProductID, &item.Quantity,
			&item.Price, &item.Size, &item.Color); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		zone     string
		status   string
		couponID *string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.City, &o.PostalCode, &zone, &o.DeliveryCharge,
		&o.Subtotal, &o.Discount, &o.Total, &status, &o.PaymentMethod, &o.Notes,
		&couponID, &o.CreatedAt,
	)
	o.DeliveryZone = order.DeliveryZone(zone)
	o.Status = order.Status(status)
	o.CouponID = couponID
	return o, err
}

// asReferenceError maps foreign key violations to the domain's dangling
// reference error, using the constraint name to tell products from coupons.
func asReferenceError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23503" {
		return nil
	}
	switch pgErr.ConstraintName {
	case "order_items_product_id_fkey":
		return &order.ReferenceNotFoundError{Kind: "product"}
	case "orders_coupon_id_fkey":
		return &order.ReferenceNotFoundError{Kind: "coupon"}
	}
	return &order.ReferenceNotFoundError{Kind: "reference"}
}

// persistenceErr tags a storage failure with the retryable sentinel while
// keeping the underlying cause in the message for operator logs.
func persistenceErr(err error, msg string) error {
	return errors.Wrapf(order.ErrPersistenceFailed, "%s: %v", msg, err)
}
