package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryZone is the coarse shipping zone a customer address falls into.
type DeliveryZone string

const (
	ZoneInsideDhaka  DeliveryZone = "Inside Dhaka"
	ZoneOutsideDhaka DeliveryZone = "Outside Dhaka"
)

// Valid reports whether the zone is one of the supported values.
func (z DeliveryZone) Valid() bool {
	return z == ZoneInsideDhaka || z == ZoneOutsideDhaka
}

// Order is a durable, priced, uniquely numbered customer order. All monetary
// fields are snapshots taken at creation time; they never track later product
// or coupon changes.
type Order struct {
	ID              string
	Number          string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	City            string
	PostalCode      string
	DeliveryZone    DeliveryZone
	DeliveryCharge  decimal.Decimal
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	Status          Status
	PaymentMethod   string
	Notes           string
	CouponID        *string
	Items           []Item
	CreatedAt       time.Time
}

// Item is a single order line. Price is the unit price at order time,
// immutable once written.
type Item struct {
	ID        string
	ProductID string
	Quantity  int
	Price     decimal.Decimal
	Size      string
	Color     string
}

// Stats aggregates order data for the admin dashboard.
type Stats struct {
	TotalOrders   int64
	PendingOrders int64
	Revenue       decimal.Decimal
}

// Repository defines persistence operations for orders.
//
// Create must be atomic: the order row, all item rows, and the coupon
// used_count increment (when CouponID is set) commit or roll back as one
// unit. Implementations fill in o.Number from a storage-owned sequence.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListRecent(ctx context.Context, limit int) ([]Order, error)
	// UpdateStatus transitions an order from one status to another. It must
	// fail without writing when the order is no longer in the from status.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	Stats(ctx context.Context) (Stats, error)
}
