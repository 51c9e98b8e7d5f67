package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banglamart/ordercore/internal/domain/product"
)

// Sentinel errors for order creation.
var (
	// ErrEmptyCart is returned before any transaction is attempted when the
	// submitted cart has no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrTotalMismatch is returned when the caller-supplied totals do not
	// satisfy total == subtotal + deliveryCharge - discount with total >= 0.
	ErrTotalMismatch = errors.New("order totals do not add up")
	// ErrPersistenceFailed wraps storage failures during the atomic unit.
	// The whole unit is rolled back; callers may retry after a delay.
	ErrPersistenceFailed = errors.New("order persistence failed")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// MissingFieldError indicates a required customer or shipping field was
// empty. PostalCode and Notes are the only optional string fields.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// PriceMismatchError indicates a submitted unit price that no longer matches
// the catalog. The customer should refresh their cart and resubmit.
type PriceMismatchError struct {
	ProductID string
	Submitted decimal.Decimal
	Current   decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price for product %s changed from %s to %s",
		e.ProductID, e.Submitted, e.Current)
}

// ReferenceNotFoundError indicates a dangling product or coupon reference at
// commit time, e.g. deleted between validation and submission.
type ReferenceNotFoundError struct {
	Kind string // "product" or "coupon"
	ID   string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ViewInvalidator drops cached read views derived from order data. The
// service calls it on every successful write so the admin order list and
// dashboard never serve a just-created order as missing for a full TTL.
type ViewInvalidator interface {
	InvalidateOrderViews()
}

// ItemInput is a single cart line as submitted by the checkout form.
type ItemInput struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
	Size      string
	Color     string
}

// CreateRequest is the full checkout payload: customer info, shipping,
// itemized cart, client-computed totals, and an optional coupon.
type CreateRequest struct {
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
	PaymentMethod   string
	Notes           string
	CouponID        *string
	Items           []ItemInput
}

// CreateResult identifies the durably created order.
type CreateResult struct {
	OrderID string
	Number  string
	Status  Status
	Total   decimal.Decimal
}

// Service is the order transaction engine. It validates the submitted
// payload against the live catalog, re-derives the pricing arithmetic, and
// delegates the atomic persistence (order + items + coupon increment) to the
// repository.
type Service struct {
	products product.Repository
	orders   Repository
	views    ViewInvalidator
	now      func() time.Time
}

// NewService creates an order Service with the required dependencies.
// views may be nil when no read views are cached.
func NewService(products product.Repository, orders Repository, views ViewInvalidator) *Service {
	return &Service{
		products: products,
		orders:   orders,
		views:    views,
		now:      time.Now,
	}
}

// Create converts a checkout submission into a durable order.
//
// The submitted prices become the order of record, but they are checked
// against the current catalog first: a stale unit price or totals that do
// not add up reject the submission instead of persisting silently wrong
// numbers. On success the order exists with all its items, the coupon's
// used_count is incremented by exactly one if a coupon was applied, and
// cached order views are invalidated. On any failure nothing is persisted.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := validateRequired(req); err != nil {
		return nil, err
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	// Batch fetch all referenced products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	catalog := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		catalog[p.ID] = p
	}

	// Re-derive the subtotal from current catalog prices and compare against
	// the client-computed numbers.
	derived := decimal.Zero
	for _, item := range req.Items {
		p, ok := catalog[item.ProductID]
		if !ok {
			return nil, &ReferenceNotFoundError{Kind: "product", ID: item.ProductID}
		}
		if !item.Price.Equal(p.Price) {
			return nil, &PriceMismatchError{
				ProductID: item.ProductID,
				Submitted: item.Price,
				Current:   p.Price,
			}
		}
		derived = derived.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !derived.Equal(req.Subtotal) {
		return nil, ErrTotalMismatch
	}

	// Discount is capped at the subtotal before being recorded, and the
	// persisted arithmetic must hold exactly: total = subtotal + delivery - discount.
	discount := decimal.Min(req.Discount, req.Subtotal)
	if discount.IsNegative() {
		return nil, ErrTotalMismatch
	}
	wantTotal := req.Subtotal.Add(req.DeliveryCharge).Sub(discount)
	if !wantTotal.Equal(req.Total) || req.Total.IsNegative() {
		return nil, ErrTotalMismatch
	}

	o := &Order{
		ID:              uuid.New().String(),
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		City:            req.City,
		PostalCode:      req.PostalCode,
		DeliveryZone:    req.DeliveryZone,
		DeliveryCharge:  req.DeliveryCharge,
		Subtotal:        req.Subtotal,
		Discount:        discount,
		Total:           req.Total,
		Status:          StatusPending,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		CouponID:        req.CouponID,
		CreatedAt:       s.now(),
	}
	o.Items = make([]Item, len(req.Items))
	for i, item := range req.Items {
		o.Items[i] = Item{
			ID:        uuid.New().String(),
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Size:      item.Size,
			Color:     item.Color,
		}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}

	if s.views != nil {
		s.views.InvalidateOrderViews()
	}

	return &CreateResult{
		OrderID: o.ID,
		Number:  o.Number,
		Status:  o.Status,
		Total:   o.Total,
	}, nil
}

// UpdateStatus applies an admin status change, guarded by the transition
// table. The repository write is conditional on the order still being in the
// observed status, so two concurrent admins cannot silently overwrite each
// other.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) error {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return err
	}

	if !CanTransition(o.Status, to) {
		return &TransitionError{From: o.Status, To: to}
	}

	if err := s.orders.UpdateStatus(ctx, id, o.Status, to); err != nil {
		return err
	}

	if s.views != nil {
		s.views.InvalidateOrderViews()
	}
	return nil
}

// validateRequired checks the required customer and shipping string fields.
// PostalCode and Notes may be empty.
func validateRequired(req CreateRequest) error {
	required := []struct {
		field string
		value string
	}{
		{"customerName", req.CustomerName},
		{"customerEmail", req.CustomerEmail},
		{"customerPhone", req.CustomerPhone},
		{"shippingAddress", req.ShippingAddress},
		{"city", req.City},
		{"paymentMethod", req.PaymentMethod},
	}
	for _, f := range required {
		if f.value == "" {
			return &MissingFieldError{Field: f.field}
		}
	}
	if !req.DeliveryZone.Valid() {
		return &MissingFieldError{Field: "deliveryZone"}
	}
	return nil
}
