package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage discounts a percentage of the cart subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed discounts a fixed monetary amount, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Eligibility errors, surfaced verbatim to the customer as the reason a
// coupon did not apply.
var (
	// ErrNotFound is returned when no coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon has been disabled by an admin.
	ErrInactive = errors.New("coupon is inactive")
	// ErrExpired is returned when the coupon's expiry time has passed.
	ErrExpired = errors.New("coupon expired")
	// ErrExhausted is returned when the coupon's usage limit has been reached.
	ErrExhausted = errors.New("coupon usage limit reached")
)

// Coupon is a discount code managed by an admin. UsedCount is mutated only
// inside the order transaction, never by validation.
type Coupon struct {
	ID           string
	Code         string
	DiscountType DiscountType
	Amount       decimal.Decimal
	IsActive     bool
	UsageLimit   *int
	UsedCount    int
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}

// Exhausted reports whether the coupon's usage limit has been reached.
// Coupons without a limit are never exhausted.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}

// Validation holds the outcome of a successful coupon validation.
type Validation struct {
	CouponID     string
	Code         string
	DiscountType DiscountType
	Discount     decimal.Decimal
}

// Repository provides lookup and admin mutation of coupons. Redemption
// (the used_count increment) is not part of this interface: it happens
// inside the order transaction so that a failed order never consumes a use.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	SetActive(ctx context.Context, code string, active bool) error
	ListCodes(ctx context.Context) ([]string, error)
}
