package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// NormalizeCode converts a customer-supplied code to its canonical stored
// form: trimmed and uppercase.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validator checks coupon eligibility and computes discounts. Validate has
// no side effects: it never touches used_count, so "peeking" requests that
// never convert to an order cannot exhaust a usage limit.
type Validator struct {
	repo   Repository
	filter *CodeFilter
	now    func() time.Time
}

// NewValidator creates a Validator backed by the given repository. The
// optional filter short-circuits lookups for codes that are definitely
// unknown; pass nil to always hit the repository.
func NewValidator(repo Repository, filter *CodeFilter) *Validator {
	return &Validator{repo: repo, filter: filter, now: time.Now}
}

// Validate normalizes the code, looks the coupon up, runs the eligibility
// checks in order (inactive, then expired, then exhausted), and
// computes the discount for the given subtotal. Safe to call repeatedly and
// concurrently.
func (v *Validator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Validation, error) {
	normalized := NormalizeCode(code)

	if v.filter != nil && !v.filter.MayContain(normalized) {
		return nil, ErrNotFound
	}

	c, err := v.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !c.IsActive {
		return nil, ErrInactive
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(v.now()) {
		return nil, ErrExpired
	}
	if c.Exhausted() {
		return nil, ErrExhausted
	}

	return &Validation{
		CouponID:     c.ID,
		Code:         c.Code,
		DiscountType: c.DiscountType,
		Discount:     ComputeDiscount(c.DiscountType, c.Amount, subtotal),
	}, nil
}

// ComputeDiscount returns the discount a coupon yields for the given
// subtotal. Fixed coupons discount their amount, percentage coupons a share
// of the subtotal. The result is capped at the subtotal so a coupon can
// never produce a negative total, and rounded to 2 decimal places. The
// returned discount is never negative, whatever the amount or subtotal.
func ComputeDiscount(t DiscountType, amount, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch t {
	case DiscountPercentage:
		d = subtotal.Mul(amount).Div(hundred)
	case DiscountFixed:
		d = amount
	default:
		return decimal.Zero
	}

	d = decimal.Min(d, subtotal)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}
