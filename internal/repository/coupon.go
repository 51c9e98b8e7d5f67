package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/banglamart/ordercore/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, discount_type, amount, is_active,
		usage_limit, used_count, expires_at, created_at
		FROM coupons WHERE code = $1`

	insertCouponSQL = `INSERT INTO coupons (id, code, discount_type, amount, is_active,
		usage_limit, used_count, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	setCouponActiveSQL = `UPDATE coupons SET is_active = $2 WHERE code = $1`

	listCouponCodesSQL = `SELECT code FROM coupons`
)

// ErrCouponCodeTaken is returned when creating a coupon with a code that
// already exists.
var ErrCouponCodeTaken = errors.New("coupon code already exists")

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its normalized code. Returns
// coupon.ErrNotFound when no such coupon exists; eligibility (active,
// expiry, limit) is the validator's concern, not the lookup's.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Create inserts a new coupon. The code is stored as given; callers
// normalize it first.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.Amount, c.IsActive,
		c.UsageLimit, c.UsedCount, c.ExpiresAt, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCouponCodeTaken
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// SetActive toggles a coupon on or off.
func (r *CouponRepository) SetActive(ctx context.Context, code string, active bool) error {
	tag, err := r.pool.Exec(ctx, setCouponActiveSQL, code, active)
	if err != nil {
		return fmt.Errorf("toggling coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// ListCodes returns every coupon code, used to warm the code filter at
// startup.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		usageLimit   *int32
		expiresAt    *time.Time
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &c.Amount, &c.IsActive,
		&usageLimit, &c.UsedCount, &expiresAt, &c.CreatedAt,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	if usageLimit != nil {
		limit := int(*usageLimit)
		c.UsageLimit = &limit
	}
	c.ExpiresAt = expiresAt
	return c, err
}
