//go:build integration

package integration

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banglamart/ordercore/internal/domain/coupon"
	"github.com/banglamart/ordercore/internal/repository"
)

func newCoupon(code string, usageLimit *int) *coupon.Coupon {
	return &coupon.Coupon{
		ID:           uuid.New().String(),
		Code:         code,
		DiscountType: coupon.DiscountFixed,
		Amount:       decimal.NewFromInt(100),
		IsActive:     true,
		UsageLimit:   usageLimit,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func uniqueCode(t *testing.T) string {
	t.Helper()
	return strings.ToUpper("T" + strings.ReplaceAll(uuid.New().String(), "-", "")[:11])
}

func TestCouponRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCouponRepository(pool)

	code := uniqueCode(t)
	limit := 5
	c := newCoupon(code, &limit)
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, coupon.DiscountFixed, got.DiscountType)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Amount))
	require.NotNil(t, got.UsageLimit)
	assert.Equal(t, 5, *got.UsageLimit)
	assert.Zero(t, got.UsedCount)
}

func TestCouponCreate_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCouponRepository(pool)

	code := uniqueCode(t)
	require.NoError(t, repo.Create(ctx, newCoupon(code, nil)))

	err := repo.Create(ctx, newCoupon(code, nil))
	require.ErrorIs(t, err, repository.ErrCouponCodeTaken)
}

func TestCouponSetActive(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCouponRepository(pool)

	code := uniqueCode(t)
	require.NoError(t, repo.Create(ctx, newCoupon(code, nil)))

	require.NoError(t, repo.SetActive(ctx, code, false))
	got, err := repo.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	err = repo.SetActive(ctx, "NO-SUCH-CODE", false)
	require.ErrorIs(t, err, coupon.ErrNotFound)
}

// Two checkouts race for a coupon with a single remaining use. Exactly one
// may win and used_count must land on the limit, never past it.
func TestCouponUsageLimit_ConcurrentRedemption(t *testing.T) {
	ctx := context.Background()
	coupons := repository.NewCouponRepository(pool)
	orders := repository.NewOrderRepository(pool)

	code := uniqueCode(t)
	limit := 1
	c := newCoupon(code, &limit)
	require.NoError(t, coupons.Create(ctx, c))

	const racers = 2
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := newOrder()
			o.CouponID = &c.ID
			o.Discount = decimal.NewFromInt(100)
			o.Total = decimal.NewFromInt(1460)
			results <- orders.Create(ctx, o)
		}()
	}
	wg.Wait()
	close(results)

	var wins, exhausted int
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, coupon.ErrExhausted)
			exhausted++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, exhausted)

	got, err := coupons.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedCount, "used_count must never exceed the limit")
}

func TestCouponRedemption_FailedOrderDoesNotConsumeUse(t *testing.T) {
	ctx := context.Background()
	coupons := repository.NewCouponRepository(pool)
	orders := repository.NewOrderRepository(pool)

	code := uniqueCode(t)
	limit := 10
	c := newCoupon(code, &limit)
	require.NoError(t, coupons.Create(ctx, c))

	// An unknown product makes the item insert fail after the order row is
	// written; the rollback must also undo nothing on the coupon.
	o := newOrder()
	o.CouponID = &c.ID
	o.Items = append(o.Items, newOrder().Items[0])
	o.Items[1].ProductID = "no-such-product"

	require.Error(t, orders.Create(ctx, o))

	got, err := coupons.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Zero(t, got.UsedCount, "rolled back order must not consume a use")
}

func TestValidateDoesNotConsumeUses(t *testing.T) {
	ctx := context.Background()
	coupons := repository.NewCouponRepository(pool)

	code := uniqueCode(t)
	limit := 1
	require.NoError(t, coupons.Create(ctx, newCoupon(code, &limit)))

	v := coupon.NewValidator(coupons, nil)
	for range 5 {
		_, err := v.Validate(ctx, code, decimal.NewFromInt(1000))
		require.NoError(t, err)
	}

	got, err := coupons.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Zero(t, got.UsedCount)
}

func TestListCodes(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCouponRepository(pool)

	code := uniqueCode(t)
	require.NoError(t, repo.Create(ctx, newCoupon(code, nil)))

	codes, err := repo.ListCodes(ctx)
	require.NoError(t, err)
	assert.Contains(t, codes, code)
}
