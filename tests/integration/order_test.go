//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banglamart/ordercore/internal/domain/order"
	"github.com/banglamart/ordercore/internal/repository"
)

func newOrder() *order.Order {
	return &order.Order{
		ID:              uuid.New().String(),
		CustomerName:    "Rahim Uddin",
		CustomerEmail:   "rahim@example.com",
		CustomerPhone:   "+8801700000000",
		ShippingAddress: "House 12, Road 5, Dhanmondi",
		City:            "Dhaka",
		DeliveryZone:    order.ZoneInsideDhaka,
		DeliveryCharge:  decimal.NewFromInt(60),
		Subtotal:        decimal.NewFromInt(1500),
		Discount:        decimal.Zero,
		Total:           decimal.NewFromInt(1560),
		Status:          order.StatusPending,
		PaymentMethod:   "COD",
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
		Items: []order.Item{
			{ID: uuid.New().String(), ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(1500)},
		},
	}
}

func TestCreateOrder_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	o := newOrder()
	require.NoError(t, repo.Create(ctx, o))
	require.NotEmpty(t, o.Number)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, o.Number, got.Number)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.True(t, o.Total.Equal(got.Total))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p1", got.Items[0].ProductID)
	assert.True(t, decimal.NewFromInt(1500).Equal(got.Items[0].Price))
}

func TestCreateOrder_RollsBackOnDanglingProduct(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	o := newOrder()
	o.Items = append(o.Items, order.Item{
		ID:        uuid.New().String(),
		ProductID: "no-such-product",
		Quantity:  1,
		Price:     decimal.NewFromInt(10),
	})

	err := repo.Create(ctx, o)

	var refErr *order.ReferenceNotFoundError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "product", refErr.Kind)

	_, err = repo.Get(ctx, o.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound, "failed create must persist nothing")
}

func TestCreateOrder_RollsBackOnDanglingCoupon(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	ghost := uuid.New().String()
	o := newOrder()
	o.CouponID = &ghost

	err := repo.Create(ctx, o)

	var refErr *order.ReferenceNotFoundError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "coupon", refErr.Kind)

	_, err = repo.Get(ctx, o.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestCreateOrder_NumbersUniqueUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	const n = 20
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := newOrder()
			if err := repo.Create(ctx, o); err != nil {
				t.Errorf("create: %v", err)
				return
			}
			numbers <- o.Number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]struct{}, n)
	for num := range numbers {
		if _, dup := seen[num]; dup {
			t.Fatalf("duplicate order number %s", num)
		}
		seen[num] = struct{}{}
	}
	require.Len(t, seen, n)
}

func TestUpdateStatus_ConditionalOnObservedStatus(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	o := newOrder()
	require.NoError(t, repo.Create(ctx, o))

	require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusProcessing))

	// The order already left PENDING, so a second writer that still observed
	// PENDING must fail without effect.
	err := repo.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusCancelled)
	require.ErrorIs(t, err, repository.ErrStatusConflict)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, got.Status)
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	err := repo.UpdateStatus(ctx, uuid.New().String(), order.StatusPending, order.StatusProcessing)
	require.ErrorIs(t, err, repository.ErrStatusConflict)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	before, err := repo.Stats(ctx)
	require.NoError(t, err)

	o := newOrder()
	require.NoError(t, repo.Create(ctx, o))

	after, err := repo.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, before.TotalOrders+1, after.TotalOrders)
	assert.Equal(t, before.PendingOrders+1, after.PendingOrders)
	assert.True(t, after.Revenue.Sub(before.Revenue).Equal(o.Total),
		"revenue should grow by the new order's total (got %s, want %s)",
		after.Revenue.Sub(before.Revenue), o.Total)
}

func TestListRecent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	var created []string
	for i := range 3 {
		o := newOrder()
		o.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Millisecond).Truncate(time.Microsecond)
		require.NoError(t, repo.Create(ctx, o))
		created = append(created, o.ID)
	}

	orders, err := repo.ListRecent(ctx, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(orders), 3)

	byID := make(map[string]order.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}
	for _, id := range created {
		o, ok := byID[id]
		require.True(t, ok, "order %s missing from recent list", id)
		assert.NotEmpty(t, o.Items, "items must load with the listing")
	}
}

func TestListRecent_Empty(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	orders, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
