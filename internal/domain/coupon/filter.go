package coupon

import (
	"context"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

const (
	filterMinCapacity = 10_000
	filterFPR         = 0.001
)

// CodeFilter is a bloom filter over known coupon codes. It lets the
// validator reject definitely-unknown codes without a database round trip.
// False positives fall through to the repository lookup; false negatives
// cannot occur for codes registered through Warm or Add.
type CodeFilter struct {
	mu sync.RWMutex
	bf *bloom.BloomFilter
}

// NewCodeFilter creates an empty filter sized for at least capacity codes.
func NewCodeFilter(capacity uint) *CodeFilter {
	if capacity < filterMinCapacity {
		capacity = filterMinCapacity
	}
	return &CodeFilter{bf: bloom.NewWithEstimates(capacity, filterFPR)}
}

// Warm rebuilds the filter from every coupon code currently in the
// repository. Called at startup before the filter is consulted, and again by
// the refresher so codes that entered the database outside this process
// (seeding, another instance behind the same database) become visible.
func (f *CodeFilter) Warm(ctx context.Context, repo Repository) error {
	codes, err := repo.ListCodes(ctx)
	if err != nil {
		return errors.Wrap(err, "list coupon codes")
	}

	capacity := uint(len(codes))
	if capacity < filterMinCapacity {
		capacity = filterMinCapacity
	}
	bf := bloom.NewWithEstimates(capacity, filterFPR)
	for _, code := range codes {
		bf.AddString(NormalizeCode(code))
	}

	f.mu.Lock()
	f.bf = bf
	f.mu.Unlock()
	return nil
}

// StartRefresher launches a goroutine that re-warms the filter at the given
// interval until ctx is cancelled. A failed refresh keeps the current filter
// contents; the next tick tries again.
func (f *CodeFilter) StartRefresher(ctx context.Context, interval time.Duration, repo Repository) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = f.Warm(ctx, repo)
			}
		}
	}()
}

// Add registers a newly created coupon code. Codes cannot be removed;
// deactivated coupons are rejected by the validator's eligibility checks.
func (f *CodeFilter) Add(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bf.AddString(NormalizeCode(code))
}

// MayContain reports whether the code might be a known coupon code.
// A false result is definitive.
func (f *CodeFilter) MayContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bf.TestString(code)
}
