package coupon

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listCodesRepo struct {
	mockCouponRepo
	mu    sync.Mutex
	codes []string
}

func (r *listCodesRepo) ListCodes(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.codes...), nil
}

func (r *listCodesRepo) setCodes(codes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = codes
}

func TestCodeFilter_AddAndMayContain(t *testing.T) {
	f := NewCodeFilter(0)

	f.Add("SAVE500")
	f.Add(" welcome10 ")

	assert.True(t, f.MayContain("SAVE500"))
	assert.True(t, f.MayContain("WELCOME10"), "codes are normalized on insert")
	assert.False(t, f.MayContain("NEVER-ADDED"))
}

func TestCodeFilter_Warm(t *testing.T) {
	repo := &listCodesRepo{codes: []string{"ALPHA", "beta", "GAMMA"}}

	f := NewCodeFilter(0)
	require.NoError(t, f.Warm(context.Background(), repo))

	assert.True(t, f.MayContain("ALPHA"))
	assert.True(t, f.MayContain("BETA"))
	assert.True(t, f.MayContain("GAMMA"))
}

func TestCodeFilter_WarmPicksUpNewCodes(t *testing.T) {
	repo := &listCodesRepo{}

	f := NewCodeFilter(0)
	require.NoError(t, f.Warm(context.Background(), repo))
	assert.False(t, f.MayContain("LATECODE"))

	// The code lands in the repository without passing through Add, the way
	// a seeding run or another instance would insert it.
	repo.setCodes("LATECODE")
	require.NoError(t, f.Warm(context.Background(), repo))
	assert.True(t, f.MayContain("LATECODE"))
}

func TestCodeFilter_Refresher(t *testing.T) {
	repo := &listCodesRepo{}

	f := NewCodeFilter(0)
	require.NoError(t, f.Warm(context.Background(), repo))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.StartRefresher(ctx, time.Millisecond, repo)

	repo.setCodes("LATECODE")
	assert.Eventually(t, func() bool {
		return f.MayContain("LATECODE")
	}, time.Second, time.Millisecond)
}

func TestCodeFilter_NoFalseNegatives(t *testing.T) {
	f := NewCodeFilter(0)

	for i := range 5000 {
		f.Add(fmt.Sprintf("CODE-%d", i))
	}
	for i := range 5000 {
		require.True(t, f.MayContain(fmt.Sprintf("CODE-%d", i)))
	}
}
