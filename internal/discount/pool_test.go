package discount

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPoolRejectsWhenSaturated(t *testing.T) {
	pool := NewPool(1, 1)
	release := make(chan struct{})
	var ran atomic.Int32

	require.NoError(t, pool.Submit(func() { <-release; ran.Add(1) }))
	require.NoError(t, pool.Submit(func() { ran.Add(1) }))
	require.ErrorIs(t, pool.Submit(func() { ran.Add(1) }), ErrEvaluationRejected)

	close(release)
	require.Eventually(t, func() bool { return ran.Load() == 2 }, time.Second, 5*time.Millisecond)

	// capacity frees up once tasks finish
	require.Eventually(t, func() bool { return pool.Submit(func() {}) == nil }, time.Second, 5*time.Millisecond)
}

func TestPoolLimitsParallelism(t *testing.T) {
	pool := NewPool(2, 10)
	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}))
	}
	wg.Wait()
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestEvaluateAllReturnsPartialResultsAtDeadline(t *testing.T) {
	pool := NewPool(1, 10)
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, pool.Submit(func() { <-release }))

	lines := []OrderLine{{ID: 1, Price: 1000}}
	combos := [][]eligibleSet{{mustSet(t, Coupon{ID: 1, Kind: KindNoThreshold, DiscountValue: 10}, lines)}}

	started := time.Now()
	got, stats := evaluateAll(context.Background(), pool, 30*time.Millisecond, lines, combos, zerolog.Nop())

	require.Less(t, time.Since(started), time.Second)
	require.True(t, stats.deadlineExceeded)
	require.Empty(t, got)
	require.Equal(t, 1, stats.candidates)
}

func TestEvaluateAllCountsRejectedCandidates(t *testing.T) {
	pool := NewPool(1, 0)
	release := make(chan struct{})
	require.NoError(t, pool.Submit(func() { <-release }))

	lines := []OrderLine{{ID: 1, Price: 1000}}
	set := mustSet(t, Coupon{ID: 1, Kind: KindNoThreshold, DiscountValue: 10}, lines)
	got, stats := evaluateAll(context.Background(), pool, 20*time.Millisecond, lines, [][]eligibleSet{{set}, {set}}, zerolog.Nop())
	close(release)

	require.Empty(t, got)
	require.Equal(t, 2, stats.rejected)
	require.False(t, stats.deadlineExceeded)
}

func TestEvaluateAllIsolatesPanics(t *testing.T) {
	lines := []OrderLine{{ID: 1, Price: 1000}}
	good := mustSet(t, Coupon{ID: 1, Kind: KindNoThreshold, DiscountValue: 10}, lines)
	broken := eligibleSet{coupon: Coupon{ID: 2}, lines: lines, total: 1000}

	got, stats := evaluateAll(context.Background(), NewPool(2, 4), time.Second, lines, [][]eligibleSet{{broken}, {good}}, zerolog.Nop())

	require.False(t, stats.deadlineExceeded)
	require.Len(t, got, 1)
	require.Equal(t, []int64{1}, got[0].IDs)
}
