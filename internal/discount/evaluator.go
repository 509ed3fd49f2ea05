package discount

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// resultSet is the only state shared between evaluation tasks.
type resultSet struct {
	mu    sync.Mutex
	items []*Solution
}

func (r *resultSet) add(sol *Solution) {
	r.mu.Lock()
	r.items = append(r.items, sol)
	r.mu.Unlock()
}

func (r *resultSet) snapshot() []*Solution {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Solution, len(r.items))
	copy(out, r.items)
	return out
}

type evalStats struct {
	candidates       int
	rejected         int
	completed        int
	deadlineExceeded bool
}

// evaluateAll fans the combinations out to the pool and waits up to deadline.
// Tasks still running when the wait ends keep running; their results are
// simply not collected.
func evaluateAll(ctx context.Context, pool *Pool, deadline time.Duration, lines []OrderLine, combos [][]eligibleSet, logger zerolog.Logger) ([]*Solution, evalStats) {
	stats := evalStats{candidates: len(combos)}
	results := &resultSet{items: make([]*Solution, 0, len(combos))}
	var wg sync.WaitGroup

	for _, combo := range combos {
		combo := combo
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error().Str("panic", fmt.Sprint(r)).Int("coupons", len(combo)).Msg("discount evaluation panicked")
				}
			}()
			results.add(evaluate(lines, combo))
		})
		if err != nil {
			wg.Done()
			stats.rejected++
			logger.Warn().Err(err).Ints64("coupon_ids", comboIDs(combo)).Msg("discount candidate rejected")
			recordRejected()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		stats.deadlineExceeded = true
	case <-ctx.Done():
		stats.deadlineExceeded = true
	}

	collected := results.snapshot()
	stats.completed = len(collected)
	if stats.deadlineExceeded {
		logger.Warn().
			Int("completed", stats.completed).
			Int("pending", stats.candidates-stats.rejected-stats.completed).
			Dur("deadline", deadline).
			Msg("discount evaluation deadline reached, using partial results")
		recordDeadlineExceeded()
	}
	return collected, stats
}

func comboIDs(combo []eligibleSet) []int64 {
	ids := make([]int64, len(combo))
	for i, set := range combo {
		ids[i] = set.coupon.ID
	}
	return ids
}
