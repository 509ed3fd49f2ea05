package discount

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
)

// ScopeSource resolves the biz ids a scope-restricted coupon applies to.
type ScopeSource interface {
	ScopeBizIDs(ctx context.Context, couponID int64) ([]int64, error)
}

// filterEligible narrows coupons to those usable against the order, expanding
// specific coupons to the lines their scope covers. Output order follows the
// input coupon order; a coupon appears at most once.
func filterEligible(ctx context.Context, scopes ScopeSource, coupons []Coupon, lines []OrderLine, logger zerolog.Logger) []eligibleSet {
	orderTotal := OrderTotal(lines)
	out := make([]eligibleSet, 0, len(coupons))
	seen := make(map[int64]struct{}, len(coupons))
	for _, c := range coupons {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		strategy, err := strategyForCoupon(c)
		if err != nil {
			logger.Warn().Err(err).Int64("coupon_id", c.ID).Str("kind", c.Kind.String()).Msg("coupon excluded")
			recordInvalidCoupon()
			continue
		}
		if !strategy.Usable(orderTotal, c) {
			continue
		}
		available := lines
		if c.Specific {
			if scopes == nil {
				continue
			}
			bizIDs, err := scopes.ScopeBizIDs(ctx, c.ID)
			if err != nil {
				logger.Warn().Err(err).Int64("coupon_id", c.ID).Msg("scope lookup failed, coupon excluded")
				continue
			}
			available = linesInScope(lines, bizIDs)
		}
		if len(available) == 0 {
			continue
		}
		total := OrderTotal(available)
		if !strategy.Usable(total, c) {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, eligibleSet{coupon: c, strategy: strategy, lines: available, total: total})
	}
	return out
}

func linesInScope(lines []OrderLine, bizIDs []int64) []OrderLine {
	if len(bizIDs) == 0 {
		return nil
	}
	scope := make(map[int64]struct{}, len(bizIDs))
	for _, id := range bizIDs {
		scope[id] = struct{}{}
	}
	out := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		if _, ok := scope[l.BizID]; ok {
			out = append(out, l)
		}
	}
	return out
}

// capEligible keeps the k sets with the highest standalone discount.
// Ties are broken by coupon id so the cut is deterministic.
func capEligible(sets []eligibleSet, k int) ([]eligibleSet, []eligibleSet) {
	if k <= 0 || len(sets) <= k {
		return sets, nil
	}
	ranked := make([]eligibleSet, len(sets))
	copy(ranked, sets)
	sort.SliceStable(ranked, func(i, j int) bool {
		di := ranked[i].strategy.Discount(ranked[i].total, ranked[i].coupon)
		dj := ranked[j].strategy.Discount(ranked[j].total, ranked[j].coupon)
		if di != dj {
			return di > dj
		}
		return ranked[i].coupon.ID < ranked[j].coupon.ID
	})
	return ranked[:k], ranked[k:]
}
