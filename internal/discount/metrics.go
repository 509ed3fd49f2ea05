package discount

import (
	"time"

	"github.com/noah-isme/toko-promo/internal/obs"
)

func recordInvalidCoupon() {
	if obs.DiscountInvalidCouponTotal != nil {
		obs.DiscountInvalidCouponTotal.Inc()
	}
}

func recordRejected() {
	if obs.DiscountEvaluationRejectedTotal != nil {
		obs.DiscountEvaluationRejectedTotal.Inc()
	}
}

func recordDeadlineExceeded() {
	if obs.DiscountDeadlineExceededTotal != nil {
		obs.DiscountDeadlineExceededTotal.Inc()
	}
}

func recordResolve(result string, candidates int, started time.Time) {
	if obs.DiscountResolveTotal != nil {
		obs.DiscountResolveTotal.WithLabelValues(result).Inc()
	}
	if obs.DiscountResolveDuration != nil {
		obs.DiscountResolveDuration.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(started)))
	}
	if obs.DiscountCandidates != nil && candidates > 0 {
		obs.DiscountCandidates.Observe(float64(candidates))
	}
}
