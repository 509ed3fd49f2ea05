package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DiscountResolveTotal counts discount resolutions by outcome (ok, partial, empty, bad_input, error).
	DiscountResolveTotal *prometheus.CounterVec
	// DiscountResolveDuration records resolution latency in milliseconds.
	DiscountResolveDuration *prometheus.HistogramVec
	// DiscountCandidates records how many candidate combinations a resolution evaluated.
	DiscountCandidates prometheus.Histogram
	// DiscountEvaluationRejectedTotal counts candidates the worker pool refused.
	DiscountEvaluationRejectedTotal prometheus.Counter
	// DiscountDeadlineExceededTotal counts resolutions that returned before every candidate finished.
	DiscountDeadlineExceededTotal prometheus.Counter
	// DiscountInvalidCouponTotal counts coupons skipped because their rule parameters are malformed.
	DiscountInvalidCouponTotal prometheus.Counter
	// ScopeCacheTotal counts coupon scope cache lookups by result (hit, miss, error, bypass).
	ScopeCacheTotal *prometheus.CounterVec
	// DiscountEventsTotal counts resolution events handed to the broker by result.
	DiscountEventsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DiscountResolveTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_resolve_total",
			Help:      "Count of discount resolutions by outcome.",
		}, []string{"result"}))
		DiscountResolveDuration = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discount_resolve_duration_ms",
			Help:      "Latency of discount resolution in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000},
		}, []string{"result"}))
		DiscountCandidates = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discount_candidates",
			Help:      "Number of coupon combinations evaluated per resolution.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 325, 1000},
		}))
		DiscountEvaluationRejectedTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_evaluation_rejected_total",
			Help:      "Candidate evaluations rejected by a saturated worker pool.",
		}))
		DiscountDeadlineExceededTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_deadline_exceeded_total",
			Help:      "Resolutions that hit the evaluation deadline.",
		}))
		DiscountInvalidCouponTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_invalid_coupon_total",
			Help:      "Coupons skipped because of malformed rule parameters.",
		}))
		ScopeCacheTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_scope_cache_total",
			Help:      "Coupon scope cache lookups by result (hit, miss, error, bypass).",
		}, []string{"result"}))
		DiscountEventsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_events_total",
			Help:      "Resolution events produced to the broker by result.",
		}, []string{"result"}))
	})
}

// CountScopeCache records a scope cache lookup outcome when metrics are registered.
func CountScopeCache(result string) {
	if ScopeCacheTotal != nil {
		ScopeCacheTotal.WithLabelValues(result).Inc()
	}
}

// CountDiscountEvent records a broker produce outcome when metrics are registered.
func CountDiscountEvent(result string) {
	if DiscountEventsTotal != nil {
		DiscountEventsTotal.WithLabelValues(result).Inc()
	}
}
