package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-promo/internal/resilience"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newBreaker(c *clock, name string) *resilience.Breaker {
	return resilience.NewBreaker(resilience.BreakerConfig{
		Name:         name,
		MinRequests:  2,
		FailureRatio: 0.5,
		OpenFor:      time.Second,
		Now:          c.Now,
	})
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Unix(0, 0)}
	b := newBreaker(c, "recover")

	b.Report(ctx, false)
	require.Equal(t, resilience.Closed, b.State())
	b.Report(ctx, false)
	require.Equal(t, resilience.Open, b.State())
	require.False(t, b.Allow(ctx))

	c.now = c.now.Add(time.Second)
	require.True(t, b.Allow(ctx))
	require.Equal(t, resilience.HalfOpen, b.State())
	require.False(t, b.Allow(ctx), "only one probe while half-open")

	b.Report(ctx, true)
	require.Equal(t, resilience.Closed, b.State())
	require.Equal(t, 0.0, testutil.ToFloat64(resilience.BreakerState.WithLabelValues("recover")))
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Unix(0, 0)}
	b := newBreaker(c, "reopen")
	before := testutil.ToFloat64(resilience.BreakerOpenedTotal.WithLabelValues("reopen"))

	b.Report(ctx, false)
	b.Report(ctx, false)
	c.now = c.now.Add(time.Second)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)

	require.Equal(t, resilience.Open, b.State())
	require.Equal(t, before+2, testutil.ToFloat64(resilience.BreakerOpenedTotal.WithLabelValues("reopen")))
}

func TestBreakerDo(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Unix(0, 0)}
	b := newBreaker(c, "do")
	miss := errors.New("miss")

	require.ErrorIs(t, b.Do(ctx, func() error { return miss }, miss), miss)
	require.ErrorIs(t, b.Do(ctx, func() error { return miss }, miss), miss)
	require.Equal(t, resilience.Closed, b.State(), "ignored errors count as success")

	boom := errors.New("boom")
	_ = b.Do(ctx, func() error { return boom })
	_ = b.Do(ctx, func() error { return boom })
	_ = b.Do(ctx, func() error { return boom })
	require.Equal(t, resilience.Open, b.State())

	called := false
	err := b.Do(ctx, func() error { called = true; return nil })
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.False(t, called)
}

func TestMustRegisterMetricsTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	resilience.MustRegisterMetrics(reg)
	require.NotPanics(t, func() { resilience.MustRegisterMetrics(reg) })
}
