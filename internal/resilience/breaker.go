package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned by Do when the breaker refuses a call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a Breaker. Zero values take the defaults noted per field.
type BreakerConfig struct {
	// Name labels metrics and logs. Defaults to "default".
	Name string
	// MinRequests observed before the ratio is evaluated. Defaults to 5.
	MinRequests int
	// FailureRatio at or above which the breaker opens. Defaults to 0.5.
	FailureRatio float64
	// OpenFor is the cool-off before a half-open probe. Defaults to 30s.
	OpenFor time.Duration
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Breaker is a failure-ratio circuit breaker. The scope cache uses one so a
// Redis outage costs one failed dial per cool-off instead of one per coupon.
type Breaker struct {
	mu        sync.Mutex
	cfg       BreakerConfig
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

// NewBreaker applies defaults and returns a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = 5
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = 0.5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	b := &Breaker{cfg: cfg}
	b.recordState()
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. After the cool-off exactly one
// caller is let through as the half-open probe.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.OpenFor {
			return false
		}
		b.transition(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of an allowed call.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transition(ctx, Closed)
		} else {
			b.transition(ctx, Open)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.cfg.MinRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.cfg.FailureRatio {
		b.transition(ctx, Open)
		return
	}
	if total > b.cfg.MinRequests*2 {
		// halve the window so old successes do not mask a fresh outage
		b.successes = (b.successes + 1) / 2
		b.failures = (b.failures + 1) / 2
	}
}

// Do runs fn when allowed and reports its outcome. Errors matched by
// ignore count as successes, e.g. a cache miss.
func (b *Breaker) Do(ctx context.Context, fn func() error, ignore ...error) error {
	if !b.Allow(ctx) {
		return ErrOpenCircuit
	}
	err := fn()
	success := err == nil
	for _, target := range ignore {
		if errors.Is(err, target) {
			success = true
		}
	}
	b.Report(ctx, success)
	return err
}

func (b *Breaker) transition(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.failures, b.successes = 0, 0
	switch next {
	case Open:
		b.openedAt = b.cfg.Now()
		BreakerOpenedTotal.WithLabelValues(b.cfg.Name).Inc()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.recordState()

	evt := b.cfg.Logger.Info().Str("target", b.cfg.Name).Str("from_state", prev.String()).Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) recordState() {
	BreakerState.WithLabelValues(b.cfg.Name).Set(float64(b.state))
}

var (
	// BreakerState is 0 closed, 1 open, 2 half-open.
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "breaker_state",
		Help: "Current breaker state: 0=closed,1=open,2=half-open",
	}, []string{"target"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "breaker_open_total",
		Help: "Number of times a breaker opened",
	}, []string{"target"})
)

// MustRegisterMetrics registers the breaker collectors, tolerating repeats.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{BreakerState, BreakerOpenedTotal} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}
