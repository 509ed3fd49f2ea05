package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultDeadline   = 2 * time.Second
	defaultMaxCoupons = 5
)

// CouponSource loads the still-valid coupons a user holds.
type CouponSource interface {
	UserCoupons(ctx context.Context, userID int64) ([]Coupon, error)
	UserCouponsByIDs(ctx context.Context, userID int64, couponIDs []int64) ([]Coupon, error)
}

// ResolvedEvent summarises one resolution for downstream consumers.
type ResolvedEvent struct {
	ID               string    `json:"id"`
	UserID           int64     `json:"userId"`
	OrderTotal       int64     `json:"orderTotal"`
	Candidates       int       `json:"candidates"`
	Rejected         int       `json:"rejected"`
	Solutions        int       `json:"solutions"`
	BestDiscount     int64     `json:"bestDiscount"`
	BestCouponIDs    []int64   `json:"bestCouponIds,omitempty"`
	DeadlineExceeded bool      `json:"deadlineExceeded"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// EventSink receives resolution summaries. Implementations must not block.
type EventSink interface {
	DiscountResolved(ctx context.Context, ev ResolvedEvent)
}

// Solver finds the best coupon combinations for an order.
type Solver struct {
	coupons    CouponSource
	scopes     ScopeSource
	pool       *Pool
	deadline   time.Duration
	maxCoupons int
	events     EventSink
	logger     zerolog.Logger
	now        func() time.Time
}

// SolverConfig groups Solver dependencies.
type SolverConfig struct {
	Coupons CouponSource
	Scopes  ScopeSource
	// Pool defaults to NewPool(4, 999).
	Pool *Pool
	// Deadline bounds how long Resolve waits for evaluations. Defaults to 2s.
	Deadline time.Duration
	// MaxCoupons caps how many eligible coupons are combined. Defaults to 5.
	MaxCoupons int
	Events     EventSink
	Logger     *zerolog.Logger
	Now        func() time.Time
}

// NewSolver validates the configuration and constructs a Solver.
func NewSolver(cfg SolverConfig) (*Solver, error) {
	if cfg.Coupons == nil {
		return nil, errors.New("discount: coupon source is required")
	}
	s := &Solver{
		coupons:    cfg.Coupons,
		scopes:     cfg.Scopes,
		pool:       cfg.Pool,
		deadline:   cfg.Deadline,
		maxCoupons: cfg.MaxCoupons,
		events:     cfg.Events,
		logger:     zerolog.Nop(),
		now:        cfg.Now,
	}
	if s.pool == nil {
		s.pool = NewPool(4, 999)
	}
	if s.deadline <= 0 {
		s.deadline = defaultDeadline
	}
	if s.maxCoupons <= 0 {
		s.maxCoupons = defaultMaxCoupons
	}
	if cfg.Logger != nil {
		s.logger = cfg.Logger.With().Str("component", "discount_solver").Logger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Resolve returns the non-dominated coupon combinations for the user's order,
// best discount first. An order no coupon applies to yields an empty slice.
func (s *Solver) Resolve(ctx context.Context, userID int64, lines []OrderLine) ([]Solution, error) {
	started := time.Now()
	ctx, span := otel.Tracer("discount").Start(ctx, "discount.Resolve")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID), attribute.Int("order.lines", len(lines)))

	if err := ValidateOrder(lines); err != nil {
		recordResolve("bad_input", 0, started)
		return nil, err
	}
	coupons, err := s.coupons.UserCoupons(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load coupons")
		recordResolve("error", 0, started)
		return nil, fmt.Errorf("discount: load user coupons: %w", err)
	}
	logger := s.logger.With().Int64("user_id", userID).Logger()

	sets := filterEligible(ctx, s.scopes, coupons, lines, logger)
	sets, dropped := capEligible(sets, s.maxCoupons)
	if len(dropped) > 0 {
		logger.Debug().Ints64("coupon_ids", comboIDs(dropped)).Int("max_coupons", s.maxCoupons).Msg("coupons beyond cap not combined")
	}
	if len(sets) == 0 {
		recordResolve("empty", 0, started)
		s.publish(ctx, userID, lines, evalStats{}, nil)
		return []Solution{}, nil
	}

	combos := combinations(sets)
	collected, stats := evaluateAll(ctx, s.pool, s.deadline, lines, combos, logger)
	best := bestSolutions(collected)

	span.SetAttributes(
		attribute.Int("discount.candidates", stats.candidates),
		attribute.Int("discount.rejected", stats.rejected),
		attribute.Int("discount.solutions", len(best)),
		attribute.Bool("discount.deadline_exceeded", stats.deadlineExceeded),
	)
	logger.Debug().
		Int("eligible", len(sets)).
		Int("candidates", stats.candidates).
		Int("completed", stats.completed).
		Int("solutions", len(best)).
		Msg("discount resolved")

	out := make([]Solution, len(best))
	for i, sol := range best {
		out[i] = *sol
	}
	result := "ok"
	if stats.deadlineExceeded {
		result = "partial"
	}
	recordResolve(result, stats.candidates, started)
	s.publish(ctx, userID, lines, stats, out)
	return out, nil
}

// Calculate applies the given coupons in the given order and returns the
// resulting discount with its per-line breakdown. Coupons the user does not
// hold or that do not apply to the order are left out.
func (s *Solver) Calculate(ctx context.Context, userID int64, couponIDs []int64, lines []OrderLine) (Solution, error) {
	ctx, span := otel.Tracer("discount").Start(ctx, "discount.Calculate")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID), attribute.Int("order.lines", len(lines)), attribute.Int("coupons", len(couponIDs)))

	if err := ValidateOrder(lines); err != nil {
		return Solution{}, err
	}
	empty := Solution{IDs: []int64{}, Rules: []string{}, Details: zeroDetails(lines)}
	if len(couponIDs) == 0 {
		return empty, nil
	}
	coupons, err := s.coupons.UserCouponsByIDs(ctx, userID, couponIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load coupons")
		return Solution{}, fmt.Errorf("discount: load coupons by id: %w", err)
	}
	logger := s.logger.With().Int64("user_id", userID).Logger()
	sets := filterEligible(ctx, s.scopes, orderByIDs(coupons, couponIDs), lines, logger)
	if len(sets) == 0 {
		return empty, nil
	}
	sol := evaluate(lines, sets)
	span.SetAttributes(attribute.Int64("discount.amount", sol.DiscountAmount))
	return *sol, nil
}

func (s *Solver) publish(ctx context.Context, userID int64, lines []OrderLine, stats evalStats, best []Solution) {
	if s.events == nil {
		return
	}
	ev := ResolvedEvent{
		ID:               uuid.NewString(),
		UserID:           userID,
		OrderTotal:       OrderTotal(lines),
		Candidates:       stats.candidates,
		Rejected:         stats.rejected,
		Solutions:        len(best),
		DeadlineExceeded: stats.deadlineExceeded,
		OccurredAt:       s.now().UTC(),
	}
	if len(best) > 0 {
		ev.BestDiscount = best[0].DiscountAmount
		ev.BestCouponIDs = best[0].IDs
	}
	s.events.DiscountResolved(ctx, ev)
}

// orderByIDs arranges coupons in the order the caller listed their ids.
func orderByIDs(coupons []Coupon, ids []int64) []Coupon {
	byID := make(map[int64]Coupon, len(coupons))
	for _, c := range coupons {
		byID[c.ID] = c
	}
	out := make([]Coupon, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func zeroDetails(lines []OrderLine) map[int64]int64 {
	details := make(map[int64]int64, len(lines))
	for _, l := range lines {
		details[l.ID] = 0
	}
	return details
}
