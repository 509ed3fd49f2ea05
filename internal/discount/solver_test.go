package discount

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCoupons struct {
	coupons []Coupon
	err     error
}

func (s stubCoupons) UserCoupons(_ context.Context, _ int64) ([]Coupon, error) {
	return s.coupons, s.err
}

func (s stubCoupons) UserCouponsByIDs(_ context.Context, _ int64, ids []int64) ([]Coupon, error) {
	if s.err != nil {
		return nil, s.err
	}
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []Coupon
	for _, c := range s.coupons {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

type stubScopes map[int64][]int64

func (s stubScopes) ScopeBizIDs(_ context.Context, couponID int64) ([]int64, error) {
	ids, ok := s[couponID]
	if !ok {
		return nil, errors.New("scope not found")
	}
	return ids, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []ResolvedEvent
}

func (r *recordingSink) DiscountResolved(_ context.Context, ev ResolvedEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func newTestSolver(t *testing.T, coupons []Coupon, scopes stubScopes, sink EventSink) *Solver {
	t.Helper()
	s, err := NewSolver(SolverConfig{
		Coupons:  stubCoupons{coupons: coupons},
		Scopes:   scopes,
		Pool:     NewPool(4, 999),
		Deadline: 2 * time.Second,
		Events:   sink,
	})
	require.NoError(t, err)
	return s
}

var twoLines = []OrderLine{{ID: 1, BizID: 1, Price: 1000}, {ID: 2, BizID: 1, Price: 500}}

func TestResolveSingleCoupon(t *testing.T) {
	s := newTestSolver(t, []Coupon{{ID: 1, Kind: KindPrice, ThresholdAmount: 1000, DiscountValue: 200}}, nil, nil)

	out, err := s.Resolve(context.Background(), 7, twoLines)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []int64{1}, out[0].IDs)
	assert.EqualValues(t, 200, out[0].DiscountAmount)
	assert.EqualValues(t, 133, out[0].Details[1])
	assert.EqualValues(t, 67, out[0].Details[2])
}

func TestResolveExcludesOutOfScopeCoupon(t *testing.T) {
	coupons := []Coupon{
		{ID: 1, Kind: KindPrice, ThresholdAmount: 1000, DiscountValue: 200},
		{ID: 2, Kind: KindRate, DiscountValue: 90, Specific: true},
	}
	s := newTestSolver(t, coupons, stubScopes{2: {2}}, nil)

	out, err := s.Resolve(context.Background(), 7, twoLines)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []int64{1}, out[0].IDs)
}

func TestResolveRanksCombinations(t *testing.T) {
	coupons := []Coupon{
		{ID: 1, Kind: KindPrice, ThresholdAmount: 1000, DiscountValue: 200},
		{ID: 2, Kind: KindPrice, ThresholdAmount: 1400, DiscountValue: 100},
	}
	sink := &recordingSink{}
	s := newTestSolver(t, coupons, nil, sink)

	out, err := s.Resolve(context.Background(), 7, twoLines)

	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []int64{2, 1}, out[0].IDs)
	assert.EqualValues(t, 300, out[0].DiscountAmount)
	assert.Equal(t, []int64{1}, out[1].IDs)
	assert.Equal(t, []int64{2}, out[2].IDs)

	total := OrderTotal(twoLines)
	for _, sol := range out {
		var sum int64
		for _, v := range sol.Details {
			sum += v
		}
		assert.Equal(t, sol.DiscountAmount, sum)
		assert.LessOrEqual(t, sol.DiscountAmount, total)
		assert.Len(t, sol.Rules, len(sol.IDs))
	}

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.EqualValues(t, 7, ev.UserID)
	assert.EqualValues(t, 1500, ev.OrderTotal)
	assert.Equal(t, 4, ev.Candidates)
	assert.EqualValues(t, 300, ev.BestDiscount)
	assert.NotEmpty(t, ev.ID)
}

func TestResolveNoEligibleCouponsReturnsEmpty(t *testing.T) {
	s := newTestSolver(t, []Coupon{{ID: 1, Kind: KindPrice, ThresholdAmount: 99999, DiscountValue: 1}}, nil, nil)

	out, err := s.Resolve(context.Background(), 7, twoLines)

	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestResolveSkipsInvalidCouponRule(t *testing.T) {
	coupons := []Coupon{
		{ID: 1, Kind: Kind(99), DiscountValue: 10},
		{ID: 2, Kind: KindNoThreshold, DiscountValue: 50},
	}
	s := newTestSolver(t, coupons, nil, nil)

	out, err := s.Resolve(context.Background(), 7, twoLines)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []int64{2}, out[0].IDs)
}

func TestResolveRejectsEmptyOrder(t *testing.T) {
	s := newTestSolver(t, nil, nil, nil)
	_, err := s.Resolve(context.Background(), 7, nil)
	require.ErrorIs(t, err, ErrInvalidOrder)
}

func TestResolvePropagatesStoreFailure(t *testing.T) {
	s, err := NewSolver(SolverConfig{Coupons: stubCoupons{err: errors.New("db down")}})
	require.NoError(t, err)
	_, err = s.Resolve(context.Background(), 7, twoLines)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidOrder)
}

func TestResolveCapsCouponCount(t *testing.T) {
	var coupons []Coupon
	for i := int64(1); i <= 4; i++ {
		coupons = append(coupons, Coupon{ID: i, Kind: KindNoThreshold, DiscountValue: i * 10})
	}
	sink := &recordingSink{}
	s, err := NewSolver(SolverConfig{Coupons: stubCoupons{coupons: coupons}, MaxCoupons: 2, Events: sink})
	require.NoError(t, err)

	out, err := s.Resolve(context.Background(), 7, twoLines)

	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, permutationCount(2), sink.events[0].Candidates)
	for _, sol := range out {
		for _, id := range sol.IDs {
			assert.Contains(t, []int64{3, 4}, id)
		}
	}
}

func TestCalculateAppliesGivenOrder(t *testing.T) {
	coupons := []Coupon{
		{ID: 1, Kind: KindPrice, ThresholdAmount: 1000, DiscountValue: 200},
		{ID: 2, Kind: KindPrice, ThresholdAmount: 1400, DiscountValue: 100},
	}
	s := newTestSolver(t, coupons, nil, nil)

	got, err := s.Calculate(context.Background(), 7, []int64{2, 1, 99}, twoLines)

	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, got.IDs)
	assert.EqualValues(t, 300, got.DiscountAmount)
	assert.EqualValues(t, 300, got.Details[1]+got.Details[2])

	got, err = s.Calculate(context.Background(), 7, []int64{1, 2}, twoLines)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got.IDs)
}

func TestCalculateWithoutCoupons(t *testing.T) {
	s := newTestSolver(t, nil, nil, nil)
	got, err := s.Calculate(context.Background(), 7, nil, twoLines)
	require.NoError(t, err)
	assert.Zero(t, got.DiscountAmount)
	assert.Len(t, got.Details, 2)
}

func TestNewSolverRequiresCouponSource(t *testing.T) {
	_, err := NewSolver(SolverConfig{})
	require.Error(t, err)
}
