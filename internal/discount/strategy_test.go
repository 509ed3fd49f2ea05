package discount

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyDiscounts(t *testing.T) {
	cases := []struct {
		name     string
		coupon   Coupon
		amount   int64
		usable   bool
		discount int64
	}{
		{"price over threshold", Coupon{ID: 1, Kind: KindPrice, ThresholdAmount: 1000, DiscountValue: 200}, 1500, true, 200},
		{"price below threshold", Coupon{ID: 1, Kind: KindPrice, ThresholdAmount: 1000, DiscountValue: 200}, 999, false, 200},
		{"price capped by amount", Coupon{ID: 1, Kind: KindPrice, DiscountValue: 500}, 300, true, 300},
		{"no threshold", Coupon{ID: 2, Kind: KindNoThreshold, DiscountValue: 100}, 50, true, 50},
		{"no threshold zero amount", Coupon{ID: 2, Kind: KindNoThreshold, DiscountValue: 100}, 0, false, 0},
		{"rate", Coupon{ID: 3, Kind: KindRate, DiscountValue: 90}, 1999, true, 199},
		{"rate capped", Coupon{ID: 3, Kind: KindRate, DiscountValue: 50, MaxDiscountAmount: 300}, 1000, true, 300},
		{"per price", Coupon{ID: 4, Kind: KindPerPrice, ThresholdAmount: 1000, DiscountValue: 100}, 3500, true, 300},
		{"per price capped", Coupon{ID: 4, Kind: KindPerPrice, ThresholdAmount: 1000, DiscountValue: 100, MaxDiscountAmount: 150}, 3500, true, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := StrategyFor(tc.coupon.Kind)
			require.NoError(t, err)
			assert.Equal(t, tc.usable, s.Usable(tc.amount, tc.coupon))
			got := s.Discount(tc.amount, tc.coupon)
			assert.Equal(t, tc.discount, got)
			assert.Equal(t, got, s.Discount(tc.amount, tc.coupon), "discount must be repeatable")
			assert.NotEmpty(t, s.Rule(tc.coupon))
		})
	}
}

func TestStrategyForUnknownKind(t *testing.T) {
	_, err := StrategyFor(Kind(42))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCouponRule))
}

func TestStrategyValidateRejectsBadParameters(t *testing.T) {
	for _, c := range []Coupon{
		{ID: 1, Kind: KindRate, DiscountValue: 100},
		{ID: 2, Kind: KindPerPrice, DiscountValue: 10},
		{ID: 3, Kind: KindPrice, DiscountValue: 0},
		{ID: 4, Kind: KindNoThreshold, DiscountValue: 10, MaxDiscountAmount: -1},
	} {
		_, err := strategyForCoupon(c)
		assert.ErrorIs(t, err, ErrInvalidCouponRule, "coupon %d", c.ID)
	}
}

func TestRuleText(t *testing.T) {
	s, err := StrategyFor(KindPrice)
	require.NoError(t, err)
	assert.Equal(t, "2.00 off orders over 10.00", s.Rule(Coupon{Kind: KindPrice, ThresholdAmount: 1000, DiscountValue: 200}))

	s, err = StrategyFor(KindRate)
	require.NoError(t, err)
	assert.Equal(t, "10% off, up to 5.00", s.Rule(Coupon{Kind: KindRate, DiscountValue: 90, MaxDiscountAmount: 500}))
}
