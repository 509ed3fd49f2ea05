package repo

import (
	"context"
	"slices"

	"github.com/noah-isme/toko-promo/internal/discount"
)

// MemoryStore serves a fixed coupon list and scope table. promoctl uses it to
// resolve orders offline; every coupon is treated as held by every user.
type MemoryStore struct {
	Coupons []discount.Coupon
	Scopes  map[int64][]int64
}

// UserCoupons implements discount.CouponSource.
func (m *MemoryStore) UserCoupons(context.Context, int64) ([]discount.Coupon, error) {
	return slices.Clone(m.Coupons), nil
}

// UserCouponsByIDs implements discount.CouponSource.
func (m *MemoryStore) UserCouponsByIDs(_ context.Context, _ int64, couponIDs []int64) ([]discount.Coupon, error) {
	out := make([]discount.Coupon, 0, len(couponIDs))
	for _, c := range m.Coupons {
		if slices.Contains(couponIDs, c.ID) {
			out = append(out, c)
		}
	}
	return out, nil
}

// ScopeBizIDs implements discount.ScopeSource.
func (m *MemoryStore) ScopeBizIDs(_ context.Context, couponID int64) ([]int64, error) {
	return slices.Clone(m.Scopes[couponID]), nil
}
