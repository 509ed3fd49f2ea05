package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-promo/internal/discount"
)

// SeedCoupon is a coupon template plus the categories it is restricted to.
type SeedCoupon struct {
	Name   string
	Coupon discount.Coupon
	Scope  []int64
}

// SampleCoupons covers every discount kind, one of them category-scoped.
func SampleCoupons() []SeedCoupon {
	return []SeedCoupon{
		{Name: "20 off over 100", Coupon: discount.Coupon{Kind: discount.KindPrice, ThresholdAmount: 10000, DiscountValue: 2000}},
		{Name: "5 off anything", Coupon: discount.Coupon{Kind: discount.KindNoThreshold, DiscountValue: 500}},
		{Name: "10 off every 50", Coupon: discount.Coupon{Kind: discount.KindPerPrice, ThresholdAmount: 5000, DiscountValue: 1000, MaxDiscountAmount: 3000}},
		{Name: "10% off programming", Coupon: discount.Coupon{Kind: discount.KindRate, DiscountValue: 90, MaxDiscountAmount: 5000, Specific: true}, Scope: []int64{1}},
	}
}

// Seeder inserts coupons and hands them to a user.
type Seeder interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Seed inserts the coupons, their scopes and one unused user coupon each for
// userID, valid for the given term. It returns the new coupon ids in order.
func Seed(ctx context.Context, db Seeder, userID int64, coupons []SeedCoupon, term time.Duration) ([]int64, error) {
	ids := make([]int64, 0, len(coupons))
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		for _, sc := range coupons {
			var id int64
			c := sc.Coupon
			if err := tx.QueryRow(ctx, `
INSERT INTO coupon (name, discount_type, is_specific, discount_value, threshold_amount, max_discount_amount)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
				sc.Name, int16(c.Kind), c.Specific, c.DiscountValue, c.ThresholdAmount, c.MaxDiscountAmount,
			).Scan(&id); err != nil {
				return fmt.Errorf("insert coupon %q: %w", sc.Name, err)
			}
			for _, biz := range sc.Scope {
				if _, err := tx.Exec(ctx, `INSERT INTO coupon_scope (coupon_id, biz_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, biz); err != nil {
					return fmt.Errorf("insert coupon scope: %w", err)
				}
			}
			if _, err := tx.Exec(ctx, `
INSERT INTO user_coupon (user_id, coupon_id, status, term_begin_time, term_end_time)
VALUES ($1, $2, $3, $4, $5)`, userID, id, UserCouponStatusUnused, now, now.Add(term)); err != nil {
				return fmt.Errorf("insert user coupon: %w", err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repo: seed: %w", err)
	}
	return ids, nil
}
