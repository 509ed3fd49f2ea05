package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/toko-promo/internal/discount"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserCouponStatusUnused marks a user coupon that can still be redeemed.
const UserCouponStatusUnused = 1

const couponColumns = `c.id, c.discount_type, c.is_specific, c.discount_value, c.threshold_amount, c.max_discount_amount`

const listUsableCoupons = `
SELECT DISTINCT ` + couponColumns + `
FROM user_coupon uc
JOIN coupon c ON c.id = uc.coupon_id
WHERE uc.user_id = $1
  AND uc.status = $2
  AND (uc.term_begin_time IS NULL OR uc.term_begin_time <= $3)
  AND (uc.term_end_time IS NULL OR uc.term_end_time > $3)
ORDER BY c.id`

const listUsableCouponsByIDs = `
SELECT DISTINCT ` + couponColumns + `
FROM user_coupon uc
JOIN coupon c ON c.id = uc.coupon_id
WHERE uc.user_id = $1
  AND uc.status = $2
  AND (uc.term_begin_time IS NULL OR uc.term_begin_time <= $3)
  AND (uc.term_end_time IS NULL OR uc.term_end_time > $3)
  AND c.id = ANY($4)
ORDER BY c.id`

const listScopeBizIDs = `SELECT biz_id FROM coupon_scope WHERE coupon_id = $1 ORDER BY biz_id`

// CouponStore reads a user's unused, in-term coupons and coupon scopes from Postgres.
type CouponStore struct {
	db  DBTX
	now func() time.Time
}

// NewCouponStore constructs a CouponStore over the given connection.
func NewCouponStore(db DBTX) *CouponStore {
	return &CouponStore{db: db, now: time.Now}
}

// UserCoupons implements discount.CouponSource.
func (s *CouponStore) UserCoupons(ctx context.Context, userID int64) ([]discount.Coupon, error) {
	rows, err := s.db.Query(ctx, listUsableCoupons, userID, UserCouponStatusUnused, s.now())
	if err != nil {
		return nil, fmt.Errorf("repo: list user coupons: %w", err)
	}
	return scanCoupons(rows)
}

// UserCouponsByIDs implements discount.CouponSource.
func (s *CouponStore) UserCouponsByIDs(ctx context.Context, userID int64, couponIDs []int64) ([]discount.Coupon, error) {
	if len(couponIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, listUsableCouponsByIDs, userID, UserCouponStatusUnused, s.now(), couponIDs)
	if err != nil {
		return nil, fmt.Errorf("repo: list user coupons by id: %w", err)
	}
	return scanCoupons(rows)
}

// ScopeBizIDs implements discount.ScopeSource.
func (s *CouponStore) ScopeBizIDs(ctx context.Context, couponID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx, listScopeBizIDs, couponID)
	if err != nil {
		return nil, fmt.Errorf("repo: list coupon scope: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("repo: scan coupon scope: %w", err)
	}
	return ids, nil
}

func scanCoupons(rows pgx.Rows) ([]discount.Coupon, error) {
	coupons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (discount.Coupon, error) {
		var (
			c    discount.Coupon
			kind int16
		)
		err := row.Scan(&c.ID, &kind, &c.Specific, &c.DiscountValue, &c.ThresholdAmount, &c.MaxDiscountAmount)
		c.Kind = discount.Kind(kind)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("repo: scan coupons: %w", err)
	}
	return coupons, nil
}
