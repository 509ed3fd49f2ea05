package discount

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidCouponRule indicates a coupon carries an unknown discount kind or out-of-range parameters.
	ErrInvalidCouponRule = errors.New("discount: invalid coupon rule")
	// ErrEvaluationRejected is returned when the evaluation pool is saturated.
	ErrEvaluationRejected = errors.New("discount: evaluation rejected")
	// ErrInvalidOrder signals malformed caller input such as an empty line list.
	ErrInvalidOrder = errors.New("discount: invalid order")
)

// Coupon is a discount rule held by a user. It is read-only for the duration of a resolution.
type Coupon struct {
	ID                int64 `json:"id"`
	Kind              Kind  `json:"discountType"`
	Specific          bool  `json:"specific"`
	DiscountValue     int64 `json:"discountValue"`
	ThresholdAmount   int64 `json:"thresholdAmount"`
	MaxDiscountAmount int64 `json:"maxDiscountAmount"`
}

// OrderLine is one priced item of an order. Prices are minor currency units.
type OrderLine struct {
	ID    int64 `json:"id" validate:"required"`
	BizID int64 `json:"cateId"`
	Price int64 `json:"price" validate:"gte=0"`
}

// Solution is the evaluated outcome of applying one coupon combination.
type Solution struct {
	IDs            []int64         `json:"ids"`
	Rules          []string        `json:"rules"`
	DiscountAmount int64           `json:"discountAmount"`
	Details        map[int64]int64 `json:"-"`
}

// key returns the order-independent identity of the coupon set.
func (s *Solution) key() string {
	ids := make([]int64, len(s.IDs))
	copy(ids, s.IDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// eligibleSet pairs a coupon with the order lines it may discount.
type eligibleSet struct {
	coupon   Coupon
	strategy Strategy
	lines    []OrderLine
	total    int64
}

// OrderTotal sums the line prices.
func OrderTotal(lines []OrderLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Price
	}
	return total
}

// ValidateOrder rejects empty orders, negative prices and duplicate line ids.
func ValidateOrder(lines []OrderLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: order has no lines", ErrInvalidOrder)
	}
	seen := make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		if l.Price < 0 {
			return fmt.Errorf("%w: line %d has a negative price", ErrInvalidOrder, l.ID)
		}
		if _, dup := seen[l.ID]; dup {
			return fmt.Errorf("%w: duplicate line id %d", ErrInvalidOrder, l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	return nil
}
