package discount

import (
	"fmt"
	"strconv"
)

// Kind tags the discount rule a coupon carries.
type Kind int

const (
	// KindPerPrice takes Value off for every Threshold spent.
	KindPerPrice Kind = 1
	// KindRate charges DiscountValue percent of the amount once the threshold is met.
	KindRate Kind = 2
	// KindNoThreshold takes Value off unconditionally.
	KindNoThreshold Kind = 3
	// KindPrice takes Value off once the threshold is met.
	KindPrice Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindPerPrice:
		return "per_price"
	case KindRate:
		return "rate"
	case KindNoThreshold:
		return "no_threshold"
	case KindPrice:
		return "price"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Strategy computes usability and discount for one coupon kind. Implementations are pure.
type Strategy interface {
	// Validate reports ErrInvalidCouponRule when the coupon parameters cannot be evaluated.
	Validate(c Coupon) error
	Usable(amount int64, c Coupon) bool
	Discount(amount int64, c Coupon) int64
	Rule(c Coupon) string
}

var strategies = map[Kind]Strategy{
	KindPerPrice:    perPriceStrategy{},
	KindRate:        rateStrategy{},
	KindNoThreshold: noThresholdStrategy{},
	KindPrice:       priceStrategy{},
}

// StrategyFor resolves the strategy for a coupon kind.
func StrategyFor(k Kind) (Strategy, error) {
	s, ok := strategies[k]
	if !ok {
		return nil, fmt.Errorf("%w: unknown discount kind %s", ErrInvalidCouponRule, k)
	}
	return s, nil
}

// strategyForCoupon resolves and validates in one step.
func strategyForCoupon(c Coupon) (Strategy, error) {
	s, err := StrategyFor(c.Kind)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(c); err != nil {
		return nil, err
	}
	return s, nil
}

func meetsThreshold(amount int64, c Coupon) bool {
	return amount > 0 && amount >= c.ThresholdAmount
}

func capDiscount(discount, amount int64, c Coupon) int64 {
	if c.MaxDiscountAmount > 0 && discount > c.MaxDiscountAmount {
		discount = c.MaxDiscountAmount
	}
	if discount > amount {
		discount = amount
	}
	if discount < 0 {
		return 0
	}
	return discount
}

func validateCommon(c Coupon) error {
	if c.DiscountValue <= 0 || c.ThresholdAmount < 0 || c.MaxDiscountAmount < 0 {
		return fmt.Errorf("%w: coupon %d has non-positive value or negative bounds", ErrInvalidCouponRule, c.ID)
	}
	return nil
}

type priceStrategy struct{}

func (priceStrategy) Validate(c Coupon) error { return validateCommon(c) }

func (priceStrategy) Usable(amount int64, c Coupon) bool { return meetsThreshold(amount, c) }

func (priceStrategy) Discount(amount int64, c Coupon) int64 {
	return capDiscount(c.DiscountValue, amount, Coupon{})
}

func (priceStrategy) Rule(c Coupon) string {
	return fmt.Sprintf("%s off orders over %s", formatMoney(c.DiscountValue), formatMoney(c.ThresholdAmount))
}

type noThresholdStrategy struct{}

func (noThresholdStrategy) Validate(c Coupon) error { return validateCommon(c) }

func (noThresholdStrategy) Usable(amount int64, _ Coupon) bool { return amount > 0 }

func (noThresholdStrategy) Discount(amount int64, c Coupon) int64 {
	return capDiscount(c.DiscountValue, amount, Coupon{})
}

func (noThresholdStrategy) Rule(c Coupon) string {
	return fmt.Sprintf("%s off, no minimum spend", formatMoney(c.DiscountValue))
}

type perPriceStrategy struct{}

func (perPriceStrategy) Validate(c Coupon) error {
	if err := validateCommon(c); err != nil {
		return err
	}
	if c.ThresholdAmount <= 0 {
		return fmt.Errorf("%w: coupon %d needs a positive step amount", ErrInvalidCouponRule, c.ID)
	}
	return nil
}

func (perPriceStrategy) Usable(amount int64, c Coupon) bool {
	return c.ThresholdAmount > 0 && meetsThreshold(amount, c)
}

func (perPriceStrategy) Discount(amount int64, c Coupon) int64 {
	if c.ThresholdAmount <= 0 {
		return 0
	}
	return capDiscount((amount/c.ThresholdAmount)*c.DiscountValue, amount, c)
}

func (perPriceStrategy) Rule(c Coupon) string {
	rule := fmt.Sprintf("%s off every %s spent", formatMoney(c.DiscountValue), formatMoney(c.ThresholdAmount))
	if c.MaxDiscountAmount > 0 {
		rule += ", up to " + formatMoney(c.MaxDiscountAmount)
	}
	return rule
}

type rateStrategy struct{}

func (rateStrategy) Validate(c Coupon) error {
	if err := validateCommon(c); err != nil {
		return err
	}
	if c.DiscountValue >= 100 {
		return fmt.Errorf("%w: coupon %d pay rate %d%% out of range", ErrInvalidCouponRule, c.ID, c.DiscountValue)
	}
	return nil
}

func (rateStrategy) Usable(amount int64, c Coupon) bool { return meetsThreshold(amount, c) }

func (rateStrategy) Discount(amount int64, c Coupon) int64 {
	if c.DiscountValue <= 0 || c.DiscountValue >= 100 {
		return 0
	}
	return capDiscount(amount*(100-c.DiscountValue)/100, amount, c)
}

func (rateStrategy) Rule(c Coupon) string {
	rule := fmt.Sprintf("%d%% off", 100-c.DiscountValue)
	if c.ThresholdAmount > 0 {
		rule += " orders over " + formatMoney(c.ThresholdAmount)
	}
	if c.MaxDiscountAmount > 0 {
		rule += ", up to " + formatMoney(c.MaxDiscountAmount)
	}
	return rule
}

// formatMoney renders minor units as a two-decimal amount.
func formatMoney(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
