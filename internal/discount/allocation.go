package discount

// evaluate applies a combination in order and returns its Solution. Each
// coupon is re-checked against what is left on its lines after the coupons
// before it; coupons that no longer qualify are skipped.
func evaluate(lines []OrderLine, combo []eligibleSet) *Solution {
	sol := &Solution{
		IDs:     make([]int64, 0, len(combo)),
		Rules:   make([]string, 0, len(combo)),
		Details: make(map[int64]int64, len(lines)),
	}
	for _, l := range lines {
		sol.Details[l.ID] = 0
	}
	for _, set := range combo {
		base := remainingAmount(set.lines, sol.Details)
		if !set.strategy.Usable(base, set.coupon) {
			continue
		}
		amount := set.strategy.Discount(base, set.coupon)
		allocate(sol.Details, set.lines, base, amount)
		sol.IDs = append(sol.IDs, set.coupon.ID)
		sol.Rules = append(sol.Rules, set.strategy.Rule(set.coupon))
		sol.DiscountAmount += amount
	}
	return sol
}

func remainingAmount(lines []OrderLine, discounted map[int64]int64) int64 {
	var total int64
	for _, l := range lines {
		total += l.Price - discounted[l.ID]
	}
	return total
}

// allocate spreads amount over lines in proportion to each line's remaining
// price. Shares are truncated; the last line takes whatever is left so the
// shares always sum to amount.
func allocate(discounted map[int64]int64, lines []OrderLine, base, amount int64) {
	if len(lines) == 0 || amount <= 0 {
		return
	}
	left := amount
	for i, l := range lines {
		var share int64
		if i == len(lines)-1 {
			share = left
		} else if base > 0 {
			share = amount * (l.Price - discounted[l.ID]) / base
			left -= share
		}
		discounted[l.ID] += share
	}
}
