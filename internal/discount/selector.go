package discount

import "sort"

// bestSolutions keeps solutions that are both the largest discount for their
// coupon set and the fewest coupons for their discount amount, sorted by
// discount descending. Solutions that discount nothing are dropped.
//
// Which of two equally good solutions survives depends on input order.
func bestSolutions(all []*Solution) []*Solution {
	moreDiscount := make(map[string]*Solution, len(all))
	lessCoupons := make(map[int64]*Solution, len(all))
	for _, sol := range all {
		if sol == nil || sol.DiscountAmount <= 0 || len(sol.IDs) == 0 {
			continue
		}
		key := sol.key()
		if best, ok := moreDiscount[key]; ok && best.DiscountAmount >= sol.DiscountAmount {
			continue
		}
		if best, ok := lessCoupons[sol.DiscountAmount]; ok && len(sol.IDs) > 1 && len(best.IDs) <= len(sol.IDs) {
			continue
		}
		moreDiscount[key] = sol
		lessCoupons[sol.DiscountAmount] = sol
	}

	kept := make(map[*Solution]struct{}, len(lessCoupons))
	for _, sol := range lessCoupons {
		kept[sol] = struct{}{}
	}
	out := make([]*Solution, 0, len(kept))
	for _, sol := range moreDiscount {
		if _, ok := kept[sol]; ok {
			out = append(out, sol)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DiscountAmount != out[j].DiscountAmount {
			return out[i].DiscountAmount > out[j].DiscountAmount
		}
		if len(out[i].IDs) != len(out[j].IDs) {
			return len(out[i].IDs) < len(out[j].IDs)
		}
		return out[i].key() < out[j].key()
	})
	return out
}
