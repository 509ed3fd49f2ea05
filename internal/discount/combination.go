package discount

// combinations returns every ordered arrangement of two or more sets followed
// by each set on its own. Order matters because each coupon in a chain sees
// the amount left by the ones before it. The count grows factorially with
// len(sets); callers cap the input first.
func combinations(sets []eligibleSet) [][]eligibleSet {
	n := len(sets)
	if n == 0 {
		return nil
	}
	out := make([][]eligibleSet, 0, permutationCount(n))
	used := make([]bool, n)
	chain := make([]eligibleSet, 0, n)

	var walk func()
	walk = func() {
		if len(chain) >= 2 {
			combo := make([]eligibleSet, len(chain))
			copy(combo, chain)
			out = append(out, combo)
		}
		if len(chain) == n {
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			chain = append(chain, sets[i])
			walk()
			chain = chain[:len(chain)-1]
			used[i] = false
		}
	}
	walk()

	for _, s := range sets {
		out = append(out, []eligibleSet{s})
	}
	return out
}

// permutationCount is the number of non-empty ordered arrangements of n items.
func permutationCount(n int) int {
	total, term := 0, 1
	for k := 1; k <= n; k++ {
		term *= n - k + 1
		total += term
	}
	return total
}
