package discount

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombinationsCountAndSingles(t *testing.T) {
	lines := []OrderLine{{ID: 1, Price: 5000}}
	var sets []eligibleSet
	for i := int64(1); i <= 3; i++ {
		sets = append(sets, mustSet(t, Coupon{ID: i, Kind: KindNoThreshold, DiscountValue: 10 * i}, lines))
	}

	combos := combinations(sets)

	// 3 singles + 6 pairs + 6 triples
	require.Len(t, combos, 15)
	require.Equal(t, permutationCount(3), len(combos))

	singles := map[int64]bool{}
	seen := map[string]bool{}
	for _, combo := range combos {
		ids := comboIDs(combo)
		if len(ids) == 1 {
			singles[ids[0]] = true
		}
		ordered := fmt.Sprint(ids)
		assert.False(t, seen[ordered], "duplicate combination %s", ordered)
		seen[ordered] = true
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true}, singles)
}

func TestCombinationsSingleCoupon(t *testing.T) {
	lines := []OrderLine{{ID: 1, Price: 100}}
	combos := combinations([]eligibleSet{mustSet(t, Coupon{ID: 7, Kind: KindNoThreshold, DiscountValue: 1}, lines)})
	require.Len(t, combos, 1)
	require.Equal(t, []int64{7}, comboIDs(combos[0]))
}

func TestCombinationsEmpty(t *testing.T) {
	require.Empty(t, combinations(nil))
}

func TestPermutationCount(t *testing.T) {
	assert.Equal(t, 0, permutationCount(0))
	assert.Equal(t, 1, permutationCount(1))
	assert.Equal(t, 4, permutationCount(2))
	assert.Equal(t, 325, permutationCount(5))
}
