package optimizer

import (
	"sort"

	"crypto-strategy-lab/internal/domain"
)

// Combinations returns the Cartesian product of ranges.
//
// Keys are visited in ascending name order and the first key is the
// outermost loop, so for {a: [1, 2], b: [3, 4]} the order is
// a=1,b=3; a=1,b=4; a=2,b=3; a=2,b=4. Empty ranges yield one empty
// combination; a key without values yields none.
func Combinations(ranges domain.ParameterRanges) []domain.ParameterCombination {
	keys := make([]string, 0, len(ranges))
	for k := range ranges {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []domain.ParameterCombination{{}}
	for _, k := range keys {
		values := ranges[k]
		next := make([]domain.ParameterCombination, 0, len(combos)*len(values))
		for _, c := range combos {
			for _, v := range values {
				nc := make(domain.ParameterCombination, len(c)+1)
				for ck, cv := range c {
					nc[ck] = cv
				}
				nc[k] = v
				next = append(next, nc)
			}
		}
		combos = next
	}
	return combos
}

// Count returns the number of combinations without generating them.
// Counting stops once the product exceeds limit; ok is false in that case
// and n is only a lower bound. A key without values gives 0 regardless of
// limit.
func Count(ranges domain.ParameterRanges, limit int) (n int, ok bool) {
	for _, values := range ranges {
		if len(values) == 0 {
			return 0, true
		}
	}
	n = 1
	for _, values := range ranges {
		if n > limit/len(values) {
			return limit + 1, false
		}
		n *= len(values)
	}
	return n, n <= limit
}
