package rating

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

const (
	MinValue = 1
	MaxValue = 5

	// DefaultTopN and DefaultMinAverage parameterise the leaderboard.
	DefaultTopN       = 3
	DefaultMinAverage = 3.0
)

// ValidateValue accepts only integers in [MinValue, MaxValue].
func ValidateValue(v int) error {
	if v < MinValue || v > MaxValue {
		return ErrInvalidValue
	}
	return nil
}

// Average returns the arithmetic mean of values, or 0 when there are none.
func Average(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	return float64(lo.Sum(values)) / float64(len(values))
}

// Apply returns a copy of agg with v appended and the average recomputed.
// agg itself is left untouched so callers can retry with the stored copy.
func Apply(agg Aggregate, v int) (Aggregate, error) {
	if err := ValidateValue(v); err != nil {
		return Aggregate{}, err
	}
	values := make([]int, len(agg.Values), len(agg.Values)+1)
	copy(values, agg.Values)
	values = append(values, v)

	agg.Values = values
	agg.Average = Average(values)
	return agg, nil
}

// SelectTop keeps aggregates whose average is at least minAverage, orders them
// by average descending and returns at most n. Equal averages are ordered by
// ascending ID so the result does not depend on storage order.
func SelectTop(aggs []Aggregate, n int, minAverage float64) []Aggregate {
	if n <= 0 {
		return []Aggregate{}
	}
	eligible := lo.Filter(aggs, func(a Aggregate, _ int) bool {
		return a.Average >= minAverage
	})
	slices.SortFunc(eligible, func(a, b Aggregate) int {
		if c := cmp.Compare(b.Average, a.Average); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(eligible) > n {
		eligible = eligible[:n]
	}
	return eligible
}
