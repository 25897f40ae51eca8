package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValue(t *testing.T) {
	for v := MinValue; v <= MaxValue; v++ {
		assert.NoError(t, ValidateValue(v))
	}
	for _, v := range []int{-1, 0, 6, 100} {
		assert.ErrorIs(t, ValidateValue(v), ErrInvalidValue)
	}
}

func TestApply(t *testing.T) {
	t.Run("floating point mean", func(t *testing.T) {
		agg := NewAggregate("1", "Title")

		agg, err := Apply(agg, 4)
		require.NoError(t, err)
		assert.Equal(t, 4.0, agg.Average)

		agg, err = Apply(agg, 2)
		require.NoError(t, err)
		assert.Equal(t, 3.0, agg.Average)

		agg, err = Apply(agg, 2)
		require.NoError(t, err)
		assert.InDelta(t, 8.0/3.0, agg.Average, 1e-9)
		assert.Equal(t, []int{4, 2, 2}, agg.Values)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		base := Aggregate{ID: "1", Values: make([]int, 1, 8)}
		base.Values[0] = 5

		_, err := Apply(base, 1)
		require.NoError(t, err)
		_, err = Apply(base, 3)
		require.NoError(t, err)

		assert.Equal(t, []int{5}, base.Values)
	})

	t.Run("rejects invalid value", func(t *testing.T) {
		_, err := Apply(NewAggregate("1", "T"), 6)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
}

func TestAverage_MatchesSumOverCount(t *testing.T) {
	sequences := [][]int{
		{1}, {5, 5, 5}, {1, 2, 3, 4, 5}, {3, 4}, {1, 1, 2},
	}
	for _, seq := range sequences {
		agg := NewAggregate("x", "x")
		sum := 0
		for _, v := range seq {
			var err error
			agg, err = Apply(agg, v)
			require.NoError(t, err)
			sum += v
		}
		assert.InDelta(t, float64(sum)/float64(len(seq)), agg.Average, 1e-9)
	}
	assert.Equal(t, 0.0, Average(nil))
}

func TestSelectTop(t *testing.T) {
	aggs := []Aggregate{
		{ID: "c", Average: 1},
		{ID: "b", Average: 3},
		{ID: "a", Average: 5},
	}

	t.Run("filters and orders", func(t *testing.T) {
		top := SelectTop(aggs, DefaultTopN, DefaultMinAverage)
		require.Len(t, top, 2)
		assert.Equal(t, "a", top[0].ID)
		assert.Equal(t, "b", top[1].ID)
	})

	t.Run("truncates to n", func(t *testing.T) {
		many := []Aggregate{
			{ID: "1", Average: 4}, {ID: "2", Average: 4.5}, {ID: "3", Average: 3},
			{ID: "4", Average: 5}, {ID: "5", Average: 2.9},
		}
		top := SelectTop(many, 3, 3.0)
		require.Len(t, top, 3)
		assert.Equal(t, []string{"4", "2", "1"}, []string{top[0].ID, top[1].ID, top[2].ID})
		for i := 1; i < len(top); i++ {
			assert.GreaterOrEqual(t, top[i-1].Average, top[i].Average)
		}
	})

	t.Run("ties broken by id", func(t *testing.T) {
		tied := []Aggregate{{ID: "z", Average: 4}, {ID: "m", Average: 4}, {ID: "a", Average: 4}}
		top := SelectTop(tied, 3, 3.0)
		assert.Equal(t, []string{"a", "m", "z"}, []string{top[0].ID, top[1].ID, top[2].ID})
	})

	t.Run("unrated books are excluded", func(t *testing.T) {
		top := SelectTop([]Aggregate{NewAggregate("x", "x")}, 3, 3.0)
		assert.Empty(t, top)
	})

	t.Run("input order untouched", func(t *testing.T) {
		SelectTop(aggs, 3, 0)
		assert.Equal(t, "c", aggs[0].ID)
	})

	t.Run("non-positive n", func(t *testing.T) {
		assert.Empty(t, SelectTop(aggs, 0, 0))
	})
}
