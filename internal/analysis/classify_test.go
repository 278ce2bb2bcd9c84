package analysis

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestABCClassification(t *testing.T) {
	items := []Item{
		{ID: "low", Value: 50},
		{ID: "high", Value: 800},
		{ID: "mid", Value: 150},
	}

	result, err := ABCClassification(items)
	require.NoError(t, err)
	require.Len(t, result.Items, 3)

	// Sorted descending: high (80%) -> A, mid (95%) -> B, low (100%) -> C.
	assert.Equal(t, "high", result.Items[0].ID)
	assert.Equal(t, "A", result.Items[0].Category)
	assert.Equal(t, "mid", result.Items[1].ID)
	assert.Equal(t, "B", result.Items[1].Category)
	assert.Equal(t, "low", result.Items[2].ID)
	assert.Equal(t, "C", result.Items[2].Category)

	assert.Equal(t, 1, result.Summary["A"].Count)
	assert.InDelta(t, 80.0, result.Summary["A"].ValueContribution, 1e-9)
	assert.InDelta(t, 1000.0, result.TotalValue, 1e-9)
}

func TestABCClassificationPartitions(t *testing.T) {
	items := make([]Item, 40)
	for i := range items {
		items[i] = Item{ID: fmt.Sprintf("sku-%d", i), Value: float64((i%7)*13 + 5)}
	}

	result, err := ABCClassification(items)
	require.NoError(t, err)

	// Exhaustive and disjoint: every item lands in exactly one category.
	counted := 0
	for _, cat := range []string{"A", "B", "C"} {
		counted += result.Summary[cat].Count
	}
	assert.Equal(t, len(items), counted)

	// Cumulative percentage is monotone and ends at 100.
	prev := 0.0
	for _, it := range result.Items {
		assert.Contains(t, []string{"A", "B", "C"}, it.Category)
		assert.GreaterOrEqual(t, it.CumulativePercentage, prev)
		prev = it.CumulativePercentage
	}
	assert.InDelta(t, 100.0, prev, 1e-9)
}

func TestABCClassificationEmptyInput(t *testing.T) {
	result, err := ABCClassification(nil)
	assert.Nil(t, result)

	var insufficientErr *InsufficientDataError
	assert.True(t, errors.As(err, &insufficientErr))
}

func TestABCClassificationZeroTotal(t *testing.T) {
	_, err := ABCClassification([]Item{{ID: "a", Value: 0}, {ID: "b", Value: 0}})

	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))
}

func TestParetoAnalysis(t *testing.T) {
	items := []Item{
		{ID: "mispicks", Value: 700},
		{ID: "damage", Value: 100},
		{ID: "shortage", Value: 150},
		{ID: "labeling", Value: 50},
	}

	result, err := ParetoAnalysis(items)
	require.NoError(t, err)

	// 700 is 70%, +150 crosses 80%, so only the top defect is vital.
	require.Len(t, result.VitalFew, 1)
	assert.Equal(t, "mispicks", result.VitalFew[0].ID)
	assert.Len(t, result.TrivialMany, 3)
	assert.Equal(t, 4, result.TotalItems)
	assert.InDelta(t, 70.0, result.VitalFewContribution, 1e-9)

	// Rank order preserved within partitions.
	assert.Equal(t, "shortage", result.TrivialMany[0].ID)
	assert.Equal(t, "damage", result.TrivialMany[1].ID)
	assert.Equal(t, "labeling", result.TrivialMany[2].ID)
}

func TestParetoVitalFewGrowsWithUniformity(t *testing.T) {
	skewed := []Item{
		{ID: "a", Value: 1000},
		{ID: "b", Value: 10},
		{ID: "c", Value: 10},
		{ID: "d", Value: 10},
		{ID: "e", Value: 10},
	}
	uniform := []Item{
		{ID: "a", Value: 100},
		{ID: "b", Value: 100},
		{ID: "c", Value: 100},
		{ID: "d", Value: 100},
		{ID: "e", Value: 100},
	}

	skewedResult, err := ParetoAnalysis(skewed)
	require.NoError(t, err)
	uniformResult, err := ParetoAnalysis(uniform)
	require.NoError(t, err)

	assert.LessOrEqual(t, skewedResult.VitalFewCount, uniformResult.VitalFewCount)
	assert.Greater(t, uniformResult.VitalFewCount, 1)
}

func TestParetoAnalysisEmptyInput(t *testing.T) {
	_, err := ParetoAnalysis([]Item{})
	assert.Error(t, err)
}
