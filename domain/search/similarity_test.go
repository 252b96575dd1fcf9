package search

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"length mismatch", []float64{1}, []float64{1, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_SelfAndSymmetry(t *testing.T) {
	vectors := [][]float64{
		{0.3, -1.2, 4.5},
		{1e-3, 2e-3, 7},
		{-5, 0, 0.25},
	}
	for _, a := range vectors {
		assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
		for _, b := range vectors {
			assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
			sim := CosineSimilarity(a, b)
			assert.False(t, math.IsNaN(sim))
			assert.LessOrEqual(t, sim, 1.0)
			assert.GreaterOrEqual(t, sim, -1.0)
		}
	}
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 1.0, CosineDistance([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, 0.0, CosineDistance([]float64{2, 2}, []float64{1, 1}), 1e-9)
}

func TestCompareMatches(t *testing.T) {
	matches := []Match{
		NewMatch(3, 0.5),
		NewMatch(1, 0.9),
		NewMatch(2, 0.5),
		NewMatch(0, 0.1),
	}

	slices.SortFunc(matches, CompareMatches)

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID()
	}
	assert.Equal(t, []int64{1, 2, 3, 0}, ids)
	assert.Zero(t, CompareMatches(NewMatch(5, 0.2), NewMatch(5, 0.2)))
}
