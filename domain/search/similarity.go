package search

import "math"

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 (opposite) and 1 (identical).
// Returns 0 if either vector has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	// clamp rounding drift
	return math.Max(-1, math.Min(1, sim))
}

// CosineDistance returns 1 - CosineSimilarity(a, b).
func CosineDistance(a, b []float64) float64 {
	return 1 - CosineSimilarity(a, b)
}

// Match is a scored candidate identified by its sequence id.
type Match struct {
	id         int64
	similarity float64
}

// NewMatch creates a new Match.
func NewMatch(id int64, similarity float64) Match {
	return Match{id: id, similarity: similarity}
}

// ID returns the candidate id.
func (m Match) ID() int64 { return m.id }

// Similarity returns the similarity score.
func (m Match) Similarity() float64 { return m.similarity }

// CompareMatches orders by similarity descending, then id ascending.
func CompareMatches(a, b Match) int {
	switch {
	case a.similarity > b.similarity:
		return -1
	case a.similarity < b.similarity:
		return 1
	case a.id < b.id:
		return -1
	case a.id > b.id:
		return 1
	default:
		return 0
	}
}
