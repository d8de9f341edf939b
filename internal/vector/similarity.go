// Package vector scores stored passages against a query vector and picks the best one.
package vector

import (
	"math"

	"github.com/hyperjump/kotae/internal/models"
)

// InnerProduct returns the raw dot product of a query vector and a stored
// vector of equal length, computed in float64. It is not normalized by
// magnitude. Mismatched or empty vectors return -Inf.
func InnerProduct(a []float32, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(-1)
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * b[i]
	}
	return dot
}

// Score returns the inner product of query and a stored embedding. A stored
// embedding that is not a non-empty numeric vector of the query's length,
// or a product that is NaN, scores -Inf so it is never selected.
func Score(query []float32, stored models.Embedding) float64 {
	if !stored.Valid() {
		return math.Inf(-1)
	}
	s := InnerProduct(query, stored.Values)
	if math.IsNaN(s) {
		return math.Inf(-1)
	}
	return s
}

// Scores returns one score per passage, in index order.
func Scores(query []float32, index models.EmbeddingIndex) []float64 {
	out := make([]float64, len(index))
	for i, p := range index {
		out[i] = Score(query, p.Embedding)
	}
	return out
}

// Best returns the passage with the maximum score. Ties go to the lowest
// index. An all -Inf index still yields a match at index 0.
func Best(query []float32, index models.EmbeddingIndex) (models.ScoredMatch, error) {
	if len(index) == 0 {
		return models.ScoredMatch{}, ErrEmptyIndex
	}
	best := 0
	bestScore := Score(query, index[0].Embedding)
	for i := 1; i < len(index); i++ {
		if s := Score(query, index[i].Embedding); s > bestScore {
			best, bestScore = i, s
		}
	}
	return models.ScoredMatch{Index: best, Passage: index[best], Score: bestScore}, nil
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
