// Package vector holds the VectorIndex adapters.
//
//   - memory: brute-force cosine search, used by tests and --ephemeral runs
//   - qdrant: Qdrant REST API
//
// The SQLite-backed index lives with the other SQLite stores in
// storage/sqlite. Every adapter shares Cosine and Rank so scores and
// tie-breaking agree across backends.
package vector

import (
	"math"
	"sort"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank orders hits by descending score then ascending chunk ID and keeps at most k.
func Rank(hits []domain.VectorHit, k int) []domain.VectorHit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
