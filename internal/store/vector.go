package store

import (
	"math"
	"sort"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// rankSections returns up to k sections ordered by similarity to query.
// Sections without an embedding are skipped. Ties keep report order.
func rankSections(sections []domain.Section, query []float32, k int) []domain.Section {
	type scored struct {
		s     domain.Section
		score float64
	}
	var candidates []scored
	for _, s := range sections {
		if len(s.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{s: s, score: cosineSimilarity(s.Embedding, query)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]domain.Section, len(candidates))
	for i, c := range candidates {
		out[i] = c.s
	}
	return out
}
