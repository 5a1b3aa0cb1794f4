package similarity

import (
	"math"
	"strings"

	"github.com/poiesic/researchgraph/core"
)

// Compare scores the similarity between two items and reports the method
// used. Embedding cosine is preferred; when either item lacks a vector the
// comparison falls back to Jaccard overlap of the analysis tags. The score
// is symmetric in its arguments.
func Compare(a, b *core.CatalogItem) (float64, core.SimilarityMethod) {
	if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		return Cosine(a.Embedding, b.Embedding), core.MethodEmbeddingCosine
	}
	return tagJaccard(a.Analysis.Tags, b.Analysis.Tags), core.MethodTagJaccard
}

// Cosine calculates the cosine of the angle between two vectors.
// Mismatched lengths and zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// tagJaccard calculates |intersection| / |union| over case-folded tag sets.
// Two empty tag sets score 0, not 1.
func tagJaccard(a, b []string) float64 {
	setA := tagSet(a)
	setB := tagSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tag := range setA {
		if _, ok := setB[tag]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			set[tag] = struct{}{}
		}
	}
	return set
}
