package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/researchgraph/core"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0, 0}, []float32{2, 0, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 2}, []float32{-1, -2}), 1e-9)
}

func TestCosineDegenerate(t *testing.T) {
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
}

func TestTagJaccard(t *testing.T) {
	assert.InDelta(t, 1.0/3.0, tagJaccard([]string{"rl", "alignment"}, []string{"rl", "scaling"}), 1e-9)
	assert.InDelta(t, 1.0, tagJaccard([]string{"RL", " alignment "}, []string{"alignment", "rl"}), 1e-9)
	assert.Zero(t, tagJaccard(nil, nil))
	assert.Zero(t, tagJaccard([]string{"rl"}, nil))
	assert.Zero(t, tagJaccard([]string{""}, []string{"rl"}))
}

func TestCompareMethodSelection(t *testing.T) {
	withVector := &core.CatalogItem{
		Embedding: []float32{1, 0},
		Analysis:  core.Analysis{Tags: []string{"rl"}},
	}
	withoutVector := &core.CatalogItem{
		Analysis: core.Analysis{Tags: []string{"rl", "scaling"}},
	}

	weight, method := Compare(withVector, withVector)
	assert.Equal(t, core.MethodEmbeddingCosine, method)
	assert.InDelta(t, 1.0, weight, 1e-9)

	weight, method = Compare(withVector, withoutVector)
	assert.Equal(t, core.MethodTagJaccard, method)
	assert.InDelta(t, 0.5, weight, 1e-9)
}

func TestCompareSymmetric(t *testing.T) {
	a := &core.CatalogItem{Analysis: core.Analysis{Tags: []string{"rl", "alignment", "scaling"}}}
	b := &core.CatalogItem{Analysis: core.Analysis{Tags: []string{"rl", "evaluation"}}}

	ab, _ := Compare(a, b)
	ba, _ := Compare(b, a)
	assert.Equal(t, ab, ba)
}
