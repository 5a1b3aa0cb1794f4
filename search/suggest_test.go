package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/researchgraph/core"
)

func TestSuggestSparseRejectsBlankQuery(t *testing.T) {
	items := newTestItems(t)
	engine, err := NewEngine(items, nil)
	require.NoError(t, err)

	_, err = engine.SuggestSparse(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrInvalidQuery)
}

func TestSuggestSparseEmptyCatalog(t *testing.T) {
	items := newTestItems(t)
	engine, err := NewEngine(items, nil)
	require.NoError(t, err)

	suggestions, err := engine.SuggestSparse(context.Background(), "quantum gravity")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Contains(t, suggestions[0], `"quantum gravity"`)
	assert.Contains(t, suggestions[0], "cataloguing mode")
}

func TestSuggestSparseMinesMissedTags(t *testing.T) {
	items := newTestItems(t)

	// None of these match the query, so their tags become candidates.
	storeItem(t, items, "https://arxiv.org/abs/1", "Paper one", "s", []string{"rl", "alignment"}, nil)
	storeItem(t, items, "https://arxiv.org/abs/2", "Paper two", "s", []string{"rl", "scaling"}, nil)
	storeItem(t, items, "https://arxiv.org/abs/3", "Paper three", "s", []string{"rl"}, nil)

	engine, err := NewEngine(items, nil)
	require.NoError(t, err)

	suggestions, err := engine.SuggestSparse(context.Background(), "quantum")
	require.NoError(t, err)
	require.Len(t, suggestions, 4)

	// Most common tag first, ties alphabetical, broadening hint last.
	assert.Contains(t, suggestions[0], `"rl"`)
	assert.Contains(t, suggestions[1], `"alignment"`)
	assert.Contains(t, suggestions[2], `"scaling"`)
	assert.True(t, strings.HasPrefix(suggestions[3], `Broaden "quantum"`))
}

func TestSuggestSparseSkipsReachableItems(t *testing.T) {
	items := newTestItems(t)

	// Both items are reachable from the query, one via its title and one
	// via its tag, so nothing is mined and only the broadening hint remains.
	storeItem(t, items, "https://arxiv.org/abs/1", "Quantum methods", "s", []string{"entanglement"}, nil)
	storeItem(t, items, "https://arxiv.org/abs/2", "Paper two", "s", []string{"quantum"}, nil)

	engine, err := NewEngine(items, nil)
	require.NoError(t, err)

	suggestions, err := engine.SuggestSparse(context.Background(), "quantum")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Contains(t, suggestions[0], "Broaden")
}
