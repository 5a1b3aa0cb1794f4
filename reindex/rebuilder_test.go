package reindex

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/researchgraph/ai/mock"
	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/similarity"
	"github.com/poiesic/researchgraph/storage"
	"github.com/poiesic/researchgraph/storage/badger"
)

func newRebuildFixture(t *testing.T) (storage.ItemRepository, *similarity.Index) {
	t.Helper()

	items, edges, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		edges.Close()
		items.Close()
		backend.Close()
	})

	index, err := similarity.NewIndex(items, edges)
	require.NoError(t, err)
	return items, index
}

func storeVectorless(t *testing.T, items storage.ItemRepository, url, title string) *core.CatalogItem {
	t.Helper()

	stored, err := items.Upsert(context.Background(), &core.CatalogItem{
		Id:        core.ItemID(core.KindPaper, url),
		Kind:      core.KindPaper,
		Title:     title,
		SourceURL: url,
		Analysis: core.Analysis{
			Summary:          "summary of " + title,
			RelevancyScore:   5,
			InterestingScore: 5,
		},
	})
	require.NoError(t, err)
	return stored
}

func testConfig() *Config {
	return &Config{
		BatchSize:      2,
		ReportInterval: 1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}
}

func TestRebuildEmbedsAllItems(t *testing.T) {
	items, index := newRebuildFixture(t)

	ids := []core.ID{
		storeVectorless(t, items, "https://arxiv.org/abs/1", "Paper one").Id,
		storeVectorless(t, items, "https://arxiv.org/abs/2", "Paper two").Id,
		storeVectorless(t, items, "https://arxiv.org/abs/3", "Paper three").Id,
	}

	var buf bytes.Buffer
	rebuilder, err := NewRebuilder(items, mock.NewMockEmbedder(), index, testConfig(), &buf)
	require.NoError(t, err)
	require.NoError(t, rebuilder.Run(context.Background()))

	for _, id := range ids {
		item, err := items.Get(context.Background(), id)
		require.NoError(t, err)
		assert.NotEmpty(t, item.Embedding)
	}

	// The edge phase ran against the fresh vectors, so the applied
	// revision caught up with the store.
	assert.Equal(t, items.Revision(), index.AppliedRevision())
	assert.Contains(t, buf.String(), "Rebuilding 3 items")
	assert.Contains(t, buf.String(), "Rebuild complete")
}

func TestRebuildEmptyStore(t *testing.T) {
	items, index := newRebuildFixture(t)

	var buf bytes.Buffer
	rebuilder, err := NewRebuilder(items, mock.NewMockEmbedder(), index, testConfig(), &buf)
	require.NoError(t, err)
	require.NoError(t, rebuilder.Run(context.Background()))
	assert.Contains(t, buf.String(), "No items found")
}

func TestRebuildRetriesTransientEmbedFailure(t *testing.T) {
	items, index := newRebuildFixture(t)
	storeVectorless(t, items, "https://arxiv.org/abs/1", "Paper one")

	embedder := mock.NewMockEmbedder()
	attempts := 0
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("transient")
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = mock.DeterministicVector(texts[i], 8)
		}
		return vectors, nil
	}

	var buf bytes.Buffer
	rebuilder, err := NewRebuilder(items, embedder, index, testConfig(), &buf)
	require.NoError(t, err)
	require.NoError(t, rebuilder.Run(context.Background()))
	assert.Equal(t, 2, attempts)
}

func TestRebuildFailsAfterRetriesExhausted(t *testing.T) {
	items, index := newRebuildFixture(t)
	storeVectorless(t, items, "https://arxiv.org/abs/1", "Paper one")

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("permanent")
	}

	var buf bytes.Buffer
	rebuilder, err := NewRebuilder(items, embedder, index, testConfig(), &buf)
	require.NoError(t, err)

	err = rebuilder.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate embeddings")
}

func TestRebuildRejectsCountMismatch(t *testing.T) {
	items, index := newRebuildFixture(t)
	storeVectorless(t, items, "https://arxiv.org/abs/1", "Paper one")

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{}, nil
	}

	var buf bytes.Buffer
	rebuilder, err := NewRebuilder(items, embedder, index, testConfig(), &buf)
	require.NoError(t, err)

	err = rebuilder.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding count mismatch")
}

func TestNewRebuilderRequiresDependencies(t *testing.T) {
	items, index := newRebuildFixture(t)
	embedder := mock.NewMockEmbedder()

	_, err := NewRebuilder(nil, embedder, index, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrItemRepositoryRequired)

	_, err = NewRebuilder(items, nil, index, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewRebuilder(items, embedder, nil, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrIndexRequired)
}
