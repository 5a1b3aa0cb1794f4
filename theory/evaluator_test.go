package theory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/researchgraph/ai"
	"github.com/poiesic/researchgraph/ai/mock"
	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/search"
	"github.com/poiesic/researchgraph/storage"
	"github.com/poiesic/researchgraph/storage/badger"
)

func newTestEngine(t *testing.T) (*search.Engine, storage.ItemRepository) {
	t.Helper()

	items, edges, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		edges.Close()
		items.Close()
		backend.Close()
	})

	engine, err := search.NewEngine(items, mock.NewMockEmbedder())
	require.NoError(t, err)
	return engine, items
}

func storeEvidence(t *testing.T, items storage.ItemRepository, kind core.ItemKind, url, title, summary string) *core.CatalogItem {
	t.Helper()

	stored, err := items.Upsert(context.Background(), &core.CatalogItem{
		Id:        core.ItemID(kind, url),
		Kind:      kind,
		Title:     title,
		SourceURL: url,
		Analysis: core.Analysis{
			Summary:          summary,
			RelevancyScore:   5,
			InterestingScore: 5,
		},
		Embedding: mock.DeterministicVector(title, 384),
	})
	require.NoError(t, err)
	return stored
}

func TestEvaluateRejectsBlankTheory(t *testing.T) {
	engine, _ := newTestEngine(t)
	evaluator, err := NewEvaluator(engine, mock.NewMockStanceClassifier())
	require.NoError(t, err)

	_, err = evaluator.Evaluate(context.Background(), "   ", 0, 0)
	assert.ErrorIs(t, err, core.ErrInvalidQuery)
}

func TestEvaluatePartitionsByStance(t *testing.T) {
	engine, items := newTestEngine(t)

	agree := storeEvidence(t, items, core.KindPaper,
		"https://arxiv.org/abs/1", "Paper one", "this paper supports the claim")
	disagree := storeEvidence(t, items, core.KindPaper,
		"https://arxiv.org/abs/2", "Paper two", "this paper contradicts the claim")
	unsure := storeEvidence(t, items, core.KindPaper,
		"https://arxiv.org/abs/3", "Paper three", "this paper is about something else")

	evaluator, err := NewEvaluator(engine, mock.NewMockStanceClassifier())
	require.NoError(t, err)

	verdict, err := evaluator.Evaluate(context.Background(), "scaling laws hold", 0, 0)
	require.NoError(t, err)

	require.Len(t, verdict.Agree, 1)
	require.Len(t, verdict.Disagree, 1)
	require.Len(t, verdict.Uncertain, 1)
	assert.Equal(t, agree.Id, verdict.Agree[0].ItemId)
	assert.Equal(t, disagree.Id, verdict.Disagree[0].ItemId)
	assert.Equal(t, unsure.Id, verdict.Uncertain[0].ItemId)
}

func TestEvaluateClassifierFailureDegradesToUncertain(t *testing.T) {
	engine, items := newTestEngine(t)

	bad := storeEvidence(t, items, core.KindPaper,
		"https://arxiv.org/abs/1", "Flaky paper", "this paper supports the claim")
	good := storeEvidence(t, items, core.KindPaper,
		"https://arxiv.org/abs/2", "Solid paper", "this paper supports the claim")

	classifier := mock.NewMockStanceClassifier()
	classifier.ClassifyStanceFunc = func(ctx context.Context, theory string, evidence ai.Evidence) (core.Stance, float64, error) {
		if evidence.Title == "Flaky paper" {
			return 0, 0, errors.New("model unavailable")
		}
		return core.StanceAgree, 0.8, nil
	}

	evaluator, err := NewEvaluator(engine, classifier)
	require.NoError(t, err)

	verdict, err := evaluator.Evaluate(context.Background(), "scaling laws hold", 0, 0)
	require.NoError(t, err)

	// Both items are judged; the failed one lands in uncertain with zero
	// confidence instead of aborting the evaluation.
	require.Len(t, verdict.Agree, 1)
	require.Len(t, verdict.Uncertain, 1)
	assert.Equal(t, good.Id, verdict.Agree[0].ItemId)
	assert.Equal(t, bad.Id, verdict.Uncertain[0].ItemId)
	assert.Zero(t, verdict.Uncertain[0].Confidence)
}

func TestEvaluateClassifierTimeout(t *testing.T) {
	engine, items := newTestEngine(t)

	storeEvidence(t, items, core.KindPaper,
		"https://arxiv.org/abs/1", "Slow paper", "this paper supports the claim")

	classifier := mock.NewMockStanceClassifier()
	classifier.ClassifyStanceFunc = func(ctx context.Context, theory string, evidence ai.Evidence) (core.Stance, float64, error) {
		<-ctx.Done()
		return 0, 0, ctx.Err()
	}

	evaluator, err := NewEvaluator(engine, classifier, WithClassifyTimeout(10*time.Millisecond))
	require.NoError(t, err)

	verdict, err := evaluator.Evaluate(context.Background(), "scaling laws hold", 0, 0)
	require.NoError(t, err)
	require.Len(t, verdict.Uncertain, 1)
	assert.Equal(t, core.StanceUncertain, verdict.Uncertain[0].Stance)
	assert.Zero(t, verdict.Uncertain[0].Confidence)
}

func TestEvaluateKindFilter(t *testing.T) {
	engine, items := newTestEngine(t)

	paper := storeEvidence(t, items, core.KindPaper,
		"https://arxiv.org/abs/1", "Paper", "this paper supports the claim")
	storeEvidence(t, items, core.KindRepository,
		"https://github.com/a/b", "Repo", "this repo supports the claim")

	classifier := mock.NewMockStanceClassifier()
	evaluator, err := NewEvaluator(engine, classifier)
	require.NoError(t, err)

	verdict, err := evaluator.Evaluate(context.Background(), "scaling laws hold", core.KindPaper, 0)
	require.NoError(t, err)
	require.Len(t, verdict.Agree, 1)
	assert.Equal(t, paper.Id, verdict.Agree[0].ItemId)
	assert.Empty(t, verdict.Disagree)
	assert.Empty(t, verdict.Uncertain)
	assert.Equal(t, 1, classifier.CallCount())
}

func TestEvaluateMaxItemsBoundsJudgments(t *testing.T) {
	engine, items := newTestEngine(t)

	urls := []string{
		"https://arxiv.org/abs/1",
		"https://arxiv.org/abs/2",
		"https://arxiv.org/abs/3",
		"https://arxiv.org/abs/4",
	}
	for _, url := range urls {
		storeEvidence(t, items, core.KindPaper, url, "Paper "+url, "this paper supports the claim")
	}

	classifier := mock.NewMockStanceClassifier()
	evaluator, err := NewEvaluator(engine, classifier)
	require.NoError(t, err)

	verdict, err := evaluator.Evaluate(context.Background(), "scaling laws hold", 0, 2)
	require.NoError(t, err)
	assert.Len(t, verdict.Agree, 2)
	assert.Equal(t, 2, classifier.CallCount())
}

func TestEvaluateSparseEvidenceCarriesSuggestions(t *testing.T) {
	engine, items := newTestEngine(t)

	storeEvidence(t, items, core.KindPaper,
		"https://arxiv.org/abs/1", "Only paper", "this paper supports the claim")

	evaluator, err := NewEvaluator(engine, mock.NewMockStanceClassifier())
	require.NoError(t, err)

	verdict, err := evaluator.Evaluate(context.Background(), "scaling laws hold", 0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, verdict.Suggestions)
}

func TestEvaluateAmpleEvidenceOmitsSuggestions(t *testing.T) {
	engine, items := newTestEngine(t)

	for _, url := range []string{
		"https://arxiv.org/abs/1",
		"https://arxiv.org/abs/2",
		"https://arxiv.org/abs/3",
	} {
		storeEvidence(t, items, core.KindPaper, url, "Paper "+url, "this paper supports the claim")
	}

	evaluator, err := NewEvaluator(engine, mock.NewMockStanceClassifier())
	require.NoError(t, err)

	verdict, err := evaluator.Evaluate(context.Background(), "scaling laws hold", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, verdict.Suggestions)
}

func TestEvaluateJudgmentOrdering(t *testing.T) {
	engine, items := newTestEngine(t)

	for _, url := range []string{"https://arxiv.org/abs/1", "https://arxiv.org/abs/2", "https://arxiv.org/abs/3"} {
		storeEvidence(t, items, core.KindPaper, url, "Paper "+url, "summary")
	}

	confidences := map[string]float64{
		"Paper https://arxiv.org/abs/1": 0.4,
		"Paper https://arxiv.org/abs/2": 0.9,
		"Paper https://arxiv.org/abs/3": 0.6,
	}
	classifier := mock.NewMockStanceClassifier()
	classifier.ClassifyStanceFunc = func(ctx context.Context, theory string, evidence ai.Evidence) (core.Stance, float64, error) {
		return core.StanceAgree, confidences[evidence.Title], nil
	}

	evaluator, err := NewEvaluator(engine, classifier)
	require.NoError(t, err)

	verdict, err := evaluator.Evaluate(context.Background(), "scaling laws hold", 0, 0)
	require.NoError(t, err)
	require.Len(t, verdict.Agree, 3)
	assert.InDelta(t, 0.9, verdict.Agree[0].Confidence, 1e-9)
	assert.InDelta(t, 0.6, verdict.Agree[1].Confidence, 1e-9)
	assert.InDelta(t, 0.4, verdict.Agree[2].Confidence, 1e-9)
}

func TestNewEvaluatorRequiresDependencies(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := NewEvaluator(nil, mock.NewMockStanceClassifier())
	assert.ErrorIs(t, err, ErrSearchEngineRequired)

	_, err = NewEvaluator(engine, nil)
	assert.ErrorIs(t, err, ErrClassifierRequired)
}
