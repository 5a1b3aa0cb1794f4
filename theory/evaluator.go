package theory

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/researchgraph/ai"
	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/search"
)

const (
	// DefaultMaxItems bounds how many retrieved items are judged per theory.
	DefaultMaxItems = 10

	// DefaultClassifyTimeout bounds each delegated stance call. A slow
	// model degrades one judgment to uncertain instead of stalling the
	// whole evaluation.
	DefaultClassifyTimeout = 30 * time.Second
)

// Evaluator judges a theory against the catalog's collected evidence.
type Evaluator struct {
	engine          *search.Engine
	classifier      ai.StanceClassifier
	maxItems        int
	classifyTimeout time.Duration
	sparseThreshold int
	logger          *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator) error

// WithMaxItems sets how many retrieved items are judged per evaluation.
func WithMaxItems(n int) Option {
	return func(e *Evaluator) error {
		if n > 0 {
			e.maxItems = n
		}
		return nil
	}
}

// WithClassifyTimeout sets the per-item stance call deadline.
func WithClassifyTimeout(d time.Duration) Option {
	return func(e *Evaluator) error {
		if d > 0 {
			e.classifyTimeout = d
		}
		return nil
	}
}

// WithSparseThreshold sets the result count below which the verdict
// carries follow-up suggestions.
func WithSparseThreshold(n int) Option {
	return func(e *Evaluator) error {
		if n >= 0 {
			e.sparseThreshold = n
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "theory-evaluator")
		return nil
	}
}

// NewEvaluator creates a theory evaluator over the search engine and
// stance classifier.
func NewEvaluator(engine *search.Engine, classifier ai.StanceClassifier, opts ...Option) (*Evaluator, error) {
	if engine == nil {
		return nil, ErrSearchEngineRequired
	}
	if classifier == nil {
		return nil, ErrClassifierRequired
	}

	e := &Evaluator{
		engine:          engine,
		classifier:      classifier,
		maxItems:        DefaultMaxItems,
		classifyTimeout: DefaultClassifyTimeout,
		sparseThreshold: search.DefaultSparseThreshold,
		logger:          slog.Default().With("component", "theory-evaluator"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Evaluate retrieves the items most relevant to the theory and judges
// each one's stance toward it. kind 0 means both papers and repositories.
// Every retrieved item yields exactly one judgment; a classifier failure
// or timeout degrades that item to uncertain with zero confidence rather
// than failing the evaluation. When fewer than the sparse threshold of
// items were retrieved the verdict carries follow-up suggestions.
// A blank theory returns core.ErrInvalidQuery.
func (e *Evaluator) Evaluate(ctx context.Context, theory string, kind core.ItemKind, maxItems int) (*core.TheoryVerdict, error) {
	if strings.TrimSpace(theory) == "" {
		return nil, core.ErrInvalidQuery
	}
	if maxItems <= 0 {
		maxItems = e.maxItems
	}

	results, err := e.engine.Search(ctx, theory, search.ModeSemantic, kind, maxItems)
	if err != nil {
		return nil, err
	}

	evidence := make([]*core.CatalogItem, 0, len(results))
	for _, result := range results {
		evidence = append(evidence, result.Item)
	}

	verdict := &core.TheoryVerdict{}
	for _, item := range evidence {
		judgment := e.judge(ctx, theory, item)
		switch judgment.Stance {
		case core.StanceAgree:
			verdict.Agree = append(verdict.Agree, judgment)
		case core.StanceDisagree:
			verdict.Disagree = append(verdict.Disagree, judgment)
		default:
			verdict.Uncertain = append(verdict.Uncertain, judgment)
		}
	}

	sortJudgments(verdict.Agree)
	sortJudgments(verdict.Disagree)
	sortJudgments(verdict.Uncertain)

	if len(evidence) < e.sparseThreshold {
		suggestions, err := e.engine.SuggestSparse(ctx, theory)
		if err != nil {
			e.logger.Warn("failed to build suggestions", "err", err)
		}
		verdict.Suggestions = suggestions
	}

	e.logger.Debug("evaluated theory",
		"judged", len(evidence),
		"agree", len(verdict.Agree),
		"disagree", len(verdict.Disagree),
		"uncertain", len(verdict.Uncertain))

	return verdict, nil
}

// judge classifies one item's stance under the per-call deadline.
func (e *Evaluator) judge(ctx context.Context, theory string, item *core.CatalogItem) core.StanceJudgment {
	callCtx, cancel := context.WithTimeout(ctx, e.classifyTimeout)
	defer cancel()

	stance, confidence, err := e.classifier.ClassifyStance(callCtx, theory, ai.Evidence{
		Title:       item.Title,
		Summary:     item.Analysis.Summary,
		KeyFindings: item.Analysis.KeyFindings,
	})
	if err != nil {
		e.logger.Warn("stance classification failed, marking uncertain",
			"id", item.Id,
			"err", err)
		stance = core.StanceUncertain
		confidence = 0
	}

	return core.StanceJudgment{
		ItemId:     item.Id,
		Title:      item.Title,
		Stance:     stance,
		Confidence: confidence,
	}
}

// sortJudgments orders by confidence descending, ties by item ID so the
// partitions are reproducible run to run.
func sortJudgments(judgments []core.StanceJudgment) {
	slices.SortFunc(judgments, func(a, b core.StanceJudgment) int {
		if a.Confidence != b.Confidence {
			if a.Confidence > b.Confidence {
				return -1
			}
			return 1
		}
		if a.ItemId < b.ItemId {
			return -1
		}
		if a.ItemId > b.ItemId {
			return 1
		}
		return 0
	})
}
