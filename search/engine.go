package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/researchgraph/ai"
	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/similarity"
	"github.com/poiesic/researchgraph/storage"
)

// Mode selects the ranking strategy for a search.
type Mode int

const (
	// ModeText ranks by weighted token overlap against title, tags, and summary.
	ModeText Mode = iota + 1
	// ModeSemantic ranks by cosine similarity between the embedded query
	// and item embeddings. Falls back to text ranking when the embedder
	// is unavailable.
	ModeSemantic
)

// String returns the mode name for flags and logs.
func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeSemantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ModeText, nil
	case "semantic":
		return ModeSemantic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Weighted field contributions for text ranking. Title matches count
// double, tags sit in between, summary matches count single.
const (
	titleWeight   = 2.0
	tagsWeight    = 1.5
	summaryWeight = 1.0
	totalWeight   = titleWeight + tagsWeight + summaryWeight
)

// DefaultSparseThreshold is the result count below which callers should
// ask for follow-up suggestions.
const DefaultSparseThreshold = 3

// Engine ranks catalog items against free-text queries.
type Engine struct {
	items    storage.ItemRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "search-engine")
		return nil
	}
}

// NewEngine creates a search engine. The embedder may be nil, in which
// case semantic searches silently degrade to text ranking.
func NewEngine(items storage.ItemRepository, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}

	e := &Engine{
		items:    items,
		embedder: embedder,
		logger:   slog.Default().With("component", "search-engine"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Search ranks items against the query and returns up to limit results
// with positive scores, best first. kind 0 means no kind filter; a
// non-zero kind restricts candidates before ranking. Results order is
// reproducible: score descending, ties broken by more recent IngestedAt,
// then by ID. A blank query returns core.ErrInvalidQuery.
func (e *Engine) Search(ctx context.Context, query string, mode Mode, kind core.ItemKind, limit int) ([]*core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrInvalidQuery
	}

	items, err := e.items.All(ctx)
	if err != nil {
		return nil, err
	}

	if kind != 0 {
		filtered := make([]*core.CatalogItem, 0, len(items))
		for _, item := range items {
			if item.Kind == kind {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	var results []*core.SearchResult
	switch mode {
	case ModeText:
		results = e.rankByText(query, items)
	case ModeSemantic:
		results = e.rankSemantic(ctx, query, items)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, mode)
	}

	sortResults(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	e.logger.Debug("search complete",
		"mode", mode.String(),
		"candidates", len(items),
		"results", len(results))

	return results, nil
}

// rankByText scores every item by weighted token overlap.
func (e *Engine) rankByText(query string, items []*core.CatalogItem) []*core.SearchResult {
	queryTokens := tokenizeAndFilter(query)
	results := make([]*core.SearchResult, 0, len(items))

	for _, item := range items {
		score := textScore(queryTokens, item)
		if score <= 0 {
			continue
		}
		results = append(results, &core.SearchResult{Item: item, Score: score})
	}
	return results
}

// rankSemantic embeds the query and scores items by cosine similarity.
// Items without embeddings cannot be ranked semantically and are skipped.
// Embedder failure degrades the whole search to text ranking.
func (e *Engine) rankSemantic(ctx context.Context, query string, items []*core.CatalogItem) []*core.SearchResult {
	if e.embedder == nil {
		e.logger.Debug("no embedder configured, using text ranking")
		return e.rankByText(query, items)
	}

	queryVector, err := e.embedder.EmbedText(ctx, query)
	if err != nil || len(queryVector) == 0 {
		e.logger.Warn("query embedding failed, falling back to text ranking", "err", err)
		return e.rankByText(query, items)
	}

	results := make([]*core.SearchResult, 0, len(items))
	for _, item := range items {
		if len(item.Embedding) == 0 {
			continue
		}
		score := similarity.Cosine(queryVector, item.Embedding)
		if score <= 0 {
			continue
		}
		results = append(results, &core.SearchResult{Item: item, Score: score})
	}
	return results
}

// textScore computes the weighted overlap of query tokens against an
// item's title, tags, and summary. The result lands in [0, 1].
func textScore(queryTokens []string, item *core.CatalogItem) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	titleOverlap := overlap(queryTokens, tokenSet(item.Title))
	tagsOverlap := overlap(queryTokens, tokenSet(strings.Join(item.Analysis.Tags, " ")))
	summaryOverlap := overlap(queryTokens, tokenSet(item.Analysis.Summary))

	return (titleWeight*titleOverlap + tagsWeight*tagsOverlap + summaryWeight*summaryOverlap) / totalWeight
}

// sortResults orders by score descending with deterministic tie-breaks.
func sortResults(results []*core.SearchResult) {
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if !a.Item.IngestedAt.Equal(b.Item.IngestedAt) {
			if a.Item.IngestedAt.After(b.Item.IngestedAt) {
				return -1
			}
			return 1
		}
		if a.Item.Id < b.Item.Id {
			return -1
		}
		if a.Item.Id > b.Item.Id {
			return 1
		}
		return 0
	})
}
