package ingest

import (
	"context"
	"log/slog"
	"slices"

	"github.com/poiesic/researchgraph/ai"
	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/similarity"
	"github.com/poiesic/researchgraph/storage"
)

// Gateway is the single write path into the catalog. It validates analyzed
// items, deduplicates them by normalized source URL, persists them, and
// keeps the similarity index in step with the store.
type Gateway struct {
	items    storage.ItemRepository
	index    *similarity.Index
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway) error

// WithEmbedder lets the gateway backfill embeddings for items that arrive
// without one. Embedding failures are logged and the item is stored
// vectorless; similarity falls back to tag overlap for it.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(g *Gateway) error {
		g.embedder = embedder
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger.With("component", "ingestion-gateway")
		return nil
	}
}

// NewGateway creates an ingestion gateway over the item store and
// similarity index.
func NewGateway(items storage.ItemRepository, index *similarity.Index, opts ...Option) (*Gateway, error) {
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	g := &Gateway{
		items:  items,
		index:  index,
		logger: slog.Default().With("component", "ingestion-gateway"),
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Ingest admits one analyzed item into the catalog. Invalid items are
// rejected without side effects. The source URL is normalized and the ID
// derived from it, so re-ingesting the same source replaces rather than
// duplicates. Re-ingesting an unchanged item is a no-op that skips both
// the upsert and the index update. The item is durable in the store
// before the index update is triggered.
func (g *Gateway) Ingest(ctx context.Context, item *core.CatalogItem) (*core.CatalogItem, error) {
	if err := core.ValidateCatalogItem(item); err != nil {
		return nil, err
	}

	item.SourceURL = core.NormalizeSourceURL(item.Kind, item.SourceURL)
	item.Id = core.ItemID(item.Kind, item.SourceURL)

	existingID, exists, err := g.items.ExistsBySource(ctx, item.Kind, item.SourceURL)
	if err != nil {
		return nil, err
	}
	if exists {
		existing, err := g.items.Get(ctx, existingID)
		if err != nil {
			return nil, err
		}
		if unchanged(existing, item) {
			g.logger.Debug("skipping unchanged item", "id", existingID, "url", item.SourceURL)
			return existing, nil
		}
	}

	if len(item.Embedding) == 0 && g.embedder != nil {
		vector, err := g.embedder.EmbedText(ctx, item.Title+"\n"+item.Analysis.Summary)
		if err != nil {
			g.logger.Warn("embedding failed, storing without vector",
				"id", item.Id,
				"err", err)
		} else {
			item.Embedding = vector
		}
	}

	stored, err := g.items.Upsert(ctx, item)
	if err != nil {
		return nil, err
	}

	if err := g.index.Apply(ctx, stored); err != nil {
		// The item is already durable; a failed index update leaves the
		// graph behind the store, which staleness reporting surfaces.
		g.logger.Error("index update failed", "id", stored.Id, "err", err)
	}

	g.logger.Info("ingested item",
		"id", stored.Id,
		"kind", stored.Kind.String(),
		"title", stored.Title,
		"revision", stored.Revision)

	return stored, nil
}

// Remove deletes an item and its incident edges.
func (g *Gateway) Remove(ctx context.Context, id core.ID) error {
	if err := g.items.Delete(ctx, id); err != nil {
		return err
	}
	return g.index.Remove(ctx, id)
}

// unchanged reports whether a re-ingested item carries the same content
// as the stored one. Embeddings are deliberately ignored: a vectorless
// re-submission of identical content should not churn the index.
func unchanged(existing, incoming *core.CatalogItem) bool {
	return existing.Title == incoming.Title &&
		existing.RawExcerpt == incoming.RawExcerpt &&
		existing.Analysis.Summary == incoming.Analysis.Summary &&
		existing.Analysis.RelevancyScore == incoming.Analysis.RelevancyScore &&
		existing.Analysis.InterestingScore == incoming.Analysis.InterestingScore &&
		slices.Equal(existing.Analysis.Tags, incoming.Analysis.Tags) &&
		slices.Equal(existing.Analysis.QuestionsAnswered, incoming.Analysis.QuestionsAnswered) &&
		slices.Equal(existing.Analysis.KeyFindings, incoming.Analysis.KeyFindings)
}
