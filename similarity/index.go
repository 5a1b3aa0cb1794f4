package similarity

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/storage"
)

// DefaultMinEdgeWeight is the floor below which pairwise scores are
// discarded instead of stored as edges.
const DefaultMinEdgeWeight = 0.35

// Index maintains the similarity edge set over the item store. It is the
// sole writer of the edge repository. Updates may run inline or on a
// single-worker pool when deferred mode is enabled.
type Index struct {
	items         storage.ItemRepository
	edges         storage.EdgeRepository
	minEdgeWeight float64
	pool          *ants.Pool
	applied       atomic.Uint64
	logger        *slog.Logger
}

// Neighbor pairs an item with the weight of its edge to the query item.
type Neighbor struct {
	Item   *core.CatalogItem
	Weight float64
	Method core.SimilarityMethod
}

// Option configures an Index.
type Option func(*Index) error

// WithMinEdgeWeight sets the minimum weight for stored edges.
// Values below 0 or above 1 are clamped into [0, 1].
func WithMinEdgeWeight(weight float64) Option {
	return func(idx *Index) error {
		if weight < 0 {
			weight = 0
		}
		if weight > 1 {
			weight = 1
		}
		idx.minEdgeWeight = weight
		return nil
	}
}

// WithDeferredUpdates makes Apply enqueue updates on a single-worker pool
// instead of running them inline. The pool size is fixed at one worker so
// the edge repository keeps exactly one writer.
func WithDeferredUpdates() Option {
	return func(idx *Index) error {
		if idx.pool != nil {
			return nil
		}
		pool, err := ants.NewPool(1)
		if err != nil {
			return err
		}
		idx.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		idx.logger = logger.With("component", "similarity-index")
		return nil
	}
}

// NewIndex creates a similarity index over the given repositories.
func NewIndex(items storage.ItemRepository, edges storage.EdgeRepository, opts ...Option) (*Index, error) {
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}
	if edges == nil {
		return nil, ErrEdgeRepositoryRequired
	}

	idx := &Index{
		items:         items,
		edges:         edges,
		minEdgeWeight: DefaultMinEdgeWeight,
		logger:        slog.Default().With("component", "similarity-index"),
	}

	for _, opt := range opts {
		if err := opt(idx); err != nil {
			idx.Release()
			return nil, err
		}
	}

	return idx, nil
}

// MinEdgeWeight returns the configured edge weight floor.
func (idx *Index) MinEdgeWeight() float64 {
	return idx.minEdgeWeight
}

// Deferred reports whether updates run on the background pool.
func (idx *Index) Deferred() bool {
	return idx.pool != nil
}

// Apply records an item's edges, inline or via the deferred pool depending
// on configuration. Deferred failures are logged, not returned.
func (idx *Index) Apply(ctx context.Context, item *core.CatalogItem) error {
	if idx.pool == nil {
		return idx.Update(ctx, item)
	}

	return idx.pool.Submit(func() {
		if err := idx.Update(context.Background(), item); err != nil {
			idx.logger.Error("deferred index update failed",
				"id", item.Id,
				"err", err)
		}
	})
}

// Update recomputes every edge incident to the item by comparing it
// against all other stored items, then replaces the item's incident edge
// set. The context is checked once per comparison; on cancellation the
// edges computed so far are still written and ctx.Err() is returned.
func (idx *Index) Update(ctx context.Context, item *core.CatalogItem) error {
	others, err := idx.items.All(ctx)
	if err != nil {
		return err
	}

	edges := make([]core.SimilarityEdge, 0, len(others))
	var cancelled error
	for _, other := range others {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		if other.Id == item.Id {
			continue
		}

		weight, method := Compare(item, other)
		// Edge weights live in (0, 1], so a floor of zero still never
		// materializes weight-zero edges.
		if weight <= 0 || weight < idx.minEdgeWeight {
			continue
		}

		edges = append(edges, core.SimilarityEdge{
			A:      item.Id,
			B:      other.Id,
			Weight: weight,
			Method: method,
		}.Canonical())
	}

	// Partial results are worth keeping on cancellation. Write with a
	// fresh context so the replace itself is not torn.
	if err := idx.edges.ReplaceIncident(context.Background(), item.Id, edges); err != nil {
		return err
	}

	idx.recordApplied(item.Revision)
	idx.logger.Debug("updated incident edges",
		"id", item.Id,
		"edges", len(edges),
		"compared", len(others))

	return cancelled
}

// Remove deletes every edge incident to the item, keeping the graph
// consistent after an item deletion.
func (idx *Index) Remove(ctx context.Context, id core.ID) error {
	return idx.edges.DeleteIncident(ctx, id)
}

// Neighbors returns up to k neighbors of the item, ordered by edge weight
// descending. Ties break toward the more recently ingested neighbor, then
// by ascending ID so the order is reproducible.
func (idx *Index) Neighbors(ctx context.Context, id core.ID, k int) ([]Neighbor, error) {
	incident, err := idx.edges.Neighbors(ctx, id)
	if err != nil {
		return nil, err
	}

	neighbors := make([]Neighbor, 0, len(incident))
	for _, edge := range incident {
		otherID := edge.A
		if otherID == id {
			otherID = edge.B
		}

		other, err := idx.items.Get(ctx, otherID)
		if err != nil {
			// A dangling edge means an item vanished between reads.
			idx.logger.Warn("skipping edge to missing item", "id", otherID, "err", err)
			continue
		}

		neighbors = append(neighbors, Neighbor{
			Item:   other,
			Weight: edge.Weight,
			Method: edge.Method,
		})
	}

	slices.SortFunc(neighbors, func(a, b Neighbor) int {
		if a.Weight != b.Weight {
			if a.Weight > b.Weight {
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

	if k > 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// AppliedRevision returns the highest store revision the index has fully
// applied. Comparing it against the item repository's Revision tells
// consumers whether a snapshot may be stale.
func (idx *Index) AppliedRevision() uint64 {
	return idx.applied.Load()
}

// recordApplied advances the applied revision monotonically.
func (idx *Index) recordApplied(revision uint64) {
	for {
		current := idx.applied.Load()
		if revision <= current {
			return
		}
		if idx.applied.CompareAndSwap(current, revision) {
			return
		}
	}
}

// Release stops the deferred update pool if one was configured.
// The index should not be used after calling Release.
func (idx *Index) Release() {
	if idx.pool != nil {
		idx.pool.Release()
		idx.pool = nil
	}
}
