package storage

import (
	"context"

	"github.com/poiesic/researchgraph/core"
)

// ItemStats summarizes the item store for the stats operation.
type ItemStats struct {
	TotalItems     int
	TotalPapers    int
	TotalRepos     int
	AvgRelevancy   float64
	AvgInteresting float64
}

// ItemRepository provides operations for managing catalog items.
// Implementations must be thread-safe and support concurrent reads with
// at most one in-flight writer.
type ItemRepository interface {
	// Upsert inserts or replaces a catalog item. The item's Id must already
	// be derived from its source URL. On replacement the original IngestedAt
	// is preserved. Every successful call stamps the item with a new
	// store-wide revision, obtained atomically.
	// Returns the stored item with Revision and IngestedAt populated.
	Upsert(ctx context.Context, item *core.CatalogItem) (*core.CatalogItem, error)

	// Get retrieves a single item by ID.
	// Returns ErrNotFound if the item doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.CatalogItem, error)

	// List retrieves items ordered by IngestedAt descending.
	// kind 0 means no kind filter. offset/limit paginate the result.
	List(ctx context.Context, kind core.ItemKind, offset, limit int) ([]*core.CatalogItem, error)

	// All retrieves every item in the store. Used by the similarity index
	// for full pairwise scans; order is unspecified.
	All(ctx context.Context) ([]*core.CatalogItem, error)

	// ExistsBySource reports whether an item with the given normalized
	// source URL is already stored, and its ID when present.
	ExistsBySource(ctx context.Context, kind core.ItemKind, sourceURL string) (core.ID, bool, error)

	// Delete removes an item and its index entries.
	// Returns ErrNotFound if the item doesn't exist.
	Delete(ctx context.Context, id core.ID) error

	// Stats computes store-wide item counts and score averages.
	Stats(ctx context.Context) (ItemStats, error)

	// Revision returns the latest store revision. Consumers compare it
	// against the similarity index's applied revision for staleness checks.
	Revision() uint64

	// Close releases resources held by the repository.
	Close() error
}

// EdgeRepository provides operations for managing similarity edges.
// The similarity index is the sole writer; all other components read only.
type EdgeRepository interface {
	// ReplaceIncident atomically replaces every edge incident to the given
	// item with the provided set. Edges are stored in canonical (A < B)
	// order regardless of input order. Self edges are rejected with
	// ErrSelfEdge; edges not touching id are rejected with ErrInvalidQuery.
	ReplaceIncident(ctx context.Context, id core.ID, edges []core.SimilarityEdge) error

	// DeleteIncident removes every edge incident to the given item.
	DeleteIncident(ctx context.Context, id core.ID) error

	// Neighbors returns all edges incident to the given item, in
	// unspecified order. Callers apply their own ranking.
	Neighbors(ctx context.Context, id core.ID) ([]core.SimilarityEdge, error)

	// AllEdges returns every stored edge with weight >= minWeight.
	AllEdges(ctx context.Context, minWeight float64) ([]core.SimilarityEdge, error)

	// EdgeCount returns the number of stored edges.
	EdgeCount(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}
