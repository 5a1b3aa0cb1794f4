package similarity

import (
	"context"
	"log/slog"
	"slices"

	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/storage"
)

// Snapshot is a point-in-time clustering of the catalog. It carries the
// revision the edge set had been applied up to; Stale is set when the
// store has moved past that revision, which makes the grouping advisory
// rather than wrong.
type Snapshot struct {
	Clusters  []core.Cluster
	Threshold float64
	Revision  uint64
	Stale     bool
}

// ClusterView derives connected-component clusters from the edge set.
// It never stores clusters; every snapshot is recomputed from the current
// edges so cluster membership always follows edge refinement.
type ClusterView struct {
	items  storage.ItemRepository
	edges  storage.EdgeRepository
	index  *Index
	logger *slog.Logger
}

// NewClusterView creates a cluster view over the given repositories.
// The index supplies the applied revision used for staleness reporting.
func NewClusterView(items storage.ItemRepository, edges storage.EdgeRepository, index *Index) (*ClusterView, error) {
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}
	if edges == nil {
		return nil, ErrEdgeRepositoryRequired
	}

	return &ClusterView{
		items:  items,
		edges:  edges,
		index:  index,
		logger: slog.Default().With("component", "cluster-view"),
	}, nil
}

// Snapshot computes the connected components of the similarity graph,
// keeping only edges with weight >= threshold. Items without a qualifying
// edge form singleton clusters. The result is deterministic: members are
// sorted ascending by ID and clusters by their smallest member.
func (v *ClusterView) Snapshot(ctx context.Context, threshold float64) (*Snapshot, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, ErrInvalidThreshold
	}

	items, err := v.items.All(ctx)
	if err != nil {
		return nil, err
	}

	edges, err := v.edges.AllEdges(ctx, threshold)
	if err != nil {
		return nil, err
	}

	uf := newUnionFind()
	for _, item := range items {
		uf.add(item.Id)
	}
	for _, edge := range edges {
		// Edges may reference items deleted after the edge scan.
		if uf.has(edge.A) && uf.has(edge.B) {
			uf.union(edge.A, edge.B)
		}
	}

	components := make(map[core.ID][]core.ID)
	for _, item := range items {
		root := uf.find(item.Id)
		components[root] = append(components[root], item.Id)
	}

	clusters := make([]core.Cluster, 0, len(components))
	for _, members := range components {
		slices.Sort(members)
		clusters = append(clusters, core.Cluster{Members: members})
	}
	slices.SortFunc(clusters, func(a, b core.Cluster) int {
		if a.Members[0] < b.Members[0] {
			return -1
		}
		if a.Members[0] > b.Members[0] {
			return 1
		}
		return 0
	})

	applied := uint64(0)
	if v.index != nil {
		applied = v.index.AppliedRevision()
	}
	stale := v.items.Revision() > applied

	v.logger.Debug("computed cluster snapshot",
		"threshold", threshold,
		"items", len(items),
		"edges", len(edges),
		"clusters", len(clusters),
		"stale", stale)

	return &Snapshot{
		Clusters:  clusters,
		Threshold: threshold,
		Revision:  applied,
		Stale:     stale,
	}, nil
}

// unionFind is a map-backed disjoint set with path compression.
type unionFind struct {
	parent map[core.ID]core.ID
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[core.ID]core.ID)}
}

func (u *unionFind) add(id core.ID) {
	if _, ok := u.parent[id]; !ok {
		u.parent[id] = id
	}
}

func (u *unionFind) has(id core.ID) bool {
	_, ok := u.parent[id]
	return ok
}

func (u *unionFind) find(id core.ID) core.ID {
	root := id
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[id] != root {
		u.parent[id], id = root, u.parent[id]
	}
	return root
}

// union merges toward the smaller root so component roots are stable
// across insertion orders.
func (u *unionFind) union(a, b core.ID) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}
