// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package researchgraph

import (
	"context"
	"log/slog"

	"github.com/poiesic/researchgraph/ai"
	"github.com/poiesic/researchgraph/ai/openai"
	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/ingest"
	"github.com/poiesic/researchgraph/search"
	"github.com/poiesic/researchgraph/similarity"
	"github.com/poiesic/researchgraph/storage"
	"github.com/poiesic/researchgraph/storage/badger"
	"github.com/poiesic/researchgraph/theory"
)

// Database wires the catalog's storage, similarity graph, search, theory
// evaluation, and ingestion into one handle.
type Database struct {
	backend  *badger.Backend
	itemRepo storage.ItemRepository
	edgeRepo storage.EdgeRepository
	provider ai.Provider
	index    *similarity.Index
	clusters *similarity.ClusterView
	engine   *search.Engine
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	deferred bool
}

// WithAIConfig overrides the default AI service configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects an AI provider directly, bypassing the OpenAI
// client construction. Used by tests with mock providers.
func WithProvider(provider ai.Provider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithDeferredIndexing makes ingestion enqueue similarity updates on a
// background worker instead of computing them inline.
func WithDeferredIndexing() DatabaseOption {
	return func(o *databaseOptions) {
		o.deferred = true
	}
}

// NewDatabase opens the catalog at filePath and wires every component.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, filePath == "")
	if err != nil {
		return nil, err
	}

	itemRepo, err := badger.NewItemRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	edgeRepo := badger.NewEdgeRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			itemRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	indexOpts := []similarity.Option{}
	if options.deferred {
		indexOpts = append(indexOpts, similarity.WithDeferredUpdates())
	}
	index, err := similarity.NewIndex(itemRepo, edgeRepo, indexOpts...)
	if err != nil {
		provider.Close()
		itemRepo.Close()
		backend.Close()
		return nil, err
	}

	clusters, err := similarity.NewClusterView(itemRepo, edgeRepo, index)
	if err != nil {
		index.Release()
		provider.Close()
		itemRepo.Close()
		backend.Close()
		return nil, err
	}

	engine, err := search.NewEngine(itemRepo, provider.Embedder())
	if err != nil {
		index.Release()
		provider.Close()
		itemRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:  backend,
		itemRepo: itemRepo,
		edgeRepo: edgeRepo,
		provider: provider,
		index:    index,
		clusters: clusters,
		engine:   engine,
		logger:   slog.Default(),
	}, nil
}

// Close releases every component in reverse wiring order.
func (db *Database) Close() error {
	db.index.Release()

	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.edgeRepo.Close(); err != nil {
		db.logger.Error("error closing edge repository", "err", err)
		return err
	}
	if err := db.itemRepo.Close(); err != nil {
		db.logger.Error("error closing item repository", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) ItemRepository() storage.ItemRepository {
	return db.itemRepo
}

func (db *Database) EdgeRepository() storage.EdgeRepository {
	return db.edgeRepo
}

func (db *Database) Index() *similarity.Index {
	return db.index
}

func (db *Database) SearchEngine() *search.Engine {
	return db.engine
}

func (db *Database) Provider() ai.Provider {
	return db.provider
}

// NewGateway creates the ingestion write path over this database.
func (db *Database) NewGateway(opts ...ingest.Option) (*ingest.Gateway, error) {
	opts = append([]ingest.Option{ingest.WithEmbedder(db.provider.Embedder())}, opts...)
	return ingest.NewGateway(db.itemRepo, db.index, opts...)
}

// NewEvaluator creates a theory evaluator over this database.
func (db *Database) NewEvaluator(opts ...theory.Option) (*theory.Evaluator, error) {
	return theory.NewEvaluator(db.engine, db.provider.StanceClassifier(), opts...)
}

// Stats summarizes the catalog for dashboards and the stats subcommand.
type Stats struct {
	Items     storage.ItemStats
	EdgeCount int
	Revision  uint64
	// IndexStale advises that the similarity graph has not caught up
	// with the newest writes. Reads stay available regardless.
	IndexStale bool
}

// Stats collects item counts, score averages, edge counts, and the
// staleness advisory in one call.
func (db *Database) Stats(ctx context.Context) (*Stats, error) {
	itemStats, err := db.itemRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	edgeCount, err := db.edgeRepo.EdgeCount(ctx)
	if err != nil {
		return nil, err
	}

	revision := db.itemRepo.Revision()
	return &Stats{
		Items:      itemStats,
		EdgeCount:  edgeCount,
		Revision:   revision,
		IndexStale: revision > db.index.AppliedRevision(),
	}, nil
}

// GraphSnapshot is the cluster structure of the catalog at a threshold,
// with the full edge list for rendering.
type GraphSnapshot struct {
	Items    []*core.CatalogItem
	Edges    []core.SimilarityEdge
	Clusters []core.Cluster
	Stale    bool
}

// GraphSnapshot computes the similarity graph restricted to edges at or
// above threshold, together with its connected components.
func (db *Database) GraphSnapshot(ctx context.Context, threshold float64) (*GraphSnapshot, error) {
	snapshot, err := db.clusters.Snapshot(ctx, threshold)
	if err != nil {
		return nil, err
	}

	edges, err := db.edgeRepo.AllEdges(ctx, threshold)
	if err != nil {
		return nil, err
	}

	items, err := db.itemRepo.All(ctx)
	if err != nil {
		return nil, err
	}

	return &GraphSnapshot{
		Items:    items,
		Edges:    edges,
		Clusters: snapshot.Clusters,
		Stale:    snapshot.Stale,
	}, nil
}
