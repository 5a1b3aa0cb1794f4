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


package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/researchgraph/ai"
	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/similarity"
	"github.com/poiesic/researchgraph/storage"
)

// Config holds configuration for the rebuild operation.
type Config struct {
	// BatchSize is the number of items to embed in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of items)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Rebuilder regenerates every item's embedding and recomputes the
// similarity graph from scratch. Run after switching embedding models,
// when stored vectors no longer live in the same space as new ones.
type Rebuilder struct {
	items    storage.ItemRepository
	embedder ai.Embedder
	index    *similarity.Index
	config   *Config
	progress io.Writer
}

// NewRebuilder creates a new rebuilder.
// progress: where to write progress output (typically os.Stderr)
func NewRebuilder(items storage.ItemRepository, embedder ai.Embedder, index *similarity.Index, config *Config, progress io.Writer) (*Rebuilder, error) {
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	return &Rebuilder{
		items:    items,
		embedder: embedder,
		index:    index,
		config:   config,
		progress: progress,
	}, nil
}

// Run executes the rebuild: every item is re-embedded in batches, then
// every item's incident edges are recomputed. Progress covers both
// phases.
func (r *Rebuilder) Run(ctx context.Context) error {
	items, err := r.items.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}

	if len(items) == 0 {
		fmt.Fprintf(r.progress, "No items found in database (0 items)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Rebuilding %d items (batch size: %d)\n",
		len(items), r.config.BatchSize)

	// Progress spans the embed phase and the edge phase.
	tracker := NewProgressTracker(r.progress, len(items)*2, r.config.ReportInterval)
	tracker.Start()
	processed := 0

	for start := 0; start < len(items); start += r.config.BatchSize {
		end := min(start+r.config.BatchSize, len(items))

		if err := r.embedBatch(ctx, items[start:end]); err != nil {
			return err
		}

		processed += end - start
		tracker.Update(processed)

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	for _, item := range items {
		if err := r.index.Update(ctx, item); err != nil {
			return fmt.Errorf("failed to update edges for %d: %w", item.Id, err)
		}
		processed++
		tracker.Update(processed)
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Rebuild complete. Processed %d items in %v (%.1f items/sec)\n",
		len(items), elapsed.Round(time.Second), float64(len(items))/elapsed.Seconds())

	return nil
}

// embedBatch regenerates embeddings for one batch of items and persists
// them. Vectors are normalized so cosine comparisons stay well behaved.
func (r *Rebuilder) embedBatch(ctx context.Context, items []*core.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Title + "\n" + item.Analysis.Summary
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)

	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}

	if len(embeddings) != len(items) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(items), len(embeddings))
	}

	for i, item := range items {
		item.Embedding = NormalizeVector(embeddings[i])
		stored, err := r.items.Upsert(ctx, item)
		if err != nil {
			return fmt.Errorf("failed to store item %d: %w", item.Id, err)
		}
		items[i] = stored
	}

	return nil
}
