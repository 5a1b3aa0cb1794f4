package ai

import (
	"context"

	"github.com/poiesic/researchgraph/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Evidence is the slice of an analyzed item shown to the stance
// classifier: the claim is compared against the item's summary and key
// findings, not its full text.
type Evidence struct {
	Title       string
	Summary     string
	KeyFindings []string
}

// StanceClassifier judges whether a piece of collected evidence agrees
// with, disagrees with, or is inconclusive about a theory. This is a
// delegated analysis task; implementations call out to a language model.
// Implementations must be thread-safe for concurrent use.
type StanceClassifier interface {
	// ClassifyStance compares a theory's claim against one item's evidence.
	// Returns the stance and a confidence in [0, 1].
	// Returns an error (typically ErrUpstreamTimeout) when the upstream
	// call fails; callers degrade the item to uncertain rather than
	// failing the whole evaluation.
	ClassifyStance(ctx context.Context, theory string, evidence Evidence) (core.Stance, float64, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and StanceClassifier instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// StanceClassifier returns the stance classification service.
	// The returned StanceClassifier is safe for concurrent use.
	StanceClassifier() StanceClassifier

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
