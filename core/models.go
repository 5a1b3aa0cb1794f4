package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for catalog items.
// It is derived from the item's kind and normalized source URL, so
// re-ingesting the same source always maps to the same record.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ItemKind identifies the source type of a catalog item.
type ItemKind int

const (
	// KindPaper represents a research paper.
	KindPaper ItemKind = iota + 1
	// KindRepository represents a code repository.
	KindRepository
)

// String returns the wire name of the kind.
func (k ItemKind) String() string {
	switch k {
	case KindPaper:
		return "paper"
	case KindRepository:
		return "repository"
	default:
		return "unknown"
	}
}

// ParseItemKind converts a wire name back into an ItemKind.
// Returns ErrInvalidKind for unrecognized names.
func ParseItemKind(s string) (ItemKind, error) {
	switch s {
	case "paper":
		return KindPaper, nil
	case "repository", "repo":
		return KindRepository, nil
	default:
		return 0, ErrInvalidKind
	}
}

// Analysis holds the structured judgment produced for an item by the
// external language-model pipeline. The module treats it as opaque input
// apart from range validation on the two scores.
type Analysis struct {
	Summary           string
	Tags              []string
	QuestionsAnswered []string
	KeyFindings       []string
	RelevancyScore    float64 // 0..10
	InterestingScore  float64 // 0..10
}

// CatalogItem is one analyzed paper or repository record.
type CatalogItem struct {
	Id         ID
	Kind       ItemKind
	Title      string
	SourceURL  string
	RawExcerpt string
	Analysis   Analysis
	Embedding  []float32 // Optional; empty when the pipeline produced none
	IngestedAt time.Time
	Revision   uint64 // Store revision that produced this record
}

// SimilarityMethod tags how an edge weight was computed.
type SimilarityMethod int

const (
	// MethodEmbeddingCosine means cosine similarity over embedding vectors.
	MethodEmbeddingCosine SimilarityMethod = iota + 1
	// MethodTagJaccard means Jaccard similarity over tag sets.
	MethodTagJaccard
)

// String returns the wire name of the method.
func (m SimilarityMethod) String() string {
	switch m {
	case MethodEmbeddingCosine:
		return "embedding-cosine"
	case MethodTagJaccard:
		return "tag-jaccard"
	default:
		return "unknown"
	}
}

// SimilarityEdge links an unordered pair of items with a similarity weight.
// A is always the smaller ID; there is at most one edge per pair.
type SimilarityEdge struct {
	A      ID
	B      ID
	Weight float64 // (0, 1]
	Method SimilarityMethod
}

// Canonical returns the edge with its endpoints in canonical (A < B) order.
func (e SimilarityEdge) Canonical() SimilarityEdge {
	if e.B < e.A {
		e.A, e.B = e.B, e.A
	}
	return e
}

// Stance is an item's classified relationship to a theory.
type Stance int

const (
	// StanceAgree means the item's findings support the theory.
	StanceAgree Stance = iota + 1
	// StanceDisagree means the item's findings contradict the theory.
	StanceDisagree
	// StanceUncertain means no confident call could be made.
	StanceUncertain
)

// String returns the wire name of the stance.
func (s Stance) String() string {
	switch s {
	case StanceAgree:
		return "agree"
	case StanceDisagree:
		return "disagree"
	case StanceUncertain:
		return "uncertain"
	default:
		return "unknown"
	}
}

// StanceJudgment records one item's stance toward a theory.
type StanceJudgment struct {
	ItemId     ID
	Title      string
	Stance     Stance
	Confidence float64 // 0..1
}

// TheoryVerdict partitions judged items by stance. Each partition is
// ordered by confidence descending.
type TheoryVerdict struct {
	Agree       []StanceJudgment
	Disagree    []StanceJudgment
	Uncertain   []StanceJudgment
	Suggestions []string
}

// SearchResult pairs a catalog item with its relevance score.
type SearchResult struct {
	Item  *CatalogItem
	Score float64
}

// Cluster is one connected component of the similarity graph at a chosen
// weight threshold. Members are sorted ascending by ID.
type Cluster struct {
	Members []ID
}
