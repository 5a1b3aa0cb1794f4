package mock

import (
	"context"
	"strings"

	"github.com/poiesic/researchgraph/ai"
	"github.com/poiesic/researchgraph/core"
)

// MockStanceClassifier is a test double for ai.StanceClassifier.
// It allows custom behavior injection via function fields.
type MockStanceClassifier struct {
	// ClassifyStanceFunc is called by ClassifyStance if set.
	// If nil, uses default keyword-matching behavior.
	ClassifyStanceFunc func(ctx context.Context, theory string, evidence ai.Evidence) (core.Stance, float64, error)

	callCount int
}

// NewMockStanceClassifier creates a mock classifier with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockClassifier().
func NewMockStanceClassifier() *MockStanceClassifier {
	return &MockStanceClassifier{}
}

// ClassifyStance returns a stance based on crude keyword overlap.
// The default judges agree when the evidence summary mentions "supports",
// disagree on "contradicts", uncertain otherwise. Tests that need specific
// stances should inject ClassifyStanceFunc.
func (m *MockStanceClassifier) ClassifyStance(ctx context.Context, theory string, evidence ai.Evidence) (core.Stance, float64, error) {
	m.callCount++

	if m.ClassifyStanceFunc != nil {
		return m.ClassifyStanceFunc(ctx, theory, evidence)
	}

	if err := ctx.Err(); err != nil {
		return core.StanceUncertain, 0, err
	}

	summary := strings.ToLower(evidence.Summary)
	switch {
	case strings.Contains(summary, "supports"):
		return core.StanceAgree, 0.9, nil
	case strings.Contains(summary, "contradicts"):
		return core.StanceDisagree, 0.9, nil
	default:
		return core.StanceUncertain, 0.5, nil
	}
}

// CallCount returns the number of times ClassifyStance was called.
func (m *MockStanceClassifier) CallCount() int {
	return m.callCount
}

// Reset clears the call count and any injected behavior.
func (m *MockStanceClassifier) Reset() {
	m.callCount = 0
	m.ClassifyStanceFunc = nil
}
