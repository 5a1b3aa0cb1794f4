package search

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/researchgraph/core"
)

// maxTagSuggestions caps how many alternate-query suggestions come from
// tag co-occurrence.
const maxTagSuggestions = 3

// SuggestSparse proposes follow-up queries when a search came back with
// too few results. It mines the tags of items the query did not reach and
// offers the most common ones as alternate queries, always ending with
// the suggestion to catalogue more source material.
func (e *Engine) SuggestSparse(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrInvalidQuery
	}

	items, err := e.items.All(ctx)
	if err != nil {
		return nil, err
	}

	queryTokens := tokenizeAndFilter(query)
	queryTerms := make(map[string]bool, len(queryTokens))
	for _, token := range queryTokens {
		queryTerms[token] = true
	}

	// Count tags across items the query missed entirely.
	tagCounts := make(map[string]int)
	for _, item := range items {
		if textScore(queryTokens, item) > 0 {
			continue
		}
		for _, tag := range item.Analysis.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" || queryTerms[tag] {
				continue
			}
			tagCounts[tag]++
		}
	}

	tags := make([]string, 0, len(tagCounts))
	for tag := range tagCounts {
		tags = append(tags, tag)
	}
	slices.SortFunc(tags, func(a, b string) int {
		if tagCounts[a] != tagCounts[b] {
			if tagCounts[a] > tagCounts[b] {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	if len(tags) > maxTagSuggestions {
		tags = tags[:maxTagSuggestions]
	}

	suggestions := make([]string, 0, len(tags)+1)
	for _, tag := range tags {
		suggestions = append(suggestions, fmt.Sprintf("Try a related query such as %q.", tag))
	}
	suggestions = append(suggestions,
		fmt.Sprintf("Broaden %q or start cataloguing mode to gather more data.", strings.TrimSpace(query)))

	return suggestions, nil
}
