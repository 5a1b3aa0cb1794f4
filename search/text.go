package search

import "strings"

// Stop words to filter out when tokenizing queries and fields
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		// Lowercase and trim punctuation
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

		// Skip stop words and empty strings
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// tokenSet builds a membership set from tokenized text.
func tokenSet(text string) map[string]bool {
	tokens := tokenizeAndFilter(text)
	set := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		set[token] = true
	}
	return set
}

// overlap returns the fraction of query tokens present in the field set.
func overlap(queryTokens []string, field map[string]bool) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	hits := 0
	for _, token := range queryTokens {
		if field[token] {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}
