// Package theory evaluates free-text theories against the catalog.
//
// An evaluation retrieves the most relevant items semantically, asks the
// stance classifier whether each item's findings agree with the theory,
// and partitions the judgments into agree, disagree, and uncertain sets.
// The delegated calls are individually deadlined; model failures degrade
// single judgments to uncertain instead of failing the whole verdict.
package theory
