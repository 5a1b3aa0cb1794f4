// Package reindex rebuilds embeddings and the similarity graph.
//
// Switching embedding models leaves stored vectors in a different space
// than newly generated ones. The Rebuilder re-embeds every item in
// batches with retry and backoff, normalizes the vectors, and recomputes
// every item's similarity edges, reporting progress as it goes.
package reindex
