// Package search ranks catalog items against free-text queries.
//
// Two modes are supported. Text mode scores weighted token overlap
// against an item's title, tags, and summary. Semantic mode embeds the
// query and ranks by cosine similarity against item embeddings, falling
// back to text mode when the embedder fails so a search never dies with
// the model server. SuggestSparse mines tag co-occurrence for follow-up
// queries when a search returns too few hits.
package search
