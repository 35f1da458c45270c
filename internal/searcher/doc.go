// Package searcher implements hybrid search over the meme library.
//
// Three retrieval legs are combined:
//   - Full-text: FTS5 candidates re-scored by which fields contain the
//     query (title > description > emoji tags, additive, capped at 1.0)
//   - Semantic: cosine similarity against stored embeddings, max-pooled
//     across each meme's embedding slots
//   - Emoji: FTS scoped to the emoji tag column, rank-decay scored
//
// Hybrid search runs the text and semantic legs concurrently, blends their
// scores with fixed weights (text 0.6, semantic 0.4), flips match type to
// HYBRID when both legs hit the same meme, then promotes favorites scoring
// at or above 0.5 with a stable partition.
//
// # Degradation
//
// The semantic leg is optional by contract. When the embedding model is
// unavailable or semantic search is disabled by preference, hybrid search
// returns text-only results as a normal success with the Degraded flag
// set; it never fails for that reason alone. Any other semantic failure is
// a real error and propagates.
//
// Query results can be cached per (mode, query, limit) with a TTL; callers
// that mutate the library should call InvalidateCache afterwards.
package searcher
