// Package embedder generates vector embeddings for meme annotations and
// search queries.
//
// Multiple providers are supported:
//   - openai: OpenAI embeddings API (text-embedding-3-small, 1536 dims)
//   - ollama: local Ollama daemon (nomic-embed-text, 768 dims)
//   - local: deterministic hash-based vectors for offline use and tests
//   - disabled: always unavailable; search degrades to text-only
//
// # Availability
//
// Providers distinguish between a model being unreachable and a request
// failing. Unreachable models surface ErrModelUnavailable, which callers
// should treat as "skip semantic search", not as a request failure:
//
//	emb, err := e.GenerateEmbedding(ctx, req)
//	if embedder.IsUnavailable(err) {
//	    // degrade to text-only search
//	}
//
// Transient API failures are retried with exponential backoff before being
// reported as ErrProviderFailed.
//
// # Caching
//
// All providers share an LRU cache keyed by SHA-256 of the input text, so
// re-annotating an unchanged meme or repeating a query costs nothing.
package embedder
