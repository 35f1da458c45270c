// Package library manages the meme collection lifecycle: ingestion with
// content-hash deduplication, annotation updates, favorite and usage
// tracking, and keeping embeddings in step with the active model version.
//
// Embedding generation is best-effort on the write path: a meme whose
// vectors cannot be generated is still stored and text-searchable, and
// RegenerateStale backfills vectors once the model is available again.
package library
