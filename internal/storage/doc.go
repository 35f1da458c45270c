// Package storage provides SQLite-based persistence for the meme library.
//
// The storage layer manages:
//   - Meme metadata (titles, descriptions, extracted text)
//   - Emoji tag annotations
//   - Vector embeddings, one row per meme and embedding slot
//   - The FTS5 full-text search index
//
// # Database Schema
//
// Tables:
//   - memes: Meme metadata and content hashes
//   - emoji_tags: Emoji annotations with searchable keywords
//   - embeddings: Packed float32 vectors with model versioning
//   - memes_fts: FTS5 full-text search index (rowid = meme id)
//
// The FTS table is not content-linked. Its emoji_terms column aggregates
// the emoji_tags child rows, so the row is rebuilt inside the same
// transaction as every meme write instead of by triggers.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("~/.riposte/library.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.UpsertMeme(ctx, &types.Meme{
//	    Title:       "distracted boyfriend",
//	    ContentHash: hash,
//	})
//
// # Build Modes
//
// Two SQLite drivers are supported via build tags:
//   - Default: modernc.org/sqlite (pure Go, no cgo)
//   - cgo_sqlite: mattn/go-sqlite3 (cgo, faster FTS queries)
//
// Both drivers ship FTS5, so search behavior is identical across modes.
package storage
