// Package types provides shared type definitions for the Riposte search engine.
//
// This package defines the domain types used across the search components:
// memes, emoji tags, embedding vectors, and search results.
//
// # Core Types
//
// Meme is the unit of retrieval, carrying the text fields the full-text index
// covers plus the emoji tags and user signals (favorite flag, usage counter):
//
//	meme := &types.Meme{
//	    Title:       "distracted boyfriend",
//	    Description: "guy checking out another girl",
//	    EmojiTags:   []types.EmojiTag{{Glyph: "😂", Name: "face with tears of joy"}},
//	}
//
// EmbeddingVector attaches a semantic vector to a meme. Each meme may carry
// one vector per slot: SlotContent summarizes what the meme is, SlotIntent
// summarizes how a user would phrase a search for it. Similarity scoring
// takes the maximum across slots.
//
// SearchResult pairs a meme with a relevance score in [0, 1] and a MatchType
// recording which retrieval paths contributed. MatchHybrid means both a text
// match and a semantic match fed the final score.
//
// # Key Decoding
//
// MatchTypeFromKey and SlotFromKey decode storage keys into their closed
// enum types. Both are total: unknown keys return ok=false instead of
// panicking, so rows written by other schema versions never abort a query.
package types
