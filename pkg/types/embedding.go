package types

import "time"

// EmbeddingSlot identifies which semantic facet of a meme a vector captures.
// A meme may carry one vector per slot; similarity scoring max-pools across
// whatever slots are present.
type EmbeddingSlot string

const (
	// SlotContent captures what the meme is (title, description, OCR text)
	SlotContent EmbeddingSlot = "content"
	// SlotIntent captures how a user would phrase a search for the meme
	SlotIntent EmbeddingSlot = "intent"
)

// AllSlots lists every valid embedding slot
var AllSlots = []EmbeddingSlot{SlotContent, SlotIntent}

// SlotFromKey decodes a storage key into an EmbeddingSlot. The lookup is
// total: unknown keys return ok=false instead of panicking, so stale rows
// written by a newer schema never abort a search.
func SlotFromKey(key string) (EmbeddingSlot, bool) {
	switch EmbeddingSlot(key) {
	case SlotContent:
		return SlotContent, true
	case SlotIntent:
		return SlotIntent, true
	default:
		return "", false
	}
}

// EmbeddingVector is a fixed-dimension float vector attached to a meme.
// Well-behaved embedders emit unit-normalized vectors; the similarity engine
// trusts that but tolerates zero-magnitude vectors without crashing.
type EmbeddingVector struct {
	MemeID      int64
	Slot        EmbeddingSlot
	Vector      []float32
	Dimension   int
	Model       string // Model version that generated this vector
	Stale       bool   // Needs regeneration (content or model changed)
	GeneratedAt time.Time
}
