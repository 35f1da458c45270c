package types

// MatchType records which retrieval paths contributed to a result
type MatchType string

const (
	MatchText     MatchType = "text"     // Full-text match on title/description/content
	MatchEmoji    MatchType = "emoji"    // Match driven only by emoji-tag data
	MatchSemantic MatchType = "semantic" // Vector similarity match
	MatchHybrid   MatchType = "hybrid"   // Both a text and a semantic match contributed
)

// MatchTypeFromKey decodes a stored key into a MatchType. Unknown keys return
// ok=false rather than panicking.
func MatchTypeFromKey(key string) (MatchType, bool) {
	switch MatchType(key) {
	case MatchText:
		return MatchText, true
	case MatchEmoji:
		return MatchEmoji, true
	case MatchSemantic:
		return MatchSemantic, true
	case MatchHybrid:
		return MatchHybrid, true
	default:
		return "", false
	}
}

// SearchResult pairs a meme with its relevance for one query. Results are
// built fresh per query and never persisted.
type SearchResult struct {
	Meme           *Meme
	RelevanceScore float64 // Always clamped into [0, 1]
	MatchType      MatchType
}

// ClampScore forces a relevance score into the closed range [0, 1]
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Meme == nil {
		return ErrMissingMeme
	}
	if sr.RelevanceScore < 0 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}
	if _, ok := MatchTypeFromKey(string(sr.MatchType)); !ok {
		return ErrInvalidMatchType
	}
	return nil
}
