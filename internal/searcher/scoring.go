package searcher

import (
	"strings"

	"github.com/riposte-app/riposte-search/pkg/types"
)

// Ranking policy constants. These are hand-tuned policy knobs, not derived
// values; changing them changes result ordering but never validity.
const (
	// TextWeight scales full-text scores in the hybrid blend
	TextWeight = 0.6
	// SemanticWeight scales semantic similarity scores in the hybrid blend
	SemanticWeight = 0.4
	// FavoriteBoostThreshold is the minimum score a favorite needs to be
	// promoted to the front of the result list
	FavoriteBoostThreshold = 0.5

	// BaseMatchScore is the floor score for any full-text hit
	BaseMatchScore = 0.5
	// TitleMatchBonus is added when the title contains the query
	TitleMatchBonus = 0.3
	// DescriptionMatchBonus is added when the description contains the query
	DescriptionMatchBonus = 0.15
	// EmojiMatchBonus is added when emoji tag data contains the query
	EmojiMatchBonus = 0.1

	// PositionDecayStep and PositionDecayFloor shape rank-based scoring for
	// pre-ordered listings: score = 1.0 - min(index*step, cap)
	PositionDecayStep = 0.01
	PositionDecayCap  = 0.5
)

// ScoreFields assigns a relevance score to a full-text hit from which fields
// contain the query, and decides the match type by field priority: title or
// description matches are text matches, emoji-only matches are emoji
// matches.
func ScoreFields(meme *types.Meme, query string) (float64, types.MatchType) {
	q := strings.ToLower(strings.TrimSpace(query))
	score := BaseMatchScore

	titleHit := q != "" && strings.Contains(strings.ToLower(meme.Title), q)
	descHit := q != "" && strings.Contains(strings.ToLower(meme.Description), q)
	emojiHit := q != "" && strings.Contains(strings.ToLower(meme.EmojiSearchText()), q)

	if titleHit {
		score += TitleMatchBonus
	}
	if descHit {
		score += DescriptionMatchBonus
	}
	if emojiHit {
		score += EmojiMatchBonus
	}
	if score > 1.0 {
		score = 1.0
	}

	matchType := types.MatchText
	if emojiHit && !titleHit && !descHit {
		matchType = types.MatchEmoji
	}

	return score, matchType
}

// PositionDecayScore scores a result by its position in a pre-ordered list.
// Linear decay from 1.0, capped at halving, for listings with no text-match
// signal to score against (emoji browse, favorites, recents).
func PositionDecayScore(index int) float64 {
	decay := float64(index) * PositionDecayStep
	if decay > PositionDecayCap {
		decay = PositionDecayCap
	}
	return 1.0 - decay
}
