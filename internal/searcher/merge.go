package searcher

import (
	"sort"

	"github.com/riposte-app/riposte-search/pkg/types"
)

// MergeResults combines full-text and semantic result lists into one ranked
// list using the weighted linear blend:
//
//   - text-only hit:     score = textScore * 0.6
//   - semantic-only hit: score = semanticScore * 0.4
//   - both:              score = textScore*0.6 + semanticScore*0.4, HYBRID
//
// After sorting by blended score, favorites scoring at or above the boost
// threshold are promoted to the front. The promotion is a stable partition:
// relative order inside each group is preserved, never re-sorted.
func MergeResults(textResults, semanticResults []types.SearchResult, limit int) []types.SearchResult {
	merged := make(map[int64]*types.SearchResult, len(textResults)+len(semanticResults))
	order := make([]int64, 0, len(textResults)+len(semanticResults))

	for _, r := range textResults {
		if r.Meme == nil {
			continue
		}
		entry := types.SearchResult{
			Meme:           r.Meme,
			RelevanceScore: r.RelevanceScore * TextWeight,
			MatchType:      r.MatchType,
		}
		merged[r.Meme.ID] = &entry
		order = append(order, r.Meme.ID)
	}

	for _, r := range semanticResults {
		if r.Meme == nil {
			continue
		}
		if existing, ok := merged[r.Meme.ID]; ok {
			existing.RelevanceScore += r.RelevanceScore * SemanticWeight
			existing.MatchType = types.MatchHybrid
			continue
		}
		entry := types.SearchResult{
			Meme:           r.Meme,
			RelevanceScore: r.RelevanceScore * SemanticWeight,
			MatchType:      types.MatchSemantic,
		}
		merged[r.Meme.ID] = &entry
		order = append(order, r.Meme.ID)
	}

	results := make([]types.SearchResult, 0, len(order))
	for _, id := range order {
		results = append(results, *merged[id])
	}

	// Stable sort keeps insertion order for equal scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	results = boostFavorites(results)

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// boostFavorites partitions a score-sorted list into favorites at or above
// the boost threshold followed by everything else, preserving relative order
// within each partition. A favorite that matched nothing interesting stays
// where its score puts it.
func boostFavorites(results []types.SearchResult) []types.SearchResult {
	boosted := make([]types.SearchResult, 0, len(results))
	rest := make([]types.SearchResult, 0, len(results))

	for _, r := range results {
		if r.Meme != nil && r.Meme.Favorite && r.RelevanceScore >= FavoriteBoostThreshold {
			boosted = append(boosted, r)
		} else {
			rest = append(rest, r)
		}
	}

	return append(boosted, rest...)
}
