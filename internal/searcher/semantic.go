package searcher

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/riposte-app/riposte-search/internal/embedder"
	"github.com/riposte-app/riposte-search/internal/vector"
	"github.com/riposte-app/riposte-search/pkg/types"
)

// runSemanticSearch embeds the query and ranks memes by cosine similarity.
// Each meme may carry several embedding slots; its score is the maximum
// similarity across them, so a meme ranks well if it matches the query
// strongly along any semantic facet.
//
// Invalid stored vectors (short or truncated blobs, unknown slot keys) are
// logged and skipped. A dimension mismatch between the query vector and a
// stored vector is a model-version bug and fails fast.
func (e *Engine) runSemanticSearch(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	emb, err := e.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	rows, err := e.store.ListEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	// Decode and group vector slots by meme
	slotsByMeme := make(map[int64][][]float32)
	memeOrder := make([]int64, 0)
	for _, row := range rows {
		vec, ok := row.ToVector(vector.Decode(row.Vector))
		if !ok {
			// Row written by a newer schema; not ours to rank
			e.logger.Warn("skipping embedding with unknown slot key",
				zap.Int64("meme_id", row.MemeID),
				zap.String("slot", row.Slot))
			continue
		}
		if len(vec.Vector) < vector.MinDimensions {
			e.logger.Warn("skipping invalid stored vector",
				zap.Int64("meme_id", vec.MemeID),
				zap.String("slot", string(vec.Slot)),
				zap.Int("dimensions", len(vec.Vector)))
			continue
		}
		if _, seen := slotsByMeme[vec.MemeID]; !seen {
			memeOrder = append(memeOrder, vec.MemeID)
		}
		slotsByMeme[vec.MemeID] = append(slotsByMeme[vec.MemeID], vec.Vector)
	}

	type scored struct {
		memeID int64
		score  float64
	}
	ranked := make([]scored, 0, len(slotsByMeme))
	for _, memeID := range memeOrder {
		score, err := vector.MaxPool(emb.Vector, slotsByMeme[memeID])
		if err != nil {
			return nil, fmt.Errorf("similarity for meme %d: %w", memeID, err)
		}
		ranked = append(ranked, scored{memeID: memeID, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]types.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		meme, err := e.store.GetMeme(ctx, r.memeID)
		if err != nil {
			// Embedding rows can outlive their meme briefly; skip
			continue
		}
		results = append(results, types.SearchResult{
			Meme:           meme,
			RelevanceScore: types.ClampScore(r.score),
			MatchType:      types.MatchSemantic,
		})
	}

	return results, nil
}
