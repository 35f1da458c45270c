package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/riposte-app/riposte-search/internal/embedder"
	"github.com/riposte-app/riposte-search/internal/sanitize"
	"github.com/riposte-app/riposte-search/internal/storage"
	"github.com/riposte-app/riposte-search/pkg/types"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeHybrid   SearchMode = "hybrid"   // Text + semantic with weighted blend
	SearchModeText     SearchMode = "text"     // Full-text only
	SearchModeSemantic SearchMode = "semantic" // Vector similarity only
	SearchModeEmoji    SearchMode = "emoji"    // Emoji tag column only
)

// FTS columns searchable by text queries
var searchColumns = []string{"title", "description", "content_text", "emoji_terms"}

// emojiColumn is the FTS column holding aggregated emoji tag terms
const emojiColumn = "emoji_terms"

// Preferences supplies user-controlled search settings
type Preferences interface {
	// SemanticSearchEnabled reports whether hybrid search should attempt
	// the semantic leg at all
	SemanticSearchEnabled() bool
}

// StaticPreferences is a fixed Preferences value, useful for tests and for
// deployments without a settings surface
type StaticPreferences struct {
	Semantic bool
}

func (p StaticPreferences) SemanticSearchEnabled() bool { return p.Semantic }

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query    string
	Limit    int
	Mode     SearchMode
	UseCache bool
	CacheTTL time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results         []types.SearchResult
	TotalResults    int
	SearchMode      SearchMode
	Duration        time.Duration
	CacheHit        bool
	TextResults     int
	SemanticResults int
	// Degraded is set when the semantic leg was skipped because the
	// embedding model is unavailable or disabled
	Degraded bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Engine coordinates search operations across full-text and semantic search
type Engine struct {
	store    storage.Store
	embedder embedder.Embedder
	prefs    Preferences
	logger   *zap.Logger
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewEngine creates a new search Engine
func NewEngine(store storage.Store, emb embedder.Embedder, prefs Preferences, logger *zap.Logger) *Engine {
	if prefs == nil {
		prefs = StaticPreferences{Semantic: true}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Engine{
		store:    store,
		embedder: emb,
		prefs:    prefs,
		logger:   logger,
		cache:    cache,
	}
}

// Search performs a search based on the request parameters
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := e.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	// Blank queries are a no-op, never an error
	if blankQuery(req) {
		return &SearchResponse{
			Results:    []types.SearchResult{},
			SearchMode: req.Mode,
			Duration:   time.Since(startTime),
		}, nil
	}

	if req.UseCache {
		if cached := e.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	var response *SearchResponse
	var err error

	switch req.Mode {
	case SearchModeHybrid:
		response, err = e.hybridSearch(ctx, req)
	case SearchModeText:
		response, err = e.textOnlySearch(ctx, req)
	case SearchModeSemantic:
		response, err = e.semanticOnlySearch(ctx, req)
	case SearchModeEmoji:
		response, err = e.emojiSearch(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode)
	}

	if err != nil {
		return nil, err
	}

	response.Duration = time.Since(startTime)
	response.SearchMode = req.Mode

	if req.UseCache && len(response.Results) > 0 {
		e.storeInCache(req, response)
	}

	return response, nil
}

// SearchByText runs full-text search with field-weighted scoring
func (e *Engine) SearchByText(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	resp, err := e.Search(ctx, SearchRequest{Query: query, Limit: limit, Mode: SearchModeText})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// SearchSemantic runs vector similarity search only
func (e *Engine) SearchSemantic(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	resp, err := e.Search(ctx, SearchRequest{Query: query, Limit: limit, Mode: SearchModeSemantic})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// SearchHybrid runs text and semantic search concurrently and merges them
func (e *Engine) SearchHybrid(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	resp, err := e.Search(ctx, SearchRequest{Query: query, Limit: limit, Mode: SearchModeHybrid})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// SearchByEmoji finds memes tagged with the given emoji
func (e *Engine) SearchByEmoji(ctx context.Context, emoji string, limit int) ([]types.SearchResult, error) {
	resp, err := e.Search(ctx, SearchRequest{Query: emoji, Limit: limit, Mode: SearchModeEmoji})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Suggestions returns typeahead completions for a prefix
func (e *Engine) Suggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	cleaned := sanitize.Sanitize(prefix, 1, 1)
	if cleaned == "" {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return e.store.SuggestTerms(ctx, cleaned, limit)
}

// Favorites lists favorited memes with position-decay scores
func (e *Engine) Favorites(ctx context.Context, limit int) ([]types.SearchResult, error) {
	memes, err := e.store.ListFavorites(ctx, limit)
	if err != nil {
		return nil, err
	}
	return decayScored(memes), nil
}

// Recents lists recently used memes with position-decay scores
func (e *Engine) Recents(ctx context.Context, limit int) ([]types.SearchResult, error) {
	memes, err := e.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return decayScored(memes), nil
}

// All lists memes with position-decay scores, paginated
func (e *Engine) All(ctx context.Context, limit, offset int) ([]types.SearchResult, error) {
	memes, err := e.store.ListMemes(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return decayScored(memes), nil
}

// InvalidateCache drops all cached query results. Called after library
// writes so searches never serve stale results.
func (e *Engine) InvalidateCache() {
	e.cacheMu.Lock()
	e.cache.Purge()
	e.cacheMu.Unlock()
}

// blankQuery reports whether the query sanitizes to nothing under the
// grammar the mode will actually execute. Emoji queries take the lighter
// emoji path, which keeps tokens the term sanitizer drops (short ASCII
// tags, tokens spelled like boolean keywords).
func blankQuery(req SearchRequest) bool {
	if req.Mode == SearchModeEmoji {
		return sanitize.PrepareEmojiQuery(req.Query, emojiColumn) == ""
	}
	return sanitize.Sanitize(req.Query, sanitize.DefaultMinTermLength, sanitize.DefaultMaxTerms) == ""
}

// legResult holds the outcome of one concurrent search leg
type legResult struct {
	results []types.SearchResult
	err     error
}

// hybridSearch runs the full-text and semantic legs concurrently, degrades
// to text-only when the embedding model is unavailable, and merges with the
// weighted blend
func (e *Engine) hybridSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if !e.prefs.SemanticSearchEnabled() {
		resp, err := e.textOnlySearch(ctx, req)
		if err != nil {
			return nil, err
		}
		resp.Degraded = true
		return resp, nil
	}

	textChan := make(chan legResult, 1)
	semanticChan := make(chan legResult, 1)

	// Over-fetch both legs so the merge has enough candidates
	fetchLimit := req.Limit * 2

	go func() {
		var res legResult
		res.results, res.err = e.runTextSearch(ctx, req.Query, fetchLimit)
		select {
		case textChan <- res:
		case <-ctx.Done():
		}
	}()
	go func() {
		var res legResult
		res.results, res.err = e.runSemanticSearch(ctx, req.Query, fetchLimit)
		select {
		case semanticChan <- res:
		case <-ctx.Done():
		}
	}()

	var textRes, semanticRes legResult
	var textDone, semanticDone bool
	for !textDone || !semanticDone {
		select {
		case textRes = <-textChan:
			textDone = true
		case semanticRes = <-semanticChan:
			semanticDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if textRes.err != nil {
		return nil, textRes.err
	}

	degraded := false
	if semanticRes.err != nil {
		// A missing model degrades to text-only; anything else is a real
		// failure and propagates
		if !embedder.IsUnavailable(semanticRes.err) {
			return nil, semanticRes.err
		}
		e.logger.Warn("semantic search unavailable, falling back to text-only",
			zap.String("query", req.Query),
			zap.Error(semanticRes.err))
		semanticRes.results = nil
		degraded = true
	}

	merged := MergeResults(textRes.results, semanticRes.results, req.Limit)

	return &SearchResponse{
		Results:         merged,
		TotalResults:    len(merged),
		TextResults:     len(textRes.results),
		SemanticResults: len(semanticRes.results),
		Degraded:        degraded,
	}, nil
}

func (e *Engine) textOnlySearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	results, err := e.runTextSearch(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		TextResults:  len(results),
	}, nil
}

func (e *Engine) semanticOnlySearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	results, err := e.runSemanticSearch(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{
		Results:         results,
		TotalResults:    len(results),
		SemanticResults: len(results),
	}, nil
}

func (e *Engine) emojiSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	expr := sanitize.PrepareEmojiQuery(req.Query, emojiColumn)
	if expr == "" {
		return &SearchResponse{Results: []types.SearchResult{}}, nil
	}

	memes, err := e.store.SearchEmoji(ctx, expr, req.Limit)
	if err != nil {
		return nil, err
	}

	// Pre-ordered by the index; rank-based scoring applies
	results := make([]types.SearchResult, 0, len(memes))
	for i, meme := range memes {
		results = append(results, types.SearchResult{
			Meme:           meme,
			RelevanceScore: PositionDecayScore(i),
			MatchType:      types.MatchEmoji,
		})
	}

	return &SearchResponse{
		Results:      results,
		TotalResults: len(results),
	}, nil
}

// runTextSearch executes the full-text leg: sanitized multi-column MATCH,
// then field-weighted re-scoring
func (e *Engine) runTextSearch(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	expr := sanitize.PrepareForColumns(query, searchColumns, sanitize.DefaultMinTermLength, sanitize.DefaultMaxTerms)
	if expr == "" {
		return []types.SearchResult{}, nil
	}

	memes, err := e.store.SearchText(ctx, expr, limit)
	if err != nil {
		return nil, fmt.Errorf("text search failed: %w", err)
	}

	cleaned := sanitize.Sanitize(query, sanitize.DefaultMinTermLength, sanitize.DefaultMaxTerms)

	results := make([]types.SearchResult, 0, len(memes))
	for _, meme := range memes {
		score, matchType := ScoreFields(meme, cleaned)
		results = append(results, types.SearchResult{
			Meme:           meme,
			RelevanceScore: score,
			MatchType:      matchType,
		})
	}

	// Stable sort preserves the index's bm25 order within equal scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	return results, nil
}

// validateRequest ensures search request is valid
func (e *Engine) validateRequest(req *SearchRequest) error {
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Mode == "" {
		req.Mode = SearchModeHybrid
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = 5 * time.Minute
	}
	return nil
}

// checkCache looks up cached search results, returning nil on miss
func (e *Engine) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)
	now := time.Now()

	e.cacheMu.RLock()
	entry, found := e.cache.Get(hash)
	if !found {
		e.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		e.cacheMu.RUnlock()
		e.cacheMu.Lock()
		e.cache.Remove(hash)
		e.cacheMu.Unlock()
		return nil
	}

	// Copy while holding the read lock so the entry can't change mid-copy
	response := copySearchResponse(entry.response)
	e.cacheMu.RUnlock()

	return response
}

// storeInCache saves search results to the query cache
func (e *Engine) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	e.cacheMu.Lock()
	e.cache.Add(computeQueryHash(req), entry)
	e.cacheMu.Unlock()
}

// computeQueryHash builds a cache key from the ranking-relevant request
// fields
func computeQueryHash(req SearchRequest) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", req.Mode, req.Query, req.Limit)))
}

// copySearchResponse deep-copies a response so cached entries can't be
// mutated by callers
func copySearchResponse(resp *SearchResponse) *SearchResponse {
	out := *resp
	out.Results = make([]types.SearchResult, len(resp.Results))
	copy(out.Results, resp.Results)
	return &out
}

// decayScored wraps a pre-ordered listing in position-decay scored results
func decayScored(memes []*types.Meme) []types.SearchResult {
	results := make([]types.SearchResult, 0, len(memes))
	for i, meme := range memes {
		results = append(results, types.SearchResult{
			Meme:           meme,
			RelevanceScore: PositionDecayScore(i),
			MatchType:      types.MatchText,
		})
	}
	return results
}
