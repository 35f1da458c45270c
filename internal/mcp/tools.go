package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/riposte-app/riposte-search/internal/embedder"
	"github.com/riposte-app/riposte-search/internal/searcher"
	"github.com/riposte-app/riposte-search/internal/storage"
	"github.com/riposte-app/riposte-search/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeMemeNotFound     = -32001 // No meme with the given id
	ErrorCodeDuplicateContent = -32002 // A meme with the same content hash exists
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

// handleSearchMemes handles the search_memes tool invocation
func (s *Server) handleSearchMemes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", s.defaultLimit)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	mode := searcher.SearchMode(getStringDefault(args, "mode", string(searcher.SearchModeHybrid)))
	switch mode {
	case searcher.SearchModeHybrid, searcher.SearchModeText, searcher.SearchModeSemantic, searcher.SearchModeEmoji:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   string(mode),
			"allowed": []string{"hybrid", "text", "semantic", "emoji"},
		})
	}

	resp, err := s.engine.Search(ctx, searcher.SearchRequest{
		Query:    query,
		Limit:    limit,
		Mode:     mode,
		UseCache: true,
		CacheTTL: s.cacheTTL,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, formatResult(r))
	}

	response := map[string]interface{}{
		"results":       results,
		"total_results": resp.TotalResults,
		"mode":          string(resp.SearchMode),
		"degraded":      resp.Degraded,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAddMeme handles the add_meme tool invocation
func (s *Server) handleAddMeme(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	meme := &types.Meme{
		Title:       getStringDefault(args, "title", ""),
		Description: getStringDefault(args, "description", ""),
		ContentText: getStringDefault(args, "content_text", ""),
		ContentHash: getStringDefault(args, "content_hash", ""),
	}

	if rawTags, ok := args["emoji_tags"].([]interface{}); ok {
		for _, raw := range rawTags {
			tagMap, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			tag := types.EmojiTag{
				Glyph:    getStringDefault(tagMap, "glyph", ""),
				Name:     getStringDefault(tagMap, "name", ""),
				Category: getStringDefault(tagMap, "category", ""),
			}
			if rawKeywords, ok := tagMap["keywords"].([]interface{}); ok {
				for _, kw := range rawKeywords {
					if s, ok := kw.(string); ok && s != "" {
						tag.Keywords = append(tag.Keywords, s)
					}
				}
			}
			if tag.Glyph != "" {
				meme.EmojiTags = append(meme.EmojiTags, tag)
			}
		}
	}

	added, err := s.library.Add(ctx, meme)
	if errors.Is(err, storage.ErrDuplicateContent) {
		data := map[string]interface{}{}
		if added != nil {
			data["existing_id"] = added.ID
		}
		return nil, newMCPError(ErrorCodeDuplicateContent, "a meme with this content already exists", data)
	}
	if errors.Is(err, types.ErrNoSearchableContent) {
		return nil, newMCPError(ErrorCodeInvalidParams, "meme has no searchable content", map[string]interface{}{
			"reason": "provide at least one of title, description, content_text, or emoji_tags",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to add meme", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"added": true,
		"id":    added.ID,
		"title": added.Title,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteMeme handles the delete_meme tool invocation
func (s *Server) handleDeleteMeme(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(request)
	if err != nil {
		return nil, err
	}

	if err := s.library.Remove(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeMemeNotFound, "meme not found", map[string]interface{}{"id": id})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to delete meme", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"id":      id,
	})), nil
}

// handleSetFavorite handles the set_favorite tool invocation
func (s *Server) handleSetFavorite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(request)
	if err != nil {
		return nil, err
	}

	args, _ := request.Params.Arguments.(map[string]interface{})
	favorite := getBoolDefault(args, "favorite", true)

	if err := s.library.SetFavorite(ctx, id, favorite); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeMemeNotFound, "meme not found", map[string]interface{}{"id": id})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to set favorite", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"id":       id,
		"favorite": favorite,
	})), nil
}

// handleMarkUsed handles the mark_used tool invocation
func (s *Server) handleMarkUsed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(request)
	if err != nil {
		return nil, err
	}

	if err := s.library.MarkUsed(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeMemeNotFound, "meme not found", map[string]interface{}{"id": id})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to mark meme used", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"id":   id,
		"used": true,
	})), nil
}

// handleListMemes handles the list_memes tool invocation
func (s *Server) handleListMemes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	kind := getStringDefault(args, "kind", "all")
	limit := getIntDefault(args, "limit", s.defaultLimit)
	offset := getIntDefault(args, "offset", 0)

	var results []types.SearchResult
	var err error
	switch kind {
	case "all":
		results, err = s.engine.All(ctx, limit, offset)
	case "favorites":
		results, err = s.engine.Favorites(ctx, limit)
	case "recent":
		results, err = s.engine.Recents(ctx, limit)
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
			"param":   "kind",
			"value":   kind,
			"allowed": []string{"all", "favorites", "recent"},
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list memes", map[string]interface{}{
			"error": err.Error(),
		})
	}

	formatted := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		formatted = append(formatted, formatResult(r))
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"kind":    kind,
		"results": formatted,
	})), nil
}

// handleGetSuggestions handles the get_suggestions tool invocation
func (s *Server) handleGetSuggestions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	prefix, ok := args["prefix"].(string)
	if !ok || prefix == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "prefix parameter is required", map[string]interface{}{
			"param":  "prefix",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 25 {
		limit = 10
	}

	suggestions, err := s.engine.Suggestions(ctx, prefix, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to fetch suggestions", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"prefix":      prefix,
		"suggestions": suggestions,
	})), nil
}

// handleRegenerateEmbeddings handles the regenerate_embeddings tool invocation
func (s *Server) handleRegenerateEmbeddings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	advance := getBoolDefault(args, "advance_model", false)

	var refreshed int
	var err error
	if advance {
		refreshed, err = s.library.AdvanceModel(ctx)
	} else {
		refreshed, err = s.library.RegenerateStale(ctx)
	}

	if embedder.IsUnavailable(err) {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"regenerated": 0,
			"skipped":     true,
			"reason":      "embedding model unavailable",
		})), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "regeneration failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"regenerated": refreshed,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, provider, model, err := s.library.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"meme_count":       status.MemeCount,
			"favorite_count":   status.FavoriteCount,
			"embedding_count":  status.EmbeddingCount,
			"stale_embeddings": status.StaleEmbeddings,
		},
		"embedding": map[string]interface{}{
			"provider": provider,
			"model":    model,
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"fts_index_built":      status.Health.FTSIndexBuilt,
			"embeddings_available": status.Health.EmbeddingsAvailable,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// formatResult flattens a search result for tool output
func formatResult(r types.SearchResult) map[string]interface{} {
	glyphs := make([]string, 0, len(r.Meme.EmojiTags))
	for _, tag := range r.Meme.EmojiTags {
		glyphs = append(glyphs, tag.Glyph)
	}
	return map[string]interface{}{
		"id":          r.Meme.ID,
		"title":       r.Meme.Title,
		"description": r.Meme.Description,
		"emoji":       glyphs,
		"favorite":    r.Meme.Favorite,
		"usage_count": r.Meme.UsageCount,
		"score":       r.RelevanceScore,
		"match_type":  string(r.MatchType),
	}
}

// requireID extracts the required integer id argument
func requireID(request mcp.CallToolRequest) (int64, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return 0, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, ok := args["id"].(float64)
	if !ok || raw <= 0 {
		return 0, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or not a positive integer",
		})
	}
	return int64(raw), nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}
