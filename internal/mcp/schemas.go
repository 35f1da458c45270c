package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchMemesTool returns the tool definition for search_memes
func searchMemesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_memes",
		Description: "Search the meme library with hybrid full-text and semantic search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (keywords, natural language, or a single emoji in emoji mode)",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Search mode",
					"enum":        []string{"hybrid", "text", "semantic", "emoji"},
					"default":     "hybrid",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// addMemeTool returns the tool definition for add_meme
func addMemeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_meme",
		Description: "Add an annotated meme to the library and index it for search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Short title for the meme",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Longer description of the meme's content or usage",
				},
				"content_text": map[string]interface{}{
					"type":        "string",
					"description": "Text extracted from the meme image (e.g. OCR output)",
				},
				"content_hash": map[string]interface{}{
					"type":        "string",
					"description": "Stable hash of the meme content, used for deduplication",
				},
				"emoji_tags": map[string]interface{}{
					"type":        "array",
					"description": "Emoji annotations",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"glyph": map[string]interface{}{
								"type":        "string",
								"description": "The emoji character",
							},
							"name": map[string]interface{}{
								"type":        "string",
								"description": "Canonical emoji name (e.g. 'face_with_tears_of_joy')",
							},
							"category": map[string]interface{}{
								"type":        "string",
								"description": "Emoji category",
							},
							"keywords": map[string]interface{}{
								"type":        "array",
								"description": "Searchable keywords for this emoji",
								"items":       map[string]interface{}{"type": "string"},
							},
						},
						"required": []string{"glyph"},
					},
				},
			},
		},
	}
}

// deleteMemeTool returns the tool definition for delete_meme
func deleteMemeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_meme",
		Description: "Remove a meme from the library",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Meme identifier",
				},
			},
			Required: []string{"id"},
		},
	}
}

// setFavoriteTool returns the tool definition for set_favorite
func setFavoriteTool() mcp.Tool {
	return mcp.Tool{
		Name:        "set_favorite",
		Description: "Mark or unmark a meme as a favorite; favorites rank higher in search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Meme identifier",
				},
				"favorite": map[string]interface{}{
					"type":        "boolean",
					"description": "Favorite state to set",
					"default":     true,
				},
			},
			Required: []string{"id"},
		},
	}
}

// markUsedTool returns the tool definition for mark_used
func markUsedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "mark_used",
		Description: "Record that a meme was shared, updating its usage count and recency",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Meme identifier",
				},
			},
			Required: []string{"id"},
		},
	}
}

// listMemesTool returns the tool definition for list_memes
func listMemesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_memes",
		Description: "List memes without a search query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Which listing to return",
					"enum":        []string{"all", "favorites", "recent"},
					"default":     "all",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Pagination offset, only used with kind=all",
					"default":     0,
					"minimum":     0,
				},
			},
		},
	}
}

// getSuggestionsTool returns the tool definition for get_suggestions
func getSuggestionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_suggestions",
		Description: "Get typeahead search suggestions for a prefix",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"prefix": map[string]interface{}{
					"type":        "string",
					"description": "Partial search term",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of suggestions (1-25)",
					"default":     10,
					"minimum":     1,
					"maximum":     25,
				},
			},
			Required: []string{"prefix"},
		},
	}
}

// regenerateEmbeddingsTool returns the tool definition for regenerate_embeddings
func regenerateEmbeddingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "regenerate_embeddings",
		Description: "Regenerate stale embeddings, optionally flagging vectors from older model versions first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"advance_model": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, flag every embedding produced by a different model version as stale before regenerating",
					"default":     false,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report library statistics and index health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
