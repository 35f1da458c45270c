package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riposte-app/riposte-search/internal/config"
	"github.com/riposte-app/riposte-search/internal/embedder"
	"github.com/riposte-app/riposte-search/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Config{}
	cfg.Database.Path = filepath.Join(t.TempDir(), "library.db")
	cfg.Embedding.Provider = embedder.ProviderLocal
	cfg.Embedding.CacheSize = 16
	cfg.Search.DefaultLimit = 10

	srv, err := NewServer(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.store.Close() })
	return srv
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()

	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "tool result should be text content")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

func addTestMeme(t *testing.T, srv *Server, title, description string) int64 {
	t.Helper()

	result, err := srv.handleAddMeme(context.Background(), toolRequest("add_meme", map[string]interface{}{
		"title":       title,
		"description": description,
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	id, ok := response["id"].(float64)
	require.True(t, ok, "add_meme response should include the id")
	return int64(id)
}

func TestServer_Initialization(t *testing.T) {
	t.Run("creates all components", func(t *testing.T) {
		srv := newTestServer(t)

		assert.NotNil(t, srv.mcp)
		assert.NotNil(t, srv.store)
		assert.NotNil(t, srv.library)
		assert.NotNil(t, srv.engine)
	})

	t.Run("carries search settings from config", func(t *testing.T) {
		cfg := config.Config{}
		cfg.Database.Path = filepath.Join(t.TempDir(), "library.db")
		cfg.Embedding.Provider = embedder.ProviderDisabled
		cfg.Search.DefaultLimit = 25
		cfg.Search.CacheTTL = 30 * time.Second

		srv, err := NewServer(cfg, nil)
		require.NoError(t, err)
		defer srv.store.Close()

		assert.Equal(t, 25, srv.defaultLimit)
		assert.Equal(t, 30*time.Second, srv.cacheTTL)
	})

	t.Run("creates database directory", func(t *testing.T) {
		cfg := config.Config{}
		cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "dir", "library.db")
		cfg.Embedding.Provider = embedder.ProviderDisabled
		cfg.Search.DefaultLimit = 10

		srv, err := NewServer(cfg, nil)
		require.NoError(t, err)
		defer srv.store.Close()

		assert.NotNil(t, srv)
	})
}

func TestHandleAddMeme(t *testing.T) {
	t.Run("adds a meme and returns its id", func(t *testing.T) {
		srv := newTestServer(t)

		result, err := srv.handleAddMeme(context.Background(), toolRequest("add_meme", map[string]interface{}{
			"title":        "distracted boyfriend",
			"description":  "guy looking at another girl",
			"content_hash": "hash-1",
			"emoji_tags": []interface{}{
				map[string]interface{}{
					"glyph":    "😂",
					"name":     "face with tears of joy",
					"keywords": []interface{}{"funny", "laugh"},
				},
			},
		}))
		require.NoError(t, err)

		response := resultJSON(t, result)
		assert.Equal(t, true, response["added"])
		assert.Greater(t, response["id"].(float64), float64(0))
	})

	t.Run("rejects a meme with no searchable content", func(t *testing.T) {
		srv := newTestServer(t)

		_, err := srv.handleAddMeme(context.Background(), toolRequest("add_meme", map[string]interface{}{}))
		require.Error(t, err)

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	})

	t.Run("rejects duplicate content", func(t *testing.T) {
		srv := newTestServer(t)

		args := map[string]interface{}{
			"title":        "same meme",
			"content_hash": "dup-hash",
		}
		_, err := srv.handleAddMeme(context.Background(), toolRequest("add_meme", args))
		require.NoError(t, err)

		_, err = srv.handleAddMeme(context.Background(), toolRequest("add_meme", args))
		require.Error(t, err)

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrorCodeDuplicateContent, mcpErr.Code)
	})
}

func TestHandleSearchMemes(t *testing.T) {
	t.Run("finds added memes by text", func(t *testing.T) {
		srv := newTestServer(t)
		addTestMeme(t, srv, "funny cat meme", "a cat doing cat things")
		addTestMeme(t, srv, "sad dog photo", "a dog in the rain")

		result, err := srv.handleSearchMemes(context.Background(), toolRequest("search_memes", map[string]interface{}{
			"query": "cat",
			"mode":  "text",
		}))
		require.NoError(t, err)

		response := resultJSON(t, result)
		results := response["results"].([]interface{})
		require.Len(t, results, 1)

		first := results[0].(map[string]interface{})
		assert.Equal(t, "funny cat meme", first["title"])
		assert.Equal(t, string(types.MatchText), first["match_type"])
	})

	t.Run("rejects empty query", func(t *testing.T) {
		srv := newTestServer(t)

		_, err := srv.handleSearchMemes(context.Background(), toolRequest("search_memes", map[string]interface{}{
			"query": "",
		}))
		require.Error(t, err)

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
	})

	t.Run("rejects invalid mode", func(t *testing.T) {
		srv := newTestServer(t)

		_, err := srv.handleSearchMemes(context.Background(), toolRequest("search_memes", map[string]interface{}{
			"query": "cat",
			"mode":  "fuzzy",
		}))
		require.Error(t, err)

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	})

	t.Run("rejects out of range limit", func(t *testing.T) {
		srv := newTestServer(t)

		_, err := srv.handleSearchMemes(context.Background(), toolRequest("search_memes", map[string]interface{}{
			"query": "cat",
			"limit": float64(500),
		}))
		require.Error(t, err)

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	})
}

func TestHandleLifecycleTools(t *testing.T) {
	t.Run("set_favorite then list favorites", func(t *testing.T) {
		srv := newTestServer(t)
		id := addTestMeme(t, srv, "keeper meme", "worth keeping")
		addTestMeme(t, srv, "other meme", "less so")

		_, err := srv.handleSetFavorite(context.Background(), toolRequest("set_favorite", map[string]interface{}{
			"id": float64(id),
		}))
		require.NoError(t, err)

		result, err := srv.handleListMemes(context.Background(), toolRequest("list_memes", map[string]interface{}{
			"kind": "favorites",
		}))
		require.NoError(t, err)

		response := resultJSON(t, result)
		results := response["results"].([]interface{})
		require.Len(t, results, 1)
		assert.Equal(t, "keeper meme", results[0].(map[string]interface{})["title"])
	})

	t.Run("mark_used increments usage", func(t *testing.T) {
		srv := newTestServer(t)
		id := addTestMeme(t, srv, "popular meme", "everyone shares this")

		_, err := srv.handleMarkUsed(context.Background(), toolRequest("mark_used", map[string]interface{}{
			"id": float64(id),
		}))
		require.NoError(t, err)

		result, err := srv.handleListMemes(context.Background(), toolRequest("list_memes", map[string]interface{}{
			"kind": "recent",
		}))
		require.NoError(t, err)

		response := resultJSON(t, result)
		results := response["results"].([]interface{})
		require.NotEmpty(t, results)
		assert.Equal(t, float64(1), results[0].(map[string]interface{})["usage_count"])
	})

	t.Run("delete_meme removes the meme", func(t *testing.T) {
		srv := newTestServer(t)
		id := addTestMeme(t, srv, "temporary meme", "soon gone")

		_, err := srv.handleDeleteMeme(context.Background(), toolRequest("delete_meme", map[string]interface{}{
			"id": float64(id),
		}))
		require.NoError(t, err)

		_, err = srv.handleDeleteMeme(context.Background(), toolRequest("delete_meme", map[string]interface{}{
			"id": float64(id),
		}))
		require.Error(t, err)

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrorCodeMemeNotFound, mcpErr.Code)
	})

	t.Run("missing id is rejected", func(t *testing.T) {
		srv := newTestServer(t)

		_, err := srv.handleDeleteMeme(context.Background(), toolRequest("delete_meme", map[string]interface{}{}))
		require.Error(t, err)

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	})
}

func TestHandleGetSuggestions(t *testing.T) {
	srv := newTestServer(t)
	addTestMeme(t, srv, "cat meme", "feline content")
	addTestMeme(t, srv, "catastrophe meme", "things going wrong")

	result, err := srv.handleGetSuggestions(context.Background(), toolRequest("get_suggestions", map[string]interface{}{
		"prefix": "cat",
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	suggestions := response["suggestions"].([]interface{})
	assert.Len(t, suggestions, 2)
}

func TestHandleGetStatus(t *testing.T) {
	srv := newTestServer(t)
	addTestMeme(t, srv, "counted meme", "shows up in statistics")

	result, err := srv.handleGetStatus(context.Background(), toolRequest("get_status", nil))
	require.NoError(t, err)

	response := resultJSON(t, result)
	stats := response["statistics"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["meme_count"])

	embedding := response["embedding"].(map[string]interface{})
	assert.Equal(t, embedder.ProviderLocal, embedding["provider"])

	health := response["health"].(map[string]interface{})
	assert.Equal(t, true, health["database_accessible"])
}

func TestHandleRegenerateEmbeddings(t *testing.T) {
	t.Run("regenerates flagged memes", func(t *testing.T) {
		srv := newTestServer(t)
		addTestMeme(t, srv, "versioned meme", "embeds with the current model")

		flagged, err := srv.store.MarkEmbeddingsStale(context.Background(), "some-newer-model")
		require.NoError(t, err)
		require.Equal(t, 2, flagged)

		result, err := srv.handleRegenerateEmbeddings(context.Background(), toolRequest("regenerate_embeddings", nil))
		require.NoError(t, err)

		response := resultJSON(t, result)
		assert.Equal(t, float64(1), response["regenerated"])
	})

	t.Run("advance with current model flags nothing", func(t *testing.T) {
		srv := newTestServer(t)
		addTestMeme(t, srv, "current meme", "already on the latest model")

		result, err := srv.handleRegenerateEmbeddings(context.Background(), toolRequest("regenerate_embeddings", map[string]interface{}{
			"advance_model": true,
		}))
		require.NoError(t, err)

		response := resultJSON(t, result)
		assert.Equal(t, float64(0), response["regenerated"])
	})

	t.Run("nothing stale means nothing regenerated", func(t *testing.T) {
		srv := newTestServer(t)
		addTestMeme(t, srv, "fresh meme", "embeddings already current")

		result, err := srv.handleRegenerateEmbeddings(context.Background(), toolRequest("regenerate_embeddings", nil))
		require.NoError(t, err)

		response := resultJSON(t, result)
		assert.Equal(t, float64(0), response["regenerated"])
	})
}
