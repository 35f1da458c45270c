package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/riposte-app/riposte-search/internal/config"
	"github.com/riposte-app/riposte-search/internal/embedder"
	"github.com/riposte-app/riposte-search/internal/library"
	"github.com/riposte-app/riposte-search/internal/searcher"
	"github.com/riposte-app/riposte-search/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "riposte-search"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	store   storage.Store
	library *library.Library
	engine  *searcher.Engine
	logger  *zap.Logger

	defaultLimit int
	cacheTTL     time.Duration
}

// NewServer creates a new MCP server instance
func NewServer(cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		APIKey:    cfg.Embedding.APIKey,
		OllamaURL: cfg.Embedding.OllamaURL,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	engine := searcher.NewEngine(store, emb, &cfg, logger)

	lib := library.New(store, emb,
		library.WithLogger(logger),
		library.WithCacheInvalidator(engine.InvalidateCache),
		library.WithWorkers(cfg.Embedding.Workers))

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:          mcpServer,
		store:        store,
		library:      lib,
		engine:       engine,
		logger:       logger,
		defaultLimit: cfg.Search.DefaultLimit,
		cacheTTL:     cfg.Search.CacheTTL,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchMemesTool(), s.handleSearchMemes)
	s.mcp.AddTool(addMemeTool(), s.handleAddMeme)
	s.mcp.AddTool(deleteMemeTool(), s.handleDeleteMeme)
	s.mcp.AddTool(setFavoriteTool(), s.handleSetFavorite)
	s.mcp.AddTool(markUsedTool(), s.handleMarkUsed)
	s.mcp.AddTool(listMemesTool(), s.handleListMemes)
	s.mcp.AddTool(getSuggestionsTool(), s.handleGetSuggestions)
	s.mcp.AddTool(regenerateEmbeddingsTool(), s.handleRegenerateEmbeddings)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
