// Package mcp exposes the meme library over the Model Context Protocol.
//
// The server runs on stdio and registers tools for searching, ingesting,
// and curating memes, plus maintenance tools for embedding regeneration
// and library status. Tool handlers translate protocol arguments into
// calls on the library and search engine, and report failures as MCP
// protocol errors with structured data.
package mcp
