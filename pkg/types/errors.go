package types

import "errors"

// Domain errors for type validation
var (
	ErrNoSearchableContent   = errors.New("meme has no searchable content")
	ErrMissingMeme           = errors.New("search result has no meme")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
	ErrInvalidMatchType      = errors.New("invalid match type")
)
