package types

import (
	"strings"
	"time"
)

// Meme is the unit of retrieval: a stored image plus the searchable metadata
// attached to it. The search core treats memes as read-only input; ownership
// of the rows lives in the storage layer.
type Meme struct {
	ID          int64
	Title       string
	Description string
	ContentText string // OCR-extracted text from the image, may be empty
	ContentHash string // SHA-256 of the image content, used for dedupe
	EmojiTags   []EmojiTag
	Favorite    bool
	UsageCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EmojiTag labels a meme with an emoji glyph plus searchable synonyms
type EmojiTag struct {
	Glyph    string // The emoji character itself
	Name     string // Canonical name, e.g. "face with tears of joy"
	Category string // Optional grouping, e.g. "smileys"
	Keywords []string
}

// SearchText concatenates the tag's searchable terms for FTS indexing
func (t EmojiTag) SearchText() string {
	parts := make([]string, 0, 3+len(t.Keywords))
	if t.Glyph != "" {
		parts = append(parts, t.Glyph)
	}
	if t.Name != "" {
		parts = append(parts, t.Name)
	}
	if t.Category != "" {
		parts = append(parts, t.Category)
	}
	parts = append(parts, t.Keywords...)
	return strings.Join(parts, " ")
}

// EmojiSearchText joins the searchable terms of every tag on a meme
func (m *Meme) EmojiSearchText() string {
	if len(m.EmojiTags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m.EmojiTags))
	for _, tag := range m.EmojiTags {
		parts = append(parts, tag.SearchText())
	}
	return strings.Join(parts, " ")
}

// Validate checks if the meme has the minimum data required for indexing
func (m *Meme) Validate() error {
	if m.Title == "" && m.Description == "" && m.ContentText == "" && len(m.EmojiTags) == 0 {
		return ErrNoSearchableContent
	}
	return nil
}
