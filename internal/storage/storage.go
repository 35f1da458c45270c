package storage

import (
	"context"
	"time"

	"github.com/riposte-app/riposte-search/pkg/types"
)

// Store defines the interface for persisting and querying the meme library.
// Search methods execute already-sanitized MATCH expressions; building those
// expressions (and scoring the candidates) is the searcher's job.
type Store interface {
	// Meme operations
	UpsertMeme(ctx context.Context, meme *types.Meme) error
	GetMeme(ctx context.Context, id int64) (*types.Meme, error)
	GetMemeByHash(ctx context.Context, contentHash string) (*types.Meme, error)
	DeleteMeme(ctx context.Context, id int64) error
	ListMemes(ctx context.Context, limit, offset int) ([]*types.Meme, error)
	ListFavorites(ctx context.Context, limit int) ([]*types.Meme, error)
	ListRecent(ctx context.Context, limit int) ([]*types.Meme, error)
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	IncrementUsage(ctx context.Context, id int64) error

	// Embedding operations. Vectors are stored as raw little-endian float32
	// blobs; decoding belongs to the caller.
	UpsertEmbedding(ctx context.Context, emb *StoredEmbedding) error
	ListEmbeddings(ctx context.Context) ([]*StoredEmbedding, error)
	ListEmbeddingsByMeme(ctx context.Context, memeID int64) ([]*StoredEmbedding, error)
	ListStaleMemeIDs(ctx context.Context) ([]int64, error)
	MarkEmbeddingsStale(ctx context.Context, currentModel string) (int, error)
	DeleteEmbeddingsByMeme(ctx context.Context, memeID int64) error

	// Search operations
	SearchText(ctx context.Context, matchExpr string, limit int) ([]*types.Meme, error)
	SearchEmoji(ctx context.Context, matchExpr string, limit int) ([]*types.Meme, error)
	SuggestTerms(ctx context.Context, prefix string, limit int) ([]string, error)

	// Status operations
	Status(ctx context.Context) (*LibraryStatus, error)

	// Database operations
	Close() error
}

// StoredEmbedding is an embedding row: one vector per (meme, slot) pair
type StoredEmbedding struct {
	ID          int64
	MemeID      int64
	Slot        string // Storage key; decode with types.SlotFromKey
	Vector      []byte // Little-endian packed float32s
	Dimension   int
	Model       string
	Stale       bool
	GeneratedAt time.Time
}

// ToVector converts a stored row into the domain type. Returns ok=false when
// the slot key is unknown; the row should then be skipped, not propagated.
func (e *StoredEmbedding) ToVector(decoded []float32) (types.EmbeddingVector, bool) {
	slot, ok := types.SlotFromKey(e.Slot)
	if !ok {
		return types.EmbeddingVector{}, false
	}
	return types.EmbeddingVector{
		MemeID:      e.MemeID,
		Slot:        slot,
		Vector:      decoded,
		Dimension:   e.Dimension,
		Model:       e.Model,
		Stale:       e.Stale,
		GeneratedAt: e.GeneratedAt,
	}, true
}

// LibraryStatus contains statistics about the stored library
type LibraryStatus struct {
	MemeCount       int
	FavoriteCount   int
	EmbeddingCount  int
	StaleEmbeddings int
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	FTSIndexBuilt       bool
	EmbeddingsAvailable bool
}
