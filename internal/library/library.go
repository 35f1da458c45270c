package library

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/riposte-app/riposte-search/internal/embedder"
	"github.com/riposte-app/riposte-search/internal/storage"
	"github.com/riposte-app/riposte-search/internal/vector"
	"github.com/riposte-app/riposte-search/pkg/types"
)

// Library manages the meme collection: ingestion, annotation updates, and
// embedding lifecycle. Search itself lives in the searcher package; the
// library's job is to keep the index and the vectors in step with writes.
type Library struct {
	store    storage.Store
	embedder embedder.Embedder
	logger   *zap.Logger

	// invalidate is called after every successful write so query caches
	// never serve stale results
	invalidate func()

	workers int
}

// Option configures a Library
type Option func(*Library)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *Library) { l.logger = logger }
}

// WithCacheInvalidator registers a callback fired after every write
func WithCacheInvalidator(fn func()) Option {
	return func(l *Library) { l.invalidate = fn }
}

// WithWorkers sets the concurrency for bulk embedding regeneration
func WithWorkers(n int) Option {
	return func(l *Library) {
		if n > 0 {
			l.workers = n
		}
	}
}

// New creates a Library
func New(store storage.Store, emb embedder.Embedder, opts ...Option) *Library {
	l := &Library{
		store:      store,
		embedder:   emb,
		logger:     zap.NewNop(),
		invalidate: func() {},
		workers:    runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add ingests a new meme: validates it, rejects content-hash duplicates,
// stores it, and generates its embeddings. A missing embedding model does
// not fail ingestion; the meme is stored text-searchable and its vectors
// can be generated later via RegenerateStale.
func (l *Library) Add(ctx context.Context, meme *types.Meme) (*types.Meme, error) {
	if err := meme.Validate(); err != nil {
		return nil, err
	}

	if meme.ContentHash != "" {
		if existing, err := l.store.GetMemeByHash(ctx, meme.ContentHash); err == nil {
			return existing, fmt.Errorf("%w: meme %d", storage.ErrDuplicateContent, existing.ID)
		}
	}

	if err := l.store.UpsertMeme(ctx, meme); err != nil {
		return nil, err
	}

	l.generateEmbeddings(ctx, meme)
	l.invalidate()

	return meme, nil
}

// Update rewrites a meme's annotations and regenerates its embeddings
func (l *Library) Update(ctx context.Context, meme *types.Meme) error {
	if meme.ID == 0 {
		return storage.ErrNotFound
	}
	if err := meme.Validate(); err != nil {
		return err
	}

	if err := l.store.UpsertMeme(ctx, meme); err != nil {
		return err
	}

	l.generateEmbeddings(ctx, meme)
	l.invalidate()

	return nil
}

// Remove deletes a meme along with its tags, embeddings, and index row
func (l *Library) Remove(ctx context.Context, id int64) error {
	if err := l.store.DeleteMeme(ctx, id); err != nil {
		return err
	}
	l.invalidate()
	return nil
}

// SetFavorite toggles the favorite flag
func (l *Library) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	if err := l.store.SetFavorite(ctx, id, favorite); err != nil {
		return err
	}
	l.invalidate()
	return nil
}

// MarkUsed records that a meme was shared, bumping its usage counter and
// its recency
func (l *Library) MarkUsed(ctx context.Context, id int64) error {
	if err := l.store.IncrementUsage(ctx, id); err != nil {
		return err
	}
	l.invalidate()
	return nil
}

// Get retrieves a single meme
func (l *Library) Get(ctx context.Context, id int64) (*types.Meme, error) {
	return l.store.GetMeme(ctx, id)
}

// Status reports library statistics together with the active embedding
// provider
func (l *Library) Status(ctx context.Context) (*storage.LibraryStatus, string, string, error) {
	status, err := l.store.Status(ctx)
	if err != nil {
		return nil, "", "", err
	}
	return status, l.embedder.Provider(), l.embedder.Model(), nil
}

// RegenerateStale re-embeds every meme flagged stale, bounded by the
// configured worker count. Returns the number of memes refreshed.
func (l *Library) RegenerateStale(ctx context.Context) (int, error) {
	ids, err := l.store.ListStaleMemeIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for _, id := range ids {
		g.Go(func() error {
			meme, err := l.store.GetMeme(gctx, id)
			if err != nil {
				// Row vanished between listing and fetch
				return nil
			}
			return l.embedMeme(gctx, meme)
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	l.invalidate()
	return len(ids), nil
}

// AdvanceModel flags every embedding produced by a different model version
// as stale and regenerates them with the current model. Used after an
// embedding model upgrade.
func (l *Library) AdvanceModel(ctx context.Context) (int, error) {
	flagged, err := l.store.MarkEmbeddingsStale(ctx, l.embedder.Model())
	if err != nil {
		return 0, err
	}
	l.logger.Info("flagged embeddings for regeneration",
		zap.Int("count", flagged),
		zap.String("model", l.embedder.Model()))

	return l.RegenerateStale(ctx)
}

// generateEmbeddings embeds a meme, downgrading failures to log lines.
// Ingestion must not fail because the optional model is absent.
func (l *Library) generateEmbeddings(ctx context.Context, meme *types.Meme) {
	if err := l.embedMeme(ctx, meme); err != nil {
		if embedder.IsUnavailable(err) {
			l.logger.Warn("embedding model unavailable, meme stored text-only",
				zap.Int64("meme_id", meme.ID))
			return
		}
		l.logger.Error("failed to embed meme",
			zap.Int64("meme_id", meme.ID),
			zap.Error(err))
	}
}

// embedMeme generates and stores one vector per embedding slot
func (l *Library) embedMeme(ctx context.Context, meme *types.Meme) error {
	for _, slot := range types.AllSlots {
		text := embeddingText(meme, slot)
		if text == "" {
			continue
		}

		emb, err := l.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
		if err != nil {
			return err
		}

		row := &storage.StoredEmbedding{
			MemeID:    meme.ID,
			Slot:      string(slot),
			Vector:    vector.Encode(emb.Vector),
			Dimension: emb.Dimension,
			Model:     emb.Model,
			Stale:     false,
		}
		if err := l.store.UpsertEmbedding(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// embeddingText builds the text embedded for each slot. The content slot
// summarizes what the meme is; the intent slot approximates how a user
// would ask for it.
func embeddingText(meme *types.Meme, slot types.EmbeddingSlot) string {
	switch slot {
	case types.SlotContent:
		return joinNonEmpty(meme.Title, meme.Description, meme.ContentText)
	case types.SlotIntent:
		return joinNonEmpty(meme.Title, meme.EmojiSearchText())
	default:
		return ""
	}
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
