package library

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riposte-app/riposte-search/internal/embedder"
	"github.com/riposte-app/riposte-search/internal/storage"
	"github.com/riposte-app/riposte-search/pkg/types"
)

// fakeStore is a minimal in-memory Store for library tests
type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	memes      map[int64]*types.Meme
	byHash     map[string]int64
	embeddings map[string]*storage.StoredEmbedding // keyed meme:slot
	staleIDs   []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:     1,
		memes:      make(map[int64]*types.Meme),
		byHash:     make(map[string]int64),
		embeddings: make(map[string]*storage.StoredEmbedding),
	}
}

func (f *fakeStore) UpsertMeme(ctx context.Context, meme *types.Meme) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if meme.ID == 0 {
		meme.ID = f.nextID
		f.nextID++
	}
	f.memes[meme.ID] = meme
	if meme.ContentHash != "" {
		f.byHash[meme.ContentHash] = meme.ID
	}
	return nil
}

func (f *fakeStore) GetMeme(ctx context.Context, id int64) (*types.Meme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meme, ok := f.memes[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return meme, nil
}

func (f *fakeStore) GetMemeByHash(ctx context.Context, hash string) (*types.Meme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byHash[hash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return f.memes[id], nil
}

func (f *fakeStore) DeleteMeme(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.memes[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.memes, id)
	return nil
}

func (f *fakeStore) ListMemes(ctx context.Context, limit, offset int) ([]*types.Meme, error) {
	return nil, nil
}
func (f *fakeStore) ListFavorites(ctx context.Context, limit int) ([]*types.Meme, error) {
	return nil, nil
}
func (f *fakeStore) ListRecent(ctx context.Context, limit int) ([]*types.Meme, error) {
	return nil, nil
}

func (f *fakeStore) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	meme, ok := f.memes[id]
	if !ok {
		return storage.ErrNotFound
	}
	meme.Favorite = favorite
	return nil
}

func (f *fakeStore) IncrementUsage(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	meme, ok := f.memes[id]
	if !ok {
		return storage.ErrNotFound
	}
	meme.UsageCount++
	return nil
}

func (f *fakeStore) UpsertEmbedding(ctx context.Context, emb *storage.StoredEmbedding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeddings[fmt.Sprintf("%d:%s", emb.MemeID, emb.Slot)] = emb
	return nil
}

func (f *fakeStore) ListEmbeddings(ctx context.Context) ([]*storage.StoredEmbedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*storage.StoredEmbedding, 0, len(f.embeddings))
	for _, e := range f.embeddings {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) ListEmbeddingsByMeme(ctx context.Context, memeID int64) ([]*storage.StoredEmbedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*storage.StoredEmbedding, 0)
	for _, e := range f.embeddings {
		if e.MemeID == memeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) ListStaleMemeIDs(ctx context.Context) ([]int64, error) {
	return f.staleIDs, nil
}

func (f *fakeStore) MarkEmbeddingsStale(ctx context.Context, model string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	seen := make(map[int64]bool)
	for _, e := range f.embeddings {
		if e.Model != model && !e.Stale {
			e.Stale = true
			count++
			if !seen[e.MemeID] {
				seen[e.MemeID] = true
				f.staleIDs = append(f.staleIDs, e.MemeID)
			}
		}
	}
	return count, nil
}

func (f *fakeStore) DeleteEmbeddingsByMeme(ctx context.Context, memeID int64) error { return nil }

func (f *fakeStore) SearchText(ctx context.Context, expr string, limit int) ([]*types.Meme, error) {
	return nil, nil
}
func (f *fakeStore) SearchEmoji(ctx context.Context, expr string, limit int) ([]*types.Meme, error) {
	return nil, nil
}
func (f *fakeStore) SuggestTerms(ctx context.Context, prefix string, limit int) ([]string, error) {
	return nil, nil
}
func (f *fakeStore) Status(ctx context.Context) (*storage.LibraryStatus, error) {
	return &storage.LibraryStatus{MemeCount: len(f.memes)}, nil
}
func (f *fakeStore) Close() error { return nil }

func newTestLibrary(t *testing.T, store storage.Store, emb embedder.Embedder) (*Library, *int) {
	invalidations := 0
	lib := New(store, emb,
		WithCacheInvalidator(func() { invalidations++ }),
		WithWorkers(2))
	return lib, &invalidations
}

func localEmbedder(t *testing.T) embedder.Embedder {
	emb, err := embedder.New(embedder.Config{Provider: "local", CacheSize: 100})
	require.NoError(t, err)
	return emb
}

func annotatedMeme(title, hash string) *types.Meme {
	return &types.Meme{
		Title:       title,
		Description: "a meme",
		ContentHash: hash,
		EmojiTags:   []types.EmojiTag{{Glyph: "😂", Name: "joy"}},
	}
}

func TestAdd_StoresMemeAndEmbeddings(t *testing.T) {
	store := newFakeStore()
	lib, invalidations := newTestLibrary(t, store, localEmbedder(t))

	meme, err := lib.Add(context.Background(), annotatedMeme("funny cat", "h1"))
	require.NoError(t, err)
	assert.Greater(t, meme.ID, int64(0))
	assert.Equal(t, 1, *invalidations)

	// Both slots embedded
	rows, err := store.ListEmbeddingsByMeme(context.Background(), meme.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestAdd_RejectsDuplicateHash(t *testing.T) {
	store := newFakeStore()
	lib, _ := newTestLibrary(t, store, localEmbedder(t))

	ctx := context.Background()
	first, err := lib.Add(ctx, annotatedMeme("original", "same-hash"))
	require.NoError(t, err)

	existing, err := lib.Add(ctx, annotatedMeme("copy", "same-hash"))
	require.ErrorIs(t, err, storage.ErrDuplicateContent)
	require.NotNil(t, existing)
	assert.Equal(t, first.ID, existing.ID)
}

func TestAdd_RejectsUnsearchableMeme(t *testing.T) {
	store := newFakeStore()
	lib, _ := newTestLibrary(t, store, localEmbedder(t))

	_, err := lib.Add(context.Background(), &types.Meme{})
	assert.ErrorIs(t, err, types.ErrNoSearchableContent)
}

func TestAdd_SucceedsWhenEmbedderUnavailable(t *testing.T) {
	store := newFakeStore()
	disabled, err := embedder.New(embedder.Config{Provider: "disabled"})
	require.NoError(t, err)
	lib, _ := newTestLibrary(t, store, disabled)

	meme, err := lib.Add(context.Background(), annotatedMeme("funny cat", "h1"))
	require.NoError(t, err)

	rows, err := store.ListEmbeddingsByMeme(context.Background(), meme.ID)
	require.NoError(t, err)
	assert.Empty(t, rows) // stored text-only
}

func TestUpdate_RequiresExistingID(t *testing.T) {
	store := newFakeStore()
	lib, _ := newTestLibrary(t, store, localEmbedder(t))

	err := lib.Update(context.Background(), annotatedMeme("no id", "h1"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetFavoriteAndMarkUsed(t *testing.T) {
	store := newFakeStore()
	lib, invalidations := newTestLibrary(t, store, localEmbedder(t))

	ctx := context.Background()
	meme, err := lib.Add(ctx, annotatedMeme("funny cat", "h1"))
	require.NoError(t, err)

	require.NoError(t, lib.SetFavorite(ctx, meme.ID, true))
	require.NoError(t, lib.MarkUsed(ctx, meme.ID))

	got, err := lib.Get(ctx, meme.ID)
	require.NoError(t, err)
	assert.True(t, got.Favorite)
	assert.Equal(t, 1, got.UsageCount)
	assert.Equal(t, 3, *invalidations)
}

func TestAdvanceModel_RegeneratesStaleEmbeddings(t *testing.T) {
	store := newFakeStore()
	lib, _ := newTestLibrary(t, store, localEmbedder(t))

	ctx := context.Background()
	meme, err := lib.Add(ctx, annotatedMeme("funny cat", "h1"))
	require.NoError(t, err)

	// Pretend the stored vectors came from an older model
	rows, err := store.ListEmbeddingsByMeme(ctx, meme.ID)
	require.NoError(t, err)
	for _, row := range rows {
		row.Model = "old-model-v0"
	}

	refreshed, err := lib.AdvanceModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed)

	rows, err = store.ListEmbeddingsByMeme(ctx, meme.ID)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, "local-embeddings", row.Model)
		assert.False(t, row.Stale)
	}
}

func TestRegenerateStale_NothingToDo(t *testing.T) {
	store := newFakeStore()
	lib, invalidations := newTestLibrary(t, store, localEmbedder(t))

	refreshed, err := lib.RegenerateStale(context.Background())
	require.NoError(t, err)
	assert.Zero(t, refreshed)
	assert.Zero(t, *invalidations)
}

func TestRemove(t *testing.T) {
	store := newFakeStore()
	lib, _ := newTestLibrary(t, store, localEmbedder(t))

	ctx := context.Background()
	meme, err := lib.Add(ctx, annotatedMeme("funny cat", "h1"))
	require.NoError(t, err)

	require.NoError(t, lib.Remove(ctx, meme.ID))
	_, err = lib.Get(ctx, meme.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
