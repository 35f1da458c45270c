package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riposte-app/riposte-search/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicateContent is returned when a meme with the same content hash exists
	ErrDuplicateContent = errors.New("duplicate content")
)

// SQLiteStore implements the Store interface using SQLite with FTS5
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance and applies migrations
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Meme operations

// UpsertMeme inserts or updates a meme together with its emoji tags and its
// FTS row. The three writes happen in one transaction so the index never
// disagrees with the base table.
func (s *SQLiteStore) UpsertMeme(ctx context.Context, meme *types.Meme) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if meme.ID == 0 {
		meme.CreatedAt = now
		meme.UpdatedAt = now
		res, err := tx.ExecContext(ctx, `
			INSERT INTO memes (title, description, content_text, content_hash, favorite, usage_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			meme.Title, meme.Description, meme.ContentText, meme.ContentHash,
			meme.Favorite, meme.UsageCount, meme.CreatedAt, meme.UpdatedAt)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: hash %s", ErrDuplicateContent, meme.ContentHash)
			}
			return fmt.Errorf("failed to insert meme: %w", err)
		}
		meme.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	} else {
		meme.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, `
			UPDATE memes SET title = ?, description = ?, content_text = ?, content_hash = ?,
			                 favorite = ?, usage_count = ?, updated_at = ?
			WHERE id = ?`,
			meme.Title, meme.Description, meme.ContentText, meme.ContentHash,
			meme.Favorite, meme.UsageCount, meme.UpdatedAt, meme.ID); err != nil {
			return fmt.Errorf("failed to update meme: %w", err)
		}
	}

	// Replace emoji tags
	if _, err := tx.ExecContext(ctx, "DELETE FROM emoji_tags WHERE meme_id = ?", meme.ID); err != nil {
		return fmt.Errorf("failed to clear emoji tags: %w", err)
	}
	for _, tag := range meme.EmojiTags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO emoji_tags (meme_id, glyph, name, category, keywords)
			VALUES (?, ?, ?, ?, ?)`,
			meme.ID, tag.Glyph, tag.Name, tag.Category, strings.Join(tag.Keywords, " ")); err != nil {
			return fmt.Errorf("failed to insert emoji tag: %w", err)
		}
	}

	// Rebuild the FTS row. The rowid mirrors the meme id.
	if _, err := tx.ExecContext(ctx, "DELETE FROM memes_fts WHERE rowid = ?", meme.ID); err != nil {
		return fmt.Errorf("failed to clear fts row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO memes_fts (rowid, title, description, content_text, emoji_terms)
		VALUES (?, ?, ?, ?, ?)`,
		meme.ID, meme.Title, meme.Description, meme.ContentText, meme.EmojiSearchText()); err != nil {
		return fmt.Errorf("failed to index meme: %w", err)
	}

	return tx.Commit()
}

const memeColumns = "id, title, description, content_text, content_hash, favorite, usage_count, created_at, updated_at"

// GetMeme retrieves a meme by id, including its emoji tags
func (s *SQLiteStore) GetMeme(ctx context.Context, id int64) (*types.Meme, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memeColumns+" FROM memes WHERE id = ?", id)
	meme, err := scanMeme(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadEmojiTags(ctx, meme); err != nil {
		return nil, err
	}
	return meme, nil
}

// GetMemeByHash retrieves a meme by its content hash
func (s *SQLiteStore) GetMemeByHash(ctx context.Context, contentHash string) (*types.Meme, error) {
	if contentHash == "" {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+memeColumns+" FROM memes WHERE content_hash = ?", contentHash)
	meme, err := scanMeme(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadEmojiTags(ctx, meme); err != nil {
		return nil, err
	}
	return meme, nil
}

// DeleteMeme removes a meme, its tags, its embeddings, and its FTS row
func (s *SQLiteStore) DeleteMeme(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM memes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete meme: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM memes_fts WHERE rowid = ?", id); err != nil {
		return fmt.Errorf("failed to delete fts row: %w", err)
	}
	return tx.Commit()
}

// ListMemes returns memes ordered by creation time, newest first
func (s *SQLiteStore) ListMemes(ctx context.Context, limit, offset int) ([]*types.Meme, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memeColumns+" FROM memes ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list memes: %w", err)
	}
	return s.collectMemes(ctx, rows)
}

// ListFavorites returns favorited memes, most used first
func (s *SQLiteStore) ListFavorites(ctx context.Context, limit int) ([]*types.Meme, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memeColumns+" FROM memes WHERE favorite = 1 ORDER BY usage_count DESC, created_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return s.collectMemes(ctx, rows)
}

// ListRecent returns the most recently used or added memes
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]*types.Meme, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memeColumns+" FROM memes ORDER BY updated_at DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent memes: %w", err)
	}
	return s.collectMemes(ctx, rows)
}

// SetFavorite toggles the favorite flag
func (s *SQLiteStore) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE memes SET favorite = ?, updated_at = ? WHERE id = ?",
		favorite, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set favorite: %w", err)
	}
	return requireAffected(res)
}

// IncrementUsage bumps the usage counter, marking the meme recently used
func (s *SQLiteStore) IncrementUsage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE memes SET usage_count = usage_count + 1, updated_at = ? WHERE id = ?",
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return requireAffected(res)
}

// Embedding operations

// UpsertEmbedding inserts or replaces the vector for a (meme, slot) pair
func (s *SQLiteStore) UpsertEmbedding(ctx context.Context, emb *StoredEmbedding) error {
	if emb.GeneratedAt.IsZero() {
		emb.GeneratedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (meme_id, slot, vector, dimension, model, stale, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(meme_id, slot) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			model = excluded.model,
			stale = excluded.stale,
			generated_at = excluded.generated_at`,
		emb.MemeID, emb.Slot, emb.Vector, emb.Dimension, emb.Model, emb.Stale, emb.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		emb.ID = id
	}
	return nil
}

const embeddingColumns = "id, meme_id, slot, vector, dimension, model, stale, generated_at"

// ListEmbeddings returns every stored embedding row
func (s *SQLiteStore) ListEmbeddings(ctx context.Context) ([]*StoredEmbedding, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+embeddingColumns+" FROM embeddings ORDER BY meme_id, slot")
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	return collectEmbeddings(rows)
}

// ListEmbeddingsByMeme returns the embedding rows for one meme
func (s *SQLiteStore) ListEmbeddingsByMeme(ctx context.Context, memeID int64) ([]*StoredEmbedding, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+embeddingColumns+" FROM embeddings WHERE meme_id = ? ORDER BY slot", memeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	return collectEmbeddings(rows)
}

// ListStaleMemeIDs returns ids of memes with at least one stale embedding
func (s *SQLiteStore) ListStaleMemeIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT meme_id FROM embeddings WHERE stale = 1 ORDER BY meme_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list stale embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkEmbeddingsStale flags every embedding generated by a different model
// version for regeneration. Returns the number of rows flagged.
func (s *SQLiteStore) MarkEmbeddingsStale(ctx context.Context, currentModel string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE embeddings SET stale = 1 WHERE model != ? AND stale = 0", currentModel)
	if err != nil {
		return 0, fmt.Errorf("failed to mark embeddings stale: %w", err)
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

// DeleteEmbeddingsByMeme removes all embedding rows for a meme
func (s *SQLiteStore) DeleteEmbeddingsByMeme(ctx context.Context, memeID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM embeddings WHERE meme_id = ?", memeID)
	if err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return nil
}

// Search operations

// SearchText executes a sanitized MATCH expression against the full-text
// index and returns candidate memes in bm25 order. Scoring and re-ranking
// belong to the searcher.
func (s *SQLiteStore) SearchText(ctx context.Context, matchExpr string, limit int) ([]*types.Meme, error) {
	if matchExpr == "" {
		return []*types.Meme{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.title, m.description, m.content_text, m.content_hash,
		       m.favorite, m.usage_count, m.created_at, m.updated_at
		FROM memes_fts f
		INNER JOIN memes m ON m.id = f.rowid
		WHERE memes_fts MATCH ?
		ORDER BY bm25(memes_fts)
		LIMIT ?`, matchExpr, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	return s.collectMemes(ctx, rows)
}

// SearchEmoji executes an emoji MATCH expression scoped to the emoji_terms
// column
func (s *SQLiteStore) SearchEmoji(ctx context.Context, matchExpr string, limit int) ([]*types.Meme, error) {
	return s.SearchText(ctx, matchExpr, limit)
}

// SuggestTerms returns distinct titles and emoji tag names starting with the
// given prefix, for typeahead suggestions
func (s *SQLiteStore) SuggestTerms(ctx context.Context, prefix string, limit int) ([]string, error) {
	if prefix == "" {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	escaped := escapeLike(prefix)
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT title FROM memes
		WHERE title != '' AND title LIKE ? ESCAPE '\'
		UNION
		SELECT DISTINCT name FROM emoji_tags
		WHERE name != '' AND name LIKE ? ESCAPE '\'
		ORDER BY 1
		LIMIT ?`, escaped+"%", escaped+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	suggestions := make([]string, 0, limit)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}

// Status operations

// Status reports library statistics and index health
func (s *SQLiteStore) Status(ctx context.Context) (*LibraryStatus, error) {
	status := &LibraryStatus{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memes").Scan(&status.MemeCount); err != nil {
		return nil, fmt.Errorf("failed to count memes: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memes WHERE favorite = 1").Scan(&status.FavoriteCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&status.EmbeddingCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings WHERE stale = 1").Scan(&status.StaleEmbeddings); err != nil {
		return nil, err
	}

	status.Health.DatabaseAccessible = true
	status.Health.EmbeddingsAvailable = status.EmbeddingCount > 0

	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='memes_fts'").Scan(&name)
	status.Health.FTSIndexBuilt = err == nil

	return status, nil
}

// Helpers

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeme(row rowScanner) (*types.Meme, error) {
	var m types.Meme
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.ContentText, &m.ContentHash,
		&m.Favorite, &m.UsageCount, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan meme: %w", err)
	}
	return &m, nil
}

func (s *SQLiteStore) collectMemes(ctx context.Context, rows *sql.Rows) ([]*types.Meme, error) {
	defer func() { _ = rows.Close() }()

	memes := make([]*types.Meme, 0)
	for rows.Next() {
		meme, err := scanMeme(rows)
		if err != nil {
			return nil, err
		}
		memes = append(memes, meme)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, meme := range memes {
		if err := s.loadEmojiTags(ctx, meme); err != nil {
			return nil, err
		}
	}
	return memes, nil
}

func (s *SQLiteStore) loadEmojiTags(ctx context.Context, meme *types.Meme) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT glyph, name, category, keywords FROM emoji_tags WHERE meme_id = ? ORDER BY id", meme.ID)
	if err != nil {
		return fmt.Errorf("failed to load emoji tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var tag types.EmojiTag
		var keywords string
		if err := rows.Scan(&tag.Glyph, &tag.Name, &tag.Category, &keywords); err != nil {
			return err
		}
		if keywords != "" {
			tag.Keywords = strings.Fields(keywords)
		}
		meme.EmojiTags = append(meme.EmojiTags, tag)
	}
	return rows.Err()
}

func collectEmbeddings(rows *sql.Rows) ([]*StoredEmbedding, error) {
	defer func() { _ = rows.Close() }()

	embeddings := make([]*StoredEmbedding, 0)
	for rows.Next() {
		var e StoredEmbedding
		if err := rows.Scan(&e.ID, &e.MemeID, &e.Slot, &e.Vector, &e.Dimension,
			&e.Model, &e.Stale, &e.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		embeddings = append(embeddings, &e)
	}
	return embeddings, rows.Err()
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
