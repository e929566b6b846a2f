package cache

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jerry-assistant/ragcore/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists cache entries in a single SQLite database. WAL
// plus a busy timeout keeps concurrent readers and the writer from
// tripping over each other.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the cache database at path.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	store := &SQLiteStore{db: db, logger: logger}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS cache_entries (
			id            TEXT PRIMARY KEY,
			query_hash    TEXT NOT NULL UNIQUE,
			query_text    TEXT NOT NULL,
			query_embedding BLOB NOT NULL,
			response      TEXT NOT NULL,
			model_used    TEXT NOT NULL,
			context_hash  TEXT NOT NULL,
			created_at    INTEGER NOT NULL,
			last_accessed INTEGER NOT NULL,
			access_count  INTEGER NOT NULL DEFAULT 1,
			ttl_seconds   INTEGER NOT NULL,
			expires_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache_entries (expires_at);
		CREATE INDEX IF NOT EXISTS idx_cache_last_accessed ON cache_entries (last_accessed);
		CREATE INDEX IF NOT EXISTS idx_cache_context_model ON cache_entries (context_hash, model_used);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Insert upserts an entry by query hash. A replaced entry keeps its row
// identity but resets all payload fields, access count included.
func (s *SQLiteStore) Insert(ctx context.Context, entry *domain.CacheEntry) error {
	if err := domain.ValidateCacheEntry(entry); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries
			(id, query_hash, query_text, query_embedding, response, model_used, context_hash,
			 created_at, last_accessed, access_count, ttl_seconds, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_hash) DO UPDATE SET
			query_text = excluded.query_text,
			query_embedding = excluded.query_embedding,
			response = excluded.response,
			model_used = excluded.model_used,
			context_hash = excluded.context_hash,
			created_at = excluded.created_at,
			last_accessed = excluded.last_accessed,
			access_count = excluded.access_count,
			ttl_seconds = excluded.ttl_seconds,
			expires_at = excluded.expires_at`,
		entry.ID,
		entry.QueryHash,
		entry.QueryText,
		encodeVector(entry.QueryEmbedding),
		entry.Response,
		entry.ModelUsed,
		entry.ContextHash,
		entry.CreatedAt.UTC().Unix(),
		entry.LastAccessed.UTC().Unix(),
		entry.AccessCount,
		entry.TTLSeconds,
		entry.ExpiresAt.UTC().Unix(),
	)
	return err
}

// Candidates returns unexpired entries for a context hash and model.
func (s *SQLiteStore) Candidates(ctx context.Context, contextHash, model string, now time.Time) ([]*domain.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query_hash, query_text, query_embedding, response, model_used, context_hash,
		       created_at, last_accessed, access_count, ttl_seconds, expires_at
		FROM cache_entries
		WHERE context_hash = ? AND model_used = ? AND expires_at > ?`,
		contextHash, model, now.UTC().Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.CacheEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Touch is a single UPDATE so concurrent hits only ever lose a count,
// never clobber entry fields.
func (s *SQLiteStore) Touch(ctx context.Context, id string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cache_entries
		SET last_accessed = ?, access_count = access_count + 1
		WHERE id = ?`,
		now.UTC().Unix(), id,
	)
	return err
}

// DeleteExpired removes entries past their expiry.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at <= ?`, now.UTC().Unix())
	if err != nil {
		return 0, err
	}
	return rowsAffected(res), nil
}

// Count returns the total number of entries, expired included.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&count)
	return count, err
}

// EvictLRU keeps the most recently accessed entries and deletes the rest.
func (s *SQLiteStore) EvictLRU(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cache_entries WHERE id IN (
			SELECT id FROM cache_entries
			ORDER BY last_accessed DESC
			LIMIT -1 OFFSET ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res), nil
}

// Clear removes all entries.
func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res), nil
}

// Stats summarizes the store's contents.
func (s *SQLiteStore) Stats(ctx context.Context, now time.Time) (*StoreStats, error) {
	var stats StoreStats
	var meanAccess sql.NullFloat64
	var sizeBytes sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0),
		       AVG(access_count),
		       SUM(LENGTH(query_text) + LENGTH(response) + LENGTH(query_embedding))
		FROM cache_entries`,
		now.UTC().Unix(),
	).Scan(&stats.TotalEntries, &stats.ExpiredEntries, &meanAccess, &sizeBytes)
	if err != nil {
		return nil, err
	}

	stats.ActiveEntries = stats.TotalEntries - stats.ExpiredEntries
	if meanAccess.Valid {
		stats.MeanAccessCount = meanAccess.Float64
	}
	if sizeBytes.Valid {
		stats.ApproxSizeBytes = sizeBytes.Int64
	}
	return &stats, nil
}

// Vacuum reclaims file space after deletions.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `VACUUM`)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanEntry(rows *sql.Rows) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	var embedding []byte
	var createdAt, lastAccessed, expiresAt int64
	err := rows.Scan(
		&entry.ID, &entry.QueryHash, &entry.QueryText, &embedding,
		&entry.Response, &entry.ModelUsed, &entry.ContextHash,
		&createdAt, &lastAccessed, &entry.AccessCount, &entry.TTLSeconds, &expiresAt,
	)
	if err != nil {
		return nil, err
	}
	entry.QueryEmbedding = decodeVector(embedding)
	entry.CreatedAt = time.Unix(createdAt, 0).UTC()
	entry.LastAccessed = time.Unix(lastAccessed, 0).UTC()
	entry.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &entry, nil
}

func rowsAffected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}
