package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	fingerprint TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
`

// SQLiteTier is the shared tier backed by a SQLite database file, for
// instances that share a volume. SQLite does not expire rows on its own;
// reads skip expired rows and PurgeExpired deletes them.
type SQLiteTier struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteTier opens (and if needed creates) the database at path.
func NewSQLiteTier(path string, busyTimeout time.Duration) (*SQLiteTier, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createEntriesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	slog.Info("sqlite shared cache initialized", "path", path)

	return &SQLiteTier{db: db, now: time.Now}, nil
}

// Name implements SharedTier.
func (s *SQLiteTier) Name() string {
	return "sqlite"
}

// Get implements SharedTier.
func (s *SQLiteTier) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM cache_entries WHERE fingerprint = ? AND expires_at > ?`,
		fingerprint, s.now().UnixNano(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return decodeEntry(payload)
}

// Set implements SharedTier.
func (s *SQLiteTier) Set(ctx context.Context, e *Entry) error {
	if e.Expired(s.now()) {
		return nil
	}

	payload, err := encodeEntry(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (fingerprint, payload, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		e.Fingerprint, payload, e.CreatedAt.UnixNano(), e.ExpiresAt().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Delete implements SharedTier.
func (s *SQLiteTier) Delete(ctx context.Context, fingerprint string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE fingerprint = ?`, fingerprint); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *SQLiteTier) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	return res.RowsAffected()
}

// count returns the number of stored rows, expired or not.
func (s *SQLiteTier) count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

// Close implements SharedTier.
func (s *SQLiteTier) Close() error {
	return s.db.Close()
}
