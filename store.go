package scribeline

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested post or cover does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the site's SQLite database. It holds resized blog covers and
// is shared with the usage counters.
type Store struct {
	db *sql.DB
}

// Cover is a resized featured image for a blog post.
type Cover struct {
	Slug      string
	SourceURL string
	Width     int
	Height    int
	Data      []byte
	FetchedAt time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during writes; busy_timeout makes writers wait
	// instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying handle for packages that keep their own tables.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS covers (
    slug TEXT PRIMARY KEY,
    source_url TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    data BLOB NOT NULL,
    fetched_at TEXT NOT NULL
);
`)
	return err
}

// GetCover returns the cached cover for slug. It returns ErrNotFound when the
// cover is missing or was cached from a different source URL.
func (s *Store) GetCover(slug, sourceURL string) (Cover, error) {
	var c Cover
	var fetched string
	err := s.db.QueryRow(`SELECT slug, source_url, width, height, data, fetched_at FROM covers WHERE slug = ?`, slug).
		Scan(&c.Slug, &c.SourceURL, &c.Width, &c.Height, &c.Data, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return Cover{}, ErrNotFound
	}
	if err != nil {
		return Cover{}, err
	}
	if c.SourceURL != sourceURL {
		return Cover{}, ErrNotFound
	}
	c.FetchedAt, _ = time.Parse(time.RFC3339, fetched)
	return c, nil
}

// SaveCover upserts a cover.
func (s *Store) SaveCover(c Cover) error {
	if c.FetchedAt.IsZero() {
		c.FetchedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO covers (slug, source_url, width, height, data, fetched_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Slug, c.SourceURL, c.Width, c.Height, c.Data, c.FetchedAt.UTC().Format(time.RFC3339))
	return err
}

// DeleteCover removes a cached cover.
func (s *Store) DeleteCover(slug string) error {
	_, err := s.db.Exec(`DELETE FROM covers WHERE slug = ?`, slug)
	return err
}
