package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore keeps counters in a SQLite table. The database handle is
// owned by the caller.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the counters table exists in db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS guest_usage (
    guest_id TEXT NOT NULL,
    feature TEXT NOT NULL,
    count INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (guest_id, feature)
);
`); err != nil {
		return nil, fmt.Errorf("usage: schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Counts implements Store.
func (s *SQLiteStore) Counts(ctx context.Context, guestID string) (Counts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT feature, count FROM guest_usage WHERE guest_id = ?`, guestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := Counts{}
	for rows.Next() {
		var feature string
		var n int
		if err := rows.Scan(&feature, &n); err != nil {
			return nil, err
		}
		counts[feature] = n
	}
	return counts, rows.Err()
}

// Add implements Store.
func (s *SQLiteStore) Add(ctx context.Context, guestID, feature string, delta int) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	var n int
	err := s.db.QueryRowContext(ctx, `
INSERT INTO guest_usage (guest_id, feature, count, updated_at) VALUES (?, ?, MAX(?, 0), ?)
ON CONFLICT (guest_id, feature) DO UPDATE SET count = MAX(count + ?, 0), updated_at = excluded.updated_at
RETURNING count`, guestID, feature, delta, now, delta).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("usage: add %s: %w", feature, err)
	}
	return n, nil
}

// Close is a no-op; the caller closes the database.
func (s *SQLiteStore) Close() error {
	return nil
}
