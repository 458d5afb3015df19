package dedup

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dedup store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("dedup store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_events (
			id      TEXT PRIMARY KEY,
			seen_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_processed_seen_at ON processed_events(seen_at);
	`)
	if err != nil {
		return fmt.Errorf("dedup store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Seen(id string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM processed_events WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup store: seen: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) Mark(id string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO processed_events (id, seen_at) VALUES (?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("dedup store: mark: %w", err)
	}
	return nil
}

// MarkIfNew relies on the primary key to make check-and-set a single
// conditional insert; RowsAffected distinguishes first delivery from a
// duplicate.
func (s *SQLiteStore) MarkIfNew(id string) (bool, error) {
	res, err := s.db.Exec(`INSERT OR IGNORE INTO processed_events (id, seen_at) VALUES (?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("dedup store: mark if new: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dedup store: mark if new: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) List(limit int) ([]Marker, error) {
	query := `SELECT id, seen_at FROM processed_events ORDER BY seen_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("dedup store: list: %w", err)
	}
	defer rows.Close()

	var markers []Marker
	for rows.Next() {
		var m Marker
		var seenAt string
		if err := rows.Scan(&m.ID, &seenAt); err != nil {
			return nil, fmt.Errorf("dedup store: list scan: %w", err)
		}
		m.SeenAt, _ = time.Parse(time.RFC3339, seenAt)
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

func (s *SQLiteStore) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM processed_events WHERE seen_at < ?`,
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("dedup store: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}
