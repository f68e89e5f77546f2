package credstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps credentials in a small SQLite database, so they survive
// process restarts the same way browser-local storage would.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (or creates) the credential database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS credentials (
		namespace TEXT NOT NULL,
		key       TEXT NOT NULL,
		value     BLOB NOT NULL,
		PRIMARY KEY (namespace, key)
	)`)
	return err
}

// Load reads the stored token and profile. Partial rows (which Put and
// Clear never produce) are treated as absent credentials.
func (s *SQLiteStore) Load() (string, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var token string
	err := s.db.QueryRow(
		`SELECT value FROM credentials WHERE namespace = ? AND key = ?`,
		namespace, tokenKey,
	).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("load token: %w", err)
	}

	var profile []byte
	err = s.db.QueryRow(
		`SELECT value FROM credentials WHERE namespace = ? AND key = ?`,
		namespace, profileKey,
	).Scan(&profile)
	if err == sql.ErrNoRows {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("load profile: %w", err)
	}
	return token, profile, nil
}

// Put stores both values in a single transaction.
func (s *SQLiteStore) Put(token string, profile []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt := `INSERT INTO credentials (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value`
	if _, err := tx.Exec(stmt, namespace, tokenKey, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if _, err := tx.Exec(stmt, namespace, profileKey, profile); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Clear removes both values in a single transaction. Clearing an already
// empty store is a no-op.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM credentials WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
