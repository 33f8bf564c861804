package metadata

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// DBFileName is the name of the SQLite database file
	DBFileName = "metadata.db"

	// DefaultRetentionDays is how long metadata of untouched files is kept
	DefaultRetentionDays = 180
)

// Well-known keys
const (
	KeyPosition      = "position"
	KeyEncoding      = "encoding"
	KeyPrintSettings = "print-settings"
	KeyPageSetup     = "page-setup"
)

// Store persists per-document key/value metadata in SQLite
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewStore creates a new Store, initializing the database if needed
func NewStore(configDir string) (*Store, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	dbPath := filepath.Join(configDir, DBFileName)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		location TEXT PRIMARY KEY,
		accessed INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_accessed ON documents(accessed);

	CREATE TABLE IF NOT EXISTS metadata (
		location TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (location, key),
		FOREIGN KEY (location) REFERENCES documents(location) ON DELETE CASCADE
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored for key, or "" when there is none
func (s *Store) Get(location, key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE location = ? AND key = ?`, location, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Set stores value under key. An empty value deletes the key.
func (s *Store) Set(location, key, value string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO documents (location, accessed) VALUES (?, ?)
		ON CONFLICT(location) DO UPDATE SET accessed = excluded.accessed`,
		location, s.now().Unix()); err != nil {
		return err
	}

	if value == "" {
		_, err = tx.Exec(`DELETE FROM metadata WHERE location = ? AND key = ?`, location, key)
	} else {
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO metadata (location, key, value)
			VALUES (?, ?, ?)`, location, key, value)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// All returns every key stored for location
func (s *Store) All(location string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM metadata WHERE location = ?`, location)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Prune forgets documents not written for longer than retentionDays
func (s *Store) Prune(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := s.now().Add(-time.Duration(retentionDays) * 24 * time.Hour).Unix()
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// foreign_keys is per connection, so don't rely on the cascade here
	if _, err := tx.Exec(`
		DELETE FROM metadata WHERE location IN
			(SELECT location FROM documents WHERE accessed < ?)`, cutoff); err != nil {
		return 0, err
	}
	res, err := tx.Exec(`DELETE FROM documents WHERE accessed < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}
