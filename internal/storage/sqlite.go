package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteStore keeps each index as one row holding the same JSON document the
// file backend writes, plus catalog columns.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS indexes (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		passages INTEGER NOT NULL,
		dimensions INTEGER NOT NULL,
		build_id TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_indexes_updated_at ON indexes(updated_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Backend returns "sqlite".
func (s *SQLiteStore) Backend() string {
	return "sqlite"
}

// Save replaces the row for key. Each save gets a new build id.
func (s *SQLiteStore) Save(ctx context.Context, key string, index models.EmbeddingIndex) error {
	if err := ValidateKey(key); err != nil {
		return persistFailure(key, err)
	}
	data, err := Encode(index)
	if err != nil {
		return persistFailure(key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO indexes (key, data, passages, dimensions, build_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			passages = excluded.passages,
			dimensions = excluded.dimensions,
			build_id = excluded.build_id,
			updated_at = excluded.updated_at`,
		key, string(data), len(index), index.Dimensions(), uuid.NewString(), time.Now().UTC(),
	)
	if err != nil {
		return persistFailure(key, err)
	}
	return nil
}

// Load returns the index stored under key.
func (s *SQLiteStore) Load(ctx context.Context, key string) (models.EmbeddingIndex, error) {
	if err := ValidateKey(key); err != nil {
		return nil, loadFailure(key, err)
	}
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM indexes WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, loadFailure(key, fs.ErrNotExist)
	}
	if err != nil {
		return nil, loadFailure(key, err)
	}
	index, err := Decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return index, nil
}

// List returns catalog rows sorted by key.
func (s *SQLiteStore) List(ctx context.Context) ([]IndexInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, length(data), build_id, updated_at FROM indexes ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexInfo
	for rows.Next() {
		var info IndexInfo
		if err := rows.Scan(&info.Key, &info.SizeBytes, &info.BuildID, &info.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
