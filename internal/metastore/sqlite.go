package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single SQLite table. It serves
// installations without a MongoDB server and local testing.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A second pooled connection to ":memory:" would see a different database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		uuid TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts or replaces the document stored under uuid.
func (s *SQLiteStore) Upsert(ctx context.Context, uuid string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(doc)
	if err != nil {
		return opError(OpUpsert, uuid, fmt.Errorf("marshal document: %w", err))
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO metadata (uuid, document, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		uuid, string(data), time.Now().Unix(),
	)
	if err != nil {
		return opError(OpUpsert, uuid, err)
	}
	return nil
}

// Delete removes the document stored under uuid.
func (s *SQLiteStore) Delete(ctx context.Context, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM metadata WHERE uuid = ?", uuid); err != nil {
		return opError(OpDelete, uuid, err)
	}
	return nil
}

// Get returns the document stored under uuid, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, uuid string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM metadata WHERE uuid = ?", uuid).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound.WithContext("uuid", uuid)
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

// Count returns the number of stored documents.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM metadata").Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
