package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/stevemurr/comparison-api/product"
)

// collectionName is the row key the SQL backends store the products under.
const collectionName = "products"

// SqliteStore keeps the collection as one JSON document in a SQLite table.
//
// Tables:
//
//	collections(name, payload)  PRIMARY KEY (name)
type SqliteStore struct {
	db *sql.DB
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create collections table: %w", err)
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) Load(ctx context.Context) ([]product.Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM collections WHERE name = ?", collectionName,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []product.Record{}, nil
	}
	if err != nil {
		return nil, product.DataFormatError(err)
	}
	return decodeCollection([]byte(raw))
}

func (s *SqliteStore) Save(ctx context.Context, records []product.Record) error {
	b, err := encodeCollection(records)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (name, payload) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload`,
		collectionName, string(b),
	)
	if err != nil {
		return product.PersistenceError(err)
	}
	return nil
}
