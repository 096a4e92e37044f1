package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/stevemurr/comparison-api/product"
)

// PostgresStore keeps the collection as one JSONB document, mirroring
// SqliteStore for deployments with a shared database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens dsn, pings it and ensures the collections table.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure collections table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Load(ctx context.Context) ([]product.Record, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM collections WHERE name = $1", collectionName,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []product.Record{}, nil
	}
	if err != nil {
		return nil, product.DataFormatError(err)
	}
	return decodeCollection(raw)
}

func (s *PostgresStore) Save(ctx context.Context, records []product.Record) error {
	b, err := encodeCollection(records)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (name, payload) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload`,
		collectionName, string(b),
	)
	if err != nil {
		return product.PersistenceError(err)
	}
	return nil
}
