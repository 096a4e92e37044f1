package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/stevemurr/comparison-api/product"
)

// JSONFileStore keeps the collection in a single JSON file.
//
// Layout:
//
//	[
//	  {"id": 1, "name": "...", ...},
//	  {"id": 2, "name": "...", ...}
//	]
//
// Every Save rewrites the file in place; there is no temp file, so a failed
// write may leave the previous content partially overwritten.
type JSONFileStore struct {
	path string
}

// NewJSONFileStore returns a store for path, creating its directory.
func NewJSONFileStore(path string) (*JSONFileStore, error) {
	if path == "" {
		return nil, errors.New("data file path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &JSONFileStore{path: path}, nil
}

// Path returns the file backing the store.
func (s *JSONFileStore) Path() string {
	return s.path
}

func (s *JSONFileStore) Load(_ context.Context) ([]product.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []product.Record{}, nil
		}
		return nil, product.DataFormatError(err)
	}
	return decodeCollection(data)
}

func (s *JSONFileStore) Save(_ context.Context, records []product.Record) error {
	b, err := encodeCollection(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return product.PersistenceError(err)
	}
	return nil
}
