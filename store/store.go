// Package store defines the backing store interface and implementations.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/stevemurr/comparison-api/product"
)

// Store is the interface that all backing stores must implement.
// It reads and rewrites the whole product collection as one unit.
type Store interface {
	// Load returns every record in stored order. A missing storage location
	// yields an empty collection. Unreadable or undecodable content fails
	// with product.ErrDataFormat.
	Load(ctx context.Context) ([]product.Record, error)

	// Save replaces the stored collection with records. Any failure is
	// reported as product.ErrPersistence.
	Save(ctx context.Context, records []product.Record) error
}

var errNotArray = errors.New("collection is not a JSON array")

// decodeCollection parses a stored collection document.
func decodeCollection(data []byte) ([]product.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, product.DataFormatError(errNotArray)
	}
	var records []product.Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, product.DataFormatError(err)
	}
	for i := range records {
		if records[i].Specs == nil {
			records[i].Specs = map[string]string{}
		}
	}
	if records == nil {
		records = []product.Record{}
	}
	return records, nil
}

// encodeCollection renders records as an indented JSON array. HTML
// characters are kept as-is so the file stays readable.
func encodeCollection(records []product.Record) ([]byte, error) {
	if records == nil {
		records = []product.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, product.PersistenceError(err)
	}
	return buf.Bytes(), nil
}
