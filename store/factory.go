package store

import (
	"context"
	"fmt"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string   `yaml:"backend"`
	DataFile string   `yaml:"data_file"`
	DSN      string   `yaml:"dsn"`
	S3       S3Config `yaml:"s3"`
}

// New creates a Store based on cfg.Backend.
//
// Supported backends:
//
//	"json"     - JSON file at DataFile (default)
//	"sqlite"   - SQLite database at DataFile
//	"postgres" - Postgres database at DSN
//	"s3"       - single object in an S3 bucket
//	"memory"   - In-memory (ephemeral, for testing)
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "json", "":
		return NewJSONFileStore(cfg.DataFile)
	case "sqlite":
		return NewSqliteStore(cfg.DataFile)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)
	case "s3":
		return OpenS3Store(ctx, cfg.S3)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, postgres, s3, memory)", cfg.Backend)
	}
}
