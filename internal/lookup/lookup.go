// Package lookup resolves recognized plate text to vehicle records.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned for plates that are not in the store.
var ErrNotFound = errors.New("license plate not found")

// Record describes the vehicle registered under a plate.
type Record struct {
	Make  string `json:"make" yaml:"make"`
	Model string `json:"model" yaml:"model"`
	Year  int    `json:"year" yaml:"year"`
	Owner string `json:"owner" yaml:"owner"`
}

// Database maps plate keys to records.
type Database map[string]Record

// Store looks up a single plate. Implementations must be safe for
// concurrent use.
type Store interface {
	Lookup(ctx context.Context, plate string) (Record, error)
}

// Key canonicalizes a plate for storage and lookup.
func Key(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config selects a store.
type Config struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Path is the JSON or YAML database for the file backend.
	Path string `mapstructure:"path" yaml:"path"`
	// DSN is the connection string for the postgres backend.
	DSN   string `mapstructure:"dsn" yaml:"dsn"`
	Table string `mapstructure:"table" yaml:"table"`
}

// Open builds the store named by cfg.Backend. The caller closes it with Close.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendFile, "":
		if cfg.Path == "" {
			return nil, errors.New("file lookup backend requires a database path")
		}
		return LoadFile(cfg.Path)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.DSN, cfg.Table)
	case BackendMemory:
		return NewMemoryStore(nil), nil
	default:
		return nil, fmt.Errorf("unknown lookup backend %q", cfg.Backend)
	}
}

// Close releases s if it holds resources.
func Close(s Store) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
