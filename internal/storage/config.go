package storage

import (
	"context"
	"fmt"
)

const (
	TypeMemory   = "memory"
	TypeBadger   = "badger"
	TypePostgres = "postgres"
)

// Config holds the store backend selection
type Config struct {
	Type        string // "memory", "badger" or "postgres"
	BadgerDir   string // Data directory for badger, empty for in-memory
	PostgresDSN string // Connection string for postgres
}

// Embedded reports whether a backend of type typ lives inside the process
// that opens it. Only that process can purge it.
func Embedded(typ string) bool {
	switch typ {
	case "", TypeMemory, TypeBadger:
		return true
	default:
		return false
	}
}

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "", TypeMemory:
		return NewMemoryStore(), nil
	case TypeBadger:
		return OpenBadger(cfg.BadgerDir)
	case TypePostgres:
		return OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported store type %q", cfg.Type)
	}
}
