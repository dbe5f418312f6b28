// Package cache memoizes predictions per (vocabulary fingerprint, normalized text).
package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Entry is what a cached prediction stores; the display text is rebuilt per request.
type Entry struct {
	Label      int     `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Cache stores predictions by Key. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Add(ctx context.Context, key string, entry Entry)
	Close()
}

const (
	BackendNone   = "none"
	BackendLRU    = "lru"
	BackendValkey = "valkey"
)

// Config selects and tunes the prediction cache backend.
type Config struct {
	Backend        string        `yaml:"backend"`
	Size           int           `yaml:"size"`
	ValkeyAddress  string        `yaml:"valkey_address"`
	ValkeyPassword string        `yaml:"valkey_password"`
	ValkeyTLS      bool          `yaml:"valkey_tls"`
	TTL            time.Duration `yaml:"ttl"`
}

// New builds the configured backend. BackendNone yields a nil Cache.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Cache, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendLRU:
		c, err := NewLRU(cfg.Size)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendValkey:
		c, err := NewValkey(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Key scopes normalized text to one loaded vectorizer/model pair, so entries written
// for a previous model are never read after a reload.
func Key(scope, normalized string) string {
	return scope + ":" + normalized
}
