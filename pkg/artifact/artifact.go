// Package artifact caches intermediate pipeline arrays so a re-run of the
// same recording skips recomputation. It is a load-or-compute store: callers
// hand it a key and a compute function and stay unaware of cache state.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maypok86/otter/v2"
)

// Store is a two-tier artifact cache: an in-memory otter cache in front of
// one file per key on disk. With force set every lookup misses
// and the recomputed artifact overwrites whatever was stored.
type Store struct {
	cache  *otter.Cache[string, []byte]
	logger *slog.Logger
	dir    string
	force  bool
}

// New creates the store, creating dir if needed.
func New(dir string, force bool, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}

	cache := otter.Must(&otter.Options[string, []byte]{
		MaximumSize:     256,
		InitialCapacity: 16,
	})

	return &Store{cache: cache, dir: dir, force: force, logger: logger}, nil
}

// LoadOrCompute returns the cached artifact for key, or runs compute and
// stores its result. Disk write failures are logged, not returned: a missing
// cache entry only costs recomputation next run.
func (s *Store) LoadOrCompute(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if !s.force {
		if data, ok := s.cache.GetIfPresent(key); ok {
			s.logger.Debug("artifact memory hit", "key", key)
			return data, nil
		}
		if data, err := s.readDisk(key); err == nil {
			s.logger.Debug("artifact disk hit", "key", key, "size", len(data))
			s.cache.Set(key, data)
			return data, nil
		}
	}

	data, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, data)
	if err := s.writeDisk(key, data); err != nil {
		s.logger.Warn("artifact disk write failed", "key", key, "error", err)
	} else {
		s.logger.Debug("artifact stored", "key", key, "size", len(data))
	}
	return data, nil
}

// Invalidate drops key from both tiers.
func (s *Store) Invalidate(key string) {
	s.cache.Invalidate(key)
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("artifact remove failed", "key", key, "error", err)
	}
}

func (s *Store) path(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(h[:])+".bin")
}

func (s *Store) readDisk(key string) ([]byte, error) {
	return os.ReadFile(s.path(key))
}

func (s *Store) writeDisk(key string, data []byte) error {
	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing temp artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing artifact: %w", err)
	}
	return nil
}
