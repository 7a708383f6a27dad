// Package store selects the snapshot store backend from configuration.
package store

import (
	"fmt"
	"log/slog"

	"github.com/HatiCode/analogcast/cmd/forecaster/config"
	"github.com/HatiCode/analogcast/pkg/storage"
)

// New returns a MemoryStore or a RedisStore depending on cfg.Storage. The
// caller should close the store when it implements io.Closer.
func New(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage {
	case "redis":
		logger.Info("using redis storage", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.RedisTTL)
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			return nil, fmt.Errorf("redis storage: %w", err)
		}
		return s, nil
	case "memory", "":
		if cfg.MemoryTTL > 0 {
			logger.Info("using in-memory storage", "ttl", cfg.MemoryTTL)
			return storage.NewMemoryStoreWithTTL(cfg.MemoryTTL, 0), nil
		}
		logger.Info("using in-memory storage")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
