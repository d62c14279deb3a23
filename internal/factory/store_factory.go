package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kestrelsec/mailgate/internal/adapters/store"
	"github.com/kestrelsec/mailgate/internal/config"
	"github.com/kestrelsec/mailgate/internal/core"
	"go.uber.org/zap"
)

// Store is the combined persistence surface a backend must provide:
// tenant configuration plus the alert log.
type Store interface {
	core.ConfigStore
	core.AlertRepository
	Stop()
}

// StoreFactory creates store backends based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a store backend based on the configuration
func (f *StoreFactory) CreateStore() (Store, error) {
	storeType := f.cfg.GetString("store.type")

	switch storeType {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("store.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(sqlitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(f.cfg.GetString("store.mysql_dsn"), f.logger)
	case "postgres":
		return store.NewPostgresStore(f.cfg.GetString("store.postgres_dsn"), f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
