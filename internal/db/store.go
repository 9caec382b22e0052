package db

import (
	"fmt"

	"go.uber.org/zap"

	"civicvoice/internal/config"
	"civicvoice/internal/repository"
)

// OpenStore builds the store selected by cfg.StoreDriver. For MySQL the
// schema is migrated, and dropped first when cfg.ResetDB is set.
func OpenStore(cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return repository.NewMemoryStore(), nil
	case config.StoreMySQL:
		gormDB, err := NewMySQL(cfg.MySQLDSN, Options{Verbose: cfg.Env == "debug"})
		if err != nil {
			return nil, err
		}
		if cfg.ResetDB {
			logger.Warn("RESET_DB=true detected, dropping all tables")
		}
		if err := Migrate(gormDB, cfg.ResetDB, repository.Models()...); err != nil {
			return nil, err
		}
		logger.Info("database ready")
		return repository.NewGormStore(gormDB), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
