package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reset exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

const BoltOpenTimeout = 5 * time.Second

// DatabaseResetter drops and recreates every table of the schema.
// It is meant for development only: all rows are lost unless a
// backup file is configured.
type DatabaseResetter struct {
	logger  *zap.Logger
	config  *ResetConfig
	db      *gorm.DB
	storage BookStorage
	backup  *BoltBookBackup
	cache   CacheInvalidator
	models  []interface{}
}

// NewDatabaseResetter provides a resetter for the given models. The backup and
// cache are optional and skipped when nil.
func NewDatabaseResetter(logger *zap.Logger, config *ResetConfig, db *gorm.DB, storage BookStorage, backup *BoltBookBackup, cache CacheInvalidator, models ...interface{}) *DatabaseResetter {
	return &DatabaseResetter{
		logger:  logger,
		config:  config,
		db:      db,
		storage: storage,
		backup:  backup,
		cache:   cache,
		models:  models,
	}
}

// Reset runs the whole reset and returns only once the schema operations
// completed. A failing backup aborts before anything is dropped.
func (dr *DatabaseResetter) Reset(ctx context.Context) error {
	if dr.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dr.config.Timeout)
		defer cancel()
	}

	if err := DatabasePinger(dr.db)(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	if dr.backup != nil {
		if missing := dr.missingTables(ctx); len(missing) == 0 {
			if _, err := dr.backup.Save(ctx, dr.storage); err != nil {
				return fmt.Errorf("failed to backup books: %w", err)
			}
		} else {
			dr.logger.Info("backup skipped. tables do not exist", zap.Strings("tables", missing))
		}
	}

	if err := dr.Sync(ctx); err != nil {
		return err
	}

	if dr.cache != nil {
		if err := dr.cache.Invalidate(ctx); err != nil {
			dr.logger.Error("failed to invalidate books cache", zap.Error(err))
		}
	}
	return nil
}

// missingTables returns the table names of the models not yet created.
func (dr *DatabaseResetter) missingTables(ctx context.Context) []string {
	migrator := dr.db.WithContext(ctx).Migrator()
	var missing []string
	for _, model := range dr.models {
		if migrator.HasTable(model) {
			continue
		}
		stmt := &gorm.Statement{DB: dr.db}
		if err := stmt.Parse(model); err != nil {
			missing = append(missing, fmt.Sprintf("%T", model))
			continue
		}
		missing = append(missing, stmt.Schema.Table)
	}
	return missing
}

// Sync drops then recreates the tables of all models within a single transaction.
func (dr *DatabaseResetter) Sync(ctx context.Context) error {
	return dr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().DropTable(dr.models...); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
		if err := tx.AutoMigrate(dr.models...); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
		return nil
	})
}

// RunResetDB is the entrypoint of the `resetdb` command. It logs the
// outcome and returns the process exit code.
func RunResetDB(ctx context.Context, infra *Infra) int {
	var backup *BoltBookBackup
	if len(infra.config.Reset.BackupFile) != 0 {
		backup = NewBoltBookBackup(infra.logger, infra.clock, infra.config.Reset.BackupFile, BoltOpenTimeout)
	}

	storage := infra.BookStorage()
	var cache CacheInvalidator
	if c, ok := storage.(CacheInvalidator); ok {
		cache = c
	}

	resetter := NewDatabaseResetter(infra.logger, &infra.config.Reset, infra.db, storage, backup, cache, Models...)
	start := infra.clock.Now()
	if err := resetter.Reset(ctx); err != nil {
		infra.logger.Error("database sync failed", zap.String("database.driver", infra.config.Database.Driver), zap.Error(err))
		return ExitFailure
	}
	infra.logger.Info("database synced",
		zap.String("database.driver", infra.config.Database.Driver),
		zap.Duration("duration", infra.clock.Since(start)),
	)
	return ExitSuccess
}
