package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

// ConnectionString returns the dsn for the configured driver. An explicit
// dsn always wins. For sqlite the database name is used as the file path.
func (dc *DatabaseConfig) ConnectionString() string {
	if len(dc.DSN) != 0 {
		return dc.DSN
	}
	if dc.Driver == DriverSQLite {
		return dc.Name
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dc.Host, dc.Port, dc.User, dc.Password, dc.Name, dc.SSLMode)
}

// GetDatabaseClient provides a database handle for the configured driver. No
// connection is made here: errors surface on the first executed statement.
// Tables use snake_case columns and the pool keeps the driver defaults unless
// limits are configured.
func GetDatabaseClient(config *Config, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.Database.Driver {
	case DriverPostgres:
		dialector = postgres.Open(config.Database.ConnectionString())
	case DriverSQLite:
		dialector = sqlite.Open(config.Database.ConnectionString())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, config.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy:       schema.NamingStrategy{},
		Logger:               NewGormLogger(logger, config),
		DisableAutomaticPing: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", config.Database.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connections pool: %w", err)
	}
	if config.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.Database.MaxOpenConns)
	}
	if config.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.Database.MaxIdleConns)
	}
	if config.Database.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.Database.ConnMaxLifetime)
	}
	return db, nil
}

// CloseDatabaseClient releases all connections held by the handle.
func CloseDatabaseClient(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewGormLogger routes the ORM logs into zap. Missing records are
// expected by the storage and are not reported.
func NewGormLogger(logger *zap.Logger, config *Config) gormlogger.Interface {
	level := gormlogger.Warn
	if !config.IsProduction && config.LogLevel <= zap.DebugLevel {
		level = gormlogger.Info
	}
	return gormlogger.New(
		zap.NewStdLog(logger.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             config.Database.SlowThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// DatabasePinger returns a health check verifying the database is reachable.
func DatabasePinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
