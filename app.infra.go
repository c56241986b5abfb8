package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Infra groups the process-wide resources built once at startup and
// handed to the command being run. Nothing here is a package global.
type Infra struct {
	config      *Config
	logger      *zap.Logger
	clock       *Clock
	db          *gorm.DB
	redisClient *redis.Client
	cleanups    []func()
}

// SetupInfra loads the configuration then sets up logging, the database
// handle and the redis client when enabled.
func SetupInfra() (*Infra, error) {
	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %w", err)
	}
	return NewInfra(config)
}

// NewInfra builds the resources for an already loaded configuration.
func NewInfra(config *Config) (*Infra, error) {
	infra := &Infra{config: config, clock: NewClock(config.IsProduction)}

	logFile, closer, err := OpenLogFile(config.LogFile)
	if err != nil {
		return nil, err
	}
	infra.cleanups = append(infra.cleanups, closer)
	logger, flusher := SetupLogging(config, logFile)
	infra.logger = logger
	infra.cleanups = append(infra.cleanups, flusher)

	db, err := GetDatabaseClient(config, logger)
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("failed to setup database client: %w", err)
	}
	infra.db = db
	infra.cleanups = append(infra.cleanups, func() {
		if cerr := CloseDatabaseClient(db); cerr != nil {
			logger.Error("failed to close database client", zap.Error(cerr))
		}
	})

	if config.Redis.Enabled {
		redisClient, err := GetRedisClient(config)
		if err != nil {
			_ = redisClient.Close()
			infra.Close()
			return nil, fmt.Errorf("failed to connect to redis server: %w", err)
		}
		infra.redisClient = redisClient
		infra.cleanups = append(infra.cleanups, func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.Error("failed to close redis client", zap.Error(cerr))
			}
		})
	}
	return infra, nil
}

// BookStorage builds the book storage, cached by redis when enabled.
func (in *Infra) BookStorage() BookStorage {
	storage := NewGormBookStorage(in.logger, in.db)
	if in.redisClient == nil {
		return storage
	}
	return NewRedisCachedBookStorage(in.logger, in.redisClient, in.config.Redis.CacheKey, storage)
}

// HealthChecks returns the probes of every configured dependency.
func (in *Infra) HealthChecks() []HealthCheck {
	checks := []HealthCheck{{Name: "database", Check: DatabasePinger(in.db)}}
	if in.redisClient != nil {
		checks = append(checks, HealthCheck{Name: "redis", Check: RedisPinger(in.redisClient)})
	}
	return checks
}

// Close releases the resources in the reverse order of their creation.
func (in *Infra) Close() {
	for i := len(in.cleanups) - 1; i >= 0; i-- {
		in.cleanups[i]()
	}
	in.cleanups = nil
}
