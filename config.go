package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix         = "BOOKS"
	DefaultConfigFile = "./config.yml"
	DefaultEnvFile    = "./config.env"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string         `yaml:"git_commit" json:"git_commit" envconfig:"BOOKS_GIT_COMMIT"`
	GitTag             string         `yaml:"git_tag" json:"git_tag" envconfig:"BOOKS_GIT_TAG"`
	BuildTime          string         `yaml:"build_time" json:"build_time" envconfig:"BOOKS_BUILD_TIME"`
	IsProduction       bool           `yaml:"is_production" json:"is_production" envconfig:"BOOKS_IS_PRODUCTION"`
	LogLevel           zapcore.Level  `yaml:"log_level" json:"log_level" envconfig:"BOOKS_LOG_LEVEL"`
	LogFile            string         `yaml:"log_file" json:"log_file" envconfig:"BOOKS_LOG_FILE"`
	OpsEndpointsEnable bool           `yaml:"ops_endpoints_enable" json:"ops_endpoints_enable" envconfig:"BOOKS_OPS_ENDPOINTS_ENABLE"`
	Server             ServerConfig   `yaml:"server" json:"server"`
	Database           DatabaseConfig `yaml:"database" json:"database"`
	Redis              RedisConfig    `yaml:"redis" json:"redis"`
	Reset              ResetConfig    `yaml:"reset" json:"reset"`
}

type ServerConfig struct {
	Host             string        `yaml:"host" json:"host" envconfig:"BOOKS_SERVER_HOST"`
	Port             string        `yaml:"port" json:"port" envconfig:"PORT"` // BOOKS_SERVER_PORT first, then PORT
	ReadTimeout      time.Duration `yaml:"read_timeout" json:"read_timeout" envconfig:"BOOKS_SERVER_READ_TIMEOUT"`
	WriteTimeout     time.Duration `yaml:"write_timeout" json:"write_timeout" envconfig:"BOOKS_SERVER_WRITE_TIMEOUT"`
	RequestTimeout   time.Duration `yaml:"request_timeout" json:"request_timeout" envconfig:"BOOKS_SERVER_REQUEST_TIMEOUT"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" envconfig:"BOOKS_SERVER_SHUTDOWN_TIMEOUT"`
	CORSEnable       bool          `yaml:"cors_enable" json:"cors_enable" envconfig:"BOOKS_SERVER_CORS_ENABLE"`
	JSONBodyEnable   bool          `yaml:"json_body_enable" json:"json_body_enable" envconfig:"BOOKS_SERVER_JSON_BODY_ENABLE"`
	JSONBodyLimit    int64         `yaml:"json_body_limit" json:"json_body_limit" envconfig:"BOOKS_SERVER_JSON_BODY_LIMIT"`
	RequestLogEnable bool          `yaml:"request_log_enable" json:"request_log_enable" envconfig:"BOOKS_SERVER_REQUEST_LOG_ENABLE"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" json:"driver" envconfig:"BOOKS_DATABASE_DRIVER"`
	DSN             string        `yaml:"dsn" json:"-" envconfig:"BOOKS_DATABASE_DSN"`
	Host            string        `yaml:"host" json:"host" envconfig:"BOOKS_DATABASE_HOST"`
	Port            string        `yaml:"port" json:"port" envconfig:"BOOKS_DATABASE_PORT"`
	User            string        `yaml:"user" json:"user" envconfig:"BOOKS_DATABASE_USER"`
	Password        string        `yaml:"password" json:"-" envconfig:"BOOKS_DATABASE_PASSWORD"`
	Name            string        `yaml:"name" json:"name" envconfig:"BOOKS_DATABASE_NAME"`
	SSLMode         string        `yaml:"sslmode" json:"sslmode" envconfig:"BOOKS_DATABASE_SSLMODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" envconfig:"BOOKS_DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" envconfig:"BOOKS_DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" envconfig:"BOOKS_DATABASE_CONN_MAX_LIFETIME"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" json:"slow_threshold" envconfig:"BOOKS_DATABASE_SLOW_THRESHOLD"`
}

type RedisConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" envconfig:"BOOKS_REDIS_ENABLED"`
	Host          string        `yaml:"host" json:"host" envconfig:"BOOKS_REDIS_HOST"`
	Port          string        `yaml:"port" json:"port" envconfig:"BOOKS_REDIS_PORT"`
	Username      string        `yaml:"username" json:"username" envconfig:"BOOKS_REDIS_USERNAME"`
	Password      string        `yaml:"password" json:"-" envconfig:"BOOKS_REDIS_PASSWORD"`
	DatabaseIndex int           `yaml:"db_index" json:"db_index" envconfig:"BOOKS_REDIS_DATABASE_INDEX"`
	DialTimeout   time.Duration `yaml:"dial_timeout" json:"dial_timeout" envconfig:"BOOKS_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" json:"read_timeout" envconfig:"BOOKS_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" json:"write_timeout" envconfig:"BOOKS_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" json:"pool_size" envconfig:"BOOKS_REDIS_POOL_SIZE"`
	CacheKey      string        `yaml:"cache_key" json:"cache_key" envconfig:"BOOKS_REDIS_CACHE_KEY"`
}

type ResetConfig struct {
	BackupFile string        `yaml:"backup_file" json:"backup_file" envconfig:"BOOKS_RESET_BACKUP_FILE"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" envconfig:"BOOKS_RESET_TIMEOUT"`
}

// DefaultConfig returns the settings used for every parameter
// not provided by the configuration file or the environment.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: zapcore.InfoLevel,
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             "3000",
			ReadTimeout:      10 * time.Second,
			WriteTimeout:     15 * time.Second,
			RequestTimeout:   10 * time.Second,
			ShutdownTimeout:  30 * time.Second,
			CORSEnable:       true,
			JSONBodyEnable:   true,
			JSONBodyLimit:    100 << 10,
			RequestLogEnable: true,
		},
		Database: DatabaseConfig{
			Driver:        DriverPostgres,
			Host:          "localhost",
			Port:          "5432",
			User:          "postgres",
			Name:          "books",
			SSLMode:       "disable",
			SlowThreshold: 200 * time.Millisecond,
		},
		Redis: RedisConfig{
			Host:        "localhost",
			Port:        "6379",
			DialTimeout: 5 * time.Second,
			CacheKey:    "books.cache",
		},
		Reset: ResetConfig{
			Timeout: time.Minute,
		},
	}
}

// LoadConfigFile decodes the yaml file on top of the default configuration.
// A missing file is not an error: the defaults are returned as is.
func LoadConfigFile(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	file, err := os.Open(configFile)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	err = yaml.NewDecoder(file).Decode(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and overrides the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig checks the mandatory parameters and configures
// build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Port) == 0 {
		return errors.New("make sure to set a valid server port")
	}

	if config.Server.JSONBodyEnable && config.Server.JSONBodyLimit <= 0 {
		return errors.New("make sure to set a positive json body limit")
	}

	switch config.Database.Driver {
	case DriverPostgres:
		if len(config.Database.DSN) == 0 && (len(config.Database.Host) == 0 || len(config.Database.Name) == 0) {
			return errors.New("make sure to set a valid database dsn or host and name")
		}
	case DriverSQLite:
		if len(config.Database.DSN) == 0 && len(config.Database.Name) == 0 {
			return errors.New("make sure to set a valid sqlite database file")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, config.Database.Driver)
	}

	if config.Redis.Enabled && (len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0) {
		return errors.New("make sure to set valid redis address and port")
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	configFile := DefaultConfigFile
	if f := os.Getenv(EnvPrefix + "_CONFIG_FILE"); f != "" {
		configFile = f
	}

	config, err := LoadConfigFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configurations from file: %w", err)
	}

	// Set the environment configuration. Variables already present win.
	err = godotenv.Load(DefaultEnvFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to set environment configurations: %w", err)
	}

	err = LoadConfigEnvs(EnvPrefix, config)
	if err != nil {
		return nil, fmt.Errorf("failed to load configurations from environment: %w", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize configurations: %w", err)
	}
	return config, nil
}

// Address returns the host:port the api server listens on.
func (sc *ServerConfig) Address() string {
	return sc.Host + ":" + sc.Port
}
