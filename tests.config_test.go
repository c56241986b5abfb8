package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// This file contains tests of the configuration loading.

// isolateConfigEnv runs the test from an empty folder and clears every variable
// the loader reads, so that only the values set by the test are seen.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		name, _, _ := strings.Cut(env, "=")
		if name == "PORT" || strings.HasPrefix(name, EnvPrefix+"_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "3000", config.Server.Port)
	assert.Equal(t, "0.0.0.0:3000", config.Server.Address())
	assert.True(t, config.Server.CORSEnable)
	assert.True(t, config.Server.JSONBodyEnable)
	assert.True(t, config.Server.RequestLogEnable)
	assert.False(t, config.OpsEndpointsEnable)
	assert.False(t, config.Redis.Enabled)
	assert.Equal(t, DriverPostgres, config.Database.Driver)
	assert.Equal(t, "books", config.Database.Name)
	assert.Equal(t, zapcore.InfoLevel, config.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	t.Run("should pass: missing file", func(t *testing.T) {
		config, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), config)
	})

	t.Run("should pass: partial file over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		content := `
log_level: debug
server:
  port: "8080"
  cors_enable: false
database:
  driver: sqlite
  name: ./books.db
reset:
  timeout: 30s
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		config, err := LoadConfigFile(path)
		require.NoError(t, err)
		assert.Equal(t, "8080", config.Server.Port)
		assert.False(t, config.Server.CORSEnable)
		assert.True(t, config.Server.JSONBodyEnable)
		assert.Equal(t, zapcore.DebugLevel, config.LogLevel)
		assert.Equal(t, DriverSQLite, config.Database.Driver)
		assert.Equal(t, "./books.db", config.Database.Name)
		assert.Equal(t, 30*time.Second, config.Reset.Timeout)
		assert.Equal(t, "0.0.0.0", config.Server.Host)
	})

	t.Run("should fail: malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("server: [port"), 0o600))
		_, err := LoadConfigFile(path)
		assert.Error(t, err)
	})
}

func TestLoadConfigEnvs(t *testing.T) {
	testCases := []struct {
		name string
		envs map[string]string
		port string
	}{
		{"no variable", nil, "3000"},
		{"PORT only", map[string]string{"PORT": "5000"}, "5000"},
		{"prefixed variable only", map[string]string{"BOOKS_SERVER_PORT": "6000"}, "6000"},
		{"prefixed variable wins over PORT", map[string]string{"PORT": "5000", "BOOKS_SERVER_PORT": "6000"}, "6000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			isolateConfigEnv(t)
			for k, v := range tc.envs {
				t.Setenv(k, v)
			}
			config := DefaultConfig()
			require.NoError(t, LoadConfigEnvs(EnvPrefix, config))
			assert.Equal(t, tc.port, config.Server.Port)
			assert.Equal(t, "0.0.0.0:"+tc.port, config.Server.Address())
		})
	}

	t.Run("other variables", func(t *testing.T) {
		isolateConfigEnv(t)
		t.Setenv("BOOKS_LOG_LEVEL", "warn")
		t.Setenv("BOOKS_OPS_ENDPOINTS_ENABLE", "true")
		t.Setenv("BOOKS_SERVER_CORS_ENABLE", "false")
		t.Setenv("BOOKS_SERVER_JSON_BODY_LIMIT", "2048")
		t.Setenv("BOOKS_DATABASE_DRIVER", "sqlite")
		t.Setenv("BOOKS_DATABASE_NAME", "/tmp/books.db")
		t.Setenv("BOOKS_REDIS_ENABLED", "true")
		t.Setenv("BOOKS_RESET_TIMEOUT", "5s")

		config := DefaultConfig()
		require.NoError(t, LoadConfigEnvs(EnvPrefix, config))
		assert.Equal(t, zapcore.WarnLevel, config.LogLevel)
		assert.True(t, config.OpsEndpointsEnable)
		assert.False(t, config.Server.CORSEnable)
		assert.Equal(t, int64(2048), config.Server.JSONBodyLimit)
		assert.Equal(t, DriverSQLite, config.Database.Driver)
		assert.Equal(t, "/tmp/books.db", config.Database.Name)
		assert.True(t, config.Redis.Enabled)
		assert.Equal(t, 5*time.Second, config.Reset.Timeout)
	})

	t.Run("should fail: invalid value", func(t *testing.T) {
		isolateConfigEnv(t)
		t.Setenv("BOOKS_SERVER_READ_TIMEOUT", "soon")
		assert.Error(t, LoadConfigEnvs(EnvPrefix, DefaultConfig()))
	})
}

func TestInitConfig(t *testing.T) {
	testCases := []struct {
		name    string
		update  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"postgres dsn only", func(c *Config) { c.Database.Host = ""; c.Database.DSN = "postgres://localhost/books" }, false},
		{"sqlite with file", func(c *Config) { c.Database.Driver = DriverSQLite }, false},
		{"redis enabled", func(c *Config) { c.Redis.Enabled = true }, false},
		{"empty port", func(c *Config) { c.Server.Port = "" }, true},
		{"postgres without host", func(c *Config) { c.Database.Host = "" }, true},
		{"sqlite without file", func(c *Config) { c.Database.Driver = DriverSQLite; c.Database.Name = "" }, true},
		{"redis without host", func(c *Config) { c.Redis.Enabled = true; c.Redis.Host = "" }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"zero json body limit", func(c *Config) { c.Server.JSONBodyLimit = 0 }, true},
		{"negative json body limit", func(c *Config) { c.Server.JSONBodyLimit = -1 }, true},
		{"json body disabled without limit", func(c *Config) { c.Server.JSONBodyEnable = false; c.Server.JSONBodyLimit = 0 }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.update(config)
			err := InitConfig(config, "", "", "")
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("unknown driver is typed", func(t *testing.T) {
		config := DefaultConfig()
		config.Database.Driver = "mysql"
		assert.True(t, errors.Is(InitConfig(config, "", "", ""), ErrUnsupportedDriver))
	})

	t.Run("build values", func(t *testing.T) {
		config := DefaultConfig()
		require.NoError(t, InitConfig(config, "abc123", "v1.0.0", "2023-07-02"))
		assert.Equal(t, "abc123", config.GitCommit)
		assert.Equal(t, "v1.0.0", config.GitTag)
		assert.Equal(t, "2023-07-02", config.BuildTime)
	})
}

func TestLoadAndInitConfigs(t *testing.T) {
	t.Run("defaults with PORT", func(t *testing.T) {
		isolateConfigEnv(t)
		t.Setenv("PORT", "5000")
		config, err := LoadAndInitConfigs("", "", "")
		require.NoError(t, err)
		assert.Equal(t, "5000", config.Server.Port)
	})

	t.Run("file then env file then environment", func(t *testing.T) {
		isolateConfigEnv(t)
		require.NoError(t, os.WriteFile(DefaultConfigFile, []byte("server:\n  port: \"7000\"\n  host: 127.0.0.1\n"), 0o600))
		require.NoError(t, os.WriteFile(DefaultEnvFile, []byte("BOOKS_SERVER_HOST=localhost\nBOOKS_DATABASE_NAME=library\n"), 0o600))
		t.Setenv("BOOKS_DATABASE_NAME", "catalog")
		// the env file sets variables for the process, registered for cleanup.
		t.Setenv("BOOKS_SERVER_HOST", "")
		os.Unsetenv("BOOKS_SERVER_HOST")

		config, err := LoadAndInitConfigs("", "", "")
		require.NoError(t, err)
		assert.Equal(t, "7000", config.Server.Port)
		assert.Equal(t, "localhost", config.Server.Host)
		assert.Equal(t, "catalog", config.Database.Name)
	})

	t.Run("custom config file", func(t *testing.T) {
		isolateConfigEnv(t)
		path := filepath.Join(t.TempDir(), "books.yml")
		require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o600))
		t.Setenv(EnvPrefix+"_CONFIG_FILE", path)
		_, err := LoadAndInitConfigs("", "", "")
		assert.True(t, errors.Is(err, ErrUnsupportedDriver))
	})
}
