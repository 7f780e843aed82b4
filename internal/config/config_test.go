package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acsf-platform/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Dataset.Targets)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "acsf.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 9000
database:
  enabled: true
  driver: sqlite
  dsn: /tmp/acsf.db
logging:
  level: debug
dataset:
  path: /data/acsf2
  targets: [power, rmsCur]
`), 0o644))

	t.Setenv("ACSF_SERVER_PORT", "9100")
	t.Setenv("ACSF_DATASET_PERSIST", "true")

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/acsf.db", cfg.Database.Connection().DSN)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/data/acsf2", cfg.Dataset.Path)
	assert.Equal(t, []string{"power", "rmsCur"}, cfg.Dataset.Targets)
	assert.True(t, cfg.Dataset.Persist)
	assert.NoError(t, cfg.Validate())
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acsf.yaml"), []byte("dataset:\n  path: ./recordings\n"), 0o644))
	chdir(t, dir)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "./recordings", cfg.Dataset.Path)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "postgres", Port: 5432},
			Logging:  LoggingConfig{Level: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"valid", func(c *Config) {}, ""},
		{"server port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"postgres port", func(c *Config) { c.Database.Enabled = true; c.Database.Port = 0 }, "database.port"},
		{"sqlite without dsn", func(c *Config) { c.Database.Enabled = true; c.Database.Driver = "sqlite" }, "database.dsn"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"unknown target is left to ingestion", func(c *Config) { c.Dataset.Targets = []string{"power", "voltage"} }, ""},
		{"empty targets", func(c *Config) { c.Dataset.Targets = nil }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidConfiguration))
			var cfgErr *models.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir in Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
