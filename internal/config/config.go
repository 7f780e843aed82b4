package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"acsf-platform/internal/models"
	"acsf-platform/pkg/database"
)

// EnvPrefix prefixes every environment override, e.g. ACSF_DATABASE_HOST
const EnvPrefix = "ACSF"

// Config is the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig configures the optional run store
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DatasetConfig configures ingestion
type DatasetConfig struct {
	Path    string   `mapstructure:"path"`
	Targets []string `mapstructure:"targets"`
	Persist bool     `mapstructure:"persist"`
}

// Connection converts the section into a database.Config
func (d DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Driver:          d.Driver,
		DSN:             d.DSN,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", database.DriverPostgres)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "acsf")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "acsf")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", time.Minute)

	v.SetDefault("logging.level", "info")

	v.SetDefault("dataset.path", "")
	v.SetDefault("dataset.targets", []string{})
	v.SetDefault("dataset.persist", false)
}

// LoadConfig reads acsf.yaml from the working directory or ./config, if present,
// and applies ACSF_ environment overrides on top of the defaults
func LoadConfig() (*Config, error) {
	return Load("")
}

// Load reads configuration from configFile, or searches the default locations
// when it is empty. A missing file in the default locations is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("acsf")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the services cannot work with.
// dataset.targets is left to the ingestion service, which falls back to all
// channels with a warning.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &models.ConfigurationError{Field: "server.port", Value: fmt.Sprint(c.Server.Port), Message: "port out of range"}
	}

	switch c.Database.Driver {
	case database.DriverPostgres:
		if c.Database.Enabled && c.Database.DSN == "" && (c.Database.Port <= 0 || c.Database.Port > 65535) {
			return &models.ConfigurationError{Field: "database.port", Value: fmt.Sprint(c.Database.Port), Message: "port out of range"}
		}
	case database.DriverSQLite:
		if c.Database.Enabled && c.Database.DSN == "" {
			return &models.ConfigurationError{Field: "database.dsn", Message: "sqlite requires a dsn"}
		}
	default:
		return &models.ConfigurationError{Field: "database.driver", Value: c.Database.Driver, Message: "unsupported driver"}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return &models.ConfigurationError{Field: "logging.level", Value: c.Logging.Level, Message: "unknown log level"}
	}

	return nil
}
