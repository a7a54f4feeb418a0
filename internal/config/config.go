// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// File paths
	DatabasePath string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from other settings
	GeoDBPath    string `mapstructure:"geodbpath"`
	FunnelsPath  string `mapstructure:"funnelspath"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Dashboard refresh settings
	RefreshIntervalSeconds int `mapstructure:"refreshintervalseconds"`
	FetchLimit             int `mapstructure:"fetchlimit"`

	// Geo resolver settings
	GeoPrimaryURL     string `mapstructure:"geoprimaryurl"`
	GeoSecondaryURL   string `mapstructure:"geosecondaryurl"`
	GeoTimeoutSeconds int    `mapstructure:"geotimeoutseconds"`

	// Struggle scoring settings
	StruggleEndpoint       string `mapstructure:"struggleendpoint"`
	StruggleAPIKey         string `mapstructure:"struggleapikey"`
	StruggleTimeoutSeconds int    `mapstructure:"struggletimeoutseconds"`
	StruggleSampleLimit    int    `mapstructure:"strugglesamplelimit"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "clickpulse")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "storage/GeoLite2-Country.mmdb")
		v.SetDefault("funnelspath", "storage/funnels.yml")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("refreshintervalseconds", 30)
		v.SetDefault("fetchlimit", 200)
		v.SetDefault("geoprimaryurl", "https://ipapi.co/json/")
		v.SetDefault("geosecondaryurl", "http://ip-api.com/json/")
		v.SetDefault("geotimeoutseconds", 5)
		v.SetDefault("struggleendpoint", "")
		v.SetDefault("struggletimeoutseconds", 20)
		v.SetDefault("strugglesamplelimit", 500)

		v.BindEnv("appname", "CLICKPULSE_APP_NAME")
		v.BindEnv("appport", "CLICKPULSE_APP_PORT")
		v.BindEnv("environment", "CLICKPULSE_ENV")
		v.BindEnv("loglevel", "CLICKPULSE_LOG_LEVEL")
		v.BindEnv("storagepath", "CLICKPULSE_STORAGE_PATH")
		v.BindEnv("geodbpath", "CLICKPULSE_GEO_DB_PATH")
		v.BindEnv("funnelspath", "CLICKPULSE_FUNNELS_PATH")
		v.BindEnv("logsdir", "CLICKPULSE_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "CLICKPULSE_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "CLICKPULSE_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "CLICKPULSE_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "CLICKPULSE_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "CLICKPULSE_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "CLICKPULSE_DB_MAX_IDLE_CONNS")
		v.BindEnv("refreshintervalseconds", "CLICKPULSE_REFRESH_INTERVAL_SECONDS")
		v.BindEnv("fetchlimit", "CLICKPULSE_FETCH_LIMIT")
		v.BindEnv("geoprimaryurl", "CLICKPULSE_GEO_PRIMARY_URL")
		v.BindEnv("geosecondaryurl", "CLICKPULSE_GEO_SECONDARY_URL")
		v.BindEnv("geotimeoutseconds", "CLICKPULSE_GEO_TIMEOUT_SECONDS")
		v.BindEnv("struggleendpoint", "CLICKPULSE_STRUGGLE_ENDPOINT")
		v.BindEnv("struggleapikey", "CLICKPULSE_STRUGGLE_API_KEY")
		v.BindEnv("struggletimeoutseconds", "CLICKPULSE_STRUGGLE_TIMEOUT_SECONDS")
		v.BindEnv("strugglesamplelimit", "CLICKPULSE_STRUGGLE_SAMPLE_LIMIT")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.FetchLimit <= 0 || c.FetchLimit > 200 {
		return fmt.Errorf("fetchlimit must be in (0, 200], got %d", c.FetchLimit)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port.
func (c *Config) GetPort() string {
	return c.AppPort
}

// RefreshInterval returns the dashboard refresh interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// GeoTimeout returns the per-provider geo lookup timeout.
func (c *Config) GeoTimeout() time.Duration {
	return time.Duration(c.GeoTimeoutSeconds) * time.Second
}

// StruggleTimeout returns the hard timeout for struggle analysis calls.
func (c *Config) StruggleTimeout() time.Duration {
	return time.Duration(c.StruggleTimeoutSeconds) * time.Second
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for test stability with shared in-memory databases)
// - Development/Production: 10 (allows concurrent reads for parallel dashboard queries)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string.
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory.
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
