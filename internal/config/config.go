package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "GEM_SUPPORT_"

	// DefaultEnvironment is used when GEM_SUPPORT_ENV is not set
	DefaultEnvironment = "production"

	// noDefaultsTag disables envDefault handling for override passes
	noDefaultsTag = "envNoDefault"
)

// Drivers with a schema source
var SupportedDrivers = []string{"duckdb", "sqlite3", "libsql", "postgres"}

// Config represents the application configuration
type Config struct {
	Environment string         `json:"environment" yaml:"environment" mapstructure:"environment" env:"ENV" envDefault:"production"`
	Database    DatabaseConfig `json:"database"    yaml:"database"    mapstructure:"database"`
	Schema      SchemaConfig   `json:"schema"      yaml:"schema"      mapstructure:"schema"`
	Cache       CacheConfig    `json:"cache"       yaml:"cache"       mapstructure:"cache"`
	Logging     LoggingConfig  `json:"logging"     yaml:"logging"     mapstructure:"logging"`
	Debug       DebugConfig    `json:"debug"       yaml:"debug"       mapstructure:"debug"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver          string `json:"driver"             yaml:"driver"             mapstructure:"driver"             env:"DB_DRIVER"             envDefault:"duckdb"`
	DSN             string `json:"dsn"                yaml:"dsn"                mapstructure:"dsn"                env:"DB_DSN"                envDefault:"~/.local/share/gem-support/database.duckdb"`
	Schema          string `json:"schema"             yaml:"schema"             mapstructure:"schema"             env:"DB_SCHEMA"`
	MaxConnections  int    `json:"max_connections"    yaml:"max_connections"    mapstructure:"max_connections"    env:"DB_MAX_CONNECTIONS"    envDefault:"10"`
	MaxIdleConns    int    `json:"max_idle_conns"     yaml:"max_idle_conns"     mapstructure:"max_idle_conns"     env:"DB_MAX_IDLE_CONNS"     envDefault:"5"`
	ConnMaxLifetime string `json:"conn_max_lifetime"  yaml:"conn_max_lifetime"  mapstructure:"conn_max_lifetime"  env:"DB_CONN_MAX_LIFETIME"  envDefault:"30m"`
	ConnMaxIdleTime string `json:"conn_max_idle_time" yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	QueryTimeout    string `json:"query_timeout"      yaml:"query_timeout"      mapstructure:"query_timeout"      env:"DB_QUERY_TIMEOUT"      envDefault:"30s"`
}

// SchemaConfig controls how schema lookups are memoized
type SchemaConfig struct {
	// CacheDays maps an environment name to the cache lifetime in days.
	// Environments without an entry are not cached.
	CacheDays map[string]int `json:"cache_days" yaml:"cache_days" mapstructure:"cache_days" env:"SCHEMA_CACHE_DAYS"`
	KeyPrefix string         `json:"key_prefix" yaml:"key_prefix" mapstructure:"key_prefix" env:"SCHEMA_CACHE_PREFIX" envDefault:"gem_"`
}

// CacheConfig represents caching configuration
type CacheConfig struct {
	Store       string `json:"store"             yaml:"store"             mapstructure:"store"             env:"CACHE_STORE"       envDefault:"file"` // file, memory
	Directory   string `json:"directory"         yaml:"directory"         mapstructure:"directory"         env:"CACHE_DIR"         envDefault:"~/.cache/gem-support"`
	MaxSizeMB   int    `json:"max_size_mb"       yaml:"max_size_mb"       mapstructure:"max_size_mb"       env:"CACHE_MAX_SIZE_MB" envDefault:"50"`
	CleanupFreq string `json:"cleanup_frequency" yaml:"cleanup_frequency" mapstructure:"cleanup_frequency" env:"CACHE_CLEANUP_FREQ" envDefault:"1h"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  yaml:"level"  mapstructure:"level"  env:"LOG_LEVEL"  envDefault:"warn"`                                  // debug, info, warn, error
	Format string `json:"format" yaml:"format" mapstructure:"format" env:"LOG_FORMAT" envDefault:"text"`                                  // text, json
	Output string `json:"output" yaml:"output" mapstructure:"output" env:"LOG_OUTPUT" envDefault:"stderr"`                                // stdout, stderr, file
	File   string `json:"file"   yaml:"file"   mapstructure:"file"   env:"LOG_FILE"   envDefault:"~/.config/gem-support/logs/app.log"` // log file path when output is file
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled" env:"DEBUG"   envDefault:"false"`
	Verbose bool `json:"verbose" yaml:"verbose" mapstructure:"verbose" env:"VERBOSE" envDefault:"false"`
}

// DefaultConfig returns the configuration built from envDefault tags only
func DefaultConfig() *Config {
	cfg := &Config{}

	// Defaults are static tag values, parsing them cannot fail.
	_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})

	return cfg
}

// LoadConfig loads configuration from file, environment variables, and command-line flags
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides.
// Precedence is defaults, config file, .env file and process environment, then flags.
func LoadConfigWithOverrides(flagOverrides map[string]any) (*Config, error) {
	config := DefaultConfig()

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadDotEnv(getDotEnvPath()); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := applyEnvironmentOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile merges a JSON, YAML or TOML file into config
func loadConfigFromFile(config *Config, configPath string) error {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	return nil
}

// loadDotEnv exports variables from a .env file that are not already set
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// applyEnvironmentOverrides sets fields whose variables are present, leaving the rest untouched
func applyEnvironmentOverrides(config *Config) error {
	return env.ParseWithOptions(config, env.Options{
		Prefix:              envPrefix,
		DefaultValueTagName: noDefaultsTag,
	})
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]any) error {
	for key, value := range overrides {
		switch key {
		case "env":
			if str, ok := value.(string); ok && str != "" {
				config.Environment = str
			}
		case "driver":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Driver = str
			}
		case "dsn":
			if str, ok := value.(string); ok && str != "" {
				config.Database.DSN = str
			}
		case "schema":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Schema = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "verbose":
			if b, ok := value.(bool); ok {
				config.Debug.Verbose = b
			}
		case "debug":
			if b, ok := value.(bool); ok {
				config.Debug.Enabled = b
			}
		case "cache-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Cache.Directory = str
			}
		default:
			return fmt.Errorf("unknown override: %s", key)
		}
	}

	return nil
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	if !slices.Contains(SupportedDrivers, config.Database.Driver) {
		return fmt.Errorf(
			"invalid database driver: %s (must be one of %s)",
			config.Database.Driver,
			strings.Join(SupportedDrivers, ", "),
		)
	}

	if config.Database.DSN == "" {
		return errors.New("database dsn must not be empty")
	}

	if config.Cache.Store != "file" && config.Cache.Store != "memory" {
		return fmt.Errorf("invalid cache store: %s (must be file or memory)", config.Cache.Store)
	}

	durations := map[string]string{
		"database query timeout":      config.Database.QueryTimeout,
		"database conn max lifetime":  config.Database.ConnMaxLifetime,
		"database conn max idle time": config.Database.ConnMaxIdleTime,
		"cache cleanup frequency":     config.Cache.CleanupFreq,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %s", name, value)
		}
	}

	if config.Database.MaxConnections <= 0 {
		return fmt.Errorf(
			"database max connections must be positive: %d",
			config.Database.MaxConnections,
		)
	}

	for environment, days := range config.Schema.CacheDays {
		if days < 0 {
			return fmt.Errorf("schema cache days for %s must not be negative: %d", environment, days)
		}
	}

	return nil
}

// CacheDays returns the schema cache lifetime for an environment.
// The second result is false when caching is disabled there.
func (c *Config) CacheDays(environment string) (int, bool) {
	days, ok := c.Schema.CacheDays[environment]
	if !ok || days <= 0 {
		return 0, false
	}

	return days, true
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv(envPrefix + "CONFIG"); configPath != "" {
		return ExpandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// getDotEnvPath returns the .env file consulted before environment parsing
func getDotEnvPath() string {
	if path := os.Getenv(envPrefix + "DOTENV"); path != "" {
		return ExpandPath(path)
	}

	return ".env"
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	if c.Database.Driver == "duckdb" || c.Database.Driver == "sqlite3" {
		c.Database.DSN = ExpandPath(c.Database.DSN)
	}

	c.Cache.Directory = ExpandPath(c.Cache.Directory)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/gem-support"
	}

	return filepath.Join(homeDir, ".config", "gem-support")
}
