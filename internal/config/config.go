// Package config loads and validates the application configuration. All
// defaults are resolved once at load time; the rest of the program only ever
// sees the fully populated struct.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrConfigCreated signals that no configuration file existed, so a default
// one was written. The caller should exit and instruct the operator to
// review the new file before re-running.
var ErrConfigCreated = errors.New("config: default configuration file created, review it and re-run")

type Config struct {
	Database  Database  `mapstructure:"database"`
	CSV       CSV       `mapstructure:"csv"`
	Logging   Logging   `mapstructure:"logging"`
	Monitor   Monitor   `mapstructure:"monitoring"`
	DataTypes DataTypes `mapstructure:"data_types"`
	Metrics   Metrics   `mapstructure:"metrics"`
}

type Database struct {
	// Driver selects the storage backend: mysql, postgres, sqlite, mssql.
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Charset  string `mapstructure:"charset"`
}

type CSV struct {
	Encoding         string `mapstructure:"encoding"`
	Separator        string `mapstructure:"separator"`
	DefaultTableName string `mapstructure:"default_table_name"`
	ScanDirectory    string `mapstructure:"scan_directory"`
	FilePattern      string `mapstructure:"file_pattern"`
	AutoFindLatest   bool   `mapstructure:"auto_find_latest"`
	SampleRows       int    `mapstructure:"sample_rows"`
}

type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
	File   string `mapstructure:"file"`   // empty disables the file sink
}

type Monitor struct {
	CheckInterval   time.Duration `mapstructure:"check_interval"`
	AutoCreateTable bool          `mapstructure:"auto_create_table"`
	BatchSize       int           `mapstructure:"batch_size"`
}

type DataTypes struct {
	VarcharLength    int `mapstructure:"varchar_length"`
	DecimalPrecision int `mapstructure:"decimal_precision"`
	DecimalScale     int `mapstructure:"decimal_scale"`
}

type Metrics struct {
	// Backend is "none" or "datadog".
	Backend       string        `mapstructure:"backend"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "csvsync")
	v.SetDefault("database.charset", "utf8mb4")

	v.SetDefault("csv.encoding", "utf-8")
	v.SetDefault("csv.separator", ",")
	v.SetDefault("csv.default_table_name", "imported_data")
	v.SetDefault("csv.scan_directory", "./data")
	v.SetDefault("csv.file_pattern", "*.csv")
	v.SetDefault("csv.auto_find_latest", true)
	v.SetDefault("csv.sample_rows", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "csvsync.log")

	v.SetDefault("monitoring.check_interval", "30s")
	v.SetDefault("monitoring.auto_create_table", true)
	v.SetDefault("monitoring.batch_size", 1000)

	v.SetDefault("data_types.varchar_length", 500)
	v.SetDefault("data_types.decimal_precision", 10)
	v.SetDefault("data_types.decimal_scale", 2)

	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.flush_interval", "60s")
}

// Load reads the YAML file at path. When the file does not exist, a default
// one is written and ErrConfigCreated is returned.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
		if err := writeDefault(path); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrConfigCreated, path)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// writeDefault materializes the defaults as a YAML file the operator can
// edit.
func writeDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory for %s: %w", path, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: write default %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite", "mssql":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}

	if c.Database.Driver != "sqlite" && c.Database.Database == "" {
		return errors.New("config: database.database must be set")
	}
	if c.CSV.DefaultTableName == "" {
		return errors.New("config: csv.default_table_name must be set")
	}
	if len([]rune(c.CSV.Separator)) > 1 {
		return fmt.Errorf("config: csv.separator must be a single character, got %q", c.CSV.Separator)
	}
	if c.Monitor.CheckInterval <= 0 {
		return errors.New("config: monitoring.check_interval must be positive")
	}
	if c.DataTypes.VarcharLength < 50 {
		return fmt.Errorf("config: data_types.varchar_length must be at least 50, got %d", c.DataTypes.VarcharLength)
	}
	switch c.Metrics.Backend {
	case "", "none", "datadog":
	default:
		return fmt.Errorf("config: unsupported metrics backend %q", c.Metrics.Backend)
	}
	return nil
}

// SeparatorRune returns the configured CSV separator; ',' when unset.
func (c *Config) SeparatorRune() rune {
	r := []rune(c.CSV.Separator)
	if len(r) == 0 {
		return ','
	}
	return r[0]
}

// DSN builds the driver-specific connection string.
func (c *Config) DSN() string {
	d := c.Database
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Database, d.Charset)
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Database)
	case "mssql":
		return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Database)
	case "sqlite":
		// database.database is the file path.
		return d.Database
	default:
		return ""
	}
}

// LogLevel normalizes the configured level name.
func (c *Config) LogLevel() string {
	return strings.ToLower(strings.TrimSpace(c.Logging.Level))
}
