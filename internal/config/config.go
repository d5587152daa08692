package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents application configuration
type Config struct {
	Owner    string         `mapstructure:"owner"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Holidays HolidaysConfig `mapstructure:"holidays"`
	Log      LogConfig      `mapstructure:"log"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`
}

// StorageConfig selects where owner state is persisted
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // "file", "sqlite" or "postgres"
	Path   string `mapstructure:"path"`   // Directory for the file driver
	DSN    string `mapstructure:"dsn"`    // Database DSN for sqlite/postgres
}

// HolidaysConfig represents the public holiday source
type HolidaysConfig struct {
	Source      string `mapstructure:"source"` // "builtin", "file", "database" or "isdayoff"
	File        string `mapstructure:"file"`   // Holiday table file, also the fallback for other sources
	APIURL      string `mapstructure:"api_url"`
	FallbackURL string `mapstructure:"fallback_url"` // xmlcalendar mirror for isdayoff
	CacheTTL    string `mapstructure:"cache_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DaemonConfig represents daemon mode configuration
type DaemonConfig struct {
	RefreshTime string `mapstructure:"refresh_time"` // Daily refresh time (HH:MM)
	Timezone    string `mapstructure:"timezone"`
}

// Storage drivers
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Holiday sources
const (
	SourceBuiltin  = "builtin"
	SourceFile     = "file"
	SourceDatabase = "database"
	SourceIsDayOff = "isdayoff"
)

// Default returns the configuration used when no config file is present
func Default() *Config {
	return &Config{
		Owner: "default",
		Storage: StorageConfig{
			Driver: DriverFile,
			Path:   "data",
		},
		Holidays: HolidaysConfig{
			Source:      SourceBuiltin,
			APIURL:      "https://isdayoff.ru",
			FallbackURL: "https://xmlcalendar.ru/data/{country}/{year}/calendar.json",
			CacheTTL:    "24h",
		},
		Log: LogConfig{
			Level: "info",
		},
		Daemon: DaemonConfig{
			RefreshTime: "03:00",
			Timezone:    "UTC",
		},
	}
}

// Load loads configuration from file. A missing config file is not an error
// when no explicit path was given; defaults apply instead.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.dayplanner")
		v.AddConfigPath("/etc/dayplanner")
	}

	// Read environment variables, e.g. DAYPLANNER_STORAGE_DSN
	v.SetEnvPrefix("dayplanner")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.ExpandEnvVars()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("owner", d.Owner)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("holidays.source", d.Holidays.Source)
	v.SetDefault("holidays.file", d.Holidays.File)
	v.SetDefault("holidays.api_url", d.Holidays.APIURL)
	v.SetDefault("holidays.fallback_url", d.Holidays.FallbackURL)
	v.SetDefault("holidays.cache_ttl", d.Holidays.CacheTTL)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("daemon.refresh_time", d.Daemon.RefreshTime)
	v.SetDefault("daemon.timezone", d.Daemon.Timezone)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}

	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for file driver")
		}
	case DriverSQLite, DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for %s driver", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage.driver must be 'file', 'sqlite' or 'postgres', got '%s'", c.Storage.Driver)
	}

	switch c.Holidays.Source {
	case SourceBuiltin:
	case SourceFile:
		if c.Holidays.File == "" {
			return fmt.Errorf("holidays.file is required for file source")
		}
	case SourceDatabase:
		if c.Storage.Driver == DriverFile {
			return fmt.Errorf("holidays.source 'database' needs storage.driver sqlite or postgres")
		}
	case SourceIsDayOff:
		if c.Holidays.APIURL == "" {
			return fmt.Errorf("holidays.api_url is required for isdayoff source")
		}
	default:
		return fmt.Errorf("holidays.source must be 'builtin', 'file', 'database' or 'isdayoff', got '%s'", c.Holidays.Source)
	}

	if c.Holidays.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Holidays.CacheTTL); err != nil {
			return fmt.Errorf("holidays.cache_ttl: %w", err)
		}
	}

	if _, _, err := parseClock(c.Daemon.RefreshTime); c.Daemon.RefreshTime != "" && err != nil {
		return fmt.Errorf("daemon.refresh_time: %w", err)
	}
	if c.Daemon.Timezone != "" {
		if _, err := time.LoadLocation(c.Daemon.Timezone); err != nil {
			return fmt.Errorf("daemon.timezone: %w", err)
		}
	}

	return nil
}

// GetCacheTTL returns holiday cache TTL duration
func (c *HolidaysConfig) GetCacheTTL() time.Duration {
	if c.CacheTTL == "" {
		return 24 * time.Hour
	}
	duration, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 24 * time.Hour
	}
	return duration
}

// GetRefreshTime returns the configured daily refresh time.
// Returns hour and minute (0-23, 0-59). Default: 03:00
func (c *DaemonConfig) GetRefreshTime() (hour, minute int) {
	if c.RefreshTime == "" {
		return 3, 0
	}
	h, m, err := parseClock(c.RefreshTime)
	if err != nil {
		return 3, 0
	}
	return h, m
}

// GetLocation returns the daemon timezone, UTC when unset or unknown
func (c *DaemonConfig) GetLocation() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseClock(value string) (hour, minute int, err error) {
	var h, m int
	if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
		return 0, 0, fmt.Errorf("%q is not HH:MM", value)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%q is out of range", value)
	}
	return h, m, nil
}

// ExpandEnvVars expands environment variables in config strings
func (c *Config) ExpandEnvVars() {
	c.Storage.DSN = os.ExpandEnv(c.Storage.DSN)
	c.Storage.Path = os.ExpandEnv(c.Storage.Path)
	c.Holidays.File = os.ExpandEnv(c.Holidays.File)
	c.Log.File = os.ExpandEnv(c.Log.File)
}
