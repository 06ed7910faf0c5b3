// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/cl-postal-codes/internal/logging"
	"github.com/JakeFAU/cl-postal-codes/internal/scraper"
	"github.com/JakeFAU/cl-postal-codes/internal/telemetry"
)

// Backend names accepted by the storage, db and pubsub sections.
const (
	BackendMemory   = "memory"
	BackendLocal    = "local"
	BackendGCS      = "gcs"
	BackendPostgres = "postgres"
	BackendPubSub   = "pubsub"
	BackendNone     = "none"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Auth      AuthConfig       `mapstructure:"auth"`
	Browser   BrowserConfig    `mapstructure:"browser"`
	Scraper   scraper.Config   `mapstructure:"scraper"`
	Storage   StorageConfig    `mapstructure:"storage"`
	DB        DBConfig         `mapstructure:"db"`
	PubSub    PubSubConfig     `mapstructure:"pubsub"`
	Logging   logging.Config   `mapstructure:"logging"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// BrowserConfig configures the shared headless browser.
type BrowserConfig struct {
	ExecPath        string        `mapstructure:"exec_path"`
	Headless        bool          `mapstructure:"headless"`
	UserAgent       string        `mapstructure:"user_agent"`
	LaunchTimeout   time.Duration `mapstructure:"launch_timeout"`
	WindowWidth     int           `mapstructure:"window_width"`
	WindowHeight    int           `mapstructure:"window_height"`
	WaitInterval    time.Duration `mapstructure:"wait_interval"`
	MaxWaitAttempts int           `mapstructure:"max_wait_attempts"`
}

// StorageConfig selects where diagnostic screenshots go.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
	// CacheControl is set on uploaded objects by backends that support it.
	CacheControl string `mapstructure:"cache_control"`
	// MemoryMaxObjects bounds the memory backend; the oldest objects are evicted.
	MemoryMaxObjects int `mapstructure:"memory_max_objects"`
}

// DBConfig controls where resolved addresses are persisted.
type DBConfig struct {
	Backend         string        `mapstructure:"backend"`
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	// SeedCommunes loads the built-in commune catalogue at startup.
	SeedCommunes bool `mapstructure:"seed_communes"`
}

// PubSubConfig holds metadata for resolution notifications.
type PubSubConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Search paths for config.yaml when no explicit file is given.
var searchPaths = []string{".", "/etc/cl-postal-codes/", "$HOME/.cl-postal-codes"}

// Load builds a Config from disk/environment. Environment variables use the
// POSTAL_ prefix with dots replaced by underscores (POSTAL_DB_DSN). With an
// empty path, a config.yaml found on the search paths is used if present.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POSTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range searchPaths {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 90*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")

	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.launch_timeout", 30*time.Second)
	v.SetDefault("browser.window_width", 1366)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.wait_interval", 300*time.Millisecond)
	v.SetDefault("browser.max_wait_attempts", 10)

	sc := scraper.DefaultConfig()
	v.SetDefault("scraper.url", sc.URL)
	v.SetDefault("scraper.selectors.commune", sc.Selectors.Commune)
	v.SetDefault("scraper.selectors.street", sc.Selectors.Street)
	v.SetDefault("scraper.selectors.number", sc.Selectors.Number)
	v.SetDefault("scraper.selectors.blur_label", sc.Selectors.BlurLabel)
	v.SetDefault("scraper.selectors.submit", sc.Selectors.Submit)
	v.SetDefault("scraper.selectors.result", sc.Selectors.Result)
	v.SetDefault("scraper.navigation_timeout", sc.NavigationTimeout)
	v.SetDefault("scraper.action_timeout", sc.ActionTimeout)
	v.SetDefault("scraper.result_timeout", sc.ResultTimeout)
	v.SetDefault("scraper.diagnostics_timeout", sc.DiagnosticsTimeout)
	v.SetDefault("scraper.autocomplete.max_attempts", sc.Autocomplete.MaxAttempts)
	v.SetDefault("scraper.autocomplete.interval", sc.Autocomplete.Interval)
	v.SetDefault("scraper.enable_poll.max_attempts", sc.EnablePoll.MaxAttempts)
	v.SetDefault("scraper.enable_poll.interval", sc.EnablePoll.Interval)
	v.SetDefault("scraper.settle.after_ready", sc.Settle.AfterReady)
	v.SetDefault("scraper.settle.after_focus", sc.Settle.AfterFocus)
	v.SetDefault("scraper.settle.after_type", sc.Settle.AfterType)
	v.SetDefault("scraper.settle.after_arrow", sc.Settle.AfterArrow)
	v.SetDefault("scraper.settle.after_confirm", sc.Settle.AfterConfirm)
	v.SetDefault("scraper.settle.after_number", sc.Settle.AfterNumber)
	v.SetDefault("scraper.settle.after_blur", sc.Settle.AfterBlur)
	v.SetDefault("scraper.settle.after_submit", sc.Settle.AfterSubmit)
	v.SetDefault("scraper.max_concurrent", sc.MaxConcurrent)
	v.SetDefault("scraper.rate_limit_per_second", sc.RateLimitPerSecond)

	v.SetDefault("storage.backend", BackendNone)
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "diagnostics")
	v.SetDefault("storage.cache_control", "")
	v.SetDefault("storage.memory_max_objects", 50)

	v.SetDefault("db.backend", BackendMemory)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "postal_addresses")
	v.SetDefault("db.max_conns", 0)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime", time.Duration(0))
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.seed_communes", true)

	v.SetDefault("pubsub.backend", BackendNone)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "postal_code.resolved")

	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")

	v.SetDefault("telemetry.service_name", "cl-postal-codes")
	v.SetDefault("telemetry.version", "")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Browser.MaxWaitAttempts <= 0 {
		return fmt.Errorf("browser.max_wait_attempts must be > 0")
	}
	if c.Browser.WaitInterval <= 0 {
		return fmt.Errorf("browser.wait_interval must be > 0")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}
	if err := c.Scraper.Validate(); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case BackendNone:
	case BackendMemory:
		if c.Storage.MemoryMaxObjects <= 0 {
			return fmt.Errorf("storage.memory_max_objects must be > 0 for the memory backend")
		}
	case BackendLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required for the local backend")
		}
	case BackendGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}

	switch c.DB.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("db.backend %q is not supported", c.DB.Backend)
	}

	switch c.PubSub.Backend {
	case BackendNone, BackendMemory:
	case BackendPubSub:
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name are required for the pubsub backend")
		}
	default:
		return fmt.Errorf("pubsub.backend %q is not supported", c.PubSub.Backend)
	}
	return nil
}
