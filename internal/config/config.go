package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environments recognised by Env.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// StorageConfig selects where slots live.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// RecurrenceConfig bounds weekly projections.
type RecurrenceConfig struct {
	MaxWeeks int `yaml:"max_weeks"`
}

// AuthConfig holds the admin Basic Auth credentials. An empty hash
// disables authentication.
type AuthConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig is the per-IP token bucket.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// NotifyConfig addresses recurrence commit summaries.
type NotifyConfig struct {
	From       string   `yaml:"from"`
	ReplyTo    string   `yaml:"reply_to"`
	Recipients []string `yaml:"recipients"`
}

// CalendarConfig names the ICS export.
type CalendarConfig struct {
	Name string `yaml:"name"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// Env is "development" or "production".
	Env string `yaml:"env"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Storage    StorageConfig    `yaml:"storage"`
	Recurrence RecurrenceConfig `yaml:"recurrence"`
	Auth       AuthConfig       `yaml:"auth"`
	CORS       CORSConfig       `yaml:"cors"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Notify     NotifyConfig     `yaml:"notify"`
	Calendar   CalendarConfig   `yaml:"calendar"`

	// Secrets come from the environment only and are never written back.
	ResendKey string `yaml:"-"`
	CSRFKey   string `yaml:"-"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing or invalid values with defaults so that
// partially filled files still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != EnvProduction {
		c.Env = EnvDevelopment
	}
	switch c.LogLevel = strings.ToLower(c.LogLevel); c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverMemory:
	default:
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "gymops.db"
	}
	if c.Recurrence.MaxWeeks <= 0 {
		c.Recurrence.MaxWeeks = 104
	}
	if c.Auth.Username == "" {
		c.Auth.Username = "admin"
	}
	if c.CORS.AllowedOrigins == nil {
		c.CORS.AllowedOrigins = []string{}
	}
	if c.RateLimit.PerSecond <= 0 {
		c.RateLimit.PerSecond = 10
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
	if c.Notify.From == "" {
		c.Notify.From = "gymops <noreply@localhost>"
	}
	if c.Notify.Recipients == nil {
		c.Notify.Recipients = []string{}
	}
	if c.Calendar.Name == "" {
		c.Calendar.Name = "Gym schedule"
	}
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// ApplyEnv overrides file values with GYMOPS_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Listen, "GYMOPS_ADDR")
	set(&c.Env, "GYMOPS_ENV")
	set(&c.LogLevel, "GYMOPS_LOG_LEVEL")
	set(&c.Storage.Path, "GYMOPS_DB")
	set(&c.Auth.PasswordHash, "GYMOPS_ADMIN_PASSWORD_HASH")
	set(&c.ResendKey, "GYMOPS_RESEND_KEY")
	set(&c.CSRFKey, "GYMOPS_CSRF_KEY")
	c.Normalize()
}

// Load loads configuration from the given YAML path. A missing file is
// created with defaults (0600) and the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically through a temp file and rename.
// POST: path holds cfg as YAML with 0600 permissions
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".gymops-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
