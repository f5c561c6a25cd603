// ABOUTME: Configuration loader for the collabfs client
// ABOUTME: Layers defaults, config.toml, .env and environment variables

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL       = "http://localhost:8000"
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultStorageLimit = int64(15) * 1024 * 1024 * 1024 // 15 GiB

	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	// Backend
	APIURL      string
	AuthAPIKey  string // sent as x-api-key on /auth endpoints
	GroupAPIKey string // sent as x-api-key on /group endpoints
	HTTPTimeout time.Duration
	AllProxy    string // ssh+socks5://user@host:port?private-key=/path/to/key

	// Local state
	ConfigDir      string
	SessionBackend string // file, sqlite (default: file)

	// Display
	StorageLimitBytes int64

	// Logging
	LogLevel  string
	LogFormat string
}

// fileConfig mirrors config.toml. Every field is optional.
type fileConfig struct {
	APIURL         string `toml:"api_url"`
	AuthAPIKey     string `toml:"auth_api_key"`
	GroupAPIKey    string `toml:"group_api_key"`
	HTTPTimeout    string `toml:"http_timeout"`
	AllProxy       string `toml:"all_proxy"`
	SessionBackend string `toml:"session_backend"`
	StorageLimitGB int    `toml:"storage_limit_gb"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
}

// Load builds the configuration. Priority, lowest first: defaults,
// $COLLABFS_CONFIG_DIR/config.toml, .env in the working directory,
// process environment. Flags are applied by the caller, which should
// call Validate again afterwards.
func Load() (*Config, error) {
	return LoadDir("")
}

// LoadDir is Load with an explicit config directory, as given by --config-dir.
// An empty dir falls back to COLLABFS_CONFIG_DIR and then the XDG default.
func LoadDir(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		APIURL:            DefaultAPIURL,
		HTTPTimeout:       DefaultHTTPTimeout,
		ConfigDir:         dir,
		SessionBackend:    BackendFile,
		StorageLimitBytes: DefaultStorageLimit,
		LogLevel:          "info",
		LogFormat:         "text",
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = getEnv("COLLABFS_CONFIG_DIR", DefaultConfigDir())
	}

	if err := cfg.loadFile(filepath.Join(cfg.ConfigDir, "config.toml")); err != nil {
		return nil, err
	}

	cfg.APIURL = getEnv("COLLABFS_API_URL", cfg.APIURL)
	cfg.AuthAPIKey = getEnv("COLLABFS_AUTH_API_KEY", cfg.AuthAPIKey)
	cfg.GroupAPIKey = getEnv("COLLABFS_GROUP_API_KEY", cfg.GroupAPIKey)
	cfg.HTTPTimeout = getEnvDuration("COLLABFS_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.AllProxy = getEnv("COLLABFS_ALL_PROXY", cfg.AllProxy)
	cfg.SessionBackend = getEnv("COLLABFS_SESSION_BACKEND", cfg.SessionBackend)
	cfg.StorageLimitBytes = getEnvInt64("COLLABFS_STORAGE_LIMIT_BYTES", cfg.StorageLimitBytes)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes URLs and rejects unusable values
func (c *Config) Validate() error {
	c.APIURL = strings.TrimRight(ensureScheme(c.APIURL), "/")
	if c.APIURL == "" {
		return fmt.Errorf("api url is required")
	}

	c.SessionBackend = strings.ToLower(c.SessionBackend)
	switch c.SessionBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown session backend %q (want %s or %s)", c.SessionBackend, BackendFile, BackendSQLite)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.StorageLimitBytes <= 0 {
		return fmt.Errorf("storage limit must be positive, got %d", c.StorageLimitBytes)
	}
	if c.ConfigDir == "" {
		return fmt.Errorf("config directory could not be determined; set COLLABFS_CONFIG_DIR")
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if fc.APIURL != "" {
		c.APIURL = fc.APIURL
	}
	if fc.AuthAPIKey != "" {
		c.AuthAPIKey = fc.AuthAPIKey
	}
	if fc.GroupAPIKey != "" {
		c.GroupAPIKey = fc.GroupAPIKey
	}
	if fc.HTTPTimeout != "" {
		d, err := time.ParseDuration(fc.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("invalid http_timeout in %s: %w", path, err)
		}
		c.HTTPTimeout = d
	}
	if fc.AllProxy != "" {
		c.AllProxy = fc.AllProxy
	}
	if fc.SessionBackend != "" {
		c.SessionBackend = fc.SessionBackend
	}
	if fc.StorageLimitGB > 0 {
		c.StorageLimitBytes = int64(fc.StorageLimitGB) * 1024 * 1024 * 1024
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	return nil
}

// DefaultConfigDir returns the default config directory following XDG spec
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "collabfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "collabfs")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// ensureScheme adds http:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "http://" + url
	}
	return url
}
