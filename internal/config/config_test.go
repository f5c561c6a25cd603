// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, TOML file, .env and environment precedence

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// withCleanEnv blanks every variable Load reads and points the config dir
// and working directory at fresh temp dirs.
func withCleanEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"COLLABFS_API_URL", "COLLABFS_AUTH_API_KEY", "COLLABFS_GROUP_API_KEY",
		"COLLABFS_HTTP_TIMEOUT", "COLLABFS_ALL_PROXY", "COLLABFS_SESSION_BACKEND",
		"COLLABFS_STORAGE_LIMIT_BYTES", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Setenv("COLLABFS_CONFIG_DIR", dir)
	t.Chdir(t.TempDir())
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := withCleanEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("Expected default API URL %s, got %s", DefaultAPIURL, cfg.APIURL)
	}
	if cfg.SessionBackend != BackendFile {
		t.Errorf("Expected file session backend, got %s", cfg.SessionBackend)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.StorageLimitBytes != 15*1024*1024*1024 {
		t.Errorf("Expected 15 GiB storage limit, got %d", cfg.StorageLimitBytes)
	}
	if cfg.ConfigDir != dir {
		t.Errorf("Expected config dir %s, got %s", dir, cfg.ConfigDir)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	withCleanEnv(t)
	t.Setenv("COLLABFS_API_URL", "api.collabfs.test/")
	t.Setenv("COLLABFS_AUTH_API_KEY", "auth-key")
	t.Setenv("COLLABFS_GROUP_API_KEY", "group-key")
	t.Setenv("COLLABFS_SESSION_BACKEND", "SQLite")
	t.Setenv("COLLABFS_HTTP_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.APIURL != "http://api.collabfs.test" {
		t.Errorf("Expected scheme added and trailing slash trimmed, got %s", cfg.APIURL)
	}
	if cfg.AuthAPIKey != "auth-key" || cfg.GroupAPIKey != "group-key" {
		t.Errorf("Expected API keys from env, got %q/%q", cfg.AuthAPIKey, cfg.GroupAPIKey)
	}
	if cfg.SessionBackend != BackendSQLite {
		t.Errorf("Expected sqlite backend, got %s", cfg.SessionBackend)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %s", cfg.HTTPTimeout)
	}
}

func TestLoad_TOMLFileOverriddenByEnv(t *testing.T) {
	dir := withCleanEnv(t)
	content := `
api_url = "https://file.collabfs.test"
auth_api_key = "file-auth"
http_timeout = "10s"
storage_limit_gb = 20
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COLLABFS_AUTH_API_KEY", "env-auth")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.APIURL != "https://file.collabfs.test" {
		t.Errorf("Expected API URL from file, got %s", cfg.APIURL)
	}
	if cfg.AuthAPIKey != "env-auth" {
		t.Errorf("Expected env to override file, got %s", cfg.AuthAPIKey)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("Expected 10s timeout from file, got %s", cfg.HTTPTimeout)
	}
	if cfg.StorageLimitBytes != 20*1024*1024*1024 {
		t.Errorf("Expected 20 GiB from file, got %d", cfg.StorageLimitBytes)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := withCleanEnv(t)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("api_url = "), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("Expected error for malformed config.toml, got nil")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	withCleanEnv(t)
	os.Unsetenv("COLLABFS_GROUP_API_KEY")
	if err := os.WriteFile(".env", []byte("COLLABFS_GROUP_API_KEY=dotenv-group\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("COLLABFS_GROUP_API_KEY") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.GroupAPIKey != "dotenv-group" {
		t.Errorf("Expected group key from .env, got %q", cfg.GroupAPIKey)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown backend", Config{APIURL: "http://x", ConfigDir: "/tmp", SessionBackend: "redis", HTTPTimeout: time.Second, StorageLimitBytes: 1}},
		{"zero timeout", Config{APIURL: "http://x", ConfigDir: "/tmp", SessionBackend: BackendFile, StorageLimitBytes: 1}},
		{"zero storage limit", Config{APIURL: "http://x", ConfigDir: "/tmp", SessionBackend: BackendFile, HTTPTimeout: time.Second}},
		{"empty url", Config{ConfigDir: "/tmp", SessionBackend: BackendFile, HTTPTimeout: time.Second, StorageLimitBytes: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := DefaultConfigDir(); got != filepath.Join("/xdg", "collabfs") {
		t.Errorf("Expected /xdg/collabfs, got %s", got)
	}
}

func TestLoadDir_OverridesEnvDir(t *testing.T) {
	withCleanEnv(t)
	flagDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(flagDir, "config.toml"), []byte(`api_url = "http://flag-dir:9000"`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadDir(flagDir)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.ConfigDir != flagDir {
		t.Errorf("Expected config dir %s, got %s", flagDir, cfg.ConfigDir)
	}
	if cfg.APIURL != "http://flag-dir:9000" {
		t.Errorf("Expected API URL from flag dir config, got %s", cfg.APIURL)
	}
}
