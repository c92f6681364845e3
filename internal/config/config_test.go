package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBase != defaultAPIBase {
		t.Fatalf("APIBase = %q", cfg.APIBase)
	}
	if cfg.RequestTimeout != defaultTimeoutSecs {
		t.Fatalf("RequestTimeout = %d", cfg.RequestTimeout)
	}
	if cfg.Timeout() != time.Duration(defaultTimeoutSecs)*time.Second {
		t.Fatalf("Timeout() = %s", cfg.Timeout())
	}
	if cfg.OAuthCallback != defaultOAuthCallback {
		t.Fatalf("OAuthCallback = %q", cfg.OAuthCallback)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
api_base = "https://shop.example.com"
data_dir = "/tmp/shopfront-test"
request_timeout_seconds = 30
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBase != "https://shop.example.com" {
		t.Fatalf("APIBase = %q", cfg.APIBase)
	}
	if cfg.DataDir != "/tmp/shopfront-test" {
		t.Fatalf("DataDir = %q", cfg.DataDir)
	}
	if cfg.RequestTimeout != 30 {
		t.Fatalf("RequestTimeout = %d", cfg.RequestTimeout)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_base = "https://file.example.com"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SHOPFRONT_API_BASE", "https://env.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBase != "https://env.example.com" {
		t.Fatalf("APIBase = %q, want env override", cfg.APIBase)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("api_base = ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load should reject malformed TOML")
	}
}

func TestNonPositiveTimeoutFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("request_timeout_seconds = -5"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RequestTimeout != defaultTimeoutSecs {
		t.Fatalf("RequestTimeout = %d, want default", cfg.RequestTimeout)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Config{DataDir: "/data/shopfront"}
	if got := cfg.StorePath(); got != filepath.Join("/data/shopfront", "shopfront.db") {
		t.Fatalf("StorePath = %q", got)
	}
	if got := cfg.CookiePath(); got != filepath.Join("/data/shopfront", "cookies.json") {
		t.Fatalf("CookiePath = %q", got)
	}
	if got := cfg.LogPath(); got != filepath.Join("/data/shopfront", "shopfront.log") {
		t.Fatalf("LogPath = %q", got)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := expandPath("~/x/config.toml")
	if err != nil {
		t.Fatalf("expandPath: %v", err)
	}
	if got != filepath.Join(home, "x", "config.toml") {
		t.Fatalf("expandPath = %q", got)
	}
}
