package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the fields Shopfront needs to reach the storefront API
// and to place its local state. Values come from the TOML config file, then
// SHOPFRONT_* environment variables override whatever the file set.
type Config struct {
	APIBase        string `toml:"api_base" envconfig:"API_BASE"`
	DataDir        string `toml:"data_dir" envconfig:"DATA_DIR"`
	OAuthCallback  string `toml:"oauth_callback" envconfig:"OAUTH_CALLBACK"`
	RequestTimeout int    `toml:"request_timeout_seconds" envconfig:"REQUEST_TIMEOUT_SECONDS"`
}

const (
	defaultConfigPath    = "~/.config/shopfront/config.toml"
	defaultDataDir       = "~/.local/share/shopfront"
	defaultAPIBase       = "http://127.0.0.1:8000"
	defaultOAuthCallback = "127.0.0.1:8766"
	defaultTimeoutSecs   = 10
	envPrefix            = "SHOPFRONT"
)

// Load locates and parses the config, falling back to defaults when the
// file is missing, then applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIBase:        defaultAPIBase,
		DataDir:        defaultDataDir,
		OAuthCallback:  defaultOAuthCallback,
		RequestTimeout: defaultTimeoutSecs,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
	} else {
		defer file.Close()
		raw, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("apply env overrides: %w", err)
	}

	cfg.APIBase = strings.TrimSpace(cfg.APIBase)
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	cfg.DataDir = mustExpand(cfg.DataDir)
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeoutSecs
	}

	return cfg, nil
}

// Timeout returns the request timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// StorePath returns the slot database location.
func (c Config) StorePath() string {
	return filepath.Join(c.DataDir, "shopfront.db")
}

// CookiePath returns the persisted cookie jar location.
func (c Config) CookiePath() string {
	return filepath.Join(c.DataDir, "cookies.json")
}

// LogPath returns the client log file location.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "shopfront.log")
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
