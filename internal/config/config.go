// Package config loads the agent configuration from TOML files.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `koanf:"listen"`
	// StaticDir is the built SPA directory served at /.
	StaticDir string `koanf:"static_dir"`
	// PublicURL is the externally visible base URL, used in OG tags.
	PublicURL string `koanf:"public_url"`

	Backend     BackendConfig     `koanf:"backend"`
	Playback    PlaybackConfig    `koanf:"playback"`
	Entitlement EntitlementConfig `koanf:"entitlement"`
	Downloads   DownloadsConfig   `koanf:"downloads"`

	// Last.fm scrobbling (enables scrobbling when configured)
	Lastfm LastfmConfig `koanf:"lastfm"`
}

// BackendConfig points at the product REST backend.
type BackendConfig struct {
	URL string `koanf:"url"` // e.g. "https://api.example.com"
}

// PlaybackConfig holds the session recording policy.
type PlaybackConfig struct {
	MinRecordSeconds  int `koanf:"min_record_seconds"`  // sessions shorter than this are discarded (default: 10)
	StatsCacheSeconds int `koanf:"stats_cache_seconds"` // aggregate cache TTL (default: 30)
}

// EntitlementConfig holds the subscription gating policy.
type EntitlementConfig struct {
	Tier           string `koanf:"tier"`             // free, premium, premium_plus, enterprise (default: free)
	FreeDailyQuota int    `koanf:"free_daily_quota"` // plays per day on the free tier (default: 10, -1 = unlimited)
}

// DownloadsConfig holds the offline downloads settings.
type DownloadsConfig struct {
	Dir string `koanf:"dir"` // downloads directory (default: ~/.local/share/breakwater/downloads)
}

// LastfmConfig holds Last.fm scrobbling configuration.
type LastfmConfig struct {
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

func Load() (*Config, error) {
	return loadFrom(getConfigPaths())
}

// loadFrom merges the given TOML files in order (last wins) and applies
// defaults.
func loadFrom(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	cfg.Backend.URL = strings.TrimSuffix(cfg.Backend.URL, "/")
	cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/")
	if cfg.StaticDir != "" {
		cfg.StaticDir = expandPath(cfg.StaticDir)
	}
	if cfg.Downloads.Dir != "" {
		cfg.Downloads.Dir = expandPath(cfg.Downloads.Dir)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "dist"
	}
	if cfg.Playback.MinRecordSeconds <= 0 {
		cfg.Playback.MinRecordSeconds = 10
	}
	if cfg.Playback.StatsCacheSeconds <= 0 {
		cfg.Playback.StatsCacheSeconds = 30
	}
	if cfg.Entitlement.Tier == "" {
		cfg.Entitlement.Tier = "free"
	}
	switch {
	case cfg.Entitlement.FreeDailyQuota < 0:
		cfg.Entitlement.FreeDailyQuota = 0 // unlimited
	case cfg.Entitlement.FreeDailyQuota == 0:
		cfg.Entitlement.FreeDailyQuota = 10
	}
	if cfg.Downloads.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Downloads.Dir = filepath.Join(home, ".local", "share", "breakwater", "downloads")
		}
	}
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/breakwater/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "breakwater", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLastfmConfig returns true if Last.fm scrobbling is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}
