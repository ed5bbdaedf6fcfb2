// Package config loads promptroute settings: a TOML file in the XDG
// config dir for preferences, plus .env / environment variables for
// credentials and endpoints.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all promptroute configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Pricing    PricingConfig    `toml:"pricing"`
	Classifier ClassifierConfig `toml:"classifier"`
	Completion CompletionConfig `toml:"completion"`
	Serve      ServeConfig      `toml:"serve"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultModel string `toml:"default_model"`
	HistoryCap   int    `toml:"history_cap"`
	DataDir      string `toml:"data_dir,omitempty"`
}

// PricingConfig holds pricing table settings.
type PricingConfig struct {
	ConfigPath  string `toml:"config_path,omitempty"`
	WatchConfig bool   `toml:"watch_config"`
}

// ClassifierConfig overrides the routing keyword signals.
type ClassifierConfig struct {
	DatabaseKeywords []string `toml:"database_keywords,omitempty"`
	DocumentKeywords []string `toml:"document_keywords,omitempty"`
}

// CompletionConfig holds completion backend settings. The API key itself
// comes from the environment, never from this file.
type CompletionConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
}

// ServeConfig holds HTTP daemon settings.
type ServeConfig struct {
	Addr string `toml:"addr,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultModel: "gpt-3.5-turbo",
			HistoryCap:   20,
		},
		Pricing: PricingConfig{
			WatchConfig: true,
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:8689",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "promptroute")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "promptroute")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir resolves the data directory (transcript db, default pricing
// config location).
func (c Config) DataDir() string {
	if c.General.DataDir != "" {
		return c.General.DataDir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "promptroute")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "promptroute")
}

// PricingPath resolves the pricing config file location.
func (c Config) PricingPath() string {
	if c.Pricing.ConfigPath != "" {
		return c.Pricing.ConfigPath
	}
	return filepath.Join(c.DataDir(), "pricing.json")
}

// TranscriptPath resolves the transcript database location.
func (c Config) TranscriptPath() string {
	return filepath.Join(c.DataDir(), "transcripts.db")
}

// Load reads .env (best effort) and the config file, returning defaults
// if the file doesn't exist.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.General.HistoryCap <= 0 {
		cfg.General.HistoryCap = 20
	}
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// APIKey returns the completion API key from the environment. godotenv
// has already folded .env into the environment by the time this runs.
func APIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
