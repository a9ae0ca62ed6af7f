// Package config loads tool-level settings: an optional devenv.toml in
// the user config directory, overridden by environment variables, in turn
// overridden by CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/devenv-tools/devenv/internal/models"
)

// UseLocks policies for consuming lock files.
const (
	UseLocksAuto = "auto"
	UseLocksYes  = "yes"
	UseLocksNo   = "no"
)

// Settings holds the tool-level configuration.
type Settings struct {
	EnvManager string `toml:"env_manager"`
	UseLocks   string `toml:"use_locks"`
}

// DefaultSettings returns a Settings with default values.
func DefaultSettings() Settings {
	return Settings{
		EnvManager: "conda",
		UseLocks:   UseLocksAuto,
	}
}

// Load reads settings from a devenv.toml file. A missing file yields the
// defaults.
func Load(path string) (Settings, error) {
	cfg := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, &models.ParseError{File: path, Err: err}
	}

	// Apply defaults for missing values
	if cfg.EnvManager == "" {
		cfg.EnvManager = "conda"
	}
	if cfg.UseLocks == "" {
		cfg.UseLocks = UseLocksAuto
	}

	return cfg, cfg.validate()
}

// Resolve loads the user's settings and applies the DEVENV_ENV_MANAGER
// and DEVENV_USE_LOCKS environment overrides.
func Resolve() (Settings, error) {
	cfg, err := Load(defaultPath())
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("DEVENV_ENV_MANAGER"); v != "" {
		cfg.EnvManager = v
	}
	if v := os.Getenv("DEVENV_USE_LOCKS"); v != "" {
		cfg.UseLocks = v
	}
	return cfg, cfg.validate()
}

func (s Settings) validate() error {
	if s.EnvManager != "conda" && s.EnvManager != "mamba" {
		return &models.ConfigError{
			Msg:  fmt.Sprintf("unknown environment manager %q", s.EnvManager),
			Hint: "supported managers are conda and mamba",
		}
	}
	switch s.UseLocks {
	case UseLocksAuto, UseLocksYes, UseLocksNo:
		return nil
	}
	return &models.ConfigError{
		Msg:  fmt.Sprintf("invalid use_locks value %q", s.UseLocks),
		Hint: "allowed values are auto, yes and no",
	}
}

func defaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "devenv", "devenv.toml")
}
