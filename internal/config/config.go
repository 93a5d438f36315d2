// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package config loads ~/.cfgport/config.yaml and applies environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/monadic/cfgport/pkg/history"
	"github.com/monadic/cfgport/pkg/storage"
)

// Environment variables read by Load.
const (
	EnvConfig = "CFGPORT_CONFIG"
	EnvURL    = "CFGPORT_URL"
	EnvPrefix = "CFGPORT_PREFIX"
	EnvToken  = "CFGPORT_TOKEN"
	EnvLocale = "CFGPORT_LOCALE"
)

// Config is the whole configuration file.
type Config struct {
	Portal  Portal         `yaml:"portal"`
	Locale  string         `yaml:"locale"`
	Output  storage.Config `yaml:"output"`
	History history.Config `yaml:"history"`
	Keyring Keyring        `yaml:"keyring"`
}

// Portal locates the configuration portal.
type Portal struct {
	URL     string        `yaml:"url"`
	Prefix  string        `yaml:"prefix"`
	Timeout time.Duration `yaml:"timeout"`
	// Token comes from CFGPORT_TOKEN only; saved tokens live in the keyring.
	Token string `yaml:"-"`
}

// Keyring selects where portal tokens are saved.
type Keyring struct {
	// Backend is a 99designs/keyring backend name, e.g. "keychain",
	// "secret-service", "wincred" or "file". Empty picks the OS default.
	Backend string `yaml:"backend"`
	FileDir string `yaml:"file_dir"`
}

// Dir returns ~/.cfgport.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cfgport"
	}
	return filepath.Join(home, ".cfgport")
}

// DefaultPath returns $CFGPORT_CONFIG or ~/.cfgport/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Portal: Portal{
			URL:     "http://localhost:8070",
			Timeout: 30 * time.Second,
		},
		Output: storage.DefaultConfig(),
		History: history.Config{
			Driver: "sqlite",
			Path:   filepath.Join(Dir(), "history.db"),
		},
	}
}

// Load reads path (DefaultPath when empty) over the defaults and then
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvURL); v != "" {
		c.Portal.URL = v
	}
	if v := os.Getenv(EnvPrefix); v != "" {
		c.Portal.Prefix = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Portal.Token = v
	}
	if v := os.Getenv(EnvLocale); v != "" {
		c.Locale = v
	}
}

// Save writes c to path, creating the directory.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
