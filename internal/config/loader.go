package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load itself.
const (
	envPrefix     = "ACE_"
	envConfigPath = "ACE_CONFIG"
	envDotenvPath = "ACE_DOTENV"
	defaultDotenv = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. YAML file if ACE_CONFIG is set
//  3. env (prefix ACE_), after loading a .env file when one exists
//
// Nested keys use a double underscore: ACE_STORE__DRIVER -> store.driver.
func Load(_ context.Context) (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// Control variables are not settings.
	k.Delete("config")
	k.Delete("dotenv")

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	// A configured year replaces the default weeks instead of merging into them.
	if k.Exists("calendar") {
		for year := range k.Cut("calendar").Raw() {
			var weeks []Week
			if err := k.UnmarshalWithConf("calendar."+year, &weeks, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
				return nil, fmt.Errorf("%w: calendar %s: %w", ErrLoadConfig, year, err)
			}
			cfg.Calendar[year] = weeks
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotenv sets variables from a .env file without overriding the real
// environment. A missing file is not an error.
func loadDotenv() error {
	path := os.Getenv(envDotenvPath)
	if path == "" {
		path = defaultDotenv
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}
