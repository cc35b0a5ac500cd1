// Package config loads server settings, credentials configuration and the
// pipeline seed used to bootstrap a fresh store.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server settings. Values come from an optional YAML file and
// are overridden by environment variables.
type Config struct {
	Port           int           `yaml:"port"`
	DatabaseURL    string        `yaml:"database_url"`
	GeminiAPIKey   string        `yaml:"gemini_api_key"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	SeedFile       string        `yaml:"seed_file"`
	SendDelay      time.Duration `yaml:"send_delay"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	Verbose        bool          `yaml:"verbose"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"*"},
		SendDelay:      500 * time.Millisecond,
		FetchTimeout:   30 * time.Second,
	}
}

// LoadConfig reads settings from a YAML file on top of Defaults. An empty
// path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %v", err)
		}
		c.Port = port
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("SEED_FILE"); v != "" {
		c.SeedFile = v
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: port must be between 1 and 65535, got %d", c.Port)
	}
	if c.SendDelay < 0 {
		return fmt.Errorf("config error: send_delay must be non-negative")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("config error: fetch_timeout must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
