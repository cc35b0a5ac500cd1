package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// JWTConfig holds configuration for access and refresh token signing.
type JWTConfig struct {
	Secret                 string
	ExpirationHours        int
	RefreshExpirationHours int
}

// NewJWTConfig reads JWT_SECRET (required), JWT_EXPIRATION_HOURS (default 24)
// and JWT_REFRESH_EXPIRATION_HOURS (default 168).
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	access, err := envInt("JWT_EXPIRATION_HOURS", 24)
	if err != nil {
		return nil, err
	}
	refresh, err := envInt("JWT_REFRESH_EXPIRATION_HOURS", 24*7)
	if err != nil {
		return nil, err
	}

	config := &JWTConfig{
		Secret:                 secret,
		ExpirationHours:        access,
		RefreshExpirationHours: refresh,
	}
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

// AccessTTL is the lifetime of an access token.
func (c *JWTConfig) AccessTTL() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// RefreshTTL is the lifetime of a refresh token.
func (c *JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshExpirationHours) * time.Hour
}

func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	if c.RefreshExpirationHours < c.ExpirationHours {
		return fmt.Errorf("JWT_REFRESH_EXPIRATION_HOURS (%d) must not be shorter than JWT_EXPIRATION_HOURS (%d)",
			c.RefreshExpirationHours, c.ExpirationHours)
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return v, nil
}
