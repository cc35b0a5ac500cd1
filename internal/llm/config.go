// Package llm wraps the generative model used for drafting member messages.
package llm

import (
	"os"
	"strconv"
)

// ModelTier selects a model by capability.
type ModelTier string

const (
	// TierLite is for short drafts: SMS, greetings.
	TierLite ModelTier = "lite"
	// TierStandard is for longer emails.
	TierStandard ModelTier = "standard"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider.
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the default Gemini configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
		Temperature: 0.7,
	}
}

// LoadConfig returns DefaultConfig overridden by LLM_MODEL_LITE,
// LLM_MODEL_STANDARD and LLM_TEMPERATURE.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	if m := os.Getenv("LLM_MODEL_LITE"); m != "" {
		cfg.Models[TierLite] = m
	}
	if m := os.Getenv("LLM_MODEL_STANDARD"); m != "" {
		cfg.Models[TierStandard] = m
	}
	if t := os.Getenv("LLM_TEMPERATURE"); t != "" {
		if v, err := strconv.ParseFloat(t, 32); err == nil && v >= 0 {
			cfg.Temperature = float32(v)
		}
	}
	return cfg
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// fall back to standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of the config with a specific model for a tier.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string, len(c.Models)+1),
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	out.Models[tier] = model
	return out
}
