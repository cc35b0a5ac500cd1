package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{Models: map[ModelTier]string{TierLite: "fallback-model"}}
	assert.Equal(t, "fallback-model", config.GetModel(TierStandard))

	empty := &Config{Models: map[ModelTier]string{}}
	assert.Equal(t, "", empty.GetModel(TierLite))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	custom := config.WithModel(TierStandard, "custom-model")

	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "custom-model", custom.GetModel(TierStandard))
	assert.Equal(t, config.GetModel(TierLite), custom.GetModel(TierLite))
	assert.Equal(t, config.Temperature, custom.Temperature)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("LLM_MODEL_LITE", "tiny")
	t.Setenv("LLM_TEMPERATURE", "0.2")

	config := LoadConfig()
	assert.Equal(t, "tiny", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.InDelta(t, 0.2, config.Temperature, 0.0001)
}

func TestNewGeminiClient_MissingKey(t *testing.T) {
	_, err := NewGeminiClient(t.Context(), nil, "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
