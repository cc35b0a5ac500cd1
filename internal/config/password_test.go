package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPasswordConfig(t *testing.T) {
	tests := []struct {
		name       string
		bcryptCost string
		pepper     string
		wantCost   int
		wantErr    bool
	}{
		{name: "default cost", wantCost: 12},
		{name: "minimum cost", bcryptCost: "10", wantCost: 10},
		{name: "maximum cost", bcryptCost: "14", wantCost: 14},
		{name: "with pepper", bcryptCost: "12", pepper: "test-pepper", wantCost: 12},
		{name: "cost too low", bcryptCost: "9", wantErr: true},
		{name: "cost too high", bcryptCost: "15", wantErr: true},
		{name: "negative cost", bcryptCost: "-5", wantErr: true},
		{name: "float cost", bcryptCost: "12.5", wantErr: true},
		{name: "non-numeric cost", bcryptCost: "invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BCRYPT_COST", tt.bcryptCost)
			t.Setenv("PASSWORD_PEPPER", tt.pepper)

			config, err := NewPasswordConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCost, config.BcryptCost)
			assert.Equal(t, tt.pepper, config.Pepper)
		})
	}
}

func TestPasswordConfig_HashAndVerify(t *testing.T) {
	config := &PasswordConfig{BcryptCost: 10}

	hash, err := config.HashPassword("test-password-123")
	require.NoError(t, err)
	assert.NotEqual(t, "test-password-123", hash)

	assert.True(t, config.VerifyPassword("test-password-123", hash))
	assert.False(t, config.VerifyPassword("wrong-password", hash))
	assert.False(t, config.VerifyPassword("test-password-123", ""))

	again, err := config.HashPassword("test-password-123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "bcrypt salts each hash")
}

func TestPasswordConfig_Pepper(t *testing.T) {
	peppered := &PasswordConfig{BcryptCost: 10, Pepper: "pepper"}
	plain := &PasswordConfig{BcryptCost: 10}

	hash, err := peppered.HashPassword("secret-password")
	require.NoError(t, err)

	assert.True(t, peppered.VerifyPassword("secret-password", hash))
	assert.False(t, plain.VerifyPassword("secret-password", hash))
}
