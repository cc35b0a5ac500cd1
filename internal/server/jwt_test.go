package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathan/pathway-tracker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

func setupTestJWTService(_ *testing.T, expirationHours int) *JWTService {
	cfg := &config.JWTConfig{
		Secret:                 testSecret,
		ExpirationHours:        expirationHours,
		RefreshExpirationHours: expirationHours * 7,
	}
	return NewJWTService(cfg)
}

func TestJWTService_GenerateToken(t *testing.T) {
	service := setupTestJWTService(t, 24)

	token, err := service.GenerateToken("u-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	assert.Len(t, parts, 3, "JWT should have 3 parts separated by dots")

	claims, err := service.ValidateToken(token, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_GenerateTokenPair(t *testing.T) {
	service := setupTestJWTService(t, 2)
	now := time.Date(2024, 9, 15, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	pair, err := service.GenerateTokenPair("u-1")
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	refresh, err := service.ValidateToken(pair.Refresh, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshClaims.ID, refresh.ID)
	assert.Equal(t, now.Add(14*time.Hour).Unix(), refresh.ExpiresAt.Unix())

	access, err := service.ValidateToken(pair.Access, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, now.Add(2*time.Hour).Unix(), access.ExpiresAt.Unix())
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestJWTService_ValidateToken_WrongType(t *testing.T) {
	service := setupTestJWTService(t, 24)
	pair, err := service.GenerateTokenPair("u-1")
	require.NoError(t, err)

	_, err = service.ValidateToken(pair.Refresh, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = service.ValidateToken(pair.Access, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = service.AsTokenValidator().ValidateToken(pair.Refresh)
	assert.Error(t, err)
}

func TestJWTService_ValidateToken_Expired(t *testing.T) {
	service := setupTestJWTService(t, 1)
	issued := time.Now().Add(-3 * time.Hour)
	service.now = func() time.Time { return issued }
	token, err := service.GenerateToken("u-1")
	require.NoError(t, err)

	service.now = time.Now
	_, err = service.ValidateToken(token, TokenTypeAccess)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestJWTService_ValidateToken_Rejects(t *testing.T) {
	service := setupTestJWTService(t, 24)
	token, err := service.GenerateToken("u-1")
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	other := NewJWTService(&config.JWTConfig{Secret: "another-secret", ExpirationHours: 24, RefreshExpirationHours: 24})
	_, err = other.ValidateToken(token, TokenTypeAccess)
	assert.Error(t, err, "signature from a different secret")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"tampered", parts[0] + "." + parts[1] + "x." + parts[2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateToken(tt.token, TokenTypeAccess)
			assert.Error(t, err)
		})
	}
}

func TestJWTService_ValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	service := setupTestJWTService(t, 24)
	claims := &Claims{
		UserID:    "u-1",
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = service.ValidateToken(token, TokenTypeAccess)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = service.ValidateToken(none, TokenTypeAccess)
	assert.Error(t, err)
}
