package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/config"
	"github.com/jonathan/pathway-tracker/internal/server/middleware"
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrWrongTokenType is returned when a refresh token is presented as an
// access token or the other way round.
var ErrWrongTokenType = errors.New("wrong token type")

// Claims represents JWT claims with user ID.
type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// GetUserID returns the user ID from the claims.
// This implements the middleware.UserIDGetter interface.
func (c *Claims) GetUserID() string {
	return c.UserID
}

// AsTokenValidator returns a middleware.TokenValidator that accepts access tokens only.
func (s *JWTService) AsTokenValidator() middleware.TokenValidator {
	return &jwtServiceValidator{service: s}
}

type jwtServiceValidator struct {
	service *JWTService
}

func (v *jwtServiceValidator) ValidateToken(tokenString string) (middleware.UserIDGetter, error) {
	claims, err := v.service.ValidateToken(tokenString, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// JWTService provides JWT token generation and validation functionality.
type JWTService struct {
	config *config.JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given configuration.
func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{
		config: cfg,
		now:    time.Now,
	}
}

// TokenPair is a freshly issued access and refresh token.
type TokenPair struct {
	Access  string
	Refresh string
	// RefreshClaims identifies the refresh token for later revocation.
	RefreshClaims *Claims
}

// GenerateTokenPair issues an access token and a refresh token for userID.
func (s *JWTService) GenerateTokenPair(userID string) (*TokenPair, error) {
	access, _, err := s.generate(userID, TokenTypeAccess, s.config.AccessTTL())
	if err != nil {
		return nil, err
	}
	refresh, claims, err := s.generate(userID, TokenTypeRefresh, s.config.RefreshTTL())
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh, RefreshClaims: claims}, nil
}

// GenerateToken generates an access token for the given user ID.
func (s *JWTService) GenerateToken(userID string) (string, error) {
	token, _, err := s.generate(userID, TokenTypeAccess, s.config.AccessTTL())
	return token, err
}

func (s *JWTService) generate(userID, tokenType string, ttl time.Duration) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, claims, nil
}

// ValidateToken validates a JWT token of the wanted type and returns the claims.
func (s *JWTService) ValidateToken(tokenString, wantType string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no user id")
	}
	return claims, nil
}
