// Package auth issues and verifies session tokens, hashes passwords and
// decides role-based access.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "admitai-api"

// DefaultTokenTTL is used when no TTL is configured.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims represents the JWT claims structure
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// generateRandomSecret creates a cryptographically secure random secret
func generateRandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewTokenManager validates the configured secret. In development an empty
// secret is replaced by a random one and a warning is logged; elsewhere an
// empty secret is an error.
func NewTokenManager(secret string, ttl time.Duration, development bool) (*TokenManager, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	if secret == "" {
		if !development {
			return nil, errors.New("ADM_AUTH_JWT_SECRET is required outside development; generate one with: openssl rand -hex 32")
		}
		generated, err := generateRandomSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate development secret: %w", err)
		}
		slog.Warn("ADM_AUTH_JWT_SECRET not set, using an auto-generated secret; sessions will not survive restarts")
		secret = generated
	} else if len(secret) < 32 {
		slog.Warn("ADM_AUTH_JWT_SECRET is shorter than the recommended 32 characters")
	}

	return &TokenManager{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Generate creates a token for an authenticated user
func (m *TokenManager) Generate(userID, email, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and validates a token
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
