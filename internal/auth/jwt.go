// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hoodstech/hoods-be-main/internal/config"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

// Token use claim values. Access tokens authenticate API requests; refresh
// tokens are accepted only by the refresh endpoint. The claim stops a
// refresh token from being replayed as an access token.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// Claims are the JWT claims carried by both token kinds.
type Claims struct {
	Role     string `json:"role"`
	DeviceID string `json:"device_id,omitempty"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	return id, nil
}

// TokenPair is one issued access/refresh pair. The two tokens carry
// distinct jtis; the session row binds them together so revocation kills
// both.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessJTI        string    `json:"-"`
	RefreshJTI       string    `json:"-"`
	IssuedAt         time.Time `json:"-"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenManager creates and validates HS256 token pairs.
type TokenManager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration

	// now is injected for tests.
	now func() time.Time
}

// NewTokenManager validates the security config and returns a manager.
// The secret is kept as []byte to avoid string interning.
func NewTokenManager(cfg *config.SecurityConfig) (*TokenManager, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	return &TokenManager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}, nil
}

// IssuePair mints an access/refresh token pair for a user. Each token gets
// its own random jti.
func (m *TokenManager) IssuePair(userID uuid.UUID, role models.Role, deviceID string) (*TokenPair, error) {
	now := m.now()
	pair := &TokenPair{
		AccessJTI:        uuid.NewString(),
		RefreshJTI:       uuid.NewString(),
		IssuedAt:         now,
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	access, err := m.sign(userID, role, deviceID, TokenUseAccess, pair.AccessJTI, now, pair.AccessExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := m.sign(userID, role, deviceID, TokenUseRefresh, pair.RefreshJTI, now, pair.RefreshExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	pair.AccessToken = access
	pair.RefreshToken = refresh
	return pair, nil
}

func (m *TokenManager) sign(userID uuid.UUID, role models.Role, deviceID, use, jti string, issuedAt, expiresAt time.Time) (string, error) {
	claims := &Claims{
		Role:     string(role),
		DeviceID: deviceID,
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses and validates a token and checks it is of the expected
// kind. The signing method is pinned to HMAC to prevent algorithm
// confusion.
func (m *TokenManager) Verify(tokenString, expectedUse string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.TokenUse != expectedUse {
		return nil, fmt.Errorf("token use %q, expected %q", claims.TokenUse, expectedUse)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("token missing jti claim")
	}
	return claims, nil
}
