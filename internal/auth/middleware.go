// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package auth

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/hoodstech/hoods-be-main/internal/logging"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

type contextKey string

const (
	claimsContextKey  contextKey = "claims"
	sessionContextKey contextKey = "session"
)

// ClaimsFromContext returns the verified claims of the authenticated
// request, or nil outside the Authenticate middleware.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey).(*Claims)
	return claims
}

// SessionFromContext returns the session of the authenticated request.
func SessionFromContext(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionContextKey).(*models.Session)
	return session
}

// Middleware authenticates requests against the token manager and the
// two-tier revocation check.
type Middleware struct {
	tokens   *TokenManager
	sessions *Manager
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(tokens *TokenManager, sessions *Manager) *Middleware {
	return &Middleware{tokens: tokens, sessions: sessions}
}

// Authenticate verifies the bearer token, runs the revocation check, and
// attaches claims and session to the request context. All failure modes
// produce the same 401 so callers cannot distinguish an expired token from
// a revoked or forged one.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthorized(w)
			return
		}

		claims, err := m.tokens.Verify(token, TokenUseAccess)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("token verification failed")
			unauthorized(w)
			return
		}

		session, err := m.sessions.Validate(r.Context(), claims.ID, ClientIP(r))
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("session validation failed")
			unauthorized(w)
			return
		}

		m.sessions.UpdateActivity(r.Context(), claims.ID)

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		ctx = context.WithValue(ctx, sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route group to one or more roles. Must run inside
// Authenticate.
func (m *Middleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				unauthorized(w)
				return
			}
			if !allowed[models.Role(claims.Role)] {
				forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// ClientIP returns the request's source IP without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func unauthorized(w http.ResponseWriter) {
	writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
}

func forbidden(w http.ResponseWriter) {
	writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}
