// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hoodstech/hoods-be-main/internal/config"
	"github.com/hoodstech/hoods-be-main/internal/logging"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

// Session lifecycle metrics
var (
	sessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_created_total",
		Help: "Total number of sessions created",
	})

	sessionsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_evicted_total",
		Help: "Total number of sessions evicted at the per-user ceiling",
	})

	sessionsRevokedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_sessions_revoked_total",
		Help: "Total number of sessions revoked",
	}, []string{"reason"}) // reason: logout, logout_all, logout_others, evicted

	tokenRotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_rotations_total",
		Help: "Total number of refresh-token rotations",
	})
)

// Session lifecycle errors.
var (
	// ErrSessionRevoked is returned when a presented token's session has
	// been revoked or no longer exists.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrSessionExpired is returned when the session row outlived its
	// refresh-token lifetime.
	ErrSessionExpired = errors.New("session expired")

	// ErrIPAddressMismatch is returned in strict-IP mode when a request's
	// source address differs from the one the session was created with.
	ErrIPAddressMismatch = errors.New("session IP address mismatch")
)

// SessionStore is the durable side of the session lifecycle, implemented
// by the database package.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, jti string) (*models.Session, error)
	GetSessionByRefreshJTI(ctx context.Context, refreshJTI string) (*models.Session, error)
	CountActiveSessions(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	OldestActiveSession(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Session, error)
	RevokeSession(ctx context.Context, jti string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Session, error)
	RevokeAllForUserExcept(ctx context.Context, userID uuid.UUID, keepJTI string, now time.Time) ([]models.Session, error)
	UpdateSessionActivity(ctx context.Context, jti string, now time.Time) error
	RotateSessionTokens(ctx context.Context, oldJTI, newJTI, newRefreshJTI string, issuedAt, expiresAt time.Time) error
	ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// SessionRequest carries the client context recorded on a new session.
type SessionRequest struct {
	DeviceID  string
	IPAddress string
	UserAgent string
}

// Manager ties tokens, the durable session store, and the revocation
// blacklist into the session lifecycle.
type Manager struct {
	store     SessionStore
	tokens    *TokenManager
	blacklist Blacklist
	cfg       *config.SecurityConfig

	// now is injected for tests.
	now func() time.Time
}

// NewManager builds a session Manager.
func NewManager(store SessionStore, tokens *TokenManager, blacklist Blacklist, cfg *config.SecurityConfig) *Manager {
	return &Manager{
		store:     store,
		tokens:    tokens,
		blacklist: blacklist,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CreateSession issues a token pair and records the session. When the user
// is at the concurrent-session ceiling, the least-recently-active session
// is evicted first, so the ceiling holds after creation.
func (m *Manager) CreateSession(ctx context.Context, user *models.User, req SessionRequest) (*TokenPair, error) {
	now := m.now()

	active, err := m.store.CountActiveSessions(ctx, user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count active sessions: %w", err)
	}
	for active >= m.cfg.MaxSessionsPerUser {
		victim, err := m.store.OldestActiveSession(ctx, user.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to find eviction victim: %w", err)
		}
		if victim == nil {
			break
		}
		if err := m.revokeOne(ctx, victim, now, "evicted"); err != nil {
			return nil, fmt.Errorf("failed to evict session: %w", err)
		}
		sessionsEvictedTotal.Inc()
		active--
	}

	pair, err := m.tokens.IssuePair(user.ID, user.Role, req.DeviceID)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		JTI:            pair.AccessJTI,
		UserID:         user.ID,
		RefreshJTI:     pair.RefreshJTI,
		DeviceID:       req.DeviceID,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		IssuedAt:       pair.IssuedAt,
		ExpiresAt:      pair.RefreshExpiresAt,
		LastActivityAt: pair.IssuedAt,
		CreatedAt:      pair.IssuedAt,
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	sessionsCreatedTotal.Inc()
	logging.Ctx(ctx).Info().
		Str("user_id", user.ID.String()).
		Str("device_id", req.DeviceID).
		Msg("session created")
	return pair, nil
}

// Validate performs the two-tier revocation check for an access jti. The
// blacklist answers first; on a blacklist error the check degrades to the
// durable store rather than failing open. Returns the session on success.
func (m *Manager) Validate(ctx context.Context, jti, requestIP string) (*models.Session, error) {
	revoked, err := m.blacklist.Contains(ctx, jti)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("blacklist check failed, falling back to session store")
	} else if revoked {
		return nil, ErrSessionRevoked
	}

	session, err := m.store.GetSession(ctx, jti)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil || session.IsRevoked {
		return nil, ErrSessionRevoked
	}

	now := m.now()
	if !now.Before(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	if m.cfg.StrictIPCheck && session.IPAddress != "" && session.IPAddress != requestIP {
		logging.Ctx(ctx).Warn().
			Str("session_ip", session.IPAddress).
			Str("request_ip", requestIP).
			Msg("session IP mismatch")
		return nil, ErrIPAddressMismatch
	}

	return session, nil
}

// UpdateActivity bumps the session's last-activity timestamp. Best-effort:
// failures are logged, never surfaced to the request path.
func (m *Manager) UpdateActivity(ctx context.Context, jti string) {
	if err := m.store.UpdateSessionActivity(ctx, jti, m.now()); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to update session activity")
	}
}

// Refresh rotates a session's token pair. The presented refresh token must
// verify, not be blacklisted, and belong to an active session. Both old
// jtis are blacklisted for their remaining lifetimes so neither token of
// the superseded pair can be replayed.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := m.tokens.Verify(refreshToken, TokenUseRefresh)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	revoked, err := m.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("blacklist check failed, falling back to session store")
	} else if revoked {
		return nil, ErrSessionRevoked
	}

	session, err := m.store.GetSessionByRefreshJTI(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil || session.IsRevoked {
		return nil, ErrSessionRevoked
	}

	now := m.now()
	if !now.Before(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	pair, err := m.tokens.IssuePair(userID, models.Role(claims.Role), claims.DeviceID)
	if err != nil {
		return nil, err
	}

	if err := m.store.RotateSessionTokens(ctx, session.JTI, pair.AccessJTI, pair.RefreshJTI, pair.IssuedAt, pair.RefreshExpiresAt); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}

	// The superseded pair dies with the rotation.
	m.blacklistPair(ctx, session, now)

	tokenRotationsTotal.Inc()
	logging.Ctx(ctx).Info().
		Str("user_id", userID.String()).
		Msg("session tokens rotated")
	return pair, nil
}

// Revoke terminates the session for an access jti (logout). Idempotent.
func (m *Manager) Revoke(ctx context.Context, jti string) error {
	session, err := m.store.GetSession(ctx, jti)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil
	}
	if err := m.revokeOne(ctx, session, m.now(), "logout"); err != nil {
		return err
	}
	return nil
}

// RevokeAll terminates every active session of a user. Returns the number
// revoked.
func (m *Manager) RevokeAll(ctx context.Context, userID uuid.UUID) (int, error) {
	now := m.now()
	revoked, err := m.store.RevokeAllForUser(ctx, userID, now)
	if err != nil {
		return 0, err
	}
	for i := range revoked {
		m.blacklistPair(ctx, &revoked[i], now)
		sessionsRevokedTotal.WithLabelValues("logout_all").Inc()
	}
	return len(revoked), nil
}

// RevokeOthers terminates every active session of a user except the one
// holding keepJTI. Returns the number revoked.
func (m *Manager) RevokeOthers(ctx context.Context, userID uuid.UUID, keepJTI string) (int, error) {
	now := m.now()
	revoked, err := m.store.RevokeAllForUserExcept(ctx, userID, keepJTI, now)
	if err != nil {
		return 0, err
	}
	for i := range revoked {
		m.blacklistPair(ctx, &revoked[i], now)
		sessionsRevokedTotal.WithLabelValues("logout_others").Inc()
	}
	return len(revoked), nil
}

// ListSessions returns the user's sessions with the current one flagged.
func (m *Manager) ListSessions(ctx context.Context, userID uuid.UUID, currentJTI string) ([]models.SessionInfo, error) {
	sessions, err := m.store.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	infos := make([]models.SessionInfo, 0, len(sessions))
	now := m.now()
	for _, s := range sessions {
		if !s.Active(now) {
			continue
		}
		infos = append(infos, models.SessionInfo{
			JTI:            s.JTI,
			DeviceID:       s.DeviceID,
			IPAddress:      s.IPAddress,
			UserAgent:      s.UserAgent,
			IssuedAt:       s.IssuedAt,
			ExpiresAt:      s.ExpiresAt,
			LastActivityAt: s.LastActivityAt,
			IsCurrent:      s.JTI == currentJTI,
		})
	}
	return infos, nil
}

// CleanupExpired purges expired session rows and blacklist entries. Run by
// the janitor service.
func (m *Manager) CleanupExpired(ctx context.Context) error {
	deleted, err := m.store.DeleteExpiredSessions(ctx, m.now())
	if err != nil {
		return fmt.Errorf("failed to purge expired sessions: %w", err)
	}

	cleaned, err := m.blacklist.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean blacklist: %w", err)
	}

	if deleted > 0 || cleaned > 0 {
		logging.Info().
			Int64("sessions_deleted", deleted).
			Int("blacklist_cleaned", cleaned).
			Msg("session cleanup completed")
	}
	return nil
}

// revokeOne marks a single session revoked and blacklists its token pair.
func (m *Manager) revokeOne(ctx context.Context, session *models.Session, now time.Time, reason string) error {
	if err := m.store.RevokeSession(ctx, session.JTI, now); err != nil {
		return err
	}
	m.blacklistPair(ctx, session, now)
	sessionsRevokedTotal.WithLabelValues(reason).Inc()
	return nil
}

// blacklistPair blacklists both jtis of a session for the session's
// remaining lifetime. Best-effort: the durable store already has the
// session marked revoked, so a blacklist failure only delays rejection
// until the store check.
func (m *Manager) blacklistPair(ctx context.Context, session *models.Session, now time.Time) {
	ttl := session.RemainingTTL(now)
	if ttl <= 0 {
		return
	}
	if err := m.blacklist.Add(ctx, session.JTI, ttl); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("jti", session.JTI).Msg("failed to blacklist access jti")
	}
	if err := m.blacklist.Add(ctx, session.RefreshJTI, ttl); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("jti", session.RefreshJTI).Msg("failed to blacklist refresh jti")
	}
}
