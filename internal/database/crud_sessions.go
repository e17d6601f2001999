// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hoodstech/hoods-be-main/internal/models"
)

// CreateSession records a freshly issued token pair. The row is keyed by
// the access-token jti; the refresh jti rides along so revoking a session
// kills both tokens.
func (db *DB) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions
		   (jti, user_id, refresh_jti, device_id, ip_address, user_agent,
		    issued_at, expires_at, last_activity_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		session.JTI, session.UserID, session.RefreshJTI,
		session.DeviceID, session.IPAddress, session.UserAgent,
		session.IssuedAt, session.ExpiresAt, session.LastActivityAt,
		session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns the session for an access jti, or (nil, nil) when no
// such session exists.
func (db *DB) GetSession(ctx context.Context, jti string) (*models.Session, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT jti, user_id, refresh_jti, device_id, ip_address, user_agent,
		        issued_at, expires_at, last_activity_at, is_revoked, revoked_at, created_at
		 FROM sessions WHERE jti = $1`, jti)
	return scanSession(row)
}

// GetSessionByRefreshJTI looks a session up by its refresh-token jti, used
// during token rotation. Returns (nil, nil) when absent.
func (db *DB) GetSessionByRefreshJTI(ctx context.Context, refreshJTI string) (*models.Session, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT jti, user_id, refresh_jti, device_id, ip_address, user_agent,
		        issued_at, expires_at, last_activity_at, is_revoked, revoked_at, created_at
		 FROM sessions WHERE refresh_jti = $1`, refreshJTI)
	return scanSession(row)
}

// CountActiveSessions counts unrevoked, unexpired sessions for a user.
func (db *DB) CountActiveSessions(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM sessions
		 WHERE user_id = $1 AND NOT is_revoked AND expires_at > $2`,
		userID, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}

// OldestActiveSession returns the active session with the oldest
// last_activity_at, the eviction victim when a user hits the session
// ceiling. Returns (nil, nil) when the user has no active sessions.
func (db *DB) OldestActiveSession(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Session, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT jti, user_id, refresh_jti, device_id, ip_address, user_agent,
		        issued_at, expires_at, last_activity_at, is_revoked, revoked_at, created_at
		 FROM sessions
		 WHERE user_id = $1 AND NOT is_revoked AND expires_at > $2
		 ORDER BY last_activity_at
		 LIMIT 1`, userID, now)
	return scanSession(row)
}

// RevokeSession marks a session revoked. Idempotent: revoking an already
// revoked or unknown jti is a no-op and the original revoked_at survives.
func (db *DB) RevokeSession(ctx context.Context, jti string, now time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET is_revoked = TRUE, revoked_at = $2
		 WHERE jti = $1 AND NOT is_revoked`, jti, now)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every active session of a user in one statement
// and returns the revoked rows so the caller can blacklist each token pair
// with its own remaining TTL.
func (db *DB) RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Session, error) {
	rows, err := db.conn.QueryContext(ctx,
		`UPDATE sessions SET is_revoked = TRUE, revoked_at = $2
		 WHERE user_id = $1 AND NOT is_revoked
		 RETURNING jti, user_id, refresh_jti, device_id, ip_address, user_agent,
		           issued_at, expires_at, last_activity_at, is_revoked, revoked_at, created_at`,
		userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return collectSessions(rows)
}

// RevokeAllForUserExcept revokes every active session of a user other than
// keepJTI. A single conditional statement so a concurrently created session
// either is caught by the update or postdates the revocation entirely.
func (db *DB) RevokeAllForUserExcept(ctx context.Context, userID uuid.UUID, keepJTI string, now time.Time) ([]models.Session, error) {
	rows, err := db.conn.QueryContext(ctx,
		`UPDATE sessions SET is_revoked = TRUE, revoked_at = $3
		 WHERE user_id = $1 AND jti <> $2 AND NOT is_revoked
		 RETURNING jti, user_id, refresh_jti, device_id, ip_address, user_agent,
		           issued_at, expires_at, last_activity_at, is_revoked, revoked_at, created_at`,
		userID, keepJTI, now)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke other sessions: %w", err)
	}
	return collectSessions(rows)
}

// UpdateSessionActivity bumps last_activity_at. Best-effort from callers'
// perspective; an update of a vanished session is a silent no-op.
func (db *DB) UpdateSessionActivity(ctx context.Context, jti string, now time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = $2 WHERE jti = $1`, jti, now)
	if err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}
	return nil
}

// RotateSessionTokens rekeys a session to a new token pair during refresh.
// The row's primary key changes to the new access jti. Returns
// models.ErrNotFound if the session vanished underneath the rotation.
func (db *DB) RotateSessionTokens(ctx context.Context, oldJTI, newJTI, newRefreshJTI string, issuedAt, expiresAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE sessions
		 SET jti = $2, refresh_jti = $3, issued_at = $4, expires_at = $5,
		     last_activity_at = $4
		 WHERE jti = $1 AND NOT is_revoked`,
		oldJTI, newJTI, newRefreshJTI, issuedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to rotate session tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rotation result: %w", err)
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListSessionsByUser returns all sessions for a user, active and revoked,
// most recently active first.
func (db *DB) ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT jti, user_id, refresh_jti, device_id, ip_address, user_agent,
		        issued_at, expires_at, last_activity_at, is_revoked, revoked_at, created_at
		 FROM sessions
		 WHERE user_id = $1
		 ORDER BY last_activity_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return collectSessions(rows)
}

// DeleteExpiredSessions removes rows whose expiry has passed, regardless of
// revocation state, and returns how many were purged. Run by the janitor.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}
	return deleted, nil
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.JTI, &s.UserID, &s.RefreshJTI, &s.DeviceID,
		&s.IPAddress, &s.UserAgent, &s.IssuedAt, &s.ExpiresAt,
		&s.LastActivityAt, &s.IsRevoked, &s.RevokedAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &s, nil
}

func collectSessions(rows *sql.Rows) ([]models.Session, error) {
	defer rows.Close()
	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.JTI, &s.UserID, &s.RefreshJTI, &s.DeviceID,
			&s.IPAddress, &s.UserAgent, &s.IssuedAt, &s.ExpiresAt,
			&s.LastActivityAt, &s.IsRevoked, &s.RevokedAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session rows: %w", err)
	}
	return sessions, nil
}
