// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package services

import (
	"context"
	"time"

	"github.com/hoodstech/hoods-be-main/internal/logging"
)

// SessionJanitor is the session cleanup contract, satisfied by
// auth.Manager.
type SessionJanitor interface {
	CleanupExpired(ctx context.Context) error
}

// JanitorService periodically purges expired session rows and blacklist
// entries. Revocation correctness does not depend on it; validation
// rejects expired sessions regardless. It keeps the tables and the
// blacklist from growing without bound.
type JanitorService struct {
	janitor  SessionJanitor
	interval time.Duration
	name     string
}

// NewJanitorService creates a cleanup loop running at the given interval.
func NewJanitorService(janitor SessionJanitor, interval time.Duration) *JanitorService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &JanitorService{
		janitor:  janitor,
		interval: interval,
		name:     "session-janitor",
	}
}

// Serve implements suture.Service. Cleanup failures are logged and the
// loop keeps ticking; a transient database error should not crash-loop
// the service.
func (j *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := j.janitor.CleanupExpired(ctx); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("session cleanup failed")
			}
		}
	}
}

// String identifies the service in suture's log events.
func (j *JanitorService) String() string {
	return j.name
}
