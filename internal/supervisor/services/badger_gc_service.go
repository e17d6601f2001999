// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package services

import (
	"context"
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/hoodstech/hoods-be-main/internal/logging"
)

// gcDiscardRatio is the badger value-log rewrite threshold: a log file is
// rewritten when at least half of it is stale.
const gcDiscardRatio = 0.5

// BadgerGCService runs badger's value-log garbage collection on a timer.
// Badger never reclaims value-log space on its own; without this loop the
// blacklist store grows monotonically.
type BadgerGCService struct {
	db       *badger.DB
	interval time.Duration
	name     string
}

// NewBadgerGCService creates a GC loop over the given database.
func NewBadgerGCService(db *badger.DB, interval time.Duration) *BadgerGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &BadgerGCService{
		db:       db,
		interval: interval,
		name:     "badger-gc",
	}
}

// Serve implements suture.Service. Each tick runs GC repeatedly until
// badger reports nothing left to rewrite.
func (s *BadgerGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rewritten := 0
			for {
				err := s.db.RunValueLogGC(gcDiscardRatio)
				if err == nil {
					rewritten++
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					logging.Ctx(ctx).Warn().Err(err).Msg("badger value log GC failed")
				}
				break
			}
			if rewritten > 0 {
				logging.Ctx(ctx).Debug().Int("files", rewritten).Msg("badger value log GC rewrote files")
			}
		}
	}
}

// String identifies the service in suture's log events.
func (s *BadgerGCService) String() string {
	return s.name
}
