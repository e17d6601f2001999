// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

// Package feed implements the daily personalized feed engine: preference
// profiles from interaction history, tag-based item scoring, tiered
// randomized selection, idempotent per-day generation, and the next-unshown
// cursor.
//
// The package depends only on models and the Store interface below, so the
// database layer can implement Store without circular imports and tests can
// supply in-memory fakes.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hoodstech/hoods-be-main/internal/models"
)

// Interaction weights applied per item tag when building a preference
// profile.
const (
	WeightFavorite = 3
	WeightLike     = 2
	WeightDislike  = -1
)

// Tier buckets balance personalization against novelty. Selection targets
// are percentages of the daily feed size.
type Tier int

const (
	// TierHigh holds items scoring >= 6.
	TierHigh Tier = iota
	// TierMedium holds items scoring 3-5.
	TierMedium
	// TierLow holds items scoring 1-2.
	TierLow
	// TierExploration holds items scoring <= 0, guaranteeing a floor of
	// novel content in every feed.
	TierExploration
)

// String returns a human-readable tier name.
func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	case TierExploration:
		return "exploration"
	default:
		return "unknown"
	}
}

// tierTargetPercent is the share of the daily feed size each tier aims to
// fill. Exploration additionally absorbs integer rounding remainder.
var tierTargetPercent = [4]int{60, 25, 10, 5}

// Profile maps tag id to a signed preference score derived from the user's
// full interaction history. Tags never seen are simply absent.
type Profile map[uuid.UUID]int

// TagSignal is one (interaction type, tag) pair from the user's history.
// An interaction with an item carrying three tags produces three signals.
type TagSignal struct {
	Type  models.InteractionType
	TagID uuid.UUID
}

// Candidate is an active item the user has never interacted with, together
// with its tag set.
type Candidate struct {
	ItemID uuid.UUID
	TagIDs []uuid.UUID
}

// ScoredItem pairs a candidate item with its profile score.
type ScoredItem struct {
	ItemID uuid.UUID
	Score  int
}

// ErrFeedExists is returned by Store.InsertFeedEntries when another
// generator already persisted a partition for the same (user, day). The
// loser of the race treats it as success and re-reads.
var ErrFeedExists = errors.New("feed already generated for this day")

// Store is the persistence contract the feed engine needs. Implemented by
// the database layer; tests use in-memory fakes.
type Store interface {
	// UserTagSignals returns one signal per (interaction, item tag) pair
	// across the user's entire history.
	UserTagSignals(ctx context.Context, userID uuid.UUID) ([]TagSignal, error)

	// CandidateItems returns active items the user has never interacted
	// with, up to limit, each with its tag ids.
	CandidateItems(ctx context.Context, userID uuid.UUID, limit int) ([]Candidate, error)

	// FeedExists reports whether a partition exists for (user, feedDate).
	FeedExists(ctx context.Context, userID uuid.UUID, feedDate time.Time) (bool, error)

	// InsertFeedEntries persists a whole partition atomically. Returns
	// ErrFeedExists (and persists nothing) if a partition for the same
	// (user, day) already exists.
	InsertFeedEntries(ctx context.Context, entries []models.DailyFeedEntry) error

	// FeedEntries returns the partition in position order, shown or not.
	FeedEntries(ctx context.Context, userID uuid.UUID, feedDate time.Time) ([]models.DailyFeedEntry, error)

	// ClaimNextUnshown atomically marks the lowest-position unshown entry
	// as shown at the given instant and returns it. Returns (nil, nil)
	// when every entry has been shown. Two concurrent calls never claim
	// the same entry.
	ClaimNextUnshown(ctx context.Context, userID uuid.UUID, feedDate time.Time, now time.Time) (*models.DailyFeedEntry, error)

	// ItemDetails returns item details keyed by id; deleted items are
	// absent from the map.
	ItemDetails(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ItemDetail, error)
}
