// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hoodstech/hoods-be-main/internal/logging"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

// Feed generation metrics.
var (
	feedGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_generations_total",
			Help: "Total number of daily feed generation attempts",
		},
		[]string{"outcome"}, // generated, already_exists, lost_race, failure
	)

	feedEntriesGenerated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_entries_generated",
			Help:    "Number of entries persisted per generated feed",
			Buckets: []float64{0, 5, 10, 15, 20, 30, 50},
		},
	)
)

// GeneratorConfig tunes the daily feed generator.
type GeneratorConfig struct {
	// DailySize is the target number of entries per partition.
	DailySize int

	// CandidateLimit caps the candidate fetch. Performance safeguard
	// only; a smaller candidate pool just yields a shorter feed.
	CandidateLimit int

	// Location determines calendar-day boundaries.
	Location *time.Location

	// Seed seeds the selector rng; zero means time-based.
	Seed int64
}

// Generator builds one feed partition per (user, calendar day),
// idempotently.
type Generator struct {
	store    Store
	selector *Selector
	cfg      GeneratorConfig

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewGenerator creates a feed generator over the given store.
func NewGenerator(store Store, cfg GeneratorConfig) *Generator {
	if cfg.DailySize <= 0 {
		cfg.DailySize = 20
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 1000
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Generator{
		store:    store,
		selector: NewSelector(cfg.Seed),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Today returns the start of the current calendar day in the configured
// location; the partition key for "today's feed".
func (g *Generator) Today() time.Time {
	now := g.now().In(g.cfg.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, g.cfg.Location)
}

// EnsureTodaysFeed generates and persists today's feed partition for the
// user unless one already exists. Idempotent: the second call on the same
// day is a no-op. A concurrent generation race is resolved by the store's
// partition uniqueness; the loser treats ErrFeedExists as success.
func (g *Generator) EnsureTodaysFeed(ctx context.Context, userID uuid.UUID) error {
	feedDate := g.Today()

	exists, err := g.store.FeedExists(ctx, userID, feedDate)
	if err != nil {
		feedGenerationsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to check feed existence: %w", err)
	}
	if exists {
		feedGenerationsTotal.WithLabelValues("already_exists").Inc()
		return nil
	}

	signals, err := g.store.UserTagSignals(ctx, userID)
	if err != nil {
		feedGenerationsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to load interaction history: %w", err)
	}
	profile := BuildProfile(signals)

	candidates, err := g.store.CandidateItems(ctx, userID, g.cfg.CandidateLimit)
	if err != nil {
		feedGenerationsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to load candidate items: %w", err)
	}

	scored := make([]ScoredItem, len(candidates))
	for i, c := range candidates {
		scored[i] = ScoredItem{ItemID: c.ItemID, Score: ScoreItem(c.TagIDs, profile)}
	}

	selected := g.selector.Select(scored, g.cfg.DailySize)
	if len(selected) == 0 {
		// Nothing to show today; an empty partition is not persisted so a
		// later request can retry once items exist.
		feedGenerationsTotal.WithLabelValues("generated").Inc()
		feedEntriesGenerated.Observe(0)
		return nil
	}

	entries := make([]models.DailyFeedEntry, len(selected))
	for i, itemID := range selected {
		entries[i] = models.DailyFeedEntry{
			UserID:   userID,
			ItemID:   itemID,
			FeedDate: feedDate,
			Position: i + 1,
		}
	}

	if err := g.store.InsertFeedEntries(ctx, entries); err != nil {
		if errors.Is(err, ErrFeedExists) {
			// Lost the generation race; the winner's partition stands.
			feedGenerationsTotal.WithLabelValues("lost_race").Inc()
			logging.Ctx(ctx).Debug().
				Str("user_id", userID.String()).
				Msg("concurrent feed generation detected, using existing partition")
			return nil
		}
		feedGenerationsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to persist feed entries: %w", err)
	}

	feedGenerationsTotal.WithLabelValues("generated").Inc()
	feedEntriesGenerated.Observe(float64(len(entries)))
	logging.Ctx(ctx).Info().
		Str("user_id", userID.String()).
		Int("entries", len(entries)).
		Int("candidates", len(candidates)).
		Int("profile_tags", len(profile)).
		Msg("daily feed generated")
	return nil
}
