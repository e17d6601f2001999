// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hoodstech/hoods-be-main/internal/models"
)

// Cursor serves "next unshown item" semantics against a persisted feed
// partition, with exactly-once-per-item consumption marking. Both
// operations transparently trigger generation when no partition exists for
// today yet.
type Cursor struct {
	store Store
	gen   *Generator

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewCursor creates a cursor over the same store as the generator.
func NewCursor(store Store, gen *Generator) *Cursor {
	return &Cursor{store: store, gen: gen, now: time.Now}
}

// Next returns the lowest-position entry not yet shown in today's
// partition, marking it shown as a side effect. Returns (nil, nil) when
// the partition is exhausted; that is a valid outcome, not an error.
// Entries are consumed in strictly increasing position order and no entry
// is ever returned twice, even across concurrent calls.
func (c *Cursor) Next(ctx context.Context, userID uuid.UUID) (*models.FeedEntryDetail, error) {
	if err := c.gen.EnsureTodaysFeed(ctx, userID); err != nil {
		return nil, err
	}

	entry, err := c.store.ClaimNextUnshown(ctx, userID, c.gen.Today(), c.now())
	if err != nil {
		return nil, fmt.Errorf("failed to claim next feed entry: %w", err)
	}
	if entry == nil {
		return nil, nil // exhausted
	}

	detail, err := c.itemDetail(ctx, entry.ItemID)
	if err != nil {
		return nil, err
	}

	return &models.FeedEntryDetail{
		Position: entry.Position,
		ShownAt:  entry.ShownAt,
		Item:     *detail,
	}, nil
}

// Today returns the whole partition in position order, shown or not, with
// full item details.
func (c *Cursor) Today(ctx context.Context, userID uuid.UUID) ([]models.FeedEntryDetail, error) {
	if err := c.gen.EnsureTodaysFeed(ctx, userID); err != nil {
		return nil, err
	}

	entries, err := c.store.FeedEntries(ctx, userID, c.gen.Today())
	if err != nil {
		return nil, fmt.Errorf("failed to load feed entries: %w", err)
	}
	if len(entries) == 0 {
		return []models.FeedEntryDetail{}, nil
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ItemID
	}
	details, err := c.store.ItemDetails(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed item details: %w", err)
	}

	out := make([]models.FeedEntryDetail, len(entries))
	for i, e := range entries {
		d, ok := details[e.ItemID]
		if !ok {
			// Entry references a deleted item. Fail this request loudly
			// rather than silently skipping; other users' feeds are
			// unaffected.
			return nil, fmt.Errorf("%w: item %s at position %d",
				models.ErrFeedItemMissing, e.ItemID, e.Position)
		}
		out[i] = models.FeedEntryDetail{Position: e.Position, ShownAt: e.ShownAt, Item: *d}
	}
	return out, nil
}

// itemDetail loads a single item detail, mapping absence to
// models.ErrFeedItemMissing.
func (c *Cursor) itemDetail(ctx context.Context, itemID uuid.UUID) (*models.ItemDetail, error) {
	details, err := c.store.ItemDetails(ctx, []uuid.UUID{itemID})
	if err != nil {
		return nil, fmt.Errorf("failed to load feed item detail: %w", err)
	}
	d, ok := details[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: item %s", models.ErrFeedItemMissing, itemID)
	}
	return d, nil
}
