// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

/*
crud_feed.go - feed.Store implementation

The daily feed tables are the one place in the schema where races matter:

  - Generation: two concurrent "first request of the day" calls must not
    both persist a partition. InsertFeedEntries inserts the whole partition
    in one transaction with plain INSERTs; the (user_id, feed_date,
    position) primary key makes the loser fail with a unique violation,
    which is mapped to feed.ErrFeedExists and rolled back in full, so
    partitions never interleave.

  - Cursor: ClaimNextUnshown performs the read-then-mark as a single
    conditional UPDATE over a FOR UPDATE SKIP LOCKED subselect, so two
    concurrent calls claim different rows or none.
*/
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hoodstech/hoods-be-main/internal/feed"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

// UserTagSignals returns one (interaction type, tag) pair per tag of every
// item the user has interacted with, across the entire history.
func (db *DB) UserTagSignals(ctx context.Context, userID uuid.UUID) ([]feed.TagSignal, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT i.type, it.tag_id
		 FROM interactions i
		 JOIN item_tags it ON it.item_id = i.item_id
		 WHERE i.user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag signals: %w", err)
	}
	defer rows.Close()

	var signals []feed.TagSignal
	for rows.Next() {
		var s feed.TagSignal
		if err := rows.Scan(&s.Type, &s.TagID); err != nil {
			return nil, fmt.Errorf("failed to scan tag signal: %w", err)
		}
		signals = append(signals, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tag signal rows: %w", err)
	}
	return signals, nil
}

// CandidateItems returns active items the user has never interacted with,
// newest first, up to limit, each with its tag ids.
func (db *DB) CandidateItems(ctx context.Context, userID uuid.UUID, limit int) ([]feed.Candidate, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM items
		 WHERE is_active
		   AND NOT EXISTS (
		     SELECT 1 FROM interactions i
		     WHERE i.user_id = $1 AND i.item_id = items.id)
		 ORDER BY created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate items: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		index[id] = len(ids)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("candidate rows: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	candidates := make([]feed.Candidate, len(ids))
	for i, id := range ids {
		candidates[i] = feed.Candidate{ItemID: id}
	}

	tagRows, err := db.conn.QueryContext(ctx,
		`SELECT item_id, tag_id FROM item_tags WHERE item_id = ANY($1)`,
		pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var itemID, tagID uuid.UUID
		if err := tagRows.Scan(&itemID, &tagID); err != nil {
			return nil, fmt.Errorf("failed to scan candidate tag: %w", err)
		}
		if i, ok := index[itemID]; ok {
			candidates[i].TagIDs = append(candidates[i].TagIDs, tagID)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("candidate tag rows: %w", err)
	}

	return candidates, nil
}

// FeedExists reports whether a partition exists for (user, feedDate).
func (db *DB) FeedExists(ctx context.Context, userID uuid.UUID, feedDate time.Time) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM daily_feed_entries WHERE user_id = $1 AND feed_date = $2)`,
		userID, feedDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check feed existence: %w", err)
	}
	return exists, nil
}

// InsertFeedEntries persists a whole partition atomically. A unique
// violation means another generator won the race; the transaction is
// rolled back in full and feed.ErrFeedExists returned.
func (db *DB) InsertFeedEntries(ctx context.Context, entries []models.DailyFeedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO daily_feed_entries (user_id, item_id, feed_date, position)
		 VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("failed to prepare feed insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.UserID, e.ItemID, e.FeedDate, e.Position); err != nil {
			if isUniqueViolation(err) {
				return feed.ErrFeedExists
			}
			return fmt.Errorf("failed to insert feed entry at position %d: %w", e.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return feed.ErrFeedExists
		}
		return fmt.Errorf("failed to commit feed entries: %w", err)
	}
	return nil
}

// FeedEntries returns the partition in position order, shown or not.
func (db *DB) FeedEntries(ctx context.Context, userID uuid.UUID, feedDate time.Time) ([]models.DailyFeedEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, item_id, feed_date, position, shown_at
		 FROM daily_feed_entries
		 WHERE user_id = $1 AND feed_date = $2
		 ORDER BY position`, userID, feedDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed entries: %w", err)
	}
	defer rows.Close()

	var entries []models.DailyFeedEntry
	for rows.Next() {
		var e models.DailyFeedEntry
		if err := rows.Scan(&e.UserID, &e.ItemID, &e.FeedDate, &e.Position, &e.ShownAt); err != nil {
			return nil, fmt.Errorf("failed to scan feed entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("feed entry rows: %w", err)
	}
	return entries, nil
}

// ClaimNextUnshown atomically marks the lowest-position unshown entry as
// shown and returns it. The FOR UPDATE SKIP LOCKED subselect guarantees two
// concurrent calls never claim the same row. Returns (nil, nil) when the
// partition is exhausted.
func (db *DB) ClaimNextUnshown(ctx context.Context, userID uuid.UUID, feedDate time.Time, now time.Time) (*models.DailyFeedEntry, error) {
	var e models.DailyFeedEntry
	err := db.conn.QueryRowContext(ctx,
		`UPDATE daily_feed_entries
		 SET shown_at = $3
		 WHERE user_id = $1 AND feed_date = $2 AND position = (
		   SELECT position FROM daily_feed_entries
		   WHERE user_id = $1 AND feed_date = $2 AND shown_at IS NULL
		   ORDER BY position
		   LIMIT 1
		   FOR UPDATE SKIP LOCKED)
		 RETURNING user_id, item_id, feed_date, position, shown_at`,
		userID, feedDate, now).
		Scan(&e.UserID, &e.ItemID, &e.FeedDate, &e.Position, &e.ShownAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim feed entry: %w", err)
	}
	return &e, nil
}
