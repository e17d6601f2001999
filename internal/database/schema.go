// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

/*
schema.go - Database Schema Management

Tables:
  - users: registered accounts (buyers, sellers, admins)
  - items: seller listings with integer minor-unit prices
  - item_images: listing images, capped per item by configuration
  - tags / item_tags: free-form classification, many-to-many with items
  - interactions: at most one per (user, item), type overwritten on repeat
  - daily_feed_entries: per-(user, calendar day) feed partitions with
    1-based positions and one-way shown_at transitions
  - sessions: issued token pairs keyed by access-token jti

All foreign keys cascade on delete so no orphaned interaction, feed entry,
image, tag link, or session row can survive its parent.

The (user_id, feed_date, position) primary key plus the
(user_id, feed_date, item_id) unique index are the serialization point for
the per-user feed generation race: concurrent generators insert whole
partitions transactionally and the loser rolls back on unique violation.
*/
package database

import (
	"context"
	"fmt"
)

// schemaStatements are executed in order at startup. All statements are
// idempotent (IF NOT EXISTS).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		display_name  TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('buyer', 'seller', 'admin')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS items (
		id             UUID PRIMARY KEY,
		seller_id      UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title          TEXT NOT NULL,
		description    TEXT,
		price_amount   BIGINT NOT NULL CHECK (price_amount >= 0),
		price_currency TEXT NOT NULL CHECK (char_length(price_currency) = 3),
		is_active      BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS item_images (
		id         UUID PRIMARY KEY,
		item_id    UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		url        TEXT NOT NULL,
		position   INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS tags (
		id       UUID PRIMARY KEY,
		name     TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS item_tags (
		item_id UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		tag_id  UUID NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (item_id, tag_id)
	)`,

	`CREATE TABLE IF NOT EXISTS interactions (
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item_id    UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		type       TEXT NOT NULL CHECK (type IN ('like', 'dislike', 'favorite')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, item_id)
	)`,

	`CREATE TABLE IF NOT EXISTS daily_feed_entries (
		user_id   UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item_id   UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		feed_date DATE NOT NULL,
		position  INTEGER NOT NULL CHECK (position >= 1),
		shown_at  TIMESTAMPTZ,
		PRIMARY KEY (user_id, feed_date, position),
		UNIQUE (user_id, feed_date, item_id)
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		jti              TEXT PRIMARY KEY,
		user_id          UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		refresh_jti      TEXT NOT NULL,
		device_id        TEXT NOT NULL DEFAULT '',
		ip_address       TEXT NOT NULL DEFAULT '',
		user_agent       TEXT NOT NULL DEFAULT '',
		issued_at        TIMESTAMPTZ NOT NULL,
		expires_at       TIMESTAMPTZ NOT NULL,
		last_activity_at TIMESTAMPTZ NOT NULL,
		is_revoked       BOOLEAN NOT NULL DEFAULT FALSE,
		revoked_at       TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_items_active ON items (is_active) WHERE is_active`,
	`CREATE INDEX IF NOT EXISTS idx_items_seller ON items (seller_id)`,
	`CREATE INDEX IF NOT EXISTS idx_item_tags_tag ON item_tags (tag_id)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_feed_unshown ON daily_feed_entries (user_id, feed_date, position) WHERE shown_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_active ON sessions (user_id, last_activity_at) WHERE NOT is_revoked`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions (expires_at)`,
}

// initSchema creates tables and indexes. Safe to run on every startup.
func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
