// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hoodstech/hoods-be-main/internal/models"
)

// UpsertInteraction creates an interaction or overwrites the type of an
// existing one for the same (user, item) pair. The original created_at is
// preserved on overwrite.
func (db *DB) UpsertInteraction(ctx context.Context, in *models.Interaction) (*models.Interaction, error) {
	var out models.Interaction
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO interactions (user_id, item_id, type, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, item_id) DO UPDATE SET type = EXCLUDED.type
		 RETURNING user_id, item_id, type, created_at`,
		in.UserID, in.ItemID, in.Type, in.CreatedAt).
		Scan(&out.UserID, &out.ItemID, &out.Type, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert interaction: %w", err)
	}
	return &out, nil
}

// DeleteInteraction removes the interaction row if present. Deleting a
// nonexistent interaction is a no-op, distinct from an error.
func (db *DB) DeleteInteraction(ctx context.Context, userID, itemID uuid.UUID) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM interactions WHERE user_id = $1 AND item_id = $2`,
		userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete interaction: %w", err)
	}
	return nil
}

// FavoriteItemIDs returns the ids of items the user has marked favorite,
// ordered by when the favorite was created.
func (db *DB) FavoriteItemIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT item_id FROM interactions
		 WHERE user_id = $1 AND type = 'favorite'
		 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("favorite rows: %w", err)
	}
	return ids, nil
}
