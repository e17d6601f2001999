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
	"github.com/lib/pq"

	"github.com/hoodstech/hoods-be-main/internal/models"
)

// TagSpec names a tag to attach to an item; the tag row is created on
// first use.
type TagSpec struct {
	Name     string
	Category string
}

// CreateItem inserts an item and attaches its tags in one transaction.
// Tags are created on first use (get-or-create by unique name).
func (db *DB) CreateItem(ctx context.Context, item *models.Item, tags []TagSpec) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, seller_id, title, description, price_amount, price_currency, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.SellerID, item.Title, item.Description,
		item.Price.Amount, item.Price.Currency, item.IsActive,
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	for _, spec := range tags {
		tagID, err := ensureTag(ctx, tx, spec)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO item_tags (item_id, tag_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			item.ID, tagID)
		if err != nil {
			return fmt.Errorf("failed to link tag %s: %w", spec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item: %w", err)
	}
	return nil
}

// ensureTag returns the id of the tag with the given name, creating it if
// necessary. The upsert keeps concurrent creators convergent.
func ensureTag(ctx context.Context, tx *sql.Tx, spec TagSpec) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRowContext(ctx,
		`INSERT INTO tags (id, name, category) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET category = tags.category
		 RETURNING id`,
		uuid.New(), spec.Name, spec.Category).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to ensure tag %s: %w", spec.Name, err)
	}
	return id, nil
}

// ItemByID returns the bare item row, or nil if not found.
func (db *DB) ItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var it models.Item
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, seller_id, title, description, price_amount, price_currency, is_active, created_at, updated_at
		 FROM items WHERE id = $1`, id).
		Scan(&it.ID, &it.SellerID, &it.Title, &it.Description,
			&it.Price.Amount, &it.Price.Currency, &it.IsActive,
			&it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}
	return &it, nil
}

// ItemDetail returns the item joined with its tags and images, or nil if
// the item does not exist.
func (db *DB) ItemDetail(ctx context.Context, id uuid.UUID) (*models.ItemDetail, error) {
	item, err := db.ItemByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}

	details, err := db.itemDetails(ctx, []uuid.UUID{id}, map[uuid.UUID]*models.Item{id: item})
	if err != nil {
		return nil, err
	}
	d := details[id]
	return d, nil
}

// ItemDetails returns details for the given item ids, keyed by id. Missing
// items are simply absent from the result.
func (db *DB) ItemDetails(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ItemDetail, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*models.ItemDetail{}, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, seller_id, title, description, price_amount, price_currency, is_active, created_at, updated_at
		 FROM items WHERE id = ANY($1)`, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID]*models.Item, len(ids))
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.SellerID, &it.Title, &it.Description,
			&it.Price.Amount, &it.Price.Currency, &it.IsActive,
			&it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items[it.ID] = &it
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("item rows: %w", err)
	}

	return db.itemDetails(ctx, ids, items)
}

// itemDetails attaches tags and images to the already-fetched items.
func (db *DB) itemDetails(ctx context.Context, ids []uuid.UUID, items map[uuid.UUID]*models.Item) (map[uuid.UUID]*models.ItemDetail, error) {
	details := make(map[uuid.UUID]*models.ItemDetail, len(items))
	for id, it := range items {
		details[id] = &models.ItemDetail{Item: *it, Tags: []models.Tag{}, Images: []models.ItemImage{}}
	}

	idArr := pq.Array(uuidStrings(ids))

	tagRows, err := db.conn.QueryContext(ctx,
		`SELECT it.item_id, t.id, t.name, t.category
		 FROM item_tags it JOIN tags t ON t.id = it.tag_id
		 WHERE it.item_id = ANY($1)
		 ORDER BY t.name`, idArr)
	if err != nil {
		return nil, fmt.Errorf("failed to query item tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var itemID uuid.UUID
		var tag models.Tag
		if err := tagRows.Scan(&itemID, &tag.ID, &tag.Name, &tag.Category); err != nil {
			return nil, fmt.Errorf("failed to scan item tag: %w", err)
		}
		if d, ok := details[itemID]; ok {
			d.Tags = append(d.Tags, tag)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("item tag rows: %w", err)
	}

	imgRows, err := db.conn.QueryContext(ctx,
		`SELECT id, item_id, url, position, created_at
		 FROM item_images WHERE item_id = ANY($1)
		 ORDER BY position, created_at`, idArr)
	if err != nil {
		return nil, fmt.Errorf("failed to query item images: %w", err)
	}
	defer imgRows.Close()
	for imgRows.Next() {
		var img models.ItemImage
		if err := imgRows.Scan(&img.ID, &img.ItemID, &img.URL, &img.Position, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item image: %w", err)
		}
		if d, ok := details[img.ItemID]; ok {
			d.Images = append(d.Images, img)
		}
	}
	if err := imgRows.Err(); err != nil {
		return nil, fmt.Errorf("item image rows: %w", err)
	}

	return details, nil
}

// UpdateItem applies the mutable fields of an item. Returns
// models.ErrNotFound if the item does not exist.
func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE items
		 SET title = $2, description = $3, price_amount = $4, price_currency = $5,
		     is_active = $6, updated_at = $7
		 WHERE id = $1`,
		item.ID, item.Title, item.Description,
		item.Price.Amount, item.Price.Currency, item.IsActive, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteItem removes an item; images, tag links, interactions, and feed
// entries cascade.
func (db *DB) DeleteItem(ctx context.Context, id uuid.UUID) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddItemImage appends an image to an item, enforcing the per-item cap.
// The count check and insert run in one transaction so concurrent uploads
// cannot blow past the cap unnoticed.
func (db *DB) AddItemImage(ctx context.Context, img *models.ItemImage, maxPerItem int) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the parent item row to serialize concurrent uploads, then count.
	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT TRUE FROM items WHERE id = $1 FOR UPDATE`, img.ItemID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock item: %w", err)
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM item_images WHERE item_id = $1`, img.ItemID).
		Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count item images: %w", err)
	}
	if count >= maxPerItem {
		return models.NewRuleError("item.max_images", "item",
			"item already has the maximum of %d images", maxPerItem)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO item_images (id, item_id, url, position, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		img.ID, img.ItemID, img.URL, img.Position, img.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert item image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit image: %w", err)
	}
	return nil
}

// uuidStrings converts UUIDs to strings for pq.Array binding.
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
