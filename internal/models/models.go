// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

// Package models defines the data structures used throughout the marketplace
// backend: users, items with tags and images, buyer interactions, daily feed
// entries, and authentication sessions.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies what a user account is allowed to do.
type Role string

const (
	// RoleBuyer can browse the feed and interact with items.
	RoleBuyer Role = "buyer"
	// RoleSeller can additionally list and manage items.
	RoleSeller Role = "seller"
	// RoleAdmin has full access.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Price is an integer amount in minor units (cents) plus an ISO 4217
// currency code. Stored as two columns, never floating point.
type Price struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Item is a seller listing. Tags and images are related entities loaded
// separately (or joined into ItemDetail).
type Item struct {
	ID          uuid.UUID `json:"id"`
	SellerID    uuid.UUID `json:"seller_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Price       Price     `json:"price"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tag classifies items along a free-form axis (e.g. category "size",
// name "M"). Names are globally unique. Tags carry no inherent weight;
// per-user weight is derived from interaction history by the feed engine.
type Tag struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
}

// ItemImage is one image attached to an item. The number of images per
// item is capped by configuration (default 5).
type ItemImage struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	URL       string    `json:"url"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemDetail is an item joined with its tags and images, as returned by
// feed and item read endpoints.
type ItemDetail struct {
	Item
	Tags   []Tag       `json:"tags"`
	Images []ItemImage `json:"images"`
}

// InteractionType classifies a buyer's reaction to an item.
type InteractionType string

const (
	// InteractionLike is a positive signal.
	InteractionLike InteractionType = "like"
	// InteractionDislike is a negative signal.
	InteractionDislike InteractionType = "dislike"
	// InteractionFavorite is the strongest positive signal and also pins
	// the item to the user's favorites list.
	InteractionFavorite InteractionType = "favorite"
)

// Valid reports whether the interaction type is one of the known values.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionLike, InteractionDislike, InteractionFavorite:
		return true
	}
	return false
}

// Interaction records a buyer's reaction to an item. At most one row exists
// per (user, item); re-interacting overwrites Type rather than appending.
type Interaction struct {
	UserID    uuid.UUID       `json:"user_id"`
	ItemID    uuid.UUID       `json:"item_id"`
	Type      InteractionType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

// DailyFeedEntry is one positioned slot in a user's feed partition for a
// calendar day. Position is 1-based, assigned at generation time, and never
// mutated. ShownAt transitions once from nil to a timestamp the first time
// the entry is surfaced by the cursor.
type DailyFeedEntry struct {
	UserID   uuid.UUID  `json:"user_id"`
	ItemID   uuid.UUID  `json:"item_id"`
	FeedDate time.Time  `json:"feed_date"`
	Position int        `json:"position"`
	ShownAt  *time.Time `json:"shown_at,omitempty"`
}

// FeedEntryDetail is a feed entry joined with its item detail, as served
// to clients.
type FeedEntryDetail struct {
	Position int        `json:"position"`
	ShownAt  *time.Time `json:"shown_at,omitempty"`
	Item     ItemDetail `json:"item"`
}

// Session is a server-side record of an issued token pair, keyed by the
// access token's jti. Lifecycle: active -> revoked (permanent) or expired
// (lazily detected at validation time).
type Session struct {
	JTI            string     `json:"jti"`
	UserID         uuid.UUID  `json:"user_id"`
	RefreshJTI     string     `json:"-"`
	DeviceID       string     `json:"device_id,omitempty"`
	IPAddress      string     `json:"ip_address,omitempty"`
	UserAgent      string     `json:"user_agent,omitempty"`
	IssuedAt       time.Time  `json:"issued_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	IsRevoked      bool       `json:"is_revoked"`
	CreatedAt      time.Time  `json:"created_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the session is usable at the given instant:
// not revoked and not past expiry.
func (s *Session) Active(now time.Time) bool {
	return !s.IsRevoked && now.Before(s.ExpiresAt)
}

// RemainingTTL returns the session's remaining lifetime at the given
// instant, or zero if already expired.
func (s *Session) RemainingTTL(now time.Time) time.Duration {
	if !now.Before(s.ExpiresAt) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// SessionInfo is session metadata as listed to the owning user.
type SessionInfo struct {
	JTI            string    `json:"jti"`
	DeviceID       string    `json:"device_id,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	IsCurrent      bool      `json:"is_current"`
}
