// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

// Package api provides the HTTP surface: auth and session endpoints, item
// CRUD, interactions, and the daily feed. Handlers translate between JSON
// and the core packages; business rules live below this layer.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hoodstech/hoods-be-main/internal/auth"
	"github.com/hoodstech/hoods-be-main/internal/cache"
	"github.com/hoodstech/hoods-be-main/internal/config"
	"github.com/hoodstech/hoods-be-main/internal/database"
	"github.com/hoodstech/hoods-be-main/internal/feed"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

// Store is the persistence surface the handlers need, implemented by
// *database.DB and faked in tests.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// Items
	CreateItem(ctx context.Context, item *models.Item, tags []database.TagSpec) error
	ItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ItemDetail(ctx context.Context, id uuid.UUID) (*models.ItemDetail, error)
	ItemDetails(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ItemDetail, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	AddItemImage(ctx context.Context, img *models.ItemImage, maxPerItem int) error

	// Interactions
	UpsertInteraction(ctx context.Context, in *models.Interaction) (*models.Interaction, error)
	DeleteInteraction(ctx context.Context, userID, itemID uuid.UUID) error
	FavoriteItemIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Pinger reports storage liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	store     Store
	pinger    Pinger
	sessions  *auth.Manager
	cursor    *feed.Cursor
	itemCache *cache.Cache
	cfg       *config.Config
}

// NewHandler wires the HTTP handlers.
func NewHandler(store Store, pinger Pinger, sessions *auth.Manager, cursor *feed.Cursor, itemCache *cache.Cache, cfg *config.Config) *Handler {
	return &Handler{
		store:     store,
		pinger:    pinger,
		sessions:  sessions,
		cursor:    cursor,
		itemCache: itemCache,
		cfg:       cfg,
	}
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"status": "alive"},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthReady reports readiness: the database must answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.pinger == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Database not available", nil)
		return
	}
	if err := h.pinger.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Database not reachable", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"status": "ready"},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}
