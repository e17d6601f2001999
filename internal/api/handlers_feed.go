// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

/*
handlers_feed.go - daily feed and interaction endpoints

The first feed request of a user's calendar day triggers generation; both
endpoints go through feed.Cursor, which guarantees the partition exists
before serving from it.
*/
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/hoodstech/hoods-be-main/internal/auth"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

type interactionRequest struct {
	Type string `json:"type" validate:"required,interaction"`
}

// Feed returns today's full partition in position order, shown entries
// included.
//
// Method: GET
// Path: /api/v1/feed
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", err)
		return
	}

	start := time.Now()
	entries, err := h.cursor.Today(r.Context(), userID)
	if err != nil {
		h.respondFeedError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   entries,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// FeedNext returns the next unshown entry of today's partition, marking
// it shown. Data is null once the partition is exhausted; the client
// comes back tomorrow.
//
// Method: GET
// Path: /api/v1/feed/next
func (h *Handler) FeedNext(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", err)
		return
	}

	start := time.Now()
	entry, err := h.cursor.Next(r.Context(), userID)
	if err != nil {
		h.respondFeedError(w, err)
		return
	}

	// entry == nil means exhausted for today.
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   entry,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// PutInteraction records or replaces the caller's reaction to an item.
//
// Method: PUT
// Path: /api/v1/items/{itemID}/interaction
func (h *Handler) PutInteraction(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlUUID(w, r, "itemID")
	if !ok {
		return
	}

	var req interactionRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, &req) {
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", err)
		return
	}

	item, err := h.store.ItemByID(r.Context(), itemID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load item", err)
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Item not found", nil)
		return
	}

	interaction, err := h.store.UpsertInteraction(r.Context(), &models.Interaction{
		UserID:    userID,
		ItemID:    itemID,
		Type:      models.InteractionType(req.Type),
		CreatedAt: time.Now(),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     interaction,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// DeleteInteraction clears the caller's reaction to an item. Removing a
// nonexistent interaction succeeds.
//
// Method: DELETE
// Path: /api/v1/items/{itemID}/interaction
func (h *Handler) DeleteInteraction(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlUUID(w, r, "itemID")
	if !ok {
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", err)
		return
	}

	if err := h.store.DeleteInteraction(r.Context(), userID, itemID); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"message": "interaction removed"},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Favorites lists the caller's favorited items, oldest favorite first,
// with full item details. Favorited items that have since been deleted
// drop out silently.
//
// Method: GET
// Path: /api/v1/favorites
func (h *Handler) Favorites(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", err)
		return
	}

	start := time.Now()
	ids, err := h.store.FavoriteItemIDs(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load favorites", err)
		return
	}

	details, err := h.store.ItemDetails(r.Context(), ids)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load favorite items", err)
		return
	}

	favorites := make([]*models.ItemDetail, 0, len(ids))
	for _, id := range ids {
		if detail, ok := details[id]; ok {
			favorites = append(favorites, detail)
		}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   favorites,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

func (h *Handler) respondFeedError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrFeedItemMissing) {
		respondError(w, http.StatusInternalServerError, "FEED_INCONSISTENT", "Feed references a missing item", err)
		return
	}
	respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to serve feed", err)
}
