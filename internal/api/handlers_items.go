// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

/*
handlers_items.go - seller listing endpoints

Ownership: mutation endpoints require the caller to be the item's seller
(admins excepted). Reads are open to any authenticated user and served
through the item-detail cache; every mutation invalidates the cached entry.
*/
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hoodstech/hoods-be-main/internal/auth"
	"github.com/hoodstech/hoods-be-main/internal/database"
	"github.com/hoodstech/hoods-be-main/internal/metrics"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

type priceRequest struct {
	Amount   int64  `json:"amount" validate:"gte=0"`
	Currency string `json:"currency" validate:"required,iso4217"`
}

type tagRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=64"`
	Category string `json:"category" validate:"required,min=1,max=64"`
}

type createItemRequest struct {
	Title       string       `json:"title" validate:"required,min=1,max=200"`
	Description *string      `json:"description" validate:"omitempty,max=5000"`
	Price       priceRequest `json:"price" validate:"required"`
	Tags        []tagRequest `json:"tags" validate:"omitempty,max=20,dive"`
}

type updateItemRequest struct {
	Title       *string       `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string       `json:"description" validate:"omitempty,max=5000"`
	Price       *priceRequest `json:"price" validate:"omitempty"`
	IsActive    *bool         `json:"is_active"`
}

type addImageRequest struct {
	URL      string `json:"url" validate:"required,url,max=2000"`
	Position int    `json:"position" validate:"gte=0,lte=100"`
}

// CreateItem creates a listing owned by the calling seller.
//
// Method: POST
// Path: /api/v1/items
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, &req) {
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	sellerID, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", err)
		return
	}

	now := time.Now()
	item := &models.Item{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		Price: models.Price{
			Amount:   req.Price.Amount,
			Currency: req.Price.Currency,
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tags := make([]database.TagSpec, len(req.Tags))
	for i, t := range req.Tags {
		tags[i] = database.TagSpec{Name: t.Name, Category: t.Category}
	}

	if err := h.store.CreateItem(r.Context(), item, tags); err != nil {
		respondDomainError(w, err)
		return
	}

	detail, err := h.store.ItemDetail(r.Context(), item.ID)
	if err != nil || detail == nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load created item", err)
		return
	}

	respondJSON(w, http.StatusCreated, &models.APIResponse{
		Status:   "success",
		Data:     detail,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// GetItem returns an item with tags and images, served from the detail
// cache when possible.
//
// Method: GET
// Path: /api/v1/items/{itemID}
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlUUID(w, r, "itemID")
	if !ok {
		return
	}

	if cached, hit := h.itemCache.Get(itemCacheKey(itemID)); hit {
		metrics.ItemCacheHits.Inc()
		respondJSON(w, http.StatusOK, &models.APIResponse{
			Status:   "success",
			Data:     cached.(*models.ItemDetail),
			Metadata: models.Metadata{Timestamp: time.Now(), Cached: true},
		})
		return
	}
	metrics.ItemCacheMisses.Inc()

	start := time.Now()
	detail, err := h.store.ItemDetail(r.Context(), itemID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load item", err)
		return
	}
	if detail == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Item not found", nil)
		return
	}

	h.itemCache.Set(itemCacheKey(itemID), detail)
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   detail,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// UpdateItem partially updates an owned listing.
//
// Method: PATCH
// Path: /api/v1/items/{itemID}
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlUUID(w, r, "itemID")
	if !ok {
		return
	}

	var req updateItemRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, &req) {
		return
	}

	item, ok := h.ownedItem(w, r, itemID)
	if !ok {
		return
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.Price != nil {
		item.Price = models.Price{Amount: req.Price.Amount, Currency: req.Price.Currency}
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	item.UpdatedAt = time.Now()

	if err := h.store.UpdateItem(r.Context(), item); err != nil {
		respondDomainError(w, err)
		return
	}
	h.itemCache.Delete(itemCacheKey(itemID))

	detail, err := h.store.ItemDetail(r.Context(), itemID)
	if err != nil || detail == nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load updated item", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     detail,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// DeleteItem removes an owned listing. Interactions, images, tag links,
// and feed entries cascade away with it.
//
// Method: DELETE
// Path: /api/v1/items/{itemID}
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlUUID(w, r, "itemID")
	if !ok {
		return
	}

	if _, ok := h.ownedItem(w, r, itemID); !ok {
		return
	}

	if err := h.store.DeleteItem(r.Context(), itemID); err != nil {
		respondDomainError(w, err)
		return
	}
	h.itemCache.Delete(itemCacheKey(itemID))

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"message": "item deleted"},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// AddItemImage attaches an image to an owned listing, subject to the
// per-item cap.
//
// Method: POST
// Path: /api/v1/items/{itemID}/images
func (h *Handler) AddItemImage(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlUUID(w, r, "itemID")
	if !ok {
		return
	}

	var req addImageRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, &req) {
		return
	}

	if _, ok := h.ownedItem(w, r, itemID); !ok {
		return
	}

	img := &models.ItemImage{
		ID:        uuid.New(),
		ItemID:    itemID,
		URL:       req.URL,
		Position:  req.Position,
		CreatedAt: time.Now(),
	}
	if err := h.store.AddItemImage(r.Context(), img, h.cfg.Items.MaxImagesPerItem); err != nil {
		respondDomainError(w, err)
		return
	}
	h.itemCache.Delete(itemCacheKey(itemID))

	respondJSON(w, http.StatusCreated, &models.APIResponse{
		Status:   "success",
		Data:     img,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// ownedItem loads the item and enforces that the caller owns it (admins
// bypass). Writes the response on failure.
func (h *Handler) ownedItem(w http.ResponseWriter, r *http.Request, itemID uuid.UUID) (*models.Item, bool) {
	claims := auth.ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", err)
		return nil, false
	}

	item, err := h.store.ItemByID(r.Context(), itemID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load item", err)
		return nil, false
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Item not found", nil)
		return nil, false
	}

	if item.SellerID != userID && claims.Role != string(models.RoleAdmin) {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "You do not own this item", nil)
		return nil, false
	}
	return item, true
}

func itemCacheKey(id uuid.UUID) string {
	return "item:" + id.String()
}
