// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/hoodstech/hoods-be-main/internal/models"
)

func TestItemLifecycle(t *testing.T) {
	ts := newTestServer(t)
	seller, _ := ts.registerUser(t, "seller@example.com", "seller")

	itemID := ts.createItem(t, seller, "Vintage denim jacket", []map[string]string{
		{"name": "denim", "category": "material"},
		{"name": "jacket", "category": "kind"},
	})

	// Read it back.
	status, envelope := ts.do(t, http.MethodGet, itemPath(itemID, ""), seller, nil)
	if status != http.StatusOK {
		t.Fatalf("get item: status %d", status)
	}
	var detail models.ItemDetail
	decodeData(t, envelope, &detail)
	if detail.Title != "Vintage denim jacket" {
		t.Errorf("title = %q", detail.Title)
	}
	if len(detail.Tags) != 2 {
		t.Errorf("tags = %d, want 2", len(detail.Tags))
	}
	if !detail.IsActive {
		t.Error("new item not active")
	}

	// Second read is served from the cache.
	status, envelope = ts.do(t, http.MethodGet, itemPath(itemID, ""), seller, nil)
	if status != http.StatusOK {
		t.Fatalf("cached get: status %d", status)
	}
	if !envelope.Metadata.Cached {
		t.Error("second read not flagged cached")
	}

	// Partial update; the cache entry must be dropped.
	newTitle := "Vintage denim jacket, washed"
	status, envelope = ts.do(t, http.MethodPatch, itemPath(itemID, ""), seller, map[string]interface{}{
		"title": newTitle,
		"price": map[string]interface{}{"amount": 2500, "currency": "EUR"},
	})
	if status != http.StatusOK {
		t.Fatalf("patch: status %d (%+v)", status, envelope.Error)
	}
	decodeData(t, envelope, &detail)
	if detail.Title != newTitle {
		t.Errorf("patched title = %q", detail.Title)
	}
	if detail.Price.Amount != 2500 {
		t.Errorf("patched price = %d, want 2500", detail.Price.Amount)
	}

	status, envelope = ts.do(t, http.MethodGet, itemPath(itemID, ""), seller, nil)
	if status != http.StatusOK {
		t.Fatalf("get after patch: status %d", status)
	}
	if envelope.Metadata.Cached {
		t.Error("stale cache entry survived the update")
	}
	decodeData(t, envelope, &detail)
	if detail.Title != newTitle {
		t.Errorf("read back title = %q, want %q", detail.Title, newTitle)
	}

	// Delete, then the item is gone.
	status, _ = ts.do(t, http.MethodDelete, itemPath(itemID, ""), seller, nil)
	if status != http.StatusOK {
		t.Fatalf("delete: status %d", status)
	}
	status, envelope = ts.do(t, http.MethodGet, itemPath(itemID, ""), seller, nil)
	if status != http.StatusNotFound {
		t.Errorf("get deleted: status %d, want 404", status)
	}
	if envelope.Error == nil || envelope.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v, want NOT_FOUND", envelope.Error)
	}
}

func TestItemOwnership(t *testing.T) {
	ts := newTestServer(t)
	owner, _ := ts.registerUser(t, "owner@example.com", "seller")
	rival, _ := ts.registerUser(t, "rival@example.com", "seller")
	admin, _ := ts.registerUser(t, "admin@example.com", "admin")
	buyer, _ := ts.registerUser(t, "buyer@example.com", "buyer")

	itemID := ts.createItem(t, owner, "Owned item", nil)

	// A different seller cannot mutate the listing.
	for _, tc := range []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPatch, itemPath(itemID, ""), map[string]string{"title": "hijacked"}},
		{http.MethodDelete, itemPath(itemID, ""), nil},
		{http.MethodPost, itemPath(itemID, "/images"), map[string]interface{}{"url": "https://img.example.com/x.jpg", "position": 0}},
	} {
		status, envelope := ts.do(t, tc.method, tc.path, rival, tc.body)
		if status != http.StatusForbidden {
			t.Errorf("%s %s as rival: status %d, want 403", tc.method, tc.path, status)
		}
		if envelope.Error == nil || envelope.Error.Code != "FORBIDDEN" {
			t.Errorf("%s %s: error %+v, want FORBIDDEN", tc.method, tc.path, envelope.Error)
		}
	}

	// Any authenticated user may read.
	status, _ := ts.do(t, http.MethodGet, itemPath(itemID, ""), buyer, nil)
	if status != http.StatusOK {
		t.Errorf("buyer read: status %d", status)
	}

	// Buyers cannot create listings at all.
	status, envelope := ts.do(t, http.MethodPost, "/api/v1/items", buyer, map[string]interface{}{
		"title": "Not allowed",
		"price": map[string]interface{}{"amount": 100, "currency": "EUR"},
	})
	if status != http.StatusForbidden {
		t.Errorf("buyer create: status %d, want 403", status)
	}
	if envelope.Error == nil || envelope.Error.Code != "FORBIDDEN" {
		t.Errorf("buyer create: error %+v", envelope.Error)
	}

	// Admins may mutate anyone's listing.
	status, _ = ts.do(t, http.MethodPatch, itemPath(itemID, ""), admin, map[string]string{
		"title": "Moderated title",
	})
	if status != http.StatusOK {
		t.Errorf("admin patch: status %d, want 200", status)
	}
}

func TestItemImageCeiling(t *testing.T) {
	ts := newTestServer(t)
	seller, _ := ts.registerUser(t, "seller@example.com", "seller")
	itemID := ts.createItem(t, seller, "Photogenic item", nil)

	// Fixture config caps images at 2.
	for i := 0; i < 2; i++ {
		status, envelope := ts.do(t, http.MethodPost, itemPath(itemID, "/images"), seller, map[string]interface{}{
			"url":      fmt.Sprintf("https://img.example.com/%d.jpg", i),
			"position": i,
		})
		if status != http.StatusCreated {
			t.Fatalf("image %d: status %d (%+v)", i, status, envelope.Error)
		}
	}

	status, envelope := ts.do(t, http.MethodPost, itemPath(itemID, "/images"), seller, map[string]interface{}{
		"url":      "https://img.example.com/overflow.jpg",
		"position": 2,
	})
	if status != http.StatusConflict {
		t.Fatalf("overflow image: status %d, want 409", status)
	}
	if envelope.Error == nil || envelope.Error.Code != "RULE_VIOLATION" {
		t.Errorf("overflow error = %+v, want RULE_VIOLATION", envelope.Error)
	}

	status, envelope = ts.do(t, http.MethodGet, itemPath(itemID, ""), seller, nil)
	if status != http.StatusOK {
		t.Fatalf("get: status %d", status)
	}
	var detail models.ItemDetail
	decodeData(t, envelope, &detail)
	if len(detail.Images) != 2 {
		t.Errorf("images = %d, want 2", len(detail.Images))
	}
}

func TestCreateItemValidation(t *testing.T) {
	ts := newTestServer(t)
	seller, _ := ts.registerUser(t, "seller@example.com", "seller")

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing title", map[string]interface{}{
			"price": map[string]interface{}{"amount": 100, "currency": "EUR"},
		}},
		{"negative price", map[string]interface{}{
			"title": "X",
			"price": map[string]interface{}{"amount": -1, "currency": "EUR"},
		}},
		{"bogus currency", map[string]interface{}{
			"title": "X",
			"price": map[string]interface{}{"amount": 100, "currency": "DOUBLOONS"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, envelope := ts.do(t, http.MethodPost, "/api/v1/items", seller, tc.body)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", status)
			}
			if envelope.Error == nil || envelope.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("error = %+v, want VALIDATION_ERROR", envelope.Error)
			}
		})
	}

	// Unknown fields are rejected outright.
	status, envelope := ts.do(t, http.MethodPost, "/api/v1/items", seller, map[string]interface{}{
		"title":  "X",
		"price":  map[string]interface{}{"amount": 100, "currency": "EUR"},
		"stonks": true,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d, want 400", status)
	}
	if envelope.Error == nil || envelope.Error.Code != "INVALID_JSON" {
		t.Errorf("unknown field error = %+v, want INVALID_JSON", envelope.Error)
	}
}

func TestGetItemBadUUID(t *testing.T) {
	ts := newTestServer(t)
	buyer, _ := ts.registerUser(t, "buyer@example.com", "buyer")

	status, _ := ts.do(t, http.MethodGet, "/api/v1/items/not-a-uuid", buyer, nil)
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}

	status, _ = ts.do(t, http.MethodGet, itemPath(uuid.New(), ""), buyer, nil)
	if status != http.StatusNotFound {
		t.Errorf("missing item: status %d, want 404", status)
	}
}
