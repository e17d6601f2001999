// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

// handlers_test.go - shared test fixture: an in-memory store implementing
// the api, feed, and session store contracts, and a full router wired the
// way main wires it (real auth middleware, real token manager).
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hoodstech/hoods-be-main/internal/auth"
	"github.com/hoodstech/hoods-be-main/internal/cache"
	"github.com/hoodstech/hoods-be-main/internal/config"
	"github.com/hoodstech/hoods-be-main/internal/database"
	"github.com/hoodstech/hoods-be-main/internal/feed"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

// fakeStore is a mutex-guarded in-memory implementation of the api Store,
// feed Store, and auth SessionStore contracts.
type fakeStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*models.User
	items        map[uuid.UUID]*models.Item
	itemTags     map[uuid.UUID][]models.Tag
	images       map[uuid.UUID][]models.ItemImage
	interactions map[uuid.UUID]map[uuid.UUID]*models.Interaction // userID -> itemID
	feedEntries  map[string][]models.DailyFeedEntry              // userID|date
	sessions     map[string]*models.Session
	tagIDs       map[string]uuid.UUID

	// interactionSeq orders interactions by insertion so favorites
	// listings are deterministic even when timestamps collide.
	interactionSeq map[uuid.UUID]map[uuid.UUID]int64
	seq            int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[uuid.UUID]*models.User),
		items:        make(map[uuid.UUID]*models.Item),
		itemTags:     make(map[uuid.UUID][]models.Tag),
		images:       make(map[uuid.UUID][]models.ItemImage),
		interactions: make(map[uuid.UUID]map[uuid.UUID]*models.Interaction),
		feedEntries:  make(map[string][]models.DailyFeedEntry),
		sessions:     make(map[string]*models.Session),
		tagIDs:       make(map[string]uuid.UUID),

		interactionSeq: make(map[uuid.UUID]map[uuid.UUID]int64),
	}
}

func (s *fakeStore) Ping(context.Context) error { return nil }

// --- users ---

func (s *fakeStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return models.NewRuleError("user.duplicate_email", "user", "email %s is already registered", u.Email)
		}
	}
	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *fakeStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

// --- items ---

func (s *fakeStore) CreateItem(_ context.Context, item *models.Item, tags []database.TagSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *item
	s.items[item.ID] = &copied
	for _, spec := range tags {
		id, ok := s.tagIDs[spec.Name]
		if !ok {
			id = uuid.New()
			s.tagIDs[spec.Name] = id
		}
		s.itemTags[item.ID] = append(s.itemTags[item.ID], models.Tag{
			ID:       id,
			Name:     spec.Name,
			Category: spec.Category,
		})
	}
	return nil
}

func (s *fakeStore) ItemByID(_ context.Context, id uuid.UUID) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (s *fakeStore) ItemDetail(ctx context.Context, id uuid.UUID) (*models.ItemDetail, error) {
	details, err := s.ItemDetails(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return details[id], nil
}

func (s *fakeStore) ItemDetails(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ItemDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	details := make(map[uuid.UUID]*models.ItemDetail)
	for _, id := range ids {
		item, ok := s.items[id]
		if !ok {
			continue
		}
		detail := &models.ItemDetail{
			Item:   *item,
			Tags:   append([]models.Tag(nil), s.itemTags[id]...),
			Images: append([]models.ItemImage(nil), s.images[id]...),
		}
		details[id] = detail
	}
	return details, nil
}

func (s *fakeStore) UpdateItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return models.ErrNotFound
	}
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *fakeStore) DeleteItem(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.items, id)
	delete(s.itemTags, id)
	delete(s.images, id)
	for _, byItem := range s.interactions {
		delete(byItem, id)
	}
	return nil
}

func (s *fakeStore) AddItemImage(_ context.Context, img *models.ItemImage, maxPerItem int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[img.ItemID]; !ok {
		return models.ErrNotFound
	}
	if len(s.images[img.ItemID]) >= maxPerItem {
		return models.NewRuleError("item.max_images", "item", "item already has %d images", maxPerItem)
	}
	s.images[img.ItemID] = append(s.images[img.ItemID], *img)
	return nil
}

// --- interactions ---

func (s *fakeStore) UpsertInteraction(_ context.Context, in *models.Interaction) (*models.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byItem, ok := s.interactions[in.UserID]
	if !ok {
		byItem = make(map[uuid.UUID]*models.Interaction)
		s.interactions[in.UserID] = byItem
		s.interactionSeq[in.UserID] = make(map[uuid.UUID]int64)
	}
	if existing, ok := byItem[in.ItemID]; ok {
		existing.Type = in.Type
		copied := *existing
		return &copied, nil
	}
	s.seq++
	s.interactionSeq[in.UserID][in.ItemID] = s.seq
	copied := *in
	byItem[in.ItemID] = &copied
	result := copied
	return &result, nil
}

func (s *fakeStore) DeleteInteraction(_ context.Context, userID, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byItem, ok := s.interactions[userID]; ok {
		delete(byItem, itemID)
	}
	return nil
}

func (s *fakeStore) FavoriteItemIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type fav struct {
		id  uuid.UUID
		seq int64
	}
	var favs []fav
	for itemID, in := range s.interactions[userID] {
		if in.Type == models.InteractionFavorite {
			favs = append(favs, fav{itemID, s.interactionSeq[userID][itemID]})
		}
	}
	sort.Slice(favs, func(i, j int) bool { return favs[i].seq < favs[j].seq })
	ids := make([]uuid.UUID, len(favs))
	for i, f := range favs {
		ids[i] = f.id
	}
	return ids, nil
}

// --- feed store ---

func feedKey(userID uuid.UUID, date time.Time) string {
	return userID.String() + "|" + date.Format("2006-01-02")
}

func (s *fakeStore) UserTagSignals(_ context.Context, userID uuid.UUID) ([]feed.TagSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var signals []feed.TagSignal
	for itemID, in := range s.interactions[userID] {
		for _, tag := range s.itemTags[itemID] {
			signals = append(signals, feed.TagSignal{Type: in.Type, TagID: tag.ID})
		}
	}
	return signals, nil
}

func (s *fakeStore) CandidateItems(_ context.Context, userID uuid.UUID, limit int) ([]feed.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []feed.Candidate
	for id, item := range s.items {
		if !item.IsActive {
			continue
		}
		if _, interacted := s.interactions[userID][id]; interacted {
			continue
		}
		var tagIDs []uuid.UUID
		for _, tag := range s.itemTags[id] {
			tagIDs = append(tagIDs, tag.ID)
		}
		candidates = append(candidates, feed.Candidate{ItemID: id, TagIDs: tagIDs})
		if len(candidates) >= limit {
			break
		}
	}
	return candidates, nil
}

func (s *fakeStore) FeedExists(_ context.Context, userID uuid.UUID, feedDate time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.feedEntries[feedKey(userID, feedDate)]) > 0, nil
}

func (s *fakeStore) InsertFeedEntries(_ context.Context, entries []models.DailyFeedEntry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := feedKey(entries[0].UserID, entries[0].FeedDate)
	if len(s.feedEntries[key]) > 0 {
		return feed.ErrFeedExists
	}
	s.feedEntries[key] = append([]models.DailyFeedEntry(nil), entries...)
	return nil
}

func (s *fakeStore) FeedEntries(_ context.Context, userID uuid.UUID, feedDate time.Time) ([]models.DailyFeedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DailyFeedEntry(nil), s.feedEntries[feedKey(userID, feedDate)]...), nil
}

func (s *fakeStore) ClaimNextUnshown(_ context.Context, userID uuid.UUID, feedDate time.Time, now time.Time) (*models.DailyFeedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.feedEntries[feedKey(userID, feedDate)]
	for i := range entries {
		if entries[i].ShownAt == nil {
			shown := now
			entries[i].ShownAt = &shown
			copied := entries[i]
			return &copied, nil
		}
	}
	return nil, nil
}

// --- auth session store (delegates to the same mutex) ---

func (s *fakeStore) CreateSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.JTI] = &copied
	return nil
}

func (s *fakeStore) GetSession(_ context.Context, jti string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[jti]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *fakeStore) GetSessionByRefreshJTI(_ context.Context, refreshJTI string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.RefreshJTI == refreshJTI {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CountActiveSessions(_ context.Context, userID uuid.UUID, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, session := range s.sessions {
		if session.UserID == userID && session.Active(now) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) OldestActiveSession(_ context.Context, userID uuid.UUID, now time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *models.Session
	for _, session := range s.sessions {
		if session.UserID != userID || !session.Active(now) {
			continue
		}
		if oldest == nil || session.LastActivityAt.Before(oldest.LastActivityAt) {
			oldest = session
		}
	}
	if oldest == nil {
		return nil, nil
	}
	copied := *oldest
	return &copied, nil
}

func (s *fakeStore) RevokeSession(_ context.Context, jti string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[jti]; ok && !session.IsRevoked {
		session.IsRevoked = true
		session.RevokedAt = &now
	}
	return nil
}

func (s *fakeStore) RevokeAllForUser(_ context.Context, userID uuid.UUID, now time.Time) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var revoked []models.Session
	for _, session := range s.sessions {
		if session.UserID == userID && !session.IsRevoked {
			session.IsRevoked = true
			session.RevokedAt = &now
			revoked = append(revoked, *session)
		}
	}
	return revoked, nil
}

func (s *fakeStore) RevokeAllForUserExcept(_ context.Context, userID uuid.UUID, keepJTI string, now time.Time) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var revoked []models.Session
	for _, session := range s.sessions {
		if session.UserID == userID && session.JTI != keepJTI && !session.IsRevoked {
			session.IsRevoked = true
			session.RevokedAt = &now
			revoked = append(revoked, *session)
		}
	}
	return revoked, nil
}

func (s *fakeStore) UpdateSessionActivity(_ context.Context, jti string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[jti]; ok {
		session.LastActivityAt = now
	}
	return nil
}

func (s *fakeStore) RotateSessionTokens(_ context.Context, oldJTI, newJTI, newRefreshJTI string, issuedAt, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[oldJTI]
	if !ok || session.IsRevoked {
		return models.ErrNotFound
	}
	delete(s.sessions, oldJTI)
	session.JTI = newJTI
	session.RefreshJTI = newRefreshJTI
	session.IssuedAt = issuedAt
	session.ExpiresAt = expiresAt
	session.LastActivityAt = issuedAt
	s.sessions[newJTI] = session
	return nil
}

func (s *fakeStore) ListSessionsByUser(_ context.Context, userID uuid.UUID) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sessions []models.Session
	for _, session := range s.sessions {
		if session.UserID == userID {
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

func (s *fakeStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for jti, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, jti)
			deleted++
		}
	}
	return deleted, nil
}

// --- server fixture ---

type testServer struct {
	*httptest.Server
	store *fakeStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Security.JWTSecret = "test-secret-test-secret-test-secret!"
	cfg.Feed.DailySize = 5
	cfg.Items.MaxImagesPerItem = 2
	cfg.Server.CORSOrigins = []string{"*"}

	store := newFakeStore()

	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	blacklist := auth.NewMemoryBlacklist()
	t.Cleanup(func() { _ = blacklist.Close() })
	sessions := auth.NewManager(store, tokens, blacklist, &cfg.Security)

	generator := feed.NewGenerator(store, feed.GeneratorConfig{
		DailySize:      cfg.Feed.DailySize,
		CandidateLimit: cfg.Feed.CandidateLimit,
		Location:       time.UTC,
		Seed:           1,
	})
	cursor := feed.NewCursor(store, generator)

	itemCache := cache.New(time.Minute)
	t.Cleanup(itemCache.Close)

	handler := NewHandler(store, store, sessions, cursor, itemCache, cfg)
	authMW := auth.NewMiddleware(tokens, sessions)
	router := NewRouter(handler, authMW, NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitDisabled:  true,
	}))

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store}
}

// do issues a JSON request, optionally authenticated, and decodes the
// envelope.
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, *models.APIResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, &envelope
}

// decodeData re-marshals the envelope's data field into dst.
func decodeData(t *testing.T, envelope *models.APIResponse, dst interface{}) {
	t.Helper()
	data, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

// registerUser registers a user through the API and returns the access
// and refresh tokens.
func (ts *testServer) registerUser(t *testing.T, email, role string) (access, refresh string) {
	t.Helper()
	status, envelope := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":        email,
		"password":     "correct horse battery staple",
		"display_name": "Test User",
		"role":         role,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d (%+v)", email, status, envelope.Error)
	}
	var data authResponse
	decodeData(t, envelope, &data)
	return data.Tokens.AccessToken, data.Tokens.RefreshToken
}

// createItem creates an item as the given seller token and returns its id.
func (ts *testServer) createItem(t *testing.T, sellerToken, title string, tags []map[string]string) uuid.UUID {
	t.Helper()
	body := map[string]interface{}{
		"title": title,
		"price": map[string]interface{}{"amount": 1500, "currency": "EUR"},
	}
	if tags != nil {
		body["tags"] = tags
	}
	status, envelope := ts.do(t, http.MethodPost, "/api/v1/items", sellerToken, body)
	if status != http.StatusCreated {
		t.Fatalf("create item %q: status %d (%+v)", title, status, envelope.Error)
	}
	var detail models.ItemDetail
	decodeData(t, envelope, &detail)
	if detail.ID == uuid.Nil {
		t.Fatal("created item has no id")
	}
	return detail.ID
}

func itemPath(id uuid.UUID, suffix string) string {
	return fmt.Sprintf("/api/v1/items/%s%s", id, suffix)
}
