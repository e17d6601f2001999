// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package api

import (
	"net/http"
	"testing"

	"github.com/hoodstech/hoods-be-main/internal/auth"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t)

	access, _ := ts.registerUser(t, "buyer@example.com", "buyer")

	status, envelope := ts.do(t, http.MethodGet, "/api/v1/auth/me", access, nil)
	if status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}
	var user models.User
	decodeData(t, envelope, &user)
	if user.Email != "buyer@example.com" {
		t.Errorf("me email = %q, want buyer@example.com", user.Email)
	}
	if user.Role != models.RoleBuyer {
		t.Errorf("me role = %q, want buyer", user.Role)
	}
	if user.PasswordHash != "" {
		t.Error("me leaked password hash")
	}

	// Fresh login with the same credentials.
	status, envelope = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "buyer@example.com",
		"password": "correct horse battery staple",
	})
	if status != http.StatusOK {
		t.Fatalf("login: status %d (%+v)", status, envelope.Error)
	}
	var data authResponse
	decodeData(t, envelope, &data)
	if data.Tokens.AccessToken == "" || data.Tokens.RefreshToken == "" {
		t.Error("login returned empty tokens")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.registerUser(t, "buyer@example.com", "buyer")

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "buyer@example.com", "not the password, sorry"},
		{"unknown email", "nobody@example.com", "correct horse battery staple"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, envelope := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
				"email":    tc.email,
				"password": tc.password,
			})
			if status != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", status)
			}
			if envelope.Error == nil || envelope.Error.Code != "INVALID_CREDENTIALS" {
				t.Errorf("error = %+v, want INVALID_CREDENTIALS", envelope.Error)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.registerUser(t, "taken@example.com", "buyer")

	status, envelope := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":        "taken@example.com",
		"password":     "another perfectly fine password",
		"display_name": "Second",
		"role":         "seller",
	})
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want 409", status)
	}
	if envelope.Error == nil || envelope.Error.Code != "RULE_VIOLATION" {
		t.Errorf("error = %+v, want RULE_VIOLATION", envelope.Error)
	}
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "not-an-email", "password": "long enough password", "display_name": "X", "role": "buyer"}},
		{"short password", map[string]string{"email": "a@example.com", "password": "short", "display_name": "X", "role": "buyer"}},
		{"invalid role", map[string]string{"email": "a@example.com", "password": "long enough password", "display_name": "X", "role": "superuser"}},
		{"missing display name", map[string]string{"email": "a@example.com", "password": "long enough password", "role": "buyer"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, envelope := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", tc.body)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", status)
			}
			if envelope.Error == nil || envelope.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("error = %+v, want VALIDATION_ERROR", envelope.Error)
			}
		})
	}
}

func TestRefreshRotation(t *testing.T) {
	ts := newTestServer(t)
	access, refresh := ts.registerUser(t, "buyer@example.com", "buyer")

	status, envelope := ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	if status != http.StatusOK {
		t.Fatalf("refresh: status %d (%+v)", status, envelope.Error)
	}
	var data struct {
		Tokens *auth.TokenPair `json:"tokens"`
	}
	decodeData(t, envelope, &data)
	if data.Tokens.AccessToken == "" || data.Tokens.AccessToken == access {
		t.Error("refresh did not mint a new access token")
	}

	// New access token works.
	status, _ = ts.do(t, http.MethodGet, "/api/v1/auth/me", data.Tokens.AccessToken, nil)
	if status != http.StatusOK {
		t.Errorf("rotated access token rejected: status %d", status)
	}

	// The superseded access token is dead.
	status, _ = ts.do(t, http.MethodGet, "/api/v1/auth/me", access, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("old access token still accepted: status %d", status)
	}

	// Replaying the consumed refresh token fails.
	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	if status != http.StatusUnauthorized {
		t.Errorf("refresh replay accepted: status %d", status)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	ts := newTestServer(t)
	access, refresh := ts.registerUser(t, "buyer@example.com", "buyer")

	status, _ := ts.do(t, http.MethodPost, "/api/v1/auth/logout", access, nil)
	if status != http.StatusOK {
		t.Fatalf("logout: status %d", status)
	}

	status, _ = ts.do(t, http.MethodGet, "/api/v1/auth/me", access, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("access token survived logout: status %d", status)
	}
	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	if status != http.StatusUnauthorized {
		t.Errorf("refresh token survived logout: status %d", status)
	}
}

func TestLogoutOthersKeepsCurrent(t *testing.T) {
	ts := newTestServer(t)
	ts.registerUser(t, "buyer@example.com", "buyer")

	// Two more logins, three sessions total.
	var tokens []string
	for i := 0; i < 2; i++ {
		status, envelope := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "buyer@example.com",
			"password": "correct horse battery staple",
		})
		if status != http.StatusOK {
			t.Fatalf("login %d: status %d", i, status)
		}
		var data authResponse
		decodeData(t, envelope, &data)
		tokens = append(tokens, data.Tokens.AccessToken)
	}
	current := tokens[len(tokens)-1]

	status, envelope := ts.do(t, http.MethodPost, "/api/v1/auth/logout-others", current, nil)
	if status != http.StatusOK {
		t.Fatalf("logout-others: status %d", status)
	}
	var result map[string]int
	decodeData(t, envelope, &result)
	if result["revoked"] != 2 {
		t.Errorf("revoked = %d, want 2", result["revoked"])
	}

	status, _ = ts.do(t, http.MethodGet, "/api/v1/auth/me", current, nil)
	if status != http.StatusOK {
		t.Errorf("current session was revoked: status %d", status)
	}
	status, _ = ts.do(t, http.MethodGet, "/api/v1/auth/me", tokens[0], nil)
	if status != http.StatusUnauthorized {
		t.Errorf("other session survived: status %d", status)
	}
}

func TestSessionsListFlagsCurrent(t *testing.T) {
	ts := newTestServer(t)
	access, _ := ts.registerUser(t, "buyer@example.com", "buyer")

	status, envelope := ts.do(t, http.MethodGet, "/api/v1/auth/sessions", access, nil)
	if status != http.StatusOK {
		t.Fatalf("sessions: status %d", status)
	}
	var sessions []models.SessionInfo
	decodeData(t, envelope, &sessions)
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if !sessions[0].IsCurrent {
		t.Error("only session not flagged current")
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodGet, "/api/v1/feed"},
		{http.MethodGet, "/api/v1/favorites"},
		{http.MethodPost, "/api/v1/items"},
	}
	for _, p := range paths {
		status, envelope := ts.do(t, p.method, p.path, "", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("%s %s: status %d, want 401", p.method, p.path, status)
		}
		if envelope.Error == nil || envelope.Error.Code != "UNAUTHORIZED" {
			t.Errorf("%s %s: error %+v, want UNAUTHORIZED", p.method, p.path, envelope.Error)
		}
	}

	// Garbage bearer token is rejected the same way.
	status, _ := ts.do(t, http.MethodGet, "/api/v1/auth/me", "not.a.jwt", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("garbage token: status %d, want 401", status)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.do(t, http.MethodGet, "/api/v1/health/live", "", nil)
	if status != http.StatusOK {
		t.Errorf("live: status %d", status)
	}
	status, _ = ts.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	if status != http.StatusOK {
		t.Errorf("ready: status %d", status)
	}
}
