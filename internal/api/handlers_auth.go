// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

/*
handlers_auth.go - registration, login, and session lifecycle endpoints

Login failures are deliberately uniform: unknown email and wrong password
both produce the same INVALID_CREDENTIALS response, and a bcrypt hash
comparison runs in both cases so timing does not betray account existence.
*/
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hoodstech/hoods-be-main/internal/auth"
	"github.com/hoodstech/hoods-be-main/internal/logging"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

// dummyHash is compared against when the email is unknown, equalizing
// login timing between missing users and wrong passwords.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

type registerRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Role        string `json:"role" validate:"required,marketrole"`
	DeviceID    string `json:"device_id" validate:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	DeviceID string `json:"device_id" validate:"omitempty,max=100"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type authResponse struct {
	User   *models.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// Register creates an account and logs it in.
//
// Method: POST
// Path: /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process password", err)
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Role:         models.Role(req.Role),
		CreatedAt:    time.Now(),
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		respondDomainError(w, err)
		return
	}

	tokens, err := h.sessions.CreateSession(r.Context(), user, h.sessionRequest(r, req.DeviceID))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create session", err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("user_id", user.ID.String()).Msg("user registered")
	respondJSON(w, http.StatusCreated, &models.APIResponse{
		Status:   "success",
		Data:     &authResponse{User: user, Tokens: tokens},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Login authenticates email+password and issues a token pair.
//
// Method: POST
// Path: /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, &req) {
		return
	}

	user, err := h.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to look up user", err)
		return
	}

	hash := dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	if !auth.VerifyPassword(hash, req.Password) || user == nil {
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		return
	}

	tokens, err := h.sessions.CreateSession(r.Context(), user, h.sessionRequest(r, req.DeviceID))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create session", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     &authResponse{User: user, Tokens: tokens},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Refresh rotates a token pair. The superseded pair is dead afterwards.
//
// Method: POST
// Path: /api/v1/auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, &req) {
		return
	}

	tokens, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("refresh rejected")
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired refresh token", nil)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]*auth.TokenPair{"tokens": tokens},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Logout revokes the current session.
//
// Method: POST
// Path: /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	if err := h.sessions.Revoke(r.Context(), claims.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke session", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"message": "logged out"},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// LogoutAll revokes every session of the current user, including this one.
//
// Method: POST
// Path: /api/v1/auth/logout-all
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", err)
		return
	}

	revoked, err := h.sessions.RevokeAll(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke sessions", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]int{"revoked": revoked},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// LogoutOthers revokes every session of the current user except this one.
//
// Method: POST
// Path: /api/v1/auth/logout-others
func (h *Handler) LogoutOthers(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", err)
		return
	}

	revoked, err := h.sessions.RevokeOthers(r.Context(), userID, claims.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke sessions", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]int{"revoked": revoked},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Me returns the authenticated user's profile.
//
// Method: GET
// Path: /api/v1/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", err)
		return
	}

	user, err := h.store.UserByID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load user", err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     user,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Sessions lists the user's active sessions with the current one flagged.
//
// Method: GET
// Path: /api/v1/auth/sessions
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", err)
		return
	}

	sessions, err := h.sessions.ListSessions(r.Context(), userID, claims.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list sessions", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     sessions,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

func (h *Handler) sessionRequest(r *http.Request, deviceID string) auth.SessionRequest {
	return auth.SessionRequest{
		DeviceID:  deviceID,
		IPAddress: auth.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
