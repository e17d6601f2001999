// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hoodstech/hoods-be-main/internal/auth"
	"github.com/hoodstech/hoods-be-main/internal/middleware"
	"github.com/hoodstech/hoods-be-main/internal/models"
)

// Router assembles the HTTP surface.
type Router struct {
	handler       *Handler
	authMW        *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router over the handlers and middleware.
func NewRouter(handler *Handler, authMW *auth.Middleware, chiMW *ChiMiddleware) *Router {
	return &Router{
		handler:       handler,
		authMW:        authMW,
		chiMiddleware: chiMW,
	}
}

// Setup builds the chi route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// Health probes: permissive rate limit, no auth.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	// Unauthenticated auth endpoints. Login and refresh carry the strict
	// per-IP limit against credential and token guessing.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Post("/register", router.handler.Register)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/refresh", router.handler.Refresh)

		// Session management requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(router.authMW.Authenticate)
			r.Post("/logout", router.handler.Logout)
			r.Post("/logout-all", router.handler.LogoutAll)
			r.Post("/logout-others", router.handler.LogoutOthers)
			r.Get("/me", router.handler.Me)
			r.Get("/sessions", router.handler.Sessions)
		})
	})

	// Authenticated marketplace endpoints.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authMW.Authenticate)

		r.Get("/feed", router.handler.Feed)
		r.Get("/feed/next", router.handler.FeedNext)
		r.Get("/favorites", router.handler.Favorites)

		r.Route("/items", func(r chi.Router) {
			r.With(router.authMW.RequireRole(models.RoleSeller, models.RoleAdmin)).
				Post("/", router.handler.CreateItem)

			r.Route("/{itemID}", func(r chi.Router) {
				r.Get("/", router.handler.GetItem)
				r.Patch("/", router.handler.UpdateItem)
				r.Delete("/", router.handler.DeleteItem)
				r.Post("/images", router.handler.AddItemImage)

				r.Put("/interaction", router.handler.PutInteraction)
				r.Delete("/interaction", router.handler.DeleteInteraction)
			})
		})
	})

	return r
}
