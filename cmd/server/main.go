// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

// Package main is the entry point for the Hoods marketplace server.
//
// Startup order:
//
//  1. Configuration: koanf v2 layering defaults, optional YAML file, and
//     HOODS_-prefixed environment variables
//  2. Logging: zerolog, JSON or console format
//  3. Postgres connection pool
//  4. Badger-backed token blacklist (falls back to in-memory when no
//     cache path is configured)
//  5. JWT token manager and session manager
//  6. Feed generator and cursor
//  7. HTTP router (chi) wrapped in a suture supervision tree together
//     with the session janitor and badger GC loops
//
// The server shuts down gracefully on SIGINT and SIGTERM: the listener
// stops accepting connections, in-flight requests get the configured
// shutdown timeout to drain, then the pool and blacklist close.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hoodstech/hoods-be-main/internal/api"
	"github.com/hoodstech/hoods-be-main/internal/auth"
	"github.com/hoodstech/hoods-be-main/internal/cache"
	"github.com/hoodstech/hoods-be-main/internal/config"
	"github.com/hoodstech/hoods-be-main/internal/database"
	"github.com/hoodstech/hoods-be-main/internal/feed"
	"github.com/hoodstech/hoods-be-main/internal/logging"
	"github.com/hoodstech/hoods-be-main/internal/supervisor"
	"github.com/hoodstech/hoods-be-main/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet; write plainly and exit.
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("log_level", cfg.Logging.Level).
		Msg("starting hoods server")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("server exited with error")
	}
	logging.Info().Msg("server stopped")
}

func run(cfg *config.Config) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close database")
		}
	}()

	blacklist, badgerDB, err := auth.OpenBlacklist(cfg.Cache.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := blacklist.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close blacklist")
		}
	}()

	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		return err
	}
	sessions := auth.NewManager(db, tokens, blacklist, &cfg.Security)

	location, err := time.LoadLocation(cfg.Feed.Timezone)
	if err != nil {
		return err
	}
	generator := feed.NewGenerator(db, feed.GeneratorConfig{
		DailySize:      cfg.Feed.DailySize,
		CandidateLimit: cfg.Feed.CandidateLimit,
		Location:       location,
	})
	cursor := feed.NewCursor(db, generator)

	itemCache := cache.New(cfg.Cache.ItemTTL)
	defer itemCache.Close()

	handler := api.NewHandler(db, db, sessions, cursor, itemCache, cfg)
	authMW := auth.NewMiddleware(tokens, sessions)
	router := api.NewRouter(handler, authMW, api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
	}))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddMaintenanceService(services.NewJanitorService(sessions, cfg.Security.SessionCleanupInterval))
	if badgerDB != nil {
		tree.AddMaintenanceService(services.NewBadgerGCService(badgerDB, cfg.Cache.GCInterval))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	err = tree.Serve(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}
