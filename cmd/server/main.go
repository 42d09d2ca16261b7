// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

// Package main is the entry point for the Pulse server.
//
// Pulse serves live registration statistics for the DaKshaa festival:
// participant totals, category and department breakdowns, college
// leaderboards, and on-spot registration counts for the current day.
// It reads the registration database directly, keeps an in-memory
// snapshot current through Postgres LISTEN/NOTIFY, and fans updates out
// over REST and websockets.
//
// # Startup order
//
//  1. Configuration (koanf: defaults, optional YAML, environment)
//  2. Logging (zerolog)
//  3. Database pool + schema migrations
//  4. Supervision tree (suture): reconciler, websocket hub, HTTP server
//
// # Configuration
//
// Only DATABASE_URL is required. See config.Load for the full list of
// recognized variables; a .env file in the working directory is also
// honored.
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests (10s budget), the websocket hub closes its
// clients, and the change-feed connection is released.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dakshaa-fest/pulse/internal/api"
	"github.com/dakshaa-fest/pulse/internal/config"
	"github.com/dakshaa-fest/pulse/internal/database"
	"github.com/dakshaa-fest/pulse/internal/logging"
	"github.com/dakshaa-fest/pulse/internal/supervisor"
	"github.com/dakshaa-fest/pulse/internal/supervisor/services"
	syncer "github.com/dakshaa-fest/pulse/internal/sync"
	"github.com/dakshaa-fest/pulse/internal/websocket"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Pulse")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.MigrateOnStart {
		if err := database.RunMigrations(cfg.Database.URL); err != nil {
			logging.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	logging.Info().Msg("Database connected")

	// Messaging layer: hub first, the reconciler publishes into it.
	hub := websocket.NewHub()

	var fallback syncer.TeamSource
	if cfg.TeamCheck.URL != "" {
		fallback = syncer.NewTeamCheckClient(cfg.TeamCheck.URL)
		logging.Info().Str("url", cfg.TeamCheck.URL).Msg("Team cross-check fallback enabled")
	}

	store := database.NewStore(db)
	listener := database.NewListener(cfg.Database)
	reconciler := syncer.NewReconciler(cfg.Reconciler, store, listener, fallback, hub)

	handler := api.NewHandler(reconciler, db, version)
	router := api.NewRouter(handler, api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	}), websocket.ServeWS(hub, cfg.WebSocket.SendBufferSize))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(reconciler)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Pulse stopped")
}
