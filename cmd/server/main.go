// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/chatrelay/internal/api"
	"github.com/tomtom215/chatrelay/internal/auth"
	"github.com/tomtom215/chatrelay/internal/config"
	"github.com/tomtom215/chatrelay/internal/delivery"
	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/session"
	"github.com/tomtom215/chatrelay/internal/supervisor"
	"github.com/tomtom215/chatrelay/internal/supervisor/services"
	ws "github.com/tomtom215/chatrelay/internal/websocket"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
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
		Str("addr", cfg.Server.Addr()).
		Str("environment", cfg.Server.Environment).
		Str("fanout_backend", cfg.Fanout.Backend).
		Bool("postgres", cfg.Database.URL != "").
		Msg("Starting Chatrelay with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := initStore(ctx, &cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer st.Close()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		st.Close()
		logging.Fatal().Err(err).Msg("Failed to initialize JWT verifier")
	}
	authenticator := auth.NewAuthenticator(jwtManager, st, cfg.Delivery.LookupTimeout)

	registry := session.NewMemoryRegistry()
	hub := ws.NewHub(registry, cfg.WebSocket)
	local := delivery.NewLocalFanout(registry, hub)

	fc := initFanout(ctx, cfg, local)
	if fc.presence != nil {
		registry.SetObserver(fc.presence)
	}

	router := delivery.NewRouter(registry, authenticator, st, st, fc.dispatcher, delivery.Options{
		MaxContentLength: cfg.Delivery.MaxContentLength,
		PersistTimeout:   cfg.Delivery.PersistTimeout,
		LookupTimeout:    cfg.Delivery.LookupTimeout,
	})

	deps := api.Dependencies{
		WebSocket: ws.NewHandler(hub, authenticator, router, cfg.Security),
		Store:     st,
		Registry:  registry,
		Security:  cfg.Security,
		NodeID:    fc.nodeID,
	}
	if fc.bridge != nil {
		deps.Fanout = fc.bridge
	}
	if fc.presence != nil {
		deps.Presence = fc.presence
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(deps).SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// sutureslog needs slog; this bridges it to zerolog.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if fc.bridge != nil {
		tree.AddFanoutService(services.NewFanoutBridgeService(fc.bridge))
	}
	if fc.presence != nil {
		tree.AddFanoutService(services.NewPresenceRefreshService(fc.presence, registry))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("node_id", fc.nodeID).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// errCh delivers exactly one value and is never closed.
	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		treeErr = <-errCh
	case treeErr = <-errCh:
		cancel()
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	// The backbone and embedded server outlive the supervised receive loop.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	fc.Close(shutdownCtx)

	logging.Info().Msg("Application stopped gracefully")
}
