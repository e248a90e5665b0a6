// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/chatrelay/internal/config"
	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/store"
)

// initStore opens Postgres when a URL is configured, otherwise the
// in-memory store.
func initStore(ctx context.Context, cfg *config.DatabaseConfig) (store.Store, error) {
	if cfg.URL == "" {
		m := store.NewMemory()
		if cfg.SeedDevUsers {
			store.SeedDevelopment(m)
			logging.Info().Msg("In-memory store seeded with development users")
		}
		logging.Warn().Msg("No database URL configured, messages are kept in memory only")
		return m, nil
	}

	pg, err := store.NewPostgres(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logging.Info().Msg("Postgres schema migrated")
	}
	logging.Info().Msg("Postgres store initialized")
	return pg, nil
}
