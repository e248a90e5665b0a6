// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

// Package testinfra starts throwaway Postgres and Redis containers for
// integration tests through testcontainers-go.
//
// Every file is behind the integration build tag:
//
//	go test -tags integration ./internal/store/... ./internal/fanout/...
//
// Tests call SkipIfNoDocker first so the suite degrades to a skip on hosts
// without a Docker daemon.
package testinfra
