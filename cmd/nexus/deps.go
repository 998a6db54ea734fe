// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon"
	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
	"github.com/RaidcoreGG/Nexus-sub000/internal/control"
	"github.com/RaidcoreGG/Nexus-sub000/internal/observability"
)

// RunDeps contains injectable dependencies for the run command.
// All fields with nil values will use their default implementations.
type RunDeps struct {
	// OpenerFactory creates the module opener.
	// Default: module.DefaultOpeners
	OpenerFactory func(logger *slog.Logger) module.Opener

	// UpdaterFactory creates the update orchestrator.
	// Default: update.NewDefaultOrchestrator over remote clients
	UpdaterFactory func(cfg *hostConfig, logger *slog.Logger) addon.Updater

	// ControlServerFactory creates the control socket server.
	// Default: control.NewServer
	ControlServerFactory func(path string, addons control.Addons, shutdownFunc control.ShutdownFunc) ControlServer

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// LogWriter receives log output.
	// Default: os.Stderr
	LogWriter io.Writer
}

// ControlServer interface wraps the methods used from control.Server.
type ControlServer interface {
	Start() error
	Stop(ctx context.Context) error
	Path() string
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
