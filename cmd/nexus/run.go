// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon"
	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
	"github.com/RaidcoreGG/Nexus-sub000/internal/control"
	"github.com/RaidcoreGG/Nexus-sub000/internal/events"
	"github.com/RaidcoreGG/Nexus-sub000/internal/keybinds"
	"github.com/RaidcoreGG/Nexus-sub000/internal/logging"
	"github.com/RaidcoreGG/Nexus-sub000/internal/observability"
	"github.com/RaidcoreGG/Nexus-sub000/internal/remote"
	"github.com/RaidcoreGG/Nexus-sub000/internal/render"
	"github.com/RaidcoreGG/Nexus-sub000/internal/resources"
	"github.com/RaidcoreGG/Nexus-sub000/internal/update"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

// shutdownTimeout bounds the graceful shutdown of servers and addons.
const shutdownTimeout = 10 * time.Second

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the addon host",
		Long: `Run the addon host. Addons in the addon directory are loaded on start
and reloaded whenever their files change.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadHostConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runHostWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	registerHostFlags(cmd.Flags())
	return cmd
}

func defaultRunDeps(deps *RunDeps) *RunDeps {
	if deps == nil {
		deps = &RunDeps{}
	}
	if deps.OpenerFactory == nil {
		deps.OpenerFactory = func(logger *slog.Logger) module.Opener {
			return module.DefaultOpeners(logger)
		}
	}
	if deps.UpdaterFactory == nil {
		deps.UpdaterFactory = newUpdater
	}
	if deps.ControlServerFactory == nil {
		deps.ControlServerFactory = func(path string, addons control.Addons, shutdownFunc control.ShutdownFunc) ControlServer {
			return control.NewServer(path, addons, shutdownFunc)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.LogWriter == nil {
		deps.LogWriter = os.Stderr
	}
	return deps
}

// newUpdater wires the update providers to their remote endpoints.
func newUpdater(cfg *hostConfig, logger *slog.Logger) addon.Updater {
	ua := remote.WithUserAgent(remote.DefaultUserAgent + "/" + version)
	return update.NewDefaultOrchestrator(update.Sources{
		Raidcore: remote.New(cfg.APIBaseURL, ua),
		GitHub:   remote.New(cfg.GitHubBaseURL, ua),
		Web:      remote.New("", ua),
	}, update.WithLogger(logger.With("component", "update")))
}

// runHostWithDeps runs the host with injectable dependencies until a
// signal arrives, ctx is cancelled or a shutdown is requested.
// If deps is nil, default implementations are used.
func runHostWithDeps(ctx context.Context, cfg *hostConfig, cmd *cobra.Command, deps *RunDeps) error {
	deps = defaultRunDeps(deps)

	if err := cfg.Validate(); err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}
	if err := cfg.ensureDirs(); err != nil {
		return err
	}

	logger := logging.Setup(logging.Options{
		Service: "nexus",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
	}, deps.LogWriter)
	slog.SetDefault(logger)

	logger.Info("starting addon host",
		"addons_dir", cfg.AddonsDir,
		"state_dir", cfg.StateDir,
		"log_format", cfg.LogFormat,
	)

	bus := events.NewBus(events.WithLogger(logger))
	binds := keybinds.NewRegistry(keybinds.WithLogger(logger))
	renders := render.NewRegistry(render.WithLogger(logger))
	store := resources.NewStore(logger)

	tables := capability.NewTables(capability.Services{
		Logger:    logger.With("component", "addon-log"),
		Events:    bus,
		Keybinds:  binds,
		Resources: store,
		Render:    renders,
	})

	loader, err := addon.New(cfg.loaderConfig(), addon.Deps{
		Opener:    deps.OpenerFactory(logger),
		Tables:    tables,
		Updater:   deps.UpdaterFactory(cfg, logger),
		Scrubbers: []addon.ReferenceScrubber{bus, binds, renders, store},
		Logger:    logger,
	})
	if err != nil {
		return oops.Wrapf(err, "create addon loader")
	}
	bus.SetOwnerResolver(loader.OwnerOf)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := loader.Start(ctx); err != nil {
		return oops.Wrapf(err, "start addon loader")
	}

	shutdownLoader := func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := loader.Shutdown(shutdownCtx); err != nil {
			errutil.LogWarn(logger, "addon shutdown incomplete", err)
		}
	}

	controlServer := deps.ControlServerFactory(cfg.ControlSocket, loader, func() { cancel() })
	if err := controlServer.Start(); err != nil {
		shutdownLoader()
		return oops.Wrapf(err, "start control socket")
	}

	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, loader.Ready)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if stopErr := controlServer.Stop(stopCtx); stopErr != nil {
				slog.Warn("failed to stop control socket during cleanup", "error", stopErr)
			}
			shutdownLoader()
			return oops.Wrapf(err, "start observability server")
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Addon host started")
	logger.Info("addon host ready",
		"control_socket", controlServer.Path(),
		"addons", len(loader.Addons()),
	)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	if err := controlServer.Stop(stopCtx); err != nil {
		slog.Warn("error stopping control socket", "error", err)
	}
	shutdownLoader()
	if obsServer != nil {
		if err := obsServer.Stop(stopCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when errCh reports a server failure.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
