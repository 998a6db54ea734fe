// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/RaidcoreGG/Nexus-sub000/internal/control"
)

// Global flags available to all subcommands.
var (
	configFile string
	socketPath string
)

// NewRootCmd creates the root command for the Nexus CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nexus",
		Short: "Nexus - addon host with hot reload",
		Long: `Nexus loads addon modules from a directory, hands each one a
versioned capability table and reloads them when their files change.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/nexus/nexus.yaml)")
	cmd.PersistentFlags().StringVar(&socketPath, "socket", "", "control socket of a running host (default: XDG_RUNTIME_DIR/nexus/nexus.sock)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewAddonsCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// newControlClient returns a client for the socket selected by --socket.
func newControlClient() (*control.Client, error) {
	path := socketPath
	if path == "" {
		def, err := control.SocketPath()
		if err != nil {
			return nil, err
		}
		path = def
	}
	return control.NewClient(path), nil
}
