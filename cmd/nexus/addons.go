// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon"
	"github.com/RaidcoreGG/Nexus-sub000/internal/control"
)

// Output formats for addon listings.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// addonClient is the control surface the addons commands use.
type addonClient interface {
	Addons(ctx context.Context) ([]addon.Info, error)
	Addon(ctx context.Context, path string) (addon.Info, error)
	Action(ctx context.Context, action, path string) error
	Toggle(ctx context.Context, action, path string, on bool) error
}

var _ addonClient = (*control.Client)(nil)

// clientFactory is replaced in tests.
var clientFactory = func() (addonClient, error) {
	return newControlClient()
}

// NewAddonsCmd creates the addons subcommand tree.
func NewAddonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addons",
		Short: "Inspect and manage addons of a running host",
		Long: `Inspect and manage the addons of a running host through its control socket.
Actions are queued and applied on the host's next pass.`,
	}

	cmd.AddCommand(newAddonsListCmd())
	cmd.AddCommand(newAddonsInfoCmd())

	for _, a := range []struct {
		name  string
		short string
	}{
		{"load", "Load an addon"},
		{"unload", "Unload an addon"},
		{"reload", "Unload and load an addon again"},
		{"uninstall", "Unload an addon and delete its file"},
		{control.ActionEnable, "Enable an addon and clear disable-until-update"},
		{control.ActionDisable, "Disable an addon across restarts"},
		{control.ActionCheckUpdates, "Check for an addon update now, even when paused"},
	} {
		cmd.AddCommand(newAddonActionCmd(a.name, a.short))
	}

	for _, t := range []struct {
		name  string
		short string
	}{
		{control.ActionFavorite, "Mark an addon as a favorite"},
		{control.ActionPauseUpdates, "Pause automatic update checks for an addon"},
		{control.ActionPrereleases, "Allow prerelease updates for an addon"},
	} {
		cmd.AddCommand(newAddonToggleCmd(t.name, t.short))
	}

	return cmd
}

func newAddonsListCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List addons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientFactory()
			if err != nil {
				return err
			}
			infos, err := client.Addons(commandContext(cmd))
			if err != nil {
				return err
			}
			return writeAddons(cmd.OutOrStdout(), output, infos)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format (table, json or yaml)")
	return cmd
}

func newAddonsInfoCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "info <path>",
		Short: "Show one addon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFactory()
			if err != nil {
				return err
			}
			info, err := client.Addon(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			if output == outputTable {
				output = outputYAML
			}
			return writeAddons(cmd.OutOrStdout(), output, info)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputYAML, "output format (json or yaml)")
	return cmd
}

func newAddonActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <path>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFactory()
			if err != nil {
				return err
			}
			if err := client.Action(commandContext(cmd), action, args[0]); err != nil {
				return err
			}
			cmd.Printf("%s queued for %s\n", action, args[0])
			return nil
		},
	}
}

func newAddonToggleCmd(action, short string) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   action + " <path>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFactory()
			if err != nil {
				return err
			}
			if err := client.Toggle(commandContext(cmd), action, args[0], !off); err != nil {
				return err
			}
			state := "on"
			if off {
				state = "off"
			}
			cmd.Printf("%s %s for %s\n", action, state, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "clear the setting instead of setting it")
	return cmd
}

// writeAddons renders v, a []addon.Info or addon.Info, in format.
func writeAddons(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return oops.Wrapf(err, "encode json")
		}
		return nil
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return oops.Wrapf(err, "encode yaml")
		}
		return oops.Wrap(enc.Close())
	case outputTable:
		infos, ok := v.([]addon.Info)
		if !ok {
			return oops.Errorf("table output needs a list")
		}
		return writeAddonTable(w, infos)
	default:
		return oops.Errorf("unknown output format %q", format)
	}
}

func writeAddonTable(w io.Writer, infos []addon.Info) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tVERSION\tSTATE\tSIGNATURE\tFLAGS\tFILE")
	for _, info := range infos {
		name := info.Name
		if name == "" {
			name = "-"
		}
		ver := info.Version
		if ver == "" {
			ver = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			name, ver, info.State, info.Signature, markers(info), baseName(info.Path))
	}
	return oops.Wrap(tw.Flush())
}

// markers summarizes the per-addon preferences shown in the table.
func markers(info addon.Info) string {
	var m []string
	if info.IsFavorite {
		m = append(m, "fav")
	}
	if info.IsDisabledUntilUpdate {
		m = append(m, "disabled-until-update")
	}
	if info.IsFlaggedForDisable {
		m = append(m, "disable-pending")
	}
	if info.IsFlaggedForEnable {
		m = append(m, "enable-pending")
	}
	if info.IsFlaggedForUninstall {
		m = append(m, "uninstall-pending")
	}
	if info.IsWaitingForUnload {
		m = append(m, "unloading")
	}
	if info.IsPausingUpdates {
		m = append(m, "updates-paused")
	}
	if info.IsCheckingForUpdates {
		m = append(m, "checking")
	}
	if len(m) == 0 {
		return "-"
	}
	return strings.Join(m, ",")
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
