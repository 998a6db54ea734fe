// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/RaidcoreGG/Nexus-sub000/internal/control"
)

// HostStatus holds the status information for a running host.
type HostStatus struct {
	Running       bool           `json:"running"`
	Ready         bool           `json:"ready"`
	Health        string         `json:"health,omitempty"`
	PID           int            `json:"pid,omitempty"`
	UptimeSeconds int64          `json:"uptime_seconds,omitempty"`
	AddonsDir     string         `json:"addons_dir,omitempty"`
	Addons        int            `json:"addons"`
	States        map[string]int `json:"states,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of the running addon host",
		Long:  `Show the health of the running addon host and how many addons are in each state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newControlClient()
			if err != nil {
				return err
			}
			return runStatus(cmd, client, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, client *control.Client, cfg *statusConfig) error {
	status := queryHostStatus(commandContext(cmd), client)

	if cfg.jsonOutput {
		output, err := formatStatusJSON(status)
		if err != nil {
			return err
		}
		cmd.Println(output)
		return nil
	}

	cmd.Print(formatStatusTable(status))
	return nil
}

// queryHostStatus asks the control socket for health and status.
func queryHostStatus(ctx context.Context, client *control.Client) HostStatus {
	var status HostStatus
	health, err := client.Health(ctx)
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	status.Running = true
	status.Health = health.Status

	resp, err := client.Status(ctx)
	if err != nil {
		return status
	}
	status.Running = resp.Running
	status.Ready = resp.Ready
	status.PID = resp.PID
	status.UptimeSeconds = resp.UptimeSeconds
	status.AddonsDir = resp.AddonsDir
	status.Addons = resp.Addons
	status.States = resp.States
	return status
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status HostStatus) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !status.Running {
		reason := "not running"
		if status.Error != "" {
			reason = status.Error
		}
		_, _ = fmt.Fprintf(w, "HOST\tstopped\t%s\n", reason)
		_ = w.Flush()
		return buf.String()
	}

	_, _ = fmt.Fprintf(w, "HOST\trunning\n")
	_, _ = fmt.Fprintf(w, "HEALTH\t%s\n", status.Health)
	_, _ = fmt.Fprintf(w, "READY\t%t\n", status.Ready)
	_, _ = fmt.Fprintf(w, "PID\t%d\n", status.PID)
	_, _ = fmt.Fprintf(w, "UPTIME\t%s\n", formatUptime(status.UptimeSeconds))
	_, _ = fmt.Fprintf(w, "ADDONS DIR\t%s\n", status.AddonsDir)
	_, _ = fmt.Fprintf(w, "ADDONS\t%d\n", status.Addons)

	states := make([]string, 0, len(status.States))
	for state := range status.States {
		states = append(states, state)
	}
	sort.Strings(states)
	for _, state := range states {
		_, _ = fmt.Fprintf(w, "  %s\t%d\n", state, status.States[state])
	}

	_ = w.Flush()
	return buf.String()
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(status HostStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", oops.Wrapf(err, "marshal status")
	}
	return string(data), nil
}

// formatUptime formats seconds into a human-readable duration.
func formatUptime(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
