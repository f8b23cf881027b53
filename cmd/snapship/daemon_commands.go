package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"snapship/internal/config"
	"snapship/internal/daemon"
	"snapship/internal/daemonctl"
	"snapship/internal/journal"
	"snapship/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the snapship daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg := ctx.configValue()

			running, err := daemon.InstanceRunning(cfg)
			if err == nil && running {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}

			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Launching daemon...")
			if err := daemonctl.Launch(exe, daemonctl.LaunchOptions{ConfigPath: ctx.rawConfigFlag()}); err != nil {
				return err
			}
			if err := daemonctl.WaitForStart(cfg, 10*time.Second); err != nil {
				return fmt.Errorf("%w (check `snapship logs` for details)", err)
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the snapship daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.configValue(), 15*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit gracefully; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, preflight, and upload status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), ctx, cmd)
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func runStatus(cmdCtx context.Context, ctx *commandContext, cmd *cobra.Command) error {
	cfg := ctx.configValue()
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}

	running, lockErr := daemon.InstanceRunning(cfg)
	_, pid, _ := daemonctl.ProcessInfo(cfg)
	switch {
	case lockErr != nil:
		fmt.Fprintln(stdout, renderStatusLine("Snapship", statusWarn, fmt.Sprintf("Unknown (%v)", lockErr), colorize))
	case running && pid > 0:
		fmt.Fprintln(stdout, renderStatusLine("Snapship", statusOK, fmt.Sprintf("Running (pid %d)", pid), colorize))
	case running:
		fmt.Fprintln(stdout, renderStatusLine("Snapship", statusOK, "Running", colorize))
	default:
		fmt.Fprintln(stdout, renderStatusLine("Snapship", statusWarn, "Not running (run `snapship start`)", colorize))
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		fmt.Fprintln(stdout, renderStatusLine("Notifications", statusOK, "Configured", colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Notifications", statusInfo, "Not configured", colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, result := range preflight.RunAll(cmdCtx, cfg) {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Upload History", colorize) {
		fmt.Fprintln(stdout, line)
	}
	rows, err := uploadHistoryRows(cmdCtx, cfg)
	if err != nil {
		fmt.Fprintln(stdout, renderStatusLine("Journal", statusWarn, err.Error(), colorize))
		return nil
	}
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "No uploads recorded")
		return nil
	}
	fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	return nil
}

func uploadHistoryRows(cmdCtx context.Context, cfg *config.Config) ([][]string, error) {
	store, err := journal.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	queryCtx, cancel := context.WithTimeout(cmdCtx, 2*time.Second)
	defer cancel()
	stats, err := store.Stats(queryCtx)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return statusCountRows(stats), nil
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func statusCountRows(stats map[journal.Status]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[journal.Status(key)])})
	}
	return rows
}
