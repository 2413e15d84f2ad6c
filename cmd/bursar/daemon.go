package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/bursar/internal/daemon"
	"github.com/harunnryd/bursar/internal/daemon/components"

	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start bursar in background daemon mode",
	Long:  `Starts bursar as a long-running service using component lifecycle orchestration. It polls the approval gateway on a schedule, exposes health and metrics endpoints, and optionally receives webhook kicks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		forceClean, _ := cmd.Flags().GetBool("force-clean-locks")

		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}
		daemonMgr.SetForceCleanup(forceClean)

		stateComp := components.NewStateStoreComponent(cfg)
		alertsComp := components.NewAlertsComponent(cfg)
		pollerComp := components.NewPollerComponent(cfg, stateComp, alertsComp)
		httpComp := components.NewHTTPServerComponent(daemonMgr, cfg, pollerComp)

		daemonMgr.AddComponent(stateComp)
		daemonMgr.AddComponent(alertsComp)
		daemonMgr.AddComponent(pollerComp)
		daemonMgr.AddComponent(httpComp)

		slog.Info("Bursar daemon starting up...", "port", cfg.Server.Port, "workspace", cfg.Context.Workspace)
		if err := daemonMgr.Start(context.Background()); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Bursar daemon stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Bursar daemon stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().Bool("force-clean-locks", false, "Force cleanup of stale lock files (default: warn-only)")
}
