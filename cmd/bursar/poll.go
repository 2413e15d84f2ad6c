package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harunnryd/bursar/internal/daemon/components"

	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run the poll loop in the foreground",
	Long:  `Runs the approval poll loop attached to the terminal. With --once a single cycle executes and a JSON summary is printed, which is the recommended smoke test after changing credentials or models.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withPoller(ctx, func(ctx context.Context, pollerComp *components.PollerComponent) error {
			engine := pollerComp.GetEngine()

			if once {
				summary, err := engine.RunOnce(ctx)
				if err != nil {
					return fmt.Errorf("poll cycle failed: %w", err)
				}

				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			return engine.Run(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().Bool("once", false, "Run a single cycle and print a JSON summary")
}
