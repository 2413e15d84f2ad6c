package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/bursar/internal/config"
	"github.com/harunnryd/bursar/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bursar",
	Short: "Bursar approval chat daemon",
	Long:  `Bursar polls the approval gateway for pending spend requests and answers user questions about them, exactly once each.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.bursar/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("server.port", config.DefaultServerPort, "server port")
	rootCmd.PersistentFlags().String("context.workspace", "", "workspace directory holding context documents and state")
	rootCmd.PersistentFlags().String("gateway.api_base", "", "approval gateway base URL (overrides credentials document)")
	rootCmd.PersistentFlags().String("gateway.agent_id", "", "agent identity (overrides credentials document)")
	rootCmd.PersistentFlags().String("models.override", "", "force a specific model, bypassing the roster")
	rootCmd.PersistentFlags().String("poll.schedule", "", "poll cadence (cron expression or @every duration)")
}
