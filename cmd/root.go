package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tunis-skies/flightwatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "flightwatch",
	Short: "Flight delay tracker for Tunis-Carthage",
	Long:  "Fetches scheduled and actual flight times for the tracked airlines, reconciles them into canonical per-flight records, and renders daily delay reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
