package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/outrage-civic/outrage-api/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "outrage-api",
	Short: "Civic outreach API server",
	Long:  "Resolves addresses to elected officials, drafts outreach messages via tiered Claude models, analyzes contact webforms, and hosts shared campaigns.",
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
