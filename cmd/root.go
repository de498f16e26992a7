package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dashboard-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dashboard-engine",
	Short: "Sales dashboard backend",
	Long:  "Scores, flags, dedups, and scopes CRM accounts and opportunities into role-aware dashboard views, with live-editable scoring and risk configuration.",
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
