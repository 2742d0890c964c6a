package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "voyager",
	Short: "Marine habitat data pipeline",
	Long:  "Collects shark occurrence records and ocean environmental data, standardizes everything onto a common weekly grid, and derives habitat products like absence points and nursery suitability.",
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
