package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/routekeeper/internal/core/config"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the action types of the outcome catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		registry, err := loadRegistry(cfg.Catalog)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{"actionTypes": registry.Types()})
	},
}

func init() {
	rootCmd.AddCommand(actionsCmd)
}
