package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solatis/routekeeper/internal/logging"
)

// Version is the routekeeper release.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "routekeeper",
	Short: "Routekeeper workflow routing and assignment rule engine",
	Long: `Routekeeper compiles branching rules into gateway expressions, resolves
step assignees from assignment rules, exports outcome options and stores
parallel completion policies.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...); RK_DB_URL overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() (zerolog.Logger, error) {
	logger, err := logging.New(logLevel, logFormat, os.Stderr)
	if err != nil {
		return zerolog.Nop(), err
	}
	return logger.With().Str("version", Version).Logger(), nil
}
