package command

// root.go defines the libctl root command and the shared config/logger
// setup every subcommand runs first.

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"libraryhub/internal/config"
	"libraryhub/internal/logger"
)

var (
	cfg *config.Config
	lg  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "libctl",
	Short: "libctl - libraryhub operator tool",
	Long: `libctl runs maintenance tasks against a libraryhub deployment:
- apply or roll back database migrations
- run the overdue and reservation sweeps by hand
- create staff accounts

Configuration comes from the same environment (and .env file) as the API server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		lg, err = logger.New(cfg)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if lg != nil {
			_ = lg.Sync()
		}
	},
}

// Execute runs the root command; called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "✗", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(userCmd)
}
