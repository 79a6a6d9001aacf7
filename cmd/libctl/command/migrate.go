package command

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"libraryhub/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status|version]",
	Short:     "Apply, roll back or inspect database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) == 1 {
			command = args[0]
		}
		if cfg.UsesMemoryStore() {
			return fmt.Errorf("STORE_DRIVER=memory has no schema to migrate")
		}

		db, err := database.OpenSQL(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(db, command, lg); err != nil {
			return err
		}
		color.Green("✓ migrate %s done", command)
		return nil
	},
}
