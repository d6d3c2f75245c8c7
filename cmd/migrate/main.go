// Command migrate applies or rolls back the schema of the SQL store named by
// STORE_DRIVER.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/signage-pairing/internal/config"
	"github.com/iliyamo/signage-pairing/internal/database"
)

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Manage the signage database schema",
	SilenceUsage: true,
}

func directionCmd(direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   direction,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			var dialect, url string
			switch cfg.StoreDriver {
			case config.DriverSQLite:
				dialect, url = "sqlite", database.SQLiteMigrateURL(cfg.SQLitePath)
			case config.DriverMySQL:
				dialect, url = "mysql", database.MySQLMigrateURL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			default:
				return fmt.Errorf("store driver %q has no schema", cfg.StoreDriver)
			}
			if err := database.Migrate(dialect, url, direction); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: %s ok\n", dialect, direction)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(directionCmd("up", "Apply all pending migrations"))
	rootCmd.AddCommand(directionCmd("down", "Roll back every migration"))
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
