// pfadmin is the operator CLI: user management, parse debugging, and
// the date-repair tool for mis-dated imports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"personalfinance/internal/config"
	"personalfinance/internal/database"
	"personalfinance/internal/logger"
	"personalfinance/internal/version"
)

var cfg *config.Config

func main() {
	logger.Init()

	root := &cobra.Command{
		Use:           "pfadmin",
		Short:         "personalfinance administration tool",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(os.Getenv("PF_CONFIG"))
			return err
		},
	}

	root.AddCommand(newCreateUserCmd())
	root.AddCommand(newFixDatesCmd())
	root.AddCommand(newParseCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func openDB() (*database.DB, error) {
	db, err := database.Open(cfg.Server.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	return db, nil
}
