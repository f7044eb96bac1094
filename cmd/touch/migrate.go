package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stereo-express/touch"
	"github.com/stereo-express/touch/pkg/cl/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := database.New(touch.MigrationsFS, cfg, log)
		if err := db.Start(cmd.Context()); err != nil {
			return err
		}
		defer db.Stop(cmd.Context())

		fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations not yet applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := database.New(touch.MigrationsFS, cfg, log)
		if err := db.Connect(cmd.Context()); err != nil {
			return err
		}
		defer db.Stop(cmd.Context())

		pending, err := db.Migrator().Pending(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(pending) == 0 {
			fmt.Fprintln(out, "No pending migrations")
			return nil
		}
		for _, m := range pending {
			fmt.Fprintf(out, "pending  %s-%s\n", m.Datetime, m.Name)
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
}
