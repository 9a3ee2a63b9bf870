package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/memeyard/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBMigrateCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the memeyard tables",
		Long:  "Creates the MySQL database when missing, then migrates every table. For SQLite the database file is created on first use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, &flags)
		},
	}

	flags.register(cmd)
	return cmd
}

func runDBMigrate(cmd *cobra.Command, flags *configFlags) error {
	out := cmd.OutOrStdout()

	cfg, err := flags.load(cmd)
	if err != nil {
		return err
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	target := cfg.Database.Path
	if cfg.Database.Driver == "mysql" {
		target = fmt.Sprintf("%s at %s:%d", cfg.Database.Name, cfg.Database.Host, cfg.Database.Port)
	}
	fmt.Fprintf(out, "Database %s ready\n", target)
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	return nil
}
