package cli

import (
	"fmt"

	"office-chat/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the chat schema and seed RBAC policies",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := database.Connect()
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := database.Migrate(db); err != nil {
		return err
	}
	if _, err := database.Casbin(db); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
	return nil
}
