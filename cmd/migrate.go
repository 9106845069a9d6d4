package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema and seed admins",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := toolEnv(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()

		store, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
		return nil
	},
}
