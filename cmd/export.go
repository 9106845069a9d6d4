package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/coursebot/internal/excel"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Export learner progress to a spreadsheet",
	Args:  cobra.ExactArgs(1),
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

		rows, err := store.Statistics.LearnerProgress(cmd.Context())
		if err != nil {
			return err
		}
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		if err := excel.ExportProgress(f, rows); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d learners to %s\n", len(rows), args[0])
		return nil
	},
}
