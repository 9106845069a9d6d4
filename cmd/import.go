package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/coursebot/internal/excel"
)

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx|file.csv>",
	Short: "Import a course from a spreadsheet",
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

		importCfg := excel.DefaultImportConfig()
		importCfg.CourseTitle, _ = cmd.Flags().GetString("title")
		importCfg.SheetName, _ = cmd.Flags().GetString("sheet")
		if inactive, _ := cmd.Flags().GetBool("inactive"); inactive {
			importCfg.Activate = false
		}

		res, err := excel.ImportCourseFile(cmd.Context(), args[0], importCfg, store)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Imported course %d: %d lessons, %d tests, %d questions (%d rows, %d skipped)\n",
			res.CourseID, res.Lessons, res.Tests, res.Questions, res.TotalProcessed, res.Skipped)
		for _, e := range res.Errors {
			fmt.Fprintf(out, "  skipped: %s\n", e)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().String("title", "", "Course title (defaults to the file name)")
	importCmd.Flags().String("sheet", "", "Sheet to import (defaults to the first sheet)")
	importCmd.Flags().Bool("inactive", false, "Import the course without activating it")
}
