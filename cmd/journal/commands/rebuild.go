package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Rebuild the secondary index from the daily markdown files on disk",
	RunE:  runRebuildIndex,
}

func init() {
	rootCmd.AddCommand(rebuildIndexCmd)
}

func runRebuildIndex(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.RebuildIndex(cmd.Context(), func(file string, entries int, ferr error) {
		if ferr != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "failed %s: %v\n", file, ferr)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %s (%d entries)\n", file, entries)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d entries indexed", result.FilesProcessed, result.EntriesIndexed)
	if len(result.Errors) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), ", %d errors\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", e.FilePath, e.Message)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
