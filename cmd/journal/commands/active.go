package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	activeThresholdMs int64
	activeTool        string
	activeFormatStr   string
)

var activeCmd = &cobra.Command{
	Use:   "active",
	Short: "Entries at or above a duration threshold, optionally restricted to one tool",
	RunE:  runActive,
}

func init() {
	rootCmd.AddCommand(activeCmd)
	activeCmd.Flags().Int64Var(&activeThresholdMs, "threshold-ms", 0, "minimum duration_ms to include")
	activeCmd.Flags().StringVar(&activeTool, "tool", "", "restrict to this tool")
	activeCmd.Flags().StringVar(&activeFormatStr, "format", "table", "output format: table, json, jsonl, csv, compact")
}

func runActive(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(activeFormatStr)
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	entries, err := eng.Active(cmd.Context(), activeThresholdMs, activeTool)
	if err != nil {
		return err
	}
	return writeEntries(os.Stdout, entries, format)
}
