package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/anthropics/labjournal/internal/engine"
)

var (
	searchAuthor    string
	searchDateFrom  string
	searchDateTo    string
	searchLimit     int
	searchOffset    int
	searchFormatStr string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over journal entries, optionally filtered by author",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchAuthor, "author", "", "restrict to this author")
	searchCmd.Flags().StringVar(&searchDateFrom, "date-from", "", "inclusive start date")
	searchCmd.Flags().StringVar(&searchDateTo, "date-to", "", "inclusive end date")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "max rows returned")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "rows to skip")
	searchCmd.Flags().StringVar(&searchFormatStr, "format", "table", "output format: table, json, jsonl, csv, compact")
}

func runSearch(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(searchFormatStr)
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.Search(cmd.Context(), engine.SearchRequest{
		Query: args[0], Author: searchAuthor,
		DateFrom: searchDateFrom, DateTo: searchDateTo,
		Limit: searchLimit, Offset: searchOffset,
	})
	if err != nil {
		return err
	}
	return writeEntries(os.Stdout, result.Entries, format)
}
