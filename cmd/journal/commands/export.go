package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/engine"
)

const exportPageSize = 1000

var (
	exportFilters  []string
	exportText     string
	exportDateFrom string
	exportDateTo   string
	exportFormat   string
	exportOutput   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full matching result set in one of five formats",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringArrayVar(&exportFilters, "filter", nil, "field=value filter, repeatable")
	exportCmd.Flags().StringVar(&exportText, "text", "", "full-text search term")
	exportCmd.Flags().StringVar(&exportDateFrom, "date-from", "", "inclusive start date")
	exportCmd.Flags().StringVar(&exportDateTo, "date-to", "", "inclusive end date")
	exportCmd.Flags().StringVar(&exportFormat, "format", "jsonl", "output format: table, json, jsonl, csv, compact")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(exportFormat)
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	var w io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	var all []*codec.Entry
	offset := 0
	for {
		result, err := eng.Query(cmd.Context(), engine.QueryRequest{
			Filters: parseFilters(exportFilters), TextSearch: exportText,
			DateFrom: exportDateFrom, DateTo: exportDateTo,
			Limit: exportPageSize, Offset: offset, OrderBy: "timestamp",
		})
		if err != nil {
			return err
		}
		all = append(all, result.Entries...)
		if !result.HasMore {
			break
		}
		offset += exportPageSize
	}

	return writeEntries(w, all, format)
}
