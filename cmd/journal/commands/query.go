package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anthropics/labjournal/internal/engine"
)

var (
	queryFilters   []string
	queryText      string
	queryDateFrom  string
	queryDateTo    string
	queryLimit     int
	queryOffset    int
	queryOrderBy   string
	queryOrderDesc bool
	queryFormatStr string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Structured retrieval over filters, a date range, and pagination",
	RunE:  runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	addQueryFlags(queryCmd)
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&queryFilters, "filter", nil, "field=value filter, repeatable")
	cmd.Flags().StringVar(&queryText, "text", "", "full-text search term")
	cmd.Flags().StringVar(&queryDateFrom, "date-from", "", "inclusive start date (YYYY-MM-DD, today, yesterday)")
	cmd.Flags().StringVar(&queryDateTo, "date-to", "", "inclusive end date")
	cmd.Flags().IntVar(&queryLimit, "limit", 50, "max rows returned")
	cmd.Flags().IntVar(&queryOffset, "offset", 0, "rows to skip")
	cmd.Flags().StringVar(&queryOrderBy, "order-by", "", "column to order by")
	cmd.Flags().BoolVar(&queryOrderDesc, "desc", false, "order descending")
	cmd.Flags().StringVar(&queryFormatStr, "format", "table", "output format: table, json, jsonl, csv, compact")
}

func parseFilters(raw []string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

func runQuery(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(queryFormatStr)
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.Query(cmd.Context(), engine.QueryRequest{
		Filters: parseFilters(queryFilters), TextSearch: queryText,
		DateFrom: queryDateFrom, DateTo: queryDateTo,
		Limit: queryLimit, Offset: queryOffset,
		OrderBy: queryOrderBy, OrderDesc: queryOrderDesc,
	})
	if err != nil {
		return err
	}
	return writeEntries(os.Stdout, result.Entries, format)
}
