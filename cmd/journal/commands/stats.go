package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anthropics/labjournal/internal/engine"
	"github.com/anthropics/labjournal/internal/index"
)

var (
	statsGroupBy      string
	statsAggregations []string
	statsFilters      []string
	statsDateFrom     string
	statsDateTo       string
	statsFormatStr    string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Overall summary, or grouped counts and aggregations",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsGroupBy, "group-by", "", "column to group by (tool, outcome, author, template, date, entry_type, error_type)")
	statsCmd.Flags().StringArrayVar(&statsAggregations, "agg", nil, "op:field aggregation, repeatable (e.g. avg:duration_ms)")
	statsCmd.Flags().StringArrayVar(&statsFilters, "filter", nil, "field=value filter, repeatable")
	statsCmd.Flags().StringVar(&statsDateFrom, "date-from", "", "inclusive start date")
	statsCmd.Flags().StringVar(&statsDateTo, "date-to", "", "inclusive end date")
	statsCmd.Flags().StringVar(&statsFormatStr, "format", "table", "output format: table, json, jsonl, csv, compact")
}

func runStats(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(statsFormatStr)
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.Stats(cmd.Context(), engine.StatsRequest{
		GroupBy: statsGroupBy, Aggregations: statsAggregations,
		Filters: parseFilters(statsFilters), DateFrom: statsDateFrom, DateTo: statsDateTo,
	})
	if err != nil {
		return err
	}

	if format == formatJSON || format == formatJSONL {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if result.Overall != nil {
			return enc.Encode(result.Overall)
		}
		return enc.Encode(result.Groups)
	}

	if result.Overall != nil {
		return writeOverallStats(os.Stdout, result.Overall)
	}
	return writeGroupedStats(os.Stdout, result.Groups)
}

func writeOverallStats(w io.Writer, s *index.Stats) error {
	fmt.Fprintf(w, "total entries:    %d\n", s.TotalEntries)
	fmt.Fprintf(w, "total amendments: %d\n", s.TotalAmendments)
	fmt.Fprintf(w, "date range:       %s .. %s\n\n", s.EarliestDate, s.LatestDate)
	writeCountMap(w, "by author", s.AuthorCounts)
	writeCountMap(w, "by tool", s.ToolCounts)
	writeCountMap(w, "by outcome", s.OutcomeCounts)
	return nil
}

func writeCountMap(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%d\n", k, counts[k])
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func writeGroupedStats(w io.Writer, groups []index.AggregateGroup) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tCOUNT\tAGGREGATIONS")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", g.Key, g.Count, formatNumeric(g.Numeric))
	}
	return tw.Flush()
}

func formatNumeric(m map[string]float64) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%.2f", k, m[k])
	}
	return out
}
