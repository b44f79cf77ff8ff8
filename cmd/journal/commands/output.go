package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/anthropics/labjournal/internal/codec"
)

// outputFormat is the export/query rendering the user asked for.
// Grounded on spec.md §6's "table, json, jsonl, csv, compact" list.
type outputFormat string

const (
	formatTable   outputFormat = "table"
	formatJSON    outputFormat = "json"
	formatJSONL   outputFormat = "jsonl"
	formatCSV     outputFormat = "csv"
	formatCompact outputFormat = "compact"
)

func parseFormat(s string) (outputFormat, error) {
	switch outputFormat(s) {
	case formatTable, formatJSON, formatJSONL, formatCSV, formatCompact:
		return outputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json, jsonl, csv, or compact)", s)
	}
}

var entryColumns = []string{"id", "timestamp", "author", "type", "outcome", "tool", "duration_ms", "context"}

func entryRow(e *codec.Entry) []string {
	duration := ""
	if e.DurationMs != nil {
		duration = humanize.Comma(*e.DurationMs)
	}
	summary := e.Context
	if e.Type == codec.TypeAmendment {
		summary = e.Correction
	}
	return []string{
		e.ID,
		e.Timestamp.Format("2006-01-02T15:04:05Z"),
		e.Author,
		string(e.Type),
		string(e.Outcome),
		e.Tool,
		duration,
		truncate(summary, 60),
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// writeEntries renders entries in the requested format to w.
func writeEntries(w io.Writer, entries []*codec.Entry, format outputFormat) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case formatJSONL:
		enc := json.NewEncoder(w)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	case formatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(entryColumns); err != nil {
			return err
		}
		for _, e := range entries {
			if err := cw.Write(entryRow(e)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case formatCompact:
		for _, e := range entries {
			summary := e.Context
			if e.Type == codec.TypeAmendment {
				summary = e.Correction
			}
			fmt.Fprintf(w, "%s %s %-8s %s\n", e.ID, e.Author, e.Outcome, truncate(summary, 80))
		}
		return nil
	default: // formatTable
		tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(upper(entryColumns), "\t"))
		for _, e := range entries {
			fmt.Fprintln(tw, strings.Join(entryRow(e), "\t"))
		}
		return tw.Flush()
	}
}

func upper(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.ToUpper(c)
	}
	return out
}
