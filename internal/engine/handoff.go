package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/anthropics/labjournal/internal/artifact"
	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/index"
)

// HandoffFormat selects session_handoff's output shape.
type HandoffFormat string

const (
	HandoffMarkdown HandoffFormat = "markdown"
	HandoffJSON     HandoffFormat = "json"
)

// SessionHandoffRequest parameterizes session_handoff.
type SessionHandoffRequest struct {
	DateFrom       string
	DateTo         string
	IncludeConfigs bool
	IncludeLogs    bool
	Format         HandoffFormat
}

// EntrySummary is one row of a handoff's Journal Entries section.
type EntrySummary struct {
	EntryID   string
	Timestamp string
	Context   string
	Outcome   codec.Outcome
}

// ConfigChangeSummary groups config archives by basename with the
// latest reason.
type ConfigChangeSummary struct {
	Basename    string
	LatestReason string
	Count       int
}

// LogOutcomeSummary groups preserved logs by category with outcome
// counts.
type LogOutcomeSummary struct {
	Category string
	Counts   map[string]int
}

// SessionHandoff is the structured form of session_handoff's summary
// document; markdown rendering and the JSON encoding of this struct are
// the two formats spec.md §4.6 names.
type SessionHandoff struct {
	Summary         string
	KeyDecisions    []EntrySummary
	JournalEntries  []EntrySummary
	ConfigChanges   []ConfigChangeSummary
	PreservedLogs   []LogOutcomeSummary
	OpenItems       []EntrySummary
	Recommendations []string
}

// SessionHandoff computes the handoff summary. If the embedding program
// registered a "custom_handoff" CustomTool, it is given the chance to
// override the built-in markdown rendering; the structured data is
// always computed and returned regardless of format.
func (e *Engine) SessionHandoff(ctx context.Context, req SessionHandoffRequest) (*SessionHandoff, string, error) {
	from := e.resolveDateToken(req.DateFrom)
	to := e.resolveDateToken(req.DateTo)

	result, err := e.idx.Query(ctx, index.Query{DateFrom: from, DateTo: to, Limit: 1000})
	if err != nil {
		return nil, "", err
	}

	doc := &SessionHandoff{}
	for _, en := range result.Entries {
		summary := EntrySummary{EntryID: en.ID, Timestamp: en.Timestamp.Format("2006-01-02T15:04:05Z"), Context: en.Context, Outcome: en.Outcome}
		doc.JournalEntries = append(doc.JournalEntries, summary)
		if en.Analysis != "" {
			doc.KeyDecisions = append(doc.KeyDecisions, summary)
		}
		if en.NextSteps != "" {
			doc.OpenItems = append(doc.OpenItems, summary)
			doc.Recommendations = append(doc.Recommendations, en.NextSteps)
		}
	}

	if req.IncludeConfigs {
		configs, err := e.artifacts.ListConfigArchives(ctx)
		if err != nil {
			return nil, "", err
		}
		doc.ConfigChanges = summarizeConfigChanges(configs, from, to)
	}

	if req.IncludeLogs {
		logs, err := e.artifacts.ListPreservedLogs(ctx)
		if err != nil {
			return nil, "", err
		}
		doc.PreservedLogs = summarizeLogOutcomes(logs, from, to)
	}

	doc.Summary = fmt.Sprintf("%d journal entries, %d key decisions, %d open items between %s and %s.",
		len(doc.JournalEntries), len(doc.KeyDecisions), len(doc.OpenItems), from, to)

	if req.Format == "" {
		req.Format = HandoffMarkdown
	}

	if req.Format == HandoffJSON {
		return doc, "", nil
	}

	if tool, ok := e.tools["custom_handoff"]; ok {
		out, err := tool.Invoke(ctx, map[string]interface{}{"handoff": doc})
		if err != nil {
			return nil, "", err
		}
		if rendered, ok := out["markdown"].(string); ok {
			return doc, rendered, nil
		}
	}

	return doc, renderHandoffMarkdown(doc), nil
}

// summarizeConfigChanges groups rows by basename, keeping the count and
// the reason of the most recently archived row, restricted to the
// [from, to] date window.
func summarizeConfigChanges(rows []artifact.ConfigArchiveRow, from, to string) []ConfigChangeSummary {
	type acc struct {
		count        int
		latestTS     int64
		latestReason string
	}
	byBasename := map[string]*acc{}
	var order []string

	for _, r := range rows {
		if !withinWindow(r.Timestamp, from, to) {
			continue
		}
		a, ok := byBasename[r.Basename]
		if !ok {
			a = &acc{}
			byBasename[r.Basename] = a
			order = append(order, r.Basename)
		}
		a.count++
		if ts := r.Timestamp.Unix(); ts >= a.latestTS {
			a.latestTS = ts
			a.latestReason = r.Reason
		}
	}

	sort.Strings(order)
	out := make([]ConfigChangeSummary, 0, len(order))
	for _, basename := range order {
		a := byBasename[basename]
		out = append(out, ConfigChangeSummary{Basename: basename, LatestReason: a.latestReason, Count: a.count})
	}
	return out
}

// summarizeLogOutcomes groups rows by category, counting each outcome
// value, restricted to the [from, to] date window.
func summarizeLogOutcomes(rows []artifact.PreservedLogRow, from, to string) []LogOutcomeSummary {
	byCategory := map[string]map[string]int{}
	var order []string

	for _, r := range rows {
		if !withinWindow(r.Timestamp, from, to) {
			continue
		}
		counts, ok := byCategory[r.Category]
		if !ok {
			counts = map[string]int{}
			byCategory[r.Category] = counts
			order = append(order, r.Category)
		}
		counts[r.Outcome]++
	}

	sort.Strings(order)
	out := make([]LogOutcomeSummary, 0, len(order))
	for _, category := range order {
		out = append(out, LogOutcomeSummary{Category: category, Counts: byCategory[category]})
	}
	return out
}

func renderHandoffMarkdown(doc *SessionHandoff) string {
	var b strings.Builder

	b.WriteString("# Session Handoff\n\n")
	b.WriteString("## Summary\n\n" + doc.Summary + "\n\n")

	b.WriteString("## Key Decisions\n\n")
	for _, d := range doc.KeyDecisions {
		fmt.Fprintf(&b, "- %s (%s): %s\n", d.EntryID, d.Timestamp, d.Context)
	}
	b.WriteString("\n## Journal Entries\n\n")
	for _, je := range doc.JournalEntries {
		fmt.Fprintf(&b, "- %s %s %s (%s)\n", je.EntryID, je.Timestamp, je.Context, je.Outcome)
	}
	b.WriteString("\n## Configuration Changes\n\n")
	for _, c := range doc.ConfigChanges {
		fmt.Fprintf(&b, "- %s: %s (%d change(s))\n", c.Basename, c.LatestReason, c.Count)
	}
	b.WriteString("\n## Preserved Logs\n\n")
	for _, l := range doc.PreservedLogs {
		keys := make([]string, 0, len(l.Counts))
		for k := range l.Counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", k, l.Counts[k]))
		}
		fmt.Fprintf(&b, "- %s: %s\n", l.Category, strings.Join(parts, ", "))
	}
	b.WriteString("\n## Open Items\n\n")
	for _, oi := range doc.OpenItems {
		fmt.Fprintf(&b, "- %s: %s\n", oi.EntryID, oi.Context)
	}
	b.WriteString("\n## Recommendations\n\n")
	for _, r := range doc.Recommendations {
		fmt.Fprintf(&b, "- %s\n", r)
	}

	return b.String()
}
