package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/anthropics/labjournal/internal/index"
)

// TimelineEventType tags a TimelineEvent's originating record kind.
type TimelineEventType string

const (
	TimelineEntry      TimelineEventType = "entry"
	TimelineAmendment  TimelineEventType = "amendment"
	TimelineConfig     TimelineEventType = "config_archive"
	TimelineLog        TimelineEventType = "preserved_log"
	TimelineSnapshot   TimelineEventType = "snapshot"
)

// TimelineEvent is one interleaved row of a Timeline result.
type TimelineEvent struct {
	Type      TimelineEventType
	Timestamp time.Time
	Summary   string
}

const defaultTimelineLimit = 100

// Timeline interleaves entries, amendments, config archives, preserved
// logs, and snapshots within [dateFrom, dateTo], sorted by timestamp
// descending and capped at limit. Per the spec's own open-question
// resolution, event_types is not used to filter — the union is always
// unfiltered within the date window.
func (e *Engine) Timeline(ctx context.Context, dateFrom, dateTo string, limit int) ([]TimelineEvent, error) {
	if limit <= 0 {
		limit = defaultTimelineLimit
	}
	from := e.resolveDateToken(dateFrom)
	to := e.resolveDateToken(dateTo)

	var events []TimelineEvent

	result, err := e.idx.Query(ctx, index.Query{DateFrom: from, DateTo: to, Limit: 1000})
	if err != nil {
		return nil, err
	}
	for _, en := range result.Entries {
		t := TimelineEntry
		summary := fmt.Sprintf("%s by %s: %s", en.ID, en.Author, en.Context)
		if en.IsAmendment() {
			t = TimelineAmendment
			summary = fmt.Sprintf("%s amends %s: %s", en.ID, en.ReferencesEntry, en.Correction)
		}
		events = append(events, TimelineEvent{Type: t, Timestamp: en.Timestamp, Summary: summary})
	}

	configs, err := e.artifacts.ListConfigArchives(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range configs {
		if !withinWindow(c.Timestamp, from, to) {
			continue
		}
		events = append(events, TimelineEvent{
			Type: TimelineConfig, Timestamp: c.Timestamp,
			Summary: fmt.Sprintf("%s archived (%s): %s", c.Basename, c.Reason, c.ArchivePath),
		})
	}

	logs, err := e.artifacts.ListPreservedLogs(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range logs {
		if !withinWindow(l.Timestamp, from, to) {
			continue
		}
		events = append(events, TimelineEvent{
			Type: TimelineLog, Timestamp: l.Timestamp,
			Summary: fmt.Sprintf("%s log preserved (%s): %s", l.Category, l.Outcome, l.PreservedPath),
		})
	}

	snapshots, err := e.artifacts.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range snapshots {
		if !withinWindow(s.Timestamp, from, to) {
			continue
		}
		events = append(events, TimelineEvent{
			Type: TimelineSnapshot, Timestamp: s.Timestamp,
			Summary: fmt.Sprintf("snapshot %q: %s", s.Name, s.SnapshotPath),
		})
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.After(events[j].Timestamp) })
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// withinWindow reports whether ts falls within [from, to] inclusive,
// treating an empty bound as unbounded on that side.
func withinWindow(ts time.Time, from, to string) bool {
	date := ts.Format("2006-01-02")
	if from != "" && date < from {
		return false
	}
	if to != "" && date > to {
		return false
	}
	return true
}
