package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthropics/labjournal/internal/codec"
)

func openTest(t *testing.T) *Index {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	ix, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func sampleEntry(id, author, tool string, durationMs int64) *codec.Entry {
	d := durationMs
	return &codec.Entry{
		ID:        id,
		Timestamp: time.Date(2026, 1, 17, 10, 0, 0, 0, time.UTC),
		Author:    author,
		Type:      codec.TypeEntry,
		Context:   "investigating slow build",
		Intent:    "speed up the pipeline",
		Outcome:   codec.OutcomeSuccess,
		Tool:      tool,
		Command:   "make build",
		DurationMs: &d,
	}
}

func TestIndexEntryAndGet(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()

	e := sampleEntry("2026-01-17-001", "alice", "bash", 500)
	if err := ix.IndexEntry(ctx, e, "/journal/2026-01-17.md"); err != nil {
		t.Fatalf("IndexEntry failed: %v", err)
	}

	got, err := ix.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry, got nil")
	}
	if got.Author != "alice" || got.Tool != "bash" {
		t.Errorf("mismatch: %+v", got)
	}

	// Served from cache the second time; still consistent.
	got2, err := ix.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get (cached) failed: %v", err)
	}
	if got2.ID != got.ID {
		t.Errorf("cached get mismatch: %+v", got2)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	ix := openTest(t)
	got, err := ix.Get(context.Background(), "2026-01-01-999")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing entry, got %+v", got)
	}
}

func TestIndexEntryUpsertOverwrites(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()

	e := sampleEntry("2026-01-17-001", "alice", "bash", 500)
	if err := ix.IndexEntry(ctx, e, "/journal/2026-01-17.md"); err != nil {
		t.Fatalf("IndexEntry failed: %v", err)
	}

	e.Author = "bob"
	if err := ix.IndexEntry(ctx, e, "/journal/2026-01-17.md"); err != nil {
		t.Fatalf("IndexEntry (update) failed: %v", err)
	}

	got, err := ix.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Author != "bob" {
		t.Errorf("expected upsert to overwrite author, got %q", got.Author)
	}
}

func TestQueryFilterAndPagination(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()

	for i, author := range []string{"alice", "bob", "alice"} {
		e := sampleEntry(
			"2026-01-17-00"+string(rune('1'+i)),
			author, "bash", int64(100*(i+1)),
		)
		if err := ix.IndexEntry(ctx, e, "/journal/2026-01-17.md"); err != nil {
			t.Fatalf("IndexEntry failed: %v", err)
		}
	}

	res, err := ix.Query(ctx, Query{Filters: map[string]string{"author": "alice"}})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if res.Total != 2 || len(res.Entries) != 2 {
		t.Errorf("expected 2 alice entries, got total=%d len=%d", res.Total, len(res.Entries))
	}

	res, err = ix.Query(ctx, Query{Limit: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !res.HasMore {
		t.Error("expected has_more with limit 1 over 3 rows")
	}
}

func TestQueryUnknownFilterKeyIsDropped(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()
	e := sampleEntry("2026-01-17-001", "alice", "bash", 500)
	if err := ix.IndexEntry(ctx, e, "/journal/2026-01-17.md"); err != nil {
		t.Fatalf("IndexEntry failed: %v", err)
	}

	res, err := ix.Query(ctx, Query{Filters: map[string]string{"'; DROP TABLE entries; --": "x"}})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("expected unknown filter key ignored, total=%d", res.Total)
	}
}

func TestQueryInvalidLimitRejected(t *testing.T) {
	ix := openTest(t)
	if _, err := ix.Query(context.Background(), Query{Limit: 5000}); err == nil {
		t.Error("expected error for out-of-range limit")
	}
}

func TestQueryTextSearch(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()
	e := sampleEntry("2026-01-17-001", "alice", "bash", 500)
	e.Context = "debugging a flaky network timeout"
	if err := ix.IndexEntry(ctx, e, "/journal/2026-01-17.md"); err != nil {
		t.Fatalf("IndexEntry failed: %v", err)
	}

	res, err := ix.Query(ctx, Query{TextSearch: "flaky network"})
	if err != nil {
		t.Fatalf("Query with text search failed: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("expected 1 match for phrase search, got %d", res.Total)
	}
}

func TestAggregateGroupByToolWithAvgDuration(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()

	for i, tool := range []string{"bash", "bash", "pytest"} {
		e := sampleEntry("2026-01-17-00"+string(rune('1'+i)), "alice", tool, int64(100*(i+1)))
		if err := ix.IndexEntry(ctx, e, "/journal/2026-01-17.md"); err != nil {
			t.Fatalf("IndexEntry failed: %v", err)
		}
	}

	groups, err := ix.Aggregate(ctx, AggregateRequest{
		GroupBy:      "tool",
		Aggregations: []string{"count", "avg:duration_ms"},
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	byKey := map[string]AggregateGroup{}
	for _, g := range groups {
		byKey[g.Key] = g
	}
	if byKey["bash"].Count != 2 {
		t.Errorf("expected bash count 2, got %d", byKey["bash"].Count)
	}
	if v := byKey["bash"].Numeric["avg:duration_ms"]; v != 150 {
		t.Errorf("expected bash avg duration 150, got %v", v)
	}
}

func TestAggregateInvalidGroupByRejected(t *testing.T) {
	ix := openTest(t)
	if _, err := ix.Aggregate(context.Background(), AggregateRequest{GroupBy: "not_a_column"}); err == nil {
		t.Error("expected error for invalid group_by")
	}
}

func TestAggregateInvalidAggregationSilentlyDropped(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()
	e := sampleEntry("2026-01-17-001", "alice", "bash", 500)
	if err := ix.IndexEntry(ctx, e, "/journal/2026-01-17.md"); err != nil {
		t.Fatalf("IndexEntry failed: %v", err)
	}

	groups, err := ix.Aggregate(ctx, AggregateRequest{
		Aggregations: []string{"count", "avg:not_a_field", "bogus"},
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(groups) != 1 || groups[0].Count != 1 {
		t.Fatalf("expected single ungrouped row with count 1, got %+v", groups)
	}
	if len(groups[0].Numeric) != 0 {
		t.Errorf("expected invalid aggregation to be dropped, got %+v", groups[0].Numeric)
	}
}

func TestActiveFiltersByThresholdAndOrdersDescending(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()

	for i, d := range []int64{100, 900, 500} {
		e := sampleEntry("2026-01-17-00"+string(rune('1'+i)), "alice", "bash", d)
		if err := ix.IndexEntry(ctx, e, "/journal/2026-01-17.md"); err != nil {
			t.Fatalf("IndexEntry failed: %v", err)
		}
	}

	active, err := ix.Active(ctx, 400, "")
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 entries above threshold, got %d", len(active))
	}
	if *active[0].DurationMs != 900 || *active[1].DurationMs != 500 {
		t.Errorf("expected descending order, got %v then %v", *active[0].DurationMs, *active[1].DurationMs)
	}
}

func TestActiveRejectsNegativeThreshold(t *testing.T) {
	ix := openTest(t)
	if _, err := ix.Active(context.Background(), -1, ""); err == nil {
		t.Error("expected error for negative threshold")
	}
}

func TestRebuildReindexesFromDailyFiles(t *testing.T) {
	dir := t.TempDir()

	e1 := sampleEntry("2026-01-17-001", "alice", "bash", 100)
	data := codec.Encode(e1)
	if err := os.WriteFile(filepath.Join(dir, "2026-01-17.md"), data, 0o644); err != nil {
		t.Fatalf("write daily file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "INDEX.md"), []byte("should be skipped"), 0o644); err != nil {
		t.Fatalf("write INDEX.md: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden.md"), []byte("should be skipped"), 0o644); err != nil {
		t.Fatalf("write hidden file: %v", err)
	}

	ix := openTest(t)
	ctx := context.Background()

	var progressCalls int
	result, err := ix.Rebuild(ctx, dir, func(path string, n int, err error) { progressCalls++ })
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if result.FilesProcessed != 1 {
		t.Errorf("expected 1 file processed (INDEX.md/hidden skipped), got %d", result.FilesProcessed)
	}
	if result.EntriesIndexed != 1 {
		t.Errorf("expected 1 entry indexed, got %d", result.EntriesIndexed)
	}
	if progressCalls != 1 {
		t.Errorf("expected 1 progress callback, got %d", progressCalls)
	}

	got, err := ix.Get(ctx, e1.ID)
	if err != nil {
		t.Fatalf("Get after rebuild failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry to survive rebuild")
	}
}

func TestRebuildReportsParseFailureWithoutAborting(t *testing.T) {
	dir := t.TempDir()

	good := sampleEntry("2026-01-17-001", "alice", "bash", 100)
	if err := os.WriteFile(filepath.Join(dir, "2026-01-17.md"), codec.Encode(good), 0o644); err != nil {
		t.Fatalf("write good daily file: %v", err)
	}
	bad := "## 2026-01-18-001\n**Author**: a\n\n---\n" // missing Timestamp
	if err := os.WriteFile(filepath.Join(dir, "2026-01-18.md"), []byte(bad), 0o644); err != nil {
		t.Fatalf("write bad daily file: %v", err)
	}

	ix := openTest(t)
	result, err := ix.Rebuild(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if result.EntriesIndexed != 1 {
		t.Errorf("expected 1 entry indexed despite the other file's parse failure, got %d", result.EntriesIndexed)
	}
	if len(result.Errors) == 0 {
		t.Error("expected a reported parse error for the bad file")
	}
}

func TestStatsCounts(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()

	e1 := sampleEntry("2026-01-17-001", "alice", "bash", 100)
	if err := ix.IndexEntry(ctx, e1, "/journal/2026-01-17.md"); err != nil {
		t.Fatalf("IndexEntry failed: %v", err)
	}
	amend := &codec.Entry{
		ID:              "2026-01-17-002",
		Timestamp:       time.Date(2026, 1, 17, 11, 0, 0, 0, time.UTC),
		Author:          "alice",
		Type:            codec.TypeAmendment,
		ReferencesEntry: e1.ID,
		Correction:      "c", Actual: "a", Impact: "i",
	}
	if err := ix.IndexEntry(ctx, amend, "/journal/2026-01-17.md"); err != nil {
		t.Fatalf("IndexEntry (amendment) failed: %v", err)
	}

	stats, err := ix.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 1 || stats.TotalAmendments != 1 {
		t.Errorf("expected 1 entry + 1 amendment, got %+v", stats)
	}
	if stats.AuthorCounts["alice"] != 2 {
		t.Errorf("expected alice count 2, got %+v", stats.AuthorCounts)
	}
}
