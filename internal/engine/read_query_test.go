package engine

import (
	"context"
	"testing"
	"time"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/jerr"
)

func TestReadRequiresExactlyOneMode(t *testing.T) {
	e, _ := newTestEngine(t, time.Now())
	_, err := e.Read(context.Background(), ReadRequest{})
	if jerr.KindOf(err) != jerr.InvalidArgument {
		t.Errorf("expected InvalidArgument for no mode, got %v", err)
	}

	_, err = e.Read(context.Background(), ReadRequest{EntryID: "2026-01-17-001", Date: "2026-01-17"})
	if jerr.KindOf(err) != jerr.InvalidArgument {
		t.Errorf("expected InvalidArgument for two modes, got %v", err)
	}
}

func TestReadByEntryIDStripsContentWhenRequested(t *testing.T) {
	e, _ := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	entry, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "investigating", Outcome: codec.OutcomeSuccess})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := e.Read(ctx, ReadRequest{EntryID: entry.ID, IncludeContent: false})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Context != "" {
		t.Errorf("expected narrative fields stripped, got Context=%q", got[0].Context)
	}
	if got[0].ID != entry.ID {
		t.Errorf("expected identity preserved, got ID=%q", got[0].ID)
	}
}

func TestReadMissingEntryID(t *testing.T) {
	e, _ := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	_, err := e.Read(context.Background(), ReadRequest{EntryID: "2026-01-17-999"})
	if jerr.KindOf(err) != jerr.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestReadOpenEndedDateRange(t *testing.T) {
	e, fixed := newTestEngine(t, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "day one", Outcome: codec.OutcomeSuccess}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	fixed.Advance(24 * time.Hour)
	if _, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "day two", Outcome: codec.OutcomeSuccess}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := e.Read(ctx, ReadRequest{DateFrom: "2026-01-15", IncludeContent: true})
	if err != nil {
		t.Fatalf("Read with open-ended date_to failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both days read with date_to omitted, got %d entries: %+v", len(got), got)
	}

	got, err = e.Read(ctx, ReadRequest{DateTo: "2026-01-16", IncludeContent: true})
	if err != nil {
		t.Fatalf("Read with open-ended date_from failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both days read with date_from omitted, got %d entries: %+v", len(got), got)
	}
}

func TestQueryFiltersByAuthor(t *testing.T) {
	e, _ := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "a", Outcome: codec.OutcomeSuccess}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := e.Append(ctx, AppendRequest{Author: "bob", Context: "b", Outcome: codec.OutcomeFailure}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	res, err := e.Query(ctx, QueryRequest{Filters: map[string]string{"author": "bob"}})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Author != "bob" {
		t.Errorf("expected 1 bob entry, got %+v", res.Entries)
	}
}

func TestStatsOverallAndGrouped(t *testing.T) {
	e, _ := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for _, o := range []codec.Outcome{codec.OutcomeSuccess, codec.OutcomeSuccess, codec.OutcomeFailure} {
		if _, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "c", Outcome: o}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	overall, err := e.Stats(ctx, StatsRequest{})
	if err != nil {
		t.Fatalf("Stats (overall) failed: %v", err)
	}
	if overall.Overall == nil {
		t.Fatal("expected overall stats, got nil")
	}

	grouped, err := e.Stats(ctx, StatsRequest{GroupBy: "outcome", Aggregations: []string{"count"}})
	if err != nil {
		t.Fatalf("Stats (grouped) failed: %v", err)
	}
	if len(grouped.Groups) == 0 {
		t.Error("expected grouped results")
	}
}
