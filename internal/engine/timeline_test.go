package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthropics/labjournal/internal/codec"
)

func TestTimelineInterleavesEntriesAndConfigArchives(t *testing.T) {
	e, fixed := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	entry, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "c", Outcome: codec.OutcomeSuccess})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	configSrc := filepath.Join(t.TempDir(), "build.toml")
	if err := os.WriteFile(configSrc, []byte("X=1"), 0o644); err != nil {
		t.Fatalf("write config source: %v", err)
	}
	fixed.Advance(time.Minute)
	if _, err := e.ArchiveConfig(ctx, configSrc, "tuning", entry.ID, ""); err != nil {
		t.Fatalf("ArchiveConfig failed: %v", err)
	}

	events, err := e.Timeline(ctx, "2026-01-17", "2026-01-17", 0)
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Type != TimelineConfig {
		t.Errorf("expected config archive first (descending by time), got %v", events[0].Type)
	}
	if events[1].Type != TimelineEntry {
		t.Errorf("expected journal entry second, got %v", events[1].Type)
	}
}

func TestTimelineRespectsLimit(t *testing.T) {
	e, _ := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "c", Outcome: codec.OutcomeSuccess}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	events, err := e.Timeline(ctx, "2026-01-17", "2026-01-17", 3)
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events capped by limit, got %d", len(events))
	}
}
