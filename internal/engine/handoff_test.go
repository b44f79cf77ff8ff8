package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/labjournal/internal/codec"
)

func TestSessionHandoffMarkdown(t *testing.T) {
	e, _ := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := e.Append(ctx, AppendRequest{
		Author: "alice", Context: "refactor cache", Outcome: codec.OutcomeSuccess,
		Analysis: "the old cache leaked lru entries", NextSteps: "write a regression test",
	}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	doc, markdown, err := e.SessionHandoff(ctx, SessionHandoffRequest{
		DateFrom: "2026-01-17", DateTo: "2026-01-17", Format: HandoffMarkdown,
	})
	if err != nil {
		t.Fatalf("SessionHandoff failed: %v", err)
	}
	if len(doc.JournalEntries) != 1 {
		t.Errorf("expected 1 journal entry, got %d", len(doc.JournalEntries))
	}
	if len(doc.KeyDecisions) != 1 {
		t.Errorf("expected 1 key decision (has analysis), got %d", len(doc.KeyDecisions))
	}
	if len(doc.OpenItems) != 1 {
		t.Errorf("expected 1 open item (has next_steps), got %d", len(doc.OpenItems))
	}
	if !strings.Contains(markdown, "# Session Handoff") {
		t.Errorf("expected rendered markdown to have a title, got %q", markdown)
	}
}

func TestSessionHandoffIncludesConfigChanges(t *testing.T) {
	e, _ := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	entry, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "c", Outcome: codec.OutcomeSuccess})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	src := filepath.Join(t.TempDir(), "build.toml")
	if err := os.WriteFile(src, []byte("X=1"), 0o644); err != nil {
		t.Fatalf("write config source: %v", err)
	}
	if _, err := e.ArchiveConfig(ctx, src, "bump version", entry.ID, ""); err != nil {
		t.Fatalf("ArchiveConfig failed: %v", err)
	}

	doc, _, err := e.SessionHandoff(ctx, SessionHandoffRequest{
		DateFrom: "2026-01-17", DateTo: "2026-01-17", IncludeConfigs: true, Format: HandoffJSON,
	})
	if err != nil {
		t.Fatalf("SessionHandoff failed: %v", err)
	}
	if len(doc.ConfigChanges) != 1 {
		t.Fatalf("expected 1 config change group, got %d", len(doc.ConfigChanges))
	}
	if doc.ConfigChanges[0].Basename != "build.toml" {
		t.Errorf("expected basename build.toml, got %q", doc.ConfigChanges[0].Basename)
	}
}
