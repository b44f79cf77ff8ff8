package engine

import (
	"context"
	"testing"
	"time"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/jconfig"
	"github.com/anthropics/labjournal/internal/jerr"
)

func TestAppendRequiresAuthor(t *testing.T) {
	e, _ := newTestEngine(t, time.Now())
	_, err := e.Append(context.Background(), AppendRequest{Context: "c"})
	if jerr.KindOf(err) != jerr.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestAppendAllocatesSequentialIDs(t *testing.T) {
	e, _ := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "first", Outcome: codec.OutcomeSuccess})
	if err != nil {
		t.Fatalf("first Append failed: %v", err)
	}
	second, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "second", Outcome: codec.OutcomeSuccess})
	if err != nil {
		t.Fatalf("second Append failed: %v", err)
	}

	if first.ID != "2026-01-17-001" {
		t.Errorf("first.ID = %q", first.ID)
	}
	if second.ID != "2026-01-17-002" {
		t.Errorf("second.ID = %q", second.ID)
	}

	got, err := e.Read(ctx, ReadRequest{Date: "2026-01-17", IncludeContent: true})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries on disk, got %d", len(got))
	}
}

func TestAppendTemplateMissingFieldFails(t *testing.T) {
	e, _ := newTestEngine(t, time.Now())
	e.cfg.Templates = append(e.cfg.Templates, jconfig.Template{
		Name:           "bugfix",
		RequiredFields: []string{"context", "analysis"},
	})

	_, err := e.Append(context.Background(), AppendRequest{Author: "alice", Template: "bugfix", Context: "c"})
	if jerr.KindOf(err) != jerr.MissingTemplateField {
		t.Errorf("expected MissingTemplateField, got %v", err)
	}
}

func TestAppendTemplateNotFound(t *testing.T) {
	e, _ := newTestEngine(t, time.Now())
	_, err := e.Append(context.Background(), AppendRequest{Author: "alice", Template: "nope", Context: "c"})
	if jerr.KindOf(err) != jerr.TemplateNotFound {
		t.Errorf("expected TemplateNotFound, got %v", err)
	}
}

func TestAppendValidatesCausedByReferences(t *testing.T) {
	e, _ := newTestEngine(t, time.Now())
	ctx := context.Background()

	_, err := e.Append(ctx, AppendRequest{
		Author: "alice", Context: "c", Outcome: codec.OutcomeSuccess,
		CausedBy: []string{"2020-01-01-001"},
	})
	if jerr.KindOf(err) != jerr.InvalidReference {
		t.Errorf("expected InvalidReference for unresolvable caused_by, got %v", err)
	}
}

func TestAmendRequiresExistingTarget(t *testing.T) {
	e, _ := newTestEngine(t, time.Now())
	_, err := e.Amend(context.Background(), AmendRequest{
		Author: "alice", ReferencesEntry: "2020-01-01-001",
		Correction: "x", Actual: "y", Impact: "z",
	})
	if jerr.KindOf(err) != jerr.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestAmendSucceedsAgainstExistingEntry(t *testing.T) {
	e, _ := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	entry, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "c", Outcome: codec.OutcomeSuccess})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	amendment, err := e.Amend(ctx, AmendRequest{
		Author: "bob", ReferencesEntry: entry.ID,
		Correction: "wrong tool", Actual: "used make not bazel", Impact: "low",
	})
	if err != nil {
		t.Fatalf("Amend failed: %v", err)
	}
	if amendment.Type != codec.TypeAmendment {
		t.Errorf("expected amendment type, got %v", amendment.Type)
	}
	if amendment.ReferencesEntry != entry.ID {
		t.Errorf("ReferencesEntry = %q, want %q", amendment.ReferencesEntry, entry.ID)
	}
}
