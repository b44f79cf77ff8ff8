package engine

import (
	"context"
	"testing"
	"time"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/jerr"
)

func TestTraceCausalityBackwardAndForward(t *testing.T) {
	e, _ := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	root, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "root cause", Outcome: codec.OutcomeFailure})
	if err != nil {
		t.Fatalf("Append root failed: %v", err)
	}
	child, err := e.Append(ctx, AppendRequest{
		Author: "alice", Context: "fix", Outcome: codec.OutcomeSuccess,
		CausedBy: []string{root.ID},
	})
	if err != nil {
		t.Fatalf("Append child failed: %v", err)
	}

	backward, err := e.TraceCausality(ctx, child.ID, DirectionBackward, 5)
	if err != nil {
		t.Fatalf("TraceCausality backward failed: %v", err)
	}
	if len(backward) != 1 || backward[0].EntryID != root.ID {
		t.Errorf("expected backward trace to find root, got %+v", backward)
	}

	forward, err := e.TraceCausality(ctx, root.ID, DirectionForward, 5)
	if err != nil {
		t.Fatalf("TraceCausality forward failed: %v", err)
	}
	if len(forward) != 1 || forward[0].EntryID != child.ID {
		t.Errorf("expected forward trace to find child, got %+v", forward)
	}
}

func TestTraceCausalityForwardFindsAmendment(t *testing.T) {
	e, _ := newTestEngine(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	original, err := e.Append(ctx, AppendRequest{Author: "alice", Context: "root cause", Outcome: codec.OutcomeFailure})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	amendment, err := e.Amend(ctx, AmendRequest{
		ReferencesEntry: original.ID, Correction: "actually it was the cache",
		Actual: "stale cache entry", Impact: "misattributed root cause", Author: "alice",
	})
	if err != nil {
		t.Fatalf("Amend failed: %v", err)
	}

	forward, err := e.TraceCausality(ctx, original.ID, DirectionForward, 5)
	if err != nil {
		t.Fatalf("TraceCausality forward failed: %v", err)
	}
	if len(forward) != 1 || forward[0].EntryID != amendment.ID {
		t.Errorf("expected forward trace from %s to find amendment %s, got %+v", original.ID, amendment.ID, forward)
	}
}

func TestTraceCausalityUnknownEntry(t *testing.T) {
	e, _ := newTestEngine(t, time.Now())
	_, err := e.TraceCausality(context.Background(), "2020-01-01-001", DirectionBoth, 5)
	if jerr.KindOf(err) != jerr.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}
