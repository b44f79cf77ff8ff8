package rpc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/anthropics/labjournal/internal/clock"
	"github.com/anthropics/labjournal/internal/engine"
	"github.com/anthropics/labjournal/internal/jconfig"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	fixed := clock.NewFixed(time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC))
	e, err := engine.New(root, jconfig.Default(), fixed, nil)
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return NewServer(e)
}

func TestDispatchUnknownTool(t *testing.T) {
	s := newTestServer(t)
	resp := s.Dispatch(context.Background(), Request{Tool: "not_a_tool"})
	if resp.Status != "error" {
		t.Fatalf("expected error status, got %+v", resp)
	}
	if resp.Error != "InvalidArgument" {
		t.Errorf("expected InvalidArgument, got %q", resp.Error)
	}
}

func TestDispatchAppendAndRead(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	params, _ := json.Marshal(appendParams{Author: "alice", Context: "investigating slow build", Outcome: "success"})
	resp := s.Dispatch(ctx, Request{Tool: "append", Params: params})
	if resp.Status != "ok" {
		t.Fatalf("append failed: %+v", resp)
	}

	var appended struct {
		ID string `json:"ID"`
	}
	if err := json.Unmarshal(resp.Result, &appended); err != nil {
		t.Fatalf("unmarshal append result: %v", err)
	}
	if appended.ID == "" {
		t.Fatal("expected a non-empty entry id in the append result")
	}

	readParams, _ := json.Marshal(readParams{EntryID: appended.ID, IncludeContent: true})
	resp = s.Dispatch(ctx, Request{Tool: "read", Params: readParams})
	if resp.Status != "ok" {
		t.Fatalf("read failed: %+v", resp)
	}
}

func TestDispatchHelpListsAllTools(t *testing.T) {
	s := newTestServer(t)
	resp := s.Dispatch(context.Background(), Request{Tool: "help"})
	if resp.Status != "ok" {
		t.Fatalf("help failed: %+v", resp)
	}
	var result helpResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal help result: %v", err)
	}
	if len(result.Tools) != 20 {
		t.Errorf("expected 20 tools, got %d: %v", len(result.Tools), result.Tools)
	}
}

func TestDispatchInvalidArgumentPropagatesKind(t *testing.T) {
	s := newTestServer(t)
	params, _ := json.Marshal(readParams{})
	resp := s.Dispatch(context.Background(), Request{Tool: "read", Params: params})
	if resp.Status != "error" || resp.Error != "InvalidArgument" {
		t.Errorf("expected InvalidArgument error, got %+v", resp)
	}
}
