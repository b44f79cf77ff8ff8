package rpc

import (
	"context"
	"encoding/json"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/engine"
)

func (s *Server) registerJournalTools() {
	s.handlers["append"] = handleAppend
	s.handlers["amend"] = handleAmend
	s.handlers["read"] = handleRead
	s.handlers["query"] = handleQuery
	s.handlers["search"] = handleSearch
	s.handlers["stats"] = handleStats
	s.handlers["active"] = handleActive
}

// appendParams mirrors engine.AppendRequest with JSON tags matching the
// markdown heading vocabulary spec.md §4.6 names.
type appendParams struct {
	Author      string        `json:"author"`
	Template    string        `json:"template,omitempty"`
	Context     string        `json:"context,omitempty"`
	Intent      string        `json:"intent,omitempty"`
	Action      string        `json:"action,omitempty"`
	Observation string        `json:"observation,omitempty"`
	Analysis    string        `json:"analysis,omitempty"`
	NextSteps   string        `json:"next_steps,omitempty"`
	Outcome     codec.Outcome `json:"outcome,omitempty"`
	CausedBy    []string      `json:"caused_by,omitempty"`
	References  []string      `json:"references,omitempty"`
	ConfigUsed  string        `json:"config_used,omitempty"`
	LogProduced string        `json:"log_produced,omitempty"`
	Tool        string        `json:"tool,omitempty"`
	Command     string        `json:"command,omitempty"`
	DurationMs  *int64        `json:"duration_ms,omitempty"`
	ExitCode    *int64        `json:"exit_code,omitempty"`
	ErrorType   string        `json:"error_type,omitempty"`
}

func handleAppend(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p appendParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.Append(ctx, engine.AppendRequest{
		Author: p.Author, Template: p.Template,
		Context: p.Context, Intent: p.Intent, Action: p.Action,
		Observation: p.Observation, Analysis: p.Analysis, NextSteps: p.NextSteps,
		Outcome: p.Outcome, CausedBy: p.CausedBy, References: p.References,
		ConfigUsed: p.ConfigUsed, LogProduced: p.LogProduced,
		Tool: p.Tool, Command: p.Command, DurationMs: p.DurationMs,
		ExitCode: p.ExitCode, ErrorType: p.ErrorType,
	})
}

type amendParams struct {
	ReferencesEntry string `json:"references_entry"`
	Correction      string `json:"correction"`
	Actual          string `json:"actual"`
	Impact          string `json:"impact"`
	Author          string `json:"author"`
}

func handleAmend(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p amendParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.Amend(ctx, engine.AmendRequest{
		ReferencesEntry: p.ReferencesEntry, Correction: p.Correction,
		Actual: p.Actual, Impact: p.Impact, Author: p.Author,
	})
}

type readParams struct {
	EntryID        string `json:"entry_id,omitempty"`
	Date           string `json:"date,omitempty"`
	DateFrom       string `json:"date_from,omitempty"`
	DateTo         string `json:"date_to,omitempty"`
	IncludeContent bool   `json:"include_content"`
}

func handleRead(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p readParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.Read(ctx, engine.ReadRequest{
		EntryID: p.EntryID, Date: p.Date, DateFrom: p.DateFrom, DateTo: p.DateTo,
		IncludeContent: p.IncludeContent,
	})
}

type queryParams struct {
	Filters    map[string]string `json:"filters,omitempty"`
	TextSearch string            `json:"text_search,omitempty"`
	DateFrom   string            `json:"date_from,omitempty"`
	DateTo     string            `json:"date_to,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Offset     int               `json:"offset,omitempty"`
	OrderBy    string            `json:"order_by,omitempty"`
	OrderDesc  bool              `json:"order_desc,omitempty"`
}

func handleQuery(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p queryParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.Query(ctx, engine.QueryRequest{
		Filters: p.Filters, TextSearch: p.TextSearch, DateFrom: p.DateFrom, DateTo: p.DateTo,
		Limit: p.Limit, Offset: p.Offset, OrderBy: p.OrderBy, OrderDesc: p.OrderDesc,
	})
}

type searchParams struct {
	Query    string `json:"query"`
	Author   string `json:"author,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

func handleSearch(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p searchParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.Search(ctx, engine.SearchRequest{
		Query: p.Query, Author: p.Author, DateFrom: p.DateFrom, DateTo: p.DateTo,
		Limit: p.Limit, Offset: p.Offset,
	})
}

type statsParams struct {
	GroupBy      string            `json:"group_by,omitempty"`
	Aggregations []string          `json:"aggregations,omitempty"`
	Filters      map[string]string `json:"filters,omitempty"`
	DateFrom     string            `json:"date_from,omitempty"`
	DateTo       string            `json:"date_to,omitempty"`
}

func handleStats(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p statsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.Stats(ctx, engine.StatsRequest{
		GroupBy: p.GroupBy, Aggregations: p.Aggregations, Filters: p.Filters,
		DateFrom: p.DateFrom, DateTo: p.DateTo,
	})
}

type activeParams struct {
	ThresholdMs int64  `json:"threshold_ms"`
	Tool        string `json:"tool,omitempty"`
}

func handleActive(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p activeParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.Active(ctx, p.ThresholdMs, p.Tool)
}
