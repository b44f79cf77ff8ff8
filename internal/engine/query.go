package engine

import (
	"context"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/index"
)

// QueryRequest mirrors index.Query but accepts the "today"/"yesterday"
// date-token shorthands the CLI and RPC surface expose.
type QueryRequest struct {
	Filters    map[string]string
	TextSearch string
	DateFrom   string
	DateTo     string
	Limit      int
	Offset     int
	OrderBy    string
	OrderDesc  bool
}

// Query expands date tokens and delegates to internal/index's
// whitelisted filter/order/paginate query.
func (e *Engine) Query(ctx context.Context, req QueryRequest) (*index.Result, error) {
	q := index.Query{
		Filters:    req.Filters,
		TextSearch: req.TextSearch,
		DateFrom:   e.resolveDateToken(req.DateFrom),
		DateTo:     e.resolveDateToken(req.DateTo),
		Limit:      req.Limit,
		Offset:     req.Offset,
		OrderBy:    req.OrderBy,
		OrderDesc:  req.OrderDesc,
	}
	return e.idx.Query(ctx, q)
}

// SearchRequest is search(query, author?, date_from?, date_to?)'s legacy
// façade onto Query.
type SearchRequest struct {
	Query    string
	Author   string
	DateFrom string
	DateTo   string
	Limit    int
	Offset   int
}

// Search delegates to Query with text_search = req.Query and an author
// filter, per spec.md §4.6.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*index.Result, error) {
	filters := map[string]string{}
	if req.Author != "" {
		filters["author"] = req.Author
	}
	return e.Query(ctx, QueryRequest{
		Filters:    filters,
		TextSearch: req.Query,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
}

// StatsRequest parameterizes stats: an empty GroupBy with no
// Aggregations returns the overall index.Stats summary; otherwise it
// delegates to the grouped index.Aggregate.
type StatsRequest struct {
	GroupBy      string
	Aggregations []string
	Filters      map[string]string
	DateFrom     string
	DateTo       string
}

// StatsResult holds either the overall summary or the grouped result,
// whichever StatsRequest asked for.
type StatsResult struct {
	Overall *index.Stats
	Groups  []index.AggregateGroup
}

// Stats delegates to §4.4's Stats or Aggregate depending on whether
// grouping was requested.
func (e *Engine) Stats(ctx context.Context, req StatsRequest) (*StatsResult, error) {
	if req.GroupBy == "" && len(req.Aggregations) == 0 {
		overall, err := e.idx.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return &StatsResult{Overall: overall}, nil
	}

	groups, err := e.idx.Aggregate(ctx, index.AggregateRequest{
		GroupBy:      req.GroupBy,
		Aggregations: req.Aggregations,
		Filters:      req.Filters,
		DateFrom:     e.resolveDateToken(req.DateFrom),
		DateTo:       e.resolveDateToken(req.DateTo),
	})
	if err != nil {
		return nil, err
	}
	return &StatsResult{Groups: groups}, nil
}

// Active delegates to §4.4's Active, resolving entries whose
// duration_ms is at or above thresholdMs.
func (e *Engine) Active(ctx context.Context, thresholdMs int64, tool string) ([]*codec.Entry, error) {
	return e.idx.Active(ctx, thresholdMs, tool)
}
