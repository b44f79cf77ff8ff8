package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/jerr"
)

// groupableColumns is the whitelist group_by accepts.
var groupableColumns = map[string]bool{
	"tool": true, "outcome": true, "author": true, "template": true,
	"date": true, "entry_type": true, "error_type": true,
}

// numericColumns is the whitelist of fields an aggregation op may target.
var numericColumns = map[string]bool{
	"duration_ms": true, "exit_code": true,
}

var aggOps = map[string]bool{"avg": true, "sum": true, "min": true, "max": true}

// AggregateRequest describes a grouped-statistics request.
type AggregateRequest struct {
	GroupBy      string // empty means no grouping
	Aggregations []string
	Filters      map[string]string
	DateFrom     string
	DateTo       string
}

// AggregateGroup is one row of an Aggregate result.
type AggregateGroup struct {
	Key     string // "(none)" when the grouped value is NULL; empty when ungrouped
	Count   int
	Numeric map[string]float64 // keyed by "op:field", e.g. "avg:duration_ms"
}

// Aggregate computes grouped statistics per the whitelisted group_by field
// and aggregation ops. Invalid group_by fails with InvalidArgument;
// invalid aggregation items are silently dropped (count always survives).
func (ix *Index) Aggregate(ctx context.Context, req AggregateRequest) ([]AggregateGroup, error) {
	if req.GroupBy != "" && !groupableColumns[req.GroupBy] {
		return nil, jerr.New(jerr.InvalidArgument, "invalid group_by %q", req.GroupBy)
	}

	var numericAggs []struct{ op, field string }
	for _, a := range req.Aggregations {
		if a == "count" {
			continue
		}
		parts := strings.SplitN(a, ":", 2)
		if len(parts) != 2 || !aggOps[parts[0]] || !numericColumns[parts[1]] {
			continue // silently dropped
		}
		numericAggs = append(numericAggs, struct{ op, field string }{parts[0], parts[1]})
	}

	q := Query{Filters: req.Filters, DateFrom: req.DateFrom, DateTo: req.DateTo}
	where, args, err := buildWhere(q)
	if err != nil {
		return nil, err
	}

	selectCols := []string{"COUNT(*)"}
	for _, na := range numericAggs {
		selectCols = append(selectCols, fmt.Sprintf("%s(CASE WHEN %s IS NOT NULL THEN %s END)", strings.ToUpper(na.op), na.field, na.field))
	}

	var groupExpr string
	if req.GroupBy != "" {
		groupExpr = "COALESCE(entries." + req.GroupBy + ", '(none)')"
		selectCols = append([]string{groupExpr}, selectCols...)
	}

	query := fmt.Sprintf("SELECT %s FROM entries%s", strings.Join(selectCols, ", "), where)
	if req.GroupBy != "" {
		query += " GROUP BY " + groupExpr
	}

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "aggregate query")
	}
	defer rows.Close()

	var groups []AggregateGroup
	for rows.Next() {
		g := AggregateGroup{Numeric: map[string]float64{}}

		dest := make([]interface{}, 0, len(selectCols))
		var key string
		if req.GroupBy != "" {
			dest = append(dest, &key)
		}
		var count int
		dest = append(dest, &count)

		numericVals := make([]sql.NullFloat64, len(numericAggs))
		for i := range numericAggs {
			dest = append(dest, &numericVals[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, jerr.Wrap(jerr.IoFailure, err, "scan aggregate row")
		}

		g.Key = key
		g.Count = count
		for i, na := range numericAggs {
			if numericVals[i].Valid {
				g.Numeric[na.op+":"+na.field] = numericVals[i].Float64
			}
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "iterate aggregate rows")
	}

	return groups, nil
}

// Active returns entries with duration_ms >= thresholdMs, optionally
// restricted to tool, ordered by duration_ms descending.
func (ix *Index) Active(ctx context.Context, thresholdMs int64, tool string) ([]*codec.Entry, error) {
	if thresholdMs < 0 {
		return nil, jerr.New(jerr.InvalidArgument, "threshold_ms must be >= 0, got %d", thresholdMs)
	}

	where := "WHERE entries.duration_ms >= ?"
	args := []interface{}{thresholdMs}
	if tool != "" {
		where += " AND entries.tool = ?"
		args = append(args, tool)
	}

	query := fmt.Sprintf("%s %s ORDER BY entries.duration_ms DESC", selectColumns, where)
	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "active query")
	}
	defer rows.Close()

	var out []*codec.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, jerr.Wrap(jerr.IoFailure, err, "scan active row")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
