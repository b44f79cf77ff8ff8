package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/jerr"
)

// filterableColumns is the whitelist of equality-predicate filter keys.
// Unknown keys are silently dropped rather than interpolated into SQL —
// this is the query layer's injection boundary.
var filterableColumns = map[string]bool{
	"author":     true,
	"outcome":    true,
	"entry_type": true,
	"template":   true,
	"tool":       true,
	"error_type": true,
}

// orderableColumns is the whitelist order_by accepts; anything else
// falls back to timestamp.
var orderableColumns = map[string]string{
	"timestamp":   "timestamp",
	"entry_id":    "entry_id",
	"author":      "author",
	"outcome":     "outcome",
	"duration_ms": "duration_ms",
}

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Query describes a structured retrieval request.
type Query struct {
	Filters    map[string]string
	TextSearch string
	DateFrom   string // YYYY-MM-DD, already resolved from "today"/"yesterday" by the caller
	DateTo     string
	Limit      int
	Offset     int
	OrderBy    string
	OrderDesc  bool
}

// Result is the outcome of a Query.
type Result struct {
	Entries []*codec.Entry
	Total   int
	HasMore bool
}

// Query executes a structured retrieval: conjunction over whitelisted
// equality filters, inclusive date range, optional full-text search,
// whitelisted ordering, and bounded pagination.
func (ix *Index) Query(ctx context.Context, q Query) (*Result, error) {
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Limit < 1 || q.Limit > maxLimit {
		return nil, jerr.New(jerr.InvalidArgument, "limit must be in [1, %d], got %d", maxLimit, q.Limit)
	}
	if q.Offset < 0 {
		return nil, jerr.New(jerr.InvalidArgument, "offset must be >= 0, got %d", q.Offset)
	}

	where, args, err := buildWhere(q)
	if err != nil {
		return nil, err
	}

	orderCol, ok := orderableColumns[q.OrderBy]
	if !ok {
		orderCol = "timestamp"
	}
	direction := "ASC"
	if q.OrderDesc {
		direction = "DESC"
	}

	fromClause := "entries"
	if q.TextSearch != "" {
		fromClause = "entries JOIN entries_fts ON entries_fts.entry_id = entries.entry_id"
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, fromClause, where)
	var total int
	if err := ix.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "count query")
	}

	selectQuery := fmt.Sprintf(`%s%s ORDER BY entries.%s %s, entries.entry_id %s LIMIT ? OFFSET ?`,
		strings.Replace(selectColumns, "FROM entries", "FROM "+fromClause, 1), where, orderCol, direction, direction)
	rows, err := ix.db.QueryContext(ctx, selectQuery, append(append([]interface{}{}, args...), q.Limit, q.Offset)...)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "select query")
	}
	defer rows.Close()

	var entries []*codec.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, jerr.Wrap(jerr.IoFailure, err, "scan query row")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "iterate query rows")
	}

	return &Result{
		Entries: entries,
		Total:   total,
		HasMore: q.Offset+len(entries) < total,
	}, nil
}

// buildWhere assembles the WHERE clause (including leading space) and its
// bound args for q. Only whitelisted filter keys and date bounds reach
// the query string; everything else is parameterized.
func buildWhere(q Query) (string, []interface{}, error) {
	var conds []string
	var args []interface{}

	for key, value := range q.Filters {
		if !filterableColumns[key] {
			continue
		}
		conds = append(conds, fmt.Sprintf("entries.%s = ?", key))
		args = append(args, value)
	}

	if q.DateFrom != "" {
		if _, err := time.Parse("2006-01-02", q.DateFrom); err != nil {
			return "", nil, jerr.Wrap(jerr.InvalidArgument, err, "invalid date_from %q", q.DateFrom)
		}
		conds = append(conds, "entries.date >= ?")
		args = append(args, q.DateFrom)
	}
	if q.DateTo != "" {
		if _, err := time.Parse("2006-01-02", q.DateTo); err != nil {
			return "", nil, jerr.Wrap(jerr.InvalidArgument, err, "invalid date_to %q", q.DateTo)
		}
		conds = append(conds, "entries.date <= ?")
		args = append(args, q.DateTo)
	}

	if q.TextSearch != "" {
		conds = append(conds, "entries_fts MATCH ?")
		args = append(args, EscapeFTSQuery(q.TextSearch))
	}

	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// ftsOperators are tokens passed through unescaped because they carry FTS
// query syntax meaning rather than literal text.
var ftsOperators = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true, "*": true,
}

// EscapeFTSQuery prepares a user-supplied search string for the FTS5
// MATCH operator: double quotes are doubled, and an input containing
// whitespace but none of the FTS operator tokens is wrapped in double
// quotes to force a phrase match instead of being parsed as bare FTS
// query syntax. An input that contains an operator token is passed
// through unwrapped so the operators keep their meaning.
func EscapeFTSQuery(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return `""`
	}

	// A lone operator is passed through as is.
	if ftsOperators[strings.ToUpper(input)] {
		return input
	}

	escaped := strings.ReplaceAll(input, `"`, `""`)

	if strings.ContainsAny(escaped, " \t\n") {
		// Explicit operator tokens keep their FTS meaning; a bare
		// multi-word input becomes one phrase query.
		for _, tok := range strings.Fields(escaped) {
			if ftsOperators[tok] {
				return escaped
			}
		}
		return `"` + escaped + `"`
	}
	return escaped
}
