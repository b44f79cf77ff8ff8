package index

import (
	"context"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/jerr"
)

// ReferencingCausedBy returns every entry whose caused_by list contains
// entryID, used by trace_causality's forward direction. caused_by is
// stored as a JSON array string, so this is a LIKE scan rather than an
// indexed equality lookup — acceptable at journal scale.
func (ix *Index) ReferencingCausedBy(ctx context.Context, entryID string) ([]*codec.Entry, error) {
	query := selectColumns + ` WHERE entries.caused_by LIKE ? ORDER BY entries.timestamp ASC`
	rows, err := ix.db.QueryContext(ctx, query, `%"`+entryID+`"%`)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "referencing caused_by %s", entryID)
	}
	defer rows.Close()

	var out []*codec.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, jerr.Wrap(jerr.IoFailure, err, "scan referencing row")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "iterate referencing rows")
	}
	return out, nil
}
