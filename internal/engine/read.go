package engine

import (
	"context"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/fsutil"
	"github.com/anthropics/labjournal/internal/jerr"
)

// ReadRequest selects entries one of three ways: by id, by a single
// date, or by an inclusive date range. Exactly one mode must be set.
type ReadRequest struct {
	EntryID        string
	Date           string
	DateFrom       string
	DateTo         string
	IncludeContent bool
}

func (r ReadRequest) modeCount() int {
	n := 0
	if r.EntryID != "" {
		n++
	}
	if r.Date != "" {
		n++
	}
	if r.DateFrom != "" || r.DateTo != "" {
		n++
	}
	return n
}

// Read resolves req's selection mode and returns the matching entries
// in ascending date order. When IncludeContent is false, the narrative
// and diagnostic fields are stripped, leaving only identity fields —
// the "id-only" reading spec.md §4.6 describes.
func (e *Engine) Read(ctx context.Context, req ReadRequest) ([]*codec.Entry, error) {
	if req.modeCount() != 1 {
		return nil, jerr.New(jerr.InvalidArgument, "read: exactly one of entry_id, date, or date_from/date_to is required")
	}

	var out []*codec.Entry

	switch {
	case req.EntryID != "":
		date := dateFromID(req.EntryID)
		if date == "" {
			return nil, jerr.New(jerr.InvalidArgument, "read: malformed entry_id %q", req.EntryID)
		}
		entries, err := e.readDay(date)
		if err != nil {
			return nil, err
		}
		var found *codec.Entry
		for _, en := range entries {
			if en.ID == req.EntryID {
				found = en
				break
			}
		}
		if found == nil {
			return nil, jerr.New(jerr.NotFound, "read: entry %q not found", req.EntryID)
		}
		out = []*codec.Entry{found}

	case req.Date != "":
		entries, err := e.readDay(req.Date)
		if err != nil {
			return nil, err
		}
		out = entries

	default:
		from := e.resolveDateToken(req.DateFrom)
		to := e.resolveDateToken(req.DateTo)
		if to == "" {
			to = e.alloc.Today()
		}
		if from == "" {
			stats, err := e.idx.Stats(ctx)
			if err != nil {
				return nil, err
			}
			from = stats.EarliestDate
			if from == "" {
				from = to
			}
		}
		dates, err := dateRange(from, to)
		if err != nil {
			return nil, err
		}
		for _, d := range dates {
			entries, err := e.readDay(d)
			if err != nil {
				return nil, err
			}
			out = append(out, entries...)
		}
	}

	if !req.IncludeContent {
		stripped := make([]*codec.Entry, len(out))
		for i, en := range out {
			stripped[i] = identityOnly(en)
		}
		out = stripped
	}

	return out, nil
}

// readDay decodes the daily file for date, surfacing CodecError on
// parse failure per spec.md §7 ("during read it surfaces").
func (e *Engine) readDay(date string) ([]*codec.Entry, error) {
	raw, err := fsutil.ReadOrEmpty(e.dailyFilePath(date))
	if err != nil {
		return nil, err
	}
	entries, _, err := codec.DecodeFile(raw)
	if err != nil {
		return nil, jerr.Wrap(jerr.CodecError, err, "decode daily file for %s", date)
	}
	return entries, nil
}

// dateFromID extracts the YYYY-MM-DD prefix of an entry_id, returning
// "" if id is too short to contain one.
func dateFromID(id string) string {
	if len(id) < 10 {
		return ""
	}
	return id[:10]
}

// identityOnly returns a copy of e with narrative and diagnostic fields
// cleared, keeping only id/timestamp/author/type/outcome/template and
// the relation fields needed to locate the full record later.
func identityOnly(e *codec.Entry) *codec.Entry {
	return &codec.Entry{
		ID:              e.ID,
		Timestamp:       e.Timestamp,
		Author:          e.Author,
		Type:            e.Type,
		Outcome:         e.Outcome,
		Template:        e.Template,
		ReferencesEntry: e.ReferencesEntry,
		CausedBy:        e.CausedBy,
		References:      e.References,
	}
}
