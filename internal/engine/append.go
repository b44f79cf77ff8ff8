package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/fsutil"
	"github.com/anthropics/labjournal/internal/jconfig"
	"github.com/anthropics/labjournal/internal/jerr"
)

// AppendRequest carries every field append(fields) in spec.md §4.6
// accepts for a narrative (non-amendment) entry.
type AppendRequest struct {
	Author   string
	Template string // optional

	Context     string
	Intent      string
	Action      string
	Observation string
	Analysis    string
	NextSteps   string

	Outcome codec.Outcome

	CausedBy   []string
	References []string

	ConfigUsed  string
	LogProduced string

	Tool       string
	Command    string
	DurationMs *int64
	ExitCode   *int64
	ErrorType  string
}

// Append validates req, runs the pre_append hook, writes the entry to
// its daily file, indexes it, and runs the post_append hook. The daily
// file lock is held for the full read-validate-write-index sequence so
// NNN allocation and file content stay consistent under concurrent
// callers.
func (e *Engine) Append(ctx context.Context, req AppendRequest) (*codec.Entry, error) {
	start := time.Now()

	if req.Author == "" {
		return nil, jerr.New(jerr.InvalidArgument, "append: author is required")
	}

	cfg := e.config()

	var tmpl *jconfig.Template
	if req.Template != "" {
		t, ok := cfg.Template(req.Template)
		if !ok {
			return nil, jerr.New(jerr.TemplateNotFound, "template %q not found", req.Template)
		}
		tmpl = &t
	} else if cfg.Validation.RequireTemplates {
		return nil, jerr.New(jerr.TemplateRequired, "append: a template is required by configuration")
	}
	if tmpl != nil {
		for _, field := range tmpl.RequiredFields {
			if requiredFieldValue(req, field) == "" {
				return nil, jerr.New(jerr.MissingTemplateField, "template %q requires field %q", req.Template, field)
			}
		}
	}

	if cfg.Validation.RequireOutcome && req.Outcome == "" {
		return nil, jerr.New(jerr.InvalidArgument, "append: outcome is required by configuration")
	}

	if cfg.Validation.ValidateReferences {
		if err := e.validateReferences(ctx, req.CausedBy, req.References); err != nil {
			return nil, err
		}
	}

	date := e.alloc.Today()
	entry, _, err := e.writeDailyEntry(ctx, date, func(existing []*codec.Entry, knownMax int) (*codec.Entry, error) {
		ts := e.clock.Now()
		entry := &codec.Entry{
			ID:          e.alloc.Next(date, knownMax),
			Timestamp:   ts,
			Author:      req.Author,
			Type:        codec.TypeEntry,
			Context:     req.Context,
			Intent:      req.Intent,
			Action:      req.Action,
			Observation: req.Observation,
			Analysis:    req.Analysis,
			NextSteps:   req.NextSteps,
			Outcome:     req.Outcome,
			Template:    req.Template,
			CausedBy:    req.CausedBy,
			References:  req.References,
			ConfigUsed:  req.ConfigUsed,
			LogProduced: req.LogProduced,
			Tool:        req.Tool,
			Command:     req.Command,
			DurationMs:  req.DurationMs,
			ExitCode:    req.ExitCode,
			ErrorType:   req.ErrorType,
		}
		if tmpl != nil && entry.Outcome == "" && tmpl.DefaultOutcome != "" {
			entry.Outcome = codec.Outcome(tmpl.DefaultOutcome)
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	if err := e.hooks.Emit(ctx, &HookContext{Event: EventPostAppend, Entry: entry, Timestamp: entry.Timestamp}); err != nil {
		return entry, err
	}

	e.logOp("append", logrus.Fields{"entry_id": entry.ID, "author": entry.Author}, start)
	return entry, nil
}

// AmendRequest carries the fields amend(...) accepts. There are no
// narrative fields and no templates; ReferencesEntry is mandatory and
// must resolve to an existing entry.
type AmendRequest struct {
	ReferencesEntry string
	Correction      string
	Actual          string
	Impact          string
	Author          string
}

// Amend runs the same locked read-validate-write-index flow as Append,
// with entry_type = amendment.
func (e *Engine) Amend(ctx context.Context, req AmendRequest) (*codec.Entry, error) {
	start := time.Now()

	if req.Author == "" {
		return nil, jerr.New(jerr.InvalidArgument, "amend: author is required")
	}
	if req.ReferencesEntry == "" {
		return nil, jerr.New(jerr.InvalidArgument, "amend: references_entry is required")
	}
	if req.Correction == "" || req.Actual == "" || req.Impact == "" {
		return nil, jerr.New(jerr.InvalidArgument, "amend: correction, actual, and impact are all required")
	}

	target, err := e.idx.Get(ctx, req.ReferencesEntry)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, jerr.New(jerr.NotFound, "amend: target entry %q not found", req.ReferencesEntry)
	}

	date := e.alloc.Today()
	entry, _, err := e.writeDailyEntry(ctx, date, func(existing []*codec.Entry, knownMax int) (*codec.Entry, error) {
		ts := e.clock.Now()
		return &codec.Entry{
			ID:              e.alloc.Next(date, knownMax),
			Timestamp:       ts,
			Author:          req.Author,
			Type:            codec.TypeAmendment,
			ReferencesEntry: req.ReferencesEntry,
			CausedBy:        []string{req.ReferencesEntry},
			Correction:      req.Correction,
			Actual:          req.Actual,
			Impact:          req.Impact,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if err := e.hooks.Emit(ctx, &HookContext{Event: EventPostAppend, Entry: entry, Timestamp: entry.Timestamp}); err != nil {
		return entry, err
	}

	e.logOp("amend", logrus.Fields{"entry_id": entry.ID, "references_entry": req.ReferencesEntry}, start)
	return entry, nil
}

// validateReferences resolves every id in causedBy and every
// entry_id-shaped token in references against the index, failing with
// InvalidReference on the first miss. References tokens that don't match
// the entry_id grammar are assumed to be file paths (per codec.Entry's
// References doc) and are not resolved.
func (e *Engine) validateReferences(ctx context.Context, causedBy, references []string) error {
	for _, id := range causedBy {
		if err := e.mustResolve(ctx, id); err != nil {
			return err
		}
	}
	for _, id := range references {
		if !entryIDPattern.MatchString(id) {
			continue
		}
		if err := e.mustResolve(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) mustResolve(ctx context.Context, id string) error {
	found, err := e.idx.Get(ctx, id)
	if err != nil {
		return err
	}
	if found == nil {
		return jerr.New(jerr.InvalidReference, "referenced entry %q does not exist", id)
	}
	return nil
}

// writeDailyEntry locks date's daily file, decodes its existing
// contents, builds the new entry via build (which receives the decoded
// entries and the highest NNN already present), runs the pre_append
// hook, encodes and atomically rewrites the file, and indexes the new
// row — all while holding the lock, so NNN allocation is race-free
// across processes.
func (e *Engine) writeDailyEntry(ctx context.Context, date string, build func(existing []*codec.Entry, knownMax int) (*codec.Entry, error)) (*codec.Entry, []byte, error) {
	path := e.dailyFilePath(date)

	var entry *codec.Entry
	var newData []byte

	err := fsutil.WithLock(ctx, path, e.lockTimeout, func() error {
		raw, err := fsutil.ReadOrEmpty(path)
		if err != nil {
			return err
		}
		existing, _, err := codec.DecodeFile(raw)
		if err != nil {
			return jerr.Wrap(jerr.CodecError, err, "decode daily file %s", path)
		}

		knownMax := 0
		for _, ex := range existing {
			if seq := seqSuffix(ex.ID); seq > knownMax {
				knownMax = seq
			}
		}

		built, err := build(existing, knownMax)
		if err != nil {
			return err
		}

		if err := e.hooks.Emit(ctx, &HookContext{Event: EventPreAppend, Entry: built, Timestamp: built.Timestamp}); err != nil {
			return err
		}

		newData = codec.AppendToFile(raw, built)
		if err := fsutil.AtomicReplace(path, newData); err != nil {
			return err
		}

		if err := e.idx.IndexEntry(ctx, built, path); err != nil {
			return err
		}

		entry = built
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return entry, newData, nil
}

// seqSuffix extracts the trailing NNN sequence number from an entry_id,
// returning 0 if id doesn't match the expected shape.
func seqSuffix(id string) int {
	if !entryIDPattern.MatchString(id) {
		return 0
	}
	n := 0
	for i := 11; i < len(id); i++ {
		n = n*10 + int(id[i]-'0')
	}
	return n
}
