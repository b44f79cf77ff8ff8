// Package index is the secondary relational + full-text store derived
// from the markdown corpus. It backs filter/order/paginate queries,
// full-text search, and grouped aggregation; it is always rebuildable
// from the daily files and owns none of the data it reports.
package index

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/anthropics/labjournal/internal/cache"
	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/jerr"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Index wraps the single *sql.DB connection the engine owns exclusively.
// All operations synchronize through this one handle, matching the
// single-writer-serializes discipline the teacher's core.Engine enforces
// around its own SQLite handle.
type Index struct {
	db  *sql.DB
	log *logrus.Logger

	mu    sync.Mutex // serializes writers; sqlite already serializes via busy_timeout, this just avoids churn
	cache *cache.Cache[string, *codec.Entry]
}

// Open opens (creating if necessary) the index database at path, in WAL
// mode with a 5-second busy timeout, and ensures the schema is current.
func Open(path string, log *logrus.Logger) (*Index, error) {
	if log == nil {
		log = logrus.New()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "open index %s", path)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, jerr.Wrap(jerr.IoFailure, err, "ping index %s", path)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, jerr.Wrap(jerr.IoFailure, err, "init schema for %s", path)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	entryCache := cache.New[string, *codec.Entry](512)

	return &Index{db: db, log: log, cache: entryCache}, nil
}

// migrate runs forward-only schema migrations, keyed off the single-row
// meta table.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("SELECT schema_version FROM meta WHERE id = 1").Scan(&version); err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "read schema version")
	}
	if version > currentSchemaVersion {
		return jerr.New(jerr.IoFailure, "index schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	// No migrations beyond version 1 yet.
	return nil
}

// Close checkpoints the WAL and closes the database handle.
func (ix *Index) Close() error {
	ix.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return ix.db.Close()
}

// DB exposes the underlying handle for operations that need raw SQL
// beyond this package's surface (used sparingly, from within this
// package's own files only).
func (ix *Index) DB() *sql.DB { return ix.db }

// IndexEntry upserts entry by entry_id, updating the relational row and
// the FTS mirror in one transaction. Idempotent.
func (ix *Index) IndexEntry(ctx context.Context, e *codec.Entry, filePath string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "begin index_entry tx")
	}
	defer tx.Rollback()

	if err := indexEntryTx(ctx, tx, e, filePath); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "commit index_entry for %s", e.ID)
	}

	ix.cache.Delete(e.ID)
	return nil
}

// indexEntryTx performs the upsert-plus-FTS-mirror-refresh for e within
// an already-open transaction. Shared by IndexEntry and Rebuild.
func indexEntryTx(ctx context.Context, tx *sql.Tx, e *codec.Entry, filePath string) error {
	causedByJSON, _ := json.Marshal(e.CausedBy)
	referencesJSON, _ := json.Marshal(e.References)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO entries (
			entry_id, date, timestamp, author, entry_type,
			context, intent, action, observation, analysis, next_steps,
			outcome, template,
			caused_by, "references", references_entry, config_used, log_produced,
			tool, command, duration_ms, exit_code, error_type,
			correction, actual, impact,
			file_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entry_id) DO UPDATE SET
			date=excluded.date, timestamp=excluded.timestamp, author=excluded.author, entry_type=excluded.entry_type,
			context=excluded.context, intent=excluded.intent, action=excluded.action, observation=excluded.observation,
			analysis=excluded.analysis, next_steps=excluded.next_steps,
			outcome=excluded.outcome, template=excluded.template,
			caused_by=excluded.caused_by, "references"=excluded."references", references_entry=excluded.references_entry,
			config_used=excluded.config_used, log_produced=excluded.log_produced,
			tool=excluded.tool, command=excluded.command, duration_ms=excluded.duration_ms,
			exit_code=excluded.exit_code, error_type=excluded.error_type,
			correction=excluded.correction, actual=excluded.actual, impact=excluded.impact,
			file_path=excluded.file_path
	`,
		e.ID, e.Date(), e.Timestamp.Format(timeStoreLayout), e.Author, string(e.Type),
		nullableStr(e.Context), nullableStr(e.Intent), nullableStr(e.Action), nullableStr(e.Observation),
		nullableStr(e.Analysis), nullableStr(e.NextSteps),
		nullableStr(string(e.Outcome)), nullableStr(e.Template),
		string(causedByJSON), string(referencesJSON), nullableStr(e.ReferencesEntry),
		nullableStr(e.ConfigUsed), nullableStr(e.LogProduced),
		nullableStr(e.Tool), nullableStr(e.Command), nullableInt(e.DurationMs),
		nullableInt(e.ExitCode), nullableStr(e.ErrorType),
		nullableStr(e.Correction), nullableStr(e.Actual), nullableStr(e.Impact),
		filePath,
	)
	if err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "upsert entry %s", e.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries_fts WHERE entry_id = ?`, e.ID); err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "clear fts mirror for %s", e.ID)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries_fts (entry_id, context, intent, action, observation, analysis)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Context, e.Intent, e.Action, e.Observation, e.Analysis)
	if err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "update fts mirror for %s", e.ID)
	}

	return nil
}

// DeleteEntry removes entry_id's row and FTS mirror and evicts it from
// the read cache. Rebuild does not call it; it clears both tables in
// bulk.
func (ix *Index) DeleteEntry(ctx context.Context, entryID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "begin delete_entry tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE entry_id = ?`, entryID); err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "delete entry %s", entryID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries_fts WHERE entry_id = ?`, entryID); err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "delete fts mirror for %s", entryID)
	}
	if err := tx.Commit(); err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "commit delete_entry for %s", entryID)
	}

	ix.cache.Delete(entryID)
	return nil
}

// Get returns the row for entryID, or nil if absent.
func (ix *Index) Get(ctx context.Context, entryID string) (*codec.Entry, error) {
	if e, ok := ix.cache.Get(entryID); ok {
		return e, nil
	}

	row := ix.db.QueryRowContext(ctx, selectColumns+` WHERE entry_id = ?`, entryID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "get entry %s", entryID)
	}

	ix.cache.Set(entryID, e)
	return e, nil
}

// Stats returns overall counts for UX.
type Stats struct {
	TotalEntries    int
	TotalAmendments int
	AuthorCounts    map[string]int
	ToolCounts      map[string]int
	OutcomeCounts   map[string]int
	EarliestDate    string
	LatestDate      string
}

func (ix *Index) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{AuthorCounts: map[string]int{}, ToolCounts: map[string]int{}, OutcomeCounts: map[string]int{}}

	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE entry_type = 'entry'`).Scan(&s.TotalEntries)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "count entries")
	}
	err = ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE entry_type = 'amendment'`).Scan(&s.TotalAmendments)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "count amendments")
	}

	if err := fillCounts(ctx, ix.db, "author", s.AuthorCounts); err != nil {
		return nil, err
	}
	if err := fillCounts(ctx, ix.db, "tool", s.ToolCounts); err != nil {
		return nil, err
	}
	if err := fillCounts(ctx, ix.db, "outcome", s.OutcomeCounts); err != nil {
		return nil, err
	}

	row := ix.db.QueryRowContext(ctx, `SELECT COALESCE(MIN(date), ''), COALESCE(MAX(date), '') FROM entries`)
	if err := row.Scan(&s.EarliestDate, &s.LatestDate); err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "date range")
	}

	return s, nil
}

func fillCounts(ctx context.Context, db *sql.DB, column string, into map[string]int) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT COALESCE(%s, '(none)'), COUNT(*) FROM entries GROUP BY %s`, column, column))
	if err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "group by %s", column)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return jerr.Wrap(jerr.IoFailure, err, "scan group by %s", column)
		}
		into[key] = count
	}
	return rows.Err()
}

const timeStoreLayout = "2006-01-02T15:04:05.000000Z"

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

const selectColumns = `
	SELECT entries.entry_id, entries.date, entries.timestamp, entries.author, entries.entry_type,
		entries.context, entries.intent, entries.action, entries.observation, entries.analysis, entries.next_steps,
		entries.outcome, entries.template,
		entries.caused_by, entries."references", entries.references_entry, entries.config_used, entries.log_produced,
		entries.tool, entries.command, entries.duration_ms, entries.exit_code, entries.error_type,
		entries.correction, entries.actual, entries.impact,
		entries.file_path
	FROM entries`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*codec.Entry, error) {
	var (
		e                                                     codec.Entry
		date, timestamp                                       string
		context, intent, action, observation, analysis        sql.NullString
		nextSteps, outcome, template                           sql.NullString
		causedByJSON, referencesJSON                           string
		referencesEntry, configUsed, logProduced               sql.NullString
		tool, command, errorType                               sql.NullString
		durationMs, exitCode                                   sql.NullInt64
		correction, actual, impact                             sql.NullString
		filePath                                               string
	)

	if err := row.Scan(
		&e.ID, &date, &timestamp, &e.Author, &e.Type,
		&context, &intent, &action, &observation, &analysis, &nextSteps,
		&outcome, &template,
		&causedByJSON, &referencesJSON, &referencesEntry, &configUsed, &logProduced,
		&tool, &command, &durationMs, &exitCode, &errorType,
		&correction, &actual, &impact,
		&filePath,
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(timeStoreLayout, timestamp)
	if err != nil {
		return nil, err
	}
	e.Timestamp = t.UTC()

	e.Context = context.String
	e.Intent = intent.String
	e.Action = action.String
	e.Observation = observation.String
	e.Analysis = analysis.String
	e.NextSteps = nextSteps.String
	e.Outcome = codec.Outcome(outcome.String)
	e.Template = template.String
	e.ReferencesEntry = referencesEntry.String
	e.ConfigUsed = configUsed.String
	e.LogProduced = logProduced.String
	e.Tool = tool.String
	e.Command = command.String
	e.ErrorType = errorType.String
	e.Correction = correction.String
	e.Actual = actual.String
	e.Impact = impact.String

	if durationMs.Valid {
		v := durationMs.Int64
		e.DurationMs = &v
	}
	if exitCode.Valid {
		v := exitCode.Int64
		e.ExitCode = &v
	}

	json.Unmarshal([]byte(causedByJSON), &e.CausedBy)
	json.Unmarshal([]byte(referencesJSON), &e.References)

	return &e, nil
}

