package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/jerr"
)

// RebuildError is one file's parse failure, reported without aborting
// the rebuild.
type RebuildError struct {
	FilePath string
	Message  string
}

// RebuildResult summarizes a completed Rebuild.
type RebuildResult struct {
	FilesProcessed int
	EntriesIndexed int
	Errors         []RebuildError
}

// ProgressFunc is invoked once per daily file processed during Rebuild,
// after that file's entries (if any) have been indexed.
type ProgressFunc func(filePath string, entriesIndexed int, err error)

// Rebuild clears the index and reparses every daily file under
// journalDir, skipping INDEX.md and hidden files. A parse failure on a
// single file is reported via progress and in the result's Errors, but
// does not abort the rebuild. The whole operation runs as one
// transaction, committed at the end.
func (ix *Index) Rebuild(ctx context.Context, journalDir string, progress ProgressFunc) (*RebuildResult, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	entries, err := os.ReadDir(journalDir)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "read journal dir %s", journalDir)
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "begin rebuild tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "clear entries for rebuild")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries_fts`); err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "clear fts mirror for rebuild")
	}

	result := &RebuildResult{}

	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || name == "INDEX.md" || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".md") {
			continue
		}

		path := filepath.Join(journalDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, RebuildError{FilePath: path, Message: err.Error()})
			if progress != nil {
				progress(path, 0, err)
			}
			continue
		}

		parsed, warnings, err := codec.DecodeFile(data)
		if err != nil {
			result.Errors = append(result.Errors, RebuildError{FilePath: path, Message: err.Error()})
			if progress != nil {
				progress(path, 0, err)
			}
			continue
		}
		for _, w := range warnings {
			result.Errors = append(result.Errors, RebuildError{FilePath: path, Message: w.EntryID + ": " + w.Message})
		}

		indexed := 0
		for _, e := range parsed {
			if err := indexEntryTx(ctx, tx, e, path); err != nil {
				result.Errors = append(result.Errors, RebuildError{FilePath: path, Message: err.Error()})
				continue
			}
			indexed++
		}

		result.FilesProcessed++
		result.EntriesIndexed += indexed
		if progress != nil {
			progress(path, indexed, nil)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "commit rebuild")
	}

	ix.cache.Clear()
	return result, nil
}
