package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/anthropics/labjournal/internal/jerr"
)

// AtomicReplace writes data to a temp file in the same directory as path,
// fsyncs it, then renames it over path. Rename is atomic on the same
// filesystem, so any observer interleaved with the write sees either the
// entirely-old or entirely-new content, never a partial file.
//
// Grounded on the write-to-temp/fsync/rename commit shape in the
// heyojules-lotus journal example (journal.go's writeCommitted /
// compactCommitted).
func AtomicReplace(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "create directory %s", dir)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(path), uuid.NewString()))

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "create temp file %s", tmp)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return jerr.Wrap(jerr.IoFailure, err, "write temp file %s", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return jerr.Wrap(jerr.IoFailure, err, "sync temp file %s", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return jerr.Wrap(jerr.IoFailure, err, "close temp file %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return jerr.Wrap(jerr.IoFailure, err, "rename %s to %s", tmp, path)
	}

	return nil
}

// ReadOrEmpty reads path, returning an empty slice (not an error) if the
// file does not yet exist — used when appending to a daily file that may
// not have been created yet.
func ReadOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, jerr.Wrap(jerr.IoFailure, err, "read %s", path)
	}
	return data, nil
}

// MoveFile moves src to dst, falling back to copy+unlink when a direct
// rename fails because the paths are on different filesystems.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "create directory %s", filepath.Dir(dst))
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "read %s for cross-filesystem move", src)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "write %s for cross-filesystem move", dst)
	}
	if err := os.Remove(src); err != nil {
		return jerr.Wrap(jerr.IoFailure, err, "remove original %s after move", src)
	}
	return nil
}
